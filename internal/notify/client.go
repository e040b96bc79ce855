// Package notify предоставляет клиент шлюза уведомлений о событиях заказов.
package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/mmeshcher/exchange-coordinator/internal/model"
)

// Client инкапсулирует HTTP-взаимодействие со шлюзом доставки уведомлений.
// Доставка выполняется после фиксации перехода и не является предусловием
// корректности состояния: ошибки логируются и не возвращаются.
type Client struct {
	baseURL    string
	httpClient *retryablehttp.Client
	logger     *zap.Logger
}

// NewClient создаёт клиент шлюза уведомлений по указанному адресу.
func NewClient(baseURL string, logger *zap.Logger) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.HTTPClient.Timeout = 5 * time.Second
	rc.Logger = nil

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: rc,
		logger:     logger,
	}
}

// Dispatch отправляет событие заказа шлюзу уведомлений.
func (c *Client) Dispatch(ctx context.Context, event model.OrderEvent) {
	if c == nil || c.baseURL == "" {
		return
	}

	base := c.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	body, err := json.Marshal(event)
	if err != nil {
		c.logger.Error("marshal order event", zap.Error(err), zap.Int64("orderID", event.OrderID))
		return
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, base+"/api/events", body)
	if err != nil {
		c.logger.Error("create notify request", zap.Error(err), zap.Int64("orderID", event.OrderID))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("dispatch order event", zap.Error(err),
			zap.Int64("orderID", event.OrderID), zap.String("kind", string(event.Kind)))
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		c.logger.Warn("notify gateway rejected event",
			zap.Int("status", resp.StatusCode),
			zap.Int64("orderID", event.OrderID), zap.String("kind", string(event.Kind)))
	}
}
