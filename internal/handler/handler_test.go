package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/exchange-coordinator/internal/middleware"
	"github.com/mmeshcher/exchange-coordinator/internal/model"
	"github.com/mmeshcher/exchange-coordinator/internal/repository"
	"github.com/mmeshcher/exchange-coordinator/internal/service"
	"github.com/mmeshcher/exchange-coordinator/internal/wallet"
)

type stubService struct {
	admin bool

	registerWorkerFn      func(ctx context.Context, workerID int64, username, code string) (*model.Worker, error)
	approveWorkerFn       func(ctx context.Context, adminID, workerID int64) error
	banWorkerFn           func(ctx context.Context, adminID, workerID int64) error
	resolveAttributionFn  func(ctx context.Context, code string) (int64, error)
	generateAdminCodeFn   func(ctx context.Context, adminID int64) (string, error)
	generateWorkerInvFn   func(ctx context.Context, workerID int64) (string, error)
	createOrderFn         func(ctx context.Context, workerID int64, amount float64) (*model.Order, error)
	claimOrderFn          func(ctx context.Context, orderID, adminID int64) (*model.Order, error)
	beginServiceFn        func(ctx context.Context, orderID, adminID int64) (*model.Order, error)
	markTransactionFn     func(ctx context.Context, orderID, adminID int64) (*model.Order, error)
	completeOrderFn       func(ctx context.Context, orderID, adminID int64) (*model.Order, error)
	cancelOrderFn         func(ctx context.Context, orderID, actorID int64) (*model.Order, error)
	getOrderFn            func(ctx context.Context, orderID int64) (*model.Order, error)
	getOpenOrderFn        func(ctx context.Context, workerID int64) (*model.Order, error)
	listOrdersFn          func(ctx context.Context, workerID int64) ([]model.Order, error)
	getWorkerStatsFn      func(ctx context.Context, workerID int64) (*model.WorkerStats, error)
	getTopWeekFn          func(ctx context.Context) ([]model.TopEntry, error)
	getAdminWorkerStatsFn func(ctx context.Context, adminID int64) (*model.AdminWorkerStats, error)
	updateWorkerProfitFn  func(ctx context.Context, adminID, workerID int64, profitTotal, profitWeek *float64) error
}

func (s *stubService) IsAdmin(int64) bool { return s.admin }

func (s *stubService) RegisterWorker(ctx context.Context, workerID int64, username, code string) (*model.Worker, error) {
	return s.registerWorkerFn(ctx, workerID, username, code)
}

func (s *stubService) ApproveWorker(ctx context.Context, adminID, workerID int64) error {
	return s.approveWorkerFn(ctx, adminID, workerID)
}

func (s *stubService) BanWorker(ctx context.Context, adminID, workerID int64) error {
	return s.banWorkerFn(ctx, adminID, workerID)
}

func (s *stubService) ResolveAttribution(ctx context.Context, code string) (int64, error) {
	return s.resolveAttributionFn(ctx, code)
}

func (s *stubService) GenerateAdminCode(ctx context.Context, adminID int64) (string, error) {
	return s.generateAdminCodeFn(ctx, adminID)
}

func (s *stubService) GenerateWorkerInvite(ctx context.Context, workerID int64) (string, error) {
	return s.generateWorkerInvFn(ctx, workerID)
}

func (s *stubService) CreateOrder(ctx context.Context, workerID int64, amount float64) (*model.Order, error) {
	return s.createOrderFn(ctx, workerID, amount)
}

func (s *stubService) ClaimOrder(ctx context.Context, orderID, adminID int64) (*model.Order, error) {
	return s.claimOrderFn(ctx, orderID, adminID)
}

func (s *stubService) BeginService(ctx context.Context, orderID, adminID int64) (*model.Order, error) {
	return s.beginServiceFn(ctx, orderID, adminID)
}

func (s *stubService) MarkTransactionSent(ctx context.Context, orderID, adminID int64) (*model.Order, error) {
	return s.markTransactionFn(ctx, orderID, adminID)
}

func (s *stubService) CompleteOrder(ctx context.Context, orderID, adminID int64) (*model.Order, error) {
	return s.completeOrderFn(ctx, orderID, adminID)
}

func (s *stubService) CancelOrder(ctx context.Context, orderID, actorID int64) (*model.Order, error) {
	return s.cancelOrderFn(ctx, orderID, actorID)
}

func (s *stubService) GetOrder(ctx context.Context, orderID int64) (*model.Order, error) {
	return s.getOrderFn(ctx, orderID)
}

func (s *stubService) GetOpenOrderForWorker(ctx context.Context, workerID int64) (*model.Order, error) {
	return s.getOpenOrderFn(ctx, workerID)
}

func (s *stubService) ListOrdersByWorker(ctx context.Context, workerID int64) ([]model.Order, error) {
	return s.listOrdersFn(ctx, workerID)
}

func (s *stubService) GetWorkerStats(ctx context.Context, workerID int64) (*model.WorkerStats, error) {
	return s.getWorkerStatsFn(ctx, workerID)
}

func (s *stubService) GetTopWeek(ctx context.Context) ([]model.TopEntry, error) {
	return s.getTopWeekFn(ctx)
}

func (s *stubService) GetAdminWorkerStats(ctx context.Context, adminID int64) (*model.AdminWorkerStats, error) {
	return s.getAdminWorkerStatsFn(ctx, adminID)
}

func (s *stubService) UpdateWorkerProfit(ctx context.Context, adminID, workerID int64, profitTotal, profitWeek *float64) error {
	return s.updateWorkerProfitFn(ctx, adminID, workerID, profitTotal, profitWeek)
}

const testSecret = "test-secret"

func newTestRouter(t *testing.T, s *stubService) http.Handler {
	t.Helper()
	auth := middleware.NewAuthMiddleware(testSecret)
	h := NewHandler(s, zap.NewNop(), auth, wallet.NewIssuer())
	return NewRouter(h, zap.NewNop())
}

func authCookie(t *testing.T, actorID int64) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	middleware.NewAuthMiddleware(testSecret).SetAuthCookie(rec, actorID)
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("auth cookie was not set")
	}
	return cookies[0]
}

func testOrder(status model.OrderStatus) *model.Order {
	admin := int64(99)
	return &model.Order{
		ID:            7,
		WorkerID:      42,
		Amount:        0.5,
		Status:        status,
		BoundAdmin:    &admin,
		ClaimingAdmin: &admin,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
}

func TestRegisterWorker(t *testing.T) {
	admin := int64(99)
	s := &stubService{
		registerWorkerFn: func(_ context.Context, workerID int64, username, code string) (*model.Worker, error) {
			if workerID != 42 || username != "alice" || code != "ABCDEF123456" {
				t.Errorf("unexpected register args: %d %q %q", workerID, username, code)
			}
			return &model.Worker{
				TelegramID:       42,
				Username:         "alice",
				Status:           model.WorkerStatusPending,
				BoundAdmin:       &admin,
				RegistrationDate: time.Now(),
			}, nil
		},
	}
	router := newTestRouter(t, s)

	body := `{"worker_id":42,"username":"alice","code":"ABCDEF123456"}`
	req := httptest.NewRequest(http.MethodPost, "/api/worker/register", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(rec.Result().Cookies()) == 0 {
		t.Error("expected auth cookie to be set")
	}

	var resp workerResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.TelegramID != 42 || resp.Status != "pending" || resp.BoundAdmin == nil || *resp.BoundAdmin != 99 {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestRegisterWorker_BadRequest(t *testing.T) {
	router := newTestRouter(t, &stubService{})

	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{worker_id:}`, http.StatusBadRequest},
		{"missing worker id", `{"username":"alice"}`, http.StatusBadRequest},
		{"bad code format", `{"worker_id":42,"code":"not a code!!"}`, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/worker/register", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestCreateOrder(t *testing.T) {
	s := &stubService{
		createOrderFn: func(_ context.Context, workerID int64, amount float64) (*model.Order, error) {
			if workerID != 42 {
				t.Errorf("expected worker 42, got %d", workerID)
			}
			if amount != 0.5 {
				t.Errorf("expected amount 0.5, got %v", amount)
			}
			return testOrder(model.OrderStatusPending), nil
		},
	}
	router := newTestRouter(t, s)

	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewBufferString(`{"amount":0.5}`))
	req.AddCookie(authCookie(t, 42))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp orderResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID != 7 || resp.Status != "pending" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestCreateOrder_Unauthorized(t *testing.T) {
	router := newTestRouter(t, &stubService{})

	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewBufferString(`{"amount":0.5}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestCreateOrder_Rejections(t *testing.T) {
	tests := []struct {
		name string
		body string
		err  error
		want int
	}{
		{"zero amount", `{"amount":0}`, nil, http.StatusUnprocessableEntity},
		{"amount over limit", `{"amount":150}`, nil, http.StatusUnprocessableEntity},
		{"already open order", `{"amount":0.5}`, repository.ErrOrderAlreadyOpen, http.StatusConflict},
		{"unbound worker", `{"amount":0.5}`, repository.ErrWorkerUnbound, http.StatusUnprocessableEntity},
		{"not approved", `{"amount":0.5}`, service.ErrWorkerNotActive, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &stubService{
				createOrderFn: func(context.Context, int64, float64) (*model.Order, error) {
					return nil, tt.err
				},
			}
			router := newTestRouter(t, s)

			req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewBufferString(tt.body))
			req.AddCookie(authCookie(t, 42))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestClaimOrder(t *testing.T) {
	s := &stubService{
		claimOrderFn: func(_ context.Context, orderID, adminID int64) (*model.Order, error) {
			if orderID != 7 || adminID != 99 {
				t.Errorf("unexpected claim args: order %d admin %d", orderID, adminID)
			}
			return testOrder(model.OrderStatusClaimed), nil
		},
	}
	router := newTestRouter(t, s)

	req := httptest.NewRequest(http.MethodPost, "/api/orders/7/claim", nil)
	req.AddCookie(authCookie(t, 99))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp orderResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "claimed" {
		t.Errorf("expected claimed status, got %q", resp.Status)
	}
}

func TestClaimOrder_Rejections(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"already claimed", repository.ErrAlreadyClaimed, http.StatusConflict},
		{"bound to another admin", repository.ErrNotBoundAdmin, http.StatusForbidden},
		{"not an admin", service.ErrNotAdmin, http.StatusForbidden},
		{"missing order", repository.ErrOrderNotFound, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &stubService{
				claimOrderFn: func(context.Context, int64, int64) (*model.Order, error) {
					return nil, tt.err
				},
			}
			router := newTestRouter(t, s)

			req := httptest.NewRequest(http.MethodPost, "/api/orders/7/claim", nil)
			req.AddCookie(authCookie(t, 99))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestOrderTransitions(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		status model.OrderStatus
	}{
		{"start", "/api/orders/7/start", model.OrderStatusInProgress},
		{"transaction", "/api/orders/7/transaction", model.OrderStatusTransactionSent},
		{"complete", "/api/orders/7/complete", model.OrderStatusCompleted},
		{"cancel", "/api/orders/7/cancel", model.OrderStatusCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn := func(context.Context, int64, int64) (*model.Order, error) {
				return testOrder(tt.status), nil
			}
			s := &stubService{
				beginServiceFn:    fn,
				markTransactionFn: fn,
				completeOrderFn:   fn,
				cancelOrderFn:     fn,
			}
			router := newTestRouter(t, s)

			req := httptest.NewRequest(http.MethodPost, tt.path, nil)
			req.AddCookie(authCookie(t, 99))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
			}

			var resp orderResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp.Status != string(tt.status) {
				t.Errorf("expected status %q, got %q", tt.status, resp.Status)
			}
		})
	}
}

func TestGetOpenOrder_NoContent(t *testing.T) {
	s := &stubService{
		getOpenOrderFn: func(context.Context, int64) (*model.Order, error) {
			return nil, nil
		},
	}
	router := newTestRouter(t, s)

	req := httptest.NewRequest(http.MethodGet, "/api/orders/open", nil)
	req.AddCookie(authCookie(t, 42))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
}

func TestListOrders(t *testing.T) {
	s := &stubService{
		listOrdersFn: func(context.Context, int64) ([]model.Order, error) {
			return []model.Order{*testOrder(model.OrderStatusPending), *testOrder(model.OrderStatusCompleted)}, nil
		},
	}
	router := newTestRouter(t, s)

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.AddCookie(authCookie(t, 42))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp []orderResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp) != 2 {
		t.Errorf("expected 2 orders, got %d", len(resp))
	}
}

func TestResolveAttribution(t *testing.T) {
	s := &stubService{
		resolveAttributionFn: func(_ context.Context, code string) (int64, error) {
			if code != "ABCDEF123456" {
				t.Errorf("unexpected code %q", code)
			}
			return 99, nil
		},
	}
	router := newTestRouter(t, s)

	req := httptest.NewRequest(http.MethodPost, "/api/attribution/resolve", bytes.NewBufferString(`{"code":"ABCDEF123456"}`))
	req.AddCookie(authCookie(t, 42))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp resolveResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.AdminID != 99 {
		t.Errorf("expected admin 99, got %d", resp.AdminID)
	}
}

func TestResolveAttribution_Unresolvable(t *testing.T) {
	s := &stubService{
		resolveAttributionFn: func(context.Context, string) (int64, error) {
			return 0, service.ErrUnresolvable
		},
	}
	router := newTestRouter(t, s)

	req := httptest.NewRequest(http.MethodPost, "/api/attribution/resolve", bytes.NewBufferString(`{"code":"ABCDEF123456"}`))
	req.AddCookie(authCookie(t, 42))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", rec.Code)
	}
}

func TestGenerateCode(t *testing.T) {
	tests := []struct {
		name  string
		admin bool
		want  string
	}{
		{"admin gets direct code", true, "ADMINCODE999"},
		{"worker gets invite", false, "WORKERINV777"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &stubService{
				admin: tt.admin,
				generateAdminCodeFn: func(context.Context, int64) (string, error) {
					return "ADMINCODE999", nil
				},
				generateWorkerInvFn: func(context.Context, int64) (string, error) {
					return "WORKERINV777", nil
				},
			}
			router := newTestRouter(t, s)

			req := httptest.NewRequest(http.MethodPost, "/api/attribution/codes", nil)
			req.AddCookie(authCookie(t, 99))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rec.Code)
			}

			var resp codeResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp.Code != tt.want {
				t.Errorf("expected code %q, got %q", tt.want, resp.Code)
			}
		})
	}
}

func TestGetWallets(t *testing.T) {
	router := newTestRouter(t, &stubService{})

	req := httptest.NewRequest(http.MethodGet, "/api/wallets", nil)
	req.AddCookie(authCookie(t, 42))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var pairs []wallet.Pair
	if err := json.NewDecoder(rec.Body).Decode(&pairs); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(pairs) != 3 {
		t.Errorf("expected 3 wallet pairs, got %d", len(pairs))
	}
}
