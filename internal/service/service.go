// Package service реализует бизнес-логику координатора обменов:
// атрибуцию воркеров и жизненный цикл заказов.
package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/mmeshcher/exchange-coordinator/internal/model"
	"github.com/mmeshcher/exchange-coordinator/internal/repository"
	"github.com/mmeshcher/exchange-coordinator/internal/validation"
)

// ErrUnresolvable возвращается, если атрибуционный код не разрешается в админа.
var (
	ErrUnresolvable = errors.New("attribution code cannot be resolved")
	// ErrWorkerNotActive возвращается, если воркер не одобрен для создания заказов.
	ErrWorkerNotActive = errors.New("worker is not approved")
	// ErrNotAdmin возвращается, если действие доступно только админам.
	ErrNotAdmin = errors.New("actor is not an admin")
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	CreateWorker(ctx context.Context, telegramID int64, username string, status model.WorkerStatus) error
	GetWorker(ctx context.Context, telegramID int64) (*model.Worker, error)
	UpdateWorkerStatus(ctx context.Context, telegramID int64, status model.WorkerStatus) error
	UpdateWorkerProfit(ctx context.Context, telegramID int64, profitTotal, profitWeek *float64) error
	BindWorkerAdmin(ctx context.Context, workerID, adminID int64, code *string) error
	PutCode(ctx context.Context, code string, adminID, originWorker *int64) error
	GetCode(ctx context.Context, code string) (*model.CodeRecord, error)
	CreateOrder(ctx context.Context, workerID int64, amount float64) (*model.Order, error)
	ClaimOrder(ctx context.Context, orderID, adminID int64) (*model.Order, error)
	BeginService(ctx context.Context, orderID, adminID int64) (*model.Order, error)
	MarkTransactionSent(ctx context.Context, orderID, adminID int64) (*model.Order, error)
	CompleteOrder(ctx context.Context, orderID, adminID int64) (*model.Order, error)
	CancelOrder(ctx context.Context, orderID, actorID int64) (*model.Order, error)
	GetOrder(ctx context.Context, orderID int64) (*model.Order, error)
	GetOpenOrderByWorker(ctx context.Context, workerID int64) (*model.Order, error)
	ListOrdersByWorker(ctx context.Context, workerID int64) ([]model.Order, error)
	GetTopWeek(ctx context.Context, limit int) ([]model.TopEntry, error)
	GetAdminWorkerStats(ctx context.Context, adminID int64) (*model.AdminWorkerStats, error)
}

// Notifier доставляет события заказов внешнему шлюзу уведомлений.
// Вызывается только после фиксации перехода; на корректность состояния
// не влияет.
type Notifier interface {
	Dispatch(ctx context.Context, event model.OrderEvent)
}

// Service содержит бизнес-логику координатора обменов.
type Service struct {
	repo               Repository
	notifier           Notifier
	admins             map[int64]struct{}
	requireAttribution bool
}

// NewService создаёт сервис с указанным репозиторием, диспетчером уведомлений
// и списком привилегированных админов.
func NewService(repo Repository, notifier Notifier, adminIDs []int64, requireAttribution bool) *Service {
	admins := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}

	return &Service{
		repo:               repo,
		notifier:           notifier,
		admins:             admins,
		requireAttribution: requireAttribution,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// IsAdmin сообщает, входит ли участник в привилегированный набор админов.
func (s *Service) IsAdmin(id int64) bool {
	_, ok := s.admins[id]
	return ok
}

// ResolveAttribution разрешает атрибуционный код в идентификатор админа.
// Код, выданный админом, разрешается напрямую; инвайт воркера — в один переход
// через привязку выдавшего воркера. Цепочки глубже одного перехода не
// прослеживаются, поэтому циклы в графе кодов невозможны. Метод только читает,
// ничего не изменяя.
func (s *Service) ResolveAttribution(ctx context.Context, code string) (int64, error) {
	rec, err := s.repo.GetCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrCodeNotFound) {
			return 0, ErrUnresolvable
		}
		return 0, err
	}

	if rec.AdminID != nil {
		return *rec.AdminID, nil
	}

	if rec.OriginWorker != nil {
		origin, err := s.repo.GetWorker(ctx, *rec.OriginWorker)
		if err != nil {
			if errors.Is(err, repository.ErrWorkerNotFound) {
				return 0, ErrUnresolvable
			}
			return 0, err
		}
		if origin.BoundAdmin == nil {
			return 0, ErrUnresolvable
		}
		return *origin.BoundAdmin, nil
	}

	return 0, ErrUnresolvable
}

// BindWorkerAdmin сохраняет привязку воркера к админу. Повтор с тем же
// админом идемпотентен; другой админ отклоняется.
func (s *Service) BindWorkerAdmin(ctx context.Context, workerID, adminID int64) error {
	return s.repo.BindWorkerAdmin(ctx, workerID, adminID, nil)
}

// RegisterWorker регистрирует воркера в статусе pending и привязывает его к
// админу по атрибуционному коду. При неразрешимой атрибуции воркер остаётся
// без привязки; если атрибуция обязательна, регистрация отклоняется.
func (s *Service) RegisterWorker(ctx context.Context, workerID int64, username, code string) (*model.Worker, error) {
	err := s.repo.CreateWorker(ctx, workerID, username, model.WorkerStatusPending)
	if err != nil && !errors.Is(err, repository.ErrWorkerExists) {
		return nil, err
	}

	if code == "" {
		if s.requireAttribution {
			return nil, ErrUnresolvable
		}
		return s.repo.GetWorker(ctx, workerID)
	}

	adminID, err := s.ResolveAttribution(ctx, code)
	if err != nil {
		if errors.Is(err, ErrUnresolvable) && !s.requireAttribution {
			return s.repo.GetWorker(ctx, workerID)
		}
		return nil, err
	}

	if err := s.repo.BindWorkerAdmin(ctx, workerID, adminID, &code); err != nil {
		return nil, err
	}

	return s.repo.GetWorker(ctx, workerID)
}

// ApproveWorker переводит воркера в статус active. Доступно только админам.
func (s *Service) ApproveWorker(ctx context.Context, adminID, workerID int64) error {
	if !s.IsAdmin(adminID) {
		return ErrNotAdmin
	}
	return s.repo.UpdateWorkerStatus(ctx, workerID, model.WorkerStatusActive)
}

// BanWorker блокирует воркера. Доступно только админам.
func (s *Service) BanWorker(ctx context.Context, adminID, workerID int64) error {
	if !s.IsAdmin(adminID) {
		return ErrNotAdmin
	}
	return s.repo.UpdateWorkerStatus(ctx, workerID, model.WorkerStatusBanned)
}

const codeAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func randomCode() (string, error) {
	buf := make([]byte, validation.CodeLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
		if err != nil {
			return "", fmt.Errorf("random code: %w", err)
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// GenerateAdminCode выпускает атрибуционный код от имени админа. Все воркеры,
// пришедшие по коду, будут привязаны к этому админу. Коды многоразовые.
func (s *Service) GenerateAdminCode(ctx context.Context, adminID int64) (string, error) {
	if !s.IsAdmin(adminID) {
		return "", ErrNotAdmin
	}
	return s.issueCode(ctx, &adminID, nil)
}

// GenerateWorkerInvite выпускает инвайт от имени воркера. Инвайт разрешается
// в админа выдавшего воркера на момент использования.
func (s *Service) GenerateWorkerInvite(ctx context.Context, workerID int64) (string, error) {
	w, err := s.repo.GetWorker(ctx, workerID)
	if err != nil {
		return "", err
	}
	if w.Status != model.WorkerStatusActive {
		return "", ErrWorkerNotActive
	}
	return s.issueCode(ctx, nil, &workerID)
}

func (s *Service) issueCode(ctx context.Context, adminID, originWorker *int64) (string, error) {
	// Коллизия случайного кода крайне маловероятна, но повторяем пару раз.
	for attempt := 0; attempt < 3; attempt++ {
		code, err := randomCode()
		if err != nil {
			return "", err
		}
		err = s.repo.PutCode(ctx, code, adminID, originWorker)
		if err == nil {
			return code, nil
		}
		if !errors.Is(err, repository.ErrCodeExists) {
			return "", err
		}
	}
	return "", repository.ErrCodeExists
}

// CreateOrder создаёт заказ на обмен от имени воркера. Воркер должен быть
// одобрен и привязан к админу; второй открытый заказ отклоняется хранилищем.
func (s *Service) CreateOrder(ctx context.Context, workerID int64, amount float64) (*model.Order, error) {
	w, err := s.repo.GetWorker(ctx, workerID)
	if err != nil {
		return nil, err
	}
	if w.Status != model.WorkerStatusActive {
		return nil, ErrWorkerNotActive
	}
	if w.BoundAdmin == nil {
		return nil, repository.ErrWorkerUnbound
	}

	order, err := s.repo.CreateOrder(ctx, workerID, amount)
	if err != nil {
		return nil, err
	}

	s.dispatch(ctx, model.EventOrderCreated, order)
	return order, nil
}

// ClaimOrder передаёт заказ админу. Для заказа с привязкой клейм доступен
// только закреплённому админу; из конкурирующих вызовов выигрывает ровно один.
func (s *Service) ClaimOrder(ctx context.Context, orderID, adminID int64) (*model.Order, error) {
	if !s.IsAdmin(adminID) {
		return nil, ErrNotAdmin
	}

	order, err := s.repo.ClaimOrder(ctx, orderID, adminID)
	if err != nil {
		return nil, err
	}

	s.dispatch(ctx, model.EventOrderClaimed, order)
	return order, nil
}

// BeginService переводит взятый заказ в работу.
func (s *Service) BeginService(ctx context.Context, orderID, adminID int64) (*model.Order, error) {
	order, err := s.repo.BeginService(ctx, orderID, adminID)
	if err != nil {
		return nil, err
	}

	s.dispatch(ctx, model.EventOrderInProgress, order)
	return order, nil
}

// MarkTransactionSent отмечает отправку транзакции по заказу.
func (s *Service) MarkTransactionSent(ctx context.Context, orderID, adminID int64) (*model.Order, error) {
	order, err := s.repo.MarkTransactionSent(ctx, orderID, adminID)
	if err != nil {
		return nil, err
	}

	s.dispatch(ctx, model.EventTransactionSent, order)
	return order, nil
}

// CompleteOrder завершает заказ и снимает блокировку новых заказов воркера.
func (s *Service) CompleteOrder(ctx context.Context, orderID, adminID int64) (*model.Order, error) {
	order, err := s.repo.CompleteOrder(ctx, orderID, adminID)
	if err != nil {
		return nil, err
	}

	s.dispatch(ctx, model.EventOrderCompleted, order)
	return order, nil
}

// CancelOrder отменяет заказ из любого открытого статуса.
func (s *Service) CancelOrder(ctx context.Context, orderID, actorID int64) (*model.Order, error) {
	order, err := s.repo.CancelOrder(ctx, orderID, actorID)
	if err != nil {
		return nil, err
	}

	s.dispatch(ctx, model.EventOrderCancelled, order)
	return order, nil
}

// GetOrder возвращает заказ по идентификатору.
func (s *Service) GetOrder(ctx context.Context, orderID int64) (*model.Order, error) {
	return s.repo.GetOrder(ctx, orderID)
}

// GetOpenOrderForWorker возвращает открытый заказ воркера либо nil.
func (s *Service) GetOpenOrderForWorker(ctx context.Context, workerID int64) (*model.Order, error) {
	order, err := s.repo.GetOpenOrderByWorker(ctx, workerID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return order, nil
}

// ListOrdersByWorker возвращает заказы воркера.
func (s *Service) ListOrdersByWorker(ctx context.Context, workerID int64) ([]model.Order, error) {
	return s.repo.ListOrdersByWorker(ctx, workerID)
}

// GetWorkerStats возвращает отображаемую статистику воркера.
func (s *Service) GetWorkerStats(ctx context.Context, workerID int64) (*model.WorkerStats, error) {
	w, err := s.repo.GetWorker(ctx, workerID)
	if err != nil {
		return nil, err
	}
	return &model.WorkerStats{
		ProfitTotal: w.ProfitTotal,
		ProfitWeek:  w.ProfitWeek,
		Rank:        w.Rank,
	}, nil
}

// GetTopWeek возвращает недельный топ воркеров.
func (s *Service) GetTopWeek(ctx context.Context) ([]model.TopEntry, error) {
	return s.repo.GetTopWeek(ctx, 10)
}

// GetAdminWorkerStats возвращает сводку по воркерам админа.
func (s *Service) GetAdminWorkerStats(ctx context.Context, adminID int64) (*model.AdminWorkerStats, error) {
	if !s.IsAdmin(adminID) {
		return nil, ErrNotAdmin
	}
	return s.repo.GetAdminWorkerStats(ctx, adminID)
}

// UpdateWorkerProfit обновляет профит воркера. Доступно только админам.
func (s *Service) UpdateWorkerProfit(ctx context.Context, adminID, workerID int64, profitTotal, profitWeek *float64) error {
	if !s.IsAdmin(adminID) {
		return ErrNotAdmin
	}
	return s.repo.UpdateWorkerProfit(ctx, workerID, profitTotal, profitWeek)
}

// dispatch отправляет событие о зафиксированном переходе. Отправка
// асинхронная и не влияет на результат операции.
func (s *Service) dispatch(ctx context.Context, kind model.EventKind, order *model.Order) {
	if s.notifier == nil || order == nil {
		return
	}

	admin := order.ClaimingAdmin
	if admin == nil {
		admin = order.BoundAdmin
	}

	event := model.OrderEvent{
		Kind:    kind,
		OrderID: order.ID,
		Worker:  order.WorkerID,
		Admin:   admin,
		Amount:  order.Amount,
		Status:  string(order.Status),
	}

	go s.notifier.Dispatch(context.WithoutCancel(ctx), event)
}
