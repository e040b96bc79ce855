// Package model содержит доменные сущности координатора обменов.
package model

import "time"

// WorkerStatus описывает статус воркера в системе.
type WorkerStatus string

const (
	WorkerStatusNew     WorkerStatus = "new"
	WorkerStatusPending WorkerStatus = "pending"
	WorkerStatusActive  WorkerStatus = "active"
	WorkerStatusBanned  WorkerStatus = "banned"
)

// Worker представляет воркера — инициатора заказов на обмен.
// BoundAdmin устанавливается атрибуцией ровно один раз и далее не меняется.
type Worker struct {
	TelegramID       int64
	Username         string
	Status           WorkerStatus
	BoundAdmin       *int64
	AttributionCode  *string
	RegistrationDate time.Time

	ProfitTotal float64
	ProfitWeek  float64
	Rank        string
}

// CodeRecord описывает атрибуционный код и его эмитента.
// Для кода, выданного админом, заполнен AdminID; для инвайта воркера —
// OriginWorker, и привязка разрешается в один переход через его собственную.
type CodeRecord struct {
	Code         string
	AdminID      *int64
	OriginWorker *int64
	CreatedAt    time.Time
}

// OrderStatus описывает статус заказа на обмен.
type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusClaimed         OrderStatus = "claimed"
	OrderStatusInProgress      OrderStatus = "in_progress"
	OrderStatusTransactionSent OrderStatus = "transaction_sent"
	OrderStatusCompleted       OrderStatus = "completed"
	OrderStatusCancelled       OrderStatus = "cancelled"
)

// OpenStatuses возвращает набор статусов, в которых заказ считается открытым.
func OpenStatuses() []OrderStatus {
	return []OrderStatus{
		OrderStatusPending,
		OrderStatusClaimed,
		OrderStatusInProgress,
		OrderStatusTransactionSent,
	}
}

// IsOpen сообщает, находится ли статус в открытом наборе.
func (s OrderStatus) IsOpen() bool {
	switch s {
	case OrderStatusPending, OrderStatusClaimed, OrderStatusInProgress, OrderStatusTransactionSent:
		return true
	}
	return false
}

// IsTerminal сообщает, является ли статус терминальным.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// CanTransition проверяет допустимость перехода статуса.
// Переходы однонаправленные: pending → claimed → in_progress →
// transaction_sent → completed; cancelled достижим из любого открытого статуса.
// Переходы в completed из промежуточных статусов допускаются для закрытия
// заказа оператором.
func CanTransition(from, to OrderStatus) bool {
	if to == OrderStatusCancelled {
		return from.IsOpen()
	}
	if to == OrderStatusCompleted {
		return from.IsOpen()
	}

	switch from {
	case OrderStatusPending:
		return to == OrderStatusClaimed
	case OrderStatusClaimed:
		return to == OrderStatusInProgress
	case OrderStatusInProgress:
		return to == OrderStatusTransactionSent
	}

	return false
}

// Order описывает заказ на обмен и его жизненный цикл.
// ClaimingAdmin устанавливается ровно один раз при переходе pending → claimed.
type Order struct {
	ID            int64
	WorkerID      int64
	Amount        float64
	Status        OrderStatus
	BoundAdmin    *int64
	ClaimingAdmin *int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// EventKind описывает тип события жизненного цикла заказа.
type EventKind string

const (
	EventOrderCreated    EventKind = "order_created"
	EventOrderClaimed    EventKind = "order_claimed"
	EventOrderInProgress EventKind = "order_in_progress"
	EventTransactionSent EventKind = "transaction_sent"
	EventOrderCompleted  EventKind = "order_completed"
	EventOrderCancelled  EventKind = "order_cancelled"
)

// OrderEvent описывает уведомление о зафиксированном переходе заказа.
// Формируется только из уже закоммиченного состояния.
type OrderEvent struct {
	Kind    EventKind `json:"kind"`
	OrderID int64     `json:"order_id"`
	Worker  int64     `json:"worker_id"`
	Admin   *int64    `json:"admin_id,omitempty"`
	Amount  float64   `json:"amount"`
	Status  string    `json:"status"`
}

// WorkerStats содержит отображаемую статистику воркера.
type WorkerStats struct {
	ProfitTotal float64 `json:"profit_total"`
	ProfitWeek  float64 `json:"profit_week"`
	Rank        string  `json:"rank"`
}

// TopEntry описывает строку недельного топа воркеров.
type TopEntry struct {
	Username   string  `json:"username"`
	ProfitWeek float64 `json:"profit_week"`
}

// AdminWorkerStats содержит сводку по воркерам, привязанным к админу.
type AdminWorkerStats struct {
	TotalWorkers int        `json:"total_workers"`
	TotalProfit  float64    `json:"total_profit"`
	WeekProfit   float64    `json:"week_profit"`
	Workers      []TopEntry `json:"workers"`
}
