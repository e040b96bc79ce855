// Package handler содержит HTTP-обработчики API координатора обменов.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/exchange-coordinator/internal/middleware"
	"github.com/mmeshcher/exchange-coordinator/internal/model"
	"github.com/mmeshcher/exchange-coordinator/internal/repository"
	"github.com/mmeshcher/exchange-coordinator/internal/service"
	"github.com/mmeshcher/exchange-coordinator/internal/validation"
	"github.com/mmeshcher/exchange-coordinator/internal/wallet"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	IsAdmin(id int64) bool
	RegisterWorker(ctx context.Context, workerID int64, username, code string) (*model.Worker, error)
	ApproveWorker(ctx context.Context, adminID, workerID int64) error
	BanWorker(ctx context.Context, adminID, workerID int64) error
	ResolveAttribution(ctx context.Context, code string) (int64, error)
	GenerateAdminCode(ctx context.Context, adminID int64) (string, error)
	GenerateWorkerInvite(ctx context.Context, workerID int64) (string, error)
	CreateOrder(ctx context.Context, workerID int64, amount float64) (*model.Order, error)
	ClaimOrder(ctx context.Context, orderID, adminID int64) (*model.Order, error)
	BeginService(ctx context.Context, orderID, adminID int64) (*model.Order, error)
	MarkTransactionSent(ctx context.Context, orderID, adminID int64) (*model.Order, error)
	CompleteOrder(ctx context.Context, orderID, adminID int64) (*model.Order, error)
	CancelOrder(ctx context.Context, orderID, actorID int64) (*model.Order, error)
	GetOrder(ctx context.Context, orderID int64) (*model.Order, error)
	GetOpenOrderForWorker(ctx context.Context, workerID int64) (*model.Order, error)
	ListOrdersByWorker(ctx context.Context, workerID int64) ([]model.Order, error)
	GetWorkerStats(ctx context.Context, workerID int64) (*model.WorkerStats, error)
	GetTopWeek(ctx context.Context) ([]model.TopEntry, error)
	GetAdminWorkerStats(ctx context.Context, adminID int64) (*model.AdminWorkerStats, error)
	UpdateWorkerProfit(ctx context.Context, adminID, workerID int64, profitTotal, profitWeek *float64) error
}

// Handler реализует HTTP-обработчики API координатора обменов.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
	walletIssuer   *wallet.Issuer
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware, issuer *wallet.Issuer) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
		walletIssuer:   issuer,
	}
}

// rejection сопоставляет ожидаемый отказ операции с HTTP-статусом и
// отдельным сообщением. Отказы не являются сбоями и не логируются как ошибки.
type rejection struct {
	err     error
	status  int
	message string
}

var rejections = []rejection{
	{repository.ErrOrderNotFound, http.StatusNotFound, "order not found"},
	{repository.ErrWorkerNotFound, http.StatusNotFound, "worker not found"},
	{repository.ErrCodeNotFound, http.StatusNotFound, "attribution code not found"},
	{repository.ErrOrderAlreadyOpen, http.StatusConflict, "worker already has an open order"},
	{repository.ErrAlreadyClaimed, http.StatusConflict, "order already claimed"},
	{repository.ErrAlreadyBound, http.StatusConflict, "worker already bound to another admin"},
	{repository.ErrCodeExists, http.StatusConflict, "attribution code already exists"},
	{repository.ErrWorkerExists, http.StatusConflict, "worker already registered"},
	{repository.ErrInvalidTransition, http.StatusConflict, "invalid order status transition"},
	{repository.ErrNotBoundAdmin, http.StatusForbidden, "order is bound to another admin"},
	{repository.ErrNotClaimingAdmin, http.StatusForbidden, "only the claiming admin can perform this action"},
	{repository.ErrUnauthorizedActor, http.StatusForbidden, "actor is not allowed to manage this order"},
	{service.ErrNotAdmin, http.StatusForbidden, "admin rights required"},
	{repository.ErrWorkerUnbound, http.StatusUnprocessableEntity, "worker has no bound admin"},
	{service.ErrUnresolvable, http.StatusUnprocessableEntity, "no admin available for this attribution code"},
	{service.ErrWorkerNotActive, http.StatusUnprocessableEntity, "worker is not approved"},
}

// writeRejection возвращает true, если ошибка является ожидаемым отказом и
// ответ уже записан. Инфраструктурные сбои остаются вызывающему.
func writeRejection(w http.ResponseWriter, err error) bool {
	for _, r := range rejections {
		if errors.Is(err, r.err) {
			http.Error(w, r.message, r.status)
			return true
		}
	}
	return false
}

func (h *Handler) writeError(w http.ResponseWriter, err error, op string, fields ...zap.Field) {
	if writeRejection(w, err) {
		return
	}
	h.logger.Error(op, append(fields, zap.Error(err))...)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

type workerResponse struct {
	TelegramID   int64  `json:"telegram_id"`
	Username     string `json:"username"`
	Status       string `json:"status"`
	BoundAdmin   *int64 `json:"bound_admin,omitempty"`
	RegisteredAt string `json:"registered_at"`
}

func toWorkerResponse(w *model.Worker) workerResponse {
	return workerResponse{
		TelegramID:   w.TelegramID,
		Username:     w.Username,
		Status:       string(w.Status),
		BoundAdmin:   w.BoundAdmin,
		RegisteredAt: w.RegistrationDate.Format(time.RFC3339),
	}
}

type orderResponse struct {
	ID            int64   `json:"id"`
	WorkerID      int64   `json:"worker_id"`
	Amount        float64 `json:"amount"`
	Status        string  `json:"status"`
	BoundAdmin    *int64  `json:"bound_admin,omitempty"`
	ClaimingAdmin *int64  `json:"claiming_admin,omitempty"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
}

func toOrderResponse(o *model.Order) orderResponse {
	return orderResponse{
		ID:            o.ID,
		WorkerID:      o.WorkerID,
		Amount:        o.Amount,
		Status:        string(o.Status),
		BoundAdmin:    o.BoundAdmin,
		ClaimingAdmin: o.ClaimingAdmin,
		CreatedAt:     o.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     o.UpdatedAt.Format(time.RFC3339),
	}
}

type registerRequest struct {
	WorkerID int64  `json:"worker_id"`
	Username string `json:"username"`
	Code     string `json:"code"`
}

// RegisterWorker регистрирует воркера и привязывает его к админу по
// атрибуционному коду.
func (h *Handler) RegisterWorker(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.WorkerID == 0 {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if req.Code != "" && !validation.IsValidCode(req.Code) {
		http.Error(w, "invalid attribution code format", http.StatusUnprocessableEntity)
		return
	}

	worker, err := h.service.RegisterWorker(r.Context(), req.WorkerID, req.Username, req.Code)
	if err != nil {
		h.writeError(w, err, "register worker", zap.Int64("workerID", req.WorkerID))
		return
	}

	h.authMiddleware.SetAuthCookie(w, worker.TelegramID)
	writeJSON(w, toWorkerResponse(worker))
}

type workerActionRequest struct {
	WorkerID int64 `json:"worker_id"`
}

// ApproveWorker одобряет воркера. Доступно только админам.
func (h *Handler) ApproveWorker(w http.ResponseWriter, r *http.Request) {
	h.workerStatusAction(w, r, h.service.ApproveWorker, "approve worker")
}

// BanWorker блокирует воркера. Доступно только админам.
func (h *Handler) BanWorker(w http.ResponseWriter, r *http.Request) {
	h.workerStatusAction(w, r, h.service.BanWorker, "ban worker")
}

func (h *Handler) workerStatusAction(w http.ResponseWriter, r *http.Request, action func(context.Context, int64, int64) error, op string) {
	actorID, ok := middleware.GetActorIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req workerActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.WorkerID == 0 {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := action(r.Context(), actorID, req.WorkerID); err != nil {
		h.writeError(w, err, op, zap.Int64("workerID", req.WorkerID))
		return
	}

	w.WriteHeader(http.StatusOK)
}

type resolveRequest struct {
	Code string `json:"code"`
}

type resolveResponse struct {
	AdminID int64 `json:"admin_id"`
}

// ResolveAttribution разрешает атрибуционный код в идентификатор админа.
func (h *Handler) ResolveAttribution(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if !validation.IsValidCode(req.Code) {
		http.Error(w, "invalid attribution code format", http.StatusUnprocessableEntity)
		return
	}

	adminID, err := h.service.ResolveAttribution(r.Context(), req.Code)
	if err != nil {
		h.writeError(w, err, "resolve attribution", zap.String("code", req.Code))
		return
	}

	writeJSON(w, resolveResponse{AdminID: adminID})
}

type codeResponse struct {
	Code string `json:"code"`
}

// GenerateCode выпускает атрибуционный код: от имени админа — прямой код,
// от имени воркера — инвайт с разрешением через его привязку.
func (h *Handler) GenerateCode(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetActorIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var (
		code string
		err  error
	)
	if h.service.IsAdmin(actorID) {
		code, err = h.service.GenerateAdminCode(r.Context(), actorID)
	} else {
		code, err = h.service.GenerateWorkerInvite(r.Context(), actorID)
	}
	if err != nil {
		h.writeError(w, err, "generate code", zap.Int64("actorID", actorID))
		return
	}

	writeJSON(w, codeResponse{Code: code})
}

type createOrderRequest struct {
	Amount float64 `json:"amount"`
}

// CreateOrder создаёт заказ на обмен от имени текущего воркера.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	workerID, ok := middleware.GetActorIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if !validation.IsValidAmount(req.Amount) {
		http.Error(w, "amount must be positive and not exceed 100 BTC", http.StatusUnprocessableEntity)
		return
	}

	order, err := h.service.CreateOrder(r.Context(), workerID, req.Amount)
	if err != nil {
		h.writeError(w, err, "create order", zap.Int64("workerID", workerID))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(toOrderResponse(order))
}

func orderIDFromURL(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// ClaimOrder передаёт заказ текущему админу.
func (h *Handler) ClaimOrder(w http.ResponseWriter, r *http.Request) {
	h.orderTransition(w, r, h.service.ClaimOrder, "claim order")
}

// BeginService переводит заказ в работу.
func (h *Handler) BeginService(w http.ResponseWriter, r *http.Request) {
	h.orderTransition(w, r, h.service.BeginService, "begin service")
}

// MarkTransactionSent отмечает отправку транзакции.
func (h *Handler) MarkTransactionSent(w http.ResponseWriter, r *http.Request) {
	h.orderTransition(w, r, h.service.MarkTransactionSent, "mark transaction sent")
}

// CompleteOrder завершает заказ.
func (h *Handler) CompleteOrder(w http.ResponseWriter, r *http.Request) {
	h.orderTransition(w, r, h.service.CompleteOrder, "complete order")
}

// CancelOrder отменяет заказ.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	h.orderTransition(w, r, h.service.CancelOrder, "cancel order")
}

func (h *Handler) orderTransition(w http.ResponseWriter, r *http.Request, op func(context.Context, int64, int64) (*model.Order, error), opName string) {
	actorID, ok := middleware.GetActorIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	orderID, ok := orderIDFromURL(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}

	order, err := op(r.Context(), orderID, actorID)
	if err != nil {
		h.writeError(w, err, opName, zap.Int64("orderID", orderID), zap.Int64("actorID", actorID))
		return
	}

	writeJSON(w, toOrderResponse(order))
}

// GetOrder возвращает заказ по идентификатору.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := orderIDFromURL(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}

	order, err := h.service.GetOrder(r.Context(), orderID)
	if err != nil {
		h.writeError(w, err, "get order", zap.Int64("orderID", orderID))
		return
	}

	writeJSON(w, toOrderResponse(order))
}

// GetOpenOrder возвращает открытый заказ текущего воркера либо 204.
func (h *Handler) GetOpenOrder(w http.ResponseWriter, r *http.Request) {
	workerID, ok := middleware.GetActorIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	order, err := h.service.GetOpenOrderForWorker(r.Context(), workerID)
	if err != nil {
		h.writeError(w, err, "get open order", zap.Int64("workerID", workerID))
		return
	}

	if order == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, toOrderResponse(order))
}

// ListOrders возвращает заказы текущего воркера.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	workerID, ok := middleware.GetActorIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	orders, err := h.service.ListOrdersByWorker(r.Context(), workerID)
	if err != nil {
		h.writeError(w, err, "list orders", zap.Int64("workerID", workerID))
		return
	}

	if len(orders) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for i := range orders {
		resp = append(resp, toOrderResponse(&orders[i]))
	}

	writeJSON(w, resp)
}

// GetWorkerStats возвращает статистику текущего воркера.
func (h *Handler) GetWorkerStats(w http.ResponseWriter, r *http.Request) {
	workerID, ok := middleware.GetActorIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	stats, err := h.service.GetWorkerStats(r.Context(), workerID)
	if err != nil {
		h.writeError(w, err, "get worker stats", zap.Int64("workerID", workerID))
		return
	}

	writeJSON(w, stats)
}

// GetTopWeek возвращает недельный топ воркеров.
func (h *Handler) GetTopWeek(w http.ResponseWriter, r *http.Request) {
	top, err := h.service.GetTopWeek(r.Context())
	if err != nil {
		h.writeError(w, err, "get top week")
		return
	}

	if len(top) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, top)
}

// GetAdminWorkerStats возвращает сводку по воркерам текущего админа.
func (h *Handler) GetAdminWorkerStats(w http.ResponseWriter, r *http.Request) {
	adminID, ok := middleware.GetActorIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	stats, err := h.service.GetAdminWorkerStats(r.Context(), adminID)
	if err != nil {
		h.writeError(w, err, "get admin worker stats", zap.Int64("adminID", adminID))
		return
	}

	writeJSON(w, stats)
}

type profitRequest struct {
	WorkerID    int64    `json:"worker_id"`
	ProfitTotal *float64 `json:"profit_total,omitempty"`
	ProfitWeek  *float64 `json:"profit_week,omitempty"`
}

// UpdateWorkerProfit обновляет профит воркера. Доступно только админам.
func (h *Handler) UpdateWorkerProfit(w http.ResponseWriter, r *http.Request) {
	adminID, ok := middleware.GetActorIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req profitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.WorkerID == 0 {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.UpdateWorkerProfit(r.Context(), adminID, req.WorkerID, req.ProfitTotal, req.ProfitWeek); err != nil {
		h.writeError(w, err, "update worker profit", zap.Int64("workerID", req.WorkerID))
		return
	}

	w.WriteHeader(http.StatusOK)
}

// GetWallets выпускает отображаемые адреса кошельков для текущего участника.
func (h *Handler) GetWallets(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetActorIDFromContext(r.Context()); !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	pairs, err := h.walletIssuer.IssueSet(3)
	if err != nil {
		h.logger.Error("issue wallets", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, pairs)
}
