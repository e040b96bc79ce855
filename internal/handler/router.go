package handler

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/exchange-coordinator/internal/middleware"
)

// NewRouter создаёт маршрутизатор API координатора обменов.
func NewRouter(h *Handler, logger *zap.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger(logger))
	r.Use(middleware.GzipMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Post("/worker/register", h.RegisterWorker)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Post("/worker/approve", h.ApproveWorker)
			r.Post("/worker/ban", h.BanWorker)

			r.Post("/attribution/resolve", h.ResolveAttribution)
			r.Post("/attribution/codes", h.GenerateCode)

			r.Post("/orders", h.CreateOrder)
			r.Get("/orders", h.ListOrders)
			r.Get("/orders/open", h.GetOpenOrder)
			r.Get("/orders/{orderID}", h.GetOrder)
			r.Post("/orders/{orderID}/claim", h.ClaimOrder)
			r.Post("/orders/{orderID}/start", h.BeginService)
			r.Post("/orders/{orderID}/transaction", h.MarkTransactionSent)
			r.Post("/orders/{orderID}/complete", h.CompleteOrder)
			r.Post("/orders/{orderID}/cancel", h.CancelOrder)

			r.Get("/stats/me", h.GetWorkerStats)
			r.Get("/stats/top", h.GetTopWeek)
			r.Get("/stats/workers", h.GetAdminWorkerStats)
			r.Post("/stats/profit", h.UpdateWorkerProfit)

			r.Get("/wallets", h.GetWallets)
		})
	})

	return r
}
