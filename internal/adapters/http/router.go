package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/viralforge/mesh/services/commerce/M34-flash-sale-service/internal/application"
)

// Handler is the HTTP adapter entrypoint for flash-sale use-cases.
// Keeping only the application dependency here preserves clean adapter
// boundaries.
type Handler struct {
	service *application.Service
}

// NewHandler constructs an HTTP handler bound to the application service.
func NewHandler(service *application.Service) *Handler {
	return &Handler{service: service}
}

// NewRouter registers flash-sale HTTP routes and the middleware stack.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", handler.healthz)
	r.Get("/readyz", handler.readyz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/sale/v1", func(r chi.Router) {
		r.Post("/reservations", handler.reserve)
		r.Post("/reservations/{reservation_id}/confirm", handler.confirm)
		r.Post("/reservations/{reservation_id}/release", handler.release)
		r.Get("/campaigns/{campaign_id}", handler.getCampaign)
		r.Get("/campaigns/{campaign_id}/products/{product_id}/stock", handler.availableStock)
	})

	return r
}
