package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"citywatch.dev/sentinel/pkg/metrics"
)

// RouterConfig holds everything needed to assemble the API router.
type RouterConfig struct {
	Handler    *Handler
	JWTService *JWTService
	Logger     *slog.Logger
	Metrics    *metrics.APIMetrics
}

// NewRouter assembles the chi router. Alert and user routes require a
// bearer token; the notifications route authenticates with its own API
// key; zone resolution and health are open.
func NewRouter(config RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestLogger(config.Logger))
	r.Use(Recoverer(config.Logger))
	if config.Metrics != nil {
		r.Use(Metrics(config.Metrics))
	}

	h := config.Handler

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(JWTAuth(config.JWTService))

			r.Get("/alerts", h.ListAlerts)
			r.Post("/alerts", h.CreateAlert)
			r.Get("/alerts/{id}", h.GetAlert)
			r.Patch("/alerts/{id}/status", h.UpdateAlertStatus)
			r.Get("/user/city", h.UserCity)
		})

		r.Get("/zones/default", h.DefaultZone)
		r.Post("/notifications", h.SendNotification)
	})

	r.Get("/health", h.Health)

	return r
}
