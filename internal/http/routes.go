package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/panchang-bot/internal/observability"
)

// NewRouter wires the webhook, health and metrics endpoints. limiter may be nil.
func NewRouter(h *Handler, logger *zap.Logger, limiter *rate.Limiter, turnTimeout time.Duration) *mux.Router {
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(RecoverMiddleware)
	router.Use(MetricsMiddleware)
	router.HandleFunc("/health", h.GetHealth).Methods(http.MethodGet)
	router.Handle("/metrics", observability.MetricsHandler()).Methods(http.MethodGet)

	webhook := router.PathPrefix("/webhook").Subrouter()
	webhook.Use(RateLimitMiddleware(limiter))
	webhook.Use(TurnTimeoutMiddleware(turnTimeout))
	webhook.HandleFunc("/{token}", h.HandleWebhook).Methods(http.MethodPost)
	return router
}
