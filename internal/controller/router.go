package controller

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/cassiomorais/leadpay/internal/application/checkout"
	"github.com/cassiomorais/leadpay/internal/application/status"
	"github.com/cassiomorais/leadpay/internal/confirm"
	"github.com/cassiomorais/leadpay/internal/infrastructure/config"
	"github.com/cassiomorais/leadpay/internal/infrastructure/observability"
	customMW "github.com/cassiomorais/leadpay/internal/middleware"
)

type RouterDeps struct {
	Pool          *pgxpool.Pool
	RedisClient   *redis.Client
	CreateAttempt *checkout.CreateAttemptUseCase
	ResolveStatus *status.ResolveStatusUseCase
	Pollers       *confirm.Registry
	Metrics       *observability.Metrics
	ServerConfig  config.ServerConfig
}

func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(customMW.Tracing())
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(customMW.SecurityHeaders())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.ServerConfig.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Context-ID"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: deps.ServerConfig.CORS.AllowCredentials,
		MaxAge:           300,
	}))
	r.Use(customMW.Metrics(deps.Metrics))

	healthH := NewHealthController(deps.Pool, deps.RedisClient)
	checkoutH := NewCheckoutController(deps.CreateAttempt, deps.Pollers)
	statusH := NewStatusController(deps.ResolveStatus, deps.Pollers)

	r.Get("/health", healthH.Health)
	r.Get("/health/live", healthH.Liveness)
	r.Get("/health/ready", healthH.Readiness)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(customMW.RateLimit(deps.ServerConfig.RateLimitPerMin))

		// Checkout
		r.Post("/checkout", checkoutH.Checkout)
		r.Post("/checkout/abandon", checkoutH.Abandon)

		// Status
		r.Get("/leads/{id}/status", statusH.GetStatus)
		r.Get("/leads/{id}/poll", statusH.Poll)
	})

	return r
}
