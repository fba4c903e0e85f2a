package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/cassiomorais/leadpay/internal/application/checkout"
	"github.com/cassiomorais/leadpay/internal/application/status"
	"github.com/cassiomorais/leadpay/internal/bootstrap"
	"github.com/cassiomorais/leadpay/internal/confirm"
	"github.com/cassiomorais/leadpay/internal/controller"
	"github.com/cassiomorais/leadpay/internal/domain/attempt"
	"github.com/cassiomorais/leadpay/internal/domain/pricing"
	"github.com/cassiomorais/leadpay/internal/gateway"
	"github.com/cassiomorais/leadpay/internal/infrastructure/config"
	"github.com/cassiomorais/leadpay/internal/infrastructure/fx"
	infraRedis "github.com/cassiomorais/leadpay/internal/infrastructure/redis"
	"github.com/cassiomorais/leadpay/internal/repository/postgres"
	"github.com/cassiomorais/leadpay/pkg/retry"
)

func main() {
	ctx := context.Background()

	app, err := bootstrap.New(ctx, "leadpay-api", "leadpay")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	cfg := app.Config

	// --- Repositories ---
	leadRepo := postgres.NewLeadRepository(app.Pool)
	attemptRepo := postgres.NewAttemptRepository(app.Pool)
	trackerStore := infraRedis.NewTrackerStore(app.Redis, cfg.Poller.TrackerTTL)

	// --- Gateways ---
	gateways := buildGateways(cfg)

	// --- Application services ---
	fxClient := fx.NewClient(
		cfg.FX.BaseURL,
		cfg.FX.FallbackRate,
		cfg.Pricing.FXMargin,
		retry.Policy{MaxAttempts: cfg.FX.MaxAttempts, Interval: cfg.FX.RetryDelay},
		app.Logger,
	)
	events := infraRedis.NewStreamProducer(app.Redis)

	createAttemptUC := checkout.NewCreateAttemptUseCase(
		checkout.Config{
			Pricing: pricing.Config{
				CardFeePct:        cfg.Pricing.CardFeePct,
				CardFeeFixedCents: cfg.Pricing.CardFeeFixedCents,
				FXMargin:          cfg.Pricing.FXMargin,
				PixFeePct:         cfg.Pricing.PixFeePct,
			},
			NetPartCents:   cfg.Pricing.NetPartCents,
			ZelleRecipient: cfg.Pricing.ZelleRecipient,
		},
		leadRepo, attemptRepo, trackerStore, gateways, fxClient, events, app.Logger,
	)
	resolveStatusUC := status.NewResolveStatusUseCase(leadRepo, attemptRepo)

	pollers := confirm.NewRegistry(confirm.Config{
		Interval:    cfg.Poller.Interval,
		MaxAttempts: cfg.Poller.MaxAttempts,
		SoftRetries: cfg.Poller.SoftRetries,
		TrackerTTL:  cfg.Poller.TrackerTTL,
	}, trackerStore, resolveStatusUC, app.Logger)
	defer pollers.StopAll()

	// --- Build router ---
	router := controller.NewRouter(controller.RouterDeps{
		Pool:          app.Pool,
		RedisClient:   app.Redis,
		CreateAttempt: createAttemptUC,
		ResolveStatus: resolveStatusUC,
		Pollers:       pollers,
		Metrics:       app.Metrics,
		ServerConfig:  cfg.Server,
	})

	// --- HTTP server ---
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		app.Logger.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.Logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	app.Logger.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.Logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	app.Logger.Info().Msg("Server exited")
}

// buildGateways wires one gateway per redirect method. Zelle is manual and
// never registers a gateway.
func buildGateways(cfg *config.Config) *gateway.Factory {
	if cfg.Gateways.UseMocks {
		return gateway.NewMockFactory()
	}

	f := gateway.NewFactory()
	f.Register(attempt.MethodStripeCard,
		gateway.NewHTTPGateway("stripe_card", cfg.Gateways.StripeCard.BaseURL, cfg.Gateways.StripeCard.APIKey, cfg.Gateways.Timeout))
	f.Register(attempt.MethodStripePix,
		gateway.NewHTTPGateway("stripe_pix", cfg.Gateways.StripePix.BaseURL, cfg.Gateways.StripePix.APIKey, cfg.Gateways.Timeout))
	f.Register(attempt.MethodParcelow,
		gateway.NewHTTPGateway("parcelow", cfg.Gateways.Parcelow.BaseURL, cfg.Gateways.Parcelow.APIKey, cfg.Gateways.Timeout))
	return f
}
