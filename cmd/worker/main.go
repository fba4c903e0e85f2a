package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/cassiomorais/leadpay/internal/application/reconcile"
	"github.com/cassiomorais/leadpay/internal/bootstrap"
	"github.com/cassiomorais/leadpay/internal/domain/attempt"
	domainErrors "github.com/cassiomorais/leadpay/internal/domain/errors"
	"github.com/cassiomorais/leadpay/internal/gateway"
	"github.com/cassiomorais/leadpay/internal/infrastructure/config"
	infraRedis "github.com/cassiomorais/leadpay/internal/infrastructure/redis"
	"github.com/cassiomorais/leadpay/internal/repository/postgres"
	"github.com/cassiomorais/leadpay/pkg/retry"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.New(ctx, "leadpay-worker", "leadpay_worker")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	cfg := app.Config

	// --- Repositories ---
	attemptRepo := postgres.NewAttemptRepository(app.Pool)

	// --- Use cases ---
	refreshUC := reconcile.NewRefreshAttemptUseCase(
		attemptRepo,
		buildGateways(cfg),
		retry.Policy{MaxAttempts: 3, Interval: 500 * time.Millisecond, MaxDelay: 5 * time.Second, Multiplier: 2.0},
		app.Logger,
	)

	// --- Attempt stream consumer ---
	workerCfg := cfg.Worker
	consumer := infraRedis.NewStreamConsumer(
		app.Redis,
		infraRedis.AttemptStream,
		workerCfg.ConsumerGroup,
		cfg.InstanceID,
		workerCfg.BatchSize,
		workerCfg.BlockDuration,
	)
	if err := consumer.CreateGroup(ctx); err != nil {
		app.Logger.Error().Err(err).Msg("Failed to create consumer group (may already exist)")
	}
	producer := infraRedis.NewStreamProducer(app.Redis)

	app.Logger.Info().
		Str("stream", infraRedis.AttemptStream).
		Str("group", workerCfg.ConsumerGroup).
		Str("consumer", cfg.InstanceID).
		Msg("Worker started, listening for messages...")

	// Signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	g, gCtx := errgroup.WithContext(ctx)

	// 1. Event-driven refresh (reads from Redis Streams).
	g.Go(func() error {
		return runAttemptConsumer(gCtx, app.Logger, consumer, producer, refreshUC, app)
	})

	// 2. Reclaim messages left pending by consumers that died mid-refresh.
	g.Go(func() error {
		return runStaleReclaimer(gCtx, app.Logger, consumer, producer, refreshUC, app, workerCfg)
	})

	// 3. Periodic sweep catching attempts whose creation event was lost.
	g.Go(func() error {
		return runPendingSweep(gCtx, app.Logger, app.Redis, refreshUC, workerCfg.SweepInterval, int(workerCfg.BatchSize))
	})

	// 4. Wait for shutdown signal.
	g.Go(func() error {
		select {
		case <-gCtx.Done():
			return gCtx.Err()
		case <-quit:
			app.Logger.Info().Msg("Shutting down worker...")
			cancel()
			return nil
		}
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		app.Logger.Error().Err(err).Msg("Worker error")
	}
	app.Logger.Info().Msg("Worker exited")
}

func runAttemptConsumer(
	ctx context.Context,
	logger zerolog.Logger,
	consumer *infraRedis.StreamConsumer,
	producer *infraRedis.StreamProducer,
	refreshUC *reconcile.RefreshAttemptUseCase,
	app *bootstrap.App,
) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		streams, err := consumer.Read(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to read from stream")
			time.Sleep(1 * time.Second)
			continue
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				processMessage(ctx, logger, consumer, producer, refreshUC, app, msg)
			}
		}
	}
}

// processMessage refreshes the attempt named by one stream message under a
// per-attempt lock. A message whose refresh still fails after the use case's
// retry budget goes to the DLQ and is acked; a message whose lock is held by
// another consumer stays pending so the reclaimer can pick it up later.
func processMessage(
	ctx context.Context,
	logger zerolog.Logger,
	consumer *infraRedis.StreamConsumer,
	producer *infraRedis.StreamProducer,
	refreshUC *reconcile.RefreshAttemptUseCase,
	app *bootstrap.App,
	msg redis.XMessage,
) {
	attemptIDStr, _ := msg.Values["attempt_id"].(string)
	attemptID, err := uuid.Parse(attemptIDStr)
	if err != nil {
		logger.Error().Str("raw", attemptIDStr).Msg("Invalid attempt ID in stream message")
		deadLetter(ctx, logger, producer, app, attemptIDStr, "invalid attempt id", msg.Values)
		consumer.Ack(ctx, msg.ID)
		return
	}

	lock := infraRedis.NewDistributedLock(app.Redis, "attempt:"+attemptID.String(), app.Config.Worker.LockTTL)
	if err := lock.AcquireWithRetry(ctx, 3, 100*time.Millisecond); err != nil {
		if errors.Is(err, domainErrors.ErrLockAcquisitionFailed) {
			// Another consumer is refreshing this attempt; leave the
			// message pending.
			logger.Warn().Str("attempt_id", attemptID.String()).Msg("Could not acquire lock, skipping")
			return
		}
		logger.Error().Err(err).Str("attempt_id", attemptID.String()).Msg("Lock error")
		return
	}
	defer lock.Release(ctx)

	if err := refreshUC.Execute(ctx, attemptID); err != nil {
		logger.Error().Err(err).Str("attempt_id", attemptID.String()).Msg("Failed to refresh attempt")
		deadLetter(ctx, logger, producer, app, attemptID.String(), err.Error(), msg.Values)
	} else {
		app.Metrics.WorkerMessagesProcessed.WithLabelValues(infraRedis.AttemptStream, "success").Inc()
	}
	consumer.Ack(ctx, msg.ID)
}

func deadLetter(
	ctx context.Context,
	logger zerolog.Logger,
	producer *infraRedis.StreamProducer,
	app *bootstrap.App,
	attemptID, reason string,
	values map[string]any,
) {
	if err := producer.PublishToDLQ(ctx, attemptID, reason, values); err != nil {
		logger.Error().Err(err).Str("attempt_id", attemptID).Msg("Failed to publish to DLQ")
	}
	app.Metrics.WorkerMessagesProcessed.WithLabelValues(infraRedis.AttemptStream, "dead_lettered").Inc()
}

// runStaleReclaimer periodically claims messages that some consumer read but
// never acked, and pushes them through the normal refresh path. The pending
// sweep would eventually catch the underlying attempts anyway; claiming keeps
// the stream's pending list from growing without bound.
func runStaleReclaimer(
	ctx context.Context,
	logger zerolog.Logger,
	consumer *infraRedis.StreamConsumer,
	producer *infraRedis.StreamProducer,
	refreshUC *reconcile.RefreshAttemptUseCase,
	app *bootstrap.App,
	workerCfg config.WorkerConfig,
) error {
	ticker := time.NewTicker(workerCfg.ReclaimMinIdle)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		ids, err := consumer.StaleIDs(ctx, workerCfg.ReclaimMinIdle, workerCfg.BatchSize)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to list stale messages")
			continue
		}
		if len(ids) == 0 {
			continue
		}

		msgs, err := consumer.Claim(ctx, workerCfg.ReclaimMinIdle, ids)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to claim stale messages")
			continue
		}
		logger.Info().Int("claimed", len(msgs)).Msg("Reclaimed stale messages")
		for _, msg := range msgs {
			processMessage(ctx, logger, consumer, producer, refreshUC, app, msg)
		}
	}
}

// runPendingSweep refreshes still-pending attempts on a timer. A
// cluster-wide lease keeps replicas from sweeping the same rows at once:
// the holder extends it each tick, everyone else waits for it to lapse.
func runPendingSweep(
	ctx context.Context,
	logger zerolog.Logger,
	client *redis.Client,
	refreshUC *reconcile.RefreshAttemptUseCase,
	interval time.Duration,
	batchSize int,
) error {
	leaseTTL := 2 * interval
	lease := infraRedis.NewDistributedLock(client, "reconcile:sweep", leaseTTL)
	defer lease.Release(context.WithoutCancel(ctx))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if lease.IsAcquired() {
			if err := lease.Extend(ctx, leaseTTL); err != nil {
				logger.Warn().Err(err).Msg("Lost sweep lease")
				lease = infraRedis.NewDistributedLock(client, "reconcile:sweep", leaseTTL)
				continue
			}
		} else {
			acquired, err := lease.Acquire(ctx)
			if err != nil {
				logger.Error().Err(err).Msg("Sweep lease error")
				continue
			}
			if !acquired {
				continue
			}
		}

		refreshed, err := refreshUC.Sweep(ctx, batchSize)
		if err != nil {
			logger.Error().Err(err).Msg("Pending sweep error")
			continue
		}
		if refreshed > 0 {
			logger.Info().Int("refreshed", refreshed).Msg("Pending sweep completed")
		}
	}
}

// buildGateways wires one gateway per redirect method, mirroring the API
// binary. Zelle is manual and never registers a gateway.
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
