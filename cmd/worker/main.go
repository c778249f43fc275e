// The worker consumes deferred status-refresh tasks. It re-queries the
// stream service for assets whose synchronous polling run ended without a
// verdict and keeps the chain going until the asset is ready or the attempt
// cap is hit.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/vidstore/stream-ingestion-go/internal/config"
	"github.com/vidstore/stream-ingestion-go/internal/db"
	"github.com/vidstore/stream-ingestion-go/internal/db/repository"
	"github.com/vidstore/stream-ingestion-go/internal/poll"
	"github.com/vidstore/stream-ingestion-go/internal/queue"
	"github.com/vidstore/stream-ingestion-go/internal/service"
	"github.com/vidstore/stream-ingestion-go/internal/streamclient"
	"github.com/vidstore/stream-ingestion-go/pkg/logger"
	"go.uber.org/zap"
)

const workerConcurrency = 4

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.File)
	defer logger.Sync()

	logger.Log.Info("status refresh worker starting",
		zap.String("redis_addr", cfg.Redis.Addr),
		zap.Int("concurrency", workerConcurrency),
	)

	ctx := context.Background()

	// Deferred refreshes feed the same audit trail and broker as the
	// synchronous pipeline; both sinks stay optional.
	var eventRepo repository.IngestEventRepository
	if cfg.Database.URL != "" {
		pool, err := db.NewPool(ctx, cfg.Database.URL,
			int32(cfg.Database.MaxConnections), int32(cfg.Database.MinConnections))
		if err != nil {
			logger.Log.Fatal("failed to initialize database", zap.Error(err))
		}
		defer db.Close(pool)
		eventRepo = repository.NewIngestEventRepository(pool)
		logger.Log.Info("audit database connection established")
	} else {
		logger.Log.Info("database.url not set, audit trail disabled")
	}

	var publisher *service.MessagePublisher
	if cfg.RabbitMQ.Host != "" {
		publisher, err = service.NewMessagePublisher(&cfg.RabbitMQ)
		if err != nil {
			logger.Log.Warn("failed to initialize message publisher, lifecycle events disabled",
				zap.Error(err))
			publisher = nil
		} else {
			defer publisher.Close()
			logger.Log.Info("message publisher initialized",
				zap.String("exchange", cfg.RabbitMQ.Exchange))
		}
	}

	remote := streamclient.New(
		&http.Client{Timeout: cfg.Stream.RequestTimeout},
		cfg.Stream.BaseURL,
		cfg.Stream.Token,
		cfg.Stream.MaxFileBytes,
	)
	poller := poll.New(remote, cfg.Poller.Interval, cfg.Poller.MaxAttempts)
	videoService := service.New(remote, poller, cfg.Stream.MaxFileBytes, service.Options{
		Events:    eventRepo,
		Publisher: lifecyclePublisher(publisher),
	})

	queueClient := queue.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	defer queueClient.Close()

	refreshHandler := queue.NewStatusRefreshHandler(videoService, queueClient, 0, 0)
	server := queue.NewServer(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
		workerConcurrency, refreshHandler)

	if err := server.Start(); err != nil {
		logger.Log.Fatal("failed to start task server", zap.Error(err))
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	sig := <-shutdown

	logger.Log.Info("shutdown signal received", zap.String("signal", sig.String()))
	server.Stop()
	logger.Log.Info("worker stopped gracefully")
}

// lifecyclePublisher keeps the nil check out of the service: a nil
// *MessagePublisher must become a nil interface, not a typed nil.
func lifecyclePublisher(p *service.MessagePublisher) service.LifecyclePublisher {
	if p == nil {
		return nil
	}
	return p
}
