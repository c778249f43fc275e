package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/vidstore/stream-ingestion-go/internal/config"
	"github.com/vidstore/stream-ingestion-go/internal/db"
	"github.com/vidstore/stream-ingestion-go/internal/db/repository"
	"github.com/vidstore/stream-ingestion-go/internal/handler"
	"github.com/vidstore/stream-ingestion-go/internal/middleware"
	"github.com/vidstore/stream-ingestion-go/internal/poll"
	"github.com/vidstore/stream-ingestion-go/internal/queue"
	"github.com/vidstore/stream-ingestion-go/internal/service"
	"github.com/vidstore/stream-ingestion-go/internal/streamclient"
	"github.com/vidstore/stream-ingestion-go/internal/taxonomy"
	"github.com/vidstore/stream-ingestion-go/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.File)
	defer logger.Sync()

	logger.Log.Info("stream ingestion server starting",
		zap.Int("port", cfg.Server.Port),
		zap.String("stream_base_url", cfg.Stream.BaseURL),
	)

	ctx := context.Background()

	// Ingest-event audit trail is optional.
	var pool *pgxpool.Pool
	var eventRepo repository.IngestEventRepository
	if cfg.Database.URL != "" {
		pool, err = db.NewPool(ctx, cfg.Database.URL,
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

	// Lifecycle publishing is optional.
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

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	queueClient := queue.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	defer queueClient.Close()

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
		Scheduler: queueClient,
	})

	var dbPing func(ctx context.Context) error
	if pool != nil {
		dbPing = pool.Ping
	}
	var brokerHealth handler.HealthChecker
	if publisher != nil {
		brokerHealth = publisher
	}

	router := handler.NewRouter(handler.RouterDeps{
		Upload:   handler.NewUploadHandler(videoService, cfg.Upload.MaxBodyBytes),
		Video:    handler.NewVideoHandler(videoService, eventRepo),
		Taxonomy: handler.NewTaxonomyHandler(taxonomy.NewStore(rdb)),
		Sessions: middleware.NewRedisTokenChecker(rdb),
		Health:   handler.NewHealthHandler(dbPing, brokerHealth),
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Log.Info("server listening", zap.String("addr", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("server error", zap.Error(err))
		}
	case sig := <-shutdown:
		logger.Log.Info("shutdown signal received", zap.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Log.Error("graceful shutdown failed", zap.Error(err))
			if err := server.Close(); err != nil {
				logger.Log.Error("failed to close server", zap.Error(err))
			}
			os.Exit(1)
		}

		logger.Log.Info("server stopped gracefully")
	}
}

// lifecyclePublisher keeps the nil check out of the service: a nil
// *MessagePublisher must become a nil interface, not a typed nil.
func lifecyclePublisher(p *service.MessagePublisher) service.LifecyclePublisher {
	if p == nil {
		return nil
	}
	return p
}
