package queue

import (
	"context"

	"github.com/hibiken/asynq"
	"github.com/vidstore/stream-ingestion-go/pkg/logger"
	"go.uber.org/zap"
)

// Server wraps the asynq server processing deferred status-refresh tasks.
type Server struct {
	asynqServer *asynq.Server
	mux         *asynq.ServeMux
}

// NewServer creates a task processing server bound to the ingest queue.
func NewServer(addr, password string, db, concurrency int, handler *StatusRefreshHandler) *Server {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: addr, Password: password, DB: db},
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				queueName: 10,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Log.Error("task failed",
					zap.String("type", task.Type()),
					zap.Error(err),
				)
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.Handle(TypeStatusRefresh, handler)

	return &Server{asynqServer: srv, mux: mux}
}

// Start begins processing without blocking.
func (s *Server) Start() error {
	return s.asynqServer.Start(s.mux)
}

// Stop drains in-flight tasks and shuts the server down.
func (s *Server) Stop() {
	s.asynqServer.Shutdown()
}
