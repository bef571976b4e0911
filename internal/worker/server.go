package worker

import (
	"context"
	"errors"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/Muchai14/code-collab-hub/internal/repository"
	"github.com/Muchai14/code-collab-hub/internal/tasks"
)

// Server wraps the asynq worker that runs background room maintenance.
type Server struct {
	server *asynq.Server
	log    *logrus.Entry
	store  repository.RoomStore
}

// NewServer creates the worker server.
func NewServer(redisOpt asynq.RedisClientOpt, store repository.RoomStore, logger *logrus.Logger) *Server {
	logEntry := logger.WithField("component", "worker_server")

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 5,
			Queues: map[string]int{
				"default": 3,
				"low":     1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				retryCount, _ := asynq.GetRetryCount(ctx)
				maxRetry, _ := asynq.GetMaxRetry(ctx)
				logEntry.WithFields(logrus.Fields{
					"task_type": task.Type(),
					"retries":   retryCount,
					"max_retry": maxRetry,
				}).Errorf("Task failed: %v", err)
			}),
		},
	)

	return &Server{server: server, log: logEntry, store: store}
}

// Start runs the worker loop. Call it from its own goroutine.
func (s *Server) Start() {
	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeRoomSweep, NewRoomSweepHandler(s.store).ProcessTask)

	s.log.Info("Worker server starting")
	if err := s.server.Run(mux); err != nil {
		if !errors.Is(err, asynq.ErrServerClosed) {
			s.log.Fatalf("Could not run worker server: %v", err)
		}
		s.log.Info("Worker server stopped")
	}
}

// Shutdown stops the worker gracefully.
func (s *Server) Shutdown() {
	s.log.Info("Shutting down worker server")
	s.server.Shutdown()
}
