package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/dunamismax/vectorstudio/internal/config"
	"github.com/dunamismax/vectorstudio/internal/queue"
)

// Server consumes vectorize:simulate tasks from Redis and hands them to a Runner.
type Server struct {
	logger zerolog.Logger
	server *asynq.Server
	runner *Runner
	// retries reports the attempt number and retry budget of the running task.
	retries func(ctx context.Context) (retried, maxRetry int, ok bool)
}

func taskRetries(ctx context.Context) (int, int, bool) {
	retried, ok := asynq.GetRetryCount(ctx)
	if !ok {
		return 0, 0, false
	}
	maxRetry, ok := asynq.GetMaxRetry(ctx)
	return retried, maxRetry, ok
}

func NewServer(logger zerolog.Logger, queueCfg config.QueueConfig, workerCfg config.WorkerConfig, runner *Runner) (*Server, error) {
	if runner == nil {
		return nil, fmt.Errorf("runner is required")
	}

	s := &Server{
		logger:  logger,
		runner:  runner,
		retries: taskRetries,
		server: asynq.NewServer(
			queueCfg.RedisClientOpt(),
			asynq.Config{
				Concurrency: workerCfg.Concurrency,
				Queues: map[string]int{
					queueCfg.Name: 1,
				},
				Logger:   asynqLogger{logger: logger.With().Str("component", "asynq").Logger()},
				LogLevel: asynq.InfoLevel,
				ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
					retried, _ := asynq.GetRetryCount(ctx)
					maxRetry, _ := asynq.GetMaxRetry(ctx)
					logger.Warn().
						Err(err).
						Str("type", task.Type()).
						Int("retry", retried).
						Int("max_retry", maxRetry).
						Msg("task failed")
				}),
			},
		),
	}
	return s, nil
}

func (s *Server) Run() error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TypeSimulateVectorize, s.handleSimulate)
	return s.server.Run(mux)
}

func (s *Server) Shutdown() {
	s.server.Shutdown()
}

func (s *Server) handleSimulate(ctx context.Context, task *asynq.Task) error {
	payload, err := queue.ParseVectorizePayload(task)
	if err != nil {
		return fmt.Errorf("parse payload: %v: %w", err, asynq.SkipRetry)
	}

	if err := s.runner.Run(ctx, payload); err != nil {
		if errors.Is(err, ErrJobMissing) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		// shutdown requeues without spending a retry
		if !errors.Is(err, context.Canceled) && s.lastAttempt(ctx) {
			s.runner.Abandon(context.WithoutCancel(ctx), payload, err)
		}
		return err
	}
	return nil
}

func (s *Server) lastAttempt(ctx context.Context) bool {
	if s.retries == nil {
		return false
	}
	retried, maxRetry, ok := s.retries(ctx)
	return ok && retried >= maxRetry
}
