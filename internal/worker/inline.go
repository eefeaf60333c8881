package worker

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/dunamismax/vectorstudio/internal/queue"
)

const InlineQueue = "inline"

// InlineDispatcher runs jobs on goroutines inside the API process. It stands in for
// Redis when the API runs alone.
type InlineDispatcher struct {
	ctx    context.Context
	runner *Runner
	logger zerolog.Logger
	wg     sync.WaitGroup
}

// NewInlineDispatcher ties every run to ctx; cancel it and call Wait on shutdown.
func NewInlineDispatcher(ctx context.Context, runner *Runner, logger zerolog.Logger) *InlineDispatcher {
	return &InlineDispatcher{ctx: ctx, runner: runner, logger: logger}
}

func (d *InlineDispatcher) Dispatch(_ context.Context, payload queue.VectorizePayload) (queue.DispatchInfo, error) {
	if err := payload.Validate(); err != nil {
		return queue.DispatchInfo{}, err
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.runner.Run(d.ctx, payload); err != nil {
			d.logger.Warn().Err(err).Str("job_id", payload.JobID).Msg("inline run ended with error")
		}
	}()

	return queue.DispatchInfo{
		Queue:  InlineQueue,
		TaskID: payload.JobID,
		State:  "active",
	}, nil
}

func (d *InlineDispatcher) Wait() {
	d.wg.Wait()
}
