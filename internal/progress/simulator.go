package progress

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/dunamismax/vectorstudio/internal/domain"
)

const (
	DefaultInterval = 150 * time.Millisecond

	minIncrement   = 0.5
	incrementRange = 2.0

	minPathCount       = 200
	pathCountRange     = 500
	minSizeReduction   = 50
	sizeReductionRange = 30
)

// ErrActiveTimeExceeded reports a run that spent longer than Config.MaxActive
// advancing. Paused ticks do not count.
var ErrActiveTimeExceeded = errors.New("simulation exceeded its active time limit")

// Observer receives every snapshot and answers with the control flag to apply on
// the next tick (domain.ControlNone, ControlPause or ControlStop).
type Observer interface {
	Observe(ctx context.Context, state domain.ProgressState) (string, error)
}

type ObserverFunc func(ctx context.Context, state domain.ProgressState) (string, error)

func (f ObserverFunc) Observe(ctx context.Context, state domain.ProgressState) (string, error) {
	return f(ctx, state)
}

type Config struct {
	Interval  time.Duration
	SizeBytes int64
	Colors    int
	Rand      *rand.Rand
	Now       func() time.Time
	// Control is the flag already set when the run starts, so a job paused or
	// stopped while queued never advances.
	Control string
	// MaxActive bounds the time spent advancing, counted in ticks. Zero disables it.
	MaxActive time.Duration
}

type Outcome struct {
	State   domain.ProgressState
	Metrics *domain.Metrics
	Stopped bool
}

// Simulator advances a fake vectorization run through the five phases. It owns its
// random source, so one Simulator must not be shared between goroutines.
type Simulator struct {
	interval  time.Duration
	estimate  time.Duration
	colors    int
	rng       *rand.Rand
	now       func() time.Time
	control   string
	maxActive time.Duration
	active    time.Duration
	counter   float64
	phase     int
	startedAt time.Time
}

func New(cfg Config) *Simulator {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Simulator{
		interval:  interval,
		estimate:  domain.EstimateProcessingTime(cfg.SizeBytes, cfg.Colors),
		colors:    cfg.Colors,
		rng:       rng,
		now:       now,
		control:   cfg.Control,
		maxActive: cfg.MaxActive,
		phase:     1,
	}
}

// Run ticks until the counter passes phase 5, the observer asks to stop, the active
// time limit is spent, or ctx is done. Paused ticks keep reporting elapsed time but
// do not advance the counter.
func (s *Simulator) Run(ctx context.Context, observer Observer) (Outcome, error) {
	if observer == nil {
		return Outcome{}, errors.New("observer is required")
	}

	s.startedAt = s.now()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	control := s.control
	for {
		select {
		case <-ctx.Done():
			return Outcome{State: s.snapshot(domain.ProgressStopped)}, ctx.Err()
		case <-ticker.C:
		}

		switch control {
		case domain.ControlStop:
			return Outcome{State: s.snapshot(domain.ProgressStopped), Stopped: true}, nil
		case domain.ControlPause:
			next, err := observer.Observe(ctx, s.snapshot(domain.ProgressPaused))
			if err != nil {
				return Outcome{}, fmt.Errorf("observe paused state: %w", err)
			}
			control = next
			continue
		}

		s.active += s.interval
		if s.maxActive > 0 && s.active > s.maxActive {
			return Outcome{State: s.snapshot(domain.ProgressProcessing)}, ErrActiveTimeExceeded
		}

		if done := s.advance(); done {
			final := s.complete()
			if _, err := observer.Observe(ctx, final.State); err != nil {
				return Outcome{}, fmt.Errorf("observe final state: %w", err)
			}
			return final, nil
		}

		next, err := observer.Observe(ctx, s.snapshot(domain.ProgressProcessing))
		if err != nil {
			return Outcome{}, fmt.Errorf("observe progress: %w", err)
		}
		control = next
	}
}

// advance adds one random increment and moves past every phase whose upper bound
// the counter reached. It reports true once phase 5 is done.
func (s *Simulator) advance() bool {
	s.counter += minIncrement + s.rng.Float64()*incrementRange
	for s.counter >= domain.PhaseByNumber(s.phase).End {
		if s.phase == domain.PhaseCount {
			return true
		}
		s.phase++
	}
	return false
}

func (s *Simulator) complete() Outcome {
	elapsed := s.elapsed()
	state := domain.ProgressState{
		Phase:            domain.PhaseCount,
		PhaseName:        domain.PhaseByNumber(domain.PhaseCount).Name,
		Percentage:       100,
		ElapsedMS:        elapsed.Milliseconds(),
		EstimatedTotalMS: elapsed.Milliseconds(),
		CurrentOperation: domain.CompleteOperation,
		Status:           domain.ProgressComplete,
	}
	return Outcome{
		State: state,
		Metrics: &domain.Metrics{
			ProcessingTimeMS: elapsed.Milliseconds(),
			PathCount:        minPathCount + s.rng.IntN(pathCountRange),
			ColorCount:       s.colors,
			SizeReduction:    minSizeReduction + s.rng.IntN(sizeReductionRange),
		},
	}
}

func (s *Simulator) snapshot(status string) domain.ProgressState {
	phase := domain.PhaseByNumber(s.phase)
	op := phase.Operation
	switch status {
	case domain.ProgressPaused:
		op = domain.PausedOperation
	case domain.ProgressStopped:
		op = domain.StoppedOperation
	}
	return domain.ProgressState{
		Phase:            phase.Number,
		PhaseName:        phase.Name,
		Percentage:       domain.ClampPercentage(s.counter),
		ElapsedMS:        s.elapsed().Milliseconds(),
		EstimatedTotalMS: s.estimate.Milliseconds(),
		CurrentOperation: op,
		Status:           status,
	}
}

func (s *Simulator) elapsed() time.Duration {
	return s.now().Sub(s.startedAt)
}
