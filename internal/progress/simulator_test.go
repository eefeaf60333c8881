package progress

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/dunamismax/vectorstudio/internal/domain"
)

func newTestSimulator(seed uint64) *Simulator {
	return New(Config{
		Interval:  time.Millisecond,
		SizeBytes: 300 * 1024,
		Colors:    16,
		Rand:      rand.New(rand.NewPCG(seed, seed+1)),
	})
}

type recorder struct {
	states  []domain.ProgressState
	control func(call int) string
	err     error
}

func (r *recorder) Observe(_ context.Context, state domain.ProgressState) (string, error) {
	r.states = append(r.states, state)
	if r.err != nil {
		return "", r.err
	}
	if r.control == nil {
		return domain.ControlNone, nil
	}
	return r.control(len(r.states)), nil
}

func TestRunCompletesThroughAllPhases(t *testing.T) {
	rec := &recorder{}
	out, err := newTestSimulator(7).Run(context.Background(), rec)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if out.Stopped {
		t.Fatal("expected run to complete, not stop")
	}
	if out.State.Status != domain.ProgressComplete || out.State.Percentage != 100 || out.State.Phase != 5 {
		t.Fatalf("unexpected final state %+v", out.State)
	}
	if out.Metrics == nil {
		t.Fatal("expected metrics on completion")
	}
	if out.Metrics.PathCount < 200 || out.Metrics.PathCount > 699 {
		t.Fatalf("path count out of range: %d", out.Metrics.PathCount)
	}
	if out.Metrics.SizeReduction < 50 || out.Metrics.SizeReduction > 79 {
		t.Fatalf("size reduction out of range: %d", out.Metrics.SizeReduction)
	}
	if out.Metrics.ColorCount != 16 {
		t.Fatalf("expected color count 16, got %d", out.Metrics.ColorCount)
	}

	// at most 2.5 per tick means at least 40 ticks, at least 0.5 means at most 200
	if n := len(rec.states); n < 40 || n > 201 {
		t.Fatalf("unexpected tick count %d", n)
	}

	seen := map[int]bool{}
	prev := domain.ProgressState{Phase: 1}
	for i, st := range rec.states {
		if st.Percentage < prev.Percentage {
			t.Fatalf("percentage went backwards at tick %d: %.2f -> %.2f", i, prev.Percentage, st.Percentage)
		}
		if st.Phase < prev.Phase {
			t.Fatalf("phase went backwards at tick %d", i)
		}
		if st.Percentage < 0 || st.Percentage > 100 {
			t.Fatalf("percentage out of range: %.2f", st.Percentage)
		}
		if st.Status == domain.ProgressProcessing {
			phase := domain.PhaseByNumber(st.Phase)
			if st.Percentage < phase.Start || st.Percentage >= phase.End {
				t.Fatalf("tick %d: %.2f outside phase %d range", i, st.Percentage, st.Phase)
			}
			if st.CurrentOperation != phase.Operation {
				t.Fatalf("tick %d: unexpected operation %q", i, st.CurrentOperation)
			}
		}
		if st.EstimatedTotalMS != 3000 && st.Status != domain.ProgressComplete {
			t.Fatalf("expected 3000ms estimate, got %d", st.EstimatedTotalMS)
		}
		seen[st.Phase] = true
		prev = st
	}
	for phase := 1; phase <= 5; phase++ {
		if !seen[phase] {
			t.Fatalf("phase %d never reported", phase)
		}
	}

	last := rec.states[len(rec.states)-1]
	if last.Status != domain.ProgressComplete || last.CurrentOperation != domain.CompleteOperation {
		t.Fatalf("expected final observed state to be complete, got %+v", last)
	}
}

func TestRunPauseFreezesCounter(t *testing.T) {
	rec := &recorder{control: func(call int) string {
		if call >= 3 && call < 6 {
			return domain.ControlPause
		}
		return domain.ControlNone
	}}

	out, err := newTestSimulator(11).Run(context.Background(), rec)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.State.Status != domain.ProgressComplete {
		t.Fatalf("expected completion after resume, got %s", out.State.Status)
	}

	paused := 0
	frozen := rec.states[2].Percentage
	for _, st := range rec.states {
		if st.Status != domain.ProgressPaused {
			continue
		}
		paused++
		if st.Percentage != frozen {
			t.Fatalf("expected paused percentage %.2f, got %.2f", frozen, st.Percentage)
		}
		if st.CurrentOperation != domain.PausedOperation {
			t.Fatalf("unexpected paused operation %q", st.CurrentOperation)
		}
	}
	if paused != 3 {
		t.Fatalf("expected 3 paused snapshots, got %d", paused)
	}
}

func TestRunStop(t *testing.T) {
	rec := &recorder{control: func(call int) string {
		if call == 5 {
			return domain.ControlStop
		}
		return domain.ControlNone
	}}

	out, err := newTestSimulator(3).Run(context.Background(), rec)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !out.Stopped || out.Metrics != nil {
		t.Fatalf("expected stopped outcome without metrics, got %+v", out)
	}
	if out.State.Status != domain.ProgressStopped {
		t.Fatalf("expected stopped status, got %s", out.State.Status)
	}
	if len(rec.states) != 5 {
		t.Fatalf("expected 5 observed ticks, got %d", len(rec.states))
	}
}

func TestRunHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &recorder{control: func(call int) string {
		if call == 2 {
			cancel()
		}
		return domain.ControlNone
	}}

	_, err := newTestSimulator(5).Run(ctx, rec)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRunPropagatesObserverError(t *testing.T) {
	boom := errors.New("store offline")
	_, err := newTestSimulator(1).Run(context.Background(), &recorder{err: boom})
	if !errors.Is(err, boom) {
		t.Fatalf("expected observer error, got %v", err)
	}
}

func TestElapsedUsesClock(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	calls := 0
	sim := New(Config{
		Interval: time.Millisecond,
		Colors:   8,
		Rand:     rand.New(rand.NewPCG(1, 2)),
		Now: func() time.Time {
			calls++
			return base.Add(time.Duration(calls) * 100 * time.Millisecond)
		},
	})

	out, err := sim.Run(context.Background(), &recorder{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.Metrics.ProcessingTimeMS <= 0 {
		t.Fatalf("expected positive processing time, got %d", out.Metrics.ProcessingTimeMS)
	}
	if out.State.ElapsedMS != out.State.EstimatedTotalMS {
		t.Fatal("expected final estimate to equal elapsed time")
	}
}

func TestRunStartsWithControl(t *testing.T) {
	stop := New(Config{Interval: time.Millisecond, Colors: 16, Control: domain.ControlStop})
	rec := &recorder{}
	out, err := stop.Run(context.Background(), rec)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !out.Stopped || out.State.Percentage != 0 || len(rec.states) != 0 {
		t.Fatalf("expected stop before the first advance, got %+v after %d snapshots", out, len(rec.states))
	}

	paused := New(Config{
		Interval: time.Millisecond,
		Colors:   16,
		Rand:     rand.New(rand.NewPCG(4, 5)),
		Control:  domain.ControlPause,
	})
	rec = &recorder{control: func(call int) string {
		if call < 3 {
			return domain.ControlPause
		}
		return domain.ControlNone
	}}
	if _, err := paused.Run(context.Background(), rec); err != nil {
		t.Fatalf("run: %v", err)
	}
	for i := range 3 {
		if rec.states[i].Status != domain.ProgressPaused || rec.states[i].Percentage != 0 {
			t.Fatalf("snapshot %d: expected paused at 0%%, got %+v", i, rec.states[i])
		}
	}
}

func TestRunActiveTimeLimitIgnoresPausedTicks(t *testing.T) {
	sim := New(Config{
		Interval:  time.Millisecond,
		Colors:    16,
		Rand:      rand.New(rand.NewPCG(8, 9)),
		Control:   domain.ControlPause,
		MaxActive: 5 * time.Millisecond,
	})
	rec := &recorder{control: func(call int) string {
		if call < 10 {
			return domain.ControlPause
		}
		return domain.ControlNone
	}}

	out, err := sim.Run(context.Background(), rec)
	if !errors.Is(err, ErrActiveTimeExceeded) {
		t.Fatalf("expected active time error, got %v", err)
	}

	paused, processing := 0, 0
	for _, st := range rec.states {
		switch st.Status {
		case domain.ProgressPaused:
			paused++
		case domain.ProgressProcessing:
			processing++
		}
	}
	if paused != 10 || processing != 5 {
		t.Fatalf("expected 10 paused and 5 processing snapshots, got %d and %d", paused, processing)
	}
	if out.State.Percentage <= 0 {
		t.Fatalf("expected progress before the limit, got %+v", out.State)
	}
}
