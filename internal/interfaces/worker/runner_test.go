package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mailtriage/internal/application/email"
)

type fakeCycles struct {
	calls   atomic.Int32
	running atomic.Int32
	overlap atomic.Bool
	block   chan struct{}
	err     error
	started chan struct{}
}

func (f *fakeCycles) RunCycle(context.Context) (*email.CycleReport, error) {
	if f.running.Add(1) > 1 {
		f.overlap.Store(true)
	}
	defer f.running.Add(-1)

	f.calls.Add(1)
	if f.started != nil {
		select {
		case f.started <- struct{}{}:
		default:
		}
	}
	if f.block != nil {
		<-f.block
	}
	return &email.CycleReport{}, f.err
}

func TestRunner_RunOnce(t *testing.T) {
	cycles := &fakeCycles{err: errors.New("boom")}
	r := NewRunner(cycles, 0, zap.NewNop())

	_, err := r.RunOnce(context.Background())

	assert.EqualError(t, err, "boom")
	assert.Equal(t, int32(1), cycles.calls.Load())
}

func TestRunner_StartRunsImmediatelyAndStops(t *testing.T) {
	cycles := &fakeCycles{}
	r := NewRunner(cycles, 0, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	r.Start(ctx)
	require.Eventually(t, func() bool { return cycles.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	r.Wait()
	assert.Equal(t, int32(1), cycles.calls.Load())
}

func TestRunner_TriggerRunsAnotherCycle(t *testing.T) {
	cycles := &fakeCycles{}
	r := NewRunner(cycles, 0, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r.Start(ctx)
	require.Eventually(t, func() bool { return cycles.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	r.Trigger()
	require.Eventually(t, func() bool { return cycles.calls.Load() == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	r.Wait()
}

func TestRunner_TriggersCoalesceWhileBusy(t *testing.T) {
	cycles := &fakeCycles{block: make(chan struct{}), started: make(chan struct{}, 1)}
	r := NewRunner(cycles, 0, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r.Start(ctx)
	<-cycles.started

	for i := 0; i < 5; i++ {
		r.Trigger()
	}
	close(cycles.block)

	require.Eventually(t, func() bool { return cycles.calls.Load() == 2 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(2), cycles.calls.Load())
	assert.False(t, cycles.overlap.Load())

	cancel()
	r.Wait()
}

func TestRunner_Ticker(t *testing.T) {
	cycles := &fakeCycles{}
	r := NewRunner(cycles, 10*time.Millisecond, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	r.Start(ctx)
	require.Eventually(t, func() bool { return cycles.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)

	cancel()
	r.Wait()
	assert.False(t, cycles.overlap.Load())
}
