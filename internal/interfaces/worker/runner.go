package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"mailtriage/internal/application/email"
)

type CycleRunner interface {
	RunCycle(ctx context.Context) (*email.CycleReport, error)
}

// Runner executes triage cycles on a single goroutine. Cycles are started by
// a ticker, by Trigger, or both; triggers that arrive while a cycle is running
// collapse into one follow-up cycle.
type Runner struct {
	cycles   CycleRunner
	interval time.Duration
	triggers chan struct{}
	logger   *zap.Logger
	wg       sync.WaitGroup
}

func NewRunner(cycles CycleRunner, interval time.Duration, logger *zap.Logger) *Runner {
	return &Runner{
		cycles:   cycles,
		interval: interval,
		triggers: make(chan struct{}, 1),
		logger:   logger,
	}
}

// Trigger requests a cycle without blocking.
func (r *Runner) Trigger() {
	select {
	case r.triggers <- struct{}{}:
	default:
	}
}

// Start runs one cycle immediately and then waits for ticks and triggers
// until ctx is done.
func (r *Runner) Start(ctx context.Context) {
	r.wg.Add(1)
	go r.loop(ctx)
	r.logger.Info("Runner started", zap.Duration("interval", r.interval))
}

// Wait blocks until the loop started by Start has returned.
func (r *Runner) Wait() {
	r.wg.Wait()
	r.logger.Info("Runner stopped")
}

// RunOnce executes a single cycle on the calling goroutine.
func (r *Runner) RunOnce(ctx context.Context) (*email.CycleReport, error) {
	return r.cycles.RunCycle(ctx)
}

func (r *Runner) loop(ctx context.Context) {
	defer r.wg.Done()

	var tick <-chan time.Time
	if r.interval > 0 {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	r.run(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			r.run(ctx)
		case <-r.triggers:
			r.run(ctx)
		}
	}
}

func (r *Runner) run(ctx context.Context) {
	if _, err := r.cycles.RunCycle(ctx); err != nil && ctx.Err() == nil {
		r.logger.Error("Triage cycle failed", zap.Error(err))
	}
}
