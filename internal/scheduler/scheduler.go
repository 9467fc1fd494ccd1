// Package scheduler re-processes a watch list on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"MarketLedger/internal/notifier"
	"MarketLedger/internal/pipeline"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Runner processes a batch of symbols.
type Runner interface {
	Process(ctx context.Context, symbols []string, exchange string, count int) *pipeline.BatchResult
}

// Sender delivers a report.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Job is the watch list processed on every tick.
type Job struct {
	Symbols  []string
	Exchange string
	Bars     int
}

// Scheduler manages the cron task.
type Scheduler struct {
	Cron     *cron.Cron
	Runner   Runner
	Notifier Sender // optional
	Job      Job
	Log      *zap.SugaredLogger
	Ctx      context.Context

	mu sync.Mutex // one batch at a time
	wg sync.WaitGroup
}

// NewScheduler creates a new Scheduler. notify may be nil.
func NewScheduler(ctx context.Context, runner Runner, notify Sender, job Job, log *zap.SugaredLogger) *Scheduler {
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Runner:   runner,
		Notifier: notify,
		Job:      job,
		Log:      log,
		Ctx:      ctx,
	}
}

// Register adds the processing task on a six-field cron expression (seconds first).
func (s *Scheduler) Register(expr string) error {
	if len(s.Job.Symbols) == 0 {
		return fmt.Errorf("schedule has no symbols")
	}
	if _, err := s.Cron.AddFunc(expr, s.RunNow); err != nil {
		return fmt.Errorf("register processing task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.Log.Infow("Scheduler started", "symbols", len(s.Job.Symbols))
}

// Stop stops the cron scheduler and waits for running batches, including
// ones started with RunAsync, to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.wg.Wait()
	s.Log.Infow("Scheduler stopped")
}

// RunAsync starts RunNow in a goroutine tracked by Stop.
func (s *Scheduler) RunAsync() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.RunNow()
	}()
}

// RunNow processes the watch list immediately. A tick that arrives while a
// batch is still running is dropped.
func (s *Scheduler) RunNow() {
	if !s.mu.TryLock() {
		s.Log.Warnw("Previous batch still running, skipping tick")
		return
	}
	defer s.mu.Unlock()

	res := s.Runner.Process(s.Ctx, s.Job.Symbols, s.Job.Exchange, s.Job.Bars)
	report := notifier.FormatBatchReport(res)
	if res.OK() {
		s.Log.Infow("Scheduled batch finished", "run_id", res.RunID.String(), "rows", res.Rows)
	} else {
		s.Log.Warnw("Scheduled batch finished with failures", "run_id", res.RunID.String(),
			"failed", len(res.Failed), "skipped", len(res.Skipped))
	}
	s.trySend(report)
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		s.Log.Errorw("Send notification failed", "error", err)
	}
}
