package wallet

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/brwallet/pix-wallet-go/internal/platform/clock"
)

// SweepResult summarizes one sweep run for logs and metrics.
type SweepResult struct {
	Found     int
	Processed int
	Failed    int
	Skipped   bool
}

// Sweep periodically executes due scheduled withdrawals. A run-lock keeps
// runs from overlapping: a tick that arrives while a run is still going
// is skipped, not queued, so a slow run can never double-process a
// borderline record.
type Sweep struct {
	engine  *Engine
	records WithdrawStore
	clk     clock.Clock
	logf    func(string, ...any)
	observe func(SweepResult)

	runMu sync.Mutex
}

type SweepOption func(*Sweep)

func SweepLogger(logf func(string, ...any)) SweepOption {
	return func(s *Sweep) { s.logf = logf }
}

func SweepObserver(observe func(SweepResult)) SweepOption {
	return func(s *Sweep) { s.observe = observe }
}

func NewSweep(engine *Engine, records WithdrawStore, clk clock.Clock, opts ...SweepOption) *Sweep {
	if clk == nil {
		clk = clock.RealClock{}
	}
	s := &Sweep{
		engine:  engine,
		records: records,
		clk:     clk,
		logf:    func(string, ...any) {},
		observe: func(SweepResult) {},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes one sweep pass. Each record is processed in isolation: a
// panic or error in one record is logged and the batch continues.
func (s *Sweep) Run(ctx context.Context) SweepResult {
	if !s.runMu.TryLock() {
		s.logf("sweep: previous run still active, skipping")
		res := SweepResult{Skipped: true}
		s.observe(res)
		return res
	}
	defer s.runMu.Unlock()

	now := s.clk.Now().UTC()
	due, err := s.records.DuePending(ctx, now)
	if err != nil {
		s.logf("sweep: query due withdrawals: %v", err)
		res := SweepResult{}
		s.observe(res)
		return res
	}

	res := SweepResult{Found: len(due)}
	for _, rec := range due {
		if err := s.runOne(ctx, rec); err != nil {
			res.Failed++
			s.logf("sweep: withdraw %s: %v", rec.ID, err)
			continue
		}
		res.Processed++
	}
	s.logf("sweep: found=%d processed=%d failed=%d", res.Found, res.Processed, res.Failed)
	s.observe(res)
	return res
}

func (s *Sweep) runOne(ctx context.Context, rec Withdrawal) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = Wrap(CodeInternalError, &panicError{value: r})
		}
	}()
	return s.engine.ExecuteScheduled(ctx, rec)
}

type panicError struct{ value any }

func (p *panicError) Error() string {
	return fmt.Sprintf("panic during scheduled execution: %v", p.value)
}

// Start launches the periodic trigger, stopping when ctx is cancelled.
func (s *Sweep) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Run(ctx)
			}
		}
	}()
}
