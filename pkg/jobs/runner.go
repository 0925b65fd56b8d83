package jobs

import (
	"context"
	"sync"
	"time"

	"SignalDesk/pkg/logger"
)

type entry struct {
	job    Job
	policy Policy
}

// Runner drives registered jobs on their own tickers. Jobs never overlap
// with themselves; distinct jobs may interleave, the durable store is the
// arbiter.
type Runner struct {
	logger  *logger.Logger
	entries []entry
	wg      sync.WaitGroup
	cancel  context.CancelFunc
	mu      sync.Mutex
	running bool
	now     func() time.Time
}

// NewRunner creates an empty job runner.
func NewRunner(lgr *logger.Logger) *Runner {
	return &Runner{logger: lgr, now: time.Now}
}

// Register adds a job with its run policy. Nil policy means always run.
func (r *Runner) Register(job Job, policy Policy) {
	if policy == nil {
		policy = func(time.Time) bool { return true }
	}
	r.mu.Lock()
	r.entries = append(r.entries, entry{job: job, policy: policy})
	r.mu.Unlock()
}

// Start launches one goroutine per job. Jobs run once immediately when their
// policy allows, then on every tick.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	ctx, r.cancel = context.WithCancel(ctx)
	entries := r.entries
	r.mu.Unlock()

	for _, e := range entries {
		r.wg.Add(1)
		go r.loop(ctx, e)
	}
}

func (r *Runner) loop(ctx context.Context, e entry) {
	defer r.wg.Done()

	r.runOnce(ctx, e)

	ticker := time.NewTicker(e.job.Interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.runOnce(ctx, e)
		}
	}
}

func (r *Runner) runOnce(ctx context.Context, e entry) {
	if !e.policy(r.now()) {
		r.logger.Debug("job skipped by policy", logger.String("job", e.job.Name()))
		return
	}
	start := r.now()
	if err := e.job.Run(ctx); err != nil {
		// never fatal; the next tick retries
		r.logger.Error("job pass failed",
			logger.String("job", e.job.Name()),
			logger.Error(err),
		)
		return
	}
	r.logger.Debug("job pass complete",
		logger.String("job", e.job.Name()),
		logger.Duration("took_ms", time.Since(start)),
	)
}

// Stop cancels all job loops and waits for in-flight passes to finish.
func (r *Runner) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	r.running = false
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	r.wg.Wait()
}

// Pace sleeps for d between successive external calls inside a pass, bailing
// out early when the context is cancelled. A cooperative yield for
// third-party rate limits, not a correctness mechanism.
func Pace(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
