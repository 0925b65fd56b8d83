package jobs

import (
	"context"
	"time"
)

// Job is one periodic engine pass (advise, notify, reconcile, expire).
// Run must be idempotent: a pass killed mid-way is resumed by the next tick.
type Job interface {
	// Name returns the unique identifier of the job.
	Name() string

	// Interval returns the cadence the job runs on.
	Interval() time.Duration

	// Run executes one pass.
	Run(ctx context.Context) error
}

// Policy decides whether a job should run at a given instant. Market-hours
// gating lives here, not in the jobs themselves.
type Policy func(time.Time) bool

// FuncJob adapts a plain function to the Job interface.
type FuncJob struct {
	name     string
	interval time.Duration
	run      func(ctx context.Context) error
}

// NewFunc builds a job from a name, cadence and pass function.
func NewFunc(name string, interval time.Duration, run func(ctx context.Context) error) *FuncJob {
	return &FuncJob{name: name, interval: interval, run: run}
}

func (j *FuncJob) Name() string                  { return j.name }
func (j *FuncJob) Interval() time.Duration       { return j.interval }
func (j *FuncJob) Run(ctx context.Context) error { return j.run(ctx) }
