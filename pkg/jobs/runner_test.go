package jobs

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"SignalDesk/pkg/logger"
)

func TestRunnerRunsJobImmediately(t *testing.T) {
	r := NewRunner(logger.Nop())
	var runs int64
	r.Register(NewFunc("tick", time.Hour, func(context.Context) error {
		atomic.AddInt64(&runs, 1)
		return nil
	}), nil)

	r.Start(context.Background())
	defer r.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt64(&runs) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("job never ran")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestRunnerPolicySkips(t *testing.T) {
	r := NewRunner(logger.Nop())
	var runs int64
	r.Register(NewFunc("gated", 20*time.Millisecond, func(context.Context) error {
		atomic.AddInt64(&runs, 1)
		return nil
	}), func(time.Time) bool { return false })

	r.Start(context.Background())
	time.Sleep(100 * time.Millisecond)
	r.Stop()

	if n := atomic.LoadInt64(&runs); n != 0 {
		t.Fatalf("gated job ran %d times, want 0", n)
	}
}

func TestRunnerStopWaitsForInflightPass(t *testing.T) {
	r := NewRunner(logger.Nop())
	started := make(chan struct{})
	var done int64
	r.Register(NewFunc("slow", time.Hour, func(ctx context.Context) error {
		close(started)
		time.Sleep(50 * time.Millisecond)
		atomic.StoreInt64(&done, 1)
		return nil
	}), nil)

	r.Start(context.Background())
	<-started
	r.Stop()

	if atomic.LoadInt64(&done) != 1 {
		t.Fatal("Stop returned before the in-flight pass finished")
	}
}

func TestPaceHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	Pace(ctx, time.Minute)
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("Pace blocked %v on a cancelled context", elapsed)
	}
}
