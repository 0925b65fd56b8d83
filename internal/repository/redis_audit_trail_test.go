package repository

import (
	"context"
	"testing"
	"time"

	"SignalDesk/internal/domain/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisAuditTrailAppendsInOrder(t *testing.T) {
	trail := NewRedisAuditTrail(newTestRedis(t), "test")
	ctx := context.Background()

	base := time.Date(2026, 2, 10, 10, 0, 0, 0, time.UTC)
	for i, act := range []models.Action{models.ActionAck, models.ActionExecute} {
		err := trail.Append(ctx, &models.SignalAction{
			ID: "a" + string(rune('1'+i)), SignalID: "s1", Action: act,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := trail.Append(ctx, &models.SignalAction{ID: "b1", SignalID: "s2", Action: models.ActionDismiss, CreatedAt: base}); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := trail.ListBySignal(ctx, "s1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Action != models.ActionAck || got[1].Action != models.ActionExecute {
		t.Fatalf("order = [%s %s], want append order", got[0].Action, got[1].Action)
	}
	if !got[1].CreatedAt.Equal(base.Add(time.Minute)) {
		t.Fatalf("created_at = %s, lost on round trip", got[1].CreatedAt)
	}
}

func TestRedisAuditTrailSurvivesReconnect(t *testing.T) {
	srv := miniredis.RunT(t)
	ctx := context.Background()

	first := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	trail := NewRedisAuditTrail(first, "test")
	err := trail.Append(ctx, &models.SignalAction{
		ID: "a1", SignalID: "s1", Action: models.ActionExpire, Note: "unhandled for 24h",
		CreatedAt: time.Date(2026, 2, 10, 10, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	_ = first.Close()

	// A fresh client against the same server stands in for a process restart.
	second := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	defer second.Close()

	got, err := NewRedisAuditTrail(second, "test").ListBySignal(ctx, "s1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].Note != "unhandled for 24h" {
		t.Fatalf("trail lost across clients: %+v", got)
	}
}

func TestRedisAuditTrailEmptyForUnknownSignal(t *testing.T) {
	trail := NewRedisAuditTrail(newTestRedis(t), "test")

	got, err := trail.ListBySignal(context.Background(), "missing")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("len = %d, want 0", len(got))
	}
}
