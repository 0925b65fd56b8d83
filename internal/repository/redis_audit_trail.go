package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"SignalDesk/internal/domain/models"

	"github.com/redis/go-redis/v9"
)

// RedisAuditTrail implements AuditTrail on Redis. Each signal's actions are
// a list of JSON records appended with RPUSH, so the trail survives restarts
// and keeps insertion order. Records are never rewritten or trimmed.
type RedisAuditTrail struct {
	client *redis.Client
	prefix string
}

// NewRedisAuditTrail creates a Redis-backed audit trail.
func NewRedisAuditTrail(client *redis.Client, prefix string) *RedisAuditTrail {
	return &RedisAuditTrail{client: client, prefix: prefix}
}

func (t *RedisAuditTrail) key(signalID string) string {
	return fmt.Sprintf("%s:audit:%s", t.prefix, signalID)
}

func (t *RedisAuditTrail) Append(ctx context.Context, a *models.SignalAction) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal action: %w", err)
	}
	if err := t.client.RPush(ctx, t.key(a.SignalID), data).Err(); err != nil {
		return fmt.Errorf("append action: %w", err)
	}
	return nil
}

func (t *RedisAuditTrail) ListBySignal(ctx context.Context, signalID string) ([]*models.SignalAction, error) {
	raw, err := t.client.LRange(ctx, t.key(signalID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	out := make([]*models.SignalAction, 0, len(raw))
	for _, v := range raw {
		var a models.SignalAction
		if err := json.Unmarshal([]byte(v), &a); err != nil {
			return nil, fmt.Errorf("unmarshal action: %w", err)
		}
		out = append(out, &a)
	}
	return out, nil
}
