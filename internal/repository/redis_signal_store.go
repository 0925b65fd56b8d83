package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"SignalDesk/internal/domain/models"
	drepo "SignalDesk/internal/domain/repository"

	"github.com/redis/go-redis/v9"
)

// maxTxRetries bounds optimistic-lock retries on contended signals.
const maxTxRetries = 5

// RedisSignalStore implements SignalStore on Redis. Each signal is a JSON
// value under its own key; status and open-order membership live in index
// sets maintained inside the same transaction as the signal write, and
// UpdateIf runs under WATCH so transitions are atomic conditional updates.
type RedisSignalStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisSignalStore creates a Redis-backed signal store.
func NewRedisSignalStore(client *redis.Client, prefix string) *RedisSignalStore {
	return &RedisSignalStore{client: client, prefix: prefix, now: time.Now}
}

func (s *RedisSignalStore) signalKey(id string) string {
	return fmt.Sprintf("%s:signal:%s", s.prefix, id)
}

func (s *RedisSignalStore) statusKey(st models.Status) string {
	return fmt.Sprintf("%s:status:%s", s.prefix, st)
}

func (s *RedisSignalStore) portfolioKey(pid string) string {
	return fmt.Sprintf("%s:portfolio:%s:signals", s.prefix, pid)
}

func (s *RedisSignalStore) openOrdersKey() string {
	return s.prefix + ":orders:open"
}

func (s *RedisSignalStore) Create(ctx context.Context, sig *models.Signal) error {
	now := s.now()
	sig.CreatedAt = now
	sig.UpdatedAt = now

	data, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("marshal signal: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.signalKey(sig.ID), data, 0)
		pipe.SAdd(ctx, s.statusKey(sig.Status), sig.ID)
		pipe.SAdd(ctx, s.portfolioKey(sig.PortfolioID), sig.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("create signal: %w", err)
	}
	return nil
}

func (s *RedisSignalStore) Get(ctx context.Context, id string) (*models.Signal, error) {
	b, err := s.client.Get(ctx, s.signalKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, drepo.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get signal: %w", err)
	}
	var sig models.Signal
	if err := json.Unmarshal(b, &sig); err != nil {
		return nil, fmt.Errorf("unmarshal signal: %w", err)
	}
	return &sig, nil
}

func (s *RedisSignalStore) UpdateIf(ctx context.Context, id string, expect []models.Status, mutate func(*models.Signal)) (*models.Signal, error) {
	key := s.signalKey(id)
	var updated *models.Signal

	txFn := func(tx *redis.Tx) error {
		b, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return drepo.ErrNotFound
		}
		if err != nil {
			return err
		}
		var sig models.Signal
		if err := json.Unmarshal(b, &sig); err != nil {
			return fmt.Errorf("unmarshal signal: %w", err)
		}
		if !statusIn(sig.Status, expect) {
			return drepo.ErrConflict
		}

		prevStatus := sig.Status
		hadOpenOrder := sig.OrderID != "" && sig.OrderState == models.OrderStatePending

		mutate(&sig)
		sig.UpdatedAt = s.now()

		data, err := json.Marshal(&sig)
		if err != nil {
			return fmt.Errorf("marshal signal: %w", err)
		}
		hasOpenOrder := sig.OrderID != "" && sig.OrderState == models.OrderStatePending

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			if sig.Status != prevStatus {
				pipe.SRem(ctx, s.statusKey(prevStatus), id)
				pipe.SAdd(ctx, s.statusKey(sig.Status), id)
			}
			if hadOpenOrder && !hasOpenOrder {
				pipe.SRem(ctx, s.openOrdersKey(), id)
			}
			if !hadOpenOrder && hasOpenOrder {
				pipe.SAdd(ctx, s.openOrdersKey(), id)
			}
			return nil
		})
		if err != nil {
			return err
		}
		updated = &sig
		return nil
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txFn, key)
		if err == nil {
			return updated, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}
	return nil, drepo.ErrConflict
}

func (s *RedisSignalStore) ListByPortfolio(ctx context.Context, portfolioID string) ([]*models.Signal, error) {
	ids, err := s.client.SMembers(ctx, s.portfolioKey(portfolioID)).Result()
	if err != nil {
		return nil, fmt.Errorf("portfolio members: %w", err)
	}
	return s.fetch(ctx, ids, nil)
}

func (s *RedisSignalStore) ListReserving(ctx context.Context, portfolioID string) ([]*models.Signal, error) {
	sigs, err := s.ListByPortfolio(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	out := sigs[:0]
	for _, sig := range sigs {
		if sig.Status.IsReserving() {
			out = append(out, sig)
		}
	}
	return out, nil
}

func (s *RedisSignalStore) ListDue(ctx context.Context, cutoff time.Time) ([]*models.Signal, error) {
	ids, err := s.notifiableIDs(ctx)
	if err != nil {
		return nil, err
	}
	return s.fetch(ctx, ids, func(sig *models.Signal) bool {
		return sig.LastNotifiedAt == nil || sig.LastNotifiedAt.Before(cutoff)
	})
}

func (s *RedisSignalStore) ListStale(ctx context.Context, cutoff time.Time) ([]*models.Signal, error) {
	ids, err := s.notifiableIDs(ctx)
	if err != nil {
		return nil, err
	}
	return s.fetch(ctx, ids, func(sig *models.Signal) bool {
		return sig.CreatedAt.Before(cutoff)
	})
}

func (s *RedisSignalStore) ListOpenOrders(ctx context.Context) ([]*models.Signal, error) {
	ids, err := s.client.SMembers(ctx, s.openOrdersKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("open orders members: %w", err)
	}
	return s.fetch(ctx, ids, func(sig *models.Signal) bool {
		return sig.OrderID != "" && sig.OrderState == models.OrderStatePending
	})
}

func (s *RedisSignalStore) CountCreatedSince(ctx context.Context, portfolioID string, since time.Time) (int, error) {
	sigs, err := s.ListByPortfolio(ctx, portfolioID)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, sig := range sigs {
		if sig.Status != models.StatusExpired && !sig.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (s *RedisSignalStore) ListExecutedBuys(ctx context.Context, cutoff time.Time) ([]*models.Signal, error) {
	ids, err := s.client.SMembers(ctx, s.statusKey(models.StatusExecuted)).Result()
	if err != nil {
		return nil, fmt.Errorf("executed members: %w", err)
	}
	return s.fetch(ctx, ids, func(sig *models.Signal) bool {
		return sig.Side == models.SideBuy && sig.CreatedAt.Before(cutoff)
	})
}

func (s *RedisSignalStore) notifiableIDs(ctx context.Context) ([]string, error) {
	ids, err := s.client.SUnion(ctx,
		s.statusKey(models.StatusPending),
		s.statusKey(models.StatusSnoozed),
	).Result()
	if err != nil {
		return nil, fmt.Errorf("status members: %w", err)
	}
	return ids, nil
}

// fetch loads signals by id, filters, and orders by creation time.
func (s *RedisSignalStore) fetch(ctx context.Context, ids []string, match func(*models.Signal) bool) ([]*models.Signal, error) {
	out := make([]*models.Signal, 0, len(ids))
	for _, id := range ids {
		sig, err := s.Get(ctx, id)
		if errors.Is(err, drepo.ErrNotFound) {
			continue // index ahead of a deleted key; skip
		}
		if err != nil {
			return nil, err
		}
		if match == nil || match(sig) {
			out = append(out, sig)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// RedisFillMarker implements FillMarker with SETNX per order id. The first
// caller wins; everyone after sees false and leaves the ledger alone.
type RedisFillMarker struct {
	client *redis.Client
	prefix string
}

func NewRedisFillMarker(client *redis.Client, prefix string) *RedisFillMarker {
	return &RedisFillMarker{client: client, prefix: prefix}
}

func (m *RedisFillMarker) Mark(ctx context.Context, orderID string) (bool, error) {
	ok, err := m.client.SetNX(ctx, fmt.Sprintf("%s:fill:%s", m.prefix, orderID), 1, 0).Result()
	if err != nil {
		return false, fmt.Errorf("mark fill: %w", err)
	}
	return ok, nil
}
