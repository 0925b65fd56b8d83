package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	drepo "SignalDesk/internal/domain/repository"

	"github.com/redis/go-redis/v9"
)

// RedisPortfolioStore implements PortfolioStore on Redis. Cash is a plain
// float key mutated with INCRBYFLOAT, holdings a hash of symbol to quantity.
type RedisPortfolioStore struct {
	client *redis.Client
	prefix string
}

func NewRedisPortfolioStore(client *redis.Client, prefix string) *RedisPortfolioStore {
	return &RedisPortfolioStore{client: client, prefix: prefix}
}

func (s *RedisPortfolioStore) key(pid, field string) string {
	return fmt.Sprintf("%s:pf:%s:%s", s.prefix, pid, field)
}

// Seed writes a portfolio's recipient and gateway flag, and initialises cash
// only when the key is absent so restarts do not reset balances.
func (s *RedisPortfolioStore) Seed(ctx context.Context, id, recipient string, gateway bool, initialCash float64) error {
	if err := s.client.Set(ctx, s.key(id, "recipient"), recipient, 0).Err(); err != nil {
		return fmt.Errorf("seed recipient: %w", err)
	}
	g := "0"
	if gateway {
		g = "1"
	}
	if err := s.client.Set(ctx, s.key(id, "gateway"), g, 0).Err(); err != nil {
		return fmt.Errorf("seed gateway: %w", err)
	}
	if err := s.client.SetNX(ctx, s.key(id, "cash"), initialCash, 0).Err(); err != nil {
		return fmt.Errorf("seed cash: %w", err)
	}
	return nil
}

func (s *RedisPortfolioStore) RawCash(ctx context.Context, portfolioID string) (float64, error) {
	v, err := s.client.Get(ctx, s.key(portfolioID, "cash")).Result()
	if errors.Is(err, redis.Nil) {
		return 0, drepo.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("get cash: %w", err)
	}
	cash, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parse cash: %w", err)
	}
	return cash, nil
}

func (s *RedisPortfolioStore) AdjustCash(ctx context.Context, portfolioID string, delta float64) error {
	if err := s.client.IncrByFloat(ctx, s.key(portfolioID, "cash"), delta).Err(); err != nil {
		return fmt.Errorf("adjust cash: %w", err)
	}
	return nil
}

func (s *RedisPortfolioStore) Holdings(ctx context.Context, portfolioID string) (map[string]int, error) {
	raw, err := s.client.HGetAll(ctx, s.key(portfolioID, "holdings")).Result()
	if err != nil {
		return nil, fmt.Errorf("get holdings: %w", err)
	}
	out := make(map[string]int, len(raw))
	for sym, v := range raw {
		qty, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("parse holding %s: %w", sym, err)
		}
		if qty > 0 {
			out[sym] = qty
		}
	}
	return out, nil
}

func (s *RedisPortfolioStore) AdjustHolding(ctx context.Context, portfolioID, symbol string, delta int) error {
	if err := s.client.HIncrBy(ctx, s.key(portfolioID, "holdings"), symbol, int64(delta)).Err(); err != nil {
		return fmt.Errorf("adjust holding: %w", err)
	}
	return nil
}

func (s *RedisPortfolioStore) HasGateway(ctx context.Context, portfolioID string) (bool, error) {
	v, err := s.client.Get(ctx, s.key(portfolioID, "gateway")).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get gateway: %w", err)
	}
	return v == "1", nil
}

func (s *RedisPortfolioStore) Recipient(ctx context.Context, portfolioID string) (string, error) {
	v, err := s.client.Get(ctx, s.key(portfolioID, "recipient")).Result()
	if errors.Is(err, redis.Nil) {
		return "", drepo.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get recipient: %w", err)
	}
	return v, nil
}
