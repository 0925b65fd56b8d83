package di

import (
	"context"
	"testing"
	"time"

	"SignalDesk/internal/domain/models"
	internalrepo "SignalDesk/internal/repository"
	"SignalDesk/pkg/config"
	"SignalDesk/pkg/logger"

	"github.com/alicebob/miniredis/v2"
)

func redisConfig(addr string) *config.Config {
	cfg := &config.Config{}
	cfg.Store.Type = "redis"
	cfg.Redis.Addr = addr
	cfg.Redis.KeyPrefix = "test"
	cfg.Portfolios = []config.PortfolioConfig{
		{ID: "p1", Recipient: "user-1", Gateway: true, Cash: 10000},
	}
	return cfg
}

func TestRedisStoresUseDurableAuditTrail(t *testing.T) {
	srv := miniredis.RunT(t)

	stores, err := ProvideStores(redisConfig(srv.Addr()), logger.Nop())
	if err != nil {
		t.Fatalf("provide stores: %v", err)
	}
	defer stores.Close()

	if _, ok := stores.Audit.(*internalrepo.RedisAuditTrail); !ok {
		t.Fatalf("audit trail is %T, want redis-backed", stores.Audit)
	}

	ctx := context.Background()
	err = stores.Audit.Append(ctx, &models.SignalAction{
		ID: "a1", SignalID: "s1", Action: models.ActionAck,
		CreatedAt: time.Date(2026, 2, 10, 10, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	// A second bundle against the same server sees the record, so the trail
	// lives in the store rather than in process memory.
	again, err := ProvideStores(redisConfig(srv.Addr()), logger.Nop())
	if err != nil {
		t.Fatalf("provide stores: %v", err)
	}
	defer again.Close()

	got, err := again.Audit.ListBySignal(ctx, "s1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].Action != models.ActionAck {
		t.Fatalf("trail lost across bundles: %+v", got)
	}
}

func TestRedisStoresSeedCashOnce(t *testing.T) {
	srv := miniredis.RunT(t)
	ctx := context.Background()

	stores, err := ProvideStores(redisConfig(srv.Addr()), logger.Nop())
	if err != nil {
		t.Fatalf("provide stores: %v", err)
	}
	if err := stores.Portfolios.AdjustCash(ctx, "p1", -2500); err != nil {
		t.Fatalf("adjust cash: %v", err)
	}
	stores.Close()

	again, err := ProvideStores(redisConfig(srv.Addr()), logger.Nop())
	if err != nil {
		t.Fatalf("provide stores: %v", err)
	}
	defer again.Close()

	cash, err := again.Portfolios.RawCash(ctx, "p1")
	if err != nil {
		t.Fatalf("raw cash: %v", err)
	}
	if cash != 7500 {
		t.Fatalf("cash = %v, reseeding overwrote the balance", cash)
	}
}
