package di

import (
	"context"
	"fmt"
	"time"

	drepo "SignalDesk/internal/domain/repository"
	"SignalDesk/internal/handler/api"
	internalrepo "SignalDesk/internal/repository"
	"SignalDesk/internal/service/advisor"
	"SignalDesk/internal/service/chat"
	"SignalDesk/internal/service/gateway"
	"SignalDesk/internal/service/quotes"
	"SignalDesk/internal/usecase"
	"SignalDesk/pkg/cache"
	pkgch "SignalDesk/pkg/clickhouse"
	"SignalDesk/pkg/config"
	xhttp "SignalDesk/pkg/http"
	"SignalDesk/pkg/jobs"
	pkgkafka "SignalDesk/pkg/kafka"
	"SignalDesk/pkg/logger"
	"SignalDesk/pkg/metrics"
	"SignalDesk/pkg/server"
	"SignalDesk/pkg/util"

	"github.com/redis/go-redis/v9"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() drepo.Metrics {
	return metrics.New()
}

// Stores bundles the persistence layer so store selection (redis vs memory)
// and infrastructure clients stay in one place.
type Stores struct {
	Signals    drepo.SignalStore
	Portfolios drepo.PortfolioStore
	Fills      drepo.FillMarker
	Audit      drepo.AuditTrail

	redisClient *redis.Client
	chClient    *pkgch.Client
	producer    *pkgkafka.Producer
}

// Close releases the infrastructure clients behind the stores.
func (s *Stores) Close() error {
	var firstErr error
	if s.producer != nil {
		if err := s.producer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.chClient != nil {
		if err := s.chClient.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ProvideStores builds the persistence layer from config: Redis-backed
// stores in production, in-memory for dev. The audit trail is layered: the
// primary store, optionally archived to ClickHouse and fanned out to Kafka.
func ProvideStores(cfg *config.Config, lgr *logger.Logger) (*Stores, error) {
	s := &Stores{}

	switch cfg.Store.Type {
	case "memory":
		seeds := make([]internalrepo.MemoryPortfolio, 0, len(cfg.Portfolios))
		for _, p := range cfg.Portfolios {
			seeds = append(seeds, internalrepo.MemoryPortfolio{
				ID:        p.ID,
				Cash:      p.Cash,
				Gateway:   p.Gateway,
				Recipient: p.Recipient,
			})
		}
		s.Signals = internalrepo.NewMemorySignalStore()
		s.Portfolios = internalrepo.NewMemoryPortfolioStore(seeds...)
		s.Fills = internalrepo.NewMemoryFillMarker()
		s.Audit = internalrepo.NewMemoryAuditTrail()
	default:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		s.redisClient = client

		portfolios := internalrepo.NewRedisPortfolioStore(client, cfg.Redis.KeyPrefix)
		for _, p := range cfg.Portfolios {
			if err := portfolios.Seed(ctx, p.ID, p.Recipient, p.Gateway, p.Cash); err != nil {
				return nil, fmt.Errorf("seed portfolio %s: %w", p.ID, err)
			}
		}
		s.Signals = internalrepo.NewRedisSignalStore(client, cfg.Redis.KeyPrefix)
		s.Portfolios = portfolios
		s.Fills = internalrepo.NewRedisFillMarker(client, cfg.Redis.KeyPrefix)
		// The trail must outlive the process; memory-backed audit is for the
		// memory store only.
		s.Audit = internalrepo.NewRedisAuditTrail(client, cfg.Redis.KeyPrefix)
	}

	if cfg.ClickHouse.Enabled {
		chClient, err := pkgch.NewClient(
			pkgch.WithHost(cfg.ClickHouse.Host),
			pkgch.WithPort(cfg.ClickHouse.Port),
			pkgch.WithDatabase(cfg.ClickHouse.Database),
			pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
			pkgch.WithMaxConnections(10, 5),
			pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		)
		if err != nil {
			return nil, fmt.Errorf("clickhouse client: %w", err)
		}

		table := cfg.ClickHouse.Database + ".signal_actions"
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := chClient.InitSchema(ctx, internalrepo.Schema(cfg.ClickHouse.Database, table)); err != nil {
			_ = chClient.Close()
			return nil, fmt.Errorf("clickhouse schema: %w", err)
		}
		s.chClient = chClient
		s.Audit = internalrepo.NewClickHouseAuditTrail(chClient.DB(), table)
	}

	if cfg.Kafka.Enabled {
		producer, err := pkgkafka.NewProducer(
			pkgkafka.WithBrokers(cfg.Kafka.Brokers),
			pkgkafka.WithCompression(cfg.Kafka.Compression),
			pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		)
		if err != nil {
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		s.producer = producer
		s.Audit = internalrepo.NewAuditFanout(s.Audit, producer, cfg.Kafka.ActionsTopic, lgr)
	}

	return s, nil
}

// QuoteFeed pairs the quote source with its optional live stream.
type QuoteFeed struct {
	Source drepo.QuoteSource
	Stream *quotes.Stream
}

// ProvideQuoteFeed creates the quote source: a live WebSocket stream when
// configured, otherwise a source that never has a price.
func ProvideQuoteFeed(cfg *config.Config, lgr *logger.Logger) *QuoteFeed {
	if !cfg.Quotes.Enabled {
		return &QuoteFeed{Source: quotes.NoQuotes{}}
	}
	stream := quotes.New(
		cfg.Quotes.APIKey,
		cfg.Quotes.WebSocketURL,
		cfg.Quotes.Symbols,
		cfg.Quotes.ReconnectDelay,
		cfg.Quotes.PingInterval,
		cache.NewMemoryCache(time.Minute),
		lgr,
	)
	return &QuoteFeed{Source: stream, Stream: stream}
}

// ProvideChannel creates the notification channel client.
func ProvideChannel(cfg *config.Config) drepo.NotificationChannel {
	return chat.New(cfg.Chat.BaseURL, cfg.Chat.Token, cfg.Chat.Timeout)
}

// ProvideRecommendationSource creates the advisor client.
func ProvideRecommendationSource(cfg *config.Config) drepo.RecommendationSource {
	return advisor.New(cfg.Advisor.URL, cfg.Advisor.Timeout)
}

// ProvideGateway creates the execution gateway.
func ProvideGateway(cfg *config.Config, feed *QuoteFeed) drepo.ExecutionGateway {
	if cfg.Gateway.Type == "alpaca" {
		return gateway.NewAlpaca(cfg.Gateway.APIKey, cfg.Gateway.APISecret, cfg.Gateway.BaseURL)
	}
	return gateway.NewPaper(feed.Source)
}

// ProvideLedger creates the capital ledger.
func ProvideLedger(s *Stores, feed *QuoteFeed, m drepo.Metrics, lgr *logger.Logger, cfg *config.Config) *usecase.CapitalLedger {
	return usecase.NewCapitalLedger(s.Signals, s.Portfolios, feed.Source, s.Fills, m, lgr, cfg.Engine.ReserveMarketEstimate)
}

// ProvideValidator creates the signal validator.
func ProvideValidator(s *Stores, ledger *usecase.CapitalLedger, m drepo.Metrics, lgr *logger.Logger, cfg *config.Config) *usecase.SignalValidator {
	return usecase.NewSignalValidator(s.Signals, s.Portfolios, ledger, m, lgr, cfg.Engine.DailyCap)
}

// ProvideSweeper creates the expiry sweeper.
func ProvideSweeper(s *Stores, m drepo.Metrics, lgr *logger.Logger, cfg *config.Config) *usecase.ExpirySweeper {
	return usecase.NewExpirySweeper(s.Signals, s.Audit, m, lgr, cfg.Engine.SignalTTL)
}

// ProvideScheduler creates the notification scheduler.
func ProvideScheduler(
	s *Stores,
	channel drepo.NotificationChannel,
	sweeper *usecase.ExpirySweeper,
	m drepo.Metrics,
	lgr *logger.Logger,
	cfg *config.Config,
) *usecase.NotificationScheduler {
	return usecase.NewNotificationScheduler(s.Signals, s.Portfolios, channel, sweeper, m, lgr,
		cfg.Engine.ResendInterval, cfg.Engine.PaceDelay)
}

// ProvideCoordinator creates the execution coordinator.
func ProvideCoordinator(
	s *Stores,
	ledger *usecase.CapitalLedger,
	gw drepo.ExecutionGateway,
	channel drepo.NotificationChannel,
	m drepo.Metrics,
	lgr *logger.Logger,
	cfg *config.Config,
) *usecase.ExecutionCoordinator {
	verifyAfter := time.Duration(cfg.Engine.VerifyAfterDays) * 24 * time.Hour
	return usecase.NewExecutionCoordinator(s.Signals, s.Audit, ledger, s.Portfolios, gw, channel, m, lgr,
		cfg.Engine.PaceDelay, verifyAfter)
}

// ProvideActions creates the action service.
func ProvideActions(s *Stores, coordinator *usecase.ExecutionCoordinator, lgr *logger.Logger) *usecase.ActionService {
	return usecase.NewActionService(s.Signals, s.Audit, coordinator, lgr)
}

// ProvideAdvisorPass creates the proposal screening pass.
func ProvideAdvisorPass(
	source drepo.RecommendationSource,
	validator *usecase.SignalValidator,
	ledger *usecase.CapitalLedger,
	s *Stores,
	lgr *logger.Logger,
	cfg *config.Config,
) *usecase.AdvisorPass {
	ids := make([]string, 0, len(cfg.Portfolios))
	for _, p := range cfg.Portfolios {
		ids = append(ids, p.ID)
	}
	return usecase.NewAdvisorPass(source, validator, ledger, s.Portfolios, lgr, ids)
}

// ProvideHandler creates the HTTP API handler.
func ProvideHandler(actions *usecase.ActionService, ledger *usecase.CapitalLedger, s *Stores, lgr *logger.Logger) xhttp.Handler {
	return api.NewSignalHandler(actions, ledger, s.Signals, s.Portfolios, lgr)
}

// ProvideRunner registers the periodic engine passes on a job runner. The
// advise and notify passes are gated to market hours when enabled;
// reconciliation, expiry and position verification run around the clock.
func ProvideRunner(
	cfg *config.Config,
	lgr *logger.Logger,
	pass *usecase.AdvisorPass,
	scheduler *usecase.NotificationScheduler,
	coordinator *usecase.ExecutionCoordinator,
	sweeper *usecase.ExpirySweeper,
) (*jobs.Runner, error) {
	policy := jobs.Policy(util.Always)
	if cfg.Jobs.MarketHours.Enabled {
		window, err := util.NewMarketWindow(
			cfg.Jobs.MarketHours.Timezone,
			cfg.Jobs.MarketHours.Open,
			cfg.Jobs.MarketHours.Close,
		)
		if err != nil {
			return nil, fmt.Errorf("market hours: %w", err)
		}
		policy = window.Contains
	}

	r := jobs.NewRunner(lgr)
	r.Register(jobs.NewFunc("advise", cfg.Jobs.AdviseInterval, pass.Run), policy)
	r.Register(jobs.NewFunc("notify", cfg.Jobs.NotifyInterval, scheduler.RunPass), policy)
	r.Register(jobs.NewFunc("reconcile", cfg.Jobs.ReconcileInterval, coordinator.Reconcile), util.Always)
	r.Register(jobs.NewFunc("expire", cfg.Jobs.ExpireInterval, sweeper.Sweep), util.Always)
	r.Register(jobs.NewFunc("verify", cfg.Jobs.VerifyInterval, coordinator.VerifyPositions), util.Always)
	return r, nil
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	lgr *logger.Logger,
	stores *Stores,
	feed *QuoteFeed,
	runner *jobs.Runner,
	handler xhttp.Handler,
) *server.App {
	return server.New(cfg, lgr, runner, handler, feed.Stream, stores)
}
