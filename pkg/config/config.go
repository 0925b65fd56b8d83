package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Store struct {
		// redis or memory; memory is for dev and tests only.
		Type string `yaml:"type" default:"redis"`
	} `yaml:"store"`
	Redis struct {
		Addr      string `yaml:"addr" default:"localhost:6379"`
		Password  string `yaml:"password"`
		DB        int    `yaml:"db"`
		KeyPrefix string `yaml:"key_prefix" default:"signaldesk"`
	} `yaml:"redis"`
	ClickHouse struct {
		Enabled      bool          `yaml:"enabled"`
		Host         string        `yaml:"host" default:"localhost"`
		Port         int           `yaml:"port" default:"9000"`
		Database     string        `yaml:"database" default:"signaldesk"`
		User         string        `yaml:"user" default:"default"`
		Password     string        `yaml:"password"`
		DialTimeout  time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		ActionsTopic string   `yaml:"actions_topic" default:"signal-actions"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"gzip"`
	} `yaml:"kafka"`
	Chat struct {
		BaseURL string        `yaml:"base_url"`
		Token   string        `yaml:"token"`
		Timeout time.Duration `yaml:"timeout" default:"15s"`
	} `yaml:"chat"`
	Advisor struct {
		URL     string        `yaml:"url"`
		Timeout time.Duration `yaml:"timeout" default:"60s"`
	} `yaml:"advisor"`
	Gateway struct {
		// alpaca or paper
		Type      string `yaml:"type" default:"paper"`
		APIKey    string `yaml:"api_key"`
		APISecret string `yaml:"api_secret"`
		BaseURL   string `yaml:"base_url" default:"https://paper-api.alpaca.markets"`
	} `yaml:"gateway"`
	Quotes struct {
		Enabled        bool          `yaml:"enabled"`
		WebSocketURL   string        `yaml:"websocket_url"`
		APIKey         string        `yaml:"api_key"`
		Symbols        []string      `yaml:"symbols"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay" default:"5s"`
		PingInterval   time.Duration `yaml:"ping_interval" default:"20s"`
	} `yaml:"quotes"`
	Engine struct {
		DailyCap        int           `yaml:"daily_cap" default:"3"`
		ResendInterval  time.Duration `yaml:"resend_interval" default:"30m"`
		SignalTTL       time.Duration `yaml:"signal_ttl" default:"24h"`
		PaceDelay       time.Duration `yaml:"pace_delay" default:"500ms"`
		VerifyAfterDays int           `yaml:"verify_after_days" default:"3"`
		// Reserve an estimated amount for at-market BUY signals when a
		// quote is available.
		ReserveMarketEstimate bool `yaml:"reserve_market_estimate" default:"true"`
	} `yaml:"engine"`
	Jobs struct {
		AdviseInterval    time.Duration `yaml:"advise_interval" default:"1h"`
		NotifyInterval    time.Duration `yaml:"notify_interval" default:"5m"`
		ReconcileInterval time.Duration `yaml:"reconcile_interval" default:"2m"`
		ExpireInterval    time.Duration `yaml:"expire_interval" default:"15m"`
		VerifyInterval    time.Duration `yaml:"verify_interval" default:"24h"`
		MarketHours       struct {
			Enabled  bool   `yaml:"enabled" default:"true"`
			Timezone string `yaml:"timezone" default:"Asia/Kolkata"`
			Open     string `yaml:"open" default:"09:15"`
			Close    string `yaml:"close" default:"15:30"`
		} `yaml:"market_hours"`
	} `yaml:"jobs"`
	Portfolios []PortfolioConfig `yaml:"portfolios"`
}

// PortfolioConfig seeds a tracked portfolio: who gets notified and whether a
// live gateway connection exists for it.
type PortfolioConfig struct {
	ID        string `yaml:"id"`
	Recipient string `yaml:"recipient"`
	Gateway   bool   `yaml:"gateway"`
	// Cash seeds raw available cash on first start; an existing balance in
	// the store is never overwritten.
	Cash float64 `yaml:"cash"`
}

// Load reads and parses a YAML configuration file, applying defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("CHAT_BOT_TOKEN"); v != "" {
		c.Chat.Token = v
	}
	if v := os.Getenv("ADVISOR_URL"); v != "" {
		c.Advisor.URL = v
	}
	if v := os.Getenv("GATEWAY_API_KEY"); v != "" {
		c.Gateway.APIKey = v
	}
	if v := os.Getenv("GATEWAY_API_SECRET"); v != "" {
		c.Gateway.APISecret = v
	}
	if v := os.Getenv("QUOTES_API_KEY"); v != "" {
		c.Quotes.APIKey = v
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Store.Type != "redis" && c.Store.Type != "memory" {
		return fmt.Errorf("store.type must be 'redis' or 'memory', got '%s'", c.Store.Type)
	}
	if c.Gateway.Type != "alpaca" && c.Gateway.Type != "paper" {
		return fmt.Errorf("gateway.type must be 'alpaca' or 'paper', got '%s'", c.Gateway.Type)
	}
	if c.Gateway.Type == "alpaca" && (c.Gateway.APIKey == "" || c.Gateway.APISecret == "") {
		return fmt.Errorf("gateway.api_key and gateway.api_secret are required for alpaca")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Quotes.Enabled && c.Quotes.WebSocketURL == "" {
		return fmt.Errorf("quotes.websocket_url is required when quotes are enabled")
	}
	if c.Engine.DailyCap <= 0 {
		return fmt.Errorf("engine.daily_cap must be positive")
	}
	return nil
}
