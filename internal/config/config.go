package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	LockTTL  time.Duration `yaml:"lock_ttl"`
}

type GatewayConfig struct {
	Provider   string `yaml:"provider"` // "rest" | "noop"
	BaseURL    string `yaml:"base_url"`
	MerchantID string `yaml:"merchant_id"`
	PublicKey  string `yaml:"public_key"`
	PrivateKey string `yaml:"private_key"`
	Sandbox    bool   `yaml:"sandbox"`
}

type BillingConfig struct {
	// GraceDays is how long a freshly positive balance may be carried before
	// the account turns delinquent. Deployments run 3-14 days.
	GraceDays int `yaml:"grace_days"`
	// RetryCooldown is the minimum gap between collection attempts per account.
	RetryCooldown time.Duration `yaml:"retry_cooldown"`
	// Stale pending payments older than this are re-checked at the gateway.
	PaymentStaleAfter time.Duration `yaml:"payment_stale_after"`
}

type WorkerConfig struct {
	PoolSize          int           `yaml:"pool_size"`
	BalanceInterval   time.Duration `yaml:"balance_interval"`
	RenewalInterval   time.Duration `yaml:"renewal_interval"`
	CollectInterval   time.Duration `yaml:"collect_interval"`
	ReconcileInterval time.Duration `yaml:"reconcile_interval"`
	BatchLimit        int           `yaml:"batch_limit"`
}

type WebConfig struct {
	Port int `yaml:"port"`
}

type Config struct {
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Gateway  GatewayConfig  `yaml:"gateway"`
	Billing  BillingConfig  `yaml:"billing"`
	Worker   WorkerConfig   `yaml:"worker"`
	Web      WebConfig      `yaml:"web"`

	Runtime RuntimeConfig `yaml:"-"`
}

// Grace returns the configured overdue grace period as a duration.
func (c *BillingConfig) Grace() time.Duration {
	return time.Duration(c.GraceDays) * 24 * time.Hour
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.Redis.LockTTL <= 0 {
		cfg.Redis.LockTTL = 30 * time.Second
	}
	if cfg.Billing.GraceDays <= 0 {
		cfg.Billing.GraceDays = 3
	}
	if cfg.Billing.GraceDays > 14 {
		cfg.Billing.GraceDays = 14
	}
	if cfg.Billing.RetryCooldown <= 0 {
		cfg.Billing.RetryCooldown = 24 * time.Hour
	}
	if cfg.Billing.PaymentStaleAfter <= 0 {
		cfg.Billing.PaymentStaleAfter = 10 * time.Minute
	}
	if cfg.Worker.PoolSize <= 0 {
		cfg.Worker.PoolSize = 8
	}
	if cfg.Worker.BalanceInterval <= 0 {
		cfg.Worker.BalanceInterval = time.Minute
	}
	if cfg.Worker.RenewalInterval <= 0 {
		cfg.Worker.RenewalInterval = 5 * time.Minute
	}
	if cfg.Worker.CollectInterval <= 0 {
		cfg.Worker.CollectInterval = time.Hour
	}
	if cfg.Worker.ReconcileInterval <= 0 {
		cfg.Worker.ReconcileInterval = time.Minute
	}
	if cfg.Worker.BatchLimit <= 0 {
		cfg.Worker.BatchLimit = 200
	}
	if cfg.Web.Port <= 0 {
		cfg.Web.Port = 8080
	}

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Gateway.Provider == "" {
		cfg.Gateway.Provider = "rest"
	}
	if cfg.Gateway.Provider == "rest" && cfg.Gateway.BaseURL == "" {
		return nil, errors.New("gateway.base_url is required for the rest provider")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
