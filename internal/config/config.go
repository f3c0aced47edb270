package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port          int           `yaml:"port"`
	AdminAPIKey   string        `yaml:"admin_api_key"`
	SessionSecret string        `yaml:"session_secret"`
	SessionTTL    time.Duration `yaml:"session_ttl"`
	SecureCookies bool          `yaml:"secure_cookies"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int    `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type PiConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

type SettlementConfig struct {
	LockTTL             time.Duration     `yaml:"lock_ttl"`
	StaleClaimAge       time.Duration     `yaml:"stale_claim_age"`
	ReconcileInterval   time.Duration     `yaml:"reconcile_interval"`
	ReconcileAfter      time.Duration     `yaml:"reconcile_after"`
	ExpirySweepInterval time.Duration     `yaml:"expiry_sweep_interval"`
	Workers             int               `yaml:"workers"`
	Rewards             map[string]string `yaml:"rewards"` // plan -> Pi amount
}

type NotifyConfig struct {
	TelegramToken string `yaml:"telegram_token"`
	ChatID        int64  `yaml:"chat_id"`
}

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Pi         PiConfig         `yaml:"pi"`
	Settlement SettlementConfig `yaml:"settlement"`
	Notify     NotifyConfig     `yaml:"notify"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig() (*Config, error) {
	var configPath string
	var dev bool
	flag.StringVar(&configPath, "config", "config.yaml", "path to config yaml")
	flag.BoolVar(&dev, "dev", false, "development mode")
	flag.Parse()

	var cfg Config
	if b, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	// Minimal validation
	if cfg.Pi.APIKey == "" {
		return nil, errors.New("pi.api_key is required")
	}
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Server.SessionSecret == "" {
		return nil, errors.New("server.session_secret is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

// applyEnv lets environment variables override or fill in file values, so the
// service can run from a plain .env in containerized deployments.
func (c *Config) applyEnv() {
	envStr(&c.Pi.APIKey, "PI_API_KEY")
	envStr(&c.Pi.BaseURL, "PI_BASE_URL")
	envStr(&c.Database.URL, "DATABASE_URL")
	envStr(&c.Redis.URL, "REDIS_URL")
	envStr(&c.Redis.Password, "REDIS_PASSWORD")
	envStr(&c.Server.AdminAPIKey, "ADMIN_API_KEY")
	envStr(&c.Server.SessionSecret, "SESSION_SECRET")
	envStr(&c.Notify.TelegramToken, "TELEGRAM_TOKEN")
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Notify.ChatID = id
		}
	}
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
}

func envStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port <= 0 {
		c.Server.Port = 8080
	}
	if c.Server.SessionTTL <= 0 {
		c.Server.SessionTTL = 30 * time.Minute
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Database.MaxConns <= 0 {
		c.Database.MaxConns = 10
	}
	if c.Settlement.LockTTL <= 0 {
		c.Settlement.LockTTL = 30 * time.Second
	}
	if c.Settlement.StaleClaimAge <= 0 {
		c.Settlement.StaleClaimAge = 2 * time.Minute
	}
	if c.Settlement.ReconcileInterval <= 0 {
		c.Settlement.ReconcileInterval = time.Minute
	}
	if c.Settlement.ReconcileAfter <= 0 {
		c.Settlement.ReconcileAfter = 10 * time.Minute
	}
	if c.Settlement.ExpirySweepInterval <= 0 {
		c.Settlement.ExpirySweepInterval = time.Hour
	}
	if c.Settlement.Workers <= 0 {
		c.Settlement.Workers = 4
	}
}

// RewardTable parses the configured plan rewards. Unparseable values fall
// back to zero for that plan; an empty map means use the built-in defaults.
func (s SettlementConfig) RewardTable() map[string]decimal.Decimal {
	if len(s.Rewards) == 0 {
		return nil
	}
	out := make(map[string]decimal.Decimal, len(s.Rewards))
	for plan, amt := range s.Rewards {
		d, err := decimal.NewFromString(amt)
		if err != nil {
			d = decimal.Zero
		}
		out[plan] = d
	}
	return out
}
