// Package config loads gateway configuration from config.yaml with
// TASKGATE_-prefixed environment overrides.
package config

import (
	"os"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Provider   ProviderConfig   `koanf:"provider"`
	Budget     BudgetConfig     `koanf:"budget"`
	RateLimit  RateLimitConfig  `koanf:"ratelimit"`
	Routing    RoutingConfig    `koanf:"routing"`
	Compliance ComplianceConfig `koanf:"compliance"`
	Storage    StorageConfig    `koanf:"storage"`
	Delivery   DeliveryConfig   `koanf:"delivery"`
}

type ServerConfig struct {
	Port int `koanf:"port"`
}

type ProviderConfig struct {
	APIKey  string `koanf:"api_key"`
	BaseURL string `koanf:"base_url"`

	// PricePerThousand maps model id to USD per 1000 tokens for spend
	// accounting.
	PricePerThousand map[string]float64 `koanf:"price_per_thousand"`
}

type BudgetConfig struct {
	PeriodCapUSD float64 `koanf:"period_cap_usd"`
}

type RateLimitConfig struct {
	DailyLimit int `koanf:"daily_limit"`

	// RedisAddr, when set, backs the counter with a shared Redis instance
	// instead of process memory.
	RedisAddr string `koanf:"redis_addr"`
}

type RoutingConfig struct {
	// Models overrides the default model catalog per tier.
	Models ModelCatalogConfig `koanf:"models"`
}

type ModelCatalogConfig struct {
	Fast     string `koanf:"fast"`
	Balanced string `koanf:"balanced"`
	Accurate string `koanf:"accurate"`
}

type ComplianceConfig struct {
	// Policies adds forbidden-phrase rules on top of the built-in table.
	// Keys are "platform|vertical".
	Policies map[string]PolicyConfig `koanf:"policies"`
}

type PolicyConfig struct {
	Rules     []RuleConfig `koanf:"rules"`
	Reminders []string     `koanf:"reminders"`
}

type RuleConfig struct {
	Phrase      string `koanf:"phrase"`
	Replacement string `koanf:"replacement"`
}

type StorageConfig struct {
	Type   string       `koanf:"type"` // sqlite, memory
	SQLite SQLiteConfig `koanf:"sqlite"`
}

type SQLiteConfig struct {
	Path string `koanf:"path"`
}

type DeliveryConfig struct {
	// Webhooks maps channel name to endpoint URL. Each entry becomes an
	// outbound webhook channel.
	Webhooks map[string]string `koanf:"webhooks"`

	// DedupTTLHours bounds how long a delivered job's idempotency record
	// is kept. Zero means records never expire.
	DedupTTLHours int `koanf:"dedup_ttl_hours"`
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads config.yaml (if present), applies TASKGATE_ environment
// overrides, fills defaults, and substitutes ${VAR} references in secrets.
func Load() (*Config, error) {
	return LoadFile("config.yaml")
}

// LoadFile is Load with an explicit config path.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		// File not found is OK, we'll use env vars
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	if err := k.Load(env.Provider("TASKGATE_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "TASKGATE_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	// Default values
	if !k.Exists("server.port") {
		k.Set("server.port", 8080)
	}
	if !k.Exists("budget.period_cap_usd") {
		k.Set("budget.period_cap_usd", 50.0)
	}
	if !k.Exists("ratelimit.daily_limit") {
		k.Set("ratelimit.daily_limit", 60)
	}
	if !k.Exists("storage.type") {
		k.Set("storage.type", "memory")
	}
	if !k.Exists("delivery.dedup_ttl_hours") {
		k.Set("delivery.dedup_ttl_hours", 72)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	cfg.Provider.APIKey = substituteEnvVars(cfg.Provider.APIKey)

	return &cfg, nil
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
