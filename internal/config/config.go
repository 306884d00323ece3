package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Shopify ShopifyConfig `yaml:"shopify" mapstructure:"shopify"`
	Source  SourceConfig  `yaml:"source" mapstructure:"source"`
	Sync    SyncConfig    `yaml:"sync" mapstructure:"sync"`
	Dedupe  DedupeConfig  `yaml:"dedupe" mapstructure:"dedupe"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// ShopifyConfig holds Shopify Admin API credentials and endpoints.
type ShopifyConfig struct {
	StoreDomain  string  `yaml:"store_domain" mapstructure:"store_domain"`
	AccessToken  string  `yaml:"access_token" mapstructure:"access_token"`
	APIVersion   string  `yaml:"api_version" mapstructure:"api_version"`
	LocationID   string  `yaml:"location_id" mapstructure:"location_id"`
	RateLimitRPS float64 `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	TimeoutSecs  int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// SourceConfig configures the source-site scrape.
type SourceConfig struct {
	File        string `yaml:"file" mapstructure:"file"`
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// SyncConfig configures the catalog sync pipeline.
type SyncConfig struct {
	IdentityFile     string `yaml:"identity_file" mapstructure:"identity_file"`
	BatchFile        string `yaml:"batch_file" mapstructure:"batch_file"`
	SkipLogFile      string `yaml:"skip_log_file" mapstructure:"skip_log_file"`
	PollIntervalSecs int    `yaml:"poll_interval_secs" mapstructure:"poll_interval_secs"`
}

// DedupeConfig configures the duplicate-resolver pipeline.
type DedupeConfig struct {
	CandidatesFile  string `yaml:"candidates_file" mapstructure:"candidates_file"`
	DeletionLogFile string `yaml:"deletion_log_file" mapstructure:"deletion_log_file"`
	CheckpointEvery int    `yaml:"checkpoint_every" mapstructure:"checkpoint_every"`
}

// StoreConfig configures the run-history database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the status server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// PollInterval returns the admission-gate poll interval as a duration.
func (c SyncConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSecs) * time.Second
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CATALOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Credential keys get empty defaults so AutomaticEnv can
	// populate them without a config file entry.
	v.SetDefault("shopify.store_domain", "")
	v.SetDefault("shopify.access_token", "")
	v.SetDefault("shopify.location_id", "")
	v.SetDefault("shopify.api_version", "2024-10")
	v.SetDefault("shopify.rate_limit_rps", 2.0)
	v.SetDefault("shopify.timeout_secs", 30)
	v.SetDefault("source.file", "sources.yaml")
	v.SetDefault("source.user_agent", "Mozilla/5.0 (compatible; CatalogBot/1.0)")
	v.SetDefault("source.timeout_secs", 30)
	v.SetDefault("sync.identity_file", "processed_products.json")
	v.SetDefault("sync.batch_file", "products.jsonl")
	v.SetDefault("sync.skip_log_file", "skipped_products.log")
	v.SetDefault("sync.poll_interval_secs", 120)
	v.SetDefault("dedupe.candidates_file", "products_to_delete.json")
	v.SetDefault("dedupe.deletion_log_file", "deletion_log.json")
	v.SetDefault("dedupe.checkpoint_every", 50)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "catalog-cli.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
