package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Kicktipp  KicktippConfig  `yaml:"kicktipp" mapstructure:"kicktipp"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Predict   PredictConfig   `yaml:"predict" mapstructure:"predict"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend shared by the document and
// prediction stores.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// KicktippConfig holds live platform access settings. Scope doubles as the
// partition key for stored documents and predictions.
type KicktippConfig struct {
	BaseURL    string  `yaml:"base_url" mapstructure:"base_url"`
	Scope      string  `yaml:"scope" mapstructure:"scope"`
	LoginToken string  `yaml:"login_token" mapstructure:"login_token"`
	RatePerSec float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// PredictConfig configures prediction and verification behavior.
type PredictConfig struct {
	// ExcludedDocs never trigger staleness (cost-control override).
	ExcludedDocs []string `yaml:"excluded_docs" mapstructure:"excluded_docs"`
	// MaxRepredictions caps the regeneration counter; negative = unlimited.
	MaxRepredictions      int      `yaml:"max_repredictions" mapstructure:"max_repredictions"`
	MaxConcurrentEntities int      `yaml:"max_concurrent_entities" mapstructure:"max_concurrent_entities"`
	EvidenceDocs          []string `yaml:"evidence_docs" mapstructure:"evidence_docs"`
}

// MaxRepredictionsPtr converts the config knob into the sequencer's
// optional ceiling.
func (p PredictConfig) MaxRepredictionsPtr() *int {
	if p.MaxRepredictions < 0 {
		return nil
	}
	max := p.MaxRepredictions
	return &max
}

// ServerConfig configures the report server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("TIPSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "tipsync.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("kicktipp.base_url", "https://www.kicktipp.de")
	v.SetDefault("kicktipp.rate_per_sec", 2.0)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("predict.max_repredictions", -1)
	v.SetDefault("predict.max_concurrent_entities", 4)
	v.SetDefault("predict.evidence_docs", []string{"standings", "recent-form", "news"})

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
