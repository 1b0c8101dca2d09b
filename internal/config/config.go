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
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Notion    NotionConfig    `yaml:"notion" mapstructure:"notion"`
	Research  ResearchConfig  `yaml:"research" mapstructure:"research"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key              string `yaml:"key" mapstructure:"key"`
	Model            string `yaml:"model" mapstructure:"model"`
	MaxTokens        int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
	WebSearchMaxUses int64  `yaml:"web_search_max_uses" mapstructure:"web_search_max_uses"`
}

// NotionConfig holds the Notion integration token and target identifiers.
type NotionConfig struct {
	Token         string `yaml:"token" mapstructure:"token"`
	DatabaseID    string `yaml:"database_id" mapstructure:"database_id"`
	SummaryPageID string `yaml:"summary_page_id" mapstructure:"summary_page_id"`
}

// ResearchConfig configures the research pipeline.
type ResearchConfig struct {
	OutputDir      string `yaml:"output_dir" mapstructure:"output_dir"`
	CompanyContext string `yaml:"company_context" mapstructure:"company_context"`
	SchemaPath     string `yaml:"schema_path" mapstructure:"schema_path"`
	Concurrency    int    `yaml:"concurrency" mapstructure:"concurrency"`
	LookbackDays   int    `yaml:"lookback_days" mapstructure:"lookback_days"`
	MaxAttempts    int    `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// StoreConfig configures the run-ledger backend.
type StoreConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"`
	DSN    string `yaml:"dsn" mapstructure:"dsn"`
}

// ServerConfig configures the webhook server.
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
	v.SetEnvPrefix("COMPINTEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "compintel.db")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 8192)
	v.SetDefault("anthropic.web_search_max_uses", 8)
	// Credentials and overrides have no meaningful default, but the keys
	// must be registered for environment-only values to unmarshal.
	v.SetDefault("anthropic.key", "")
	v.SetDefault("notion.token", "")
	v.SetDefault("notion.database_id", "")
	v.SetDefault("notion.summary_page_id", "")
	v.SetDefault("research.company_context", "")
	v.SetDefault("research.schema_path", "")
	v.SetDefault("research.output_dir", "competitor_research_json")
	v.SetDefault("research.concurrency", 5)
	v.SetDefault("research.lookback_days", 30)
	v.SetDefault("research.max_attempts", 3)

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

// ValidateResearch checks the prerequisites for research/update commands.
// Missing credentials are fatal at the entry point, never a silent skip.
func (c *Config) ValidateResearch() error {
	if c.Anthropic.Key == "" {
		return eris.New("config: anthropic.key is required (COMPINTEL_ANTHROPIC_KEY)")
	}
	return nil
}

// ValidatePublish checks the prerequisites for publishing to Notion.
func (c *Config) ValidatePublish() error {
	switch {
	case c.Notion.Token == "":
		return eris.New("config: notion.token is required (COMPINTEL_NOTION_TOKEN)")
	case c.Notion.DatabaseID == "":
		return eris.New("config: notion.database_id is required (COMPINTEL_NOTION_DATABASE_ID)")
	case c.Notion.SummaryPageID == "":
		return eris.New("config: notion.summary_page_id is required (COMPINTEL_NOTION_SUMMARY_PAGE_ID)")
	}
	return nil
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
