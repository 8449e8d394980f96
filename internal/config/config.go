package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	API           APIConfig           `mapstructure:"api"`
	Anthropic     AnthropicConfig     `mapstructure:"anthropic"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Executor      ExecutorConfig      `mapstructure:"executor"`
	Generation    GenerationConfig    `mapstructure:"generation"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Logging       LoggingConfig       `mapstructure:"logging"`
}

// APIConfig holds persistence-service settings
type APIConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	AuthToken string `mapstructure:"auth_token"`
	UserID    string `mapstructure:"user_id"`
	TeamID    string `mapstructure:"team_id"` // optional shared workspace
}

// AnthropicConfig holds Claude API settings for the built-in generation path
type AnthropicConfig struct {
	APIKey    string `mapstructure:"api_key"`
	Model     string `mapstructure:"model"`
	MaxTokens int    `mapstructure:"max_tokens"`
	BatchSize int    `mapstructure:"batch_size"`
}

// CacheConfig holds device-local cache settings
type CacheConfig struct {
	DSN string        `mapstructure:"dsn"`
	TTL time.Duration `mapstructure:"ttl"`
}

// ExecutorConfig holds resilient-request settings
type ExecutorConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
	Backoff time.Duration `mapstructure:"backoff"`
	Retries int           `mapstructure:"retries"`
}

// GenerationConfig holds content-generation settings. A non-blank webhook
// URL switches generation to the external path.
type GenerationConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
	Language   string `mapstructure:"language"`
	BrandVoice string `mapstructure:"brand_voice"`
}

// NotificationsConfig holds the notifier daemon's loop settings. The
// per-user enable flag and threshold live on the remote preference store.
type NotificationsConfig struct {
	Interval  time.Duration `mapstructure:"interval"`
	SweepCron string        `mapstructure:"sweep_cron"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json or console
	Output string `mapstructure:"output"` // stdout or file path
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	// Load .env file if present (ignore errors if not found)
	_ = godotenv.Load()
	_ = godotenv.Load(".env.local")

	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config in current directory and configs folder
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")

		// Also check user's home directory
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".contentplan-agent"))
		}
	}

	// Environment variables
	v.SetEnvPrefix("CONTENTPLAN")
	v.AutomaticEnv()

	// Explicit bindings for nested keys (Viper doesn't auto-bind underscored nested keys)
	v.BindEnv("api.base_url", "CONTENTPLAN_API_BASE_URL")
	v.BindEnv("api.auth_token", "CONTENTPLAN_API_AUTH_TOKEN")
	v.BindEnv("api.user_id", "CONTENTPLAN_API_USER_ID")
	v.BindEnv("api.team_id", "CONTENTPLAN_API_TEAM_ID")
	v.BindEnv("anthropic.api_key", "CONTENTPLAN_ANTHROPIC_API_KEY")
	v.BindEnv("cache.dsn", "CONTENTPLAN_CACHE_DSN")
	v.BindEnv("generation.webhook_url", "CONTENTPLAN_GENERATION_WEBHOOK_URL")
	v.BindEnv("generation.brand_voice", "CONTENTPLAN_GENERATION_BRAND_VOICE")

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Anthropic defaults
	v.SetDefault("anthropic.model", "claude-sonnet-4-20250514")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("anthropic.batch_size", 5)

	// Cache defaults
	v.SetDefault("cache.dsn", "./data/contentplan-cache.db")
	v.SetDefault("cache.ttl", "5m")

	// Executor defaults
	v.SetDefault("executor.timeout", "60s")
	v.SetDefault("executor.backoff", "2s")
	v.SetDefault("executor.retries", 1)

	// Generation defaults
	v.SetDefault("generation.language", "en")
	v.SetDefault("generation.brand_voice", "Clear, useful and human. No hype, no filler.")

	// Notifications defaults
	v.SetDefault("notifications.interval", "60s")
	v.SetDefault("notifications.sweep_cron", "*/10 * * * *") // Every 10 minutes

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stdout")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if c.API.UserID == "" {
		return fmt.Errorf("api.user_id is required")
	}
	if c.Generation.WebhookURL == "" && c.Anthropic.APIKey == "" {
		return fmt.Errorf("anthropic.api_key is required when no generation webhook is configured")
	}
	return nil
}
