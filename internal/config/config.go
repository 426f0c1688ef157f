package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Rules     RulesConfig     `mapstructure:"rules"`
	Retention RetentionConfig `mapstructure:"retention"`
	Alerts    AlertsConfig    `mapstructure:"alerts"`
	Feed      FeedConfig      `mapstructure:"feed"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

type ServerConfig struct {
	Port      string  `mapstructure:"port"`
	LogLevel  string  `mapstructure:"log_level"`
	RateLimit float64 `mapstructure:"rate_limit"` // events/sec per API key, 0 = unlimited
	RateBurst int     `mapstructure:"rate_burst"`
}

type AuthConfig struct {
	RequireAPIKey bool   `mapstructure:"require_api_key"`
	APIKey        string `mapstructure:"api_key"`
	AdminKey      string `mapstructure:"admin_key"`
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr          string `mapstructure:"addr"`
	Password      string `mapstructure:"password"`
	DB            int    `mapstructure:"db"`
	RecentListKey string `mapstructure:"recent_list_key"`
	RecentListMax int    `mapstructure:"recent_list_max"`
	PubSubChannel string `mapstructure:"pubsub_channel"`
}

type RulesConfig struct {
	// Source selects where active rules are loaded from: "postgres" or "file".
	Source         string        `mapstructure:"source"`
	FilePath       string        `mapstructure:"file_path"`
	ReloadInterval time.Duration `mapstructure:"reload_interval"`
}

type RetentionConfig struct {
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type AlertsConfig struct {
	Email   EmailConfig   `mapstructure:"email"`
	Slack   SlackConfig   `mapstructure:"slack"`
	Webhook WebhookConfig `mapstructure:"webhook"`
	SMS     SMSConfig     `mapstructure:"sms"`

	// Owning collaborators for notify_compliance / create_ticket.
	ComplianceURL string `mapstructure:"compliance_url"`
	TicketingURL  string `mapstructure:"ticketing_url"`
}

type EmailConfig struct {
	Host     string   `mapstructure:"host"`
	Port     int      `mapstructure:"port"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	From     string   `mapstructure:"from"`
	To       []string `mapstructure:"to"`
}

type SlackConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
	Channel    string `mapstructure:"channel"`
}

type WebhookConfig struct {
	URL        string        `mapstructure:"url"`
	AuthToken  string        `mapstructure:"auth_token"`
	MaxRetries int           `mapstructure:"max_retries"`
	Backoff    time.Duration `mapstructure:"backoff"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type SMSConfig struct {
	ProviderURL string   `mapstructure:"provider_url"`
	AccountSID  string   `mapstructure:"account_sid"`
	AuthToken   string   `mapstructure:"auth_token"`
	From        string   `mapstructure:"from"`
	To          []string `mapstructure:"to"`
}

type FeedConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./configs")

	// Environment variables support
	// e.g. AUDITTRAIL_DATABASE_DSN
	viper.SetEnvPrefix("audittrail")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("server.rate_limit", 0)
	viper.SetDefault("server.rate_burst", 100)
	viper.SetDefault("auth.require_api_key", false)
	viper.SetDefault("redis.recent_list_key", "audit_events_recent")
	viper.SetDefault("redis.recent_list_max", 10000)
	viper.SetDefault("redis.pubsub_channel", "audit_events")
	viper.SetDefault("rules.source", "postgres")
	viper.SetDefault("rules.reload_interval", 5*time.Minute)
	viper.SetDefault("retention.sweep_interval", 24*time.Hour)
	viper.SetDefault("alerts.webhook.max_retries", 3)
	viper.SetDefault("alerts.webhook.backoff", time.Second)
	viper.SetDefault("alerts.webhook.timeout", 10*time.Second)
	viper.SetDefault("alerts.email.port", 587)
	viper.SetDefault("feed.buffer_size", 256)
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found, using defaults and env vars")
		} else {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
