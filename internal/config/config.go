package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env       string          `mapstructure:"env"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type ProvidersConfig struct {
	PageSpeed PageSpeedConfig `mapstructure:"pagespeed"`
	Whois     WhoisConfig     `mapstructure:"whois"`
	Trust     TrustConfig     `mapstructure:"trust"`
	Uptime    UptimeConfig    `mapstructure:"uptime"`
}

type PageSpeedConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	BaseURL       string        `mapstructure:"base_url"`
	APIKey        string        `mapstructure:"api_key"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RatePerMinute int           `mapstructure:"rate_per_minute"`
}

type WhoisConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	BaseURL    string        `mapstructure:"base_url"`
	HistoryURL string        `mapstructure:"history_url"`
	APIKey     string        `mapstructure:"api_key"`
	Timeout    time.Duration `mapstructure:"timeout"`
	CacheTTL   time.Duration `mapstructure:"cache_ttl"`
	CacheSize  int           `mapstructure:"cache_size"`
}

type TrustConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Timeout time.Duration `mapstructure:"timeout"`
	TLSPort int           `mapstructure:"tls_port"`
}

type UptimeConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Timeout      time.Duration `mapstructure:"timeout"`
	Samples      int           `mapstructure:"samples"`
	Interval     time.Duration `mapstructure:"interval"`
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`
}

// Burst is the worst-case length of one uptime probe burst: every sample
// running into probe_timeout.
func (u UptimeConfig) Burst() time.Duration {
	if u.Samples <= 0 {
		return 0
	}
	return time.Duration(u.Samples)*u.ProbeTimeout + time.Duration(u.Samples-1)*u.Interval
}

type AnalysisConfig struct {
	BatchConcurrency int `mapstructure:"batch_concurrency"`
	MaxBatchSize     int `mapstructure:"max_batch_size"`
}

type SchedulerConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Workers   int           `mapstructure:"workers"`
	QueueSize int           `mapstructure:"queue_size"`
	Tick      time.Duration `mapstructure:"tick"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// Load reads defaults, then config/local.yaml (or path when given), then
// the environment. Nested keys map to env vars with "." replaced by "_",
// e.g. PROVIDERS_PAGESPEED_API_KEY.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("local")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "local")

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("database.path", "domainreport.db")

	v.SetDefault("providers.pagespeed.enabled", true)
	v.SetDefault("providers.pagespeed.base_url", "https://www.googleapis.com/pagespeedonline/v5")
	v.SetDefault("providers.pagespeed.api_key", "")
	v.SetDefault("providers.pagespeed.timeout", "60s")
	v.SetDefault("providers.pagespeed.rate_per_minute", 60)

	v.SetDefault("providers.whois.enabled", true)
	v.SetDefault("providers.whois.base_url", "https://www.whoisxmlapi.com/whoisserver/WhoisService")
	v.SetDefault("providers.whois.history_url", "https://whois-history.whoisxmlapi.com/api/v1")
	v.SetDefault("providers.whois.api_key", "")
	v.SetDefault("providers.whois.timeout", "10s")
	v.SetDefault("providers.whois.cache_ttl", "24h")
	v.SetDefault("providers.whois.cache_size", 1000)

	v.SetDefault("providers.trust.enabled", true)
	v.SetDefault("providers.trust.timeout", "10s")
	v.SetDefault("providers.trust.tls_port", 443)

	v.SetDefault("providers.uptime.enabled", true)
	v.SetDefault("providers.uptime.timeout", "10s")
	v.SetDefault("providers.uptime.samples", 3)
	v.SetDefault("providers.uptime.interval", "500ms")
	v.SetDefault("providers.uptime.probe_timeout", "2s")

	v.SetDefault("analysis.batch_concurrency", 4)
	v.SetDefault("analysis.max_batch_size", 50)

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.workers", 4)
	v.SetDefault("scheduler.queue_size", 100)
	v.SetDefault("scheduler.tick", "30s")

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "domain-reports")
}

func (c *Config) Validate() error {
	timeouts := map[string]time.Duration{
		"providers.pagespeed.timeout": c.Providers.PageSpeed.Timeout,
		"providers.whois.timeout":     c.Providers.Whois.Timeout,
		"providers.trust.timeout":     c.Providers.Trust.Timeout,
		"providers.uptime.timeout":    c.Providers.Uptime.Timeout,
	}
	for key, d := range timeouts {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", key, d)
		}
	}
	if c.Providers.Uptime.Samples <= 0 {
		return fmt.Errorf("providers.uptime.samples must be positive, got %d", c.Providers.Uptime.Samples)
	}
	if burst := c.Providers.Uptime.Burst(); c.Providers.Uptime.Enabled && burst >= c.Providers.Uptime.Timeout {
		return fmt.Errorf("providers.uptime: %d samples need up to %s, which does not fit in timeout %s",
			c.Providers.Uptime.Samples, burst, c.Providers.Uptime.Timeout)
	}
	if c.Scheduler.Workers <= 0 {
		return fmt.Errorf("scheduler.workers must be positive, got %d", c.Scheduler.Workers)
	}
	return nil
}

// KafkaEnabled reports whether reports should be published.
func (c *Config) KafkaEnabled() bool {
	return len(c.Kafka.Brokers) > 0 && c.Kafka.Topic != ""
}
