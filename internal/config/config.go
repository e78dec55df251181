package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"market-snapshot/internal/logging"
)

// Config aggregates every runtime setting.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Provider  ProviderConfig  `mapstructure:"provider"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Snapshot  SnapshotConfig  `mapstructure:"snapshot"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig identifies the deployment.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// ProviderConfig captures quote provider connectivity.
type ProviderConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	// Retries is the total attempt count per symbol, including the first.
	Retries        int           `mapstructure:"retries"`
	BackoffInitial time.Duration `mapstructure:"backoff_initial"`
	RatePerSec     float64       `mapstructure:"rate_per_sec"`
	Burst          int           `mapstructure:"burst"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// PipelineConfig governs a single snapshot run.
type PipelineConfig struct {
	Concurrency        int           `mapstructure:"concurrency"`
	FreshnessThreshold time.Duration `mapstructure:"freshness_threshold"`
	RunTimeout         time.Duration `mapstructure:"run_timeout"`
}

// SnapshotConfig locates the output document.
type SnapshotConfig struct {
	Path   string `mapstructure:"path"`
	Pretty bool   `mapstructure:"pretty"`
}

// CatalogConfig optionally overrides the built-in instrument universe.
type CatalogConfig struct {
	Tickers []TickerConfig `mapstructure:"tickers"`
}

// TickerConfig describes one configured instrument.
type TickerConfig struct {
	Symbol  string `mapstructure:"symbol"`
	Label   string `mapstructure:"label"`
	Section string `mapstructure:"section"`
	Unit    string `mapstructure:"unit"`
}

// SchedulerConfig governs the watch-mode cadence.
type SchedulerConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	AlignToStart bool          `mapstructure:"align_to_start"`
	StartupDelay time.Duration `mapstructure:"startup_delay"`
	SkipWeekends bool          `mapstructure:"skip_weekends"`
}

// AlertingConfig defines run degradation alerting.
type AlertingConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// MinFailures is the number of failed fetches that makes a run worth
	// alerting about.
	MinFailures int            `mapstructure:"min_failures"`
	Telegram    TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig describes Telegram delivery parameters.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// ExportConfig carries defaults for the export command.
type ExportConfig struct {
	ChartSection string `mapstructure:"chart_section"`
}

// Load builds configuration from file, environment, and defaults. A local
// .env file is folded into the environment first, real variables win.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("MARKETSNAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// readConfig tolerates a missing file: defaults plus environment are a
// complete configuration on their own.
func readConfig(v *viper.Viper) error {
	err := v.ReadInConfig()
	if err == nil {
		return nil
	}
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return nil
	}
	return fmt.Errorf("read config: %w", err)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "marketsnap")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("provider.base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("provider.request_timeout", "10s")
	v.SetDefault("provider.retries", 2)
	v.SetDefault("provider.backoff_initial", "500ms")
	v.SetDefault("provider.rate_per_sec", 5.0)
	v.SetDefault("provider.burst", 5)
	v.SetDefault("provider.user_agent", "marketsnap/1.0")

	v.SetDefault("pipeline.concurrency", 8)
	v.SetDefault("pipeline.freshness_threshold", "72h")
	v.SetDefault("pipeline.run_timeout", "4m")

	v.SetDefault("snapshot.path", "data/data.json")
	v.SetDefault("snapshot.pretty", true)

	v.SetDefault("scheduler.interval", "24h")
	v.SetDefault("scheduler.align_to_start", true)
	v.SetDefault("scheduler.startup_delay", "0s")
	v.SetDefault("scheduler.skip_weekends", true)

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.min_failures", 1)
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("export.chart_section", "etfs")
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Provider.BaseURL == "" {
		return fmt.Errorf("provider.base_url must be set")
	}
	if c.Provider.RequestTimeout <= 0 {
		return fmt.Errorf("provider.request_timeout must be positive")
	}
	if c.Provider.Retries < 1 {
		return fmt.Errorf("provider.retries must be at least 1")
	}
	if c.Provider.RatePerSec < 0 {
		return fmt.Errorf("provider.rate_per_sec cannot be negative")
	}
	if c.Pipeline.Concurrency <= 0 {
		return fmt.Errorf("pipeline.concurrency must be positive")
	}
	if c.Pipeline.FreshnessThreshold <= 0 {
		return fmt.Errorf("pipeline.freshness_threshold must be positive")
	}
	if c.Snapshot.Path == "" {
		return fmt.Errorf("snapshot.path must be set")
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be positive")
	}
	if c.Alerting.MinFailures < 1 {
		return fmt.Errorf("alerting.min_failures must be at least 1")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token must be set")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id must be set")
		}
	}
	return nil
}

// ResolveChartSection returns either the CLI override or config default.
func (c *Config) ResolveChartSection(override string) string {
	if override != "" {
		return override
	}
	return c.Export.ChartSection
}
