package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/irfndi/skupulse/internal/utils"
)

type Config struct {
	Environment string          `mapstructure:"environment"`
	LogLevel    string          `mapstructure:"log_level"`
	Server      ServerConfig    `mapstructure:"server"`
	Database    DatabaseConfig  `mapstructure:"database"`
	Redis       RedisConfig     `mapstructure:"redis"`
	Cache       CacheConfig     `mapstructure:"cache"`
	Telegram    TelegramConfig  `mapstructure:"telegram"`
	Security    SecurityConfig  `mapstructure:"security"`
	Telemetry   TelemetryConfig `mapstructure:"telemetry"`
	Signals     SignalsConfig   `mapstructure:"signals"`
	Hourly      HourlyConfig    `mapstructure:"hourly"`
	Reference   ReferenceConfig `mapstructure:"reference"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type DatabaseConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	DBName      string `mapstructure:"dbname"`
	SSLMode     string `mapstructure:"sslmode"`
	DatabaseURL string `mapstructure:"database_url"`
	MaxConns    int    `mapstructure:"max_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	TTL     string `mapstructure:"ttl"`
}

// TelegramConfig drives the manager digest. An empty BotToken disables it.
type TelegramConfig struct {
	BotToken       string  `mapstructure:"bot_token"`
	ChatIDs        []int64 `mapstructure:"chat_ids"`
	DigestInterval string  `mapstructure:"digest_interval"`
}

type SecurityConfig struct {
	// JWTSecret enables bearer auth on /api/v1 when set.
	JWTSecret string `mapstructure:"jwt_secret" json:"-" yaml:"-"`
}

type TelemetryConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	Exporter       string  `mapstructure:"exporter"`
	OTLPEndpoint   string  `mapstructure:"otlp_endpoint"`
	ServiceName    string  `mapstructure:"service_name"`
	ServiceVersion string  `mapstructure:"service_version"`
	SampleRate     float64 `mapstructure:"sample_rate"`
}

// SignalsConfig holds the rule thresholds of the signal classifier.
// Percentages are expressed in percent points (30 means 30%).
type SignalsConfig struct {
	OOSSoonDays             float64 `mapstructure:"oos_soon_days"`
	OverstockDays           float64 `mapstructure:"overstock_days"`
	HighDRRPct              float64 `mapstructure:"high_drr_pct"`
	LowCTRRatio             float64 `mapstructure:"low_ctr_ratio"`
	LowCROrderPct           float64 `mapstructure:"low_cr_order_pct"`
	LowBuyoutPct            float64 `mapstructure:"low_buyout_pct"`
	AboveMarketMarginPoints float64 `mapstructure:"above_market_margin_points"`
	AboveMarketRevenueRatio float64 `mapstructure:"above_market_revenue_ratio"`
	FallingSalesWindow      int     `mapstructure:"falling_sales_window"`
	FallingSalesDropPct     float64 `mapstructure:"falling_sales_drop_pct"`
}

type HourlyConfig struct {
	AmountFields   []string `mapstructure:"amount_fields"`
	Timezone       string   `mapstructure:"timezone"`
	StaleAfterDays int      `mapstructure:"stale_after_days"`
	LookbackDays   int      `mapstructure:"lookback_days"`
}

// ReferenceConfig selects where the SKU reference dataset comes from.
type ReferenceConfig struct {
	Source string `mapstructure:"source"` // "database" or "file"
	Path   string `mapstructure:"path"`
}

func Load() (*Config, error) {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	// Set default values
	setDefaults()

	// Enable environment variable support
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Bind specific environment variables
	if err := viper.BindEnv("security.jwt_secret", "JWT_SECRET"); err != nil {
		return nil, fmt.Errorf("failed to bind JWT_SECRET environment variable: %w", err)
	}
	if err := viper.BindEnv("telegram.bot_token", "TELEGRAM_BOT_TOKEN"); err != nil {
		return nil, fmt.Errorf("failed to bind TELEGRAM_BOT_TOKEN environment variable: %w", err)
	}

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, &utils.ConfigurationError{Message: err.Error()}
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, &utils.ConfigurationError{Message: err.Error()}
	}

	config.Environment = strings.ToLower(config.Environment)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks every threshold and duration. It returns a
// *utils.ConfigurationError naming the first offending key.
func (c *Config) Validate() error {
	if err := c.Signals.Validate(); err != nil {
		return err
	}
	if err := c.Hourly.Validate(); err != nil {
		return err
	}
	if c.Cache.TTL != "" {
		if _, err := time.ParseDuration(c.Cache.TTL); err != nil {
			return utils.NewConfigurationErrorf("cache.ttl", "invalid duration: %v", err)
		}
	}
	if c.Telegram.DigestInterval != "" {
		if _, err := time.ParseDuration(c.Telegram.DigestInterval); err != nil {
			return utils.NewConfigurationErrorf("telegram.digest_interval", "invalid duration: %v", err)
		}
	}
	switch c.Reference.Source {
	case "database":
	case "file":
		if c.Reference.Path == "" {
			return utils.NewConfigurationErrorf("reference.path", "required when reference.source is file")
		}
	default:
		return utils.NewConfigurationErrorf("reference.source", "must be database or file, got %q", c.Reference.Source)
	}
	if c.Environment == "production" && c.Security.JWTSecret == "" {
		return utils.NewConfigurationErrorf("security.jwt_secret", "JWT_SECRET is required in production")
	}
	return nil
}

// Validate checks the classifier thresholds.
func (s SignalsConfig) Validate() error {
	positive := []struct {
		key   string
		value float64
	}{
		{"signals.oos_soon_days", s.OOSSoonDays},
		{"signals.overstock_days", s.OverstockDays},
		{"signals.high_drr_pct", s.HighDRRPct},
		{"signals.low_ctr_ratio", s.LowCTRRatio},
		{"signals.low_cr_order_pct", s.LowCROrderPct},
		{"signals.low_buyout_pct", s.LowBuyoutPct},
		{"signals.above_market_revenue_ratio", s.AboveMarketRevenueRatio},
		{"signals.falling_sales_drop_pct", s.FallingSalesDropPct},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return utils.NewConfigurationErrorf(p.key, "must be positive, got %v", p.value)
		}
	}
	if s.AboveMarketMarginPoints < 0 {
		return utils.NewConfigurationErrorf("signals.above_market_margin_points", "must not be negative, got %v", s.AboveMarketMarginPoints)
	}
	if s.OOSSoonDays >= s.OverstockDays {
		return utils.NewConfigurationErrorf("signals.oos_soon_days", "must be below overstock_days (%v >= %v)", s.OOSSoonDays, s.OverstockDays)
	}
	if s.LowCTRRatio >= 1 {
		return utils.NewConfigurationErrorf("signals.low_ctr_ratio", "must be below 1, got %v", s.LowCTRRatio)
	}
	if s.FallingSalesDropPct >= 100 {
		return utils.NewConfigurationErrorf("signals.falling_sales_drop_pct", "must be below 100, got %v", s.FallingSalesDropPct)
	}
	if s.FallingSalesWindow < 1 {
		return utils.NewConfigurationErrorf("signals.falling_sales_window", "must be at least 1, got %d", s.FallingSalesWindow)
	}
	return nil
}

// Validate checks the comparator settings.
func (h HourlyConfig) Validate() error {
	if len(h.AmountFields) == 0 {
		return utils.NewConfigurationErrorf("hourly.amount_fields", "at least one amount field is required")
	}
	for _, f := range h.AmountFields {
		if strings.TrimSpace(f) == "" || f == "date" {
			return utils.NewConfigurationErrorf("hourly.amount_fields", "invalid field name %q", f)
		}
	}
	if _, err := time.LoadLocation(h.Timezone); err != nil {
		return utils.NewConfigurationErrorf("hourly.timezone", "unknown time zone %q", h.Timezone)
	}
	if h.StaleAfterDays < 0 {
		return utils.NewConfigurationErrorf("hourly.stale_after_days", "must not be negative, got %d", h.StaleAfterDays)
	}
	if h.LookbackDays < 2 {
		return utils.NewConfigurationErrorf("hourly.lookback_days", "must be at least 2, got %d", h.LookbackDays)
	}
	return nil
}

// Location returns the comparator time zone. Validate has already checked it.
func (h HourlyConfig) Location() *time.Location {
	loc, err := time.LoadLocation(h.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// CacheTTL parses the cache TTL, falling back to 5 minutes.
func (c CacheConfig) CacheTTL() time.Duration {
	d, err := time.ParseDuration(c.TTL)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

// DefaultSignalsConfig mirrors the defaults applied by Load.
func DefaultSignalsConfig() SignalsConfig {
	return SignalsConfig{
		OOSSoonDays:             7,
		OverstockDays:           90,
		HighDRRPct:              30,
		LowCTRRatio:             0.5,
		LowCROrderPct:           1,
		LowBuyoutPct:            50,
		AboveMarketMarginPoints: 10,
		AboveMarketRevenueRatio: 2,
		FallingSalesWindow:      3,
		FallingSalesDropPct:     30,
	}
}

// DefaultHourlyConfig mirrors the defaults applied by Load.
func DefaultHourlyConfig() HourlyConfig {
	return HourlyConfig{
		AmountFields:   []string{"finishedPrice", "priceWithDisc", "totalPrice"},
		Timezone:       "Europe/Moscow",
		StaleAfterDays: 1,
		LookbackDays:   3,
	}
}

func setDefaults() {
	// Environment
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	// Server
	viper.SetDefault("server.port", 8080)

	// Database
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "skupulse")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.database_url", "")
	viper.SetDefault("database.max_conns", 10)

	// Redis
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Cache
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.ttl", "5m")

	// Telegram
	viper.SetDefault("telegram.bot_token", "")
	viper.SetDefault("telegram.chat_ids", []int64{})
	viper.SetDefault("telegram.digest_interval", "24h")

	// Security
	viper.SetDefault("security.jwt_secret", "")

	// Telemetry
	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.exporter", "stdout")
	viper.SetDefault("telemetry.otlp_endpoint", "localhost:4318")
	viper.SetDefault("telemetry.service_name", "skupulse")
	viper.SetDefault("telemetry.service_version", "1.0.0")
	viper.SetDefault("telemetry.sample_rate", 1.0)

	// Signals
	signals := DefaultSignalsConfig()
	viper.SetDefault("signals.oos_soon_days", signals.OOSSoonDays)
	viper.SetDefault("signals.overstock_days", signals.OverstockDays)
	viper.SetDefault("signals.high_drr_pct", signals.HighDRRPct)
	viper.SetDefault("signals.low_ctr_ratio", signals.LowCTRRatio)
	viper.SetDefault("signals.low_cr_order_pct", signals.LowCROrderPct)
	viper.SetDefault("signals.low_buyout_pct", signals.LowBuyoutPct)
	viper.SetDefault("signals.above_market_margin_points", signals.AboveMarketMarginPoints)
	viper.SetDefault("signals.above_market_revenue_ratio", signals.AboveMarketRevenueRatio)
	viper.SetDefault("signals.falling_sales_window", signals.FallingSalesWindow)
	viper.SetDefault("signals.falling_sales_drop_pct", signals.FallingSalesDropPct)

	// Hourly comparison
	hourly := DefaultHourlyConfig()
	viper.SetDefault("hourly.amount_fields", hourly.AmountFields)
	viper.SetDefault("hourly.timezone", hourly.Timezone)
	viper.SetDefault("hourly.stale_after_days", hourly.StaleAfterDays)
	viper.SetDefault("hourly.lookback_days", hourly.LookbackDays)

	// Reference dataset
	viper.SetDefault("reference.source", "database")
	viper.SetDefault("reference.path", "")
}
