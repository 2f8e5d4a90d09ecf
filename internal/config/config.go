package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"hotel-metrics/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Logging  logging.Config `mapstructure:"logging"`
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
	Hotel    HotelConfig    `mapstructure:"hotel"`
	Forecast ForecastConfig `mapstructure:"forecast"`
	Export   ExportConfig   `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// ServerConfig tunes the HTTP listener.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// HotelConfig describes the property the metrics are computed for.
type HotelConfig struct {
	// RoomInventory of zero means the rooms table is counted per request.
	RoomInventory     int      `mapstructure:"room_inventory"`
	Timezone          string   `mapstructure:"timezone"`
	CompletedStatuses []string `mapstructure:"completed_statuses"`
}

// ForecastConfig captures forecasting service connectivity.
type ForecastConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxConcurrency int           `mapstructure:"max_concurrency"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxCategories int `mapstructure:"max_categories"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("HOTELMETRICS")
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
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "hotelmetrics")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "15s")

	v.SetDefault("hotel.room_inventory", 0)
	v.SetDefault("hotel.timezone", "UTC")
	v.SetDefault("hotel.completed_statuses", []string{"completed", "paid"})

	v.SetDefault("forecast.base_url", "http://localhost:5000")
	v.SetDefault("forecast.request_timeout", "10s")
	v.SetDefault("forecast.max_concurrency", 4)
	v.SetDefault("forecast.user_agent", "hotelmetrics/1.0")

	v.SetDefault("export.max_categories", 8)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Hotel.RoomInventory < 0 {
		return fmt.Errorf("hotel.room_inventory cannot be negative")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if len(c.Hotel.CompletedStatuses) == 0 {
		return fmt.Errorf("hotel.completed_statuses must list at least one status")
	}
	if strings.TrimSpace(c.Forecast.BaseURL) == "" {
		return fmt.Errorf("forecast.base_url is required")
	}
	if c.Forecast.RequestTimeout <= 0 {
		return fmt.Errorf("forecast.request_timeout must be greater than zero")
	}
	if c.Forecast.MaxConcurrency <= 0 {
		return fmt.Errorf("forecast.max_concurrency must be greater than zero")
	}
	if c.Export.MaxCategories <= 0 {
		return fmt.Errorf("export.max_categories must be greater than zero")
	}
	return nil
}

// Location resolves hotel.timezone.
func (c *Config) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.Hotel.Timezone)
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("hotel.timezone %q: %w", name, err)
	}
	return loc, nil
}
