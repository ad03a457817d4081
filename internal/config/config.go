package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is prepended by envconfig when resolving bare field names.
const EnvPrefix = "EBILLING"

type Config struct {
	HTTP HTTPConfig
	DB   DBConfig
	Log  LogConfig
	Doc  DocConfig
	Cron CronConfig
}

// Load builds the configuration from EBILLING_* environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

type HTTPConfig struct {
	Addr            string        `envconfig:"EBILLING_HTTP_ADDR" default:":8080"`
	ReadTimeout     time.Duration `envconfig:"EBILLING_HTTP_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"EBILLING_HTTP_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"EBILLING_HTTP_SHUTDOWN_TIMEOUT" default:"10s"`
}

type DBConfig struct {
	Driver string `envconfig:"EBILLING_DB_DRIVER" default:"sqlite"`
	DSN    string `envconfig:"EBILLING_DB_DSN" default:"ebilling.db"`
}

type LogConfig struct {
	Level  string `envconfig:"EBILLING_LOG_LEVEL" default:"info"`
	Format string `envconfig:"EBILLING_LOG_FORMAT" default:"json"`
}

// DocConfig locates rendered bill documents and tariff schedule inputs.
type DocConfig struct {
	OutputDir       string `envconfig:"EBILLING_BILLS_DIR" default:"bills"`
	TariffSchedule  string `envconfig:"EBILLING_TARIFF_SCHEDULE_PDF" default:""`
	UtilityName     string `envconfig:"EBILLING_UTILITY_NAME" default:"NED University Utility Office"`
	UtilityUnitName string `envconfig:"EBILLING_UTILITY_UNIT" default:"Electric Billing Section"`
}

type CronConfig struct {
	Enabled  bool   `envconfig:"EBILLING_CRON_ENABLED" default:"false"`
	Schedule string `envconfig:"EBILLING_CRON_SCHEDULE" default:"@daily"`
}
