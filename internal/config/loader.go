package config

import (
	"os"
	"time"
	_ "time/tzdata" // Europe/Paris on images without zoneinfo

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "pipeline.yaml"

// EnvPrefix prefixes every environment variable read by Load (PIPELINE_POSTGRES_DSN, ...).
const EnvPrefix = "pipeline"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
func Load() (*Config, error) {
	path := DefaultConfigFile
	if p := os.Getenv("PIPELINE_CONFIG"); p != "" {
		path = p
	}
	return LoadFrom(path)
}

// LoadFrom loads the YAML file at yamlPath (optional) over the defaults and
// then overlays the environment.
func LoadFrom(yamlPath string) (*Config, error) {
	// .env is optional, real environment always wins over it.
	_ = godotenv.Load()

	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, errors.Wrap(err, "config yaml")
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, errors.Wrap(err, "config env")
	}

	if err := validate(&cfg); err != nil {
		return nil, errors.Wrap(err, "config validate")
	}

	return &cfg, nil
}

// loadYAML unmarshals the file over cfg. A missing file is not an error.
func loadYAML(cfg *Config, path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied path
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "read %s", path)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return errors.Wrapf(err, "parse %s", path)
	}
	return nil
}

func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Server.RateLimit < 1 {
		return errors.New("server.rate_limit must be >= 1")
	}
	if _, err := time.LoadLocation(cfg.Server.Timezone); err != nil {
		return errors.Wrapf(err, "server.timezone %q", cfg.Server.Timezone)
	}
	switch cfg.Storage.Driver {
	case DriverPostgres:
		if cfg.Postgres.DSN == "" {
			return errors.New("postgres.dsn is required for the postgres driver")
		}
		if cfg.Postgres.MaxOpenConns < 1 {
			return errors.New("postgres.max_open_conns must be >= 1")
		}
	case DriverMemory:
	default:
		return errors.Errorf("storage.driver %q is not supported", cfg.Storage.Driver)
	}
	switch cfg.Notifications.Mode {
	case NotifyDirect:
	case NotifyQueue:
		if cfg.RabbitMQ.URL == "" {
			return errors.New("notifications.mode=queue requires rabbitmq.url")
		}
	default:
		return errors.Errorf("notifications.mode %q is not supported", cfg.Notifications.Mode)
	}
	if cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	if cfg.Sweep.Enabled && (cfg.Sweep.Interval <= 0 || cfg.Sweep.Threshold <= 0) {
		return errors.New("sweep.interval and sweep.threshold must be positive")
	}
	if cfg.Billing.BaseURL == "" && !cfg.Billing.Sandbox {
		return errors.New("billing.base_url is required unless billing.sandbox is set")
	}
	return nil
}
