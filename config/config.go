package config

import (
	"errors"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type HTTP struct {
	Addr string `yaml:"addr"`
}

type Logging struct {
	Env       string `yaml:"env"`       // dev|stage|prod
	Service   string `yaml:"service"`   // presence-service
	Version   string `yaml:"version"`   // v0.1.0
	Backend   string `yaml:"backend"`   // std|zap
	AddSource bool   `yaml:"addSource"` // false|true
	Debug     bool   `yaml:"debug"`     // false|true
}

type Storage struct {
	Backend string `yaml:"backend"` // postgres|memory
}

type Postgres struct {
	DSN string `yaml:"dsn"`
}

type Bus struct {
	Backend string `yaml:"backend"` // memory|redis
}

type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type Auth struct {
	Secret    string `yaml:"secret"`
	Issuer    string `yaml:"issuer"`
	ClockSkew string `yaml:"clockSkew"` // "1m", "30s"
}

func (a Auth) Skew() time.Duration {
	return parseDurationOr(time.Minute, a.ClockSkew)
}

type Config struct {
	HTTP     HTTP     `yaml:"http"`
	Logging  Logging  `yaml:"logging"`
	Storage  Storage  `yaml:"storage"`
	Postgres Postgres `yaml:"postgres"`
	Bus      Bus      `yaml:"bus"`
	Redis    Redis    `yaml:"redis"`
	Auth     Auth     `yaml:"auth"`
}

func LoadConfig() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "./config/config.yaml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTP.Addr == "" {
		return errors.New("http.addr is required")
	}
	if c.Auth.Secret == "" {
		return errors.New("auth.secret is required")
	}

	// дефолты
	if c.Storage.Backend == "" {
		c.Storage.Backend = "postgres"
	}
	if c.Storage.Backend == "postgres" && c.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required for storage.backend=postgres")
	}
	if c.Bus.Backend == "" {
		c.Bus.Backend = "memory"
	}
	if c.Bus.Backend == "redis" && c.Redis.Addr == "" {
		return errors.New("redis.addr is required for bus.backend=redis")
	}
	if c.Logging.Service == "" {
		c.Logging.Service = "presence-service"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}
	if c.Logging.Backend == "" {
		c.Logging.Backend = "std"
	}

	return nil
}

// helper для парсинга timeout-ов
func parseDurationOr(def time.Duration, s string) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return def
}
