package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Store drivers accepted by StoreConfig.Driver.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPgx      = "pgx"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Config is the process configuration: defaults, then an optional YAML file,
// then PROJECTS_* environment variables.
type Config struct {
	Store StoreConfig `yaml:"store"`
	Redis RedisConfig `yaml:"redis"`
	Cache CacheConfig `yaml:"cache"`
	Log   LogConfig   `yaml:"log"`
	Ops   OpsConfig   `yaml:"ops"`
}

// StoreConfig selects the row store. DSN is a file path for sqlite and a
// connection string for the Postgres drivers; redis uses RedisConfig.
type StoreConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type RedisConfig struct {
	URL          string        `yaml:"url"`
	Prefix       string        `yaml:"prefix"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// CacheConfig bounds each schema's identity cache. Zero means unbounded.
type CacheConfig struct {
	Limit int `yaml:"limit"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// OpsConfig is the ops HTTP listener.
type OpsConfig struct {
	Addr string `yaml:"addr"`
}

// DefaultSQLiteDSN is the directory file used when no store is configured,
// relative to the working directory.
const DefaultSQLiteDSN = "projects.db"

// Default returns the configuration used when nothing overrides it: a SQLite
// file, so the directory survives between CLI invocations.
func Default() Config {
	return Config{
		Store: StoreConfig{Driver: DriverSQLite, DSN: DefaultSQLiteDSN},
		Redis: RedisConfig{
			Prefix:       "projects",
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Log: LogConfig{Level: "info"},
		Ops: OpsConfig{Addr: ":8080"},
	}
}

// Load reads path if it is not empty, applies environment overrides and
// validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("PROJECTS_STORE_DRIVER"); ok {
		c.Store.Driver = v
	}
	if v, ok := lookup("PROJECTS_STORE_DSN"); ok {
		c.Store.DSN = v
	}
	if v, ok := lookup("PROJECTS_REDIS_URL"); ok {
		c.Redis.URL = v
	}
	if v, ok := lookup("PROJECTS_CACHE_LIMIT"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PROJECTS_CACHE_LIMIT: %w", err)
		}
		c.Cache.Limit = n
	}
	if v, ok := lookup("PROJECTS_LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := lookup("PROJECTS_OPS_ADDR"); ok {
		c.Ops.Addr = v
	}
	return nil
}

// Validate reports every problem found, joined.
func (c Config) Validate() error {
	var errs []error
	switch c.Store.Driver {
	case DriverMemory:
	case DriverSQLite, DriverPgx, DriverPostgres:
		if c.Store.DSN == "" {
			errs = append(errs, fmt.Errorf("store driver %s needs a dsn", c.Store.Driver))
		}
	case DriverRedis:
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("store driver redis needs redis.url"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.Store.Driver))
	}
	if c.Cache.Limit < 0 {
		errs = append(errs, errors.New("cache limit cannot be negative"))
	}
	if c.Redis.PoolSize < 0 || c.Redis.MinIdleConns < 0 {
		errs = append(errs, errors.New("redis pool sizes cannot be negative"))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("log level %q: %w", s, err)
	}
	return l, nil
}
