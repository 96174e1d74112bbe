// Package config loads wallet configuration from defaults, an optional YAML
// file and CERTWALLET_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix namespaces environment overrides. Nested keys are separated by a
// double underscore: CERTWALLET_FETCH__MAX_BYTES sets fetch.max_bytes.
const EnvPrefix = "CERTWALLET_"

// Store drivers.
const (
	StoreFile     = "file"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Issuer cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

type Config struct {
	Server     Server           `koanf:"server"`
	Log        LogConfig        `koanf:"log"`
	Store      StoreConfig      `koanf:"store"`
	Database   DatabaseConfig   `koanf:"database"`
	Redis      RedisConfig      `koanf:"redis"`
	Kafka      KafkaConfig      `koanf:"kafka"`
	Fetch      FetchConfig      `koanf:"fetch"`
	Resolver   ResolverConfig   `koanf:"resolver"`
	Revocation RevocationConfig `koanf:"revocation"`
	Admin      AdminConfig      `koanf:"admin"`
	Wallet     WalletConfig     `koanf:"wallet"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr           string        `koanf:"addr"`
	Environment    string        `koanf:"environment"`
	ReadTimeout    time.Duration `koanf:"read_timeout"`
	WriteTimeout   time.Duration `koanf:"write_timeout"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
	MaxBodyBytes   int64         `koanf:"max_body_bytes"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type StoreConfig struct {
	Driver string `koanf:"driver"`
	Dir    string `koanf:"dir"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

type RedisConfig struct {
	URL          string        `koanf:"url"`
	PoolSize     int           `koanf:"pool_size"`
	MinIdleConns int           `koanf:"min_idle_conns"`
	DialTimeout  time.Duration `koanf:"dial_timeout"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

// KafkaConfig enables import event publishing when Brokers is set.
type KafkaConfig struct {
	Brokers         string        `koanf:"brokers"`
	Topic           string        `koanf:"topic"`
	Acks            string        `koanf:"acks"`
	Retries         int           `koanf:"retries"`
	DeliveryTimeout time.Duration `koanf:"delivery_timeout"`
}

type FetchConfig struct {
	Timeout       time.Duration `koanf:"timeout"`
	MaxBytes      int64         `koanf:"max_bytes"`
	MaxRetries    int           `koanf:"max_retries"`
	RetryInterval time.Duration `koanf:"retry_interval"`
	UserAgent     string        `koanf:"user_agent"`
	// RemoteImages allows image fields to reference http(s) URIs.
	RemoteImages bool `koanf:"remote_images"`
}

type ResolverConfig struct {
	Cache    string        `koanf:"cache"`
	CacheTTL time.Duration `koanf:"cache_ttl"`
}

// RevocationConfig: a zero CacheTTL checks the list on every verification.
type RevocationConfig struct {
	CacheTTL time.Duration `koanf:"cache_ttl"`
}

type AdminConfig struct {
	JWTSigningKey string `koanf:"jwt_signing_key"`
	JWTIssuer     string `koanf:"jwt_issuer"`
}

type WalletConfig struct {
	LoadConcurrency int `koanf:"load_concurrency"`
}

func defaults() map[string]any {
	return map[string]any{
		"server.addr":                ":8080",
		"server.environment":         "development",
		"server.read_timeout":        "15s",
		"server.write_timeout":       "30s",
		"server.request_timeout":     "30s",
		"server.max_body_bytes":      5 << 20,
		"log.level":                  "info",
		"log.format":                 "json",
		"store.driver":               StoreFile,
		"store.dir":                  "certificates",
		"database.max_open_conns":    25,
		"database.max_idle_conns":    5,
		"database.conn_max_lifetime": "5m",
		"redis.pool_size":            10,
		"redis.min_idle_conns":       2,
		"redis.dial_timeout":         "5s",
		"redis.read_timeout":         "3s",
		"redis.write_timeout":        "3s",
		"kafka.topic":                "certwallet.imports",
		"kafka.acks":                 "all",
		"kafka.retries":              3,
		"kafka.delivery_timeout":     "30s",
		"fetch.timeout":              "10s",
		"fetch.max_bytes":            5 << 20,
		"fetch.max_retries":          2,
		"fetch.retry_interval":       "200ms",
		"fetch.user_agent":           "certwallet/1.0",
		"fetch.remote_images":        true,
		"resolver.cache":             CacheMemory,
		"admin.jwt_issuer":           "certwallet",
		"wallet.load_concurrency":    8,
	}
}

// Load builds the configuration. path may be empty to skip the YAML file.
func Load(path string) (Config, error) {
	k := koanf.New(".")
	for key, value := range defaults() {
		if err := k.Set(key, value); err != nil {
			return Config{}, fmt.Errorf("set default %s: %w", key, err)
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

// Validate checks cross-field requirements.
func (c Config) Validate() error {
	var errs []error
	switch c.Store.Driver {
	case StoreFile:
		if c.Store.Dir == "" {
			errs = append(errs, errors.New("store.dir is required for the file store"))
		}
	case StorePostgres:
		if c.Database.URL == "" {
			errs = append(errs, errors.New("database.url is required for the postgres store"))
		}
	case StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown store.driver %q", c.Store.Driver))
	}
	switch c.Resolver.Cache {
	case CacheMemory:
	case CacheRedis:
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("redis.url is required for the redis issuer cache"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown resolver.cache %q", c.Resolver.Cache))
	}
	if c.Fetch.Timeout <= 0 {
		errs = append(errs, errors.New("fetch.timeout must be positive"))
	}
	if c.Fetch.MaxBytes <= 0 {
		errs = append(errs, errors.New("fetch.max_bytes must be positive"))
	}
	if c.Revocation.CacheTTL < 0 {
		errs = append(errs, errors.New("revocation.cache_ttl must not be negative"))
	}
	return errors.Join(errs...)
}
