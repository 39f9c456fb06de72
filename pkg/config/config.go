// Package config loads and validates clustering job configuration from YAML
// files with environment-variable overrides. It provides typed structs for the
// clustering engine, input, result sinks, and the ambient subsystems.
package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/kernel-kmeans/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Sink names accepted in OutputConfig.Sinks.
const (
	SinkFile     = "file"
	SinkRedis    = "redis"
	SinkPostgres = "postgres"
	SinkKafka    = "kafka"
)

// Config is the top-level job configuration.
type Config struct {
	Clustering ClusteringConfig `yaml:"clustering"`
	Input      InputConfig      `yaml:"input"`
	Output     OutputConfig     `yaml:"output"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Redis      RedisConfig      `yaml:"redis"`
	Logging    LoggingConfig    `yaml:"logging"`
	Tracing    TracingConfig    `yaml:"tracing"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// ClusteringConfig controls the kernel k-means engine.
type ClusteringConfig struct {
	Clusters    int     `yaml:"clusters"`
	KernelParam float64 `yaml:"kernelParam"`
	// MaxEpochs bounds the convergence loop. Zero runs until label-stable.
	MaxEpochs int `yaml:"maxEpochs"`
	// Workers is the number of goroutines used by the pairwise pass. Zero and
	// one both mean sequential.
	Workers int `yaml:"workers"`
}

// InputConfig describes where the dataset is read from.
type InputConfig struct {
	Path             string `yaml:"path"`
	StrictDimensions bool   `yaml:"strictDimensions"`
	MaxDimensions    int    `yaml:"maxDimensions"`
}

// OutputConfig lists the result sinks and the file sink destination.
type OutputConfig struct {
	Path  string        `yaml:"path"`
	Sinks []string      `yaml:"sinks"`
	Retry RetrySettings `yaml:"retry"`
}

// RetrySettings controls retries of network sink writes.
type RetrySettings struct {
	MaxAttempts    int           `yaml:"maxAttempts"`
	InitialDelay   time.Duration `yaml:"initialDelay"`
	MaxDelay       time.Duration `yaml:"maxDelay"`
	// AttemptTimeout bounds a single write attempt; 0 disables the limit.
	AttemptTimeout time.Duration `yaml:"attemptTimeout"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	Table           string        `yaml:"table"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings and the writer tuning of
// the assignment producer.
type KafkaConfig struct {
	Brokers   []string `yaml:"brokers"`
	Topic     string   `yaml:"topic"`
	BatchSize int      `yaml:"batchSize"`
	// RequiredAcks is one of "all", "one" or "none".
	RequiredAcks string `yaml:"requiredAcks"`
	// Compression is one of "none", "gzip", "snappy", "lz4" or "zstd".
	Compression string `yaml:"compression"`
}

// RedisConfig holds Redis connection parameters and the key layout of
// published assignments.
type RedisConfig struct {
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	PoolSize  int           `yaml:"poolSize"`
	KeyPrefix string        `yaml:"keyPrefix"`
	TTL       time.Duration `yaml:"ttl"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig toggles span logging of the run.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It does not validate; callers apply their own overrides first and
// then call Validate.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: reading config file %s: %w", apperrors.ErrInvalidConfig, path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, apperrors.Newf(apperrors.ErrInvalidConfig, "parsing config file %s: %v", path, err)
		}
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a Config with defaults suitable for a local run writing to
// stdout.
func Default() *Config {
	return &Config{
		Clustering: ClusteringConfig{
			Clusters:    2,
			KernelParam: 1.0,
			Workers:     1,
		},
		Output: OutputConfig{
			Sinks: []string{SinkFile},
			Retry: RetrySettings{
				MaxAttempts:    3,
				InitialDelay:   100 * time.Millisecond,
				MaxDelay:       5 * time.Second,
				AttemptTimeout: 30 * time.Second,
			},
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "clustering",
			User:            "clustering",
			Password:        "localdev",
			SSLMode:         "disable",
			Table:           "cluster_assignments",
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:      []string{"localhost:9092"},
			Topic:        "cluster-assignments",
			BatchSize:    500,
			RequiredAcks: "all",
			Compression:  "lz4",
		},
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			PoolSize:  10,
			KeyPrefix: "kkmeans",
			TTL:       24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
		},
	}
}

// Validate reports the first configuration problem as an ErrInvalidConfig.
func (c *Config) Validate() error {
	cl := c.Clustering
	if cl.Clusters <= 0 {
		return apperrors.Newf(apperrors.ErrInvalidConfig, "clusters must be positive, got %d", cl.Clusters)
	}
	if math.IsNaN(cl.KernelParam) || math.IsInf(cl.KernelParam, 0) || cl.KernelParam < 0 {
		return apperrors.Newf(apperrors.ErrInvalidConfig, "kernel parameter must be a finite non-negative number, got %v", cl.KernelParam)
	}
	if cl.MaxEpochs < 0 {
		return apperrors.Newf(apperrors.ErrInvalidConfig, "maxEpochs must not be negative, got %d", cl.MaxEpochs)
	}
	if cl.Workers < 0 {
		return apperrors.Newf(apperrors.ErrInvalidConfig, "workers must not be negative, got %d", cl.Workers)
	}
	if c.Input.MaxDimensions < 0 {
		return apperrors.Newf(apperrors.ErrInvalidConfig, "maxDimensions must not be negative, got %d", c.Input.MaxDimensions)
	}
	if len(c.Output.Sinks) == 0 {
		return apperrors.New(apperrors.ErrInvalidConfig, "at least one output sink is required")
	}
	seen := make(map[string]bool, len(c.Output.Sinks))
	for _, name := range c.Output.Sinks {
		if seen[name] {
			return apperrors.Newf(apperrors.ErrInvalidConfig, "sink %q listed twice", name)
		}
		seen[name] = true
		switch name {
		case SinkFile:
		case SinkRedis:
			if c.Redis.Addr == "" {
				return apperrors.New(apperrors.ErrInvalidConfig, "redis sink requires redis.addr")
			}
		case SinkPostgres:
			if c.Postgres.Host == "" || c.Postgres.Table == "" {
				return apperrors.New(apperrors.ErrInvalidConfig, "postgres sink requires postgres.host and postgres.table")
			}
		case SinkKafka:
			if len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "" {
				return apperrors.New(apperrors.ErrInvalidConfig, "kafka sink requires kafka.brokers and kafka.topic")
			}
			switch c.Kafka.RequiredAcks {
			case "", "all", "one", "none":
			default:
				return apperrors.Newf(apperrors.ErrInvalidConfig, "kafka.requiredAcks must be all, one or none, got %q", c.Kafka.RequiredAcks)
			}
			switch c.Kafka.Compression {
			case "", "none", "gzip", "snappy", "lz4", "zstd":
			default:
				return apperrors.Newf(apperrors.ErrInvalidConfig, "unsupported kafka.compression %q", c.Kafka.Compression)
			}
		default:
			return apperrors.Newf(apperrors.ErrInvalidConfig, "unknown sink %q", name)
		}
	}
	return nil
}

// applyEnvOverrides reads KKM_* environment variables and overrides the
// corresponding config fields. Numeric variables that fail to parse are
// configuration errors.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("KKM_CLUSTERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return apperrors.Newf(apperrors.ErrInvalidConfig, "KKM_CLUSTERS: %v", err)
		}
		cfg.Clustering.Clusters = n
	}
	if v := os.Getenv("KKM_KERNEL_PARAM"); v != "" {
		c, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return apperrors.Newf(apperrors.ErrInvalidConfig, "KKM_KERNEL_PARAM: %v", err)
		}
		cfg.Clustering.KernelParam = c
	}
	if v := os.Getenv("KKM_MAX_EPOCHS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return apperrors.Newf(apperrors.ErrInvalidConfig, "KKM_MAX_EPOCHS: %v", err)
		}
		cfg.Clustering.MaxEpochs = n
	}
	if v := os.Getenv("KKM_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return apperrors.Newf(apperrors.ErrInvalidConfig, "KKM_WORKERS: %v", err)
		}
		cfg.Clustering.Workers = n
	}
	if v := os.Getenv("KKM_INPUT_PATH"); v != "" {
		cfg.Input.Path = v
	}
	if v := os.Getenv("KKM_OUTPUT_PATH"); v != "" {
		cfg.Output.Path = v
	}
	if v := os.Getenv("KKM_OUTPUT_SINKS"); v != "" {
		cfg.Output.Sinks = strings.Split(v, ",")
	}
	if v := os.Getenv("KKM_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("KKM_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("KKM_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("KKM_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("KKM_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("KKM_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KKM_KAFKA_TOPIC"); v != "" {
		cfg.Kafka.Topic = v
	}
	if v := os.Getenv("KKM_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("KKM_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("KKM_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("KKM_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	return nil
}
