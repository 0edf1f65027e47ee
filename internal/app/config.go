package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/ttahub-resources-backend/internal/data/db"
	"github.com/yungbote/ttahub-resources-backend/internal/platform/envutil"
	"github.com/yungbote/ttahub-resources-backend/internal/platform/logger"
)

type WorkerConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Concurrency  int           `yaml:"concurrency"`
	PollInterval time.Duration `yaml:"pollInterval"`
	StaleRunning time.Duration `yaml:"staleRunning"`
}

type EnrichmentConfig struct {
	MaxAttempts  int           `yaml:"maxAttempts"`
	BackoffBase  time.Duration `yaml:"backoffBase"`
	FetchTimeout time.Duration `yaml:"fetchTimeout"`
	HostRPS      float64       `yaml:"hostRps"`
	HostBurst    int           `yaml:"hostBurst"`
	UserAgent    string        `yaml:"userAgent"`
}

type RedisConfig struct {
	Addr    string `yaml:"addr"`
	Channel string `yaml:"channel"`
}

type Config struct {
	Env         string            `yaml:"env"`
	Port        string            `yaml:"port"`
	LogMode     string            `yaml:"logMode"`
	CORSOrigins []string          `yaml:"corsOrigins"`
	MetricsAddr string            `yaml:"metricsAddr"`
	GCSBucket   string            `yaml:"gcsBucket"`
	Postgres    db.PostgresConfig `yaml:"postgres"`
	Worker      WorkerConfig      `yaml:"worker"`
	Enrichment  EnrichmentConfig  `yaml:"enrichment"`
	Redis       RedisConfig       `yaml:"redis"`
}

func defaultConfig() Config {
	return Config{
		Env:     "development",
		Port:    "8080",
		LogMode: "development",
		Postgres: db.PostgresConfig{
			Host: "localhost",
			Port: "5432",
			User: "postgres",
			Name: "ttahub",
		},
		Worker: WorkerConfig{
			Enabled:      true,
			Concurrency:  4,
			PollInterval: 5 * time.Second,
			StaleRunning: 10 * time.Minute,
		},
		Enrichment: EnrichmentConfig{
			MaxAttempts:  3,
			BackoffBase:  10 * time.Second,
			FetchTimeout: 15 * time.Second,
			HostRPS:      1,
			HostBurst:    2,
		},
		Redis: RedisConfig{Channel: "job_wake"},
	}
}

// LoadConfig layers defaults, the YAML file named by CONFIG_FILE, then
// environment variables. A set variable always wins over the file.
func LoadConfig(log *logger.Logger) (Config, error) {
	cfg := defaultConfig()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
		if log != nil {
			log.Info("Loaded config file", "path", path)
		}
	}
	applyEnv(&cfg)
	return cfg, cfg.validate()
}

func applyEnv(cfg *Config) {
	cfg.Env = envutil.String("ENV", cfg.Env)
	cfg.Port = envutil.String("PORT", cfg.Port)
	cfg.LogMode = envutil.String("LOG_MODE", cfg.LogMode)
	cfg.MetricsAddr = envutil.String("METRICS_ADDR", cfg.MetricsAddr)
	cfg.GCSBucket = envutil.String("GCS_BUCKET", cfg.GCSBucket)
	if raw := envutil.String("CORS_ORIGINS", ""); raw != "" {
		cfg.CORSOrigins = splitList(raw)
	}

	cfg.Postgres.Host = envutil.String("POSTGRES_HOST", cfg.Postgres.Host)
	cfg.Postgres.Port = envutil.String("POSTGRES_PORT", cfg.Postgres.Port)
	cfg.Postgres.User = envutil.String("POSTGRES_USER", cfg.Postgres.User)
	cfg.Postgres.Password = envutil.String("POSTGRES_PASSWORD", cfg.Postgres.Password)
	cfg.Postgres.Name = envutil.String("POSTGRES_NAME", cfg.Postgres.Name)
	cfg.Postgres.SSLMode = envutil.String("POSTGRES_SSLMODE", cfg.Postgres.SSLMode)

	cfg.Worker.Enabled = envutil.Bool("WORKER_ENABLED", cfg.Worker.Enabled)
	cfg.Worker.Concurrency = envutil.Int("WORKER_CONCURRENCY", cfg.Worker.Concurrency)
	cfg.Worker.PollInterval = envutil.Duration("WORKER_POLL_INTERVAL", cfg.Worker.PollInterval)
	cfg.Worker.StaleRunning = envutil.Duration("WORKER_STALE_RUNNING", cfg.Worker.StaleRunning)

	cfg.Enrichment.MaxAttempts = envutil.Int("ENRICH_MAX_ATTEMPTS", cfg.Enrichment.MaxAttempts)
	cfg.Enrichment.BackoffBase = envutil.Duration("ENRICH_BACKOFF_BASE", cfg.Enrichment.BackoffBase)
	cfg.Enrichment.FetchTimeout = envutil.Duration("ENRICH_FETCH_TIMEOUT", cfg.Enrichment.FetchTimeout)
	cfg.Enrichment.HostRPS = envutil.Float("ENRICH_HOST_RPS", cfg.Enrichment.HostRPS)
	cfg.Enrichment.HostBurst = envutil.Int("ENRICH_HOST_BURST", cfg.Enrichment.HostBurst)
	cfg.Enrichment.UserAgent = envutil.String("ENRICH_USER_AGENT", cfg.Enrichment.UserAgent)

	cfg.Redis.Addr = envutil.String("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Channel = envutil.String("REDIS_CHANNEL", cfg.Redis.Channel)
}

func (c Config) validate() error {
	switch strings.ToLower(c.LogMode) {
	case "development", "production":
	default:
		return fmt.Errorf("invalid LOG_MODE %q", c.LogMode)
	}
	if c.Enrichment.MaxAttempts < 1 {
		return fmt.Errorf("ENRICH_MAX_ATTEMPTS must be >= 1, got %d", c.Enrichment.MaxAttempts)
	}
	if c.Worker.Concurrency < 1 {
		return fmt.Errorf("WORKER_CONCURRENCY must be >= 1, got %d", c.Worker.Concurrency)
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
