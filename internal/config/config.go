package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the service
type Config struct {
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"logLevel"`
	Server      struct {
		Port int `mapstructure:"port"`
	} `mapstructure:"server"`
	Database struct {
		PostgresDSN         string `mapstructure:"postgresDSN"`
		PostgresAutoMigrate bool   `mapstructure:"postgresAutoMigrate"`
	} `mapstructure:"database"`
	Auth struct {
		JWTSecret   string        `mapstructure:"jwtSecret"`
		TokenExpiry time.Duration `mapstructure:"tokenExpiry"`
	} `mapstructure:"auth"`
	Provider struct {
		BaseURL string        `mapstructure:"baseURL"`
		APIKey  string        `mapstructure:"apiKey"`
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"provider"`
	NATS NATSConfig `mapstructure:"nats"`
	Sync struct {
		Interval time.Duration    `mapstructure:"interval"` // 0 disables the periodic trigger
		Workers  SyncWorkerConfig `mapstructure:"workers"`
	} `mapstructure:"sync"`
	Metrics struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"metrics"`
}

// NATSConfig holds the JetStream settings for the sync job queue
type NATSConfig struct {
	URL        string        `mapstructure:"url"`
	Stream     string        `mapstructure:"stream"`
	Subject    string        `mapstructure:"subject"`
	Consumer   string        `mapstructure:"consumer"`
	AckWait    time.Duration `mapstructure:"ackWait"`
	MaxDeliver int           `mapstructure:"maxDeliver"`
}

// SyncWorkerConfig holds configuration for the detail-backfill worker pool
type SyncWorkerConfig struct {
	PoolSize   int           `mapstructure:"poolSize"`   // Number of workers
	QueueSize  int           `mapstructure:"queueSize"`  // Task queue buffer size
	ExpiryTime time.Duration `mapstructure:"expiryTime"` // Idle worker expiry time
}

// LoadConfig reads configuration from file or environment variables
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("environment", "development")
	v.SetDefault("logLevel", "info")
	v.SetDefault("server.port", 8080)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("auth.tokenExpiry", 12*time.Hour)
	v.SetDefault("provider.baseURL", "https://api.elevenlabs.io/v1")
	v.SetDefault("provider.timeout", 30*time.Second)
	v.SetDefault("nats.stream", "VOICEDASH_SYNC")
	v.SetDefault("nats.subject", "voicedash.sync.run")
	v.SetDefault("nats.consumer", "voicedash-syncer")
	v.SetDefault("nats.ackWait", 5*time.Minute)
	v.SetDefault("nats.maxDeliver", 10)
	v.SetDefault("sync.interval", 15*time.Minute)
	v.SetDefault("sync.workers.poolSize", 8)
	v.SetDefault("sync.workers.queueSize", 1000)
	v.SetDefault("sync.workers.expiryTime", time.Minute)

	// Config file settings
	v.SetConfigName("default")
	v.SetConfigType("yaml")

	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath("$HOME/.voicedash")
	v.AddConfigPath("/etc/voicedash")

	if err := v.ReadInConfig(); err != nil {
		// It's ok if config file is not found, we'll use env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvs(v, Config{})

	// Read directly from ENV for critical values
	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		v.Set("database.postgresDSN", dsn)
	}
	if lgLevel := os.Getenv("LOG_LEVEL"); lgLevel != "" {
		v.Set("logLevel", lgLevel)
	}
	if url := os.Getenv("NATS_URL"); url != "" {
		v.Set("nats.url", url)
	}
	if key := os.Getenv("PROVIDER_API_KEY"); key != "" {
		v.Set("provider.apiKey", key)
	}
	if base := os.Getenv("PROVIDER_BASE_URL"); base != "" {
		v.Set("provider.baseURL", base)
	}
	if secret := os.Getenv("AUTH_JWT_SECRET"); secret != "" {
		v.Set("auth.jwtSecret", secret)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	return &config, nil
}

// bindEnvs recursively binds environment variables to config struct fields
func bindEnvs(v *viper.Viper, cfg interface{}, parts ...string) {
	ifv := reflect.ValueOf(cfg)
	ift := reflect.TypeOf(cfg)
	for i := 0; i < ift.NumField(); i++ {
		fieldVal := ifv.Field(i)
		fieldType := ift.Field(i)

		tag := fieldType.Tag.Get("mapstructure")
		if tag == "" || tag == "-" {
			continue
		}

		path := append(parts, tag)
		key := strings.Join(path, ".")

		if fieldType.Type.Kind() == reflect.Struct {
			bindEnvs(v, fieldVal.Interface(), path...)
			continue
		}

		_ = v.BindEnv(key)
	}
}
