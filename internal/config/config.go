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
	NATS struct {
		Enabled bool   `mapstructure:"enabled"`
		URL     string `mapstructure:"url"`
		Subject string `mapstructure:"subject"` // base subject for run-completed events
		Stream  string `mapstructure:"stream"`
	} `mapstructure:"nats"`
	Sync    SyncConfig `mapstructure:"sync"`
	Metrics struct {
		Enabled bool `mapstructure:"enabled"`
		Port    int  `mapstructure:"port"`
	} `mapstructure:"metrics"`
	WorkerPools struct {
		Importer ImporterWorkerPoolConfig `mapstructure:"importer"`
	} `mapstructure:"workerPools"`
}

// SyncConfig holds tunables for the lead synchronization pipeline
type SyncConfig struct {
	PageSize            int           `mapstructure:"pageSize"`            // Leads fetched per page from the external API
	DefaultCountryCode  string        `mapstructure:"defaultCountryCode"`  // Country code prefix assumed for bare phone numbers
	DefaultDelayMinutes int           `mapstructure:"defaultDelayMinutes"` // Spacing between scheduled first contacts
	Timezone            string        `mapstructure:"timezone"`            // Timezone for recurring polling jobs
	HTTPTimeout         time.Duration `mapstructure:"httpTimeout"`         // Per-request timeout for the source client
}

// ImporterWorkerPoolConfig holds configuration for the import run executor pool
type ImporterWorkerPoolConfig struct {
	PoolSize   int           `mapstructure:"poolSize"`   // Max concurrent import runs across configs
	QueueSize  int           `mapstructure:"queueSize"`  // Task queue buffer size
	MaxBlock   time.Duration `mapstructure:"maxBlock"`   // Max time to block when submitting if queue full
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
	v.SetDefault("metrics.port", 2112)

	// NATS publisher defaults
	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.subject", "v1.leads.imported")
	v.SetDefault("nats.stream", "lead_sync_events")

	// Sync defaults
	v.SetDefault("sync.pageSize", 100)
	v.SetDefault("sync.defaultCountryCode", "39")
	v.SetDefault("sync.defaultDelayMinutes", 1)
	v.SetDefault("sync.timezone", "Europe/Rome")
	v.SetDefault("sync.httpTimeout", 30*time.Second)

	// WorkerPools defaults
	v.SetDefault("workerPools.importer.poolSize", 4)
	v.SetDefault("workerPools.importer.queueSize", 100)
	v.SetDefault("workerPools.importer.maxBlock", time.Second)
	v.SetDefault("workerPools.importer.expiryTime", time.Minute)

	// Config file settings
	v.SetConfigName("default")
	v.SetConfigType("yaml")

	// Add lookup paths
	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath("$HOME/.daisi-lead-sync")
	v.AddConfigPath("/etc/daisi-lead-sync")

	// Try to read from config file
	if err := v.ReadInConfig(); err != nil {
		// It's ok if config file is not found, we'll use env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Override with environment variables
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Map environment variables to config fields
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

	// Unmarshal config
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

		// If it's a struct, recursively bind its fields
		if fieldType.Type.Kind() == reflect.Struct {
			bindEnvs(v, fieldVal.Interface(), path...)
			continue
		}

		_ = v.BindEnv(key)
	}
}
