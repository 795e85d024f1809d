package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/pratik-mahalle/usagepulse/internal/domain/anomaly"
	"github.com/pratik-mahalle/usagepulse/internal/pkg/validator"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Logging   LoggingConfig
	Detection anomaly.DetectionConfig
	Scan      ScanConfig
	Trigger   TriggerConfig
	Report    ReportConfig
}

// ServerConfig contains the ops HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	Environment     string
}

// DatabaseConfig contains database configuration
type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// For SQLite
	Path string
}

// RedisConfig contains the baseline cache configuration
type RedisConfig struct {
	Enabled   bool
	Host      string
	Port      int
	Password  string
	DB        int
	KeyPrefix string
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string
	Format     string // json or console
	OutputPath string
}

// ScanConfig bounds and schedules portfolio scans
type ScanConfig struct {
	Concurrency     int
	CustomerTimeout time.Duration
	StartRate       float64 // scans started per second, 0 for unlimited
	Schedule        string  // cron expression
	RunOnStart      bool
}

// TriggerConfig selects where anomaly events are delivered
type TriggerConfig struct {
	WebhookURL     string
	WebhookSecret  string
	WebhookTimeout time.Duration
	KafkaBrokers   []string
	KafkaTopic     string
}

// ReportConfig configures scan summary archiving
type ReportConfig struct {
	Enabled         bool
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore errors as it's optional)
	_ = godotenv.Load()

	defaults := anomaly.DefaultDetectionConfig()

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 9090),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			Environment:     getEnv("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			Driver:          getEnv("DB_DRIVER", "sqlite"),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			Name:            getEnv("DB_NAME", "usagepulse"),
			User:            getEnv("DB_USER", ""),
			Password:        getEnv("DB_PASSWORD", ""),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			Path:            getEnv("DB_PATH", "./usagepulse.db"),
		},
		Redis: RedisConfig{
			Enabled:   getEnvAsBool("REDIS_ENABLED", false),
			Host:      getEnv("REDIS_HOST", "localhost"),
			Port:      getEnvAsInt("REDIS_PORT", 6379),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        getEnvAsInt("REDIS_DB", 0),
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "usagepulse:baseline"),
		},
		Logging: LoggingConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Format:     getEnv("LOG_FORMAT", "json"),
			OutputPath: getEnv("LOG_OUTPUT", "stdout"),
		},
		Detection: anomaly.DetectionConfig{
			ZScoreThreshold:       getEnvAsFloat("DETECTION_ZSCORE_THRESHOLD", defaults.ZScoreThreshold),
			DropThresholdPercent:  getEnvAsFloat("DETECTION_DROP_THRESHOLD", defaults.DropThresholdPercent),
			SpikeThresholdPercent: getEnvAsFloat("DETECTION_SPIKE_THRESHOLD", defaults.SpikeThresholdPercent),
			FeatureDropThreshold:  getEnvAsFloat("DETECTION_FEATURE_DROP_THRESHOLD", defaults.FeatureDropThreshold),
			CooldownDays:          getEnvAsInt("DETECTION_COOLDOWN_DAYS", defaults.CooldownDays),
			BaselineWindowDays:    getEnvAsInt("DETECTION_BASELINE_WINDOW_DAYS", defaults.BaselineWindowDays),
			SeasonalAdjustment:    getEnvAsBool("DETECTION_SEASONAL_ADJUSTMENT", false),
		},
		Scan: ScanConfig{
			Concurrency:     getEnvAsInt("SCAN_CONCURRENCY", 4),
			CustomerTimeout: getEnvAsDuration("SCAN_CUSTOMER_TIMEOUT", 2*time.Minute),
			StartRate:       getEnvAsFloat("SCAN_START_RATE", 0),
			Schedule:        getEnv("SCAN_SCHEDULE", "0 */6 * * *"),
			RunOnStart:      getEnvAsBool("SCAN_RUN_ON_START", false),
		},
		Trigger: TriggerConfig{
			WebhookURL:     getEnv("TRIGGER_WEBHOOK_URL", ""),
			WebhookSecret:  getEnv("TRIGGER_WEBHOOK_SECRET", ""),
			WebhookTimeout: getEnvAsDuration("TRIGGER_WEBHOOK_TIMEOUT", 10*time.Second),
			KafkaBrokers:   getEnvAsSlice("TRIGGER_KAFKA_BROKERS", nil),
			KafkaTopic:     getEnv("TRIGGER_KAFKA_TOPIC", "usage-anomalies"),
		},
		Report: ReportConfig{
			Enabled:         getEnvAsBool("REPORT_ENABLED", false),
			Bucket:          getEnv("REPORT_S3_BUCKET", ""),
			Prefix:          getEnv("REPORT_S3_PREFIX", "scans"),
			Region:          getEnv("REPORT_S3_REGION", "us-east-1"),
			Endpoint:        getEnv("REPORT_S3_ENDPOINT", ""),
			AccessKeyID:     getEnv("REPORT_S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("REPORT_S3_SECRET_ACCESS_KEY", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("DB_PATH is required for sqlite")
		}
	case "postgres":
		if c.Database.Host == "" || c.Database.Name == "" {
			return fmt.Errorf("DB_HOST and DB_NAME are required for postgres")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	if errs := validator.Validate(c.Detection); len(errs) > 0 {
		return fmt.Errorf("invalid detection config: %s", errs[0].Message)
	}

	if c.Scan.Concurrency < 1 {
		return fmt.Errorf("SCAN_CONCURRENCY must be at least 1")
	}
	if c.Scan.CustomerTimeout <= 0 {
		return fmt.Errorf("SCAN_CUSTOMER_TIMEOUT must be positive")
	}
	if c.Scan.StartRate < 0 {
		return fmt.Errorf("SCAN_START_RATE must not be negative")
	}

	if len(c.Trigger.KafkaBrokers) > 0 && c.Trigger.KafkaTopic == "" {
		return fmt.Errorf("TRIGGER_KAFKA_TOPIC is required when brokers are set")
	}

	if c.Report.Enabled && c.Report.Bucket == "" {
		return fmt.Errorf("REPORT_S3_BUCKET is required when reporting is enabled")
	}

	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsSlice splits a comma separated value, dropping empty items
func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(valueStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
