package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	// Server
	Env  string
	Port string

	// Database
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	SQLitePath string

	// JWT
	JWTSecret        string
	JWTExpirationDur time.Duration

	// CSV import
	MaxUploadBytes      int64
	ImportWorkers       int
	UploadRatePerMinute int

	// Raw upload archive
	ArchiveBackend string
	ArchiveDir     string
	GCSBucket      string
	GCSEndpoint    string

	// Import events
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Metrics
	MetricsAPIKey string
}

// Archive backends understood by ArchiveBackend.
const (
	ArchiveNone  = "none"
	ArchiveLocal = "local"
	ArchiveGCS   = "gcs"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")
	v.SetDefault("port", "8080")

	v.SetDefault("db_driver", "postgres")
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", "5432")
	v.SetDefault("db_user", "smartspend")
	v.SetDefault("db_password", "smartspend")
	v.SetDefault("db_name", "smartspend")
	v.SetDefault("db_sslmode", "disable")
	v.SetDefault("sqlite_path", "smartspend.db")

	v.SetDefault("jwt_secret", "fallback-secret-key-for-dev-only")
	v.SetDefault("jwt_expires_in", "24h")

	v.SetDefault("max_upload_bytes", 5*1024*1024)
	v.SetDefault("import_workers", 1)
	v.SetDefault("upload_rate_per_minute", 10)

	v.SetDefault("archive_backend", ArchiveNone)
	v.SetDefault("archive_dir", "uploads")
	v.SetDefault("gcs_bucket", "transaction-uploads")
	v.SetDefault("gcs_endpoint", "")

	v.SetDefault("amqp_url", "")
	v.SetDefault("amqp_exchange", "smartspend")
	v.SetDefault("amqp_queue", "transaction-imports")

	v.SetDefault("metrics_api_key", "")
}

// Load loads configuration from the environment, an optional .env file and an
// optional config file named by SMARTSPEND_CONFIG.
func Load() (*Config, error) {
	// Load .env file if not already loaded
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if path := os.Getenv("SMARTSPEND_CONFIG"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %q: %w", path, err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Env:  v.GetString("env"),
		Port: v.GetString("port"),

		DBDriver:   strings.ToLower(v.GetString("db_driver")),
		DBHost:     v.GetString("db_host"),
		DBPort:     v.GetString("db_port"),
		DBUser:     v.GetString("db_user"),
		DBPassword: v.GetString("db_password"),
		DBName:     v.GetString("db_name"),
		DBSSLMode:  v.GetString("db_sslmode"),
		SQLitePath: v.GetString("sqlite_path"),

		JWTSecret: v.GetString("jwt_secret"),

		MaxUploadBytes:      v.GetInt64("max_upload_bytes"),
		ImportWorkers:       v.GetInt("import_workers"),
		UploadRatePerMinute: v.GetInt("upload_rate_per_minute"),

		ArchiveBackend: strings.ToLower(v.GetString("archive_backend")),
		ArchiveDir:     v.GetString("archive_dir"),
		GCSBucket:      v.GetString("gcs_bucket"),
		GCSEndpoint:    v.GetString("gcs_endpoint"),

		AMQPURL:      v.GetString("amqp_url"),
		AMQPExchange: v.GetString("amqp_exchange"),
		AMQPQueue:    v.GetString("amqp_queue"),

		MetricsAPIKey: v.GetString("metrics_api_key"),
	}

	// Parse JWT expiration duration
	expStr := v.GetString("jwt_expires_in")
	expDur, err := time.ParseDuration(expStr)
	if err != nil {
		log.Printf("Warning: invalid JWT_EXPIRES_IN value '%s', falling back to 24h\n", expStr)
		expDur = 24 * time.Hour
	}
	cfg.JWTExpirationDur = expDur

	if cfg.ImportWorkers < 1 {
		cfg.ImportWorkers = 1
	}
	if cfg.MaxUploadBytes <= 0 {
		return nil, fmt.Errorf("max_upload_bytes must be positive, got %d", cfg.MaxUploadBytes)
	}

	switch cfg.DBDriver {
	case "postgres", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported db_driver %q", cfg.DBDriver)
	}

	switch cfg.ArchiveBackend {
	case ArchiveNone, ArchiveLocal, ArchiveGCS:
	default:
		return nil, fmt.Errorf("unsupported archive_backend %q", cfg.ArchiveBackend)
	}

	return cfg, nil
}

// PostgresURL returns the connection URL used by golang-migrate.
func (c *Config) PostgresURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// PostgresDSN returns the key/value connection string used by the gorm driver.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}
