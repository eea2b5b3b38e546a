package infra

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv                   string
	LogLevel                 string
	Port                     string
	StoreDriver              string
	DatabaseURL              string
	SQLitePath               string
	JWTSecret                string
	StoragePath              string
	StorageBaseURL           string
	ImageAPIKey              string
	ImageAPIBaseURL          string
	ImageModel               string
	ImageSize                string
	ImageRequestTimeout      time.Duration
	EnrichBatchSize          int
	EnrichBatchDelay         time.Duration
	EnrichCancelOnDisconnect bool
	EnrichCompensateUploads  bool
	WorkerPollInterval       time.Duration
	CORSAllowedOrigins       []string
	HTTPReadTimeout          time.Duration
	HTTPWriteTimeout         time.Duration
	HTTPIdleTimeout          time.Duration
	RateLimitPerMin          int
}

// LoadDotEnv reads .env.local then .env into the process environment.
// Variables that are already set win; missing files are ignored.
func LoadDotEnv() {
	for _, name := range []string{".env.local", ".env"} {
		if _, err := os.Stat(name); err == nil {
			_ = godotenv.Load(name)
		}
	}
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	port := getEnv("PORT", "8080")
	cfg := &Config{
		AppEnv:                   getEnv("APP_ENV", "development"),
		LogLevel:                 os.Getenv("LOG_LEVEL"),
		Port:                     port,
		StoreDriver:              strings.ToLower(getEnv("STORE_DRIVER", StoreDriverPostgres)),
		DatabaseURL:              os.Getenv("DATABASE_URL"),
		SQLitePath:               getEnv("SQLITE_PATH", "promptvault.db"),
		JWTSecret:                os.Getenv("JWT_SECRET"),
		StoragePath:              getEnv("STORAGE_PATH", "./storage"),
		StorageBaseURL:           getEnv("STORAGE_BASE_URL", "http://localhost:"+port+"/static"),
		ImageAPIKey:              os.Getenv("IMAGE_API_KEY"),
		ImageAPIBaseURL:          getEnv("IMAGE_API_BASE_URL", "https://api.openai.com/v1"),
		ImageModel:               getEnv("IMAGE_MODEL", "gpt-image-1"),
		ImageSize:                getEnv("IMAGE_SIZE", "1024x1024"),
		ImageRequestTimeout:      time.Second * time.Duration(getEnvInt("IMAGE_REQUEST_TIMEOUT_SECONDS", 90)),
		EnrichBatchSize:          getEnvInt("ENRICH_BATCH_SIZE", 5),
		EnrichBatchDelay:         time.Millisecond * time.Duration(getEnvInt("ENRICH_BATCH_DELAY_MS", 2000)),
		EnrichCancelOnDisconnect: getEnvBool("ENRICH_CANCEL_ON_DISCONNECT", false),
		EnrichCompensateUploads:  getEnvBool("ENRICH_COMPENSATE_UPLOADS", false),
		WorkerPollInterval:       time.Second * time.Duration(getEnvInt("WORKER_POLL_SECONDS", 60)),
		CORSAllowedOrigins:       splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		HTTPReadTimeout:          time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:         time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:          time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:          getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required")
		}
	case StoreDriverSQLite:
		if c.SQLitePath == "" {
			return errors.New("SQLITE_PATH is required")
		}
	default:
		return fmt.Errorf("STORE_DRIVER %q is not supported", c.StoreDriver)
	}

	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.EnrichBatchSize <= 0 {
		return fmt.Errorf("ENRICH_BATCH_SIZE must be positive, got %d", c.EnrichBatchSize)
	}
	if c.WorkerPollInterval <= 0 {
		return errors.New("WORKER_POLL_SECONDS must be positive")
	}
	return nil
}

// IsDevelopment reports whether the service runs with development defaults.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
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
