package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissingCredentials is returned by Validate when the store cannot be reached
// with the configured settings. It is fatal: nothing is scraped.
var ErrMissingCredentials = errors.New("missing store credentials")

const (
	BackendREST     = "rest"
	BackendPostgres = "postgres"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	StoreBackend string

	SupabaseURL    string
	SupabaseKey    string
	SupabaseSchema string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	MaxConcurrency int
	RateLimitMs    int
	MaxRetries     int
	RetryDelayMs   int
	MaxPages       int
	PageSize       int
	RequestTimeout time.Duration

	UpsertBatchSize    int
	UpsertTimeout      time.Duration
	UpsertBatchDelayMs int

	OutputDir      string
	BrowserSession bool
	ChromeBin      string
	LogLevel       string
	ScheduleCron   string
}

// Load reads the .env file (if any) and returns a populated Config.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		StoreBackend: strings.ToLower(getEnv("STORE_BACKEND", BackendREST)),

		SupabaseURL:    strings.TrimRight(os.Getenv("SUPABASE_URL"), "/"),
		SupabaseKey:    os.Getenv("SUPABASE_SERVICE_ROLE_KEY"),
		SupabaseSchema: getEnv("SUPABASE_SCHEMA", "auctions"),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       getEnv("POSTGRES_DB", "auctions"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 1),
		RateLimitMs:    getEnvInt("RATE_LIMIT_MS", 2000),
		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		RetryDelayMs:   getEnvInt("RETRY_DELAY_MS", 10000),
		MaxPages:       getEnvInt("MAX_PAGES", 20),
		PageSize:       getEnvInt("PAGE_SIZE", 100),
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SEC", 45)) * time.Second,

		UpsertBatchSize:    getEnvInt("UPSERT_BATCH_SIZE", 500),
		UpsertTimeout:      time.Duration(getEnvInt("UPSERT_TIMEOUT_SEC", 120)) * time.Second,
		UpsertBatchDelayMs: getEnvInt("UPSERT_BATCH_DELAY_MS", 500),

		OutputDir:      getEnv("OUTPUT_DIR", "./output"),
		BrowserSession: getEnvBool("BROWSER_SESSION", false),
		ChromeBin:      getEnv("CHROME_BIN", ""),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		ScheduleCron:   getEnv("SCHEDULE_CRON", "0 */6 * * *"),
	}
}

// Validate checks the settings that must be present before any work starts.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendREST:
		if c.SupabaseURL == "" || c.SupabaseKey == "" {
			return fmt.Errorf("%w: SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY are required", ErrMissingCredentials)
		}
	case BackendPostgres:
		if c.PostgresUser == "" || c.PostgresPassword == "" {
			return fmt.Errorf("%w: POSTGRES_USER and POSTGRES_PASSWORD are required", ErrMissingCredentials)
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q (want %q or %q)", c.StoreBackend, BackendREST, BackendPostgres)
	}

	if c.UpsertBatchSize <= 0 {
		return fmt.Errorf("UPSERT_BATCH_SIZE must be positive, got %d", c.UpsertBatchSize)
	}
	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

// RateLimit is the minimum spacing between requests to one provider.
func (c *Config) RateLimit() time.Duration {
	return time.Duration(c.RateLimitMs) * time.Millisecond
}

// RetryDelay is the linear backoff step between fetch attempts.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMs) * time.Millisecond
}

// UpsertBatchDelay is the pause between upsert batches.
func (c *Config) UpsertBatchDelay() time.Duration {
	return time.Duration(c.UpsertBatchDelayMs) * time.Millisecond
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}
