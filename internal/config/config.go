package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"incassi/internal/core"
)

const DefaultStorageKey = "checkmaster_auto_data_v1"

type Config struct {
	// HTTP Server
	Port                   string
	CORSAllowedOrigins     []string
	ReconcileRatePerMinute int

	// Logging
	LogLevel string

	// Ledger storage
	DataBackend      string
	SQLiteDBPath     string
	DiskvBasePath    string
	LedgerStorageKey string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Matcher
	GeminiAPIKey   string
	GeminiModel    string
	GeminiBaseURL  string
	MatcherTimeout time.Duration

	// MatcherCacheSize of zero disables result caching.
	MatcherCacheSize int
	MatcherCacheTTL  time.Duration

	// Timeline
	TimelineWindow int
	ReferenceMonth string

	// Google Sheets text source
	GoogleSpreadsheetID      string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string
}

func Load() *Config {
	cfg := &Config{
		Port:                   getEnv("PORT", "8081"),
		CORSAllowedOrigins:     getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		ReconcileRatePerMinute: getEnvInt("RECONCILE_RATE_PER_MINUTE", 6),

		LogLevel: getEnv("LOG_LEVEL", "info"),

		DataBackend:      getEnv("DATA_BACKEND", "sqlite"),
		SQLiteDBPath:     getEnv("SQLITE_DB_PATH", "./data/incassi.db"),
		DiskvBasePath:    getEnv("DISKV_BASE_PATH", "./data/ledger"),
		LedgerStorageKey: getEnv("LEDGER_STORAGE_KEY", DefaultStorageKey),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "incassi"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "reconcile_requests"),

		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiBaseURL:  getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		MatcherTimeout: getEnvDuration("MATCHER_TIMEOUT", 90*time.Second),

		MatcherCacheSize: getEnvInt("MATCHER_CACHE_SIZE", 16),
		MatcherCacheTTL:  getEnvDuration("MATCHER_CACHE_TTL", 15*time.Minute),

		TimelineWindow: getEnvInt("TIMELINE_WINDOW", core.DefaultWindow),
		ReferenceMonth: getEnv("REFERENCE_MONTH", ""),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}

	// Validate data backend
	validBackends := []string{"memory", "sqlite", "diskv"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.DataBackend == "diskv" && c.DiskvBasePath == "" {
		errors = append(errors, "diskv base path cannot be empty when using diskv backend")
	}

	if strings.TrimSpace(c.LedgerStorageKey) == "" {
		errors = append(errors, "ledger storage key cannot be empty")
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.GeminiModel == "" {
		errors = append(errors, "Gemini model cannot be empty")
	}
	if c.GeminiBaseURL != "" {
		if u, err := url.Parse(c.GeminiBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid Gemini base URL '%s'", c.GeminiBaseURL))
		}
	}
	if c.MatcherTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid matcher timeout %v: must be at least 1 second", c.MatcherTimeout))
	} else if c.MatcherTimeout > 10*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid matcher timeout %v: must be at most 10 minutes", c.MatcherTimeout))
	}

	if c.MatcherCacheSize < 0 {
		errors = append(errors, fmt.Sprintf("invalid matcher cache size %d: must not be negative", c.MatcherCacheSize))
	}
	if c.MatcherCacheSize > 0 && c.MatcherCacheTTL <= 0 {
		errors = append(errors, fmt.Sprintf("invalid matcher cache TTL %v: must be positive when caching is enabled", c.MatcherCacheTTL))
	}

	if c.TimelineWindow < 1 || c.TimelineWindow > 120 {
		errors = append(errors, fmt.Sprintf("invalid timeline window %d: must be between 1 and 120", c.TimelineWindow))
	}
	if c.ReferenceMonth != "" {
		if _, err := core.ParseYearMonth(c.ReferenceMonth); err != nil {
			errors = append(errors, fmt.Sprintf("invalid reference month '%s': must be YYYY-MM", c.ReferenceMonth))
		}
	}

	if c.ReconcileRatePerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid reconcile rate %d: must be at least 1 per minute", c.ReconcileRatePerMinute))
	}

	if c.GoogleServiceAccountFile != "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// Reference returns the configured reference month, or the month containing
// now when none is set.
func (c *Config) Reference(now time.Time) core.YearMonth {
	if c.ReferenceMonth != "" {
		if ym, err := core.ParseYearMonth(c.ReferenceMonth); err == nil {
			return ym
		}
	}
	return core.YearMonthOf(now)
}

// HasSheetsCredentials reports whether the Google Sheets text source can be used.
func (c *Config) HasSheetsCredentials() bool {
	return c.GoogleServiceAccountFile != "" || c.GoogleServiceAccountJSON != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
