package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Mode        string
	Environment string
	InstanceID  string

	HTTPAddr string

	OTLPEndpoint string

	Site SiteConfig

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Sheets SheetsConfig

	// SourceTimeout bounds each source query during candidate collection.
	SourceTimeout time.Duration

	// PendingDefaultDays is the window used by the pending checklist when
	// the request names no explicit window.
	PendingDefaultDays int

	// BackfillGuardTTL bounds how long a day's backfill guard key lives.
	BackfillGuardTTL time.Duration
}

// SiteConfig identifies the construction site this instance serves and how
// its metrics reach the central dashboard.
type SiteConfig struct {
	SiteID   string
	SiteName string
	Metrics  SiteMetricsConfig
}

type SiteMetricsConfig struct {
	Enabled   bool
	Exporter  string
	Endpoint  string
	AuthToken string
}

// SheetsConfig points at the spreadsheet gateway the field staff edit.
type SheetsConfig struct {
	BaseURL           string
	APIToken          string
	ReadingsSheet     string
	FuelLogSheet      string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	mode := normalizeMode(getenv("APP_MODE", ModeStandalone))
	environment := getenv("ENVIRONMENT", "development")

	cfg := Config{
		AppName:      getenv("APP_SERVICE", "fleetmeter"),
		AppVersion:   getenv("APP_VERSION", "0.1.0"),
		Mode:         mode,
		Environment:  environment,
		InstanceID:   getenv("INSTANCE_ID", ""),
		HTTPAddr:     getenv("HTTP_ADDR", ":8080"),
		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),
		Site: SiteConfig{
			SiteID:   strings.TrimSpace(getenv("SITE_ID", "")),
			SiteName: getenv("SITE_NAME", ""),
			Metrics: SiteMetricsConfig{
				Enabled:   getenvBool("SITE_METRICS_ENABLED", true),
				Exporter:  strings.ToLower(getenv("SITE_METRICS_EXPORTER", "")),
				Endpoint:  strings.TrimSpace(getenv("SITE_METRICS_ENDPOINT", "")),
				AuthToken: strings.TrimSpace(getenv("SITE_METRICS_AUTH_TOKEN", "")),
			},
		},
		DBType:        getenv("DATABASE_TYPE", "postgres"),
		DBHost:        getenv("DATABASE_HOST", "localhost"),
		DBPort:        getenv("DATABASE_PORT", "5432"),
		DBName:        getenv("DATABASE_NAME", "fleetmeter"),
		DBUser:        getenv("DATABASE_USER", "postgres"),
		DBPassword:    getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:     getenv("DATABASE_SSLMODE", "disable"),
		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		RedisDB:       getenvInt("REDIS_DB", 0),
		Sheets: SheetsConfig{
			BaseURL:           strings.TrimSpace(getenv("SHEETS_BASE_URL", "")),
			APIToken:          strings.TrimSpace(getenv("SHEETS_API_TOKEN", "")),
			ReadingsSheet:     getenv("SHEETS_READINGS_SHEET", "Lecturas"),
			FuelLogSheet:      getenv("SHEETS_FUEL_LOG_SHEET", "Combustible"),
			Timeout:           getenvDuration("SHEETS_TIMEOUT", 10*time.Second),
			RequestsPerSecond: getenvFloat("SHEETS_RPS", 1),
			Burst:             getenvInt("SHEETS_BURST", 2),
		},
		SourceTimeout:      getenvDuration("SOURCE_TIMEOUT", 8*time.Second),
		PendingDefaultDays: getenvInt("PENDING_DEFAULT_DAYS", 7),
		BackfillGuardTTL:   getenvDuration("BACKFILL_GUARD_TTL", 48*time.Hour),
	}

	return cfg
}

const (
	ModeStandalone = "standalone"
	ModeConnected  = "connected"
)

// IsConnected reports whether this instance reports to the central
// dashboard.
func (c Config) IsConnected() bool {
	return c.Mode == ModeConnected
}

func normalizeMode(raw string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch value {
	case ModeConnected:
		return ModeConnected
	case ModeStandalone:
		return ModeStandalone
	default:
		return ModeStandalone
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}

var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewAliasHolder),
)
