package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

var validate = validator.New()

// ErrMissingAPIKey is a startup configuration fault.
var ErrMissingAPIKey = errors.New("EIA_API_KEY is not set")

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

type AppConfig struct {
	EIAAPIKey  string `validate:"required"`
	EIABaseURL string `validate:"required,url"`

	DBDriver    string `validate:"oneof=postgres sqlite memory"`
	DatabaseURL string `validate:"required_if=DBDriver postgres"`
	SQLitePath  string `validate:"required_if=DBDriver sqlite"`
	DBMaxConns  int    `validate:"gte=1"`

	// HTTPTimeout bounds a single HTTP exchange; RequestTimeout bounds one
	// fetch including retries.
	HTTPTimeout    time.Duration `validate:"gt=0"`
	RequestTimeout time.Duration `validate:"gt=0"`

	RateLimit  float64 `validate:"gte=0"`
	Workers    int     `validate:"gte=1,lte=64"`
	PageLength int     `validate:"gte=1,lte=5000"`

	// States optionally restricts ingestion to these codes.
	States []string `validate:"dive,len=2"`
}

// Load reads configuration from .env and the environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.EIAAPIKey = os.Getenv("EIA_API_KEY")
	cfg.EIABaseURL = getenvDefault("EIA_BASE_URL", "https://api.eia.gov/v2")

	cfg.DBDriver = getenvDefault("DB_DRIVER", DriverSQLite)
	cfg.DatabaseURL = getenvDefault("DATABASE_URL", dsnFromParts())
	cfg.SQLitePath = getenvDefault("SQLITE_PATH", filepath.Join("data", "energy.db"))
	cfg.DBMaxConns = getenvInt("DB_MAX_CONNS", 4)

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "30s"); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = getenvDuration("REQUEST_TIMEOUT", "20s"); err != nil {
		return nil, err
	}

	rps, err := strconv.ParseFloat(getenvDefault("EIA_RATE_LIMIT", "5"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid EIA_RATE_LIMIT: %w", err)
	}
	cfg.RateLimit = rps

	cfg.Workers = getenvInt("FETCH_WORKERS", 1)
	cfg.PageLength = getenvInt("PAGE_LENGTH", 5000)
	cfg.States = SplitStates(os.Getenv("STATES"))

	return cfg, nil
}

// Validate checks the configuration before any fetch begins.
func (c *AppConfig) Validate() error {
	if strings.TrimSpace(c.EIAAPIKey) == "" {
		return ErrMissingAPIKey
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// ValidateStorage checks everything except the API key, for commands that
// never call the source.
func (c *AppConfig) ValidateStorage() error {
	if err := validate.StructExcept(c, "EIAAPIKey"); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// SplitStates parses a comma separated list of state codes.
func SplitStates(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.ToUpper(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// dsnFromParts assembles a DSN from the discrete DB_* variables, or returns "".
func dsnFromParts() string {
	name := os.Getenv("DB_NAME")
	if name == "" {
		return ""
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(getenvDefault("DB_USER", "postgres"), os.Getenv("DB_PASSWORD")),
		Host:   getenvDefault("DB_HOST", "localhost") + ":" + getenvDefault("DB_PORT", "5432"),
		Path:   "/" + name,
	}
	return u.String()
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
