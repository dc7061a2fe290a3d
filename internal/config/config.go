package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application level configuration loaded from environment and flags.
type Config struct {
	RunAddress      string
	DatabaseURI     string
	RedisAddress    string
	CatalogCacheTTL time.Duration
	AMQPURL         string
	JWTSecret       string

	GatewayEndpoint   string
	GatewayMerchantID string
	GatewaySecret     string
	GatewayReturnURL  string
	GatewayNotifyURL  string

	ExpiryWindow    time.Duration
	PriceTolerance  int64
	StrictPricing   bool
	SandboxPayments bool

	SweepInterval   time.Duration
	SweepBatch      int
	SweepWorkers    int
	ShutdownTimeout time.Duration
	LogLevel        string
}

const (
	defaultRunAddress      = ":8080"
	defaultJWTSecret       = "change-me-in-production"
	defaultMerchantID      = "boxoffice"
	defaultCatalogCacheTTL = 30 * time.Second
	defaultExpiryWindow    = 15 * time.Minute
	defaultSweepInterval   = 5 * time.Second
	defaultSweepBatch      = 100
	defaultSweepWorkers    = 2
	defaultShutdownTimeout = 10 * time.Second
	defaultLogLevel        = "info"
)

// Load parses configuration from .env, environment variables and flags.
func Load() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}
	return load(os.Args[1:], os.LookupEnv)
}

// FromEnv loads configuration without parsing command line flags.
func FromEnv() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}
	return load(nil, os.LookupEnv)
}

func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

type envLookup func(string) (string, bool)

func load(args []string, lookup envLookup) (*Config, error) {
	cfg := &Config{
		RunAddress:        getString(lookup, "RUN_ADDRESS", defaultRunAddress),
		DatabaseURI:       getString(lookup, "DATABASE_URI", ""),
		RedisAddress:      getString(lookup, "REDIS_ADDRESS", ""),
		CatalogCacheTTL:   getDuration(lookup, "CATALOG_CACHE_TTL", defaultCatalogCacheTTL),
		AMQPURL:           getString(lookup, "AMQP_URL", ""),
		JWTSecret:         getString(lookup, "JWT_SECRET", defaultJWTSecret),
		GatewayEndpoint:   getString(lookup, "GATEWAY_ENDPOINT", ""),
		GatewayMerchantID: getString(lookup, "GATEWAY_MERCHANT_ID", defaultMerchantID),
		GatewaySecret:     getString(lookup, "GATEWAY_SECRET", ""),
		GatewayReturnURL:  getString(lookup, "GATEWAY_RETURN_URL", ""),
		GatewayNotifyURL:  getString(lookup, "GATEWAY_NOTIFY_URL", ""),
		ExpiryWindow:      getDuration(lookup, "ORDER_EXPIRY_WINDOW", defaultExpiryWindow),
		PriceTolerance:    int64(getInt(lookup, "PRICE_TOLERANCE", 0)),
		StrictPricing:     getBool(lookup, "STRICT_PRICING", true),
		SandboxPayments:   getBool(lookup, "SANDBOX_PAYMENTS", false),
		SweepInterval:     getDuration(lookup, "SWEEP_INTERVAL", defaultSweepInterval),
		SweepBatch:        getInt(lookup, "SWEEP_BATCH", defaultSweepBatch),
		SweepWorkers:      getInt(lookup, "SWEEP_WORKERS", defaultSweepWorkers),
		ShutdownTimeout:   getDuration(lookup, "SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		LogLevel:          getString(lookup, "LOG_LEVEL", defaultLogLevel),
	}

	fs := flag.NewFlagSet("boxoffice", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		expiryWindowStr    = cfg.ExpiryWindow.String()
		sweepIntervalStr   = cfg.SweepInterval.String()
		shutdownTimeoutStr = cfg.ShutdownTimeout.String()
	)

	fs.StringVar(&cfg.RunAddress, "a", cfg.RunAddress, "HTTP server listen address")
	fs.StringVar(&cfg.DatabaseURI, "d", cfg.DatabaseURI, "PostgreSQL DSN")
	fs.StringVar(&cfg.RedisAddress, "redis", cfg.RedisAddress, "Redis address for catalog cache")
	fs.StringVar(&cfg.AMQPURL, "amqp", cfg.AMQPURL, "AMQP broker URL for order events")
	fs.StringVar(&cfg.JWTSecret, "jwt-secret", cfg.JWTSecret, "Secret for verifying bearer tokens")
	fs.StringVar(&cfg.GatewayEndpoint, "gateway", cfg.GatewayEndpoint, "Payment gateway checkout endpoint")
	fs.StringVar(&expiryWindowStr, "expiry-window", expiryWindowStr, "Time a pending order holds inventory")
	fs.StringVar(&sweepIntervalStr, "sweep-interval", sweepIntervalStr, "Interval between expiry sweeps")
	fs.StringVar(&shutdownTimeoutStr, "shutdown-timeout", shutdownTimeoutStr, "Graceful shutdown timeout")
	fs.IntVar(&cfg.SweepWorkers, "sweep-workers", cfg.SweepWorkers, "Number of concurrent expiry workers")
	fs.IntVar(&cfg.SweepBatch, "sweep-batch", cfg.SweepBatch, "Maximum orders per sweep")
	fs.BoolVar(&cfg.SandboxPayments, "sandbox", cfg.SandboxPayments, "Enable manual payment confirmation")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	var err error

	if cfg.ExpiryWindow, err = time.ParseDuration(expiryWindowStr); err != nil {
		return nil, fmt.Errorf("invalid expiry window: %w", err)
	}

	if cfg.SweepInterval, err = time.ParseDuration(sweepIntervalStr); err != nil {
		return nil, fmt.Errorf("invalid sweep interval: %w", err)
	}

	if cfg.ShutdownTimeout, err = time.ParseDuration(shutdownTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}

	if secretFile, ok := lookup("JWT_SECRET_FILE"); ok && secretFile != "" {
		content, err := os.ReadFile(secretFile)
		if err != nil {
			return nil, fmt.Errorf("read jwt secret file: %w", err)
		}
		cfg.JWTSecret = strings.TrimSpace(string(content))
	}

	if secretFile, ok := lookup("GATEWAY_SECRET_FILE"); ok && secretFile != "" {
		content, err := os.ReadFile(secretFile)
		if err != nil {
			return nil, fmt.Errorf("read gateway secret file: %w", err)
		}
		cfg.GatewaySecret = strings.TrimSpace(string(content))
	}

	if cfg.ExpiryWindow <= 0 {
		cfg.ExpiryWindow = defaultExpiryWindow
	}

	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepInterval
	}

	if cfg.SweepBatch <= 0 {
		cfg.SweepBatch = defaultSweepBatch
	}

	if cfg.SweepWorkers <= 0 {
		cfg.SweepWorkers = defaultSweepWorkers
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	if cfg.CatalogCacheTTL <= 0 {
		cfg.CatalogCacheTTL = defaultCatalogCacheTTL
	}

	if cfg.PriceTolerance < 0 {
		cfg.PriceTolerance = 0
	}

	if cfg.DatabaseURI == "" {
		return nil, fmt.Errorf("database URI must be provided")
	}

	if cfg.GatewayEndpoint == "" {
		return nil, fmt.Errorf("gateway endpoint must be provided")
	}

	if cfg.GatewaySecret == "" {
		return nil, fmt.Errorf("gateway secret must be provided")
	}

	return cfg, nil
}

func getString(lookup envLookup, key, def string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(lookup envLookup, key string, def int) int {
	if v, ok := lookup(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getBool(lookup envLookup, key string, def bool) bool {
	if v, ok := lookup(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getDuration(lookup envLookup, key string, def time.Duration) time.Duration {
	if v, ok := lookup(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
