package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"raffler/database"
	"raffler/domain/entities"
)

// Oracle modes
const (
	OracleModeNATS  = "nats"
	OracleModeLocal = "local"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL             string
	DatabaseName            string
	DatabaseMaxConns        int32
	DatabaseMaxConnLifetime time.Duration

	// NATS configuration
	NATSServers string // NATS server addresses (comma-separated)

	// HTTP API configuration
	HTTPAddr   string
	AdminToken string // Bearer token for the admin routes; admin routes are disabled when empty

	// Raffle configuration
	EntranceFee        int64 // Base units
	RaffleInterval     time.Duration
	UpkeepPollInterval time.Duration

	// Oracle configuration
	OracleMode                 string // "nats" or "local"
	OracleKeyHash              string
	OracleSubscriptionID       uint64
	OracleRequestConfirmations uint16
	OracleCallbackGasLimit     uint32
	OracleNumWords             uint32
	OracleGracePeriod          time.Duration // Wait before a stuck request may be abandoned
	LocalOracleDelay           time.Duration // Fulfillment delay of the local oracle

	// OpenTelemetry configuration
	OTelEnabled              bool
	OTelServiceName          string
	OTelExporterType         string // "console", "otlp" or "none"
	OTelOTLPEndpoint         string
	OTelExportIntervalMillis int

	// Logging
	LogLevel string

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	// If instance is already set (e.g., by tests), return it
	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			if os.Getenv("GO_TEST") == "1" || os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// RaffleConfig returns the raffle parameters used when the raffle row is first created
func (c *Config) RaffleConfig() entities.RaffleConfig {
	return entities.RaffleConfig{
		EntranceFee:  c.EntranceFee,
		Interval:     c.RaffleInterval,
		OracleParams: c.OracleParams(),
	}
}

// OracleParams returns the opaque parameters passed with every randomness request
func (c *Config) OracleParams() entities.OracleParams {
	return entities.OracleParams{
		KeyHash:              c.OracleKeyHash,
		SubscriptionID:       c.OracleSubscriptionID,
		RequestConfirmations: c.OracleRequestConfirmations,
		CallbackGasLimit:     c.OracleCallbackGasLimit,
		NumWords:             c.OracleNumWords,
	}
}

// PoolOptions returns the connection pool settings
func (c *Config) PoolOptions() database.PoolOptions {
	return database.PoolOptions{
		MaxConns:        c.DatabaseMaxConns,
		MaxConnLifetime: c.DatabaseMaxConnLifetime,
		ApplicationName: c.OTelServiceName,
	}
}

// IsProduction returns true when running in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := &Config{
		// Database
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DatabaseName: os.Getenv("DATABASE_NAME"),

		// NATS
		NATSServers: getEnvWithDefault("NATS_SERVERS", "nats://nats:4222"),

		// HTTP
		HTTPAddr:   getEnvWithDefault("HTTP_ADDR", ":8080"),
		AdminToken: os.Getenv("ADMIN_TOKEN"),

		// Oracle
		OracleMode:    os.Getenv("ORACLE_MODE"),
		OracleKeyHash: os.Getenv("ORACLE_KEY_HASH"),

		// OpenTelemetry
		OTelEnabled:              os.Getenv("OTEL_ENABLED") == "true",
		OTelServiceName:          getEnvWithDefault("OTEL_SERVICE_NAME", "raffler"),
		OTelExporterType:         getEnvWithDefault("OTEL_EXPORTER_TYPE", "console"),
		OTelOTLPEndpoint:         getEnvWithDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "otel-collector:4317"),
		OTelExportIntervalMillis: 60000,

		LogLevel:    getEnvWithDefault("LOG_LEVEL", "info"),
		Environment: os.Getenv("ENVIRONMENT"),
	}

	if interval := os.Getenv("OTEL_EXPORT_INTERVAL_MILLIS"); interval != "" {
		if parsed, err := strconv.Atoi(interval); err == nil && parsed > 0 {
			config.OTelExportIntervalMillis = parsed
		}
	}

	var err error
	if config.EntranceFee, err = getInt64WithDefault("ENTRANCE_FEE", 10_000_000_000_000_000); err != nil {
		return nil, err
	}
	if config.RaffleInterval, err = getDurationWithDefault("RAFFLE_INTERVAL", 30*time.Second); err != nil {
		return nil, err
	}
	if config.UpkeepPollInterval, err = getDurationWithDefault("UPKEEP_POLL_INTERVAL", 10*time.Second); err != nil {
		return nil, err
	}
	if config.OracleGracePeriod, err = getDurationWithDefault("ORACLE_GRACE_PERIOD", time.Hour); err != nil {
		return nil, err
	}
	if config.LocalOracleDelay, err = getDurationWithDefault("LOCAL_ORACLE_DELAY", 2*time.Second); err != nil {
		return nil, err
	}
	if config.OracleSubscriptionID, err = getUintWithDefault("ORACLE_SUBSCRIPTION_ID", 0, 64); err != nil {
		return nil, err
	}

	if config.DatabaseMaxConnLifetime, err = getDurationWithDefault("DATABASE_MAX_CONN_LIFETIME", time.Hour); err != nil {
		return nil, err
	}
	maxConns, err := getUintWithDefault("DATABASE_MAX_CONNS", 10, 31)
	if err != nil {
		return nil, err
	}
	config.DatabaseMaxConns = int32(maxConns)

	confirmations, err := getUintWithDefault("ORACLE_REQUEST_CONFIRMATIONS", 3, 16)
	if err != nil {
		return nil, err
	}
	config.OracleRequestConfirmations = uint16(confirmations)

	gasLimit, err := getUintWithDefault("ORACLE_CALLBACK_GAS_LIMIT", 500000, 32)
	if err != nil {
		return nil, err
	}
	config.OracleCallbackGasLimit = uint32(gasLimit)

	numWords, err := getUintWithDefault("ORACLE_NUM_WORDS", 1, 32)
	if err != nil {
		return nil, err
	}
	config.OracleNumWords = uint32(numWords)

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.OracleMode == "" {
		if config.IsProduction() {
			config.OracleMode = OracleModeNATS
		} else {
			config.OracleMode = OracleModeLocal
		}
	}

	if config.Environment != "test" {
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		if config.DatabaseName != "" && strings.TrimSpace(config.DatabaseName) == "" {
			return nil, fmt.Errorf("DATABASE_NAME cannot be empty when provided")
		}
	}

	if config.OracleMode != OracleModeNATS && config.OracleMode != OracleModeLocal {
		return nil, fmt.Errorf("ORACLE_MODE must be %q or %q, got %q", OracleModeNATS, OracleModeLocal, config.OracleMode)
	}
	if err := config.RaffleConfig().Validate(); err != nil {
		return nil, fmt.Errorf("invalid raffle configuration: %w", err)
	}

	return config, nil
}

// getEnvWithDefault returns the environment variable value or a default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt64WithDefault(key string, defaultValue int64) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return parsed, nil
}

func getUintWithDefault(key string, defaultValue uint64, bitSize int) (uint64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.ParseUint(value, 10, bitSize)
	if err != nil {
		return 0, fmt.Errorf("%s must be an unsigned %d-bit integer: %w", key, bitSize, err)
	}
	return parsed, nil
}

func getDurationWithDefault(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	return parsed, nil
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
// This should only be called from test files
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
// This should only be called from test files
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:                "test",
		HTTPAddr:                   ":0",
		AdminToken:                 "test-admin-token",
		EntranceFee:                10_000_000_000_000_000,
		RaffleInterval:             30 * time.Second,
		UpkeepPollInterval:         time.Second,
		OracleMode:                 OracleModeLocal,
		OracleKeyHash:              "0x0",
		OracleRequestConfirmations: 3,
		OracleCallbackGasLimit:     500000,
		OracleNumWords:             1,
		OracleGracePeriod:          time.Hour,
		OTelServiceName:            "raffler-test",
		OTelExporterType:           "none",
		OTelExportIntervalMillis:   60000,
		LogLevel:                   "debug",
	}
}
