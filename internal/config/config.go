package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"retail-bank-core/internal/domain"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Log       LogConfig       `yaml:"log"`
	Security  SecurityConfig  `yaml:"security"`
	Ledger    LedgerConfig    `yaml:"ledger"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Redis     RedisConfig     `yaml:"redis"`
}

// ServerConfig contains gRPC server settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig contains storage settings. Driver "memory" keeps all state in process.
type DatabaseConfig struct {
	Driver       string `yaml:"driver"`
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	Database     string `yaml:"database"`
	SSLMode      string `yaml:"ssl_mode"`
	AutoMigrate  bool   `yaml:"auto_migrate"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// SecurityConfig holds the secret material for field encryption and pseudonymization.
type SecurityConfig struct {
	EncryptionKey   string `yaml:"encryption_key"` // base64, 32 bytes
	PseudonymSalt   string `yaml:"pseudonym_salt"`
	PseudonymPrefix string `yaml:"pseudonym_prefix"`
}

// LedgerConfig amounts are decimal strings. A zero limit disables the check.
type LedgerConfig struct {
	DefaultDailyTransferLimit   string `yaml:"default_daily_transfer_limit"`
	DefaultDailyWithdrawalLimit string `yaml:"default_daily_withdrawal_limit"`
	InterestRatePercent         string `yaml:"interest_rate_percent"`
}

// SchedulerConfig contains cron schedule settings (with seconds, UTC)
type SchedulerConfig struct {
	ApplyDailyInterest string `yaml:"apply_daily_interest"`
	ReconcileLoans     string `yaml:"reconcile_loans"`
}

type RedisConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	Password        string `yaml:"password"`
	DB              int    `yaml:"db"`
	TokenTTLMinutes int    `yaml:"token_ttl_minutes"`
}

// Load reads configuration from a YAML file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	// Database
	if val := os.Getenv("DB_DRIVER"); val != "" {
		c.Database.Driver = val
	}
	if val := os.Getenv("DB_HOST"); val != "" {
		c.Database.Host = val
	}
	if val := os.Getenv("DB_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Database.Port)
	}
	if val := os.Getenv("DB_USER"); val != "" {
		c.Database.User = val
	}
	if val := os.Getenv("DB_PASSWORD"); val != "" {
		c.Database.Password = val
	}
	if val := os.Getenv("DB_NAME"); val != "" {
		c.Database.Database = val
	}
	if val := os.Getenv("DB_SSL_MODE"); val != "" {
		c.Database.SSLMode = val
	}

	// Secrets
	if val := os.Getenv("FIELD_ENCRYPTION_KEY"); val != "" {
		c.Security.EncryptionKey = val
	}
	if val := os.Getenv("PSEUDONYM_SALT"); val != "" {
		c.Security.PseudonymSalt = val
	}

	// Server
	if val := os.Getenv("SERVER_HOST"); val != "" {
		c.Server.Host = val
	}
	if val := os.Getenv("SERVER_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.Port)
	}

	// Ledger
	if val := os.Getenv("INTEREST_RATE_PERCENT"); val != "" {
		c.Ledger.InterestRatePercent = val
	}

	// Redis
	if val := os.Getenv("REDIS_HOST"); val != "" {
		c.Redis.Host = val
	}
	if val := os.Getenv("REDIS_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Redis.Port)
	}
	if val := os.Getenv("REDIS_PASSWORD"); val != "" {
		c.Redis.Password = val
	}

	// Log
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate fills defaults and checks the configuration. Problems with secret material wrap
// domain.ErrConfiguration.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Driver == "" {
		c.Database.Driver = DriverPostgres
	}
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if c.Database.Port == 0 {
			c.Database.Port = 5432
		}
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = "disable"
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	if c.Security.EncryptionKey == "" {
		return fmt.Errorf("%w: security.encryption_key is required", domain.ErrConfiguration)
	}
	if len(c.Security.PseudonymSalt) < 16 {
		return fmt.Errorf("%w: security.pseudonym_salt must be at least 16 characters", domain.ErrConfiguration)
	}
	if c.Security.PseudonymPrefix == "" {
		c.Security.PseudonymPrefix = "ANON"
	}
	if strings.ContainsAny(c.Security.PseudonymPrefix, "- \t") {
		return fmt.Errorf("invalid pseudonym prefix: %q", c.Security.PseudonymPrefix)
	}

	// Ledger defaults
	if c.Ledger.DefaultDailyTransferLimit == "" {
		c.Ledger.DefaultDailyTransferLimit = "10000"
	}
	if c.Ledger.DefaultDailyWithdrawalLimit == "" {
		c.Ledger.DefaultDailyWithdrawalLimit = "5000"
	}
	if c.Ledger.InterestRatePercent == "" {
		c.Ledger.InterestRatePercent = "0"
	}
	for name, val := range map[string]string{
		"default_daily_transfer_limit":   c.Ledger.DefaultDailyTransferLimit,
		"default_daily_withdrawal_limit": c.Ledger.DefaultDailyWithdrawalLimit,
		"interest_rate_percent":          c.Ledger.InterestRatePercent,
	} {
		d, err := decimal.NewFromString(val)
		if err != nil {
			return fmt.Errorf("ledger.%s is not a decimal: %q", name, val)
		}
		if d.IsNegative() {
			return fmt.Errorf("ledger.%s must not be negative", name)
		}
	}

	// Scheduler defaults
	if c.Scheduler.ApplyDailyInterest == "" {
		c.Scheduler.ApplyDailyInterest = "0 5 0 * * *" // 00:05 UTC
	}
	if c.Scheduler.ReconcileLoans == "" {
		c.Scheduler.ReconcileLoans = "0 0 3 * * *" // 3 AM UTC
	}

	if c.Redis.Enabled {
		if c.Redis.Host == "" {
			return fmt.Errorf("redis host is required when redis is enabled")
		}
		if c.Redis.Port == 0 {
			c.Redis.Port = 6379
		}
	}
	if c.Redis.TokenTTLMinutes <= 0 {
		c.Redis.TokenTTLMinutes = 24 * 60
	}

	return nil
}

// InterestRate returns the configured annual interest rate in percent.
func (c *Config) InterestRate() decimal.Decimal {
	return decimal.RequireFromString(c.Ledger.InterestRatePercent)
}

// DailyLimits returns the default transfer and withdrawal limits for new accounts.
func (c *Config) DailyLimits() (transfer, withdrawal decimal.Decimal) {
	return decimal.RequireFromString(c.Ledger.DefaultDailyTransferLimit),
		decimal.RequireFromString(c.Ledger.DefaultDailyWithdrawalLimit)
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns the gRPC server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetRedisAddress returns host:port of the token cache.
func (c *Config) GetRedisAddress() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}
