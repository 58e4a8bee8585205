package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Vault    VaultConfig    `mapstructure:"vault"`
	Session  SessionConfig  `mapstructure:"session"`
	Link     LinkConfig     `mapstructure:"link"`
	Advice   AdviceConfig   `mapstructure:"advice"`
	Wallet   WalletConfig   `mapstructure:"wallet"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

// StorageConfig selects where the session ledger lives.
type StorageConfig struct {
	Driver     string `mapstructure:"driver"`      // memory, postgres, sqlite
	SQLitePath string `mapstructure:"sqlite_path"` // database file for the sqlite driver
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// MigrateURL returns the connection string in the form golang-migrate's
// pgx/v5 driver expects.
func (d DatabaseConfig) MigrateURL() string {
	return "pgx5" + strings.TrimPrefix(d.DSN(), "postgres")
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

// VaultConfig configures the token cipher. The passphrase is padded with '0'
// or truncated to 32 bytes to form the key; it is static and never rotated.
type VaultConfig struct {
	Passphrase string `mapstructure:"passphrase"`
	Cipher     string `mapstructure:"cipher"` // aes-256-gcm, xchacha20-poly1305
}

type SessionConfig struct {
	TTL        time.Duration `mapstructure:"ttl"`
	ScanDelay  time.Duration `mapstructure:"scan_delay"`
	DenyCamera bool          `mapstructure:"deny_camera"` // simulate a refused capture device
}

type LinkConfig struct {
	StepDelay     time.Duration `mapstructure:"step_delay"`
	FinalizeDelay time.Duration `mapstructure:"finalize_delay"`
	SyncAmount    string        `mapstructure:"sync_amount"` // decimal string
	Institutions  []string      `mapstructure:"institutions"`
}

type AdviceConfig struct {
	Provider    string        `mapstructure:"provider"` // gemini, offline
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"` // empty for the public endpoint
	Model       string        `mapstructure:"model"`
	Temperature float32       `mapstructure:"temperature"`
	TopP        float32       `mapstructure:"top_p"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// WalletConfig seeds the wallet of every new session.
type WalletConfig struct {
	InitialBalance string `mapstructure:"initial_balance"` // decimal string
	Currency       string `mapstructure:"currency"`
	Address        string `mapstructure:"address"`
	Tier           string `mapstructure:"tier"`
	Locale         string `mapstructure:"locale"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: GPV_ (GoldPayments Vault).
// Nested keys use underscore: GPV_REDIS_HOST, GPV_ADVICE_API_KEY, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("storage.driver", "memory")
	v.SetDefault("storage.sqlite_path", "data/goldpayments.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "goldpayments")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "12h")
	v.SetDefault("jwt.issuer", "goldpayments-vault")
	v.SetDefault("vault.passphrase", "gold-payments-elite-secure-vault-2025")
	v.SetDefault("vault.cipher", "aes-256-gcm")
	v.SetDefault("session.ttl", "12h")
	v.SetDefault("session.scan_delay", "2500ms")
	v.SetDefault("session.deny_camera", false)
	v.SetDefault("link.step_delay", "1500ms")
	v.SetDefault("link.finalize_delay", "2s")
	v.SetDefault("link.sync_amount", "450000.00")
	v.SetDefault("link.institutions", []string{"Chase", "Wells Fargo", "Citibank", "HSBC", "BBVA", "Santander"})
	v.SetDefault("advice.provider", "offline")
	v.SetDefault("advice.api_key", "")
	v.SetDefault("advice.base_url", "")
	v.SetDefault("advice.model", "gemini-3-flash-preview")
	v.SetDefault("advice.temperature", 0.8)
	v.SetDefault("advice.top_p", 0.9)
	v.SetDefault("advice.timeout", "30s")
	v.SetDefault("wallet.initial_balance", "1000000.00")
	v.SetDefault("wallet.currency", "MXN")
	v.SetDefault("wallet.address", "0xG0LD...88FF")
	v.SetDefault("wallet.tier", "Elite")
	v.SetDefault("wallet.locale", "es-MX")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: GPV_REDIS_HOST -> redis.host
	v.SetEnvPrefix("GPV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// A missing config file is fine; env vars and defaults can suffice.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects settings the services cannot start with.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "memory", "postgres":
	case "sqlite":
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("storage.sqlite_path must be set for the sqlite driver")
		}
	default:
		return fmt.Errorf("storage.driver must be memory, postgres or sqlite, got %q", c.Storage.Driver)
	}
	switch c.Vault.Cipher {
	case "aes-256-gcm", "xchacha20-poly1305":
	default:
		return fmt.Errorf("vault.cipher must be aes-256-gcm or xchacha20-poly1305, got %q", c.Vault.Cipher)
	}
	switch c.Advice.Provider {
	case "gemini", "offline":
	default:
		return fmt.Errorf("advice.provider must be gemini or offline, got %q", c.Advice.Provider)
	}
	if c.Vault.Passphrase == "" {
		return fmt.Errorf("vault.passphrase must not be empty")
	}
	if len(c.Link.Institutions) == 0 {
		return fmt.Errorf("link.institutions must not be empty")
	}
	return nil
}
