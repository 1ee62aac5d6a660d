package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. GARAGE_DATABASE_PASSWORD
const EnvPrefix = "GARAGE"

// Lock backends
const (
	LockBackendMemory   = "memory"
	LockBackendRedis    = "redis"
	LockBackendDatabase = "database"
)

// Idempotency backends
const (
	IdempotencyBackendMemory = "memory"
	IdempotencyBackendRedis  = "redis"
)

// Config holds all application configuration
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Log         LogConfig         `mapstructure:"log"`
	HTTP        HTTPConfig        `mapstructure:"http"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
	Lock        LockConfig        `mapstructure:"lock"`
	Treasury    TreasuryConfig    `mapstructure:"treasury"`
	Inventory   InventoryConfig   `mapstructure:"inventory"`
	Fiscal      FiscalConfig      `mapstructure:"fiscal"`
	Idempotency IdempotencyConfig `mapstructure:"idempotency"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
	Output string `mapstructure:"output"` // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Port string `mapstructure:"port"`
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // minutes
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// HTTPConfig holds HTTP server configuration. An empty origin list allows
// no cross-origin requests.
type HTTPConfig struct {
	ReadTimeout      time.Duration `mapstructure:"read_timeout"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout"`
	IdleTimeout      time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout  time.Duration `mapstructure:"shutdown_timeout"`
	MaxHeaderBytes   int           `mapstructure:"max_header_bytes"`
	MaxBodySize      int64         `mapstructure:"max_body_size"`
	CORSAllowOrigins []string      `mapstructure:"cors_allow_origins"`
	CORSAllowMethods []string      `mapstructure:"cors_allow_methods"`
	CORSAllowHeaders []string      `mapstructure:"cors_allow_headers"`
	TrustedProxies   []string      `mapstructure:"trusted_proxies"`
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	CollectorEndpoint string  `mapstructure:"collector_endpoint"` // host:port of the OTLP gRPC receiver
	SamplingRatio     float64 `mapstructure:"sampling_ratio"`     // 0.0 to 1.0
	ServiceName       string  `mapstructure:"service_name"`
	Insecure          bool    `mapstructure:"insecure"` // plaintext gRPC, development only
	LogsEnabled       bool    `mapstructure:"logs_enabled"`

	DBTraceEnabled    bool          `mapstructure:"db_trace_enabled"`
	DBLogFullSQL      bool          `mapstructure:"db_log_full_sql"` // dev only
	DBSlowQueryThresh time.Duration `mapstructure:"db_slow_query_threshold"`
}

// LockConfig selects how fiscal chain appends are serialized
type LockConfig struct {
	Backend        string        `mapstructure:"backend"` // memory, redis, database
	AcquireTimeout time.Duration `mapstructure:"acquire_timeout"`
	TTL            time.Duration `mapstructure:"ttl"` // redis only; must outlive the longest posting
	RetryInterval  time.Duration `mapstructure:"retry_interval"`
}

// TreasuryConfig holds the system default payment tolerance, used when
// neither the company nor its country configure one
type TreasuryConfig struct {
	ToleranceEnabled    bool            `mapstructure:"tolerance_enabled"`
	TolerancePercentage decimal.Decimal `mapstructure:"tolerance_percentage"`
	ToleranceMaxAmount  decimal.Decimal `mapstructure:"tolerance_max_amount"`
}

// InventoryConfig holds counting settings
type InventoryConfig struct {
	ReconcileWorkers int `mapstructure:"reconcile_workers"`
}

// FiscalConfig controls the background chain verification
type FiscalConfig struct {
	VerifyInterval time.Duration `mapstructure:"verify_interval"` // zero disables the periodic check
	VerifyTimeout  time.Duration `mapstructure:"verify_timeout"`
}

// IdempotencyConfig controls replay of POST requests carrying an
// Idempotency-Key header
type IdempotencyConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Backend string        `mapstructure:"backend"` // memory, redis
	TTL     time.Duration `mapstructure:"ttl"`
}

// defaults lists every key Load knows. Keys must be registered with viper
// for AutomaticEnv to reach them through Unmarshal, so keys without a
// meaningful default carry their zero value.
var defaults = map[string]any{
	"app.name": "garage-erp",
	"app.env":  "development",
	"app.port": "8080",

	"database.host":               "localhost",
	"database.port":               5432,
	"database.user":               "postgres",
	"database.password":           "",
	"database.dbname":             "garage_erp",
	"database.sslmode":            "disable",
	"database.max_open_conns":     25,
	"database.max_idle_conns":     5,
	"database.conn_max_lifetime":  60,
	"database.conn_max_idle_time": 30,

	"redis.host":     "localhost",
	"redis.port":     6379,
	"redis.password": "",
	"redis.db":       0,

	"log.level":  "info",
	"log.format": "console",
	"log.output": "stdout",

	"http.read_timeout":       15 * time.Second,
	"http.write_timeout":      15 * time.Second,
	"http.idle_timeout":       60 * time.Second,
	"http.shutdown_timeout":   30 * time.Second,
	"http.max_header_bytes":   1 << 20,
	"http.max_body_size":      2 << 20,
	"http.cors_allow_origins": []string{},
	"http.cors_allow_methods": []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
	"http.cors_allow_headers": []string{"Content-Type", "Authorization", "X-Request-ID", "Idempotency-Key"},
	"http.trusted_proxies":    []string{},

	"telemetry.enabled":                 false,
	"telemetry.collector_endpoint":      "localhost:4317",
	"telemetry.sampling_ratio":          1.0,
	"telemetry.service_name":            "garage-erp",
	"telemetry.insecure":                false,
	"telemetry.logs_enabled":            false,
	"telemetry.db_trace_enabled":        false,
	"telemetry.db_log_full_sql":         false,
	"telemetry.db_slow_query_threshold": 200 * time.Millisecond,

	"lock.backend":         LockBackendDatabase,
	"lock.acquire_timeout": 5 * time.Second,
	"lock.ttl":             30 * time.Second,
	"lock.retry_interval":  25 * time.Millisecond,

	"treasury.tolerance_enabled":    true,
	"treasury.tolerance_percentage": "0.005",
	"treasury.tolerance_max_amount": "0.50",

	"inventory.reconcile_workers": 8,

	"fiscal.verify_interval": time.Duration(0),
	"fiscal.verify_timeout":  5 * time.Minute,

	"idempotency.enabled": true,
	"idempotency.backend": IdempotencyBackendMemory,
	"idempotency.ttl":     24 * time.Hour,
}

// decimalKeys are parsed up front so a bad value names its key
var decimalKeys = []string{"treasury.tolerance_percentage", "treasury.tolerance_max_amount"}

// Load loads configuration from an optional .env file, config.toml and
// environment variables.
// Priority (highest to lowest):
// 1. Environment variables with GARAGE prefix (e.g., GARAGE_DATABASE_PASSWORD)
// 2. .env (only sets variables not already present)
// 3. config.toml
// 4. Built-in defaults
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")
	v.AddConfigPath("/app")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	return v
}

// decode unmarshals the merged settings of v without validating them
func decode(v *viper.Viper) (*Config, error) {
	for _, key := range decimalKeys {
		if s := strings.TrimSpace(v.GetString(key)); s != "" {
			if _, err := decimal.NewFromString(s); err != nil {
				return nil, fmt.Errorf("%s must be a decimal, got %q: %w", key, s, err)
			}
		}
	}

	var cfg Config
	hook := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		mapstructure.TextUnmarshallerHookFunc(),
	)
	if err := v.Unmarshal(&cfg, viper.DecodeHook(hook)); err != nil {
		return nil, fmt.Errorf("error decoding configuration: %w", err)
	}
	cfg.Lock.Backend = strings.ToLower(cfg.Lock.Backend)
	cfg.Idempotency.Backend = strings.ToLower(cfg.Idempotency.Backend)
	return &cfg, nil
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production to prevent sensitive data exposure in traces")
		}
		// Several server processes share each chain; an in-process mutex cannot serialize them.
		if c.Lock.Backend == LockBackendMemory {
			return fmt.Errorf("lock.backend=memory is not allowed in production")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	switch c.Lock.Backend {
	case LockBackendMemory, LockBackendRedis, LockBackendDatabase:
	default:
		return fmt.Errorf("lock.backend must be one of memory, redis, database, got %q", c.Lock.Backend)
	}
	if c.Lock.AcquireTimeout < 0 {
		return fmt.Errorf("lock.acquire_timeout cannot be negative")
	}
	if c.Lock.Backend == LockBackendRedis && c.Lock.TTL <= c.Lock.AcquireTimeout {
		return fmt.Errorf("lock.ttl (%s) must exceed lock.acquire_timeout (%s)", c.Lock.TTL, c.Lock.AcquireTimeout)
	}

	if c.Treasury.TolerancePercentage.IsNegative() || c.Treasury.TolerancePercentage.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("treasury.tolerance_percentage must be between 0 and 1, got %s", c.Treasury.TolerancePercentage)
	}
	if c.Treasury.ToleranceMaxAmount.IsNegative() {
		return fmt.Errorf("treasury.tolerance_max_amount cannot be negative")
	}
	if c.Inventory.ReconcileWorkers < 0 {
		return fmt.Errorf("inventory.reconcile_workers cannot be negative")
	}
	if c.Fiscal.VerifyInterval < 0 {
		return fmt.Errorf("fiscal.verify_interval cannot be negative")
	}
	switch c.Idempotency.Backend {
	case IdempotencyBackendMemory, IdempotencyBackendRedis:
	default:
		return fmt.Errorf("idempotency.backend must be one of memory, redis, got %q", c.Idempotency.Backend)
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
