package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverDynamoDB = "dynamodb"
	DriverRedis    = "redis"
)

// Development-only signing secrets used when the environment sets none.
const (
	devUserJWTSecret  = "dev-user-secret-change-me-0123456789"
	devAdminJWTSecret = "dev-admin-secret-change-me-012345678"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Store    StoreConfig
	Postgres PostgresConfig
	DynamoDB DynamoDBConfig
	Sessions SessionsConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Admin    AdminConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// StoreConfig selects the document store driver.
type StoreConfig struct {
	Driver string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// DynamoDBConfig holds DynamoDB table settings. Endpoint is only set for
// local emulators.
type DynamoDBConfig struct {
	Endpoint  string
	Region    string
	TableName string
}

// SessionsConfig selects the session registry driver.
type SessionsConfig struct {
	Driver string
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level      string
	Service    string
	Production bool
}

// AuthConfig defines authentication parameters. Users and admins sign with
// distinct secrets.
type AuthConfig struct {
	UserJWTSecret       string
	AdminJWTSecret      string
	UserTokenTTLSeconds int
	AdminTokenTTLSecs   int
	BcryptCost          int
}

// AdminConfig seeds the administrator account at startup.
type AdminConfig struct {
	ID       string
	Password string
}

// Load reads configuration from environment variables, applying defaults where possible.
// envFiles are handed to godotenv; missing files are ignored.
func Load(envFiles ...string) (*Config, error) {
	_ = godotenv.Load(envFiles...)

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "tarot-house-backend"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Store: StoreConfig{
			Driver: getEnv("STORE_DRIVER", DriverMemory),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		DynamoDB: DynamoDBConfig{
			Endpoint:  os.Getenv("DYNAMODB_ENDPOINT"),
			Region:    getEnv("DYNAMODB_REGION", "us-east-1"),
			TableName: getEnv("DYNAMODB_TABLE_NAME", "TarotHouse"),
		},
		Sessions: SessionsConfig{
			Driver: getEnv("SESSION_STORE_DRIVER", DriverMemory),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			UserJWTSecret:       getEnv("AUTH_USER_JWT_SECRET", devUserJWTSecret),
			AdminJWTSecret:      getEnv("AUTH_ADMIN_JWT_SECRET", devAdminJWTSecret),
			UserTokenTTLSeconds: getEnvAsInt("AUTH_USER_TOKEN_TTL_SECONDS", 3600),
			AdminTokenTTLSecs:   getEnvAsInt("AUTH_ADMIN_TOKEN_TTL_SECONDS", 600),
			BcryptCost:          getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Admin: AdminConfig{
			ID:       os.Getenv("ADMIN_ID"),
			Password: os.Getenv("ADMIN_PASSWORD"),
		},
	}

	cfg.Logger.Service = cfg.App.Name
	cfg.Logger.Production = cfg.App.IsProduction()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects combinations the service cannot run with.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverMemory, DriverDynamoDB:
	case DriverPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required for the %s store driver", DriverPostgres)
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}

	switch c.Sessions.Driver {
	case DriverMemory, DriverRedis:
	default:
		return fmt.Errorf("unknown SESSION_STORE_DRIVER %q", c.Sessions.Driver)
	}

	if c.Auth.UserJWTSecret == "" || c.Auth.AdminJWTSecret == "" {
		return fmt.Errorf("AUTH_USER_JWT_SECRET and AUTH_ADMIN_JWT_SECRET are required")
	}
	if c.Auth.UserJWTSecret == c.Auth.AdminJWTSecret {
		return fmt.Errorf("user and admin JWT secrets must differ")
	}
	if c.App.IsProduction() && (c.Auth.UserJWTSecret == devUserJWTSecret || c.Auth.AdminJWTSecret == devAdminJWTSecret) {
		return fmt.Errorf("AUTH_USER_JWT_SECRET and AUTH_ADMIN_JWT_SECRET must be set in production")
	}
	if c.Auth.UserTokenTTLSeconds <= 0 || c.Auth.AdminTokenTTLSecs <= 0 {
		return fmt.Errorf("token TTLs must be positive")
	}
	if (c.Admin.ID == "") != (c.Admin.Password == "") {
		return fmt.Errorf("ADMIN_ID and ADMIN_PASSWORD must be set together")
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// IsProduction reports whether diagnostic details must be hidden.
func (a AppConfig) IsProduction() bool {
	return a.Env == "production"
}

// UserTokenTTL returns the end-user session lifetime.
func (a AuthConfig) UserTokenTTL() time.Duration {
	return time.Duration(a.UserTokenTTLSeconds) * time.Second
}

// AdminTokenTTL returns the administrator session lifetime.
func (a AuthConfig) AdminTokenTTL() time.Duration {
	return time.Duration(a.AdminTokenTTLSecs) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
