package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App       AppConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	Auth      AuthConfig
	Mail      MailConfig
	RateLimit RateLimitConfig
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

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines token lifetimes and credential parameters. TTLs are
// configured as Go duration strings ("15m", "24h", "720h") and parsed once
// at load time.
type AuthConfig struct {
	JWTSecret              string
	AccessTokenTTL         time.Duration
	RefreshTokenTTL        time.Duration
	EmailVerificationTTL   time.Duration
	PasswordChangeTTL      time.Duration
	UnsubscribeTTL         time.Duration
	PendingRegistrationTTL time.Duration
	SweepInterval          time.Duration
	BcryptCost             int
}

// MailConfig holds outbound mail identity and the public URLs embedded in
// verification emails.
type MailConfig struct {
	From              string
	PublicBaseURL     string
	ConfirmSuccessURL string
	ConfirmFailureURL string
}

// RateLimitConfig configures the fixed-window limiter applied to login and
// verification-resend requests.
type RateLimitConfig struct {
	Enabled      bool
	LoginMax     int
	LoginWindow  time.Duration
	ResendMax    int
	ResendWindow time.Duration
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "account-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
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
			JWTSecret:              getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTL:         getEnvAsDuration("AUTH_ACCESS_TOKEN_TTL", 15*time.Minute),
			RefreshTokenTTL:        getEnvAsDuration("AUTH_REFRESH_TOKEN_TTL", 30*24*time.Hour),
			EmailVerificationTTL:   getEnvAsDuration("AUTH_EMAIL_VERIFICATION_TTL", 24*time.Hour),
			PasswordChangeTTL:      getEnvAsDuration("AUTH_PASSWORD_CHANGE_TTL", 30*time.Minute),
			UnsubscribeTTL:         getEnvAsDuration("AUTH_UNSUBSCRIBE_TTL", 24*time.Hour),
			PendingRegistrationTTL: getEnvAsDuration("AUTH_PENDING_REGISTRATION_TTL", 24*time.Hour),
			SweepInterval:          getEnvAsDuration("AUTH_EXPIRY_SWEEP_INTERVAL", time.Minute),
			BcryptCost:             getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Mail: MailConfig{
			From:              getEnv("MAIL_FROM", "noreply@example.com"),
			PublicBaseURL:     getEnv("MAIL_PUBLIC_BASE_URL", "http://localhost:8080"),
			ConfirmSuccessURL: getEnv("MAIL_CONFIRM_SUCCESS_URL", ""),
			ConfirmFailureURL: getEnv("MAIL_CONFIRM_FAILURE_URL", ""),
		},
		RateLimit: RateLimitConfig{
			Enabled:      getEnvAsBool("RATE_LIMIT_ENABLED", true),
			LoginMax:     getEnvAsInt("RATE_LIMIT_LOGIN_MAX", 10),
			LoginWindow:  getEnvAsDuration("RATE_LIMIT_LOGIN_WINDOW", time.Minute),
			ResendMax:    getEnvAsInt("RATE_LIMIT_RESEND_MAX", 3),
			ResendWindow: getEnvAsDuration("RATE_LIMIT_RESEND_WINDOW", 10*time.Minute),
		},
	}

	return cfg, nil
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

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return parsed
}
