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
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	Escalation   EscalationConfig
	Storage      StorageConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	CORSAllowOrigins      string
	BodyLimitBytes        int
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

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
	SeedAdminEmail        string
	SeedAdminPassword     string
}

// NotificationConfig controls where domain events are fanned out.
type NotificationConfig struct {
	EmailFrom    string
	WebhookURL   string
	RedisChannel string
}

// EscalationConfig tunes the SLA sweeper.
type EscalationConfig struct {
	Enabled         bool
	IntervalMinutes int
	GraceHours      int
	LockTTLSeconds  int
}

// StorageConfig points at the object store holding resolution proofs.
type StorageConfig struct {
	Endpoint       string
	AccessKey      string
	SecretKey      string
	Bucket         string
	UseSSL         bool
	MaxUploadBytes int64
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "grievance-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "5000"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			CORSAllowOrigins:      getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173"),
			BodyLimitBytes:        getEnvAsInt("HTTP_BODY_LIMIT_BYTES", 8<<20),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
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
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60*24*30),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 10),
			SeedAdminEmail:        getEnv("SEED_ADMIN_EMAIL", "admin@campus.local"),
			SeedAdminPassword:     os.Getenv("SEED_ADMIN_PASSWORD"),
		},
		Notification: NotificationConfig{
			EmailFrom:    getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			WebhookURL:   getEnv("NOTIFY_WEBHOOK_URL", ""),
			RedisChannel: getEnv("NOTIFY_REDIS_CHANNEL", "grievance.events"),
		},
		Escalation: EscalationConfig{
			Enabled:         getEnvAsBool("ESCALATION_ENABLED", true),
			IntervalMinutes: getEnvAsInt("ESCALATION_INTERVAL_MINUTES", 30),
			GraceHours:      getEnvAsInt("ESCALATION_GRACE_HOURS", 12),
			LockTTLSeconds:  getEnvAsInt("ESCALATION_LOCK_TTL_SECONDS", 30),
		},
		Storage: StorageConfig{
			Endpoint:       getEnv("MINIO_ENDPOINT", ""),
			AccessKey:      os.Getenv("MINIO_ACCESS_KEY"),
			SecretKey:      os.Getenv("MINIO_SECRET_KEY"),
			Bucket:         getEnv("MINIO_BUCKET", "resolution-proofs"),
			UseSSL:         getEnvAsBool("MINIO_USE_SSL", false),
			MaxUploadBytes: int64(getEnvAsInt("UPLOAD_MAX_BYTES", 5<<20)),
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

// Interval returns the sweep period, defaulting to 30 minutes.
func (e EscalationConfig) Interval() time.Duration {
	if e.IntervalMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(e.IntervalMinutes) * time.Minute
}

// GraceWindow returns the deadline extension granted after an escalation.
func (e EscalationConfig) GraceWindow() time.Duration {
	if e.GraceHours <= 0 {
		return 12 * time.Hour
	}
	return time.Duration(e.GraceHours) * time.Hour
}

// LockTTL bounds how long a per-entity lock may be held.
func (e EscalationConfig) LockTTL() time.Duration {
	if e.LockTTLSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(e.LockTTLSeconds) * time.Second
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
