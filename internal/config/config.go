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
	AI           AIConfig
	Assignment   AssignmentConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	CreateRateLimit       int
	CreateRateWindowSec   int
}

// Addr returns the host:port the server listens on.
func (c AppConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// RequestTimeout returns the per-request deadline.
func (c AppConfig) RequestTimeout() time.Duration {
	if c.RequestTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// CreateRateWindow returns the fixed window for the ticket-creation limiter.
func (c AppConfig) CreateRateWindow() time.Duration {
	if c.CreateRateWindowSec <= 0 {
		return time.Minute
	}
	return time.Duration(c.CreateRateWindowSec) * time.Second
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
}

// AIConfig points at the external prioritization/evaluation backend. The
// assignment call is minutes-scale because the backend may fan out to an LLM.
type AIConfig struct {
	BaseURL                  string
	AssignmentTimeoutMinutes int
	EvaluationTimeoutSeconds int
}

// AssignmentConfig carries the workload/matching knobs. The aggregate cap and
// per-ticket cap are injected values, not derived laws.
type AssignmentConfig struct {
	WorkloadMaxAggregate int
	TicketScoreCap       int
	StrictSkillMatch     bool
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
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
			Name:                  getEnv("APP_NAME", "servicedesk"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			CreateRateLimit:       getEnvAsInt("TICKET_CREATE_RATE_LIMIT", 30),
			CreateRateWindowSec:   getEnvAsInt("TICKET_CREATE_RATE_WINDOW_SECONDS", 60),
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
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		AI: AIConfig{
			BaseURL:                  os.Getenv("AI_BACKEND_URL"),
			AssignmentTimeoutMinutes: getEnvAsInt("AI_ASSIGNMENT_TIMEOUT_MINUTES", 2),
			EvaluationTimeoutSeconds: getEnvAsInt("AI_EVALUATION_TIMEOUT_SECONDS", 60),
		},
		Assignment: AssignmentConfig{
			WorkloadMaxAggregate: getEnvAsInt("WORKLOAD_MAX_AGGREGATE", 200),
			TicketScoreCap:       getEnvAsInt("WORKLOAD_TICKET_SCORE_CAP", 20),
			StrictSkillMatch:     getEnvAsBool("SKILL_MATCH_STRICT", false),
		},
		Notification: NotificationConfig{
			EmailFrom:  getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
	}

	return cfg, nil
}

// AssignmentTimeout returns the bounded timeout for prioritization calls.
func (c AIConfig) AssignmentTimeout() time.Duration {
	if c.AssignmentTimeoutMinutes <= 0 {
		return 2 * time.Minute
	}
	return time.Duration(c.AssignmentTimeoutMinutes) * time.Minute
}

// EvaluationTimeout returns the bounded timeout for evaluation calls.
func (c AIConfig) EvaluationTimeout() time.Duration {
	if c.EvaluationTimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.EvaluationTimeoutSeconds) * time.Second
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
