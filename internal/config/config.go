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
	Upload       UploadConfig
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

// AuthConfig defines authentication parameters. Tokens are issued by
// the portal's auth collaborator; this service only verifies them.
type AuthConfig struct {
	JWTSecret string
}

// NotificationConfig holds outbound email settings. When SMTPHost is
// empty, notifications are logged instead of sent.
type NotificationConfig struct {
	SMTPHost   string
	SMTPPort   int
	SMTPUser   string
	SMTPPass   string
	EmailFrom  string
	FromName   string
	OpsMailbox string
}

// EscalationConfig tunes the background sweeps.
type EscalationConfig struct {
	AutoCloseAfterHours  int
	AuditRetentionDays   int
	AuditKeepMostRecent  int
	AutoCloseIntervalMin int
	AuditIntervalMin     int
}

// UploadConfig governs short-lived attachment upload credentials.
type UploadConfig struct {
	SigningSecret     string
	CredentialTTLMin  int
	IssuePerHourLimit int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	smtpPort, err := strconv.Atoi(getEnv("NOTIFY_SMTP_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("invalid NOTIFY_SMTP_PORT: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "helpdesk-service"),
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
			JWTSecret: getEnv("AUTH_JWT_SECRET", "dev-secret"),
		},
		Notification: NotificationConfig{
			SMTPHost:   os.Getenv("NOTIFY_SMTP_HOST"),
			SMTPPort:   smtpPort,
			SMTPUser:   os.Getenv("NOTIFY_SMTP_USER"),
			SMTPPass:   os.Getenv("NOTIFY_SMTP_PASS"),
			EmailFrom:  getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			FromName:   getEnv("NOTIFY_FROM_NAME", "Helpdesk"),
			OpsMailbox: getEnv("NOTIFY_OPS_MAILBOX", "support@example.com"),
		},
		Escalation: EscalationConfig{
			AutoCloseAfterHours:  getEnvAsInt("ESCALATION_AUTO_CLOSE_AFTER_HOURS", 72),
			AuditRetentionDays:   getEnvAsInt("ESCALATION_AUDIT_RETENTION_DAYS", 5),
			AuditKeepMostRecent:  getEnvAsInt("ESCALATION_AUDIT_KEEP_MOST_RECENT", 500),
			AutoCloseIntervalMin: getEnvAsInt("ESCALATION_AUTO_CLOSE_INTERVAL_MINUTES", 60),
			AuditIntervalMin:     getEnvAsInt("ESCALATION_AUDIT_INTERVAL_MINUTES", 1440),
		},
		Upload: UploadConfig{
			SigningSecret:     getEnv("UPLOAD_SIGNING_SECRET", "dev-upload-secret"),
			CredentialTTLMin:  getEnvAsInt("UPLOAD_CREDENTIAL_TTL_MINUTES", 10),
			IssuePerHourLimit: getEnvAsInt("UPLOAD_ISSUE_PER_HOUR_LIMIT", 30),
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

// AutoCloseAfter returns the resolved-age threshold for auto-close.
func (e EscalationConfig) AutoCloseAfter() time.Duration {
	return time.Duration(e.AutoCloseAfterHours) * time.Hour
}

// AuditRetention returns the audit-log retention horizon.
func (e EscalationConfig) AuditRetention() time.Duration {
	return time.Duration(e.AuditRetentionDays) * 24 * time.Hour
}

// AutoCloseInterval returns the auto-close sweep period.
func (e EscalationConfig) AutoCloseInterval() time.Duration {
	return time.Duration(e.AutoCloseIntervalMin) * time.Minute
}

// AuditInterval returns the audit retention sweep period.
func (e EscalationConfig) AuditInterval() time.Duration {
	return time.Duration(e.AuditIntervalMin) * time.Minute
}

// CredentialTTL returns the upload credential lifetime.
func (u UploadConfig) CredentialTTL() time.Duration {
	return time.Duration(u.CredentialTTLMin) * time.Minute
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
