package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
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
	Events       EventsConfig
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
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	RunMigrations   bool
	ConnMaxIdleSec  int32
	ConnMaxLifeSec  int32
	ConnectAttempts int
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr               string
	Password           string
	DB                 int
	DialTimeoutSeconds int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// ClaimsPolicy selects how much the resolver trusts the principal snapshot
// embedded in a token.
type ClaimsPolicy string

const (
	// ClaimsPolicyToken trusts the token until it expires.
	ClaimsPolicyToken ClaimsPolicy = "token"
	// ClaimsPolicyMarker reloads from the store when a moderation marker is
	// newer than the token.
	ClaimsPolicyMarker ClaimsPolicy = "marker"
	// ClaimsPolicyStrict reloads from the store on every request.
	ClaimsPolicyStrict ClaimsPolicy = "strict"
)

// AuthConfig defines authentication parameters. Secrets are per principal
// kind so a user token can never be replayed as a company token.
type AuthConfig struct {
	UserAccessSecret        string
	UserRefreshSecret       string
	CompanyAccessSecret     string
	CompanyRefreshSecret    string
	AccessTokenTTLMinutes   int
	RefreshTokenTTLDays     int
	BcryptCost              int
	ClaimsPolicy            ClaimsPolicy
	PasswordResetTTLMinutes int
}

// EventsConfig selects where moderation and messaging events are published.
type EventsConfig struct {
	Backend      string
	RedisChannel string
	KafkaBrokers []string
	KafkaTopic   string
	KafkaClient  string
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

	policy := ClaimsPolicy(strings.ToLower(getEnv("AUTH_CLAIMS_POLICY", string(ClaimsPolicyToken))))
	switch policy {
	case ClaimsPolicyToken, ClaimsPolicyMarker, ClaimsPolicyStrict:
	default:
		return nil, fmt.Errorf("invalid AUTH_CLAIMS_POLICY %q", policy)
	}

	backend := strings.ToLower(getEnv("EVENTS_BACKEND", "memory"))
	switch backend {
	case "memory", "redis", "kafka":
	default:
		return nil, fmt.Errorf("invalid EVENTS_BACKEND %q", backend)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "marketplace-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:             os.Getenv("POSTGRES_DSN"),
			MaxConns:        int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:        int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:   getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec:  int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec:  int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
			ConnectAttempts: getEnvAsInt("POSTGRES_CONNECT_ATTEMPTS", 5),
		},
		Redis: RedisConfig{
			Addr:               getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:           os.Getenv("REDIS_PASSWORD"),
			DB:                 redisDB,
			DialTimeoutSeconds: getEnvAsInt("REDIS_DIAL_TIMEOUT_SECONDS", 3),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			UserAccessSecret:        getEnv("AUTH_USER_ACCESS_SECRET", "dev-user-access"),
			UserRefreshSecret:       getEnv("AUTH_USER_REFRESH_SECRET", "dev-user-refresh"),
			CompanyAccessSecret:     getEnv("AUTH_COMPANY_ACCESS_SECRET", "dev-company-access"),
			CompanyRefreshSecret:    getEnv("AUTH_COMPANY_REFRESH_SECRET", "dev-company-refresh"),
			AccessTokenTTLMinutes:   getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			RefreshTokenTTLDays:     getEnvAsInt("AUTH_REFRESH_TOKEN_TTL_DAYS", 7),
			BcryptCost:              getEnvAsInt("AUTH_BCRYPT_COST", 12),
			ClaimsPolicy:            policy,
			PasswordResetTTLMinutes: getEnvAsInt("AUTH_PASSWORD_RESET_TTL_MINUTES", 30),
		},
		Events: EventsConfig{
			Backend:      backend,
			RedisChannel: getEnv("EVENTS_REDIS_CHANNEL", "marketplace.events"),
			KafkaBrokers: getEnvAsList("EVENTS_KAFKA_BROKERS", []string{"127.0.0.1:9092"}),
			KafkaTopic:   getEnv("EVENTS_KAFKA_TOPIC", "marketplace.events"),
			KafkaClient:  getEnv("EVENTS_KAFKA_CLIENT_ID", "marketplace-service"),
		},
		Notification: NotificationConfig{
			EmailFrom:  getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// IsProduction reports whether cookies must carry the Secure flag.
func (a AppConfig) IsProduction() bool {
	return strings.EqualFold(a.Env, "production")
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// DialTimeout bounds connect, read and write on the Redis client.
func (r RedisConfig) DialTimeout() time.Duration {
	if r.DialTimeoutSeconds <= 0 {
		return 3 * time.Second
	}
	return time.Duration(r.DialTimeoutSeconds) * time.Second
}

// AccessTTL returns the access token lifetime.
func (a AuthConfig) AccessTTL() time.Duration {
	if a.AccessTokenTTLMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}

// RefreshTTL returns the refresh token lifetime.
func (a AuthConfig) RefreshTTL() time.Duration {
	if a.RefreshTokenTTLDays <= 0 {
		return 7 * 24 * time.Hour
	}
	return time.Duration(a.RefreshTokenTTLDays) * 24 * time.Hour
}

// ResetSweepInterval is how often unusable reset tokens are purged.
func (a AuthConfig) ResetSweepInterval() time.Duration {
	return 2 * a.PasswordResetTTL()
}

// PasswordResetTTL returns how long a reset token stays redeemable.
func (a AuthConfig) PasswordResetTTL() time.Duration {
	if a.PasswordResetTTLMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(a.PasswordResetTTLMinutes) * time.Minute
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

func getEnvAsList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
