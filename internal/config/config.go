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
	Storage      StorageConfig
	Auth         AuthConfig
	CORS         CORSConfig
	Pagination   PaginationConfig
	Logger       LoggerConfig
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

// StorageConfig holds object store connection values and upload limits.
type StorageConfig struct {
	Endpoint          string
	AccessKey         string
	SecretKey         string
	Bucket            string
	Folder            string
	AllowedExtensions []string
	MaxUploadBytes    int64
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	SignupTokenTTLSeconds int
	LoginTokenTTLSeconds  int
	BcryptCost            int
}

// CORSConfig lists browser origins allowed to call the API.
type CORSConfig struct {
	AllowedOrigins []string
}

// PaginationConfig controls admin listing defaults.
type PaginationConfig struct {
	DefaultPageSize int
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

	maxUpload, err := strconv.ParseInt(getEnv("STORAGE_MAX_UPLOAD_BYTES", "10485760"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid STORAGE_MAX_UPLOAD_BYTES: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "application-intake-service"),
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
		Storage: StorageConfig{
			Endpoint:          getEnv("STORAGE_ENDPOINT", "127.0.0.1:9000"),
			AccessKey:         os.Getenv("STORAGE_ACCESS_KEY"),
			SecretKey:         os.Getenv("STORAGE_SECRET_KEY"),
			Bucket:            getEnv("STORAGE_BUCKET", "intake"),
			Folder:            getEnv("STORAGE_FOLDER", "uploads"),
			AllowedExtensions: getEnvAsList("STORAGE_ALLOWED_EXTENSIONS", []string{"jpg", "jpeg", "png", "pdf"}),
			MaxUploadBytes:    maxUpload,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			// Fallback secret mirrors the legacy deployment; override it in any real environment.
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "jwtSecretKey"),
			SignupTokenTTLSeconds: getEnvAsInt("AUTH_SIGNUP_TOKEN_TTL_SECONDS", 50000),
			LoginTokenTTLSeconds:  getEnvAsInt("AUTH_LOGIN_TOKEN_TTL_SECONDS", 120),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{
				"https://gispfrontend.vercel.app",
				"http://localhost:5173",
			}),
		},
		Pagination: PaginationConfig{
			DefaultPageSize: getEnvAsInt("ADMIN_DEFAULT_PAGE_SIZE", 2),
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

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// SignupTokenTTL is the validity window for tokens issued on signup.
func (a AuthConfig) SignupTokenTTL() time.Duration {
	return time.Duration(a.SignupTokenTTLSeconds) * time.Second
}

// LoginTokenTTL is the validity window for tokens issued on login.
func (a AuthConfig) LoginTokenTTL() time.Duration {
	return time.Duration(a.LoginTokenTTLSeconds) * time.Second
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
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
