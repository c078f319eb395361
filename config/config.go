package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseURL  string
	JWTSecretKey string
	JWTTTL       time.Duration
	ServerPort   int
	LogLevel     slog.Level
	AutoMigrate  bool

	CORSAllowedOrigins []string

	// LegacyIDNamespace seeds the deterministic mapping of 24-hex ids to UUIDs.
	LegacyIDNamespace uuid.UUID

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string

	SMTPHost  string
	SMTPPort  int
	SMTPUser  string
	SMTPPass  string
	SMTPFrom  string
	PublicURL string
}

// DefaultLegacyIDNamespace is used when LEGACY_ID_NAMESPACE is not set. Changing it
// changes every UUID derived from a legacy id.
var DefaultLegacyIDNamespace = uuid.MustParse("6f1c2a4e-8d3b-5e7f-9a01-b2c3d4e5f607")

// R2Enabled reports whether object storage is configured.
func (c *Config) R2Enabled() bool {
	return c.R2AccountID != ""
}

// SMTPEnabled reports whether outgoing mail is configured.
func (c *Config) SMTPEnabled() bool {
	return c.SMTPHost != ""
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	jwtKey := os.Getenv("JWT_SECRET_KEY")
	if jwtKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	port, err := parsePort(os.Getenv("SERVER_PORT"))
	if err != nil {
		return nil, err
	}

	ttl := 24 * time.Hour
	if raw := os.Getenv("JWT_TTL"); raw != "" {
		ttl, err = time.ParseDuration(raw)
		if err != nil || ttl <= 0 {
			return nil, fmt.Errorf("invalid JWT_TTL %q: must be a positive duration", raw)
		}
	}

	level, err := parseLogLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		return nil, err
	}

	autoMigrate := false
	if raw := os.Getenv("AUTO_MIGRATE"); raw != "" {
		autoMigrate, err = strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid AUTO_MIGRATE environment variable: %w", err)
		}
	}

	namespace := DefaultLegacyIDNamespace
	if raw := os.Getenv("LEGACY_ID_NAMESPACE"); raw != "" {
		namespace, err = uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid LEGACY_ID_NAMESPACE: %w", err)
		}
	}

	cfg := &Config{
		DatabaseURL:        dbURL,
		JWTSecretKey:       jwtKey,
		JWTTTL:             ttl,
		ServerPort:         port,
		LogLevel:           level,
		AutoMigrate:        autoMigrate,
		CORSAllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS"), []string{"*"}),
		LegacyIDNamespace:  namespace,

		R2AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:      os.Getenv("R2_BUCKET_NAME"),
		R2PublicBaseURL:   os.Getenv("R2_PUBLIC_BASE_URL"),

		SMTPHost:  os.Getenv("SMTP_HOST"),
		SMTPUser:  os.Getenv("SMTP_USER"),
		SMTPPass:  os.Getenv("SMTP_PASS"),
		SMTPFrom:  os.Getenv("SMTP_FROM"),
		PublicURL: strings.TrimSuffix(os.Getenv("PUBLIC_URL"), "/"),
	}

	if err := cfg.validateR2(); err != nil {
		return nil, err
	}

	if cfg.SMTPEnabled() {
		cfg.SMTPPort = 587
		if raw := os.Getenv("SMTP_PORT"); raw != "" {
			cfg.SMTPPort, err = strconv.Atoi(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid SMTP_PORT environment variable: %w", err)
			}
		}
		if cfg.SMTPFrom == "" {
			return nil, fmt.Errorf("SMTP_FROM must be set when SMTP_HOST is set")
		}
	}

	return cfg, nil
}

func (c *Config) validateR2() error {
	fields := []string{c.R2AccountID, c.R2AccessKeyID, c.R2SecretAccessKey, c.R2BucketName, c.R2PublicBaseURL}
	set := 0
	for _, f := range fields {
		if f != "" {
			set++
		}
	}
	if set != 0 && set != len(fields) {
		return fmt.Errorf("incomplete R2 configuration: R2_ACCOUNT_ID, R2_ACCESS_KEY_ID, R2_SECRET_ACCESS_KEY, R2_BUCKET_NAME and R2_PUBLIC_BASE_URL must be set together")
	}
	return nil
}

func parsePort(portStr string) (int, error) {
	if portStr == "" {
		portStr = "8080" // Порт по умолчанию
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0, fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
	}
	if port <= 0 || port > 65535 {
		return 0, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}
	return port, nil
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q", raw)
	}
}

func splitList(raw string, def []string) []string {
	if strings.TrimSpace(raw) == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
