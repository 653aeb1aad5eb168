package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig encapsulates all runtime configuration knobs.
type AppConfig struct {
	App      AppSettings
	HTTP     HTTPSettings
	Auth     AuthSettings
	Log      LogSettings
	Database DatabaseSettings
	Audit    AuditSettings
	External ExternalSettings
}

type AppSettings struct {
	Name        string
	Version     string
	Environment string
}

type HTTPSettings struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

type AuthSettings struct {
	Enabled     bool
	IssuerURI   string
	JWKSetURI   string
	ClockSkew   time.Duration
	BypassPaths []string
}

type LogSettings struct {
	Level string
}

type DatabaseSettings struct {
	Host            string
	Port            int
	Database        string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type AuditSettings struct {
	Enabled     bool
	FilePath    string // fallback NDJSON sink when the database is not configured
	MaxBodySize int
}

// ExternalSettings groups the outbound service targets this gateway fronts.
type ExternalSettings struct {
	HTTP HTTPServiceSettings
	SFTP SFTPServiceSettings
}

type HTTPServiceSettings struct {
	ServiceName string
	Timeout     time.Duration
}

type SFTPServiceSettings struct {
	ServiceName    string
	Host           string
	Port           int
	Username       string
	Password       string
	ConnectTimeout time.Duration
}

// Load resolves the application configuration from environment variables.
// It first attempts to load variables from a .env file if it exists.
// Environment variables set in the system take precedence over .env values.
func Load() (AppConfig, error) {
	// Works both with .env files (local dev) and plain environment
	// variables (Docker, production).
	_ = godotenv.Load()

	cfg := AppConfig{
		App: AppSettings{
			Name:        getEnv("APP_NAME", "ms_external_services"),
			Version:     getEnv("APP_VERSION", "0.1.0"),
			Environment: getEnv("APP_ENV", "local"),
		},
		HTTP: HTTPSettings{
			Port:            getEnvAsInt("APP_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("HTTP_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvAsDuration("HTTP_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:     getEnvAsDuration("HTTP_IDLE_TIMEOUT", 120*time.Second),
			RequestTimeout:  getEnvAsDuration("HTTP_REQUEST_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvAsDuration("HTTP_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Auth: AuthSettings{
			Enabled:     getEnvAsBool("AUTH_ENABLED", false),
			IssuerURI:   strings.TrimSpace(os.Getenv("JWT_ISSUER_URI")),
			JWKSetURI:   strings.TrimSpace(os.Getenv("JWT_JWK_SET_URI")),
			ClockSkew:   getEnvAsDuration("AUTH_CLOCK_SKEW", 2*time.Minute),
			BypassPaths: getEnvAsCSV("AUTH_BYPASS_PATHS", []string{"/health"}),
		},
		Log: LogSettings{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseSettings{
			Host:            getEnv("DB_HOST", ""),
			Port:            getEnvAsInt("DB_PORT", 5432),
			Database:        getEnv("DB_NAME", "ms_external_services"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Audit: AuditSettings{
			Enabled:     getEnvAsBool("AUDIT_ENABLED", true),
			FilePath:    strings.TrimSpace(os.Getenv("AUDIT_FILE_PATH")),
			MaxBodySize: getEnvAsInt("AUDIT_MAX_BODY_SIZE", 102400),
		},
		External: ExternalSettings{
			HTTP: HTTPServiceSettings{
				ServiceName: getEnv("EXTERNAL_HTTP_SERVICE_NAME", "default"),
				Timeout:     getEnvAsDuration("EXTERNAL_HTTP_TIMEOUT", 30*time.Second),
			},
			SFTP: SFTPServiceSettings{
				ServiceName:    getEnv("EXTERNAL_SFTP_SERVICE_NAME", "default"),
				Host:           strings.TrimSpace(os.Getenv("EXTERNAL_SFTP_HOST")),
				Port:           getEnvAsInt("EXTERNAL_SFTP_PORT", 22),
				Username:       strings.TrimSpace(os.Getenv("EXTERNAL_SFTP_USERNAME")),
				Password:       os.Getenv("EXTERNAL_SFTP_PASSWORD"),
				ConnectTimeout: getEnvAsDuration("EXTERNAL_SFTP_CONNECT_TIMEOUT", 30*time.Second),
			},
		},
	}

	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return cfg, errors.New("invalid config: APP_PORT must be between 1 and 65535")
	}
	if cfg.Audit.MaxBodySize < 0 {
		return cfg, errors.New("invalid config: AUDIT_MAX_BODY_SIZE must not be negative")
	}
	if cfg.External.SFTP.Host != "" {
		if cfg.External.SFTP.Username == "" {
			return cfg, errors.New("invalid config: EXTERNAL_SFTP_USERNAME is required when EXTERNAL_SFTP_HOST is set")
		}
		if cfg.External.SFTP.Port <= 0 || cfg.External.SFTP.Port > 65535 {
			return cfg, errors.New("invalid config: EXTERNAL_SFTP_PORT must be between 1 and 65535")
		}
	}
	if cfg.Auth.Enabled {
		if cfg.Auth.IssuerURI == "" {
			return cfg, errors.New("invalid config: JWT_ISSUER_URI is required when AUTH_ENABLED=true")
		}
		if cfg.Auth.JWKSetURI == "" {
			return cfg, errors.New("invalid config: JWT_JWK_SET_URI is required when AUTH_ENABLED=true")
		}
	}

	return cfg, nil
}

// Address returns the HTTP listen address in host:port form.
func (h HTTPSettings) Address() string {
	return fmt.Sprintf(":%d", h.Port)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsCSV(key string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			values = append(values, trimmed)
		}
	}
	if len(values) == 0 {
		return fallback
	}
	return values
}
