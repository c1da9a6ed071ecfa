package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates runtime configuration for the FileVault API.
type Config struct {
	Server   ServerConfig
	Postgres PostgresConfig
	MinIO    MinIOConfig
	Auth     AuthConfig
	Limits   LimitsConfig
	Metrics  MetricsConfig
}

// ServerConfig parameterizes the HTTP server.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Address returns the listen address in host:port form.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// PostgresConfig contains PostgreSQL connection details.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// DSN returns the PostgreSQL DSN string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}

// MinIOConfig carries MinIO connection and bucket information.
type MinIOConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
	Region          string
}

// AuthConfig groups authentication-related settings.
type AuthConfig struct {
	TokenSecret      string
	ResetTokenSecret string
	TokenTTL         time.Duration
	ResetTokenTTL    time.Duration
	BcryptCost       int
}

// LimitsConfig bounds storage consumption and share-link lifetimes.
type LimitsConfig struct {
	MaxFileSizeBytes  int64
	QuotaBytes        int64
	FilesPerPage      int
	ShareDurationsHrs []int
}

// AllowsDuration reports whether the given share duration is permitted.
func (l LimitsConfig) AllowsDuration(hours int) bool {
	for _, allowed := range l.ShareDurationsHrs {
		if hours == allowed {
			return true
		}
	}
	return false
}

// MetricsConfig groups observability settings.
type MetricsConfig struct {
	PrometheusPath string
}

// Load reads configuration values from environment variables, applying defaults.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host:         getString("FILEVAULT_API_HOST", "0.0.0.0"),
			Port:         getInt("FILEVAULT_API_PORT", 8080),
			ReadTimeout:  getDuration("FILEVAULT_API_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getDuration("FILEVAULT_API_WRITE_TIMEOUT", 60*time.Second),
			IdleTimeout:  getDuration("FILEVAULT_API_IDLE_TIMEOUT", 60*time.Second),
		},
		Postgres: PostgresConfig{
			Host:     getString("POSTGRES_HOST", "localhost"),
			Port:     getInt("POSTGRES_PORT", 5432),
			User:     getString("POSTGRES_USER", "filevault_app"),
			Password: getString("POSTGRES_PASSWORD", "change-me"),
			Database: getString("POSTGRES_DB", "filevault"),
			SSLMode:  strings.ToLower(getString("POSTGRES_SSL_MODE", "disable")),
		},
		MinIO: MinIOConfig{
			Endpoint:        getString("MINIO_ENDPOINT", "localhost:9000"),
			AccessKeyID:     getString("MINIO_ROOT_USER", "filevault"),
			SecretAccessKey: getString("MINIO_ROOT_PASSWORD", "change-me-strong-password"),
			Bucket:          getString("MINIO_BUCKET", "filevault"),
			UseSSL:          getBool("MINIO_USE_SSL", false),
			Region:          getString("MINIO_REGION", ""),
		},
		Auth:   loadAuthConfig(),
		Limits: loadLimitsConfig(),
		Metrics: MetricsConfig{
			PrometheusPath: getString("FILEVAULT_METRICS_PATH", "/metrics"),
		},
	}

	return cfg, nil
}

func getString(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getInt64(key string, fallback int64) int64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseInt(val, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		val = strings.ToLower(strings.TrimSpace(val))
		switch val {
		case "1", "true", "t", "yes", "y":
			return true
		case "0", "false", "f", "no", "n":
			return false
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func loadAuthConfig() AuthConfig {
	cost := getInt("FILEVAULT_AUTH_BCRYPT_COST", 12)
	if cost < 4 || cost > 31 {
		cost = 12
	}

	return AuthConfig{
		TokenSecret:      getString("FILEVAULT_JWT_SECRET", "change-me-to-a-32-byte-secret"),
		ResetTokenSecret: getString("FILEVAULT_RESET_TOKEN_SECRET", "change-me-to-a-64-byte-secret"),
		TokenTTL:         getDuration("FILEVAULT_AUTH_TOKEN_TTL", time.Hour),
		ResetTokenTTL:    getDuration("FILEVAULT_AUTH_RESET_TOKEN_TTL", time.Hour),
		BcryptCost:       cost,
	}
}

func loadLimitsConfig() LimitsConfig {
	return LimitsConfig{
		MaxFileSizeBytes:  getInt64("FILEVAULT_MAX_FILE_SIZE", 100*1024*1024),
		QuotaBytes:        getInt64("FILEVAULT_ACCOUNT_QUOTA", 1024*1024*1024),
		FilesPerPage:      getInt("FILEVAULT_FILES_PER_PAGE", 10),
		ShareDurationsHrs: parseDurationHours(getString("FILEVAULT_SHARE_DURATIONS", "1,24,72,168,720")),
	}
}

func parseDurationHours(raw string) []int {
	var hours []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if parsed, err := strconv.Atoi(part); err == nil && parsed > 0 {
			hours = append(hours, parsed)
		}
	}
	if len(hours) == 0 {
		return []int{1, 24, 72, 168, 720}
	}
	return hours
}
