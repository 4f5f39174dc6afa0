// Package config provides environment-driven configuration for the caseqc server.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Store backends.
const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Secret wraps a sensitive string to prevent accidental logging or marshalling.
type Secret string

// String implements fmt.Stringer, returning a redacted placeholder.
func (s Secret) String() string { return "[REDACTED]" }

// GoString implements fmt.GoStringer, returning a redacted placeholder.
func (s Secret) GoString() string { return "[REDACTED]" }

// MarshalText implements encoding.TextMarshaler, returning a redacted placeholder.
func (s Secret) MarshalText() ([]byte, error) { return []byte("[REDACTED]"), nil }

// Value returns the underlying secret string.
func (s Secret) Value() string { return string(s) }

// Config holds all application configuration values.
type Config struct {
	DatabaseURL        Secret
	StoreBackend       string
	Port               string
	MetricsPort        string
	ListenHost         string
	CORSOrigins        []string
	LogLevel           string
	JWTSecret          Secret
	JWTIssuer          string
	EncryptionProvider string
	EncryptionKey      Secret
	EncryptionKeyID    string
	VaultAddr          string
	VaultToken         Secret
	DBMaxConns         int32
	AuditQueueSize     int
	RateLimitRPS       float64
	RateLimitBurst     int
}

// Load reads configuration from environment variables with sensible defaults.
// Values from a dotenv file (ENV_FILE, default ".env") fill in variables the
// process environment leaves unset.
func Load() (*Config, error) {
	env, err := loadEnv(os.Getenv("ENV_FILE"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DatabaseURL:        Secret(env.get("DATABASE_URL", "")),
		StoreBackend:       env.get("STORE_BACKEND", BackendPostgres),
		Port:               env.get("PORT", "3040"),
		MetricsPort:        env.get("METRICS_PORT", "9040"),
		ListenHost:         env.get("LISTEN_HOST", "127.0.0.1"),
		LogLevel:           env.get("LOG_LEVEL", "info"),
		JWTSecret:          Secret(env.get("JWT_SECRET", "")),
		JWTIssuer:          env.get("JWT_ISSUER", "caseqc"),
		EncryptionProvider: env.get("ENCRYPTION_PROVIDER", "static"),
		EncryptionKey:      Secret(env.get("ENCRYPTION_KEY", "")),
		EncryptionKeyID:    env.get("ENCRYPTION_KEY_ID", "caseqc"),
		VaultAddr:          env.get("VAULT_ADDR", "http://127.0.0.1:8200"),
		VaultToken:         Secret(env.get("VAULT_TOKEN", "")),
	}

	maxConns, err := strconv.Atoi(env.get("DB_MAX_CONNS", "20"))
	if err != nil || maxConns < 2 || maxConns > 200 {
		return nil, fmt.Errorf("DB_MAX_CONNS must be an integer between 2 and 200")
	}
	cfg.DBMaxConns = int32(maxConns) //nolint:gosec // bounded above.

	queueSize, err := strconv.Atoi(env.get("AUDIT_QUEUE_SIZE", "1000"))
	if err != nil || queueSize < 1 || queueSize > 100000 {
		return nil, fmt.Errorf("AUDIT_QUEUE_SIZE must be an integer between 1 and 100000")
	}
	cfg.AuditQueueSize = queueSize

	rps, err := strconv.ParseFloat(env.get("RATE_LIMIT_RPS", "20"), 64)
	if err != nil || rps <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_RPS must be a positive number")
	}
	cfg.RateLimitRPS = rps

	burst, err := strconv.Atoi(env.get("RATE_LIMIT_BURST", "40"))
	if err != nil || burst < 1 {
		return nil, fmt.Errorf("RATE_LIMIT_BURST must be a positive integer")
	}
	cfg.RateLimitBurst = burst

	origins := env.get("CORS_ORIGINS", "http://localhost:3002")
	cfg.CORSOrigins = strings.Split(origins, ",")

	for i, o := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(o)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// Addr returns the listen address in host:port format.
func (c *Config) Addr() string {
	return c.ListenHost + ":" + c.Port
}

// MetricsAddr returns the metrics listen address in host:port format.
func (c *Config) MetricsAddr() string {
	return c.ListenHost + ":" + c.MetricsPort
}

// envSource resolves variables from the process environment first and the
// dotenv file second.
type envSource map[string]string

func loadEnv(path string) (envSource, error) {
	if path == "" {
		path = ".env"
	}

	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return envSource{}, nil
		}

		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	return envSource(values), nil
}

func (e envSource) get(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	if v := e[key]; v != "" {
		return v
	}

	return fallback
}
