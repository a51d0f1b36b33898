package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	Host            string
	Port            string
	Env             string
	CORSAllowOrigin []string
	DataDir         string

	OpenAIAPIKey        string
	OpenAIBaseURL       string
	OpenAIRealtimeURL   string
	OpenAIRealtimeModel string
	OpenAITimeout       time.Duration

	ModelsFile  string
	LicenseKeys []string

	SessionStore string
	DatabaseURL  string

	ObjectStoreType string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string

	LogLevel  string
	LogPretty bool

	ValidateRateLimit float64
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	if files := existing(".env", "cmd/.env"); len(files) > 0 {
		_ = godotenv.Load(files...)
	}

	return Config{
		Host:                getEnv("HOST", "127.0.0.1"),
		Port:                getEnv("PORT", "5050"),
		Env:                 normalizeEnv(getEnv("ENV", "dev")),
		CORSAllowOrigin:     splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "*")),
		DataDir:             getEnv("DATA_DIR", "./data"),
		OpenAIAPIKey:        getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:       getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIRealtimeURL:   getEnv("OPENAI_REALTIME_URL", "wss://api.openai.com/v1/realtime"),
		OpenAIRealtimeModel: getEnv("OPENAI_REALTIME_MODEL", "gpt-4o-realtime-preview-2024-10-01"),
		OpenAITimeout:       time.Duration(getEnvInt("OPENAI_TIMEOUT_SECONDS", 30)) * time.Second,
		ModelsFile:          getEnv("MODELS_FILE", ""),
		LicenseKeys:         splitAndTrim(getEnv("LICENSE_KEYS", "")),
		SessionStore:        normalizeSessionStore(getEnv("SESSION_STORE", "file")),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		ObjectStoreType:     normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		AWSRegion:           getEnv("AWS_REGION", ""),
		S3Bucket:            getEnv("S3_BUCKET", ""),
		S3Prefix:            getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:         getEnv("SSE_KMS_KEY_ID", ""),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogPretty:           getEnvBool("LOG_PRETTY", false),
		ValidateRateLimit:   getEnvFloat("RATE_LIMIT_VALIDATE_RPS", 1),
	}
}

// ProfilePath is the location of the singleton profile document.
func (c Config) ProfilePath() string {
	return filepath.Join(c.DataDir, "user_profile.json")
}

// SessionsDir is the root of the per-session directories.
func (c Config) SessionsDir() string {
	return filepath.Join(c.DataDir, "sessions")
}

// ObjectDir is the root of the local object store.
func (c Config) ObjectDir() string {
	return filepath.Join(c.DataDir, "objects")
}

func existing(paths ...string) []string {
	var out []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func getEnvFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return def
	}
	return v
}

func getEnvBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}

func normalizeSessionStore(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "postgres", "pg", "postgresql":
		return "postgres"
	default:
		return "file"
	}
}
