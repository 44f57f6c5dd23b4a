package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

type Config struct {
	Env string // "local" ou "prod"

	// Backend
	APIBaseURL string
	LoginURL   string // point d'entrée après expiration de session

	// Session
	CheckInterval time.Duration
	SessionStore  string // file | redis | memory
	SessionFile   string
	SessionKey    string // clé Redis, un profil par clé
	RedisAddr     string

	// Mode watch
	FeedPollSpec   string
	ControlAddr    string
	ControlOrigins []string // CORS du tableau de bord local

	// Infrastructure optionnelle
	NatsUrl      string
	OtelEndpoint string
	ServiceName  string
}

// Load lit le .env s'il existe puis l'environnement.
func Load() (*Config, error) {
	// Absent en prod, on ignore l'erreur
	_ = godotenv.Load()

	cfg := &Config{
		Env:           getEnv("APP_ENV", "local"),
		APIBaseURL:    strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:8000/api"), "/"),
		LoginURL:      getEnv("APP_LOGIN_URL", "/login"),
		CheckInterval: getEnvDuration("SESSION_CHECK_INTERVAL", 20*time.Second),
		SessionStore:  getEnv("SESSION_STORE", StoreFile),
		SessionFile:   getEnv("SESSION_FILE", defaultSessionFile()),
		SessionKey:    getEnv("SESSION_KEY", "session:default"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		FeedPollSpec:  getEnv("FEED_POLL_SPEC", "@every 30s"),
		ControlAddr:   getEnv("CONTROL_ADDR", "127.0.0.1:7070"),
		NatsUrl:       getEnv("NATS_URL", ""),
		OtelEndpoint:  getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ServiceName:   getEnv("OTEL_SERVICE_NAME", "cenackle-client"),
	}
	cfg.ControlOrigins = splitList(getEnv("CONTROL_CORS_ORIGINS", "http://localhost:3000"))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate évite de démarrer avec une config cassée.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("API_BASE_URL must be an absolute URL, got %q", c.APIBaseURL)
	}
	switch c.SessionStore {
	case StoreFile, StoreRedis, StoreMemory:
	default:
		return fmt.Errorf("SESSION_STORE must be one of file|redis|memory, got %q", c.SessionStore)
	}
	if c.CheckInterval <= 0 {
		return fmt.Errorf("SESSION_CHECK_INTERVAL must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return d
		}
	}
	return fallback
}

func defaultSessionFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cenackle-session.json"
	}
	return filepath.Join(home, ".cenackle", "session.json")
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
