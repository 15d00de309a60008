package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultAllowedOrigins are the survey and study front-ends allowed to call the
// API. The first entry is echoed when a request's origin is not recognized.
var DefaultAllowedOrigins = []string{
	"https://stanforduniversity.qualtrics.com",
	"https://gsb-gray.vercel.app",
	"https://gsb-session1.vercel.app",
	"http://localhost:3000",
}

// Config contains all runtime settings for the study chat service.
type Config struct {
	Env              string
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	AllowedOrigins []string

	DatabaseURL         string
	DatabaseAutoMigrate bool
	StoreTimeout        time.Duration

	CompletionProvider string
	OpenAIAPIKey       string
	OpenAIBaseURL      string
	OpenAIModel        string
	OpenAITemperature  float32
	CompletionTimeout  time.Duration

	MemorySource string
	ReplyBudget  int
}

// Load reads a .env file when present, then environment variables, and
// applies defaults.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{
		Env:                 envOrDefault("APP_ENV", "development"),
		BindAddr:            envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:    envOrDefault("APP_METRICS_NAMESPACE", "studychat"),
		AllowedOrigins:      listFromEnv("CORS_ALLOWED_ORIGINS", DefaultAllowedOrigins),
		DatabaseURL:         stringsTrimSpace("DATABASE_URL"),
		DatabaseAutoMigrate: true,
		CompletionProvider:  envOrDefault("COMPLETION_PROVIDER", "auto"),
		OpenAIAPIKey:        stringsTrimSpace("OPENAI_API_KEY"),
		OpenAIBaseURL:       stringsTrimSpace("OPENAI_BASE_URL"),
		OpenAIModel:         envOrDefault("OPENAI_MODEL", "gpt-4o"),
		OpenAITemperature:   0.7,
		MemorySource:        envOrDefault("MEMORY_SOURCE", "transcript"),
		ReplyBudget:         5,
		ShutdownTimeout:     15 * time.Second,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	// Zero keeps the upstream calls unbounded apart from request cancellation.
	cfg.CompletionTimeout, err = durationFromEnv("COMPLETION_TIMEOUT", 0)
	if err != nil {
		return Config{}, err
	}
	cfg.StoreTimeout, err = durationFromEnv("STORE_TIMEOUT", 0)
	if err != nil {
		return Config{}, err
	}
	cfg.DatabaseAutoMigrate, err = boolFromEnv("DATABASE_AUTO_MIGRATE", cfg.DatabaseAutoMigrate)
	if err != nil {
		return Config{}, err
	}
	temp, err := floatFromEnv("OPENAI_TEMPERATURE", float64(cfg.OpenAITemperature))
	if err != nil {
		return Config{}, err
	}
	cfg.OpenAITemperature = float32(temp)
	cfg.ReplyBudget, err = intFromEnv("SESSION1_REPLY_BUDGET", cfg.ReplyBudget)
	if err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges that parsing alone cannot catch.
func (c Config) Validate() error {
	if len(c.AllowedOrigins) == 0 {
		return fmt.Errorf("CORS_ALLOWED_ORIGINS must list at least one origin")
	}
	for _, o := range c.AllowedOrigins {
		u, err := url.Parse(o)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("CORS_ALLOWED_ORIGINS contains invalid origin %q", o)
		}
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("APP_SHUTDOWN_TIMEOUT must be positive")
	}
	if c.CompletionTimeout < 0 || c.StoreTimeout < 0 {
		return fmt.Errorf("COMPLETION_TIMEOUT and STORE_TIMEOUT must be >= 0")
	}
	if c.OpenAITemperature < 0 || c.OpenAITemperature > 2 {
		return fmt.Errorf("OPENAI_TEMPERATURE must be between 0 and 2")
	}
	if c.ReplyBudget <= 0 {
		return fmt.Errorf("SESSION1_REPLY_BUDGET must be positive")
	}
	return nil
}

// DefaultOrigin is the origin echoed for unrecognized callers.
func (c Config) DefaultOrigin() string {
	if len(c.AllowedOrigins) == 0 {
		return DefaultAllowedOrigins[0]
	}
	return c.AllowedOrigins[0]
}

func envOrDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func listFromEnv(key string, fallback []string) []string {
	v := stringsTrimSpace(key)
	if v == "" {
		out := make([]string, len(fallback))
		copy(out, fallback)
		return out
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimRight(strings.TrimSpace(part), "/")
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	if v == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return f, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
