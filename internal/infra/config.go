package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv         string
	Port           string
	DefaultLocale  string
	AllowedOrigins []string

	ChatBaseURL     string
	ChatModel       string
	ChatTemperature float64
	ChatTimeout     time.Duration

	ModelScopeBaseURL      string
	ModelScopeImageModel   string
	ModelScopeMaxPolls     int
	ModelScopePollInterval time.Duration

	MaxPromptAttempts int
	MaxImageAttempts  int

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
// Upstream credentials are not part of the configuration; callers supply them per request.
func LoadConfig() (*Config, error) {
	temperature, err := getEnvFloat("CHAT_TEMPERATURE", 0.7)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		AppEnv:                 getEnv("APP_ENV", "development"),
		Port:                   getEnv("PORT", "8080"),
		DefaultLocale:          strings.ToLower(getEnv("DEFAULT_LOCALE", "zh")),
		AllowedOrigins:         splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		ChatBaseURL:            getEnv("CHAT_BASE_URL", "https://api-inference.modelscope.cn/v1"),
		ChatModel:              getEnv("CHAT_MODEL", "Qwen/Qwen3-VL-30B-A3B-Instruct"),
		ChatTemperature:        temperature,
		ChatTimeout:            time.Second * time.Duration(getEnvInt("CHAT_TIMEOUT_SECONDS", 60)),
		ModelScopeBaseURL:      getEnv("MODELSCOPE_BASE_URL", "https://api-inference.modelscope.cn"),
		ModelScopeImageModel:   getEnv("MODELSCOPE_IMAGE_MODEL", "black-forest-labs/FLUX.1-Krea-dev"),
		ModelScopeMaxPolls:     getEnvInt("MODELSCOPE_MAX_POLLS", 30),
		ModelScopePollInterval: getEnvDuration("MODELSCOPE_POLL_INTERVAL", 10*time.Second),
		MaxPromptAttempts:      getEnvInt("PIPELINE_MAX_PROMPT_ATTEMPTS", 3),
		MaxImageAttempts:       getEnvInt("PIPELINE_MAX_IMAGE_ATTEMPTS", 3),
		HTTPReadTimeout:        time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:       time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 1800)),
		HTTPIdleTimeout:        time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:        getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	if cfg.ModelScopeMaxPolls < 1 {
		return nil, fmt.Errorf("MODELSCOPE_MAX_POLLS must be at least 1, got %d", cfg.ModelScopeMaxPolls)
	}
	if cfg.ModelScopePollInterval < 0 {
		return nil, fmt.Errorf("MODELSCOPE_POLL_INTERVAL must not be negative")
	}
	if cfg.MaxPromptAttempts < 1 || cfg.MaxImageAttempts < 1 {
		return nil, fmt.Errorf("pipeline attempt limits must be at least 1")
	}

	return cfg, nil
}

// runTimeoutMargin is reserved after a pipeline deadline for writing the response.
const runTimeoutMargin = 30 * time.Second

// PipelineRunTimeout is the deadline for one pipeline run served over plain
// HTTP. It ends before HTTPWriteTimeout so the placeholder URL still reaches
// the client. Zero means no write timeout is configured.
func (c *Config) PipelineRunTimeout() time.Duration {
	if c.HTTPWriteTimeout <= 0 {
		return 0
	}
	margin := runTimeoutMargin
	if c.HTTPWriteTimeout <= 2*margin {
		margin = c.HTTPWriteTimeout / 2
	}
	return c.HTTPWriteTimeout - margin
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %w", key, err)
	}
	return f, nil
}

// getEnvDuration accepts Go duration strings ("10s") as well as bare seconds ("10").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	v = strings.TrimSpace(v)
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
