package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the application configuration.
type Config struct {
	App        AppConfig       `mapstructure:"app"`
	Server     ServerConfig    `mapstructure:"server"`
	Redis      RedisConfig     `mapstructure:"redis"`
	OpenRouter ProviderConfig  `mapstructure:"openrouter"`
	OpenAI     ProviderConfig  `mapstructure:"openai"`
	AI         AIConfig        `mapstructure:"ai"`
	Cache      CacheConfig     `mapstructure:"cache"`
	RateLimit  RateLimitConfig `mapstructure:"rate_limit"`
	Image      ImageConfig     `mapstructure:"image"`
	Pipeline   PipelineConfig  `mapstructure:"pipeline"`
	LogLevel   string          `mapstructure:"log_level"`
}

// AppConfig holds application identity settings.
type AppConfig struct {
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// RedisConfig holds the queue/result-store connection settings.
type RedisConfig struct {
	URL string `mapstructure:"url"`
}

// ProviderConfig holds the settings for one LLM provider.
type ProviderConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// AIConfig selects models per pipeline role. The tiny model serves the
// cost-sensitive paths (heuristic escalation, plain text, OCR output); the
// vision model transcribes photographed recipes.
type AIConfig struct {
	Provider    string `mapstructure:"provider"`
	Model       string `mapstructure:"model"`
	TinyModel   string `mapstructure:"tiny_model"`
	VisionModel string `mapstructure:"vision_model"`
	MaxTokens   int    `mapstructure:"max_tokens"`
}

// CacheConfig holds the in-memory LLM response cache settings.
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	MaxSize         int           `mapstructure:"max_size"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// RateLimitConfig holds per-user import rate limiting settings.
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// ImageConfig holds image input settings.
type ImageConfig struct {
	MaxSizeBytes int64 `mapstructure:"max_size_bytes"`
	MaxCount     int   `mapstructure:"max_count"`
}

// PipelineConfig groups every extraction tunable so the thresholds are
// reviewed together rather than scattered through the heuristics.
type PipelineConfig struct {
	SniffByteLimit      int           `mapstructure:"sniff_byte_limit"`
	SniffTimeLimit      time.Duration `mapstructure:"sniff_time_limit"`
	FetchTimeout        time.Duration `mapstructure:"fetch_timeout"`
	FetchRetries        int           `mapstructure:"fetch_retries"`
	FetchMaxBackoff     time.Duration `mapstructure:"fetch_max_backoff"`
	UserAgent           string        `mapstructure:"user_agent"`
	AcceptConfidence    float64       `mapstructure:"accept_confidence"`
	MinMainImageDim     int           `mapstructure:"min_main_image_dim"`
	MinStepImageWidth   int           `mapstructure:"min_step_image_width"`
	MinStepImageHeight  int           `mapstructure:"min_step_image_height"`
	MaxTextChars        int           `mapstructure:"max_text_chars"`
	ResultTTL           time.Duration `mapstructure:"result_ttl"`
	InflightTTL         time.Duration `mapstructure:"inflight_ttl"`
	FuzzyMatchThreshold float64       `mapstructure:"fuzzy_match_threshold"`
}

// LoadConfig loads configuration from .env and the environment.
func LoadConfig() (*Config, error) {
	// A missing .env is fine in production; env vars take over.
	_ = godotenv.Load()

	setDefaults()

	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.BindEnv("redis.url", "REDIS_URL")
	viper.BindEnv("openrouter.api_key", "OPENROUTER_API_KEY")
	viper.BindEnv("openai.api_key", "OPENAI_API_KEY")
	viper.BindEnv("ai.provider", "AI_PROVIDER")
	viper.BindEnv("ai.model", "AI_MODEL")
	viper.BindEnv("ai.tiny_model", "AI_TINY_MODEL")
	viper.BindEnv("ai.vision_model", "AI_VISION_MODEL")
	viper.BindEnv("cache.enabled", "CACHE_ENABLED")
	viper.BindEnv("rate_limit.enabled", "RATE_LIMIT_ENABLED")
	viper.BindEnv("rate_limit.requests", "RATE_LIMIT_REQUESTS")
	viper.BindEnv("rate_limit.window", "RATE_LIMIT_WINDOW")
	viper.BindEnv("log_level", "LOG_LEVEL")

	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// MaskAPIKey masks an API key, keeping four characters on each side.
func MaskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func setDefaults() {
	viper.SetDefault("app.env", "development")
	viper.SetDefault("app.debug", true)
	viper.SetDefault("app.version", "1.0.0")
	viper.SetDefault("app.name", "recipe-importer")

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")

	viper.SetDefault("redis.url", "redis://localhost:6379")

	viper.SetDefault("openrouter.enabled", true)
	viper.SetDefault("openrouter.base_url", "https://openrouter.ai/api/v1")
	viper.SetDefault("openrouter.timeout", "60s")
	viper.SetDefault("openai.enabled", false)
	viper.SetDefault("openai.base_url", "https://api.openai.com/v1")
	viper.SetDefault("openai.timeout", "60s")

	viper.SetDefault("ai.provider", "openrouter")
	viper.SetDefault("ai.model", "openai/gpt-4o")
	viper.SetDefault("ai.tiny_model", "openai/gpt-4o-mini")
	viper.SetDefault("ai.vision_model", "openai/gpt-4o")
	viper.SetDefault("ai.max_tokens", 4096)

	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.max_size", 1000)
	viper.SetDefault("cache.ttl", "24h")
	viper.SetDefault("cache.cleanup_interval", "10m")

	viper.SetDefault("rate_limit.enabled", true)
	viper.SetDefault("rate_limit.requests", 10)
	viper.SetDefault("rate_limit.window", "1m")

	viper.SetDefault("image.max_size_bytes", 10*1024*1024) // 10MB
	viper.SetDefault("image.max_count", 5)

	viper.SetDefault("pipeline.sniff_byte_limit", 512*1024)
	viper.SetDefault("pipeline.sniff_time_limit", "500ms")
	viper.SetDefault("pipeline.fetch_timeout", "20s")
	viper.SetDefault("pipeline.fetch_retries", 3) // 4 attempts total
	viper.SetDefault("pipeline.fetch_max_backoff", "10s")
	viper.SetDefault("pipeline.user_agent", "recipe-importer/1.0 (+import pipeline)")
	viper.SetDefault("pipeline.accept_confidence", 0.7)
	viper.SetDefault("pipeline.min_main_image_dim", 256)
	viper.SetDefault("pipeline.min_step_image_width", 300)
	viper.SetDefault("pipeline.min_step_image_height", 250)
	viper.SetDefault("pipeline.max_text_chars", 8000)
	viper.SetDefault("pipeline.result_ttl", "1h")
	viper.SetDefault("pipeline.inflight_ttl", "2m")
	viper.SetDefault("pipeline.fuzzy_match_threshold", 0.85)
}

func validateConfig(config *Config) error {
	if config.Server.Port == 0 {
		return fmt.Errorf("server port is required")
	}
	if config.Redis.URL == "" {
		return fmt.Errorf("redis url is required")
	}

	if config.Cache.Enabled {
		if config.Cache.MaxSize <= 0 {
			return fmt.Errorf("invalid cache max size")
		}
		if config.Cache.TTL <= 0 {
			return fmt.Errorf("invalid cache ttl")
		}
		if config.Cache.CleanupInterval <= 0 {
			return fmt.Errorf("invalid cache cleanup interval")
		}
	}

	if config.Pipeline.SniffByteLimit <= 0 {
		return fmt.Errorf("invalid sniff byte limit")
	}
	if config.Pipeline.SniffTimeLimit <= 0 {
		return fmt.Errorf("invalid sniff time limit")
	}
	if config.Pipeline.AcceptConfidence <= 0 || config.Pipeline.AcceptConfidence > 1 {
		return fmt.Errorf("invalid accept confidence")
	}
	if config.Pipeline.FuzzyMatchThreshold <= 0 || config.Pipeline.FuzzyMatchThreshold > 1 {
		return fmt.Errorf("invalid fuzzy match threshold")
	}

	return nil
}
