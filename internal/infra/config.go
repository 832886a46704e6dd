package infra

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv          string
	Port            string
	DatabaseURL     string
	GeoIPDBPath     string
	ImagesDir       string
	StaticURLPrefix string

	// Generation strategy.
	ImageProvider          []string
	DisableImageGeneration bool
	DallE3Quality          string
	GPTImageQuality        string
	ComfyUIURL             string
	ComfyUIWorkflow        string
	ComfyUIPollInterval    time.Duration
	ComfyUITimeout         time.Duration
	GenerateTimeout        time.Duration

	// Search providers.
	UnsplashAPIKey     string
	PexelsAPIKey       string
	PixabayAPIKey      string
	BraveSearchAPIKey  string
	AgentURL           string
	SearchRatePerMin   int
	SearchCacheURL     string
	SearchCacheTTL     time.Duration
	SearchDedupeThumbs bool

	// Language model used by the classifier.
	LLMProvider   string
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string
	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
	CORSOrigins      []string
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	// Missing env files are fine.
	_ = godotenv.Load(".env", ".env.local")

	cfg := &Config{
		AppEnv:          getEnv("APP_ENV", "development"),
		Port:            getEnv("PORT", "8080"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		GeoIPDBPath:     os.Getenv("GEOIP_DB_PATH"),
		ImagesDir:       getEnv("IMAGES_DIR", "./storage/images"),
		StaticURLPrefix: getEnv("STATIC_URL_PREFIX", "/static/images"),

		ImageProvider:          getEnvList("IMAGE_PROVIDER"),
		DisableImageGeneration: getEnvBool("DISABLE_IMAGE_GENERATION", false),
		DallE3Quality:          getEnv("DALL_E_3_QUALITY", "standard"),
		GPTImageQuality:        getEnv("GPT_IMAGE_1_5_QUALITY", "medium"),
		ComfyUIURL:             strings.TrimRight(os.Getenv("COMFYUI_URL"), "/"),
		ComfyUIWorkflow:        os.Getenv("COMFYUI_WORKFLOW"),
		ComfyUIPollInterval:    time.Second * time.Duration(getEnvInt("COMFYUI_POLL_INTERVAL_SECONDS", 4)),
		ComfyUITimeout:         time.Second * time.Duration(getEnvInt("COMFYUI_TIMEOUT_SECONDS", 300)),
		GenerateTimeout:        time.Second * time.Duration(getEnvInt("GENERATE_TIMEOUT_SECONDS", 120)),

		UnsplashAPIKey:     os.Getenv("UNSPLASH_API_KEY"),
		PexelsAPIKey:       os.Getenv("PEXELS_API_KEY"),
		PixabayAPIKey:      os.Getenv("PIXABAY_API_KEY"),
		BraveSearchAPIKey:  os.Getenv("BRAVE_SEARCH_API_KEY"),
		AgentURL:           strings.TrimRight(os.Getenv("OPENAI_AGENT_URL"), "/"),
		SearchRatePerMin:   getEnvInt("SEARCH_RATE_LIMIT_PER_MINUTE", 0),
		SearchCacheURL:     os.Getenv("SEARCH_CACHE_REDIS_URL"),
		SearchCacheTTL:     time.Second * time.Duration(getEnvInt("SEARCH_CACHE_TTL_SECONDS", 900)),
		SearchDedupeThumbs: getEnvBool("SEARCH_DEDUPE_THUMBNAILS", false),

		LLMProvider:   strings.ToLower(getEnv("LLM_PROVIDER", "openai")),
		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		GeminiAPIKey:  getEnv("GOOGLE_API_KEY", os.Getenv("GEMINI_API_KEY")),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiBaseURL: getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 330)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		CORSOrigins:      getEnvList("CORS_ALLOWED_ORIGINS"),
	}

	if cfg.ComfyUIPollInterval <= 0 {
		return nil, fmt.Errorf("COMFYUI_POLL_INTERVAL_SECONDS must be positive")
	}
	if cfg.ComfyUITimeout < cfg.ComfyUIPollInterval {
		return nil, fmt.Errorf("COMFYUI_TIMEOUT_SECONDS must not be shorter than the poll interval")
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}
	switch cfg.LLMProvider {
	case "openai", "gemini":
	default:
		return nil, fmt.Errorf("LLM_PROVIDER %q is not supported", cfg.LLMProvider)
	}

	return cfg, nil
}

// Warnings lists non-fatal configuration problems worth logging at startup.
func (c *Config) Warnings() []string {
	var out []string
	if c.ComfyUIWorkflow != "" && !json.Valid([]byte(c.ComfyUIWorkflow)) {
		out = append(out, "COMFYUI_WORKFLOW is not valid JSON; comfyui generation will fail")
	}
	if c.DatabaseURL == "" {
		out = append(out, "DATABASE_URL not set; image records will not be persisted")
	}
	return out
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

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
