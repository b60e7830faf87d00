package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Host               string
	Port               string
	RequestTimeout     time.Duration
	MaxRequestBodySize int64

	// Cloud provider (Anthropic Messages API)
	AnthropicBaseURL string
	AnthropicModel   string

	// Local provider (Ollama)
	OllamaBaseURL       string
	LocalModel          string
	LocalChecklistModel string

	// Image conditioning ceilings per destination. The cloud endpoint tolerates
	// larger payloads than the local model server.
	MaxCloudImageWidth int
	MaxLocalImageWidth int
	ImageQuality       int

	PromptsDir          string
	InspectionTypesFile string
	CacheTTL            time.Duration

	// Optional Azure-hosted prompt templates
	AzureStorageAccount string
	AzureStorageKey     string
	PromptContainer     string
}

func (c *Config) ServerAddress() string {
	// Trim any whitespace from host and port
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// UseAzureTemplates reports whether prompt templates should be loaded from
// Azure blob storage instead of the local prompts directory.
func (c *Config) UseAzureTemplates() bool {
	return c.AzureStorageAccount != "" && c.AzureStorageKey != "" && c.PromptContainer != ""
}

func LoadFromEnv() (*Config, error) {
	// Set defaults
	cfg := &Config{
		Host:               getEnvOrDefault("HOST", "0.0.0.0"),
		Port:               getEnvOrDefault("PORT", "3000"),
		RequestTimeout:     parseDurationOrDefault("REQUEST_TIMEOUT", 120*time.Second),
		MaxRequestBodySize: parseIntOrDefault("MAX_REQUEST_BODY_SIZE", 50*1024*1024), // 50MB, images arrive inline as base64

		AnthropicBaseURL: getEnvOrDefault("ANTHROPIC_BASE_URL", "https://api.anthropic.com"),
		AnthropicModel:   getEnvOrDefault("ANTHROPIC_MODEL", "claude-3-7-sonnet-20250219"),

		OllamaBaseURL:       getEnvOrDefault("OLLAMA_BASE_URL", "http://127.0.0.1:11434"),
		LocalModel:          getEnvOrDefault("LOCAL_MODEL", "qwen2.5vl:7b"),
		LocalChecklistModel: getEnvOrDefault("LOCAL_CHECKLIST_MODEL", ""),

		MaxCloudImageWidth: int(parseIntOrDefault("MAX_CLOUD_IMAGE_WIDTH", 1600)),
		MaxLocalImageWidth: int(parseIntOrDefault("MAX_LOCAL_IMAGE_WIDTH", 800)),
		ImageQuality:       int(parseIntOrDefault("IMAGE_QUALITY", 85)),

		PromptsDir:          getEnvOrDefault("PROMPTS_DIR", "prompts"),
		InspectionTypesFile: getEnvOrDefault("INSPECTION_TYPES_FILE", "inspection_types.json"),
		CacheTTL:            parseDurationOrDefault("CACHE_TTL", 5*time.Minute),

		AzureStorageAccount: os.Getenv("AZURE_STORAGE_ACCOUNT"),
		AzureStorageKey:     os.Getenv("AZURE_STORAGE_KEY"),
		PromptContainer:     os.Getenv("PROMPT_CONTAINER"),
	}

	// The checklist model falls back to the general local model
	if strings.TrimSpace(cfg.LocalChecklistModel) == "" {
		cfg.LocalChecklistModel = cfg.LocalModel
	}

	// Validate port is numeric and in range
	p, err := strconv.Atoi(strings.TrimSpace(cfg.Port))
	if err != nil || p < 1 || p > 65535 {
		return nil, fmt.Errorf("invalid PORT: %q", cfg.Port)
	}
	if cfg.MaxRequestBodySize <= 0 {
		return nil, fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", cfg.MaxRequestBodySize)
	}
	if cfg.RequestTimeout <= 0 {
		return nil, fmt.Errorf("REQUEST_TIMEOUT must be > 0 (got %s)", cfg.RequestTimeout)
	}
	if cfg.MaxCloudImageWidth <= 0 || cfg.MaxLocalImageWidth <= 0 {
		return nil, fmt.Errorf("image width ceilings must be > 0 (got cloud=%d, local=%d)",
			cfg.MaxCloudImageWidth, cfg.MaxLocalImageWidth)
	}
	if cfg.ImageQuality < 1 || cfg.ImageQuality > 100 {
		return nil, fmt.Errorf("IMAGE_QUALITY must be in [1,100] (got %d)", cfg.ImageQuality)
	}
	if cfg.CacheTTL <= 0 {
		return nil, fmt.Errorf("CACHE_TTL must be > 0 (got %s)", cfg.CacheTTL)
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}
