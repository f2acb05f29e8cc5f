// cmd/verilens/config.go
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Analysis modes. The mode is a process-wide architecture choice made once at
// startup, never per request.
const (
	ModeLocal     = "local"     // model describes the image, verdict is computed locally
	ModeDelegated = "delegated" // model returns the structured judgment in one shot
)

// Vision providers
const (
	ProviderTogether = "together"
	ProviderOpenAI   = "openai"
)

// Default domain allow-list for fact-check search. Trusted-source-only by
// policy: precision over recall.
var defaultSearchDomains = []string{
	"reuters.com",
	"apnews.com",
	"bbc.com",
	"factcheck.org",
	"snopes.com",
}

// Config holds application configuration loaded from the environment.
type Config struct {
	// Server
	Port         int
	StaticDir    string
	MaxImageSize int64

	// Provider credentials (both mandatory)
	TavilyAPIKey   string
	TogetherAPIKey string

	// Pipeline
	AnalysisMode     string
	VisionProvider   string
	VisionModel      string
	MaxSearchResults int
	SearchDomains    []string
	MaxWorkers       int

	// Provider call tuning
	SearchTimeout    time.Duration
	VisionTimeout    time.Duration
	SearchRatePerSec float64

	// Generation parameters
	MaxTokens         int
	Temperature       float64
	TopP              float64
	TopK              int
	RepetitionPenalty float64
	StopSequences     []string
}

// GetEnvString gets a string from environment variables with a default value
func GetEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// GetEnvInt gets an integer from environment variables with a default value
func GetEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// GetEnvFloat gets a float64 from environment variables with a default value
func GetEnvFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// GetEnvStringSlice gets a comma-separated string slice from environment
// variables with a default value
func GetEnvStringSlice(key string, defaultValue []string) []string {
	if value, exists := os.LookupEnv(key); exists {
		if strings.TrimSpace(value) == "" {
			return defaultValue
		}
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}

// LoadConfig reads .env if present and builds the configuration. Missing
// provider credentials are fatal: the process must not start without them.
func LoadConfig() (*Config, error) {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg := &Config{
		Port:         GetEnvInt("PORT", 8000),
		StaticDir:    GetEnvString("STATIC_DIR", "web/static"),
		MaxImageSize: int64(GetEnvInt("MAX_IMAGE_SIZE_MB", 5)) * 1024 * 1024,

		TavilyAPIKey:   GetEnvString("TAVILY_API_KEY", ""),
		TogetherAPIKey: GetEnvString("TOGETHER_API_KEY", ""),

		AnalysisMode:     GetEnvString("ANALYSIS_MODE", ModeDelegated),
		VisionProvider:   GetEnvString("VISION_PROVIDER", ProviderTogether),
		VisionModel:      GetEnvString("VISION_MODEL", "meta-llama/Llama-Vision-Free"),
		MaxSearchResults: GetEnvInt("MAX_SEARCH_RESULTS", 5),
		SearchDomains:    GetEnvStringSlice("SEARCH_DOMAINS", defaultSearchDomains),
		MaxWorkers:       GetEnvInt("MAX_WORKERS", 5),

		SearchTimeout:    time.Duration(GetEnvInt("SEARCH_TIMEOUT_SECONDS", 15)) * time.Second,
		VisionTimeout:    time.Duration(GetEnvInt("VISION_TIMEOUT_SECONDS", 60)) * time.Second,
		SearchRatePerSec: GetEnvFloat("SEARCH_RATE_PER_SECOND", 2),

		MaxTokens:         GetEnvInt("MAX_TOKENS", 512),
		Temperature:       GetEnvFloat("TEMPERATURE", 0.7),
		TopP:              GetEnvFloat("TOP_P", 0.9),
		TopK:              GetEnvInt("TOP_K", 50),
		RepetitionPenalty: GetEnvFloat("REPETITION_PENALTY", 1.0),
		StopSequences:     GetEnvStringSlice("STOP_SEQUENCES", []string{"<|eot_id|>", "<|eom_id|>"}),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for fatal problems.
func (cfg *Config) Validate() error {
	if cfg.TavilyAPIKey == "" {
		return NewConfigError(ErrConfigMissingKey, "TAVILY_API_KEY is required", nil)
	}
	if cfg.TogetherAPIKey == "" {
		return NewConfigError(ErrConfigMissingKey, "TOGETHER_API_KEY is required", nil)
	}
	if cfg.AnalysisMode != ModeLocal && cfg.AnalysisMode != ModeDelegated {
		return NewConfigError(ErrConfigInvalid,
			fmt.Sprintf("ANALYSIS_MODE must be %q or %q, got %q", ModeLocal, ModeDelegated, cfg.AnalysisMode), nil)
	}
	if cfg.VisionProvider != ProviderTogether && cfg.VisionProvider != ProviderOpenAI {
		return NewConfigError(ErrConfigInvalid,
			fmt.Sprintf("VISION_PROVIDER must be %q or %q, got %q", ProviderTogether, ProviderOpenAI, cfg.VisionProvider), nil)
	}
	if cfg.MaxSearchResults < 1 {
		return NewConfigError(ErrConfigInvalid, "MAX_SEARCH_RESULTS must be at least 1", nil)
	}
	if cfg.MaxWorkers < 1 {
		return NewConfigError(ErrConfigInvalid, "MAX_WORKERS must be at least 1", nil)
	}
	return nil
}
