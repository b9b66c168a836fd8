// Package config provides configuration loading, validation, and the model registry for the trip planner.
// Configuration comes from an optional YAML file, then environment overrides, then defaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"tripplanner/pkg/logx"
)

// Provider constants.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGoogle    = "google"
	ProviderOllama    = "ollama"
)

// Environment variables holding secrets or deployment overrides.
const (
	EnvOpenAIAPIKey      = "OPENAI_API_KEY"
	EnvAnthropicAPIKey   = "ANTHROPIC_API_KEY"
	EnvGoogleAPIKey      = "GOOGLE_API_KEY"
	EnvOllamaHost        = "OLLAMA_HOST"
	EnvOpenWeatherAPIKey = "OPENWEATHER_API_KEY"
	EnvSerpAPIKey        = "SERPAPI_API_KEY"
	EnvAirportsDBURL     = "AIRPORTS_DATABASE_URL"
	EnvRedisURL          = "REDIS_URL"
	EnvStorePath         = "TRIPPLANNER_STORE_PATH"
	EnvModel             = "TRIPPLANNER_MODEL"
	EnvModelBaseURL      = "OPENAI_BASE_URL"
	EnvPort              = "PORT"
)

// Defaults.
const (
	DefaultConfigFile         = "tripplanner.yaml"
	DefaultModel              = "gpt-5"
	DefaultOpenAIBaseURL      = "https://api.openai.com/v1"
	DefaultOllamaHost         = "http://localhost:11434"
	DefaultMaxTokens          = 4096
	DefaultTemperature        = 0.3
	DefaultMaxIterations      = 10
	DefaultRequestTimeout     = 120 * time.Second
	DefaultModelTimeout       = 60 * time.Second
	DefaultRetries            = 2
	DefaultRetryBaseDelay     = 200 * time.Millisecond
	DefaultRetryMaxElapsed    = 30 * time.Second
	DefaultHTTPTimeout        = 20 * time.Second
	DefaultCoordinatesTimeout = 8 * time.Second
	DefaultCurrency           = "EUR"
	DefaultLanguage           = "en"
	DefaultHost               = "0.0.0.0"
	DefaultPort               = 8787
	DefaultCoordinatesTTL     = 7 * 24 * time.Hour
	DefaultListLimit          = 50
)

// Config is the full trip planner configuration.
//
//nolint:govet // fieldalignment: sections ordered as they appear in the YAML file
type Config struct {
	Model    ModelConfig    `yaml:"model"`
	Agent    AgentConfig    `yaml:"agent"`
	Retry    RetryConfig    `yaml:"retry"`
	Tools    ToolsConfig    `yaml:"tools"`
	Server   ServerConfig   `yaml:"server"`
	Redis    RedisConfig    `yaml:"redis"`
	Airports AirportsConfig `yaml:"airports"`
	Store    StoreConfig    `yaml:"store"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ModelConfig selects the model used by every agent.
type ModelConfig struct {
	Provider    string  `yaml:"provider"` // Inferred from Name when empty
	Name        string  `yaml:"name"`
	BaseURL     string  `yaml:"base_url"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float32 `yaml:"temperature"`
}

// AgentConfig bounds a single agent run.
type AgentConfig struct {
	MaxIterations    int           `yaml:"max_iterations"`
	RequestTimeout   time.Duration `yaml:"request_timeout"` // Whole trip request
	ModelTimeout     time.Duration `yaml:"model_timeout"`   // One model consultation
	DebugLLMMessages bool          `yaml:"debug_llm_messages"`
}

// RetryConfig is the backoff policy shared by model calls and tool backends.
type RetryConfig struct {
	Retries    int           `yaml:"retries"`
	BaseDelay  time.Duration `yaml:"base_delay"`
	MaxElapsed time.Duration `yaml:"max_elapsed"`
}

// ToolsConfig configures the outbound data services.
type ToolsConfig struct {
	HTTPTimeout        time.Duration `yaml:"http_timeout"`
	CoordinatesTimeout time.Duration `yaml:"coordinates_timeout"`
	Currency           string        `yaml:"currency"`
	Language           string        `yaml:"language"`
}

// ServerConfig configures the HTTP entry point.
type ServerConfig struct {
	Host           string   `yaml:"host"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	Port           int      `yaml:"port"`
}

// RedisConfig configures the coordinates cache. Empty URL disables it.
type RedisConfig struct {
	URL string        `yaml:"url"`
	TTL time.Duration `yaml:"ttl"`
}

// AirportsConfig configures the nearby airports lookup. Empty URL disables it.
type AirportsConfig struct {
	DatabaseURL string `yaml:"database_url"`
}

// StoreConfig configures trip history. Empty path disables it.
type StoreConfig struct {
	Path      string `yaml:"path"`
	ListLimit int    `yaml:"list_limit"`
}

// MetricsConfig toggles Prometheus instrumentation.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := newConfig()
	applyDefaults(cfg)
	return cfg
}

// newConfig seeds the fields whose zero value is a meaningful setting, so a
// file can still set them to zero explicitly.
func newConfig() *Config {
	return &Config{
		Metrics: MetricsConfig{Enabled: true},
		Retry:   RetryConfig{Retries: DefaultRetries},
	}
}

//nolint:gochecknoglobals // package logger, created on first use
var logger *logx.Logger

func getLogger() *logx.Logger {
	if logger == nil {
		logger = logx.NewLogger("config")
	}
	return logger
}

// applyDefaults fills every zero value.
func applyDefaults(cfg *Config) {
	if cfg.Model.Name == "" {
		cfg.Model.Name = DefaultModel
	}
	if cfg.Model.MaxTokens <= 0 {
		cfg.Model.MaxTokens = DefaultMaxTokens
	}
	if cfg.Model.Temperature == 0 {
		cfg.Model.Temperature = DefaultTemperature
	}
	if cfg.Model.Provider == "" {
		if provider, err := GetModelProvider(cfg.Model.Name); err == nil {
			cfg.Model.Provider = provider
		}
	}
	if cfg.Model.BaseURL == "" && cfg.Model.Provider == ProviderOpenAI {
		cfg.Model.BaseURL = DefaultOpenAIBaseURL
	}

	if cfg.Agent.MaxIterations <= 0 {
		cfg.Agent.MaxIterations = DefaultMaxIterations
	}
	if cfg.Agent.RequestTimeout <= 0 {
		cfg.Agent.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.Agent.ModelTimeout <= 0 {
		cfg.Agent.ModelTimeout = DefaultModelTimeout
	}

	// Zero retries is a valid explicit policy; newConfig seeds the default.
	if cfg.Retry.Retries < 0 {
		cfg.Retry.Retries = DefaultRetries
	}
	if cfg.Retry.BaseDelay <= 0 {
		cfg.Retry.BaseDelay = DefaultRetryBaseDelay
	}
	if cfg.Retry.MaxElapsed <= 0 {
		cfg.Retry.MaxElapsed = DefaultRetryMaxElapsed
	}

	if cfg.Tools.HTTPTimeout <= 0 {
		cfg.Tools.HTTPTimeout = DefaultHTTPTimeout
	}
	if cfg.Tools.CoordinatesTimeout <= 0 {
		cfg.Tools.CoordinatesTimeout = DefaultCoordinatesTimeout
	}
	if cfg.Tools.Currency == "" {
		cfg.Tools.Currency = DefaultCurrency
	}
	if cfg.Tools.Language == "" {
		cfg.Tools.Language = DefaultLanguage
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"*"}
	}

	if cfg.Redis.TTL <= 0 {
		cfg.Redis.TTL = DefaultCoordinatesTTL
	}
	if cfg.Store.ListLimit <= 0 {
		cfg.Store.ListLimit = DefaultListLimit
	}
}

// Validate checks the configuration after defaults are applied.
func (c *Config) Validate() error {
	switch c.Model.Provider {
	case ProviderOpenAI, ProviderAnthropic, ProviderGoogle, ProviderOllama:
	case "":
		return fmt.Errorf("model %q: cannot determine provider, set model.provider", c.Model.Name)
	default:
		return fmt.Errorf("unknown model provider %q", c.Model.Provider)
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 2 {
		return fmt.Errorf("model.temperature must be between 0.0 and 2.0, got %v", c.Model.Temperature)
	}
	if info, known := GetModelInfo(c.Model.Name); known && c.Model.MaxTokens > info.MaxOutputTokens {
		return fmt.Errorf("model.max_tokens %d exceeds %s limit of %d", c.Model.MaxTokens, c.Model.Name, info.MaxOutputTokens)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if len(c.Tools.Currency) != 3 {
		return fmt.Errorf("tools.currency must be an ISO 4217 code, got %q", c.Tools.Currency)
	}
	if c.Retry.BaseDelay > c.Retry.MaxElapsed {
		return fmt.Errorf("retry.base_delay (%s) exceeds retry.max_elapsed (%s)", c.Retry.BaseDelay, c.Retry.MaxElapsed)
	}
	return nil
}

// ModelInfo contains static information about a known LLM model.
type ModelInfo struct {
	Provider         string  // API provider
	InputCPM         float64 // Cost per million input tokens (USD)
	OutputCPM        float64 // Cost per million output tokens (USD)
	MaxContextTokens int
	MaxOutputTokens  int
}

// KnownModels holds pricing and provider information for common models.
// Unknown models are inferred via ProviderPatterns.
//
//nolint:gochecknoglobals // static model registry
var KnownModels = map[string]ModelInfo{
	"gpt-5": {
		Provider:         ProviderOpenAI,
		InputCPM:         1.25,
		OutputCPM:        10.0,
		MaxContextTokens: 400000,
		MaxOutputTokens:  128000,
	},
	"gpt-5-mini": {
		Provider:         ProviderOpenAI,
		InputCPM:         0.25,
		OutputCPM:        2.0,
		MaxContextTokens: 400000,
		MaxOutputTokens:  128000,
	},
	"gpt-4.1": {
		Provider:         ProviderOpenAI,
		InputCPM:         2.0,
		OutputCPM:        8.0,
		MaxContextTokens: 1047576,
		MaxOutputTokens:  32768,
	},
	"o3": {
		Provider:         ProviderOpenAI,
		InputCPM:         2.0,
		OutputCPM:        8.0,
		MaxContextTokens: 200000,
		MaxOutputTokens:  100000,
	},
	"claude-sonnet-4-5": {
		Provider:         ProviderAnthropic,
		InputCPM:         3.0,
		OutputCPM:        15.0,
		MaxContextTokens: 200000,
		MaxOutputTokens:  8192,
	},
	"claude-opus-4-1": {
		Provider:         ProviderAnthropic,
		InputCPM:         15.0,
		OutputCPM:        75.0,
		MaxContextTokens: 200000,
		MaxOutputTokens:  8192,
	},
	"gemini-2.5-pro": {
		Provider:         ProviderGoogle,
		InputCPM:         1.25,
		OutputCPM:        10.0,
		MaxContextTokens: 1048576,
		MaxOutputTokens:  65536,
	},
	"gemini-2.5-flash": {
		Provider:         ProviderGoogle,
		InputCPM:         0.3,
		OutputCPM:        2.5,
		MaxContextTokens: 1048576,
		MaxOutputTokens:  65536,
	},
	"mistral-nemo:latest": {
		Provider:         ProviderOllama,
		MaxContextTokens: 128000,
		MaxOutputTokens:  4096,
	},
}

// ProviderPattern maps a model name prefix to a provider.
type ProviderPattern struct {
	Prefix   string
	Provider string
}

// ProviderPatterns infers providers for models missing from KnownModels.
//
//nolint:gochecknoglobals // inference rules
var ProviderPatterns = []ProviderPattern{
	{"claude", ProviderAnthropic},
	{"gpt", ProviderOpenAI},
	{"o1", ProviderOpenAI},
	{"o3", ProviderOpenAI},
	{"o4", ProviderOpenAI},
	{"gemini", ProviderGoogle},
	{"phi", ProviderOllama},
	{"llama", ProviderOllama},
	{"qwen", ProviderOllama},
	{"mistral", ProviderOllama},
	{"deepseek", ProviderOllama},
	{"ollama:", ProviderOllama},
}

// GetModelProvider returns the API provider for a model.
func GetModelProvider(modelName string) (string, error) {
	if info, exists := KnownModels[modelName]; exists {
		return info.Provider, nil
	}
	for i := range ProviderPatterns {
		if strings.HasPrefix(modelName, ProviderPatterns[i].Prefix) {
			return ProviderPatterns[i].Provider, nil
		}
	}
	return "", fmt.Errorf("unknown model '%s': no known provider mapping or pattern match", modelName)
}

// GetModelInfo returns the registry entry for a model and whether it was known.
// Unknown models get conservative limits and an inferred provider.
func GetModelInfo(modelName string) (ModelInfo, bool) {
	if info, exists := KnownModels[modelName]; exists {
		return info, true
	}
	provider, _ := GetModelProvider(modelName)
	return ModelInfo{
		Provider:         provider,
		MaxContextTokens: 32000,
		MaxOutputTokens:  4096,
	}, false
}

// CalculateCost returns the USD cost of a call.
func CalculateCost(modelName string, promptTokens, completionTokens int) float64 {
	info, known := GetModelInfo(modelName)
	if !known {
		return 0
	}
	return float64(promptTokens)/1e6*info.InputCPM + float64(completionTokens)/1e6*info.OutputCPM
}

// GetAPIKey returns the credential for a provider.
// Ollama takes no key and returns its host URL instead.
func GetAPIKey(provider string) (string, error) {
	var envVar string
	switch provider {
	case ProviderAnthropic:
		envVar = EnvAnthropicAPIKey
	case ProviderOpenAI:
		envVar = EnvOpenAIAPIKey
	case ProviderGoogle:
		envVar = EnvGoogleAPIKey
	case ProviderOllama:
		host, err := GetSecret(EnvOllamaHost)
		if err != nil || host == "" {
			host = DefaultOllamaHost
		}
		return host, nil
	default:
		return "", fmt.Errorf("unknown provider: %s", provider)
	}

	key, err := GetSecret(envVar)
	if err == nil && key != "" {
		return key, nil
	}
	return "", fmt.Errorf("API key not found: %s not found in secrets file or environment variables", envVar)
}
