// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/vinayprograms/agentkit/credentials"
)

// Config represents the growwit configuration.
type Config struct {
	Server    ServerConfig       `toml:"server"`
	LLM       LLMConfig          `toml:"llm"`      // Default LLM settings
	Profiles  map[string]Profile `toml:"profiles"` // Per-agent model bindings
	Agents    AgentsConfig       `toml:"agents"`
	Search    SearchConfig       `toml:"search"`
	Reddit    RedditConfig       `toml:"reddit"`
	Pipeline  PipelineConfig     `toml:"pipeline"`
	Timeouts  TimeoutsConfig     `toml:"timeouts"` // Network operation timeouts
	Telemetry TelemetryConfig    `toml:"telemetry"`
	Events    EventsConfig       `toml:"events"`
	Debug     bool               `toml:"debug"` // Record agent output in sessions and spans
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Addr           string `toml:"addr"`
	MaxConnections int    `toml:"max_connections"`
	CORSOrigin     string `toml:"cors_origin"`
	MaxBodyBytes   int64  `toml:"max_body_bytes"`
}

// LLMConfig contains LLM provider settings.
type LLMConfig struct {
	Provider          string `toml:"provider"`
	Model             string `toml:"model"`
	APIKeyEnv         string `toml:"api_key_env"`
	MaxTokens         int    `toml:"max_tokens"`
	BaseURL           string `toml:"base_url"`            // Custom API endpoint (OpenRouter, LiteLLM, Ollama)
	MaxRetries        int    `toml:"max_retries"`         // Max retry attempts (default 5)
	RetryBackoff      string `toml:"retry_backoff"`       // Max backoff duration (default "60s")
	RequestsPerMinute int    `toml:"requests_per_minute"` // 0 disables rate limiting
}

// Profile binds one agent profile to a model.
type Profile struct {
	Provider          string `toml:"provider"`
	Model             string `toml:"model"`
	APIKeyEnv         string `toml:"api_key_env"`
	MaxTokens         int    `toml:"max_tokens"`
	BaseURL           string `toml:"base_url"`
	RequestsPerMinute int    `toml:"requests_per_minute"`
}

// AgentsConfig locates agent definition overrides.
type AgentsConfig struct {
	Dir string `toml:"dir"` // *.md files here replace the embedded definitions
}

// SearchConfig contains web search settings.
type SearchConfig struct {
	APIKeyEnv  string `toml:"api_key_env"`
	Endpoint   string `toml:"endpoint"`
	MaxResults int    `toml:"max_results"`
}

// RedditConfig contains Reddit API settings.
type RedditConfig struct {
	BaseURL   string `toml:"base_url"`
	UserAgent string `toml:"user_agent"`
	TopLimit  int    `toml:"top_limit"`
}

// PipelineConfig contains orchestration settings.
type PipelineConfig struct {
	WriterConcurrency  int    `toml:"writer_concurrency"`
	CraftConcurrency   int    `toml:"craft_concurrency"`
	Cadence            bool   `toml:"cadence"`  // Run the cadence stage
	Finalize           string `toml:"finalize"` // "render" or "agent"
	LintRetries        int    `toml:"lint_retries"`
	MaxRecommendations int    `toml:"max_recommendations"`
	MaxCraftPosts      int    `toml:"max_craft_posts"`
}

// TimeoutsConfig contains timeout settings in seconds.
type TimeoutsConfig struct {
	LLM      int `toml:"llm"`      // per model call (default 120)
	Search   int `toml:"search"`   // web search (default 30)
	Reddit   int `toml:"reddit"`   // Reddit requests (default 15)
	Shutdown int `toml:"shutdown"` // graceful shutdown (default 10)
}

// TelemetryConfig contains telemetry settings.
type TelemetryConfig struct {
	Enabled  bool   `toml:"enabled"`
	Endpoint string `toml:"endpoint"` // OTLP endpoint (e.g., localhost:4317)
	Protocol string `toml:"protocol"` // grpc (default) or http
}

// EventsConfig contains lifecycle event publishing settings. An empty
// URL disables publishing.
type EventsConfig struct {
	NATSURL       string `toml:"nats_url"`
	SubjectPrefix string `toml:"subject_prefix"`
}

// Agent profile names.
const (
	ProfileStrategist   = "strategist"
	ProfileWriter       = "writer"
	ProfileCadence      = "cadence"
	ProfileOrchestrator = "orchestrator"
	ProfileCrafter      = "crafter"
)

// New creates a new config with defaults.
func New() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         ":3001",
			MaxBodyBytes: 1 << 20,
		},
		LLM: LLMConfig{
			Provider:  "openai",
			Model:     "gpt-4o",
			MaxTokens: 4096,
		},
		Profiles: map[string]Profile{
			ProfileWriter:       {Provider: "openai", Model: "gpt-4o"},
			ProfileOrchestrator: {Provider: "groq", Model: "llama-3.3-70b-versatile"},
			ProfileStrategist:   {Provider: "groq", Model: "deepseek-r1-distill-llama-70b"},
			ProfileCadence:      {Provider: "groq", Model: "qwen-2.5-32b"},
			ProfileCrafter:      {Provider: "openai", Model: "gpt-4o"},
		},
		Search: SearchConfig{
			APIKeyEnv:  "TAVILY_API_KEY",
			MaxResults: 5,
		},
		Pipeline: PipelineConfig{
			WriterConcurrency:  3,
			CraftConcurrency:   3,
			Cadence:            true,
			Finalize:           "render",
			LintRetries:        1,
			MaxRecommendations: 10,
			MaxCraftPosts:      20,
		},
		Timeouts: TimeoutsConfig{
			LLM:      120,
			Search:   30,
			Reddit:   15,
			Shutdown: 10,
		},
		Telemetry: TelemetryConfig{
			Protocol: "noop",
		},
		Events: EventsConfig{
			SubjectPrefix: "growwit",
		},
	}
}

// Default returns a default configuration.
func Default() *Config {
	return New()
}

// LoadFile loads configuration from a TOML file. Keys absent from the file
// keep their defaults.
func LoadFile(path string) (*Config, error) {
	cfg := New()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDefault loads growwit.toml from the current directory, or returns
// the defaults when there is none.
func LoadDefault() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}
	path := filepath.Join(cwd, "growwit.toml")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return New(), nil
	}
	return LoadFile(path)
}

// Load reads path, or growwit.toml in the current directory when path is
// empty, then applies environment overrides.
func Load(path string) (*Config, error) {
	var cfg *Config
	var err error
	if path == "" {
		cfg, err = LoadDefault()
	} else {
		cfg, err = LoadFile(path)
	}
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.Getenv)
	return cfg, nil
}

// ApplyEnv overrides file settings from the environment. GROWWIT_ADDR
// wins over PORT.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if port := getenv("PORT"); port != "" {
		c.Server.Addr = ":" + port
	}
	if addr := getenv("GROWWIT_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
	if url := getenv("NATS_URL"); url != "" {
		c.Events.NATSURL = url
	}
}

// Validate checks settings that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.Pipeline.Finalize {
	case "", "render", "agent":
	default:
		return fmt.Errorf("pipeline.finalize must be \"render\" or \"agent\", got %q", c.Pipeline.Finalize)
	}
	if c.LLM.RetryBackoff != "" {
		if _, err := time.ParseDuration(c.LLM.RetryBackoff); err != nil {
			return fmt.Errorf("llm.retry_backoff: %w", err)
		}
	}
	for name, p := range c.Profiles {
		if p.RequestsPerMinute < 0 {
			return fmt.Errorf("profiles.%s.requests_per_minute must not be negative", name)
		}
	}
	return nil
}

// DefaultAPIKeyEnv returns the default environment variable name for a provider.
func DefaultAPIKeyEnv(provider string) string {
	switch provider {
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	case "openai":
		return "OPENAI_API_KEY"
	case "google":
		return "GOOGLE_API_KEY"
	case "mistral":
		return "MISTRAL_API_KEY"
	case "groq":
		return "GROQ_API_KEY"
	default:
		return ""
	}
}

// GetProfile returns the LLM config for an agent profile.
// Falls back to default LLM config if profile not found.
func (c *Config) GetProfile(name string) LLMConfig {
	if name == "" {
		return c.LLM
	}
	profile, ok := c.Profiles[name]
	if !ok {
		return c.LLM
	}
	// Fill in defaults from main LLM config
	result := c.LLM
	if profile.Provider != "" {
		result.Provider = profile.Provider
		// A different provider needs its own key variable
		if profile.Provider != c.LLM.Provider {
			result.APIKeyEnv = ""
		}
	}
	if profile.Model != "" {
		result.Model = profile.Model
	}
	if profile.APIKeyEnv != "" {
		result.APIKeyEnv = profile.APIKeyEnv
	}
	if profile.MaxTokens != 0 {
		result.MaxTokens = profile.MaxTokens
	}
	if profile.BaseURL != "" {
		result.BaseURL = profile.BaseURL
	}
	if profile.RequestsPerMinute != 0 {
		result.RequestsPerMinute = profile.RequestsPerMinute
	}
	return result
}

// GetProfileAPIKey returns the API key for a profile. The credentials file
// takes priority over the environment.
func (c *Config) GetProfileAPIKey(name string, creds *credentials.Credentials) string {
	llmCfg := c.GetProfile(name)
	if creds != nil {
		if key := creds.GetAPIKey(llmCfg.Provider); key != "" {
			return key
		}
	}
	envVar := llmCfg.APIKeyEnv
	if envVar == "" {
		envVar = DefaultAPIKeyEnv(llmCfg.Provider)
	}
	if envVar == "" {
		return ""
	}
	return os.Getenv(envVar)
}

// GetSearchAPIKey returns the web search API key.
func (c *Config) GetSearchAPIKey() string {
	if c.Search.APIKeyEnv == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(c.Search.APIKeyEnv))
}

// Seconds converts a timeout setting to a duration.
func Seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
