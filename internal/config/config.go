// Package config handles configuration loading for Quorum.
// It supports XDG config paths, a project-local override file, and
// environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the Quorum server.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Search    SearchConfig    `mapstructure:"search"`
	Store     StoreConfig     `mapstructure:"store"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Stream    StreamConfig    `mapstructure:"stream"`
	Debug     bool            `mapstructure:"debug"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Addr is the listen address, e.g. ":8787".
	Addr string `mapstructure:"addr"`
	// RateLimit is the number of new conversations allowed per user
	// within RateWindow. Zero disables rate limiting.
	RateLimit int `mapstructure:"rate_limit"`
	// RateWindow is the sliding window for RateLimit.
	RateWindow time.Duration `mapstructure:"rate_window"`
}

// AnthropicConfig holds completion service settings.
type AnthropicConfig struct {
	// APIKey is the Anthropic API key. If empty, ANTHROPIC_API_KEY is used.
	APIKey string `mapstructure:"api_key"`
	// Model is the Claude model identifier.
	Model string `mapstructure:"model"`
	// UseAWSBedrock routes completion calls through AWS Bedrock.
	UseAWSBedrock bool `mapstructure:"use_aws_bedrock"`
	// AWSRegion is the Bedrock region, e.g. "us-west-2".
	AWSRegion string `mapstructure:"aws_region"`
	// AWSProfile is the optional AWS shared config profile.
	AWSProfile string `mapstructure:"aws_profile"`
}

// SearchConfig holds web search settings for the research worker.
type SearchConfig struct {
	// Endpoint is the DuckDuckGo instant-answer API base URL.
	Endpoint string `mapstructure:"endpoint"`
	// MaxResults caps the number of results folded into research prompts.
	MaxResults int `mapstructure:"max_results"`
}

// StoreConfig holds relational store settings.
type StoreConfig struct {
	// Path is the SQLite database file path.
	Path string `mapstructure:"path"`
}

// EmbeddingConfig holds vector embedding settings.
type EmbeddingConfig struct {
	// Enabled toggles message embedding. When false, messages are persisted
	// but not added to the vector index.
	Enabled bool `mapstructure:"enabled"`
	// OllamaURL is the base URL of the local Ollama server.
	OllamaURL string `mapstructure:"ollama_url"`
	// Model is the embedding model name.
	Model string `mapstructure:"model"`
}

// CacheConfig holds key-value cache settings.
type CacheConfig struct {
	// TTL is the default expiry for cached entries.
	TTL time.Duration `mapstructure:"ttl"`
}

// StreamConfig holds response streaming settings.
type StreamConfig struct {
	// TokenDelay is the pause between token chunks, the simulated-typing
	// pace of the streamed answer.
	TokenDelay time.Duration `mapstructure:"token_delay"`
}

// Load loads configuration with the following precedence, highest first:
// environment variables, project config (.quorum.yaml in the current
// directory), user config (~/.config/quorum/config.yaml), built-in defaults.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("server.addr", "QUORUM_ADDR")
	v.BindEnv("store.path", "QUORUM_DB")
	v.BindEnv("embedding.ollama_url", "OLLAMA_HOST")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8787")
	v.SetDefault("server.rate_limit", 30)
	v.SetDefault("server.rate_window", time.Minute)
	v.SetDefault("anthropic.model", "")
	v.SetDefault("anthropic.use_aws_bedrock", false)
	v.SetDefault("search.endpoint", "https://api.duckduckgo.com")
	v.SetDefault("search.max_results", 3)
	v.SetDefault("store.path", defaultDBPath())
	v.SetDefault("embedding.enabled", false)
	v.SetDefault("embedding.ollama_url", "http://localhost:11434")
	v.SetDefault("embedding.model", "nomic-embed-text")
	v.SetDefault("cache.ttl", time.Hour)
	v.SetDefault("stream.token_delay", 50*time.Millisecond)
	v.SetDefault("debug", false)
}

// userConfigDir returns the XDG config directory for quorum.
func userConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "quorum")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "quorum")
}

// defaultDBPath returns the XDG data path for the SQLite database.
func defaultDBPath() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "quorum", "quorum.db")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "quorum", "quorum.db")
}

// findProjectConfig looks for .quorum.yaml in the current directory.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	candidate := filepath.Join(cwd, ".quorum.yaml")
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return ""
}
