// Package config loads converse settings with github.com/spf13/viper from a
// YAML file, CONVERSE_* environment variables and the providers' own API-key
// variables. Command-line flags are applied on top by the commands.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Provider names accepted in the provider setting.
const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

// Config holds all converse settings.
type Config struct {
	Provider  string         `mapstructure:"provider"`
	LogLevel  string         `mapstructure:"log_level"`
	Priming   string         `mapstructure:"priming_file"`
	Gemini    ModelConfig    `mapstructure:"gemini"`
	Anthropic ModelConfig    `mapstructure:"anthropic"`
	Loop      LoopConfig     `mapstructure:"loop"`
	Tools     ToolsConfig    `mapstructure:"tools"`
	Serve     ServeConfig    `mapstructure:"serve"`
	Toolhost  ToolhostConfig `mapstructure:"toolhost"`
}

// ModelConfig configures one model gateway.
type ModelConfig struct {
	APIKey      string   `mapstructure:"api_key"`
	Model       string   `mapstructure:"model"`
	BaseURL     string   `mapstructure:"base_url"`
	MaxTokens   int      `mapstructure:"max_tokens"`
	Temperature *float64 `mapstructure:"temperature"`
}

// LoopConfig bounds the orchestration loop.
type LoopConfig struct {
	ModelTimeout   time.Duration `mapstructure:"model_timeout"`
	ToolTimeout    time.Duration `mapstructure:"tool_timeout"`
	MaxCorrections int           `mapstructure:"max_corrections"`
	MaxChainDepth  int           `mapstructure:"max_chain_depth"`
}

// ToolsConfig selects where tools come from. An empty Server runs the
// builtin tools in process.
type ToolsConfig struct {
	Server   string `mapstructure:"server"`
	Validate bool   `mapstructure:"validate"`
}

// ServeConfig configures the HTTP chat server.
type ServeConfig struct {
	Addr string `mapstructure:"addr"`
}

// ToolhostConfig configures the MCP tool server. TwitterToken is an OAuth 2.0
// user-context access token for the X API.
type ToolhostConfig struct {
	Addr          string   `mapstructure:"addr"`
	Root          string   `mapstructure:"root"`
	Allow         []string `mapstructure:"allow"`
	PexelsAPIKey  string   `mapstructure:"pexels_api_key"`
	TwitterToken  string   `mapstructure:"twitter_token"`
	TwitterAPIURL string   `mapstructure:"twitter_api_url"`
}

// Load reads configuration from path, or from converse.yaml in the working
// directory or the user config directory when path is empty. A missing
// default file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("converse")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "converse"))
		}
	}

	setDefaults(v)

	v.SetEnvPrefix("converse")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range map[string]string{
		"gemini.api_key":          "GEMINI_API_KEY",
		"anthropic.api_key":       "ANTHROPIC_API_KEY",
		"toolhost.pexels_api_key": "PEXELS_API_KEY",
		"toolhost.twitter_token":  "TWITTER_ACCESS_TOKEN",
	} {
		if err := v.BindEnv(key, "CONVERSE_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("provider", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("priming_file", "")

	// Empty model settings leave the gateway's own defaults in place.
	for _, p := range []string{ProviderGemini, ProviderAnthropic} {
		v.SetDefault(p+".model", "")
		v.SetDefault(p+".base_url", "")
		v.SetDefault(p+".max_tokens", 0)
	}

	v.SetDefault("loop.model_timeout", "60s")
	v.SetDefault("loop.tool_timeout", "30s")
	v.SetDefault("loop.max_corrections", 2)
	v.SetDefault("loop.max_chain_depth", 4)

	v.SetDefault("tools.server", "")
	v.SetDefault("tools.validate", true)

	v.SetDefault("serve.addr", ":8080")

	v.SetDefault("toolhost.addr", ":3000")
	v.SetDefault("toolhost.root", ".")
	v.SetDefault("toolhost.allow", []string{"**"})
	v.SetDefault("toolhost.twitter_api_url", "")
}

// ResolveProvider returns the provider to use and its settings. With no
// provider configured it is inferred from which API key is set.
func (c *Config) ResolveProvider() (string, ModelConfig, error) {
	provider := c.Provider
	if provider == "" {
		hasGemini := c.Gemini.APIKey != ""
		hasAnthropic := c.Anthropic.APIKey != ""
		switch {
		case hasGemini && hasAnthropic:
			return "", ModelConfig{}, errors.New("multiple API keys found (GEMINI_API_KEY, ANTHROPIC_API_KEY): set provider to select one")
		case hasGemini:
			provider = ProviderGemini
		case hasAnthropic:
			provider = ProviderAnthropic
		default:
			return "", ModelConfig{}, errors.New("no API key found: set GEMINI_API_KEY or ANTHROPIC_API_KEY")
		}
	}

	switch provider {
	case ProviderGemini:
		if c.Gemini.APIKey == "" {
			return "", ModelConfig{}, errors.New("GEMINI_API_KEY not set")
		}
		return provider, c.Gemini, nil
	case ProviderAnthropic:
		if c.Anthropic.APIKey == "" {
			return "", ModelConfig{}, errors.New("ANTHROPIC_API_KEY not set")
		}
		return provider, c.Anthropic, nil
	default:
		return "", ModelConfig{}, fmt.Errorf("unknown provider %q: must be %q or %q", provider, ProviderGemini, ProviderAnthropic)
	}
}
