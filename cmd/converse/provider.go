package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fwojciec/converse"
	"github.com/fwojciec/converse/anthropic"
	"github.com/fwojciec/converse/config"
	"github.com/fwojciec/converse/gemini"
	"github.com/rs/zerolog"
)

// resolveModel picks the provider and its settings. The -api-key flag
// overrides the provider's configured key and -model its model.
func resolveModel(cfg *config.Config, f flags) (string, config.ModelConfig, error) {
	if f.apiKey != "" {
		switch cfg.Provider {
		case config.ProviderGemini:
			cfg.Gemini.APIKey = f.apiKey
		case config.ProviderAnthropic:
			cfg.Anthropic.APIKey = f.apiKey
		}
	}

	provider, mc, err := cfg.ResolveProvider()
	if err != nil {
		return "", config.ModelConfig{}, err
	}
	if f.apiKey != "" {
		mc.APIKey = f.apiKey
	}
	if f.model != "" {
		mc.Model = f.model
	}
	return provider, mc, nil
}

// newGateway constructs the model gateway for provider. It also returns the
// model name shown in the UI.
func newGateway(ctx context.Context, provider string, mc config.ModelConfig) (converse.ModelGateway, string, error) {
	name := mc.Model
	if name == "" {
		name = provider
	}

	switch provider {
	case config.ProviderGemini:
		var opts []gemini.Option
		if mc.Model != "" {
			opts = append(opts, gemini.WithModel(mc.Model))
		}
		if mc.BaseURL != "" {
			opts = append(opts, gemini.WithBaseURL(mc.BaseURL))
		}
		if mc.MaxTokens > 0 {
			opts = append(opts, gemini.WithMaxTokens(mc.MaxTokens))
		}
		if mc.Temperature != nil {
			opts = append(opts, gemini.WithTemperature(*mc.Temperature))
		}
		client, err := gemini.New(ctx, mc.APIKey, opts...)
		if err != nil {
			return nil, "", err
		}
		return client, name, nil
	case config.ProviderAnthropic:
		var opts []anthropic.Option
		if mc.Model != "" {
			opts = append(opts, anthropic.WithModel(mc.Model))
		}
		if mc.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(mc.BaseURL))
		}
		if mc.MaxTokens > 0 {
			opts = append(opts, anthropic.WithMaxTokens(mc.MaxTokens))
		}
		if mc.Temperature != nil {
			opts = append(opts, anthropic.WithTemperature(*mc.Temperature))
		}
		return anthropic.New(mc.APIKey, opts...), name, nil
	default:
		return nil, "", fmt.Errorf("unknown provider %q: must be %q or %q", provider, config.ProviderGemini, config.ProviderAnthropic)
	}
}

// commandLogger builds the logger for cmd. repl writes human-readable logs
// to stderr and serve writes JSON. chat owns the terminal, so it logs only
// when given a file. The returned func closes that file.
func commandLogger(cmd, level, logFile string, stderr io.Writer) (zerolog.Logger, func(), error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), func() {}, fmt.Errorf("log level: %w", err)
	}

	switch cmd {
	case "repl":
		w := zerolog.ConsoleWriter{Out: stderr, TimeFormat: "15:04:05"}
		return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), func() {}, nil
	case "serve":
		return zerolog.New(stderr).Level(lvl).With().Timestamp().Logger(), func() {}, nil
	default:
		if logFile == "" {
			return zerolog.Nop(), func() {}, nil
		}
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return zerolog.Nop(), func() {}, fmt.Errorf("open log file: %w", err)
		}
		return zerolog.New(f).Level(lvl).With().Timestamp().Logger(), func() { _ = f.Close() }, nil
	}
}
