package main

import (
	"context"

	"github.com/fwojciec/converse"
	"github.com/fwojciec/converse/builtin"
	"github.com/fwojciec/converse/config"
	"github.com/fwojciec/converse/mcp"
	"github.com/rs/zerolog"
)

// openTools connects to the configured tool server. Without one the
// credential-free builtin tools run in process. The returned func releases
// the connection.
func openTools(ctx context.Context, cfg config.ToolsConfig, logger zerolog.Logger) (converse.ToolHost, func(), error) {
	if cfg.Server == "" {
		registry, err := builtin.NewRegistry(builtin.Defaults()...)
		if err != nil {
			return nil, nil, err
		}
		logger.Debug().Msg("using builtin tools")
		return registry, func() {}, nil
	}

	client, err := mcp.Dial(ctx, cfg.Server, mcp.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	logger.Debug().Str("server", cfg.Server).Msg("connected to tool server")
	return client, func() {
		if err := client.Close(); err != nil {
			logger.Warn().Err(err).Msg("close tool server connection")
		}
	}, nil
}
