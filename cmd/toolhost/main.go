// Command toolhost serves the converse tools over MCP.
//
// Usage:
//
//	PEXELS_API_KEY=... TWITTER_ACCESS_TOKEN=... toolhost [flags]
//
// By default it serves streamable HTTP on /mcp. With -stdio it serves a
// single client on stdin/stdout, for use as "stdio://toolhost -stdio".
//
// Flags:
//
//	-config string     Path to converse.yaml
//	-addr string       Listen address (default from config, :3000)
//	-root string       Directory the file tools may access
//	-allow string      Comma-separated glob allow-list for the file tools
//	-stdio             Serve over stdin/stdout instead of HTTP
//	-log-level string  Log level: debug, info, warn, error
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fwojciec/converse"
	"github.com/fwojciec/converse/builtin"
	"github.com/fwojciec/converse/config"
	"github.com/fwojciec/converse/fs"
	"github.com/fwojciec/converse/mcp"
	"github.com/fwojciec/converse/pexels"
	"github.com/fwojciec/converse/twitter"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	serverName      = "converse-toolhost"
	serverVersion   = "1.0.0"
	shutdownTimeout = 5 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "toolhost: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stderr io.Writer) error {
	var (
		configPath string
		addr       string
		root       string
		allow      string
		stdio      bool
		logLevel   string
	)
	flags := flag.NewFlagSet("toolhost", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.StringVar(&configPath, "config", "", "Path to converse.yaml")
	flags.StringVar(&addr, "addr", "", "Listen address")
	flags.StringVar(&root, "root", "", "Directory the file tools may access")
	flags.StringVar(&allow, "allow", "", "Comma-separated glob allow-list for the file tools")
	flags.BoolVar(&stdio, "stdio", false, "Serve over stdin/stdout instead of HTTP")
	flags.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	hc := cfg.Toolhost
	if addr != "" {
		hc.Addr = addr
	}
	if root != "" {
		hc.Root = root
	}
	if allow != "" {
		hc.Allow = splitList(allow)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	// stdout carries the protocol in stdio mode, so logs always go to stderr.
	logger := zerolog.New(stderr).Level(lvl).With().Timestamp().Str("service", serverName).Logger()

	handlers, err := toolHandlers(hc, logger)
	if err != nil {
		return err
	}
	server, err := mcp.NewServer(serverName, serverVersion, handlers, logger)
	if err != nil {
		return err
	}

	if stdio {
		logger.Info().Int("tools", len(handlers)).Msg("serving on stdio")
		return mcp.ServeStdio(ctx, server)
	}
	return serveHTTP(ctx, hc.Addr, newMux(server, len(handlers)), logger)
}

// toolHandlers assembles every tool the host serves. findImage is left out
// when no Pexels key is configured, createPost and getTrendingHashtags when no
// X access token is.
func toolHandlers(hc config.ToolhostConfig, logger zerolog.Logger) ([]converse.Handler, error) {
	handlers := builtin.Defaults()

	ws, err := fs.New(hc.Root, hc.Allow...)
	if err != nil {
		return nil, err
	}
	handlers = append(handlers, ws.Handlers()...)

	if hc.PexelsAPIKey != "" {
		handlers = append(handlers, pexels.New(hc.PexelsAPIKey, pexels.WithLogger(logger)).FindImage())
	} else {
		logger.Warn().Msg("PEXELS_API_KEY not set: findImage disabled")
	}

	if hc.TwitterToken != "" {
		opts := []twitter.Option{twitter.WithLogger(logger)}
		if hc.TwitterAPIURL != "" {
			opts = append(opts, twitter.WithBaseURL(hc.TwitterAPIURL))
		}
		handlers = append(handlers, twitter.New(hc.TwitterToken, opts...).Handlers()...)
	} else {
		logger.Warn().Msg("TWITTER_ACCESS_TOKEN not set: createPost and getTrendingHashtags disabled")
	}

	logger.Debug().Str("root", ws.Root()).Strs("allow", hc.Allow).Msg("file tools ready")
	return handlers, nil
}

func newMux(server *mcpsdk.Server, tools int) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/mcp", mcp.NewHTTPHandler(server))
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","tools":%d}`, tools)
	})
	return mux
}

func serveHTTP(ctx context.Context, addr string, handler http.Handler, logger zerolog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", addr).Msg("tool host listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down tool host")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
