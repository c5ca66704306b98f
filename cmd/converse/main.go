// Command converse chats with a model that can call tools.
//
// Usage:
//
//	GEMINI_API_KEY=gk-...    converse [flags] [chat|repl|serve]
//	ANTHROPIC_API_KEY=sk-... converse [flags] [chat|repl|serve]
//
// Subcommands:
//
//	chat   full-screen TUI (default)
//	repl   plain line mode on stdin/stdout
//	serve  HTTP chat endpoint
//
// Flags:
//
//	-config string     Path to converse.yaml (default: ./converse.yaml, then the user config dir)
//	-provider string   Provider: gemini, anthropic (auto-detected from env vars if omitted)
//	-model string      Model ID (default: provider default)
//	-api-key string    API key (overrides provider's env var)
//	-tools string      Tool server: URL for streamable HTTP, "stdio://<cmd>" for a subprocess
//	-priming string    Path to a priming prompt (.txt) or transcript (.json)
//	-addr string       Listen address for serve
//	-log-level string  Log level: debug, info, warn, error
//	-log-file string   Write logs to this file (chat only; default: discard)
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/fwojciec/converse"
	"github.com/fwojciec/converse/agent"
	bt "github.com/fwojciec/converse/bubbletea"
	"github.com/fwojciec/converse/config"
	conversehttp "github.com/fwojciec/converse/http"
	"github.com/fwojciec/converse/jsonschema"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "converse: %v\n", err)
		os.Exit(1)
	}
}

// flags holds command-line overrides. Empty values leave the configuration
// untouched.
type flags struct {
	config   string
	provider string
	model    string
	apiKey   string
	tools    string
	priming  string
	addr     string
	logLevel string
	logFile  string
}

func parseFlags(args []string, stderr io.Writer) (flags, string, error) {
	var f flags
	fs := flag.NewFlagSet("converse", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&f.config, "config", "", "Path to converse.yaml")
	fs.StringVar(&f.provider, "provider", "", "Provider: gemini, anthropic (auto-detected from env vars if omitted)")
	fs.StringVar(&f.model, "model", "", "Model ID (provider-specific)")
	fs.StringVar(&f.apiKey, "api-key", "", "API key (overrides provider's env var)")
	fs.StringVar(&f.tools, "tools", "", "Tool server URL or stdio://<command> (default: builtin tools)")
	fs.StringVar(&f.priming, "priming", "", "Path to a priming prompt (.txt) or transcript (.json)")
	fs.StringVar(&f.addr, "addr", "", "Listen address for serve")
	fs.StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	fs.StringVar(&f.logFile, "log-file", "", "Write logs to this file (chat only)")
	if err := fs.Parse(args); err != nil {
		return flags{}, "", err
	}

	cmd := "chat"
	switch fs.NArg() {
	case 0:
	case 1:
		cmd = fs.Arg(0)
	default:
		return flags{}, "", fmt.Errorf("unexpected arguments: %v", fs.Args()[1:])
	}
	switch cmd {
	case "chat", "repl", "serve":
		return f, cmd, nil
	default:
		return flags{}, "", fmt.Errorf("unknown command %q: must be chat, repl or serve", cmd)
	}
}

// apply copies non-empty flag values over cfg.
func (f flags) apply(cfg *config.Config) {
	if f.provider != "" {
		cfg.Provider = f.provider
	}
	if f.tools != "" {
		cfg.Tools.Server = f.tools
	}
	if f.priming != "" {
		cfg.Priming = f.priming
	}
	if f.addr != "" {
		cfg.Serve.Addr = f.addr
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	f, cmd, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	cfg, err := config.Load(f.config)
	if err != nil {
		return err
	}
	f.apply(cfg)

	logger, closeLog, err := commandLogger(cmd, cfg.LogLevel, f.logFile, stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	provider, mc, err := resolveModel(cfg, f)
	if err != nil {
		return err
	}
	gateway, modelName, err := newGateway(ctx, provider, mc)
	if err != nil {
		return err
	}

	host, closeTools, err := openTools(ctx, cfg.Tools, logger)
	if err != nil {
		return err
	}
	defer closeTools()

	catalog, err := converse.LoadCatalog(ctx, host)
	if err != nil {
		return fmt.Errorf("load tools: %w", err)
	}
	logger.Info().Str("provider", provider).Str("model", modelName).Int("tools", catalog.Len()).Msg("ready")

	seed, err := loadPriming(cfg.Priming)
	if err != nil {
		return err
	}

	loop := agent.New(gateway, host, loopOptions(cfg, logger)...)

	switch cmd {
	case "repl":
		sess := agent.NewSession(uuid.NewString(), catalog, seed...)
		return repl(ctx, loop, sess, stdin, stdout)
	case "serve":
		return serve(ctx, loop, catalog, seed, cfg.Serve.Addr, logger)
	default:
		sess := agent.NewSession(uuid.NewString(), catalog, seed...)
		turn := func(ctx context.Context, input string, onEvent func(agent.Event)) (string, error) {
			return loop.Run(ctx, sess, input, agent.WithEventHandler(onEvent))
		}
		m := bt.New(turn, seed, converse.DefaultTheme(), bt.Config{ModelName: modelName, Tools: catalog.Len()})
		if err := bt.Run(ctx, m); err != nil {
			return fmt.Errorf("TUI: %w", err)
		}
		return nil
	}
}

func loopOptions(cfg *config.Config, logger zerolog.Logger) []agent.Option {
	opts := []agent.Option{
		agent.WithLogger(logger),
		agent.WithModelTimeout(cfg.Loop.ModelTimeout),
		agent.WithToolTimeout(cfg.Loop.ToolTimeout),
		agent.WithMaxCorrections(cfg.Loop.MaxCorrections),
		agent.WithMaxChainDepth(cfg.Loop.MaxChainDepth),
	}
	if cfg.Tools.Validate {
		opts = append(opts, agent.WithValidator(jsonschema.New()))
	}
	return opts
}

func serve(ctx context.Context, loop *agent.Loop, catalog *converse.Catalog, seed []converse.Entry, addr string, logger zerolog.Logger) error {
	srv := conversehttp.NewServer(loop, catalog,
		conversehttp.WithLogger(logger),
		conversehttp.WithSeed(seed...),
	)

	return srv.ListenAndServe(ctx, addr)
}
