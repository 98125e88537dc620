package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/hazyhaar/framedex/pkg/framedata"
	"github.com/hazyhaar/framedex/pkg/notation"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	args := os.Args[2:]
	switch os.Args[1] {
	case "serve":
		cmdServe(args)
	case "check":
		cmdCheck(args)
	case "fetch":
		cmdFetch(args)
	case "sources":
		cmdSources(args)
	case "mcp":
		cmdMCP(args)
	case "ask":
		cmdAsk(args)
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `Usage: framedex <command> [flags]

Commands:
  serve     Start the HTTP/HTTP3 server (REST, MCP over HTTP and QUIC)
  check     Verify the data directory and print an integrity report
  fetch     Download character data from the upstream source
  sources   List or edit the upstream source ledger
  mcp       Serve the MCP tools on stdio
  ask       Query a running server over MCP/QUIC
`)
}

// commonFlags registers -config and the overrides shared by every command,
// then loads the configuration with flags applied last.
type commonFlags struct {
	fs      *flag.FlagSet
	path    *string
	dataDir *string
	level   *string
}

func newFlags(name string) *commonFlags {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	return &commonFlags{
		fs:      fs,
		path:    fs.String("config", "config.yaml", "path to config file"),
		dataDir: fs.String("data-dir", "", "data directory (overrides config)"),
		level:   fs.String("log-level", "", "debug, info, warn or error (overrides config)"),
	}
}

func (f *commonFlags) load() config {
	cfg, err := loadConfig(*f.path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *f.dataDir != "" {
		cfg.DataDir = *f.dataDir
	}
	if *f.level != "" {
		cfg.LogLevel = *f.level
		if _, err := cfg.level(); err != nil {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
			os.Exit(1)
		}
	}
	return cfg
}

// newRegistry builds the normalizer from the rule table and returns a
// registry with the nickname table loaded when present.
func newRegistry(cfg config, logger *slog.Logger) (*framedata.Registry, error) {
	specs := notation.DefaultRules()
	if cfg.RulesFile != "" {
		var err error
		if specs, err = notation.LoadRuleFile(cfg.RulesFile); err != nil {
			return nil, fmt.Errorf("load rules: %w", err)
		}
	}
	rules, err := notation.CompileRules(specs)
	if err != nil {
		return nil, fmt.Errorf("compile rules: %w", err)
	}

	reg := framedata.NewRegistry(framedata.Config{
		DataDir:      cfg.DataDir,
		Normalizer:   notation.New(rules),
		ImageBaseURL: cfg.ImageBaseURL,
		DefaultImage: cfg.DefaultImage,
		Logger:       logger,
	})
	if err := reg.LoadNicknames(); err != nil {
		logger.Warn("nickname table not loaded", "error", err)
	}
	return reg, nil
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}
