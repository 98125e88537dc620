package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hazyhaar/framedex/pkg/api"
	"github.com/hazyhaar/framedex/pkg/mcpquic"
)

func cmdCheck(args []string) {
	f := newFlags("check")
	only := f.fs.String("characters", "", "comma-separated character ids (default: whole roster)")
	f.fs.Parse(args)

	cfg := f.load()
	logger := cfg.logger()
	reg, err := newRegistry(cfg, logger)
	if err != nil {
		fatal(logger, "registry", err)
	}

	var ids []string
	for _, id := range strings.Split(*only, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}

	report := reg.CheckIntegrity(ids...)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(report)

	if !report.OK {
		for _, p := range report.Problems() {
			fmt.Fprintln(os.Stderr, p)
		}
		os.Exit(1)
	}
}

func cmdMCP(args []string) {
	f := newFlags("mcp")
	f.fs.Parse(args)

	cfg := f.load()
	logger := cfg.logger()
	reg, err := newRegistry(cfg, logger)
	if err != nil {
		fatal(logger, "registry", err)
	}

	if err := server.ServeStdio(api.NewMCPServer(reg, logger)); err != nil {
		fatal(logger, "serve MCP", err)
	}
}

func cmdAsk(args []string) {
	f := newFlags("ask")
	addr := f.fs.String("addr", "localhost:8420", "server address (QUIC)")
	insecure := f.fs.Bool("insecure", true, "skip TLS certificate verification")
	f.fs.Parse(args)

	if f.fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Usage: framedex ask [-addr host:port] <character> <move>")
		os.Exit(1)
	}
	cfg := f.load()
	logger := cfg.logger()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	c := mcpquic.NewClient(*addr, mcpquic.ClientTLSConfig(*insecure))
	if err := c.Connect(ctx, "framedex-ask", version); err != nil {
		fatal(logger, "connect", err)
	}
	defer c.Close()

	res, err := c.CallTool(ctx, "frame_data", map[string]any{
		"character": f.fs.Arg(0),
		"move":      strings.Join(f.fs.Args()[1:], " "),
	})
	if err != nil {
		fatal(logger, "call frame_data", err)
	}
	for _, content := range res.Content {
		if text, ok := content.(mcp.TextContent); ok {
			fmt.Println(text.Text)
		}
	}
	if res.IsError {
		os.Exit(1)
	}
}
