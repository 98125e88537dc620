package api

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/hazyhaar/framedex/pkg/framedata"
	"github.com/hazyhaar/framedex/pkg/kit"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	serverName    = "framedex"
	serverVersion = "0.1.0"
)

// NewMCPServer returns an MCP server with every frame data tool registered.
func NewMCPServer(reg *framedata.Registry, logger *slog.Logger) *server.MCPServer {
	srv := server.NewMCPServer(serverName, serverVersion, server.WithToolCapabilities(false))
	RegisterMCPTools(srv, reg, logger)
	return srv
}

// RegisterMCPTools registers the frame data MCP tools on the server.
func RegisterMCPTools(srv *server.MCPServer, reg *framedata.Registry, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	eps := newEndpoints(reg, logger)
	for _, t := range mcpTools(eps) {
		kit.RegisterMCPTool(srv, t.tool, t.endpoint, t.decode)
	}
}

type mcpTool struct {
	tool     mcp.Tool
	endpoint kit.Endpoint
	decode   kit.MCPDecoder
}

func mcpTools(eps *endpoints) []mcpTool {
	return []mcpTool{
		{
			tool: mcp.NewTool("frame_data",
				mcp.WithDescription("Look up the frame data, image and hitboxes of one move. Accepts character nicknames and loose move notation (e.g. \"j.HS\", \"cr.K\", \"tatami\")."),
				mcp.WithString("character", mcp.Required(), mcp.Description("Character name or nickname")),
				mcp.WithString("move", mcp.Required(), mcp.Description("Move input, name alias or notation")),
			),
			endpoint: eps.lookup,
			decode: func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
				args := req.GetArguments()
				character, err := requiredString(args, "character")
				if err != nil {
					return nil, err
				}
				move, err := requiredString(args, "move")
				if err != nil {
					return nil, err
				}
				return &kit.MCPDecodeResult{Request: &lookupReq{Character: character, Move: move}}, nil
			},
		},
		{
			tool: mcp.NewTool("resolve_character",
				mcp.WithDescription("Resolve a character nickname (any case or width, e.g. \"bai\", \"ソル\") to its canonical id."),
				mcp.WithString("nickname", mcp.Required(), mcp.Description("Character nickname")),
			),
			endpoint: eps.resolve,
			decode: func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
				nickname, err := requiredString(req.GetArguments(), "nickname")
				if err != nil {
					return nil, err
				}
				return &kit.MCPDecodeResult{Request: &resolveReq{Nickname: nickname}}, nil
			},
		},
		{
			tool: mcp.NewTool("list_moves",
				mcp.WithDescription("List a character's moves grouped into normals, specials, supers and others, with their aliases."),
				mcp.WithString("character", mcp.Required(), mcp.Description("Character name or nickname")),
			),
			endpoint: eps.character,
			decode: func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
				character, err := requiredString(req.GetArguments(), "character")
				if err != nil {
					return nil, err
				}
				return &kit.MCPDecodeResult{Request: &characterReq{Character: character}}, nil
			},
		},
		{
			tool: mcp.NewTool("list_characters",
				mcp.WithDescription("List every character in the roster with its nicknames."),
			),
			endpoint: eps.characters,
			decode: func(_ mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
				return &kit.MCPDecodeResult{Request: nil}, nil
			},
		},
		{
			tool: mcp.NewTool("normalize_notation",
				mcp.WithDescription("Show the canonical key a move query normalizes to."),
				mcp.WithString("text", mcp.Required(), mcp.Description("Move notation to normalize")),
			),
			endpoint: eps.normalize,
			decode: func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
				text, err := requiredString(req.GetArguments(), "text")
				if err != nil {
					return nil, err
				}
				return &kit.MCPDecodeResult{Request: &normalizeReq{Text: text}}, nil
			},
		},
		{
			tool: mcp.NewTool("check_integrity",
				mcp.WithDescription("Verify the data directory: nickname file, character folders and every character file."),
				mcp.WithString("characters", mcp.Description("Comma-separated character ids to check (default: whole roster)")),
			),
			endpoint: eps.integrity,
			decode: func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
				r := &integrityReq{}
				if v, _ := req.GetArguments()["characters"].(string); v != "" {
					for _, id := range strings.Split(v, ",") {
						if id = strings.TrimSpace(id); id != "" {
							r.Characters = append(r.Characters, id)
						}
					}
				}
				return &kit.MCPDecodeResult{Request: r}, nil
			},
		},
	}
}

func requiredString(args map[string]any, key string) (string, error) {
	v, _ := args[key].(string)
	if strings.TrimSpace(v) == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return v, nil
}
