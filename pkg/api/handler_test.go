package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hazyhaar/framedex/pkg/framedata"
	"github.com/hazyhaar/framedex/pkg/kit"
	"github.com/hazyhaar/framedex/pkg/notation"
	"github.com/mark3labs/mcp-go/mcp"
)

func setupRegistry(t *testing.T) (*framedata.Registry, string) {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"nicknames.json":      `[{"character": "Baiken", "nicknames": ["bai"]}, {"character": "Faust", "nicknames": ["doctor"]}]`,
		"Baiken/Baiken.json":  `[{"input": "6H", "name": "6H", "damage": 46, "startup": "12", "move_type": "normal"}, {"input": "214S~P/K", "name": "Kuchinashi follow-up", "move_type": "special"}]`,
		"Baiken/info.json":    `{"name": "Baiken", "defense": 1.06}`,
		"Baiken/aliases.json": `[{"input": "6H", "aliases": ["far kick"]}]`,
		"Baiken/images.json":  `{"default": "https://example.test/no_image.png", "moves": [{"input": "6H", "move_img": "https://example.test/6h.png"}]}`,
		// Faust is in the roster but its move file is truncated.
		"Faust/Faust.json":  `[{"input": "5P"}`,
		"Faust/info.json":   `{}`,
		"Faust/images.json": `{"default": "x.png"}`,
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		os.MkdirAll(filepath.Dir(path), 0o755)
		os.WriteFile(path, []byte(content), 0o644)
	}

	rules, err := notation.CompileRules(notation.DefaultRules())
	if err != nil {
		t.Fatalf("CompileRules: %v", err)
	}
	reg := framedata.NewRegistry(framedata.Config{
		DataDir:    dir,
		Normalizer: notation.New(rules),
		Logger:     quietLogger(),
	})
	if err := reg.LoadNicknames(); err != nil {
		t.Fatalf("LoadNicknames: %v", err)
	}
	return reg, dir
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupRouter(t *testing.T) (http.Handler, string) {
	t.Helper()
	reg, dir := setupRegistry(t)
	return NewRouter(reg, nil, quietLogger()), dir
}

func get(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandleLookup(t *testing.T) {
	router, _ := setupRouter(t)

	w := get(t, router, "/v1/frames/bai/6HS")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Character string `json:"character"`
		Move      struct {
			Input   string `json:"input"`
			Startup int    `json:"startup"`
			Key     string `json:"key"`
		} `json:"move"`
		Image    string   `json:"image"`
		Hitboxes []string `json:"hitboxes"`
	}
	json.NewDecoder(w.Body).Decode(&resp)

	if resp.Character != "Baiken" || resp.Move.Input != "6H" || resp.Move.Startup != 12 {
		t.Errorf("resp = %+v", resp)
	}
	if resp.Move.Key != "6h" {
		t.Errorf("key = %q, want 6h", resp.Move.Key)
	}
	if resp.Image != "https://example.test/6h.png" {
		t.Errorf("image = %q", resp.Image)
	}
	if len(resp.Hitboxes) != 1 || resp.Hitboxes[0] != "https://example.test/no_image.png" {
		t.Errorf("hitboxes = %v", resp.Hitboxes)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestHandleLookup_AliasAndSlash(t *testing.T) {
	router, _ := setupRouter(t)

	if w := get(t, router, "/v1/frames/bai/far%20kick"); w.Code != http.StatusOK {
		t.Errorf("alias lookup status = %d: %s", w.Code, w.Body.String())
	}
	if w := get(t, router, "/v1/frames/bai/214S~P/K"); w.Code != http.StatusOK {
		t.Errorf("slash lookup status = %d: %s", w.Code, w.Body.String())
	}
}

func TestHandleLookup_Errors(t *testing.T) {
	router, _ := setupRouter(t)
	tests := []struct {
		path string
		code int
	}{
		{"/v1/frames/nobody/6H", http.StatusNotFound},
		{"/v1/frames/bai/2D", http.StatusNotFound},
		{"/v1/frames/doctor/5P", http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		w := get(t, router, tt.path)
		if w.Code != tt.code {
			t.Errorf("GET %s = %d, want %d: %s", tt.path, w.Code, tt.code, w.Body.String())
		}
		var body map[string]string
		json.NewDecoder(w.Body).Decode(&body)
		if body["error"] == "" {
			t.Errorf("GET %s: missing error message", tt.path)
		}
	}
}

func TestHandleCharacters(t *testing.T) {
	router, _ := setupRouter(t)

	w := get(t, router, "/v1/characters")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp charactersResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if len(resp.Characters) != 2 || resp.Characters[0].ID != "Baiken" {
		t.Errorf("characters = %+v", resp.Characters)
	}

	w = get(t, router, "/v1/characters/BAI")
	if w.Code != http.StatusOK {
		t.Fatalf("character status = %d: %s", w.Code, w.Body.String())
	}
	var ch struct {
		ID    string             `json:"id"`
		Moves framedata.MoveList `json:"moves"`
	}
	json.NewDecoder(w.Body).Decode(&ch)
	if ch.ID != "Baiken" || len(ch.Moves.Normals) != 1 || len(ch.Moves.Specials) != 1 {
		t.Errorf("character = %+v", ch)
	}
}

func TestHandleNormalize(t *testing.T) {
	router, _ := setupRouter(t)

	w := get(t, router, "/v1/normalize?q=j.HS")
	var resp normalizeResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Key != "jh" {
		t.Errorf("key = %q, want jh", resp.Key)
	}

	if w := get(t, router, "/v1/normalize"); w.Code != http.StatusBadRequest {
		t.Errorf("missing q status = %d, want 400", w.Code)
	}
}

func TestHandleReload(t *testing.T) {
	router, dir := setupRouter(t)

	if w := get(t, router, "/v1/frames/bai/6H"); w.Code != http.StatusOK {
		t.Fatalf("warm-up status = %d", w.Code)
	}
	os.WriteFile(filepath.Join(dir, "Baiken", "aliases.json"), []byte(`[{"input": "6H", "aliases": ["kick"]}]`), 0o644)

	req := httptest.NewRequest("POST", "/v1/reload/bai", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("reload status = %d: %s", w.Code, w.Body.String())
	}
	var resp reloadResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if !resp.Reloaded || resp.Character != "Baiken" {
		t.Errorf("reload = %+v", resp)
	}
	if w := get(t, router, "/v1/frames/bai/kick"); w.Code != http.StatusOK {
		t.Errorf("new alias status = %d", w.Code)
	}

	if w := get(t, router, "/v1/reload"); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET reload = %d, want 405", w.Code)
	}
}

func TestHandleIntegrity(t *testing.T) {
	router, _ := setupRouter(t)

	w := get(t, router, "/v1/integrity")
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", w.Code)
	}
	w = get(t, router, "/v1/integrity?characters=Baiken")
	if w.Code != http.StatusOK {
		t.Errorf("Baiken only: status = %d, want 200: %s", w.Code, w.Body.String())
	}
}

func TestHandleHealth(t *testing.T) {
	router, _ := setupRouter(t)

	w := get(t, router, "/v1/health")
	var resp healthResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Status != "ok" || resp.Characters != 2 {
		t.Errorf("health = %+v", resp)
	}
}

func TestCORS(t *testing.T) {
	router, _ := setupRouter(t)

	req := httptest.NewRequest("OPTIONS", "/v1/characters", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Errorf("OPTIONS status = %d, want 204", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}
}

func TestMCPTools(t *testing.T) {
	reg, _ := setupRegistry(t)
	tools := mcpTools(newEndpoints(reg, quietLogger()))

	byName := make(map[string]mcpTool, len(tools))
	for _, tl := range tools {
		byName[tl.tool.Name] = tl
	}
	call := func(name string, args map[string]any) *mcp.CallToolResult {
		t.Helper()
		tl, ok := byName[name]
		if !ok {
			t.Fatalf("tool %s not registered", name)
		}
		res, err := kit.MCPToolHandler(tl.endpoint, tl.decode)(context.Background(), mcp.CallToolRequest{
			Params: mcp.CallToolParams{Name: name, Arguments: args},
		})
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		return res
	}

	res := call("frame_data", map[string]any{"character": "bai", "move": "far kick"})
	if res.IsError {
		t.Fatalf("frame_data error: %+v", res.Content)
	}
	if text := res.Content[0].(mcp.TextContent).Text; !strings.Contains(text, `"character":"Baiken"`) {
		t.Errorf("frame_data text = %s", text)
	}

	if res := call("frame_data", map[string]any{"character": "bai"}); !res.IsError {
		t.Error("missing move should be a tool error")
	}
	if res := call("frame_data", map[string]any{"character": "bai", "move": "2D"}); !res.IsError {
		t.Error("unknown move should be a tool error")
	}
	res = call("resolve_character", map[string]any{"nickname": "BAI"})
	if text := res.Content[0].(mcp.TextContent).Text; !strings.Contains(text, `"character":"Baiken"`) {
		t.Errorf("resolve_character text = %s", text)
	}
	if res := call("list_characters", nil); res.IsError {
		t.Error("list_characters failed")
	}
	if res := call("list_moves", map[string]any{"character": "bai"}); res.IsError {
		t.Error("list_moves failed")
	}
	res = call("normalize_notation", map[string]any{"text": "cr.K"})
	if text := res.Content[0].(mcp.TextContent).Text; !strings.Contains(text, `"key":"2k"`) {
		t.Errorf("normalize text = %s", text)
	}
	res = call("check_integrity", map[string]any{"characters": "Baiken, "})
	if text := res.Content[0].(mcp.TextContent).Text; !strings.Contains(text, `"ok":true`) {
		t.Errorf("check_integrity text = %s", text)
	}
}

func TestNewMCPServer(t *testing.T) {
	reg, _ := setupRegistry(t)
	if srv := NewMCPServer(reg, quietLogger()); srv == nil {
		t.Fatal("expected server")
	}
}
