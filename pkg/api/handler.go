package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hazyhaar/framedex/pkg/framedata"
	"github.com/hazyhaar/framedex/pkg/kit"
	"github.com/mark3labs/mcp-go/server"
)

// NewRouter returns an http.Handler with all frame data API routes. When
// mcpSrv is non-nil it is also served over streamable HTTP at /mcp.
func NewRouter(reg *framedata.Registry, mcpSrv *server.MCPServer, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()
	h := &handler{eps: newEndpoints(reg, logger), reg: reg}

	mux.HandleFunc("GET /v1/characters", h.handleCharacters)
	mux.HandleFunc("GET /v1/characters/{character}", h.handleCharacter)
	mux.HandleFunc("GET /v1/frames/{character}/{move...}", h.handleLookup)
	mux.HandleFunc("GET /v1/normalize", h.handleNormalize)
	mux.HandleFunc("GET /v1/integrity", h.handleIntegrity)
	mux.HandleFunc("GET /v1/reload", methodNotAllowed)
	mux.HandleFunc("POST /v1/reload", h.handleReload)
	mux.HandleFunc("POST /v1/reload/{character}", h.handleReload)
	mux.HandleFunc("GET /v1/health", h.handleHealth)

	if mcpSrv != nil {
		mux.Handle("/mcp", server.NewStreamableHTTPServer(mcpSrv))
	}

	return kit.HTTPContext(cors(mux))
}

type handler struct {
	eps *endpoints
	reg *framedata.Registry
}

// --- frame data lookup ---

func (h *handler) handleLookup(w http.ResponseWriter, r *http.Request) {
	resp, err := h.eps.lookup(r.Context(), &lookupReq{
		Character: r.PathValue("character"),
		Move:      r.PathValue("move"),
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- characters ---

func (h *handler) handleCharacters(w http.ResponseWriter, r *http.Request) {
	resp, err := h.eps.characters(r.Context(), nil)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) handleCharacter(w http.ResponseWriter, r *http.Request) {
	resp, err := h.eps.character(r.Context(), &characterReq{Character: r.PathValue("character")})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- normalize ---

func (h *handler) handleNormalize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, "missing q")
		return
	}
	resp, err := h.eps.normalize(r.Context(), &normalizeReq{Text: q})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- reload / integrity ---

func (h *handler) handleReload(w http.ResponseWriter, r *http.Request) {
	resp, err := h.eps.reload(r.Context(), &reloadReq{Character: r.PathValue("character")})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) handleIntegrity(w http.ResponseWriter, r *http.Request) {
	req := &integrityReq{}
	if v := r.URL.Query().Get("characters"); v != "" {
		req.Characters = strings.Split(v, ",")
	}
	resp, err := h.eps.integrity(r.Context(), req)
	if err != nil {
		writeErr(w, err)
		return
	}
	report := resp.(*framedata.IntegrityReport)
	code := http.StatusOK
	if !report.OK {
		code = http.StatusUnprocessableEntity
	}
	writeJSON(w, code, report)
}

// --- health ---

type healthResponse struct {
	Status string `json:"status"`
	framedata.Stats
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats := h.reg.Stats()
	status := "ok"
	if stats.Characters == 0 {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: status, Stats: stats})
}

// --- helpers ---

// statusFor maps lookup and data errors onto HTTP status codes.
func statusFor(err error) int {
	var bad *badRequestError
	switch {
	case errors.As(err, &bad):
		return http.StatusBadRequest
	case errors.Is(err, framedata.ErrCharacterNotFound), errors.Is(err, framedata.ErrMoveNotFound):
		return http.StatusNotFound
	case errors.Is(err, framedata.ErrDataParse), errors.Is(err, framedata.ErrDataIntegrity):
		return http.StatusUnprocessableEntity
	case errors.Is(err, framedata.ErrDataNotFound):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeErr(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// cors is a simple CORS middleware for browser-based clients.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
