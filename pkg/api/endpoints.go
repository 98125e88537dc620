package api

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/framedex/pkg/framedata"
	"github.com/hazyhaar/framedex/pkg/kit"
)

// Shared request/response types used by both HTTP and MCP transports.

type lookupReq struct {
	Character string
	Move      string
}

type characterReq struct {
	Character string
}

type resolveReq struct {
	Nickname string
}

type normalizeReq struct {
	Text string
}

type reloadReq struct {
	Character string
}

type integrityReq struct {
	Characters []string
}

type charactersResponse struct {
	Characters []framedata.CharacterSummary `json:"characters"`
}

type characterResponse struct {
	ID    string                  `json:"id"`
	Info  framedata.CharacterInfo `json:"info"`
	Moves *framedata.MoveList     `json:"moves"`
}

type resolveResponse struct {
	Nickname  string `json:"nickname"`
	Character string `json:"character"`
}

type normalizeResponse struct {
	Input string `json:"input"`
	Key   string `json:"key"`
}

type reloadResponse struct {
	Character string `json:"character,omitempty"`
	Reloaded  bool   `json:"reloaded"`
}

// endpoints holds every kit.Endpoint backed by the registry.
type endpoints struct {
	lookup     kit.Endpoint
	resolve    kit.Endpoint
	characters kit.Endpoint
	character  kit.Endpoint
	normalize  kit.Endpoint
	reload     kit.Endpoint
	integrity  kit.Endpoint
}

func newEndpoints(reg *framedata.Registry, logger *slog.Logger) *endpoints {
	wrap := func(name string, ep kit.Endpoint) kit.Endpoint {
		return kit.Logging(logger, name)(ep)
	}
	return &endpoints{
		lookup:     wrap("lookup", lookupEndpoint(reg)),
		resolve:    wrap("resolve", resolveEndpoint(reg)),
		characters: wrap("characters", charactersEndpoint(reg)),
		character:  wrap("character", characterEndpoint(reg)),
		normalize:  wrap("normalize", normalizeEndpoint(reg)),
		reload:     wrap("reload", reloadEndpoint(reg)),
		integrity:  wrap("integrity", integrityEndpoint(reg)),
	}
}

func lookupEndpoint(reg *framedata.Registry) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*lookupReq)
		if req.Character == "" || req.Move == "" {
			return nil, errBadRequest("character and move are required")
		}
		return reg.Lookup(req.Character, req.Move)
	}
}

func resolveEndpoint(reg *framedata.Registry) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*resolveReq)
		id, err := reg.ResolveCharacter(req.Nickname)
		if err != nil {
			return nil, err
		}
		return resolveResponse{Nickname: req.Nickname, Character: id}, nil
	}
}

func charactersEndpoint(reg *framedata.Registry) kit.Endpoint {
	return func(_ context.Context, _ any) (any, error) {
		return charactersResponse{Characters: reg.Characters()}, nil
	}
}

func characterEndpoint(reg *framedata.Registry) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*characterReq)
		id, err := reg.ResolveCharacter(req.Character)
		if err != nil {
			return nil, err
		}
		c, err := reg.Character(id)
		if err != nil {
			return nil, err
		}
		return characterResponse{ID: c.ID, Info: c.Info, Moves: c.MoveList()}, nil
	}
}

func normalizeEndpoint(reg *framedata.Registry) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*normalizeReq)
		return normalizeResponse{Input: req.Text, Key: reg.Normalizer().Normalize(req.Text)}, nil
	}
}

// reloadEndpoint reloads one character when it changed on disk, or
// everything when no character is named.
func reloadEndpoint(reg *framedata.Registry) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*reloadReq)
		if req.Character == "" {
			if err := reg.Reload(); err != nil {
				return nil, err
			}
			return reloadResponse{Reloaded: true}, nil
		}
		id, err := reg.ResolveCharacter(req.Character)
		if err != nil {
			return nil, err
		}
		reloaded, err := reg.ReloadIfChanged(id)
		if err != nil {
			return nil, err
		}
		return reloadResponse{Character: id, Reloaded: reloaded}, nil
	}
}

func integrityEndpoint(reg *framedata.Registry) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		var ids []string
		if req, ok := request.(*integrityReq); ok && req != nil {
			ids = req.Characters
		}
		return reg.CheckIntegrity(ids...), nil
	}
}

// badRequestError marks caller mistakes that are not lookup failures.
type badRequestError struct{ msg string }

func (e *badRequestError) Error() string { return e.msg }

func errBadRequest(format string, args ...any) error {
	return &badRequestError{msg: fmt.Sprintf(format, args...)}
}
