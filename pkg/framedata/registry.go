// Package framedata loads per-character frame data from a data directory and
// resolves nicknames and free-text move queries against it.
//
// Each character is an immutable snapshot published atomically by a Store.
// Lookups read the current snapshot without locking; reloads build a fresh
// snapshot and swap it in.
package framedata

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/hazyhaar/framedex/pkg/notation"
)

// Config configures a Registry.
type Config struct {
	DataDir      string
	Normalizer   *notation.Normalizer
	ImageBaseURL string
	// DefaultImage is returned by ImageFor when the character cannot be loaded.
	DefaultImage string
	Logger       *slog.Logger
}

// Registry ties together the nickname table, the character store and the
// normalizer. It is safe for concurrent use.
type Registry struct {
	loader *Loader
	store  *Store
	nicks  atomic.Pointer[NicknameTable]
	logger *slog.Logger

	defaultImage string
}

// NewRegistry returns a registry with nothing loaded yet.
func NewRegistry(cfg Config) *Registry {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	loader := NewLoader(LoaderConfig{
		Root:         cfg.DataDir,
		Normalizer:   cfg.Normalizer,
		ImageBaseURL: cfg.ImageBaseURL,
		DefaultImage: cfg.DefaultImage,
		Logger:       cfg.Logger,
	})
	return &Registry{
		loader:       loader,
		store:        NewStore(loader, cfg.Logger),
		logger:       cfg.Logger,
		defaultImage: ExpandImage(loader.imageBase, cfg.DefaultImage),
	}
}

// Loader exposes the registry's loader.
func (r *Registry) Loader() *Loader { return r.loader }

// Normalizer returns the normalizer used for move keys.
func (r *Registry) Normalizer() *notation.Normalizer { return r.loader.norm }

// LoadNicknames (re)reads nicknames.json and swaps the table in.
// On failure the previous table stays active.
func (r *Registry) LoadNicknames() error {
	t, err := LoadNicknameTable(filepath.Join(r.loader.root, NicknamesFile))
	if err != nil {
		return err
	}
	r.nicks.Store(t)
	r.logger.Info("nicknames loaded", "characters", len(t.roster), "nicknames", t.Len())
	return nil
}

// Nicknames returns the active nickname table, or nil before LoadNicknames.
func (r *Registry) Nicknames() *NicknameTable {
	return r.nicks.Load()
}

func (r *Registry) table() (*NicknameTable, error) {
	t := r.nicks.Load()
	if t == nil {
		return nil, &DataNotFoundError{Kind: ResourceNicknameJSON, Path: filepath.Join(r.loader.root, NicknamesFile)}
	}
	return t, nil
}

// ResolveCharacter maps a user-supplied nickname to a canonical id.
func (r *Registry) ResolveCharacter(nickname string) (string, error) {
	t, err := r.table()
	if err != nil {
		return "", err
	}
	return t.Resolve(nickname)
}

// Character returns the snapshot of id, loading it on first use. Ids outside
// the roster are reported as CharacterNotFound.
func (r *Registry) Character(id string) (*Character, error) {
	if err := r.checkRoster(id); err != nil {
		return nil, err
	}
	return r.store.Get(id)
}

// LoadCharacter rebuilds id from disk and publishes it.
func (r *Registry) LoadCharacter(id string) (*Character, error) {
	if err := r.checkRoster(id); err != nil {
		return nil, err
	}
	return r.store.Reload(id)
}

func (r *Registry) checkRoster(id string) error {
	t, err := r.table()
	if err != nil {
		return err
	}
	if !t.Has(id) {
		return &CharacterNotFoundError{Nickname: id}
	}
	return nil
}

// Preload loads every character in the roster. Failures are isolated: each
// one is logged and joined into the returned error while the others load.
func (r *Registry) Preload() error {
	t, err := r.table()
	if err != nil {
		return err
	}
	var errs []error
	for _, id := range t.IDs() {
		if _, err := r.store.Reload(id); err != nil {
			errs = append(errs, err)
		}
	}
	r.logger.Info("preload complete", "loaded", r.store.Len(), "failed", len(errs))
	return errors.Join(errs...)
}

// ResolveMove finds the move query names for character id: canonical names
// first, then aliases.
func (r *Registry) ResolveMove(id, query string) (*Move, error) {
	c, err := r.Character(id)
	if err != nil {
		return nil, err
	}
	if m, ok := c.FindMove(r.loader.norm.Normalize(query)); ok {
		return m, nil
	}
	return nil, &MoveNotFoundError{Character: id, Query: query}
}

// ImageFor returns the image URL for m. It never fails: if id cannot be
// loaded the configured default image is returned.
func (r *Registry) ImageFor(id string, m *Move) string {
	c, err := r.Character(id)
	if err != nil {
		return r.defaultImage
	}
	return c.ImageFor(m)
}

// HitboxesFor returns the hitbox image URLs for m, falling back like ImageFor.
func (r *Registry) HitboxesFor(id string, m *Move) []string {
	c, err := r.Character(id)
	if err != nil {
		return []string{r.defaultImage}
	}
	return c.HitboxesFor(m)
}

// Resolved is the result of a full nickname + move lookup.
type Resolved struct {
	Character string        `json:"character"`
	Info      CharacterInfo `json:"-"`
	Move      *Move         `json:"move"`
	Image     string        `json:"image"`
	Hitboxes  []string      `json:"hitboxes"`
}

// Lookup resolves a nickname and a move query in one call. Image links come
// from the same snapshot as the move.
func (r *Registry) Lookup(nickname, query string) (*Resolved, error) {
	id, err := r.ResolveCharacter(nickname)
	if err != nil {
		return nil, err
	}
	c, err := r.store.Get(id)
	if err != nil {
		return nil, err
	}
	m, ok := c.FindMove(r.loader.norm.Normalize(query))
	if !ok {
		return nil, &MoveNotFoundError{Character: id, Query: query}
	}
	return &Resolved{
		Character: id,
		Info:      c.Info,
		Move:      m,
		Image:     c.ImageFor(m),
		Hitboxes:  c.HitboxesFor(m),
	}, nil
}

// MoveList returns the grouped move listing of the character nickname names.
func (r *Registry) MoveList(nickname string) (*MoveList, error) {
	id, err := r.ResolveCharacter(nickname)
	if err != nil {
		return nil, err
	}
	c, err := r.store.Get(id)
	if err != nil {
		return nil, err
	}
	return c.MoveList(), nil
}

// ContentChanged reports whether id's files differ from its snapshot.
func (r *Registry) ContentChanged(id string) (bool, error) {
	if err := r.checkRoster(id); err != nil {
		return false, err
	}
	return r.store.ContentChanged(id)
}

// ReloadIfChanged reloads id when its files changed since the last load.
func (r *Registry) ReloadIfChanged(id string) (bool, error) {
	if err := r.checkRoster(id); err != nil {
		return false, err
	}
	return r.store.ReloadIfChanged(id)
}

// Reload re-reads the nicknames file, then reloads every cached character
// whose files changed. Characters dropped from the roster are evicted.
func (r *Registry) Reload() error {
	if err := r.LoadNicknames(); err != nil {
		return fmt.Errorf("reload nicknames: %w", err)
	}
	t := r.nicks.Load()
	var errs []error
	reloaded := 0
	for _, id := range r.store.IDs() {
		if !t.Has(id) {
			r.store.Evict(id)
			continue
		}
		changed, err := r.store.ReloadIfChanged(id)
		if err != nil {
			errs = append(errs, err)
		}
		if changed {
			reloaded++
		}
	}
	r.logger.Info("reload complete", "reloaded", reloaded, "failed", len(errs))
	return errors.Join(errs...)
}

// CheckIntegrity runs the data check over ids, or the whole roster.
func (r *Registry) CheckIntegrity(ids ...string) *IntegrityReport {
	return r.loader.CheckIntegrity(ids...)
}

// CharacterSummary describes one roster entry.
type CharacterSummary struct {
	ID        string   `json:"id"`
	Name      string   `json:"name,omitempty"`
	Nicknames []string `json:"nicknames"`
	Loaded    bool     `json:"loaded"`
	Moves     int      `json:"moves,omitempty"`
}

// Characters lists the roster in nickname-file order.
func (r *Registry) Characters() []CharacterSummary {
	t := r.nicks.Load()
	if t == nil {
		return []CharacterSummary{}
	}
	out := make([]CharacterSummary, 0, len(t.roster))
	for _, e := range t.roster {
		s := CharacterSummary{ID: e.Character, Nicknames: e.Nicknames}
		if s.Nicknames == nil {
			s.Nicknames = []string{}
		}
		if c, ok := r.store.Cached(e.Character); ok {
			s.Loaded = true
			s.Name = string(c.Info.Name)
			s.Moves = len(c.Moves)
		}
		out = append(out, s)
	}
	return out
}

// Stats reports cache occupancy.
type Stats struct {
	Characters int `json:"characters"`
	Loaded     int `json:"loaded"`
	Failed     int `json:"failed"`
	Nicknames  int `json:"nicknames"`
	Rules      int `json:"rules"`
}

// Stats returns current cache occupancy.
func (r *Registry) Stats() Stats {
	s := Stats{Loaded: r.store.Len(), Failed: r.store.Failed()}
	if t := r.nicks.Load(); t != nil {
		s.Characters = len(t.roster)
		s.Nicknames = t.Len()
	}
	if rules := r.loader.norm.Rules(); rules != nil {
		s.Rules = rules.Len()
	}
	return s
}
