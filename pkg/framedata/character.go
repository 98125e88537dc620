package framedata

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/framedex/pkg/notation"
)

// Move is a stored move: its frame data plus the keys the resolver matches on.
// Values handed out by a Character are shared and must not be modified.
type Move struct {
	MoveInfo
	Key       string   `json:"key"`
	Aliases   []string `json:"aliases,omitempty"`
	AliasKeys []string `json:"-"`
}

// Character is one loaded character: an immutable snapshot built from that
// character's folder. A reload builds a new Character; it never mutates one.
type Character struct {
	ID       string
	Info     CharacterInfo
	Moves    []Move
	LoadedAt time.Time

	byName  map[string]int
	byAlias map[string]int
	images  imageSet
	sources []sourceFile
}

// buildCharacter indexes moves and aliases and enforces the per-character
// uniqueness invariants. moves are kept in file order.
func buildCharacter(id string, info CharacterInfo, moves []MoveInfo, groups []AliasGroup,
	n *notation.Normalizer, logger *slog.Logger) (*Character, error) {

	c := &Character{
		ID:      id,
		Info:    info,
		Moves:   make([]Move, len(moves)),
		byName:  make(map[string]int, len(moves)),
		byAlias: make(map[string]int),
	}

	for i, mi := range moves {
		key := n.Normalize(string(mi.Input))
		if key == "" {
			return nil, &DataIntegrityError{Character: id, Reason: fmt.Sprintf("move %q normalizes to an empty key", mi.Input)}
		}
		if prev, dup := c.byName[key]; dup {
			return nil, &DataIntegrityError{Character: id, Reason: fmt.Sprintf(
				"moves %q and %q share the key %q", moves[prev].Input, mi.Input, key)}
		}
		c.byName[key] = i
		c.Moves[i] = Move{MoveInfo: mi, Key: key}
	}

	for _, g := range groups {
		idx, ok := c.byName[n.Normalize(g.Input)]
		if !ok {
			return nil, &DataIntegrityError{Character: id, Reason: fmt.Sprintf("aliases reference unknown move %q", g.Input)}
		}
		m := &c.Moves[idx]
		for _, alias := range g.Aliases {
			key := n.Normalize(alias)
			if key == "" || key == m.Key {
				continue
			}
			if owner, claimed := c.byAlias[key]; claimed {
				if owner == idx {
					continue
				}
				return nil, &DataIntegrityError{Character: id, Reason: fmt.Sprintf(
					"alias %q claimed by both %q and %q", alias, c.Moves[owner].Input, m.Input)}
			}
			m.Aliases = append(m.Aliases, alias)
			m.AliasKeys = append(m.AliasKeys, key)
			if other, isName := c.byName[key]; isName {
				// The canonical pass always wins; the alias stays unreachable.
				logger.Warn("alias shadowed by canonical name",
					"character", id, "alias", alias, "move", m.Input, "canonical", c.Moves[other].Input)
				continue
			}
			c.byAlias[key] = idx
		}
	}

	c.indexDisplayNames(n, logger)
	return c, nil
}

// indexDisplayNames adds each move's display name as an implicit last alias.
// Names that hit a canonical key or an explicit alias of another move are
// skipped, as are names shared by two moves; none of these fail the load.
func (c *Character) indexDisplayNames(n *notation.Normalizer, logger *slog.Logger) {
	implicit := make(map[string]int)
	ambiguous := make(map[string]bool)
	for i := range c.Moves {
		m := &c.Moves[i]
		key := n.Normalize(string(m.Name))
		if key == "" || key == m.Key || ambiguous[key] {
			continue
		}
		if owner, ok := implicit[key]; ok {
			if owner != i {
				logger.Debug("display name shared by two moves",
					"character", c.ID, "name", m.Name, "moves", []string{string(c.Moves[owner].Input), string(m.Input)})
				delete(c.byAlias, key)
				delete(implicit, key)
				ambiguous[key] = true
			}
			continue
		}
		if _, isName := c.byName[key]; isName {
			continue
		}
		if owner, claimed := c.byAlias[key]; claimed {
			if owner != i {
				logger.Debug("display name shadowed by alias", "character", c.ID, "name", m.Name, "move", m.Input)
			}
			continue
		}
		c.byAlias[key] = i
		implicit[key] = i
	}
}

// FindMove resolves an already-normalized key. Canonical names are searched
// before aliases, so an alias can never shadow a canonical name.
func (c *Character) FindMove(key string) (*Move, bool) {
	if i, ok := c.byName[key]; ok {
		return &c.Moves[i], true
	}
	if i, ok := c.byAlias[key]; ok {
		return &c.Moves[i], true
	}
	return nil, false
}

// ImageFor returns the move image URL, or the character's default image.
func (c *Character) ImageFor(m *Move) string {
	if link, ok := c.images.moves[m.Key]; ok && link.move != "" {
		return link.move
	}
	return c.images.defaultImage
}

// HitboxesFor returns the hitbox image URLs, or the default hitbox image.
func (c *Character) HitboxesFor(m *Move) []string {
	if link, ok := c.images.moves[m.Key]; ok && len(link.hitboxes) > 0 {
		return link.hitboxes
	}
	return []string{c.images.defaultHitbox}
}

// DefaultImage returns the character's fallback move image.
func (c *Character) DefaultImage() string {
	return c.images.defaultImage
}

// AliasCount returns the number of reachable aliases.
func (c *Character) AliasCount() int {
	return len(c.byAlias)
}

// MoveSummary is the short form of a move used in listings.
type MoveSummary struct {
	Input   string   `json:"input"`
	Name    string   `json:"name"`
	Aliases []string `json:"aliases,omitempty"`
}

// MoveList groups a character's moves by category, in file order.
type MoveList struct {
	Character string        `json:"character"`
	Normals   []MoveSummary `json:"normals"`
	Specials  []MoveSummary `json:"specials"`
	Supers    []MoveSummary `json:"supers"`
	Others    []MoveSummary `json:"others"`
}

// MoveList returns the character's moves grouped by category.
func (c *Character) MoveList() *MoveList {
	ml := &MoveList{
		Character: c.ID,
		Normals:   []MoveSummary{},
		Specials:  []MoveSummary{},
		Supers:    []MoveSummary{},
		Others:    []MoveSummary{},
	}
	for i := range c.Moves {
		m := &c.Moves[i]
		s := MoveSummary{Input: string(m.Input), Name: string(m.Name), Aliases: m.Aliases}
		switch m.Category() {
		case CategoryNormal:
			ml.Normals = append(ml.Normals, s)
		case CategorySpecial:
			ml.Specials = append(ml.Specials, s)
		case CategorySuper:
			ml.Supers = append(ml.Supers, s)
		default:
			ml.Others = append(ml.Others, s)
		}
	}
	return ml
}
