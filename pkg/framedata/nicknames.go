package framedata

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/hazyhaar/framedex/pkg/notation"
)

// NicknameTable maps folded nicknames to canonical character ids.
// It is immutable once built.
type NicknameTable struct {
	index  map[string]string
	roster []NicknameEntry
}

// nicknameKey folds a nickname for lookup. Nicknames are not move notation,
// so only whitespace and case folding apply.
func nicknameKey(s string) string {
	return notation.FoldSpace(s)
}

// BuildNicknameTable indexes entries. Every character id is also its own
// nickname, with underscores read as spaces ("Sol_Badguy" answers to
// "sol badguy"). A nickname claimed by two characters is an integrity error.
func BuildNicknameTable(entries []NicknameEntry) (*NicknameTable, error) {
	t := &NicknameTable{
		index:  make(map[string]string),
		roster: make([]NicknameEntry, 0, len(entries)),
	}
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		id := strings.TrimSpace(e.Character)
		if !validID(id) {
			return nil, &DataIntegrityError{Reason: fmt.Sprintf("nicknames: invalid character id %q", e.Character)}
		}
		if seen[id] {
			return nil, &DataIntegrityError{Character: id, Reason: "nicknames: character listed twice"}
		}
		seen[id] = true

		names := []string{id, strings.ReplaceAll(id, "_", " ")}
		names = append(names, e.Nicknames...)
		kept := make([]string, 0, len(e.Nicknames))
		for i, name := range names {
			key := nicknameKey(name)
			if key == "" {
				continue
			}
			if owner, ok := t.index[key]; ok {
				if owner == id {
					continue
				}
				return nil, &DataIntegrityError{Character: id, Reason: fmt.Sprintf(
					"nickname %q already belongs to %s", name, owner)}
			}
			t.index[key] = id
			if i >= 2 {
				kept = append(kept, name)
			}
		}
		t.roster = append(t.roster, NicknameEntry{Character: id, Nicknames: kept})
	}
	return t, nil
}

// LoadNicknameTable reads a nicknames file. Two layouts are accepted: a list
// of {"character", "nicknames"} objects, or a flat {"nickname": "ID"} object.
func LoadNicknameTable(path string) (*NicknameTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &DataNotFoundError{Kind: ResourceNicknameJSON, Path: path}
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var flat map[string]string
		if err := decode(path, trimmed, &flat); err != nil {
			return nil, err
		}
		return BuildNicknameTable(groupFlat(flat))
	}

	var entries []NicknameEntry
	if err := decode(path, trimmed, &entries); err != nil {
		return nil, err
	}
	return BuildNicknameTable(entries)
}

// groupFlat turns a nickname -> id object into entries sorted by id.
func groupFlat(flat map[string]string) []NicknameEntry {
	byID := make(map[string][]string)
	for nick, id := range flat {
		byID[id] = append(byID[id], nick)
	}
	entries := make([]NicknameEntry, 0, len(byID))
	for id, nicks := range byID {
		sort.Strings(nicks)
		entries = append(entries, NicknameEntry{Character: id, Nicknames: nicks})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Character < entries[j].Character })
	return entries
}

// Resolve maps a nickname to its canonical character id.
func (t *NicknameTable) Resolve(nickname string) (string, error) {
	if id, ok := t.index[nicknameKey(nickname)]; ok {
		return id, nil
	}
	return "", &CharacterNotFoundError{Nickname: nickname}
}

// Has reports whether id is a known canonical character id.
func (t *NicknameTable) Has(id string) bool {
	for _, e := range t.roster {
		if e.Character == id {
			return true
		}
	}
	return false
}

// IDs returns the canonical ids in file order.
func (t *NicknameTable) IDs() []string {
	ids := make([]string, len(t.roster))
	for i, e := range t.roster {
		ids[i] = e.Character
	}
	return ids
}

// Roster returns the entries in file order, with explicit nicknames only.
func (t *NicknameTable) Roster() []NicknameEntry {
	return t.roster
}

// Len returns the number of indexed nicknames, implicit ones included.
func (t *NicknameTable) Len() int {
	return len(t.index)
}
