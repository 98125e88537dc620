package framedata

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ResourceStatus is the check result for one file or folder.
type ResourceStatus struct {
	Kind    ResourceKind `json:"kind"`
	Path    string       `json:"path"`
	Present bool         `json:"present"`
	Valid   bool         `json:"valid"`
	Error   string       `json:"error,omitempty"`
}

// CharacterIntegrity is the check result for one character.
type CharacterIntegrity struct {
	Character string           `json:"character"`
	Resources []ResourceStatus `json:"resources"`
	Loadable  bool             `json:"loadable"`
	Error     string           `json:"error,omitempty"`
}

// IntegrityReport is the result of a full data check.
type IntegrityReport struct {
	DataDir    string               `json:"data_dir"`
	Nicknames  ResourceStatus       `json:"nicknames"`
	Characters []CharacterIntegrity `json:"characters"`
	OK         bool                 `json:"ok"`
}

// Problems returns one line per failing check.
func (r *IntegrityReport) Problems() []string {
	var out []string
	if !r.Nicknames.Valid {
		out = append(out, string(r.Nicknames.Kind)+": "+r.Nicknames.Error)
	}
	for _, c := range r.Characters {
		if !c.Loadable {
			out = append(out, c.Character+": "+c.Error)
		}
	}
	return out
}

// checkFile reports presence and JSON well-formedness of path.
func checkFile(kind ResourceKind, path string) ResourceStatus {
	st := ResourceStatus{Kind: kind, Path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			st.Error = "missing"
			if optional(kind) {
				st.Valid = true
				st.Error = ""
			}
			return st
		}
		st.Error = err.Error()
		return st
	}
	st.Present = true
	if !json.Valid(data) {
		st.Error = "malformed JSON"
		return st
	}
	st.Valid = true
	return st
}

// CheckCharacter verifies the folder and files of id and then performs a
// full load, without publishing, to catch schema and uniqueness violations.
func (l *Loader) CheckCharacter(id string) CharacterIntegrity {
	ci := CharacterIntegrity{Character: id}

	dir := l.CharacterDir(id)
	folder := ResourceStatus{Kind: ResourceFolder, Path: dir}
	if st, err := os.Stat(dir); err == nil && st.IsDir() && validID(id) {
		folder.Present, folder.Valid = true, true
	} else {
		folder.Error = "missing"
	}
	ci.Resources = append(ci.Resources, folder)
	if !folder.Valid {
		ci.Error = (&DataNotFoundError{Character: id, Kind: ResourceFolder, Path: dir}).Error()
		return ci
	}

	for _, src := range l.resourcePaths(id) {
		ci.Resources = append(ci.Resources, checkFile(src.kind, src.path))
	}

	if _, err := l.Load(id); err != nil {
		ci.Error = err.Error()
		return ci
	}
	ci.Loadable = true
	return ci
}

// CheckIntegrity checks the nicknames file and every character in ids.
// With no ids, the roster from the nicknames file is used, falling back to
// the folders found under the data directory.
func (l *Loader) CheckIntegrity(ids ...string) *IntegrityReport {
	report := &IntegrityReport{DataDir: l.root, OK: true}

	nickPath := filepath.Join(l.root, NicknamesFile)
	report.Nicknames = checkFile(ResourceNicknameJSON, nickPath)
	if report.Nicknames.Valid {
		table, err := LoadNicknameTable(nickPath)
		if err != nil {
			report.Nicknames.Valid = false
			report.Nicknames.Error = err.Error()
		} else if len(ids) == 0 {
			ids = table.IDs()
		}
	}
	if !report.Nicknames.Valid {
		report.OK = false
	}
	if len(ids) == 0 {
		ids = l.scanFolders()
	}

	for _, id := range ids {
		ci := l.CheckCharacter(id)
		if !ci.Loadable {
			report.OK = false
		}
		report.Characters = append(report.Characters, ci)
	}
	return report
}

// scanFolders lists the subdirectories of the data directory.
func (l *Loader) scanFolders() []string {
	entries, err := os.ReadDir(l.root)
	if err != nil {
		return nil
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids
}
