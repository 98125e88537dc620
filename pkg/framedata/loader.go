package framedata

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/hazyhaar/framedex/pkg/notation"
)

// File names inside a character folder. The move file is named after the
// character: <root>/<ID>/<ID>.json.
const (
	NicknamesFile = "nicknames.json"
	InfoFile      = "info.json"
	AliasesFile   = "aliases.json"
	ImagesFile    = "images.json"
)

// sourceFile records the content hash of one file a snapshot was built from.
type sourceFile struct {
	kind    ResourceKind
	path    string
	present bool
	sum     uint64
}

// LoaderConfig configures a Loader.
type LoaderConfig struct {
	Root         string
	Normalizer   *notation.Normalizer
	ImageBaseURL string
	// DefaultImage stands in for images.json files that name no default.
	DefaultImage string
	Logger       *slog.Logger
}

// Loader reads one character folder and builds a Character snapshot.
// It holds no per-character state and is safe for concurrent use.
type Loader struct {
	root         string
	norm         *notation.Normalizer
	imageBase    string
	defaultImage string
	logger       *slog.Logger
}

// NewLoader returns a Loader rooted at cfg.Root.
func NewLoader(cfg LoaderConfig) *Loader {
	l := &Loader{
		root:         cfg.Root,
		norm:         cfg.Normalizer,
		imageBase:    cfg.ImageBaseURL,
		defaultImage: cfg.DefaultImage,
		logger:       cfg.Logger,
	}
	if l.norm == nil {
		l.norm = notation.New(nil)
	}
	if l.imageBase == "" {
		l.imageBase = DefaultImageBaseURL
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	return l
}

// Root returns the data directory.
func (l *Loader) Root() string { return l.root }

// Normalizer returns the normalizer keys are built with.
func (l *Loader) Normalizer() *notation.Normalizer { return l.norm }

// CharacterDir returns the folder of character id.
func (l *Loader) CharacterDir(id string) string {
	return filepath.Join(l.root, id)
}

// resourcePaths lists the files of a character in load order.
func (l *Loader) resourcePaths(id string) []sourceFile {
	dir := l.CharacterDir(id)
	return []sourceFile{
		{kind: ResourceCharacterJSON, path: filepath.Join(dir, id+".json")},
		{kind: ResourceInfoJSON, path: filepath.Join(dir, InfoFile)},
		{kind: ResourceAliasesJSON, path: filepath.Join(dir, AliasesFile)},
		{kind: ResourceImageJSON, path: filepath.Join(dir, ImagesFile)},
	}
}

func optional(kind ResourceKind) bool { return kind == ResourceAliasesJSON }

// validID rejects ids that would escape the data directory.
func validID(id string) bool {
	return id != "" && id != "." && id != ".." && !strings.ContainsAny(id, `/\`)
}

// Load reads every file of character id and builds a validated snapshot.
// It never publishes anything; callers decide what to do with the result.
func (l *Loader) Load(id string) (*Character, error) {
	dir := l.CharacterDir(id)
	if !validID(id) {
		return nil, &DataNotFoundError{Character: id, Kind: ResourceFolder, Path: dir}
	}
	if st, err := os.Stat(dir); err != nil || !st.IsDir() {
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("stat %s: %w", dir, err)
		}
		return nil, &DataNotFoundError{Character: id, Kind: ResourceFolder, Path: dir}
	}

	sources := l.resourcePaths(id)
	raw := make(map[ResourceKind][]byte, len(sources))
	for i := range sources {
		src := &sources[i]
		data, err := os.ReadFile(src.path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				if optional(src.kind) {
					continue
				}
				return nil, &DataNotFoundError{Character: id, Kind: src.kind, Path: src.path}
			}
			return nil, fmt.Errorf("read %s: %w", src.path, err)
		}
		src.present = true
		src.sum = xxhash.Sum64(data)
		raw[src.kind] = data
	}

	var moves []MoveInfo
	if err := decode(sources[0].path, raw[ResourceCharacterJSON], &moves); err != nil {
		return nil, err
	}
	for i, m := range moves {
		if strings.TrimSpace(string(m.Input)) == "" {
			return nil, &DataParseError{Path: sources[0].path, Err: fmt.Errorf("move %d: missing input", i)}
		}
	}

	var info CharacterInfo
	if err := decode(sources[1].path, raw[ResourceInfoJSON], &info); err != nil {
		return nil, err
	}

	var groups []AliasGroup
	if data, ok := raw[ResourceAliasesJSON]; ok {
		if err := decode(sources[2].path, data, &groups); err != nil {
			return nil, err
		}
	}

	var images ImageFile
	if err := decode(sources[3].path, raw[ResourceImageJSON], &images); err != nil {
		return nil, err
	}

	c, err := buildCharacter(id, info, moves, groups, l.norm, l.logger)
	if err != nil {
		return nil, err
	}
	if err := buildImages(c, images, l.imageBase, l.defaultImage, l.norm, l.logger); err != nil {
		return nil, err
	}
	c.sources = sources
	c.LoadedAt = time.Now()
	return c, nil
}

// decode unmarshals a single JSON document, wrapping failures as DataParseError.
func decode(path string, data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(v); err != nil {
		return &DataParseError{Path: path, Err: err}
	}
	if dec.More() {
		return &DataParseError{Path: path, Err: errors.New("trailing data after document")}
	}
	return nil
}

// ContentChanged reports whether any file c was built from differs from disk.
// Only content hashes are compared; nothing is parsed.
func (l *Loader) ContentChanged(c *Character) (bool, error) {
	for _, src := range c.sources {
		data, err := os.ReadFile(src.path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				if src.present {
					return true, nil
				}
				continue
			}
			return false, fmt.Errorf("read %s: %w", src.path, err)
		}
		if !src.present || xxhash.Sum64(data) != src.sum {
			return true, nil
		}
	}
	return false, nil
}
