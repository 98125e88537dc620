package framedata

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/hazyhaar/framedex/pkg/notation"
)

const baikenMoves = `[
  {"input": "5P", "name": "5P", "damage": "24", "guard": "All", "startup": 4, "on_block": "-1", "move_type": "normal"},
  {"input": "6H", "name": "6H", "damage": 46, "guard": "High", "startup": "12", "recovery": "", "move_type": "normal"},
  {"input": "j.H", "name": "j.H", "damage": 40, "move_type": "normal"},
  {"input": "41236H", "name": "Tatami Gaeshi", "startup": 12, "move_type": "special"},
  {"input": "632146H", "name": "Tsurane Sanzu-watashi", "damage": "50*5", "move_type": "super"},
  {"input": "Ground Throw", "name": "Ground Throw", "guard": "Throw", "move_type": "throw"}
]`

const baikenAliases = `[
  {"input": "41236H", "aliases": ["Tatami", "mat", "41236HS"]},
  {"input": "632146H", "aliases": ["Super", "Tsurane"]},
  {"input": "6H", "aliases": ["5P", "Kick"]}
]`

const baikenImages = `{
  "default": "https://example.test/no_image.png",
  "default_hitbox": "https://example.test/no_hitbox.png",
  "moves": [
    {"input": "6H", "move_img": "GGST_Baiken_6H.png", "hitbox_img": ["GGST_Baiken_6H_Hitbox.png"]},
    {"input": "5P", "move_img": "https://example.test/5p.png", "hitbox_img": []}
  ]
}`

const solMoves = `[{"input": "5K", "name": "5K", "damage": 25, "move_type": "normal"}]`

const solImages = `{"default": "https://example.test/no_image.png", "moves": []}`

const nicknames = `[
  {"character": "Baiken", "nicknames": ["bai", "ばいけん", ""]},
  {"character": "Sol_Badguy", "nicknames": ["sol", "ソル"]}
]`

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func defaultNormalizer(t *testing.T) *notation.Normalizer {
	t.Helper()
	rules, err := notation.CompileRules(notation.DefaultRules())
	if err != nil {
		t.Fatalf("CompileRules: %v", err)
	}
	return notation.New(rules)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// writeDataDir lays out a data directory with Baiken (all files) and
// Sol_Badguy (no aliases file).
func writeDataDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, NicknamesFile), nicknames)

	writeFile(t, filepath.Join(dir, "Baiken", "Baiken.json"), baikenMoves)
	writeFile(t, filepath.Join(dir, "Baiken", InfoFile), `{"name": "Baiken", "defense": "1.06", "guts": 3, "prejump": "4"}`)
	writeFile(t, filepath.Join(dir, "Baiken", AliasesFile), baikenAliases)
	writeFile(t, filepath.Join(dir, "Baiken", ImagesFile), baikenImages)

	writeFile(t, filepath.Join(dir, "Sol_Badguy", "Sol_Badguy.json"), solMoves)
	writeFile(t, filepath.Join(dir, "Sol_Badguy", InfoFile), `{"name": "Sol Badguy"}`)
	writeFile(t, filepath.Join(dir, "Sol_Badguy", ImagesFile), solImages)
	return dir
}

func newTestLoader(t *testing.T, dir string) *Loader {
	t.Helper()
	return NewLoader(LoaderConfig{Root: dir, Normalizer: defaultNormalizer(t), Logger: quietLogger()})
}

func newTestRegistry(t *testing.T, dir string) *Registry {
	t.Helper()
	reg := NewRegistry(Config{DataDir: dir, Normalizer: defaultNormalizer(t), Logger: quietLogger()})
	if err := reg.LoadNicknames(); err != nil {
		t.Fatalf("LoadNicknames: %v", err)
	}
	return reg
}
