package sources

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func tempSourceDB(t *testing.T) *SourceDB {
	t.Helper()
	dir := t.TempDir()
	sdb, err := OpenSourceDB(filepath.Join(dir, "sources.db"))
	if err != nil {
		t.Fatalf("OpenSourceDB: %v", err)
	}
	t.Cleanup(func() { sdb.Close() })
	return sdb
}

func TestOpenSourceDB_CreatesTable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	sdb, err := OpenSourceDB(path)
	if err != nil {
		t.Fatalf("OpenSourceDB: %v", err)
	}
	defer sdb.Close()

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("db file not created: %v", err)
	}

	sources, err := sdb.ListSources()
	if err != nil {
		t.Fatalf("ListSources on empty db: %v", err)
	}
	if len(sources) != 0 {
		t.Fatalf("expected 0 sources, got %d", len(sources))
	}
}

func TestSeedAndGetURL(t *testing.T) {
	sdb := tempSourceDB(t)

	if err := sdb.Seed([]string{"Baiken", "Sol_Badguy"}, "https://upstream.test/data/"); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	url, err := sdb.GetURL("Baiken")
	if err != nil {
		t.Fatalf("GetURL: %v", err)
	}
	if url != "https://upstream.test/data/Baiken" {
		t.Errorf("url = %q, want %q", url, "https://upstream.test/data/Baiken")
	}

	sources, err := sdb.ListSources()
	if err != nil {
		t.Fatalf("ListSources: %v", err)
	}
	if len(sources) != 2 || sources[0].CharacterID != "Baiken" || sources[1].CharacterID != "Sol_Badguy" {
		t.Fatalf("unexpected sources: %+v", sources)
	}
	if sources[0].ContentHash != nil || sources[0].LastFetch != nil {
		t.Error("new rows should have no fetch state")
	}
}

func TestSeedKeepsOverrides(t *testing.T) {
	sdb := tempSourceDB(t)

	if err := sdb.Seed([]string{"Baiken"}, "https://a.test"); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if err := sdb.SetURL("Baiken", "https://mirror.test/Baiken"); err != nil {
		t.Fatalf("SetURL: %v", err)
	}
	if err := sdb.Seed([]string{"Baiken"}, "https://a.test"); err != nil {
		t.Fatalf("re-Seed: %v", err)
	}

	url, _ := sdb.GetURL("Baiken")
	if url != "https://mirror.test/Baiken" {
		t.Errorf("url = %q, want override to survive", url)
	}
}

func TestUnknownSource(t *testing.T) {
	sdb := tempSourceDB(t)

	if _, err := sdb.GetURL("Nobody"); !errors.Is(err, ErrUnknownSource) {
		t.Errorf("GetURL err = %v, want ErrUnknownSource", err)
	}
	if err := sdb.SetURL("Nobody", "https://x.test"); !errors.Is(err, ErrUnknownSource) {
		t.Errorf("SetURL err = %v, want ErrUnknownSource", err)
	}
	if _, err := sdb.ContentHash("Nobody"); !errors.Is(err, ErrUnknownSource) {
		t.Errorf("ContentHash err = %v, want ErrUnknownSource", err)
	}
}

func TestRecordFetch(t *testing.T) {
	sdb := tempSourceDB(t)
	if err := sdb.Seed([]string{"Baiken"}, "https://a.test"); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	if err := sdb.RecordFetch("Baiken", "abc123", ""); err != nil {
		t.Fatalf("RecordFetch: %v", err)
	}
	if err := sdb.RecordFetch("Baiken", "", "HTTP 500"); err != nil {
		t.Fatalf("RecordFetch failure: %v", err)
	}

	hash, err := sdb.ContentHash("Baiken")
	if err != nil {
		t.Fatalf("ContentHash: %v", err)
	}
	if hash != "abc123" {
		t.Errorf("hash = %q, want the last good hash", hash)
	}

	sources, _ := sdb.ListSources()
	src := sources[0]
	if src.LastFetch == nil {
		t.Error("last_fetch not set")
	}
	if src.LastError == nil || *src.LastError != "HTTP 500" {
		t.Errorf("last_error = %v, want HTTP 500", src.LastError)
	}
}

func TestUpdateCheck(t *testing.T) {
	sdb := tempSourceDB(t)
	if err := sdb.Seed([]string{"Baiken"}, "https://a.test"); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	if err := sdb.UpdateCheck("Baiken", 200, ""); err != nil {
		t.Fatalf("UpdateCheck: %v", err)
	}

	sources, _ := sdb.ListSources()
	src := sources[0]
	if src.LastStatus == nil || *src.LastStatus != 200 {
		t.Errorf("last_status = %v, want 200", src.LastStatus)
	}
	if src.LastError != nil {
		t.Errorf("last_error = %q, want NULL", *src.LastError)
	}
}
