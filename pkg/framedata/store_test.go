package framedata

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStoreGetCaches(t *testing.T) {
	dir := writeDataDir(t)
	s := NewStore(newTestLoader(t, dir), quietLogger())

	_, ok := s.Cached("Baiken")
	require.False(t, ok)

	c1, err := s.Get("Baiken")
	require.NoError(t, err)
	c2, err := s.Get("Baiken")
	require.NoError(t, err)
	require.Same(t, c1, c2)
	require.Equal(t, 1, s.Len())
	require.Equal(t, []string{"Baiken"}, s.IDs())
}

func TestStoreReloadSwapsSnapshot(t *testing.T) {
	dir := writeDataDir(t)
	s := NewStore(newTestLoader(t, dir), quietLogger())

	old, err := s.Get("Sol_Badguy")
	require.NoError(t, err)

	writeFile(t, filepath.Join(dir, "Sol_Badguy", "Sol_Badguy.json"),
		`[{"input": "5K"}, {"input": "6P"}]`)
	fresh, err := s.Reload("Sol_Badguy")
	require.NoError(t, err)

	require.NotSame(t, old, fresh)
	require.Len(t, old.Moves, 1, "old snapshot must stay intact")
	require.Len(t, fresh.Moves, 2)

	cur, ok := s.Cached("Sol_Badguy")
	require.True(t, ok)
	require.Same(t, fresh, cur)
}

func TestStoreFailedLoadIsPublished(t *testing.T) {
	dir := writeDataDir(t)
	s := NewStore(newTestLoader(t, dir), quietLogger())

	writeFile(t, filepath.Join(dir, "Baiken", InfoFile), `{`)
	_, err := s.Get("Baiken")
	require.ErrorIs(t, err, ErrDataParse)

	// Fixing the file alone does not clear the cached failure.
	writeFile(t, filepath.Join(dir, "Baiken", InfoFile), `{"name": "Baiken"}`)
	_, err = s.Get("Baiken")
	require.ErrorIs(t, err, ErrDataParse)

	changed, err := s.ContentChanged("Baiken")
	require.NoError(t, err)
	require.True(t, changed)

	reloaded, err := s.ReloadIfChanged("Baiken")
	require.NoError(t, err)
	require.True(t, reloaded)

	c, err := s.Get("Baiken")
	require.NoError(t, err)
	require.Equal(t, Text("Baiken"), c.Info.Name)
}

func TestStoreReloadIfChanged(t *testing.T) {
	dir := writeDataDir(t)
	s := NewStore(newTestLoader(t, dir), quietLogger())

	first, err := s.Get("Baiken")
	require.NoError(t, err)

	reloaded, err := s.ReloadIfChanged("Baiken")
	require.NoError(t, err)
	require.False(t, reloaded)
	cur, _ := s.Cached("Baiken")
	require.Same(t, first, cur)

	writeFile(t, filepath.Join(dir, "Baiken", AliasesFile), `[{"input": "6H", "aliases": ["far kick"]}]`)
	reloaded, err = s.ReloadIfChanged("Baiken")
	require.NoError(t, err)
	require.True(t, reloaded)
	cur, _ = s.Cached("Baiken")
	require.NotSame(t, first, cur)
}

func TestStoreEvict(t *testing.T) {
	dir := writeDataDir(t)
	s := NewStore(newTestLoader(t, dir), quietLogger())

	_, err := s.Get("Baiken")
	require.NoError(t, err)
	s.Evict("Baiken")
	_, ok := s.Cached("Baiken")
	require.False(t, ok)

	changed, err := s.ContentChanged("Baiken")
	require.NoError(t, err)
	require.True(t, changed, "uncached characters count as changed")
}

func TestStoreConcurrentReadersDuringReload(t *testing.T) {
	dir := writeDataDir(t)
	l := newTestLoader(t, dir)
	s := NewStore(l, quietLogger())
	n := l.Normalizer()

	_, err := s.Get("Baiken")
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				c, err := s.Get("Baiken")
				if err != nil {
					errs <- err
					return
				}
				// Every snapshot is complete: name and alias indexes agree.
				if _, ok := c.FindMove(n.Normalize("tatami")); !ok {
					errs <- &MoveNotFoundError{Character: c.ID, Query: "tatami"}
					return
				}
			}
		}()
	}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				if _, err := s.Reload("Baiken"); err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
}
