package framedata

import (
	"log/slog"
	"sort"
	"sync"
)

// entry is what the store publishes for a character: either a snapshot or
// the error its last load produced.
type entry struct {
	char *Character
	err  error
}

// Store caches one snapshot per character. Readers never lock: they load the
// current entry pointer. Writers are serialized per character id, so a slow
// load of one character never blocks another.
type Store struct {
	loader *Loader
	logger *slog.Logger

	entries sync.Map // id -> *entry

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore returns an empty store backed by loader.
func NewStore(loader *Loader, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		loader: loader,
		logger: logger,
		locks:  make(map[string]*sync.Mutex),
	}
}

func (s *Store) lock(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.locks[id]
	if !ok {
		m = &sync.Mutex{}
		s.locks[id] = m
	}
	return m
}

func (s *Store) current(id string) (*entry, bool) {
	v, ok := s.entries.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*entry), true
}

// Get returns the published snapshot for id, loading it on first use.
// A failed load is published too and returned until the next Reload.
func (s *Store) Get(id string) (*Character, error) {
	if e, ok := s.current(id); ok {
		return e.char, e.err
	}
	m := s.lock(id)
	m.Lock()
	defer m.Unlock()
	if e, ok := s.current(id); ok {
		return e.char, e.err
	}
	return s.publish(id)
}

// Cached returns the published snapshot without loading.
func (s *Store) Cached(id string) (*Character, bool) {
	e, ok := s.current(id)
	if !ok || e.err != nil {
		return nil, false
	}
	return e.char, true
}

// Reload unconditionally rebuilds id from disk and publishes the result.
// Readers holding the previous snapshot keep using it.
func (s *Store) Reload(id string) (*Character, error) {
	m := s.lock(id)
	m.Lock()
	defer m.Unlock()
	return s.publish(id)
}

// publish must be called with the id's writer lock held.
func (s *Store) publish(id string) (*Character, error) {
	c, err := s.loader.Load(id)
	if err != nil {
		s.logger.Warn("character load failed", "character", id, "error", err)
		s.entries.Store(id, &entry{err: err})
		return nil, err
	}
	s.entries.Store(id, &entry{char: c})
	s.logger.Debug("character loaded", "character", id, "moves", len(c.Moves), "aliases", c.AliasCount())
	return c, nil
}

// ContentChanged reports whether id's files differ from its snapshot.
// A character that is not cached, or whose last load failed, counts as changed.
func (s *Store) ContentChanged(id string) (bool, error) {
	e, ok := s.current(id)
	if !ok || e.err != nil {
		return true, nil
	}
	return s.loader.ContentChanged(e.char)
}

// ReloadIfChanged reloads id only when its content hash changed.
func (s *Store) ReloadIfChanged(id string) (bool, error) {
	m := s.lock(id)
	m.Lock()
	defer m.Unlock()

	e, ok := s.current(id)
	if ok && e.err == nil {
		changed, err := s.loader.ContentChanged(e.char)
		if err != nil {
			return false, err
		}
		if !changed {
			return false, nil
		}
	}
	_, err := s.publish(id)
	return true, err
}

// Evict drops id from the cache.
func (s *Store) Evict(id string) {
	m := s.lock(id)
	m.Lock()
	defer m.Unlock()
	s.entries.Delete(id)
}

// IDs returns the ids with a published entry, sorted.
func (s *Store) IDs() []string {
	var ids []string
	s.entries.Range(func(k, _ any) bool {
		ids = append(ids, k.(string))
		return true
	})
	sort.Strings(ids)
	return ids
}

// Len returns the number of successfully loaded characters.
func (s *Store) Len() int {
	n := 0
	s.entries.Range(func(_, v any) bool {
		if v.(*entry).err == nil {
			n++
		}
		return true
	})
	return n
}

// Failed returns the number of characters whose last load failed.
func (s *Store) Failed() int {
	n := 0
	s.entries.Range(func(_, v any) bool {
		if v.(*entry).err != nil {
			n++
		}
		return true
	})
	return n
}
