package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
)

// errNotFound marks a 404; it is never retried.
var errNotFound = errors.New("not found upstream")

// Fetcher downloads character documents into the data directory.
type Fetcher struct {
	sources  *SourceDB
	dataDir  string
	logger   *slog.Logger
	client   *http.Client
	attempts int
	backoff  time.Duration
}

// NewFetcher returns a Fetcher writing under dataDir.
func NewFetcher(sources *SourceDB, dataDir string, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		sources:  sources,
		dataDir:  dataDir,
		logger:   logger,
		client:   &http.Client{Timeout: 2 * time.Minute},
		attempts: 3,
		backoff:  time.Second,
	}
}

// characterFiles lists the documents of id; only aliases.json may be absent.
func characterFiles(id string) []struct {
	name     string
	optional bool
} {
	return []struct {
		name     string
		optional bool
	}{
		{id + ".json", false},
		{"info.json", false},
		{"aliases.json", true},
		{"images.json", false},
	}
}

// FetchCharacter downloads every document of id and swaps each into place
// with a rename. It reports whether the combined content hash changed.
func (f *Fetcher) FetchCharacter(ctx context.Context, id string) (bool, error) {
	changed, err := f.fetchCharacter(ctx, id)
	if err != nil {
		if recErr := f.sources.RecordFetch(id, "", err.Error()); recErr != nil {
			f.logger.Error("record fetch failed", "character", id, "error", recErr)
		}
		return false, err
	}
	return changed, nil
}

func (f *Fetcher) fetchCharacter(ctx context.Context, id string) (bool, error) {
	base, err := f.sources.GetURL(id)
	if err != nil {
		return false, err
	}
	prev, err := f.sources.ContentHash(id)
	if err != nil {
		return false, err
	}

	dir := filepath.Join(f.dataDir, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, fmt.Errorf("create %s: %w", dir, err)
	}

	// Download everything first so a failure leaves the folder untouched.
	type staged struct{ tmp, dest string }
	var ready []staged
	defer func() {
		for _, s := range ready {
			os.Remove(s.tmp)
		}
	}()

	var gone []string
	h := xxhash.New()
	for _, file := range characterFiles(id) {
		tmp := filepath.Join(dir, "."+file.name+".tmp")
		err := f.download(ctx, base+"/"+file.name, tmp)
		if errors.Is(err, errNotFound) && file.optional {
			gone = append(gone, filepath.Join(dir, file.name))
			continue
		}
		if err != nil {
			os.Remove(tmp)
			return false, fmt.Errorf("fetch %s/%s: %w", id, file.name, err)
		}
		ready = append(ready, staged{tmp: tmp, dest: filepath.Join(dir, file.name)})
		if err := hashFile(h, tmp); err != nil {
			return false, err
		}
	}

	for _, s := range ready {
		if err := os.Rename(s.tmp, s.dest); err != nil {
			return false, fmt.Errorf("install %s: %w", s.dest, err)
		}
	}
	ready = nil
	// An optional file dropped upstream must not linger from an earlier fetch.
	for _, dest := range gone {
		if err := os.Remove(dest); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return false, fmt.Errorf("remove %s: %w", dest, err)
		}
	}

	hash := strconv.FormatUint(h.Sum64(), 16)
	if err := f.sources.RecordFetch(id, hash, ""); err != nil {
		return false, err
	}
	changed := hash != prev
	f.logger.Info("character fetched", "character", id, "hash", hash, "changed", changed)
	return changed, nil
}

// FetchAll fetches every character in the ledger. Failures are joined; the
// ids whose content changed are returned.
func (f *Fetcher) FetchAll(ctx context.Context) ([]string, error) {
	srcs, err := f.sources.ListSources()
	if err != nil {
		return nil, err
	}
	var changed []string
	var errs []error
	for _, src := range srcs {
		if ctx.Err() != nil {
			return changed, ctx.Err()
		}
		ok, err := f.FetchCharacter(ctx, src.CharacterID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			changed = append(changed, src.CharacterID)
		}
	}
	return changed, errors.Join(errs...)
}

// FetchFile downloads url to name inside the data directory, e.g. the
// nicknames file.
func (f *Fetcher) FetchFile(ctx context.Context, url, name string) error {
	dest := filepath.Join(f.dataDir, name)
	tmp := filepath.Join(f.dataDir, "."+name+".tmp")
	if err := f.download(ctx, url, tmp); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("fetch %s: %w", name, err)
	}
	return os.Rename(tmp, dest)
}

func hashFile(h *xxhash.Digest, path string) error {
	fh, err := os.Open(path)
	if err != nil {
		return err
	}
	defer fh.Close()
	_, err = io.Copy(h, fh)
	return err
}

// download fetches url to dest, retrying with exponential backoff.
func (f *Fetcher) download(ctx context.Context, url, dest string) error {
	var lastErr error
	for attempt := 0; attempt < f.attempts; attempt++ {
		if attempt > 0 {
			backoff := f.backoff << uint(attempt-1)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}

		resp, err := f.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusNotFound {
			resp.Body.Close()
			return fmt.Errorf("%s: %w", url, errNotFound)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			lastErr = fmt.Errorf("HTTP %d for %s", resp.StatusCode, url)
			continue
		}

		out, err := os.Create(dest)
		if err != nil {
			resp.Body.Close()
			return fmt.Errorf("create file: %w", err)
		}

		_, copyErr := io.Copy(out, resp.Body)
		resp.Body.Close()
		closeErr := out.Close()

		if copyErr != nil {
			lastErr = copyErr
			continue
		}
		if closeErr != nil {
			return closeErr
		}
		return nil
	}
	return fmt.Errorf("download %s failed after %d attempts: %w", url, f.attempts, lastErr)
}
