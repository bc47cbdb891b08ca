// Package cache memoizes parsebridge.Parse and hoist.Hoist results by
// content digest, and chooses between a plain os.ReadFile and
// internal/filecache's mmap-backed reader depending on file size.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/bernharduw/parcel/internal/ast"
	"github.com/bernharduw/parcel/internal/filecache"
)

// mmapThreshold matches esbuild's own "skip the copy for huge files"
// reasoning: below this size a plain read is cheap enough that mmap's
// extra setup (opening the file twice, bookkeeping an unmap) isn't worth
// it, but a multi-megabyte vendored bundle re-read on every watch-mode
// save is.
const mmapThreshold = 256 * 1024

// CachedAsset is what a cache hit returns: the already-hoisted tree plus
// enough of hoist.Hoist's outcome to replay it without re-running the
// transform. HoistErr is nil on success.
type CachedAsset struct {
	Tree     *ast.Tree
	HoistErr error
}

// Store is the memoization layer: one entry per (asset ID, content digest)
// pair, evicted least-recently-used once the maxEntries given to NewStore
// is exceeded.
type Store struct {
	entries *lru.Cache[string, *CachedAsset]
	files   *filecache.Cache

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// NewStore builds a Store sized to hold at most maxEntries hoisted assets
// at once, matching config.BuildConfig.CacheEntries.
func NewStore(maxEntries int) (*Store, error) {
	s := &Store{files: filecache.New()}
	c, err := lru.NewWithEvict(maxEntries, func(string, *CachedAsset) {
		s.evictions.Add(1)
	})
	if err != nil {
		return nil, fmt.Errorf("cache: building LRU store: %w", err)
	}
	s.entries = c
	return s, nil
}

// ReadSource returns path's contents, routing through the mmap-backed
// internal/filecache reader once the file crosses mmapThreshold and a
// plain os.ReadFile otherwise.
func (s *Store) ReadSource(path string) ([]byte, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cache: stat %q: %w", path, err)
	}
	if stat.Size() < mmapThreshold {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("cache: read %q: %w", path, err)
		}
		return data, nil
	}
	return s.files.Load(path)
}

// Digest is the cache key for a (asset ID, source) pair: two reads of the
// same path with unchanged bytes hash to the same key regardless of mtime,
// so an editor's "touch without modify" doesn't invalidate the cache.
func Digest(assetID string, source []byte) string {
	h := sha256.Sum256(source)
	return assetID + ":" + hex.EncodeToString(h[:])
}

// Get returns the memoized result for digest, if any.
func (s *Store) Get(digest string) (*CachedAsset, bool) {
	v, ok := s.entries.Get(digest)
	if ok {
		s.hits.Add(1)
	} else {
		s.misses.Add(1)
	}
	return v, ok
}

// Put records a fresh parse+hoist result under digest.
func (s *Store) Put(digest string, v *CachedAsset) {
	s.entries.Add(digest, v)
}

// Invalidate drops path's cached source bytes, forcing the next
// ReadSource to re-read (and re-mmap, if applicable) the file. It does not
// touch the parse/hoist entries keyed by digest -- those naturally miss
// once the new content's digest no longer matches.
func (s *Store) Invalidate(path string) {
	s.files.Invalidate(path)
}

// Stats is a point-in-time snapshot of cache effectiveness, the same
// observability shape internal/filecache's MmapFailures counter serves.
type Stats struct {
	Entries   int
	Hits      int64
	Misses    int64
	Evictions int64
}

func (s *Store) Stats() Stats {
	return Stats{
		Entries:   s.entries.Len(),
		Hits:      s.hits.Load(),
		Misses:    s.misses.Load(),
		Evictions: s.evictions.Load(),
	}
}

// Close releases the underlying mmap-backed file cache.
func (s *Store) Close() error {
	return s.files.Close()
}
