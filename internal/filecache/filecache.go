// Package filecache provides fast, mmap-backed source reads for
// internal/cache's above-threshold files, falling back to a plain
// os.ReadFile when mmap itself fails on the host filesystem. A zero-length
// file yields an empty entry without being mapped or read.
package filecache

import (
	"fmt"
	"os"
	"sync"

	"github.com/edsrzf/mmap-go"
)

// Entry is one cached file: either an mmap'd region or a plain byte slice
// read as a fallback, never both.
type Entry struct {
	Path string
	Data []byte

	mapped mmap.MMap
	file   *os.File
}

// Cache memoizes file reads by path. Reads don't block each other; loading
// a not-yet-seen path takes the exclusive lock just long enough to mmap
// or read it once.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*Entry

	mmapFailures int64
}

func New() *Cache {
	return &Cache{entries: make(map[string]*Entry)}
}

// Load returns the cached bytes for path, reading and mapping it on first
// access. Safe for concurrent use; a second caller racing the first load
// of the same path waits on the exclusive lock and then hits the now-warm
// cache instead of loading twice.
func (c *Cache) Load(path string) ([]byte, error) {
	c.mu.RLock()
	if e, ok := c.entries[path]; ok {
		c.mu.RUnlock()
		return e.Data, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[path]; ok {
		return e.Data, nil
	}

	e, err := c.load(path)
	if err != nil {
		return nil, err
	}
	c.entries[path] = e
	return e.Data, nil
}

func (c *Cache) load(path string) (*Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("filecache: open %q: %w", path, err)
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("filecache: stat %q: %w", path, err)
	}

	// A zero-length file can't be mapped; there's nothing to read either
	// way, so skip straight to an empty entry.
	if stat.Size() == 0 {
		f.Close()
		return &Entry{Path: path, Data: nil}, nil
	}

	mapped, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		c.mmapFailures++
		data, readErr := os.ReadFile(path)
		f.Close()
		if readErr != nil {
			return nil, fmt.Errorf("filecache: mmap %q failed (%v) and fallback read failed: %w", path, err, readErr)
		}
		return &Entry{Path: path, Data: data}, nil
	}

	return &Entry{Path: path, Data: []byte(mapped), mapped: mapped, file: f}, nil
}

// Invalidate drops a path's cached entry, unmapping/closing it first. A
// watcher (internal/watch) calls this on every write event before the
// caller re-reads the file, so a re-hoist after a save never serves the
// pre-edit mapped bytes.
func (c *Cache) Invalidate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[path]
	if !ok {
		return
	}
	delete(c.entries, path)
	closeEntry(e)
}

// MmapFailures reports how many loads fell back to os.ReadFile, for the
// same observability reason internal/cache's Stats does.
func (c *Cache) MmapFailures() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mmapFailures
}

// Close unmaps and closes every cached entry. Must be called before the
// process exits to release the mapped regions and file descriptors.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var firstErr error
	for path, e := range c.entries {
		if err := closeEntry(e); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("filecache: closing %q: %w", path, err)
		}
	}
	c.entries = make(map[string]*Entry)
	return firstErr
}

func closeEntry(e *Entry) error {
	var err error
	if e.mapped != nil {
		err = e.mapped.Unmap()
	}
	if e.file != nil {
		if cerr := e.file.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
