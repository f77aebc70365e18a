package conformance

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Cache stores VerificationResults keyed by (file content hash, check id)
// so unchanged files are never re-checked (spec.md §4.3). Grounded on
// pkg/mcp/client.go's RWMutex-guarded in-memory map for the hot path, with
// a durable on-disk mirror under its own directory — conformance owns this
// cache's layout independently of the state store's task-scoped paths,
// since a conformance result is addressed by file content, not by task.
type Cache struct {
	dir string
	mu  sync.RWMutex
	mem map[string]VerificationResult
}

// NewCache returns a Cache rooted at dir, creating it if needed.
func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create conformance cache dir %s: %w", dir, err)
	}
	return &Cache{dir: dir, mem: make(map[string]VerificationResult)}, nil
}

func cacheKey(fileHash string, layer Layer) string {
	return fileHash + "_" + string(layer)
}

func (c *Cache) path(fileHash string, layer Layer) string {
	return filepath.Join(c.dir, cacheKey(fileHash, layer)+".yaml")
}

// Get returns a cached result for (fileHash, layer), checking the
// in-memory map first and falling back to disk.
func (c *Cache) Get(fileHash string, layer Layer) (VerificationResult, bool) {
	key := cacheKey(fileHash, layer)

	c.mu.RLock()
	if r, ok := c.mem[key]; ok {
		c.mu.RUnlock()
		return r, true
	}
	c.mu.RUnlock()

	data, err := os.ReadFile(c.path(fileHash, layer))
	if err != nil {
		return VerificationResult{}, false
	}
	var r VerificationResult
	if err := yaml.Unmarshal(data, &r); err != nil {
		return VerificationResult{}, false
	}

	c.mu.Lock()
	c.mem[key] = r
	c.mu.Unlock()
	return r, true
}

// Put stores a result for (fileHash, layer), updating both the in-memory
// map and the durable on-disk copy via temp-file-plus-rename so a crash
// mid-write never corrupts a cache entry.
func (c *Cache) Put(fileHash string, layer Layer, result VerificationResult) error {
	key := cacheKey(fileHash, layer)

	data, err := yaml.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal conformance cache entry: %w", err)
	}

	tmp, err := os.CreateTemp(c.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp cache file: %w", err)
	}
	if err := os.Rename(tmpName, c.path(fileHash, layer)); err != nil {
		return fmt.Errorf("rename cache file: %w", err)
	}

	c.mu.Lock()
	c.mem[key] = result
	c.mu.Unlock()
	return nil
}

// Invalidate drops every cached layer result for a given file hash — used
// when a baseline is explicitly reset.
func (c *Cache) Invalidate(fileHash string) {
	c.mu.Lock()
	for _, layer := range layerOrder {
		delete(c.mem, cacheKey(fileHash, layer))
	}
	c.mu.Unlock()
	for _, layer := range layerOrder {
		os.Remove(c.path(fileHash, layer))
	}
}
