package recordcache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"goldmap/internal/company"
	"goldmap/internal/fileutil"
	"goldmap/internal/logging"
)

const keyPrefix = "external_"

// Key returns the cache key for an external ID.
func Key(id int) string {
	return keyPrefix + strconv.Itoa(id)
}

// Cache provides thread-safe access to the record cache.
type Cache struct {
	path    string
	logger  *slog.Logger
	mu      sync.RWMutex
	entries map[string]*company.Record // nil value = confirmed absence
	flushMu sync.Mutex
}

// Open loads the cache at path. A missing file starts an empty cache; an
// unreadable one is logged and also starts empty. An empty path yields an
// in-memory cache whose Flush and Clear are no-ops.
func Open(path string, logger *slog.Logger) *Cache {
	logger = logging.NewComponentLogger(logger, "recordcache")
	c := &Cache{
		path:    strings.TrimSpace(path),
		logger:  logger,
		entries: make(map[string]*company.Record),
	}
	if c.path == "" {
		return c
	}
	if err := c.load(); err != nil {
		logging.WarnWithContext(logger, "failed to load record cache", "recordcache_load_failed",
			logging.Error(err),
			logging.String("path", c.path),
			logging.String(logging.FieldErrorHint, "delete the cache file if the problem persists"),
			logging.String(logging.FieldImpact, "external records will be fetched again"))
		c.entries = make(map[string]*company.Record)
	}
	return c
}

// Path returns the backing file path.
func (c *Cache) Path() string {
	return c.path
}

// Get returns the cached value for an external ID. The boolean reports
// whether the key is present; a present key with a nil record is a durable
// negative.
func (c *Cache) Get(id int) (*company.Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.entries[Key(id)]
	if !ok || rec == nil {
		return nil, ok
	}
	clone := *rec
	return &clone, true
}

// Put stores a record, or a durable negative when rec is nil.
func (c *Cache) Put(id int, rec *company.Record) {
	var stored *company.Record
	if rec != nil {
		clone := rec.WithAliases()
		stored = &clone
	}
	c.mu.Lock()
	c.entries[Key(id)] = stored
	c.mu.Unlock()
}

// Len returns the number of keys, negatives included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns the number of cached records and durable negatives.
func (c *Cache) Stats() (records, negatives int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, rec := range c.entries {
		if rec == nil {
			negatives++
		} else {
			records++
		}
	}
	return records, negatives
}

// Flush writes the full cache to disk atomically. It may run concurrently
// with Get and Put; the written file reflects a snapshot taken at the start.
func (c *Cache) Flush() error {
	if c.path == "" {
		return nil
	}
	c.mu.RLock()
	snapshot := make(map[string]any, len(c.entries))
	for key, rec := range c.entries {
		snapshot[key] = encodeEntry(rec)
	}
	c.mu.RUnlock()

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}

	c.flushMu.Lock()
	defer c.flushMu.Unlock()
	if err := fileutil.WriteAtomic(c.path, data, 0o644); err != nil {
		return fmt.Errorf("persist cache: %w", err)
	}
	c.logger.Debug("flushed record cache",
		logging.Int("entry_count", len(snapshot)),
		logging.String("path", c.path))
	return nil
}

// Clear drops every entry and removes the cache file.
func (c *Cache) Clear() error {
	c.mu.Lock()
	c.entries = make(map[string]*company.Record)
	c.mu.Unlock()
	if c.path == "" {
		return nil
	}
	c.flushMu.Lock()
	defer c.flushMu.Unlock()
	if _, err := fileutil.RemoveIfExists(c.path); err != nil {
		return fmt.Errorf("remove cache file: %w", err)
	}
	c.logger.Info("cleared record cache", logging.String("path", c.path))
	return nil
}

func (c *Cache) load() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read cache file: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse cache file: %w", err)
	}

	dropped := 0
	for key, value := range raw {
		rec, err := decodeEntry(value)
		if err != nil {
			dropped++
			c.logger.Warn("dropping cache entry",
				logging.String(logging.FieldEventType, "recordcache_entry_invalid"),
				logging.String("key", key),
				logging.Error(err))
			continue
		}
		c.entries[key] = rec
	}

	c.logger.Debug("loaded record cache",
		logging.Int("entry_count", len(c.entries)),
		logging.Int("dropped", dropped),
		logging.String("path", c.path))
	return nil
}
