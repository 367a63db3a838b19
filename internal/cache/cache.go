// Package cache implements the small, purpose built TTL caches backing friend enrichment.
//
// Entries are served even when stale so callers can use them immediately while deciding whether
// to refresh. The in-memory state is always authoritative, the file on disk is only a convenience
// that lets us skip a cold start.
package cache

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"
)

var (
	ErrPersist = errors.New("failed to persist cache")
	errLoad    = errors.New("failed to load cache")
)

// Item is implemented by the entry shapes stored in a Cache.
type Item[V any] interface {
	// Cached returns when the entry was last written.
	Cached() time.Time
	// Stamped returns a copy of the entry marked as written at the given time.
	Stamped(at time.Time) V
}

// Health describes a cache whose writes to disk keep failing.
type Health struct {
	Cache    string
	Failures int
	Error    string
	At       time.Time
}

// HealthReporter receives notice of repeated persistence failures.
type HealthReporter interface {
	OnCacheUnhealthy(health Health)
}

// Options configures a Cache.
type Options[V any] struct {
	// Path of the backing json file.
	Path     string
	TTL      time.Duration
	Capacity int
	// PersistInterval is the minimum time between two writes made by MaybePersist.
	PersistInterval time.Duration
	// FailureThreshold is how many consecutive failed saves are tolerated before reporting.
	FailureThreshold int
	Reporter         HealthReporter
	// TTLFunc, when set, overrides TTL for individual entries.
	TTLFunc func(value V, ttl time.Duration) time.Duration
	// Now replaces time.Now, mostly useful for tests.
	Now func() time.Time
}

// Cache is a capacity bounded map of entries. When full the oldest inserted key is evicted.
// Saves are serialised by saveMu so an older snapshot is never renamed over a newer one.
type Cache[V Item[V]] struct {
	mu          sync.Mutex
	saveMu      sync.Mutex
	name        string
	opts        Options[V]
	entries     map[string]V
	order       []string
	dirty       bool
	writes      uint64
	lastPersist time.Time
	failures    int
	now         func() time.Time
}

func New[V Item[V]](name string, opts Options[V]) *Cache[V] {
	if opts.Capacity < 1 {
		opts.Capacity = 1
	}

	if opts.FailureThreshold < 1 {
		opts.FailureThreshold = 1
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Cache[V]{
		name:        name,
		opts:        opts,
		entries:     make(map[string]V),
		lastPersist: now(),
		now:         now,
	}
}

func (c *Cache[V]) Name() string {
	return c.name
}

// SetTTL changes the time to live applied to entries from now on.
func (c *Cache[V]) SetTTL(ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.opts.TTL = ttl
}

// Get returns the entry for key, stale or not.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	value, found := c.entries[key]

	return value, found
}

// Set writes the value stamped with the current time.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, found := c.entries[key]; !found {
		c.order = append(c.order, key)
	}

	c.entries[key] = value.Stamped(c.now())
	c.dirty = true
	c.writes++

	for len(c.order) > c.opts.Capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
}

// IsStale is true when the entry is missing or older than its ttl.
func (c *Cache[V]) IsStale(value V, found bool) bool {
	if !found {
		return true
	}

	c.mu.Lock()
	ttl := c.opts.TTL
	ttlFunc := c.opts.TTLFunc
	now := c.now()
	c.mu.Unlock()

	if ttlFunc != nil {
		ttl = ttlFunc(value, ttl)
	}

	return now.Sub(value.Cached()) > ttl
}

func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Keys returns the keys in insertion order.
func (c *Cache[V]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return slices.Clone(c.order)
}

// Clear drops every entry.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]V)
	c.order = nil
	c.dirty = true
	c.writes++
}

// Dirty reports whether there are writes not yet persisted.
func (c *Cache[V]) Dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.dirty
}

// Load populates the cache from disk. Any problem reading the file leaves the cache empty.
func (c *Cache[V]) Load() {
	entries, errRead := c.read()
	if errRead != nil {
		if !errors.Is(errRead, os.ErrNotExist) {
			slog.Warn("Discarding unreadable cache", slog.String("cache", c.name),
				slog.String("path", c.opts.Path), slog.String("error", errRead.Error()))
		}

		return
	}

	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}

	// Insertion order is not stored, so the write time stands in for it.
	slices.SortFunc(keys, func(a string, b string) int {
		if order := entries[a].Cached().Compare(entries[b].Cached()); order != 0 {
			return order
		}

		if a < b {
			return -1
		} else if a > b {
			return 1
		}

		return 0
	})

	if len(keys) > c.opts.Capacity {
		keys = keys[len(keys)-c.opts.Capacity:]
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]V, len(keys))
	for _, key := range keys {
		// Restamping with the stored time reapplies the entry invariants to hand edited files.
		c.entries[key] = entries[key].Stamped(entries[key].Cached())
	}

	c.order = keys
	c.dirty = false

	slog.Debug("Loaded cache", slog.String("cache", c.name), slog.Int("entries", len(keys)))
}

func (c *Cache[V]) read() (map[string]V, error) {
	body, errRead := os.ReadFile(c.opts.Path)
	if errRead != nil {
		return nil, errors.Join(errRead, errLoad)
	}

	entries := map[string]V{}
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, errors.Join(err, errLoad)
	}

	return entries, nil
}

// MaybePersist saves the cache if it has unsaved writes and the persist interval has passed.
func (c *Cache[V]) MaybePersist() error {
	c.mu.Lock()
	due := c.dirty && c.now().Sub(c.lastPersist) >= c.opts.PersistInterval
	c.mu.Unlock()

	if !due {
		return nil
	}

	return c.Save()
}

// Save writes the cache to a temporary file and renames it over the existing one, so the old file
// stays intact if anything goes wrong. Failures leave the cache dirty.
func (c *Cache[V]) Save() error {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	c.mu.Lock()
	body, errBody := json.Marshal(c.entries)
	writes := c.writes
	c.mu.Unlock()

	if errBody == nil {
		errBody = writeAtomic(c.opts.Path, body)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if errBody != nil {
		c.failures++
		health := Health{Cache: c.name, Failures: c.failures, Error: errBody.Error(), At: c.now()}
		slog.Error("Failed to persist cache", slog.String("cache", c.name),
			slog.Int("failures", c.failures), slog.String("error", errBody.Error()))

		if c.failures >= c.opts.FailureThreshold && c.opts.Reporter != nil {
			c.opts.Reporter.OnCacheUnhealthy(health)
		}

		return errors.Join(errBody, ErrPersist)
	}

	c.failures = 0
	c.lastPersist = c.now()
	// Writes made while the file was being written still need saving.
	if c.writes == writes {
		c.dirty = false
	}

	return nil
}

func writeAtomic(path string, body []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	temp, errTemp := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if errTemp != nil {
		return errTemp
	}

	tempName := temp.Name()
	cleanup := func(err error) error {
		_ = temp.Close()
		if errRemove := os.Remove(tempName); errRemove != nil && !errors.Is(errRemove, os.ErrNotExist) {
			return errors.Join(err, errRemove)
		}

		return err
	}

	if _, err := temp.Write(body); err != nil {
		return cleanup(err)
	}

	if err := temp.Sync(); err != nil {
		return cleanup(err)
	}

	if err := temp.Close(); err != nil {
		return cleanup(err)
	}

	if err := os.Rename(tempName, path); err != nil {
		return cleanup(err)
	}

	return nil
}
