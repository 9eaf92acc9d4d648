// Package cache is the dashboard's keyed query cache.
//
// Keys are "/"-separated paths such as "tasks", "tasks/projectId=p1" or
// "projects/p1". Invalidation, cancellation and snapshots address a key and
// every key below it.
//
// Cached values are treated as immutable: writers replace a value with a new
// one and never modify a stored slice or struct in place. This is what makes
// a snapshot restore exact.
package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// ErrCancelled is returned by Fetch when the fetch was cancelled or
// superseded by a write and no cached value exists to fall back to.
var ErrCancelled = errors.New("cache: fetch cancelled")

// Key joins path segments into a cache key.
func Key(parts ...string) string {
	return strings.Join(parts, "/")
}

// Matches reports whether key equals prefix or lies below it. The empty
// prefix matches every key.
func Matches(prefix, key string) bool {
	if prefix == "" || key == prefix {
		return true
	}
	return strings.HasPrefix(key, prefix+"/")
}

type entry struct {
	value    any
	has      bool
	stale    bool
	gen      uint64
	inflight *fetch
}

type fetch struct {
	gen    uint64
	cancel context.CancelFunc
	done   chan struct{}
	value  any
	err    error

	// invalidated is set when the key is invalidated while the load runs;
	// the result is then stored stale.
	invalidated bool
}

// Cache is safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{entries: map[string]*entry{}}
}

func (c *Cache) entry(key string) *entry {
	e, ok := c.entries[key]
	if !ok {
		e = &entry{}
		c.entries[key] = e
	}
	return e
}

// matching returns the existing keys under prefix.
func (c *Cache) matching(prefix string) []string {
	var keys []string
	for k := range c.entries {
		if Matches(prefix, k) {
			keys = append(keys, k)
		}
	}
	return keys
}

// Get returns the cached value for key, stale or not.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || !e.has {
		return nil, false
	}
	return e.value, true
}

// IsStale reports whether key holds a value that needs a refetch. Missing
// keys are stale.
func (c *Cache) IsStale(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return !ok || !e.has || e.stale
}

// Set stores a fresh value. Any fetch in flight for key is superseded.
func (c *Cache) Set(key string, value any) {
	c.Update(func(tx *Txn) { tx.Set(key, value) })
}

// Delete drops key and supersedes its in-flight fetch.
func (c *Cache) Delete(key string) {
	c.Update(func(tx *Txn) { tx.Delete(key) })
}

// Keys lists the keys under prefix that hold a value.
func (c *Cache) Keys(prefix string) []string {
	var keys []string
	c.Update(func(tx *Txn) { keys = tx.Keys(prefix) })
	return keys
}

// Invalidate marks every value under prefix stale and returns the keys it
// touched. Stale values are still served by Get until a refetch replaces them.
// A fetch in flight under prefix stores its result stale.
func (c *Cache) Invalidate(prefix string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var touched []string
	for _, k := range c.matching(prefix) {
		e := c.entries[k]
		if e.inflight != nil {
			e.inflight.invalidated = true
		}
		if e.has {
			e.stale = true
			touched = append(touched, k)
		}
	}
	return touched
}

// Cancel aborts the fetches in flight under prefix. Their results are
// discarded.
func (c *Cache) Cancel(prefix string) {
	c.Update(func(tx *Txn) { tx.Cancel(prefix) })
}

// Snapshot captures the entries under the given prefixes.
func (c *Cache) Snapshot(prefixes ...string) Snapshot {
	var snap Snapshot
	c.Update(func(tx *Txn) { snap = tx.Snapshot(prefixes...) })
	return snap
}

// Restore puts the cache back to a snapshot for the snapshot's prefixes.
func (c *Cache) Restore(snap Snapshot) {
	c.Update(func(tx *Txn) { tx.Restore(snap) })
}

// Update runs fn with exclusive access to the cache. Readers never observe a
// partially applied Update.
func (c *Cache) Update(fn func(tx *Txn)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&Txn{c: c})
}

// Fetch returns the value for key, calling load when the key is missing or
// stale. Concurrent Fetch calls for one key share a single load. A load that
// is cancelled or superseded by a write never stores its result; the caller
// then receives the value that superseded it.
func (c *Cache) Fetch(ctx context.Context, key string, load func(ctx context.Context) (any, error)) (any, error) {
	c.mu.Lock()
	e := c.entry(key)
	if e.has && !e.stale {
		v := e.value
		c.mu.Unlock()
		return v, nil
	}
	f := e.inflight
	if f == nil {
		f = c.start(key, e, load)
	}
	c.mu.Unlock()

	select {
	case <-f.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	cur, ok := c.entries[key]
	if !ok || cur != e || cur.gen != f.gen {
		if ok && cur.has {
			return cur.value, nil
		}
		return nil, ErrCancelled
	}
	return f.value, f.err
}

// start launches load for key. The caller holds c.mu.
func (c *Cache) start(key string, e *entry, load func(ctx context.Context) (any, error)) *fetch {
	ctx, cancel := context.WithCancel(context.Background())
	f := &fetch{gen: e.gen, cancel: cancel, done: make(chan struct{})}
	e.inflight = f

	go func() {
		defer cancel()
		value, err := load(ctx)

		c.mu.Lock()
		// A deleted or superseded entry no longer accepts this result.
		if cur, ok := c.entries[key]; ok && cur == e && cur.gen == f.gen {
			cur.inflight = nil
			if err == nil {
				cur.value = value
				cur.has = true
				cur.stale = f.invalidated
			}
		}
		f.value, f.err = value, err
		c.mu.Unlock()
		close(f.done)
	}()
	return f
}

// Txn is exclusive access to the cache inside Update.
type Txn struct {
	c *Cache
}

// Get returns the value for key.
func (tx *Txn) Get(key string) (any, bool) {
	e, ok := tx.c.entries[key]
	if !ok || !e.has {
		return nil, false
	}
	return e.value, true
}

// Set stores a fresh value and supersedes the in-flight fetch.
func (tx *Txn) Set(key string, value any) {
	e := tx.c.entry(key)
	e.value = value
	e.has = true
	e.stale = false
	tx.supersede(e)
}

// Delete removes the value for key.
func (tx *Txn) Delete(key string) {
	e, ok := tx.c.entries[key]
	if !ok {
		return
	}
	tx.supersede(e)
	delete(tx.c.entries, key)
}

// Keys lists the keys under prefix that hold a value.
func (tx *Txn) Keys(prefix string) []string {
	var keys []string
	for _, k := range tx.c.matching(prefix) {
		if tx.c.entries[k].has {
			keys = append(keys, k)
		}
	}
	return keys
}

// Cancel aborts the fetches in flight under prefix.
func (tx *Txn) Cancel(prefix string) {
	for _, k := range tx.c.matching(prefix) {
		e := tx.c.entries[k]
		if e.inflight != nil {
			tx.supersede(e)
		}
	}
}

func (tx *Txn) supersede(e *entry) {
	e.gen++
	if e.inflight != nil {
		e.inflight.cancel()
		e.inflight = nil
	}
}

// Snapshot captures the entries under the given prefixes.
func (tx *Txn) Snapshot(prefixes ...string) Snapshot {
	snap := Snapshot{prefixes: append([]string(nil), prefixes...), entries: map[string]Saved{}}
	for _, p := range prefixes {
		for _, k := range tx.c.matching(p) {
			e := tx.c.entries[k]
			if e.has {
				snap.entries[k] = Saved{Value: e.value, Stale: e.stale}
			}
		}
	}
	return snap
}

// Restore resets every key under the snapshot's prefixes to its saved state.
// Keys that did not exist when the snapshot was taken are removed.
func (tx *Txn) Restore(snap Snapshot) {
	for _, p := range snap.prefixes {
		for _, k := range tx.c.matching(p) {
			if _, saved := snap.entries[k]; !saved {
				tx.Delete(k)
			}
		}
	}
	for k, s := range snap.entries {
		e := tx.c.entry(k)
		e.value = s.Value
		e.has = true
		e.stale = s.Stale
		tx.supersede(e)
	}
}

// Saved is one entry of a Snapshot.
type Saved struct {
	Value any
	Stale bool
}

// Snapshot is a point-in-time copy of part of the cache.
type Snapshot struct {
	prefixes []string
	entries  map[string]Saved
}

// Entries returns the saved entries by key.
func (s Snapshot) Entries() map[string]Saved {
	return s.entries
}

// Get returns a typed value from the cache.
func Get[T any](c *Cache, key string) (T, bool) {
	var zero T
	v, ok := c.Get(key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

// Lookup returns a typed value inside a transaction.
func Lookup[T any](tx *Txn, key string) (T, bool) {
	var zero T
	v, ok := tx.Get(key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

// Load is Fetch with a typed loader.
func Load[T any](ctx context.Context, c *Cache, key string, load func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	v, err := c.Fetch(ctx, key, func(ctx context.Context) (any, error) {
		return load(ctx)
	})
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, errors.New("cache: unexpected value type for " + key)
	}
	return t, nil
}
