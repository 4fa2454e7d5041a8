// Package catalog keeps the shared item -> price mapping and persists it after every change.
package catalog

import (
	"context"
	"strings"
	"sync"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"
)

// Entry is one catalog item. RawPrice is stored exactly as the user wrote it.
type Entry struct {
	Key      string `json:"item"`
	RawPrice string `json:"price"`
}

/*
Store is the durable backing of a Catalog.

Save receives the full catalog in insertion order and must replace the previous
state atomically: after a failed Save the previously saved state must still be
loadable.
*/
type Store interface {
	Load(ctx context.Context) (entries []Entry, e *xerr.Error)
	Save(ctx context.Context, entries []Entry) (e *xerr.Error)
}

// state is replaced as a whole on every mutation and never changed afterwards.
type state struct {
	keys   []string
	prices map[string]string
}

/*
Catalog is the insertion-ordered item -> raw price mapping.

Mutations (Set, Merge) are serialized by one write lock that is held until the
store has saved the new state, readers never see a partially applied change.
*/
type Catalog struct {
	mu    sync.RWMutex
	cur   state
	store Store
}

// New returns an empty Catalog backed by store. Call Load to read the stored entries.
func New(store Store) *Catalog {
	return &Catalog{
		cur:   state{prices: map[string]string{}},
		store: store,
	}
}

// Load replaces the in-memory catalog with the content of the store.
func (c *Catalog) Load(ctx context.Context) (e *xerr.Error) {
	entries, e := c.store.Load(ctx)
	if e != nil {
		return e
	}

	next := state{keys: make([]string, 0, len(entries)), prices: make(map[string]string, len(entries))}
	next.apply(entries)

	c.mu.Lock()
	c.cur = next
	c.mu.Unlock()

	tl.Log(tl.Info1, palette.Green, "Loaded %d catalog entries", len(next.keys))
	return e
}

// NormalizeKey is the key form used when writing: trimmed and lower-cased.
func NormalizeKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// LookupKey is the key form used when reading. It also removes one layer of surrounding quotes.
func LookupKey(name string) string {
	key := NormalizeKey(name)
	key = strings.TrimPrefix(key, `"`)
	key = strings.TrimSuffix(key, `"`)
	key = strings.TrimPrefix(key, `'`)
	key = strings.TrimSuffix(key, `'`)
	return strings.TrimSpace(key)
}

// Get returns the entry for name, looked up case-insensitively.
func (c *Catalog) Get(name string) (entry Entry, found bool) {
	key := LookupKey(name)

	c.mu.RLock()
	defer c.mu.RUnlock()

	rawPrice, found := c.cur.prices[key]
	if !found {
		return Entry{}, false
	}
	return Entry{Key: key, RawPrice: rawPrice}, true
}

// Set adds or overwrites one item and saves the catalog before returning.
func (c *Catalog) Set(ctx context.Context, name string, rawPrice string) (e *xerr.Error) {
	return c.commit(ctx, []Entry{{Key: name, RawPrice: rawPrice}})
}

/*
Merge applies every pair like Set would, but saves the catalog once at the end.

Either all pairs are applied and saved or, when saving fails, none of them is.
*/
func (c *Catalog) Merge(ctx context.Context, entries []Entry) (e *xerr.Error) {
	return c.commit(ctx, entries)
}

func (c *Catalog) commit(ctx context.Context, entries []Entry) (e *xerr.Error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.cur.clone(len(entries))
	next.apply(entries)

	e = c.store.Save(ctx, next.entries())
	if e != nil {
		tl.Log(tl.Error, palette.RedBold, "Catalog save failed, %d changes were %s", len(entries), "discarded")
		return e
	}

	c.cur = next
	tl.Log(tl.Info1, palette.Green, "Saved catalog with %d entries (%d changed)", len(next.keys), len(entries))
	return e
}

// Search returns every entry whose key contains substring, in insertion order.
func (c *Catalog) Search(substring string) []Entry {
	needle := LookupKey(substring)

	c.mu.RLock()
	defer c.mu.RUnlock()

	matches := make([]Entry, 0)
	for _, key := range c.cur.keys {
		if strings.Contains(key, needle) {
			matches = append(matches, Entry{Key: key, RawPrice: c.cur.prices[key]})
		}
	}
	return matches
}

// Entries returns a snapshot of the whole catalog in insertion order.
func (c *Catalog) Entries() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cur.entries()
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cur.keys)
}

func (s state) clone(extra int) state {
	next := state{
		keys:   make([]string, len(s.keys), len(s.keys)+extra),
		prices: make(map[string]string, len(s.prices)+extra),
	}
	copy(next.keys, s.keys)
	for key, rawPrice := range s.prices {
		next.prices[key] = rawPrice
	}
	return next
}

// apply inserts or overwrites entries. Overwritten keys keep their position.
func (s *state) apply(entries []Entry) {
	for _, entry := range entries {
		key := NormalizeKey(entry.Key)
		if _, exists := s.prices[key]; !exists {
			s.keys = append(s.keys, key)
		}
		s.prices[key] = entry.RawPrice
	}
}

func (s state) entries() []Entry {
	entries := make([]Entry, 0, len(s.keys))
	for _, key := range s.keys {
		entries = append(entries, Entry{Key: key, RawPrice: s.prices[key]})
	}
	return entries
}
