package resolve

import (
	"sync"

	"github.com/inkhaven/canonforge/internal/core/model"
	"github.com/inkhaven/canonforge/internal/core/normalize"
)

// Index maps normalized names (and normalized aliases) to the canonical
// roster entities owned by one scope. It is read-mostly during a pass and
// safe for concurrent readers; materialization and merges update it under
// the scope's write lock.
type Index struct {
	mu    sync.RWMutex
	byKey map[string]*model.RosterEntity
}

// NewIndex builds an index from a roster snapshot. Aliases are indexed too,
// so a merged-away name still resolves to its winner.
func NewIndex(entities []*model.RosterEntity) *Index {
	ix := &Index{byKey: make(map[string]*model.RosterEntity, len(entities))}
	for _, e := range entities {
		ix.Put(e)
	}
	return ix
}

// Put registers an entity under its normalized name and aliases. The primary
// name wins over an alias claiming the same key.
func (ix *Index) Put(e *model.RosterEntity) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, alias := range e.Aliases {
		if key := normalize.Key(alias); key != "" {
			if _, taken := ix.byKey[key]; !taken {
				ix.byKey[key] = e
			}
		}
	}
	if e.NormalizedName != "" {
		ix.byKey[e.NormalizedName] = e
	}
}

// Remove drops every key pointing at the entity id.
func (ix *Index) Remove(id string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for key, e := range ix.byKey {
		if e.ID == id {
			delete(ix.byKey, key)
		}
	}
}

// Lookup returns the entity registered under the normalized key.
func (ix *Index) Lookup(key string) (*model.RosterEntity, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	e, ok := ix.byKey[key]
	return e, ok
}

// Len reports how many keys the index holds.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.byKey)
}
