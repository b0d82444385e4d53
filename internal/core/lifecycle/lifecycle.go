// Package lifecycle governs the tier state machine of detected entities and
// the per-scope blacklist that backs hard discards.
package lifecycle

import (
	"fmt"
	"sync"

	"github.com/inkhaven/canonforge/internal/core/model"
)

// ErrInvalidTransition is returned for any tier move outside the
// GHOST -> LIMBO -> ANCHOR ladder. ANCHOR is terminal; once materialized,
// change happens via ordinary editing, not tier transition.
var ErrInvalidTransition = fmt.Errorf("invalid tier transition")

var transitions = map[model.Tier]map[model.Tier]bool{
	model.TierGhost: {model.TierLimbo: true, model.TierAnchor: true},
	model.TierLimbo: {model.TierAnchor: true},
}

// Advance validates a tier transition. Self-transitions are allowed and mean
// "no change" (re-engaging a LIMBO candidate is not an error).
func Advance(from, to model.Tier) (model.Tier, error) {
	if from == to {
		return to, nil
	}
	if transitions[from][to] {
		return to, nil
	}
	return from, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// DiscardLevel selects how thoroughly a queue candidate is removed.
type DiscardLevel string

const (
	// DiscardSoft removes one instance from the current queue only; the name
	// may resurface on the next scan.
	DiscardSoft DiscardLevel = "soft"
	// DiscardHard additionally blacklists the normalized name so future scans
	// suppress it, reversible only by explicit restore.
	DiscardHard DiscardLevel = "hard"
)

// Blacklist is a persisted set of normalized names per scope, consulted by
// the resolver to pre-filter candidates before they surface.
type Blacklist struct {
	mu   sync.RWMutex
	keys map[string]bool
}

func NewBlacklist(keys ...string) *Blacklist {
	b := &Blacklist{keys: make(map[string]bool, len(keys))}
	for _, k := range keys {
		b.keys[k] = true
	}
	return b
}

func (b *Blacklist) Add(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.keys[key] = true
}

// Remove restores a name. Returns false if it was not blacklisted.
func (b *Blacklist) Remove(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.keys[key] {
		return false
	}
	delete(b.keys, key)
	return true
}

func (b *Blacklist) Contains(key string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.keys[key]
}

func (b *Blacklist) Names() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, 0, len(b.keys))
	for k := range b.keys {
		out = append(out, k)
	}
	return out
}
