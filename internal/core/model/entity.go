package model

import "time"

// Tier is the lifecycle stage of a detected entity.
type Tier string

const (
	TierGhost  Tier = "GHOST"  // detected or synthesized, unconfirmed
	TierLimbo  Tier = "LIMBO"  // open for refinement, draft state accumulates
	TierAnchor Tier = "ANCHOR" // materialized canonical roster record
)

// RosterEntity is the persistent canonical record for a narrative entity.
// It is exclusively owned by its ScopeID for mutation; other scopes may read
// it as a cross-scope reference but never alter it.
type RosterEntity struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	NormalizedName string     `json:"normalized_name"`
	ScopeID        string     `json:"scope_id"`
	Tier           Tier       `json:"tier"`
	Type           EntityType `json:"type"`
	Role           string     `json:"role,omitempty"`
	Description    string     `json:"description,omitempty"`
	Aliases        []string   `json:"aliases,omitempty"`
	Tags           []string   `json:"tags,omitempty"`
	Provenance     []Evidence `json:"provenance,omitempty"` // append-only
	Locked         bool       `json:"locked"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// HasAlias reports whether the entity already carries the alias.
func (e *RosterEntity) HasAlias(alias string) bool {
	for _, a := range e.Aliases {
		if a == alias {
			return true
		}
	}
	return false
}

// AppendProvenance adds entries to the entity's provenance, skipping exact
// (source_id, snippet) duplicates. Returns the number actually appended.
func (e *RosterEntity) AppendProvenance(entries []Evidence) int {
	seen := make(map[Evidence]bool, len(e.Provenance))
	for _, p := range e.Provenance {
		seen[p] = true
	}
	added := 0
	for _, entry := range entries {
		if seen[entry] {
			continue
		}
		seen[entry] = true
		e.Provenance = append(e.Provenance, entry)
		added++
	}
	return added
}
