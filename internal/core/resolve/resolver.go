// Package resolve decides, for each deduplicated candidate of a scan pass,
// whether it matches the local roster, an entity owned by another scope, or
// nothing at all.
package resolve

import (
	"context"

	"github.com/inkhaven/canonforge/internal/core/model"
	"github.com/inkhaven/canonforge/internal/core/normalize"
)

// DefaultLookupChunk bounds the batched global lookup, matching the backing
// query's IN-clause limit.
const DefaultLookupChunk = 30

// GlobalLookup resolves normalized names against every scope except the
// caller's. One call per chunk, never per candidate.
type GlobalLookup func(ctx context.Context, keys []string) (map[string]*model.RosterEntity, error)

// Blacklist suppresses hard-discarded names before they surface.
type Blacklist interface {
	Contains(key string) bool
}

// Resolver assigns a resolution tier to each candidate.
type Resolver struct {
	ChunkSize int
	NewID     func() string
}

func NewResolver(newID func() string) *Resolver {
	return &Resolver{ChunkSize: DefaultLookupChunk, NewID: newID}
}

// Result pairs the resolved list with pass-level counters the engine folds
// into its summary.
type Result struct {
	Resolved       []*model.ResolvedCandidate
	Suppressed     int
	LookupDegraded bool
}

// Resolve classifies candidates against the local index, then batch-queries
// the global roster for the remainder. A global lookup failure degrades to
// DETECTED for everything unmatched; a pass never fails outright because of
// a non-critical lookup outage.
func (r *Resolver) Resolve(ctx context.Context, candidates []model.EntityCandidate, local *Index, global GlobalLookup, blacklist Blacklist) Result {
	var res Result
	var pending []*model.ResolvedCandidate

	for _, cand := range candidates {
		key := normalize.Key(cand.Name)
		if blacklist != nil && blacklist.Contains(key) {
			res.Suppressed++
			continue
		}

		rc := &model.ResolvedCandidate{
			ID:             r.NewID(),
			Candidate:      cand,
			NormalizedName: key,
			Stage:          model.TierGhost,
		}

		if local != nil {
			if match, ok := local.Lookup(key); ok {
				rc.Tier = model.TierExisting
				rc.MatchedID = match.ID
				rc.MatchedScopeID = match.ScopeID
				res.Resolved = append(res.Resolved, rc)
				continue
			}
		}

		pending = append(pending, rc)
		res.Resolved = append(res.Resolved, rc)
	}

	if len(pending) == 0 {
		return res
	}

	matches, degraded := r.lookupAll(ctx, global, pending)
	res.LookupDegraded = degraded

	for _, rc := range pending {
		if match, ok := matches[rc.NormalizedName]; ok {
			rc.Tier = model.TierExternal
			rc.MatchedID = match.ID
			rc.MatchedScopeID = match.ScopeID
		} else {
			rc.Tier = model.TierDetected
		}
	}
	return res
}

func (r *Resolver) lookupAll(ctx context.Context, global GlobalLookup, pending []*model.ResolvedCandidate) (map[string]*model.RosterEntity, bool) {
	matches := make(map[string]*model.RosterEntity)
	if global == nil {
		return matches, false
	}

	chunk := r.ChunkSize
	if chunk <= 0 {
		chunk = DefaultLookupChunk
	}

	keys := make([]string, 0, len(pending))
	seen := make(map[string]bool, len(pending))
	for _, rc := range pending {
		if !seen[rc.NormalizedName] {
			seen[rc.NormalizedName] = true
			keys = append(keys, rc.NormalizedName)
		}
	}

	degraded := false
	for start := 0; start < len(keys); start += chunk {
		end := start + chunk
		if end > len(keys) {
			end = len(keys)
		}
		found, err := global(ctx, keys[start:end])
		if err != nil {
			degraded = true
			continue
		}
		for key, e := range found {
			matches[key] = e
		}
	}
	return matches, degraded
}
