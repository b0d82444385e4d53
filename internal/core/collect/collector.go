// Package collect accumulates entity candidates across the documents of a
// single scan pass and merges duplicates before they reach the resolver.
package collect

import (
	"strings"

	"github.com/inkhaven/canonforge/internal/core/model"
	"github.com/inkhaven/canonforge/internal/core/normalize"
)

// Collector merges candidates from sequential extraction calls into a running
// map keyed by normalized name. Candidates whose type is outside the pass's
// allowed set are dropped on arrival so they never reach the resolver.
type Collector struct {
	allowed map[model.EntityType]bool
	byKey   map[string]*model.EntityCandidate
	order   []string
}

// New returns a collector for one scan pass. An empty allowed set admits
// every valid type.
func New(allowed []model.EntityType) *Collector {
	set := make(map[model.EntityType]bool, len(allowed))
	for _, t := range allowed {
		set[t] = true
	}
	return &Collector{
		allowed: set,
		byKey:   make(map[string]*model.EntityCandidate),
	}
}

// Add merges one document's candidates into the running pass state.
// First occurrence wins classification (type, subtype, confidence);
// description and evidence accumulate, classification does not compete.
func (c *Collector) Add(candidates []model.EntityCandidate) {
	for _, cand := range candidates {
		key := normalize.Key(cand.Name)
		if key == "" {
			continue
		}
		if len(c.allowed) > 0 && !c.allowed[cand.Type] {
			continue
		}

		existing, ok := c.byKey[key]
		if !ok {
			copied := cand
			copied.Evidence = append([]model.Evidence(nil), cand.Evidence...)
			c.byKey[key] = &copied
			c.order = append(c.order, key)
			continue
		}

		if cand.Description != "" && !strings.Contains(strings.ToLower(existing.Description), strings.ToLower(cand.Description)) {
			if existing.Description == "" {
				existing.Description = cand.Description
			} else {
				existing.Description += " " + cand.Description
			}
		}
		existing.Evidence = append(existing.Evidence, cand.Evidence...)
	}
}

// Candidates returns the deduplicated pass output in first-seen order.
func (c *Collector) Candidates() []model.EntityCandidate {
	out := make([]model.EntityCandidate, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, *c.byKey[key])
	}
	return out
}
