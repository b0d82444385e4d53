// Package graph holds entities as nodes and relationships as temporally
// scoped, append-only edges. Nodes and edges live in two flat, id-indexed
// maps so merges and ghost promotion are id rewrites, not tree surgery.
package graph

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/inkhaven/canonforge/internal/core/model"
	"github.com/inkhaven/canonforge/internal/core/normalize"
)

type Store struct {
	mu       sync.RWMutex
	nodes    map[string]*model.RosterEntity
	edges    map[string]*model.GraphEdge
	byEntity map[string][]string // entity id -> edge ids touching it

	// NewID and Now are injectable for deterministic tests.
	NewID func() string
	Now   func() time.Time
}

func NewStore() *Store {
	return &Store{
		nodes:    make(map[string]*model.RosterEntity),
		edges:    make(map[string]*model.GraphEdge),
		byEntity: make(map[string][]string),
		NewID:    uuid.NewString,
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) PutNode(e *model.RosterEntity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes[e.ID] = e
}

func (s *Store) Node(id string) (*model.RosterEntity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.nodes[id]
	return e, ok
}

// NodesInScope returns the entities owned by one scope, any tier.
func (s *Store) NodesInScope(scope string) []*model.RosterEntity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.RosterEntity
	for _, e := range s.nodes {
		if e.ScopeID == scope {
			out = append(out, e)
		}
	}
	return out
}

// NodesOutsideScope returns entities owned by any other scope, keyed by
// normalized name. Backs the in-process global roster lookup.
func (s *Store) NodesOutsideScope(scope string) map[string]*model.RosterEntity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*model.RosterEntity)
	for _, e := range s.nodes {
		if e.ScopeID != scope && e.Tier == model.TierAnchor {
			out[e.NormalizedName] = e
		}
	}
	return out
}

// RemoveNode drops a node from the arena. Callers must rewire its edges
// first; the store never deletes edges on node removal.
func (s *Store) RemoveNode(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.nodes, id)
}

// EnsureGhost returns the node for id, synthesizing a GHOST placeholder from
// the hint when the store has never seen it. No edge is ever orphaned; a
// little placeholder noise buys total referential integrity.
func (s *Store) EnsureGhost(id, scope string, hint model.GhostHint) *model.RosterEntity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.nodes[id]; ok {
		return e
	}

	name := hint.Name
	if name == "" {
		short := id
		if len(short) > 8 {
			short = short[:8]
		}
		name = "unknown-" + short
	}
	typ := hint.Type
	if !typ.Valid() {
		typ = model.TypeConcept
	}

	ghost := &model.RosterEntity{
		ID:             id,
		Name:           name,
		NormalizedName: normalize.Key(name),
		ScopeID:        scope,
		Tier:           model.TierGhost,
		Type:           typ,
		CreatedAt:      s.Now(),
		UpdatedAt:      s.Now(),
	}
	s.nodes[id] = ghost
	return ghost
}

// Declare appends an edge as the pair's current relationship. Any previously
// ACTIVE edge between the same ordered endpoints is marked HISTORIC with
// ValidUntil set; edges are never mutated in place to change current truth.
// Missing endpoints are synthesized as ghosts from the hints.
func (s *Store) Declare(scope string, edge *model.GraphEdge, srcHint, dstHint model.GhostHint) *model.GraphEdge {
	s.EnsureGhost(edge.SourceID, scope, srcHint)
	s.EnsureGhost(edge.TargetID, scope, dstHint)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.Now()
	for _, id := range s.byEntity[edge.SourceID] {
		prior := s.edges[id]
		if prior.Status == model.EdgeActive && prior.SourceID == edge.SourceID && prior.TargetID == edge.TargetID {
			until := now
			prior.Status = model.EdgeHistoric
			prior.ValidUntil = &until
		}
	}

	if edge.ID == "" {
		edge.ID = s.NewID()
	}
	if edge.ValidFrom.IsZero() {
		edge.ValidFrom = now
	}
	edge.Status = model.EdgeActive
	edge.CreatedAt = now

	s.edges[edge.ID] = edge
	s.byEntity[edge.SourceID] = append(s.byEntity[edge.SourceID], edge.ID)
	s.byEntity[edge.TargetID] = append(s.byEntity[edge.TargetID], edge.ID)
	return edge
}

// PutEdge inserts an edge exactly as given, with no supersession or ghost
// synthesis. It is the hydration path for edges loaded from the durable
// store; Declare is the write path for new declarations.
func (s *Store) PutEdge(e *model.GraphEdge) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.edges[e.ID]; ok {
		return
	}
	s.edges[e.ID] = e
	s.byEntity[e.SourceID] = append(s.byEntity[e.SourceID], e.ID)
	if e.TargetID != e.SourceID {
		s.byEntity[e.TargetID] = append(s.byEntity[e.TargetID], e.ID)
	}
}

// Active returns the ACTIVE edges touching an entity.
func (s *Store) Active(entityID string) []*model.GraphEdge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.GraphEdge
	for _, id := range s.byEntity[entityID] {
		if e := s.edges[id]; e.Status == model.EdgeActive {
			out = append(out, e)
		}
	}
	sortEdges(out)
	return out
}

// History returns the full append-only log between two entities, either
// direction, ordered by ValidFrom.
func (s *Store) History(a, b string) []*model.GraphEdge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.GraphEdge
	seen := make(map[string]bool)
	for _, id := range s.byEntity[a] {
		if seen[id] {
			continue
		}
		seen[id] = true
		e := s.edges[id]
		if (e.SourceID == a && e.TargetID == b) || (e.SourceID == b && e.TargetID == a) {
			out = append(out, e)
		}
	}
	sortEdges(out)
	return out
}

// Rewire points every edge referencing fromID at toID instead. Part of the
// merge operation: after it returns no edge references the merged-away id.
func (s *Store) Rewire(fromID, toID string) int {
	if fromID == toID {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	have := make(map[string]bool, len(s.byEntity[toID]))
	for _, id := range s.byEntity[toID] {
		have[id] = true
	}

	moved := 0
	for _, id := range s.byEntity[fromID] {
		e := s.edges[id]
		if e.SourceID == fromID {
			e.SourceID = toID
		}
		if e.TargetID == fromID {
			e.TargetID = toID
		}
		if !have[id] {
			s.byEntity[toID] = append(s.byEntity[toID], id)
			have[id] = true
		}
		moved++
	}
	delete(s.byEntity, fromID)
	return moved
}

// Edges returns every edge in the store.
func (s *Store) Edges() []*model.GraphEdge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.GraphEdge, 0, len(s.edges))
	for _, e := range s.edges {
		out = append(out, e)
	}
	sortEdges(out)
	return out
}

func sortEdges(edges []*model.GraphEdge) {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].ValidFrom.Equal(edges[j].ValidFrom) {
			return edges[i].CreatedAt.Before(edges[j].CreatedAt)
		}
		return edges[i].ValidFrom.Before(edges[j].ValidFrom)
	})
}
