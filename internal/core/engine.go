package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/inkhaven/canonforge/internal/core/collect"
	"github.com/inkhaven/canonforge/internal/core/common"
	"github.com/inkhaven/canonforge/internal/core/extraction"
	"github.com/inkhaven/canonforge/internal/core/graph"
	"github.com/inkhaven/canonforge/internal/core/lifecycle"
	"github.com/inkhaven/canonforge/internal/core/merge"
	"github.com/inkhaven/canonforge/internal/core/model"
	"github.com/inkhaven/canonforge/internal/core/normalize"
	"github.com/inkhaven/canonforge/internal/core/resolve"
	"github.com/inkhaven/canonforge/internal/driver"
	"github.com/inkhaven/canonforge/internal/logger"
)

var (
	ErrCandidateNotFound = errors.New("candidate not found in queue")
	ErrEntityNotFound    = errors.New("entity not found")
	// ErrPreconditionFailed: a merge target no longer exists (deleted
	// concurrently). Not retried automatically; the user must re-select.
	ErrPreconditionFailed = errors.New("merge target no longer exists")
	ErrNotBlacklisted     = errors.New("name is not blacklisted")
)

// Document is one source text submitted to a scan pass.
type Document struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// PassOptions tunes a single scan pass.
type PassOptions struct {
	// Types restricts which candidate types survive collection; empty admits
	// all valid types.
	Types []model.EntityType
}

// Overrides carries user-supplied field values applied at materialization.
type Overrides struct {
	Name        string   `json:"name,omitempty"`
	Role        string   `json:"role,omitempty"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// RelationRequest declares a relationship between two entities. Hints carry
// best-guess metadata for endpoints the graph has never seen.
type RelationRequest struct {
	SourceID     string            `json:"source_id"`
	TargetID     string            `json:"target_id"`
	RelationType string            `json:"relation_type"`
	Context      model.EdgeContext `json:"context"`
	ValidFrom    time.Time         `json:"valid_from,omitempty"`
	SourceHint   model.GhostHint   `json:"source_hint,omitempty"`
	TargetHint   model.GhostHint   `json:"target_hint,omitempty"`
}

// Engine ties the pipeline together: sequential extraction, intra-pass
// collection, scope resolution, the unresolved queue, and the narrative
// graph. All writes are serialized per scope.
type Engine struct {
	Driver    driver.GraphDriver // nil runs fully in-memory
	Extractor *extraction.Extractor
	Graph     *graph.Store
	Log       *logger.Logger

	LookupChunkSize  int
	MaxDocumentChars int

	// UUIDGenerator and Now are injectable for deterministic tests.
	UUIDGenerator func() string
	Now           func() time.Time

	mu     sync.Mutex
	scopes map[string]*scopeState
}

type scopeState struct {
	mu        sync.Mutex // serializes materialize/merge/discard per scope
	index     *resolve.Index
	queue     map[string]*model.ResolvedCandidate
	order     []string
	byKey     map[string]string // normalized name -> queue candidate id
	blacklist *lifecycle.Blacklist
	focused   string
	loaded    bool
}

func NewEngine(d driver.GraphDriver, extractor *extraction.Extractor, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{
		Driver:           d,
		Extractor:        extractor,
		Graph:            graph.NewStore(),
		Log:              log,
		LookupChunkSize:  resolve.DefaultLookupChunk,
		MaxDocumentChars: 24000,
		UUIDGenerator:    uuid.NewString,
		Now:              func() time.Time { return time.Now().UTC() },
		scopes:           make(map[string]*scopeState),
	}
}

func (e *Engine) scope(ctx context.Context, scopeID string) *scopeState {
	e.mu.Lock()
	st, ok := e.scopes[scopeID]
	if !ok {
		st = &scopeState{
			queue:     make(map[string]*model.ResolvedCandidate),
			byKey:     make(map[string]string),
			blacklist: lifecycle.NewBlacklist(),
		}
		e.scopes[scopeID] = st
	}
	e.mu.Unlock()

	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.loaded {
		e.loadScope(ctx, scopeID, st)
		st.loaded = true
	}
	return st
}

// loadScope hydrates the in-memory roster and blacklist from the durable
// store. Load failures degrade to an empty scope rather than blocking work.
func (e *Engine) loadScope(ctx context.Context, scopeID string, st *scopeState) {
	if e.Driver != nil {
		res, err := e.Driver.ExecuteQuery(ctx, driver.GetScopeEntitiesQuery, map[string]interface{}{
			"scope_id": scopeID,
		})
		if err != nil {
			e.Log.Warn("failed to load scope roster", "scope", scopeID, "error", err)
		} else {
			for _, rec := range res.Records {
				if ent := entityFromRecord(rec, scopeID); ent != nil {
					e.Graph.PutNode(ent)
				}
			}
		}

		edgeRes, err := e.Driver.ExecuteQuery(ctx, driver.GetScopeRelationsQuery, map[string]interface{}{
			"scope_id": scopeID,
		})
		if err != nil {
			e.Log.Warn("failed to load scope relations", "scope", scopeID, "error", err)
		} else {
			for _, rec := range edgeRes.Records {
				if edge := edgeFromRecord(rec); edge != nil {
					e.Graph.PutEdge(edge)
				}
			}
		}

		blRes, err := e.Driver.ExecuteQuery(ctx, driver.GetBlacklistQuery, map[string]interface{}{
			"scope_id": scopeID,
		})
		if err != nil {
			e.Log.Warn("failed to load scope blacklist", "scope", scopeID, "error", err)
		} else {
			for _, rec := range blRes.Records {
				if name := recString(rec, "normalized_name"); name != "" {
					st.blacklist.Add(name)
				}
			}
		}
	}

	st.index = resolve.NewIndex(e.anchors(scopeID))
}

func (e *Engine) anchors(scopeID string) []*model.RosterEntity {
	var out []*model.RosterEntity
	for _, ent := range e.Graph.NodesInScope(scopeID) {
		if ent.Tier == model.TierAnchor {
			out = append(out, ent)
		}
	}
	return out
}

// ScanPass runs the full pipeline over a batch of source documents.
// Extraction calls are issued sequentially, one in flight at a time, to stay
// under external rate limits; a failing document is skipped and the pass
// continues. The roster snapshot is taken once at pass start.
func (e *Engine) ScanPass(ctx context.Context, scopeID string, docs []Document, opts PassOptions) (*model.PassResult, error) {
	st := e.scope(ctx, scopeID)

	st.mu.Lock()
	st.index = resolve.NewIndex(e.anchors(scopeID))
	index := st.index
	st.mu.Unlock()

	collector := collect.New(opts.Types)
	result := &model.PassResult{Documents: len(docs)}

	for _, doc := range docs {
		if ctx.Err() != nil {
			// Stop issuing further per-document calls; whatever already
			// merged stays merged.
			break
		}

		content := common.Truncate(doc.Content, e.MaxDocumentChars)
		candidates, err := e.Extractor.ExtractCandidates(ctx, content)
		switch {
		case errors.Is(err, extraction.ErrUnparseable):
			// Treated identically to zero candidates for this document.
			e.Log.Warn("unparseable extraction response", "scope", scopeID, "document", doc.ID)
			result.Analyzed++
			result.Warnings++
			continue
		case err != nil:
			e.Log.Warn("document extraction failed", "scope", scopeID, "document", doc.ID, "error", err)
			result.Failed++
			continue
		}

		result.Analyzed++
		collector.Add(stampEvidence(candidates, doc))
	}

	resolver := resolve.NewResolver(e.UUIDGenerator)
	resolver.ChunkSize = e.LookupChunkSize
	res := resolver.Resolve(ctx, collector.Candidates(), index, e.globalLookup(scopeID), st.blacklist)
	result.Suppressed = res.Suppressed
	if res.LookupDegraded {
		e.Log.Warn("global roster lookup degraded", "scope", scopeID)
		result.Warnings++
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	for _, rc := range res.Resolved {
		switch rc.Tier {
		case model.TierExisting:
			e.absorbExisting(ctx, rc)
		default:
			e.enqueue(st, rc)
		}
	}
	result.Resolved = res.Resolved

	e.Log.Info("scan pass complete",
		"scope", scopeID,
		"documents", result.Documents,
		"analyzed", result.Analyzed,
		"failed", result.Failed,
		"suppressed", result.Suppressed,
		"warnings", result.Warnings,
	)
	return result, nil
}

// absorbExisting appends new provenance to a matched roster entity. A locked
// record accepts only provenance; its descriptive fields are never touched.
func (e *Engine) absorbExisting(ctx context.Context, rc *model.ResolvedCandidate) {
	ent, ok := e.Graph.Node(rc.MatchedID)
	if !ok {
		return
	}
	changed := ent.AppendProvenance(rc.Candidate.Evidence) > 0
	if !ent.Locked && ent.Description == "" && rc.Candidate.Description != "" {
		ent.Description = rc.Candidate.Description
		changed = true
	}
	if changed {
		ent.UpdatedAt = e.Now()
		if err := e.persistEntity(ctx, ent); err != nil {
			e.Log.Warn("failed to persist provenance update", "entity", ent.ID, "error", err)
		}
	}
}

// enqueue upserts a DETECTED or EXTERNAL candidate. Re-scanning the same
// name keeps the earlier queue id, stage and draft state so classifications
// stay stable across identical passes.
func (e *Engine) enqueue(st *scopeState, rc *model.ResolvedCandidate) {
	if prevID, ok := st.byKey[rc.NormalizedName]; ok {
		prev := st.queue[prevID]
		rc.ID = prev.ID
		rc.Stage = prev.Stage
		rc.DraftTags = prev.DraftTags
		rc.DraftNote = prev.DraftNote
		st.queue[prevID] = rc
		return
	}
	st.queue[rc.ID] = rc
	st.byKey[rc.NormalizedName] = rc.ID
	st.order = append(st.order, rc.ID)
}

// ListUnresolved returns the scope's queue in detection order.
func (e *Engine) ListUnresolved(ctx context.Context, scopeID string) []*model.ResolvedCandidate {
	st := e.scope(ctx, scopeID)
	st.mu.Lock()
	defer st.mu.Unlock()

	out := make([]*model.ResolvedCandidate, 0, len(st.queue))
	for _, id := range st.order {
		if rc, ok := st.queue[id]; ok {
			out = append(out, rc)
		}
	}
	return out
}

// BeginFocus marks a candidate as opened for refinement, advancing it from
// GHOST to LIMBO. It deterministically replaces any prior focus before
// returning; focus is a workflow signal, nothing is committed to the roster.
func (e *Engine) BeginFocus(ctx context.Context, scopeID, candidateID string) (*model.ResolvedCandidate, error) {
	st := e.scope(ctx, scopeID)
	st.mu.Lock()
	defer st.mu.Unlock()

	rc, ok := st.queue[candidateID]
	if !ok {
		return nil, ErrCandidateNotFound
	}

	stage, err := lifecycle.Advance(rc.Stage, model.TierLimbo)
	if err != nil {
		return nil, err
	}
	rc.Stage = stage
	st.focused = candidateID
	return rc, nil
}

// Materialize promotes a queue candidate into an ANCHOR roster entity. If an
// anchor with the same normalized name already exists in the scope (for
// example from a concurrent materialization), the existing entity is
// returned instead of a duplicate being created.
func (e *Engine) Materialize(ctx context.Context, scopeID, candidateID string, overrides Overrides) (*model.RosterEntity, error) {
	st := e.scope(ctx, scopeID)
	st.mu.Lock()
	defer st.mu.Unlock()

	rc, ok := st.queue[candidateID]
	if !ok {
		return nil, ErrCandidateNotFound
	}

	name := rc.Candidate.Name
	if overrides.Name != "" {
		name = overrides.Name
	}
	key := normalize.Key(name)

	if existing, ok := st.index.Lookup(key); ok {
		// Idempotent convergence: treat as an EXISTING match.
		existing.AppendProvenance(rc.Candidate.Evidence)
		e.dequeue(st, rc)
		if err := e.persistEntity(ctx, existing); err != nil {
			e.Log.Warn("failed to persist converged entity", "entity", existing.ID, "error", err)
		}
		e.Log.Info("materialization converged on existing entity", "scope", scopeID, "entity", existing.ID)
		return existing, nil
	}

	if _, err := lifecycle.Advance(rc.Stage, model.TierAnchor); err != nil {
		return nil, err
	}

	now := e.Now()
	ent := &model.RosterEntity{
		ID:             e.reuseGhostID(scopeID, key),
		Name:           name,
		NormalizedName: key,
		ScopeID:        scopeID,
		Tier:           model.TierAnchor,
		Type:           rc.Candidate.Type,
		Role:           overrides.Role,
		Description:    rc.Candidate.Description,
		Tags:           append(append([]string(nil), rc.DraftTags...), overrides.Tags...),
		Provenance:     append([]model.Evidence(nil), rc.Candidate.Evidence...),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if overrides.Description != "" {
		ent.Description = overrides.Description
	}
	if name != rc.Candidate.Name {
		ent.Aliases = append(ent.Aliases, rc.Candidate.Name)
	}

	e.Graph.PutNode(ent)
	st.index.Put(ent)
	e.dequeue(st, rc)

	if err := e.persistEntity(ctx, ent); err != nil {
		return nil, fmt.Errorf("failed to persist materialized entity: %w", err)
	}
	e.Log.Info("materialized entity", "scope", scopeID, "entity", ent.ID, "name", ent.Name)
	return ent, nil
}

// reuseGhostID promotes a same-named ghost node in place when one exists, so
// edges already referencing it stay attached. Otherwise a fresh id is minted.
func (e *Engine) reuseGhostID(scopeID, key string) string {
	for _, ent := range e.Graph.NodesInScope(scopeID) {
		if ent.Tier == model.TierGhost && ent.NormalizedName == key {
			return ent.ID
		}
	}
	return e.UUIDGenerator()
}

func (e *Engine) dequeue(st *scopeState, rc *model.ResolvedCandidate) {
	delete(st.queue, rc.ID)
	delete(st.byKey, rc.NormalizedName)
	if st.focused == rc.ID {
		st.focused = ""
	}
}

// Discard removes a candidate from the queue. At the hard level the
// normalized name is additionally blacklisted so future scans suppress it.
func (e *Engine) Discard(ctx context.Context, scopeID, candidateID string, level lifecycle.DiscardLevel) error {
	st := e.scope(ctx, scopeID)
	st.mu.Lock()
	defer st.mu.Unlock()

	rc, ok := st.queue[candidateID]
	if !ok {
		return ErrCandidateNotFound
	}
	e.dequeue(st, rc)

	if level != lifecycle.DiscardHard {
		return nil
	}

	st.blacklist.Add(rc.NormalizedName)
	if e.Driver != nil {
		_, err := e.Driver.ExecuteQuery(ctx, driver.SaveBlacklistEntryQuery, map[string]interface{}{
			"scope_id":        scopeID,
			"normalized_name": rc.NormalizedName,
			"created_at":      e.Now().Format(time.RFC3339),
		})
		if err != nil {
			return fmt.Errorf("failed to persist blacklist entry: %w", err)
		}
	}
	return nil
}

// Restore removes a name from the scope blacklist.
func (e *Engine) Restore(ctx context.Context, scopeID, name string) error {
	st := e.scope(ctx, scopeID)
	st.mu.Lock()
	defer st.mu.Unlock()

	key := normalize.Key(name)
	if !st.blacklist.Remove(key) {
		return ErrNotBlacklisted
	}
	if e.Driver != nil {
		_, err := e.Driver.ExecuteQuery(ctx, driver.DeleteBlacklistEntryQuery, map[string]interface{}{
			"scope_id":        scopeID,
			"normalized_name": key,
		})
		if err != nil {
			return fmt.Errorf("failed to remove blacklist entry: %w", err)
		}
	}
	return nil
}

// MergeEntities folds loser roster entities into the winner, rewrites every
// graph edge referencing a loser, and deletes the losers. After it returns
// no edge references a merged-away id.
func (e *Engine) MergeEntities(ctx context.Context, scopeID, winnerID string, loserIDs []string) (*model.RosterEntity, error) {
	st := e.scope(ctx, scopeID)
	st.mu.Lock()
	defer st.mu.Unlock()

	winner, ok := e.Graph.Node(winnerID)
	if !ok || winner.ScopeID != scopeID {
		return nil, fmt.Errorf("%w: winner %s", ErrPreconditionFailed, winnerID)
	}

	losers := make([]*model.RosterEntity, 0, len(loserIDs))
	seen := make(map[string]bool, len(loserIDs))
	for _, id := range loserIDs {
		if id == winnerID {
			return nil, fmt.Errorf("%w: loser %s is the winner", ErrPreconditionFailed, id)
		}
		if seen[id] {
			return nil, fmt.Errorf("%w: duplicate loser %s", ErrPreconditionFailed, id)
		}
		seen[id] = true
		loser, ok := e.Graph.Node(id)
		if !ok || loser.ScopeID != scopeID {
			return nil, fmt.Errorf("%w: loser %s", ErrPreconditionFailed, id)
		}
		losers = append(losers, loser)
	}

	merge.Entities(winner, losers)
	winner.UpdatedAt = e.Now()

	for _, loser := range losers {
		e.Graph.Rewire(loser.ID, winner.ID)
		e.Graph.RemoveNode(loser.ID)
		st.index.Remove(loser.ID)
		if e.Driver != nil {
			params := map[string]interface{}{"loser_uuid": loser.ID, "winner_uuid": winner.ID}
			if _, err := e.Driver.ExecuteQuery(ctx, driver.RewireRelationSourcesQuery, params); err != nil {
				return nil, fmt.Errorf("failed to rewire edges: %w", err)
			}
			if _, err := e.Driver.ExecuteQuery(ctx, driver.RewireRelationTargetsQuery, params); err != nil {
				return nil, fmt.Errorf("failed to rewire edges: %w", err)
			}
			if _, err := e.Driver.ExecuteQuery(ctx, driver.DeleteEntityQuery, map[string]interface{}{"uuid": loser.ID}); err != nil {
				return nil, fmt.Errorf("failed to delete merged entity: %w", err)
			}
		}
	}

	st.index.Put(winner)
	if err := e.persistEntity(ctx, winner); err != nil {
		return nil, fmt.Errorf("failed to persist merge winner: %w", err)
	}
	e.Log.Info("merged entities", "scope", scopeID, "winner", winner.ID, "losers", len(losers))
	return winner, nil
}

// MergeCandidates folds loser queue entries into a winner queue entry.
func (e *Engine) MergeCandidates(ctx context.Context, scopeID, winnerID string, loserIDs []string) (*model.ResolvedCandidate, error) {
	st := e.scope(ctx, scopeID)
	st.mu.Lock()
	defer st.mu.Unlock()

	winner, ok := st.queue[winnerID]
	if !ok {
		return nil, fmt.Errorf("%w: winner %s", ErrPreconditionFailed, winnerID)
	}

	losers := make([]*model.ResolvedCandidate, 0, len(loserIDs))
	for _, id := range loserIDs {
		loser, ok := st.queue[id]
		if !ok {
			return nil, fmt.Errorf("%w: loser %s", ErrPreconditionFailed, id)
		}
		losers = append(losers, loser)
	}

	merge.Candidates(winner, losers)
	for _, loser := range losers {
		e.dequeue(st, loser)
	}
	return winner, nil
}

// AddRelation declares a relationship edge. Missing endpoints become ghost
// nodes; any prior ACTIVE edge between the pair is closed out as HISTORIC.
func (e *Engine) AddRelation(ctx context.Context, scopeID string, req RelationRequest) (*model.GraphEdge, error) {
	if req.SourceID == "" || req.TargetID == "" || req.RelationType == "" {
		return nil, fmt.Errorf("relation requires source, target and relation_type")
	}

	st := e.scope(ctx, scopeID)
	st.mu.Lock()
	defer st.mu.Unlock()

	_, hadSource := e.Graph.Node(req.SourceID)
	_, hadTarget := e.Graph.Node(req.TargetID)

	var superseded []*model.GraphEdge
	for _, prior := range e.Graph.Active(req.SourceID) {
		if prior.TargetID == req.TargetID {
			superseded = append(superseded, prior)
		}
	}

	edge := &model.GraphEdge{
		ID:           e.UUIDGenerator(),
		SourceID:     req.SourceID,
		TargetID:     req.TargetID,
		RelationType: req.RelationType,
		Context:      req.Context,
		ValidFrom:    req.ValidFrom,
	}
	e.Graph.Declare(scopeID, edge, req.SourceHint, req.TargetHint)

	if e.Driver != nil {
		if !hadSource {
			e.persistGhost(ctx, req.SourceID)
		}
		if !hadTarget {
			e.persistGhost(ctx, req.TargetID)
		}
		for _, prior := range superseded {
			until := ""
			if prior.ValidUntil != nil {
				until = prior.ValidUntil.Format(time.RFC3339)
			}
			_, err := e.Driver.ExecuteQuery(ctx, driver.CloseRelationQuery, map[string]interface{}{
				"uuid":        prior.ID,
				"valid_until": until,
			})
			if err != nil {
				e.Log.Warn("failed to close superseded edge", "edge", prior.ID, "error", err)
			}
		}
		if err := e.persistEdge(ctx, edge); err != nil {
			return nil, fmt.Errorf("failed to persist relation: %w", err)
		}
	}
	return edge, nil
}

// RelationHistory returns the full append-only log between two entities,
// ordered by validity start.
func (e *Engine) RelationHistory(ctx context.Context, scopeID, a, b string) []*model.GraphEdge {
	e.scope(ctx, scopeID)
	return e.Graph.History(a, b)
}

// ActiveRelations returns the current relationships touching one entity.
func (e *Engine) ActiveRelations(ctx context.Context, scopeID, entityID string) []*model.GraphEdge {
	e.scope(ctx, scopeID)
	return e.Graph.Active(entityID)
}

// GetEntity looks up a roster entity by id.
func (e *Engine) GetEntity(ctx context.Context, scopeID, entityID string) (*model.RosterEntity, error) {
	e.scope(ctx, scopeID)
	ent, ok := e.Graph.Node(entityID)
	if !ok {
		return nil, ErrEntityNotFound
	}
	return ent, nil
}

func (e *Engine) globalLookup(scopeID string) resolve.GlobalLookup {
	if e.Driver == nil {
		return func(ctx context.Context, keys []string) (map[string]*model.RosterEntity, error) {
			all := e.Graph.NodesOutsideScope(scopeID)
			out := make(map[string]*model.RosterEntity)
			for _, key := range keys {
				if ent, ok := all[key]; ok {
					out[key] = ent
				}
			}
			return out, nil
		}
	}

	return func(ctx context.Context, keys []string) (map[string]*model.RosterEntity, error) {
		res, err := e.Driver.ExecuteQuery(ctx, driver.LookupExternalEntitiesQuery, map[string]interface{}{
			"names":    keys,
			"scope_id": scopeID,
		})
		if err != nil {
			return nil, err
		}
		out := make(map[string]*model.RosterEntity)
		for _, rec := range res.Records {
			ent := &model.RosterEntity{
				ID:             recString(rec, "uuid"),
				Name:           recString(rec, "name"),
				NormalizedName: recString(rec, "normalized_name"),
				ScopeID:        recString(rec, "scope_id"),
				Tier:           model.TierAnchor,
				Type:           model.EntityType(recString(rec, "type")),
			}
			if ent.NormalizedName != "" {
				out[ent.NormalizedName] = ent
			}
		}
		return out, nil
	}
}

func (e *Engine) persistGhost(ctx context.Context, id string) {
	ghost, ok := e.Graph.Node(id)
	if !ok {
		return
	}
	if err := e.persistEntity(ctx, ghost); err != nil {
		e.Log.Warn("failed to persist ghost node", "entity", id, "error", err)
	}
}

func (e *Engine) persistEntity(ctx context.Context, ent *model.RosterEntity) error {
	if e.Driver == nil {
		return nil
	}

	provenance, err := json.Marshal(ent.Provenance)
	if err != nil {
		return err
	}

	_, err = e.Driver.ExecuteQuery(ctx, driver.SaveEntityQuery, map[string]interface{}{
		"uuid":            ent.ID,
		"name":            ent.Name,
		"normalized_name": ent.NormalizedName,
		"scope_id":        ent.ScopeID,
		"tier":            string(ent.Tier),
		"type":            string(ent.Type),
		"role":            ent.Role,
		"description":     ent.Description,
		"aliases":         ent.Aliases,
		"tags":            ent.Tags,
		"provenance":      string(provenance),
		"locked":          ent.Locked,
		"created_at":      ent.CreatedAt.Format(time.RFC3339),
		"updated_at":      ent.UpdatedAt.Format(time.RFC3339),
	})
	return err
}

func (e *Engine) persistEdge(ctx context.Context, edge *model.GraphEdge) error {
	if e.Driver == nil {
		return nil
	}

	until := ""
	if edge.ValidUntil != nil {
		until = edge.ValidUntil.Format(time.RFC3339)
	}
	_, err := e.Driver.ExecuteQuery(ctx, driver.SaveRelationQuery, map[string]interface{}{
		"uuid":               edge.ID,
		"source_uuid":        edge.SourceID,
		"target_uuid":        edge.TargetID,
		"relation_type":      edge.RelationType,
		"context_source":     edge.Context.SourceID,
		"context_snippet":    edge.Context.Snippet,
		"context_confidence": edge.Context.Confidence,
		"valid_from":         edge.ValidFrom.Format(time.RFC3339),
		"valid_until":        until,
		"status":             string(edge.Status),
		"created_at":         edge.CreatedAt.Format(time.RFC3339),
	})
	return err
}

// stampEvidence guarantees every evidence entry names its source document.
// Candidates without evidence get a minimal entry pointing at the document.
func stampEvidence(candidates []model.EntityCandidate, doc Document) []model.EntityCandidate {
	for i := range candidates {
		if len(candidates[i].Evidence) == 0 {
			candidates[i].Evidence = []model.Evidence{{SourceID: doc.ID}}
			continue
		}
		for j := range candidates[i].Evidence {
			if candidates[i].Evidence[j].SourceID == "" {
				candidates[i].Evidence[j].SourceID = doc.ID
			}
		}
	}
	return candidates
}

func recString(rec *neo4j.Record, key string) string {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

func recStrings(rec *neo4j.Record, key string) []string {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return nil
	}
	raw, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func recBool(rec *neo4j.Record, key string) bool {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return false
	}
	b, _ := v.(bool)
	return b
}

func recInt(rec *neo4j.Record, key string) int {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return 0
	}
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case float64:
		return int(n)
	}
	return 0
}

func recTime(rec *neo4j.Record, key string) time.Time {
	t, err := time.Parse(time.RFC3339, recString(rec, key))
	if err != nil {
		return time.Time{}
	}
	return t
}

func edgeFromRecord(rec *neo4j.Record) *model.GraphEdge {
	id := recString(rec, "uuid")
	if id == "" {
		return nil
	}
	edge := &model.GraphEdge{
		ID:           id,
		SourceID:     recString(rec, "source_uuid"),
		TargetID:     recString(rec, "target_uuid"),
		RelationType: recString(rec, "relation_type"),
		Context: model.EdgeContext{
			SourceID:   recString(rec, "context_source"),
			Snippet:    recString(rec, "context_snippet"),
			Confidence: recInt(rec, "context_confidence"),
		},
		ValidFrom: recTime(rec, "valid_from"),
		Status:    model.EdgeStatus(recString(rec, "status")),
		CreatedAt: recTime(rec, "created_at"),
	}
	if until := recTime(rec, "valid_until"); !until.IsZero() {
		edge.ValidUntil = &until
	}
	return edge
}

func entityFromRecord(rec *neo4j.Record, scopeID string) *model.RosterEntity {
	id := recString(rec, "uuid")
	if id == "" {
		return nil
	}
	ent := &model.RosterEntity{
		ID:             id,
		Name:           recString(rec, "name"),
		NormalizedName: recString(rec, "normalized_name"),
		ScopeID:        scopeID,
		Tier:           model.Tier(recString(rec, "tier")),
		Type:           model.EntityType(recString(rec, "type")),
		Role:           recString(rec, "role"),
		Description:    recString(rec, "description"),
		Aliases:        recStrings(rec, "aliases"),
		Tags:           recStrings(rec, "tags"),
		Locked:         recBool(rec, "locked"),
	}
	if raw := recString(rec, "provenance"); raw != "" {
		// Best effort; a corrupt provenance blob loses history, not the node.
		_ = json.Unmarshal([]byte(raw), &ent.Provenance)
	}
	return ent
}
