package model

// ResolutionTier is the outcome a scan pass assigns to each deduplicated
// candidate after consulting the local and global rosters.
type ResolutionTier string

const (
	// TierExisting: the candidate matches an entity already owned by the
	// current scope.
	TierExisting ResolutionTier = "EXISTING"
	// TierExternal: the candidate matches an entity owned by another scope;
	// the user is told it exists elsewhere instead of a duplicate being
	// created silently.
	TierExternal ResolutionTier = "EXTERNAL"
	// TierDetected: brand new, unresolved. A pure ghost.
	TierDetected ResolutionTier = "DETECTED"
)

// ResolvedCandidate is a candidate annotated with its resolution outcome.
// DETECTED and EXTERNAL candidates sit in the scope's unresolved queue until
// a user materializes, merges, or discards them.
type ResolvedCandidate struct {
	ID             string          `json:"id"`
	Candidate      EntityCandidate `json:"candidate"`
	NormalizedName string          `json:"normalized_name"`
	Tier           ResolutionTier  `json:"tier"`
	MatchedID      string          `json:"matched_id,omitempty"`
	MatchedScopeID string          `json:"matched_scope_id,omitempty"`
	// Stage tracks queue lifecycle: GHOST until the user opens the candidate
	// for refinement, LIMBO afterwards. Draft state below accumulates in
	// LIMBO and is copied on materialization.
	Stage     Tier     `json:"stage"`
	DraftTags []string `json:"draft_tags,omitempty"`
	DraftNote string   `json:"draft_note,omitempty"`
}

// PassResult summarizes one scan pass over a set of source documents.
type PassResult struct {
	Resolved   []*ResolvedCandidate `json:"resolved"`
	Documents  int                  `json:"documents"`
	Analyzed   int                  `json:"analyzed"`
	Failed     int                  `json:"failed"`
	Suppressed int                  `json:"suppressed"` // blacklist hits
	Warnings   int                  `json:"warnings"`   // parse + lookup degradations
}
