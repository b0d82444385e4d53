package model

import "time"

// EdgeStatus marks whether a relationship edge reflects the current state of
// the narrative or a superseded one.
type EdgeStatus string

const (
	EdgeActive   EdgeStatus = "ACTIVE"
	EdgeHistoric EdgeStatus = "HISTORIC"
)

// EdgeContext records where a relationship claim came from.
type EdgeContext struct {
	SourceID   string `json:"source_id"`
	Snippet    string `json:"snippet,omitempty"`
	Confidence int    `json:"confidence"`
}

// GraphEdge is an append-only relationship record between two roster
// entities. Edges are never mutated to change current truth: a change of
// relationship appends a new ACTIVE edge and marks the prior one HISTORIC
// with ValidUntil set, preserving the full history of how the relationship
// evolved across the narrative's chronology.
type GraphEdge struct {
	ID           string      `json:"id"`
	SourceID     string      `json:"source_id"`
	TargetID     string      `json:"target_id"`
	RelationType string      `json:"relation_type"`
	Context      EdgeContext `json:"context"`
	ValidFrom    time.Time   `json:"valid_from"`
	ValidUntil   *time.Time  `json:"valid_until,omitempty"`
	Status       EdgeStatus  `json:"status"`
	CreatedAt    time.Time   `json:"created_at"`
}

// GhostHint is the best-guess metadata carried alongside an edge for an
// endpoint the store has never seen, used to synthesize a placeholder node.
type GhostHint struct {
	Name string     `json:"name,omitempty"`
	Type EntityType `json:"type,omitempty"`
}
