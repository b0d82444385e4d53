package model

// EntityType classifies what kind of narrative entity a record describes.
type EntityType string

const (
	TypeCharacter EntityType = "CHARACTER"
	TypeLocation  EntityType = "LOCATION"
	TypeObject    EntityType = "OBJECT"
	TypeEvent     EntityType = "EVENT"
	TypeFaction   EntityType = "FACTION"
	TypeConcept   EntityType = "CONCEPT"
)

func (t EntityType) Valid() bool {
	switch t {
	case TypeCharacter, TypeLocation, TypeObject, TypeEvent, TypeFaction, TypeConcept:
		return true
	}
	return false
}

// Evidence is one provenance entry: where a claim about an entity came from.
type Evidence struct {
	SourceID string `json:"source_id"`
	Snippet  string `json:"snippet"`
}

// EntityCandidate is an ephemeral record emitted by the extraction service.
// It never reaches the roster directly; every candidate passes through
// collection and resolution first.
type EntityCandidate struct {
	Name        string     `json:"name"`
	Type        EntityType `json:"type"`
	Subtype     string     `json:"subtype,omitempty"`
	Confidence  int        `json:"confidence"` // 0-100
	Description string     `json:"description,omitempty"`
	Evidence    []Evidence `json:"evidence,omitempty"`
}

// ExtractedCandidates is the wire shape the extraction service returns.
type ExtractedCandidates struct {
	Candidates []EntityCandidate `json:"candidates"`
}
