// Package extraction is the boundary to the external inference service that
// turns raw document text into entity candidates. Its output is untrusted:
// responses are defensively parsed and validated here, never deeper in the
// pipeline.
package extraction

import (
	"context"
	"errors"
	"fmt"

	"github.com/inkhaven/canonforge/internal/config"
	"github.com/inkhaven/canonforge/internal/core/common"
	"github.com/inkhaven/canonforge/internal/core/model"
	"github.com/inkhaven/canonforge/internal/llm"
)

// ErrUnparseable marks a response that was not valid structured data. The
// caller treats it as zero candidates for that document, not a pass failure.
var ErrUnparseable = errors.New("extraction response is not valid JSON")

type Extractor struct {
	LLM     llm.LLMClient
	Prompts config.ExtractionPrompts
}

func NewExtractor(llmClient llm.LLMClient, prompts config.ExtractionPrompts) *Extractor {
	return &Extractor{
		LLM:     llmClient,
		Prompts: prompts,
	}
}

// ExtractCandidates runs one document through the inference service and
// returns the validated candidate list. A legal response may be empty.
func (e *Extractor) ExtractCandidates(ctx context.Context, documentText string) ([]model.EntityCandidate, error) {
	prompt := fmt.Sprintf(e.Prompts.Candidates, documentText)

	response, err := e.LLM.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate candidates: %w", err)
	}

	result, err := common.ParseJSON[model.ExtractedCandidates](response)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}

	return sanitize(result.Candidates), nil
}

// sanitize enforces the boundary contract: nameless candidates are dropped,
// unknown types default to CONCEPT, confidence is clamped to 0-100.
func sanitize(candidates []model.EntityCandidate) []model.EntityCandidate {
	out := make([]model.EntityCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Name == "" {
			continue
		}
		if !c.Type.Valid() {
			c.Type = model.TypeConcept
		}
		if c.Confidence < 0 {
			c.Confidence = 0
		}
		if c.Confidence > 100 {
			c.Confidence = 100
		}
		out = append(out, c)
	}
	return out
}
