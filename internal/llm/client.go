package llm

import (
	"context"
)

// LLMClient is the inference boundary the extraction step talks to.
type LLMClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
