package core

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/inkhaven/canonforge/internal/config"
	"github.com/inkhaven/canonforge/internal/core/extraction"
)

type executedQuery struct {
	Query  string
	Params map[string]interface{}
}

type MockDriver struct {
	Executed   []executedQuery
	MockResult neo4j.EagerResult
	// MockResults answers specific queries; others fall back to MockResult.
	MockResults map[string]neo4j.EagerResult
	Err         error
}

func (m *MockDriver) ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	m.Executed = append(m.Executed, executedQuery{Query: query, Params: params})
	if m.Err != nil {
		return neo4j.EagerResult{}, m.Err
	}
	if res, ok := m.MockResults[query]; ok {
		return res, nil
	}
	return m.MockResult, nil
}

// record builds a query result row from alternating key/value pairs.
func record(kv ...interface{}) *neo4j.Record {
	rec := &neo4j.Record{}
	for i := 0; i+1 < len(kv); i += 2 {
		rec.Keys = append(rec.Keys, kv[i].(string))
		rec.Values = append(rec.Values, kv[i+1])
	}
	return rec
}

func (m *MockDriver) BuildIndices(ctx context.Context) error {
	return nil
}

func (m *MockDriver) Close(ctx context.Context) error {
	return nil
}

type mockResponse struct {
	Text string
	Err  error
}

type MockLLM struct {
	Queue []mockResponse
}

func (m *MockLLM) Generate(ctx context.Context, prompt string) (string, error) {
	if len(m.Queue) == 0 {
		return `{"candidates": []}`, nil
	}
	resp := m.Queue[0]
	m.Queue = m.Queue[1:]
	return resp.Text, resp.Err
}

// newTestEngine builds an in-memory engine with deterministic ids and time.
func newTestEngine(responses ...mockResponse) (*Engine, *MockLLM) {
	mockLLM := &MockLLM{Queue: responses}
	extractor := extraction.NewExtractor(mockLLM, config.ExtractionPrompts{Candidates: "extract: %s"})

	e := NewEngine(nil, extractor, nil)

	n := 0
	e.UUIDGenerator = func() string {
		n++
		return fmt.Sprintf("uuid-%d", n)
	}
	tick := 0
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	e.Now = clock
	e.Graph.Now = clock
	e.Graph.NewID = e.UUIDGenerator
	return e, mockLLM
}
