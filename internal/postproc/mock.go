package postproc

import (
	"context"
	"sync"
)

// Mock persists uploads in memory, standing in for the real post-processor
// during local smoke testing without a reachable service.
type Mock struct {
	mu      sync.Mutex
	results map[string]Result
}

var _ Processor = (*Mock)(nil)

// NewMock constructs an empty Mock.
func NewMock() *Mock {
	return &Mock{results: make(map[string]Result)}
}

// Upload implements Processor.
func (m *Mock) Upload(_ context.Context, promptID, _, _ string, _ []Asset) (Result, error) {
	result := Result{
		WebURL: "https://mock.local/decks/" + promptID,
		PDFURL: "https://mock.local/decks/" + promptID + ".pdf",
	}
	m.mu.Lock()
	m.results[promptID] = result
	m.mu.Unlock()
	return result, nil
}

// Get implements Processor.
func (m *Mock) Get(_ context.Context, promptID string) (Result, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.results[promptID]
	return r, ok, nil
}
