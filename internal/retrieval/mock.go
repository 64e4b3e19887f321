package retrieval

import (
	"context"

	"lecturegen/internal/status"
)

// Mock returns a single canned chunk for any query, mirroring the fixed demo
// retrieval payload used for local smoke testing without a reachable
// document-intelligence service.
type Mock struct{}

var _ Retriever = Mock{}

// Retrieve implements Retriever.
func (Mock) Retrieve(_ context.Context, _, query string) (status.DocumentChunk, error) {
	return status.DocumentChunk{
		Content: []string{
			"A for loop is a control flow statement for specifying iteration, allowing code to run repeatedly over a sequence or a range of numbers.",
			"In many languages a for loop is commonly paired with a counting range, executing its body once per value in that range.",
		},
		Images: []status.DocumentImage{
			{ImageBase64: "", Description: "Diagram illustrating a for-loop's initialization, condition, and increment."},
		},
		Score: 0.91,
	}, nil
}
