package avatar

import (
	"context"
	"io"
	"strings"
)

// Mock renders nothing and returns a fixed tiny payload standing in for an
// MP4, for local smoke testing without a reachable talking-head renderer.
type Mock struct{}

var _ Renderer = Mock{}

// Render implements Renderer.
func (Mock) Render(_ context.Context, _ []byte, _ []byte) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("mock-mp4-payload")), nil
}
