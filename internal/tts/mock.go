package tts

import (
	"context"
	"io"
	"strings"
)

// silentWAV is a minimal valid 16 kHz mono 16-bit PCM WAV file whose data
// chunk is empty (no samples), enough to let
// downstream code (the avatar mock, file persistence) run unmodified.
var silentWAV = []byte{
	'R', 'I', 'F', 'F', 36, 0, 0, 0, 'W', 'A', 'V', 'E',
	'f', 'm', 't', ' ', 16, 0, 0, 0, 1, 0, 1, 0,
	0x80, 0x3e, 0, 0, 0, 0x7d, 0, 0, 2, 0, 16, 0,
	'd', 'a', 't', 'a', 0, 0, 0, 0,
}

// Mock synthesizes nothing and returns a fixed silent WAV, for local smoke
// testing without a reachable TTS service.
type Mock struct{}

var _ Synthesizer = Mock{}

// Synthesize implements Synthesizer.
func (Mock) Synthesize(_ context.Context, _ []byte, _ string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(string(silentWAV))), nil
}
