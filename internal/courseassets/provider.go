// Package courseassets resolves the per-course reference voice sample and
// avatar source image the slide worker needs for TTS cloning and talking-head
// rendering. The pipeline spec treats these as "course-scoped" without
// dictating storage; this provider reads them from a flat directory
// convention, which is the simplest thing that satisfies that contract.
package courseassets

import (
	"fmt"
	"os"
	"path/filepath"
)

// Provider resolves course-scoped binary assets from a root directory laid
// out as <root>/<courseId>/voice.mp3 and <root>/<courseId>/source.png.
type Provider struct {
	root string
}

// NewProvider builds a Provider rooted at root.
func NewProvider(root string) *Provider {
	return &Provider{root: root}
}

// VoiceSample returns the reference voice audio for courseID.
func (p *Provider) VoiceSample(courseID string) ([]byte, error) {
	return p.read(courseID, "voice.mp3")
}

// SourceImage returns the avatar source face image for courseID.
func (p *Provider) SourceImage(courseID string) ([]byte, error) {
	return p.read(courseID, "source.png")
}

func (p *Provider) read(courseID, filename string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(p.root, courseID, filename))
	if err != nil {
		return nil, fmt.Errorf("courseassets: read %s for course %s: %w", filename, courseID, err)
	}
	return data, nil
}
