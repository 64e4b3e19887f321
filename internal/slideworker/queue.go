// Package slideworker runs a single long-lived consumer over a process-wide
// FIFO queue of per-slide audio+video rendering tasks, serializing access to
// the GPU-bound TTS and talking-head collaborators.
package slideworker

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"lecturegen/internal/apperr"
	"lecturegen/internal/avatar"
	"lecturegen/internal/status"
	"lecturegen/internal/tts"
)

// Task is one slide's narration waiting to be rendered to audio and video.
// SlideIndex is 1-based; it names the <i>.wav/<i>.mp4 output files and maps
// to avatar slot SlideIndex-1 in the status record.
type Task struct {
	PromptID      string
	SlideIndex    int
	NarrationText string
	VoiceSample   []byte
	SourceImage   []byte
}

// Queue is a single-consumer, multi-producer FIFO of Tasks backed by a
// channel buffered to 4096 entries. Enqueue returns immediately while fewer
// than 4096 tasks are waiting and blocks once the buffer is full; the
// consumer goroutine started by Run blocks on an empty queue.
type Queue struct {
	tasks      chan Task
	statusStor *status.Store
	tts        tts.Synthesizer
	avatar     avatar.Renderer
	videoRoot  string
}

// New builds a Queue. videoRoot is the filesystem root under which each
// prompt gets its own <promptId>/ workspace for <i>.wav and <i>.mp4 output.
func New(statusStore *status.Store, synth tts.Synthesizer, renderer avatar.Renderer, videoRoot string) *Queue {
	return &Queue{
		tasks:      make(chan Task, 4096),
		statusStor: statusStore,
		tts:        synth,
		avatar:     renderer,
		videoRoot:  videoRoot,
	}
}

// Enqueue submits a task for processing. It blocks only when 4096 tasks are
// already waiting.
func (q *Queue) Enqueue(t Task) {
	q.tasks <- t
}

// Run is the queue's single consumer loop. It processes tasks strictly in
// enqueue order until ctx is cancelled, at which point it stops between
// tasks rather than mid-task.
func (q *Queue) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-q.tasks:
			q.process(ctx, t)
		}
	}
}

func (q *Queue) process(ctx context.Context, t Task) {
	logger := log.With().Str("promptId", t.PromptID).Int("slide", t.SlideIndex).Logger()
	workDir := filepath.Join(q.videoRoot, t.PromptID)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		logger.Error().Err(err).Msg("slideworker: failed to create prompt workspace")
		q.patchAudio(ctx, t.PromptID, t.SlideIndex, status.Failed)
		q.patchVideo(ctx, t.PromptID, t.SlideIndex, status.Failed)
		return
	}

	q.patchAudio(ctx, t.PromptID, t.SlideIndex, status.InProgress)
	wavPath := filepath.Join(workDir, fmt.Sprintf("%d.wav", t.SlideIndex))
	audioBytes, err := q.synthesizeToFile(ctx, t, wavPath)
	if err != nil {
		logger.Error().Err(err).Msg("slideworker: audio synthesis failed")
		q.patchAudio(ctx, t.PromptID, t.SlideIndex, status.Failed)
		return
	}
	q.patchAudio(ctx, t.PromptID, t.SlideIndex, status.Done)

	q.patchVideo(ctx, t.PromptID, t.SlideIndex, status.InProgress)
	if err := q.renderToFile(ctx, t, audioBytes, workDir); err != nil {
		logger.Error().Err(err).Msg("slideworker: video rendering failed")
		q.patchVideo(ctx, t.PromptID, t.SlideIndex, status.Failed)
		return
	}
	q.patchVideo(ctx, t.PromptID, t.SlideIndex, status.Done)
}

func (q *Queue) synthesizeToFile(ctx context.Context, t Task, wavPath string) ([]byte, error) {
	body, err := q.tts.Synthesize(ctx, t.VoiceSample, t.NarrationText)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read tts stream: %w", err)
	}
	if err := os.WriteFile(wavPath, data, 0o644); err != nil {
		return nil, apperr.New(apperr.FilesystemError, fmt.Errorf("write wav: %w", err))
	}
	return data, nil
}

func (q *Queue) renderToFile(ctx context.Context, t Task, audio []byte, workDir string) error {
	body, err := q.avatar.Render(ctx, audio, t.SourceImage)
	if err != nil {
		return err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("read avatar stream: %w", err)
	}
	if len(data) == 0 {
		return fmt.Errorf("avatar renderer returned an empty body")
	}

	finalPath := filepath.Join(workDir, fmt.Sprintf("%d.mp4", t.SlideIndex))
	partPath := filepath.Join(workDir, fmt.Sprintf(".%d.mp4.part", t.SlideIndex))
	if err := os.WriteFile(partPath, data, 0o644); err != nil {
		return apperr.New(apperr.FilesystemError, fmt.Errorf("write mp4 part: %w", err))
	}
	if err := os.Rename(partPath, finalPath); err != nil {
		return apperr.New(apperr.FilesystemError, fmt.Errorf("rename mp4 part: %w", err))
	}
	return nil
}

func (q *Queue) patchAudio(ctx context.Context, promptID string, slideIndex int, s status.StepStatus) {
	q.patchSlot(ctx, promptID, slideIndex, func(slot *status.AvatarElementStatus) { slot.Audio = s })
}

func (q *Queue) patchVideo(ctx context.Context, promptID string, slideIndex int, s status.StepStatus) {
	q.patchSlot(ctx, promptID, slideIndex, func(slot *status.AvatarElementStatus) { slot.Video = s })
}

func (q *Queue) patchSlot(ctx context.Context, promptID string, slideIndex int, mutate func(*status.AvatarElementStatus)) {
	idx := slideIndex - 1
	current := q.statusStor.Get(promptID)
	var slot status.AvatarElementStatus
	if idx >= 0 && idx < len(current.StepsAvatarGeneration) {
		slot = current.StepsAvatarGeneration[idx]
	}
	mutate(&slot)

	key := fmt.Sprintf("%d", idx)
	q.statusStor.Update(ctx, promptID, status.StatusPatch{
		StepsAvatarGeneration: map[string]status.AvatarElementStatus{key: slot},
	})
}
