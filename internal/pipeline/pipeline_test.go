package pipeline

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lecturegen/internal/job"
	"lecturegen/internal/layout"
	"lecturegen/internal/llm"
	"lecturegen/internal/postproc"
	"lecturegen/internal/slideworker"
	"lecturegen/internal/status"
)

type scriptedCompleter struct {
	calls int
}

func (c *scriptedCompleter) Complete(_ context.Context, _ string, messages []llm.Message, _ float64, _ int) (string, error) {
	c.calls++
	last := messages[len(messages)-1].Content
	switch {
	case strings.Contains(last, "Decompose"):
		return `{"original_question":"Explain for-loops","subqueries":["for loops definition"]}`, nil
	case strings.Contains(last, "coherent lecture script"):
		return `{"text":"For loops repeat actions.","assets":[]}`, nil
	case strings.Contains(last, "ordered slide drafts"):
		return `{"pages":[{"index":1,"content":"Intro","layoutName":"cover"},{"index":2,"content":"Body","layoutName":"default"}]}`, nil
	case strings.Contains(last, "Fill the following fields"):
		return `{"Headline":"Demo","Content":"Body text","Title":"Cover Title","Subtitle":"Sub"}`, nil
	case strings.Contains(last, "Narrate"):
		return "This is narration text.", nil
	case strings.Contains(last, "Summarize"):
		return "A short summary.", nil
	default:
		return "{}", nil
	}
}

type fakeRetriever struct{}

func (fakeRetriever) Retrieve(_ context.Context, _, query string) (status.DocumentChunk, error) {
	return status.DocumentChunk{Content: []string{fmt.Sprintf("content for %s", query)}}, nil
}

type fakeAssets struct{}

func (fakeAssets) VoiceSample(_ string) ([]byte, error)  { return []byte("voice"), nil }
func (fakeAssets) SourceImage(_ string) ([]byte, error) { return []byte("image"), nil }

func newTestPipeline(t *testing.T) (*Pipeline, *status.Store, *job.Manager) {
	t.Helper()
	store := status.NewStore(time.Hour, nil)
	jobs := job.NewManager(time.Hour)
	queue := slideworker.New(store, noopSynth{}, noopRenderer{}, t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go queue.Run(ctx)

	p := &Pipeline{
		SplittingModel:         "split-model",
		SlidesGenModel:         "slides-model",
		LLM:                    &scriptedCompleter{},
		Retriever:              fakeRetriever{},
		PostProc:               postproc.NewMock(),
		Layouts:                layout.Load(),
		Status:                 store,
		Jobs:                   jobs,
		SlideQueue:             queue,
		Assets:                 fakeAssets{},
		MaterializeConcurrency: 2,
	}
	return p, store, jobs
}

func TestPipeline_RunReachesAllStepsDone(t *testing.T) {
	p, store, jobs := newTestPipeline(t)
	req := status.PromptRequest{
		PromptID: "p1",
		CourseID: "cs001",
		Prompt:   "Explain for-loops",
		UserPersona: status.Persona{
			Language: status.LanguageEN,
			Role:     status.RoleStudent,
			Preferences: status.Preferences{
				ExpertiseLevel: "beginner",
			},
		},
	}

	p.Run(context.Background(), req)

	got := store.Get("p1")
	assert.Equal(t, status.Done, got.StepUnderstanding)
	assert.Equal(t, status.Done, got.StepLookup)
	assert.Equal(t, status.Done, got.StepLectureScriptGeneration)
	assert.Equal(t, status.Done, got.StepSlideStructureGeneration)
	assert.Equal(t, status.Done, got.StepSlidePostprocessing)
	assert.Equal(t, 2, got.StepSlideGeneration)
	require.Len(t, got.StepsAvatarGeneration, 2)

	rec, ok := jobs.GetStatus("p1")
	require.True(t, ok, "expected job record to exist")
	assert.Equal(t, "DONE", rec.DerivedStatus())

	assert.Eventually(t, func() bool {
		got = store.Get("p1")
		for _, slot := range got.StepsAvatarGeneration {
			if slot.Video != status.Done {
				return false
			}
		}
		return true
	}, 2*time.Second, 5*time.Millisecond, "expected all slides rendered")
}

type noopSynth struct{}

func (noopSynth) Synthesize(_ context.Context, _ []byte, _ string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("wav-bytes")), nil
}

type noopRenderer struct{}

func (noopRenderer) Render(_ context.Context, _ []byte, _ []byte) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("mp4-bytes")), nil
}
