package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lecturegen/internal/job"
	"lecturegen/internal/layout"
	"lecturegen/internal/llm"
	"lecturegen/internal/pipeline"
	"lecturegen/internal/postproc"
	"lecturegen/internal/slideworker"
	"lecturegen/internal/status"
	"lecturegen/internal/taskpool"
)

type noopReadCloser struct{}

func (noopReadCloser) Read(_ []byte) (int, error) { return 0, io.EOF }
func (noopReadCloser) Close() error                { return nil }

type noopSynth struct{}

func (noopSynth) Synthesize(_ context.Context, _ []byte, _ string) (io.ReadCloser, error) {
	return noopReadCloser{}, nil
}

type noopRenderer struct{}

func (noopRenderer) Render(_ context.Context, _ []byte, _ []byte) (io.ReadCloser, error) {
	return noopReadCloser{}, nil
}

type noopAssets struct{}

func (noopAssets) VoiceSample(_ string) ([]byte, error)  { return []byte("v"), nil }
func (noopAssets) SourceImage(_ string) ([]byte, error) { return []byte("i"), nil }

type noopRetriever struct{}

func (noopRetriever) Retrieve(_ context.Context, _, query string) (status.DocumentChunk, error) {
	return status.DocumentChunk{Content: []string{"chunk for " + query}}, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store := status.NewStore(time.Hour, nil)
	jobs := job.NewManager(time.Hour)
	pp := postproc.NewMock()
	queue := slideworker.New(store, noopSynth{}, noopRenderer{}, t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go queue.Run(ctx)

	pl := &pipeline.Pipeline{
		SplittingModel:         "split",
		SlidesGenModel:         "slides",
		LLM:                    llm.MockCompleter{},
		Retriever:              noopRetriever{},
		PostProc:               pp,
		Layouts:                layout.Load(),
		Status:                 store,
		Jobs:                   jobs,
		SlideQueue:             queue,
		Assets:                 noopAssets{},
		MaterializeConcurrency: 2,
	}

	pool := taskpool.New(16)
	pool.Start(ctx, 2)

	return NewServer(store, jobs, pp, pl, pool)
}

func TestHandleGetStatus_UnknownPromptReturnsInitial(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/status/unknown-id", nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var got status.Status
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, status.NotStarted, got.StepUnderstanding)
}

func TestHandlePatchStatus_AppliesPatchAndReturns203(t *testing.T) {
	s := newTestServer(t)
	inProgress := status.InProgress
	patch := status.StatusPatch{StepUnderstanding: &inProgress}
	body, _ := json.Marshal(patch)

	req := httptest.NewRequest(http.MethodPatch, "/status/p1/update", bytes.NewReader(body))
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	require.Equal(t, http.StatusNonAuthoritativeInfo, w.Code, w.Body.String())

	req2 := httptest.NewRequest(http.MethodGet, "/status/p1", nil)
	w2 := httptest.NewRecorder()
	s.ServeHTTP(w2, req2)
	var got status.Status
	require.NoError(t, json.Unmarshal(w2.Body.Bytes(), &got))
	assert.Equal(t, status.InProgress, got.StepUnderstanding)
}

func TestHandlePatchStatus_MalformedBodyReturns400(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPatch, "/status/p1/update", bytes.NewReader([]byte("not json")))
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlePostPrompt_AcceptsAndRunsInBackground(t *testing.T) {
	s := newTestServer(t)
	body := []byte(`{"prompt":"Explain for-loops","courseId":"cs001","userPersona":{"language":"en","role":"student"}}`)

	req := httptest.NewRequest(http.MethodPost, "/core/prompt", bytes.NewReader(body))
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	var resp promptAcceptedResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.PromptID)

	assert.Eventually(t, func() bool {
		got := s.Status.Get(resp.PromptID)
		return got.StepSlidePostprocessing == status.Done || got.StepSlidePostprocessing == status.Failed
	}, 2*time.Second, 5*time.Millisecond, "expected pipeline to reach a terminal postprocessing state in background")
}

func TestHandlePostPrompt_MissingFieldsReturns400(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/core/prompt", bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleGetSlidesStatus_UnknownPromptReturns404(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/slides/unknown/status", nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandlePostSlidesGenerate_ReturnsStructureAndFinishesInBackground(t *testing.T) {
	s := newTestServer(t)
	body := []byte(`{"courseId":"cs001","lectureScript":"For loops repeat actions.","user":{"language":"en","role":"student"}}`)

	req := httptest.NewRequest(http.MethodPost, "/v1/slides/generate", bytes.NewReader(body))
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	var resp generateSlidesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Structure.Pages)

	assert.Eventually(t, func() bool {
		rec, ok := s.Jobs.GetStatus(resp.PromptID)
		return ok && rec.DerivedStatus() != "IN_PROGRESS"
	}, 2*time.Second, 5*time.Millisecond, "expected slide materialization/postprocessing to finish in background")
}
