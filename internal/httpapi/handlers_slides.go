package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"lecturegen/internal/status"
)

type generateSlidesRequest struct {
	CourseID      string                `json:"courseId"`
	PromptID      string                `json:"promptId"`
	LectureScript string                `json:"lectureScript"`
	User          status.Persona        `json:"user"`
	Assets        []status.LectureAsset `json:"assets"`
}

type generateSlidesResponse struct {
	PromptID  string                `json:"promptId"`
	Status    string                `json:"status"`
	CreatedAt time.Time             `json:"createdAt"`
	Structure status.SlideStructure `json:"structure"`
}

// handlePostSlidesGenerate initiates phases 4-6 of the pipeline (slide
// structuring, per-slide materialization, post-processing upload) for a
// caller that already has a lecture script. Phase 4 runs in-line; the
// fan-out (phases 5-6) is submitted to the shared task pool and the
// response is returned as soon as the structure is known.
func (s *Server) handlePostSlidesGenerate(w http.ResponseWriter, r *http.Request) {
	var body generateSlidesRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if body.CourseID == "" || body.LectureScript == "" {
		respondError(w, http.StatusBadRequest, errors.New("courseId and lectureScript are required"))
		return
	}
	if body.PromptID == "" {
		body.PromptID = uuid.NewString()
	}

	req := status.PromptRequest{
		PromptID:    body.PromptID,
		CourseID:    body.CourseID,
		UserPersona: body.User,
	}

	structure, ok := s.Pipeline.GenerateSlideStructure(r.Context(), req, body.LectureScript, body.Assets)
	if !ok {
		respondError(w, http.StatusBadGateway, errors.New("slide structure generation failed"))
		return
	}

	s.Pool.Submit(func(ctx context.Context) {
		s.Pipeline.ContinueSlideGeneration(ctx, req, structure.Pages, body.Assets)
	})

	respondJSON(w, http.StatusAccepted, generateSlidesResponse{
		PromptID:  req.PromptID,
		Status:    string(s.Status.Get(req.PromptID).StepSlideStructureGeneration),
		CreatedAt: time.Now().UTC(),
		Structure: structure,
	})
}

type slidesStatusResponse struct {
	PromptID       string     `json:"promptId"`
	Status         string     `json:"status"`
	TotalPages     *int       `json:"totalPages,omitempty"`
	GeneratedPages *int       `json:"generatedPages,omitempty"`
	LastUpdated    *time.Time `json:"lastUpdated,omitempty"`
	WebURL         string     `json:"webUrl,omitempty"`
	PDFURL         string     `json:"pdfUrl,omitempty"`
}

// handleGetSlidesStatus answers the slides sub-pipeline's coarse progress
// independent of avatar rendering. If the job manager has no record (either
// never started, or evicted past its TTL), it consults the post-processor
// once for an already-persisted slideset before reporting 404.
func (s *Server) handleGetSlidesStatus(w http.ResponseWriter, r *http.Request) {
	promptID := r.PathValue("promptId")

	rec, ok := s.Jobs.GetStatus(promptID)
	if ok {
		total, achieved := rec.Total, rec.Achieved
		updated := rec.LastUpdated
		respondJSON(w, http.StatusOK, slidesStatusResponse{
			PromptID:       promptID,
			Status:         rec.DerivedStatus(),
			TotalPages:     &total,
			GeneratedPages: &achieved,
			LastUpdated:    &updated,
			WebURL:         rec.WebURL,
			PDFURL:         rec.PDFURL,
		})
		return
	}

	result, found, err := s.PostProc.Get(r.Context(), promptID)
	if err != nil {
		respondError(w, statusFromError(err), err)
		return
	}
	if !found {
		respondError(w, http.StatusNotFound, errors.New("unknown prompt id"))
		return
	}

	respondJSON(w, http.StatusOK, slidesStatusResponse{
		PromptID: promptID,
		Status:   "DONE",
		WebURL:   result.WebURL,
		PDFURL:   result.PDFURL,
	})
}
