package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"lecturegen/internal/status"
)

type promptRequestBody struct {
	Prompt      string         `json:"prompt"`
	CourseID    string         `json:"courseId"`
	UserPersona status.Persona `json:"userPersona"`
}

type promptAcceptedResponse struct {
	PromptID string `json:"promptId"`
}

// handlePostPrompt accepts a study prompt, assigns it a prompt id, and
// submits the full prompt-to-video pipeline to the shared task pool.
// Processing runs in the background; the handler returns as soon as the
// job is queued.
func (s *Server) handlePostPrompt(w http.ResponseWriter, r *http.Request) {
	var body promptRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if body.Prompt == "" || body.CourseID == "" {
		respondError(w, http.StatusBadRequest, errors.New("prompt and courseId are required"))
		return
	}

	req := status.PromptRequest{
		PromptID:    uuid.NewString(),
		CourseID:    body.CourseID,
		Prompt:      body.Prompt,
		UserPersona: body.UserPersona,
	}

	s.Pool.Submit(func(ctx context.Context) {
		s.Pipeline.Run(ctx, req)
	})

	respondJSON(w, http.StatusAccepted, promptAcceptedResponse{PromptID: req.PromptID})
}
