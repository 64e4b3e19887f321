package httpapi

import (
	"encoding/json"
	"net/http"

	"lecturegen/internal/status"
)

// handleGetStatus returns the current Status for a prompt id, synthesizing
// the initial all-NOT_STARTED record if the id has never been observed.
func (s *Server) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	promptID := r.PathValue("promptId")
	respondJSON(w, http.StatusOK, s.Status.Get(promptID))
}

// handlePatchStatus applies a sparse StatusPatch to a prompt id's status.
func (s *Server) handlePatchStatus(w http.ResponseWriter, r *http.Request) {
	promptID := r.PathValue("promptId")

	var patch status.StatusPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	updated := s.Status.Update(r.Context(), promptID, patch)
	respondJSON(w, http.StatusNonAuthoritativeInfo, updated)
}
