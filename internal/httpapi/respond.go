package httpapi

import (
	"encoding/json"
	"net/http"

	"lecturegen/internal/apperr"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, map[string]string{"error": err.Error()})
}

// statusFromError maps an apperr.Kind to its HTTP status code. Untyped
// errors count as CollaboratorUnavailable (see apperr.KindOf) and so map to
// 502; ShuttingDown and unrecognized kinds map to 500.
func statusFromError(err error) int {
	switch apperr.KindOf(err) {
	case apperr.BadRequest:
		return http.StatusBadRequest
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.CollaboratorUnavailable:
		return http.StatusBadGateway
	case apperr.MalformedLLMOutput:
		return http.StatusBadGateway
	case apperr.FilesystemError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
