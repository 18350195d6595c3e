// internal/controller/respond.go
package controller

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	appErrors "github.com/unclebandit/helpflow-backend/internal/errors"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError logs the detail and answers with the status for the error's kind. Server-side
// failures get the generic message; client errors echo a short description.
func writeError(w http.ResponseWriter, r *http.Request, err error, generic string) {
	kind := appErrors.KindOf(err)
	status := appErrors.HTTPStatus(kind)
	if status >= http.StatusInternalServerError {
		log.Ctx(r.Context()).Error().Err(err).Msg(generic)
		writeJSON(w, status, errorBody{Error: generic})
		return
	}
	log.Ctx(r.Context()).Warn().Err(err).Str("kind", string(kind)).Msg("request rejected")
	writeJSON(w, status, errorBody{Error: clientMessage(kind)})
}

func clientMessage(kind appErrors.Kind) string {
	switch kind {
	case appErrors.KindMissingFields:
		return "Missing required fields"
	case appErrors.KindMalformedPayload:
		return "Invalid request"
	case appErrors.KindNotFound:
		return "Not found"
	case appErrors.KindForbidden:
		return "Forbidden"
	case appErrors.KindIllegalTransition:
		return "Conflict"
	default:
		return "Bad request"
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 64*1024)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid body"})
		return false
	}
	return true
}
