package stub

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// detailError mirrors the error payload of the real backend: a 'detail' field
// that is either a plain message or, for validation failures, a list of
// per-field entries
type detailError struct {
	Detail interface{} `json:"detail"`
}

// fieldDetail is one entry of a validation failure detail
type fieldDetail struct {
	Loc  []interface{} `json:"loc"`
	Msg  string        `json:"msg"`
	Type string        `json:"type"`
}

// writer helps writing unified stub API responses
type writer struct{}

// WriteJSONCode writes the JSON representation of value to the given response
// writer using the given HTTP status code
func (w *writer) WriteJSONCode(rw http.ResponseWriter, code int, value interface{}) {
	val, _ := json.Marshal(value)
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(code)
	rw.Write(val)
}

// WriteJSON writes the JSON representation of value with 200 OK
func (w *writer) WriteJSON(rw http.ResponseWriter, value interface{}) {
	w.WriteJSONCode(rw, http.StatusOK, value)
}

// WriteError sends a plain error response
func (w *writer) WriteError(rw http.ResponseWriter, code int, message string) {
	w.WriteJSONCode(rw, code, &detailError{Detail: message})
}

// WriteValidationErrors sends a 422 response with per-field detail
func (w *writer) WriteValidationErrors(rw http.ResponseWriter, fields ...fieldDetail) {
	w.WriteJSONCode(rw, http.StatusUnprocessableEntity, &detailError{Detail: fields})
}

// WriteInternalError processes an unexpected error and writes it to the response
func (w *writer) WriteInternalError(rw http.ResponseWriter, err error) {
	log.Error().Err(err).Msg("the stub backend experienced an unexpected error")
	w.WriteError(rw, http.StatusInternalServerError, "internal error")
}
