// Package response writes the JSON envelope every gateway endpoint answers
// with.
package response

import (
	"encoding/json"
	"net/http"
	"time"
)

// JSONResponse is the envelope. Exactly one of Data and Error is set.
type JSONResponse struct {
	Success   bool       `json:"success"`
	Data      any        `json:"data,omitempty"`
	Error     *ErrorBody `json:"error,omitempty"`
	Timestamp string     `json:"timestamp"`
}

// ErrorBody carries the HTTP code and, for failures reported by the client
// library, the xlink status code.
type ErrorBody struct {
	Code    int    `json:"code"`
	Status  int32  `json:"status,omitempty"`
	Message string `json:"message"`
}

func RespondJSON(w http.ResponseWriter, status int, payload any) {
	writeEnvelope(w, status, JSONResponse{Success: true, Data: payload})
}

func RespondError(w http.ResponseWriter, status int, msg string) {
	writeEnvelope(w, status, JSONResponse{Error: &ErrorBody{Code: status, Message: msg}})
}

// RespondStatusError is RespondError tagged with an xlink status code.
func RespondStatusError(w http.ResponseWriter, status int, code int32, msg string) {
	writeEnvelope(w, status, JSONResponse{Error: &ErrorBody{Code: status, Status: code, Message: msg}})
}

// RespondRaw writes v without the envelope. The relay protocol expects a
// bare object.
func RespondRaw(w http.ResponseWriter, status int, v any) {
	writeJSON(w, status, v)
}

func writeEnvelope(w http.ResponseWriter, status int, resp JSONResponse) {
	resp.Timestamp = time.Now().UTC().Format(time.RFC3339)
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
