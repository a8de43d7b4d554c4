package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Respond serialises data as JSON and writes it with the given status.
// Passing nil data writes the status line and headers only.
func Respond(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")

	if data == nil {
		w.WriteHeader(status)
		return
	}

	body, err := json.Marshal(data)
	if err != nil {
		slog.Error("marshalling response body", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		slog.Error("writing response body", "error", err)
	}
}

// ErrorResponse is the JSON error envelope every endpoint uses: a stable
// machine-readable code plus an optional human-readable message.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// RespondError writes the standard error envelope.
func RespondError(w http.ResponseWriter, status int, code string, message string) {
	Respond(w, status, ErrorResponse{Error: code, Message: message})
}
