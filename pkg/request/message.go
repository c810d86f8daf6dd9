// Package request holds the JSON responses of the monitoring server.
package request

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Jacobbrewer1/ticketwolf/pkg/logging"
)

// ErrInternalServer is the message returned when a handler panics.
var ErrInternalServer = errors.New("internal server error")

// Message is a plain JSON message response.
type Message struct {
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// NewMessage creates a new Message. Args are applied as fmt verbs when given.
func NewMessage(message string, args ...any) *Message {
	if len(args) > 0 {
		message = fmt.Sprintf(message, args...)
	}
	return &Message{
		Message: message,
	}
}

// WriteJSON writes v with the given status code.
func WriteJSON(l *slog.Logger, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		l.Error("Error encoding response", slog.String(logging.KeyError, err.Error()))
	}
}
