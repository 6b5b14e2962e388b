package httpd

import (
	"encoding/json"
	"net/http"
	"time"
)

// Response is the JSON envelope of the built-in routes.
type Response struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// JSON writes data with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; an encoding error cannot be reported.
	_ = json.NewEncoder(w).Encode(data)
}

// OKResponse wraps data in a successful envelope.
func OKResponse(data any) Response {
	return Response{Status: "ok", Timestamp: time.Now().UTC(), Data: data}
}
