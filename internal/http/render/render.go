// Package render writes JSON responses and decodes JSON request bodies for
// the HTTP handlers.
package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

// ErrEmptyBody is returned by Decode when the request carried no JSON at all.
var ErrEmptyBody = errors.New("request body is empty")

// JSON writes payload with status.
func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

// ErrorBody is the error envelope returned by every endpoint.
type ErrorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Error writes {"error": code, "details": details}.
func Error(w http.ResponseWriter, status int, code, details string) {
	JSON(w, status, ErrorBody{Error: code, Details: details})
}

// Decode reads a JSON body into dst, rejecting unknown shapes and oversized bodies.
func Decode(r *http.Request, dst any) error {
	body := io.LimitReader(r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptyBody
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// IDParam parses the named chi URL parameter as a positive int64.
func IDParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return id, nil
}

// BadRequest writes a 400 validation_failed response.
func BadRequest(w http.ResponseWriter, details string) {
	Error(w, http.StatusBadRequest, "validation_failed", details)
}

// Internal writes a generic 500 response.
func Internal(w http.ResponseWriter) {
	Error(w, http.StatusInternalServerError, "internal_error", "internal server error")
}
