package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/JakeFAU/compliance-gateway/internal/compliance"
)

const (
	maxBodyBytes     = 1 << 20
	invalidJSON      = "Invalid JSON payload"
	genericServerMsg = "internal server error"
)

// decodeJSON reads exactly one JSON value into dst. An empty body leaves dst
// zeroed so the caller reports missing fields; anything undecodable, a field
// of the wrong type, or trailing data after the value is a validation failure.
//
// Callers treat an empty string as a missing field. This is stricter than the
// original Flask handlers, which only checked that the key was present.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return compliance.Validation(invalidJSON)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return compliance.Validation(invalidJSON)
	}
	return nil
}

// classify tags untyped store errors with kind; typed errors pass through.
func classify(kind compliance.Kind, op string, err error) error {
	var ce *compliance.Error
	if errors.As(err, &ce) {
		return err
	}
	return compliance.Wrap(kind, op, err)
}

// failureWriter converts typed errors into JSON error bodies.
type failureWriter struct {
	exposeDetails bool
	logger        *zap.Logger
}

// write is the single place where errors become HTTP statuses.
func (f failureWriter) write(w http.ResponseWriter, r *http.Request, err error) {
	kind := compliance.KindOf(err)
	msg := f.message(kind, err)
	fields := []zap.Field{
		zap.String("kind", kind.String()),
		zap.String("path", r.URL.Path),
		zap.String("request_id", RequestID(r.Context())),
		zap.Error(err),
	}
	if kind.ClientFault() {
		f.logger.Warn("request rejected", fields...)
	} else {
		f.logger.Error("request failed", fields...)
	}
	writeError(w, kind.Status(), msg)
}

func (f failureWriter) message(kind compliance.Kind, err error) string {
	var ce *compliance.Error
	if !errors.As(err, &ce) {
		if f.exposeDetails {
			return err.Error()
		}
		return genericServerMsg
	}
	// Client faults and dispatch failures carry fixed, safe messages.
	if kind.ClientFault() || ce.Message != "" || f.exposeDetails {
		return ce.Public()
	}
	return genericServerMsg
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
