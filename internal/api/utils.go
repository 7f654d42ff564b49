// Package api holds the HTTP helpers shared by every feature handler: the
// uniform response envelope, request body decoding, and the mapping from
// domain errors to status codes.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/bugsage/bugsage/internal/types"
)

// SuccessResponse writes the uniform envelope {success, message, ...data}.
// Keys in data are merged into the top level of the envelope.
func SuccessResponse(w http.ResponseWriter, r *http.Request, message string, data map[string]interface{}) {
	resp := map[string]interface{}{
		"success": true,
		"message": message,
	}
	for k, v := range data {
		resp[k] = v
	}
	WriteJSONResponse(w, r, http.StatusOK, resp)
}

// ErrorResponse writes a standard JSON error envelope.
func ErrorResponse(w http.ResponseWriter, r *http.Request, status int, message string) {
	resp := map[string]interface{}{
		"success": false,
		"message": message,
	}
	WriteJSONResponse(w, r, status, resp)
}

// DomainErrorResponse maps a domain error to its status code and client
// message. Unrecognized errors become a generic 500: raw database errors must
// never reach the client, so the detail is logged server-side only.
func DomainErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, types.ErrValidation):
		ErrorResponse(w, r, http.StatusBadRequest, clientMessage(err, types.ErrValidation))
	case errors.Is(err, types.ErrUnauthenticated):
		ErrorResponse(w, r, http.StatusUnauthorized, clientMessage(err, types.ErrUnauthenticated))
	case errors.Is(err, types.ErrForbidden):
		ErrorResponse(w, r, http.StatusForbidden, clientMessage(err, types.ErrForbidden))
	case errors.Is(err, types.ErrNotFound):
		ErrorResponse(w, r, http.StatusNotFound, clientMessage(err, types.ErrNotFound))
	case errors.Is(err, types.ErrConflict):
		ErrorResponse(w, r, http.StatusBadRequest, clientMessage(err, types.ErrConflict))
	default:
		reqID := middleware.GetReqID(r.Context())
		slog.ErrorContext(r.Context(), "Internal error handling request",
			slog.Any("error", err),
			slog.String("request_id", reqID),
		)
		ErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
	}
}

// clientMessage prefers the contextual prefix a service attached over the
// bare sentinel text, e.g. "Passwords do not match: invalid input" -> the
// full wrapped string reads poorly, so services wrap as "<message>: %w" and
// we strip the sentinel suffix here.
func clientMessage(err error, sentinel error) string {
	msg := err.Error()
	suffix := ": " + sentinel.Error()
	if strings.HasSuffix(msg, suffix) {
		return strings.TrimSuffix(msg, suffix)
	}
	return msg
}

// WriteJSONResponse encodes the data to JSON and writes the response.
func WriteJSONResponse(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}

	js, err := json.Marshal(data)
	if err != nil {
		reqID := middleware.GetReqID(r.Context())
		slog.ErrorContext(r.Context(), "Failed to marshal JSON response",
			slog.Any("error", err),
			slog.String("request_id", reqID),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err = w.Write(js); err != nil {
		reqID := middleware.GetReqID(r.Context())
		slog.ErrorContext(r.Context(), "Failed to write response body",
			slog.Any("error", err),
			slog.String("request_id", reqID),
		)
	}
}

// DecodeJSONBody reads and decodes a JSON request body safely.
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	maxBytes := 1_048_576
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)

	err := dec.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError
		var maxBytesError *http.MaxBytesError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)

		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")

		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)

		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")

		case errors.As(err, &maxBytesError):
			return fmt.Errorf("body must not be larger than %d bytes", maxBytesError.Limit)

		case errors.As(err, &invalidUnmarshalError):
			panic(fmt.Errorf("developer error: invalid argument passed to json.Unmarshal: %w", err))

		default:
			return fmt.Errorf("error decoding JSON body: %w", err)
		}
	}

	err = dec.Decode(&struct{}{})
	if !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}

	return nil
}
