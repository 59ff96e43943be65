package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrijs2005/catalogkeeper/internal/logging"
)

const maxBodyBytes = 1 << 20

var errEmptyBody = errors.New("body must not be empty")

type messageResponse struct {
	Message string `json:"message"`
}

// WriteJSONResponse encodes data as the response body with the given status.
func WriteJSONResponse(w http.ResponseWriter, r *http.Request, logger logging.Logger, status int, data any) {
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}

	js, err := json.Marshal(data)
	if err != nil {
		logger.Error(r.Context(), "failed to marshal JSON response",
			"error", err, "request_id", middleware.GetReqID(r.Context()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(js); err != nil {
		logger.Warn(r.Context(), "failed to write response body",
			"error", err, "request_id", middleware.GetReqID(r.Context()))
	}
}

// WriteMessage writes {"message": msg}.
func WriteMessage(w http.ResponseWriter, r *http.Request, logger logging.Logger, status int, msg string) {
	WriteJSONResponse(w, r, logger, status, messageResponse{Message: msg})
}

// DecodeJSONBody reads exactly one JSON object into dst. Unknown fields,
// trailing data and bodies over 1MiB are rejected with a client-safe error.
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
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
			return errEmptyBody
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			field := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
			return fmt.Errorf("body contains unknown key %q", field)
		case errors.As(err, &maxBytesError):
			return fmt.Errorf("body must not be larger than %d bytes", maxBytesError.Limit)
		default:
			return errors.New("body could not be decoded")
		}
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON object")
	}
	return nil
}
