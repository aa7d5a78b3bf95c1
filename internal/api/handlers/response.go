package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/CedricEugeni/MoMentor/internal/contracts"
	"github.com/CedricEugeni/MoMentor/pkg/logger"
)

// ErrorResponse is the body of every non-2xx reply
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}

// StatusFor maps the error taxonomy to an HTTP status
func StatusFor(err error) int {
	switch {
	case contracts.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, contracts.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, contracts.ErrPreconditionViolation):
		return http.StatusConflict
	case errors.Is(err, contracts.ErrDataUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondServiceError writes err with its mapped status. 5xx are logged as errors.
func respondServiceError(w http.ResponseWriter, log *logger.Logger, msg string, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		log.WithError(err).Error(msg)
	} else {
		log.WithError(err).Debug(msg)
	}

	body := ErrorResponse{Error: err.Error()}
	var ve *contracts.ValidationError
	if errors.As(err, &ve) {
		body.Error = ve.Message
		body.Field = ve.Field
	}
	if status == http.StatusInternalServerError {
		body.Error = msg
	}
	respondJSON(w, status, body)
}

// runIDParam reads the {id} path variable
func runIDParam(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, contracts.NewValidationError("id", "invalid run id %q", raw)
	}
	return id, nil
}

// decodeJSON decodes the request body, rejecting unknown fields
func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return contracts.NewValidationError("", "invalid request body: %v", err)
	}
	return nil
}
