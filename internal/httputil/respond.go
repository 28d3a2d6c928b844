// Package httputil holds the shared JSON response and validation
// helpers for the HTTP surface.
package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// ErrorResponse is the JSON error envelope
type ErrorResponse struct {
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
}

// SuccessResponse is the JSON success envelope
type SuccessResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// RespondWithError writes the error envelope
func RespondWithError(w http.ResponseWriter, code int, message string, errs []string) {
	respondWithJSON(w, code, ErrorResponse{
		Status:  "error",
		Message: message,
		Errors:  errs,
	})
}

// RespondWithSuccess writes the success envelope
func RespondWithSuccess(w http.ResponseWriter, code int, message string, data interface{}) {
	respondWithJSON(w, code, SuccessResponse{
		Status:  "success",
		Message: message,
		Data:    data,
	})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

// FormatValidationErrors renders validator failures as field messages
func FormatValidationErrors(err error) []string {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{err.Error()}
	}

	msgs := make([]string, len(validationErrors))
	for i, fe := range validationErrors {
		msgs[i] = formatFieldError(fe)
	}
	return msgs
}

func formatFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "min", "gte":
		return fe.Field() + " must be at least " + fe.Param()
	case "max", "lte":
		return fe.Field() + " must be at most " + fe.Param()
	default:
		return fe.Field() + " failed " + fe.Tag() + " validation"
	}
}
