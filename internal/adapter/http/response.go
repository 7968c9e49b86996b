package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/YelzhanWeb/ordertrack/internal/app/checkout"
	"github.com/YelzhanWeb/ordertrack/internal/domain"
	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error  string            `json:"error"`
	Errors []ValidationError `json:"errors,omitempty"`
}

func respondJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, message string, statusCode int, validationErrors []ValidationError) {
	respondJSON(w, statusCode, ErrorResponse{
		Error:  message,
		Errors: validationErrors,
	})
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidStatusTransition),
		errors.Is(err, domain.ErrTimestampSet),
		errors.Is(err, domain.ErrTimestampRegressed):
		return http.StatusConflict
	case errors.As(err, &verrs),
		errors.Is(err, domain.ErrUnknownStatus),
		errors.Is(err, domain.ErrInvalidOrderType),
		errors.Is(err, domain.ErrMissingAddress),
		errors.Is(err, domain.ErrNoItems),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrNegativeAmount),
		errors.Is(err, checkout.ErrNoOwner):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// validationDetails flattens validator errors into field/message pairs.
func validationDetails(err error) []ValidationError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make([]ValidationError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, ValidationError{
			Field:   jsonPath(fe.Namespace()),
			Message: "failed on the '" + fe.Tag() + "' rule",
		})
	}
	return out
}

// jsonPath drops the root struct name: "PlaceOrderCommand.items[0].quantity"
// becomes "items[0].quantity".
func jsonPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
