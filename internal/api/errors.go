package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/kalambet/permitflow/internal/storage"
	"github.com/kalambet/permitflow/internal/validate"
)

const maxRequestBodySize = 1 << 20 // 1MB

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

// validationError writes a 400 listing every rejected field.
func validationError(w http.ResponseWriter, verr *validate.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": verr.Error(),
			"type":    "invalid_request_error",
			"fields":  verr.Fields,
		},
	})
}

// serviceError maps errors returned by the intake service to responses.
// what names the thing being looked up, e.g. "project".
func serviceError(w http.ResponseWriter, err error, what string) {
	var verr *validate.Error
	switch {
	case errors.As(err, &verr):
		validationError(w, verr)
	case errors.Is(err, storage.ErrNotFound):
		httpError(w, http.StatusNotFound, "not_found", "%s not found", what)
	default:
		httpError(w, http.StatusInternalServerError, "api_error", "%v", err)
	}
}
