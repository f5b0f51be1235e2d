package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jcmexdev/multivendor-orders/internal/order-service/domain"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: msg,
	})
}

// statusFor maps an error kind to its HTTP status.
func statusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindExternal:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// writeFailure renders engine errors with their code. Anything that is not
// a *domain.Error is logged and hidden behind a 500.
func (h *Handler) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		h.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}
	if de.Kind == domain.KindExternal {
		h.logger.WarnContext(r.Context(), "collaborator failed", "code", de.Code, "error", err)
	}
	writeJSON(w, statusFor(de.Kind), ErrorResponse{
		Error:    string(de.Code),
		Message:  de.Message,
		Metadata: de.Metadata,
	})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return false
	}
	return true
}
