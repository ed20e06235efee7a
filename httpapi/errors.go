package httpapi

import (
	"net/http"

	"github.com/AntonStoeckl/resource-allocations-go/allocation"
)

// StatusFor maps the Kind of err to an HTTP status code.
func StatusFor(err error) int {
	switch allocation.KindOf(err) {
	case allocation.KindNotFound:
		return http.StatusNotFound
	case allocation.KindConflict:
		return http.StatusConflict
	case allocation.KindInvalidInput, allocation.KindInvalidState:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)

	if status == http.StatusInternalServerError {
		h.logFailure(r, status, err)
		writeError(w, status, msgInternalError)

		return
	}

	writeError(w, status, err.Error())
}

func (h *Handler) logFailure(r *http.Request, status int, err error) {
	args := []any{"method", r.Method, "path", r.URL.Path, "status", status, "error", err.Error()}

	if h.contextualLogger != nil {
		h.contextualLogger.ErrorContext(r.Context(), logMsgRequestFail, args...)
		return
	}

	if h.logger != nil {
		h.logger.Error(logMsgRequestFail, args...)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
