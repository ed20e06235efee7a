package httpapi

import (
	"net/http"
)

func (h *Handler) handleEligibility(w http.ResponseWriter, r *http.Request) {
	if _, err := h.guard.ValidateUserEligible(r.Context(), r.PathValue("id")); err != nil {
		h.writeFailure(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDeletable(w http.ResponseWriter, r *http.Request) {
	if err := h.guard.GuardResourceDeletion(r.Context(), r.PathValue("id")); err != nil {
		h.writeFailure(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDeleteResource(w http.ResponseWriter, r *http.Request) {
	if err := h.guard.DeleteResource(r.Context(), r.PathValue("id")); err != nil {
		h.writeFailure(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
