package httpapi

import (
	"context"
	"net/http"

	"github.com/AntonStoeckl/resource-allocations-go/allocation"
)

type createAllocationRequest struct {
	UserID     string `json:"userId"`
	ResourceID string `json:"resourceId"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createAllocationRequest

	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, msgMalformedBody)
		return
	}

	created, err := h.lifecycle.CreateAllocation(r.Context(), req.UserID, req.ResourceID)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, created)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	found, err := h.lifecycle.FindByID(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, found)
}

func (h *Handler) handleEnd(w http.ResponseWriter, r *http.Request) {
	ended, err := h.lifecycle.EndAllocation(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ended)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.lifecycle.DeleteAllocation(r.Context(), r.PathValue("id")); err != nil {
		h.writeFailure(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListAll(w http.ResponseWriter, r *http.Request) {
	all, err := h.lifecycle.FindAll(r.Context())
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, nonNil(all))
}

func (h *Handler) list(
	pathKey string,
	query func(ctx context.Context, id string) (allocation.Allocations, error),
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		found, err := query(r.Context(), r.PathValue(pathKey))
		if err != nil {
			h.writeFailure(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, nonNil(found))
	}
}

// nonNil makes empty listings encode as [] instead of null.
func nonNil(as allocation.Allocations) allocation.Allocations {
	if as == nil {
		return allocation.Allocations{}
	}

	return as
}
