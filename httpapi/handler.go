package httpapi

import (
	"context"
	"errors"
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"github.com/AntonStoeckl/resource-allocations-go/allocation"
)

const (
	maxRequestBodyBytes = 1 << 16

	msgInternalError  = "internal server error"
	msgMalformedBody  = "malformed request body"
	msgNotReady       = "not ready"
	logMsgRequestFail = "request failed"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrNilCollaborator is returned by NewHandler if the lifecycle manager or the guard is nil.
var ErrNilCollaborator = errors.New("handler collaborators must not be nil")

// Lifecycle is the part of lifecycle.Manager the handler serves.
type Lifecycle interface {
	CreateAllocation(ctx context.Context, userID, resourceID string) (allocation.Allocation, error)
	EndAllocation(ctx context.Context, id string) (allocation.Allocation, error)
	DeleteAllocation(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (allocation.Allocation, error)
	FindAll(ctx context.Context) (allocation.Allocations, error)
	CurrentForUser(ctx context.Context, userID string) (allocation.Allocations, error)
	PastForUser(ctx context.Context, userID string) (allocation.Allocations, error)
	CurrentForResource(ctx context.Context, resourceID string) (allocation.Allocations, error)
	PastForResource(ctx context.Context, resourceID string) (allocation.Allocations, error)
}

// Guard is the part of guard.Guard the handler serves.
type Guard interface {
	ValidateUserEligible(ctx context.Context, userID string) (allocation.User, error)
	GuardResourceDeletion(ctx context.Context, resourceID string) error
	DeleteResource(ctx context.Context, resourceID string) error
}

// ReadinessCheck reports whether the storage behind the handler is reachable.
type ReadinessCheck func(ctx context.Context) error

// Handler routes the allocation API.
type Handler struct {
	lifecycle        Lifecycle
	guard            Guard
	ready            ReadinessCheck
	logger           allocation.Logger
	contextualLogger allocation.ContextualLogger
	mux              *http.ServeMux
}

// NewHandler creates a Handler with all routes registered.
func NewHandler(lifecycle Lifecycle, guard Guard, options ...Option) (*Handler, error) {
	if lifecycle == nil || guard == nil {
		return nil, ErrNilCollaborator
	}

	h := &Handler{
		lifecycle: lifecycle,
		guard:     guard,
		mux:       http.NewServeMux(),
	}

	for _, option := range options {
		if err := option(h); err != nil {
			return nil, err
		}
	}

	h.routes()

	return h, nil
}

func (h *Handler) routes() {
	h.mux.HandleFunc("GET /healthz", h.handleHealth)

	h.mux.HandleFunc("GET /api/v1/allocations", h.handleListAll)
	h.mux.HandleFunc("POST /api/v1/allocations", h.handleCreate)
	h.mux.HandleFunc("GET /api/v1/allocations/{id}", h.handleGet)
	h.mux.HandleFunc("POST /api/v1/allocations/{id}/end", h.handleEnd)
	h.mux.HandleFunc("DELETE /api/v1/allocations/{id}", h.handleDelete)

	h.mux.HandleFunc("GET /api/v1/allocations/user/{userId}/current", h.list("userId", h.lifecycle.CurrentForUser))
	h.mux.HandleFunc("GET /api/v1/allocations/user/{userId}/past", h.list("userId", h.lifecycle.PastForUser))
	h.mux.HandleFunc("GET /api/v1/allocations/resource/{resourceId}/current",
		h.list("resourceId", h.lifecycle.CurrentForResource))
	h.mux.HandleFunc("GET /api/v1/allocations/resource/{resourceId}/past",
		h.list("resourceId", h.lifecycle.PastForResource))

	h.mux.HandleFunc("GET /api/v1/users/{id}/eligibility", h.handleEligibility)
	h.mux.HandleFunc("GET /api/v1/resources/{id}/deletable", h.handleDeletable)
	h.mux.HandleFunc("DELETE /api/v1/resources/{id}", h.handleDeleteResource)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready(r.Context()); err != nil {
			h.logFailure(r, http.StatusServiceUnavailable, err)
			writeError(w, http.StatusServiceUnavailable, msgNotReady)

			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
