package httpapi

import (
	"github.com/AntonStoeckl/resource-allocations-go/allocation"
)

// Option configures a Handler.
type Option func(*Handler) error

// WithLogger logs failed requests that end in a 5xx status.
func WithLogger(logger allocation.Logger) Option {
	return func(h *Handler) error {
		h.logger = logger
		return nil
	}
}

// WithContextualLogger logs failed requests with the request context, for trace correlation.
// It takes precedence over WithLogger.
func WithContextualLogger(logger allocation.ContextualLogger) Option {
	return func(h *Handler) error {
		h.contextualLogger = logger
		return nil
	}
}

// WithReadinessCheck makes /healthz answer 503 while check fails.
func WithReadinessCheck(check ReadinessCheck) Option {
	return func(h *Handler) error {
		h.ready = check
		return nil
	}
}
