package router

import (
	"errors"
	"fmt"

	"github.com/parsehub/parsehub/internal/models"
)

// Sentinel errors classify why admission was denied. Wrap with
// fmt.Errorf("...: %w", ...) and unwrap with errors.Is/errors.As.
var (
	// ErrUnavailable indicates the provider is registered but disabled.
	ErrUnavailable = errors.New("provider unavailable")
	// ErrRolloutBlocked indicates the calling org is not in the provider's rollout.
	ErrRolloutBlocked = errors.New("provider not enabled for organization")
	// ErrQuotaExceeded indicates a global or per-org quota would be exceeded.
	ErrQuotaExceeded = errors.New("provider quota exceeded")
	// ErrConcurrencyLimit indicates the provider's inflight cap is reached.
	ErrConcurrencyLimit = errors.New("provider concurrency limit reached")
	// ErrCircuitOpen indicates the provider's circuit breaker is cooling down.
	ErrCircuitOpen = errors.New("provider circuit open")
	// ErrNotConfigured indicates the provider was never registered.
	ErrNotConfigured = errors.New("provider not configured")
)

// RouterError wraps a sentinel with the provider it concerns, so callers can
// both errors.Is against the sentinel and read which provider was involved.
type RouterError struct {
	Provider models.Provider
	Err      error
}

func (e *RouterError) Error() string {
	return fmt.Sprintf("provider %s: %s", e.Provider, e.Err)
}

func (e *RouterError) Unwrap() error {
	return e.Err
}

func newRouterError(provider models.Provider, sentinel error) *RouterError {
	return &RouterError{Provider: provider, Err: sentinel}
}
