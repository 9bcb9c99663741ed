// Package interfaces defines the service contracts PARSEHUB's components
// depend on, so every collaborator can be substituted with a test double.
package interfaces

import (
	"context"

	"github.com/parsehub/parsehub/internal/models"
)

// ProviderClient performs the actual timetable extraction for a single
// provider. Implementations are expected to be safe for concurrent use.
type ProviderClient interface {
	// ParseTimetable extracts events from the document at sourceURL.
	ParseTimetable(ctx context.Context, sourceURL string) ([]models.ParsedEvent, error)
}

// ProviderGate is the subset of the router consumed by the parse job
// coordinator: admission-gated dispatch to a single provider.
type ProviderGate interface {
	// ParseWith dispatches to provider on behalf of orgID, subject to the
	// provider's enablement, rollout, quota, concurrency, and circuit-breaker
	// rules. Returns a *RouterError (via errors.As) when admission is denied.
	ParseWith(ctx context.Context, provider models.Provider, orgID, sourceURL string) ([]models.ParsedEvent, error)

	// AvailableProviders lists every registered provider.
	AvailableProviders() []models.Provider
}
