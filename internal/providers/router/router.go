// Package router implements the provider admission gate: per-provider
// enablement, tenant rollout, sliding-window quota, concurrency limiting,
// and circuit breaking, all checked atomically before the underlying
// provider client is ever called.
package router

import (
	"context"
	"sync"
	"time"

	"github.com/parsehub/parsehub/internal/interfaces"
	"github.com/parsehub/parsehub/internal/models"
)

// registration bundles a provider's client and its admission config.
type registration struct {
	client interfaces.ProviderClient
	config Config
}

// Router routes parse requests to registered provider clients while
// enforcing admission rules. The zero value is not usable; use New.
type Router struct {
	mu            sync.Mutex
	registrations map[models.Provider]*registration
	state         map[models.Provider]*state
	now           func() time.Time // overridable for tests
}

// New creates an empty Router with no providers registered.
func New() *Router {
	return &Router{
		registrations: make(map[models.Provider]*registration),
		state:         make(map[models.Provider]*state),
		now:           time.Now,
	}
}

// Register adds a provider client under the given defaults, applying opts
// in order. Registering the same provider twice replaces its prior
// registration and resets its state.
func (r *Router) Register(provider models.Provider, client interfaces.ProviderClient, opts ...Option) {
	cfg := Config{Enabled: true}
	for _, opt := range opts {
		opt(&cfg)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.registrations[provider] = &registration{client: client, config: cfg}
	r.state[provider] = &state{
		windowStartedAt: r.now(),
		orgCounts:       make(map[string]int),
	}
}

// AvailableProviders lists every registered provider.
func (r *Router) AvailableProviders() []models.Provider {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Provider, 0, len(r.registrations))
	for p := range r.registrations {
		out = append(out, p)
	}
	return out
}

// ParseWith dispatches source_url to provider on behalf of orgID, gated by
// the provider's admission rules. Admission is checked and counters are
// reserved under the lock; the underlying client call happens outside the
// lock so a slow provider never blocks other admissions.
func (r *Router) ParseWith(ctx context.Context, provider models.Provider, orgID, sourceURL string) ([]models.ParsedEvent, error) {
	reg, err := r.admit(provider, orgID)
	if err != nil {
		return nil, err
	}

	events, callErr := reg.client.ParseTimetable(ctx, sourceURL)

	r.mu.Lock()
	st := r.state[provider]
	if st == nil {
		r.mu.Unlock()
		return events, callErr
	}
	st.inflight--
	if st.inflight < 0 {
		st.inflight = 0
	}
	if callErr != nil {
		st.failureCount++
		if reg.config.FailureThreshold > 0 && st.failureCount >= reg.config.FailureThreshold {
			st.circuitOpenUntil = r.now().Add(reg.config.CooldownDuration)
			st.failureCount = 0
		}
	} else {
		st.failureCount = 0
	}
	r.mu.Unlock()

	if callErr != nil {
		return nil, callErr
	}
	return events, nil
}

// admit checks every admission rule and, if all pass, reserves this call's
// window/org/inflight counters before returning the registration to use.
func (r *Router) admit(provider models.Provider, orgID string) (*registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, ok := r.registrations[provider]
	if !ok {
		return nil, newRouterError(provider, ErrNotConfigured)
	}
	st := r.state[provider]
	now := r.now()

	if !reg.config.Enabled {
		return nil, newRouterError(provider, ErrUnavailable)
	}
	if !st.circuitOpenUntil.IsZero() && now.Before(st.circuitOpenUntil) {
		return nil, newRouterError(provider, ErrCircuitOpen)
	}
	if !reg.config.Rollout.IsAllowed(orgID) {
		return nil, newRouterError(provider, ErrRolloutBlocked)
	}

	// Wholesale window reset: once the window has elapsed, every counter
	// (global and per-org) restarts from zero rather than decaying gradually.
	if reg.config.WindowDuration > 0 && now.Sub(st.windowStartedAt) >= reg.config.WindowDuration {
		st.windowStartedAt = now
		st.windowCount = 0
		st.orgCounts = make(map[string]int)
	}

	if reg.config.QuotaPerWindow > 0 && st.windowCount >= reg.config.QuotaPerWindow {
		return nil, newRouterError(provider, ErrQuotaExceeded)
	}
	if quota, ok := reg.config.OrgQuotas[orgID]; ok && st.orgCounts[orgID] >= quota {
		return nil, newRouterError(provider, ErrQuotaExceeded)
	}
	if reg.config.ConcurrencyLimit > 0 && st.inflight >= reg.config.ConcurrencyLimit {
		return nil, newRouterError(provider, ErrConcurrencyLimit)
	}

	st.windowCount++
	st.orgCounts[orgID]++
	st.inflight++

	return reg, nil
}
