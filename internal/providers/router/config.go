package router

import "time"

// Rollout controls which organizations may use a provider by default.
// AllowByDefault true means every org is admitted except those on Blocklist;
// false means only orgs on Allowlist are admitted.
type Rollout struct {
	AllowByDefault bool
	Allowlist      map[string]struct{}
	Blocklist      map[string]struct{}
}

// IsAllowed reports whether orgID may use the provider under this rollout.
func (r *Rollout) IsAllowed(orgID string) bool {
	if r == nil {
		return true
	}
	if r.AllowByDefault {
		_, blocked := r.Blocklist[orgID]
		return !blocked
	}
	_, allowed := r.Allowlist[orgID]
	return allowed
}

// Config holds the admission rules for a single registered provider.
// A zero value for any limit means "unlimited" for that dimension.
type Config struct {
	Enabled          bool
	QuotaPerWindow   int // 0 = unlimited
	WindowDuration   time.Duration
	OrgQuotas        map[string]int // additional per-org caps within the window
	ConcurrencyLimit int            // 0 = unlimited
	FailureThreshold int            // consecutive failures before tripping the breaker; 0 disables it
	CooldownDuration time.Duration
	Rollout          *Rollout
}

// Option mutates a Config during Register, mirroring the functional-options
// idiom used elsewhere in this codebase for client construction.
type Option func(*Config)

// WithEnabled overrides the default-enabled registration state.
func WithEnabled(enabled bool) Option {
	return func(c *Config) { c.Enabled = enabled }
}

// WithQuota sets a global admission quota per window.
func WithQuota(quotaPerWindow int, window time.Duration) Option {
	return func(c *Config) {
		c.QuotaPerWindow = quotaPerWindow
		c.WindowDuration = window
	}
}

// WithOrgQuota caps a single org's admissions within the window, in addition
// to any global quota.
func WithOrgQuota(orgID string, quota int) Option {
	return func(c *Config) {
		if c.OrgQuotas == nil {
			c.OrgQuotas = make(map[string]int)
		}
		c.OrgQuotas[orgID] = quota
	}
}

// WithConcurrencyLimit caps simultaneous in-flight calls to the provider.
func WithConcurrencyLimit(limit int) Option {
	return func(c *Config) { c.ConcurrencyLimit = limit }
}

// WithCircuitBreaker trips the breaker after threshold consecutive failures,
// holding it open for cooldown before admitting calls again.
func WithCircuitBreaker(threshold int, cooldown time.Duration) Option {
	return func(c *Config) {
		c.FailureThreshold = threshold
		c.CooldownDuration = cooldown
	}
}

// WithRollout restricts the provider to a subset of organizations.
func WithRollout(rollout Rollout) Option {
	return func(c *Config) { c.Rollout = &rollout }
}

// state is the mutable bookkeeping the router maintains per provider. It is
// always accessed under Router.mu.
type state struct {
	windowStartedAt  time.Time
	windowCount      int
	orgCounts        map[string]int
	inflight         int
	failureCount     int
	circuitOpenUntil time.Time // zero means the circuit is closed
}
