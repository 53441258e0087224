// Package flags provides feature flag support for controlled feature rollout.
// Flags are read-only after initialization and provide safe defaults for unknown flags.
package flags

import (
	"maps"
	"slices"

	"github.com/orcidhub/orcidhub/internal/log"
)

// Flag name constants for type-safe flag access.
const (
	// FlagSendInvite controls whether the "send update permission invite"
	// affordance is offered on source-bearing sections.
	FlagSendInvite = "send-invite"

	// FlagExactClientMatch switches record action eligibility from substring
	// containment of the source client id to strict equality.
	FlagExactClientMatch = "exact-client-match"

	// FlagRecordCache enables the read-through cache in front of the record store.
	FlagRecordCache = "record-cache"
)

// Known returns the flag names this build understands, sorted.
func Known() []string {
	return []string{FlagExactClientMatch, FlagRecordCache, FlagSendInvite}
}

// Registry holds feature flag state loaded from configuration.
// Flags are read-only after initialization.
type Registry struct {
	flags map[string]bool
}

// New creates a Registry from a config map.
// If flags is nil, an empty registry is created (all flags disabled).
func New(flags map[string]bool) *Registry {
	copied := make(map[string]bool, len(flags))
	maps.Copy(copied, flags)
	r := &Registry{flags: copied}
	for name := range copied {
		if !slices.Contains(Known(), name) {
			log.Warn(log.CatConfig, "Unknown feature flag in config", "flag", name)
		}
	}
	log.Debug(log.CatConfig, "Feature flags initialized", "count", len(copied), "flags", r.All())
	return r
}

// Enabled returns true if the named flag is enabled.
// Returns false for unknown flags and on a nil registry.
func (r *Registry) Enabled(name string) bool {
	if r == nil || r.flags == nil {
		return false
	}
	value, exists := r.flags[name]
	if !exists {
		log.Debug(log.CatConfig, "Unknown flag accessed", "flag", name, "result", false)
		return false
	}
	return value
}

// All returns a copy of all flags (for debugging/logging).
// Returns an empty map if the registry is nil.
func (r *Registry) All() map[string]bool {
	if r == nil || r.flags == nil {
		return make(map[string]bool)
	}
	result := make(map[string]bool, len(r.flags))
	maps.Copy(result, r.flags)
	return result
}
