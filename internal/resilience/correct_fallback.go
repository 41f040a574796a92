package resilience

import (
	"context"

	"github.com/voxd/voxd/pkg/provider/correct"
)

// CorrectFallback implements [correct.Provider] with automatic failover across
// multiple correction backends. Each backend has its own circuit breaker, so a
// rate-limited cloud model is bypassed in favour of a local one without
// delaying text delivery.
type CorrectFallback struct {
	group *FallbackGroup[correct.Provider]
}

// Compile-time interface assertion.
var _ correct.Provider = (*CorrectFallback)(nil)

// NewCorrectFallback creates a [CorrectFallback] with primary as the preferred
// backend.
func NewCorrectFallback(primary correct.Provider, cfg FallbackConfig) *CorrectFallback {
	return &CorrectFallback{
		group: NewFallbackGroup(primary, primary.ID(), cfg),
	}
}

// AddFallback registers an additional correction provider as a fallback.
func (f *CorrectFallback) AddFallback(provider correct.Provider) {
	f.group.AddFallback(provider.ID(), provider)
}

// ID returns the primary backend's identifier.
func (f *CorrectFallback) ID() string { return f.group.Primary().ID() }

// IsAvailable reports whether any backend in the group is available.
func (f *CorrectFallback) IsAvailable(ctx context.Context) bool {
	for i := range f.group.entries {
		if f.group.entries[i].value.IsAvailable(ctx) {
			return true
		}
	}
	return false
}

// Correct runs the correction call against the first healthy backend.
func (f *CorrectFallback) Correct(ctx context.Context, req correct.Request) (*correct.Result, error) {
	return ExecuteWithResult(f.group, func(p correct.Provider) (*correct.Result, error) {
		return p.Correct(ctx, req)
	})
}
