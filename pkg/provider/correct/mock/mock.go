// Package mock provides a test double for the correct.Provider interface.
//
// Use Provider in unit tests to verify that the pipeline sends the expected
// Request and to feed controlled correction results without a live LLM
// backend.
//
// Example:
//
//	p := &mock.Provider{
//	    Result: &correct.Result{OriginalText: "helo", CorrectedText: "hello"},
//	}
package mock

import (
	"context"
	"sync"

	"github.com/voxd/voxd/pkg/provider/correct"
)

// Call records a single invocation of Correct.
type Call struct {
	// Ctx is the context passed to Correct.
	Ctx context.Context
	// Req is the Request passed to Correct.
	Req correct.Request
}

// Provider is a mock implementation of correct.Provider.
// A nil Result with a nil Err causes Correct to echo the input unchanged.
type Provider struct {
	mu sync.Mutex

	// ProviderID is returned by ID. Defaults to "mock".
	ProviderID string

	// Available is returned by IsAvailable. NewProvider sets it to true.
	Available bool

	// Result is returned by Correct when non-nil.
	Result *correct.Result

	// Err, if non-nil, is returned as the error from Correct.
	Err error

	// Calls records every invocation of Correct in order.
	Calls []Call
}

// Compile-time assertion that Provider satisfies correct.Provider.
var _ correct.Provider = (*Provider)(nil)

// NewProvider returns an available mock that echoes input unchanged.
func NewProvider() *Provider {
	return &Provider{ProviderID: "mock", Available: true}
}

func (p *Provider) ID() string {
	if p.ProviderID == "" {
		return "mock"
	}
	return p.ProviderID
}

func (p *Provider) IsAvailable(_ context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Available
}

// Correct records the call and returns the configured result.
func (p *Provider) Correct(ctx context.Context, req correct.Request) (*correct.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, Call{Ctx: ctx, Req: req})
	if p.Err != nil {
		return nil, p.Err
	}
	if p.Result != nil {
		return p.Result, nil
	}
	return correct.Unchanged(req.Text), nil
}

// CallCount returns how many times Correct was called.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}
