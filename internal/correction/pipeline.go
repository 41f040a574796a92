// Package correction implements the three-stage polish pass applied to
// finalized transcriptions: a local pre-detection heuristic that decides
// whether an LLM call is worth making, the provider call itself, and a
// sanitize-then-verify pass over the provider's output.
//
// The pipeline is deliberately conservative: it never fails a dictation
// session. Any provider error propagates to the caller, which falls back to
// the uncorrected text.
package correction

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/voxd/voxd/internal/observe"
	"github.com/voxd/voxd/internal/promptctx"
	"github.com/voxd/voxd/pkg/provider/correct"
	"github.com/voxd/voxd/pkg/types"
)

// Pipeline runs the correction stages over finalized utterances.
type Pipeline struct {
	provider correct.Provider
	metrics  *observe.Metrics
	log      *slog.Logger

	// charBudget bounds the compacted context block embedded in prompts.
	charBudget int
}

// Option is a functional option for configuring a Pipeline.
type Option func(*Pipeline)

// WithMetrics attaches correction metrics.
func WithMetrics(m *observe.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithLogger replaces the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

// WithContextBudget sets the character budget for the compacted context
// block. Defaults to promptctx.DefaultCharBudget.
func WithContextBudget(n int) Option {
	return func(p *Pipeline) { p.charBudget = n }
}

// New creates a Pipeline around the given provider. The provider may be nil;
// Run then behaves as if pre-detection always said skip.
func New(provider correct.Provider, opts ...Option) *Pipeline {
	p := &Pipeline{
		provider:   provider,
		log:        slog.Default(),
		charBudget: promptctx.DefaultCharBudget,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run polishes one finalized transcription. pctx is the conversation context
// snapshot taken at finalize time. The returned result is always usable;
// when the pipeline decides not to call the provider it returns the input
// unchanged with a nil error.
func (p *Pipeline) Run(ctx context.Context, res types.TranscriptionResult, pctx promptctx.Context, opts correct.Options) (*correct.Result, error) {
	terms := pctx.Terms()

	// Stage 1: local decision, no network.
	if p.provider == nil || !PreDetect(res, terms, opts) {
		return correct.Unchanged(res.Text), nil
	}
	if !p.provider.IsAvailable(ctx) {
		p.log.Debug("correction provider unavailable, skipping", "provider", p.provider.ID())
		return correct.Unchanged(res.Text), nil
	}

	// Stage 2: the provider call.
	req := correct.Request{
		Text:               res.Text,
		Context:            pctx.Compact(res.Text, p.charBudget),
		LowConfidenceWords: res.LowConfidenceWords(),
		Options:            opts,
	}
	if hints := PhoneticTermMatches(res.Text, terms); len(hints) > 0 {
		req.LowConfidenceWords = append(req.LowConfidenceWords, hints...)
	}

	start := time.Now()
	result, err := p.provider.Correct(ctx, req)
	if p.metrics != nil {
		p.metrics.RecordCorrection(ctx, p.provider.ID(), time.Since(start), err == nil)
	}
	if err != nil {
		return nil, fmt.Errorf("correction: provider %s: %w", p.provider.ID(), err)
	}

	// Stage 3a: sanitize echoed prompt scaffolding out of the output.
	if result.WasModified() {
		result.CorrectedText = Sanitize(result.CorrectedText, result.OriginalText)
	}

	// Stage 3b: confidence-gate any granular corrections.
	verified := Verify(result, opts.VerificationThreshold)

	if verified.WasModified() {
		p.log.Debug("correction applied",
			"provider", p.provider.ID(),
			"corrections", len(verified.Corrections),
			"duration", time.Since(start))
	}
	return verified, nil
}
