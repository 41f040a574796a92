// Package embeddings defines the Provider interface for vector embedding
// backends.
//
// An embeddings provider maps text strings to dense float32 vectors (e.g.,
// OpenAI text-embedding-3 or a local sentence transformer). The dictation
// history layer uses these vectors to recall semantically related past
// utterances when building correction context.
//
// Implementations must be safe for concurrent use.
package embeddings

import "context"

// Provider is the abstraction over any text-embedding backend.
//
// All embedding vectors returned by a single Provider instance share the
// same dimensionality (returned by Dimensions). Callers must not mix vectors
// from different Provider instances in the same similarity computation
// unless both use the same model and space.
type Provider interface {
	// Embed computes the embedding vector for a single text string. Returns
	// a float32 slice of length Dimensions() or an error if the request
	// fails or ctx is cancelled. Text is passed through verbatim; any
	// model-specific formatting is the caller's job.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch computes embedding vectors for a slice of text strings in
	// a single provider call. The returned slice has the same length as
	// texts and the i-th element corresponds to texts[i]. Partial results
	// are not returned; on error the entire slice is nil.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the fixed length of every embedding vector
	// produced by this provider.
	Dimensions() int

	// ModelID returns the provider-specific model identifier used for
	// embeddings (e.g., "text-embedding-3-small"). Useful for logging and
	// for ensuring consistent model usage across stored vectors.
	ModelID() string
}
