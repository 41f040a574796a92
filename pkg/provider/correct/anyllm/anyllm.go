// Package anyllm provides a correction provider backed by
// github.com/mozilla-ai/any-llm-go, a unified multi-provider interface that
// supports OpenAI, Anthropic, Gemini, Ollama, DeepSeek, Mistral, Groq, and
// more. It is the way to run corrections against a local Ollama model or any
// backend the dedicated openai package does not cover.
//
// Usage:
//
//	p, err := anyllm.New("ollama", "qwen2.5:7b")
//	p, err := anyllm.NewAnthropic("claude-3-5-haiku-latest", anyllmlib.WithAPIKey("sk-ant-..."))
package anyllm

import (
	"context"
	"fmt"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/deepseek"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/groq"
	"github.com/mozilla-ai/any-llm-go/providers/llamacpp"
	"github.com/mozilla-ai/any-llm-go/providers/mistral"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"

	"github.com/voxd/voxd/pkg/provider/correct"
)

// correctionTemperature keeps the corrector deterministic across backends.
const correctionTemperature = 0.1

// Ensure Provider implements the correct.Provider interface.
var _ correct.Provider = (*Provider)(nil)

// Provider implements correct.Provider by wrapping any-llm-go.
type Provider struct {
	backend     anyllmlib.Provider
	backendName string
	model       string
}

// New creates a new Provider backed by the given LLM provider name.
//
// providerName is one of: "openai", "anthropic", "gemini", "ollama",
// "deepseek", "mistral", "groq", "llamacpp".
//
// model is the specific model to use (e.g., "gpt-4o-mini", "qwen2.5:7b").
//
// opts are any-llm-go configuration options (e.g., anyllmlib.WithAPIKey,
// anyllmlib.WithBaseURL). If no API key option is provided, the backend
// falls back to its environment variable (OPENAI_API_KEY, ANTHROPIC_API_KEY,
// and so on).
func New(providerName string, model string, opts ...anyllmlib.Option) (*Provider, error) {
	if providerName == "" {
		return nil, fmt.Errorf("anyllm correct: providerName must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("anyllm correct: model must not be empty")
	}

	backend, err := createBackend(providerName, opts...)
	if err != nil {
		return nil, fmt.Errorf("anyllm correct: create %q backend: %w", providerName, err)
	}

	return &Provider{
		backend:     backend,
		backendName: strings.ToLower(providerName),
		model:       model,
	}, nil
}

// NewOllama creates a Provider backed by Ollama (local inference).
// Without options, it connects to http://localhost:11434.
func NewOllama(model string, opts ...anyllmlib.Option) (*Provider, error) {
	return New("ollama", model, opts...)
}

// NewAnthropic creates a Provider backed by Anthropic.
// Without options, it reads the ANTHROPIC_API_KEY environment variable.
func NewAnthropic(model string, opts ...anyllmlib.Option) (*Provider, error) {
	return New("anthropic", model, opts...)
}

// createBackend creates the underlying any-llm-go provider for the given
// provider name.
func createBackend(providerName string, opts ...anyllmlib.Option) (anyllmlib.Provider, error) {
	switch strings.ToLower(providerName) {
	case "openai":
		return anyllmoai.New(opts...)
	case "anthropic":
		return anthropic.New(opts...)
	case "gemini":
		return gemini.New(opts...)
	case "ollama":
		return ollama.New(opts...)
	case "deepseek":
		return deepseek.New(opts...)
	case "mistral":
		return mistral.New(opts...)
	case "groq":
		return groq.New(opts...)
	case "llamacpp":
		return llamacpp.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported provider %q; supported: openai, anthropic, gemini, ollama, deepseek, mistral, groq, llamacpp", providerName)
	}
}

// ID returns "anyllm/<backend>" so configs can distinguish backends.
func (p *Provider) ID() string { return "anyllm/" + p.backendName }

// IsAvailable reports whether the backend was constructed. Credential and
// connectivity failures surface on the first Correct call.
func (p *Provider) IsAvailable(_ context.Context) bool {
	return p.backend != nil
}

// Correct implements correct.Provider.
func (p *Provider) Correct(ctx context.Context, req correct.Request) (*correct.Result, error) {
	temp := correctionTemperature
	params := anyllmlib.CompletionParams{
		Model: p.model,
		Messages: []anyllmlib.Message{
			{Role: anyllmlib.RoleSystem, Content: correct.BuildSystemPrompt(req.Options)},
			{Role: anyllmlib.RoleUser, Content: correct.BuildUserPrompt(req)},
		},
		Temperature: &temp,
	}

	resp, err := p.backend.Completion(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anyllm correct: completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("anyllm correct: empty choices in response")
	}

	return correct.ParseResponse(resp.Choices[0].Message.ContentString(), req.Text), nil
}
