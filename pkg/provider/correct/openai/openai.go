// Package openai provides a correction provider backed by the OpenAI chat
// completions API.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/voxd/voxd/pkg/provider/correct"
)

// DefaultModel is the default model for correction calls. Correction is a
// small, latency-sensitive task; the mini tier is accurate enough.
const DefaultModel = "gpt-4o-mini"

// correctionTemperature keeps the corrector deterministic; creativity is
// exactly what a transcription fixer must not have.
const correctionTemperature = 0.1

// Ensure Provider implements the correct.Provider interface.
var _ correct.Provider = (*Provider)(nil)

// config holds optional configuration for the provider.
type config struct {
	baseURL      string
	organization string
	timeout      time.Duration
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) { c.baseURL = url }
}

// WithOrganization sets the OpenAI organization ID on all requests.
func WithOrganization(org string) Option {
	return func(c *config) { c.organization = org }
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// Provider implements correct.Provider using the OpenAI API.
type Provider struct {
	client oai.Client
	model  string
	hasKey bool
}

// New constructs a new OpenAI correction Provider.
// If model is empty, DefaultModel (gpt-4o-mini) is used.
func New(apiKey string, model string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai correct: apiKey must not be empty")
	}
	if model == "" {
		model = DefaultModel
	}

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.organization != "" {
		reqOpts = append(reqOpts, option.WithOrganization(cfg.organization))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	return &Provider{
		client: oai.NewClient(reqOpts...),
		model:  model,
		hasKey: true,
	}, nil
}

func (p *Provider) ID() string { return "openai" }

// IsAvailable reports whether credentials are configured.
func (p *Provider) IsAvailable(_ context.Context) bool {
	return p.hasKey
}

// Correct implements correct.Provider.
func (p *Provider) Correct(ctx context.Context, req correct.Request) (*correct.Result, error) {
	params := oai.ChatCompletionNewParams{
		Model: shared.ChatModel(p.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(correct.BuildSystemPrompt(req.Options)),
			oai.UserMessage(correct.BuildUserPrompt(req)),
		},
		Temperature: param.NewOpt(correctionTemperature),
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai correct: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai correct: empty choices in response")
	}

	return correct.ParseResponse(resp.Choices[0].Message.Content, req.Text), nil
}
