// Package openai implements [embeddings.Provider] on top of the OpenAI
// embeddings API. Pointing it at another OpenAI-compatible endpoint (ollama,
// vLLM) only takes [WithBaseURL].
package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"

	"github.com/plotwright/plotwright/pkg/provider/embeddings"
)

// DefaultModel is used when no model is configured.
const DefaultModel = oai.EmbeddingModelTextEmbedding3Small

var _ embeddings.Provider = (*Provider)(nil)

// Provider calls the OpenAI embeddings endpoint.
type Provider struct {
	client oai.Client
	model  string
}

// Option customises the underlying HTTP client.
type Option func(*[]option.RequestOption)

// WithBaseURL targets an alternative OpenAI-compatible endpoint.
func WithBaseURL(url string) Option {
	return func(o *[]option.RequestOption) {
		*o = append(*o, option.WithBaseURL(url))
	}
}

// WithOrganization attaches an OpenAI organization ID to every request.
func WithOrganization(org string) Option {
	return func(o *[]option.RequestOption) {
		*o = append(*o, option.WithOrganization(org))
	}
}

// WithTimeout bounds each embedding request.
func WithTimeout(d time.Duration) Option {
	return func(o *[]option.RequestOption) {
		*o = append(*o, option.WithHTTPClient(&http.Client{Timeout: d}))
	}
}

// New builds a Provider for the given model, falling back to [DefaultModel]
// when model is empty. The API key is required.
func New(apiKey string, model string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai embeddings: apiKey must not be empty")
	}
	if model == "" {
		model = DefaultModel
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	for _, o := range opts {
		o(&reqOpts)
	}

	return &Provider{client: oai.NewClient(reqOpts...), model: model}, nil
}

// Embed returns the embedding vector for one text.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := p.client.Embeddings.New(ctx, oai.EmbeddingNewParams{
		Model: p.model,
		Input: oai.EmbeddingNewParamsInputUnion{OfString: param.NewOpt(text)},
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: embed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai embeddings: empty response")
	}
	return narrow(resp.Data[0].Embedding), nil
}

// EmbedBatch embeds texts in a single request, preserving input order via the
// per-item index the API reports.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := p.client.Embeddings.New(ctx, oai.EmbeddingNewParams{
		Model: p.model,
		Input: oai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: embed batch: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai embeddings: expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	out := make([][]float32, len(texts))
	for _, e := range resp.Data {
		if int(e.Index) >= len(out) {
			return nil, fmt.Errorf("openai embeddings: unexpected index %d", e.Index)
		}
		out[e.Index] = narrow(e.Embedding)
	}
	return out, nil
}

// Dimensions reports the vector width of the configured model. Unknown models
// assume 1536, the width shared by text-embedding-3-small and ada-002.
func (p *Provider) Dimensions() int {
	if strings.Contains(strings.ToLower(p.model), "text-embedding-3-large") {
		return 3072
	}
	return 1536
}

// ModelID returns the configured model name.
func (p *Provider) ModelID() string {
	return p.model
}

// narrow converts the API's float64 vectors to the float32 the store keeps.
func narrow(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}
