package gemini

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"google.golang.org/genai"

	"justify/internal/embedding"
)

var _ embedding.Embedder = (*Embedder)(nil)

// ErrMissingKey is returned when no Gemini API key is configured.
var ErrMissingKey = errors.New("gemini api key is not set")

const defaultModel = "text-embedding-004"

type embedFunc func(ctx context.Context, model, text string) ([]float32, error)

// Embedder produces embeddings through the Gemini API.
type Embedder struct {
	apiKey string
	model  string
	embed  embedFunc

	mu        sync.Mutex
	dimension int
}

// Config configures the Gemini embedder.
type Config struct {
	APIKeyEnv string
	Model     string
}

// NewEmbedder reads the API key from the configured environment variable.
func NewEmbedder(cfg Config) (*Embedder, error) {
	env := cfg.APIKeyEnv
	if env == "" {
		env = "GEMINI_API_KEY"
	}
	key := strings.TrimSpace(os.Getenv(env))
	if key == "" {
		return nil, fmt.Errorf("%w (env %s)", ErrMissingKey, env)
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	e := &Embedder{apiKey: key, model: model}
	e.embed = e.remoteEmbed
	return e, nil
}

func (e *Embedder) Name() string { return "gemini" }

func (e *Embedder) Prepare(_ context.Context, _ []string) error { return nil }

func (e *Embedder) Dimension() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dimension
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float64, error) {
	values, err := e.embed(ctx, e.model, text)
	if err != nil {
		return nil, err
	}
	vec := make([]float64, len(values))
	for i, v := range values {
		vec[i] = float64(v)
	}
	e.mu.Lock()
	if e.dimension == 0 {
		e.dimension = len(vec)
	}
	e.mu.Unlock()
	return vec, nil
}

func (e *Embedder) remoteEmbed(ctx context.Context, model, text string) ([]float32, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  e.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	resp, err := client.Models.EmbedContent(
		ctx,
		model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: text}}}},
		&genai.EmbedContentConfig{TaskType: "RETRIEVAL_DOCUMENT"},
	)
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, fmt.Errorf("no embedding values returned")
	}
	return resp.Embeddings[0].Values, nil
}
