package llm

import (
	"context"
	"errors"

	"google.golang.org/genai"

	"justify/internal/domain"
)

const defaultGeminiModel = "gemini-2.0-flash"

var _ Generator = (*Gemini)(nil)

// Gemini generates text through the Gemini API.
type Gemini struct {
	opts Options
}

func NewGemini(opts Options) (*Gemini, error) {
	if opts.APIKey == "" {
		return nil, errors.New("gemini generator: missing API key")
	}
	if opts.Model == "" {
		opts.Model = defaultGeminiModel
	}
	return &Gemini{opts: opts}, nil
}

func (g *Gemini) Name() string { return "gemini" }

func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  g.opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", domain.GeneratorFailure(g.Name(), err)
	}
	var cfg *genai.GenerateContentConfig
	if g.opts.MaxTokens > 0 {
		temp := float32(g.opts.Temperature)
		cfg = &genai.GenerateContentConfig{
			MaxOutputTokens: int32(g.opts.MaxTokens),
			Temperature:     &temp,
		}
	}
	resp, err := client.Models.GenerateContent(
		ctx,
		g.opts.Model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
		cfg,
	)
	if err != nil {
		return "", domain.GeneratorFailure(g.Name(), err)
	}
	return resp.Text(), nil
}
