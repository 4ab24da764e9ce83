// Package llm holds the text generator providers used for answers,
// suggestions and entity extraction.
package llm

import (
	"context"
	"time"
)

// Generator turns a prompt into model output.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// Options are shared by every HTTP-backed provider.
type Options struct {
	BaseURL     string
	Model       string
	APIKey      string
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64
}

func (o Options) timeout() time.Duration {
	if o.Timeout <= 0 {
		return 120 * time.Second
	}
	return o.Timeout
}
