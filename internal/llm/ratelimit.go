package llm

import (
	"context"

	"golang.org/x/time/rate"
)

type rateLimited struct {
	next    Generator
	limiter *rate.Limiter
}

// WithRateLimit throttles calls to gen to r per second with the given burst.
// A non-positive r returns gen unchanged.
func WithRateLimit(gen Generator, r float64, burst int) Generator {
	if r <= 0 {
		return gen
	}
	if burst <= 0 {
		burst = 1
	}
	return &rateLimited{next: gen, limiter: rate.NewLimiter(rate.Limit(r), burst)}
}

func (l *rateLimited) Name() string { return l.next.Name() }

func (l *rateLimited) Generate(ctx context.Context, prompt string) (string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return l.next.Generate(ctx, prompt)
}
