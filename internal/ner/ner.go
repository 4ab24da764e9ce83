// Package ner defines the entity recognizer port used by the glossary and
// the one-time recovery policy for recognizers whose model asset is missing.
package ner

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"justify/internal/domain"
)

// Entity labels.
const (
	LabelLaw      = "LAW"
	LabelOrg      = "ORG"
	LabelGPE      = "GPE"
	LabelDate     = "DATE"
	LabelCardinal = "CARDINAL"
	LabelPerson   = "PERSON"
	LabelMisc     = "MISC"
)

// Head-word parts of speech.
const (
	POSProperNoun = "PROPN"
	POSNoun       = "NOUN"
	POSNum        = "NUM"
	POSOther      = "OTHER"
)

// Entity is one recognised span.
type Entity struct {
	Text    string `json:"text"`
	Label   string `json:"label"`
	HeadPOS string `json:"pos"`
}

// Recognizer labels entity spans in text.
type Recognizer interface {
	Name() string
	Recognize(ctx context.Context, text string) ([]Entity, error)
}

// InitFunc constructs a recognizer.
type InitFunc func(ctx context.Context) (Recognizer, error)

// FetchFunc provisions whatever asset a failed InitFunc was missing.
type FetchFunc func(ctx context.Context) error

// Load runs init. If it fails, fetch is called once and init retried; a
// second failure is reported as domain.ErrRecognizerUnavailable.
func Load(ctx context.Context, init InitFunc, fetch FetchFunc, log *zap.Logger) (Recognizer, error) {
	if log == nil {
		log = zap.NewNop()
	}
	rec, err := init(ctx)
	if err == nil {
		return rec, nil
	}
	log.Warn("entity recognizer init failed, fetching model asset", zap.Error(err))
	if fetch == nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrRecognizerUnavailable, err)
	}
	if ferr := fetch(ctx); ferr != nil {
		return nil, fmt.Errorf("%w: fetch: %w", domain.ErrRecognizerUnavailable, ferr)
	}
	rec, err = init(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: retry: %w", domain.ErrRecognizerUnavailable, err)
	}
	log.Info("entity recognizer ready after fetch", zap.String("recognizer", rec.Name()))
	return rec, nil
}
