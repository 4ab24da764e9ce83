package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidDocument indicates empty or unreadable document text.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrEmptyQuestion indicates a blank question.
	ErrEmptyQuestion = errors.New("empty question")

	// ErrEmptyIndex indicates a query against an index that holds no vectors.
	ErrEmptyIndex = errors.New("empty index")

	// ErrGeneratorFailure indicates the text generator failed or returned unusable output.
	ErrGeneratorFailure = errors.New("generator failure")

	// ErrRecognizerUnavailable indicates the entity recognizer could not be initialised,
	// even after fetching its model asset.
	ErrRecognizerUnavailable = errors.New("entity recognizer unavailable")
)

// GeneratorFailure wraps err so that it matches both ErrGeneratorFailure and err.
func GeneratorFailure(provider string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrGeneratorFailure, provider, err)
}
