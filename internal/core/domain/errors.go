package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrTemporary        = errors.New("temporary failure")

	ErrExtraction            = errors.New("text extraction failed")
	ErrSkippedDocument       = errors.New("document skipped")
	ErrInvalidQuery          = errors.New("invalid query")
	ErrCollectionUnavailable = errors.New("collection unavailable")
	ErrEmbeddingService      = errors.New("embedding service failure")
	ErrGenerationService     = errors.New("generation service failure")
	ErrNetwork               = errors.New("network failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
