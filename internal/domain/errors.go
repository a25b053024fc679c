package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrDocumentNotFound signals a missing document.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrEmptyDocument signals ingestion of a document with no text.
	ErrEmptyDocument = errors.New("empty document")
	// ErrInvalidMetadata signals flattened metadata that fails the storage schema.
	ErrInvalidMetadata = errors.New("invalid metadata")
	// ErrInvalidContext signals a malformed search context.
	ErrInvalidContext = errors.New("invalid search context")
	// ErrUnknownSection signals a section name outside the canonical set.
	ErrUnknownSection = errors.New("unknown section")
	// ErrIndexUnavailable signals that the corpus index could not answer any query.
	ErrIndexUnavailable = errors.New("corpus index unavailable")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")

	// ErrEmbeddingQuotaExceeded signals the provider refused for quota reasons.
	ErrEmbeddingQuotaExceeded = errors.New("embedding quota exceeded")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)

// FieldError reports which flat metadata field broke the schema.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: field %q %s", ErrInvalidMetadata.Error(), e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error { return ErrInvalidMetadata }

// NewFieldError creates an invalid metadata error for a single field.
func NewFieldError(field, reason string) error {
	return &FieldError{Field: field, Reason: reason}
}
