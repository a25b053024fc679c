package evidex

import "github.com/kailas-cloud/evidex/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound               = domain.ErrNotFound
	ErrDocumentNotFound       = domain.ErrDocumentNotFound
	ErrEmptyDocument          = domain.ErrEmptyDocument
	ErrInvalidMetadata        = domain.ErrInvalidMetadata
	ErrInvalidContext         = domain.ErrInvalidContext
	ErrUnknownSection         = domain.ErrUnknownSection
	ErrIndexUnavailable       = domain.ErrIndexUnavailable
	ErrVectorDimMismatch      = domain.ErrVectorDimMismatch
	ErrEmbeddingQuotaExceeded = domain.ErrEmbeddingQuotaExceeded
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
)
