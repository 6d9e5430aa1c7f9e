package domain

import "errors"

var (
	ErrNotFound            = errors.New("resource not found")
	ErrAccessDenied        = errors.New("access denied")
	ErrInvalidInput        = errors.New("invalid input")
	ErrProviderUnavailable = errors.New("document provider unavailable")
	ErrExtractionFailed    = errors.New("content extraction failed")
	ErrEmbeddingFailed     = errors.New("embedding generation failed")
	ErrVectorStoreFailed   = errors.New("vector store operation failed")
	ErrGenerationFailed    = errors.New("text generation failed")
	ErrConfiguration       = errors.New("configuration error")
	ErrIndexerBusy         = errors.New("indexer already running")
)
