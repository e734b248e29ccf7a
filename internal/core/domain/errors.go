package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown processor, extractor or backend.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	// Answer generation is disabled.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	// Indexing and retrieval are disabled without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrVectorStoreUnavailable indicates the vector store is not configured.
	ErrVectorStoreUnavailable = errors.New("vector store unavailable")

	// Pipeline Errors.

	// ErrExtractionFailed indicates a single document could not be converted.
	// The pipeline logs it and continues with the remaining documents.
	ErrExtractionFailed = errors.New("extraction failed")

	// ErrUnsupportedDocument indicates no extractor accepts the input file.
	ErrUnsupportedDocument = errors.New("unsupported document")

	// ErrIndexBuild indicates a batch failed and the index build was aborted.
	// The previous table, if any, is left untouched.
	ErrIndexBuild = errors.New("index build failed")

	// ErrIndexLocked indicates another process holds exclusive access to
	// the vector table.
	ErrIndexLocked = errors.New("index is locked by another build")

	// ErrRowCountMismatch indicates a built table does not contain one row
	// per non-empty chunk.
	ErrRowCountMismatch = errors.New("index row count mismatch")

	// Conversation Errors.

	// ErrSessionBusy indicates a turn is already in flight.
	ErrSessionBusy = errors.New("session busy")

	// ErrInvalidState indicates an action is not valid in the session's
	// current state.
	ErrInvalidState = errors.New("invalid session state")
)
