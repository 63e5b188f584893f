package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrProductNotFound indicates the referenced product has no index loaded.
	// This is a hard error reported to the caller, never degraded.
	ErrProductNotFound = errors.New("product not found")

	// ErrSessionNotFound indicates the session id is unknown.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionEnded indicates an operation against a terminated session.
	ErrSessionEnded = errors.New("session ended")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// Upstream Errors.

	// ErrEmbeddingUnavailable indicates the embedding provider failed or is
	// not configured. Callers degrade to empty vectors rather than aborting.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrResponderUnavailable indicates the generative responder failed.
	// Callers fall back to canned answers with reduced confidence.
	ErrResponderUnavailable = errors.New("generative responder unavailable")

	// ErrTranscriberUnavailable indicates audio transcription failed.
	ErrTranscriberUnavailable = errors.New("transcriber unavailable")

	// Contract Errors.

	// ErrDimensionMismatch indicates mixed embedding dimensions within one
	// product index. This is a programming-contract violation, not a
	// recoverable state.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrEmbeddingAlreadySet indicates an attempt to overwrite a chunk
	// embedding. Embeddings are set exactly once.
	ErrEmbeddingAlreadySet = errors.New("embedding already set")
)
