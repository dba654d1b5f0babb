package domain

import "errors"

var (
	// ErrRetrieval signals that query encoding or the vector index failed.
	// It is the only error that aborts a search request.
	ErrRetrieval = errors.New("vector retrieval failed")
	// ErrGraphNotFound signals a missing graph node.
	ErrGraphNotFound = errors.New("graph node not found")
	// ErrGraphQuery signals a graph store query failure.
	ErrGraphQuery = errors.New("graph query failed")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)
