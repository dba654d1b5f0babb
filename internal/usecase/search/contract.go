package search

import (
	"context"

	"github.com/tachyon-beep/duskmantle-gateway/internal/domain"
)

// Retriever produces scored candidate chunks for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, limit int, requestID string) ([]domain.CandidateChunk, error)
}

// GraphService reads node neighborhoods from the knowledge graph.
type GraphService interface {
	GetNode(ctx context.Context, nodeID string, limit int) (domain.GraphNeighborhood, error)
	ShortestPathDepth(ctx context.Context, nodeID string, maxDepth int) (int, bool, error)
}
