package vector

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/tachyon-beep/duskmantle-gateway/internal/db"
	"github.com/tachyon-beep/duskmantle-gateway/internal/domain"
)

// Searcher is the slice of the store this repository needs.
type Searcher interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Repo retrieves candidate chunks by dense vector similarity.
type Repo struct {
	embedder     domain.Embedder
	store        Searcher
	indexName    string
	hnswEfSearch int
	onFailure    func(error)
	logger       *zap.Logger
}

// Option configures a Repo.
type Option func(*Repo)

// WithEfSearch sets the HNSW EF_RUNTIME parameter applied to KNN queries.
// Zero leaves the index default in place.
func WithEfSearch(ef int) Option {
	return func(r *Repo) { r.hnswEfSearch = ef }
}

// WithFailureCallback registers a hook invoked whenever retrieval fails.
func WithFailureCallback(fn func(error)) Option {
	return func(r *Repo) { r.onFailure = fn }
}

func NewRepo(embedder domain.Embedder, store Searcher, indexName string, logger *zap.Logger, opts ...Option) *Repo {
	r := &Repo{
		embedder:  embedder,
		store:     store,
		indexName: indexName,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// EfSearch reports the configured EF_RUNTIME value, zero when unset.
func (r *Repo) EfSearch() int {
	return r.hnswEfSearch
}

// With an explicit RETURN clause the KNN distance is only returned when
// __vector_score is requested alongside the payload fields.
var returnFields = []string{
	"chunk_id", "path", "artifact_type", "subsystem", "namespace", "tags",
	"text", "coverage_missing", "coverage_ratio", "subsystem_criticality",
	"git_timestamp", "last_modified", "updated_at", "__vector_score",
}

// Retrieve embeds the query text and runs a KNN search against the chunk
// index. Failures are reported through the failure callback and wrapped in
// domain.ErrRetrieval.
func (r *Repo) Retrieve(ctx context.Context, query string, limit int, requestID string) ([]domain.CandidateChunk, error) {
	emb, err := r.embedder.Embed(ctx, query)
	if err != nil {
		r.logger.Error("embed search query failed",
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		r.fail(err)
		return nil, fmt.Errorf("encode search query: %v: %w", err, domain.ErrRetrieval)
	}

	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.indexName,
		Vector:       emb.Embedding,
		K:            limit,
		ReturnFields: returnFields,
		EfRuntime:    r.hnswEfSearch,
	})
	if err != nil {
		r.logger.Error("vector search failed",
			zap.String("request_id", requestID),
			zap.String("index", r.indexName),
			zap.Error(err),
		)
		r.fail(err)
		return nil, fmt.Errorf("knn search: %v: %w", err, domain.ErrRetrieval)
	}

	chunks := make([]domain.CandidateChunk, 0, len(res.Entries))
	for _, entry := range res.Entries {
		chunks = append(chunks, chunkFromEntry(entry))
	}
	return chunks, nil
}

func (r *Repo) fail(err error) {
	if r.onFailure != nil {
		r.onFailure(err)
	}
}

func chunkFromEntry(entry db.SearchEntry) domain.CandidateChunk {
	f := entry.Fields
	chunk := domain.CandidateChunk{
		ChunkID:              f["chunk_id"],
		ArtifactPath:         f["path"],
		ArtifactType:         f["artifact_type"],
		Subsystem:            f["subsystem"],
		Namespace:            f["namespace"],
		Text:                 f["text"],
		SubsystemCriticality: f["subsystem_criticality"],
		GitTimestamp:         f["git_timestamp"],
		LastModified:         f["last_modified"],
		UpdatedAt:            f["updated_at"],
		VectorScore:          entry.Score,
	}
	if chunk.ChunkID == "" {
		chunk.ChunkID = entry.Key
	}
	if tags := strings.TrimSpace(f["tags"]); tags != "" {
		for _, t := range strings.Split(tags, ",") {
			if t = strings.TrimSpace(t); t != "" {
				chunk.Tags = append(chunk.Tags, t)
			}
		}
	}
	if v, ok := f["coverage_missing"]; ok {
		chunk.CoverageMissing = v == "1" || strings.EqualFold(v, "true")
	}
	if v, ok := f["coverage_ratio"]; ok && v != "" {
		if ratio, err := strconv.ParseFloat(v, 64); err == nil {
			chunk.CoverageRatio = &ratio
		}
	}
	return chunk
}
