package vector

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/tachyon-beep/duskmantle-gateway/internal/db"
	"github.com/tachyon-beep/duskmantle-gateway/internal/domain"
)

type stubEmbedder struct {
	result domain.EmbeddingResult
	err    error
}

func (s *stubEmbedder) Embed(context.Context, string) (domain.EmbeddingResult, error) {
	return s.result, s.err
}

type stubSearcher struct {
	result    *db.SearchResult
	err       error
	lastQuery *db.KNNQuery
}

func (s *stubSearcher) SearchKNN(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	s.lastQuery = q
	if s.err != nil {
		return nil, s.err
	}
	if s.result == nil {
		return &db.SearchResult{}, nil
	}
	return s.result, nil
}

func TestRetrieveParsesPayload(t *testing.T) {
	searcher := &stubSearcher{result: &db.SearchResult{
		Total: 1,
		Entries: []db.SearchEntry{{
			Key:   "km:chunk:abc",
			Score: 0.87,
			Fields: map[string]string{
				"chunk_id":              "abc",
				"path":                  "src/core/search.go",
				"artifact_type":         "code",
				"subsystem":             "core",
				"namespace":             "gateway",
				"tags":                  "search, ranking",
				"text":                  "ranking pipeline",
				"coverage_missing":      "1",
				"coverage_ratio":        "0.42",
				"subsystem_criticality": "high",
				"git_timestamp":         "1765800000",
			},
		}},
	}}
	repo := NewRepo(&stubEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1, 0.2}}},
		searcher, "km_chunks", zap.NewNop(), WithEfSearch(128))

	chunks, err := repo.Retrieve(context.Background(), "ranking", 5, "req-1")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("chunk count = %d, want 1", len(chunks))
	}

	chunk := chunks[0]
	if chunk.ChunkID != "abc" || chunk.ArtifactPath != "src/core/search.go" {
		t.Errorf("chunk identity = %q/%q", chunk.ChunkID, chunk.ArtifactPath)
	}
	if len(chunk.Tags) != 2 || chunk.Tags[0] != "search" || chunk.Tags[1] != "ranking" {
		t.Errorf("tags = %v, want [search ranking]", chunk.Tags)
	}
	if !chunk.CoverageMissing {
		t.Error("coverage_missing should parse true")
	}
	if chunk.CoverageRatio == nil || *chunk.CoverageRatio != 0.42 {
		t.Errorf("coverage_ratio = %v, want 0.42", chunk.CoverageRatio)
	}
	if chunk.VectorScore != 0.87 {
		t.Errorf("vector score = %v, want 0.87", chunk.VectorScore)
	}

	if searcher.lastQuery.IndexName != "km_chunks" {
		t.Errorf("index = %q, want km_chunks", searcher.lastQuery.IndexName)
	}
	if searcher.lastQuery.EfRuntime != 128 {
		t.Errorf("ef runtime = %d, want 128", searcher.lastQuery.EfRuntime)
	}
	if searcher.lastQuery.K != 5 {
		t.Errorf("k = %d, want 5", searcher.lastQuery.K)
	}
}

func TestRetrieveRequestsVectorScoreField(t *testing.T) {
	searcher := &stubSearcher{result: &db.SearchResult{Entries: []db.SearchEntry{{
		Key:    "km:chunk:abc",
		Score:  0.91,
		Fields: map[string]string{"chunk_id": "abc"},
	}}}}
	repo := NewRepo(&stubEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1}}},
		searcher, "km_chunks", zap.NewNop())

	chunks, err := repo.Retrieve(context.Background(), "q", 1, "")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}

	requested := false
	for _, f := range searcher.lastQuery.ReturnFields {
		if f == "__vector_score" {
			requested = true
		}
	}
	if !requested {
		t.Errorf("RETURN fields %v must include __vector_score", searcher.lastQuery.ReturnFields)
	}
	if chunks[0].VectorScore != 0.91 {
		t.Errorf("vector score = %v, want 0.91", chunks[0].VectorScore)
	}
}

func TestRetrieveFallsBackToEntryKeyForChunkID(t *testing.T) {
	searcher := &stubSearcher{result: &db.SearchResult{Entries: []db.SearchEntry{{
		Key:    "km:chunk:xyz",
		Score:  0.5,
		Fields: map[string]string{"path": "a.go"},
	}}}}
	repo := NewRepo(&stubEmbedder{}, searcher, "idx", zap.NewNop())

	chunks, err := repo.Retrieve(context.Background(), "q", 1, "")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if chunks[0].ChunkID != "km:chunk:xyz" {
		t.Errorf("chunk id = %q, want entry key fallback", chunks[0].ChunkID)
	}
}

func TestRetrieveEmbedFailure(t *testing.T) {
	var captured error
	repo := NewRepo(&stubEmbedder{err: errors.New("provider down")}, &stubSearcher{}, "idx",
		zap.NewNop(), WithFailureCallback(func(err error) { captured = err }))

	_, err := repo.Retrieve(context.Background(), "q", 5, "req-1")
	if !errors.Is(err, domain.ErrRetrieval) {
		t.Fatalf("error = %v, want ErrRetrieval", err)
	}
	if captured == nil {
		t.Error("failure callback not invoked")
	}
}

func TestRetrieveSearchFailure(t *testing.T) {
	var captured error
	repo := NewRepo(&stubEmbedder{}, &stubSearcher{err: errors.New("index down")}, "idx",
		zap.NewNop(), WithFailureCallback(func(err error) { captured = err }))

	_, err := repo.Retrieve(context.Background(), "q", 5, "req-1")
	if !errors.Is(err, domain.ErrRetrieval) {
		t.Fatalf("error = %v, want ErrRetrieval", err)
	}
	if captured == nil {
		t.Error("failure callback not invoked")
	}
}
