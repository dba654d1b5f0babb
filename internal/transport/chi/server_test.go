package chi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/tachyon-beep/duskmantle-gateway/internal/domain"
	healthuc "github.com/tachyon-beep/duskmantle-gateway/internal/usecase/health"
	searchuc "github.com/tachyon-beep/duskmantle-gateway/internal/usecase/search"
)

type stubRetriever struct {
	chunks []domain.CandidateChunk
	err    error
}

func (s *stubRetriever) Retrieve(context.Context, string, int, string) ([]domain.CandidateChunk, error) {
	return s.chunks, s.err
}

type stubPinger struct{ err error }

func (s *stubPinger) Ping(context.Context) error { return s.err }

func newTestServer(retriever searchuc.Retriever) *Server {
	svc := searchuc.NewService(retriever, nil, searchuc.Config{MaxLimit: 25}, nil, zap.NewNop())
	return NewServer(svc, healthuc.New(&stubPinger{}, nil), zap.NewNop())
}

func TestSearchHandler(t *testing.T) {
	server := newTestServer(&stubRetriever{chunks: []domain.CandidateChunk{
		{ChunkID: "c1", ArtifactPath: "a.go", ArtifactType: "code", VectorScore: 0.9},
	}})

	body := `{"query":"ranking pipeline","limit":5}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", strings.NewReader(body))
	rec := httptest.NewRecorder()
	server.SearchHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}

	var resp domain.SearchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Query != "ranking pipeline" {
		t.Errorf("query = %q", resp.Query)
	}
	if len(resp.Results) != 1 || resp.Results[0].Chunk.ChunkID != "c1" {
		t.Errorf("results = %+v", resp.Results)
	}
	if resp.Metadata.Warnings == nil {
		t.Error("warnings should serialize as an empty list")
	}
}

func TestSearchHandlerRejectsEmptyQuery(t *testing.T) {
	server := newTestServer(&stubRetriever{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", strings.NewReader(`{"query":"  "}`))
	rec := httptest.NewRecorder()
	server.SearchHandler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSearchHandlerRejectsMalformedBody(t *testing.T) {
	server := newTestServer(&stubRetriever{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", strings.NewReader(`{not json`))
	rec := httptest.NewRecorder()
	server.SearchHandler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSearchHandlerRetrievalFailure(t *testing.T) {
	server := newTestServer(&stubRetriever{
		err: fmt.Errorf("knn search: index down: %w", domain.ErrRetrieval),
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", strings.NewReader(`{"query":"q"}`))
	rec := httptest.NewRecorder()
	server.SearchHandler(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestHealthHandler(t *testing.T) {
	server := newTestServer(&stubRetriever{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	server.HealthHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Status != "ok" {
		t.Errorf("status = %q, want ok", body.Status)
	}
}

func TestHealthHandlerDegraded(t *testing.T) {
	svc := searchuc.NewService(&stubRetriever{}, nil, searchuc.Config{MaxLimit: 25}, nil, zap.NewNop())
	server := NewServer(svc, healthuc.New(&stubPinger{err: fmt.Errorf("refused")}, nil), zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	server.HealthHandler(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}
