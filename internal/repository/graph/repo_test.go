package graph

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/tachyon-beep/duskmantle-gateway/internal/db"
	"github.com/tachyon-beep/duskmantle-gateway/internal/domain"
)

type stubStore struct {
	hashes map[string]map[string]string
	kv     map[string]string
	err    error
}

func (s *stubStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.hashes[key], nil
}

func (s *stubStore) Get(_ context.Context, key string) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	if v, ok := s.kv[key]; ok {
		return []byte(v), nil
	}
	return nil, fmt.Errorf("get %q: %w", key, db.ErrKeyNotFound)
}

func TestGetNode(t *testing.T) {
	store := &stubStore{
		hashes: map[string]map[string]string{
			"km:graph:node:SourceFile:a.go": {
				"labels":     "SourceFile",
				"properties": `{"git_timestamp":"1765800000"}`,
			},
		},
		kv: map[string]string{
			"km:graph:adj:SourceFile:a.go": `[
				{"type":"BELONGS_TO","direction":"out","target":"Subsystem:core"},
				{"type":"DESCRIBES","direction":"in","target":"DesignDoc:docs/a.md"}
			]`,
		},
	}
	repo := NewRepo(store, zap.NewNop())

	n, err := repo.GetNode(context.Background(), "SourceFile:a.go", 10)
	if err != nil {
		t.Fatalf("GetNode() error = %v", err)
	}
	if n.Node.ID != "SourceFile:a.go" || len(n.Node.Labels) != 1 {
		t.Errorf("node = %+v", n.Node)
	}
	if n.Node.Properties["git_timestamp"] != "1765800000" {
		t.Errorf("properties = %v", n.Node.Properties)
	}
	if len(n.Relationships) != 2 {
		t.Fatalf("relationship count = %d, want 2", len(n.Relationships))
	}
	if n.Relationships[0].Target.ID != "Subsystem:core" {
		t.Errorf("target = %q", n.Relationships[0].Target.ID)
	}
}

func TestGetNodeTruncatesRelationships(t *testing.T) {
	store := &stubStore{
		hashes: map[string]map[string]string{
			"km:graph:node:SourceFile:a.go": {"labels": "SourceFile"},
		},
		kv: map[string]string{
			"km:graph:adj:SourceFile:a.go": `[
				{"type":"HAS_CHUNK","target":"Chunk:1"},
				{"type":"HAS_CHUNK","target":"Chunk:2"},
				{"type":"HAS_CHUNK","target":"Chunk:3"}
			]`,
		},
	}
	repo := NewRepo(store, zap.NewNop())

	n, err := repo.GetNode(context.Background(), "SourceFile:a.go", 2)
	if err != nil {
		t.Fatalf("GetNode() error = %v", err)
	}
	if len(n.Relationships) != 2 {
		t.Errorf("relationship count = %d, want 2", len(n.Relationships))
	}
}

func TestGetNodeMissing(t *testing.T) {
	repo := NewRepo(&stubStore{}, zap.NewNop())
	_, err := repo.GetNode(context.Background(), "SourceFile:missing.go", 10)
	if !errors.Is(err, domain.ErrGraphNotFound) {
		t.Fatalf("error = %v, want ErrGraphNotFound", err)
	}
}

func TestGetNodeNoAdjacency(t *testing.T) {
	store := &stubStore{
		hashes: map[string]map[string]string{
			"km:graph:node:SourceFile:a.go": {"labels": "SourceFile"},
		},
	}
	repo := NewRepo(store, zap.NewNop())

	n, err := repo.GetNode(context.Background(), "SourceFile:a.go", 10)
	if err != nil {
		t.Fatalf("GetNode() error = %v", err)
	}
	if len(n.Relationships) != 0 {
		t.Errorf("relationship count = %d, want 0", len(n.Relationships))
	}
}

func TestGetNodeStoreFailure(t *testing.T) {
	repo := NewRepo(&stubStore{err: errors.New("connection refused")}, zap.NewNop())
	_, err := repo.GetNode(context.Background(), "SourceFile:a.go", 10)
	if !errors.Is(err, domain.ErrGraphQuery) {
		t.Fatalf("error = %v, want ErrGraphQuery", err)
	}
}

func TestShortestPathDepth(t *testing.T) {
	store := &stubStore{
		hashes: map[string]map[string]string{
			"km:graph:node:SourceFile:a.go": {"labels": "SourceFile"},
			"km:graph:node:Chunk:mid":       {"labels": "Chunk"},
			"km:graph:node:Subsystem:core":  {"labels": "Subsystem"},
		},
		kv: map[string]string{
			"km:graph:adj:SourceFile:a.go": `[{"type":"HAS_CHUNK","target":"Chunk:mid"}]`,
			"km:graph:adj:Chunk:mid":       `[{"type":"BELONGS_TO","target":"Subsystem:core"}]`,
		},
	}
	repo := NewRepo(store, zap.NewNop())

	depth, found, err := repo.ShortestPathDepth(context.Background(), "SourceFile:a.go", 4)
	if err != nil {
		t.Fatalf("ShortestPathDepth() error = %v", err)
	}
	if !found || depth != 2 {
		t.Errorf("depth = (%d, %v), want (2, true)", depth, found)
	}
}

func TestShortestPathDepthUnreachable(t *testing.T) {
	store := &stubStore{
		hashes: map[string]map[string]string{
			"km:graph:node:SourceFile:a.go": {"labels": "SourceFile"},
		},
		kv: map[string]string{
			"km:graph:adj:SourceFile:a.go": `[{"type":"HAS_CHUNK","target":"Chunk:orphan"}]`,
		},
	}
	repo := NewRepo(store, zap.NewNop())

	_, found, err := repo.ShortestPathDepth(context.Background(), "SourceFile:a.go", 4)
	if err != nil {
		t.Fatalf("ShortestPathDepth() error = %v", err)
	}
	if found {
		t.Error("unreachable subsystem should report found=false")
	}
}

func TestShortestPathDepthIgnoresUntraversedEdgeTypes(t *testing.T) {
	store := &stubStore{
		hashes: map[string]map[string]string{
			"km:graph:node:SourceFile:a.go": {"labels": "SourceFile"},
			"km:graph:node:Subsystem:core":  {"labels": "Subsystem"},
		},
		kv: map[string]string{
			"km:graph:adj:SourceFile:a.go": `[{"type":"MENTIONS","target":"Subsystem:core"}]`,
		},
	}
	repo := NewRepo(store, zap.NewNop())

	_, found, err := repo.ShortestPathDepth(context.Background(), "SourceFile:a.go", 4)
	if err != nil {
		t.Fatalf("ShortestPathDepth() error = %v", err)
	}
	if found {
		t.Error("non-ownership edges must not be traversed")
	}
}
