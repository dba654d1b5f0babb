package embcache

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/tachyon-beep/duskmantle-gateway/internal/domain"
)

type stubInner struct {
	result domain.EmbeddingResult
	err    error
	calls  int
}

func (s *stubInner) Embed(context.Context, string) (domain.EmbeddingResult, error) {
	s.calls++
	return s.result, s.err
}

type memoryKV struct {
	values map[string]string
	getErr error
	setErr error
}

func newMemoryKV() *memoryKV {
	return &memoryKV{values: map[string]string{}}
}

func (m *memoryKV) Get(_ context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if v, ok := m.values[key]; ok {
		return []byte(v), nil
	}
	return nil, errors.New("not found")
}

func (m *memoryKV) SetWithTTL(_ context.Context, key string, value []byte, _ time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.values[key] = string(value)
	return nil
}

func TestEmbedCachesResult(t *testing.T) {
	inner := &stubInner{result: domain.EmbeddingResult{Embedding: []float32{0.1, 0.2}, TotalTokens: 3}}
	cache := NewEmbedder(inner, newMemoryKV(), time.Hour, zap.NewNop())

	first, err := cache.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	second, err := cache.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("inner calls = %d, want 1", inner.calls)
	}
	if len(second.Embedding) != len(first.Embedding) || second.TotalTokens != first.TotalTokens {
		t.Errorf("cached result = %+v, want %+v", second, first)
	}
}

func TestEmbedDistinctTextsMiss(t *testing.T) {
	inner := &stubInner{result: domain.EmbeddingResult{Embedding: []float32{0.1}}}
	cache := NewEmbedder(inner, newMemoryKV(), time.Hour, zap.NewNop())

	if _, err := cache.Embed(context.Background(), "one"); err != nil {
		t.Fatal(err)
	}
	if _, err := cache.Embed(context.Background(), "two"); err != nil {
		t.Fatal(err)
	}
	if inner.calls != 2 {
		t.Errorf("inner calls = %d, want 2", inner.calls)
	}
}

func TestEmbedCacheWriteFailureDegrades(t *testing.T) {
	kv := newMemoryKV()
	kv.setErr = errors.New("oom")
	inner := &stubInner{result: domain.EmbeddingResult{Embedding: []float32{0.1}}}
	cache := NewEmbedder(inner, kv, time.Hour, zap.NewNop())

	if _, err := cache.Embed(context.Background(), "hello"); err != nil {
		t.Fatalf("Embed() error = %v, cache write failure must not surface", err)
	}
}

func TestEmbedInnerErrorPropagates(t *testing.T) {
	inner := &stubInner{err: fmt.Errorf("provider: %w", domain.ErrEmbeddingProviderError)}
	cache := NewEmbedder(inner, newMemoryKV(), time.Hour, zap.NewNop())

	if _, err := cache.Embed(context.Background(), "hello"); !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("error = %v, want provider error", err)
	}
}
