package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tachyon-beep/duskmantle-gateway/internal/domain"
	"github.com/tachyon-beep/duskmantle-gateway/internal/logger"
)

// InstrumentedEmbedder wraps an embedder with latency logging.
type InstrumentedEmbedder struct {
	inner    domain.Embedder
	provider string
	model    string
}

func NewInstrumentedEmbedder(inner domain.Embedder, provider, model string) *InstrumentedEmbedder {
	return &InstrumentedEmbedder{inner: inner, provider: provider, model: model}
}

func (e *InstrumentedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	start := time.Now()
	result, err := e.inner.Embed(ctx, text)
	elapsed := time.Since(start)

	log := logger.FromContext(ctx)
	if err != nil {
		log.Error("embedding request failed",
			zap.String("provider", e.provider),
			zap.String("model", e.model),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	log.Debug("embedding request complete",
		zap.String("provider", e.provider),
		zap.String("model", e.model),
		zap.Duration("elapsed", elapsed),
		zap.Int("total_tokens", result.TotalTokens),
	)
	return result, nil
}
