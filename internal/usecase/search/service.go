package search

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tachyon-beep/duskmantle-gateway/internal/domain"
	"github.com/tachyon-beep/duskmantle-gateway/internal/metrics"
)

// Config is the immutable search tuning set at construction.
type Config struct {
	MaxLimit        int
	GraphMaxResults int
	GraphTimeBudget time.Duration
	SlowGraphWarn   time.Duration
	ScoringMode     string
	WeightProfile   string
	Weights         domain.Weights
	HNSWEfSearch    int
}

// Service orchestrates one search request: retrieve, filter, enrich,
// score, sort, and assemble response metadata.
type Service struct {
	retriever Retriever
	graph     GraphService
	cfg       Config
	model     *ModelArtifact
	logger    *zap.Logger
	nowFn     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the service clock.
func WithClock(nowFn func() time.Time) Option {
	return func(s *Service) { s.nowFn = nowFn }
}

// NewService builds the orchestrator. A nil graph service disables
// enrichment; ml scoring without a model artifact downgrades to heuristic.
func NewService(retriever Retriever, graph GraphService, cfg Config, model *ModelArtifact, logger *zap.Logger, opts ...Option) *Service {
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = 25
	}
	cfg.Weights.Vector, cfg.Weights.Lexical = domain.NormalizeHybrid(cfg.Weights.Vector, cfg.Weights.Lexical)
	if cfg.WeightProfile == "" {
		cfg.WeightProfile = "default"
	}
	if cfg.ScoringMode == "" {
		cfg.ScoringMode = domain.ScoringModeHeuristic
	}
	if cfg.ScoringMode == domain.ScoringModeML && model == nil {
		logger.Warn("ml scoring requested without a model artifact, using heuristic scoring")
		cfg.ScoringMode = domain.ScoringModeHeuristic
	}

	s := &Service{
		retriever: retriever,
		graph:     graph,
		cfg:       cfg,
		model:     model,
		logger:    logger,
		nowFn:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// warningList accumulates response warnings, deduplicating repeats so a
// budget exhausted across many candidates reads as a single message.
type warningList struct {
	seen map[string]bool
	list []string
}

func newWarningList() *warningList {
	return &warningList{seen: map[string]bool{}}
}

func (w *warningList) add(msg string) {
	if w.seen[msg] {
		return
	}
	w.seen[msg] = true
	w.list = append(w.list, msg)
}

func (w *warningList) messages() []string {
	if w.list == nil {
		return []string{}
	}
	return w.list
}

func (w *warningList) count() int { return len(w.list) }

// Search runs the full pipeline for one request. Only retrieval failure
// propagates as an error; graph and model degradation become warnings.
func (s *Service) Search(ctx context.Context, req domain.SearchRequest) (domain.SearchResponse, error) {
	limit := req.Limit
	if limit < 1 {
		limit = 1
	}
	if limit > s.cfg.MaxLimit {
		limit = s.cfg.MaxLimit
	}

	candidates, err := s.retriever.Retrieve(ctx, req.Query, limit, req.RequestID)
	if err != nil {
		return domain.SearchResponse{}, err
	}

	now := s.nowFn()
	state := buildFilterState(req.Filters, now)
	queryTokens := tokenize(req.Query)
	warnings := newWarningList()

	graphAvailable := s.graph != nil
	var enricher *graphEnricher
	if graphAvailable {
		enricher = newGraphEnricher(
			s.graph,
			s.cfg.GraphMaxResults,
			s.cfg.GraphTimeBudget,
			s.cfg.SlowGraphWarn,
			req.IncludeGraph,
			s.logger,
			s.nowFn,
		)
	}

	results := make([]domain.SearchResult, 0, len(candidates))
	for _, chunk := range candidates {
		if !payloadPassesFilters(chunk, state) {
			continue
		}

		lexical := lexicalScore(queryTokens, chunk)
		scoring := baseScoring(chunk, lexical, s.cfg.Weights)

		directMatch := !state.subsystemFilterActive() ||
			state.Subsystems[strings.ToLower(chunk.Subsystem)]
		hasOwnTimestamp := chunkHasTimestamp(chunk)

		var graphCtx *domain.GraphContext
		var pathDepth *int
		needsGraph := req.IncludeGraph ||
			(state.subsystemFilterActive() && !directMatch) ||
			(state.recencyFilterActive() && !hasOwnTimestamp)
		if needsGraph && enricher != nil {
			graphCtx, pathDepth = enricher.resolve(ctx, chunk, warnings)
		}

		if state.subsystemFilterActive() && !directMatch && !subsystemInGraph(state, graphCtx) {
			continue
		}

		if state.recencyFilterActive() {
			ts, ok := resolveTimestamp(chunk, graphCtx)
			if !ok {
				warnings.add("recency filter skipped results lacking timestamps")
				continue
			}
			if ts.Before(*state.RecencyCutoff) {
				continue
			}
		}

		if graphCtx != nil && req.IncludeGraph {
			applyGraphScoring(&scoring, chunk, graphCtx, queryTokens, s.cfg.Weights)
			populateAdditionalSignals(&scoring, chunk, graphCtx, pathDepth, now)
			metrics.SearchScoreDelta.Observe(
				scoring.AdjustedScore - (scoring.WeightedVectorScore + scoring.WeightedLexicalScore))
		}

		scoring.Mode = s.cfg.ScoringMode
		if s.cfg.ScoringMode == domain.ScoringModeML && s.model != nil {
			score, contributions, err := scoreWithModel(s.model, scoring, graphCtx, req.IncludeGraph && graphAvailable, warnings.count())
			if err != nil {
				warnings.add("ml scoring unavailable")
				s.logger.Warn("model scoring failed", zap.Error(err))
				scoring.Mode = domain.ScoringModeHeuristic
			} else {
				scoring.AdjustedScore = score
				scoring.Model = &domain.ModelBreakdown{
					Score:         score,
					Intercept:     s.model.Intercept,
					Contributions: contributions,
				}
			}
		}

		result := domain.SearchResult{Chunk: chunk, Scoring: scoring}
		if req.IncludeGraph {
			result.GraphContext = graphCtx
		}
		results = append(results, result)
	}

	if req.SortByVector {
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].Scoring.VectorScore > results[j].Scoring.VectorScore
		})
	} else {
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].Scoring.AdjustedScore > results[j].Scoring.AdjustedScore
		})
	}

	metadata := domain.SearchMetadata{
		ResultCount:          len(results),
		GraphContextIncluded: req.IncludeGraph && graphAvailable,
		Warnings:             warnings.messages(),
		ScoringMode:          s.cfg.ScoringMode,
		WeightProfile:        s.cfg.WeightProfile,
		Weights: domain.WeightSnapshot{
			WeightSubsystem:       s.cfg.Weights.Subsystem,
			WeightRelationship:    s.cfg.Weights.Relationship,
			WeightSupport:         s.cfg.Weights.Support,
			WeightCoveragePenalty: s.cfg.Weights.CoveragePenalty,
			WeightCriticality:     s.cfg.Weights.Criticality,
			VectorWeight:          s.cfg.Weights.Vector,
			LexicalWeight:         s.cfg.Weights.Lexical,
		},
		HybridWeights: domain.HybridWeights{
			Vector:  s.cfg.Weights.Vector,
			Lexical: s.cfg.Weights.Lexical,
		},
		HNSWEfSearch:   s.cfg.HNSWEfSearch,
		FiltersApplied: state.Applied,
		RequestID:      req.RequestID,
	}

	return domain.SearchResponse{
		Query:    req.Query,
		Results:  results,
		Metadata: metadata,
	}, nil
}

func chunkHasTimestamp(chunk domain.CandidateChunk) bool {
	for _, raw := range []string{chunk.GitTimestamp, chunk.LastModified, chunk.UpdatedAt} {
		if _, ok := parseTimeValue(raw); ok {
			return true
		}
	}
	return false
}

func subsystemInGraph(state FilterState, graphCtx *domain.GraphContext) bool {
	if graphCtx == nil {
		return false
	}
	for _, name := range graphCtx.NeighborSubsystems {
		if state.Subsystems[strings.ToLower(name)] {
			return true
		}
	}
	return false
}
