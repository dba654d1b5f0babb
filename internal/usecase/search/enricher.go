package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tachyon-beep/duskmantle-gateway/internal/domain"
	"github.com/tachyon-beep/duskmantle-gateway/internal/metrics"
)

const (
	relationshipLimit = 10
	shortestPathDepth = 4
)

// nodeIDFor maps a candidate to its graph node identity.
func nodeIDFor(chunk domain.CandidateChunk) string {
	var label string
	switch strings.ToLower(chunk.ArtifactType) {
	case "doc":
		label = "DesignDoc"
	case "test":
		label = "TestCase"
	default:
		label = "SourceFile"
	}
	return label + ":" + chunk.ArtifactPath
}

type cacheEntry struct {
	context   *domain.GraphContext
	pathDepth *int
}

// budgetState is the per-request enrichment arena: slot quota, wall-clock
// deadline, and the node cache. Constructed at the top of a search call
// and discarded with it.
type budgetState struct {
	slotsRemaining int
	maxSlots       int
	deadline       time.Time
	hasDeadline    bool
	slotsExhausted bool
	timeExhausted  bool
	cache          map[string]cacheEntry
}

// graphEnricher performs budgeted, cached graph lookups for one request.
type graphEnricher struct {
	graph    GraphService
	budget   *budgetState
	slowWarn time.Duration
	logger   *zap.Logger
	nowFn    func() time.Time
}

func newGraphEnricher(graph GraphService, maxResults int, timeBudget, slowWarn time.Duration, enforceDeadline bool, logger *zap.Logger, nowFn func() time.Time) *graphEnricher {
	budget := &budgetState{
		slotsRemaining: maxResults,
		maxSlots:       maxResults,
		cache:          map[string]cacheEntry{},
	}
	if enforceDeadline && timeBudget > 0 {
		budget.deadline = nowFn().Add(timeBudget)
		budget.hasDeadline = true
	}
	return &graphEnricher{
		graph:    graph,
		budget:   budget,
		slowWarn: slowWarn,
		logger:   logger,
		nowFn:    nowFn,
	}
}

// resolve returns the graph context and shortest-path depth for a candidate.
// Cache hits are always served and never consume budget. Budget exhaustion
// and lookup failures cache a null context and append a warning; resolve
// never fails the request.
func (e *graphEnricher) resolve(ctx context.Context, chunk domain.CandidateChunk, warnings *warningList) (*domain.GraphContext, *int) {
	nodeID := nodeIDFor(chunk)

	if entry, ok := e.budget.cache[nodeID]; ok {
		metrics.SearchGraphCacheEvents.WithLabelValues("hit").Inc()
		return entry.context, entry.pathDepth
	}
	metrics.SearchGraphCacheEvents.WithLabelValues("miss").Inc()

	if e.budget.slotsRemaining <= 0 {
		e.budget.slotsExhausted = true
		metrics.SearchGraphSkippedTotal.WithLabelValues("limit").Inc()
		warnings.add(fmt.Sprintf("graph context limited to first %d results", e.budget.maxSlots))
		e.budget.cache[nodeID] = cacheEntry{}
		return nil, nil
	}
	if e.budget.timeExhausted || (e.budget.hasDeadline && e.nowFn().After(e.budget.deadline)) {
		e.budget.timeExhausted = true
		metrics.SearchGraphSkippedTotal.WithLabelValues("time").Inc()
		warnings.add("graph context skipped after exceeding time budget")
		e.budget.cache[nodeID] = cacheEntry{}
		return nil, nil
	}

	start := time.Now()
	neighborhood, err := e.graph.GetNode(ctx, nodeID, relationshipLimit)
	elapsed := time.Since(start)
	metrics.SearchGraphLookupSeconds.Observe(elapsed.Seconds())
	if e.slowWarn > 0 && elapsed > e.slowWarn {
		e.logger.Warn("slow graph lookup",
			zap.String("node_id", nodeID),
			zap.Duration("elapsed", elapsed),
		)
	}

	if err != nil {
		metrics.SearchGraphCacheEvents.WithLabelValues("error").Inc()
		if errors.Is(err, domain.ErrGraphNotFound) {
			warnings.add(fmt.Sprintf("graph context unavailable for %s", nodeID))
		} else {
			warnings.add(fmt.Sprintf("graph lookup failed for %s", nodeID))
			e.logger.Warn("graph lookup failed",
				zap.String("node_id", nodeID),
				zap.Error(err),
			)
		}
		e.budget.cache[nodeID] = cacheEntry{}
		e.checkDeadline()
		return nil, nil
	}

	graphCtx := summarizeNeighborhood(neighborhood)

	var pathDepth *int
	if depth, found, err := e.graph.ShortestPathDepth(ctx, nodeID, shortestPathDepth); err != nil {
		warnings.add("graph path depth unavailable")
		e.logger.Warn("shortest path lookup failed",
			zap.String("node_id", nodeID),
			zap.Error(err),
		)
	} else if found {
		pathDepth = &depth
	}

	e.budget.slotsRemaining--
	e.budget.cache[nodeID] = cacheEntry{context: graphCtx, pathDepth: pathDepth}
	e.checkDeadline()
	return graphCtx, pathDepth
}

// checkDeadline marks time exhaustion for subsequent candidates; it never
// retracts the lookup that just completed.
func (e *graphEnricher) checkDeadline() {
	if e.budget.hasDeadline && e.nowFn().After(e.budget.deadline) {
		e.budget.timeExhausted = true
	}
}

// summarizeNeighborhood derives the scoring-facing view of a node and its
// relationships: the neighbor subsystems and the supporting artifacts.
func summarizeNeighborhood(n domain.GraphNeighborhood) *domain.GraphContext {
	graphCtx := &domain.GraphContext{
		PrimaryNode:   n.Node,
		Relationships: n.Relationships,
	}
	seen := map[string]bool{}
	for _, rel := range n.Relationships {
		target := rel.Target.ID
		if target == "" {
			continue
		}
		if name, ok := strings.CutPrefix(target, "Subsystem:"); ok && !seen[name] {
			seen[name] = true
			graphCtx.NeighborSubsystems = append(graphCtx.NeighborSubsystems, name)
		}
		if rel.Type == "DESCRIBES" || rel.Type == "VALIDATES" {
			graphCtx.RelatedArtifacts = append(graphCtx.RelatedArtifacts, domain.RelatedArtifact{
				ID:           target,
				Relationship: rel.Type,
			})
		}
	}
	return graphCtx
}
