package search

import (
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/tachyon-beep/duskmantle-gateway/internal/domain"
)

const maxRelationshipCredit = 5

var criticalityLevels = map[string]float64{
	"low":      0.2,
	"medium":   0.5,
	"high":     0.8,
	"critical": 1.0,
}

// tokenize splits on non-alphanumeric boundaries into a lower-cased token set.
func tokenize(values ...string) map[string]bool {
	tokens := map[string]bool{}
	for _, value := range values {
		var sb strings.Builder
		for _, r := range strings.ToLower(value) {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				sb.WriteRune(r)
				continue
			}
			if sb.Len() > 0 {
				tokens[sb.String()] = true
				sb.Reset()
			}
		}
		if sb.Len() > 0 {
			tokens[sb.String()] = true
		}
	}
	return tokens
}

// lexicalScore awards each query token 1.0 for a verbatim match in the
// document tokens, 0.5 for a substring match in either direction, and
// divides by the query token count. Always in [0, 1].
func lexicalScore(queryTokens map[string]bool, chunk domain.CandidateChunk) float64 {
	if len(queryTokens) == 0 {
		return 0
	}
	docValues := append([]string{chunk.Text, chunk.ArtifactPath}, chunk.Tags...)
	docTokens := tokenize(docValues...)
	if len(docTokens) == 0 {
		return 0
	}

	var total float64
	for qt := range queryTokens {
		if docTokens[qt] {
			total += 1.0
			continue
		}
		for dt := range docTokens {
			if strings.Contains(dt, qt) || strings.Contains(qt, dt) {
				total += 0.5
				break
			}
		}
	}
	return total / float64(len(queryTokens))
}

func baseScoring(chunk domain.CandidateChunk, lexical float64, weights domain.Weights) domain.ScoringRecord {
	weightedVector := weights.Vector * chunk.VectorScore
	weightedLexical := weights.Lexical * lexical
	return domain.ScoringRecord{
		VectorScore:          chunk.VectorScore,
		LexicalScore:         lexical,
		WeightedVectorScore:  weightedVector,
		WeightedLexicalScore: weightedLexical,
		AdjustedScore:        weightedVector + weightedLexical,
	}
}

// subsystemAffinity compares the candidate's owning subsystem against the
// query tokens. Exact token match scores 1.0, substring either way 0.5.
func subsystemAffinity(subsystem string, queryTokens map[string]bool) float64 {
	subsystem = strings.ToLower(strings.TrimSpace(subsystem))
	if subsystem == "" {
		return 0
	}
	if queryTokens[subsystem] {
		return 1.0
	}
	for qt := range queryTokens {
		if strings.Contains(qt, subsystem) || strings.Contains(subsystem, qt) {
			return 0.5
		}
	}
	return 0
}

func supportingBonus(graphCtx *domain.GraphContext) float64 {
	var docs, tests int
	for _, rel := range graphCtx.RelatedArtifacts {
		switch {
		case strings.HasPrefix(rel.ID, "DesignDoc:"):
			docs++
		case strings.HasPrefix(rel.ID, "TestCase:"):
			tests++
		}
	}
	return float64(min(docs, 2))*0.2 + float64(min(tests, 2))*0.1
}

// coverageRatio clamps an explicit ratio into [0, 1]; when absent it falls
// back to 0.0 for chunks flagged coverage_missing and 1.0 otherwise.
func coverageRatio(chunk domain.CandidateChunk) float64 {
	if chunk.CoverageRatio != nil {
		return clamp01(*chunk.CoverageRatio)
	}
	if chunk.CoverageMissing {
		return 0.0
	}
	return 1.0
}

func criticalityScore(raw string) float64 {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return 0
	}
	if v, err := strconv.ParseFloat(raw, 64); err == nil {
		return v
	}
	return criticalityLevels[raw]
}

func applyGraphScoring(scoring *domain.ScoringRecord, chunk domain.CandidateChunk, graphCtx *domain.GraphContext, queryTokens map[string]bool, weights domain.Weights) {
	affinity := subsystemAffinity(chunk.Subsystem, queryTokens)
	relCount := len(graphCtx.Relationships)
	support := supportingBonus(graphCtx)
	ratio := coverageRatio(chunk)
	penalty := weights.CoveragePenalty * (1 - ratio)
	criticality := criticalityScore(chunk.SubsystemCriticality)

	missing := 0.0
	if chunk.CoverageMissing {
		missing = 1.0
	}

	scoring.Signals = &domain.SignalSet{
		SubsystemAffinity: affinity,
		RelationshipCount: relCount,
		SupportingBonus:   support,
		CoverageMissing:   missing,
		CoverageRatio:     &ratio,
		CoveragePenalty:   penalty,
		CriticalityScore:  criticality,
	}

	scoring.AdjustedScore = scoring.WeightedVectorScore +
		scoring.WeightedLexicalScore +
		weights.Subsystem*affinity +
		weights.Relationship*float64(min(relCount, maxRelationshipCredit)) +
		weights.Support*support +
		weights.Criticality*criticality -
		penalty
}

// populateAdditionalSignals fills the explanatory signals that do not feed
// the heuristic score: path depth and freshness.
func populateAdditionalSignals(scoring *domain.ScoringRecord, chunk domain.CandidateChunk, graphCtx *domain.GraphContext, pathDepth *int, now time.Time) {
	if scoring.Signals == nil {
		scoring.Signals = &domain.SignalSet{}
	}

	if pathDepth != nil {
		depth := float64(*pathDepth)
		scoring.Signals.PathDepth = &depth
	} else if graphCtx != nil {
		depth := 0.0
		if graphCtx.HasRelationship("BELONGS_TO") {
			depth = 1.0
		}
		scoring.Signals.PathDepth = &depth
	}

	if ts, ok := resolveTimestamp(chunk, graphCtx); ok {
		days := max(now.Sub(ts).Hours()/24, 0)
		scoring.Signals.FreshnessDays = &days
	}
}

// resolveTimestamp finds the first parseable timestamp, preferring the
// candidate's own fields over graph node properties.
func resolveTimestamp(chunk domain.CandidateChunk, graphCtx *domain.GraphContext) (time.Time, bool) {
	for _, raw := range []string{chunk.GitTimestamp, chunk.LastModified, chunk.UpdatedAt} {
		if ts, ok := parseTimeValue(raw); ok {
			return ts, true
		}
	}
	if graphCtx == nil {
		return time.Time{}, false
	}
	for _, key := range []string{"git_timestamp", "last_modified", "last_modified_at", "updated_at"} {
		if v, ok := graphCtx.PrimaryNode.Properties[key]; ok {
			switch value := v.(type) {
			case string:
				if ts, ok := parseTimeValue(value); ok {
					return ts, true
				}
			case float64:
				return time.Unix(int64(value), 0).UTC(), true
			}
		}
	}
	return time.Time{}, false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
