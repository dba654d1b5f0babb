package search

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tachyon-beep/duskmantle-gateway/internal/domain"
)

// ModelArtifact is a trained linear model over the fixed scoring feature
// set. Loaded once at startup and treated as immutable.
type ModelArtifact struct {
	FeatureNames []string  `json:"feature_names"`
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
}

// LoadModelArtifact reads and validates a model artifact from disk.
func LoadModelArtifact(path string) (*ModelArtifact, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}
	var artifact ModelArtifact
	if err := json.Unmarshal(raw, &artifact); err != nil {
		return nil, fmt.Errorf("decode model artifact: %w", err)
	}
	if len(artifact.FeatureNames) == 0 {
		return nil, fmt.Errorf("model artifact %q declares no features", path)
	}
	if len(artifact.FeatureNames) != len(artifact.Coefficients) {
		return nil, fmt.Errorf("model artifact %q: %d features but %d coefficients",
			path, len(artifact.FeatureNames), len(artifact.Coefficients))
	}
	return &artifact, nil
}

// featureMap flattens a scoring record into the fixed feature surface the
// model was trained on.
func featureMap(scoring domain.ScoringRecord, graphCtx *domain.GraphContext, graphIncluded bool, warningsCount int) map[string]float64 {
	features := map[string]float64{
		"vector_score":            scoring.VectorScore,
		"lexical_score":           scoring.LexicalScore,
		"weighted_vector_score":   scoring.WeightedVectorScore,
		"weighted_lexical_score":  scoring.WeightedLexicalScore,
		"metadata_warnings_count": float64(warningsCount),
	}
	features["graph_context_present"] = boolFeature(graphCtx != nil)
	features["metadata_graph_context_included"] = boolFeature(graphIncluded)

	signals := scoring.Signals
	if signals == nil {
		signals = &domain.SignalSet{}
	}
	features["signal_subsystem_affinity"] = signals.SubsystemAffinity
	features["signal_relationship_count"] = float64(signals.RelationshipCount)
	features["signal_supporting_bonus"] = signals.SupportingBonus
	features["signal_coverage_missing"] = signals.CoverageMissing
	features["signal_coverage_ratio"] = 0
	if signals.CoverageRatio != nil {
		features["signal_coverage_ratio"] = *signals.CoverageRatio
	}
	features["signal_criticality_score"] = signals.CriticalityScore
	features["signal_path_depth"] = 0
	if signals.PathDepth != nil {
		features["signal_path_depth"] = *signals.PathDepth
	}
	return features
}

// scoreWithModel evaluates the linear model against a scoring record.
// Fails when a declared feature is missing from the feature surface.
func scoreWithModel(artifact *ModelArtifact, scoring domain.ScoringRecord, graphCtx *domain.GraphContext, graphIncluded bool, warningsCount int) (float64, map[string]float64, error) {
	features := featureMap(scoring, graphCtx, graphIncluded, warningsCount)

	score := artifact.Intercept
	contributions := make(map[string]float64, len(artifact.FeatureNames))
	for i, name := range artifact.FeatureNames {
		value, ok := features[name]
		if !ok {
			return 0, nil, fmt.Errorf("model feature %q not available", name)
		}
		contribution := artifact.Coefficients[i] * value
		contributions[name] = contribution
		score += contribution
	}
	return score, contributions, nil
}

func boolFeature(b bool) float64 {
	if b {
		return 1.0
	}
	return 0.0
}
