package domain

// Scoring modes.
const (
	ScoringModeHeuristic = "heuristic"
	ScoringModeML        = "ml"
)

// SignalSet holds the graph-derived scoring signals for one result.
// Nullable signals stay nil when no source could produce them.
type SignalSet struct {
	SubsystemAffinity float64  `json:"subsystem_affinity"`
	RelationshipCount int      `json:"relationship_count"`
	SupportingBonus   float64  `json:"supporting_bonus"`
	CoverageMissing   float64  `json:"coverage_missing"`
	CoverageRatio     *float64 `json:"coverage_ratio"`
	CoveragePenalty   float64  `json:"coverage_penalty"`
	CriticalityScore  float64  `json:"criticality_score"`
	PathDepth         *float64 `json:"path_depth"`
	FreshnessDays     *float64 `json:"freshness_days"`
}

// ModelBreakdown explains an ML-scored result: the final score, the model
// intercept, and the per-feature contributions.
type ModelBreakdown struct {
	Score         float64            `json:"score"`
	Intercept     float64            `json:"intercept"`
	Contributions map[string]float64 `json:"contributions"`
}

// ScoringRecord carries every intermediate scoring value for explainability.
// Both scoring strategies consume and extend the same record.
type ScoringRecord struct {
	VectorScore          float64         `json:"vector_score"`
	LexicalScore         float64         `json:"lexical_score"`
	WeightedVectorScore  float64         `json:"weighted_vector_score"`
	WeightedLexicalScore float64         `json:"weighted_lexical_score"`
	AdjustedScore        float64         `json:"adjusted_score"`
	Mode                 string          `json:"mode"`
	Signals              *SignalSet      `json:"signals,omitempty"`
	Model                *ModelBreakdown `json:"model,omitempty"`
}
