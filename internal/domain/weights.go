package domain

// Weights is the hybrid scoring weight configuration. All weights are
// non-negative; NormalizeHybrid enforces the degenerate-base invariant.
type Weights struct {
	Vector          float64
	Lexical         float64
	Subsystem       float64
	Relationship    float64
	Support         float64
	CoveragePenalty float64
	Criticality     float64
}

// DefaultWeights returns the baseline weight configuration.
func DefaultWeights() Weights {
	return Weights{
		Vector:          1.0,
		Lexical:         0.25,
		Subsystem:       0.30,
		Relationship:    0.05,
		Support:         0.10,
		CoveragePenalty: 0.15,
		Criticality:     0.12,
	}
}

// WeightProfiles are the named graph-weight presets. Hybrid vector/lexical
// weights come from configuration and keep their defaults here.
var WeightProfiles = map[string]Weights{
	"default": {
		Vector: 1.0, Lexical: 0.25,
		Subsystem: 0.28, Relationship: 0.05, Support: 0.09,
		CoveragePenalty: 0.15, Criticality: 0.12,
	},
	"analysis": {
		Vector: 1.0, Lexical: 0.25,
		Subsystem: 0.38, Relationship: 0.10, Support: 0.08,
		CoveragePenalty: 0.18, Criticality: 0.18,
	},
	"operations": {
		Vector: 1.0, Lexical: 0.25,
		Subsystem: 0.22, Relationship: 0.08, Support: 0.06,
		CoveragePenalty: 0.28, Criticality: 0.10,
	},
	"docs-heavy": {
		Vector: 1.0, Lexical: 0.25,
		Subsystem: 0.26, Relationship: 0.04, Support: 0.22,
		CoveragePenalty: 0.12, Criticality: 0.08,
	},
}

// ProfileWeights resolves a named profile, falling back to DefaultWeights
// for unknown names.
func ProfileWeights(name string) Weights {
	if w, ok := WeightProfiles[name]; ok {
		return w
	}
	return DefaultWeights()
}

// NormalizeHybrid clamps the hybrid weights to non-negative values and forces
// vector to 1.0 when both are zero, so the base score never degenerates.
func NormalizeHybrid(vector, lexical float64) (float64, float64) {
	vector = max(0, vector)
	lexical = max(0, lexical)
	if vector+lexical <= 0 {
		vector = 1.0
	}
	return vector, lexical
}
