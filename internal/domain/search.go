package domain

// KeyPrefix namespaces every key the gateway writes or reads in the store.
const KeyPrefix = "km:"

// SearchFilters is the well-typed raw filter input. Validation happens at the
// transport layer; the search core only normalizes.
type SearchFilters struct {
	Subsystems    []string `json:"subsystems,omitempty"`
	ArtifactTypes []string `json:"artifact_types,omitempty"`
	Namespaces    []string `json:"namespaces,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	UpdatedAfter  string   `json:"updated_after,omitempty"`
	MaxAgeDays    *float64 `json:"max_age_days,omitempty"`
}

// SearchRequest is one search invocation.
type SearchRequest struct {
	Query        string        `json:"query"`
	Limit        int           `json:"limit"`
	IncludeGraph bool          `json:"include_graph"`
	SortByVector bool          `json:"sort_by_vector"`
	RequestID    string        `json:"request_id,omitempty"`
	Filters      SearchFilters `json:"filters"`
}

// SearchResult is a single ranked chunk with its optional graph context and
// full scoring record.
type SearchResult struct {
	Chunk        CandidateChunk `json:"chunk"`
	GraphContext *GraphContext  `json:"graph_context"`
	Scoring      ScoringRecord  `json:"scoring"`
}

// WeightSnapshot echoes the effective weights in response metadata.
type WeightSnapshot struct {
	WeightSubsystem       float64 `json:"weight_subsystem"`
	WeightRelationship    float64 `json:"weight_relationship"`
	WeightSupport         float64 `json:"weight_support"`
	WeightCoveragePenalty float64 `json:"weight_coverage_penalty"`
	WeightCriticality     float64 `json:"weight_criticality"`
	VectorWeight          float64 `json:"vector_weight"`
	LexicalWeight         float64 `json:"lexical_weight"`
}

// HybridWeights echoes the normalized vector/lexical blend.
type HybridWeights struct {
	Vector  float64 `json:"vector"`
	Lexical float64 `json:"lexical"`
}

// SearchMetadata describes how a response was produced.
type SearchMetadata struct {
	ResultCount          int            `json:"result_count"`
	GraphContextIncluded bool           `json:"graph_context_included"`
	Warnings             []string       `json:"warnings"`
	ScoringMode          string         `json:"scoring_mode"`
	WeightProfile        string         `json:"weight_profile"`
	Weights              WeightSnapshot `json:"weights"`
	HybridWeights        HybridWeights  `json:"hybrid_weights"`
	HNSWEfSearch         int            `json:"hnsw_ef_search,omitempty"`
	FiltersApplied       map[string]any `json:"filters_applied,omitempty"`
	RequestID            string         `json:"request_id,omitempty"`
}

// SearchResponse is the API-friendly search output.
type SearchResponse struct {
	Query    string         `json:"query"`
	Results  []SearchResult `json:"results"`
	Metadata SearchMetadata `json:"metadata"`
}
