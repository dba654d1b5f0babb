package domain

// CandidateChunk is one scored chunk returned by the vector index before
// enrichment and filtering. Timestamp fields carry the raw payload values
// (epoch seconds or ISO-8601); parsing happens at scoring time.
type CandidateChunk struct {
	ChunkID              string   `json:"chunk_id"`
	ArtifactPath         string   `json:"artifact_path"`
	ArtifactType         string   `json:"artifact_type"`
	Subsystem            string   `json:"subsystem,omitempty"`
	Namespace            string   `json:"namespace,omitempty"`
	Tags                 []string `json:"tags,omitempty"`
	Text                 string   `json:"text"`
	CoverageMissing      bool     `json:"coverage_missing"`
	CoverageRatio        *float64 `json:"coverage_ratio,omitempty"`
	SubsystemCriticality string   `json:"subsystem_criticality,omitempty"`
	GitTimestamp         string   `json:"git_timestamp,omitempty"`
	LastModified         string   `json:"last_modified,omitempty"`
	UpdatedAt            string   `json:"updated_at,omitempty"`
	VectorScore          float64  `json:"score"`
}
