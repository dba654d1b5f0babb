package domain

// GraphNode is a serialized knowledge-graph node.
type GraphNode struct {
	ID         string         `json:"id"`
	Labels     []string       `json:"labels"`
	Properties map[string]any `json:"properties,omitempty"`
}

// GraphRelationship is a typed edge from a primary node to a target node.
type GraphRelationship struct {
	Type      string    `json:"type"`
	Direction string    `json:"direction,omitempty"`
	Target    GraphNode `json:"target"`
}

// GraphNeighborhood is the raw node + relationship payload returned by the
// graph store for a single node lookup.
type GraphNeighborhood struct {
	Node          GraphNode
	Relationships []GraphRelationship
}

// RelatedArtifact references a DESCRIBES/VALIDATES neighbor of a candidate.
type RelatedArtifact struct {
	ID           string `json:"id"`
	Relationship string `json:"relationship"`
}

// GraphContext is the summarized neighborhood attached to a search result.
// Produced at most once per distinct node id per request; immutable once cached.
type GraphContext struct {
	PrimaryNode        GraphNode           `json:"primary_node"`
	Relationships      []GraphRelationship `json:"relationships"`
	NeighborSubsystems []string            `json:"neighbor_subsystems"`
	RelatedArtifacts   []RelatedArtifact   `json:"related_artifacts"`
}

// HasRelationship reports whether any relationship of the given type exists.
func (g *GraphContext) HasRelationship(relType string) bool {
	for _, rel := range g.Relationships {
		if rel.Type == relType {
			return true
		}
	}
	return false
}
