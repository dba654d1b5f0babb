package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tachyon-beep/duskmantle-gateway/internal/db"
	"github.com/tachyon-beep/duskmantle-gateway/internal/domain"
)

// Store is the slice of the database this repository needs.
type Store interface {
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Get(ctx context.Context, key string) ([]byte, error)
}

const (
	nodeKeyPrefix = domain.KeyPrefix + "graph:node:"
	adjKeyPrefix  = domain.KeyPrefix + "graph:adj:"
)

// Repo reads graph nodes and their adjacency lists from Redis.
//
// Nodes live in hashes keyed km:graph:node:<id> with a "labels" field
// (comma separated) and a "properties" field (JSON object). Adjacency
// lists are JSON arrays stored at km:graph:adj:<id>.
type Repo struct {
	store  Store
	logger *zap.Logger
}

func NewRepo(store Store, logger *zap.Logger) *Repo {
	return &Repo{store: store, logger: logger}
}

type adjacencyEntry struct {
	Type      string `json:"type"`
	Direction string `json:"direction"`
	Target    string `json:"target"`
}

// GetNode fetches a node and up to limit of its relationships.
// Returns domain.ErrGraphNotFound when the node does not exist.
func (r *Repo) GetNode(ctx context.Context, nodeID string, limit int) (domain.GraphNeighborhood, error) {
	fields, err := r.store.HGetAll(ctx, nodeKeyPrefix+nodeID)
	if err != nil {
		return domain.GraphNeighborhood{}, fmt.Errorf("fetch graph node %q: %v: %w", nodeID, err, domain.ErrGraphQuery)
	}
	if len(fields) == 0 {
		return domain.GraphNeighborhood{}, fmt.Errorf("graph node %q: %w", nodeID, domain.ErrGraphNotFound)
	}

	node := domain.GraphNode{ID: nodeID}
	if labels := strings.TrimSpace(fields["labels"]); labels != "" {
		for _, l := range strings.Split(labels, ",") {
			if l = strings.TrimSpace(l); l != "" {
				node.Labels = append(node.Labels, l)
			}
		}
	}
	if props := fields["properties"]; props != "" {
		if err := json.Unmarshal([]byte(props), &node.Properties); err != nil {
			r.logger.Warn("malformed graph node properties",
				zap.String("node_id", nodeID),
				zap.Error(err),
			)
		}
	}

	rels, err := r.adjacency(ctx, nodeID)
	if err != nil {
		return domain.GraphNeighborhood{}, err
	}
	if limit > 0 && len(rels) > limit {
		rels = rels[:limit]
	}

	return domain.GraphNeighborhood{Node: node, Relationships: rels}, nil
}

func (r *Repo) adjacency(ctx context.Context, nodeID string) ([]domain.GraphRelationship, error) {
	raw, err := r.store.Get(ctx, adjKeyPrefix+nodeID)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch adjacency for %q: %v: %w", nodeID, err, domain.ErrGraphQuery)
	}

	var entries []adjacencyEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode adjacency for %q: %v: %w", nodeID, err, domain.ErrGraphQuery)
	}

	rels := make([]domain.GraphRelationship, 0, len(entries))
	for _, e := range entries {
		rels = append(rels, domain.GraphRelationship{
			Type:      e.Type,
			Direction: e.Direction,
			Target:    domain.GraphNode{ID: e.Target},
		})
	}
	return rels, nil
}

// Edge types that connect artifacts to the subsystems that own them.
var subsystemEdgeTypes = map[string]bool{
	"BELONGS_TO": true,
	"DESCRIBES":  true,
	"VALIDATES":  true,
	"HAS_CHUNK":  true,
}

// ShortestPathDepth walks the graph breadth-first, undirected, from nodeID
// until it reaches a Subsystem-labeled node or exhausts maxDepth hops.
// Only ownership edge types are traversed. Returns found=false when no
// subsystem is reachable within the bound.
func (r *Repo) ShortestPathDepth(ctx context.Context, nodeID string, maxDepth int) (int, bool, error) {
	type queued struct {
		id    string
		depth int
	}

	visited := map[string]bool{nodeID: true}
	queue := []queued{{id: nodeID, depth: 0}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if cur.depth > 0 {
			isSubsystem, err := r.hasLabel(ctx, cur.id, "Subsystem")
			if err != nil {
				return 0, false, err
			}
			if isSubsystem {
				return cur.depth, true, nil
			}
		}
		if cur.depth >= maxDepth {
			continue
		}

		rels, err := r.adjacency(ctx, cur.id)
		if err != nil {
			return 0, false, err
		}
		for _, rel := range rels {
			target := rel.Target.ID
			if !subsystemEdgeTypes[rel.Type] || target == "" || visited[target] {
				continue
			}
			visited[target] = true
			queue = append(queue, queued{id: target, depth: cur.depth + 1})
		}
	}
	return 0, false, nil
}

func (r *Repo) hasLabel(ctx context.Context, nodeID, label string) (bool, error) {
	fields, err := r.store.HGetAll(ctx, nodeKeyPrefix+nodeID)
	if err != nil {
		return false, fmt.Errorf("fetch graph node %q: %v: %w", nodeID, err, domain.ErrGraphQuery)
	}
	for _, l := range strings.Split(fields["labels"], ",") {
		if strings.TrimSpace(l) == label {
			return true, nil
		}
	}
	return false, nil
}
