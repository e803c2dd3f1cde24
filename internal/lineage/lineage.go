// Package lineage mirrors the thought graph's provenance into Neo4j:
// every thought becomes a node, every parent link a CHILD_OF edge, every
// firing rule a FIRED_BY edge. The mirror answers ancestry queries the
// flat stores cannot.
package lineage

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/halgrim/noema/internal/term"
	"github.com/halgrim/noema/internal/thought"
)

// Mirror maintains the Neo4j projection. It implements the engine's
// observer interface.
type Mirror struct {
	driver neo4j.DriverWithContext
	logger *zap.Logger
}

// NewMirror creates a Neo4j-backed lineage mirror.
func NewMirror(uri, user, password string, logger *zap.Logger) (*Mirror, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	return &Mirror{driver: driver, logger: logger}, nil
}

// Ping verifies the Neo4j connection.
func (m *Mirror) Ping(ctx context.Context) error {
	return m.driver.VerifyConnectivity(ctx)
}

// Close shuts down the Neo4j driver.
func (m *Mirror) Close(ctx context.Context) error {
	return m.driver.Close(ctx)
}

// SyncThoughts applies one delta batch to the projection.
func (m *Mirror) SyncThoughts(ctx context.Context, changed []*thought.Thought, deleted []string) error {
	session := m.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	for _, t := range changed {
		_, err := session.Run(ctx,
			`MERGE (t:Thought {id: $id})
			 SET t.root_id = $rootId, t.kind = $kind, t.status = $status,
			     t.content = $content, t.score = $score,
			     t.modified_at = datetime()`,
			map[string]interface{}{
				"id":      t.ID,
				"rootId":  t.Metadata.RootID,
				"kind":    string(t.Kind),
				"status":  string(t.Status),
				"content": term.Canonical(t.Content),
				"score":   t.Belief.Score(),
			})
		if err != nil {
			return fmt.Errorf("mirror thought %s: %w", t.ID, err)
		}

		if t.Metadata.ParentID != "" {
			_, err = session.Run(ctx,
				`MATCH (c:Thought {id: $childId})
				 MERGE (p:Thought {id: $parentId})
				 MERGE (c)-[:CHILD_OF]->(p)`,
				map[string]interface{}{
					"childId":  t.ID,
					"parentId": t.Metadata.ParentID,
				})
			if err != nil {
				return fmt.Errorf("link thought %s to parent: %w", t.ID, err)
			}
		}

		if t.Metadata.RuleID != "" {
			_, err = session.Run(ctx,
				`MATCH (t:Thought {id: $id})
				 MERGE (r:Rule {id: $ruleId})
				 MERGE (t)-[:FIRED_BY]->(r)`,
				map[string]interface{}{
					"id":     t.ID,
					"ruleId": t.Metadata.RuleID,
				})
			if err != nil {
				return fmt.Errorf("link thought %s to rule: %w", t.ID, err)
			}
		}
	}

	for _, id := range deleted {
		_, err := session.Run(ctx,
			`MATCH (t:Thought {id: $id}) DETACH DELETE t`,
			map[string]interface{}{"id": id})
		if err != nil {
			return fmt.Errorf("unmirror thought %s: %w", id, err)
		}
	}

	m.logger.Debug("lineage synced",
		zap.Int("changed", len(changed)),
		zap.Int("deleted", len(deleted)))
	return nil
}

// Ancestry returns the chain of ancestor ids from the thought up to its
// root, nearest parent first.
func (m *Mirror) Ancestry(ctx context.Context, thoughtID string) ([]string, error) {
	session := m.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	result, err := session.Run(ctx,
		`MATCH (t:Thought {id: $id})-[:CHILD_OF*]->(a:Thought)
		 RETURN a.id AS id`,
		map[string]interface{}{"id": thoughtID})
	if err != nil {
		return nil, fmt.Errorf("ancestry of %s: %w", thoughtID, err)
	}

	var ids []string
	for result.Next(ctx) {
		if id, ok := result.Record().Get("id"); ok {
			ids = append(ids, id.(string))
		}
	}
	return ids, result.Err()
}
