package pgstore

import (
	"context"
	"fmt"

	"github.com/dd0wney/strategy-canvas/pkg/graph"
	"github.com/dd0wney/strategy-canvas/pkg/persistence"
)

// CreateNode inserts n, replacing any row with the same id.
func (s *Store) CreateNode(ctx context.Context, canvasID string, n *graph.Node) (*graph.Node, error) {
	c := n.Clone()
	if c.ID == "" {
		c.ID = graph.NewNodeID()
	}
	row, err := persistence.RowOf(canvasID, c)
	if err != nil {
		return nil, fmt.Errorf("failed to encode node: %w", err)
	}

	query := `
		INSERT INTO canvas_nodes (` + persistence.RowColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			canvas_id = EXCLUDED.canvas_id,
			kind = EXCLUDED.kind,
			title = EXCLUDED.title,
			x = EXCLUDED.x,
			y = EXCLUDED.y,
			width = EXCLUDED.width,
			height = EXCLUDED.height,
			parent_group_id = EXCLUDED.parent_group_id,
			connections = EXCLUDED.connections,
			payload = EXCLUDED.payload,
			updated_at = now()
	`
	if _, err := s.pool.Exec(ctx, query, row.Args()...); err != nil {
		return nil, fmt.Errorf("failed to create node: %w", err)
	}
	c.Geometry = c.Geometry.Clamped()
	return c, nil
}

// UpdateNode writes only the given fields.
func (s *Store) UpdateNode(ctx context.Context, id graph.NodeID, fields persistence.Fields) error {
	set, args, err := fields.UpdateSet(persistence.DollarPlaceholder)
	if err != nil {
		return err
	}
	args = append(args, string(id))
	query := fmt.Sprintf(`UPDATE canvas_nodes SET %s, updated_at = now() WHERE id = $%d`, set, len(args))

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update node: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("node %s: %w", id, persistence.ErrNotFound)
	}
	return nil
}

// DeleteNode removes the row for id. Deleting a missing node is not an error.
func (s *Store) DeleteNode(ctx context.Context, id graph.NodeID) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM canvas_nodes WHERE id = $1`, string(id)); err != nil {
		return fmt.Errorf("failed to delete node: %w", err)
	}
	return nil
}

// ListNodes returns matching nodes in creation order.
func (s *Store) ListNodes(ctx context.Context, filter persistence.Filter) ([]*graph.Node, error) {
	where, args := filter.Where(persistence.DollarPlaceholder)
	query := `SELECT ` + persistence.RowColumns + ` FROM canvas_nodes` + where + ` ORDER BY created_at, id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}
	defer rows.Close()

	var nodes []*graph.Node
	for rows.Next() {
		var r persistence.Row
		if err := rows.Scan(r.Dest()...); err != nil {
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}
		n, err := r.Node()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating nodes: %w", err)
	}
	return nodes, nil
}
