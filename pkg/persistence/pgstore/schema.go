package pgstore

import "context"

const schema = `
	CREATE TABLE IF NOT EXISTS canvas_nodes (
		id TEXT PRIMARY KEY,
		canvas_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		x DOUBLE PRECISION NOT NULL,
		y DOUBLE PRECISION NOT NULL,
		width DOUBLE PRECISION NOT NULL CHECK (width >= 150),
		height DOUBLE PRECISION NOT NULL CHECK (height >= 100),
		parent_group_id TEXT,
		connections JSONB NOT NULL DEFAULT '[]',
		payload JSONB NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE INDEX IF NOT EXISTS idx_canvas_nodes_canvas_id ON canvas_nodes(canvas_id);
	CREATE INDEX IF NOT EXISTS idx_canvas_nodes_parent_group_id ON canvas_nodes(parent_group_id);

	CREATE TABLE IF NOT EXISTS canvas_views (
		canvas_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		offset_x DOUBLE PRECISION NOT NULL,
		offset_y DOUBLE PRECISION NOT NULL,
		scale DOUBLE PRECISION NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (canvas_id, user_id)
	);
	`

// migrate creates the tables.
func (s *Store) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return err
}
