// Package sqlitestore persists canvas nodes in a local SQLite database using
// the pure-Go modernc driver. It backs single-user desktop sessions and the
// terminal UI.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"

	_ "modernc.org/sqlite"

	"github.com/dd0wney/strategy-canvas/pkg/graph"
	"github.com/dd0wney/strategy-canvas/pkg/persistence"
	"github.com/dd0wney/strategy-canvas/pkg/viewport"
)

const schema = `
	CREATE TABLE IF NOT EXISTS canvas_nodes (
		id TEXT PRIMARY KEY,
		canvas_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		x REAL NOT NULL,
		y REAL NOT NULL,
		width REAL NOT NULL CHECK (width >= 150),
		height REAL NOT NULL CHECK (height >= 100),
		parent_group_id TEXT,
		connections BLOB NOT NULL,
		payload BLOB NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_canvas_nodes_canvas_id ON canvas_nodes(canvas_id);

	CREATE TABLE IF NOT EXISTS canvas_views (
		canvas_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		offset_x REAL NOT NULL,
		offset_y REAL NOT NULL,
		scale REAL NOT NULL,
		PRIMARY KEY (canvas_id, user_id)
	);
	`

// Store is a persistence.EntityStore on database/sql.
type Store struct {
	db *sql.DB
}

var (
	_ persistence.EntityStore = (*Store)(nil)
	_ persistence.ViewStore   = (*Store)(nil)
)

// Open opens or creates the database file at path.
func Open(ctx context.Context, path string) (*Store, error) {
	params := url.Values{
		"_pragma": []string{"busy_timeout(10000)", "journal_mode(WAL)", "synchronous(NORMAL)"},
	}
	return open(ctx, fmt.Sprintf("file:%s?%s", path, params.Encode()))
}

// OpenMemory opens a private in-memory database named name.
func OpenMemory(ctx context.Context, name string) (*Store, error) {
	return open(ctx, fmt.Sprintf("file:%s?mode=memory&cache=shared", url.PathEscape(name)))
}

func open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer; SQLite serializes writes anyway
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

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
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			canvas_id = excluded.canvas_id,
			kind = excluded.kind,
			title = excluded.title,
			x = excluded.x,
			y = excluded.y,
			width = excluded.width,
			height = excluded.height,
			parent_group_id = excluded.parent_group_id,
			connections = excluded.connections,
			payload = excluded.payload
	`
	if _, err := s.db.ExecContext(ctx, query, row.Args()...); err != nil {
		return nil, fmt.Errorf("failed to create node: %w", err)
	}
	c.Geometry = c.Geometry.Clamped()
	return c, nil
}

// UpdateNode writes only the given fields.
func (s *Store) UpdateNode(ctx context.Context, id graph.NodeID, fields persistence.Fields) error {
	set, args, err := fields.UpdateSet(persistence.QuestionPlaceholder)
	if err != nil {
		return err
	}
	args = append(args, string(id))

	res, err := s.db.ExecContext(ctx, `UPDATE canvas_nodes SET `+set+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("failed to update node: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update node: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("node %s: %w", id, persistence.ErrNotFound)
	}
	return nil
}

// DeleteNode removes id. Deleting a missing node is not an error.
func (s *Store) DeleteNode(ctx context.Context, id graph.NodeID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM canvas_nodes WHERE id = ?`, string(id)); err != nil {
		return fmt.Errorf("failed to delete node: %w", err)
	}
	return nil
}

// ListNodes returns matching nodes in insertion order.
func (s *Store) ListNodes(ctx context.Context, filter persistence.Filter) ([]*graph.Node, error) {
	where, args := filter.Where(persistence.QuestionPlaceholder)
	rows, err := s.db.QueryContext(ctx, `SELECT `+persistence.RowColumns+` FROM canvas_nodes`+where+` ORDER BY rowid`, args...)
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

// SaveView stores the user's viewport for a canvas.
func (s *Store) SaveView(ctx context.Context, canvasID, userID string, v viewport.View) error {
	query := `
		INSERT INTO canvas_views (canvas_id, user_id, offset_x, offset_y, scale)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (canvas_id, user_id) DO UPDATE SET
			offset_x = excluded.offset_x,
			offset_y = excluded.offset_y,
			scale = excluded.scale
	`
	if _, err := s.db.ExecContext(ctx, query, canvasID, userID, v.Offset.X, v.Offset.Y, v.Scale); err != nil {
		return fmt.Errorf("failed to save view: %w", err)
	}
	return nil
}

// LoadView returns persistence.ErrNotFound when nothing was saved.
func (s *Store) LoadView(ctx context.Context, canvasID, userID string) (viewport.View, error) {
	var v viewport.View
	err := s.db.QueryRowContext(ctx,
		`SELECT offset_x, offset_y, scale FROM canvas_views WHERE canvas_id = ? AND user_id = ?`,
		canvasID, userID,
	).Scan(&v.Offset.X, &v.Offset.Y, &v.Scale)
	if errors.Is(err, sql.ErrNoRows) {
		return viewport.View{}, persistence.ErrNotFound
	}
	if err != nil {
		return viewport.View{}, fmt.Errorf("failed to load view: %w", err)
	}
	return v, nil
}
