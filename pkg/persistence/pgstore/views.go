package pgstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dd0wney/strategy-canvas/pkg/persistence"
	"github.com/dd0wney/strategy-canvas/pkg/viewport"
)

// SaveView stores the user's viewport for a canvas.
func (s *Store) SaveView(ctx context.Context, canvasID, userID string, v viewport.View) error {
	query := `
		INSERT INTO canvas_views (canvas_id, user_id, offset_x, offset_y, scale)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (canvas_id, user_id) DO UPDATE SET
			offset_x = EXCLUDED.offset_x,
			offset_y = EXCLUDED.offset_y,
			scale = EXCLUDED.scale,
			updated_at = now()
	`
	if _, err := s.pool.Exec(ctx, query, canvasID, userID, v.Offset.X, v.Offset.Y, v.Scale); err != nil {
		return fmt.Errorf("failed to save view: %w", err)
	}
	return nil
}

// LoadView returns persistence.ErrNotFound when the user has no saved view.
func (s *Store) LoadView(ctx context.Context, canvasID, userID string) (viewport.View, error) {
	query := `SELECT offset_x, offset_y, scale FROM canvas_views WHERE canvas_id = $1 AND user_id = $2`

	var v viewport.View
	err := s.pool.QueryRow(ctx, query, canvasID, userID).Scan(&v.Offset.X, &v.Offset.Y, &v.Scale)
	if errors.Is(err, pgx.ErrNoRows) {
		return viewport.View{}, persistence.ErrNotFound
	}
	if err != nil {
		return viewport.View{}, fmt.Errorf("failed to load view: %w", err)
	}
	return v, nil
}
