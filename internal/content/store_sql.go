package content

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var ErrUnitNotFound = errors.New("content: unit not found")

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) GetUnit(ctx context.Context, id uuid.UUID) (Unit, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, course_id, title, kind, media_url, fallback_url, position
		   FROM content_units
		  WHERE id=$1 AND deleted_at IS NULL`, id.String())
	return scanUnit(row)
}

func (s *SQLStore) ListUnits(ctx context.Context, courseID uuid.UUID) ([]Unit, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, course_id, title, kind, media_url, fallback_url, position
		   FROM content_units
		  WHERE course_id=$1 AND deleted_at IS NULL
		  ORDER BY position`, courseID.String())
	if err != nil {
		return nil, fmt.Errorf("content: list units: %w", err)
	}
	defer rows.Close()
	out := []Unit{}
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUnit(r rowScanner) (Unit, error) {
	var u Unit
	var id, course, kind string
	var media, fallback sql.NullString
	if err := r.Scan(&id, &course, &u.Title, &kind, &media, &fallback, &u.Position); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Unit{}, ErrUnitNotFound
		}
		return Unit{}, fmt.Errorf("content: scan unit: %w", err)
	}
	var err error
	if u.ID, err = uuid.Parse(id); err != nil {
		return Unit{}, fmt.Errorf("content: parse unit id: %w", err)
	}
	if u.CourseID, err = uuid.Parse(course); err != nil {
		return Unit{}, fmt.Errorf("content: parse course id: %w", err)
	}
	u.Kind = UnitKind(kind)
	u.MediaURL = media.String
	u.FallbackURL = fallback.String
	return u, nil
}
