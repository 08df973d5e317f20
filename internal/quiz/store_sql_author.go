package quiz

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

// Author-side mutations. Creates tolerate retried submissions: a duplicate-key
// failure is absorbed by re-querying for the most recently created matching
// row instead of surfacing an error.

// CreateQuestion writes the question and any nested options in one
// transaction, so a mid-option failure never leaves a half-authored question
// behind.
func (s *SQLStore) CreateQuestion(ctx context.Context, q Question) (Question, error) {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	if q.Position == 0 {
		pos, err := s.nextPosition(ctx,
			`SELECT COALESCE(MAX(position),0)+1 FROM quiz_questions WHERE content_unit_id=$1 AND deleted_at IS NULL`,
			q.ContentUnitID.String())
		if err != nil {
			return Question{}, err
		}
		q.Position = pos
	}
	var expl any
	if q.Explanation != "" {
		expl = q.Explanation
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Question{}, persistErr("create question", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO quiz_questions (id, content_unit_id, prompt, kind, points, position, explanation, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		q.ID.String(), q.ContentUnitID.String(), q.Prompt, string(q.Kind),
		q.Points, q.Position, expl, s.now().Unix())
	if err != nil {
		if isUniqueViolation(err) {
			tx.Rollback()
			return s.findQuestion(ctx, q)
		}
		return Question{}, persistErr("create question", err)
	}
	for i := range q.Options {
		o := &q.Options[i]
		if o.ID == uuid.Nil {
			o.ID = uuid.New()
		}
		o.QuestionID = q.ID
		if o.Position == 0 {
			o.Position = i + 1
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO quiz_options (id, question_id, label, correct, position, created_at)
			 VALUES ($1,$2,$3,$4,$5,$6)`,
			o.ID.String(), q.ID.String(), o.Label, o.Correct, o.Position, s.now().Unix()); err != nil {
			return Question{}, persistErr("create question options", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return Question{}, persistErr("create question", err)
	}
	return q, nil
}

func (s *SQLStore) UpdateQuestion(ctx context.Context, q Question) (Question, error) {
	var expl any
	if q.Explanation != "" {
		expl = q.Explanation
	}
	r, err := s.db.ExecContext(ctx,
		`UPDATE quiz_questions SET prompt=$1, kind=$2, points=$3, position=$4, explanation=$5
		  WHERE id=$6 AND deleted_at IS NULL`,
		q.Prompt, string(q.Kind), q.Points, q.Position, expl, q.ID.String())
	if err != nil {
		return Question{}, persistErr("update question", err)
	}
	if n, _ := r.RowsAffected(); n == 0 {
		return Question{}, persistErr("update question", ErrNotFound)
	}
	return q, nil
}

func (s *SQLStore) SoftDeleteQuestion(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE quiz_questions SET deleted_at=$1 WHERE id=$2 AND deleted_at IS NULL`,
		s.now().Unix(), id.String())
	if err != nil {
		return persistErr("delete question", err)
	}
	return nil
}

func (s *SQLStore) CreateOption(ctx context.Context, o Option) (Option, error) {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.Position == 0 {
		pos, err := s.nextPosition(ctx,
			`SELECT COALESCE(MAX(position),0)+1 FROM quiz_options WHERE question_id=$1 AND deleted_at IS NULL`,
			o.QuestionID.String())
		if err != nil {
			return Option{}, err
		}
		o.Position = pos
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO quiz_options (id, question_id, label, correct, position, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6)`,
		o.ID.String(), o.QuestionID.String(), o.Label, o.Correct, o.Position, s.now().Unix())
	if err != nil {
		if isUniqueViolation(err) {
			return s.findOption(ctx, o)
		}
		return Option{}, persistErr("create option", err)
	}
	return o, nil
}

func (s *SQLStore) UpdateOption(ctx context.Context, o Option) (Option, error) {
	r, err := s.db.ExecContext(ctx,
		`UPDATE quiz_options SET label=$1, correct=$2, position=$3
		  WHERE id=$4 AND deleted_at IS NULL`,
		o.Label, o.Correct, o.Position, o.ID.String())
	if err != nil {
		return Option{}, persistErr("update option", err)
	}
	if n, _ := r.RowsAffected(); n == 0 {
		return Option{}, persistErr("update option", ErrNotFound)
	}
	return o, nil
}

func (s *SQLStore) SoftDeleteOption(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE quiz_options SET deleted_at=$1 WHERE id=$2 AND deleted_at IS NULL`,
		s.now().Unix(), id.String())
	if err != nil {
		return persistErr("delete option", err)
	}
	return nil
}

func (s *SQLStore) nextPosition(ctx context.Context, query, parentID string) (int, error) {
	var pos int
	if err := s.db.QueryRowContext(ctx, query, parentID).Scan(&pos); err != nil {
		return 0, persistErr("next position", err)
	}
	return pos, nil
}

// findQuestion recovers from a duplicate insert: fetch by id first, then by
// the newest row with the same parent and prompt. Options are loaded so a
// retried create-with-options returns the committed shape.
func (s *SQLStore) findQuestion(ctx context.Context, q Question) (Question, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, content_unit_id, prompt, kind, points, position, explanation
		   FROM quiz_questions
		  WHERE deleted_at IS NULL AND (id=$1 OR (content_unit_id=$2 AND prompt=$3))
		  ORDER BY created_at DESC LIMIT 1`,
		q.ID.String(), q.ContentUnitID.String(), q.Prompt)
	var out Question
	var id, unit, kind string
	var expl sql.NullString
	err := row.Scan(&id, &unit, &out.Prompt, &kind, &out.Points, &out.Position, &expl)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Question{}, persistErr("find question", ErrNotFound)
		}
		return Question{}, persistErr("find question", err)
	}
	if out.ID, err = uuid.Parse(id); err != nil {
		return Question{}, persistErr("parse question id", err)
	}
	if out.ContentUnitID, err = uuid.Parse(unit); err != nil {
		return Question{}, persistErr("parse content unit id", err)
	}
	out.Kind = Kind(kind)
	out.Explanation = expl.String
	if out.Options, err = s.questionOptions(ctx, out.ID); err != nil {
		return Question{}, err
	}
	return out, nil
}

func (s *SQLStore) questionOptions(ctx context.Context, questionID uuid.UUID) ([]Option, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, question_id, label, correct, position
		   FROM quiz_options
		  WHERE question_id=$1 AND deleted_at IS NULL
		  ORDER BY position, created_at`, questionID.String())
	if err != nil {
		return nil, persistErr("list question options", err)
	}
	defer rows.Close()
	var out []Option
	for rows.Next() {
		var o Option
		var id, qid string
		if err := rows.Scan(&id, &qid, &o.Label, &o.Correct, &o.Position); err != nil {
			return nil, persistErr("scan option", err)
		}
		if o.ID, err = uuid.Parse(id); err != nil {
			return nil, persistErr("parse option id", err)
		}
		if o.QuestionID, err = uuid.Parse(qid); err != nil {
			return nil, persistErr("parse option question id", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *SQLStore) findOption(ctx context.Context, o Option) (Option, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, question_id, label, correct, position
		   FROM quiz_options
		  WHERE deleted_at IS NULL AND (id=$1 OR (question_id=$2 AND label=$3))
		  ORDER BY created_at DESC LIMIT 1`,
		o.ID.String(), o.QuestionID.String(), o.Label)
	var out Option
	var id, qid string
	err := row.Scan(&id, &qid, &out.Label, &out.Correct, &out.Position)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Option{}, persistErr("find option", ErrNotFound)
		}
		return Option{}, persistErr("find option", err)
	}
	if out.ID, err = uuid.Parse(id); err != nil {
		return Option{}, persistErr("parse option id", err)
	}
	if out.QuestionID, err = uuid.Parse(qid); err != nil {
		return Option{}, persistErr("parse option question id", err)
	}
	return out, nil
}
