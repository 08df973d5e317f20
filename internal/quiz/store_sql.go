package quiz

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// SQLStore implements Repository on database/sql. It works against both
// postgres (pgx stdlib) and sqlite (modernc); placeholders use the $N form,
// which both drivers accept.
type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
	now    func() time.Time
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver, now: time.Now}
}

func (s *SQLStore) ListQuestions(ctx context.Context, contentUnitID uuid.UUID) ([]Question, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content_unit_id, prompt, kind, points, position, explanation
		   FROM quiz_questions
		  WHERE content_unit_id=$1 AND deleted_at IS NULL
		  ORDER BY position, created_at`, contentUnitID.String())
	if err != nil {
		return nil, persistErr("list questions", err)
	}
	defer rows.Close()

	var qs []Question
	byID := map[uuid.UUID]int{}
	for rows.Next() {
		var q Question
		var id, unit, kind string
		var expl sql.NullString
		if err := rows.Scan(&id, &unit, &q.Prompt, &kind, &q.Points, &q.Position, &expl); err != nil {
			return nil, persistErr("scan question", err)
		}
		if q.ID, err = uuid.Parse(id); err != nil {
			return nil, persistErr("parse question id", err)
		}
		if q.ContentUnitID, err = uuid.Parse(unit); err != nil {
			return nil, persistErr("parse content unit id", err)
		}
		q.Kind = Kind(kind)
		q.Explanation = expl.String
		byID[q.ID] = len(qs)
		qs = append(qs, q)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("list questions", err)
	}
	if len(qs) == 0 {
		return []Question{}, nil
	}

	orows, err := s.db.QueryContext(ctx,
		`SELECT o.id, o.question_id, o.label, o.correct, o.position
		   FROM quiz_options o
		   JOIN quiz_questions q ON q.id = o.question_id
		  WHERE q.content_unit_id=$1 AND q.deleted_at IS NULL AND o.deleted_at IS NULL
		  ORDER BY o.question_id, o.position, o.created_at`, contentUnitID.String())
	if err != nil {
		return nil, persistErr("list options", err)
	}
	defer orows.Close()
	for orows.Next() {
		var o Option
		var id, qid string
		if err := orows.Scan(&id, &qid, &o.Label, &o.Correct, &o.Position); err != nil {
			return nil, persistErr("scan option", err)
		}
		if o.ID, err = uuid.Parse(id); err != nil {
			return nil, persistErr("parse option id", err)
		}
		if o.QuestionID, err = uuid.Parse(qid); err != nil {
			return nil, persistErr("parse option question id", err)
		}
		if i, ok := byID[o.QuestionID]; ok {
			qs[i].Options = append(qs[i].Options, o)
		}
	}
	if err := orows.Err(); err != nil {
		return nil, persistErr("list options", err)
	}
	return qs, nil
}

func (s *SQLStore) ListAttempts(ctx context.Context, contentUnitID uuid.UUID, userID string) ([]Attempt, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content_unit_id, user_id, started_at, completed_at,
		        points_obtained, points_total, percentage, passed, elapsed_sec
		   FROM quiz_attempts
		  WHERE content_unit_id=$1 AND user_id=$2 AND deleted_at IS NULL
		  ORDER BY started_at DESC`, contentUnitID.String(), userID)
	if err != nil {
		return nil, persistErr("list attempts", err)
	}
	defer rows.Close()
	out := []Attempt{}
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("list attempts", err)
	}
	return out, nil
}

func (s *SQLStore) ListAnswers(ctx context.Context, attemptID uuid.UUID) ([]Answer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, attempt_id, question_id, option_id, text_response, correct, points_obtained
		   FROM quiz_answers
		  WHERE attempt_id=$1 AND deleted_at IS NULL`, attemptID.String())
	if err != nil {
		return nil, persistErr("list answers", err)
	}
	defer rows.Close()
	out := []Answer{}
	for rows.Next() {
		var a Answer
		var id, aid, qid string
		var optID, text sql.NullString
		var correct sql.NullBool
		var pts sql.NullFloat64
		if err := rows.Scan(&id, &aid, &qid, &optID, &text, &correct, &pts); err != nil {
			return nil, persistErr("scan answer", err)
		}
		if a.ID, err = uuid.Parse(id); err != nil {
			return nil, persistErr("parse answer id", err)
		}
		if a.AttemptID, err = uuid.Parse(aid); err != nil {
			return nil, persistErr("parse answer attempt id", err)
		}
		if a.QuestionID, err = uuid.Parse(qid); err != nil {
			return nil, persistErr("parse answer question id", err)
		}
		if optID.Valid {
			u, err := uuid.Parse(optID.String)
			if err != nil {
				return nil, persistErr("parse answer option id", err)
			}
			a.OptionID = &u
		}
		if text.Valid {
			v := text.String
			a.TextResponse = &v
		}
		if correct.Valid {
			v := correct.Bool
			a.Correct = &v
		}
		if pts.Valid {
			v := pts.Float64
			a.PointsObtained = &v
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("list answers", err)
	}
	return out, nil
}

func (s *SQLStore) StartAttempt(ctx context.Context, contentUnitID uuid.UUID, userID string) (Attempt, error) {
	a := Attempt{
		ID:            uuid.New(),
		ContentUnitID: contentUnitID,
		UserID:        userID,
		StartedAt:     s.now().UTC().Truncate(time.Second),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO quiz_attempts (id, content_unit_id, user_id, started_at)
		 VALUES ($1,$2,$3,$4)`,
		a.ID.String(), contentUnitID.String(), userID, a.StartedAt.Unix())
	if err != nil {
		return Attempt{}, persistErr("start attempt", err)
	}
	return a, nil
}

func (s *SQLStore) SubmitGrading(ctx context.Context, attemptID uuid.UUID, answers []Answer, res Result) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return persistErr("begin grading tx", err)
	}
	defer tx.Rollback()

	for _, a := range answers {
		if a.ID == uuid.Nil {
			a.ID = uuid.New()
		}
		var optID, text any
		if a.OptionID != nil {
			optID = a.OptionID.String()
		}
		if a.TextResponse != nil {
			text = *a.TextResponse
		}
		var correct, pts any
		if a.Correct != nil {
			correct = *a.Correct
		}
		if a.PointsObtained != nil {
			pts = *a.PointsObtained
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO quiz_answers (id, attempt_id, question_id, option_id, text_response, correct, points_obtained)
			 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			a.ID.String(), attemptID.String(), a.QuestionID.String(), optID, text, correct, pts); err != nil {
			return persistErr("insert answers", err)
		}
	}

	r, err := tx.ExecContext(ctx,
		`UPDATE quiz_attempts
		    SET completed_at=$1, points_obtained=$2, points_total=$3,
		        percentage=$4, passed=$5, elapsed_sec=$6
		  WHERE id=$7 AND completed_at IS NULL AND deleted_at IS NULL`,
		s.now().UTC().Unix(), res.PointsObtained, res.PointsTotal,
		res.Percentage, res.Passed, res.ElapsedSec, attemptID.String())
	if err != nil {
		return persistErr("finalize attempt", err)
	}
	if n, err := r.RowsAffected(); err == nil && n == 0 {
		return persistErr("finalize attempt", ErrAttemptGraded)
	}
	if err := tx.Commit(); err != nil {
		return persistErr("commit grading", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttempt(r rowScanner) (Attempt, error) {
	var a Attempt
	var id, unit string
	var started int64
	var completed sql.NullInt64
	var obtained, total, pct sql.NullFloat64
	var passed sql.NullBool
	var elapsed sql.NullInt64
	if err := r.Scan(&id, &unit, &a.UserID, &started, &completed,
		&obtained, &total, &pct, &passed, &elapsed); err != nil {
		return Attempt{}, persistErr("scan attempt", err)
	}
	var err error
	if a.ID, err = uuid.Parse(id); err != nil {
		return Attempt{}, persistErr("parse attempt id", err)
	}
	if a.ContentUnitID, err = uuid.Parse(unit); err != nil {
		return Attempt{}, persistErr("parse attempt unit id", err)
	}
	a.StartedAt = time.Unix(started, 0).UTC()
	if completed.Valid {
		t := time.Unix(completed.Int64, 0).UTC()
		a.CompletedAt = &t
	}
	a.PointsObtained = obtained.Float64
	a.PointsTotal = total.Float64
	a.Percentage = pct.Float64
	a.Passed = passed.Bool
	a.ElapsedSec = elapsed.Int64
	return a, nil
}

// isUniqueViolation recognizes duplicate-key failures from both drivers so
// retried author submissions can fall back to insert-or-find.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed: UNIQUE")
}
