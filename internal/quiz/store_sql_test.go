package quiz

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/skillramp/skillramp-portal/internal/db"
)

var testDBSeq atomic.Int64

// newTestStore opens a fresh in-memory sqlite database with the portal schema.
// The store clock ticks one second per call so ordering tests are
// deterministic.
func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	dsn := fmt.Sprintf("file:quiztest%d?mode=memory&cache=shared", testDBSeq.Add(1))
	h, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { h.Close() })
	if err := db.EnsureSchema(context.Background(), h, db.DriverSQLite); err != nil {
		t.Fatalf("schema: %v", err)
	}
	s := NewSQLStore(h, "sqlite")
	var tick int64
	s.now = func() time.Time {
		tick++
		return time.Unix(1700000000+tick, 0)
	}
	return s
}

func seedUnit(t *testing.T, s *SQLStore) uuid.UUID {
	t.Helper()
	unitID := uuid.New()
	_, err := s.db.Exec(
		`INSERT INTO content_units (id, course_id, title, kind, created_at) VALUES ($1,$2,$3,$4,$5)`,
		unitID.String(), uuid.NewString(), "Seguridad de la información", "video", 1700000000)
	if err != nil {
		t.Fatalf("seed unit: %v", err)
	}
	return unitID
}

func TestListQuestionsOrderingAndSoftDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	unitID := seedUnit(t, s)

	q2, err := s.CreateQuestion(ctx, Question{ContentUnitID: unitID, Prompt: "second", Kind: KindTrueFalse, Points: 5, Position: 2})
	if err != nil {
		t.Fatal(err)
	}
	q1, err := s.CreateQuestion(ctx, Question{ContentUnitID: unitID, Prompt: "first", Kind: KindChoiceSingle, Points: 10, Position: 1})
	if err != nil {
		t.Fatal(err)
	}
	gone, err := s.CreateQuestion(ctx, Question{ContentUnitID: unitID, Prompt: "deleted", Kind: KindFreeText, Points: 5, Position: 3})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SoftDeleteQuestion(ctx, gone.ID); err != nil {
		t.Fatal(err)
	}

	oB, err := s.CreateOption(ctx, Option{QuestionID: q1.ID, Label: "b", Position: 2})
	if err != nil {
		t.Fatal(err)
	}
	oA, err := s.CreateOption(ctx, Option{QuestionID: q1.ID, Label: "a", Correct: true, Position: 1})
	if err != nil {
		t.Fatal(err)
	}
	oGone, err := s.CreateOption(ctx, Option{QuestionID: q1.ID, Label: "c", Position: 3})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SoftDeleteOption(ctx, oGone.ID); err != nil {
		t.Fatal(err)
	}

	qs, err := s.ListQuestions(ctx, unitID)
	if err != nil {
		t.Fatal(err)
	}
	if len(qs) != 2 {
		t.Fatalf("questions = %d, want 2 (soft-deleted excluded)", len(qs))
	}
	if qs[0].ID != q1.ID || qs[1].ID != q2.ID {
		t.Errorf("questions out of position order: %s, %s", qs[0].Prompt, qs[1].Prompt)
	}
	if len(qs[0].Options) != 2 {
		t.Fatalf("options = %d, want 2 (soft-deleted excluded)", len(qs[0].Options))
	}
	if qs[0].Options[0].ID != oA.ID || qs[0].Options[1].ID != oB.ID {
		t.Errorf("options out of position order")
	}
	if !qs[0].Options[0].Correct {
		t.Errorf("correct flag lost in round trip")
	}

	other, err := s.ListQuestions(ctx, uuid.New())
	if err != nil {
		t.Fatal(err)
	}
	if len(other) != 0 {
		t.Errorf("foreign unit returned %d questions", len(other))
	}
}

func TestStartAndGradeAttempt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	unitID := seedUnit(t, s)

	att, err := s.StartAttempt(ctx, unitID, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if att.Graded() {
		t.Fatal("new attempt must be open")
	}

	optID := uuid.New()
	yes := true
	pts := 10.0
	text := "respuesta libre"
	answers := []Answer{
		{AttemptID: att.ID, QuestionID: uuid.New(), OptionID: &optID, Correct: &yes, PointsObtained: &pts},
		{AttemptID: att.ID, QuestionID: uuid.New(), TextResponse: &text},
	}
	res := Result{
		Aggregate: Aggregate{
			PointsObtained: 10, PointsTotal: 20, Percentage: 50,
			Passed: false, CorrectCount: 1, TotalQuestions: 2,
		},
		ElapsedSec: 73,
	}
	if err := s.SubmitGrading(ctx, att.ID, answers, res); err != nil {
		t.Fatalf("submit grading: %v", err)
	}

	attempts, err := s.ListAttempts(ctx, unitID, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(attempts) != 1 {
		t.Fatalf("attempts = %d", len(attempts))
	}
	got := attempts[0]
	if !got.Graded() || got.PointsObtained != 10 || got.PointsTotal != 20 ||
		got.Percentage != 50 || got.Passed || got.ElapsedSec != 73 {
		t.Errorf("graded attempt = %+v", got)
	}

	rows, err := s.ListAnswers(ctx, att.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("answers = %d", len(rows))
	}
	var choice, free *Answer
	for i := range rows {
		if rows[i].OptionID != nil {
			choice = &rows[i]
		} else {
			free = &rows[i]
		}
	}
	if choice == nil || *choice.OptionID != optID || choice.Correct == nil || !*choice.Correct ||
		choice.PointsObtained == nil || *choice.PointsObtained != 10 {
		t.Errorf("choice answer = %+v", choice)
	}
	if free == nil || free.TextResponse == nil || *free.TextResponse != text ||
		free.Correct != nil || free.PointsObtained != nil {
		t.Errorf("free-text answer = %+v", free)
	}
}

func TestSubmitGradingOnlyOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	unitID := seedUnit(t, s)

	att, err := s.StartAttempt(ctx, unitID, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	res := Result{Aggregate: Aggregate{PointsTotal: 10}}
	if err := s.SubmitGrading(ctx, att.ID, nil, res); err != nil {
		t.Fatal(err)
	}
	err = s.SubmitGrading(ctx, att.ID, nil, res)
	if !errors.Is(err, ErrAttemptGraded) {
		t.Fatalf("second grading = %v, want ErrAttemptGraded", err)
	}
	var perr *PersistenceError
	if !errors.As(err, &perr) {
		t.Errorf("grading errors should wrap PersistenceError, got %T", err)
	}
}

func TestSubmitGradingAnswerFailureLeavesAttemptOpen(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	unitID := seedUnit(t, s)

	att, err := s.StartAttempt(ctx, unitID, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	dup := uuid.New()
	yes := true
	answers := []Answer{
		{ID: dup, AttemptID: att.ID, QuestionID: uuid.New(), Correct: &yes},
		{ID: dup, AttemptID: att.ID, QuestionID: uuid.New(), Correct: &yes}, // pk collision
	}
	if err := s.SubmitGrading(ctx, att.ID, answers, Result{}); err == nil {
		t.Fatal("duplicate answer ids should fail the grading tx")
	}

	attempts, err := s.ListAttempts(ctx, unitID, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if attempts[0].Graded() {
		t.Error("attempt finalized although the answer phase failed")
	}
	rows, err := s.ListAnswers(ctx, att.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 0 {
		t.Errorf("rolled-back tx left %d answer rows", len(rows))
	}
}

func TestListAttemptsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	unitID := seedUnit(t, s)

	first, err := s.StartAttempt(ctx, unitID, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.StartAttempt(ctx, unitID, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.StartAttempt(ctx, unitID, "user-2"); err != nil {
		t.Fatal(err)
	}

	attempts, err := s.ListAttempts(ctx, unitID, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(attempts) != 2 {
		t.Fatalf("attempts = %d, want the user's own only", len(attempts))
	}
	if attempts[0].ID != second.ID || attempts[1].ID != first.ID {
		t.Errorf("attempts not newest first")
	}
}

func TestCreateAutoAssignsPosition(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	unitID := seedUnit(t, s)

	q1, err := s.CreateQuestion(ctx, Question{ContentUnitID: unitID, Prompt: "p1", Kind: KindChoiceSingle, Points: 5})
	if err != nil {
		t.Fatal(err)
	}
	q2, err := s.CreateQuestion(ctx, Question{ContentUnitID: unitID, Prompt: "p2", Kind: KindChoiceSingle, Points: 5})
	if err != nil {
		t.Fatal(err)
	}
	if q1.Position != 1 || q2.Position != 2 {
		t.Errorf("positions = %d, %d", q1.Position, q2.Position)
	}

	o1, err := s.CreateOption(ctx, Option{QuestionID: q1.ID, Label: "a"})
	if err != nil {
		t.Fatal(err)
	}
	o2, err := s.CreateOption(ctx, Option{QuestionID: q1.ID, Label: "b"})
	if err != nil {
		t.Fatal(err)
	}
	if o1.Position != 1 || o2.Position != 2 {
		t.Errorf("option positions = %d, %d", o1.Position, o2.Position)
	}
}

func TestCreateQuestionInsertOrFind(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	unitID := seedUnit(t, s)

	q, err := s.CreateQuestion(ctx, Question{ContentUnitID: unitID, Prompt: "dup", Kind: KindChoiceSingle, Points: 5})
	if err != nil {
		t.Fatal(err)
	}
	// retried submission reuses the id; the duplicate insert resolves to the
	// existing row
	again, err := s.CreateQuestion(ctx, Question{ID: q.ID, ContentUnitID: unitID, Prompt: "dup", Kind: KindChoiceSingle, Points: 5})
	if err != nil {
		t.Fatalf("retried create: %v", err)
	}
	if again.ID != q.ID {
		t.Errorf("retry resolved to %s, want %s", again.ID, q.ID)
	}
	qs, err := s.ListQuestions(ctx, unitID)
	if err != nil {
		t.Fatal(err)
	}
	if len(qs) != 1 {
		t.Errorf("retry created a second row: %d questions", len(qs))
	}

	o, err := s.CreateOption(ctx, Option{QuestionID: q.ID, Label: "x"})
	if err != nil {
		t.Fatal(err)
	}
	oAgain, err := s.CreateOption(ctx, Option{ID: o.ID, QuestionID: q.ID, Label: "x"})
	if err != nil {
		t.Fatalf("retried option create: %v", err)
	}
	if oAgain.ID != o.ID {
		t.Errorf("option retry resolved to %s, want %s", oAgain.ID, o.ID)
	}
}

func TestCreateQuestionWithOptionsAtomic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	unitID := seedUnit(t, s)

	q, err := s.CreateQuestion(ctx, Question{
		ContentUnitID: unitID, Prompt: "atomic", Kind: KindChoiceSingle, Points: 10,
		Options: []Option{
			{Label: "a", Correct: true},
			{Label: "b"},
		},
	})
	if err != nil {
		t.Fatalf("create with options: %v", err)
	}
	if len(q.Options) != 2 || q.Options[0].Position != 1 || q.Options[1].Position != 2 {
		t.Fatalf("returned options = %+v", q.Options)
	}
	qs, err := s.ListQuestions(ctx, unitID)
	if err != nil {
		t.Fatal(err)
	}
	if len(qs) != 1 || len(qs[0].Options) != 2 {
		t.Fatalf("listed %d questions with %d options", len(qs), len(qs[0].Options))
	}

	// a retried create with the same id resolves to the committed shape,
	// options included
	again, err := s.CreateQuestion(ctx, Question{
		ID: q.ID, ContentUnitID: unitID, Prompt: "atomic", Kind: KindChoiceSingle, Points: 10,
	})
	if err != nil {
		t.Fatalf("retried create: %v", err)
	}
	if again.ID != q.ID || len(again.Options) != 2 {
		t.Errorf("retry returned %+v", again)
	}

	// an option failure mid-create rolls the question back too
	dup := uuid.New()
	_, err = s.CreateQuestion(ctx, Question{
		ContentUnitID: unitID, Prompt: "broken", Kind: KindChoiceSingle, Points: 10,
		Options: []Option{
			{ID: dup, Label: "a"},
			{ID: dup, Label: "b"},
		},
	})
	if err == nil {
		t.Fatal("duplicate option ids should fail the create")
	}
	qs, err = s.ListQuestions(ctx, unitID)
	if err != nil {
		t.Fatal(err)
	}
	if len(qs) != 1 {
		t.Errorf("failed create left %d questions behind", len(qs))
	}
}

func TestUpdateMissingRowIsNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.UpdateQuestion(ctx, Question{ID: uuid.New(), Prompt: "x", Kind: KindFreeText, Points: 1})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("update missing question = %v", err)
	}
	_, err = s.UpdateOption(ctx, Option{ID: uuid.New(), Label: "x"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("update missing option = %v", err)
	}

	// updating a soft-deleted row is also not found
	unitID := seedUnit(t, s)
	q, err := s.CreateQuestion(ctx, Question{ContentUnitID: unitID, Prompt: "p", Kind: KindFreeText, Points: 1})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SoftDeleteQuestion(ctx, q.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.UpdateQuestion(ctx, q); !errors.Is(err, ErrNotFound) {
		t.Errorf("update soft-deleted question = %v", err)
	}
}
