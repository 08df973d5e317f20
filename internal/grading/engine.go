package grading

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/skillramp/skillramp-portal/internal/quiz"
)

// PassThreshold is the percentage that flips an attempt to passed. The portal
// copy historically claimed 70, but 80 is what has always gated the flag.
const PassThreshold = 80.0

// UnknownKindError rejects question kinds outside the closed set instead of
// silently skipping them.
type UnknownKindError struct {
	QuestionID uuid.UUID
	Kind       quiz.Kind
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("grading: question %s has unknown kind %q", e.QuestionID, e.Kind)
}

// Graded is the outcome of grading one attempt: an answer row per question,
// in question order, plus the aggregate.
type Graded struct {
	Answers   []quiz.Answer
	Aggregate quiz.Aggregate
}

// strategy grades a single question. answered is false when the response map
// had no entry for the question.
type strategy interface {
	grade(q quiz.Question, resp quiz.Response, answered bool) quiz.Answer
}

// Engine computes attempt results. It is a pure function of its inputs:
// grading the same questions and responses twice yields identical output.
type Engine struct {
	strategies map[quiz.Kind]strategy
	threshold  float64
}

func NewEngine() *Engine {
	return &Engine{
		strategies: map[quiz.Kind]strategy{
			quiz.KindChoiceSingle: choiceStrategy{},
			quiz.KindTrueFalse:    choiceStrategy{},
			quiz.KindFreeText:     freeTextStrategy{},
		},
		threshold: PassThreshold,
	}
}

// Grade walks questions in input order, producing one answer row each. Choice
// kinds score full points when the selected option is flagged correct and zero
// otherwise (unanswered counts as wrong); free text is recorded ungraded and
// never moves the score. Percentage is rounded to 2 decimals; the pass flag
// compares that rounded value against the threshold.
func (e *Engine) Grade(questions []quiz.Question, responses map[uuid.UUID]quiz.Response, attemptID uuid.UUID) (Graded, error) {
	g := Graded{Answers: make([]quiz.Answer, 0, len(questions))}
	agg := quiz.Aggregate{TotalQuestions: len(questions)}
	for _, q := range questions {
		s, ok := e.strategies[q.Kind]
		if !ok {
			return Graded{}, &UnknownKindError{QuestionID: q.ID, Kind: q.Kind}
		}
		agg.PointsTotal += q.Points
		resp, answered := responses[q.ID]
		a := s.grade(q, resp, answered)
		a.AttemptID = attemptID
		if a.Correct != nil && *a.Correct {
			agg.CorrectCount++
			agg.PointsObtained += q.Points
		}
		g.Answers = append(g.Answers, a)
	}
	if agg.PointsTotal > 0 {
		agg.Percentage = round2(agg.PointsObtained / agg.PointsTotal * 100)
	}
	agg.Passed = agg.Percentage >= e.threshold
	g.Aggregate = agg
	return g, nil
}

type choiceStrategy struct{}

func (choiceStrategy) grade(q quiz.Question, resp quiz.Response, answered bool) quiz.Answer {
	a := quiz.Answer{QuestionID: q.ID}
	correct := false
	if answered && resp.OptionID != uuid.Nil {
		sel := resp.OptionID
		a.OptionID = &sel
		for _, o := range q.Options {
			if o.ID == sel {
				correct = o.Correct
				break
			}
		}
	}
	a.Correct = &correct
	pts := 0.0
	if correct {
		pts = q.Points
	}
	a.PointsObtained = &pts
	return a
}

type freeTextStrategy struct{}

// Free text is never auto-graded: the response is recorded as submitted, with
// correctness and points left null.
func (freeTextStrategy) grade(q quiz.Question, resp quiz.Response, answered bool) quiz.Answer {
	a := quiz.Answer{QuestionID: q.ID}
	if answered {
		text := resp.Text
		a.TextResponse = &text
	}
	return a
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
