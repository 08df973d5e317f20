package quiz

import (
	"time"

	"github.com/google/uuid"
)

// Kind is the closed set of question kinds the grading engine understands.
type Kind string

const (
	KindChoiceSingle Kind = "choice-single"
	KindTrueFalse    Kind = "true-false"
	KindFreeText     Kind = "free-text"
)

func (k Kind) Valid() bool {
	switch k {
	case KindChoiceSingle, KindTrueFalse, KindFreeText:
		return true
	default:
		return false
	}
}

// Choice reports whether answers to this kind are option selections.
func (k Kind) Choice() bool { return k == KindChoiceSingle || k == KindTrueFalse }

type Option struct {
	ID         uuid.UUID `json:"id"`
	QuestionID uuid.UUID `json:"question_id"`
	Label      string    `json:"label"`
	Correct    bool      `json:"correct"`
	Position   int       `json:"position"`
}

type Question struct {
	ID            uuid.UUID `json:"id"`
	ContentUnitID uuid.UUID `json:"content_unit_id"`
	Prompt        string    `json:"prompt"`
	Kind          Kind      `json:"kind"`
	Points        float64   `json:"points"` // always > 0
	Position      int       `json:"position"`
	Explanation   string    `json:"explanation,omitempty"`
	Options       []Option  `json:"options,omitempty"` // ordered; empty for free-text
}

// Attempt is one user's pass through a content unit's quiz. It is created open
// (CompletedAt nil) and graded exactly once; after grading no field mutates.
type Attempt struct {
	ID             uuid.UUID  `json:"id"`
	ContentUnitID  uuid.UUID  `json:"content_unit_id"`
	UserID         string     `json:"user_id"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	PointsObtained float64    `json:"points_obtained"`
	PointsTotal    float64    `json:"points_total"`
	Percentage     float64    `json:"percentage"`
	Passed         bool       `json:"passed"`
	ElapsedSec     int64      `json:"elapsed_sec"`
}

func (a Attempt) Graded() bool { return a.CompletedAt != nil }

// Answer is one graded (or recorded, for free text) response row. Exactly one
// of OptionID / TextResponse is set depending on the question kind. Correct
// and PointsObtained stay nil for free text, which is never auto-graded.
type Answer struct {
	ID             uuid.UUID  `json:"id"`
	AttemptID      uuid.UUID  `json:"attempt_id"`
	QuestionID     uuid.UUID  `json:"question_id"`
	OptionID       *uuid.UUID `json:"option_id,omitempty"`
	TextResponse   *string    `json:"text_response,omitempty"`
	Correct        *bool      `json:"correct,omitempty"`
	PointsObtained *float64   `json:"points_obtained,omitempty"`
}

// Response is a submitted value before grading: an option selection for choice
// kinds, free text otherwise.
type Response struct {
	OptionID uuid.UUID `json:"option_id,omitempty"` // uuid.Nil unless a choice selection
	Text     string    `json:"text,omitempty"`
}

// Aggregate is the computed scoring summary of one graded attempt.
type Aggregate struct {
	PointsObtained float64 `json:"points_obtained"`
	PointsTotal    float64 `json:"points_total"`
	Percentage     float64 `json:"percentage"` // rounded to 2 decimals
	Passed         bool    `json:"passed"`
	CorrectCount   int     `json:"correct_count"`
	TotalQuestions int     `json:"total_questions"`
}

// Result is what the portal shows after an attempt: the aggregate plus timing.
// It is derived from Attempt + Answers, never stored as its own row.
type Result struct {
	Aggregate
	ElapsedSec int64 `json:"elapsed_sec"`
}
