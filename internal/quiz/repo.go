package quiz

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the persistence contract for quizzes. Listing operations
// exclude soft-deleted rows and return empty slices, not errors, when nothing
// matches. All failures surface as *PersistenceError.
type Repository interface {
	// ListQuestions returns the unit's active questions in display order,
	// each with its active options in display order.
	ListQuestions(ctx context.Context, contentUnitID uuid.UUID) ([]Question, error)

	// ListAttempts returns the user's attempts for the unit, newest start
	// time first.
	ListAttempts(ctx context.Context, contentUnitID uuid.UUID, userID string) ([]Attempt, error)

	ListAnswers(ctx context.Context, attemptID uuid.UUID) ([]Answer, error)

	// StartAttempt creates an open attempt with the store's clock as start
	// time and a store-assigned id.
	StartAttempt(ctx context.Context, contentUnitID uuid.UUID, userID string) (Attempt, error)

	// SubmitGrading persists the attempt's answer rows and then marks the
	// attempt graded, atomically: if the answer phase fails the attempt is
	// never marked graded.
	SubmitGrading(ctx context.Context, attemptID uuid.UUID, answers []Answer, res Result) error

	// Author-side mutations. Create* auto-assign the next display position
	// within the parent when none is supplied, and absorb duplicate-key
	// races on retried submissions with insert-or-find semantics.
	CreateQuestion(ctx context.Context, q Question) (Question, error)
	UpdateQuestion(ctx context.Context, q Question) (Question, error)
	SoftDeleteQuestion(ctx context.Context, id uuid.UUID) error
	CreateOption(ctx context.Context, o Option) (Option, error)
	UpdateOption(ctx context.Context, o Option) (Option, error)
	SoftDeleteOption(ctx context.Context, id uuid.UUID) error
}
