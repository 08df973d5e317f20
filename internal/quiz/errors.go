package quiz

import (
	"errors"
	"fmt"
)

// ErrNoQuestions is returned when a content unit has zero active questions.
var ErrNoQuestions = errors.New("no questions available for content unit")

// ErrAttemptGraded guards the graded-exactly-once transition: a second
// SubmitGrading against the same attempt fails instead of overwriting scores.
var ErrAttemptGraded = errors.New("attempt already graded")

var ErrNotFound = errors.New("not found")

// PersistenceError wraps any store failure (constraint violation,
// connectivity) so callers can distinguish it from domain errors.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("quiz: %s: %v", e.Op, e.Err) }
func (e *PersistenceError) Unwrap() error { return e.Err }

func persistErr(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}
