package attempt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/skillramp/skillramp-portal/internal/grading"
	"github.com/skillramp/skillramp-portal/internal/quiz"
)

// State names one step of the attempt lifecycle. The loading and submitting
// states are transient (held only while a store call is in flight) but exposed
// so the adapter can render progress.
type State string

const (
	StateIdle             State = "idle"
	StateLoadingPrior     State = "loading_prior_attempts"
	StateLoadingQuestions State = "loading_questions"
	StateAnswering        State = "answering"
	StateSubmitting       State = "submitting"
	StateResult           State = "result"
	StateFailed           State = "failed"
)

// UnansweredError asks the adapter for explicit confirmation before grading an
// attempt with open questions. It is a warning, not a hard failure: submitting
// again with confirmation proceeds.
type UnansweredError struct{ Count int }

func (e *UnansweredError) Error() string {
	return fmt.Sprintf("attempt: %d question(s) unanswered", e.Count)
}

var (
	ErrWrongState  = errors.New("attempt: operation not valid in current state")
	ErrRetryPassed = errors.New("attempt: retry is only offered after a failed result")
)

// Controller runs one quiz attempt for one user and content unit. It owns the
// in-progress response map and drives the repository and grading engine; the
// HTTP adapter only ever calls its methods and renders snapshots.
//
// A controller instance is logically sequential, but requests reach it from
// concurrent HTTP handlers, so every entry point takes the mutex.
type Controller struct {
	mu     sync.Mutex
	repo   quiz.Repository
	engine *grading.Engine
	now    func() time.Time

	state         State
	contentUnitID uuid.UUID
	userID        string
	questions     []quiz.Question
	att           quiz.Attempt
	responses     map[uuid.UUID]quiz.Response
	step          int
	result        *quiz.Result
	lastErr       error
}

type ControllerOption func(*Controller)

// WithClock substitutes the elapsed-time clock, for tests.
func WithClock(now func() time.Time) ControllerOption {
	return func(c *Controller) { c.now = now }
}

func NewController(repo quiz.Repository, engine *grading.Engine, opts ...ControllerOption) *Controller {
	c := &Controller{
		repo:   repo,
		engine: engine,
		now:    time.Now,
		state:  StateIdle,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Load begins the lifecycle: look for a prior passing attempt and
// short-circuit to its reconstructed result, otherwise fetch questions and
// start a fresh attempt. Valid from idle (or failed, to let the user retry the
// same action after an error).
func (c *Controller) Load(ctx context.Context, contentUnitID uuid.UUID, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateIdle && c.state != StateFailed {
		return ErrWrongState
	}
	c.lastErr = nil // a re-entered load starts with a clean slate
	c.contentUnitID = contentUnitID
	c.userID = userID

	c.state = StateLoadingPrior
	attempts, err := c.repo.ListAttempts(ctx, contentUnitID, userID)
	if err != nil {
		return c.fail(err)
	}
	for _, a := range attempts { // newest first; the first pass wins
		if a.Passed {
			return c.restoreResult(ctx, a)
		}
	}

	c.state = StateLoadingQuestions
	questions, err := c.repo.ListQuestions(ctx, contentUnitID)
	if err != nil {
		return c.fail(err)
	}
	if len(questions) == 0 {
		return c.fail(quiz.ErrNoQuestions)
	}
	att, err := c.repo.StartAttempt(ctx, contentUnitID, userID)
	if err != nil {
		return c.fail(err)
	}
	c.questions = questions
	c.att = att
	c.responses = make(map[uuid.UUID]quiz.Response, len(questions))
	c.step = 0
	c.state = StateAnswering
	return nil
}

// restoreResult rebuilds the result of an already-passed attempt from its
// persisted answer rows. No new attempt is started and nothing is re-graded.
func (c *Controller) restoreResult(ctx context.Context, a quiz.Attempt) error {
	answers, err := c.repo.ListAnswers(ctx, a.ID)
	if err != nil {
		return c.fail(err)
	}
	correct := 0
	for _, ans := range answers {
		if ans.Correct != nil && *ans.Correct {
			correct++
		}
	}
	c.att = a
	c.result = &quiz.Result{
		Aggregate: quiz.Aggregate{
			PointsObtained: a.PointsObtained,
			PointsTotal:    a.PointsTotal,
			Percentage:     a.Percentage,
			Passed:         a.Passed,
			CorrectCount:   correct,
			TotalQuestions: len(answers),
		},
		ElapsedSec: a.ElapsedSec,
	}
	c.state = StateResult
	return nil
}

// SelectAnswer records the response for a question, overwriting any earlier
// selection for the same question.
func (c *Controller) SelectAnswer(questionID uuid.UUID, resp quiz.Response) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateAnswering {
		return ErrWrongState
	}
	for _, q := range c.questions {
		if q.ID == questionID {
			c.responses[questionID] = resp
			return nil
		}
	}
	return fmt.Errorf("attempt: question %s is not part of this quiz", questionID)
}

// Next and Previous move between questions without touching the response map.
func (c *Controller) Next() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateAnswering {
		return ErrWrongState
	}
	if c.step < len(c.questions)-1 {
		c.step++
	}
	return nil
}

func (c *Controller) Previous() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateAnswering {
		return ErrWrongState
	}
	if c.step > 0 {
		c.step--
	}
	return nil
}

// Submit grades the attempt and persists the outcome. With unanswered
// questions and confirmed=false it returns *UnansweredError and stays in
// answering; the adapter shows the confirmation and resubmits with
// confirmed=true. A persistence failure also returns to answering with every
// entered response intact, so the user can submit again.
func (c *Controller) Submit(ctx context.Context, confirmed bool) (quiz.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateAnswering {
		return quiz.Result{}, ErrWrongState
	}
	if n := c.unanswered(); n > 0 && !confirmed {
		return quiz.Result{}, &UnansweredError{Count: n}
	}

	c.state = StateSubmitting
	graded, err := c.engine.Grade(c.questions, c.responses, c.att.ID)
	if err != nil {
		c.state = StateAnswering
		return quiz.Result{}, err
	}
	res := quiz.Result{
		Aggregate:  graded.Aggregate,
		ElapsedSec: int64(c.now().Sub(c.att.StartedAt) / time.Second),
	}
	if err := c.repo.SubmitGrading(ctx, c.att.ID, graded.Answers, res); err != nil {
		c.state = StateAnswering
		return quiz.Result{}, err
	}
	c.result = &res
	c.state = StateResult
	return res, nil
}

// Retry resets to idle after a failed result so a fresh attempt can start.
// The failed attempt stays in storage; only in-memory state is discarded.
// A passed result offers no retry.
func (c *Controller) Retry() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateResult {
		return ErrWrongState
	}
	if c.result != nil && c.result.Passed {
		return ErrRetryPassed
	}
	c.questions = nil
	c.att = quiz.Attempt{}
	c.responses = nil
	c.step = 0
	c.result = nil
	c.lastErr = nil
	c.state = StateIdle
	return nil
}

func (c *Controller) unanswered() int {
	n := 0
	for _, q := range c.questions {
		if _, ok := c.responses[q.ID]; !ok {
			n++
		}
	}
	return n
}

func (c *Controller) fail(err error) error {
	c.state = StateFailed
	c.lastErr = err
	return err
}

// Snapshot is the adapter-facing view of the lifecycle.
type Snapshot struct {
	State      State          `json:"state"`
	Step       int            `json:"step"`
	TotalSteps int            `json:"total_steps"`
	Question   *quiz.Question `json:"question,omitempty"`
	Answered   int            `json:"answered"`
	Submitting bool           `json:"submitting"`
	Result     *quiz.Result   `json:"result,omitempty"`
	Error      string         `json:"error,omitempty"`
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{
		State:      c.state,
		Step:       c.step,
		TotalSteps: len(c.questions),
		Answered:   len(c.responses),
		Submitting: c.state == StateSubmitting,
	}
	if c.state == StateAnswering && c.step < len(c.questions) {
		// copy with correctness flags stripped; the learner view never
		// carries the key
		q := c.questions[c.step]
		opts := make([]quiz.Option, len(q.Options))
		copy(opts, q.Options)
		for i := range opts {
			opts[i].Correct = false
		}
		q.Options = opts
		s.Question = &q
	}
	if c.result != nil {
		r := *c.result
		s.Result = &r
	}
	if c.lastErr != nil {
		s.Error = c.lastErr.Error()
	}
	return s
}

// AttemptID exposes the running attempt's id for audit logging.
func (c *Controller) AttemptID() uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.att.ID
}

// ContentUnitID reports the unit this controller was loaded for, so the
// adapter can re-enter Load after a retry.
func (c *Controller) ContentUnitID() uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.contentUnitID
}
