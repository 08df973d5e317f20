package attempt

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/skillramp/skillramp-portal/internal/grading"
	"github.com/skillramp/skillramp-portal/internal/quiz"
)

var ErrSessionNotFound = errors.New("attempt: session not found")

// Session pairs a controller with the user who opened it so the HTTP layer
// can enforce ownership.
type Session struct {
	ID         string
	UserID     string
	Controller *Controller
}

// SessionManager hands out one controller per open quiz run. Sessions live in
// memory; an abandoned session simply leaves an open attempt row behind, which
// the most-recent-passing-attempt rule tolerates.
type SessionManager struct {
	mu       sync.Mutex
	repo     quiz.Repository
	engine   *grading.Engine
	sessions map[string]*Session
	opts     []ControllerOption
}

func NewSessionManager(repo quiz.Repository, engine *grading.Engine, opts ...ControllerOption) *SessionManager {
	return &SessionManager{
		repo:     repo,
		engine:   engine,
		sessions: make(map[string]*Session),
		opts:     opts,
	}
}

// Open creates a controller, runs Load, and registers the session. A load
// failure is returned without registering anything, so the client can simply
// try again.
func (m *SessionManager) Open(ctx context.Context, contentUnitID uuid.UUID, userID string) (*Session, error) {
	ctrl := NewController(m.repo, m.engine, m.opts...)
	if err := ctrl.Load(ctx, contentUnitID, userID); err != nil {
		return nil, err
	}
	s := &Session{ID: uuid.NewString(), UserID: userID, Controller: ctrl}
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s, nil
}

func (m *SessionManager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (m *SessionManager) Close(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}
