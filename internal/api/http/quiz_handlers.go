package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/skillramp/skillramp-portal/internal/attempt"
	"github.com/skillramp/skillramp-portal/internal/audit"
	authmw "github.com/skillramp/skillramp-portal/internal/auth/middleware"
	"github.com/skillramp/skillramp-portal/internal/quiz"
)

// Auditor is the slice of the audit recorder the quiz flow needs.
type Auditor interface {
	Record(ctx context.Context, typ, key string, data any)
}

// QuizAPI drives attempt controllers from HTTP. One session per open quiz run;
// every route below requires quiz:take.
type QuizAPI struct {
	Sessions *attempt.SessionManager
	Audit    Auditor
}

func (a *QuizAPI) Mount(r chi.Router) {
	r.Post("/units/{unitID}/session", a.openSession)
	r.Get("/sessions/{sessionID}", a.getSession)
	r.Post("/sessions/{sessionID}/answers", a.selectAnswer)
	r.Post("/sessions/{sessionID}/next", a.next)
	r.Post("/sessions/{sessionID}/previous", a.previous)
	r.Post("/sessions/{sessionID}/submit", a.submit)
	r.Post("/sessions/{sessionID}/retry", a.retry)
	r.Delete("/sessions/{sessionID}", a.closeSession)
}

type sessionView struct {
	SessionID string           `json:"session_id"`
	Snapshot  attempt.Snapshot `json:"snapshot"`
}

func (a *QuizAPI) openSession(w http.ResponseWriter, r *http.Request) {
	unitID, err := uuid.Parse(chi.URLParam(r, "unitID"))
	if err != nil {
		http.Error(w, "bad unit id", http.StatusBadRequest)
		return
	}
	userID := authmw.SubjectFromContext(r.Context())
	sess, err := a.Sessions.Open(r.Context(), unitID, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	snap := sess.Controller.Snapshot()
	// a short-circuited prior pass never starts a new attempt
	if snap.State == attempt.StateAnswering {
		a.Audit.Record(r.Context(), audit.EventAttemptStarted, sess.Controller.AttemptID().String(),
			map[string]string{"content_unit_id": unitID.String(), "user_id": userID})
	}
	writeJSON(w, http.StatusCreated, sessionView{SessionID: sess.ID, Snapshot: snap})
}

func (a *QuizAPI) session(w http.ResponseWriter, r *http.Request) *attempt.Session {
	sess, err := a.Sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, err)
		return nil
	}
	if sess.UserID != authmw.SubjectFromContext(r.Context()) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return nil
	}
	return sess
}

func (a *QuizAPI) getSession(w http.ResponseWriter, r *http.Request) {
	sess := a.session(w, r)
	if sess == nil {
		return
	}
	writeJSON(w, http.StatusOK, sessionView{SessionID: sess.ID, Snapshot: sess.Controller.Snapshot()})
}

func (a *QuizAPI) selectAnswer(w http.ResponseWriter, r *http.Request) {
	sess := a.session(w, r)
	if sess == nil {
		return
	}
	var req struct {
		QuestionID uuid.UUID `json:"question_id"`
		OptionID   uuid.UUID `json:"option_id,omitempty"`
		Text       string    `json:"text,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	resp := quiz.Response{OptionID: req.OptionID, Text: req.Text}
	if err := sess.Controller.SelectAnswer(req.QuestionID, resp); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Controller.Snapshot())
}

func (a *QuizAPI) next(w http.ResponseWriter, r *http.Request) {
	sess := a.session(w, r)
	if sess == nil {
		return
	}
	if err := sess.Controller.Next(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Controller.Snapshot())
}

func (a *QuizAPI) previous(w http.ResponseWriter, r *http.Request) {
	sess := a.session(w, r)
	if sess == nil {
		return
	}
	if err := sess.Controller.Previous(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Controller.Snapshot())
}

func (a *QuizAPI) submit(w http.ResponseWriter, r *http.Request) {
	sess := a.session(w, r)
	if sess == nil {
		return
	}
	var req struct {
		ConfirmUnanswered bool `json:"confirm_unanswered"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
	}
	res, err := sess.Controller.Submit(r.Context(), req.ConfirmUnanswered)
	if err != nil {
		writeError(w, err)
		return
	}
	a.Audit.Record(r.Context(), audit.EventAttemptGraded, sess.Controller.AttemptID().String(), res)
	writeJSON(w, http.StatusOK, res)
}

// retry resets a failed result and immediately re-enters the load flow, so
// the client lands on a fresh attempt in one round trip.
func (a *QuizAPI) retry(w http.ResponseWriter, r *http.Request) {
	sess := a.session(w, r)
	if sess == nil {
		return
	}
	if err := sess.Controller.Retry(); err != nil {
		writeError(w, err)
		return
	}
	if err := sess.Controller.Load(r.Context(), sess.Controller.ContentUnitID(), sess.UserID); err != nil {
		writeError(w, err)
		return
	}
	if attemptID := sess.Controller.AttemptID(); attemptID != uuid.Nil {
		a.Audit.Record(r.Context(), audit.EventAttemptStarted, attemptID.String(),
			map[string]string{"user_id": sess.UserID, "retry": "true"})
	}
	writeJSON(w, http.StatusOK, sessionView{SessionID: sess.ID, Snapshot: sess.Controller.Snapshot()})
}

func (a *QuizAPI) closeSession(w http.ResponseWriter, r *http.Request) {
	sess := a.session(w, r)
	if sess == nil {
		return
	}
	a.Sessions.Close(sess.ID)
	w.WriteHeader(http.StatusNoContent)
}
