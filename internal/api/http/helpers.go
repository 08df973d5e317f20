package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/skillramp/skillramp-portal/internal/attempt"
	"github.com/skillramp/skillramp-portal/internal/content"
	"github.com/skillramp/skillramp-portal/internal/quiz"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors to status codes. Unanswered-question warnings
// carry their count so the client can render the confirmation prompt.
func writeError(w http.ResponseWriter, err error) {
	var unanswered *attempt.UnansweredError
	if errors.As(err, &unanswered) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":            unanswered.Error(),
			"unanswered":       unanswered.Count,
			"confirm_required": true,
		})
		return
	}
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, quiz.ErrNoQuestions),
		errors.Is(err, quiz.ErrNotFound),
		errors.Is(err, content.ErrUnitNotFound),
		errors.Is(err, attempt.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, attempt.ErrWrongState),
		errors.Is(err, attempt.ErrRetryPassed),
		errors.Is(err, quiz.ErrAttemptGraded):
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return v
	}
	return def
}
