package http

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	authmw "github.com/skillramp/skillramp-portal/internal/auth/middleware"
	"github.com/skillramp/skillramp-portal/internal/quiz"
	"github.com/skillramp/skillramp-portal/internal/rbac"
)

// GET /attempts?unit_id=...&user_id=...&limit=...&offset=...
// RBAC:
// - attempt:view-all may list any user's attempts for a unit
// - attempt:view-own only sees their own (user_id is forced to the subject)
func ListAttemptsHandler(repo quiz.Repository, checker *rbac.Checker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role := rbac.RoleFromContext(r.Context())
		sub := authmw.SubjectFromContext(r.Context())
		if role == "" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		unitParam := strings.TrimSpace(r.URL.Query().Get("unit_id"))
		unitID, err := uuid.Parse(unitParam)
		if err != nil {
			http.Error(w, "unit_id required", http.StatusBadRequest)
			return
		}
		userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
		if !checker.Has(role, "attempt:view-all") || userID == "" {
			userID = sub
		}

		list, err := repo.ListAttempts(r.Context(), unitID, userID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, paginate(list,
			parseIntDefault(r.URL.Query().Get("offset"), 0),
			parseIntDefault(r.URL.Query().Get("limit"), 50)))
	}
}

// paginate windows the newest-first listing; limit 0 means no cap.
func paginate(list []quiz.Attempt, offset, limit int) []quiz.Attempt {
	if offset >= len(list) {
		return []quiz.Attempt{}
	}
	list = list[offset:]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}
