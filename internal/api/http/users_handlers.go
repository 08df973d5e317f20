package http

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	authmw "github.com/skillramp/skillramp-portal/internal/auth/middleware"
)

type userRow struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Role        string `json:"role"`
	DisplayName string `json:"display_name,omitempty"`
	Password    string `json:"password,omitempty"` // only on upsert input
}

// BulkUpsertUsersHandler seeds or updates portal accounts from a JSON array.
// Admin-only; used to onboard teams.
func BulkUpsertUsersHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var rows []userRow
		if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
			http.Error(w, "expected JSON array", http.StatusBadRequest)
			return
		}
		if len(rows) == 0 {
			writeJSON(w, http.StatusOK, map[string]any{"inserted": 0, "updated": 0})
			return
		}
		ins, upd, err := upsertUsers(r.Context(), db, rows)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"inserted": ins, "updated": upd})
	}
}

func upsertUsers(ctx context.Context, db *sql.DB, rows []userRow) (inserted, updated int, err error) {
	for _, u := range rows {
		if u.Username == "" {
			continue
		}
		if u.Role == "" {
			u.Role = "learner"
		}
		var hash []byte
		if u.Password != "" {
			hash, err = bcrypt.GenerateFromPassword([]byte(u.Password), 12)
			if err != nil {
				return inserted, updated, err
			}
		}

		var existing string
		err = db.QueryRowContext(ctx, `SELECT id FROM users WHERE username=$1`, u.Username).Scan(&existing)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			if len(hash) == 0 {
				continue // a new account needs a password
			}
			id := u.ID
			if id == "" {
				id = uuid.NewString()
			}
			_, err = db.ExecContext(ctx,
				`INSERT INTO users (id, username, password_hash, role, display_name, created_at)
				 VALUES ($1,$2,$3,$4,$5,$6)`,
				id, u.Username, string(hash), u.Role, u.DisplayName, time.Now().Unix())
			if err != nil {
				return inserted, updated, err
			}
			inserted++
		case err != nil:
			return inserted, updated, err
		default:
			if len(hash) > 0 {
				_, err = db.ExecContext(ctx,
					`UPDATE users SET role=$1, display_name=$2, password_hash=$3 WHERE id=$4`,
					u.Role, u.DisplayName, string(hash), existing)
			} else {
				_, err = db.ExecContext(ctx,
					`UPDATE users SET role=$1, display_name=$2 WHERE id=$3`,
					u.Role, u.DisplayName, existing)
			}
			if err != nil {
				return inserted, updated, err
			}
			updated++
		}
	}
	return inserted, updated, nil
}

func ListUsersHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role := r.URL.Query().Get("role")
		var rows *sql.Rows
		var err error
		if role == "" {
			rows, err = db.QueryContext(r.Context(),
				`SELECT id, username, role, display_name FROM users ORDER BY username`)
		} else {
			rows, err = db.QueryContext(r.Context(),
				`SELECT id, username, role, display_name FROM users WHERE role=$1 ORDER BY username`, role)
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		defer rows.Close()
		out := []userRow{}
		for rows.Next() {
			var u userRow
			if err := rows.Scan(&u.ID, &u.Username, &u.Role, &u.DisplayName); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			out = append(out, u)
		}
		writeJSON(w, http.StatusOK, out)
	}
}

type changePasswordReq struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func ChangePasswordHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := authmw.SubjectFromContext(r.Context())
		if userID == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		var req changePasswordReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if req.NewPassword == "" {
			http.Error(w, "new password required", http.StatusBadRequest)
			return
		}

		var storedHash string
		err := db.QueryRowContext(r.Context(),
			`SELECT password_hash FROM users WHERE id=$1`, userID).Scan(&storedHash)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				http.Error(w, "user not found", http.StatusNotFound)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(req.OldPassword)) != nil {
			http.Error(w, "incorrect old password", http.StatusForbidden)
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), 12)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if _, err := db.ExecContext(r.Context(),
			`UPDATE users SET password_hash=$1 WHERE id=$2`, string(hash), userID); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
