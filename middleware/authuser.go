// Copyright (c) 2026 Pollroom Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/pollroom/pollroom/models"
)

// UserHandlerFunc is a handler that receives the authenticated user as
// an explicit parameter instead of reading ambient request state.
type UserHandlerFunc func(w http.ResponseWriter, r *http.Request, user models.User)

// RequireAuth resolves "Authorization: Token <key>" to a user row and
// passes it to the wrapped handler; 401 when the header is missing or
// the key unknown.
func RequireAuth(db *sqlx.DB, next UserHandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			FieldErrorResponse(w, http.StatusUnauthorized,
				FieldErrors{"detail": {"Authentication credentials were not provided."}})
			return
		}

		key, ok := strings.CutPrefix(header, "Token ")
		if !ok || key == "" {
			FieldErrorResponse(w, http.StatusUnauthorized,
				FieldErrors{"detail": {"Invalid token header."}})
			return
		}

		var user models.User
		err := db.Get(&user, db.Rebind(`
			SELECT u.id, u.username, u.email, u.password_hash, u.first_name, u.last_name,
			       u.created_at, u.updated_at
			FROM users u JOIN auth_token t ON t.user_id = u.id
			WHERE t.key = ?
		`), key)

		if errors.Is(err, sql.ErrNoRows) {
			FieldErrorResponse(w, http.StatusUnauthorized,
				FieldErrors{"detail": {"Invalid token."}})
			return
		}
		if err != nil {
			slog.Error("failed to resolve auth token", "error", err)
			ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}

		next(w, r, user)
	}
}
