// Copyright (c) 2026 Pollroom Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/pollroom/pollroom/auth"
	"github.com/pollroom/pollroom/cliparse"
	"github.com/pollroom/pollroom/middleware"
	"github.com/pollroom/pollroom/models"
)

type UserHandler struct {
	db  *sqlx.DB
	cfg cliparse.Config
}

func NewUserHandler(db *sqlx.DB, cfg cliparse.Config) *UserHandler {
	return &UserHandler{db: db, cfg: cfg}
}

// Register handles POST /users. The response carries the auth token
// issued together with the account.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if errs := middleware.Validate(req); errs != nil {
		middleware.FieldErrorResponse(w, http.StatusBadRequest, errs)
		return
	}

	var emailTaken bool
	err := h.db.Get(&emailTaken, h.db.Rebind(`
		SELECT EXISTS(SELECT 1 FROM users WHERE email = ?)
	`), req.Email)
	if err != nil {
		slog.Error("failed to check email", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if emailTaken {
		middleware.FieldErrorResponse(w, http.StatusBadRequest,
			middleware.FieldErrors{"email": {"A user with that email already exists."}})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	username, err := h.uniqueUsername(req.FirstName, req.LastName)
	if err != nil {
		slog.Error("failed to derive username", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	userID := uuid.NewString()
	token, err := auth.GenerateToken()
	if err != nil {
		slog.Error("failed to generate token", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create user")
		return
	}
	now := time.Now()

	// User and token are created together, as registration issues the token
	tx, err := h.db.Beginx()
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	_, err = tx.Exec(h.db.Rebind(`
		INSERT INTO users (id, username, email, password_hash, first_name, last_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`), userID, username, req.Email, hash, req.FirstName, req.LastName, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			middleware.FieldErrorResponse(w, http.StatusBadRequest,
				middleware.FieldErrors{"email": {"A user with that email already exists."}})
			return
		}
		slog.Error("failed to insert user", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	_, err = tx.Exec(h.db.Rebind(`
		INSERT INTO auth_token (key, user_id, created_at) VALUES (?, ?, ?)
	`), token, userID, now)
	if err != nil {
		slog.Error("failed to insert auth token", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	slog.Info("user registered", "user_id", userID, "username", username)

	middleware.JSONResponse(w, http.StatusCreated, models.RegisterResponse{
		UserResponse: models.UserResponse{
			ID:        userID,
			Username:  username,
			Email:     req.Email,
			FirstName: req.FirstName,
			LastName:  req.LastName,
		},
		AuthToken: token,
	})
}

// List handles GET /users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request, _ models.User) {
	var users []models.User
	err := h.db.Select(&users, `
		SELECT id, username, email, password_hash, first_name, last_name, created_at, updated_at
		FROM users ORDER BY created_at
	`)
	if err != nil {
		slog.Error("failed to query users", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	out := make([]models.UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, models.UserResponse{
			ID: u.ID, Username: u.Username, Email: u.Email, FirstName: u.FirstName, LastName: u.LastName,
		})
	}

	middleware.JSONResponse(w, http.StatusOK, out)
}

// Get handles GET /users/{id}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request, _ models.User) {
	userID := r.PathValue("id")

	var u models.User
	err := h.db.Get(&u, h.db.Rebind(`
		SELECT id, username, email, password_hash, first_name, last_name, created_at, updated_at
		FROM users WHERE id = ?
	`), userID)
	if errors.Is(err, sql.ErrNoRows) {
		middleware.NotFoundResponse(w)
		return
	}
	if err != nil {
		slog.Error("failed to query user", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.UserResponse{
		ID: u.ID, Username: u.Username, Email: u.Email, FirstName: u.FirstName, LastName: u.LastName,
	})
}

// ObtainToken handles POST /auth-token. The email field accepts an
// email address or a username.
func (h *UserHandler) ObtainToken(w http.ResponseWriter, r *http.Request) {
	var req models.ObtainTokenRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if errs := middleware.Validate(req); errs != nil {
		middleware.FieldErrorResponse(w, http.StatusBadRequest, errs)
		return
	}

	lookup := `SELECT id, username, email, password_hash, first_name, last_name, created_at, updated_at
		FROM users WHERE username = ?`
	if auth.IsEmail(req.Email) {
		lookup = `SELECT id, username, email, password_hash, first_name, last_name, created_at, updated_at
		FROM users WHERE email = ?`
	}

	var u models.User
	err := h.db.Get(&u, h.db.Rebind(lookup), req.Email)
	if errors.Is(err, sql.ErrNoRows) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Unable to log in with provided credentials.")
		return
	}
	if err != nil {
		slog.Error("failed to query user", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if !auth.VerifyPassword(req.Password, u.PasswordHash) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Unable to log in with provided credentials.")
		return
	}

	token, err := h.getOrCreateToken(u.ID)
	if err != nil {
		slog.Error("failed to issue token", "error", err, "user_id", u.ID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}

	slog.Info("token issued", "user_id", u.ID)

	middleware.JSONResponse(w, http.StatusOK, models.ObtainTokenResponse{
		AuthToken: token,
		Email:     u.Email,
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	})
}

// uniqueUsername derives a username and retries while it is taken
func (h *UserHandler) uniqueUsername(firstName, lastName string) (string, error) {
	username := auth.DeriveUsername(firstName, lastName)
	for {
		var taken bool
		err := h.db.Get(&taken, h.db.Rebind(`
			SELECT EXISTS(SELECT 1 FROM users WHERE username = ?)
		`), username)
		if err != nil {
			return "", err
		}
		if !taken {
			return username, nil
		}
		username = auth.ExtendUsername(username)
	}
}

func (h *UserHandler) getOrCreateToken(userID string) (string, error) {
	var key string
	err := h.db.Get(&key, h.db.Rebind(`SELECT key FROM auth_token WHERE user_id = ?`), userID)
	if err == nil {
		return key, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}

	key, err = auth.GenerateToken()
	if err != nil {
		return "", err
	}
	_, err = h.db.Exec(h.db.Rebind(`
		INSERT INTO auth_token (key, user_id, created_at) VALUES (?, ?, ?)
	`), key, userID, time.Now())
	if err != nil {
		return "", err
	}
	return key, nil
}
