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

	"github.com/pollroom/pollroom/cliparse"
	"github.com/pollroom/pollroom/middleware"
	"github.com/pollroom/pollroom/models"
	"github.com/pollroom/pollroom/rules"
)

type ChoiceHandler struct {
	db  *sqlx.DB
	cfg cliparse.Config
}

func NewChoiceHandler(db *sqlx.DB, cfg cliparse.Config) *ChoiceHandler {
	return &ChoiceHandler{db: db, cfg: cfg}
}

// List handles GET /choice, optionally filtered by ?question=
func (h *ChoiceHandler) List(w http.ResponseWriter, r *http.Request, _ models.User) {
	query := `SELECT id, choice_text, votes, question_id, created_at, updated_at FROM choice`
	var args []interface{}
	if questionID := r.URL.Query().Get("question"); questionID != "" {
		query += ` WHERE question_id = ?`
		args = append(args, questionID)
	}
	query += ` ORDER BY created_at`

	var choices []models.Choice
	if err := h.db.Select(&choices, h.db.Rebind(query), args...); err != nil {
		slog.Error("failed to query choices", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	out := make([]models.ChoiceResponse, 0, len(choices))
	for _, c := range choices {
		out = append(out, models.ChoiceResponse{
			ID: c.ID, ChoiceText: c.ChoiceText, Votes: c.Votes, Question: c.QuestionID,
		})
	}

	middleware.JSONResponse(w, http.StatusOK, out)
}

// Create handles POST /choice, admitted by the per-question quota and
// ownership rules
func (h *ChoiceHandler) Create(w http.ResponseWriter, r *http.Request, user models.User) {
	var req models.CreateChoiceRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if errs := middleware.Validate(req); errs != nil {
		middleware.FieldErrorResponse(w, http.StatusBadRequest, errs)
		return
	}

	if req.Question == "" {
		middleware.FieldErrorResponse(w, http.StatusBadRequest,
			middleware.FieldErrors{"question": {"This field is required."}})
		return
	}

	var ownerID string
	err := h.db.Get(&ownerID, h.db.Rebind(`
		SELECT s.owner_id FROM question q JOIN question_set s ON s.id = q.set_id WHERE q.id = ?
	`), req.Question)
	if errors.Is(err, sql.ErrNoRows) {
		middleware.NotFoundResponse(w)
		return
	}
	if err != nil {
		slog.Error("failed to query question", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	var choiceCount int
	err = h.db.Get(&choiceCount, h.db.Rebind(`SELECT COUNT(*) FROM choice WHERE question_id = ?`), req.Question)
	if err != nil {
		slog.Error("failed to count choices", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if rerr := rules.ChoiceCreate(user.ID, ownerID, choiceCount); rerr != nil {
		middleware.RuleErrorResponse(w, rerr)
		return
	}

	choiceID := uuid.NewString()
	now := time.Now()
	_, err = h.db.Exec(h.db.Rebind(`
		INSERT INTO choice (id, choice_text, votes, question_id, created_at, updated_at)
		VALUES (?, ?, 0, ?, ?, ?)
	`), choiceID, req.ChoiceText, req.Question, now, now)
	if err != nil {
		slog.Error("failed to insert choice", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create choice")
		return
	}

	slog.Info("choice created", "choice_id", choiceID, "question_id", req.Question)

	middleware.JSONResponse(w, http.StatusCreated, models.ChoiceResponse{
		ID: choiceID, ChoiceText: req.ChoiceText, Votes: 0, Question: req.Question,
	})
}

// Get handles GET /choice/{id}
func (h *ChoiceHandler) Get(w http.ResponseWriter, r *http.Request, _ models.User) {
	var c models.Choice
	err := h.db.Get(&c, h.db.Rebind(`
		SELECT id, choice_text, votes, question_id, created_at, updated_at FROM choice WHERE id = ?
	`), r.PathValue("id"))
	if errors.Is(err, sql.ErrNoRows) {
		middleware.NotFoundResponse(w)
		return
	}
	if err != nil {
		slog.Error("failed to query choice", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.ChoiceResponse{
		ID: c.ID, ChoiceText: c.ChoiceText, Votes: c.Votes, Question: c.QuestionID,
	})
}

// Update handles PUT and PATCH /choice/{id}; restricted to the set
// owner. The vote counter is read-only here.
func (h *ChoiceHandler) Update(w http.ResponseWriter, r *http.Request, user models.User) {
	choiceID := r.PathValue("id")

	choice, ownerID, err := h.resolve(choiceID)
	if errors.Is(err, sql.ErrNoRows) {
		middleware.NotFoundResponse(w)
		return
	}
	if err != nil {
		slog.Error("failed to query choice", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if ownerID != user.ID {
		forbiddenResponse(w)
		return
	}

	var req models.UpdateChoiceRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.ChoiceText == nil {
		if r.Method == http.MethodPut {
			middleware.FieldErrorResponse(w, http.StatusBadRequest,
				middleware.FieldErrors{"choice_text": {"This field is required."}})
			return
		}
		req.ChoiceText = &choice.ChoiceText
	}

	_, err = h.db.Exec(h.db.Rebind(`
		UPDATE choice SET choice_text = ?, updated_at = ? WHERE id = ?
	`), *req.ChoiceText, time.Now(), choiceID)
	if err != nil {
		slog.Error("failed to update choice", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update choice")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.ChoiceResponse{
		ID: choiceID, ChoiceText: *req.ChoiceText, Votes: choice.Votes, Question: choice.QuestionID,
	})
}

// Delete handles DELETE /choice/{id}; restricted to the set owner
func (h *ChoiceHandler) Delete(w http.ResponseWriter, r *http.Request, user models.User) {
	choiceID := r.PathValue("id")

	_, ownerID, err := h.resolve(choiceID)
	if errors.Is(err, sql.ErrNoRows) {
		middleware.NotFoundResponse(w)
		return
	}
	if err != nil {
		slog.Error("failed to query choice", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if ownerID != user.ID {
		forbiddenResponse(w)
		return
	}

	tx, err := h.db.Beginx()
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	if _, err := tx.Exec(h.db.Rebind(`DELETE FROM choice_vote WHERE choice_id = ?`), choiceID); err != nil {
		slog.Error("failed to delete choice votes", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete choice")
		return
	}
	if _, err := tx.Exec(h.db.Rebind(`DELETE FROM choice WHERE id = ?`), choiceID); err != nil {
		slog.Error("failed to delete choice", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete choice")
		return
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete choice")
		return
	}

	slog.Info("choice deleted", "choice_id", choiceID)
	w.WriteHeader(http.StatusNoContent)
}

// Vote handles GET and POST /choice/{id}/vote
func (h *ChoiceHandler) Vote(w http.ResponseWriter, r *http.Request, user models.User) {
	result, rerr, err := h.castVote(r.PathValue("id"), user)
	if err != nil {
		slog.Error("failed to cast vote", "error", err, "user_id", user.ID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if rerr != nil {
		if rerr.Kind == rules.NotFound {
			middleware.NotFoundResponse(w)
			return
		}
		middleware.RuleErrorResponse(w, rerr)
		return
	}

	slog.Info("vote cast", "choice_id", result.ID, "user_id", user.ID, "votes", result.Votes)

	middleware.JSONResponse(w, http.StatusCreated, result)
}

// BatchVote handles POST /choice/vote: a JSON array of choice ids.
// Failures are reported per item and never abort the rest of the
// batch.
func (h *ChoiceHandler) BatchVote(w http.ResponseWriter, r *http.Request, user models.User) {
	var choiceIDs []string
	if err := middleware.ParseJSONBody(r, &choiceIDs); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if len(choiceIDs) == 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "choice ids cannot be empty")
		return
	}

	results := make([]models.BatchVoteResult, 0, len(choiceIDs))
	for _, choiceID := range choiceIDs {
		voted, rerr, err := h.castVote(choiceID, user)
		switch {
		case err != nil:
			slog.Error("batch vote item failed", "error", err, "choice_id", choiceID, "user_id", user.ID)
			results = append(results, models.BatchVoteResult{Choice: choiceID, Error: "Database error"})
		case rerr != nil:
			slog.Warn("batch vote item rejected", "reason", rerr.Message, "choice_id", choiceID, "user_id", user.ID)
			results = append(results, models.BatchVoteResult{Choice: choiceID, Error: rerr.Message})
		default:
			results = append(results, models.BatchVoteResult{Choice: choiceID, OK: true, Votes: voted.Votes})
		}
	}

	middleware.JSONResponse(w, http.StatusOK, results)
}

// castVote runs the full voting workflow for one (choice, user) pair:
// resolve, eligibility, idempotence guard, then voter-set insert plus
// an in-place counter increment in one transaction. A *rules.Error is
// a domain rejection, an error a database failure.
func (h *ChoiceHandler) castVote(choiceID string, user models.User) (models.ChoiceResponse, *rules.Error, error) {
	var row struct {
		models.Choice
		SetID string `db:"set_id"`
	}
	err := h.db.Get(&row, h.db.Rebind(`
		SELECT c.id, c.choice_text, c.votes, c.question_id, c.created_at, c.updated_at, q.set_id
		FROM choice c JOIN question q ON q.id = c.question_id
		WHERE c.id = ?
	`), choiceID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ChoiceResponse{}, &rules.Error{Kind: rules.NotFound, Field: "detail", Message: "Not found."}, nil
	}
	if err != nil {
		return models.ChoiceResponse{}, nil, err
	}

	// Eligibility: member of a live room presenting this choice's set
	var isMember bool
	err = h.db.Get(&isMember, h.db.Rebind(`
		SELECT EXISTS(
			SELECT 1 FROM room_member rm
			JOIN room r ON r.id = rm.room_id
			WHERE r.question_set_id = ? AND r.destroyed = ? AND rm.user_id = ?
		)
	`), row.SetID, false, user.ID)
	if err != nil {
		return models.ChoiceResponse{}, nil, err
	}

	var alreadyVoted bool
	err = h.db.Get(&alreadyVoted, h.db.Rebind(`
		SELECT EXISTS(SELECT 1 FROM choice_vote WHERE choice_id = ? AND user_id = ?)
	`), choiceID, user.ID)
	if err != nil {
		return models.ChoiceResponse{}, nil, err
	}

	if rerr := rules.VoteCast(isMember, alreadyVoted); rerr != nil {
		return models.ChoiceResponse{}, rerr, nil
	}

	tx, err := h.db.Beginx()
	if err != nil {
		return models.ChoiceResponse{}, nil, err
	}
	defer tx.Rollback()

	_, err = tx.Exec(h.db.Rebind(`
		INSERT INTO choice_vote (choice_id, user_id, created_at) VALUES (?, ?, ?)
	`), choiceID, user.ID, time.Now())
	if err != nil {
		// Lost the race against a concurrent identical vote
		if isUniqueViolation(err) {
			return models.ChoiceResponse{}, rules.VoteCast(true, true), nil
		}
		return models.ChoiceResponse{}, nil, err
	}

	// Increment in place; a read-modify-write would lose concurrent votes
	_, err = tx.Exec(h.db.Rebind(`
		UPDATE choice SET votes = votes + 1, updated_at = ? WHERE id = ?
	`), time.Now(), choiceID)
	if err != nil {
		return models.ChoiceResponse{}, nil, err
	}

	if err := tx.Commit(); err != nil {
		return models.ChoiceResponse{}, nil, err
	}

	var votes int
	if err := h.db.Get(&votes, h.db.Rebind(`SELECT votes FROM choice WHERE id = ?`), choiceID); err != nil {
		return models.ChoiceResponse{}, nil, err
	}

	return models.ChoiceResponse{
		ID: row.ID, ChoiceText: row.ChoiceText, Votes: votes, Question: row.QuestionID,
	}, nil, nil
}

// resolve loads a choice row and the owner of its question's set
func (h *ChoiceHandler) resolve(choiceID string) (models.Choice, string, error) {
	var row struct {
		models.Choice
		OwnerID string `db:"owner_id"`
	}
	err := h.db.Get(&row, h.db.Rebind(`
		SELECT c.id, c.choice_text, c.votes, c.question_id, c.created_at, c.updated_at, s.owner_id
		FROM choice c
		JOIN question q ON q.id = c.question_id
		JOIN question_set s ON s.id = q.set_id
		WHERE c.id = ?
	`), choiceID)
	return row.Choice, row.OwnerID, err
}
