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

type QuestionHandler struct {
	db  *sqlx.DB
	cfg cliparse.Config
}

func NewQuestionHandler(db *sqlx.DB, cfg cliparse.Config) *QuestionHandler {
	return &QuestionHandler{db: db, cfg: cfg}
}

// List handles GET /question, optionally filtered by ?set=
func (h *QuestionHandler) List(w http.ResponseWriter, r *http.Request, _ models.User) {
	query := `SELECT id, question_text, set_id, created_at, updated_at FROM question`
	var args []interface{}
	if setID := r.URL.Query().Get("set"); setID != "" {
		query += ` WHERE set_id = ?`
		args = append(args, setID)
	}
	query += ` ORDER BY created_at`

	var questions []models.Question
	if err := h.db.Select(&questions, h.db.Rebind(query), args...); err != nil {
		slog.Error("failed to query questions", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	choicesByQuestion, err := choicesForQuestions(h.db, questions)
	if err != nil {
		slog.Error("failed to query choices", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	out := make([]models.QuestionResponse, 0, len(questions))
	for _, q := range questions {
		out = append(out, models.QuestionResponse{
			ID: q.ID, QuestionText: q.QuestionText, Set: q.SetID,
			Choices: choicesByQuestion[q.ID],
		})
	}

	middleware.JSONResponse(w, http.StatusOK, out)
}

// Create handles POST /question: a question with optional nested
// choices, admitted by the set quota and ownership rules.
func (h *QuestionHandler) Create(w http.ResponseWriter, r *http.Request, user models.User) {
	var req models.CreateQuestionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if errs := middleware.Validate(req); errs != nil {
		middleware.FieldErrorResponse(w, http.StatusBadRequest, errs)
		return
	}

	if req.Set == "" {
		middleware.FieldErrorResponse(w, http.StatusBadRequest,
			middleware.FieldErrors{"set": {"This field is required."}})
		return
	}

	var ownerID string
	err := h.db.Get(&ownerID, h.db.Rebind(`SELECT owner_id FROM question_set WHERE id = ?`), req.Set)
	if errors.Is(err, sql.ErrNoRows) {
		middleware.NotFoundResponse(w)
		return
	}
	if err != nil {
		slog.Error("failed to query question set", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	var questionCount int
	err = h.db.Get(&questionCount, h.db.Rebind(`SELECT COUNT(*) FROM question WHERE set_id = ?`), req.Set)
	if err != nil {
		slog.Error("failed to count questions", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if rerr := rules.QuestionCreate(user.ID, ownerID, questionCount); rerr != nil {
		middleware.RuleErrorResponse(w, rerr)
		return
	}
	for j := range req.Choices {
		if rerr := rules.ChoiceCreate(user.ID, ownerID, j); rerr != nil {
			middleware.RuleErrorResponse(w, rerr)
			return
		}
	}

	questionID := uuid.NewString()
	now := time.Now()

	tx, err := h.db.Beginx()
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	_, err = tx.Exec(h.db.Rebind(`
		INSERT INTO question (id, question_text, set_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`), questionID, req.QuestionText, req.Set, now, now)
	if err != nil {
		slog.Error("failed to insert question", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create question")
		return
	}

	out := models.QuestionResponse{
		ID: questionID, QuestionText: req.QuestionText, Set: req.Set,
		Choices: []models.ChoiceResponse{},
	}

	for _, c := range req.Choices {
		choiceID := uuid.NewString()
		now = now.Add(time.Microsecond)
		_, err = tx.Exec(h.db.Rebind(`
			INSERT INTO choice (id, choice_text, votes, question_id, created_at, updated_at)
			VALUES (?, ?, 0, ?, ?, ?)
		`), choiceID, c.ChoiceText, questionID, now, now)
		if err != nil {
			slog.Error("failed to insert choice", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create question")
			return
		}
		out.Choices = append(out.Choices, models.ChoiceResponse{
			ID: choiceID, ChoiceText: c.ChoiceText, Votes: 0, Question: questionID,
		})
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create question")
		return
	}

	slog.Info("question created", "question_id", questionID, "set_id", req.Set)

	middleware.JSONResponse(w, http.StatusCreated, out)
}

// Get handles GET /question/{id}
func (h *QuestionHandler) Get(w http.ResponseWriter, r *http.Request, _ models.User) {
	q, err := h.fetch(r.PathValue("id"))
	if errors.Is(err, sql.ErrNoRows) {
		middleware.NotFoundResponse(w)
		return
	}
	if err != nil {
		slog.Error("failed to query question", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, q)
}

// Update handles PUT and PATCH /question/{id}; restricted to the
// owner of the question's set
func (h *QuestionHandler) Update(w http.ResponseWriter, r *http.Request, user models.User) {
	questionID := r.PathValue("id")

	question, ownerID, err := h.resolve(questionID)
	if errors.Is(err, sql.ErrNoRows) {
		middleware.NotFoundResponse(w)
		return
	}
	if err != nil {
		slog.Error("failed to query question", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if ownerID != user.ID {
		forbiddenResponse(w)
		return
	}

	var req models.UpdateQuestionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.QuestionText == nil {
		if r.Method == http.MethodPut {
			middleware.FieldErrorResponse(w, http.StatusBadRequest,
				middleware.FieldErrors{"question_text": {"This field is required."}})
			return
		}
		req.QuestionText = &question.QuestionText
	}

	_, err = h.db.Exec(h.db.Rebind(`
		UPDATE question SET question_text = ?, updated_at = ? WHERE id = ?
	`), *req.QuestionText, time.Now(), questionID)
	if err != nil {
		slog.Error("failed to update question", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update question")
		return
	}

	out, err := h.fetch(questionID)
	if err != nil {
		slog.Error("failed to reload question", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, out)
}

// Delete handles DELETE /question/{id}; restricted to the set owner
func (h *QuestionHandler) Delete(w http.ResponseWriter, r *http.Request, user models.User) {
	questionID := r.PathValue("id")

	_, ownerID, err := h.resolve(questionID)
	if errors.Is(err, sql.ErrNoRows) {
		middleware.NotFoundResponse(w)
		return
	}
	if err != nil {
		slog.Error("failed to query question", "error", err)
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

	cascade := []string{
		`DELETE FROM choice_vote WHERE choice_id IN (SELECT id FROM choice WHERE question_id = ?)`,
		`DELETE FROM choice WHERE question_id = ?`,
		`DELETE FROM question WHERE id = ?`,
	}
	for _, stmt := range cascade {
		if _, err := tx.Exec(h.db.Rebind(stmt), questionID); err != nil {
			slog.Error("failed to delete question", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete question")
			return
		}
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete question")
		return
	}

	slog.Info("question deleted", "question_id", questionID)
	w.WriteHeader(http.StatusNoContent)
}

// resolve loads a question row and the owner of its set
func (h *QuestionHandler) resolve(questionID string) (models.Question, string, error) {
	var row struct {
		models.Question
		OwnerID string `db:"owner_id"`
	}
	err := h.db.Get(&row, h.db.Rebind(`
		SELECT q.id, q.question_text, q.set_id, q.created_at, q.updated_at, s.owner_id
		FROM question q JOIN question_set s ON s.id = q.set_id
		WHERE q.id = ?
	`), questionID)
	return row.Question, row.OwnerID, err
}

// fetch loads a question with its nested choices
func (h *QuestionHandler) fetch(questionID string) (models.QuestionResponse, error) {
	var q models.Question
	err := h.db.Get(&q, h.db.Rebind(`
		SELECT id, question_text, set_id, created_at, updated_at FROM question WHERE id = ?
	`), questionID)
	if err != nil {
		return models.QuestionResponse{}, err
	}

	choicesByQuestion, err := choicesForQuestions(h.db, []models.Question{q})
	if err != nil {
		return models.QuestionResponse{}, err
	}

	return models.QuestionResponse{
		ID: q.ID, QuestionText: q.QuestionText, Set: q.SetID,
		Choices: choicesByQuestion[q.ID],
	}, nil
}
