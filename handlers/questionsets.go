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

type QuestionSetHandler struct {
	db  *sqlx.DB
	cfg cliparse.Config
}

func NewQuestionSetHandler(db *sqlx.DB, cfg cliparse.Config) *QuestionSetHandler {
	return &QuestionSetHandler{db: db, cfg: cfg}
}

// Create handles POST /question-set. The whole set/question/choice
// tree is validated first, then persisted in one transaction.
func (h *QuestionSetHandler) Create(w http.ResponseWriter, r *http.Request, user models.User) {
	var req models.CreateSetRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if errs := middleware.Validate(req); errs != nil {
		middleware.FieldErrorResponse(w, http.StatusBadRequest, errs)
		return
	}

	// Whole-tree quota check before anything is written
	for i, q := range req.Questions {
		if err := rules.QuestionCreate(user.ID, user.ID, i); err != nil {
			middleware.RuleErrorResponse(w, err)
			return
		}
		for j := range q.Choices {
			if err := rules.ChoiceCreate(user.ID, user.ID, j); err != nil {
				middleware.RuleErrorResponse(w, err)
				return
			}
		}
	}

	duplicate, err := h.nameTaken(req.Name, user.ID, "")
	if err != nil {
		slog.Error("failed to check set name", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if rerr := rules.SetCreate(duplicate, h.cfg.AllowDuplicateSetNames); rerr != nil {
		middleware.RuleErrorResponse(w, rerr)
		return
	}

	setID := uuid.NewString()
	now := time.Now()

	tx, err := h.db.Beginx()
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	_, err = tx.Exec(h.db.Rebind(`
		INSERT INTO question_set (id, name, owner_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`), setID, req.Name, user.ID, now, now)
	if err != nil {
		slog.Error("failed to insert question set", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create question set")
		return
	}

	detail := models.SetDetail{
		SetSummary: models.SetSummary{ID: setID, Name: req.Name, Owner: user.Username},
		Questions:  []models.QuestionResponse{},
	}

	for _, q := range req.Questions {
		questionID := uuid.NewString()
		// Children get staggered timestamps to preserve insertion order
		now = now.Add(time.Microsecond)
		_, err = tx.Exec(h.db.Rebind(`
			INSERT INTO question (id, question_text, set_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
		`), questionID, q.QuestionText, setID, now, now)
		if err != nil {
			slog.Error("failed to insert question", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create question set")
			return
		}

		qr := models.QuestionResponse{
			ID: questionID, QuestionText: q.QuestionText, Set: setID,
			Choices: []models.ChoiceResponse{},
		}

		for _, c := range q.Choices {
			choiceID := uuid.NewString()
			now = now.Add(time.Microsecond)
			_, err = tx.Exec(h.db.Rebind(`
				INSERT INTO choice (id, choice_text, votes, question_id, created_at, updated_at)
				VALUES (?, ?, 0, ?, ?, ?)
			`), choiceID, c.ChoiceText, questionID, now, now)
			if err != nil {
				slog.Error("failed to insert choice", "error", err)
				middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create question set")
				return
			}
			qr.Choices = append(qr.Choices, models.ChoiceResponse{
				ID: choiceID, ChoiceText: c.ChoiceText, Votes: 0, Question: questionID,
			})
		}

		detail.Questions = append(detail.Questions, qr)
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create question set")
		return
	}

	slog.Info("question set created", "set_id", setID, "owner", user.Username,
		"questions", len(req.Questions))

	middleware.JSONResponse(w, http.StatusCreated, detail)
}

// List handles GET /question-set: only the requester's own sets
func (h *QuestionSetHandler) List(w http.ResponseWriter, r *http.Request, user models.User) {
	var sets []models.QuestionSet
	err := h.db.Select(&sets, h.db.Rebind(`
		SELECT id, name, owner_id, created_at, updated_at
		FROM question_set WHERE owner_id = ? ORDER BY created_at
	`), user.ID)
	if err != nil {
		slog.Error("failed to query question sets", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	out := make([]models.SetSummary, 0, len(sets))
	for _, s := range sets {
		out = append(out, models.SetSummary{ID: s.ID, Name: s.Name, Owner: user.Username})
	}

	middleware.JSONResponse(w, http.StatusOK, out)
}

// Get handles GET /question-set/{id}
func (h *QuestionSetHandler) Get(w http.ResponseWriter, r *http.Request, _ models.User) {
	detail, _, err := fetchSetDetail(h.db, r.PathValue("id"))
	if errors.Is(err, sql.ErrNoRows) {
		middleware.NotFoundResponse(w)
		return
	}
	if err != nil {
		slog.Error("failed to query question set", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, detail)
}

// Update handles PUT and PATCH /question-set/{id}; only the owner may
// rename a set
func (h *QuestionSetHandler) Update(w http.ResponseWriter, r *http.Request, user models.User) {
	setID := r.PathValue("id")

	var set models.QuestionSet
	err := h.db.Get(&set, h.db.Rebind(`
		SELECT id, name, owner_id, created_at, updated_at FROM question_set WHERE id = ?
	`), setID)
	if errors.Is(err, sql.ErrNoRows) {
		middleware.NotFoundResponse(w)
		return
	}
	if err != nil {
		slog.Error("failed to query question set", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if set.OwnerID != user.ID {
		forbiddenResponse(w)
		return
	}

	var req models.UpdateSetRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if errs := middleware.Validate(req); errs != nil {
		middleware.FieldErrorResponse(w, http.StatusBadRequest, errs)
		return
	}

	// PUT replaces, PATCH may omit fields
	if req.Name == nil {
		if r.Method == http.MethodPut {
			middleware.FieldErrorResponse(w, http.StatusBadRequest,
				middleware.FieldErrors{"name": {"This field is required."}})
			return
		}
		req.Name = &set.Name
	}

	if *req.Name != set.Name {
		duplicate, err := h.nameTaken(*req.Name, user.ID, setID)
		if err != nil {
			slog.Error("failed to check set name", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		if rerr := rules.SetCreate(duplicate, h.cfg.AllowDuplicateSetNames); rerr != nil {
			middleware.RuleErrorResponse(w, rerr)
			return
		}
	}

	_, err = h.db.Exec(h.db.Rebind(`
		UPDATE question_set SET name = ?, updated_at = ? WHERE id = ?
	`), *req.Name, time.Now(), setID)
	if err != nil {
		slog.Error("failed to update question set", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update question set")
		return
	}

	detail, _, err := fetchSetDetail(h.db, setID)
	if err != nil {
		slog.Error("failed to reload question set", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, detail)
}

// Delete handles DELETE /question-set/{id}. The whole tree under the
// set, including rooms that present it, goes in one transaction.
func (h *QuestionSetHandler) Delete(w http.ResponseWriter, r *http.Request, user models.User) {
	setID := r.PathValue("id")

	var ownerID string
	err := h.db.Get(&ownerID, h.db.Rebind(`SELECT owner_id FROM question_set WHERE id = ?`), setID)
	if errors.Is(err, sql.ErrNoRows) {
		middleware.NotFoundResponse(w)
		return
	}
	if err != nil {
		slog.Error("failed to query question set", "error", err)
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
		`DELETE FROM choice_vote WHERE choice_id IN (
			SELECT id FROM choice WHERE question_id IN (SELECT id FROM question WHERE set_id = ?))`,
		`DELETE FROM choice WHERE question_id IN (SELECT id FROM question WHERE set_id = ?)`,
		`DELETE FROM question WHERE set_id = ?`,
		`DELETE FROM room_member WHERE room_id IN (SELECT id FROM room WHERE question_set_id = ?)`,
		`DELETE FROM room WHERE question_set_id = ?`,
		`DELETE FROM question_set WHERE id = ?`,
	}
	for _, stmt := range cascade {
		if _, err := tx.Exec(h.db.Rebind(stmt), setID); err != nil {
			slog.Error("failed to delete question set", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete question set")
			return
		}
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete question set")
		return
	}

	slog.Info("question set deleted", "set_id", setID)
	w.WriteHeader(http.StatusNoContent)
}

// Valid handles GET /question-set/{id}/valid: every question in the
// set needs at least two choices.
func (h *QuestionSetHandler) Valid(w http.ResponseWriter, r *http.Request, _ models.User) {
	setID := r.PathValue("id")

	var exists bool
	err := h.db.Get(&exists, h.db.Rebind(`SELECT EXISTS(SELECT 1 FROM question_set WHERE id = ?)`), setID)
	if err != nil {
		slog.Error("failed to query question set", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if !exists {
		middleware.NotFoundResponse(w)
		return
	}

	type questionCount struct {
		ID      string `db:"id"`
		Choices int    `db:"choices"`
	}
	var counts []questionCount
	err = h.db.Select(&counts, h.db.Rebind(`
		SELECT q.id AS id,
		       (SELECT COUNT(*) FROM choice c WHERE c.question_id = q.id) AS choices
		FROM question q
		WHERE q.set_id = ?
		ORDER BY q.created_at
	`), setID)
	if err != nil {
		slog.Error("failed to count choices", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	var short []string
	for _, qc := range counts {
		if qc.Choices < rules.MinChoicesForValid {
			short = append(short, qc.ID)
		}
	}

	if len(short) > 0 {
		middleware.JSONResponse(w, http.StatusBadRequest, models.InvalidResponse{
			Valid:     false,
			Questions: short,
		})
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.ValidResponse{Valid: true})
}

func (h *QuestionSetHandler) nameTaken(name, ownerID, excludeID string) (bool, error) {
	var taken bool
	err := h.db.Get(&taken, h.db.Rebind(`
		SELECT EXISTS(SELECT 1 FROM question_set WHERE name = ? AND owner_id = ? AND id <> ?)
	`), name, ownerID, excludeID)
	return taken, err
}

// fetchSetDetail loads a set with its question/choice tree and the
// owner username. Returns sql.ErrNoRows when the set is absent.
func fetchSetDetail(db *sqlx.DB, setID string) (models.SetDetail, string, error) {
	var row struct {
		models.QuestionSet
		OwnerName string `db:"owner_name"`
	}
	err := db.Get(&row, db.Rebind(`
		SELECT s.id, s.name, s.owner_id, s.created_at, s.updated_at, u.username AS owner_name
		FROM question_set s JOIN users u ON u.id = s.owner_id
		WHERE s.id = ?
	`), setID)
	if err != nil {
		return models.SetDetail{}, "", err
	}

	var questions []models.Question
	err = db.Select(&questions, db.Rebind(`
		SELECT id, question_text, set_id, created_at, updated_at
		FROM question WHERE set_id = ? ORDER BY created_at
	`), setID)
	if err != nil {
		return models.SetDetail{}, "", err
	}

	detail := models.SetDetail{
		SetSummary: models.SetSummary{ID: row.ID, Name: row.Name, Owner: row.OwnerName},
		Questions:  []models.QuestionResponse{},
	}

	choicesByQuestion, err := choicesForQuestions(db, questions)
	if err != nil {
		return models.SetDetail{}, "", err
	}

	for _, q := range questions {
		detail.Questions = append(detail.Questions, models.QuestionResponse{
			ID:           q.ID,
			QuestionText: q.QuestionText,
			Set:          q.SetID,
			Choices:      choicesByQuestion[q.ID],
		})
	}

	return detail, row.OwnerID, nil
}

// choicesForQuestions loads the choices of all given questions in one
// query, grouped by question id.
func choicesForQuestions(db *sqlx.DB, questions []models.Question) (map[string][]models.ChoiceResponse, error) {
	out := make(map[string][]models.ChoiceResponse, len(questions))
	if len(questions) == 0 {
		return out, nil
	}

	ids := make([]string, 0, len(questions))
	for _, q := range questions {
		ids = append(ids, q.ID)
		out[q.ID] = []models.ChoiceResponse{}
	}

	query, args, err := sqlx.In(`
		SELECT id, choice_text, votes, question_id, created_at, updated_at
		FROM choice WHERE question_id IN (?) ORDER BY created_at
	`, ids)
	if err != nil {
		return nil, err
	}

	var choices []models.Choice
	if err := db.Select(&choices, db.Rebind(query), args...); err != nil {
		return nil, err
	}

	for _, c := range choices {
		out[c.QuestionID] = append(out[c.QuestionID], models.ChoiceResponse{
			ID: c.ID, ChoiceText: c.ChoiceText, Votes: c.Votes, Question: c.QuestionID,
		})
	}

	return out, nil
}
