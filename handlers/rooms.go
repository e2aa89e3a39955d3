// Copyright (c) 2026 Pollroom Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/pollroom/pollroom/cliparse"
	"github.com/pollroom/pollroom/middleware"
	"github.com/pollroom/pollroom/models"
	"github.com/pollroom/pollroom/rules"
)

type RoomHandler struct {
	db  *sqlx.DB
	cfg cliparse.Config
}

func NewRoomHandler(db *sqlx.DB, cfg cliparse.Config) *RoomHandler {
	return &RoomHandler{db: db, cfg: cfg}
}

// roomRow carries a room joined with its owner's username and a live
// member count.
type roomRow struct {
	models.Room
	OwnerName   string `db:"owner_name"`
	MemberCount int    `db:"member_count"`
}

func (row roomRow) summary() models.RoomSummary {
	return models.RoomSummary{
		ID:          row.ID,
		Name:        row.Name,
		Description: row.Description,
		Owner:       row.OwnerName,
		QuestionSet: row.QuestionSetID,
		Destroyed:   row.Destroyed,
		Public:      row.Public,
		Response:    row.MemberCount,
		DaysAgo:     humanize.Time(row.CreatedAt),
		Latitude:    row.Latitude,
		Longitude:   row.Longitude,
	}
}

const roomSelect = `
	SELECT r.id, r.name, r.description, r.owner_id, r.question_set_id,
	       r.destroyed, r.public, r.latitude, r.longitude, r.created_at, r.updated_at,
	       u.username AS owner_name,
	       (SELECT COUNT(*) FROM room_member rm WHERE rm.room_id = r.id) AS member_count
	FROM room r
	JOIN users u ON u.id = r.owner_id`

// List handles GET /room. Rooms the requester owns or already joined
// are excluded; ?public=, ?destroyed= and ?question_set= narrow the
// rest.
func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request, user models.User) {
	query := roomSelect + `
	WHERE r.owner_id <> ?
	  AND NOT EXISTS (SELECT 1 FROM room_member rm WHERE rm.room_id = r.id AND rm.user_id = ?)`
	args := []interface{}{user.ID, user.ID}

	for _, f := range []struct{ param, column string }{
		{"public", "r.public"},
		{"destroyed", "r.destroyed"},
	} {
		raw := r.URL.Query().Get(f.param)
		if raw == "" {
			continue
		}
		switch strings.ToLower(raw) {
		case "true":
			query += ` AND ` + f.column + ` = ?`
			args = append(args, true)
		case "false":
			query += ` AND ` + f.column + ` = ?`
			args = append(args, false)
		default:
			middleware.FieldErrorResponse(w, http.StatusBadRequest,
				middleware.FieldErrors{f.param: {"Must be a valid boolean."}})
			return
		}
	}
	if setID := r.URL.Query().Get("question_set"); setID != "" {
		query += ` AND r.question_set_id = ?`
		args = append(args, setID)
	}
	query += ` ORDER BY r.created_at DESC`

	var rows []roomRow
	if err := h.db.Select(&rows, h.db.Rebind(query), args...); err != nil {
		slog.Error("failed to query rooms", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	out := make([]models.RoomSummary, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.summary())
	}

	middleware.JSONResponse(w, http.StatusOK, out)
}

// Create handles POST /room
func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request, user models.User) {
	var req models.CreateRoomRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if errs := middleware.Validate(req); errs != nil {
		middleware.FieldErrorResponse(w, http.StatusBadRequest, errs)
		return
	}

	var setExists bool
	err := h.db.Get(&setExists, h.db.Rebind(`SELECT EXISTS(SELECT 1 FROM question_set WHERE id = ?)`), req.QuestionSet)
	if err != nil {
		slog.Error("failed to query question set", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if !setExists {
		middleware.FieldErrorResponse(w, http.StatusBadRequest,
			middleware.FieldErrors{"question_set": {"Invalid question set."}})
		return
	}

	var nameTaken bool
	err = h.db.Get(&nameTaken, h.db.Rebind(`
		SELECT EXISTS(SELECT 1 FROM room WHERE name = ? AND owner_id = ?)
	`), req.Name, user.ID)
	if err != nil {
		slog.Error("failed to query rooms", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if rerr := rules.RoomCreate(nameTaken); rerr != nil {
		middleware.RuleErrorResponse(w, rerr)
		return
	}

	roomID := uuid.NewString()
	now := time.Now()
	_, err = h.db.Exec(h.db.Rebind(`
		INSERT INTO room (id, name, description, owner_id, question_set_id, destroyed, public,
		                  latitude, longitude, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), roomID, req.Name, req.Description, user.ID, req.QuestionSet,
		false, *req.Public, req.Latitude, req.Longitude, now, now)
	if err != nil {
		// UNIQUE(name, owner_id) backstops a concurrent create of the same name
		if isUniqueViolation(err) {
			middleware.RuleErrorResponse(w, rules.RoomCreate(true))
			return
		}
		slog.Error("failed to insert room", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create room")
		return
	}

	slog.Info("room created", "room_id", roomID, "owner_id", user.ID, "public", *req.Public)

	middleware.JSONResponse(w, http.StatusCreated, models.RoomSummary{
		ID:          roomID,
		Name:        req.Name,
		Description: req.Description,
		Owner:       user.Username,
		QuestionSet: req.QuestionSet,
		Public:      *req.Public,
		Response:    0,
		DaysAgo:     humanize.Time(now),
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
	})
}

// Get handles GET /room/{id}, returning the room together with its
// full question set tree
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request, _ models.User) {
	detail, err := h.roomDetail(r.PathValue("id"))
	if errors.Is(err, sql.ErrNoRows) {
		middleware.NotFoundResponse(w)
		return
	}
	if err != nil {
		slog.Error("failed to query room", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, detail)
}

// Update handles PUT and PATCH /room/{id}; owner only. Flipping a room
// private re-checks the membership cap against current members.
func (h *RoomHandler) Update(w http.ResponseWriter, r *http.Request, user models.User) {
	roomID := r.PathValue("id")

	var row roomRow
	err := h.db.Get(&row, h.db.Rebind(roomSelect+` WHERE r.id = ?`), roomID)
	if errors.Is(err, sql.ErrNoRows) {
		middleware.NotFoundResponse(w)
		return
	}
	if err != nil {
		slog.Error("failed to query room", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if row.OwnerID != user.ID {
		forbiddenResponse(w)
		return
	}

	var req models.UpdateRoomRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if errs := middleware.Validate(req); errs != nil {
		middleware.FieldErrorResponse(w, http.StatusBadRequest, errs)
		return
	}

	if req.Name == nil {
		if r.Method == http.MethodPut {
			middleware.FieldErrorResponse(w, http.StatusBadRequest,
				middleware.FieldErrors{"name": {"This field is required."}})
			return
		}
		req.Name = &row.Name
	}
	if req.Description == nil {
		req.Description = &row.Description
	}
	if req.Public == nil {
		req.Public = &row.Public
	}
	if req.Destroyed == nil {
		req.Destroyed = &row.Destroyed
	}
	if req.Latitude == nil {
		req.Latitude = row.Latitude
	}
	if req.Longitude == nil {
		req.Longitude = row.Longitude
	}

	if *req.Name != row.Name {
		var nameTaken bool
		err = h.db.Get(&nameTaken, h.db.Rebind(`
			SELECT EXISTS(SELECT 1 FROM room WHERE name = ? AND owner_id = ? AND id <> ?)
		`), *req.Name, user.ID, roomID)
		if err != nil {
			slog.Error("failed to query rooms", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		if rerr := rules.RoomCreate(nameTaken); rerr != nil {
			middleware.RuleErrorResponse(w, rerr)
			return
		}
	}

	if row.Public && !*req.Public {
		memberIDs, err := h.memberIDs(roomID)
		if err != nil {
			slog.Error("failed to query room members", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		if rerr := rules.RoomMembership(row.OwnerID, memberIDs, false); rerr != nil {
			middleware.RuleErrorResponse(w, rerr)
			return
		}
	}

	_, err = h.db.Exec(h.db.Rebind(`
		UPDATE room SET name = ?, description = ?, public = ?, destroyed = ?,
		                latitude = ?, longitude = ?, updated_at = ?
		WHERE id = ?
	`), *req.Name, *req.Description, *req.Public, *req.Destroyed,
		req.Latitude, req.Longitude, time.Now(), roomID)
	if err != nil {
		if isUniqueViolation(err) {
			middleware.RuleErrorResponse(w, rules.RoomCreate(true))
			return
		}
		slog.Error("failed to update room", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update room")
		return
	}

	row.Name = *req.Name
	row.Description = *req.Description
	row.Public = *req.Public
	row.Destroyed = *req.Destroyed
	row.Latitude = req.Latitude
	row.Longitude = req.Longitude

	middleware.JSONResponse(w, http.StatusOK, row.summary())
}

// Delete handles DELETE /room/{id}; owner only
func (h *RoomHandler) Delete(w http.ResponseWriter, r *http.Request, user models.User) {
	roomID := r.PathValue("id")

	var ownerID string
	err := h.db.Get(&ownerID, h.db.Rebind(`SELECT owner_id FROM room WHERE id = ?`), roomID)
	if errors.Is(err, sql.ErrNoRows) {
		middleware.NotFoundResponse(w)
		return
	}
	if err != nil {
		slog.Error("failed to query room", "error", err)
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

	if _, err := tx.Exec(h.db.Rebind(`DELETE FROM room_member WHERE room_id = ?`), roomID); err != nil {
		slog.Error("failed to delete room members", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete room")
		return
	}
	if _, err := tx.Exec(h.db.Rebind(`DELETE FROM room WHERE id = ?`), roomID); err != nil {
		slog.Error("failed to delete room", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete room")
		return
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete room")
		return
	}

	slog.Info("room deleted", "room_id", roomID)
	w.WriteHeader(http.StatusNoContent)
}

// Join handles GET /room/{id}/user, admitting the requester into the
// room and returning the room with its question set
func (h *RoomHandler) Join(w http.ResponseWriter, r *http.Request, user models.User) {
	roomID := r.PathValue("id")

	var row roomRow
	err := h.db.Get(&row, h.db.Rebind(roomSelect+` WHERE r.id = ?`), roomID)
	if errors.Is(err, sql.ErrNoRows) {
		middleware.NotFoundResponse(w)
		return
	}
	if err != nil {
		slog.Error("failed to query room", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	memberIDs, err := h.memberIDs(roomID)
	if err != nil {
		slog.Error("failed to query room members", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	alreadyMember := false
	for _, id := range memberIDs {
		if id == user.ID {
			alreadyMember = true
			break
		}
	}

	if rerr := rules.RoomJoin(row.Destroyed, alreadyMember); rerr != nil {
		middleware.RuleErrorResponse(w, rerr)
		return
	}
	if rerr := rules.RoomMembership(row.OwnerID, append(memberIDs, user.ID), row.Public); rerr != nil {
		middleware.RuleErrorResponse(w, rerr)
		return
	}

	_, err = h.db.Exec(h.db.Rebind(`
		INSERT INTO room_member (room_id, user_id, created_at) VALUES (?, ?, ?)
	`), roomID, user.ID, time.Now())
	if err != nil {
		// Lost the race against a concurrent join by the same user
		if isUniqueViolation(err) {
			middleware.RuleErrorResponse(w, rules.RoomJoin(false, true))
			return
		}
		slog.Error("failed to insert room member", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to join room")
		return
	}

	slog.Info("user joined room", "room_id", roomID, "user_id", user.ID)

	detail, err := h.roomDetail(roomID)
	if err != nil {
		slog.Error("failed to query room", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, detail)
}

func (h *RoomHandler) memberIDs(roomID string) ([]string, error) {
	var ids []string
	err := h.db.Select(&ids, h.db.Rebind(`SELECT user_id FROM room_member WHERE room_id = ?`), roomID)
	return ids, err
}

func (h *RoomHandler) roomDetail(roomID string) (models.RoomDetail, error) {
	var row roomRow
	err := h.db.Get(&row, h.db.Rebind(roomSelect+` WHERE r.id = ?`), roomID)
	if err != nil {
		return models.RoomDetail{}, err
	}

	setDetail, _, err := fetchSetDetail(h.db, row.QuestionSetID)
	if err != nil {
		return models.RoomDetail{}, err
	}

	return models.RoomDetail{
		ID:                row.ID,
		Name:              row.Name,
		Description:       row.Description,
		Owner:             row.OwnerName,
		Destroyed:         row.Destroyed,
		Public:            row.Public,
		Response:          row.MemberCount,
		DaysAgo:           humanize.Time(row.CreatedAt),
		QuestionSetDetail: setDetail,
	}, nil
}
