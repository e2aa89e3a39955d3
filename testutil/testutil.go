// Copyright (c) 2026 Pollroom Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/pollroom/pollroom/auth"
	"github.com/pollroom/pollroom/cliparse"
	"github.com/pollroom/pollroom/db"
	"github.com/pollroom/pollroom/models"
)

// SetupTestDB creates a fresh in-memory sqlite database with the full
// schema. A single pooled connection keeps the in-memory database
// alive and shared for the whole test.
func SetupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	conn, err := sqlx.Connect("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	conn.SetMaxOpenConns(1)

	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:         8080,
		DatabaseURL:  ":memory:",
		DatabaseType: "sqlite",
	}
}

// CreateTestUser inserts a user with an auth token and returns both
func CreateTestUser(t *testing.T, db *sqlx.DB, email, firstName, lastName string) (models.User, string) {
	t.Helper()

	now := time.Now()
	hash, _ := auth.HashPassword("test-password-1")
	user := models.User{
		ID:           uuid.NewString(),
		Username:     auth.DeriveUsername(firstName, lastName),
		Email:        email,
		PasswordHash: hash,
		FirstName:    firstName,
		LastName:     lastName,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err := db.Exec(`
		INSERT INTO users (id, username, email, password_hash, first_name, last_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, user.ID, user.Username, user.Email, user.PasswordHash, user.FirstName, user.LastName, now, now)
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	token, _ := auth.GenerateToken()
	_, err = db.Exec(`INSERT INTO auth_token (key, user_id, created_at) VALUES (?, ?, ?)`, token, user.ID, now)
	if err != nil {
		t.Fatalf("Failed to create test token: %v", err)
	}

	return user, token
}

// CreateTestSet inserts a question set and returns its ID
func CreateTestSet(t *testing.T, db *sqlx.DB, ownerID, name string) string {
	t.Helper()

	setID := uuid.NewString()
	now := time.Now()
	_, err := db.Exec(`
		INSERT INTO question_set (id, name, owner_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, setID, name, ownerID, now, now)
	if err != nil {
		t.Fatalf("Failed to create test set: %v", err)
	}

	return setID
}

// CreateTestQuestion inserts a question and returns its ID
func CreateTestQuestion(t *testing.T, db *sqlx.DB, setID, text string) string {
	t.Helper()

	questionID := uuid.NewString()
	now := time.Now()
	_, err := db.Exec(`
		INSERT INTO question (id, question_text, set_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, questionID, text, setID, now, now)
	if err != nil {
		t.Fatalf("Failed to create test question: %v", err)
	}

	return questionID
}

// CreateTestChoice inserts a choice and returns its ID
func CreateTestChoice(t *testing.T, db *sqlx.DB, questionID, text string) string {
	t.Helper()

	choiceID := uuid.NewString()
	now := time.Now()
	_, err := db.Exec(`
		INSERT INTO choice (id, choice_text, votes, question_id, created_at, updated_at)
		VALUES (?, ?, 0, ?, ?, ?)
	`, choiceID, text, questionID, now, now)
	if err != nil {
		t.Fatalf("Failed to create test choice: %v", err)
	}

	return choiceID
}

// CreateTestRoom inserts a room and returns its ID
func CreateTestRoom(t *testing.T, db *sqlx.DB, ownerID, setID, name string, public bool) string {
	t.Helper()

	roomID := uuid.NewString()
	now := time.Now()
	_, err := db.Exec(`
		INSERT INTO room (id, name, description, owner_id, question_set_id, destroyed, public, created_at, updated_at)
		VALUES (?, ?, '', ?, ?, ?, ?, ?, ?)
	`, roomID, name, ownerID, setID, false, public, now, now)
	if err != nil {
		t.Fatalf("Failed to create test room: %v", err)
	}

	return roomID
}

// AddRoomMember adds a user to a room's member set
func AddRoomMember(t *testing.T, db *sqlx.DB, roomID, userID string) {
	t.Helper()

	_, err := db.Exec(`INSERT INTO room_member (room_id, user_id, created_at) VALUES (?, ?, ?)`,
		roomID, userID, time.Now())
	if err != nil {
		t.Fatalf("Failed to add room member: %v", err)
	}
}

// DestroyTestRoom flips a room's destroyed flag
func DestroyTestRoom(t *testing.T, db *sqlx.DB, roomID string) {
	t.Helper()

	if _, err := db.Exec(`UPDATE room SET destroyed = ? WHERE id = ?`, true, roomID); err != nil {
		t.Fatalf("Failed to destroy room: %v", err)
	}
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AuthHeaders returns the header map carrying an auth token
func AuthHeaders(token string) map[string]string {
	return map[string]string{"Authorization": "Token " + token}
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}

// CountRows returns the row count of a query, for state assertions
func CountRows(t *testing.T, db *sqlx.DB, query string, args ...interface{}) int {
	t.Helper()

	var count int
	if err := db.Get(&count, query, args...); err != nil {
		t.Fatalf("Failed to count rows: %v", err)
	}
	return count
}
