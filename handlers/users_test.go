// Copyright (c) 2026 Pollroom Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pollroom/pollroom/models"
	"github.com/pollroom/pollroom/testutil"
)

func TestRegister(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	cfg := testutil.GetTestConfig()
	handler := NewUserHandler(db, cfg)

	tests := []struct {
		name           string
		requestBody    interface{}
		expectedStatus int
		checkResponse  func(t *testing.T, resp *models.RegisterResponse)
	}{
		{
			name: "valid registration",
			requestBody: models.RegisterRequest{
				Email:     "alice@example.com",
				Password:  "long-enough-pw",
				FirstName: "Alice",
				LastName:  "Smith",
			},
			expectedStatus: http.StatusCreated,
			checkResponse: func(t *testing.T, resp *models.RegisterResponse) {
				if resp.AuthToken == "" {
					t.Error("Expected non-empty auth_token")
				}
				if !strings.HasPrefix(resp.Username, "alicesmith") {
					t.Errorf("Expected derived username with alicesmith prefix, got %q", resp.Username)
				}

				// Verify the token was persisted against the user
				count := testutil.CountRows(t, db,
					`SELECT COUNT(*) FROM auth_token WHERE key = ? AND user_id = ?`,
					resp.AuthToken, resp.ID)
				if count != 1 {
					t.Errorf("Expected 1 persisted token, got %d", count)
				}
			},
		},
		{
			name: "duplicate email",
			requestBody: models.RegisterRequest{
				Email:     "alice@example.com",
				Password:  "long-enough-pw",
				FirstName: "Alice",
				LastName:  "Smith",
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "missing email",
			requestBody: models.RegisterRequest{
				Password:  "long-enough-pw",
				FirstName: "Bob",
				LastName:  "Jones",
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "malformed email",
			requestBody: models.RegisterRequest{
				Email:     "not-an-email",
				Password:  "long-enough-pw",
				FirstName: "Bob",
				LastName:  "Jones",
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "password too short",
			requestBody: models.RegisterRequest{
				Email:     "bob@example.com",
				Password:  "short",
				FirstName: "Bob",
				LastName:  "Jones",
			},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.MakeRequest("POST", "/users", tt.requestBody, nil)
			w := httptest.NewRecorder()

			handler.Register(w, req)

			testutil.AssertStatus(t, w, tt.expectedStatus)

			if tt.checkResponse != nil && w.Code == tt.expectedStatus {
				var resp models.RegisterResponse
				testutil.AssertJSON(t, w, &resp)
				tt.checkResponse(t, &resp)
			}
		})
	}
}

func TestRegisterUsernameCollision(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	cfg := testutil.GetTestConfig()
	handler := NewUserHandler(db, cfg)

	var usernames []string
	for i, email := range []string{"a1@example.com", "a2@example.com"} {
		req := testutil.MakeRequest("POST", "/users", models.RegisterRequest{
			Email:     email,
			Password:  "long-enough-pw",
			FirstName: "Casey",
			LastName:  "Lee",
		}, nil)
		w := httptest.NewRecorder()

		handler.Register(w, req)

		testutil.AssertStatus(t, w, http.StatusCreated)

		var resp models.RegisterResponse
		testutil.AssertJSON(t, w, &resp)
		usernames = append(usernames, resp.Username)

		if i == 1 && usernames[0] == usernames[1] {
			t.Errorf("Expected distinct usernames for same name, both got %q", usernames[0])
		}
	}
}

func TestObtainToken(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	cfg := testutil.GetTestConfig()
	handler := NewUserHandler(db, cfg)

	// Register through the handler so the stored password hash is real
	regReq := testutil.MakeRequest("POST", "/users", models.RegisterRequest{
		Email:     "dana@example.com",
		Password:  "correct-password",
		FirstName: "Dana",
		LastName:  "Reed",
	}, nil)
	regW := httptest.NewRecorder()
	handler.Register(regW, regReq)
	testutil.AssertStatus(t, regW, http.StatusCreated)

	var registered models.RegisterResponse
	testutil.AssertJSON(t, regW, &registered)

	tests := []struct {
		name           string
		email          string
		password       string
		expectedStatus int
	}{
		{
			name:           "login by email",
			email:          "dana@example.com",
			password:       "correct-password",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "login by username",
			email:          registered.Username,
			password:       "correct-password",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "wrong password",
			email:          "dana@example.com",
			password:       "wrong-password",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "unknown user",
			email:          "nobody@example.com",
			password:       "correct-password",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.MakeRequest("POST", "/auth-token", models.ObtainTokenRequest{
				Email:    tt.email,
				Password: tt.password,
			}, nil)
			w := httptest.NewRecorder()

			handler.ObtainToken(w, req)

			testutil.AssertStatus(t, w, tt.expectedStatus)

			if tt.expectedStatus == http.StatusOK {
				var resp models.ObtainTokenResponse
				testutil.AssertJSON(t, w, &resp)
				if resp.AuthToken != registered.AuthToken {
					t.Errorf("Expected registration token to be reused, got a different token")
				}
			}
		})
	}
}

func TestUserListAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	cfg := testutil.GetTestConfig()
	handler := NewUserHandler(db, cfg)

	user, _ := testutil.CreateTestUser(t, db, "eve@example.com", "Eve", "Stone")
	other, _ := testutil.CreateTestUser(t, db, "finn@example.com", "Finn", "Wright")

	t.Run("list returns all users", func(t *testing.T) {
		req := testutil.MakeRequest("GET", "/users", nil, nil)
		w := httptest.NewRecorder()

		handler.List(w, req, user)

		testutil.AssertStatus(t, w, http.StatusOK)

		var resp []models.UserResponse
		testutil.AssertJSON(t, w, &resp)
		if len(resp) != 2 {
			t.Errorf("Expected 2 users, got %d", len(resp))
		}
	})

	t.Run("get returns one user", func(t *testing.T) {
		req := testutil.MakeRequest("GET", "/users/"+other.ID, nil, nil)
		req.SetPathValue("id", other.ID)
		w := httptest.NewRecorder()

		handler.Get(w, req, user)

		testutil.AssertStatus(t, w, http.StatusOK)

		var resp models.UserResponse
		testutil.AssertJSON(t, w, &resp)
		if resp.Email != "finn@example.com" {
			t.Errorf("Expected finn@example.com, got %q", resp.Email)
		}
	})

	t.Run("get unknown user", func(t *testing.T) {
		req := testutil.MakeRequest("GET", "/users/missing", nil, nil)
		req.SetPathValue("id", "missing")
		w := httptest.NewRecorder()

		handler.Get(w, req, user)

		testutil.AssertStatus(t, w, http.StatusNotFound)
	})
}
