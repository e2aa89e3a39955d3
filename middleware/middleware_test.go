// Copyright (c) 2026 Pollroom Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pollroom/pollroom/models"
	"github.com/pollroom/pollroom/rules"
	"github.com/pollroom/pollroom/testutil"
)

func TestWithLogging(t *testing.T) {
	called := false
	handler := WithLogging(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusTeapot)
	})

	req := httptest.NewRequest("GET", "/anything", nil)
	w := httptest.NewRecorder()

	handler(w, req)

	if !called {
		t.Error("Expected wrapped handler to be called")
	}
	if w.Code != http.StatusTeapot {
		t.Errorf("Expected status passthrough, got %d", w.Code)
	}
}

func TestErrorEnvelopes(t *testing.T) {
	t.Run("non-field error", func(t *testing.T) {
		w := httptest.NewRecorder()
		ErrorResponse(w, http.StatusBadRequest, "something broke")

		var body map[string][]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("Failed to decode body: %v", err)
		}
		if len(body["non_field_errors"]) != 1 || body["non_field_errors"][0] != "something broke" {
			t.Errorf("Expected non_field_errors envelope, got %v", body)
		}
	})

	t.Run("not found", func(t *testing.T) {
		w := httptest.NewRecorder()
		NotFoundResponse(w)

		if w.Code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d", w.Code)
		}

		var body map[string][]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("Failed to decode body: %v", err)
		}
		if len(body["detail"]) != 1 || body["detail"][0] != "Not found." {
			t.Errorf("Expected detail envelope, got %v", body)
		}
	})

	t.Run("rule error carries taxonomy status", func(t *testing.T) {
		w := httptest.NewRecorder()
		RuleErrorResponse(w, &rules.Error{
			Kind:    rules.Conflict,
			Field:   "user",
			Message: "Already exists.",
		})

		if w.Code != http.StatusConflict {
			t.Errorf("Expected 409, got %d", w.Code)
		}

		var body map[string][]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("Failed to decode body: %v", err)
		}
		if len(body["user"]) != 1 || body["user"][0] != "Already exists." {
			t.Errorf("Expected field-keyed envelope, got %v", body)
		}
	})
}

func TestValidate(t *testing.T) {
	t.Run("valid struct", func(t *testing.T) {
		errs := Validate(models.RegisterRequest{
			Email:     "ok@example.com",
			Password:  "long-enough-pw",
			FirstName: "Okay",
			LastName:  "Person",
		})
		if errs != nil {
			t.Errorf("Expected no errors, got %v", errs)
		}
	})

	t.Run("errors keyed by json field name", func(t *testing.T) {
		errs := Validate(models.RegisterRequest{
			Email:    "not-an-email",
			Password: "short",
		})
		if errs == nil {
			t.Fatal("Expected validation errors")
		}
		for _, field := range []string{"email", "password", "first_name", "last_name"} {
			if len(errs[field]) == 0 {
				t.Errorf("Expected an error under %q, got %v", field, errs)
			}
		}
	})

	t.Run("nested dive validation", func(t *testing.T) {
		errs := Validate(models.CreateSetRequest{
			Name: "Set",
			Questions: []models.QuestionInput{
				{QuestionText: ""},
			},
		})
		if errs == nil {
			t.Fatal("Expected nested validation error")
		}
	})
}

func TestRequireAuth(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	user, token := testutil.CreateTestUser(t, db, "auth@example.com", "Auth", "User")

	var gotUser models.User
	handler := RequireAuth(db, func(w http.ResponseWriter, r *http.Request, u models.User) {
		gotUser = u
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name           string
		header         string
		expectedStatus int
		expectedDetail string
	}{
		{
			name:           "valid token",
			header:         "Token " + token,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "missing header",
			header:         "",
			expectedStatus: http.StatusUnauthorized,
			expectedDetail: "Authentication credentials were not provided.",
		},
		{
			name:           "wrong scheme",
			header:         "Bearer " + token,
			expectedStatus: http.StatusUnauthorized,
			expectedDetail: "Invalid token header.",
		},
		{
			name:           "unknown token",
			header:         "Token deadbeefdeadbeefdeadbeefdeadbeefdeadbeef",
			expectedStatus: http.StatusUnauthorized,
			expectedDetail: "Invalid token.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/users", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			handler(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d. Body: %s", tt.expectedStatus, w.Code, w.Body.String())
			}

			if tt.expectedStatus == http.StatusOK && gotUser.ID != user.ID {
				t.Errorf("Expected resolved user %s, got %s", user.ID, gotUser.ID)
			}

			if tt.expectedDetail != "" {
				var body map[string][]string
				if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
					t.Fatalf("Failed to decode body: %v", err)
				}
				if len(body["detail"]) != 1 || body["detail"][0] != tt.expectedDetail {
					t.Errorf("Expected detail %q, got %v", tt.expectedDetail, body)
				}
			}
		})
	}
}

func TestCORS(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := CORS(inner)

	t.Run("headers set on normal request", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/health", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
			t.Errorf("Expected origin echo, got %q", got)
		}
	})

	t.Run("preflight short-circuits", func(t *testing.T) {
		req := httptest.NewRequest("OPTIONS", "/room", nil)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Expected 200 for preflight, got %d", w.Code)
		}
	})
}
