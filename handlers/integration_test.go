// Copyright (c) 2026 Pollroom Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pollroom/pollroom/middleware"
	"github.com/pollroom/pollroom/models"
	"github.com/pollroom/pollroom/testutil"
)

// TestFullPollingWorkflow tests the complete end-to-end workflow:
// 1. Register an owner and a participant
// 2. Owner creates a question set with questions and choices
// 3. Set passes the validity check
// 4. Owner opens a room on the set
// 5. Participant discovers and joins the room
// 6. Participant votes, once per choice
// 7. Owner destroys the room, further votes are rejected
func TestFullPollingWorkflow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	cfg := testutil.GetTestConfig()
	userHandler := NewUserHandler(db, cfg)
	setHandler := NewQuestionSetHandler(db, cfg)
	choiceHandler := NewChoiceHandler(db, cfg)
	roomHandler := NewRoomHandler(db, cfg)

	// Step 1: Register both users
	register := func(email, first, last string) models.RegisterResponse {
		req := testutil.MakeRequest("POST", "/users", models.RegisterRequest{
			Email:     email,
			Password:  "workflow-pw-1",
			FirstName: first,
			LastName:  last,
		}, nil)
		w := httptest.NewRecorder()
		userHandler.Register(w, req)
		if w.Code != http.StatusCreated {
			t.Fatalf("Step 1 - Register failed: %d - %s", w.Code, w.Body.String())
		}
		var resp models.RegisterResponse
		testutil.AssertJSON(t, w, &resp)
		return resp
	}

	ownerResp := register("owner@example.com", "Olive", "Owner")
	participantResp := register("part@example.com", "Pat", "Participant")
	t.Logf("Step 1 - Registered %s and %s", ownerResp.Username, participantResp.Username)

	// The issued tokens must resolve through the auth middleware
	resolved := make(map[string]models.User)
	capture := middleware.RequireAuth(db, func(w http.ResponseWriter, r *http.Request, user models.User) {
		resolved[user.Email] = user
		w.WriteHeader(http.StatusOK)
	})
	for _, token := range []string{ownerResp.AuthToken, participantResp.AuthToken} {
		req := testutil.MakeRequest("GET", "/users", nil, testutil.AuthHeaders(token))
		w := httptest.NewRecorder()
		capture(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("Step 1 - Token did not resolve: %d - %s", w.Code, w.Body.String())
		}
	}
	owner := resolved["owner@example.com"]
	participant := resolved["part@example.com"]

	// Step 2: Owner builds the whole set in one request
	req := testutil.MakeRequest("POST", "/question-set", models.CreateSetRequest{
		Name: "Team Offsite",
		Questions: []models.QuestionInput{
			{
				QuestionText: "Where to go?",
				Choices: []models.ChoiceInput{
					{ChoiceText: "Mountains"},
					{ChoiceText: "Beach"},
				},
			},
			{
				QuestionText: "Which month?",
				Choices: []models.ChoiceInput{
					{ChoiceText: "June"},
					{ChoiceText: "September"},
				},
			},
		},
	}, nil)
	w := httptest.NewRecorder()
	setHandler.Create(w, req, owner)
	if w.Code != http.StatusCreated {
		t.Fatalf("Step 2 - Create set failed: %d - %s", w.Code, w.Body.String())
	}

	var setDetail models.SetDetail
	testutil.AssertJSON(t, w, &setDetail)
	if len(setDetail.Questions) != 2 {
		t.Fatalf("Step 2 - Expected 2 questions, got %d", len(setDetail.Questions))
	}
	t.Logf("Step 2 - Created set: %s", setDetail.ID)

	// Step 3: Validity check passes
	req = testutil.MakeRequest("GET", "/question-set/"+setDetail.ID+"/valid", nil, nil)
	req.SetPathValue("id", setDetail.ID)
	w = httptest.NewRecorder()
	setHandler.Valid(w, req, owner)
	if w.Code != http.StatusOK {
		t.Fatalf("Step 3 - Valid check failed: %d - %s", w.Code, w.Body.String())
	}

	// Step 4: Owner opens a room
	public := true
	req = testutil.MakeRequest("POST", "/room", models.CreateRoomRequest{
		Name:        "Offsite Planning",
		QuestionSet: setDetail.ID,
		Public:      &public,
	}, nil)
	w = httptest.NewRecorder()
	roomHandler.Create(w, req, owner)
	if w.Code != http.StatusCreated {
		t.Fatalf("Step 4 - Create room failed: %d - %s", w.Code, w.Body.String())
	}

	var roomSummary models.RoomSummary
	testutil.AssertJSON(t, w, &roomSummary)
	t.Logf("Step 4 - Opened room: %s", roomSummary.ID)

	// Step 5: Participant discovers the room and joins
	req = testutil.MakeRequest("GET", "/room", nil, nil)
	w = httptest.NewRecorder()
	roomHandler.List(w, req, participant)
	if w.Code != http.StatusOK {
		t.Fatalf("Step 5 - List rooms failed: %d - %s", w.Code, w.Body.String())
	}

	var joinable []models.RoomSummary
	testutil.AssertJSON(t, w, &joinable)
	if len(joinable) != 1 || joinable[0].ID != roomSummary.ID {
		t.Fatalf("Step 5 - Expected the new room to be discoverable, got %+v", joinable)
	}

	req = testutil.MakeRequest("GET", "/room/"+roomSummary.ID+"/user", nil, nil)
	req.SetPathValue("id", roomSummary.ID)
	w = httptest.NewRecorder()
	roomHandler.Join(w, req, participant)
	if w.Code != http.StatusCreated {
		t.Fatalf("Step 5 - Join failed: %d - %s", w.Code, w.Body.String())
	}

	var roomDetail models.RoomDetail
	testutil.AssertJSON(t, w, &roomDetail)
	if len(roomDetail.QuestionSetDetail.Questions) != 2 {
		t.Fatalf("Step 5 - Expected the set tree on join, got %+v", roomDetail.QuestionSetDetail)
	}
	t.Log("Step 5 - Participant joined")

	// Step 6: Participant votes on one choice per question via batch
	firstChoice := setDetail.Questions[0].Choices[0].ID
	secondChoice := setDetail.Questions[1].Choices[1].ID

	req = testutil.MakeRequest("POST", "/choice/vote", []string{firstChoice, secondChoice}, nil)
	w = httptest.NewRecorder()
	choiceHandler.BatchVote(w, req, participant)
	if w.Code != http.StatusOK {
		t.Fatalf("Step 6 - Batch vote failed: %d - %s", w.Code, w.Body.String())
	}

	var results []models.BatchVoteResult
	testutil.AssertJSON(t, w, &results)
	for _, result := range results {
		if !result.OK || result.Votes != 1 {
			t.Fatalf("Step 6 - Expected every item to land with counter 1, got %+v", result)
		}
	}

	// A repeat vote on the same choice is rejected
	req = testutil.MakeRequest("POST", "/choice/"+firstChoice+"/vote", nil, nil)
	req.SetPathValue("id", firstChoice)
	w = httptest.NewRecorder()
	choiceHandler.Vote(w, req, participant)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Step 6 - Expected repeat vote rejection, got %d", w.Code)
	}
	t.Log("Step 6 - Votes recorded exactly once")

	// Step 7: Owner destroys the room, voting rights lapse
	destroyed := true
	req = testutil.MakeRequest("PATCH", "/room/"+roomSummary.ID,
		models.UpdateRoomRequest{Destroyed: &destroyed}, nil)
	req.SetPathValue("id", roomSummary.ID)
	w = httptest.NewRecorder()
	roomHandler.Update(w, req, owner)
	if w.Code != http.StatusOK {
		t.Fatalf("Step 7 - Destroy failed: %d - %s", w.Code, w.Body.String())
	}

	thirdChoice := setDetail.Questions[0].Choices[1].ID
	req = testutil.MakeRequest("POST", "/choice/"+thirdChoice+"/vote", nil, nil)
	req.SetPathValue("id", thirdChoice)
	w = httptest.NewRecorder()
	choiceHandler.Vote(w, req, participant)
	if w.Code != http.StatusForbidden {
		t.Fatalf("Step 7 - Expected vote after destroy to be forbidden, got %d", w.Code)
	}
	t.Log("Step 7 - Destroyed room blocks votes")
}
