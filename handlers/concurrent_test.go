// Copyright (c) 2026 Pollroom Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/pollroom/pollroom/models"
	"github.com/pollroom/pollroom/testutil"
)

// TestConcurrentVotes verifies that simultaneous votes from different
// members neither lose increments nor create duplicate voter rows
func TestConcurrentVotes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	cfg := testutil.GetTestConfig()
	handler := NewChoiceHandler(db, cfg)

	owner, _ := testutil.CreateTestUser(t, db, "cowner@example.com", "Conc", "Owner")
	setID := testutil.CreateTestSet(t, db, owner.ID, "Concurrent Set")
	questionID := testutil.CreateTestQuestion(t, db, setID, "Pick")
	choiceID := testutil.CreateTestChoice(t, db, questionID, "Popular")
	roomID := testutil.CreateTestRoom(t, db, owner.ID, setID, "Concurrent Room", true)

	numVoters := 10
	voters := make([]models.User, numVoters)
	for i := range voters {
		voters[i], _ = testutil.CreateTestUser(t, db,
			"voter"+strconv.Itoa(i)+"@example.com", "Conc", "Voter"+strconv.Itoa(i))
		testutil.AddRoomMember(t, db, roomID, voters[i].ID)
	}

	var successCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < numVoters; i++ {
		wg.Add(1)
		go func(voterIdx int) {
			defer wg.Done()

			req := testutil.MakeRequest("POST", "/choice/"+choiceID+"/vote", nil, nil)
			req.SetPathValue("id", choiceID)
			w := httptest.NewRecorder()

			handler.Vote(w, req, voters[voterIdx])

			if w.Code == http.StatusCreated {
				successCount.Add(1)
			}
		}(i)
	}

	wg.Wait()

	if int(successCount.Load()) != numVoters {
		t.Errorf("Expected %d successful votes, got %d", numVoters, successCount.Load())
	}

	var votes int
	if err := db.Get(&votes, `SELECT votes FROM choice WHERE id = ?`, choiceID); err != nil {
		t.Fatalf("Failed to query votes: %v", err)
	}
	if votes != numVoters {
		t.Errorf("Expected counter %d, got %d", numVoters, votes)
	}

	if n := testutil.CountRows(t, db, `SELECT COUNT(*) FROM choice_vote WHERE choice_id = ?`, choiceID); n != numVoters {
		t.Errorf("Expected %d voter rows, got %d", numVoters, n)
	}
}

// TestConcurrentRepeatVotes verifies that when one member races itself,
// exactly one vote lands
func TestConcurrentRepeatVotes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	cfg := testutil.GetTestConfig()
	handler := NewChoiceHandler(db, cfg)

	member, choiceID := voteFixture(t, db)

	attempts := 5
	var successCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			req := testutil.MakeRequest("POST", "/choice/"+choiceID+"/vote", nil, nil)
			req.SetPathValue("id", choiceID)
			w := httptest.NewRecorder()

			handler.Vote(w, req, member)

			if w.Code == http.StatusCreated {
				successCount.Add(1)
			}
		}()
	}

	wg.Wait()

	if successCount.Load() != 1 {
		t.Errorf("Expected exactly 1 successful vote, got %d", successCount.Load())
	}

	var votes int
	if err := db.Get(&votes, `SELECT votes FROM choice WHERE id = ?`, choiceID); err != nil {
		t.Fatalf("Failed to query votes: %v", err)
	}
	if votes != 1 {
		t.Errorf("Expected counter 1, got %d", votes)
	}
}

// TestConcurrentJoins verifies that racing joins respect the private
// room member cap
func TestConcurrentJoins(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	cfg := testutil.GetTestConfig()
	handler := NewRoomHandler(db, cfg)

	owner, _ := testutil.CreateTestUser(t, db, "jowner@example.com", "Race", "Owner")
	setID := testutil.CreateTestSet(t, db, owner.ID, "Race Set")
	roomID := testutil.CreateTestRoom(t, db, owner.ID, setID, "Race Room", true)

	numJoiners := 8
	joiners := make([]models.User, numJoiners)
	for i := range joiners {
		joiners[i], _ = testutil.CreateTestUser(t, db,
			"racer"+strconv.Itoa(i)+"@example.com", "Race", "Joiner"+strconv.Itoa(i))
	}

	var successCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < numJoiners; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			req := testutil.MakeRequest("GET", "/room/"+roomID+"/user", nil, nil)
			req.SetPathValue("id", roomID)
			w := httptest.NewRecorder()

			handler.Join(w, req, joiners[idx])

			if w.Code == http.StatusCreated {
				successCount.Add(1)
			}
		}(i)
	}

	wg.Wait()

	if int(successCount.Load()) != numJoiners {
		t.Errorf("Expected %d successful joins, got %d", numJoiners, successCount.Load())
	}

	if n := testutil.CountRows(t, db, `SELECT COUNT(*) FROM room_member WHERE room_id = ?`, roomID); n != numJoiners {
		t.Errorf("Expected %d memberships, got %d", numJoiners, n)
	}
}
