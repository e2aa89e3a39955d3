// Copyright (c) 2026 Pollroom Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package rules

import "net/http"

// Quota limits
const (
	MaxChoicesPerQuestion = 4
	MaxQuestionsPerSet    = 10
	MaxPrivateRoomMembers = 10
)

// MinChoicesForValid is the per-question floor for a question set to
// count as valid.
const MinChoicesForValid = 2

// Kind classifies a rule failure.
type Kind int

const (
	NotFound Kind = iota
	NotAuthorized
	LimitExceeded
	AlreadyVoted
	Conflict
	InvalidMembership
)

// HTTPStatus maps a failure kind to its response status. AlreadyVoted
// and the membership failures are validation errors (400), duplicate
// creates are conflicts (409).
func (k Kind) HTTPStatus() int {
	switch k {
	case NotFound:
		return http.StatusNotFound
	case NotAuthorized:
		return http.StatusForbidden
	case Conflict:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

// Error is a rule failure with the response field it belongs under.
type Error struct {
	Kind    Kind
	Field   string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func nonField(kind Kind, message string) *Error {
	return &Error{Kind: kind, Field: "non_field_errors", Message: message}
}

// ChoiceCreate admits a new choice under a question: the question must
// have room for it and the requester must own the question's set.
func ChoiceCreate(requesterID, setOwnerID string, existingChoices int) *Error {
	if existingChoices >= MaxChoicesPerQuestion {
		return nonField(LimitExceeded, "Can't add more than four choice")
	}
	if requesterID != setOwnerID {
		return nonField(NotAuthorized, "Not authorised to add choice to this question")
	}
	return nil
}

// QuestionCreate admits a new question under a set.
func QuestionCreate(requesterID, setOwnerID string, existingQuestions int) *Error {
	if existingQuestions >= MaxQuestionsPerSet {
		return nonField(LimitExceeded, "Can't add more than ten question")
	}
	if requesterID != setOwnerID {
		return nonField(NotAuthorized, "Not authorised to add question to this set")
	}
	return nil
}

// SetCreate admits a new question set. Duplicate (name, owner) pairs
// are rejected unless the deployment tolerates them.
func SetCreate(duplicateName, allowDuplicates bool) *Error {
	if duplicateName && !allowDuplicates {
		return &Error{Kind: Conflict, Field: "name", Message: "A Question set with that user already exists"}
	}
	return nil
}

// RoomCreate admits a new room; duplicate (name, owner) is always a
// conflict.
func RoomCreate(duplicateName bool) *Error {
	if duplicateName {
		return &Error{Kind: Conflict, Field: "name", Message: "A Room with that user already exists"}
	}
	return nil
}

// RoomJoin admits a join attempt on a resolved room. A destroyed room
// accepts no new members; joining twice is a conflict.
func RoomJoin(destroyed, alreadyMember bool) *Error {
	if destroyed {
		return nonField(Conflict, "Room has been destroyed")
	}
	if alreadyMember {
		return &Error{Kind: Conflict, Field: "user", Message: "Already exists."}
	}
	return nil
}

// RoomMembership validates a prospective member set: the owner may
// never be a member, and private rooms hold at most ten members. It is
// evaluated on every membership-set mutation, not just additions.
func RoomMembership(ownerID string, memberIDs []string, public bool) *Error {
	for _, id := range memberIDs {
		if id == ownerID {
			return nonField(InvalidMembership, "Owner cannot be users of the room")
		}
	}
	if !public && len(memberIDs) > MaxPrivateRoomMembers {
		return nonField(LimitExceeded, "User limit exceed")
	}
	return nil
}

// VoteCast admits a vote on a resolved choice: the voter must belong
// to the room presenting the choice's question set and must not have
// voted for this choice before.
func VoteCast(isMember, alreadyVoted bool) *Error {
	if !isMember {
		return nonField(NotAuthorized, "Not authorised to vote")
	}
	if alreadyVoted {
		return &Error{Kind: AlreadyVoted, Field: "user", Message: "Already voted."}
	}
	return nil
}
