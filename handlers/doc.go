// Copyright (c) 2026 Pollroom Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the Pollroom API.

# Handler Types

Each handler is a struct with database and config dependencies:

  - UserHandler: Registration, token exchange, and user listing
  - QuestionSetHandler: Question set trees (set, questions, choices)
  - QuestionHandler: Individual questions within a set
  - ChoiceHandler: Individual choices and the voting workflow
  - RoomHandler: Rooms, membership, and the join flow

Handlers are created via constructor functions that accept *sqlx.DB and Config:

	setHandler := handlers.NewQuestionSetHandler(db, cfg)

# Authoring Flow

An owner builds a question set, optionally with nested questions and
choices in a single request:

	POST /question-set            → Create (whole tree, one transaction)
	POST /question                → Create (one question, owner only)
	POST /choice                  → Create (one choice, owner only)
	GET  /question-set/{id}/valid → Valid (every question needs 2+ choices)

A set holds at most ten questions and a question at most four choices.

# Room Flow

Participants discover and join rooms built on a set:

	POST /room           → Create (returns a room summary)
	GET  /room           → List (joinable rooms only)
	GET  /room/{id}/user → Join (returns the room with its set)

Private rooms hold at most ten members and never their owner.

# Voting Flow

Members of a live room vote on the set's choices, once per choice:

	GET|POST /choice/{id}/vote → Vote (single choice)
	POST     /choice/vote      → BatchVote (array of ids, per-item results)

All endpoints except registration, token exchange, and health require an
Authorization: Token header and receive the resolved user as an explicit
argument.
*/
package handlers
