// Copyright (c) 2026 Pollroom Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the Pollroom API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(db, cfg)

# Endpoints

Health:

	GET /health

Accounts (public):

	POST /users      - Register (returns auth token)
	POST /auth-token - Exchange credentials for a token

Users (authenticated):

	GET /users      - List users
	GET /users/{id} - Get one user

Question sets (authenticated):

	POST   /question-set            - Create set, optionally with questions and choices
	GET    /question-set            - List the requester's sets
	GET    /question-set/{id}       - Get set with its full tree
	PUT    /question-set/{id}       - Replace (owner only)
	PATCH  /question-set/{id}       - Partial update (owner only)
	DELETE /question-set/{id}       - Delete set and everything under it (owner only)
	GET    /question-set/{id}/valid - Check every question has two or more choices

Questions and choices follow the same CRUD shape under /question and
/choice, scoped by ?set= and ?question= filters.

Voting (authenticated, room members only):

	GET|POST /choice/{id}/vote - Cast one vote
	POST     /choice/vote      - Cast a batch of votes, per-item results

Rooms (authenticated):

	POST   /room           - Create room
	GET    /room           - List joinable rooms (?public=, ?destroyed=, ?question_set=)
	GET    /room/{id}      - Get room with its question set
	PUT    /room/{id}      - Replace (owner only)
	PATCH  /room/{id}      - Partial update (owner only)
	DELETE /room/{id}      - Delete room and memberships (owner only)
	GET    /room/{id}/user - Join the room

# Handler Initialization

The router creates handler instances with dependency injection:

	userHandler := handlers.NewUserHandler(db, cfg)
	setHandler := handlers.NewQuestionSetHandler(db, cfg)
	roomHandler := handlers.NewRoomHandler(db, cfg)

All handlers receive the database connection and configuration.
Everything except registration, token exchange, health, and the root
endpoint runs behind middleware.RequireAuth.
*/
package router
