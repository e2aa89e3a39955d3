// Copyright (c) 2026 Pollroom Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"

	"github.com/jmoiron/sqlx"

	"github.com/pollroom/pollroom/cliparse"
	"github.com/pollroom/pollroom/handlers"
	"github.com/pollroom/pollroom/middleware"
)

func NewRouter(db *sqlx.DB, cfg cliparse.Config) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	userHandler := handlers.NewUserHandler(db, cfg)
	setHandler := handlers.NewQuestionSetHandler(db, cfg)
	questionHandler := handlers.NewQuestionHandler(db, cfg)
	choiceHandler := handlers.NewChoiceHandler(db, cfg)
	roomHandler := handlers.NewRoomHandler(db, cfg)

	// auth wraps a handler that needs the requesting user resolved
	// from the Authorization header.
	auth := func(next middleware.UserHandlerFunc) http.HandlerFunc {
		return middleware.WithLogging(middleware.RequireAuth(db, next))
	}

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Registration and token exchange (public)
	mux.HandleFunc("POST /users", middleware.WithLogging(userHandler.Register))
	mux.HandleFunc("POST /auth-token", middleware.WithLogging(userHandler.ObtainToken))

	// Users
	mux.HandleFunc("GET /users", auth(userHandler.List))
	mux.HandleFunc("GET /users/{id}", auth(userHandler.Get))

	// Question sets
	mux.HandleFunc("POST /question-set", auth(setHandler.Create))
	mux.HandleFunc("GET /question-set", auth(setHandler.List))
	mux.HandleFunc("GET /question-set/{id}", auth(setHandler.Get))
	mux.HandleFunc("PUT /question-set/{id}", auth(setHandler.Update))
	mux.HandleFunc("PATCH /question-set/{id}", auth(setHandler.Update))
	mux.HandleFunc("DELETE /question-set/{id}", auth(setHandler.Delete))
	mux.HandleFunc("GET /question-set/{id}/valid", auth(setHandler.Valid))

	// Questions
	mux.HandleFunc("POST /question", auth(questionHandler.Create))
	mux.HandleFunc("GET /question", auth(questionHandler.List))
	mux.HandleFunc("GET /question/{id}", auth(questionHandler.Get))
	mux.HandleFunc("PUT /question/{id}", auth(questionHandler.Update))
	mux.HandleFunc("PATCH /question/{id}", auth(questionHandler.Update))
	mux.HandleFunc("DELETE /question/{id}", auth(questionHandler.Delete))

	// Choices and voting
	mux.HandleFunc("POST /choice/vote", auth(choiceHandler.BatchVote))
	mux.HandleFunc("POST /choice", auth(choiceHandler.Create))
	mux.HandleFunc("GET /choice", auth(choiceHandler.List))
	mux.HandleFunc("GET /choice/{id}", auth(choiceHandler.Get))
	mux.HandleFunc("PUT /choice/{id}", auth(choiceHandler.Update))
	mux.HandleFunc("PATCH /choice/{id}", auth(choiceHandler.Update))
	mux.HandleFunc("DELETE /choice/{id}", auth(choiceHandler.Delete))
	mux.HandleFunc("GET /choice/{id}/vote", auth(choiceHandler.Vote))
	mux.HandleFunc("POST /choice/{id}/vote", auth(choiceHandler.Vote))

	// Rooms
	mux.HandleFunc("POST /room", auth(roomHandler.Create))
	mux.HandleFunc("GET /room", auth(roomHandler.List))
	mux.HandleFunc("GET /room/{id}", auth(roomHandler.Get))
	mux.HandleFunc("PUT /room/{id}", auth(roomHandler.Update))
	mux.HandleFunc("PATCH /room/{id}", auth(roomHandler.Update))
	mux.HandleFunc("DELETE /room/{id}", auth(roomHandler.Delete))
	mux.HandleFunc("GET /room/{id}/user", auth(roomHandler.Join))

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("pollroom API v1"))
	})

	return mux
}
