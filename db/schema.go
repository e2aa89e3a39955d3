// Copyright (c) 2026 Pollroom Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
// The DDL is restricted to the dialect shared by postgres and sqlite:
// TEXT ids generated in Go, timestamps set in Go, no database defaults
// that differ between the two.
func CreateSchema(db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return nil
}

var schema = []string{
	// Users
	`CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    username TEXT NOT NULL UNIQUE,
    email TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    first_name TEXT NOT NULL,
    last_name TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
)`,

	// Auth tokens, one per user, issued at registration
	`CREATE TABLE IF NOT EXISTS auth_token (
    key TEXT PRIMARY KEY,
    user_id TEXT NOT NULL UNIQUE REFERENCES users(id),
    created_at TIMESTAMP NOT NULL
)`,

	// Question sets. No UNIQUE(name, owner_id): duplicate names are a
	// configurable rule, not a hard constraint.
	`CREATE TABLE IF NOT EXISTS question_set (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    owner_id TEXT NOT NULL REFERENCES users(id),
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_question_set_owner ON question_set(owner_id)`,

	// Questions
	`CREATE TABLE IF NOT EXISTS question (
    id TEXT PRIMARY KEY,
    question_text TEXT NOT NULL,
    set_id TEXT NOT NULL REFERENCES question_set(id),
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_question_set_id ON question(set_id)`,

	// Choices
	`CREATE TABLE IF NOT EXISTS choice (
    id TEXT PRIMARY KEY,
    choice_text TEXT NOT NULL,
    votes INTEGER NOT NULL DEFAULT 0,
    question_id TEXT NOT NULL REFERENCES question(id),
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_choice_question_id ON choice(question_id)`,

	// Voter set: one row per (choice, user). The primary key is the
	// add-if-absent guard under concurrent votes.
	`CREATE TABLE IF NOT EXISTS choice_vote (
    choice_id TEXT NOT NULL REFERENCES choice(id),
    user_id TEXT NOT NULL REFERENCES users(id),
    created_at TIMESTAMP NOT NULL,
    PRIMARY KEY (choice_id, user_id)
)`,

	// Rooms. UNIQUE(name, owner_id) is the backstop for the
	// unconditional duplicate-room rule.
	`CREATE TABLE IF NOT EXISTS room (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    owner_id TEXT NOT NULL REFERENCES users(id),
    question_set_id TEXT NOT NULL REFERENCES question_set(id),
    destroyed BOOLEAN NOT NULL DEFAULT FALSE,
    public BOOLEAN NOT NULL,
    latitude REAL,
    longitude REAL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    UNIQUE (name, owner_id)
)`,
	`CREATE INDEX IF NOT EXISTS idx_room_owner ON room(owner_id)`,
	`CREATE INDEX IF NOT EXISTS idx_room_question_set ON room(question_set_id)`,

	// Member set: one row per (room, user), same add-if-absent guard.
	`CREATE TABLE IF NOT EXISTS room_member (
    room_id TEXT NOT NULL REFERENCES room(id),
    user_id TEXT NOT NULL REFERENCES users(id),
    created_at TIMESTAMP NOT NULL,
    PRIMARY KEY (room_id, user_id)
)`,
	`CREATE INDEX IF NOT EXISTS idx_room_member_user ON room_member(user_id)`,
}
