// Copyright (c) 2026 Pollroom Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db handles database connection and schema creation.

# Connecting

Connect opens the configured database through sqlx:

	dbConn, err := db.Connect(cfg)

DatabaseType selects the driver: "postgres" (lib/pq) or "sqlite"
(modernc.org/sqlite, the default; no server required).

# Schema

CreateSchema creates all tables:

	if err := db.CreateSchema(dbConn); err != nil {
		// ...
	}

Tables:

  - users: accounts with unique username and email
  - auth_token: one token per user, issued at registration
  - question_set: named, owned collections of questions
  - question: belongs to one set
  - choice: belongs to one question, carries the vote counter
  - choice_vote: voter set, one row per (choice, user)
  - room: voting session referencing one question set
  - room_member: member set, one row per (room, user)

All statements use IF NOT EXISTS and are safe to re-run. The voter and
member sets rely on composite primary keys so that add-if-absent is
atomic at the row level; the vote counter is only ever changed with an
in-place "votes = votes + 1" update.
*/
package db
