// Copyright (c) 2026 Pollroom Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines domain, request, and response types.

# Domain Types

User, QuestionSet, Question, Choice, and Room mirror the database rows
(db tags for sqlx scanning). PasswordHash and timestamps are never
serialized.

# Request Types

Request structs carry validate tags consumed by middleware.Validate
(go-playground/validator); messages come back keyed by JSON field name.
Update requests use pointer fields so PATCH can distinguish "absent"
from "zero".

# Response Types

Response structs reproduce the public API field names: question_text,
choice_text, votes, question, set, owner (username), response (member
count), days_ago (humanized elapsed time), auth_token.
*/
package models
