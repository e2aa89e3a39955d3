// Copyright (c) 2026 Pollroom Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"strings"

	"github.com/pollroom/pollroom/middleware"
)

// isUniqueViolation matches the constraint-violation messages of both
// supported drivers.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}

// forbiddenResponse is the ownership-failure envelope for update and
// delete operations on someone else's entity tree.
func forbiddenResponse(w http.ResponseWriter) {
	middleware.FieldErrorResponse(w, http.StatusForbidden,
		middleware.FieldErrors{"detail": {"You do not have permission to perform this action."}})
}
