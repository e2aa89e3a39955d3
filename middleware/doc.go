// Copyright (c) 2026 Pollroom Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

Wrap handlers with request logging:

	mux.HandleFunc("GET /health", middleware.WithLogging(handler))

Logs request start (method, path, remote) and completion (duration_ms).

# Authentication

RequireAuth resolves "Authorization: Token <key>" against the
auth_token table and passes the user to the handler explicitly:

	middleware.RequireAuth(db, func(w http.ResponseWriter, r *http.Request, user models.User) {
		// ...
	})

# Error Envelopes

All errors are field-keyed maps of message lists:

	middleware.FieldErrorResponse(w, 400, middleware.FieldErrors{"name": {"required"}})
	middleware.RuleErrorResponse(w, ruleErr) // status from the taxonomy
	middleware.NotFoundResponse(w)           // {"detail": ["Not found."]}

# Request Validation

Validate runs go-playground/validator over a request struct and returns
translated messages keyed by JSON field name:

	if errs := middleware.Validate(req); errs != nil {
		middleware.FieldErrorResponse(w, http.StatusBadRequest, errs)
		return
	}

# JSON Helpers

	middleware.JSONResponse(w, http.StatusOK, data)

	var req models.CreateRoomRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil { ... }

# CORS Middleware

	server := http.Server{Handler: middleware.CORS(mux)}
*/
package middleware
