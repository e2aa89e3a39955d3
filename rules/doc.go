// Copyright (c) 2026 Pollroom Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package rules holds the pure admission rules for mutations.

Each rule takes the already-resolved facts (counts, owner ids, member
sets) and returns nil to admit or an *Error to reject, so handlers
gather state and rules stay free of I/O. The acting user is always an
explicit parameter.

# Quotas

  - a question holds at most 4 choices
  - a set holds at most 10 questions
  - a private room holds at most 10 members

# Taxonomy

Error carries a Kind (NotFound, NotAuthorized, LimitExceeded,
AlreadyVoted, Conflict, InvalidMembership), the response field it
belongs under, and the message. Kind.HTTPStatus maps to the wire
status: 404, 403, 409 for conflicts, 400 for the rest.
*/
package rules
