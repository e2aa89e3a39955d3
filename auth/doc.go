// Copyright (c) 2026 Pollroom Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides token generation and password hashing.

# Tokens

GenerateToken returns a random 40-hex-char key, stored in the
auth_token table and presented as "Authorization: Token <key>".

# Passwords

HashPassword and VerifyPassword wrap bcrypt with the default cost.

# Usernames

Usernames are derived, not chosen: DeriveUsername lowercases the
first+last name, strips spaces, and appends a millisecond timestamp;
ExtendUsername appends another suffix when the candidate is taken.
*/
package auth
