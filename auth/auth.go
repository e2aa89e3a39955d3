// Copyright (c) 2026 Pollroom Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// GenerateID creates a random hex ID of the specified byte length
func GenerateID(byteLen int) (string, error) {
	b := make([]byte, byteLen)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate random ID: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// GenerateToken creates a random 40-hex-char auth token key
func GenerateToken() (string, error) {
	return GenerateID(20)
}

// HashPassword returns the bcrypt hash of a password
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether the password matches the stored hash
func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// IsEmail reports whether the value parses as an email address. The
// token endpoint uses it to decide between email and username lookup.
func IsEmail(value string) bool {
	addr, err := mail.ParseAddress(value)
	return err == nil && addr.Address == value
}

// DeriveUsername builds a username candidate from a name: lowercased,
// spaces stripped, millisecond suffix for uniqueness. Callers retry
// with Extend while the candidate is taken.
func DeriveUsername(firstName, lastName string) string {
	base := strings.ToLower(strings.ReplaceAll(firstName+lastName, " ", ""))
	return base + millis()
}

// ExtendUsername appends another millisecond suffix to a taken candidate
func ExtendUsername(username string) string {
	return username + millis()
}

func millis() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10)
}
