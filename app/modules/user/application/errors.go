package userservice

import "errors"

// ErrInvalidCredentials is returned when email/password verification fails.
// Lookups and hash mismatches share it so responses do not leak which emails
// have accounts.
var ErrInvalidCredentials = errors.New("invalid email or password")
