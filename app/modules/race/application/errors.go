package raceservice

import "errors"

var (
	// ErrOutOfRange is returned when a proposed counter is negative.
	ErrOutOfRange = errors.New("counters must be zero or greater")

	// ErrOrderingViolation is returned when a nonzero pair does not keep the
	// gate strictly behind staging.
	ErrOrderingViolation = errors.New("at-gate must be less than staging counter")

	// ErrClubNotFound is returned when the slug resolves to no active club.
	ErrClubNotFound = errors.New("club not found")
)
