package activityservice

import "errors"

var (
	// ErrInvalidActivityType is returned when the type is outside the
	// enumerated set.
	ErrInvalidActivityType = errors.New("invalid activity type")

	// ErrEmptyMessage is returned when the message is blank.
	ErrEmptyMessage = errors.New("activity message must not be empty")
)
