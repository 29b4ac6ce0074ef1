package accessservice

import "errors"

var (
	// ErrNotAuthorized is returned when the caller's role does not allow the
	// requested action.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrInvalidRole is returned for roles outside club_admin/club_operator
	// in member management.
	ErrInvalidRole = errors.New("invalid role")

	// ErrMemberUserNotFound is returned when no user exists for the given email.
	ErrMemberUserNotFound = errors.New("user not found")

	// ErrAlreadyMember is returned when the user already has access to the club.
	ErrAlreadyMember = errors.New("user already has access to this club")

	// ErrNotMember is returned when the user has no permission for the club.
	ErrNotMember = errors.New("user does not have access to this club")

	// ErrCannotRemoveOwner is returned when removing the club owner's access.
	// Ownership must be transferred first.
	ErrCannotRemoveOwner = errors.New("cannot remove club owner")
)
