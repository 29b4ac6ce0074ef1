package transferservice

import "errors"

var (
	// ErrSelfTransfer is returned when the initiator targets their own email.
	ErrSelfTransfer = errors.New("cannot transfer ownership to yourself")

	// ErrTargetUserNotFound is returned when no account holds the target
	// email. Checked at initiation and again at completion.
	ErrTargetUserNotFound = errors.New("target user not found")

	// ErrNotPending is returned when the transfer already reached a terminal
	// state.
	ErrNotPending = errors.New("transfer is not pending")

	// ErrExpired is returned when the claim window has lapsed.
	ErrExpired = errors.New("transfer has expired")

	// ErrNotAuthorized is returned when the acting user is neither the
	// initiator nor a super admin.
	ErrNotAuthorized = errors.New("not authorized to cancel this transfer")

	// ErrTransferNotFound is returned when no transfer holds the token.
	ErrTransferNotFound = errors.New("transfer not found")

	// ErrClubNotFound is returned when the slug resolves to no active club.
	ErrClubNotFound = errors.New("club not found")
)
