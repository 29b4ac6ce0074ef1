package transferdb

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var (
	// ErrNotFound is returned when no transfer matches.
	ErrNotFound = errors.New("transfer not found")

	// ErrDuplicateToken is returned when an insert trips the unique token
	// constraint. Callers regenerate and retry.
	ErrDuplicateToken = errors.New("transfer token already exists")

	// ErrNotPending is returned when a terminal mark finds the transfer but
	// another caller already closed it.
	ErrNotPending = errors.New("transfer is not pending")
)

// Repository defines the contract for ownership transfer persistence.
type Repository interface {
	GetByToken(ctx context.Context, db bun.IDB, token string) (*OwnershipTransfer, error)

	// GetActiveForClub returns the club's pending, unexpired transfer if one
	// exists.
	GetActiveForClub(ctx context.Context, db bun.IDB, clubUUID uuid.UUID) (*OwnershipTransfer, error)

	Create(ctx context.Context, db bun.IDB, transfer *OwnershipTransfer) error

	MarkCancelled(ctx context.Context, db bun.IDB, transferUUID uuid.UUID, at time.Time) error
	MarkCompleted(ctx context.Context, db bun.IDB, transferUUID uuid.UUID, at time.Time) error
}
