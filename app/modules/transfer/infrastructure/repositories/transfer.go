package transferdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Impl implements the Repository interface using bun.
type Impl struct {
	db *bun.DB
}

// NewRepository creates a new transfer repository.
func NewRepository(db *bun.DB) *Impl {
	return &Impl{db: db}
}

func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db != nil {
		return db
	}
	return r.db
}

// GetByToken returns the transfer holding the token.
func (r *Impl) GetByToken(ctx context.Context, db bun.IDB, token string) (*OwnershipTransfer, error) {
	transfer := &OwnershipTransfer{}
	err := r.resolveDB(db).NewSelect().
		Model(transfer).
		Where("ot.token = ?", token).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get transfer by token: %w", err)
	}
	return transfer, nil
}

// GetActiveForClub returns the club's pending, unexpired transfer.
func (r *Impl) GetActiveForClub(ctx context.Context, db bun.IDB, clubUUID uuid.UUID) (*OwnershipTransfer, error) {
	transfer := &OwnershipTransfer{}
	err := r.resolveDB(db).NewSelect().
		Model(transfer).
		Where("ot.club_uuid = ?", clubUUID).
		Where("ot.completed_at IS NULL").
		Where("ot.cancelled_at IS NULL").
		Where("ot.expires_at > ?", time.Now()).
		Order("ot.created_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get active transfer: %w", err)
	}
	return transfer, nil
}

// Create inserts a transfer, mapping unique-token violations to
// ErrDuplicateToken so the service can regenerate.
func (r *Impl) Create(ctx context.Context, db bun.IDB, transfer *OwnershipTransfer) error {
	if _, err := r.resolveDB(db).NewInsert().Model(transfer).Exec(ctx); err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicateToken
		}
		return fmt.Errorf("failed to create transfer: %w", err)
	}
	return nil
}

// MarkCancelled sets cancelled_at on a still-pending transfer.
func (r *Impl) MarkCancelled(ctx context.Context, db bun.IDB, transferUUID uuid.UUID, at time.Time) error {
	return r.markTerminal(ctx, db, transferUUID, "cancelled_at", at)
}

// MarkCompleted sets completed_at on a still-pending transfer.
func (r *Impl) MarkCompleted(ctx context.Context, db bun.IDB, transferUUID uuid.UUID, at time.Time) error {
	return r.markTerminal(ctx, db, transferUUID, "completed_at", at)
}

func (r *Impl) markTerminal(ctx context.Context, db bun.IDB, transferUUID uuid.UUID, column string, at time.Time) error {
	res, err := r.resolveDB(db).NewUpdate().
		Model((*OwnershipTransfer)(nil)).
		Set("? = ?", bun.Ident(column), at).
		Set("updated_at = ?", time.Now().UTC()).
		Where("uuid = ?", transferUUID).
		Where("completed_at IS NULL").
		Where("cancelled_at IS NULL").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to mark transfer %s: %w", column, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		// Distinguish a missing transfer from one a concurrent caller
		// already closed.
		exists, err := r.resolveDB(db).NewSelect().
			Model((*OwnershipTransfer)(nil)).
			Where("uuid = ?", transferUUID).
			Exists(ctx)
		if err != nil {
			return fmt.Errorf("failed to check transfer existence: %w", err)
		}
		if exists {
			return ErrNotPending
		}
		return ErrNotFound
	}
	return nil
}
