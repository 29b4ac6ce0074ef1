package racedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Impl implements the Repository interface using bun.
type Impl struct {
	db *bun.DB
}

// NewRepository creates a new race repository.
func NewRepository(db *bun.DB) *Impl {
	return &Impl{db: db}
}

func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db != nil {
		return db
	}
	return r.db
}

// GetActiveRace returns the club's active race, optionally locking the row.
func (r *Impl) GetActiveRace(ctx context.Context, db bun.IDB, clubUUID uuid.UUID, forUpdate bool) (*Race, error) {
	race := &Race{}
	q := r.resolveDB(db).NewSelect().
		Model(race).
		Where("r.club_uuid = ?", clubUUID).
		Where("r.active = TRUE")
	if forUpdate {
		q = q.For("UPDATE")
	}
	if err := q.Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get active race: %w", err)
	}
	return race, nil
}

// HasRace reports whether the club has any race row.
func (r *Impl) HasRace(ctx context.Context, db bun.IDB, clubUUID uuid.UUID) (bool, error) {
	exists, err := r.resolveDB(db).NewSelect().
		Model((*Race)(nil)).
		Where("r.club_uuid = ?", clubUUID).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check race existence: %w", err)
	}
	return exists, nil
}

// CreateRace inserts a race row.
func (r *Impl) CreateRace(ctx context.Context, db bun.IDB, race *Race) error {
	if _, err := r.resolveDB(db).NewInsert().Model(race).Exec(ctx); err != nil {
		return fmt.Errorf("failed to create race: %w", err)
	}
	return nil
}

// UpdateCounters persists new counter values on a race row.
func (r *Impl) UpdateCounters(ctx context.Context, db bun.IDB, raceUUID uuid.UUID, atGate, inStaging int) error {
	res, err := r.resolveDB(db).NewUpdate().
		Model((*Race)(nil)).
		Set("at_gate = ?", atGate).
		Set("in_staging = ?", inStaging).
		Set("updated_at = ?", time.Now().UTC()).
		Where("uuid = ?", raceUUID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update counters: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// GetSettings returns the settings row for a race.
func (r *Impl) GetSettings(ctx context.Context, db bun.IDB, raceUUID uuid.UUID) (*RaceSetting, error) {
	settings := &RaceSetting{}
	err := r.resolveDB(db).NewSelect().
		Model(settings).
		Where("rs.race_uuid = ?", raceUUID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get race settings: %w", err)
	}
	return settings, nil
}

// CreateSettings inserts a settings row.
func (r *Impl) CreateSettings(ctx context.Context, db bun.IDB, settings *RaceSetting) error {
	if _, err := r.resolveDB(db).NewInsert().Model(settings).Exec(ctx); err != nil {
		return fmt.Errorf("failed to create race settings: %w", err)
	}
	return nil
}

// UpdateSettings persists a settings row.
func (r *Impl) UpdateSettings(ctx context.Context, db bun.IDB, settings *RaceSetting) error {
	settings.UpdatedAt = time.Now().UTC()
	res, err := r.resolveDB(db).NewUpdate().
		Model(settings).
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update race settings: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
