package racedb

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ErrNotFound is returned when no matching race or settings row exists.
var ErrNotFound = errors.New("race not found")

// Repository defines the contract for race persistence.
type Repository interface {
	// GetActiveRace returns the club's single active race. When forUpdate is
	// set the row is locked for the duration of the transaction, serializing
	// concurrent counter mutations.
	GetActiveRace(ctx context.Context, db bun.IDB, clubUUID uuid.UUID, forUpdate bool) (*Race, error)

	// HasRace reports whether the club has any race, active or not.
	HasRace(ctx context.Context, db bun.IDB, clubUUID uuid.UUID) (bool, error)

	CreateRace(ctx context.Context, db bun.IDB, race *Race) error
	UpdateCounters(ctx context.Context, db bun.IDB, raceUUID uuid.UUID, atGate, inStaging int) error

	GetSettings(ctx context.Context, db bun.IDB, raceUUID uuid.UUID) (*RaceSetting, error)
	CreateSettings(ctx context.Context, db bun.IDB, settings *RaceSetting) error
	UpdateSettings(ctx context.Context, db bun.IDB, settings *RaceSetting) error
}
