package raceservice

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Service defines the race module's application surface.
type Service interface {
	// UpdateCounters applies a proposed counter pair under the row lock.
	UpdateCounters(ctx context.Context, clubSlug string, proposed CounterUpdate) (*CounterChange, error)

	// ResetRace zeroes counters and regenerates the schedule.
	ResetRace(ctx context.Context, clubSlug, resetType string) error

	// GetRaceState returns race plus settings, creating both on first access.
	GetRaceState(ctx context.Context, clubSlug string) (*RaceState, error)

	// UpdateSettings patches the active race's settings.
	UpdateSettings(ctx context.Context, clubSlug string, changes SettingsChange) error

	// BootstrapRace seeds a new club's active race in the caller's transaction.
	BootstrapRace(ctx context.Context, db bun.IDB, clubUUID uuid.UUID, loc *time.Location) error

	// HasRace reports whether the club has any race history.
	HasRace(ctx context.Context, db bun.IDB, clubUUID uuid.UUID) (bool, error)
}

var _ Service = (*RaceService)(nil)
