package raceservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/trace"

	raceevents "github.com/bmxtools/raceday/app/events/race"
	activityservice "github.com/bmxtools/raceday/app/modules/activity/application"
	activitydb "github.com/bmxtools/raceday/app/modules/activity/infrastructure/repositories"
	racedb "github.com/bmxtools/raceday/app/modules/race/infrastructure/repositories"
	"github.com/bmxtools/raceday/app/broadcast"
	"github.com/bmxtools/raceday/app/shared/operation"
	"github.com/bmxtools/raceday/app/shared/results"
	"github.com/bmxtools/raceday/internal/observability"
)

// Reset schedules are relative to the moment of reset, in the club's
// timezone: registration closes an hour out, gates drop three hours out.
const (
	registrationLead = time.Hour
	raceStartLead    = 3 * time.Hour
)

// CounterUpdate is a proposed pair of staging counters.
type CounterUpdate struct {
	AtGate    int
	InStaging int
}

// CounterChange describes an applied counter mutation.
type CounterChange struct {
	OldAtGate    int
	OldInStaging int
	NewAtGate    int
	NewInStaging int
}

// RaceState is the full public view of a club's race day.
type RaceState struct {
	ClubSlug              string
	RaceUUID              uuid.UUID
	AtGate                int
	InStaging             int
	RegistrationDeadline  *time.Time
	RaceStartTime         *time.Time
	NotificationMessage   *string
	NotificationExpiresAt *time.Time
	NotificationActive    bool
	UpdatedAt             time.Time
}

// SettingsChange patches race settings; nil fields are left untouched.
type SettingsChange struct {
	RegistrationDeadline  *time.Time
	RaceStartTime         *time.Time
	NotificationMessage   *string
	NotificationExpiresAt *time.Time
}

// ClubRef is the slice of a club the race engine needs.
type ClubRef struct {
	UUID     uuid.UUID
	Slug     string
	Location *time.Location
}

// ClubDirectory resolves slugs to clubs. Soft-deleted clubs do not resolve.
type ClubDirectory interface {
	ActiveClubBySlug(ctx context.Context, db bun.IDB, slug string) (*ClubRef, error)
}

// ActivityRecorder is the slice of the activity module the race engine needs.
// Append runs inside the engine's transaction; Announce fires after commit.
type ActivityRecorder interface {
	Append(ctx context.Context, db bun.IDB, e activityservice.Entry) (*activityservice.Recorded, error)
	Announce(rec *activityservice.Recorded)
}

// Notifier is the slice of the broadcast dispatcher the race engine needs.
type Notifier interface {
	Publish(topic string, payload any)
}

// RaceService implements the Service interface. It owns activity recording
// and broadcasting for race mutations; the persistence layer stays pure.
type RaceService struct {
	repo     racedb.Repository
	clubs    ClubDirectory
	activity ActivityRecorder
	notifier Notifier
	deps     operation.Deps
}

// NewRaceService creates a new RaceService.
func NewRaceService(
	repo racedb.Repository,
	clubs ClubDirectory,
	activity ActivityRecorder,
	notifier Notifier,
	logger *slog.Logger,
	metrics observability.OperationMetrics,
	tracer trace.Tracer,
	db *bun.DB,
) *RaceService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RaceService{
		repo:     repo,
		clubs:    clubs,
		activity: activity,
		notifier: notifier,
		deps: operation.Deps{
			Logger:  logger,
			Metrics: metrics,
			Tracer:  tracer,
			DB:      db,
			Service: "RaceService",
		},
	}
}

// ValidateCounters checks a proposed pair against the ordering rules without
// touching storage. (0,0) is always valid.
func ValidateCounters(proposed CounterUpdate) error {
	if proposed.AtGate < 0 || proposed.InStaging < 0 {
		return ErrOutOfRange
	}
	if proposed.AtGate == 0 && proposed.InStaging == 0 {
		return nil
	}
	if proposed.AtGate >= proposed.InStaging {
		return ErrOrderingViolation
	}
	return nil
}

type counterOutcome struct {
	change    CounterChange
	clubSlug  string
	updatedAt time.Time
	rec       *activityservice.Recorded
}

// UpdateCounters applies a proposed counter pair to the club's active race.
// The race row is locked for the duration of the transaction, so concurrent
// submissions serialize and each validates against the state its predecessor
// left behind. Re-submitting the current pair succeeds and records a fresh
// activity entry.
func (s *RaceService) UpdateCounters(ctx context.Context, clubSlug string, proposed CounterUpdate) (*CounterChange, error) {
	result, err := operation.Run(ctx, s.deps, "UpdateCounters", clubSlug,
		func(ctx context.Context, db bun.IDB) (results.OperationResult[*counterOutcome, error], error) {
			club, err := s.clubs.ActiveClubBySlug(ctx, db, clubSlug)
			if err != nil {
				if errors.Is(err, ErrClubNotFound) {
					return results.FailureResult[*counterOutcome, error](ErrClubNotFound), nil
				}
				return results.OperationResult[*counterOutcome, error]{}, fmt.Errorf("failed to resolve club: %w", err)
			}

			race, err := s.lockOrCreateActiveRace(ctx, db, club)
			if err != nil {
				return results.OperationResult[*counterOutcome, error]{}, err
			}

			if err := ValidateCounters(proposed); err != nil {
				return results.FailureResult[*counterOutcome, error](err), nil
			}

			change := CounterChange{
				OldAtGate:    race.AtGate,
				OldInStaging: race.InStaging,
				NewAtGate:    proposed.AtGate,
				NewInStaging: proposed.InStaging,
			}
			if err := s.repo.UpdateCounters(ctx, db, race.UUID, proposed.AtGate, proposed.InStaging); err != nil {
				return results.OperationResult[*counterOutcome, error]{}, fmt.Errorf("failed to persist counters: %w", err)
			}

			now := time.Now().UTC()
			rec, err := s.activity.Append(ctx, db, activityservice.Entry{
				ClubUUID: club.UUID,
				ClubSlug: club.Slug,
				RaceUUID: &race.UUID,
				Type:     activitydb.TypeCounterUpdate,
				Message: fmt.Sprintf("Counters updated from (%d, %d) to (%d, %d)",
					change.OldAtGate, change.OldInStaging, change.NewAtGate, change.NewInStaging),
				Metadata: map[string]any{
					"old_at_gate":    change.OldAtGate,
					"old_in_staging": change.OldInStaging,
					"at_gate":        change.NewAtGate,
					"in_staging":     change.NewInStaging,
				},
			})
			if err != nil {
				return results.OperationResult[*counterOutcome, error]{}, fmt.Errorf("failed to record activity: %w", err)
			}

			return results.SuccessResult[*counterOutcome, error](&counterOutcome{
				change:    change,
				clubSlug:  club.Slug,
				updatedAt: now,
				rec:       rec,
			}), nil
		})
	if err != nil {
		return nil, err
	}
	if result.IsFailure() {
		return nil, *result.Failure
	}

	outcome := *result.Success
	s.activity.Announce(outcome.rec)
	s.broadcastRaceUpdate(outcome)
	return &outcome.change, nil
}

func (s *RaceService) broadcastRaceUpdate(o *counterOutcome) {
	if s.notifier == nil {
		return
	}
	payload := raceevents.RaceUpdatedPayloadV1{
		ClubSlug:     o.clubSlug,
		OldAtGate:    o.change.OldAtGate,
		OldInStaging: o.change.OldInStaging,
		AtGate:       o.change.NewAtGate,
		InStaging:    o.change.NewInStaging,
		UpdatedAt:    o.updatedAt,
	}
	s.notifier.Publish(broadcast.PublicTopic(o.clubSlug), payload)
	s.notifier.Publish(broadcast.AdminTopic(o.clubSlug), payload)
}

type resetOutcome struct {
	clubSlug             string
	resetType            string
	registrationDeadline time.Time
	raceStartTime        time.Time
	resetAt              time.Time
	rec                  *activityservice.Recorded
}

// ResetRace zeroes both counters unconditionally and regenerates the
// schedule: registration closes in an hour, the race starts in three, both in
// the club's timezone.
func (s *RaceService) ResetRace(ctx context.Context, clubSlug, resetType string) error {
	result, err := operation.Run(ctx, s.deps, "ResetRace", clubSlug,
		func(ctx context.Context, db bun.IDB) (results.OperationResult[*resetOutcome, error], error) {
			club, err := s.clubs.ActiveClubBySlug(ctx, db, clubSlug)
			if err != nil {
				if errors.Is(err, ErrClubNotFound) {
					return results.FailureResult[*resetOutcome, error](ErrClubNotFound), nil
				}
				return results.OperationResult[*resetOutcome, error]{}, fmt.Errorf("failed to resolve club: %w", err)
			}

			race, err := s.lockOrCreateActiveRace(ctx, db, club)
			if err != nil {
				return results.OperationResult[*resetOutcome, error]{}, err
			}

			if err := s.repo.UpdateCounters(ctx, db, race.UUID, 0, 0); err != nil {
				return results.OperationResult[*resetOutcome, error]{}, fmt.Errorf("failed to zero counters: %w", err)
			}

			now := time.Now().In(club.Location)
			regDeadline := now.Add(registrationLead)
			startTime := now.Add(raceStartLead)

			settings, err := s.repo.GetSettings(ctx, db, race.UUID)
			if err != nil {
				return results.OperationResult[*resetOutcome, error]{}, fmt.Errorf("failed to load settings: %w", err)
			}
			settings.RegistrationDeadline = &regDeadline
			settings.RaceStartTime = &startTime
			settings.NotificationMessage = nil
			settings.NotificationExpiresAt = nil
			if err := s.repo.UpdateSettings(ctx, db, settings); err != nil {
				return results.OperationResult[*resetOutcome, error]{}, fmt.Errorf("failed to update settings: %w", err)
			}

			rec, err := s.activity.Append(ctx, db, activityservice.Entry{
				ClubUUID: club.UUID,
				ClubSlug: club.Slug,
				RaceUUID: &race.UUID,
				Type:     activitydb.TypeResetPerformed,
				Message:  "Race reset: counters cleared and schedule regenerated",
				Metadata: map[string]any{
					"reset_type":            resetType,
					"registration_deadline": regDeadline,
					"race_start_time":       startTime,
				},
			})
			if err != nil {
				return results.OperationResult[*resetOutcome, error]{}, fmt.Errorf("failed to record activity: %w", err)
			}

			return results.SuccessResult[*resetOutcome, error](&resetOutcome{
				clubSlug:             club.Slug,
				resetType:            resetType,
				registrationDeadline: regDeadline,
				raceStartTime:        startTime,
				resetAt:              now,
				rec:                  rec,
			}), nil
		})
	if err != nil {
		return err
	}
	if result.IsFailure() {
		return *result.Failure
	}

	outcome := *result.Success
	s.activity.Announce(outcome.rec)
	if s.notifier != nil {
		payload := raceevents.RaceResetPayloadV1{
			ClubSlug:             outcome.clubSlug,
			ResetType:            outcome.resetType,
			RegistrationDeadline: &outcome.registrationDeadline,
			RaceStartTime:        &outcome.raceStartTime,
			ResetAt:              outcome.resetAt,
		}
		s.notifier.Publish(broadcast.PublicTopic(outcome.clubSlug), payload)
		s.notifier.Publish(broadcast.AdminTopic(outcome.clubSlug), payload)
	}
	return nil
}

// GetRaceState returns the race and its settings, creating both at (0,0) on
// first access.
func (s *RaceService) GetRaceState(ctx context.Context, clubSlug string) (*RaceState, error) {
	result, err := operation.Run(ctx, s.deps, "GetRaceState", clubSlug,
		func(ctx context.Context, db bun.IDB) (results.OperationResult[*RaceState, error], error) {
			club, err := s.clubs.ActiveClubBySlug(ctx, db, clubSlug)
			if err != nil {
				if errors.Is(err, ErrClubNotFound) {
					return results.FailureResult[*RaceState, error](ErrClubNotFound), nil
				}
				return results.OperationResult[*RaceState, error]{}, fmt.Errorf("failed to resolve club: %w", err)
			}

			race, settings, err := s.getOrCreateActiveRace(ctx, db, club, false)
			if err != nil {
				return results.OperationResult[*RaceState, error]{}, err
			}

			return results.SuccessResult[*RaceState, error](&RaceState{
				ClubSlug:              club.Slug,
				RaceUUID:              race.UUID,
				AtGate:                race.AtGate,
				InStaging:             race.InStaging,
				RegistrationDeadline:  settings.RegistrationDeadline,
				RaceStartTime:         settings.RaceStartTime,
				NotificationMessage:   settings.NotificationMessage,
				NotificationExpiresAt: settings.NotificationExpiresAt,
				NotificationActive:    settings.NotificationActive(),
				UpdatedAt:             race.UpdatedAt,
			}), nil
		})
	if err != nil {
		return nil, err
	}
	if result.IsFailure() {
		return nil, *result.Failure
	}
	return *result.Success, nil
}

type settingsOutcome struct {
	clubSlug     string
	notification *raceevents.NotificationPayloadV1
	recs         []*activityservice.Recorded
}

// UpdateSettings patches the active race's settings. A notification message
// with a future expiry additionally records notification_sent and pushes the
// message to the admin topic.
func (s *RaceService) UpdateSettings(ctx context.Context, clubSlug string, changes SettingsChange) error {
	result, err := operation.Run(ctx, s.deps, "UpdateSettings", clubSlug,
		func(ctx context.Context, db bun.IDB) (results.OperationResult[*settingsOutcome, error], error) {
			club, err := s.clubs.ActiveClubBySlug(ctx, db, clubSlug)
			if err != nil {
				if errors.Is(err, ErrClubNotFound) {
					return results.FailureResult[*settingsOutcome, error](ErrClubNotFound), nil
				}
				return results.OperationResult[*settingsOutcome, error]{}, fmt.Errorf("failed to resolve club: %w", err)
			}

			race, settings, err := s.getOrCreateActiveRace(ctx, db, club, true)
			if err != nil {
				return results.OperationResult[*settingsOutcome, error]{}, err
			}

			if changes.RegistrationDeadline != nil {
				settings.RegistrationDeadline = changes.RegistrationDeadline
			}
			if changes.RaceStartTime != nil {
				settings.RaceStartTime = changes.RaceStartTime
			}
			if changes.NotificationMessage != nil {
				settings.NotificationMessage = changes.NotificationMessage
			}
			if changes.NotificationExpiresAt != nil {
				settings.NotificationExpiresAt = changes.NotificationExpiresAt
			}
			if err := s.repo.UpdateSettings(ctx, db, settings); err != nil {
				return results.OperationResult[*settingsOutcome, error]{}, fmt.Errorf("failed to update settings: %w", err)
			}

			outcome := &settingsOutcome{clubSlug: club.Slug}

			rec, err := s.activity.Append(ctx, db, activityservice.Entry{
				ClubUUID: club.UUID,
				ClubSlug: club.Slug,
				RaceUUID: &race.UUID,
				Type:     activitydb.TypeSettingsChanged,
				Message:  "Race settings updated",
				Metadata: settingsMetadata(changes),
			})
			if err != nil {
				return results.OperationResult[*settingsOutcome, error]{}, fmt.Errorf("failed to record activity: %w", err)
			}
			outcome.recs = append(outcome.recs, rec)

			if changes.NotificationMessage != nil && settings.NotificationActive() {
				notifRec, err := s.activity.Append(ctx, db, activityservice.Entry{
					ClubUUID: club.UUID,
					ClubSlug: club.Slug,
					RaceUUID: &race.UUID,
					Type:     activitydb.TypeNotificationSent,
					Message:  fmt.Sprintf("Notification sent: %s", *settings.NotificationMessage),
					Metadata: map[string]any{
						"message":    *settings.NotificationMessage,
						"expires_at": *settings.NotificationExpiresAt,
					},
				})
				if err != nil {
					return results.OperationResult[*settingsOutcome, error]{}, fmt.Errorf("failed to record notification activity: %w", err)
				}
				outcome.recs = append(outcome.recs, notifRec)
				outcome.notification = &raceevents.NotificationPayloadV1{
					ClubSlug:  club.Slug,
					Message:   *settings.NotificationMessage,
					ExpiresAt: *settings.NotificationExpiresAt,
				}
			}

			return results.SuccessResult[*settingsOutcome, error](outcome), nil
		})
	if err != nil {
		return err
	}
	if result.IsFailure() {
		return *result.Failure
	}

	outcome := *result.Success
	for _, rec := range outcome.recs {
		s.activity.Announce(rec)
	}
	if outcome.notification != nil && s.notifier != nil {
		s.notifier.Publish(broadcast.AdminTopic(outcome.clubSlug), *outcome.notification)
	}
	return nil
}

// BootstrapRace seeds the initial active race and settings for a freshly
// created club, inside the caller's transaction.
func (s *RaceService) BootstrapRace(ctx context.Context, db bun.IDB, clubUUID uuid.UUID, loc *time.Location) error {
	now := time.Now().In(loc)
	regDeadline := now.Add(registrationLead)
	startTime := now.Add(raceStartLead)

	race := &racedb.Race{
		UUID:     uuid.New(),
		ClubUUID: clubUUID,
		Active:   true,
	}
	if err := s.repo.CreateRace(ctx, db, race); err != nil {
		return err
	}
	return s.repo.CreateSettings(ctx, db, &racedb.RaceSetting{
		UUID:                 uuid.New(),
		RaceUUID:             race.UUID,
		RegistrationDeadline: &regDeadline,
		RaceStartTime:        &startTime,
	})
}

// HasRace reports whether the club has any race history.
func (s *RaceService) HasRace(ctx context.Context, db bun.IDB, clubUUID uuid.UUID) (bool, error) {
	return s.repo.HasRace(ctx, db, clubUUID)
}

// lockOrCreateActiveRace is getOrCreateActiveRace for mutations: the race row
// comes back locked.
func (s *RaceService) lockOrCreateActiveRace(ctx context.Context, db bun.IDB, club *ClubRef) (*racedb.Race, error) {
	race, _, err := s.getOrCreateActiveRace(ctx, db, club, true)
	return race, err
}

func (s *RaceService) getOrCreateActiveRace(ctx context.Context, db bun.IDB, club *ClubRef, forUpdate bool) (*racedb.Race, *racedb.RaceSetting, error) {
	race, err := s.repo.GetActiveRace(ctx, db, club.UUID, forUpdate)
	if err != nil {
		if !errors.Is(err, racedb.ErrNotFound) {
			return nil, nil, fmt.Errorf("failed to get active race: %w", err)
		}
		if err := s.BootstrapRace(ctx, db, club.UUID, club.Location); err != nil {
			return nil, nil, fmt.Errorf("failed to create active race: %w", err)
		}
		race, err = s.repo.GetActiveRace(ctx, db, club.UUID, forUpdate)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to reload active race: %w", err)
		}
	}

	settings, err := s.repo.GetSettings(ctx, db, race.UUID)
	if err != nil {
		if !errors.Is(err, racedb.ErrNotFound) {
			return nil, nil, fmt.Errorf("failed to get settings: %w", err)
		}
		settings = &racedb.RaceSetting{
			UUID:     uuid.New(),
			RaceUUID: race.UUID,
		}
		if err := s.repo.CreateSettings(ctx, db, settings); err != nil {
			return nil, nil, fmt.Errorf("failed to create settings: %w", err)
		}
	}

	return race, settings, nil
}

func settingsMetadata(changes SettingsChange) map[string]any {
	md := map[string]any{}
	if changes.RegistrationDeadline != nil {
		md["registration_deadline"] = *changes.RegistrationDeadline
	}
	if changes.RaceStartTime != nil {
		md["race_start_time"] = *changes.RaceStartTime
	}
	if changes.NotificationMessage != nil {
		md["notification_message"] = *changes.NotificationMessage
	}
	if changes.NotificationExpiresAt != nil {
		md["notification_expires_at"] = *changes.NotificationExpiresAt
	}
	return md
}
