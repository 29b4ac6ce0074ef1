package raceservice

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	activitydb "github.com/bmxtools/raceday/app/modules/activity/infrastructure/repositories"
	racedb "github.com/bmxtools/raceday/app/modules/race/infrastructure/repositories"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

func newTestService(repo racedb.Repository, clubs ClubDirectory, activity ActivityRecorder, notifier Notifier) *RaceService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tracer := noop.NewTracerProvider().Tracer("test")
	return NewRaceService(repo, clubs, activity, notifier, logger, nil, tracer, nil)
}

func TestValidateCounters(t *testing.T) {
	tests := []struct {
		name     string
		proposed CounterUpdate
		wantErr  error
	}{
		{name: "both zero", proposed: CounterUpdate{0, 0}},
		{name: "ordered pair", proposed: CounterUpdate{3, 5}},
		{name: "adjacent pair", proposed: CounterUpdate{4, 5}},
		{name: "zero at gate", proposed: CounterUpdate{0, 1}},
		{name: "negative at gate", proposed: CounterUpdate{-1, 5}, wantErr: ErrOutOfRange},
		{name: "negative staging", proposed: CounterUpdate{0, -1}, wantErr: ErrOutOfRange},
		{name: "equal nonzero", proposed: CounterUpdate{5, 5}, wantErr: ErrOrderingViolation},
		{name: "inverted pair", proposed: CounterUpdate{5, 3}, wantErr: ErrOrderingViolation},
		{name: "staging zero gate set", proposed: CounterUpdate{3, 0}, wantErr: ErrOrderingViolation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCounters(tt.proposed)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestUpdateCounters(t *testing.T) {
	club := &ClubRef{UUID: uuid.New(), Slug: "mesa-bmx", Location: time.UTC}

	t.Run("applies change and broadcasts", func(t *testing.T) {
		repo := newMemoryRepository()
		activity := &FakeActivityRecorder{}
		notifier := &FakeNotifier{}
		svc := newTestService(repo, directoryFor(club), activity, notifier)

		change, err := svc.UpdateCounters(context.Background(), "mesa-bmx", CounterUpdate{AtGate: 3, InStaging: 5})
		require.NoError(t, err)
		assert.Equal(t, 0, change.OldAtGate)
		assert.Equal(t, 3, change.NewAtGate)
		assert.Equal(t, 5, change.NewInStaging)

		require.Len(t, activity.Appended, 1)
		assert.Equal(t, activitydb.TypeCounterUpdate, activity.Appended[0].Type)
		assert.Len(t, activity.Announced, 1)

		assert.Equal(t, []string{"club.mesa-bmx.public", "club.mesa-bmx.admin"}, notifier.Topics())
	})

	t.Run("rejects inverted pair without side effects", func(t *testing.T) {
		repo := newMemoryRepository()
		activity := &FakeActivityRecorder{}
		notifier := &FakeNotifier{}
		svc := newTestService(repo, directoryFor(club), activity, notifier)

		_, err := svc.UpdateCounters(context.Background(), "mesa-bmx", CounterUpdate{AtGate: 5, InStaging: 3})
		require.ErrorIs(t, err, ErrOrderingViolation)
		assert.Empty(t, activity.Announced)
		assert.Empty(t, notifier.Published)
	})

	t.Run("unknown club", func(t *testing.T) {
		svc := newTestService(newMemoryRepository(), &FakeClubDirectory{}, &FakeActivityRecorder{}, &FakeNotifier{})
		_, err := svc.UpdateCounters(context.Background(), "ghost", CounterUpdate{AtGate: 1, InStaging: 2})
		assert.ErrorIs(t, err, ErrClubNotFound)
	})

	t.Run("creates race on first mutation", func(t *testing.T) {
		repo := newMemoryRepository()
		svc := newTestService(repo, directoryFor(club), &FakeActivityRecorder{}, &FakeNotifier{})

		_, err := svc.UpdateCounters(context.Background(), "mesa-bmx", CounterUpdate{AtGate: 0, InStaging: 1})
		require.NoError(t, err)
		require.NotNil(t, repo.race)
		assert.True(t, repo.race.Active)
		assert.Equal(t, club.UUID, repo.race.ClubUUID)
	})

	t.Run("storage failure surfaces", func(t *testing.T) {
		repo := newMemoryRepository()
		boom := errors.New("connection reset")
		repo.UpdateCountersFn = func(context.Context, bun.IDB, uuid.UUID, int, int) error {
			return boom
		}
		svc := newTestService(repo, directoryFor(club), &FakeActivityRecorder{}, &FakeNotifier{})

		_, err := svc.UpdateCounters(context.Background(), "mesa-bmx", CounterUpdate{AtGate: 1, InStaging: 2})
		assert.ErrorIs(t, err, boom)
	})
}

func TestResetRace(t *testing.T) {
	denver, err := time.LoadLocation("America/Denver")
	require.NoError(t, err)
	club := &ClubRef{UUID: uuid.New(), Slug: "mesa-bmx", Location: denver}

	repo := newMemoryRepository()
	activity := &FakeActivityRecorder{}
	notifier := &FakeNotifier{}
	svc := newTestService(repo, directoryFor(club), activity, notifier)

	// Seed non-zero counters and an active notification.
	_, err = svc.UpdateCounters(context.Background(), "mesa-bmx", CounterUpdate{AtGate: 3, InStaging: 5})
	require.NoError(t, err)
	msg := "gates are sticky"
	expires := time.Now().Add(time.Hour)
	repo.settings.NotificationMessage = &msg
	repo.settings.NotificationExpiresAt = &expires

	before := time.Now()
	require.NoError(t, svc.ResetRace(context.Background(), "mesa-bmx", "manual"))

	assert.Equal(t, 0, repo.race.AtGate)
	assert.Equal(t, 0, repo.race.InStaging)
	assert.Nil(t, repo.settings.NotificationMessage)
	assert.Nil(t, repo.settings.NotificationExpiresAt)

	require.NotNil(t, repo.settings.RegistrationDeadline)
	require.NotNil(t, repo.settings.RaceStartTime)
	assert.WithinDuration(t, before.Add(time.Hour), *repo.settings.RegistrationDeadline, 5*time.Second)
	assert.WithinDuration(t, before.Add(3*time.Hour), *repo.settings.RaceStartTime, 5*time.Second)
	assert.Equal(t, denver.String(), repo.settings.RegistrationDeadline.Location().String())

	last := activity.Appended[len(activity.Appended)-1]
	assert.Equal(t, activitydb.TypeResetPerformed, last.Type)
	assert.Equal(t, "manual", last.Metadata["reset_type"])
}

func TestGetRaceState(t *testing.T) {
	club := &ClubRef{UUID: uuid.New(), Slug: "mesa-bmx", Location: time.UTC}

	t.Run("creates race and settings on first read", func(t *testing.T) {
		repo := newMemoryRepository()
		svc := newTestService(repo, directoryFor(club), &FakeActivityRecorder{}, &FakeNotifier{})

		state, err := svc.GetRaceState(context.Background(), "mesa-bmx")
		require.NoError(t, err)
		assert.Equal(t, 0, state.AtGate)
		assert.Equal(t, 0, state.InStaging)
		assert.Equal(t, "mesa-bmx", state.ClubSlug)
		assert.NotNil(t, repo.race)
		assert.NotNil(t, repo.settings)
	})

	t.Run("expired notification reads inactive", func(t *testing.T) {
		repo := newMemoryRepository()
		svc := newTestService(repo, directoryFor(club), &FakeActivityRecorder{}, &FakeNotifier{})

		_, err := svc.GetRaceState(context.Background(), "mesa-bmx")
		require.NoError(t, err)

		msg := "stale"
		past := time.Now().Add(-time.Minute)
		repo.settings.NotificationMessage = &msg
		repo.settings.NotificationExpiresAt = &past

		state, err := svc.GetRaceState(context.Background(), "mesa-bmx")
		require.NoError(t, err)
		assert.False(t, state.NotificationActive)
		assert.NotNil(t, state.NotificationMessage)
	})
}

func TestUpdateSettings(t *testing.T) {
	club := &ClubRef{UUID: uuid.New(), Slug: "mesa-bmx", Location: time.UTC}

	t.Run("active notification broadcasts to admin topic only", func(t *testing.T) {
		repo := newMemoryRepository()
		activity := &FakeActivityRecorder{}
		notifier := &FakeNotifier{}
		svc := newTestService(repo, directoryFor(club), activity, notifier)

		msg := "track walk at noon"
		expires := time.Now().Add(2 * time.Hour)
		err := svc.UpdateSettings(context.Background(), "mesa-bmx", SettingsChange{
			NotificationMessage:   &msg,
			NotificationExpiresAt: &expires,
		})
		require.NoError(t, err)

		types := make([]string, len(activity.Appended))
		for i, e := range activity.Appended {
			types[i] = e.Type
		}
		assert.Equal(t, []string{activitydb.TypeSettingsChanged, activitydb.TypeNotificationSent}, types)
		assert.Equal(t, []string{"club.mesa-bmx.admin"}, notifier.Topics())
	})

	t.Run("schedule-only patch records settings change alone", func(t *testing.T) {
		repo := newMemoryRepository()
		activity := &FakeActivityRecorder{}
		notifier := &FakeNotifier{}
		svc := newTestService(repo, directoryFor(club), activity, notifier)

		deadline := time.Now().Add(30 * time.Minute)
		err := svc.UpdateSettings(context.Background(), "mesa-bmx", SettingsChange{
			RegistrationDeadline: &deadline,
		})
		require.NoError(t, err)

		require.Len(t, activity.Appended, 1)
		assert.Equal(t, activitydb.TypeSettingsChanged, activity.Appended[0].Type)
		assert.Empty(t, notifier.Published)
		require.NotNil(t, repo.settings.RegistrationDeadline)
		assert.True(t, deadline.Equal(*repo.settings.RegistrationDeadline))
	})
}

func TestBootstrapRace(t *testing.T) {
	repo := newMemoryRepository()
	svc := newTestService(repo, &FakeClubDirectory{}, &FakeActivityRecorder{}, &FakeNotifier{})

	clubUUID := uuid.New()
	require.NoError(t, svc.BootstrapRace(context.Background(), nil, clubUUID, time.UTC))

	require.NotNil(t, repo.race)
	assert.True(t, repo.race.Active)
	assert.Equal(t, clubUUID, repo.race.ClubUUID)
	require.NotNil(t, repo.settings)
	assert.Equal(t, repo.race.UUID, repo.settings.RaceUUID)
	require.NotNil(t, repo.settings.RegistrationDeadline)
	require.NotNil(t, repo.settings.RaceStartTime)
}
