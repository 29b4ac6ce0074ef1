package clubservice

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/trace/noop"

	clubdb "github.com/bmxtools/raceday/app/modules/club/infrastructure/repositories"
)

func newTestService(repo clubdb.Repository, races RaceDirectory, users UserProvisioner, granter PermissionGranter) *ClubService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tracer := noop.NewTracerProvider().Tracer("test")
	return NewClubService(repo, races, users, granter, logger, nil, tracer, nil)
}

func TestCreateClub(t *testing.T) {
	t.Run("creates the club and seeds its race", func(t *testing.T) {
		var created *clubdb.Club
		repo := &FakeRepository{
			CreateFn: func(_ context.Context, _ bun.IDB, club *clubdb.Club) error {
				created = club
				return nil
			},
		}
		races := &FakeRaceDirectory{}
		svc := newTestService(repo, races, &FakeUserProvisioner{}, &FakePermissionGranter{})

		got, err := svc.CreateClub(context.Background(), CreateClubInput{
			Name: "  Mesa BMX  ",
			Slug: "Mesa-BMX",
		})
		require.NoError(t, err)

		assert.Equal(t, "Mesa BMX", got.Name)
		assert.Equal(t, "mesa-bmx", got.Slug)
		assert.Equal(t, "America/Denver", got.Timezone)
		assert.Nil(t, got.OwnerUserID)
		assert.Empty(t, got.AdminPassword)

		require.NotNil(t, created)
		require.Len(t, races.Bootstrapped, 1)
		assert.Equal(t, created.UUID, races.Bootstrapped[0])
	})

	t.Run("bootstraps an admin when an email is given", func(t *testing.T) {
		adminUUID := uuid.New()
		var ownerSet uuid.UUID
		repo := &FakeRepository{
			SetOwnerFn: func(_ context.Context, _ bun.IDB, _, ownerUUID uuid.UUID) error {
				ownerSet = ownerUUID
				return nil
			},
		}
		users := &FakeUserProvisioner{
			EnsureUserFn: func(_ context.Context, _ bun.IDB, email string) (uuid.UUID, string, error) {
				assert.Equal(t, "admin@mesa.test", email)
				return adminUUID, "generated-secret", nil
			},
		}
		granter := &FakePermissionGranter{}
		svc := newTestService(repo, &FakeRaceDirectory{}, users, granter)

		got, err := svc.CreateClub(context.Background(), CreateClubInput{
			Name:       "Mesa BMX",
			Slug:       "mesa-bmx",
			Timezone:   "America/Phoenix",
			AdminEmail: "admin@mesa.test",
		})
		require.NoError(t, err)

		assert.Equal(t, "generated-secret", got.AdminPassword)
		require.NotNil(t, got.OwnerUserID)
		assert.Equal(t, adminUUID, *got.OwnerUserID)
		assert.Equal(t, adminUUID, ownerSet)

		require.Len(t, granter.Granted, 1)
		assert.Equal(t, "club_admin", granter.Granted[0].Role)
	})

	tests := []struct {
		name    string
		input   CreateClubInput
		wantErr error
	}{
		{name: "blank name", input: CreateClubInput{Name: "  ", Slug: "mesa-bmx"}, wantErr: ErrNameRequired},
		{name: "uppercase after trim still invalid characters", input: CreateClubInput{Name: "Mesa", Slug: "mesa bmx"}, wantErr: ErrInvalidSlug},
		{name: "empty slug", input: CreateClubInput{Name: "Mesa", Slug: ""}, wantErr: ErrInvalidSlug},
		{name: "underscore in slug", input: CreateClubInput{Name: "Mesa", Slug: "mesa_bmx"}, wantErr: ErrInvalidSlug},
		{name: "bogus timezone", input: CreateClubInput{Name: "Mesa", Slug: "mesa-bmx", Timezone: "Mars/Olympus"}, wantErr: ErrInvalidTimezone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(&FakeRepository{}, &FakeRaceDirectory{}, &FakeUserProvisioner{}, &FakePermissionGranter{})
			_, err := svc.CreateClub(context.Background(), tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("duplicate slug", func(t *testing.T) {
		repo := &FakeRepository{
			CreateFn: func(context.Context, bun.IDB, *clubdb.Club) error {
				return clubdb.ErrDuplicateSlug
			},
		}
		svc := newTestService(repo, &FakeRaceDirectory{}, &FakeUserProvisioner{}, &FakePermissionGranter{})
		_, err := svc.CreateClub(context.Background(), CreateClubInput{Name: "Mesa", Slug: "mesa-bmx"})
		assert.ErrorIs(t, err, clubdb.ErrDuplicateSlug)
	})

	t.Run("bootstrap failure aborts creation", func(t *testing.T) {
		boom := errors.New("race insert failed")
		races := &FakeRaceDirectory{
			BootstrapRaceFn: func(context.Context, bun.IDB, uuid.UUID, *time.Location) error {
				return boom
			},
		}
		svc := newTestService(&FakeRepository{}, races, &FakeUserProvisioner{}, &FakePermissionGranter{})
		_, err := svc.CreateClub(context.Background(), CreateClubInput{Name: "Mesa", Slug: "mesa-bmx"})
		assert.ErrorIs(t, err, boom)
	})
}

func TestUpdateClub(t *testing.T) {
	clubUUID := uuid.New()
	existing := func() *clubdb.Club {
		return &clubdb.Club{
			UUID:     clubUUID,
			Name:     "Mesa BMX",
			Slug:     "mesa-bmx",
			Timezone: "America/Denver",
		}
	}
	repoWith := func(club *clubdb.Club) *FakeRepository {
		return &FakeRepository{
			GetByUUIDFn: func(context.Context, bun.IDB, uuid.UUID, bool) (*clubdb.Club, error) {
				return club, nil
			},
		}
	}
	strPtr := func(s string) *string { return &s }

	t.Run("patches only the given fields", func(t *testing.T) {
		club := existing()
		svc := newTestService(repoWith(club), &FakeRaceDirectory{}, &FakeUserProvisioner{}, &FakePermissionGranter{})

		info, err := svc.UpdateClub(context.Background(), clubUUID, UpdateClubInput{
			Name:     strPtr("Mesa BMX Raceway"),
			Location: strPtr(" Mesa, AZ "),
		})
		require.NoError(t, err)
		assert.Equal(t, "Mesa BMX Raceway", info.Name)
		assert.Equal(t, "Mesa, AZ", info.Location)
		assert.Equal(t, "mesa-bmx", info.Slug)
		assert.Equal(t, "America/Denver", info.Timezone)
	})

	t.Run("slug change allowed before any race", func(t *testing.T) {
		club := existing()
		svc := newTestService(repoWith(club), &FakeRaceDirectory{}, &FakeUserProvisioner{}, &FakePermissionGranter{})

		info, err := svc.UpdateClub(context.Background(), clubUUID, UpdateClubInput{Slug: strPtr("Mesa-Raceway")})
		require.NoError(t, err)
		assert.Equal(t, "mesa-raceway", info.Slug)
	})

	t.Run("slug frozen once race history exists", func(t *testing.T) {
		club := existing()
		races := &FakeRaceDirectory{
			HasRaceFn: func(context.Context, bun.IDB, uuid.UUID) (bool, error) { return true, nil },
		}
		svc := newTestService(repoWith(club), races, &FakeUserProvisioner{}, &FakePermissionGranter{})

		_, err := svc.UpdateClub(context.Background(), clubUUID, UpdateClubInput{Slug: strPtr("mesa-raceway")})
		assert.ErrorIs(t, err, ErrSlugImmutable)
	})

	t.Run("same slug is not a change", func(t *testing.T) {
		club := existing()
		races := &FakeRaceDirectory{
			HasRaceFn: func(context.Context, bun.IDB, uuid.UUID) (bool, error) {
				t.Fatal("race history should not be consulted for an unchanged slug")
				return true, nil
			},
		}
		svc := newTestService(repoWith(club), races, &FakeUserProvisioner{}, &FakePermissionGranter{})

		_, err := svc.UpdateClub(context.Background(), clubUUID, UpdateClubInput{Slug: strPtr("MESA-BMX")})
		require.NoError(t, err)
	})

	t.Run("invalid timezone", func(t *testing.T) {
		svc := newTestService(repoWith(existing()), &FakeRaceDirectory{}, &FakeUserProvisioner{}, &FakePermissionGranter{})
		_, err := svc.UpdateClub(context.Background(), clubUUID, UpdateClubInput{Timezone: strPtr("Nowhere/Else")})
		assert.ErrorIs(t, err, ErrInvalidTimezone)
	})

	t.Run("unknown club", func(t *testing.T) {
		svc := newTestService(&FakeRepository{}, &FakeRaceDirectory{}, &FakeUserProvisioner{}, &FakePermissionGranter{})
		_, err := svc.UpdateClub(context.Background(), clubUUID, UpdateClubInput{Name: strPtr("X")})
		assert.ErrorIs(t, err, clubdb.ErrNotFound)
	})
}

func TestGetBySlug(t *testing.T) {
	deletedAt := time.Now().UTC()
	club := &clubdb.Club{UUID: uuid.New(), Name: "Mesa BMX", Slug: "mesa-bmx", DeletedAt: &deletedAt}
	repo := &FakeRepository{
		GetBySlugFn: func(_ context.Context, _ bun.IDB, slug string, includeDeleted bool) (*clubdb.Club, error) {
			if slug == club.Slug && includeDeleted {
				return club, nil
			}
			return nil, clubdb.ErrNotFound
		},
	}
	svc := newTestService(repo, &FakeRaceDirectory{}, &FakeUserProvisioner{}, &FakePermissionGranter{})

	_, err := svc.GetBySlug(context.Background(), "mesa-bmx", false)
	assert.ErrorIs(t, err, clubdb.ErrNotFound)

	info, err := svc.GetBySlug(context.Background(), "mesa-bmx", true)
	require.NoError(t, err)
	assert.NotNil(t, info.DeletedAt)
}

func TestDeleteLifecycle(t *testing.T) {
	clubUUID := uuid.New()

	t.Run("soft delete stamps the time", func(t *testing.T) {
		var stamped time.Time
		repo := &FakeRepository{
			SoftDeleteFn: func(_ context.Context, _ bun.IDB, _ uuid.UUID, at time.Time) error {
				stamped = at
				return nil
			},
		}
		svc := newTestService(repo, &FakeRaceDirectory{}, &FakeUserProvisioner{}, &FakePermissionGranter{})
		require.NoError(t, svc.SoftDelete(context.Background(), clubUUID))
		assert.WithinDuration(t, time.Now().UTC(), stamped, 5*time.Second)
	})

	t.Run("restore and hard delete propagate not found", func(t *testing.T) {
		repo := &FakeRepository{
			RestoreFn:    func(context.Context, bun.IDB, uuid.UUID) error { return clubdb.ErrNotFound },
			HardDeleteFn: func(context.Context, bun.IDB, uuid.UUID) error { return clubdb.ErrNotFound },
		}
		svc := newTestService(repo, &FakeRaceDirectory{}, &FakeUserProvisioner{}, &FakePermissionGranter{})
		assert.ErrorIs(t, svc.Restore(context.Background(), clubUUID), clubdb.ErrNotFound)
		assert.ErrorIs(t, svc.HardDelete(context.Background(), clubUUID), clubdb.ErrNotFound)
	})
}

func TestList(t *testing.T) {
	var gotFilter clubdb.ListFilter
	repo := &FakeRepository{
		ListFn: func(_ context.Context, _ bun.IDB, filter clubdb.ListFilter) ([]clubdb.Club, error) {
			gotFilter = filter
			return []clubdb.Club{
				{UUID: uuid.New(), Name: "Mesa BMX", Slug: "mesa-bmx"},
				{UUID: uuid.New(), Name: "Tempe BMX", Slug: "tempe-bmx"},
			}, nil
		},
	}
	svc := newTestService(repo, &FakeRaceDirectory{}, &FakeUserProvisioner{}, &FakePermissionGranter{})

	infos, err := svc.List(context.Background(), clubdb.ListFilter{
		Search: "bmx",
		Status: clubdb.StatusActive,
		SortBy: "name",
		Limit:  50,
	})
	require.NoError(t, err)
	assert.Len(t, infos, 2)
	assert.Equal(t, clubdb.StatusActive, gotFilter.Status)
	assert.Equal(t, 50, gotFilter.Limit)
}
