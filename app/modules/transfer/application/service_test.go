package transferservice

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

	transferevents "github.com/bmxtools/raceday/app/events/transfer"
	transferdb "github.com/bmxtools/raceday/app/modules/transfer/infrastructure/repositories"
)

func newTestService(repo transferdb.Repository, clubs ClubGateway, users UserGateway, access SuperAdminChecker, notifier Notifier) *TransferService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tracer := noop.NewTracerProvider().Tracer("test")
	return NewTransferService(repo, clubs, users, access, notifier, logger, nil, tracer, nil)
}

func TestInitiate(t *testing.T) {
	club := &ClubRef{UUID: uuid.New(), Slug: "mesa-bmx"}
	owner := &UserRef{UUID: uuid.New(), Email: "owner@mesa.test"}
	target := &UserRef{UUID: uuid.New(), Email: "newowner@mesa.test"}

	t.Run("creates a claimable transfer and notifies", func(t *testing.T) {
		repo := newMemoryRepository()
		notifier := &FakeNotifier{}
		svc := newTestService(repo, gatewayFor(club), gatewayForUsers(owner, target), &FakeSuperAdminChecker{}, notifier)

		info, err := svc.Initiate(context.Background(), "mesa-bmx", owner.UUID, "NewOwner@mesa.test")
		require.NoError(t, err)

		assert.Len(t, info.Token, 43)
		assert.True(t, info.Active)
		assert.Equal(t, 3, info.DaysUntilExpiry)
		assert.Equal(t, "newowner@mesa.test", info.ToUserEmail)
		assert.Equal(t, club.UUID, info.ClubUUID)
		assert.WithinDuration(t, time.Now().UTC().Add(transferdb.TransferTTL), info.ExpiresAt, 5*time.Second)

		require.Len(t, notifier.Published, 1)
		assert.Equal(t, transferevents.InitiatedV1, notifier.Published[0].Topic)
		payload, ok := notifier.Published[0].Payload.(transferevents.InitiatedPayloadV1)
		require.True(t, ok)
		assert.Equal(t, "mesa-bmx", payload.ClubSlug)
		assert.Equal(t, owner.Email, payload.FromEmail)
		assert.Equal(t, info.Token, payload.Token)
	})

	t.Run("rejects self transfer regardless of case", func(t *testing.T) {
		repo := newMemoryRepository()
		svc := newTestService(repo, gatewayFor(club), gatewayForUsers(owner, target), &FakeSuperAdminChecker{}, &FakeNotifier{})

		_, err := svc.Initiate(context.Background(), "mesa-bmx", owner.UUID, "Owner@Mesa.Test")
		assert.ErrorIs(t, err, ErrSelfTransfer)
	})

	t.Run("rejects unknown target email", func(t *testing.T) {
		repo := newMemoryRepository()
		notifier := &FakeNotifier{}
		svc := newTestService(repo, gatewayFor(club), gatewayForUsers(owner), &FakeSuperAdminChecker{}, notifier)

		_, err := svc.Initiate(context.Background(), "mesa-bmx", owner.UUID, "stranger@mesa.test")
		assert.ErrorIs(t, err, ErrTargetUserNotFound)
		assert.Empty(t, notifier.Published)
	})

	t.Run("rejects unknown club", func(t *testing.T) {
		svc := newTestService(newMemoryRepository(), gatewayFor(club), gatewayForUsers(owner, target), &FakeSuperAdminChecker{}, &FakeNotifier{})

		_, err := svc.Initiate(context.Background(), "no-such-club", owner.UUID, target.Email)
		assert.ErrorIs(t, err, ErrClubNotFound)
	})

	t.Run("displaces the prior active transfer", func(t *testing.T) {
		repo := newMemoryRepository()
		svc := newTestService(repo, gatewayFor(club), gatewayForUsers(owner, target), &FakeSuperAdminChecker{}, &FakeNotifier{})

		first, err := svc.Initiate(context.Background(), "mesa-bmx", owner.UUID, target.Email)
		require.NoError(t, err)
		second, err := svc.Initiate(context.Background(), "mesa-bmx", owner.UUID, target.Email)
		require.NoError(t, err)
		assert.NotEqual(t, first.Token, second.Token)

		stored := repo.get(first.UUID)
		require.NotNil(t, stored)
		assert.True(t, stored.Cancelled())

		active, err := svc.ActiveForClub(context.Background(), "mesa-bmx")
		require.NoError(t, err)
		assert.Equal(t, second.UUID, active.UUID)
	})

	t.Run("regenerates the token on a collision", func(t *testing.T) {
		repo := newMemoryRepository()
		collisions := 0
		inner := repo.CreateFn
		repo.CreateFn = func(ctx context.Context, db bun.IDB, transfer *transferdb.OwnershipTransfer) error {
			if collisions == 0 {
				collisions++
				return transferdb.ErrDuplicateToken
			}
			return inner(ctx, db, transfer)
		}
		svc := newTestService(repo, gatewayFor(club), gatewayForUsers(owner, target), &FakeSuperAdminChecker{}, &FakeNotifier{})

		info, err := svc.Initiate(context.Background(), "mesa-bmx", owner.UUID, target.Email)
		require.NoError(t, err)
		assert.Equal(t, 1, collisions)
		assert.Len(t, info.Token, 43)
	})

	t.Run("gives up after persistent collisions", func(t *testing.T) {
		repo := &FakeRepository{
			CreateFn: func(context.Context, bun.IDB, *transferdb.OwnershipTransfer) error {
				return transferdb.ErrDuplicateToken
			},
		}
		svc := newTestService(repo, gatewayFor(club), gatewayForUsers(owner, target), &FakeSuperAdminChecker{}, &FakeNotifier{})

		_, err := svc.Initiate(context.Background(), "mesa-bmx", owner.UUID, target.Email)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "token collisions")
	})
}

func TestComplete(t *testing.T) {
	club := &ClubRef{UUID: uuid.New(), Slug: "mesa-bmx"}
	owner := &UserRef{UUID: uuid.New(), Email: "owner@mesa.test"}
	target := &UserRef{UUID: uuid.New(), Email: "newowner@mesa.test"}

	t.Run("reassigns ownership and closes the transfer", func(t *testing.T) {
		repo := newMemoryRepository()
		clubs := gatewayFor(club)
		notifier := &FakeNotifier{}
		svc := newTestService(repo, clubs, gatewayForUsers(owner, target), &FakeSuperAdminChecker{}, notifier)

		initiated, err := svc.Initiate(context.Background(), "mesa-bmx", owner.UUID, target.Email)
		require.NoError(t, err)

		completed, err := svc.Complete(context.Background(), initiated.Token)
		require.NoError(t, err)
		require.NotNil(t, completed.CompletedAt)
		assert.False(t, completed.Active)

		newOwner, ok := clubs.ownerOf(club.UUID)
		require.True(t, ok)
		assert.Equal(t, target.UUID, newOwner)

		topics := notifier.Topics()
		require.Len(t, topics, 2)
		assert.Equal(t, transferevents.CompletedV1, topics[1])
		payload, ok := notifier.Published[1].Payload.(transferevents.CompletedPayloadV1)
		require.True(t, ok)
		assert.Equal(t, target.UUID.String(), payload.NewOwnerID)
	})

	t.Run("rejects an unknown token", func(t *testing.T) {
		svc := newTestService(newMemoryRepository(), gatewayFor(club), gatewayForUsers(owner, target), &FakeSuperAdminChecker{}, &FakeNotifier{})

		_, err := svc.Complete(context.Background(), "nope")
		assert.ErrorIs(t, err, ErrTransferNotFound)
	})

	t.Run("rejects an expired transfer", func(t *testing.T) {
		expired := &transferdb.OwnershipTransfer{
			UUID:        uuid.New(),
			ClubUUID:    club.UUID,
			FromUserID:  owner.UUID,
			ToUserEmail: target.Email,
			Token:       "expired-token",
			ExpiresAt:   time.Now().Add(-time.Hour),
		}
		repo := &FakeRepository{
			GetByTokenFn: func(_ context.Context, _ bun.IDB, token string) (*transferdb.OwnershipTransfer, error) {
				return expired, nil
			},
		}
		svc := newTestService(repo, gatewayFor(club), gatewayForUsers(owner, target), &FakeSuperAdminChecker{}, &FakeNotifier{})

		_, err := svc.Complete(context.Background(), expired.Token)
		assert.ErrorIs(t, err, ErrExpired)
	})

	t.Run("rejects a second completion", func(t *testing.T) {
		repo := newMemoryRepository()
		svc := newTestService(repo, gatewayFor(club), gatewayForUsers(owner, target), &FakeSuperAdminChecker{}, &FakeNotifier{})

		initiated, err := svc.Initiate(context.Background(), "mesa-bmx", owner.UUID, target.Email)
		require.NoError(t, err)
		_, err = svc.Complete(context.Background(), initiated.Token)
		require.NoError(t, err)

		_, err = svc.Complete(context.Background(), initiated.Token)
		assert.ErrorIs(t, err, ErrNotPending)
	})

	t.Run("maps a raced completion to not pending", func(t *testing.T) {
		repo := newMemoryRepository()
		svc := newTestService(repo, gatewayFor(club), gatewayForUsers(owner, target), &FakeSuperAdminChecker{}, &FakeNotifier{})

		initiated, err := svc.Initiate(context.Background(), "mesa-bmx", owner.UUID, target.Email)
		require.NoError(t, err)

		// The row read as pending, but another caller closed it before the
		// guarded update ran.
		repo.MarkCompletedFn = func(context.Context, bun.IDB, uuid.UUID, time.Time) error {
			return transferdb.ErrNotPending
		}
		_, err = svc.Complete(context.Background(), initiated.Token)
		assert.ErrorIs(t, err, ErrNotPending)
	})

	t.Run("rejects when the target account disappeared", func(t *testing.T) {
		repo := newMemoryRepository()
		users := gatewayForUsers(owner, target)
		svc := newTestService(repo, gatewayFor(club), users, &FakeSuperAdminChecker{}, &FakeNotifier{})

		initiated, err := svc.Initiate(context.Background(), "mesa-bmx", owner.UUID, target.Email)
		require.NoError(t, err)

		users.ByEmailFn = func(context.Context, bun.IDB, string) (*UserRef, error) {
			return nil, ErrTargetUserNotFound
		}
		_, err = svc.Complete(context.Background(), initiated.Token)
		assert.ErrorIs(t, err, ErrTargetUserNotFound)
	})
}

func TestCancel(t *testing.T) {
	club := &ClubRef{UUID: uuid.New(), Slug: "mesa-bmx"}
	owner := &UserRef{UUID: uuid.New(), Email: "owner@mesa.test"}
	target := &UserRef{UUID: uuid.New(), Email: "newowner@mesa.test"}

	setup := func(t *testing.T, access SuperAdminChecker) (*TransferService, *memoryRepository, *FakeNotifier, *TransferInfo) {
		t.Helper()
		repo := newMemoryRepository()
		notifier := &FakeNotifier{}
		svc := newTestService(repo, gatewayFor(club), gatewayForUsers(owner, target), access, notifier)
		initiated, err := svc.Initiate(context.Background(), "mesa-bmx", owner.UUID, target.Email)
		require.NoError(t, err)
		return svc, repo, notifier, initiated
	}

	t.Run("initiator can cancel", func(t *testing.T) {
		svc, repo, notifier, initiated := setup(t, &FakeSuperAdminChecker{})

		require.NoError(t, svc.Cancel(context.Background(), initiated.Token, owner.UUID))

		stored := repo.get(initiated.UUID)
		require.NotNil(t, stored)
		assert.True(t, stored.Cancelled())

		topics := notifier.Topics()
		require.Len(t, topics, 2)
		assert.Equal(t, transferevents.CancelledV1, topics[1])
	})

	t.Run("bystander cannot cancel", func(t *testing.T) {
		svc, repo, _, initiated := setup(t, &FakeSuperAdminChecker{})

		err := svc.Cancel(context.Background(), initiated.Token, uuid.New())
		assert.ErrorIs(t, err, ErrNotAuthorized)
		assert.True(t, repo.get(initiated.UUID).Pending())
	})

	t.Run("super admin can cancel", func(t *testing.T) {
		admin := uuid.New()
		access := &FakeSuperAdminChecker{
			HasSuperAdminFn: func(_ context.Context, _ bun.IDB, userUUID uuid.UUID) (bool, error) {
				return userUUID == admin, nil
			},
		}
		svc, repo, _, initiated := setup(t, access)

		require.NoError(t, svc.Cancel(context.Background(), initiated.Token, admin))
		assert.True(t, repo.get(initiated.UUID).Cancelled())
	})

	t.Run("cancelling twice reports not pending", func(t *testing.T) {
		svc, _, _, initiated := setup(t, &FakeSuperAdminChecker{})

		require.NoError(t, svc.Cancel(context.Background(), initiated.Token, owner.UUID))
		err := svc.Cancel(context.Background(), initiated.Token, owner.UUID)
		assert.ErrorIs(t, err, ErrNotPending)
	})

	t.Run("maps a raced cancellation to not pending", func(t *testing.T) {
		svc, repo, _, initiated := setup(t, &FakeSuperAdminChecker{})

		repo.MarkCancelledFn = func(context.Context, bun.IDB, uuid.UUID, time.Time) error {
			return transferdb.ErrNotPending
		}
		err := svc.Cancel(context.Background(), initiated.Token, owner.UUID)
		assert.ErrorIs(t, err, ErrNotPending)
	})

	t.Run("access check failure surfaces", func(t *testing.T) {
		boom := errors.New("permission store down")
		access := &FakeSuperAdminChecker{
			HasSuperAdminFn: func(context.Context, bun.IDB, uuid.UUID) (bool, error) {
				return false, boom
			},
		}
		svc, _, _, initiated := setup(t, access)

		err := svc.Cancel(context.Background(), initiated.Token, uuid.New())
		assert.ErrorIs(t, err, boom)
	})
}

func TestGetByToken(t *testing.T) {
	club := &ClubRef{UUID: uuid.New(), Slug: "mesa-bmx"}
	owner := &UserRef{UUID: uuid.New(), Email: "owner@mesa.test"}
	target := &UserRef{UUID: uuid.New(), Email: "newowner@mesa.test"}

	t.Run("returns terminal transfers for display", func(t *testing.T) {
		repo := newMemoryRepository()
		svc := newTestService(repo, gatewayFor(club), gatewayForUsers(owner, target), &FakeSuperAdminChecker{}, &FakeNotifier{})

		initiated, err := svc.Initiate(context.Background(), "mesa-bmx", owner.UUID, target.Email)
		require.NoError(t, err)
		require.NoError(t, svc.Cancel(context.Background(), initiated.Token, owner.UUID))

		// Unlike Complete, the claim page still renders cancelled transfers.
		info, err := svc.GetByToken(context.Background(), initiated.Token)
		require.NoError(t, err)
		assert.NotNil(t, info.CancelledAt)
		assert.False(t, info.Active)
	})

	t.Run("unknown token", func(t *testing.T) {
		svc := newTestService(newMemoryRepository(), gatewayFor(club), gatewayForUsers(owner, target), &FakeSuperAdminChecker{}, &FakeNotifier{})

		_, err := svc.GetByToken(context.Background(), "missing")
		assert.ErrorIs(t, err, ErrTransferNotFound)
	})
}

func TestActiveForClub(t *testing.T) {
	club := &ClubRef{UUID: uuid.New(), Slug: "mesa-bmx"}
	owner := &UserRef{UUID: uuid.New(), Email: "owner@mesa.test"}
	target := &UserRef{UUID: uuid.New(), Email: "newowner@mesa.test"}

	repo := newMemoryRepository()
	svc := newTestService(repo, gatewayFor(club), gatewayForUsers(owner, target), &FakeSuperAdminChecker{}, &FakeNotifier{})

	_, err := svc.ActiveForClub(context.Background(), "mesa-bmx")
	assert.ErrorIs(t, err, ErrTransferNotFound)

	initiated, err := svc.Initiate(context.Background(), "mesa-bmx", owner.UUID, target.Email)
	require.NoError(t, err)

	active, err := svc.ActiveForClub(context.Background(), "mesa-bmx")
	require.NoError(t, err)
	assert.Equal(t, initiated.UUID, active.UUID)

	require.NoError(t, svc.Cancel(context.Background(), initiated.Token, owner.UUID))
	_, err = svc.ActiveForClub(context.Background(), "mesa-bmx")
	assert.ErrorIs(t, err, ErrTransferNotFound)
}
