package transferservice

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	transferdb "github.com/bmxtools/raceday/app/modules/transfer/infrastructure/repositories"
)

// ------------------------
// Fake transfer repository
// ------------------------

type FakeRepository struct {
	GetByTokenFn       func(ctx context.Context, db bun.IDB, token string) (*transferdb.OwnershipTransfer, error)
	GetActiveForClubFn func(ctx context.Context, db bun.IDB, clubUUID uuid.UUID) (*transferdb.OwnershipTransfer, error)
	CreateFn           func(ctx context.Context, db bun.IDB, transfer *transferdb.OwnershipTransfer) error
	MarkCancelledFn    func(ctx context.Context, db bun.IDB, transferUUID uuid.UUID, at time.Time) error
	MarkCompletedFn    func(ctx context.Context, db bun.IDB, transferUUID uuid.UUID, at time.Time) error
}

func (f *FakeRepository) GetByToken(ctx context.Context, db bun.IDB, token string) (*transferdb.OwnershipTransfer, error) {
	if f.GetByTokenFn != nil {
		return f.GetByTokenFn(ctx, db, token)
	}
	return nil, transferdb.ErrNotFound
}

func (f *FakeRepository) GetActiveForClub(ctx context.Context, db bun.IDB, clubUUID uuid.UUID) (*transferdb.OwnershipTransfer, error) {
	if f.GetActiveForClubFn != nil {
		return f.GetActiveForClubFn(ctx, db, clubUUID)
	}
	return nil, transferdb.ErrNotFound
}

func (f *FakeRepository) Create(ctx context.Context, db bun.IDB, transfer *transferdb.OwnershipTransfer) error {
	if f.CreateFn != nil {
		return f.CreateFn(ctx, db, transfer)
	}
	return nil
}

func (f *FakeRepository) MarkCancelled(ctx context.Context, db bun.IDB, transferUUID uuid.UUID, at time.Time) error {
	if f.MarkCancelledFn != nil {
		return f.MarkCancelledFn(ctx, db, transferUUID, at)
	}
	return nil
}

func (f *FakeRepository) MarkCompleted(ctx context.Context, db bun.IDB, transferUUID uuid.UUID, at time.Time) error {
	if f.MarkCompletedFn != nil {
		return f.MarkCompletedFn(ctx, db, transferUUID, at)
	}
	return nil
}

// memoryRepository keeps transfers in memory so lifecycle flows read back
// what they wrote.
type memoryRepository struct {
	FakeRepository

	mu        sync.Mutex
	transfers map[uuid.UUID]*transferdb.OwnershipTransfer
}

func newMemoryRepository() *memoryRepository {
	m := &memoryRepository{transfers: make(map[uuid.UUID]*transferdb.OwnershipTransfer)}

	m.GetByTokenFn = func(_ context.Context, _ bun.IDB, token string) (*transferdb.OwnershipTransfer, error) {
		m.mu.Lock()
		defer m.mu.Unlock()
		for _, t := range m.transfers {
			if t.Token == token {
				copied := *t
				return &copied, nil
			}
		}
		return nil, transferdb.ErrNotFound
	}
	m.GetActiveForClubFn = func(_ context.Context, _ bun.IDB, clubUUID uuid.UUID) (*transferdb.OwnershipTransfer, error) {
		m.mu.Lock()
		defer m.mu.Unlock()
		for _, t := range m.transfers {
			if t.ClubUUID == clubUUID && t.Active() {
				copied := *t
				return &copied, nil
			}
		}
		return nil, transferdb.ErrNotFound
	}
	m.CreateFn = func(_ context.Context, _ bun.IDB, transfer *transferdb.OwnershipTransfer) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		for _, t := range m.transfers {
			if t.Token == transfer.Token {
				return transferdb.ErrDuplicateToken
			}
		}
		copied := *transfer
		m.transfers[transfer.UUID] = &copied
		return nil
	}
	m.MarkCancelledFn = func(_ context.Context, _ bun.IDB, transferUUID uuid.UUID, at time.Time) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		t, ok := m.transfers[transferUUID]
		if !ok {
			return transferdb.ErrNotFound
		}
		t.CancelledAt = &at
		return nil
	}
	m.MarkCompletedFn = func(_ context.Context, _ bun.IDB, transferUUID uuid.UUID, at time.Time) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		t, ok := m.transfers[transferUUID]
		if !ok {
			return transferdb.ErrNotFound
		}
		t.CompletedAt = &at
		return nil
	}
	return m
}

func (m *memoryRepository) get(transferUUID uuid.UUID) *transferdb.OwnershipTransfer {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transfers[transferUUID]
	if !ok {
		return nil
	}
	copied := *t
	return &copied
}

// ------------------------
// Gateway fakes
// ------------------------

type FakeClubGateway struct {
	ActiveClubBySlugFn func(ctx context.Context, db bun.IDB, slug string) (*ClubRef, error)
	ClubByUUIDFn       func(ctx context.Context, db bun.IDB, clubUUID uuid.UUID) (*ClubRef, error)
	SetOwnerFn         func(ctx context.Context, db bun.IDB, clubUUID, ownerUUID uuid.UUID) error

	mu     sync.Mutex
	owners map[uuid.UUID]uuid.UUID
}

func (f *FakeClubGateway) ActiveClubBySlug(ctx context.Context, db bun.IDB, slug string) (*ClubRef, error) {
	if f.ActiveClubBySlugFn != nil {
		return f.ActiveClubBySlugFn(ctx, db, slug)
	}
	return nil, ErrClubNotFound
}

func (f *FakeClubGateway) ClubByUUID(ctx context.Context, db bun.IDB, clubUUID uuid.UUID) (*ClubRef, error) {
	if f.ClubByUUIDFn != nil {
		return f.ClubByUUIDFn(ctx, db, clubUUID)
	}
	return nil, ErrClubNotFound
}

func (f *FakeClubGateway) SetOwner(ctx context.Context, db bun.IDB, clubUUID, ownerUUID uuid.UUID) error {
	if f.SetOwnerFn != nil {
		return f.SetOwnerFn(ctx, db, clubUUID, ownerUUID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.owners == nil {
		f.owners = make(map[uuid.UUID]uuid.UUID)
	}
	f.owners[clubUUID] = ownerUUID
	return nil
}

func (f *FakeClubGateway) ownerOf(clubUUID uuid.UUID) (uuid.UUID, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	owner, ok := f.owners[clubUUID]
	return owner, ok
}

// gatewayFor serves a single club by both slug and UUID.
func gatewayFor(club *ClubRef) *FakeClubGateway {
	return &FakeClubGateway{
		ActiveClubBySlugFn: func(_ context.Context, _ bun.IDB, slug string) (*ClubRef, error) {
			if slug == club.Slug {
				return club, nil
			}
			return nil, ErrClubNotFound
		},
		ClubByUUIDFn: func(_ context.Context, _ bun.IDB, clubUUID uuid.UUID) (*ClubRef, error) {
			if clubUUID == club.UUID {
				return club, nil
			}
			return nil, ErrClubNotFound
		},
	}
}

type FakeUserGateway struct {
	ByEmailFn func(ctx context.Context, db bun.IDB, email string) (*UserRef, error)
	ByUUIDFn  func(ctx context.Context, db bun.IDB, userUUID uuid.UUID) (*UserRef, error)
}

func (f *FakeUserGateway) ByEmail(ctx context.Context, db bun.IDB, email string) (*UserRef, error) {
	if f.ByEmailFn != nil {
		return f.ByEmailFn(ctx, db, email)
	}
	return nil, ErrTargetUserNotFound
}

func (f *FakeUserGateway) ByUUID(ctx context.Context, db bun.IDB, userUUID uuid.UUID) (*UserRef, error) {
	if f.ByUUIDFn != nil {
		return f.ByUUIDFn(ctx, db, userUUID)
	}
	return nil, ErrTargetUserNotFound
}

// gatewayForUsers serves a fixed roster by email and UUID.
func gatewayForUsers(users ...*UserRef) *FakeUserGateway {
	return &FakeUserGateway{
		ByEmailFn: func(_ context.Context, _ bun.IDB, email string) (*UserRef, error) {
			for _, u := range users {
				if strings.EqualFold(u.Email, email) {
					return u, nil
				}
			}
			return nil, ErrTargetUserNotFound
		},
		ByUUIDFn: func(_ context.Context, _ bun.IDB, userUUID uuid.UUID) (*UserRef, error) {
			for _, u := range users {
				if u.UUID == userUUID {
					return u, nil
				}
			}
			return nil, ErrTargetUserNotFound
		},
	}
}

type FakeSuperAdminChecker struct {
	HasSuperAdminFn func(ctx context.Context, db bun.IDB, userUUID uuid.UUID) (bool, error)
}

func (f *FakeSuperAdminChecker) HasSuperAdmin(ctx context.Context, db bun.IDB, userUUID uuid.UUID) (bool, error) {
	if f.HasSuperAdminFn != nil {
		return f.HasSuperAdminFn(ctx, db, userUUID)
	}
	return false, nil
}

type published struct {
	Topic   string
	Payload any
}

type FakeNotifier struct {
	mu        sync.Mutex
	Published []published
}

func (f *FakeNotifier) Publish(topic string, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Published = append(f.Published, published{Topic: topic, Payload: payload})
}

func (f *FakeNotifier) Topics() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	topics := make([]string, 0, len(f.Published))
	for _, p := range f.Published {
		topics = append(topics, p.Topic)
	}
	return topics
}
