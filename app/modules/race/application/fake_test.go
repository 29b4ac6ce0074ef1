package raceservice

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	activityservice "github.com/bmxtools/raceday/app/modules/activity/application"
	racedb "github.com/bmxtools/raceday/app/modules/race/infrastructure/repositories"
)

// ------------------------
// Fake race repository
// ------------------------

type FakeRepository struct {
	GetActiveRaceFn  func(ctx context.Context, db bun.IDB, clubUUID uuid.UUID, forUpdate bool) (*racedb.Race, error)
	HasRaceFn        func(ctx context.Context, db bun.IDB, clubUUID uuid.UUID) (bool, error)
	CreateRaceFn     func(ctx context.Context, db bun.IDB, race *racedb.Race) error
	UpdateCountersFn func(ctx context.Context, db bun.IDB, raceUUID uuid.UUID, atGate, inStaging int) error
	GetSettingsFn    func(ctx context.Context, db bun.IDB, raceUUID uuid.UUID) (*racedb.RaceSetting, error)
	CreateSettingsFn func(ctx context.Context, db bun.IDB, settings *racedb.RaceSetting) error
	UpdateSettingsFn func(ctx context.Context, db bun.IDB, settings *racedb.RaceSetting) error
}

func (f *FakeRepository) GetActiveRace(ctx context.Context, db bun.IDB, clubUUID uuid.UUID, forUpdate bool) (*racedb.Race, error) {
	if f.GetActiveRaceFn != nil {
		return f.GetActiveRaceFn(ctx, db, clubUUID, forUpdate)
	}
	return nil, racedb.ErrNotFound
}

func (f *FakeRepository) HasRace(ctx context.Context, db bun.IDB, clubUUID uuid.UUID) (bool, error) {
	if f.HasRaceFn != nil {
		return f.HasRaceFn(ctx, db, clubUUID)
	}
	return false, nil
}

func (f *FakeRepository) CreateRace(ctx context.Context, db bun.IDB, race *racedb.Race) error {
	if f.CreateRaceFn != nil {
		return f.CreateRaceFn(ctx, db, race)
	}
	return nil
}

func (f *FakeRepository) UpdateCounters(ctx context.Context, db bun.IDB, raceUUID uuid.UUID, atGate, inStaging int) error {
	if f.UpdateCountersFn != nil {
		return f.UpdateCountersFn(ctx, db, raceUUID, atGate, inStaging)
	}
	return nil
}

func (f *FakeRepository) GetSettings(ctx context.Context, db bun.IDB, raceUUID uuid.UUID) (*racedb.RaceSetting, error) {
	if f.GetSettingsFn != nil {
		return f.GetSettingsFn(ctx, db, raceUUID)
	}
	return &racedb.RaceSetting{UUID: uuid.New(), RaceUUID: raceUUID}, nil
}

func (f *FakeRepository) CreateSettings(ctx context.Context, db bun.IDB, settings *racedb.RaceSetting) error {
	if f.CreateSettingsFn != nil {
		return f.CreateSettingsFn(ctx, db, settings)
	}
	return nil
}

func (f *FakeRepository) UpdateSettings(ctx context.Context, db bun.IDB, settings *racedb.RaceSetting) error {
	if f.UpdateSettingsFn != nil {
		return f.UpdateSettingsFn(ctx, db, settings)
	}
	return nil
}

// memoryRepository keeps one race and its settings in memory so flows that
// read back what they wrote behave like the real store.
type memoryRepository struct {
	FakeRepository
	mu       sync.Mutex
	race     *racedb.Race
	settings *racedb.RaceSetting
}

func newMemoryRepository() *memoryRepository {
	m := &memoryRepository{}
	m.GetActiveRaceFn = func(_ context.Context, _ bun.IDB, clubUUID uuid.UUID, _ bool) (*racedb.Race, error) {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.race == nil || m.race.ClubUUID != clubUUID {
			return nil, racedb.ErrNotFound
		}
		copied := *m.race
		return &copied, nil
	}
	m.CreateRaceFn = func(_ context.Context, _ bun.IDB, race *racedb.Race) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		copied := *race
		copied.UpdatedAt = time.Now().UTC()
		m.race = &copied
		return nil
	}
	m.UpdateCountersFn = func(_ context.Context, _ bun.IDB, raceUUID uuid.UUID, atGate, inStaging int) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.race == nil || m.race.UUID != raceUUID {
			return racedb.ErrNotFound
		}
		m.race.AtGate = atGate
		m.race.InStaging = inStaging
		m.race.UpdatedAt = time.Now().UTC()
		return nil
	}
	m.GetSettingsFn = func(_ context.Context, _ bun.IDB, raceUUID uuid.UUID) (*racedb.RaceSetting, error) {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.settings == nil || m.settings.RaceUUID != raceUUID {
			return nil, racedb.ErrNotFound
		}
		copied := *m.settings
		return &copied, nil
	}
	m.CreateSettingsFn = func(_ context.Context, _ bun.IDB, settings *racedb.RaceSetting) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		copied := *settings
		m.settings = &copied
		return nil
	}
	m.UpdateSettingsFn = func(_ context.Context, _ bun.IDB, settings *racedb.RaceSetting) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		copied := *settings
		m.settings = &copied
		return nil
	}
	return m
}

// ------------------------
// Fake club directory
// ------------------------

type FakeClubDirectory struct {
	ActiveClubBySlugFn func(ctx context.Context, db bun.IDB, slug string) (*ClubRef, error)
}

func (f *FakeClubDirectory) ActiveClubBySlug(ctx context.Context, db bun.IDB, slug string) (*ClubRef, error) {
	if f.ActiveClubBySlugFn != nil {
		return f.ActiveClubBySlugFn(ctx, db, slug)
	}
	return nil, ErrClubNotFound
}

func directoryFor(club *ClubRef) *FakeClubDirectory {
	return &FakeClubDirectory{
		ActiveClubBySlugFn: func(_ context.Context, _ bun.IDB, slug string) (*ClubRef, error) {
			if slug != club.Slug {
				return nil, ErrClubNotFound
			}
			return club, nil
		},
	}
}

// ------------------------
// Fake activity recorder
// ------------------------

type FakeActivityRecorder struct {
	mu        sync.Mutex
	Appended  []activityservice.Entry
	Announced []*activityservice.Recorded

	AppendFn func(ctx context.Context, db bun.IDB, e activityservice.Entry) (*activityservice.Recorded, error)
}

func (f *FakeActivityRecorder) Append(ctx context.Context, db bun.IDB, e activityservice.Entry) (*activityservice.Recorded, error) {
	f.mu.Lock()
	f.Appended = append(f.Appended, e)
	f.mu.Unlock()
	if f.AppendFn != nil {
		return f.AppendFn(ctx, db, e)
	}
	return &activityservice.Recorded{
		UUID:      uuid.New(),
		Entry:     e,
		CreatedAt: time.Now().UTC(),
		Count:     len(f.Appended),
	}, nil
}

func (f *FakeActivityRecorder) Announce(rec *activityservice.Recorded) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Announced = append(f.Announced, rec)
}

// ------------------------
// Fake notifier
// ------------------------

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
	topics := make([]string, len(f.Published))
	for i, p := range f.Published {
		topics[i] = p.Topic
	}
	return topics
}
