package activityservice

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/xuri/excelize/v2"
	"go.opentelemetry.io/otel/trace"

	activityevents "github.com/bmxtools/raceday/app/events/activity"
	activitydb "github.com/bmxtools/raceday/app/modules/activity/infrastructure/repositories"
	"github.com/bmxtools/raceday/app/broadcast"
	"github.com/bmxtools/raceday/app/shared/operation"
	"github.com/bmxtools/raceday/app/shared/results"
	"github.com/bmxtools/raceday/internal/observability"
)

// DefaultFeedLimit caps the admin feed when no limit is given.
const DefaultFeedLimit = 10

// Notifier is the slice of the broadcast dispatcher the service needs.
type Notifier interface {
	Publish(topic string, payload any)
}

// Entry is an activity record request.
type Entry struct {
	ClubUUID uuid.UUID
	ClubSlug string
	RaceUUID *uuid.UUID
	Type     string
	Message  string
	Metadata map[string]any
}

// Recorded is a persisted entry together with the club's refreshed total, so
// the post-commit broadcast needs no second round trip.
type Recorded struct {
	UUID      uuid.UUID
	Entry     Entry
	CreatedAt time.Time
	Count     int
}

// ActivityInfo is the view of an entry handed to callers.
type ActivityInfo struct {
	UUID         uuid.UUID
	ClubUUID     uuid.UUID
	RaceUUID     *uuid.UUID
	ActivityType string
	Message      string
	Metadata     map[string]any
	CreatedAt    time.Time
}

// ActivityService implements the Service interface.
type ActivityService struct {
	repo     activitydb.Repository
	notifier Notifier
	deps     operation.Deps
}

// NewActivityService creates a new ActivityService.
func NewActivityService(
	repo activitydb.Repository,
	notifier Notifier,
	logger *slog.Logger,
	metrics observability.OperationMetrics,
	tracer trace.Tracer,
	db *bun.DB,
) *ActivityService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ActivityService{
		repo:     repo,
		notifier: notifier,
		deps: operation.Deps{
			Logger:  logger,
			Metrics: metrics,
			Tracer:  tracer,
			DB:      db,
			Service: "ActivityService",
		},
	}
}

// Append validates and inserts an entry within the caller's transaction.
// Callers that own the transaction must call Announce after it commits.
func (s *ActivityService) Append(ctx context.Context, db bun.IDB, e Entry) (*Recorded, error) {
	if !activitydb.ValidType(e.Type) {
		return nil, ErrInvalidActivityType
	}
	if strings.TrimSpace(e.Message) == "" {
		return nil, ErrEmptyMessage
	}

	activity := &activitydb.RaceActivity{
		UUID:         uuid.New(),
		ClubUUID:     e.ClubUUID,
		RaceUUID:     e.RaceUUID,
		ActivityType: e.Type,
		Message:      e.Message,
		Metadata:     e.Metadata,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, db, activity); err != nil {
		return nil, fmt.Errorf("failed to append activity: %w", err)
	}

	count, err := s.repo.CountForClub(ctx, db, e.ClubUUID)
	if err != nil {
		return nil, fmt.Errorf("failed to count activities: %w", err)
	}

	return &Recorded{
		UUID:      activity.UUID,
		Entry:     e,
		CreatedAt: activity.CreatedAt,
		Count:     count,
	}, nil
}

// Announce broadcasts a recorded entry to the club's admin activity feed and
// the refreshed count to the admin topic. Fire-and-forget; call after the
// recording transaction has committed.
func (s *ActivityService) Announce(rec *Recorded) {
	if rec == nil || s.notifier == nil {
		return
	}

	s.notifier.Publish(broadcast.AdminActivityTopic(rec.Entry.ClubSlug), activityevents.EntryPayloadV1{
		ActivityUUID: rec.UUID.String(),
		ClubSlug:     rec.Entry.ClubSlug,
		ActivityType: rec.Entry.Type,
		Message:      rec.Entry.Message,
		Metadata:     rec.Entry.Metadata,
		CreatedAt:    rec.CreatedAt,
	})
	s.notifier.Publish(broadcast.AdminTopic(rec.Entry.ClubSlug), activityevents.CountPayloadV1{
		ClubSlug: rec.Entry.ClubSlug,
		Count:    rec.Count,
	})
}

// Record appends an entry in its own transaction and announces it once the
// transaction has committed.
func (s *ActivityService) Record(ctx context.Context, e Entry) (*Recorded, error) {
	result, err := operation.Run(ctx, s.deps, "RecordActivity", e.ClubSlug,
		func(ctx context.Context, db bun.IDB) (results.OperationResult[*Recorded, error], error) {
			rec, err := s.Append(ctx, db, e)
			if err != nil {
				if err == ErrInvalidActivityType || err == ErrEmptyMessage {
					return results.FailureResult[*Recorded, error](err), nil
				}
				return results.OperationResult[*Recorded, error]{}, err
			}
			return results.SuccessResult[*Recorded, error](rec), nil
		})
	if err != nil {
		return nil, err
	}
	if result.IsFailure() {
		return nil, *result.Failure
	}

	rec := *result.Success
	s.Announce(rec)
	return rec, nil
}

// RecentForClub returns the newest entries first. limit <= 0 falls back to
// DefaultFeedLimit.
func (s *ActivityService) RecentForClub(ctx context.Context, clubUUID uuid.UUID, limit int) ([]ActivityInfo, error) {
	if limit <= 0 {
		limit = DefaultFeedLimit
	}

	result, err := operation.Run(ctx, s.deps, "RecentActivities", clubUUID.String(),
		func(ctx context.Context, db bun.IDB) (results.OperationResult[[]ActivityInfo, error], error) {
			activities, err := s.repo.RecentForClub(ctx, db, clubUUID, limit)
			if err != nil {
				return results.OperationResult[[]ActivityInfo, error]{}, fmt.Errorf("failed to fetch recent activities: %w", err)
			}
			return results.SuccessResult[[]ActivityInfo, error](toActivityInfos(activities)), nil
		})
	if err != nil {
		return nil, err
	}
	return *result.Success, nil
}

// CountForClub returns the club's total entry count.
func (s *ActivityService) CountForClub(ctx context.Context, clubUUID uuid.UUID) (int, error) {
	result, err := operation.Run(ctx, s.deps, "CountActivities", clubUUID.String(),
		func(ctx context.Context, db bun.IDB) (results.OperationResult[int, error], error) {
			n, err := s.repo.CountForClub(ctx, db, clubUUID)
			if err != nil {
				return results.OperationResult[int, error]{}, fmt.Errorf("failed to count activities: %w", err)
			}
			return results.SuccessResult[int, error](n), nil
		})
	if err != nil {
		return 0, err
	}
	return *result.Success, nil
}

// CountByTypeSince aggregates entry counts per activity type for the
// dashboard chart.
func (s *ActivityService) CountByTypeSince(ctx context.Context, since time.Time) (map[string]int, error) {
	result, err := operation.Run(ctx, s.deps, "CountActivitiesByType", since.Format(time.RFC3339),
		func(ctx context.Context, db bun.IDB) (results.OperationResult[map[string]int, error], error) {
			counts, err := s.repo.CountByTypeSince(ctx, db, since)
			if err != nil {
				return results.OperationResult[map[string]int, error]{}, fmt.Errorf("failed to aggregate activities: %w", err)
			}
			return results.SuccessResult[map[string]int, error](counts), nil
		})
	if err != nil {
		return nil, err
	}
	return *result.Success, nil
}

// ExportForClub renders the club's activity log since the given time as an
// xlsx workbook.
func (s *ActivityService) ExportForClub(ctx context.Context, clubUUID uuid.UUID, since time.Time) ([]byte, error) {
	result, err := operation.Run(ctx, s.deps, "ExportActivities", clubUUID.String(),
		func(ctx context.Context, db bun.IDB) (results.OperationResult[[]byte, error], error) {
			activities, err := s.repo.ListForClubSince(ctx, db, clubUUID, since)
			if err != nil {
				return results.OperationResult[[]byte, error]{}, fmt.Errorf("failed to fetch activities for export: %w", err)
			}

			data, err := renderWorkbook(activities)
			if err != nil {
				return results.OperationResult[[]byte, error]{}, err
			}
			return results.SuccessResult[[]byte, error](data), nil
		})
	if err != nil {
		return nil, err
	}
	return *result.Success, nil
}

func renderWorkbook(activities []activitydb.RaceActivity) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Activity"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{"Time", "Type", "Message", "Metadata"}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to address header cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}

	for row, a := range activities {
		values := []any{
			a.CreatedAt.Format(time.RFC3339),
			a.ActivityType,
			a.Message,
			fmt.Sprintf("%v", a.Metadata),
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return nil, fmt.Errorf("failed to address cell: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, fmt.Errorf("failed to write cell: %w", err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func toActivityInfos(activities []activitydb.RaceActivity) []ActivityInfo {
	infos := make([]ActivityInfo, len(activities))
	for i, a := range activities {
		infos[i] = ActivityInfo{
			UUID:         a.UUID,
			ClubUUID:     a.ClubUUID,
			RaceUUID:     a.RaceUUID,
			ActivityType: a.ActivityType,
			Message:      a.Message,
			Metadata:     a.Metadata,
			CreatedAt:    a.CreatedAt,
		}
	}
	return infos
}
