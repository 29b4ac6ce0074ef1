package activityhandlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	activityevents "github.com/bmxtools/raceday/app/events/activity"
	activityservice "github.com/bmxtools/raceday/app/modules/activity/application"
	"github.com/bmxtools/raceday/app/shared/handlerwrapper"
)

// ClubResolver maps a club UUID to its slug for broadcast topic naming.
type ClubResolver interface {
	SlugByUUID(ctx context.Context, clubUUID uuid.UUID) (string, error)
}

// ActivityHandlers handles activity-record requests arriving over the bus.
type ActivityHandlers struct {
	service activityservice.Service
	clubs   ClubResolver
	deps    handlerwrapper.Deps
}

// NewActivityHandlers creates a new ActivityHandlers.
func NewActivityHandlers(service activityservice.Service, clubs ClubResolver, deps handlerwrapper.Deps) *ActivityHandlers {
	deps.Service = "ActivityHandlers"
	return &ActivityHandlers{service: service, clubs: clubs, deps: deps}
}

// Deps exposes the wrapper dependencies for router registration.
func (h *ActivityHandlers) Deps() handlerwrapper.Deps {
	return h.deps
}

// HandleRecordRequest appends an entry on behalf of another service. Invalid
// requests are dropped rather than retried; the writer is append-only and a
// bad payload will never become valid.
func (h *ActivityHandlers) HandleRecordRequest(ctx context.Context, payload *activityevents.RecordRequestPayloadV1) ([]handlerwrapper.Result, error) {
	clubUUID, err := uuid.Parse(payload.ClubUUID)
	if err != nil {
		return nil, nil
	}

	var raceUUID *uuid.UUID
	if payload.RaceUUID != nil {
		parsed, err := uuid.Parse(*payload.RaceUUID)
		if err != nil {
			return nil, nil
		}
		raceUUID = &parsed
	}

	slug, err := h.clubs.SlugByUUID(ctx, clubUUID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve club slug: %w", err)
	}

	_, err = h.service.Record(ctx, activityservice.Entry{
		ClubUUID: clubUUID,
		ClubSlug: slug,
		RaceUUID: raceUUID,
		Type:     payload.ActivityType,
		Message:  payload.Message,
		Metadata: payload.Metadata,
	})
	if err != nil {
		if errors.Is(err, activityservice.ErrInvalidActivityType) || errors.Is(err, activityservice.ErrEmptyMessage) {
			return nil, nil
		}
		return nil, err
	}
	return nil, nil
}

var _ Handlers = (*ActivityHandlers)(nil)
