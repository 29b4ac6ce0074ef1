package racehandlers

import (
	"context"
	"errors"

	raceevents "github.com/bmxtools/raceday/app/events/race"
	raceservice "github.com/bmxtools/raceday/app/modules/race/application"
	"github.com/bmxtools/raceday/app/shared/handlerwrapper"
)

// RaceHandlers handles race-related events from non-HTTP surfaces.
type RaceHandlers struct {
	service raceservice.Service
	deps    handlerwrapper.Deps
}

// NewRaceHandlers creates a new RaceHandlers.
func NewRaceHandlers(service raceservice.Service, deps handlerwrapper.Deps) *RaceHandlers {
	deps.Service = "RaceHandlers"
	return &RaceHandlers{service: service, deps: deps}
}

// Deps exposes the wrapper dependencies for router registration.
func (h *RaceHandlers) Deps() handlerwrapper.Deps {
	return h.deps
}

// HandleCounterUpdateRequest applies a counter update and reports the outcome.
// Domain rejections come back as an unapplied result, not a handler error, so
// the message is acked instead of retried.
func (h *RaceHandlers) HandleCounterUpdateRequest(ctx context.Context, payload *raceevents.CounterUpdateRequestPayloadV1) ([]handlerwrapper.Result, error) {
	change, err := h.service.UpdateCounters(ctx, payload.ClubSlug, raceservice.CounterUpdate{
		AtGate:    payload.AtGate,
		InStaging: payload.InStaging,
	})
	if err != nil {
		if isDomainRejection(err) {
			return []handlerwrapper.Result{{
				Topic: raceevents.CounterUpdateResultV1,
				Payload: raceevents.CounterUpdateResultPayloadV1{
					ClubSlug:  payload.ClubSlug,
					Applied:   false,
					Reason:    err.Error(),
					AtGate:    payload.AtGate,
					InStaging: payload.InStaging,
				},
			}}, nil
		}
		return nil, err
	}

	return []handlerwrapper.Result{{
		Topic: raceevents.CounterUpdateResultV1,
		Payload: raceevents.CounterUpdateResultPayloadV1{
			ClubSlug:  payload.ClubSlug,
			Applied:   true,
			AtGate:    change.NewAtGate,
			InStaging: change.NewInStaging,
		},
	}}, nil
}

// HandleStateRequest replies with the club's current race state.
func (h *RaceHandlers) HandleStateRequest(ctx context.Context, payload *raceevents.StateRequestPayloadV1) ([]handlerwrapper.Result, error) {
	state, err := h.service.GetRaceState(ctx, payload.ClubSlug)
	if err != nil {
		if errors.Is(err, raceservice.ErrClubNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return []handlerwrapper.Result{{
		Topic: raceevents.StateResponseV1,
		Payload: raceevents.StateResponsePayloadV1{
			ClubSlug:             state.ClubSlug,
			AtGate:               state.AtGate,
			InStaging:            state.InStaging,
			RegistrationDeadline: state.RegistrationDeadline,
			RaceStartTime:        state.RaceStartTime,
			NotificationMessage:  state.NotificationMessage,
			NotificationActive:   state.NotificationActive,
			UpdatedAt:            state.UpdatedAt,
		},
	}}, nil
}

func isDomainRejection(err error) bool {
	return errors.Is(err, raceservice.ErrOutOfRange) ||
		errors.Is(err, raceservice.ErrOrderingViolation) ||
		errors.Is(err, raceservice.ErrClubNotFound)
}

var _ Handlers = (*RaceHandlers)(nil)
