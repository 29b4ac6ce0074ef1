package racehandlers

import (
	"context"

	raceevents "github.com/bmxtools/raceday/app/events/race"
	"github.com/bmxtools/raceday/app/shared/handlerwrapper"
)

// Handlers defines the race module's event handler surface.
type Handlers interface {
	HandleCounterUpdateRequest(ctx context.Context, payload *raceevents.CounterUpdateRequestPayloadV1) ([]handlerwrapper.Result, error)
	HandleStateRequest(ctx context.Context, payload *raceevents.StateRequestPayloadV1) ([]handlerwrapper.Result, error)
}
