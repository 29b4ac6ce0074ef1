package activityhandlers

import (
	"context"

	activityevents "github.com/bmxtools/raceday/app/events/activity"
	"github.com/bmxtools/raceday/app/shared/handlerwrapper"
)

// Handlers defines the activity module's event handler surface.
type Handlers interface {
	HandleRecordRequest(ctx context.Context, payload *activityevents.RecordRequestPayloadV1) ([]handlerwrapper.Result, error)
}
