// Package activityrouter binds the activity module's event handlers onto the
// shared watermill router.
package activityrouter

import (
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/bmxtools/raceday/app/eventbus"
	activityevents "github.com/bmxtools/raceday/app/events/activity"
	activityservice "github.com/bmxtools/raceday/app/modules/activity/application"
	activityhandlers "github.com/bmxtools/raceday/app/modules/activity/infrastructure/handlers"
	"github.com/bmxtools/raceday/app/shared/handlerwrapper"
)

// ActivityRouter registers the activity module's subscriptions.
type ActivityRouter struct {
	logger     *slog.Logger
	Router     *message.Router
	subscriber eventbus.EventBus
}

// NewActivityRouter creates a new ActivityRouter.
func NewActivityRouter(logger *slog.Logger, router *message.Router, subscriber eventbus.EventBus) *ActivityRouter {
	return &ActivityRouter{
		logger:     logger,
		Router:     router,
		subscriber: subscriber,
	}
}

// Configure registers the activity handlers. The record handler publishes
// nothing back onto the bus; broadcasts go through the dispatcher.
func (r *ActivityRouter) Configure(service activityservice.Service, clubs activityhandlers.ClubResolver, deps handlerwrapper.Deps) error {
	handlers := activityhandlers.NewActivityHandlers(service, clubs, deps)
	wrapped := handlerwrapper.Wrap(activityevents.RecordRequestV1, handlers.Deps(), handlers.HandleRecordRequest)

	r.Router.AddNoPublisherHandler(
		"activity.record_request",
		activityevents.RecordRequestV1,
		r.subscriber,
		func(msg *message.Message) error {
			_, err := wrapped(msg)
			return err
		},
	)
	return nil
}
