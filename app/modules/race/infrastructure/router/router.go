// Package racerouter binds the race module's event handlers onto the shared
// watermill router.
package racerouter

import (
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/bmxtools/raceday/app/eventbus"
	raceevents "github.com/bmxtools/raceday/app/events/race"
	raceservice "github.com/bmxtools/raceday/app/modules/race/application"
	racehandlers "github.com/bmxtools/raceday/app/modules/race/infrastructure/handlers"
	"github.com/bmxtools/raceday/app/shared/attr"
	"github.com/bmxtools/raceday/app/shared/handlerwrapper"
)

// RaceRouter registers the race module's subscriptions.
type RaceRouter struct {
	logger     *slog.Logger
	Router     *message.Router
	subscriber eventbus.EventBus
	publisher  eventbus.EventBus
}

// NewRaceRouter creates a new RaceRouter.
func NewRaceRouter(
	logger *slog.Logger,
	router *message.Router,
	subscriber eventbus.EventBus,
	publisher eventbus.EventBus,
) *RaceRouter {
	return &RaceRouter{
		logger:     logger,
		Router:     router,
		subscriber: subscriber,
		publisher:  publisher,
	}
}

// Configure registers the race handlers.
func (r *RaceRouter) Configure(service raceservice.Service, deps handlerwrapper.Deps) error {
	handlers := racehandlers.NewRaceHandlers(service, deps)

	r.register("race.counter_update_request", raceevents.CounterUpdateRequestV1,
		handlerwrapper.Wrap(raceevents.CounterUpdateRequestV1, handlers.Deps(), handlers.HandleCounterUpdateRequest))
	r.register("race.state_request", raceevents.StateRequestV1,
		handlerwrapper.Wrap(raceevents.StateRequestV1, handlers.Deps(), handlers.HandleStateRequest))

	return nil
}

// register subscribes a wrapped handler and publishes whatever it returns to
// the subject carried in each outgoing message's metadata.
func (r *RaceRouter) register(name, subject string, handler message.HandlerFunc) {
	r.Router.AddNoPublisherHandler(name, subject, r.subscriber, func(msg *message.Message) error {
		outgoing, err := handler(msg)
		if err != nil {
			return err
		}
		for _, out := range outgoing {
			topic := out.Metadata.Get("topic")
			if topic == "" {
				r.logger.Error("handler produced a message without a topic, dropping",
					attr.String("handler", name),
					attr.String("message_id", out.UUID),
				)
				continue
			}
			if err := r.publisher.PublishMessage(msg.Context(), topic, out); err != nil {
				return err
			}
		}
		return nil
	})
}
