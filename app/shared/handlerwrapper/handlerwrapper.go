// Package handlerwrapper gives event handlers a uniform envelope: payload
// unmarshalling, tracing, metrics, logging, and result marshalling.
package handlerwrapper

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/bmxtools/raceday/app/shared/attr"
	"github.com/bmxtools/raceday/internal/observability"
)

// Result pairs an outgoing payload with the subject it belongs on.
type Result struct {
	Topic   string
	Payload any
}

// Deps carries the cross-cutting dependencies every handler set shares.
type Deps struct {
	Logger  *slog.Logger
	Metrics observability.OperationMetrics
	Tracer  trace.Tracer
	Service string
}

// HandlerFunc is the typed handler: it receives the decoded payload and
// returns zero or more results for the router to publish.
type HandlerFunc[P any] func(ctx context.Context, payload *P) ([]Result, error)

// Wrap adapts a typed handler into a watermill message handler. The incoming
// message body is unmarshalled into a fresh P; results are JSON-marshalled
// with the subject and correlation ID carried in metadata.
func Wrap[P any](handlerName string, deps Deps, handler HandlerFunc[P]) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		logger := deps.Logger
		if logger == nil {
			logger = slog.Default()
		}

		ctx := msg.Context()
		if id := msg.Metadata.Get("correlation_id"); id != "" {
			ctx = attr.WithCorrelationID(ctx, id)
		}

		var span trace.Span
		if deps.Tracer != nil {
			ctx, span = deps.Tracer.Start(ctx, handlerName, trace.WithAttributes(
				attribute.String("message_id", msg.UUID),
			))
			defer span.End()
		}

		if deps.Metrics != nil {
			deps.Metrics.RecordOperationAttempt(ctx, handlerName, deps.Service)
		}
		startTime := time.Now()
		defer func() {
			if deps.Metrics != nil {
				deps.Metrics.RecordOperationDuration(ctx, handlerName, deps.Service, time.Since(startTime))
			}
		}()

		logger.InfoContext(ctx, handlerName+" triggered",
			attr.ExtractCorrelationID(ctx),
			attr.String("message_id", msg.UUID),
		)

		payload := new(P)
		if err := json.Unmarshal(msg.Payload, payload); err != nil {
			logger.ErrorContext(ctx, "Failed to unmarshal payload",
				attr.ExtractCorrelationID(ctx),
				attr.Error(err),
			)
			if deps.Metrics != nil {
				deps.Metrics.RecordOperationFailure(ctx, handlerName, deps.Service)
			}
			return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
		}

		handlerResults, err := handler(ctx, payload)
		if err != nil {
			logger.ErrorContext(ctx, "Error in "+handlerName,
				attr.ExtractCorrelationID(ctx),
				attr.Error(err),
			)
			if deps.Metrics != nil {
				deps.Metrics.RecordOperationFailure(ctx, handlerName, deps.Service)
			}
			if span != nil {
				span.RecordError(err)
			}
			return nil, err
		}

		outgoing := make([]*message.Message, 0, len(handlerResults))
		for _, res := range handlerResults {
			body, err := json.Marshal(res.Payload)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal result for %s: %w", res.Topic, err)
			}
			out := message.NewMessage(watermill.NewUUID(), body)
			out.Metadata.Set("topic", res.Topic)
			if id := msg.Metadata.Get("correlation_id"); id != "" {
				out.Metadata.Set("correlation_id", id)
			}
			outgoing = append(outgoing, out)
		}

		logger.InfoContext(ctx, handlerName+" completed successfully",
			attr.ExtractCorrelationID(ctx),
		)
		if deps.Metrics != nil {
			deps.Metrics.RecordOperationSuccess(ctx, handlerName, deps.Service)
		}
		return outgoing, nil
	}
}
