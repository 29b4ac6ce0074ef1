// Package operation wraps service operations with tracing, metrics, panic
// recovery, and transaction handling. Methods cannot have type parameters, so
// services call these functions instead of defining methods.
package operation

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/bmxtools/raceday/app/shared/attr"
	"github.com/bmxtools/raceday/app/shared/results"
	"github.com/bmxtools/raceday/internal/observability"
)

// Deps carries the cross-cutting dependencies every service embeds.
type Deps struct {
	Logger  *slog.Logger
	Metrics observability.OperationMetrics
	Tracer  trace.Tracer
	DB      *bun.DB
	Service string
}

// Func is the signature of a transactional service operation.
type Func[S any, F any] func(ctx context.Context, db bun.IDB) (results.OperationResult[S, F], error)

// Run executes op inside a transaction, wrapped with tracing, metrics, panic
// recovery, and structured logging. When Deps.DB is nil (tests), op runs
// against a nil IDB and repositories fall back to their default handle.
func Run[S any, F any](
	ctx context.Context,
	deps Deps,
	operationName string,
	identifier string,
	op Func[S, F],
) (result results.OperationResult[S, F], err error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var span trace.Span
	if deps.Tracer != nil {
		ctx, span = deps.Tracer.Start(ctx, operationName, trace.WithAttributes(
			attribute.String("operation", operationName),
			attribute.String("identifier", identifier),
		))
	} else {
		span = trace.SpanFromContext(ctx)
	}
	defer span.End()

	if deps.Metrics != nil {
		deps.Metrics.RecordOperationAttempt(ctx, operationName, deps.Service)
	}

	startTime := time.Now()
	defer func() {
		if deps.Metrics != nil {
			deps.Metrics.RecordOperationDuration(ctx, operationName, deps.Service, time.Since(startTime))
		}
	}()

	logger.InfoContext(ctx, "Operation triggered",
		attr.ExtractCorrelationID(ctx),
		attr.String("operation", operationName),
		attr.String("identifier", identifier),
	)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", operationName, r)
			logger.ErrorContext(ctx, "Critical panic recovered",
				attr.ExtractCorrelationID(ctx),
				attr.String("identifier", identifier),
				attr.Error(err),
			)
			if deps.Metrics != nil {
				deps.Metrics.RecordOperationFailure(ctx, operationName, deps.Service)
			}
			span.RecordError(err)
			result = results.OperationResult[S, F]{}
		}
	}()

	result, err = runInTx(ctx, deps.DB, op)

	if err != nil {
		wrappedErr := fmt.Errorf("%s: %w", operationName, err)
		logger.ErrorContext(ctx, "Operation failed with error",
			attr.ExtractCorrelationID(ctx),
			attr.String("operation", operationName),
			attr.String("identifier", identifier),
			attr.Error(wrappedErr),
		)
		if deps.Metrics != nil {
			deps.Metrics.RecordOperationFailure(ctx, operationName, deps.Service)
		}
		span.RecordError(wrappedErr)
		return result, wrappedErr
	}

	if result.IsFailure() {
		logger.WarnContext(ctx, "Operation returned failure result",
			attr.ExtractCorrelationID(ctx),
			attr.String("operation", operationName),
			attr.String("identifier", identifier),
			attr.Any("failure_payload", *result.Failure),
		)
	}

	if result.IsSuccess() {
		logger.InfoContext(ctx, "Operation completed successfully",
			attr.ExtractCorrelationID(ctx),
			attr.String("operation", operationName),
			attr.String("identifier", identifier),
		)
	}

	if deps.Metrics != nil {
		deps.Metrics.RecordOperationSuccess(ctx, operationName, deps.Service)
	}

	return result, nil
}

// runInTx ensures the operation runs within a transaction.
func runInTx[S any, F any](
	ctx context.Context,
	db *bun.DB,
	fn Func[S, F],
) (results.OperationResult[S, F], error) {
	if db == nil {
		return fn(ctx, nil)
	}

	var result results.OperationResult[S, F]

	err := db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var txErr error
		result, txErr = fn(ctx, tx)
		return txErr
	})

	return result, err
}
