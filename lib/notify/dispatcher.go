package notify

import (
	"context"
	"log/slog"
	"scorepusher/lib/scores"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("notify")

type Dispatcher struct {
	Pacer Pacer
}

func NewDispatcher() Dispatcher {
	return Dispatcher{Pacer: DefaultPacer}
}

func (d Dispatcher) pace(ctx context.Context) error {
	if d.Pacer == nil {
		return DefaultPacer.Pace(ctx)
	}
	return d.Pacer.Pace(ctx)
}

// Dispatch renders c once and pushes it to every channel in order, pacing
// after each attempt. Push failures are logged and returned, only a
// render failure or cancellation of ctx stops it early.
func (d Dispatcher) Dispatch(ctx context.Context, c scores.Change, channels []Channel) ([]*PushError, error) {
	ctx, span := tracer.Start(ctx, "Dispatch")
	defer span.End()

	span.SetAttributes(
		attribute.String("change.kind", c.Kind.String()),
		attribute.String("change.key", c.Record.Key().String()),
		attribute.Int("channels", len(channels)),
	)

	message, err := scores.Render(c)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to render change")
		return nil, err
	}

	var failures []*PushError
	for i, channel := range channels {
		err := channel.Push(ctx, message)
		if err != nil {
			pushErr := &PushError{Index: i, Channel: channel.Type(), Err: err}
			failures = append(failures, pushErr)
			span.RecordError(pushErr)
			slog.ErrorContext(
				ctx, "failed to push message",
				"channel", channel.Type(),
				"kind", ErrorKind(err),
				"key", c.Record.Key().String(),
				"err", err,
			)
		} else {
			slog.InfoContext(ctx, "message pushed", "channel", channel.Type(), "key", c.Record.Key().String())
		}

		err = d.pace(ctx)
		if err != nil {
			return failures, err
		}
	}

	if len(failures) > 0 {
		span.SetStatus(codes.Error, "some pushes failed")
	}
	return failures, nil
}

// DispatchAll dispatches every change in order. A change that cannot be
// rendered is logged and skipped.
func (d Dispatcher) DispatchAll(ctx context.Context, changes []scores.Change, channels []Channel) ([]*PushError, error) {
	var failures []*PushError
	for _, c := range changes {
		slog.InfoContext(ctx, "score changed", "kind", c.Kind.String(), "key", c.Record.Key().String(), "course", c.Record.CourseName)

		pushErrs, err := d.Dispatch(ctx, c, channels)
		failures = append(failures, pushErrs...)
		if err != nil && ctx.Err() != nil {
			return failures, err
		}
		if err != nil {
			slog.ErrorContext(ctx, "failed to dispatch change", "key", c.Record.Key().String(), "err", err)
		}
	}
	return failures, nil
}
