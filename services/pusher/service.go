package pusher

import (
	"context"
	"log/slog"
	"scorepusher/lib/notify"
	"scorepusher/lib/scores"
	"scorepusher/lib/scorestore"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

var tracer = otel.Tracer("services/pusher")
var meter = otel.Meter("services/pusher")

type Options struct {
	Fetcher    Fetcher
	Store      scorestore.Store
	Dispatcher notify.Dispatcher
	Channels   []notify.Channel
	Diff       scores.DiffOptions
}

type Service struct {
	fetcher    Fetcher
	store      scorestore.Store
	dispatcher notify.Dispatcher
	channels   []notify.Channel
	diff       scores.DiffOptions

	cycleCounter  metric.Int64Counter
	changeCounter metric.Int64Counter
}

func NewService(opts Options) (Service, error) {
	cycleCounter, err := meter.Int64Counter(
		"pusher_cycles_total",
		metric.WithDescription("The total amount of fetch cycles, by result."),
	)
	if err != nil {
		return Service{}, err
	}
	changeCounter, err := meter.Int64Counter(
		"pusher_changes_total",
		metric.WithDescription("The total amount of score changes detected, by kind."),
	)
	if err != nil {
		return Service{}, err
	}

	return Service{
		fetcher:       opts.Fetcher,
		store:         opts.Store,
		dispatcher:    opts.Dispatcher,
		channels:      opts.Channels,
		diff:          opts.Diff,
		cycleCounter:  cycleCounter,
		changeCounter: changeCounter,
	}, nil
}

// Report summarizes a completed cycle.
type Report struct {
	Records    int
	Changes    []scores.Change
	PushErrors []*notify.PushError
}

// RunCycle fetches the current snapshot, notifies every change against the
// stored one and then replaces it. Nothing is saved when any step before
// saving fails, push failures alone do not count as such.
func (s Service) RunCycle(ctx context.Context) (Report, error) {
	ctx, span := tracer.Start(ctx, "RunCycle")
	defer span.End()

	report, err := s.runCycle(ctx)
	if err != nil {
		kind := ErrorKind(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, kind)
		s.cycleCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("result", kind)))
		return report, err
	}
	s.cycleCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "ok")))
	span.SetAttributes(
		attribute.Int("records", report.Records),
		attribute.Int("changes", len(report.Changes)),
		attribute.Int("push_errors", len(report.PushErrors)),
	)
	return report, nil
}

func (s Service) runCycle(ctx context.Context) (Report, error) {
	slog.InfoContext(ctx, "start fetching data")

	current, err := s.fetcher.Fetch(ctx)
	if err != nil {
		return Report{}, &CycleError{Stage: StageFetch, Err: err}
	}
	report := Report{Records: len(current)}

	previous, err := s.store.Load(ctx)
	if err != nil {
		return report, &CycleError{Stage: StageLoad, Err: err}
	}

	changes, err := scores.Diff(previous, current, s.diff)
	if err != nil {
		return report, &CycleError{Stage: StageDiff, Err: err}
	}
	report.Changes = changes
	for _, c := range changes {
		s.changeCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", c.Kind.String())))
	}

	pushErrs, err := s.dispatcher.DispatchAll(ctx, changes, s.channels)
	report.PushErrors = pushErrs
	if err != nil {
		// only cancellation stops a dispatch
		return report, err
	}

	err = s.store.Save(ctx, current)
	if err != nil {
		return report, &CycleError{Stage: StageSave, Err: err}
	}

	slog.InfoContext(
		ctx, "data fetched",
		"records", report.Records,
		"changes", len(report.Changes),
		"push_errors", len(report.PushErrors),
	)
	return report, nil
}
