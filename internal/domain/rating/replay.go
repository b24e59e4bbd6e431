package rating

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/okian/arena/internal/domain/model"
)

const tracerName = "github.com/okian/arena/internal/domain/rating"

// ctxCheckEvery is how many events are applied between cancellation checks.
const ctxCheckEvery = 1024

// Rebuild returns a fresh engine with every event applied in slice order.
// The input is not modified and the result depends only on names, events and
// opts. History is always disabled on the rebuilt engine. An event naming an
// unknown item stops the rebuild with a *ReplayError.
func Rebuild(ctx context.Context, names []string, events []model.VoteEvent, opts ...Option) (*Engine, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "rating.Rebuild",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.Int("rating.items", len(names)),
			attribute.Int("rating.events", len(events)),
		),
	)
	defer span.End()

	all := make([]Option, 0, len(opts)+1)
	all = append(all, opts...)
	e := New(names, append(all, WithHistoryLimit(0))...)
	if err := Replay(ctx, e, events); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return e, nil
}

// Replay applies events to e in order without recording history.
func Replay(ctx context.Context, e *Engine, events []model.VoteEvent) error {
	return ReplayEach(ctx, e, events, nil)
}

// ReplayEach is Replay with a callback invoked after each event is applied.
func ReplayEach(ctx context.Context, e *Engine, events []model.VoteEvent, after func(model.VoteEvent)) error {
	for i, ev := range events {
		if i%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if err := e.apply(ev.Winner, ev.Loser); err != nil {
			return &ReplayError{Seq: ev.Seq, Err: err}
		}
		if after != nil {
			after(ev)
		}
	}
	return nil
}
