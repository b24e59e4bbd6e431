// Package analytics rebuilds per-item rating trajectories from the vote log.
package analytics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/okian/arena/internal/domain/model"
	"github.com/okian/arena/internal/domain/rating"
)

const tracerName = "github.com/okian/arena/internal/domain/analytics"

// Timelines maps an item name to its rating after each event. Index 0 is
// the starting rating with no time.
type Timelines map[string][]model.TimelinePoint

// BuildTimelines replays events on a private engine and records every
// item's rating after every event, whether or not the item took part. Each
// timeline has len(events)+1 points. Live state is never consulted.
func BuildTimelines(ctx context.Context, names []string, events []model.VoteEvent, opts ...rating.Option) (Timelines, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "analytics.BuildTimelines",
		trace.WithAttributes(
			attribute.Int("analytics.items", len(names)),
			attribute.Int("analytics.events", len(events)),
		),
	)
	defer span.End()

	all := make([]rating.Option, 0, len(opts)+1)
	all = append(all, opts...)
	e := rating.New(names, append(all, rating.WithHistoryLimit(0))...)

	start := e.Ratings()
	out := make(Timelines, len(start))
	for name, r := range start {
		tl := make([]model.TimelinePoint, 1, len(events)+1)
		tl[0] = model.TimelinePoint{Score: r}
		out[name] = tl
	}

	err := rating.ReplayEach(ctx, e, events, func(ev model.VoteEvent) {
		for name, r := range e.Ratings() {
			out[name] = append(out[name], model.TimelinePoint{Time: ev.Time, Score: r})
		}
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return out, nil
}
