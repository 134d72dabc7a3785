package trace

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"

	"storyloop/internal/loop"
	"storyloop/internal/review"
	"storyloop/internal/story"
)

// Observer emits one span per run, story, and round. All methods are safe
// on a nil receiver, so callers can wire it unconditionally.
type Observer struct {
	tracer *Tracer

	runCtx    context.Context
	runSpan   oteltrace.Span
	storyCtx  context.Context
	storySpan oteltrace.Span
	roundSpan oteltrace.Span
}

var _ loop.ProgressObserver = (*Observer)(nil)

// NewObserver wires a Tracer into the loop's observer interface. A nil
// Tracer yields a nil Observer whose methods are all no-ops.
func NewObserver(ctx context.Context, tracer *Tracer) *Observer {
	if tracer == nil {
		return nil
	}
	return &Observer{tracer: tracer, runCtx: ctx}
}

func (o *Observer) OnRunStart(runDir string, remaining int) {
	if o == nil {
		return
	}
	o.runCtx, o.runSpan = o.tracer.tracer.Start(o.runCtx, "run",
		oteltrace.WithAttributes(
			attribute.String("storyloop.run.dir", runDir),
			attribute.Int("storyloop.run.remaining", remaining),
		))
}

func (o *Observer) OnIterationStart(iteration, max int) {
	if o == nil || o.runSpan == nil {
		return
	}
	o.runSpan.AddEvent("iteration", oteltrace.WithAttributes(
		attribute.Int("storyloop.iteration", iteration),
	))
}

func (o *Observer) OnStoryStart(st story.Story) {
	if o == nil {
		return
	}
	o.storyCtx, o.storySpan = o.tracer.tracer.Start(o.runCtx, "story",
		oteltrace.WithAttributes(
			attribute.String("storyloop.story.id", st.ID),
			attribute.String("storyloop.story.title", st.Title),
		))
}

func (o *Observer) OnRoundStart(storyID string, round, maxRounds int, fixing bool) {
	if o == nil {
		return
	}
	o.endRound()
	_, o.roundSpan = o.tracer.tracer.Start(o.storyCtx, "round",
		oteltrace.WithAttributes(
			attribute.String("storyloop.story.id", storyID),
			attribute.Int("storyloop.round", round),
			attribute.Int("storyloop.round.max", maxRounds),
			attribute.Bool("storyloop.round.fixing", fixing),
		))
}

func (o *Observer) OnVerdict(storyID string, verdict review.Verdict) {
	if o == nil || o.roundSpan == nil {
		return
	}
	o.roundSpan.SetAttributes(attribute.String("storyloop.verdict", verdict.String()))
	o.endRound()
}

func (o *Observer) OnStoryComplete(storyID string, passed bool) {
	if o == nil {
		return
	}
	o.endRound()
	if o.storySpan != nil {
		o.storySpan.SetAttributes(attribute.Bool("storyloop.story.passed", passed))
		o.storySpan.End()
		o.storySpan = nil
	}
}

func (o *Observer) OnRunEnd(summary *loop.RunSummary) {
	if o == nil || o.runSpan == nil {
		return
	}
	o.runSpan.SetAttributes(
		attribute.String("storyloop.stop_reason", summary.StopReason.String()),
		attribute.Int("storyloop.exit_code", summary.StopReason.ExitCode()),
		attribute.Int("storyloop.passed", summary.Passed),
		attribute.Int("storyloop.remaining", summary.Remaining),
	)
	o.runSpan.End()
	o.runSpan = nil
}

func (o *Observer) endRound() {
	if o.roundSpan != nil {
		o.roundSpan.End()
		o.roundSpan = nil
	}
}
