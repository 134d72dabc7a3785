package trace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"storyloop/internal/loop"
	"storyloop/internal/review"
	"storyloop/internal/story"
)

func testTracer(t *testing.T) (*Tracer, *tracetest.InMemoryExporter) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return &Tracer{provider: provider, tracer: provider.Tracer("test")}, exporter
}

func TestNew_DisabledWithoutEndpoint(t *testing.T) {
	t.Setenv(EndpointEnv, "")
	tr, err := New(context.Background())
	require.NoError(t, err)
	assert.Nil(t, tr)
	require.NoError(t, tr.Shutdown(context.Background()))
}

func TestObserver_NilIsSafe(t *testing.T) {
	obs := NewObserver(context.Background(), nil)
	require.Nil(t, obs)

	// Every callback must be a no-op on the nil observer.
	obs.OnRunStart("dir", 1)
	obs.OnIterationStart(1, 2)
	obs.OnStoryStart(story.Story{})
	obs.OnRoundStart("s-1", 1, 3, false)
	obs.OnVerdict("s-1", review.VerdictPass)
	obs.OnStoryComplete("s-1", true)
	obs.OnRunEnd(&loop.RunSummary{})
}

func TestObserver_EmitsRunStoryRoundSpans(t *testing.T) {
	tracer, exporter := testTracer(t)
	obs := NewObserver(context.Background(), tracer)

	obs.OnRunStart("/tmp/run", 2)
	obs.OnStoryStart(story.Story{ID: "s-1", Title: "First"})
	obs.OnRoundStart("s-1", 1, 3, false)
	obs.OnVerdict("s-1", review.VerdictNeedsFix)
	obs.OnRoundStart("s-1", 2, 3, true)
	obs.OnVerdict("s-1", review.VerdictPass)
	obs.OnStoryComplete("s-1", true)
	obs.OnRunEnd(&loop.RunSummary{StopReason: loop.StopComplete, Passed: 1})

	spans := exporter.GetSpans()
	names := make(map[string]int)
	for _, s := range spans {
		names[s.Name]++
	}
	assert.Equal(t, 1, names["run"])
	assert.Equal(t, 1, names["story"])
	assert.Equal(t, 2, names["round"])

	for _, s := range spans {
		if s.Name == "round" {
			assert.NotEmpty(t, s.Attributes)
		}
	}
}

func TestObserver_RoundSpanEndedBeforeNextRound(t *testing.T) {
	tracer, exporter := testTracer(t)
	obs := NewObserver(context.Background(), tracer)

	obs.OnRunStart("/tmp/run", 1)
	obs.OnStoryStart(story.Story{ID: "s-1"})
	obs.OnRoundStart("s-1", 1, 3, false)
	// No verdict (crash path); starting the next round must still close
	// the previous span.
	obs.OnRoundStart("s-1", 2, 3, false)
	obs.OnStoryComplete("s-1", false)
	obs.OnRunEnd(&loop.RunSummary{})

	assert.Len(t, exporter.GetSpans(), 4)
}
