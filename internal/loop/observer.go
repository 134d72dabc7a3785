package loop

import (
	"storyloop/internal/review"
	"storyloop/internal/story"
)

// ProgressObserver receives loop lifecycle events. Implementations must not
// block; they run inline on the loop goroutine.
type ProgressObserver interface {
	OnRunStart(runDir string, remaining int)
	OnIterationStart(iteration, max int)
	OnStoryStart(st story.Story)
	OnRoundStart(storyID string, round, maxRounds int, fixing bool)
	OnVerdict(storyID string, verdict review.Verdict)
	OnStoryComplete(storyID string, passed bool)
	OnRunEnd(summary *RunSummary)
}

// MultiObserver fans out progress updates to multiple observers.
// It handles nil observers gracefully by skipping them.
type MultiObserver struct {
	observers []ProgressObserver
}

// Ensure MultiObserver implements ProgressObserver.
var _ ProgressObserver = (*MultiObserver)(nil)

// NewMultiObserver creates a MultiObserver that forwards calls to all
// provided observers. Nil observers are filtered out.
func NewMultiObserver(observers ...ProgressObserver) *MultiObserver {
	filtered := make([]ProgressObserver, 0, len(observers))
	for _, obs := range observers {
		if obs != nil {
			filtered = append(filtered, obs)
		}
	}
	return &MultiObserver{observers: filtered}
}

// safeCall calls fn with panic recovery. One observer failing shouldn't
// block others.
func safeCall(fn func()) {
	defer func() {
		if r := recover(); r != nil {
		}
	}()
	fn()
}

func (m *MultiObserver) OnRunStart(runDir string, remaining int) {
	for _, obs := range m.observers {
		safeCall(func() { obs.OnRunStart(runDir, remaining) })
	}
}

func (m *MultiObserver) OnIterationStart(iteration, max int) {
	for _, obs := range m.observers {
		safeCall(func() { obs.OnIterationStart(iteration, max) })
	}
}

func (m *MultiObserver) OnStoryStart(st story.Story) {
	for _, obs := range m.observers {
		safeCall(func() { obs.OnStoryStart(st) })
	}
}

func (m *MultiObserver) OnRoundStart(storyID string, round, maxRounds int, fixing bool) {
	for _, obs := range m.observers {
		safeCall(func() { obs.OnRoundStart(storyID, round, maxRounds, fixing) })
	}
}

func (m *MultiObserver) OnVerdict(storyID string, verdict review.Verdict) {
	for _, obs := range m.observers {
		safeCall(func() { obs.OnVerdict(storyID, verdict) })
	}
}

func (m *MultiObserver) OnStoryComplete(storyID string, passed bool) {
	for _, obs := range m.observers {
		safeCall(func() { obs.OnStoryComplete(storyID, passed) })
	}
}

func (m *MultiObserver) OnRunEnd(summary *RunSummary) {
	for _, obs := range m.observers {
		safeCall(func() { obs.OnRunEnd(summary) })
	}
}
