package loop

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"storyloop/internal/gitops"
	"storyloop/internal/ratelimit"
	"storyloop/internal/review"
	"storyloop/internal/story"
)

// Loop is the resolved story work loop. Build it with New.
type Loop struct {
	workDir       string
	store         *story.Store
	git           *gitops.Git
	markers       *Markers
	gate          *review.Gate
	limiter       *ratelimit.Controller
	maxIterations int
	maxRounds     int
	skipReview    bool
	implement     func(ctx context.Context, st *story.Story, retained *review.Report) (string, error)
	review        func(ctx context.Context, st *story.Story, baseline string) (string, error)
	out           io.Writer
	observer      ProgressObserver
	styles        Styles
}

// New resolves a Config into a runnable Loop.
func New(cfg Config) (*Loop, error) {
	if cfg.Store == nil {
		return nil, errors.New("loop: Store is required")
	}
	if cfg.WorkDir == "" {
		return nil, errors.New("loop: WorkDir is required")
	}
	if cfg.Implement == nil {
		return nil, errors.New("loop: Implement is required")
	}
	if cfg.Review == nil && !cfg.SkipReview {
		return nil, errors.New("loop: Review is required unless SkipReview is set")
	}

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	git := cfg.Git
	if git == nil {
		git = gitops.New(cfg.WorkDir)
	}
	limiter := cfg.RateLimit
	if limiter == nil {
		limiter = &ratelimit.Controller{Output: out}
	}
	maxIterations := cfg.MaxIterations
	if maxIterations == 0 {
		maxIterations = DefaultMaxIterations
	}
	maxRounds := cfg.MaxRounds
	if maxRounds == 0 {
		maxRounds = DefaultMaxRounds
	}
	observer := cfg.Observer
	if observer == nil {
		observer = NewMultiObserver()
	}

	return &Loop{
		workDir:       cfg.WorkDir,
		store:         cfg.Store,
		git:           git,
		markers:       &Markers{Dir: cfg.WorkDir},
		gate:          &review.Gate{Git: git, Output: out},
		limiter:       limiter,
		maxIterations: maxIterations,
		maxRounds:     maxRounds,
		skipReview:    cfg.SkipReview,
		implement:     cfg.Implement,
		review:        cfg.Review,
		out:           out,
		observer:      observer,
		styles:        DefaultStyles(),
	}, nil
}

// Run drives the outer story loop until completion, a stop signal, a
// rate-limit give-up, or the iteration cap. The returned summary always
// carries a StopReason; err is non-nil only for infrastructure failures
// (unreadable state, git failures) that prevent the loop from continuing.
func (l *Loop) Run(ctx context.Context) (*RunSummary, error) {
	summary := &RunSummary{}
	start := time.Now()
	defer func() {
		summary.Duration = time.Since(start)
		l.finish(summary)
	}()

	// Sessions are archived before any other mutation in an invocation.
	if archived, err := l.store.ArchiveIfSessionChanged(); err != nil {
		return summary, err
	} else if archived {
		writef(l.out, "branch changed since last run, archived previous session\n")
	}

	remaining, err := l.store.RemainingCount()
	if err != nil {
		return summary, err
	}
	summary.Remaining = remaining
	l.observer.OnRunStart(l.store.Dir(), remaining)
	writef(l.out, "%s\n", l.styles.Title.Render(fmt.Sprintf("storyloop: %d stories remaining", remaining)))

	for i := 1; i <= l.maxIterations; i++ {
		// Cancellation is observed here, never mid-round: an in-progress
		// implement/review round always runs to completion.
		if ctx.Err() != nil {
			summary.StopReason = StopUserRequested
			return summary, nil
		}

		remaining, err := l.store.RemainingCount()
		if err != nil {
			return summary, err
		}
		summary.Remaining = remaining
		if remaining == 0 {
			summary.StopReason = StopComplete
			return summary, nil
		}

		if err := l.markers.Purge(); err != nil {
			return summary, err
		}

		run, err := l.store.Load()
		if err != nil {
			return summary, err
		}
		next := run.NextStory()
		if next == nil {
			summary.StopReason = StopComplete
			return summary, nil
		}

		summary.Iterations++
		l.observer.OnIterationStart(i, l.maxIterations)
		l.observer.OnStoryStart(*next)
		writef(l.out, "\n[%d/%d] %s %q\n", i, l.maxIterations, next.ID, next.Title)

		res, err := l.runRounds(ctx, next)
		if err != nil {
			if errors.Is(err, ratelimit.ErrBudgetExhausted) {
				summary.StopReason = StopRateLimit
				return summary, nil
			}
			if errors.Is(err, context.Canceled) {
				summary.StopReason = StopUserRequested
				return summary, nil
			}
			return summary, err
		}

		switch res.outcome {
		case roundPassed:
			summary.Passed++
		case roundExhausted:
			summary.Exhausted++
		case roundNothingStaged:
			summary.NothingStaged++
		}
		l.observer.OnStoryComplete(next.ID, res.outcome == roundPassed)

		if res.outcome == roundPassed {
			// Progress log housekeeping: keep the tail short so the fix
			// and review prompts stay cheap to assemble.
			if err := l.store.CompactProgressLog(); err != nil {
				writef(l.out, "warning: compacting progress log: %v\n", err)
			}
			if strings.Contains(res.lastReviewOutput, AllCompleteMarker) {
				summary.StopReason = StopComplete
				summary.Remaining = 0
				return summary, nil
			}
			remaining, err := l.store.RemainingCount()
			if err != nil {
				return summary, err
			}
			summary.Remaining = remaining
			if remaining == 0 {
				summary.StopReason = StopComplete
				return summary, nil
			}
		}

		stop, err := l.markers.ConsumeStop()
		if err != nil {
			return summary, err
		}
		if stop {
			writef(l.out, "stop file found, stopping gracefully\n")
			summary.StopReason = StopUserRequested
			return summary, nil
		}
	}

	summary.StopReason = StopMaxIterations
	return summary, nil
}

// finish prints the aggregate summary and final banner.
func (l *Loop) finish(summary *RunSummary) {
	l.observer.OnRunEnd(summary)

	lines := make([]string, 0, 6)
	lines = append(lines, "Story loop complete:")
	if summary.Passed > 0 {
		lines = append(lines, fmt.Sprintf("  ✓ %d stories passed", summary.Passed))
	}
	if summary.Exhausted > 0 {
		lines = append(lines, fmt.Sprintf("  ✗ %d stories exhausted review rounds", summary.Exhausted))
	}
	if summary.NothingStaged > 0 {
		lines = append(lines, fmt.Sprintf("  ⊘ %d stories staged nothing", summary.NothingStaged))
	}
	if summary.Remaining > 0 {
		lines = append(lines, fmt.Sprintf("  ○ %d stories remaining", summary.Remaining))
	}
	lines = append(lines, fmt.Sprintf("  Duration: %s", formatDuration(summary.Duration)))
	writef(l.out, "\n%s\n", strings.Join(lines, "\n"))

	writef(l.out, "%s\n", l.styles.Banner(summary.StopReason, summary.Remaining))
}
