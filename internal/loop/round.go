package loop

import (
	"context"
	"fmt"

	"storyloop/internal/review"
	"storyloop/internal/story"
)

// roundOutcome classifies how one story's rounds ended within a single
// outer iteration.
type roundOutcome int

const (
	roundPassed        roundOutcome = iota // Story marked passed, a reviewed (or fallback) commit exists.
	roundNothingStaged                     // Implement step staged nothing; story abandoned without review.
	roundExhausted                         // NEEDS_FIX on every round up to the cap; story left unresolved.
)

// roundResult is the terminal outcome of the inner round loop for one story.
type roundResult struct {
	outcome roundOutcome
	rounds  int

	// lastReviewOutput is the captured output of the final review
	// invocation, checked for the all-complete marker.
	lastReviewOutput string
}

// runRounds drives implement (or fix) → stage check → review → verdict
// dispatch for one story, up to MaxRounds cycles.
func (l *Loop) runRounds(ctx context.Context, st *story.Story) (*roundResult, error) {
	res := &roundResult{}

	for round := 1; round <= l.maxRounds; round++ {
		res.rounds = round

		// A retained verdict from the previous round turns this round's
		// implement step into a fix step.
		retained, err := l.markers.LoadVerdict()
		if err != nil {
			// Unparseable retained verdict: fall back to a fresh
			// implement round rather than aborting the run.
			writef(l.out, "warning: discarding unreadable verdict file: %v\n", err)
			retained = nil
		}
		fixing := retained != nil
		l.observer.OnRoundStart(st.ID, round, l.maxRounds, fixing)
		if fixing {
			writef(l.out, "[round %d/%d] fixing %s (%d outstanding issues)\n", round, l.maxRounds, st.ID, len(retained.Issues))
		} else {
			writef(l.out, "[round %d/%d] implementing %s\n", round, l.maxRounds, st.ID)
		}

		if err := l.markers.WriteActiveStory(st.ID); err != nil {
			return nil, fmt.Errorf("recording active story: %w", err)
		}

		if _, err := l.limiter.Run(ctx, func(ctx context.Context) (string, error) {
			return l.implement(ctx, st, retained)
		}); err != nil {
			return nil, err
		}

		staged, err := l.git.HasStaged()
		if err != nil {
			return nil, fmt.Errorf("checking staging area: %w", err)
		}
		if !staged {
			// No point reviewing an empty diff. Not an error; the story
			// stays unresolved for the next outer iteration.
			writef(l.out, "nothing staged after implement step, abandoning %s for this iteration\n", st.ID)
			res.outcome = roundNothingStaged
			return res, nil
		}

		if l.skipReview {
			commit, err := l.git.CommitStaged(fmt.Sprintf("%s: %s", st.ID, st.Title))
			if err != nil {
				return nil, fmt.Errorf("self-commit for %s: %w", st.ID, err)
			}
			if err := l.store.MarkStoryPassed(st.ID, "committed without review (review skipped)"); err != nil {
				return nil, err
			}
			writef(l.out, "committed %s without review (%s)\n", st.ID, shortCommit(commit))
			res.outcome = roundPassed
			return res, nil
		}

		// Delete any stale verdict before the reviewer runs, so a reviewer
		// that produces nothing is seen as a crash rather than as last
		// round's report.
		if err := l.markers.RemoveVerdict(); err != nil {
			return nil, fmt.Errorf("clearing verdict file: %w", err)
		}

		baseline, err := l.markers.Baseline()
		if err != nil {
			return nil, fmt.Errorf("reading review baseline: %w", err)
		}

		reviewOut, err := l.limiter.Run(ctx, func(ctx context.Context) (string, error) {
			return l.review(ctx, st, baseline)
		})
		if err != nil {
			return nil, err
		}
		res.lastReviewOutput = reviewOut

		report, err := review.LoadReport(l.markers.VerdictPath())
		if err != nil {
			report = nil // crash branch: no parseable verdict
		}

		resolution, err := l.gate.Resolve(report, st.ID)
		if err != nil {
			return nil, err
		}
		l.observer.OnVerdict(st.ID, resolution.Verdict)
		writef(l.out, "[round %d/%d] verdict for %s: %s\n", round, l.maxRounds, st.ID, resolution.Verdict)

		if resolution.StoryPassed {
			if err := l.store.MarkStoryPassed(st.ID, resolution.PassNote); err != nil {
				return nil, err
			}
			if resolution.Commit != "" {
				if err := l.markers.WriteBaseline(resolution.Commit); err != nil {
					return nil, fmt.Errorf("recording review baseline: %w", err)
				}
				writef(l.out, "%s passed (%s)\n", st.ID, shortCommit(resolution.Commit))
			} else {
				writef(l.out, "%s passed\n", st.ID)
			}
			res.outcome = roundPassed
			return res, nil
		}
		// NEEDS_FIX or UNKNOWN: the verdict file stays on disk for the
		// next round's fix prompt.
	}

	// Rounds exhausted: purge the markers but keep the working-tree
	// changes for the next outer iteration to pick up.
	writef(l.out, "warning: %s still NEEDS_FIX after %d rounds, moving on\n", st.ID, l.maxRounds)
	if err := l.markers.Purge(); err != nil {
		return nil, err
	}
	res.outcome = roundExhausted
	return res, nil
}

func shortCommit(commit string) string {
	if len(commit) > 8 {
		return commit[:8]
	}
	return commit
}
