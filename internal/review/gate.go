package review

import (
	"fmt"
	"io"

	"storyloop/internal/gitops"
)

// Resolution is the gate's decision for one round.
type Resolution struct {
	Verdict Verdict

	// StoryPassed means the round loop ends and the story is marked passed.
	StoryPassed bool

	// Commit is the commit now serving as the next review baseline, when
	// one exists after this round.
	Commit string

	// PassNote is the note recorded against the story when it passed.
	PassNote string

	// RetainVerdict keeps the verdict file on disk so the next round's fix
	// step can read the outstanding issues.
	RetainVerdict bool
}

// Gate dispatches a reviewer verdict into commits and round outcomes. The
// reviewer is the only party authorized to commit under normal operation;
// the gate commits itself only when the reviewer forgot (PASS with work
// still staged) or crashed.
type Gate struct {
	Git    *gitops.Git
	Output io.Writer
}

// Resolve interprets one round's verdict. report may be nil when the
// reviewer produced no parseable artifact; that is the crash branch.
func (g *Gate) Resolve(report *Report, storyID string) (*Resolution, error) {
	if report == nil {
		return g.resolveCrash(storyID)
	}
	report.Normalize()

	switch report.Verdict {
	case VerdictPass:
		return g.resolvePass(report)
	case VerdictUnknown:
		fmt.Fprintf(g.Output, "warning: unrecognized verdict for %s, treating as NEEDS_FIX\n", storyID)
		return &Resolution{Verdict: VerdictUnknown, RetainVerdict: true}, nil
	default:
		return &Resolution{Verdict: VerdictNeedsFix, RetainVerdict: true}, nil
	}
}

// resolveCrash performs the fallback commit: an unattended run must make
// forward progress even when the gatekeeper is unavailable. The action is
// logged distinctly so a human can audit it later.
func (g *Gate) resolveCrash(storyID string) (*Resolution, error) {
	fmt.Fprintf(g.Output, "reviewer crashed (no verdict produced) for %s, performing fallback commit\n", storyID)

	res := &Resolution{
		Verdict:     VerdictCrash,
		StoryPassed: true,
		PassNote:    "fallback commit: reviewer crashed, changes committed unreviewed",
	}

	staged, err := g.Git.HasStaged()
	if err != nil {
		return nil, err
	}
	if !staged {
		// No staged work to salvage; record the current baseline only.
		head, err := g.Git.HeadCommit()
		if err != nil {
			return nil, err
		}
		res.Commit = head
		return res, nil
	}

	commit, err := g.Git.CommitStaged(fmt.Sprintf("%s: fallback commit (reviewer crashed)", storyID))
	if err != nil {
		return nil, fmt.Errorf("fallback commit: %w", err)
	}
	res.Commit = commit
	return res, nil
}

func (g *Gate) resolvePass(report *Report) (*Resolution, error) {
	res := &Resolution{
		Verdict:     VerdictPass,
		StoryPassed: true,
		PassNote:    report.Summary,
	}
	if res.PassNote == "" {
		res.PassNote = "review passed"
	}

	staged, err := g.Git.HasStaged()
	if err != nil {
		return nil, err
	}
	if !staged {
		// The reviewer committed directly; its commit becomes the baseline.
		head, err := g.Git.HeadCommit()
		if err != nil {
			return nil, err
		}
		res.Commit = head
		return res, nil
	}

	// PASS with work still staged: the reviewer forgot to commit.
	fmt.Fprintf(g.Output, "verdict PASS with staged changes, committing on reviewer's behalf\n")
	commit, err := g.Git.CommitStaged(fmt.Sprintf("%s: %s", report.StoryID, res.PassNote))
	if err != nil {
		return nil, fmt.Errorf("commit after pass: %w", err)
	}
	res.Commit = commit
	return res, nil
}
