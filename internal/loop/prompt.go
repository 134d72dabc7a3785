package loop

import (
	"fmt"
	"strings"

	"storyloop/internal/review"
	"storyloop/internal/story"
)

// AllCompleteMarker is the textual signal the reviewer emits when every
// story in the run is done. The loop checks the last captured review output
// for it before re-counting remaining stories.
const AllCompleteMarker = "ALL STORIES COMPLETE"

// RenderImplementPrompt builds the prompt for a fresh implementation round.
func RenderImplementPrompt(st *story.Story) string {
	var b strings.Builder

	b.WriteString("Implement the following story. Stage your changes with git add when done; do not commit.\n")
	b.WriteString("Record the story id in ")
	b.WriteString(CurrentStoryFileName)
	b.WriteString(".\n\n")

	writeStoryContext(&b, st)

	return b.String()
}

// RenderFixPrompt builds the prompt for a fix round, embedding the
// outstanding issues from the retained verdict report.
func RenderFixPrompt(st *story.Story, report *review.Report) string {
	var b strings.Builder

	b.WriteString("The previous review of this story found issues. Fix them and stage your changes with git add; do not commit.\n\n")

	writeStoryContext(&b, st)

	if report.Summary != "" {
		b.WriteString("## Review summary\n\n")
		b.WriteString(report.Summary)
		b.WriteString("\n\n")
	}

	if len(report.Issues) > 0 {
		b.WriteString("## Issues to fix\n\n")
		for _, issue := range report.Issues {
			b.WriteString(fmt.Sprintf("- [%s] %s", issue.Severity, issue.Description))
			if issue.File != "" {
				b.WriteString(fmt.Sprintf(" (%s", issue.File))
				if issue.Line > 0 {
					b.WriteString(fmt.Sprintf(":%d", issue.Line))
				}
				b.WriteString(")")
			}
			b.WriteString("\n")
			if issue.Suggestion != "" {
				b.WriteString("  Suggestion: ")
				b.WriteString(issue.Suggestion)
				b.WriteString("\n")
			}
		}
		b.WriteString("\n")
	}

	return b.String()
}

// RenderReviewPrompt builds the prompt for the gatekeeper review process.
func RenderReviewPrompt(st *story.Story, baseline string) string {
	var b strings.Builder

	b.WriteString("Review the staged changes for the following story against its acceptance criteria.\n")
	if baseline != "" {
		b.WriteString("Scope your review to the diff since commit ")
		b.WriteString(baseline)
		b.WriteString(".\n")
	}
	b.WriteString("Write your verdict to ")
	b.WriteString(VerdictFileName)
	b.WriteString(` as JSON: {"story_id", "verdict" (PASS or NEEDS_FIX), "summary", "issues": [{"severity", "category", "file", "line", "description", "suggestion"}]}.`)
	b.WriteString("\nIf the verdict is PASS, commit the staged changes and mark the story passed in the run state file.\n")
	b.WriteString("If every story in the run is now complete, print the exact line: ")
	b.WriteString(AllCompleteMarker)
	b.WriteString("\n\n")

	writeStoryContext(&b, st)

	return b.String()
}

// writeStoryContext appends the story id, title, description, and
// acceptance criteria shared by all prompts.
func writeStoryContext(b *strings.Builder, st *story.Story) {
	b.WriteString("Story ID: ")
	b.WriteString(st.ID)
	b.WriteString("\n\n# ")
	b.WriteString(st.Title)
	b.WriteString("\n\n")

	if st.Description != "" {
		b.WriteString(st.Description)
		b.WriteString("\n\n")
	}

	if len(st.AcceptanceCriteria) > 0 {
		b.WriteString("## Acceptance criteria\n\n")
		for _, c := range st.AcceptanceCriteria {
			b.WriteString("- ")
			b.WriteString(c)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	writePathHints(b, "Files to modify", st.FilesToModify)
	writePathHints(b, "Files to study", st.FilesToStudy)
	writePathHints(b, "Test files", st.TestFiles)
}

func writePathHints(b *strings.Builder, heading string, paths []string) {
	if len(paths) == 0 {
		return
	}
	b.WriteString("## ")
	b.WriteString(heading)
	b.WriteString("\n\n")
	for _, p := range paths {
		b.WriteString("- ")
		b.WriteString(p)
		b.WriteString("\n")
	}
	b.WriteString("\n")
}
