package loop

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"storyloop/internal/gitops"
	"storyloop/internal/ratelimit"
	"storyloop/internal/review"
	"storyloop/internal/story"
)

// StopReason indicates why the story loop terminated.
type StopReason int

const (
	StopComplete      StopReason = iota // Every story passed.
	StopUserRequested                   // Stop file dropped or context cancelled.
	StopRateLimit                       // Rate-limit retries exhausted the wait budget.
	StopMaxIterations                   // Hit the max-iterations cap without completion.
)

// String returns a human-readable label for the stop reason.
func (r StopReason) String() string {
	switch r {
	case StopComplete:
		return "complete"
	case StopUserRequested:
		return "user-stop"
	case StopRateLimit:
		return "rate-limit-give-up"
	case StopMaxIterations:
		return "max-iterations"
	default:
		return "unknown"
	}
}

// ExitCode returns the process exit code for each stop reason. Callers
// scripting around the tool rely on these staying distinct: a graceful user
// stop is still a success, a rate-limit give-up is not.
func (r StopReason) ExitCode() int {
	switch r {
	case StopComplete, StopUserRequested:
		return 0
	case StopRateLimit:
		return 2
	case StopMaxIterations:
		return 3
	default:
		return 1
	}
}

// MarshalJSON implements json.Marshaler.
func (r StopReason) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *StopReason) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "complete":
		*r = StopComplete
	case "user-stop":
		*r = StopUserRequested
	case "rate-limit-give-up":
		*r = StopRateLimit
	case "max-iterations":
		*r = StopMaxIterations
	default:
		return fmt.Errorf("unknown StopReason: %s", s)
	}
	return nil
}

// DefaultMaxIterations bounds the outer story loop when the caller gives no
// explicit cap.
const DefaultMaxIterations = 10

// DefaultMaxRounds bounds implement/review cycles per story per iteration.
const DefaultMaxRounds = 3

// Config configures the story work loop.
type Config struct {
	WorkDir string

	Store *story.Store
	Git   *gitops.Git

	MaxIterations int
	MaxRounds     int

	// SkipReview bypasses the gatekeeper entirely: every round that stages
	// changes is self-committed and the story marked passed.
	SkipReview bool

	// RateLimit retries agent invocations whose output matches a rate-limit
	// signature. Nil means a fresh controller with defaults.
	RateLimit *ratelimit.Controller

	// Implement runs the implement (or fix, when retained is non-nil) step
	// and returns the captured output. Review runs the gatekeeper. Both are
	// required (Review only when SkipReview is unset); AgentHooks builds
	// the real ones, tests inject fakes.
	Implement func(ctx context.Context, st *story.Story, retained *review.Report) (string, error)
	Review    func(ctx context.Context, st *story.Story, baseline string) (string, error)

	Output   io.Writer // defaults to os.Stdout
	Observer ProgressObserver
}

// RunSummary holds aggregate results across all iterations.
type RunSummary struct {
	Iterations    int
	Passed        int
	Exhausted     int
	NothingStaged int
	Remaining     int
	StopReason    StopReason
	Duration      time.Duration
}

// writef writes formatted output, ignoring errors.
// Use for non-critical output where write failures are acceptable.
func writef(w io.Writer, format string, args ...interface{}) {
	_, _ = fmt.Fprintf(w, format, args...)
}

// formatDuration formats a duration in a human-readable way (e.g. "2m34s").
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
