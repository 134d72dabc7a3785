// Package ratelimit detects provider rate-limit signatures in captured
// process output and paces retries with a progressive, plateauing backoff.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// DefaultSignatures are matched case-insensitively against captured output.
// False negatives on a real provider message are a correctness bug, so the
// list leans broad; the set is configurable for providers not covered here.
var DefaultSignatures = []string{
	"429",
	"rate limit",
	"rate_limit",
	"usage limit",
	"too many requests",
	"quota exceeded",
	"overloaded",
}

// DefaultDelays is the progressive backoff schedule. Retry N waits
// delays[min(N, len-1)], so the delay grows then plateaus at the last value.
var DefaultDelays = []time.Duration{5 * time.Minute, 15 * time.Minute, 30 * time.Minute}

// ErrBudgetExhausted is returned when the total-wait budget runs out.
// Callers surface it as the rate-limit give-up exit code rather than
// looping forever silently.
var ErrBudgetExhausted = errors.New("rate limit retries exhausted wait budget")

// Detector classifies captured output as rate-limited or not.
type Detector struct {
	signatures []string
}

// NewDetector builds a Detector. An empty signature list means defaults.
func NewDetector(signatures []string) *Detector {
	if len(signatures) == 0 {
		signatures = DefaultSignatures
	}
	lowered := make([]string, len(signatures))
	for i, s := range signatures {
		lowered[i] = strings.ToLower(s)
	}
	return &Detector{signatures: lowered}
}

// IsRateLimited reports whether output matches any configured signature.
func (d *Detector) IsRateLimited(output string) bool {
	lower := strings.ToLower(output)
	for _, sig := range d.signatures {
		if strings.Contains(lower, sig) {
			return true
		}
	}
	return false
}

// Controller retries an operation while its output looks rate-limited.
// A fresh Controller starts a fresh retry sequence; the delay index never
// resets within one Controller's lifetime.
type Controller struct {
	Detector *Detector

	// Delays is the backoff schedule. Empty means DefaultDelays.
	Delays []time.Duration

	// WaitBudget caps the total time spent sleeping across retries.
	// Zero means unbounded (keep retrying at the plateau delay).
	WaitBudget time.Duration

	// Output receives progress lines. Defaults to io.Discard.
	Output io.Writer

	// Sleep is the wait function, injectable for tests. The default honors
	// context cancellation.
	Sleep func(ctx context.Context, d time.Duration) error

	waited time.Duration
}

// Delay returns the backoff delay for the Nth retry (0-indexed):
// non-decreasing, plateauing at the largest configured value.
func (c *Controller) Delay(attempt int) time.Duration {
	delays := c.Delays
	if len(delays) == 0 {
		delays = DefaultDelays
	}
	if attempt >= len(delays) {
		attempt = len(delays) - 1
	}
	if attempt < 0 {
		attempt = 0
	}
	return delays[attempt]
}

// Run invokes op, and while the captured output matches a rate-limit
// signature, waits the scheduled delay and re-invokes op with its original
// inputs. op's error is returned as-is; only a matched signature triggers a
// retry. Returns the first non-rate-limited output.
func (c *Controller) Run(ctx context.Context, op func(ctx context.Context) (string, error)) (string, error) {
	detector := c.Detector
	if detector == nil {
		detector = NewDetector(nil)
	}
	sleep := c.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	out := c.Output
	if out == nil {
		out = io.Discard
	}

	for attempt := 0; ; attempt++ {
		output, err := op(ctx)
		if err != nil {
			return output, err
		}
		if !detector.IsRateLimited(output) {
			return output, nil
		}

		delay := c.Delay(attempt)
		if c.WaitBudget > 0 && c.waited+delay > c.WaitBudget {
			return output, fmt.Errorf("%w (waited %s of %s)", ErrBudgetExhausted, c.waited, c.WaitBudget)
		}
		fmt.Fprintf(out, "rate limited, waiting %s before retry %d\n", delay, attempt+1)
		if err := sleep(ctx, delay); err != nil {
			return output, err
		}
		c.waited += delay
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
