// Package review interprets the reviewer's verdict artifact and decides who
// is allowed to commit.
package review

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Verdict classifies one review cycle.
type Verdict int

const (
	VerdictPass     Verdict = iota // No blocking issues; the round's work is approved.
	VerdictNeedsFix                // Blocking issues; the next round fixes them.
	VerdictCrash                   // Reviewer produced no parseable verdict artifact.
	VerdictUnknown                 // Unrecognized verdict string; treated as needs-fix.
)

// String returns the wire label for the verdict.
func (v Verdict) String() string {
	switch v {
	case VerdictPass:
		return "PASS"
	case VerdictNeedsFix:
		return "NEEDS_FIX"
	case VerdictCrash:
		return "CRASH"
	default:
		return "UNKNOWN"
	}
}

// ParseVerdict maps a reviewer-written verdict string to a Verdict.
// Matching is case-insensitive; anything unrecognized is VerdictUnknown.
func ParseVerdict(s string) Verdict {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PASS":
		return VerdictPass
	case "NEEDS_FIX":
		return VerdictNeedsFix
	case "CRASH":
		return VerdictCrash
	default:
		return VerdictUnknown
	}
}

// MarshalJSON implements json.Marshaler.
func (v Verdict) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Verdict) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*v = ParseVerdict(s)
	return nil
}

// Issue severities, ordered by weight. Critical and important issues block a
// pass; minor issues do not.
const (
	SeverityCritical  = "critical"
	SeverityImportant = "important"
	SeverityMinor     = "minor"
)

// Issue is one reviewer finding.
type Issue struct {
	Severity    string `json:"severity"`
	Category    string `json:"category,omitempty"`
	File        string `json:"file,omitempty"`
	Line        int    `json:"line,omitempty"`
	Description string `json:"description"`
	Suggestion  string `json:"suggestion,omitempty"`
}

// Blocking reports whether this issue forces a NEEDS_FIX.
func (i Issue) Blocking() bool {
	switch strings.ToLower(i.Severity) {
	case SeverityCritical, SeverityImportant:
		return true
	}
	return false
}

// Report is the verdict file the reviewer writes after each round.
type Report struct {
	StoryID string  `json:"story_id"`
	Verdict Verdict `json:"verdict"`
	Summary string  `json:"summary,omitempty"`
	Issues  []Issue `json:"issues"`
}

// BlockingCount returns the number of critical or important issues.
func (r *Report) BlockingCount() int {
	n := 0
	for _, i := range r.Issues {
		if i.Blocking() {
			n++
		}
	}
	return n
}

// Normalize reconciles the literal verdict field with the issue list. A
// report carrying any blocking issue is NEEDS_FIX no matter what the
// reviewer wrote: a self-contradictory verdict is never trusted toward a
// pass. Returns true if the verdict was downgraded.
func (r *Report) Normalize() bool {
	if r.Verdict == VerdictPass && r.BlockingCount() > 0 {
		r.Verdict = VerdictNeedsFix
		return true
	}
	return false
}

// LoadReport reads and normalizes a verdict file. A missing or unparseable
// file is the reviewer-crash case; callers map the error to VerdictCrash.
func LoadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse verdict file %s: %w", path, err)
	}
	r.Normalize()
	return &r, nil
}
