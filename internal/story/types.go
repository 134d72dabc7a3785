// Package story implements the persisted run state: the story queue,
// the progress log, and the archival housekeeping around both.
package story

import "sort"

// Story is one schedulable unit of work with acceptance criteria and a
// pass/fail flag. The file hint fields are advisory only; they are consumed
// by the external agent, never by the orchestrator itself.
type Story struct {
	ID                 string   `json:"id"`
	Title              string   `json:"title"`
	Description        string   `json:"description,omitempty"`
	AcceptanceCriteria []string `json:"acceptanceCriteria,omitempty"`
	FilesToModify      []string `json:"filesToModify,omitempty"`
	FilesToStudy       []string `json:"filesToStudy,omitempty"`
	TestFiles          []string `json:"testFiles,omitempty"`
	Priority           int      `json:"priority"`
	Passes             bool     `json:"passes"`
	Notes              string   `json:"notes,omitempty"`
}

// Run is the structured record persisted as prd.json inside a run directory.
type Run struct {
	Project     string  `json:"project"`
	BranchName  string  `json:"branchName"`
	Description string  `json:"description,omitempty"`
	Stories     []Story `json:"stories"`
}

// RemainingCount returns the number of stories not yet passed.
func (r *Run) RemainingCount() int {
	n := 0
	for _, s := range r.Stories {
		if !s.Passes {
			n++
		}
	}
	return n
}

// NextStory returns the unpassed story with the lowest priority value,
// breaking ties by document order. Returns nil when every story passes.
func (r *Run) NextStory() *Story {
	idx := make([]int, 0, len(r.Stories))
	for i, s := range r.Stories {
		if !s.Passes {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		return nil
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return r.Stories[idx[a]].Priority < r.Stories[idx[b]].Priority
	})
	return &r.Stories[idx[0]]
}

// FindStory returns the story with the given id, or nil.
func (r *Run) FindStory(id string) *Story {
	for i := range r.Stories {
		if r.Stories[i].ID == id {
			return &r.Stories[i]
		}
	}
	return nil
}
