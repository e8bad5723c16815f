// Package report classifies test outcomes and aggregates them into the
// run report. A single undetected breach is a security failure regardless
// of the pass rate of the rest of the matrix, so every Breach and every
// Inconclusive case is enumerated individually, never folded into a
// percentage.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"sealcheck.io/sealcheck/internal/domain"
)

// Classify applies the verdict table to one expected/actual pair.
// Breach is reserved exclusively for expected=Deny with actual=Success.
func Classify(expected domain.Expected, actual domain.Actual) domain.Classification {
	switch actual.Kind {
	case domain.ActualTransport:
		return domain.Inconclusive
	case domain.ActualSuccess:
		if expected == domain.Deny {
			return domain.Breach
		}
		return domain.Pass
	case domain.ActualDenied:
		if expected == domain.Deny {
			return domain.Pass
		}
		return domain.UnexpectedDenial
	default:
		return domain.Inconclusive
	}
}

// Counts aggregates classifications.
type Counts struct {
	Pass             int `json:"pass"`
	UnexpectedDenial int `json:"unexpected_denial"`
	Breach           int `json:"breach"`
	Inconclusive     int `json:"inconclusive"`
}

// Total returns the number of counted cases.
func (c Counts) Total() int {
	return c.Pass + c.UnexpectedDenial + c.Breach + c.Inconclusive
}

func (c *Counts) add(cl domain.Classification) {
	switch cl {
	case domain.Pass:
		c.Pass++
	case domain.UnexpectedDenial:
		c.UnexpectedDenial++
	case domain.Breach:
		c.Breach++
	case domain.Inconclusive:
		c.Inconclusive++
	}
}

// ExcludedGroup records a group that never entered the matrix, with the
// lifecycle reason. Logged distinctly from breaches.
type ExcludedGroup struct {
	Group  string `json:"group"`
	Reason string `json:"reason"`
}

// GroupSummary aggregates one group's results.
type GroupSummary struct {
	Group  string `json:"group"`
	Counts Counts `json:"counts"`
}

// Report is the structured result of one verification run.
type Report struct {
	RunID      string            `json:"run_id"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Cases      []domain.TestCase `json:"cases"`
	Excluded   []ExcludedGroup   `json:"excluded_groups,omitempty"`
	PerGroup   []GroupSummary    `json:"per_group"`
	Summary    Counts            `json:"summary"`
}

// Builder accumulates cases during a run. Appends are partitioned by group
// worker, so a mutex-free append per group would do; a builder keeps the
// accumulation in one place and the ordering rules out of the orchestrator.
type Builder struct {
	runID    string
	started  time.Time
	cases    []domain.TestCase
	excluded []ExcludedGroup
}

// NewBuilder starts a report for the given run.
func NewBuilder(runID string, started time.Time) *Builder {
	return &Builder{runID: runID, started: started}
}

// Add records one classified test case.
func (b *Builder) Add(tc domain.TestCase) {
	b.cases = append(b.cases, tc)
}

// Exclude records a group that produced zero test cases.
func (b *Builder) Exclude(group, reason string) {
	b.excluded = append(b.excluded, ExcludedGroup{Group: group, Reason: reason})
}

// severity orders classifications for the report: what the operator must
// see first comes first.
func severity(c domain.Classification) int {
	switch c {
	case domain.Breach:
		return 0
	case domain.Inconclusive:
		return 1
	case domain.UnexpectedDenial:
		return 2
	default:
		return 3
	}
}

// Finalize sorts, aggregates, and seals the report. Breaches first, then
// Inconclusives; within a severity, deterministic group/identity/operation
// order so re-runs compare cleanly.
func (b *Builder) Finalize(finished time.Time) *Report {
	cases := make([]domain.TestCase, len(b.cases))
	copy(cases, b.cases)
	sort.SliceStable(cases, func(i, j int) bool {
		si, sj := severity(cases[i].Classification), severity(cases[j].Classification)
		if si != sj {
			return si < sj
		}
		if cases[i].GroupName != cases[j].GroupName {
			return cases[i].GroupName < cases[j].GroupName
		}
		if cases[i].Identity != cases[j].Identity {
			return cases[i].Identity < cases[j].Identity
		}
		return cases[i].Operation < cases[j].Operation
	})

	perGroup := map[string]*Counts{}
	var summary Counts
	var groupNames []string
	for _, tc := range cases {
		summary.add(tc.Classification)
		gc, ok := perGroup[tc.GroupName]
		if !ok {
			gc = &Counts{}
			perGroup[tc.GroupName] = gc
			groupNames = append(groupNames, tc.GroupName)
		}
		gc.add(tc.Classification)
	}
	sort.Strings(groupNames)

	summaries := make([]GroupSummary, 0, len(groupNames))
	for _, name := range groupNames {
		summaries = append(summaries, GroupSummary{Group: name, Counts: *perGroup[name]})
	}

	excluded := make([]ExcludedGroup, len(b.excluded))
	copy(excluded, b.excluded)
	sort.Slice(excluded, func(i, j int) bool { return excluded[i].Group < excluded[j].Group })

	return &Report{
		RunID:      b.runID,
		StartedAt:  b.started,
		FinishedAt: finished,
		Cases:      cases,
		Excluded:   excluded,
		PerGroup:   summaries,
		Summary:    summary,
	}
}

// Clean reports whether the run verified cleanly: zero Breach AND zero
// Inconclusive. An Inconclusive blocks a "verified secure" conclusion.
func (r *Report) Clean() bool {
	return r.Summary.Breach == 0 && r.Summary.Inconclusive == 0
}

// ExitCode maps the report onto the process exit code contract.
func (r *Report) ExitCode() int {
	if r.Clean() {
		return 0
	}
	return 1
}

// WriteJSON renders the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteText renders the operator-facing text report.
func (r *Report) WriteText(w io.Writer) error {
	fmt.Fprintf(w, "sealcheck run %s\n", r.RunID)
	fmt.Fprintf(w, "cases: %d  pass: %d  breach: %d  inconclusive: %d  unexpected-denial: %d\n\n",
		r.Summary.Total(), r.Summary.Pass, r.Summary.Breach, r.Summary.Inconclusive, r.Summary.UnexpectedDenial)

	for _, tc := range r.Cases {
		switch tc.Classification {
		case domain.Breach, domain.Inconclusive, domain.UnexpectedDenial:
			fmt.Fprintf(w, "%-18s %s/%s %s expected=%s actual=%s",
				tc.Classification, tc.GroupName, tc.Identity, tc.Operation, tc.Expected, tc.Actual.Kind)
			if tc.Actual.Reason != "" {
				fmt.Fprintf(w, " (%s)", tc.Actual.Reason)
			}
			if tc.Detail != "" {
				fmt.Fprintf(w, " [%s]", tc.Detail)
			}
			fmt.Fprintln(w)
		}
	}

	if len(r.Excluded) > 0 {
		fmt.Fprintln(w)
		for _, ex := range r.Excluded {
			fmt.Fprintf(w, "EXCLUDED           %s: %s\n", ex.Group, ex.Reason)
		}
	}

	fmt.Fprintln(w)
	for _, gs := range r.PerGroup {
		fmt.Fprintf(w, "group %-16s pass=%d breach=%d inconclusive=%d unexpected-denial=%d\n",
			gs.Group, gs.Counts.Pass, gs.Counts.Breach, gs.Counts.Inconclusive, gs.Counts.UnexpectedDenial)
	}

	if r.Clean() {
		fmt.Fprintln(w, "\nRESULT: CLEAN")
	} else {
		fmt.Fprintln(w, "\nRESULT: NOT VERIFIED")
	}
	return nil
}
