// Package backlog orders the pending-decision backlog for operator triage.
package backlog

import (
	"sort"

	"github.com/orbitalworks/verdict/internal/model"
)

// Prioritize returns the pending decisions ordered by priority rank
// (critical first), tie-broken by ascending deadline with deadline-less
// decisions last within their tier, truncated to limit. The input slice is
// never mutated and the ordering is stable.
func Prioritize(pending []model.Decision, limit int) []model.Decision {
	ordered := make([]model.Decision, len(pending))
	copy(ordered, pending)

	sort.SliceStable(ordered, func(i, j int) bool {
		ri, rj := ordered[i].Priority.Rank(), ordered[j].Priority.Rank()
		if ri != rj {
			return ri < rj
		}
		return deadlineBefore(ordered[i], ordered[j])
	})

	if limit >= 0 && limit < len(ordered) {
		ordered = ordered[:limit]
	}
	return ordered
}

// deadlineBefore orders by ascending deadline; a missing deadline sorts as
// a maximal sentinel.
func deadlineBefore(a, b model.Decision) bool {
	switch {
	case a.Deadline == nil:
		return false
	case b.Deadline == nil:
		return true
	default:
		return a.Deadline.Before(*b.Deadline)
	}
}
