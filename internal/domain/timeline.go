package domain

import (
	"sort"
	"time"
)

// SortTimeline orders events oldest first, breaking timestamp ties by id.
func SortTimeline(events []TimelineEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Timestamp.Equal(events[j].Timestamp) {
			return events[i].ID < events[j].ID
		}
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
}

// StageEntries returns when the candidate first entered each stage.
// Later events for a stage already seen are ignored.
func StageEntries(events []TimelineEvent) map[Stage]time.Time {
	sorted := append([]TimelineEvent(nil), events...)
	SortTimeline(sorted)
	out := make(map[Stage]time.Time)
	for _, e := range sorted {
		st, ok := e.Stage()
		if !ok {
			continue
		}
		if _, seen := out[st]; !seen {
			out[st] = e.Timestamp
		}
	}
	return out
}

// LatestStage returns the stage recorded by the most recent stage event.
func LatestStage(events []TimelineEvent) (Stage, bool) {
	sorted := append([]TimelineEvent(nil), events...)
	SortTimeline(sorted)
	for i := len(sorted) - 1; i >= 0; i-- {
		if st, ok := sorted[i].Stage(); ok {
			return st, true
		}
	}
	return "", false
}
