package feed

import (
	"fmt"
	"slices"
	"time"
)

// ReplayPolicy decides which entries are new when the stored cursor is null
// or no longer visible in the window.
type ReplayPolicy string

const (
	// ReplayWindow treats the whole capped window as new. After an outage
	// longer than the window depth this may re-alert, but it never blocks
	// detection of new entries.
	ReplayWindow ReplayPolicy = "window"
	// ReplayLatest treats only the newest entry of the window as new.
	ReplayLatest ReplayPolicy = "latest"
)

// FailurePolicy decides whether the cursor moves past entries whose
// processing failed.
type FailurePolicy string

const (
	// FailureAdvance moves the cursor to the end of the window regardless of
	// failures. A failed entry is not retried.
	FailureAdvance FailurePolicy = "advance"
	// FailureHold stops the cursor just before the first failed entry so the
	// next poll retries it (and everything after it).
	FailureHold FailurePolicy = "hold"
)

func ParseReplayPolicy(s string) (ReplayPolicy, error) {
	switch ReplayPolicy(s) {
	case "", ReplayWindow:
		return ReplayWindow, nil
	case ReplayLatest:
		return ReplayLatest, nil
	}
	return "", fmt.Errorf("unknown replay policy: %s", s)
}

func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(s) {
	case "", FailureAdvance:
		return FailureAdvance, nil
	case FailureHold:
		return FailureHold, nil
	}
	return "", fmt.Errorf("unknown failure policy: %s", s)
}

// Plan is the outcome of locating a cursor within one poll's batch.
type Plan struct {
	Window   []Entry // capped, ascending by UpdatedAt
	Fresh    []Entry // suffix of Window that is new since the cursor
	Replayed bool    // cursor was null or not found in Window
}

// Order sorts entries ascending by UpdatedAt. Entries without a timestamp
// sort as the zero time; ties keep document order.
func Order(entries []Entry) []Entry {
	ordered := slices.Clone(entries)
	slices.SortStableFunc(ordered, func(a, b Entry) int {
		return sortKey(a).Compare(sortKey(b))
	})
	return ordered
}

func sortKey(e Entry) time.Time {
	if e.UpdatedAt == nil {
		return time.Time{}
	}
	return *e.UpdatedAt
}

// PlanWindow orders and caps the batch to the maxEntries most recent entries
// (no cap when maxEntries <= 0) and computes the entries newer than
// lastSeenID.
func PlanWindow(lastSeenID string, batch []Entry, maxEntries int, policy ReplayPolicy) Plan {
	window := Order(batch)
	if maxEntries > 0 && len(window) > maxEntries {
		window = window[len(window)-maxEntries:]
	}

	plan := Plan{Window: window}
	if len(window) == 0 {
		return plan
	}

	if lastSeenID != "" {
		// Search from the newest end: if an id repeats, the latest copy is
		// the position the cursor refers to.
		for i := len(window) - 1; i >= 0; i-- {
			if window[i].ID == lastSeenID {
				plan.Fresh = window[i+1:]
				return plan
			}
		}
	}

	plan.Replayed = true
	switch policy {
	case ReplayLatest:
		plan.Fresh = window[len(window)-1:]
	default:
		plan.Fresh = window
	}
	return plan
}

// NextCursor computes the cursor id to persist once every fresh entry has
// been processed. failed[i] reports whether plan.Fresh[i] failed processing.
// The second result is false when the cursor must not be written.
func NextCursor(previousID string, plan Plan, failed []bool, policy FailurePolicy) (string, bool) {
	if len(plan.Window) == 0 {
		return previousID, false
	}

	last := plan.Window[len(plan.Window)-1].ID
	if policy != FailureHold {
		return last, true
	}

	for i := range plan.Fresh {
		if i >= len(failed) || !failed[i] {
			continue
		}
		if i > 0 {
			return plan.Fresh[i-1].ID, true
		}
		// The first fresh entry failed: keep the stored cursor as is.
		return previousID, false
	}

	return last, true
}
