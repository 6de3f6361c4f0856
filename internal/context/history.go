// Package context implements the context analyzer (C9): escalation,
// temporal, and trend detection over a caller-supplied message history,
// plus the intervention-urgency derivation that folds their outputs
// together. Grounded on the teacher's internal/classifier/history.go
// windowing helpers, generalized from toxicity-trend smoothing to the
// spec's three-detector crisis-context analysis.
package context

import (
	"fmt"
	"sort"

	"crisisengine.dev/ensemble/internal/models"
)

// ValidateHistory applies the preconditions spec §4.9 requires before any
// detector sees the history: empty-text items are dropped, duplicate
// timestamps are coalesced to their last occurrence, out-of-order items
// are sorted back into oldest-first order (they are not dropped, and the
// history is not rejected; the reordering is recorded as an issue), and
// the result is capped to the most recent maxHistory items. It never
// errors: invalid input degrades to a smaller, valid history plus a list
// of what was dropped or reordered and why.
func ValidateHistory(history []models.MessageHistoryItem, maxHistory int) ([]models.MessageHistoryItem, []string) {
	var issues []string

	nonEmpty := make([]models.MessageHistoryItem, 0, len(history))
	for i, item := range history {
		if item.Text == "" {
			issues = append(issues, fmt.Sprintf("dropped history[%d]: empty text", i))
			continue
		}
		nonEmpty = append(nonEmpty, item)
	}

	coalesced := coalesceDuplicateTimestamps(nonEmpty, &issues)
	monotonic := dropNonMonotonic(coalesced, &issues)

	if maxHistory > 0 && len(monotonic) > maxHistory {
		dropped := len(monotonic) - maxHistory
		issues = append(issues, fmt.Sprintf("capped history to most recent %d items, dropped %d older", maxHistory, dropped))
		monotonic = monotonic[dropped:]
	}

	return monotonic, issues
}

// coalesceDuplicateTimestamps keeps only the last item seen for any exact
// timestamp, preserving original ordering of the surviving items.
func coalesceDuplicateTimestamps(history []models.MessageHistoryItem, issues *[]string) []models.MessageHistoryItem {
	lastIndexForTime := make(map[int64]int)
	for i, item := range history {
		lastIndexForTime[item.Timestamp.UnixNano()] = i
	}

	out := make([]models.MessageHistoryItem, 0, len(lastIndexForTime))
	for i, item := range history {
		if lastIndexForTime[item.Timestamp.UnixNano()] != i {
			continue
		}
		out = append(out, item)
	}

	if len(out) < len(history) {
		*issues = append(*issues, fmt.Sprintf("coalesced %d duplicate-timestamp entries", len(history)-len(out)))
	}
	return out
}

// dropNonMonotonic stable-sorts the history by timestamp so the series is
// oldest-first, and records how many items changed position. It drops no
// items.
func dropNonMonotonic(history []models.MessageHistoryItem, issues *[]string) []models.MessageHistoryItem {
	if len(history) == 0 {
		return history
	}
	// Sort defensively first: the caller's ordering is a contract, not a
	// guarantee, and a single out-of-place item would otherwise cascade
	// into dropping everything after it.
	ordered := make([]models.MessageHistoryItem, len(history))
	copy(ordered, history)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Timestamp.Before(ordered[j].Timestamp) })

	dropped := 0
	for i := range ordered {
		if history[i] != ordered[i] {
			dropped++
		}
	}
	if dropped > 0 {
		*issues = append(*issues, fmt.Sprintf("reordered %d out-of-sequence history items", dropped))
	}
	return ordered
}
