package event

import "sort"

// DiffResult describes how one event collection differs from another.
// Events are matched by StableKey, so re-imported events with fresh ids
// are recognised.
type DiffResult struct {
	Added   []Event
	Removed []Event
	Changed []Event // current version of events whose details differ
}

// IsEmpty reports whether both collections hold the same events.
func (d *DiffResult) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// Diff compares current against previous.
func Diff(previous, current []Event) *DiffResult {
	result := &DiffResult{
		Added:   make([]Event, 0),
		Removed: make([]Event, 0),
		Changed: make([]Event, 0),
	}

	prevByKey := make(map[string]Event, len(previous))
	for _, evt := range previous {
		prevByKey[StableKey(evt.Title)] = evt
	}

	seen := make(map[string]bool, len(current))
	for _, evt := range current {
		key := StableKey(evt.Title)
		if seen[key] {
			continue
		}
		seen[key] = true

		old, exists := prevByKey[key]
		if !exists {
			result.Added = append(result.Added, evt)
			continue
		}
		if detailsDiffer(old, evt) {
			result.Changed = append(result.Changed, evt)
		}
	}

	for key, evt := range prevByKey {
		if !seen[key] {
			result.Removed = append(result.Removed, evt)
		}
	}
	// Map iteration order is random; keep output stable.
	sort.Slice(result.Removed, func(i, j int) bool {
		return result.Removed[i].ID < result.Removed[j].ID
	})

	return result
}

// detailsDiffer compares the user-editable fields of two events.
func detailsDiffer(a, b Event) bool {
	return a.Date != b.Date ||
		a.Location != b.Location ||
		a.Category != b.Category ||
		a.Price != b.Price ||
		a.Description != b.Description
}
