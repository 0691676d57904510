package storage

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/pfrederiksen/devent/internal/event"
	"github.com/pfrederiksen/devent/internal/kv"
	"github.com/pfrederiksen/devent/internal/logger"
	"github.com/pfrederiksen/devent/internal/notifier"
)

// Sort keys accepted by SortEvents.
const (
	SortDateAsc   = "date-asc"
	SortDateDesc  = "date-desc"
	SortPriceAsc  = "price-asc"
	SortPriceDesc = "price-desc"
	SortNameAsc   = "name-asc"
	SortNameDesc  = "name-desc"
)

// SortKeys lists the sort keys in the order they are offered to users.
var SortKeys = []string{SortDateAsc, SortDateDesc, SortPriceAsc, SortPriceDesc, SortNameAsc, SortNameDesc}

// Events returns all events in insertion order.
func (m *Manager) Events() []event.Event {
	return readCollection[event.Event](m, kv.KeyEvents)
}

// EventByID returns the event with id, or ErrNotFound.
func (m *Manager) EventByID(id event.ID) (*event.Event, error) {
	for _, evt := range m.Events() {
		if evt.ID == id {
			return &evt, nil
		}
	}
	return nil, fmt.Errorf("event %d: %w", id, ErrNotFound)
}

// nextID returns an id larger than every id in events and no smaller than
// the current time in milliseconds.
func (m *Manager) nextID(events []event.Event) event.ID {
	id := event.ID(m.now().UnixMilli())
	for _, evt := range events {
		if evt.ID >= id {
			id = evt.ID + 1
		}
	}
	return id
}

// AddEvent stores a new event. The id and createdAt of e are replaced.
func (m *Manager) AddEvent(e event.Event) (*event.Event, error) {
	events := m.Events()

	e.ID = m.nextID(events)
	e.CreatedAt = m.now()
	e.UpdatedAt = nil
	events = append(events, e)

	if err := m.write(kv.KeyEvents, events, len(events)); err != nil {
		return nil, fmt.Errorf("adding event: %w", err)
	}

	m.log.Info("Event added", logger.Fields{"event_id": e.ID, "title": e.Title})
	return &e, nil
}

// UpdateEvent merges patch into the event with id.
func (m *Manager) UpdateEvent(id event.ID, patch event.Patch) (*event.Event, error) {
	events := m.Events()

	for i := range events {
		if events[i].ID != id {
			continue
		}

		updated := patch.Apply(events[i])
		now := m.now()
		updated.UpdatedAt = &now
		events[i] = updated

		if err := m.write(kv.KeyEvents, events, len(events)); err != nil {
			return nil, fmt.Errorf("updating event %d: %w", id, err)
		}
		return &updated, nil
	}

	return nil, fmt.Errorf("event %d: %w", id, ErrNotFound)
}

// DeleteEvent removes the event and every registration for it.
//
// When the store can write several keys atomically both collections are
// persisted together. Otherwise events are written first; if the following
// registrations write fails the returned error wraps ErrPartialCascade.
func (m *Manager) DeleteEvent(id event.ID) error {
	events := m.Events()

	kept := make([]event.Event, 0, len(events))
	for _, evt := range events {
		if evt.ID != id {
			kept = append(kept, evt)
		}
	}
	if len(kept) == len(events) {
		return fmt.Errorf("event %d: %w", id, ErrNotFound)
	}

	regs := m.Registrations()
	remaining := withoutEvent(regs, id)

	if batcher, ok := m.store.(kv.Batcher); ok {
		eventsValue, err := encode(kv.KeyEvents, kept)
		if err != nil {
			return m.writeFailed([]string{kv.KeyEvents}, err)
		}
		regsValue, err := m.encodeRegistrations(remaining)
		if err != nil {
			return m.writeFailed([]string{kv.KeyRegistrations}, err)
		}

		err = m.writeBatch(batcher,
			map[string]string{kv.KeyEvents: eventsValue, kv.KeyRegistrations: regsValue},
			map[string]int{kv.KeyEvents: len(kept), kv.KeyRegistrations: len(remaining)},
			notifier.OpSet)
		if err != nil {
			return fmt.Errorf("deleting event %d: %w", id, err)
		}
	} else {
		if err := m.write(kv.KeyEvents, kept, len(kept)); err != nil {
			return fmt.Errorf("deleting event %d: %w", id, err)
		}
		if len(remaining) != len(regs) {
			if err := m.saveRegistrations(remaining); err != nil {
				m.log.Error("Cascade delete left orphaned registrations", logger.Fields{
					"event_id": id,
					"orphans":  len(regs) - len(remaining),
				}, err)
				return fmt.Errorf("deleting event %d: %w", id, errors.Join(ErrPartialCascade, err))
			}
		}
	}

	m.log.Info("Event deleted", logger.Fields{
		"event_id":              id,
		"registrations_removed": len(regs) - len(remaining),
	})
	return nil
}

// SearchEvents returns the events whose title, description, location or
// category contain keyword, ignoring case. A blank keyword matches all.
func (m *Manager) SearchEvents(keyword string) []event.Event {
	events := m.Events()
	return Search(events, keyword)
}

// Search filters events by keyword without touching storage.
func Search(events []event.Event, keyword string) []event.Event {
	needle := strings.ToLower(strings.TrimSpace(keyword))
	if needle == "" {
		return events
	}

	matches := make([]event.Event, 0)
	for _, evt := range events {
		for _, field := range []string{evt.Title, evt.Description, evt.Location, evt.Category} {
			if strings.Contains(strings.ToLower(field), needle) {
				matches = append(matches, evt)
				break
			}
		}
	}
	return matches
}

// SortEvents returns a sorted copy of events. The sort is stable and events
// is not modified. Unknown keys return events unchanged.
func SortEvents(events []event.Event, key string) []event.Event {
	less := lessFunc(key)
	if less == nil {
		return events
	}

	sorted := make([]event.Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return less(&sorted[i], &sorted[j])
	})
	return sorted
}

func lessFunc(key string) func(a, b *event.Event) bool {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case SortDateAsc:
		return func(a, b *event.Event) bool { return event.ParseDate(a.Date).Before(event.ParseDate(b.Date)) }
	case SortDateDesc:
		return func(a, b *event.Event) bool { return event.ParseDate(a.Date).After(event.ParseDate(b.Date)) }
	case SortPriceAsc:
		return func(a, b *event.Event) bool { return a.Price < b.Price }
	case SortPriceDesc:
		return func(a, b *event.Event) bool { return a.Price > b.Price }
	case SortNameAsc, "title-asc":
		return func(a, b *event.Event) bool { return strings.ToLower(a.Title) < strings.ToLower(b.Title) }
	case SortNameDesc, "title-desc":
		return func(a, b *event.Event) bool { return strings.ToLower(a.Title) > strings.ToLower(b.Title) }
	default:
		return nil
	}
}

// Categories returns the distinct non-blank categories in order of first appearance.
func (m *Manager) Categories() []string {
	counts := m.CategoryCounts()
	categories := make([]string, len(counts))
	for i, c := range counts {
		categories[i] = c.Category
	}
	return categories
}

// CategoryCount is the number of events in one category.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// CategoryCounts returns per-category event counts in order of first appearance.
func (m *Manager) CategoryCounts() []CategoryCount {
	counts := make([]CategoryCount, 0)
	index := make(map[string]int)
	for _, evt := range m.Events() {
		if strings.TrimSpace(evt.Category) == "" {
			continue
		}
		if i, ok := index[evt.Category]; ok {
			counts[i].Count++
			continue
		}
		index[evt.Category] = len(counts)
		counts = append(counts, CategoryCount{Category: evt.Category, Count: 1})
	}
	return counts
}

// FilterByCategory returns the events in category. A blank category or
// "all" returns every event.
func (m *Manager) FilterByCategory(category string) []event.Event {
	events := m.Events()
	category = strings.TrimSpace(category)
	if category == "" || strings.EqualFold(category, "all") {
		return events
	}

	matches := make([]event.Event, 0)
	for _, evt := range events {
		if evt.Category == category {
			matches = append(matches, evt)
		}
	}
	return matches
}

// MergeEvents adds the events whose title is not already stored, assigning
// fresh ids. The result lists the stored additions and, in Changed, the
// incoming events that differ from a stored event with the same title.
// Changed events are reported only; stored events are never overwritten.
func (m *Manager) MergeEvents(incoming []event.Event) (*event.DiffResult, error) {
	events := m.Events()
	diff := event.Diff(events, incoming)
	diff.Removed = diff.Removed[:0]
	if len(diff.Added) == 0 {
		return diff, nil
	}

	now := m.now()
	for i := range diff.Added {
		evt := diff.Added[i]
		evt.ID = m.nextID(events)
		evt.CreatedAt = now
		evt.UpdatedAt = nil
		events = append(events, evt)
		diff.Added[i] = evt
	}

	if err := m.write(kv.KeyEvents, events, len(events)); err != nil {
		return nil, fmt.Errorf("merging events: %w", err)
	}
	return diff, nil
}
