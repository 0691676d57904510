package storage

import (
	"fmt"

	"github.com/pfrederiksen/devent/internal/event"
	"github.com/pfrederiksen/devent/internal/kv"
	"github.com/pfrederiksen/devent/internal/logger"
)

// MinSeededEvents is the collection size Init tops the events up to.
const MinSeededEvents = 6

// Init tops the events collection up from the seed catalogue when it holds
// fewer than MinSeededEvents events. Stored events are never replaced, and
// seed events whose title is already present are skipped. Without a seed
// catalogue Init only logs.
func (m *Manager) Init() error {
	if detector, ok := m.store.(kv.ChangeDetector); ok {
		changed, err := detector.Changed()
		if err != nil {
			m.log.Warn("Checking for external changes failed", logger.Fields{"error": err.Error()})
		} else if changed {
			m.log.Info("Storage changed outside devent", nil)
		}
	}

	if len(m.seed) == 0 {
		m.log.Warn("No seed catalogue configured, skipping initialization", nil)
		return nil
	}

	events := m.Events()
	if len(events) >= MinSeededEvents {
		return nil
	}

	present := make(map[string]bool, len(events))
	for _, evt := range events {
		present[event.StableKey(evt.Title)] = true
	}

	added := 0
	now := m.now()
	for _, seed := range m.seed {
		if len(events) >= MinSeededEvents {
			break
		}
		key := event.StableKey(seed.Title)
		if present[key] {
			continue
		}
		present[key] = true

		seed.ID = m.nextID(events)
		seed.CreatedAt = now
		seed.UpdatedAt = nil
		events = append(events, seed)
		added++
	}
	if added == 0 {
		return nil
	}

	if err := m.write(kv.KeyEvents, events, len(events)); err != nil {
		return fmt.Errorf("seeding events: %w", err)
	}
	m.log.Info("Seeded sample events", logger.Fields{"added": added, "total": len(events)})
	return nil
}

// SampleEvents returns the demo catalogue.
func SampleEvents() []event.Event {
	return []event.Event{
		{
			Title:       "Tech Summit Indonesia 2024",
			Date:        "2025-02-15",
			Location:    "Jakarta Convention Center",
			Price:       500000,
			Category:    "Conference",
			Description: "Indonesia's largest technology conference featuring industry leaders, workshops, and networking opportunities with tech professionals.",
			Image:       "https://images.unsplash.com/photo-1540575467063-178a50c2df87?w=800",
		},
		{
			Title:       "Digital Marketing Masterclass",
			Date:        "2025-02-20",
			Location:    "Grand Ballroom Hotel Indonesia",
			Price:       350000,
			Category:    "Workshop",
			Description: "Learn advanced digital marketing strategies from industry experts including SEO, social media, and content marketing.",
			Image:       "https://images.unsplash.com/photo-1557804506-669a67965ba0?w=800",
		},
		{
			Title:       "Music Festival Jakarta",
			Date:        "2025-02-25",
			Location:    "Gelora Bung Karno Stadium",
			Price:       750000,
			Category:    "Concert",
			Description: "The biggest music festival featuring international and local artists with multiple stages and genres.",
			Image:       "https://images.unsplash.com/photo-1470229722913-7c0e2dbbafd3?w=800",
		},
		{
			Title:       "Startup Pitch Competition",
			Date:        "2025-02-28",
			Location:    "Innovation Hub Jakarta",
			Price:       0,
			Category:    "Seminar",
			Description: "Watch innovative startups pitch their ideas to venture capitalists and angel investors. Free entry for all attendees.",
			Image:       "https://images.unsplash.com/photo-1556761175-5973dc0f32e7?w=800",
		},
		{
			Title:       "Art & Design Exhibition",
			Date:        "2025-03-05",
			Location:    "National Gallery of Indonesia",
			Price:       150000,
			Category:    "Exhibition",
			Description: "Showcasing contemporary art and design from emerging Indonesian artists and designers.",
			Image:       "https://images.unsplash.com/photo-1563089145-599997674d42?w=800",
		},
		{
			Title:       "Business Networking Night",
			Date:        "2025-03-10",
			Location:    "Sky Lounge Jakarta",
			Price:       200000,
			Category:    "Networking",
			Description: "Connect with professionals, entrepreneurs, and industry leaders in an exclusive networking event.",
			Image:       "https://images.unsplash.com/photo-1551833726-5ec94f50d0ff?w=800",
		},
	}
}
