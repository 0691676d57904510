package storage

import (
	"fmt"
	"time"

	"github.com/pfrederiksen/devent/internal/event"
	"github.com/pfrederiksen/devent/internal/kv"
	"github.com/pfrederiksen/devent/internal/logger"
	"github.com/pfrederiksen/devent/internal/notifier"
)

// Statistics recomputes the dashboard summary.
func (m *Manager) Statistics() event.Statistics {
	stats := event.Statistics{
		TotalEvents:     len(m.Events()),
		TotalCategories: len(m.Categories()),
	}

	regs := m.Registrations()
	stats.TotalRegistrations = len(regs)
	for _, r := range regs {
		stats.TotalTickets += int(r.TicketQty)
		stats.TotalRevenue += r.TotalPrice
	}
	return stats
}

// Backup is the export format: every collection plus the export time.
// On import a collection missing from the JSON leaves the stored one untouched.
type Backup struct {
	Events        []event.Event        `json:"events"`
	Registrations []event.Registration `json:"registrations"`
	Favorites     []event.ID           `json:"favorites"`
	ExportDate    time.Time            `json:"exportDate"`
}

// Export returns a copy of all collections. Registration contact fields are
// exported decrypted.
func (m *Manager) Export() Backup {
	return Backup{
		Events:        m.Events(),
		Registrations: m.Registrations(),
		Favorites:     m.Favorites(),
		ExportDate:    m.now().UTC(),
	}
}

// Import replaces each collection present in b. It returns how the events
// collection changed. Stores that support batches receive all collections
// in one atomic write.
func (m *Manager) Import(b Backup) (*event.DiffResult, error) {
	previous := m.Events()

	values := make(map[string]string)
	counts := make(map[string]int)
	if b.Events != nil {
		v, err := encode(kv.KeyEvents, b.Events)
		if err != nil {
			return nil, m.writeFailed([]string{kv.KeyEvents}, err)
		}
		values[kv.KeyEvents], counts[kv.KeyEvents] = v, len(b.Events)
	}
	if b.Registrations != nil {
		v, err := m.encodeRegistrations(b.Registrations)
		if err != nil {
			return nil, m.writeFailed([]string{kv.KeyRegistrations}, err)
		}
		values[kv.KeyRegistrations], counts[kv.KeyRegistrations] = v, len(b.Registrations)
	}
	if b.Favorites != nil {
		v, err := encode(kv.KeyFavorites, b.Favorites)
		if err != nil {
			return nil, m.writeFailed([]string{kv.KeyFavorites}, err)
		}
		values[kv.KeyFavorites], counts[kv.KeyFavorites] = v, len(b.Favorites)
	}

	if batcher, ok := m.store.(kv.Batcher); ok {
		if err := m.writeBatch(batcher, values, counts, notifier.OpImport); err != nil {
			return nil, fmt.Errorf("importing backup: %w", err)
		}
	} else {
		for _, key := range []string{kv.KeyEvents, kv.KeyRegistrations, kv.KeyFavorites} {
			v, ok := values[key]
			if !ok {
				continue
			}
			if err := m.store.Set(key, v); err != nil {
				return nil, fmt.Errorf("importing backup: %w", m.writeFailed([]string{key}, err))
			}
			m.written(key, notifier.OpImport, counts[key])
		}
	}

	current := previous
	if b.Events != nil {
		current = b.Events
	}
	diff := event.Diff(previous, current)
	m.log.Info("Backup imported", logger.Fields{
		"added":   len(diff.Added),
		"removed": len(diff.Removed),
		"changed": len(diff.Changed),
	})
	return diff, nil
}

// ClearAll removes the events, registrations and favorites collections.
func (m *Manager) ClearAll() error {
	for _, key := range []string{kv.KeyEvents, kv.KeyRegistrations, kv.KeyFavorites} {
		if err := m.remove(key, notifier.OpClear); err != nil {
			return fmt.Errorf("clearing storage: %w", err)
		}
	}
	m.log.Info("Storage cleared", nil)
	return nil
}
