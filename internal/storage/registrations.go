package storage

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/pfrederiksen/devent/internal/event"
	"github.com/pfrederiksen/devent/internal/kv"
	"github.com/pfrederiksen/devent/internal/logger"
	"github.com/pfrederiksen/devent/internal/notifier"
)

// Registrations returns all registrations in insertion order with contact
// fields decrypted.
func (m *Manager) Registrations() []event.Registration {
	regs := readCollection[event.Registration](m, kv.KeyRegistrations)
	for i := range regs {
		r := &regs[i]
		if err := m.encryptor.DecryptFields(&r.Email, &r.Phone, &r.Address); err != nil {
			m.log.Warn("Registration contact fields unreadable", logger.Fields{
				"registration_id": r.RegistrationID,
				"error":           err.Error(),
			})
		}
	}
	return regs
}

// RegistrationByID returns the registration with id, or ErrNotFound.
func (m *Manager) RegistrationByID(id string) (*event.Registration, error) {
	for _, r := range m.Registrations() {
		if r.RegistrationID == id {
			return &r, nil
		}
	}
	return nil, fmt.Errorf("registration %s: %w", id, ErrNotFound)
}

// RegistrationsByEventID returns the registrations for one event.
func (m *Manager) RegistrationsByEventID(id event.ID) []event.Registration {
	matches := make([]event.Registration, 0)
	for _, r := range m.Registrations() {
		if r.EventID == id {
			matches = append(matches, r)
		}
	}
	return matches
}

// AddRegistration stores r with a fresh registration id and date. It returns
// ErrDuplicateRegistration without writing when the event already has a
// registration for the same email.
func (m *Manager) AddRegistration(r event.Registration) (*event.Registration, error) {
	regs := m.Registrations()

	for i := range regs {
		if regs[i].SameAttendee(&r) {
			m.metrics.IncrCounter("registrations.duplicate")
			m.log.Info("Duplicate registration rejected", logger.Fields{
				"event_id": r.EventID,
			})
			return nil, fmt.Errorf("registering for event %d: %w", r.EventID, ErrDuplicateRegistration)
		}
	}

	now := m.now()
	r.RegistrationID = newRegistrationID(now.UnixMilli())
	r.RegistrationDate = now
	regs = append(regs, r)

	if err := m.saveRegistrations(regs); err != nil {
		return nil, fmt.Errorf("adding registration: %w", err)
	}

	m.log.Info("Registration added", logger.Fields{
		"registration_id": r.RegistrationID,
		"event_id":        r.EventID,
		"tickets":         r.TicketQty,
	})
	return &r, nil
}

// DeleteRegistration removes the registration with id. Deleting an absent
// registration is not an error and writes nothing.
func (m *Manager) DeleteRegistration(id string) error {
	regs := m.Registrations()

	kept := make([]event.Registration, 0, len(regs))
	for _, r := range regs {
		if r.RegistrationID != id {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(regs) {
		return nil
	}

	if err := m.saveRegistrations(kept); err != nil {
		return fmt.Errorf("deleting registration %s: %w", id, err)
	}
	return nil
}

// DeleteRegistrationsByEventID removes every registration for the event.
func (m *Manager) DeleteRegistrationsByEventID(id event.ID) error {
	regs := m.Registrations()
	kept := withoutEvent(regs, id)
	if len(kept) == len(regs) {
		return nil
	}

	if err := m.saveRegistrations(kept); err != nil {
		return fmt.Errorf("deleting registrations for event %d: %w", id, err)
	}
	return nil
}

func withoutEvent(regs []event.Registration, id event.ID) []event.Registration {
	kept := make([]event.Registration, 0, len(regs))
	for _, r := range regs {
		if r.EventID != id {
			kept = append(kept, r)
		}
	}
	return kept
}

func (m *Manager) saveRegistrations(regs []event.Registration) error {
	value, err := m.encodeRegistrations(regs)
	if err != nil {
		return m.writeFailed([]string{kv.KeyRegistrations}, err)
	}
	if err := m.store.Set(kv.KeyRegistrations, value); err != nil {
		return m.writeFailed([]string{kv.KeyRegistrations}, err)
	}
	m.written(kv.KeyRegistrations, notifier.OpSet, len(regs))
	return nil
}

// encodeRegistrations serializes regs with contact fields encrypted.
// regs itself is not modified.
func (m *Manager) encodeRegistrations(regs []event.Registration) (string, error) {
	sealed := make([]event.Registration, len(regs))
	copy(sealed, regs)
	for i := range sealed {
		r := &sealed[i]
		if err := m.encryptor.EncryptFields(&r.Email, &r.Phone, &r.Address); err != nil {
			return "", fmt.Errorf("encrypting registration %s: %w", r.RegistrationID, err)
		}
	}

	data, err := json.Marshal(sealed)
	if err != nil {
		return "", fmt.Errorf("encoding %s: %w", kv.KeyRegistrations, err)
	}
	return string(data), nil
}

// newRegistrationID returns REG-<millis>-<9 random characters>.
func newRegistrationID(millis int64) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("REG-%d-%s", millis, suffix)
}
