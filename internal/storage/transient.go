package storage

import (
	"encoding/json"
	"fmt"

	"github.com/pfrederiksen/devent/internal/event"
)

// PutRegistrationSnapshot stores r as a single value under key, with contact
// fields encrypted like the registrations collection. It is used for the
// checkout keys that hold one registration outside the collection.
func (m *Manager) PutRegistrationSnapshot(key string, r event.Registration) error {
	if err := m.encryptor.EncryptFields(&r.Email, &r.Phone, &r.Address); err != nil {
		return fmt.Errorf("encrypting %s: %w", key, err)
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	if err := m.store.Set(key, string(data)); err != nil {
		return m.writeFailed([]string{key}, err)
	}
	return nil
}

// RegistrationSnapshot reads a value stored by PutRegistrationSnapshot.
// found is false when key is absent or empty.
func (m *Manager) RegistrationSnapshot(key string) (r *event.Registration, found bool, err error) {
	raw, ok, err := m.store.Get(key)
	if err != nil {
		return nil, false, fmt.Errorf("reading %s: %w", key, err)
	}
	if !ok || raw == "" {
		return nil, false, nil
	}

	var snapshot event.Registration
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		return nil, false, fmt.Errorf("decoding %s: %w", key, err)
	}
	if err := m.encryptor.DecryptFields(&snapshot.Email, &snapshot.Phone, &snapshot.Address); err != nil {
		return nil, false, fmt.Errorf("decrypting %s: %w", key, err)
	}
	return &snapshot, true, nil
}
