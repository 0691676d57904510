package kv

import (
	"errors"
	"sort"
)

// Well-known keys of the devent namespace.
const (
	KeyEvents        = "devent_events"
	KeyRegistrations = "devent_registrations"
	KeyFavorites     = "devent_favorites"

	KeyPendingRegistration   = "pendingRegistration"
	KeySelectedPayment       = "selectedPaymentMethod"
	KeyExactPaymentAmount    = "exactPaymentAmount"
	KeyCompletedRegistration = "completedRegistration"
)

// DefaultQuota mirrors the 5 MiB per-origin budget browsers give localStorage.
const DefaultQuota = 5 << 20

// ErrQuotaExceeded is returned by Set and SetMany when the write would push
// the namespace past its configured quota.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// Store is a persistent string key-value namespace.
type Store interface {
	// Get returns the value for key. ok is false when the key is absent.
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Remove(key string) error
}

// Batcher is implemented by stores that can persist several keys atomically.
type Batcher interface {
	SetMany(values map[string]string) error
}

// ChangeDetector is implemented by stores that can tell whether another
// process modified the namespace since this process last touched it.
type ChangeDetector interface {
	Changed() (bool, error)
}

// namespaceSize returns the localStorage-style size of a namespace:
// the sum of key and value lengths.
func namespaceSize(data map[string]string) int {
	size := 0
	for k, v := range data {
		size += len(k) + len(v)
	}
	return size
}

// checkQuota reports ErrQuotaExceeded if applying updates to data would
// exceed quota. A quota of zero or less disables the check.
func checkQuota(data, updates map[string]string, quota int) error {
	if quota <= 0 {
		return nil
	}
	size := namespaceSize(data)
	for k, v := range updates {
		if old, ok := data[k]; ok {
			size -= len(k) + len(old)
		}
		size += len(k) + len(v)
	}
	if size > quota {
		return ErrQuotaExceeded
	}
	return nil
}

// sortedKeys returns the keys of m in lexical order.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
