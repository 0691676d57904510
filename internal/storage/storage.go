package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pfrederiksen/devent/internal/crypto"
	"github.com/pfrederiksen/devent/internal/event"
	"github.com/pfrederiksen/devent/internal/kv"
	"github.com/pfrederiksen/devent/internal/logger"
	"github.com/pfrederiksen/devent/internal/notifier"
)

var (
	// ErrNotFound is returned when no record has the requested id.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateRegistration is returned when the event already has a
	// registration for the same email address.
	ErrDuplicateRegistration = errors.New("already registered for this event with this email")
	// ErrWriteFailed wraps every failure of the underlying store to persist a collection.
	ErrWriteFailed = errors.New("storage write failed")
	// ErrPartialCascade is returned by DeleteEvent when the event was removed
	// but its registrations could not be.
	ErrPartialCascade = errors.New("event deleted but its registrations remain")
)

// Manager reads and writes the devent collections.
type Manager struct {
	store     kv.Store
	log       *logger.Logger
	metrics   *logger.Metrics
	now       func() time.Time
	seed      []event.Event
	encryptor *crypto.Encryptor
	notifier  notifier.Notifier
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger soft failures are reported to.
func WithLogger(log *logger.Logger) Option {
	return func(m *Manager) { m.log = log }
}

// WithMetrics sets the metrics tracker.
func WithMetrics(metrics *logger.Metrics) Option {
	return func(m *Manager) { m.metrics = metrics }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithSeed sets the sample catalogue Init tops the events collection up from.
func WithSeed(events []event.Event) Option {
	return func(m *Manager) { m.seed = events }
}

// WithEncryptor encrypts registration contact fields at rest.
func WithEncryptor(enc *crypto.Encryptor) Option {
	return func(m *Manager) { m.encryptor = enc }
}

// WithNotifier sets where collection changes are announced.
func WithNotifier(n notifier.Notifier) Option {
	return func(m *Manager) { m.notifier = n }
}

// New creates a Manager over store.
func New(store kv.Store, opts ...Option) *Manager {
	m := &Manager{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		m.log = logger.Default()
	}
	if m.metrics == nil {
		m.metrics = logger.DefaultMetrics()
	}
	if m.notifier == nil {
		m.notifier = notifier.NewLogNotifier(m.log)
	}
	return m
}

// Store returns the underlying key-value store.
func (m *Manager) Store() kv.Store {
	return m.store
}

// readCollection decodes the JSON array stored under key. Missing,
// unreadable and corrupt values all yield an empty slice.
func readCollection[T any](m *Manager, key string) []T {
	raw, ok, err := m.store.Get(key)
	if err != nil {
		m.readFailed(key, err)
		return []T{}
	}
	if !ok || raw == "" {
		return []T{}
	}

	var items []T
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		m.readFailed(key, err)
		return []T{}
	}
	if items == nil {
		items = []T{}
	}
	return items
}

func (m *Manager) readFailed(key string, err error) {
	m.metrics.IncrCounter("storage.read_failed")
	m.log.Warn("Stored collection unreadable, treating as empty", logger.Fields{
		"key": key,
	})
	m.log.Debug("Read error detail", logger.Fields{"key": key, "error": err.Error()})
}

// encode serializes a collection for storage.
func encode(key string, items any) (string, error) {
	data, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("encoding %s: %w", key, err)
	}
	return string(data), nil
}

// write persists one collection and announces the change.
func (m *Manager) write(key string, items any, count int) error {
	value, err := encode(key, items)
	if err != nil {
		return m.writeFailed([]string{key}, err)
	}

	start := m.now()
	if err := m.store.Set(key, value); err != nil {
		return m.writeFailed([]string{key}, err)
	}
	m.metrics.RecordTiming("storage.write", m.now().Sub(start))
	m.written(key, notifier.OpSet, count)
	return nil
}

// writeBatch persists several encoded collections with one atomic SetMany.
func (m *Manager) writeBatch(batcher kv.Batcher, values map[string]string, counts map[string]int, op notifier.Op) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	if err := batcher.SetMany(values); err != nil {
		return m.writeFailed(keys, err)
	}
	for _, k := range keys {
		m.written(k, op, counts[k])
	}
	return nil
}

func (m *Manager) writeFailed(keys []string, err error) error {
	m.metrics.IncrCounter("storage.write_failed")
	m.log.Error("Saving collection failed", logger.Fields{
		"keys": keys,
	}, err)
	return fmt.Errorf("%w: %w", ErrWriteFailed, err)
}

func (m *Manager) written(key string, op notifier.Op, count int) {
	m.metrics.IncrCounter("storage.writes")
	if key == kv.KeyEvents {
		m.metrics.SetGauge("events.total", float64(count))
	}

	change := notifier.Change{Key: key, Op: op, Count: count, At: m.now()}
	if err := m.notifier.Notify(change); err != nil {
		m.log.Warn("Change notification failed", logger.Fields{
			"key":   key,
			"op":    string(op),
			"error": err.Error(),
		})
	}
}

// remove deletes key from the store.
func (m *Manager) remove(key string, op notifier.Op) error {
	if err := m.store.Remove(key); err != nil {
		return m.writeFailed([]string{key}, err)
	}
	m.written(key, op, 0)
	return nil
}
