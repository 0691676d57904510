package notifier

import (
	"errors"
	"time"

	"github.com/pfrederiksen/devent/internal/logger"
)

// Op names the kind of write that produced a change.
type Op string

const (
	OpSet    Op = "set"
	OpRemove Op = "remove"
	OpClear  Op = "clear"
	OpImport Op = "import"
)

// Change describes one persisted collection write.
type Change struct {
	Key   string    `json:"key"`
	Op    Op        `json:"op"`
	Count int       `json:"count"`
	At    time.Time `json:"at"`
}

// Notifier defines the interface for announcing storage changes
type Notifier interface {
	Notify(change Change) error
}

// LogNotifier writes each change to a logger and never fails.
type LogNotifier struct {
	log *logger.Logger
}

// NewLogNotifier creates a notifier that logs at debug level.
func NewLogNotifier(log *logger.Logger) *LogNotifier {
	if log == nil {
		log = logger.Default()
	}
	return &LogNotifier{log: log}
}

// Notify logs the change
func (n *LogNotifier) Notify(change Change) error {
	n.log.Debug("Storage changed", logger.Fields{
		"key":   change.Key,
		"op":    string(change.Op),
		"count": change.Count,
		"at":    change.At.Format(time.RFC3339),
	})
	return nil
}

// Multi delivers a change to every notifier and joins their errors.
type Multi []Notifier

// Notify calls each notifier in order even when an earlier one fails.
func (m Multi) Notify(change Change) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(change); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
