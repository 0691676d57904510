package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pfrederiksen/devent/internal/event"
	"github.com/pfrederiksen/devent/internal/storage"
)

// parseSortKey validates the --sort flag. An empty key keeps insertion order.
func parseSortKey(s string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if key == "" {
		return "", nil
	}
	for _, k := range storage.SortKeys {
		if k == key {
			return key, nil
		}
	}
	return "", fmt.Errorf("invalid sort: %s (must be one of %s)", s, strings.Join(storage.SortKeys, ", "))
}

// sortRegistrations orders registrations newest first, then by id.
func sortRegistrations(regs []event.Registration) {
	sort.SliceStable(regs, func(i, j int) bool {
		if !regs[i].RegistrationDate.Equal(regs[j].RegistrationDate) {
			return regs[i].RegistrationDate.After(regs[j].RegistrationDate)
		}
		return regs[i].RegistrationID < regs[j].RegistrationID
	})
}
