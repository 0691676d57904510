package storage

import (
	"fmt"

	"github.com/pfrederiksen/devent/internal/event"
	"github.com/pfrederiksen/devent/internal/kv"
)

// Favorites returns the favorited event ids.
func (m *Manager) Favorites() []event.ID {
	return readCollection[event.ID](m, kv.KeyFavorites)
}

// AddToFavorites adds id to the favorites. It returns false without writing
// when id is already a favorite.
func (m *Manager) AddToFavorites(id event.ID) (bool, error) {
	favorites := m.Favorites()
	for _, fav := range favorites {
		if fav == id {
			return false, nil
		}
	}

	favorites = append(favorites, id)
	if err := m.write(kv.KeyFavorites, favorites, len(favorites)); err != nil {
		return false, fmt.Errorf("adding favorite %d: %w", id, err)
	}
	return true, nil
}

// RemoveFromFavorites removes id from the favorites. Removing an id that is
// not a favorite succeeds.
func (m *Manager) RemoveFromFavorites(id event.ID) (bool, error) {
	favorites := m.Favorites()

	kept := make([]event.ID, 0, len(favorites))
	for _, fav := range favorites {
		if fav != id {
			kept = append(kept, fav)
		}
	}

	if err := m.write(kv.KeyFavorites, kept, len(kept)); err != nil {
		return false, fmt.Errorf("removing favorite %d: %w", id, err)
	}
	return true, nil
}

// IsFavorite reports whether id is a favorite.
func (m *Manager) IsFavorite(id event.ID) bool {
	for _, fav := range m.Favorites() {
		if fav == id {
			return true
		}
	}
	return false
}

// FavoriteEvents returns the favorited events that still exist, in favorite order.
func (m *Manager) FavoriteEvents() []event.Event {
	byID := make(map[event.ID]event.Event)
	for _, evt := range m.Events() {
		byID[evt.ID] = evt
	}

	favorites := make([]event.Event, 0)
	for _, id := range m.Favorites() {
		if evt, ok := byID[id]; ok {
			favorites = append(favorites, evt)
		}
	}
	return favorites
}
