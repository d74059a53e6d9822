package chef

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/urbanrasoi/chef-client/internal/models"
)

// tempItemID mints the placeholder id a locally-created item carries
// until the backend confirms it.
func tempItemID() string {
	return "tmp-" + uuid.NewString()
}

// IsTempItemID reports whether an id is a local placeholder.
func IsTempItemID(id string) bool {
	return len(id) > 4 && id[:4] == "tmp-"
}

// AddMenuItem inserts the item optimistically under a temporary id,
// uploads it, and replaces the temporary id with the server's. On
// failure the temporary entry is removed entirely.
func (s *ChefStore) AddMenuItem(ctx context.Context, item models.MenuItem) (models.MenuItem, error) {
	gw, err := s.gatewayOrErr()
	if err != nil {
		return models.MenuItem{}, err
	}

	if item.ID == "" {
		item.ID = tempItemID()
	}
	tempID := item.ID

	s.menuMu.RLock()
	defer s.menuMu.RUnlock()
	unlock := s.lockEntity(tempID)
	defer unlock()

	s.mu.Lock()
	gen := s.gen
	s.profile.MenuItems = append(s.profile.MenuItems, item)
	s.mu.Unlock()

	confirmed, err := gw.AddMenuItem(ctx, item)
	if err != nil {
		s.mu.Lock()
		if s.gen == gen {
			s.removeItemLocked(tempID)
		}
		s.mu.Unlock()
		return models.MenuItem{}, fmt.Errorf("add menu item failed: %w", err)
	}

	s.mu.Lock()
	if s.gen == gen {
		if i := s.profile.MenuItemByID(tempID); i >= 0 {
			s.profile.MenuItems[i] = *confirmed
		}
	}
	s.mu.Unlock()

	s.persistSnapshot(ctx)
	return *confirmed, nil
}

// UpdateMenuItem replaces a confirmed item optimistically and
// reconciles the server's copy; on failure the previous item is
// restored exactly.
func (s *ChefStore) UpdateMenuItem(ctx context.Context, item models.MenuItem) error {
	gw, err := s.gatewayOrErr()
	if err != nil {
		return err
	}
	if item.ID == "" {
		return ErrItemNotFound
	}

	s.menuMu.RLock()
	defer s.menuMu.RUnlock()
	unlock := s.lockEntity(item.ID)
	defer unlock()

	s.mu.Lock()
	gen := s.gen
	i := s.profile.MenuItemByID(item.ID)
	if i < 0 {
		s.mu.Unlock()
		return ErrItemNotFound
	}
	prev := s.profile.MenuItems[i]
	s.profile.MenuItems[i] = item
	s.mu.Unlock()

	confirmed, err := gw.UpdateMenuItem(ctx, item.ID, item)
	if err != nil {
		s.mu.Lock()
		if s.gen == gen {
			if i := s.profile.MenuItemByID(item.ID); i >= 0 {
				s.profile.MenuItems[i] = prev
			}
		}
		s.mu.Unlock()
		return fmt.Errorf("update menu item failed: %w", err)
	}

	s.mu.Lock()
	if s.gen == gen {
		if i := s.profile.MenuItemByID(item.ID); i >= 0 {
			s.profile.MenuItems[i] = *confirmed
		}
	}
	s.mu.Unlock()

	s.persistSnapshot(ctx)
	return nil
}

// RemoveMenuItem deletes an item optimistically; on failure it is
// reinserted at its original position.
func (s *ChefStore) RemoveMenuItem(ctx context.Context, id string) error {
	gw, err := s.gatewayOrErr()
	if err != nil {
		return err
	}

	s.menuMu.RLock()
	defer s.menuMu.RUnlock()
	unlock := s.lockEntity(id)
	defer unlock()

	s.mu.Lock()
	gen := s.gen
	i := s.profile.MenuItemByID(id)
	if i < 0 {
		s.mu.Unlock()
		return ErrItemNotFound
	}
	removed := s.profile.MenuItems[i]
	s.profile.MenuItems = append(s.profile.MenuItems[:i], s.profile.MenuItems[i+1:]...)
	s.mu.Unlock()

	if err := gw.DeleteMenuItem(ctx, id); err != nil {
		s.mu.Lock()
		if s.gen == gen {
			s.insertItemLocked(removed, i)
		}
		s.mu.Unlock()
		return fmt.Errorf("delete menu item failed: %w", err)
	}

	s.persistSnapshot(ctx)
	return nil
}

// RemoveAllMenuItems clears the menu optimistically; on failure the
// previous collection is restored. Takes the menu-wide lock so no
// per-item mutation interleaves.
func (s *ChefStore) RemoveAllMenuItems(ctx context.Context) error {
	gw, err := s.gatewayOrErr()
	if err != nil {
		return err
	}

	s.menuMu.Lock()
	defer s.menuMu.Unlock()

	s.mu.Lock()
	gen := s.gen
	prev := s.profile.MenuItems
	s.profile.MenuItems = []models.MenuItem{}
	s.mu.Unlock()

	if err := gw.DeleteAllMenuItems(ctx); err != nil {
		s.mu.Lock()
		if s.gen == gen {
			s.profile.MenuItems = prev
		}
		s.mu.Unlock()
		return fmt.Errorf("delete menu failed: %w", err)
	}

	s.persistSnapshot(ctx)
	return nil
}

// ToggleMenuItemAvailability flips the availability flag optimistically
// and pushes the change. On failure exactly the previous boolean is
// restored, leaving any other in-flight change to the item untouched.
func (s *ChefStore) ToggleMenuItemAvailability(ctx context.Context, id string) error {
	gw, err := s.gatewayOrErr()
	if err != nil {
		return err
	}

	s.menuMu.RLock()
	defer s.menuMu.RUnlock()
	unlock := s.lockEntity(id)
	defer unlock()

	s.mu.Lock()
	gen := s.gen
	i := s.profile.MenuItemByID(id)
	if i < 0 {
		s.mu.Unlock()
		return ErrItemNotFound
	}
	prevAvailable := s.profile.MenuItems[i].IsAvailable
	s.profile.MenuItems[i].IsAvailable = !prevAvailable
	item := s.profile.MenuItems[i]
	s.mu.Unlock()

	if _, err := gw.UpdateMenuItem(ctx, id, item); err != nil {
		s.mu.Lock()
		if s.gen == gen {
			if i := s.profile.MenuItemByID(id); i >= 0 {
				s.profile.MenuItems[i].IsAvailable = prevAvailable
			}
		}
		s.mu.Unlock()
		return fmt.Errorf("toggle availability failed: %w", err)
	}

	s.persistSnapshot(ctx)
	return nil
}

// removeItemLocked drops the item with the given id. Caller holds s.mu.
func (s *ChefStore) removeItemLocked(id string) {
	if i := s.profile.MenuItemByID(id); i >= 0 {
		s.profile.MenuItems = append(s.profile.MenuItems[:i], s.profile.MenuItems[i+1:]...)
	}
}

// insertItemLocked reinserts an item at its original display position.
// Caller holds s.mu.
func (s *ChefStore) insertItemLocked(item models.MenuItem, at int) {
	if at > len(s.profile.MenuItems) {
		at = len(s.profile.MenuItems)
	}
	items := append(s.profile.MenuItems[:at:at], item)
	s.profile.MenuItems = append(items, s.profile.MenuItems[at:]...)
}
