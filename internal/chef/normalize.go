package chef

import "github.com/urbanrasoi/chef-client/internal/models"

// Normalize maps a possibly-partial or legacy-shaped chef record into
// the canonical aggregate: every scalar defaults to empty, collections
// default to empty slices, the legacy "_id" field is honored, a
// relative photo path becomes an absolute URL, and a record with no
// usable coordinates is backfilled from the watcher's most recent fix.
// Normalize is idempotent: feeding its output back in changes nothing.
func (s *ChefStore) Normalize(dto models.ChefDTO) models.ChefProfile {
	p := models.EmptyProfile()

	p.ID = dto.ID
	if p.ID == "" {
		p.ID = dto.LegacyID
	}
	p.Name = dto.Name
	p.PhoneNumber = dto.PhoneNumber
	p.Email = dto.Email
	p.NativePlace = dto.NativePlace
	p.AadharNumber = dto.AadharNumber
	if dto.Role != "" {
		p.Role = dto.Role
	}
	if len(dto.FoodStyles) > 0 {
		p.FoodStyles = append([]string{}, dto.FoodStyles...)
	}
	if len(dto.MenuItems) > 0 {
		p.MenuItems = append([]models.MenuItem{}, dto.MenuItems...)
	}

	// A served photo path wins over a cached image URL.
	if dto.PhotoURL != "" {
		p.ProfileImage = s.absoluteImageURL(dto.PhotoURL)
	} else {
		p.ProfileImage = dto.ProfileImage
	}

	if dto.Location != nil {
		p.Location.FullAddress = dto.Location.Address
		p.Location.Flat = dto.Location.Flat
		p.Location.Landmark = dto.Location.Landmark
		p.Location.Area = dto.Location.Area
		if len(dto.Location.Coordinates) == 2 {
			lng := dto.Location.Coordinates[0]
			lat := dto.Location.Coordinates[1]
			p.Location.Latitude = &lat
			p.Location.Longitude = &lng
		}
	}

	// No usable pair: substitute the watcher's latest fix, if any.
	if !p.Location.HasCoordinates() && s.lastFix != nil {
		if lat, lng, address, ok := s.lastFix(); ok {
			p.Location.Latitude = &lat
			p.Location.Longitude = &lng
			if p.Location.FullAddress == "" {
				p.Location.FullAddress = address
			}
		}
	}

	return p
}
