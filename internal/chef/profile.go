package chef

import (
	"context"
	"fmt"
	"log"

	"github.com/urbanrasoi/chef-client/internal/gateway"
	"github.com/urbanrasoi/chef-client/internal/models"
)

// FieldPatch is the closed set of profile field groups a caller may
// change: scalar fields, food styles, and the profile image. Nil
// fields are untouched. Unrecognized keys cannot exist by
// construction.
type FieldPatch struct {
	Name         *string
	Email        *string
	NativePlace  *string
	AadharNumber *string
	FoodStyles   *[]string
	// ImagePath points at a local file to upload; on success the
	// server's photo URL replaces it.
	ImagePath *string
}

func (p FieldPatch) empty() bool {
	return p.Name == nil && p.Email == nil && p.NativePlace == nil &&
		p.AadharNumber == nil && p.FoodStyles == nil && p.ImagePath == nil
}

// onlyFoodStyles reports whether the patch touches food styles and
// nothing else, which maps to the dedicated food-style update call.
func (p FieldPatch) onlyFoodStyles() bool {
	return p.FoodStyles != nil && p.Name == nil && p.Email == nil &&
		p.NativePlace == nil && p.AadharNumber == nil && p.ImagePath == nil
}

// UpdateFields applies the patch optimistically, issues the
// corresponding backend call, and reconciles the server's answer over
// the optimistic state. On failure the pre-mutation profile is
// restored exactly and the error returned to the caller.
func (s *ChefStore) UpdateFields(ctx context.Context, patch FieldPatch) error {
	if patch.empty() {
		return nil
	}
	gw, err := s.gatewayOrErr()
	if err != nil {
		return err
	}

	unlock := s.lockEntity(entityProfile)
	defer unlock()

	s.mu.Lock()
	prev := s.profile.Clone()
	gen := s.gen
	s.applyPatchLocked(patch)
	s.mu.Unlock()

	upd, err := s.callProfileUpdate(ctx, gw, patch)
	if err != nil {
		s.mu.Lock()
		if s.gen == gen {
			s.profile = prev
		}
		s.mu.Unlock()
		return fmt.Errorf("profile update failed: %w", err)
	}

	s.mu.Lock()
	if s.gen == gen {
		s.mergeUpdateLocked(upd)
	}
	s.mu.Unlock()

	s.persistSnapshot(ctx)
	return nil
}

func (s *ChefStore) callProfileUpdate(ctx context.Context, gw gateway.RemoteGateway, patch FieldPatch) (*models.ProfileUpdate, error) {
	if patch.onlyFoodStyles() {
		styles, err := gw.UpdateFoodStyles(ctx, *patch.FoodStyles)
		if err != nil {
			return nil, err
		}
		return &models.ProfileUpdate{FoodStyles: &styles}, nil
	}
	return gw.UpdateProfile(ctx, gateway.ProfilePatch{
		Name:         patch.Name,
		Email:        patch.Email,
		NativePlace:  patch.NativePlace,
		AadharNumber: patch.AadharNumber,
		FoodStyles:   patch.FoodStyles,
		ImagePath:    patch.ImagePath,
	})
}

// applyPatchLocked merges the optimistic patch. Caller holds s.mu.
func (s *ChefStore) applyPatchLocked(patch FieldPatch) {
	if patch.Name != nil {
		s.profile.Name = *patch.Name
	}
	if patch.Email != nil {
		s.profile.Email = *patch.Email
	}
	if patch.NativePlace != nil {
		s.profile.NativePlace = *patch.NativePlace
	}
	if patch.AadharNumber != nil {
		s.profile.AadharNumber = *patch.AadharNumber
	}
	if patch.FoodStyles != nil {
		s.profile.FoodStyles = append([]string{}, *patch.FoodStyles...)
	}
	if patch.ImagePath != nil {
		s.profile.PhotoRef = *patch.ImagePath
	}
}

// mergeUpdateLocked folds the server's confirmed fields back over the
// optimistic state; the server wins for every field it returned.
// Caller holds s.mu.
func (s *ChefStore) mergeUpdateLocked(upd *models.ProfileUpdate) {
	if upd == nil {
		return
	}
	if upd.Name != nil {
		s.profile.Name = *upd.Name
	}
	if upd.PhoneNumber != nil {
		s.profile.PhoneNumber = *upd.PhoneNumber
	}
	if upd.Email != nil {
		s.profile.Email = *upd.Email
	}
	if upd.NativePlace != nil {
		s.profile.NativePlace = *upd.NativePlace
	}
	if upd.AadharNumber != nil {
		s.profile.AadharNumber = *upd.AadharNumber
	}
	if upd.FoodStyles != nil {
		s.profile.FoodStyles = append([]string{}, *upd.FoodStyles...)
	}
	if upd.PhotoURL != nil {
		s.profile.ProfileImage = s.absoluteImageURL(*upd.PhotoURL)
		s.profile.PhotoRef = ""
	}
}

// ApplyLocationFix records an accepted device fix. Location is
// advisory state: it is never rolled back on push failure, so this
// writes local truth directly and persists best-effort.
func (s *ChefStore) ApplyLocationFix(ctx context.Context, lat, lng float64) {
	s.mu.Lock()
	s.profile.Location.Latitude = &lat
	s.profile.Location.Longitude = &lng
	s.mu.Unlock()

	s.persistSnapshot(ctx)
}

// SetLocationAddress merges a resolved human-readable address.
func (s *ChefStore) SetLocationAddress(ctx context.Context, address string) {
	if address == "" {
		return
	}
	s.mu.Lock()
	s.profile.Location.FullAddress = address
	s.mu.Unlock()

	s.persistSnapshot(ctx)
}

// ConfirmLocation commits an explicitly confirmed fix, including the
// address sub-fields, as the profile's location of record.
func (s *ChefStore) ConfirmLocation(ctx context.Context, loc models.GeoLocation) {
	s.mu.Lock()
	s.profile.Location = loc
	if loc.Latitude != nil {
		lat := *loc.Latitude
		s.profile.Location.Latitude = &lat
	}
	if loc.Longitude != nil {
		lng := *loc.Longitude
		s.profile.Location.Longitude = &lng
	}
	s.mu.Unlock()

	s.persistSnapshot(ctx)
	log.Printf("[ChefStore] Location of record confirmed")
}
