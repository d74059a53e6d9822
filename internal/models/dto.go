package models

// Wire shapes for the chef backend. The API speaks snake_case JSON and
// a GeoJSON-style point for the location; older records use "_id" for
// the identifier, which is still accepted on the way in.

// LocationDTO is the backend's location shape. Coordinates are
// [longitude, latitude] when present.
type LocationDTO struct {
	Type        string    `json:"type,omitempty"`
	Coordinates []float64 `json:"coordinates"`
	Address     string    `json:"address,omitempty"`
	Flat        string    `json:"flat,omitempty"`
	Landmark    string    `json:"landmark,omitempty"`
	Area        string    `json:"area,omitempty"`
}

// ChefDTO is the backend's chef record, also the shape cached in the
// persistent store between sessions.
type ChefDTO struct {
	ID           string       `json:"id,omitempty"`
	LegacyID     string       `json:"_id,omitempty"`
	Name         string       `json:"name"`
	PhoneNumber  string       `json:"phone_number"`
	Email        string       `json:"email"`
	NativePlace  string       `json:"native_place"`
	AadharNumber string       `json:"aadhar_number"`
	FoodStyles   []string     `json:"food_styles"`
	ProfileImage string       `json:"profile_image,omitempty"`
	PhotoURL     string       `json:"photo_url,omitempty"`
	MenuItems    []MenuItem   `json:"menuItems"`
	Location     *LocationDTO `json:"location,omitempty"`
	Role         string       `json:"role,omitempty"`
}

// ProfileUpdate carries the fields the backend confirmed after a
// profile mutation. Pointers distinguish "returned by the server" from
// "not mentioned" so reconciliation only overwrites what the server
// actually answered for.
type ProfileUpdate struct {
	Name         *string   `json:"name,omitempty"`
	PhoneNumber  *string   `json:"phone_number,omitempty"`
	Email        *string   `json:"email,omitempty"`
	NativePlace  *string   `json:"native_place,omitempty"`
	AadharNumber *string   `json:"aadhar_number,omitempty"`
	FoodStyles   *[]string `json:"food_styles,omitempty"`
	PhotoURL     *string   `json:"photo_url,omitempty"`
}

// DTO converts the canonical profile back to the wire/cache shape.
func (p ChefProfile) DTO() ChefDTO {
	dto := ChefDTO{
		ID:           p.ID,
		Name:         p.Name,
		PhoneNumber:  p.PhoneNumber,
		Email:        p.Email,
		NativePlace:  p.NativePlace,
		AadharNumber: p.AadharNumber,
		FoodStyles:   append([]string(nil), p.FoodStyles...),
		ProfileImage: p.ProfileImage,
		MenuItems:    append([]MenuItem(nil), p.MenuItems...),
		Role:         p.Role,
	}
	loc := LocationDTO{
		Address:  p.Location.FullAddress,
		Flat:     p.Location.Flat,
		Landmark: p.Location.Landmark,
		Area:     p.Location.Area,
	}
	if p.Location.HasCoordinates() {
		loc.Type = "Point"
		loc.Coordinates = []float64{*p.Location.Longitude, *p.Location.Latitude}
	}
	dto.Location = &loc
	return dto
}
