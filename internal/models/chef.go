package models

// FoodType classifies a menu item as vegetarian or not.
type FoodType string

const (
	FoodTypeVeg    FoodType = "veg"
	FoodTypeNonVeg FoodType = "non-veg"
)

// ServiceType is the meal slot a menu item is served in.
type ServiceType string

const (
	ServiceBreakfast ServiceType = "breakfast"
	ServiceLunch     ServiceType = "lunch"
	ServiceDinner    ServiceType = "dinner"
)

// RoleChef is the only role this client manages.
const RoleChef = "chef"

// MenuItem is a single dish on the chef's menu. ID is assigned by the
// backend; an item created locally carries a temporary id until the
// backend confirms it.
type MenuItem struct {
	ID          string      `json:"id"`
	FoodName    string      `json:"food_name"`
	FoodStyle   string      `json:"food_style"`
	FoodType    FoodType    `json:"food_type"`
	Quantity    int         `json:"quantity"`
	Price       float64     `json:"price"`
	OffPercent  float64     `json:"off_percent"`
	ServiceType ServiceType `json:"service_type"`
	PhotoRef    string      `json:"photo_ref,omitempty"`
	PhotoURL    string      `json:"photo_url,omitempty"`
	IsAvailable bool        `json:"is_available"`
}

// GeoLocation holds the chef's position and address details. Latitude
// and Longitude stay nil until a fix has been accepted.
type GeoLocation struct {
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	FullAddress string   `json:"full_address,omitempty"`
	Flat        string   `json:"flat,omitempty"`
	Landmark    string   `json:"landmark,omitempty"`
	Area        string   `json:"area,omitempty"`
}

// HasCoordinates reports whether both axes of the location are set.
func (g GeoLocation) HasCoordinates() bool {
	return g.Latitude != nil && g.Longitude != nil
}

// ChefProfile is the aggregate root: one instance per logged-in
// session, owned and mutated exclusively by the domain store.
type ChefProfile struct {
	ID           string
	Name         string
	PhoneNumber  string
	Email        string
	NativePlace  string
	AadharNumber string
	FoodStyles   []string
	// ProfileImage is the remote image URL. PhotoRef points at a local
	// file pending upload; the two are mutually exclusive and PhotoRef
	// is cleared once the upload confirms.
	ProfileImage string
	PhotoRef     string
	MenuItems    []MenuItem
	Location     GeoLocation
	Role         string
}

// EmptyProfile returns the zero aggregate the store holds before login
// and after logout.
func EmptyProfile() ChefProfile {
	return ChefProfile{
		FoodStyles: []string{},
		MenuItems:  []MenuItem{},
		Role:       RoleChef,
	}
}

// Clone returns a deep copy safe to hand outside the store or keep as
// a rollback snapshot.
func (p ChefProfile) Clone() ChefProfile {
	out := p
	out.FoodStyles = append([]string{}, p.FoodStyles...)
	out.MenuItems = append([]MenuItem{}, p.MenuItems...)
	if p.Location.Latitude != nil {
		lat := *p.Location.Latitude
		out.Location.Latitude = &lat
	}
	if p.Location.Longitude != nil {
		lng := *p.Location.Longitude
		out.Location.Longitude = &lng
	}
	return out
}

// MenuItemByID returns the index of the item with the given id, or -1.
func (p ChefProfile) MenuItemByID(id string) int {
	for i := range p.MenuItems {
		if p.MenuItems[i].ID == id {
			return i
		}
	}
	return -1
}
