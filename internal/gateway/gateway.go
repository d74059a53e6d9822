// Package gateway abstracts the chef backend. The domain core consumes
// only the request/response contracts defined here; transport details
// (paths, headers, token attachment) stay inside the HTTP
// implementation.
package gateway

import (
	"context"

	"github.com/urbanrasoi/chef-client/internal/models"
)

// LoginResult is the backend's answer to a phone login or an OTP
// verification.
type LoginResult struct {
	AccessToken  string         `json:"access_token"`
	Chef         models.ChefDTO `json:"chef"`
	IsNewAccount bool           `json:"new"`
}

// ProfilePatch is a closed set of profile fields sent to the backend.
// A nil field is not part of the request. ImagePath points at a local
// file and switches the request to a multipart upload.
type ProfilePatch struct {
	Name         *string
	Email        *string
	NativePlace  *string
	AadharNumber *string
	FoodStyles   *[]string
	ImagePath    *string
}

// OrderFilter selects which bucket of orders to list.
type OrderFilter string

const (
	OrdersNew       OrderFilter = "new"
	OrdersOngoing   OrderFilter = "ongoing"
	OrdersCompleted OrderFilter = "completed"
)

// RemoteGateway is the backend contract the domain core depends on.
type RemoteGateway interface {
	Login(ctx context.Context, phone string) (*LoginResult, error)
	VerifyOTP(ctx context.Context, phone, code string) (*LoginResult, error)

	FetchProfile(ctx context.Context) (*models.ChefDTO, error)
	UpdateProfile(ctx context.Context, patch ProfilePatch) (*models.ProfileUpdate, error)
	UpdateFoodStyles(ctx context.Context, styles []string) ([]string, error)

	AddMenuItem(ctx context.Context, item models.MenuItem) (*models.MenuItem, error)
	UpdateMenuItem(ctx context.Context, id string, item models.MenuItem) (*models.MenuItem, error)
	DeleteMenuItem(ctx context.Context, id string) error
	DeleteAllMenuItems(ctx context.Context) error

	GetOrders(ctx context.Context, filter OrderFilter) ([]models.Order, error)
	GetOrderDetails(ctx context.Context, id string) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus) error

	PushLocation(ctx context.Context, lat, lng float64) error
	ReverseGeocode(ctx context.Context, lat, lng float64) (string, error)
}
