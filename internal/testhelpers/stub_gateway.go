package testhelpers

import (
	"context"
	"errors"
	"sync"

	"github.com/urbanrasoi/chef-client/internal/gateway"
	"github.com/urbanrasoi/chef-client/internal/models"
)

// ErrStubUnset is returned by StubGateway methods without a configured
// function.
var ErrStubUnset = errors.New("testhelpers: stub method not configured")

// StubGateway is a programmable RemoteGateway for unit tests. Each
// call is recorded in Calls in invocation order.
type StubGateway struct {
	mu    sync.Mutex
	Calls []string

	LoginFn            func(ctx context.Context, phone string) (*gateway.LoginResult, error)
	VerifyOTPFn        func(ctx context.Context, phone, code string) (*gateway.LoginResult, error)
	FetchProfileFn     func(ctx context.Context) (*models.ChefDTO, error)
	UpdateProfileFn    func(ctx context.Context, patch gateway.ProfilePatch) (*models.ProfileUpdate, error)
	UpdateFoodStylesFn func(ctx context.Context, styles []string) ([]string, error)
	AddMenuItemFn      func(ctx context.Context, item models.MenuItem) (*models.MenuItem, error)
	UpdateMenuItemFn   func(ctx context.Context, id string, item models.MenuItem) (*models.MenuItem, error)
	DeleteMenuItemFn   func(ctx context.Context, id string) error
	DeleteAllFn        func(ctx context.Context) error
	GetOrdersFn        func(ctx context.Context, filter gateway.OrderFilter) ([]models.Order, error)
	GetOrderDetailsFn  func(ctx context.Context, id string) (*models.Order, error)
	UpdateOrderFn      func(ctx context.Context, id string, status models.OrderStatus) error
	PushLocationFn     func(ctx context.Context, lat, lng float64) error
	ReverseGeocodeFn   func(ctx context.Context, lat, lng float64) (string, error)
}

var _ gateway.RemoteGateway = (*StubGateway)(nil)

func (s *StubGateway) record(name string) {
	s.mu.Lock()
	s.Calls = append(s.Calls, name)
	s.mu.Unlock()
}

// CallNames returns a copy of the recorded call list.
func (s *StubGateway) CallNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.Calls...)
}

func (s *StubGateway) Login(ctx context.Context, phone string) (*gateway.LoginResult, error) {
	s.record("Login")
	if s.LoginFn == nil {
		return nil, ErrStubUnset
	}
	return s.LoginFn(ctx, phone)
}

func (s *StubGateway) VerifyOTP(ctx context.Context, phone, code string) (*gateway.LoginResult, error) {
	s.record("VerifyOTP")
	if s.VerifyOTPFn == nil {
		return nil, ErrStubUnset
	}
	return s.VerifyOTPFn(ctx, phone, code)
}

func (s *StubGateway) FetchProfile(ctx context.Context) (*models.ChefDTO, error) {
	s.record("FetchProfile")
	if s.FetchProfileFn == nil {
		return nil, ErrStubUnset
	}
	return s.FetchProfileFn(ctx)
}

func (s *StubGateway) UpdateProfile(ctx context.Context, patch gateway.ProfilePatch) (*models.ProfileUpdate, error) {
	s.record("UpdateProfile")
	if s.UpdateProfileFn == nil {
		return nil, ErrStubUnset
	}
	return s.UpdateProfileFn(ctx, patch)
}

func (s *StubGateway) UpdateFoodStyles(ctx context.Context, styles []string) ([]string, error) {
	s.record("UpdateFoodStyles")
	if s.UpdateFoodStylesFn == nil {
		return nil, ErrStubUnset
	}
	return s.UpdateFoodStylesFn(ctx, styles)
}

func (s *StubGateway) AddMenuItem(ctx context.Context, item models.MenuItem) (*models.MenuItem, error) {
	s.record("AddMenuItem")
	if s.AddMenuItemFn == nil {
		return nil, ErrStubUnset
	}
	return s.AddMenuItemFn(ctx, item)
}

func (s *StubGateway) UpdateMenuItem(ctx context.Context, id string, item models.MenuItem) (*models.MenuItem, error) {
	s.record("UpdateMenuItem")
	if s.UpdateMenuItemFn == nil {
		return nil, ErrStubUnset
	}
	return s.UpdateMenuItemFn(ctx, id, item)
}

func (s *StubGateway) DeleteMenuItem(ctx context.Context, id string) error {
	s.record("DeleteMenuItem")
	if s.DeleteMenuItemFn == nil {
		return ErrStubUnset
	}
	return s.DeleteMenuItemFn(ctx, id)
}

func (s *StubGateway) DeleteAllMenuItems(ctx context.Context) error {
	s.record("DeleteAllMenuItems")
	if s.DeleteAllFn == nil {
		return ErrStubUnset
	}
	return s.DeleteAllFn(ctx)
}

func (s *StubGateway) GetOrders(ctx context.Context, filter gateway.OrderFilter) ([]models.Order, error) {
	s.record("GetOrders")
	if s.GetOrdersFn == nil {
		return nil, ErrStubUnset
	}
	return s.GetOrdersFn(ctx, filter)
}

func (s *StubGateway) GetOrderDetails(ctx context.Context, id string) (*models.Order, error) {
	s.record("GetOrderDetails")
	if s.GetOrderDetailsFn == nil {
		return nil, ErrStubUnset
	}
	return s.GetOrderDetailsFn(ctx, id)
}

func (s *StubGateway) UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus) error {
	s.record("UpdateOrderStatus")
	if s.UpdateOrderFn == nil {
		return ErrStubUnset
	}
	return s.UpdateOrderFn(ctx, id, status)
}

func (s *StubGateway) PushLocation(ctx context.Context, lat, lng float64) error {
	s.record("PushLocation")
	if s.PushLocationFn == nil {
		return ErrStubUnset
	}
	return s.PushLocationFn(ctx, lat, lng)
}

func (s *StubGateway) ReverseGeocode(ctx context.Context, lat, lng float64) (string, error) {
	s.record("ReverseGeocode")
	if s.ReverseGeocodeFn == nil {
		return "", ErrStubUnset
	}
	return s.ReverseGeocodeFn(ctx, lat, lng)
}
