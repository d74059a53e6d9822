// Package orders exposes the chef's order feed: listing by bucket and
// moving an order through its status transitions. Orders live on the
// backend; this service holds no local state.
package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/urbanrasoi/chef-client/internal/gateway"
	"github.com/urbanrasoi/chef-client/internal/models"
)

var (
	// ErrInvalidFilter is returned for an unknown order bucket.
	ErrInvalidFilter = errors.New("orders: invalid filter")
	// ErrInvalidStatus is returned for a transition the chef cannot
	// request.
	ErrInvalidStatus = errors.New("orders: invalid status transition")
)

var validFilters = map[gateway.OrderFilter]bool{
	gateway.OrdersNew:       true,
	gateway.OrdersOngoing:   true,
	gateway.OrdersCompleted: true,
}

// Chef-initiated transitions; "new" is backend-assigned only.
var validTransitions = map[models.OrderStatus]bool{
	models.OrderStatusAccepted:  true,
	models.OrderStatusRejected:  true,
	models.OrderStatusOngoing:   true,
	models.OrderStatusCompleted: true,
}

// OrderService reads and transitions orders through the gateway.
type OrderService struct {
	gw gateway.RemoteGateway
}

func NewOrderService(gw gateway.RemoteGateway) *OrderService {
	return &OrderService{gw: gw}
}

// List returns the orders in the given bucket.
func (s *OrderService) List(ctx context.Context, filter gateway.OrderFilter) ([]models.Order, error) {
	if !validFilters[filter] {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFilter, filter)
	}
	orders, err := s.gw.GetOrders(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch orders: %w", err)
	}
	return orders, nil
}

// Details returns one order.
func (s *OrderService) Details(ctx context.Context, id string) (*models.Order, error) {
	order, err := s.gw.GetOrderDetails(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch order %s: %w", id, err)
	}
	return order, nil
}

// UpdateStatus requests a status transition for an order.
func (s *OrderService) UpdateStatus(ctx context.Context, id string, status models.OrderStatus) error {
	if !validTransitions[status] {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	if err := s.gw.UpdateOrderStatus(ctx, id, status); err != nil {
		return fmt.Errorf("failed to update order %s: %w", id, err)
	}
	return nil
}
