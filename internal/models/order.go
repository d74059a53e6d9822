package models

import "time"

// OrderStatus is the backend's order state.
type OrderStatus string

const (
	OrderStatusNew       OrderStatus = "new"
	OrderStatusAccepted  OrderStatus = "accepted"
	OrderStatusRejected  OrderStatus = "rejected"
	OrderStatusOngoing   OrderStatus = "ongoing"
	OrderStatusCompleted OrderStatus = "completed"
)

// OrderItem is one line of a customer order.
type OrderItem struct {
	FoodName string  `json:"food_name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// Order is a customer order as reported by the backend. The client
// never creates orders, it only reads them and moves their status.
type Order struct {
	ID           string      `json:"id"`
	CustomerName string      `json:"customer_name"`
	Items        []OrderItem `json:"items"`
	Total        float64     `json:"total"`
	Status       OrderStatus `json:"status"`
	PlacedAt     time.Time   `json:"placed_at"`
}
