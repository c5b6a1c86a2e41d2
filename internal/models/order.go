package models

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

type PaymentStatus string

type PaymentMethod string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"

	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"

	PaymentMethodCashOnDelivery PaymentMethod = "cash_on_delivery"
	PaymentMethodCard           PaymentMethod = "card"
	PaymentMethodWallet         PaymentMethod = "wallet"
)

// orderTransitions is the allowed state machine for order statuses. A status
// absent from the map is terminal.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed: {OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusShipped:   {OrderStatusDelivered, OrderStatusCancelled},
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}

	return false
}

type Address struct {
	Phone      string `json:"phone" validate:"required,min=7,max=20"`
	Street     string `json:"street" validate:"required"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state" validate:"required"`
	PostalCode string `json:"postal_code" validate:"required"`
	Country    string `json:"country" validate:"required"`
	Landmark   string `json:"landmark,omitempty"`
}

// PricedOption is a selected option at checkout time, frozen together with
// the per-unit surcharge it contributed.
type PricedOption struct {
	Name       string  `json:"name"`
	Value      string  `json:"value"`
	ExtraPrice float64 `json:"extra_price"`
}

type OrderItem struct {
	ProductID       uuid.UUID      `json:"product_id"`
	Name            string         `json:"name"`
	Quantity        int            `json:"quantity"`
	Note            string         `json:"note,omitempty"`
	SelectedOptions []PricedOption `json:"selected_options"`
	Price           PriceBreakdown `json:"price"`
}

type Order struct {
	ID            uuid.UUID     `json:"id"`
	Code          string        `json:"code"`
	UserID        uuid.UUID     `json:"user_id"`
	Items         []OrderItem   `json:"items"`
	TotalAmount   float64       `json:"total_amount"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	Status        OrderStatus   `json:"status"`
	Address       Address       `json:"address"`
	Note          string        `json:"note,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

type CheckoutRequest struct {
	PaymentMethod PaymentMethod `json:"payment_method" validate:"required,oneof=cash_on_delivery card wallet"`
	Address       Address       `json:"address" validate:"required"`
	Note          string        `json:"note" validate:"max=300"`
}

type CheckoutResponse struct {
	OrderID string `json:"order_id"`
}

type UpdateOrderRequest struct {
	Status        *OrderStatus   `json:"order_status,omitempty" validate:"omitempty,oneof=pending confirmed shipped delivered cancelled"`
	PaymentStatus *PaymentStatus `json:"payment_status,omitempty" validate:"omitempty,oneof=pending paid failed"`
}
