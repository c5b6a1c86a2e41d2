package models

import (
	"time"

	"github.com/google/uuid"
)

type AnalyticsEventType string

const (
	EventCartAdd        AnalyticsEventType = "cart_add"
	EventCheckout       AnalyticsEventType = "checkout"
	EventOrderCancelled AnalyticsEventType = "order_cancelled"
	EventProductClick   AnalyticsEventType = "product_click"
)

// AnalyticsEvent is an append-only engagement record, written off the
// request path by the background queue.
type AnalyticsEvent struct {
	ID        uuid.UUID          `json:"id"`
	Type      AnalyticsEventType `json:"type"`
	UserID    uuid.UUID          `json:"user_id,omitempty"`
	ProductID uuid.UUID          `json:"product_id,omitempty"`
	OrderID   uuid.UUID          `json:"order_id,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
}

// OrderStats aggregates orders within one reporting window.
type OrderStats struct {
	TotalOrders     int64   `json:"total_orders"`
	ConfirmedOrders int64   `json:"confirmed_orders"`
	DeliveredOrders int64   `json:"delivered_orders"`
	PendingOrders   int64   `json:"pending_orders"`
	CancelledOrders int64   `json:"cancelled_orders"`
	TotalSales      float64 `json:"total_sales"`
}

type OrdersOverview struct {
	Today     OrderStats `json:"today"`
	ThisWeek  OrderStats `json:"this_week"`
	ThisMonth OrderStats `json:"this_month"`
	ThisYear  OrderStats `json:"this_year"`
}
