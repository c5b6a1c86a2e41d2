package models

import (
	"time"

	"github.com/google/uuid"
)

// SelectedOption is a caller-submitted customization. It carries no price:
// prices are always derived from the product's option schema, never trusted
// from the client.
type SelectedOption struct {
	Name  string `json:"name" validate:"required,min=1,max=50"`
	Value string `json:"value" validate:"max=50"`
}

// PriceBreakdown is the canonical per-line price snapshot. For cart items it
// is recomputed against the live catalog on every read and write; for order
// items it is frozen at checkout.
type PriceBreakdown struct {
	BasePrice       float64 `json:"base_price"`
	DiscountedPrice float64 `json:"discounted_price"`
	TotalExtraPrice float64 `json:"total_extra_price"`
	Total           float64 `json:"total"`
	Discount        int     `json:"discount"`
}

type CartItem struct {
	ID              uuid.UUID        `json:"id"`
	ProductID       uuid.UUID        `json:"product_id"`
	Quantity        int              `json:"quantity"`
	Note            string           `json:"note,omitempty"`
	SelectedOptions []SelectedOption `json:"selected_options"`
	Price           PriceBreakdown   `json:"price"`
}

type Cart struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	Items       []CartItem `json:"items"`
	TotalAmount float64    `json:"total_amount"`
	Version     int64      `json:"-"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type AddItemRequest struct {
	ProductID       uuid.UUID        `json:"product_id" validate:"required"`
	Quantity        int              `json:"quantity" validate:"required,min=1"`
	Note            string           `json:"note" validate:"max=300"`
	SelectedOptions []SelectedOption `json:"selected_options" validate:"omitempty,dive"`
}

type UpdateItemRequest struct {
	Quantity        *int              `json:"quantity,omitempty" validate:"omitempty,gt=0"`
	Note            *string           `json:"note,omitempty" validate:"omitempty,max=300"`
	SelectedOptions *[]SelectedOption `json:"selected_options,omitempty" validate:"omitempty,dive"`
}

// CartResponse is the reconciled view returned by every cart endpoint. The
// dropped list names products whose lines were removed because the product
// became unavailable since they were added.
type CartResponse struct {
	Cart            *Cart       `json:"cart"`
	DroppedProducts []uuid.UUID `json:"dropped_products,omitempty"`
}
