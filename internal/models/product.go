package models

import (
	"time"

	"github.com/google/uuid"
)

// OptionValue is one selectable choice of a product option, carrying the
// per-unit surcharge it adds to the line price.
type OptionValue struct {
	Label      string  `json:"label" validate:"required,min=1,max=50"`
	ExtraPrice float64 `json:"extra_price" validate:"gte=0"`
}

// ProductOption is a customizable attribute of a product (e.g. "Size") with
// an enumerated set of allowed values.
type ProductOption struct {
	Name     string        `json:"name" validate:"required,min=2,max=50"`
	Required bool          `json:"required"`
	Values   []OptionValue `json:"values" validate:"required,min=1,dive"`
}

type Product struct {
	ID              uuid.UUID       `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	Price           float64         `json:"price"`
	Discount        int             `json:"discount"`
	DiscountedPrice float64         `json:"discounted_price"`
	ImageURL        string          `json:"image_url,omitempty"`
	Category        string          `json:"category"`
	Available       bool            `json:"available"`
	Options         []ProductOption `json:"options"`
	Impressions     int64           `json:"impressions"`
	AddedInCart     int64           `json:"added_in_cart"`
	Sales           int64           `json:"sales"`
	PopularityScore int64           `json:"popularity_score"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Option returns the schema entry with the given name, or nil.
func (p *Product) Option(name string) *ProductOption {
	for i := range p.Options {
		if p.Options[i].Name == name {
			return &p.Options[i]
		}
	}

	return nil
}

const productCategories = "hotCoffee iceCoffee frappes tea matcha cooler snacks others"

type CreateProductRequest struct {
	Name        string          `json:"name" validate:"required,min=5,max=100"`
	Description string          `json:"description" validate:"required,min=10,max=500"`
	Price       float64         `json:"price" validate:"required,gt=0"`
	Discount    int             `json:"discount" validate:"gte=0,lte=99"`
	ImageURL    string          `json:"image_url" validate:"omitempty,url"`
	Category    string          `json:"category" validate:"required,oneof=hotCoffee iceCoffee frappes tea matcha cooler snacks others"`
	Options     []ProductOption `json:"options" validate:"omitempty,dive"`
}

type UpdateProductRequest struct {
	Name        *string          `json:"name,omitempty" validate:"omitempty,min=5,max=100"`
	Description *string          `json:"description,omitempty" validate:"omitempty,min=10,max=500"`
	Price       *float64         `json:"price,omitempty" validate:"omitempty,gt=0"`
	Discount    *int             `json:"discount,omitempty" validate:"omitempty,gte=0,lte=99"`
	ImageURL    *string          `json:"image_url,omitempty" validate:"omitempty,url"`
	Category    *string          `json:"category,omitempty" validate:"omitempty,oneof=hotCoffee iceCoffee frappes tea matcha cooler snacks others"`
	Available   *bool            `json:"available,omitempty"`
	Options     *[]ProductOption `json:"options,omitempty" validate:"omitempty,dive"`
}

// ProductFilter narrows catalog listings.
type ProductFilter struct {
	Category      string
	Query         string
	MinPrice      *float64
	MaxPrice      *float64
	OnlyAvailable bool
	Sort          string // price_ascending, price_descending, popularity
}
