package pricing

import (
	"math"

	"github.com/espressolabs/coffee-shop-platform/internal/models"
)

// DiscountedPrice applies a percentage discount to a base price, rounded to
// the nearest whole unit.
func DiscountedPrice(price float64, discount int) float64 {
	return math.Round(price - price*float64(discount)/100)
}

// Breakdown computes the canonical price snapshot for one line item. The
// base and discounted prices are read from the product as it is now, which
// is correct for cart lines; order lines freeze the result at checkout.
//
// perUnitSurcharge is the validator's per-unit option surcharge; it is
// multiplied by quantity here and must not be pre-multiplied by the caller.
func Breakdown(product *models.Product, perUnitSurcharge float64, quantity int) models.PriceBreakdown {
	qty := float64(quantity)

	return models.PriceBreakdown{
		BasePrice:       product.Price,
		DiscountedPrice: product.DiscountedPrice,
		TotalExtraPrice: perUnitSurcharge * qty,
		Total:           (product.DiscountedPrice + perUnitSurcharge) * qty,
		Discount:        product.Discount,
	}
}
