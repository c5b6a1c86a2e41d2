package pricing_test

import (
	"testing"

	"github.com/espressolabs/coffee-shop-platform/internal/models"
	"github.com/espressolabs/coffee-shop-platform/internal/pricing"
	"github.com/stretchr/testify/assert"
)

func sizedProduct() *models.Product {
	return &models.Product{
		Name:            "Latte",
		Price:           300,
		Discount:        10,
		DiscountedPrice: 270,
		Available:       true,
		Options: []models.ProductOption{
			{
				Name:     "Size",
				Required: true,
				Values: []models.OptionValue{
					{Label: "Small", ExtraPrice: 0},
					{Label: "Large", ExtraPrice: 50},
				},
			},
			{
				Name:     "Syrup",
				Required: false,
				Values: []models.OptionValue{
					{Label: "Vanilla", ExtraPrice: 30},
					{Label: "Caramel", ExtraPrice: 30},
				},
			},
		},
	}
}

func TestValidateSelections(t *testing.T) {

	t.Run("Success: required option with surcharge", func(t *testing.T) {
		result := pricing.ValidateSelections(sizedProduct(), []models.SelectedOption{
			{Name: "Size", Value: "Large"},
		})

		assert.True(t, result.Valid)
		assert.False(t, result.Unavailable)
		assert.Equal(t, float64(50), result.Surcharge)
	})

	t.Run("Success: surcharges accumulate across options", func(t *testing.T) {
		result := pricing.ValidateSelections(sizedProduct(), []models.SelectedOption{
			{Name: "Size", Value: "Large"},
			{Name: "Syrup", Value: "Vanilla"},
		})

		assert.True(t, result.Valid)
		assert.Equal(t, float64(80), result.Surcharge)
	})

	t.Run("Success: zero-surcharge value", func(t *testing.T) {
		result := pricing.ValidateSelections(sizedProduct(), []models.SelectedOption{
			{Name: "Size", Value: "Small"},
		})

		assert.True(t, result.Valid)
		assert.Equal(t, float64(0), result.Surcharge)
	})

	t.Run("Success: optional option with empty value is skipped", func(t *testing.T) {
		result := pricing.ValidateSelections(sizedProduct(), []models.SelectedOption{
			{Name: "Size", Value: "Small"},
			{Name: "Syrup", Value: ""},
		})

		assert.True(t, result.Valid)
		assert.Equal(t, float64(0), result.Surcharge)
	})

	t.Run("Failure: missing required option", func(t *testing.T) {
		result := pricing.ValidateSelections(sizedProduct(), nil)

		assert.False(t, result.Valid)
		assert.Equal(t, "Size is required", result.Message)
		assert.Equal(t, float64(0), result.Surcharge)
	})

	t.Run("Failure: unknown option name", func(t *testing.T) {
		result := pricing.ValidateSelections(sizedProduct(), []models.SelectedOption{
			{Name: "Size", Value: "Small"},
			{Name: "Toppings", Value: "Sprinkles"},
		})

		assert.False(t, result.Valid)
		assert.Equal(t, "Toppings is not a valid option", result.Message)
	})

	t.Run("Failure: value outside declared labels", func(t *testing.T) {
		result := pricing.ValidateSelections(sizedProduct(), []models.SelectedOption{
			{Name: "Size", Value: "Medium"},
		})

		assert.False(t, result.Valid)
		assert.Equal(t, `"Medium" is not a valid value for "Size"`, result.Message)
	})

	t.Run("Failure: duplicate selection of one option", func(t *testing.T) {
		result := pricing.ValidateSelections(sizedProduct(), []models.SelectedOption{
			{Name: "Size", Value: "Small"},
			{Name: "Size", Value: "Large"},
		})

		assert.False(t, result.Valid)
		assert.Equal(t, "Size was selected more than once", result.Message)
	})

	t.Run("Unavailable product short-circuits as a soft signal", func(t *testing.T) {
		product := sizedProduct()
		product.Available = false

		// Selections would be invalid for an available product; the
		// unavailable flag wins so the caller can drop the line.
		result := pricing.ValidateSelections(product, []models.SelectedOption{
			{Name: "Toppings", Value: "Sprinkles"},
		})

		assert.True(t, result.Valid)
		assert.True(t, result.Unavailable)
		assert.Equal(t, float64(0), result.Surcharge)
	})

	t.Run("Product without options accepts empty selections", func(t *testing.T) {
		product := sizedProduct()
		product.Options = nil

		result := pricing.ValidateSelections(product, nil)

		assert.True(t, result.Valid)
		assert.Equal(t, float64(0), result.Surcharge)
	})
}
