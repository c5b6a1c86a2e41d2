// Package pricing holds the pure cart-to-order pricing logic: option
// validation against a product's schema, line price breakdowns and the
// popularity score derivation. Nothing here touches storage.
package pricing

import (
	"fmt"

	"github.com/espressolabs/coffee-shop-platform/internal/models"
)

// SelectionResult is the outcome of validating a submitted option set
// against a product's option schema.
//
// Unavailable is a soft signal: the selections were not checked because the
// product is currently unavailable, and the caller is expected to drop the
// line instead of failing the whole cart.
type SelectionResult struct {
	Valid       bool
	Unavailable bool
	Surcharge   float64 // per-unit; callers multiply by quantity exactly once
	Message     string

	// Priced mirrors the accepted selections with the surcharge each one
	// contributed, ready to freeze into an order line.
	Priced []models.PricedOption
}

func invalidSelection(format string, args ...any) SelectionResult {
	return SelectionResult{Valid: false, Message: fmt.Sprintf(format, args...)}
}

// ValidateSelections checks that every required option is present exactly
// once, that no selection names an option outside the schema, and that every
// submitted value is one of the schema's declared labels. On success the
// per-unit surcharge is the sum of the matched values' extra prices.
//
// A selection for an optional option with an empty value is skipped rather
// than rejected.
func ValidateSelections(product *models.Product, selections []models.SelectedOption) SelectionResult {

	if !product.Available {
		return SelectionResult{Valid: true, Unavailable: true}
	}

	seen := make(map[string]int, len(selections))
	for _, sel := range selections {
		seen[sel.Name]++
	}

	for name, count := range seen {
		if count > 1 {
			return invalidSelection("%s was selected more than once", name)
		}
	}

	for _, opt := range product.Options {
		if opt.Required {
			if _, ok := seen[opt.Name]; !ok {
				return invalidSelection("%s is required", opt.Name)
			}
		}
	}

	for _, sel := range selections {
		if product.Option(sel.Name) == nil {
			return invalidSelection("%s is not a valid option", sel.Name)
		}
	}

	var surcharge float64

	priced := make([]models.PricedOption, 0, len(selections))

	for _, sel := range selections {
		opt := product.Option(sel.Name)

		if !opt.Required && sel.Value == "" {
			continue
		}

		matched := false

		for _, value := range opt.Values {
			if value.Label == sel.Value {
				surcharge += value.ExtraPrice
				priced = append(priced, models.PricedOption{
					Name:       sel.Name,
					Value:      sel.Value,
					ExtraPrice: value.ExtraPrice,
				})
				matched = true

				break
			}
		}

		if !matched {
			return invalidSelection("%q is not a valid value for %q", sel.Value, sel.Name)
		}
	}

	return SelectionResult{Valid: true, Surcharge: surcharge, Priced: priced}
}
