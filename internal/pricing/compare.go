package pricing

import "github.com/espressolabs/coffee-shop-platform/internal/models"

// SameSelections reports whether two selection sets are equal regardless of
// order. Cart adds merge into an existing line only when the product and the
// selections both match.
func SameSelections(a, b []models.SelectedOption) bool {
	if len(a) != len(b) {
		return false
	}

	counts := make(map[models.SelectedOption]int, len(a))

	for _, sel := range a {
		counts[sel]++
	}

	for _, sel := range b {
		counts[sel]--
		if counts[sel] < 0 {
			return false
		}
	}

	return true
}
