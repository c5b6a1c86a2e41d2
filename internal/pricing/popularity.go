package pricing

// Popularity score weights. A sale is worth five impressions, a cart add
// three.
const (
	salesWeight       = 5
	addedInCartWeight = 3
	impressionWeight  = 1
)

// Score derives the product ranking signal from its engagement counters.
func Score(sales, addedInCart, impressions int64) int64 {
	return sales*salesWeight + addedInCart*addedInCartWeight + impressions*impressionWeight
}
