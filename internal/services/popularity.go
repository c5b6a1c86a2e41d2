package service

import (
	"context"

	"github.com/espressolabs/coffee-shop-platform/internal/cache"
	repository "github.com/espressolabs/coffee-shop-platform/internal/repositories"
	"github.com/espressolabs/coffee-shop-platform/internal/worker"
	"github.com/google/uuid"
)

// PopularityUpdater translates engagement signals into counter deltas and
// applies them off the request path. Every delta lands in a single atomic
// UPDATE that clamps counters at zero and recomputes the popularity score,
// so concurrent signals for the same product never lose updates.
type PopularityUpdater struct {
	products repository.ProductRepository
	cache    cache.Cache
	queue    *worker.Queue
}

func NewPopularityUpdater(products repository.ProductRepository, c cache.Cache, queue *worker.Queue) *PopularityUpdater {
	return &PopularityUpdater{products: products, cache: c, queue: queue}
}

func (p *PopularityUpdater) apply(jobName string, productID uuid.UUID, salesDelta, cartDelta, impressionsDelta int64) {
	p.queue.Enqueue(jobName, func(ctx context.Context) error {
		if err := p.products.ApplyEngagementDelta(ctx, productID, salesDelta, cartDelta, impressionsDelta); err != nil {
			return err
		}

		// Stale ranking and product snapshots are tolerable until TTL,
		// but drop them eagerly when the score moved.
		_ = p.cache.Delete(ctx, cache.PopularProductsKey)
		_ = p.cache.Delete(ctx, cache.Key(cache.ProductKeyPrefix, productID.String()))

		return nil
	})
}

// ProductViewed records one impression.
func (p *PopularityUpdater) ProductViewed(productID uuid.UUID) {
	p.apply("popularity.productViewed", productID, 0, 0, 1)
}

// ItemAdded records quantity units entering a cart.
func (p *PopularityUpdater) ItemAdded(productID uuid.UUID, quantity int) {
	p.apply("popularity.itemAdded", productID, 0, int64(quantity), 0)
}

// QuantityChanged adjusts the in-cart counter by the difference between the
// new and old line quantities. A zero delta is a no-op.
func (p *PopularityUpdater) QuantityChanged(productID uuid.UUID, oldQuantity, newQuantity int) {
	delta := int64(newQuantity - oldQuantity)
	if delta == 0 {
		return
	}

	p.apply("popularity.quantityChanged", productID, 0, delta, 0)
}

// ItemRemoved records quantity units leaving a cart without being bought.
func (p *PopularityUpdater) ItemRemoved(productID uuid.UUID, quantity int) {
	p.apply("popularity.itemRemoved", productID, 0, -int64(quantity), 0)
}

// CheckedOut converts in-cart units into sales.
func (p *PopularityUpdater) CheckedOut(productID uuid.UUID, quantity int) {
	p.apply("popularity.checkedOut", productID, int64(quantity), -int64(quantity), 0)
}

// OrderCancelled reverses the sales credit of a cancelled order line.
func (p *PopularityUpdater) OrderCancelled(productID uuid.UUID, quantity int) {
	p.apply("popularity.orderCancelled", productID, -int64(quantity), 0, 0)
}
