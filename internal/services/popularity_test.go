package service_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/espressolabs/coffee-shop-platform/internal/cache"
	repository "github.com/espressolabs/coffee-shop-platform/internal/repositories"
	service "github.com/espressolabs/coffee-shop-platform/internal/services"
	"github.com/espressolabs/coffee-shop-platform/internal/worker"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

func popularityFixture(t *testing.T) (*repository.MockProductRepository, *cache.MockCache, *service.PopularityUpdater, *worker.Queue) {
	t.Helper()

	products := repository.NewMockProductRepository()
	c := cache.NewMockCache()

	queue := worker.NewQueue(16, slog.New(slog.NewTextHandler(io.Discard, nil)))
	queue.Start(1)
	t.Cleanup(queue.Stop)

	return products, c, service.NewPopularityUpdater(products, c, queue), queue
}

func TestPopularityDeltas(t *testing.T) {
	productID := uuid.New()

	tests := []struct {
		name                   string
		signal                 func(p *service.PopularityUpdater)
		sales, cart, impDelta int64
	}{
		{"View Adds Impression", func(p *service.PopularityUpdater) { p.ProductViewed(productID) }, 0, 0, 1},
		{"Add Increments Cart", func(p *service.PopularityUpdater) { p.ItemAdded(productID, 3) }, 0, 3, 0},
		{"Quantity Change Applies Difference", func(p *service.PopularityUpdater) { p.QuantityChanged(productID, 2, 5) }, 0, 3, 0},
		{"Remove Decrements Cart", func(p *service.PopularityUpdater) { p.ItemRemoved(productID, 2) }, 0, -2, 0},
		{"Checkout Moves Cart To Sales", func(p *service.PopularityUpdater) { p.CheckedOut(productID, 4) }, 4, -4, 0},
		{"Cancel Reverses Sales Only", func(p *service.PopularityUpdater) { p.OrderCancelled(productID, 4) }, -4, 0, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			products, c, updater, queue := popularityFixture(t)

			products.On("ApplyEngagementDelta", mock.Anything, productID, tc.sales, tc.cart, tc.impDelta).Return(nil).Once()
			c.On("Delete", mock.Anything, cache.PopularProductsKey).Return(nil).Once()
			c.On("Delete", mock.Anything, cache.Key(cache.ProductKeyPrefix, productID.String())).Return(nil).Once()

			tc.signal(updater)
			queue.Stop()

			products.AssertExpectations(t)
			c.AssertExpectations(t)
		})
	}
}

func TestPopularityNoOpQuantityChange(t *testing.T) {
	products, _, updater, queue := popularityFixture(t)

	updater.QuantityChanged(uuid.New(), 2, 2)
	queue.Stop()

	products.AssertNotCalled(t, "ApplyEngagementDelta")
}
