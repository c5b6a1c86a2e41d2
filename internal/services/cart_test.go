package service_test

import (
	"database/sql"
	"io"
	"log/slog"
	"testing"

	"github.com/espressolabs/coffee-shop-platform/internal/cache"
	appErrors "github.com/espressolabs/coffee-shop-platform/internal/errors"
	"github.com/espressolabs/coffee-shop-platform/internal/models"
	repository "github.com/espressolabs/coffee-shop-platform/internal/repositories"
	service "github.com/espressolabs/coffee-shop-platform/internal/services"
	"github.com/espressolabs/coffee-shop-platform/internal/worker"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type cartFixture struct {
	carts    *repository.MockCartRepository
	products *repository.MockProductRepository
	queue    *worker.Queue
	svc      service.CartService
}

// newCartFixture wires a real cart service over mocked repositories. The
// background queue is real; tests drain it with queue.Stop before asserting
// on engagement side effects.
func newCartFixture(t *testing.T) *cartFixture {
	t.Helper()

	carts := repository.NewMockCartRepository()
	products := repository.NewMockProductRepository()

	// Engagement updates run off the request path and are incidental to
	// most cart tests.
	products.On("ApplyEngagementDelta", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	events := repository.NewMockAnalyticsRepository()
	events.On("InsertEvent", mock.Anything, mock.Anything).Return(nil).Maybe()

	queue := worker.NewQueue(32, slog.New(slog.NewTextHandler(io.Discard, nil)))
	queue.Start(1)
	t.Cleanup(queue.Stop)

	popularity := service.NewPopularityUpdater(products, cache.NoopCache{}, queue)
	analytics := service.NewAnalyticsService(events, repository.NewMockOrderRepository(), queue)

	return &cartFixture{
		carts:    carts,
		products: products,
		queue:    queue,
		svc:      service.NewCartService(carts, products, service.NewReconciler(products), popularity, analytics),
	}
}

func storedCart(userID uuid.UUID, version int64, items ...models.CartItem) *models.Cart {
	return &models.Cart{
		ID:      uuid.New(),
		UserID:  userID,
		Items:   items,
		Version: version,
	}
}

func TestGetCart(t *testing.T) {
	ctx := t.Context()
	userID := uuid.New()

	t.Run("Lazily Creates An Empty Cart", func(t *testing.T) {
		f := newCartFixture(t)

		f.carts.On("GetCartByUserID", ctx, userID).Return(nil, sql.ErrNoRows).Once()
		f.carts.On("CreateCart", ctx, mock.AnythingOfType("*models.Cart")).Return(nil).Once()

		resp, err := f.svc.GetCart(ctx, userID)

		require.NoError(t, err)
		assert.Equal(t, userID, resp.Cart.UserID)
		assert.Empty(t, resp.Cart.Items)
		assert.Empty(t, resp.DroppedProducts)
		f.carts.AssertExpectations(t)
		f.carts.AssertNotCalled(t, "UpdateCart", mock.Anything, mock.Anything)
	})

	t.Run("Persists Dropped Lines And Reports Them", func(t *testing.T) {
		f := newCartFixture(t)

		offMenu := latteFixture()
		offMenu.Available = false

		cart := storedCart(userID, 2, cartLine(offMenu, 1, models.SelectedOption{Name: "Size", Value: "Small"}))

		f.carts.On("GetCartByUserID", ctx, userID).Return(cart, nil).Once()
		f.products.On("GetProductByID", ctx, offMenu.ID).Return(offMenu, nil).Once()
		f.carts.On("UpdateCart", ctx, mock.AnythingOfType("*models.Cart")).Return(nil).Once()

		resp, err := f.svc.GetCart(ctx, userID)

		require.NoError(t, err)
		assert.Empty(t, resp.Cart.Items)
		assert.Zero(t, resp.Cart.TotalAmount)
		assert.Equal(t, []uuid.UUID{offMenu.ID}, resp.DroppedProducts)
		f.carts.AssertExpectations(t)
	})

	t.Run("Consistent Cart Reads Write Nothing", func(t *testing.T) {
		f := newCartFixture(t)

		product := latteFixture()
		item := cartLine(product, 1, models.SelectedOption{Name: "Size", Value: "Small"})
		item.Price = models.PriceBreakdown{BasePrice: 200, DiscountedPrice: 180, Total: 180, Discount: 10}
		cart := storedCart(userID, 5, item)
		cart.TotalAmount = 180

		f.carts.On("GetCartByUserID", ctx, userID).Return(cart, nil).Once()
		f.products.On("GetProductByID", ctx, product.ID).Return(product, nil).Once()

		resp, err := f.svc.GetCart(ctx, userID)

		require.NoError(t, err)
		assert.Len(t, resp.Cart.Items, 1)
		f.carts.AssertNotCalled(t, "UpdateCart", mock.Anything, mock.Anything)
	})
}

func TestAddItem(t *testing.T) {
	ctx := t.Context()
	userID := uuid.New()

	t.Run("Appends A New Line", func(t *testing.T) {
		f := newCartFixture(t)
		product := latteFixture()

		f.products.On("GetProductByID", ctx, product.ID).Return(product, nil)
		f.carts.On("GetCartByUserID", ctx, userID).Return(storedCart(userID, 1), nil).Once()

		var saved *models.Cart

		f.carts.On("UpdateCart", ctx, mock.AnythingOfType("*models.Cart")).
			Run(func(args mock.Arguments) { saved = args.Get(1).(*models.Cart) }).
			Return(nil).Once()

		resp, err := f.svc.AddItem(ctx, userID, &models.AddItemRequest{
			ProductID:       product.ID,
			Quantity:        2,
			SelectedOptions: []models.SelectedOption{{Name: "Size", Value: "Large"}},
		})

		require.NoError(t, err)
		require.Len(t, resp.Cart.Items, 1)

		line := resp.Cart.Items[0]
		assert.Equal(t, 2, line.Quantity)
		assert.InDelta(t, 440, line.Price.Total, 0.001)
		assert.InDelta(t, 440, resp.Cart.TotalAmount, 0.001)
		require.NotNil(t, saved)
		assert.InDelta(t, 440, saved.TotalAmount, 0.001)

		// Drain the queue so the engagement delta has landed.
		f.queue.Stop()
		f.products.AssertCalled(t, "ApplyEngagementDelta", mock.Anything, product.ID, int64(0), int64(2), int64(0))
		f.carts.AssertExpectations(t)
	})

	t.Run("Merges Into A Line With Matching Selections", func(t *testing.T) {
		f := newCartFixture(t)
		product := latteFixture()

		existing := cartLine(product, 1,
			models.SelectedOption{Name: "Size", Value: "Large"},
			models.SelectedOption{Name: "Extra Shot", Value: "Single"})

		f.products.On("GetProductByID", ctx, product.ID).Return(product, nil)
		f.carts.On("GetCartByUserID", ctx, userID).Return(storedCart(userID, 1, existing), nil).Once()
		f.carts.On("UpdateCart", ctx, mock.AnythingOfType("*models.Cart")).Return(nil).Once()

		// Same selections in a different order must merge, not append.
		resp, err := f.svc.AddItem(ctx, userID, &models.AddItemRequest{
			ProductID: product.ID,
			Quantity:  2,
			SelectedOptions: []models.SelectedOption{
				{Name: "Extra Shot", Value: "Single"},
				{Name: "Size", Value: "Large"},
			},
		})

		require.NoError(t, err)
		require.Len(t, resp.Cart.Items, 1)
		assert.Equal(t, existing.ID, resp.Cart.Items[0].ID)
		assert.Equal(t, 3, resp.Cart.Items[0].Quantity)
	})

	t.Run("Different Selections Get Their Own Line", func(t *testing.T) {
		f := newCartFixture(t)
		product := latteFixture()

		existing := cartLine(product, 1, models.SelectedOption{Name: "Size", Value: "Small"})

		f.products.On("GetProductByID", ctx, product.ID).Return(product, nil)
		f.carts.On("GetCartByUserID", ctx, userID).Return(storedCart(userID, 1, existing), nil).Once()
		f.carts.On("UpdateCart", ctx, mock.AnythingOfType("*models.Cart")).Return(nil).Once()

		resp, err := f.svc.AddItem(ctx, userID, &models.AddItemRequest{
			ProductID:       product.ID,
			Quantity:        1,
			SelectedOptions: []models.SelectedOption{{Name: "Size", Value: "Large"}},
		})

		require.NoError(t, err)
		assert.Len(t, resp.Cart.Items, 2)
	})

	t.Run("Strips Markup From Line Notes", func(t *testing.T) {
		f := newCartFixture(t)
		product := latteFixture()

		f.products.On("GetProductByID", ctx, product.ID).Return(product, nil)
		f.carts.On("GetCartByUserID", ctx, userID).Return(storedCart(userID, 1), nil).Once()
		f.carts.On("UpdateCart", ctx, mock.AnythingOfType("*models.Cart")).Return(nil).Once()

		resp, err := f.svc.AddItem(ctx, userID, &models.AddItemRequest{
			ProductID:       product.ID,
			Quantity:        1,
			Note:            `<b>extra</b> hot <script>alert(1)</script>`,
			SelectedOptions: []models.SelectedOption{{Name: "Size", Value: "Small"}},
		})

		require.NoError(t, err)
		require.Len(t, resp.Cart.Items, 1)
		assert.Equal(t, "extra hot", resp.Cart.Items[0].Note)
	})

	t.Run("Rejects Invalid Selections Up Front", func(t *testing.T) {
		f := newCartFixture(t)
		product := latteFixture()

		f.products.On("GetProductByID", ctx, product.ID).Return(product, nil).Once()

		_, err := f.svc.AddItem(ctx, userID, &models.AddItemRequest{
			ProductID: product.ID,
			Quantity:  1,
			// Missing the required Size option.
		})

		require.Error(t, err)

		appErr, ok := appErrors.IsAppError(err)
		require.True(t, ok)
		assert.Equal(t, appErrors.ErrCodeValidation, appErr.Code)
		assert.Contains(t, appErr.Message, "Size is required")
		f.carts.AssertNotCalled(t, "UpdateCart", mock.Anything, mock.Anything)
	})

	t.Run("Rejects Unavailable Products", func(t *testing.T) {
		f := newCartFixture(t)
		product := latteFixture()
		product.Available = false

		f.products.On("GetProductByID", ctx, product.ID).Return(product, nil).Once()

		_, err := f.svc.AddItem(ctx, userID, &models.AddItemRequest{
			ProductID:       product.ID,
			Quantity:        1,
			SelectedOptions: []models.SelectedOption{{Name: "Size", Value: "Small"}},
		})

		require.Error(t, err)

		appErr, ok := appErrors.IsAppError(err)
		require.True(t, ok)
		assert.Equal(t, appErrors.ErrCodeBadRequest, appErr.Code)
	})

	t.Run("Rejects Unknown Products", func(t *testing.T) {
		f := newCartFixture(t)
		missing := uuid.New()

		f.products.On("GetProductByID", ctx, missing).Return(nil, sql.ErrNoRows).Once()

		_, err := f.svc.AddItem(ctx, userID, &models.AddItemRequest{ProductID: missing, Quantity: 1})

		require.Error(t, err)

		appErr, ok := appErrors.IsAppError(err)
		require.True(t, ok)
		assert.Equal(t, appErrors.ErrCodeNotFound, appErr.Code)
	})

	t.Run("Retries Once On A Version Conflict", func(t *testing.T) {
		f := newCartFixture(t)
		product := latteFixture()

		f.products.On("GetProductByID", ctx, product.ID).Return(product, nil)
		// Each attempt re-reads the cart.
		f.carts.On("GetCartByUserID", ctx, userID).Return(storedCart(userID, 1), nil).Twice()
		f.carts.On("UpdateCart", ctx, mock.AnythingOfType("*models.Cart")).Return(repository.ErrVersionConflict).Once()
		f.carts.On("UpdateCart", ctx, mock.AnythingOfType("*models.Cart")).Return(nil).Once()

		resp, err := f.svc.AddItem(ctx, userID, &models.AddItemRequest{
			ProductID:       product.ID,
			Quantity:        1,
			SelectedOptions: []models.SelectedOption{{Name: "Size", Value: "Small"}},
		})

		require.NoError(t, err)
		assert.Len(t, resp.Cart.Items, 1)
		f.carts.AssertExpectations(t)
	})

	t.Run("Gives Up After Exhausting Retries", func(t *testing.T) {
		f := newCartFixture(t)
		product := latteFixture()

		f.products.On("GetProductByID", ctx, product.ID).Return(product, nil)
		f.carts.On("GetCartByUserID", ctx, userID).Return(storedCart(userID, 1), nil).Times(3)
		f.carts.On("UpdateCart", ctx, mock.AnythingOfType("*models.Cart")).Return(repository.ErrVersionConflict).Times(3)

		_, err := f.svc.AddItem(ctx, userID, &models.AddItemRequest{
			ProductID:       product.ID,
			Quantity:        1,
			SelectedOptions: []models.SelectedOption{{Name: "Size", Value: "Small"}},
		})

		require.Error(t, err)

		appErr, ok := appErrors.IsAppError(err)
		require.True(t, ok)
		assert.Equal(t, appErrors.ErrCodeConflict, appErr.Code)
		f.carts.AssertExpectations(t)
	})
}

func TestUpdateItem(t *testing.T) {
	ctx := t.Context()
	userID := uuid.New()

	t.Run("Changes Quantity And Adjusts Counters", func(t *testing.T) {
		f := newCartFixture(t)
		product := latteFixture()

		item := cartLine(product, 1, models.SelectedOption{Name: "Size", Value: "Small"})

		f.products.On("GetProductByID", ctx, product.ID).Return(product, nil)
		f.carts.On("GetCartByUserID", ctx, userID).Return(storedCart(userID, 4, item), nil).Once()
		f.carts.On("UpdateCart", ctx, mock.AnythingOfType("*models.Cart")).Return(nil).Once()

		quantity := 3

		resp, err := f.svc.UpdateItem(ctx, userID, item.ID, &models.UpdateItemRequest{Quantity: &quantity})

		require.NoError(t, err)
		require.Len(t, resp.Cart.Items, 1)
		assert.Equal(t, 3, resp.Cart.Items[0].Quantity)
		assert.InDelta(t, 540, resp.Cart.TotalAmount, 0.001)

		f.queue.Stop()
		f.products.AssertCalled(t, "ApplyEngagementDelta", mock.Anything, product.ID, int64(0), int64(2), int64(0))
	})

	t.Run("Rejects Selections That No Longer Fit", func(t *testing.T) {
		f := newCartFixture(t)
		product := latteFixture()

		item := cartLine(product, 1, models.SelectedOption{Name: "Size", Value: "Small"})

		f.products.On("GetProductByID", ctx, product.ID).Return(product, nil)
		f.carts.On("GetCartByUserID", ctx, userID).Return(storedCart(userID, 4, item), nil).Once()

		selections := []models.SelectedOption{{Name: "Syrup", Value: "Vanilla"}}

		_, err := f.svc.UpdateItem(ctx, userID, item.ID, &models.UpdateItemRequest{SelectedOptions: &selections})

		require.Error(t, err)

		appErr, ok := appErrors.IsAppError(err)
		require.True(t, ok)
		assert.Equal(t, appErrors.ErrCodeValidation, appErr.Code)
		f.carts.AssertNotCalled(t, "UpdateCart", mock.Anything, mock.Anything)
	})

	t.Run("Unknown Item Is Not Found", func(t *testing.T) {
		f := newCartFixture(t)

		f.carts.On("GetCartByUserID", ctx, userID).Return(storedCart(userID, 4), nil).Once()

		quantity := 2

		_, err := f.svc.UpdateItem(ctx, userID, uuid.New(), &models.UpdateItemRequest{Quantity: &quantity})

		require.Error(t, err)

		appErr, ok := appErrors.IsAppError(err)
		require.True(t, ok)
		assert.Equal(t, appErrors.ErrCodeNotFound, appErr.Code)
	})
}

func TestRemoveItem(t *testing.T) {
	ctx := t.Context()
	userID := uuid.New()

	t.Run("Removes The Line", func(t *testing.T) {
		f := newCartFixture(t)
		product := latteFixture()

		item := cartLine(product, 2, models.SelectedOption{Name: "Size", Value: "Small"})

		f.carts.On("GetCartByUserID", ctx, userID).Return(storedCart(userID, 1, item), nil).Once()
		f.carts.On("UpdateCart", ctx, mock.AnythingOfType("*models.Cart")).Return(nil).Once()

		resp, err := f.svc.RemoveItem(ctx, userID, item.ID)

		require.NoError(t, err)
		assert.Empty(t, resp.Cart.Items)

		f.queue.Stop()
		f.products.AssertCalled(t, "ApplyEngagementDelta", mock.Anything, product.ID, int64(0), int64(-2), int64(0))
	})

	t.Run("Unknown Item Is Not Found", func(t *testing.T) {
		f := newCartFixture(t)

		f.carts.On("GetCartByUserID", ctx, userID).Return(storedCart(userID, 1), nil).Once()

		_, err := f.svc.RemoveItem(ctx, userID, uuid.New())

		require.Error(t, err)

		appErr, ok := appErrors.IsAppError(err)
		require.True(t, ok)
		assert.Equal(t, appErrors.ErrCodeNotFound, appErr.Code)
		f.carts.AssertNotCalled(t, "UpdateCart", mock.Anything, mock.Anything)
	})
}

func TestClearCart(t *testing.T) {
	ctx := t.Context()
	userID := uuid.New()

	f := newCartFixture(t)
	first := latteFixture()
	second := latteFixture()

	cart := storedCart(userID, 7,
		cartLine(first, 2, models.SelectedOption{Name: "Size", Value: "Small"}),
		cartLine(second, 1, models.SelectedOption{Name: "Size", Value: "Large"}),
	)

	f.carts.On("GetCartByUserID", ctx, userID).Return(cart, nil).Once()

	var saved *models.Cart

	f.carts.On("UpdateCart", ctx, mock.AnythingOfType("*models.Cart")).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*models.Cart) }).
		Return(nil).Once()

	err := f.svc.ClearCart(ctx, userID)

	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Empty(t, saved.Items)
	assert.Zero(t, saved.TotalAmount)

	f.queue.Stop()
	f.products.AssertCalled(t, "ApplyEngagementDelta", mock.Anything, first.ID, int64(0), int64(-2), int64(0))
	f.products.AssertCalled(t, "ApplyEngagementDelta", mock.Anything, second.ID, int64(0), int64(-1), int64(0))
}
