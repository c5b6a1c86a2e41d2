package service

import (
	"context"
	"database/sql"
	stderrors "errors"

	"github.com/espressolabs/coffee-shop-platform/internal/errors"
	"github.com/espressolabs/coffee-shop-platform/internal/models"
	"github.com/espressolabs/coffee-shop-platform/internal/pricing"
	repository "github.com/espressolabs/coffee-shop-platform/internal/repositories"
	"github.com/espressolabs/coffee-shop-platform/internal/utils"
	"github.com/google/uuid"
)

// cartWriteRetries bounds the optimistic-concurrency retry loop. Conflicts
// mean another request for the same user committed first; three attempts is
// plenty for a single customer's cart.
const cartWriteRetries = 3

type CartService interface {
	GetCart(ctx context.Context, userID uuid.UUID) (*models.CartResponse, error)
	AddItem(ctx context.Context, userID uuid.UUID, req *models.AddItemRequest) (*models.CartResponse, error)
	UpdateItem(ctx context.Context, userID, itemID uuid.UUID, req *models.UpdateItemRequest) (*models.CartResponse, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*models.CartResponse, error)
	ClearCart(ctx context.Context, userID uuid.UUID) error
}

type cartService struct {
	carts      repository.CartRepository
	products   repository.ProductRepository
	reconciler *Reconciler
	popularity *PopularityUpdater
	analytics  AnalyticsService
}

func NewCartService(carts repository.CartRepository, products repository.ProductRepository, reconciler *Reconciler, popularity *PopularityUpdater, analytics AnalyticsService) CartService {
	return &cartService{
		carts:      carts,
		products:   products,
		reconciler: reconciler,
		popularity: popularity,
		analytics:  analytics,
	}
}

// loadOrCreateCart fetches the user's cart, lazily creating an empty one on
// first touch.
func (s *cartService) loadOrCreateCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {

	cart, err := s.carts.GetCartByUserID(ctx, userID)
	if err == nil {
		return cart, nil
	}

	if !stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.DatabaseError("Failed to load cart").WithError(err)
	}

	cart = &models.Cart{
		ID:     uuid.New(),
		UserID: userID,
		Items:  []models.CartItem{},
	}

	if err := s.carts.CreateCart(ctx, cart); err != nil {
		// Lost a create race with a parallel request; the cart exists now.
		if existing, getErr := s.carts.GetCartByUserID(ctx, userID); getErr == nil {
			return existing, nil
		}

		return nil, errors.DatabaseError("Failed to create cart").WithError(err)
	}

	return cart, nil
}

// mutateCart runs one cart mutation under the optimistic-concurrency loop:
// load, apply, reconcile against the catalog, write back guarded by the
// version check. On a version conflict the whole sequence restarts from a
// fresh read. apply returns a post-commit hook for signals that must only
// fire once the write sticks.
func (s *cartService) mutateCart(ctx context.Context, userID uuid.UUID, apply func(cart *models.Cart) (func(), error)) (*models.CartResponse, error) {

	for range cartWriteRetries {

		cart, err := s.loadOrCreateCart(ctx, userID)
		if err != nil {
			return nil, err
		}

		var committed func()

		if apply != nil {
			committed, err = apply(cart)
			if err != nil {
				return nil, err
			}
		}

		result, err := s.reconciler.Reconcile(ctx, cart)
		if err != nil {
			return nil, err
		}

		reconciled := result.Cart(cart)

		// A pure read of an already-consistent cart writes nothing.
		if apply == nil && !result.Changed {
			return &models.CartResponse{Cart: reconciled, DroppedProducts: result.Dropped}, nil
		}

		if err := s.carts.UpdateCart(ctx, reconciled); err != nil {
			if stderrors.Is(err, repository.ErrVersionConflict) {
				continue
			}

			return nil, errors.DatabaseError("Failed to save cart").WithError(err)
		}

		if committed != nil {
			committed()
		}

		return &models.CartResponse{Cart: reconciled, DroppedProducts: result.Dropped}, nil
	}

	return nil, errors.ConflictError("Cart was modified concurrently, please retry")
}

// GetCart returns the reconciled cart, persisting any repricing or dropped
// lines the reconciliation produced so reads converge the stored state.
func (s *cartService) GetCart(ctx context.Context, userID uuid.UUID) (*models.CartResponse, error) {
	return s.mutateCart(ctx, userID, nil)
}

func (s *cartService) AddItem(ctx context.Context, userID uuid.UUID, req *models.AddItemRequest) (*models.CartResponse, error) {

	product, err := s.products.GetProductByID(ctx, req.ProductID)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFoundError("Product not found")
		}

		return nil, errors.DatabaseError("Failed to load product").WithError(err)
	}

	sel := pricing.ValidateSelections(product, req.SelectedOptions)
	if sel.Unavailable {
		return nil, errors.BadRequestError("Product is currently unavailable")
	}

	if !sel.Valid {
		return nil, errors.ValidationError(sel.Message)
	}

	note := utils.CleanText(req.Note)

	return s.mutateCart(ctx, userID, func(cart *models.Cart) (func(), error) {

		merged := false

		for i := range cart.Items {
			line := &cart.Items[i]

			if line.ProductID == req.ProductID && pricing.SameSelections(line.SelectedOptions, req.SelectedOptions) {
				line.Quantity += req.Quantity

				if note != "" {
					line.Note = note
				}

				merged = true

				break
			}
		}

		if !merged {
			cart.Items = append(cart.Items, models.CartItem{
				ID:              uuid.New(),
				ProductID:       req.ProductID,
				Quantity:        req.Quantity,
				Note:            note,
				SelectedOptions: req.SelectedOptions,
			})
		}

		return func() {
			s.popularity.ItemAdded(req.ProductID, req.Quantity)
			s.analytics.RecordEvent(models.EventCartAdd, userID, req.ProductID, uuid.Nil)
		}, nil
	})
}

func (s *cartService) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, req *models.UpdateItemRequest) (*models.CartResponse, error) {

	return s.mutateCart(ctx, userID, func(cart *models.Cart) (func(), error) {

		line := findItem(cart, itemID)
		if line == nil {
			return nil, errors.NotFoundError("Cart item not found")
		}

		oldQuantity := line.Quantity

		if req.Quantity != nil {
			line.Quantity = *req.Quantity
		}

		if req.Note != nil {
			line.Note = utils.CleanText(*req.Note)
		}

		if req.SelectedOptions != nil {
			line.SelectedOptions = *req.SelectedOptions
		}

		productID := line.ProductID
		newQuantity := line.Quantity

		return func() {
			s.popularity.QuantityChanged(productID, oldQuantity, newQuantity)
		}, nil
	})
}

func (s *cartService) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*models.CartResponse, error) {

	return s.mutateCart(ctx, userID, func(cart *models.Cart) (func(), error) {

		for i := range cart.Items {
			if cart.Items[i].ID == itemID {
				removed := cart.Items[i]
				cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)

				return func() {
					s.popularity.ItemRemoved(removed.ProductID, removed.Quantity)
				}, nil
			}
		}

		return nil, errors.NotFoundError("Cart item not found")
	})
}

func (s *cartService) ClearCart(ctx context.Context, userID uuid.UUID) error {

	_, err := s.mutateCart(ctx, userID, func(cart *models.Cart) (func(), error) {

		removed := cart.Items
		cart.Items = []models.CartItem{}

		return func() {
			for _, line := range removed {
				s.popularity.ItemRemoved(line.ProductID, line.Quantity)
			}
		}, nil
	})

	return err
}

func findItem(cart *models.Cart, itemID uuid.UUID) *models.CartItem {
	for i := range cart.Items {
		if cart.Items[i].ID == itemID {
			return &cart.Items[i]
		}
	}

	return nil
}
