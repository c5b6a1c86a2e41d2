// Package service implements the application's business rules on top of the
// repository layer. Handlers call services; services never touch HTTP.
package service

import (
	"context"
	"database/sql"
	stderrors "errors"

	"github.com/espressolabs/coffee-shop-platform/internal/errors"
	"github.com/espressolabs/coffee-shop-platform/internal/models"
	"github.com/espressolabs/coffee-shop-platform/internal/pricing"
	repository "github.com/espressolabs/coffee-shop-platform/internal/repositories"
	"github.com/google/uuid"
)

// ReconciledItem is one cart line after reconciliation against the live
// catalog: its price breakdown is fresh and its selected options carry the
// surcharge each contributed, ready to be frozen into an order.
type ReconciledItem struct {
	Item    models.CartItem
	Priced  []models.PricedOption
	Product *models.Product
}

// ReconcileResult is the catalog-consistent view of a cart. Dropped lists
// the products whose lines were removed because they became unavailable in
// the catalog; Changed reports whether the stored cart no longer matches
// this view and should be written back.
type ReconcileResult struct {
	Items   []ReconciledItem
	Total   float64
	Dropped []uuid.UUID
	Changed bool
}

// Cart returns the reconciled cart ready to hand to clients.
func (r *ReconcileResult) Cart(cart *models.Cart) *models.Cart {
	items := make([]models.CartItem, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, it.Item)
	}

	out := *cart
	out.Items = items
	out.TotalAmount = r.Total

	return &out
}

// Reconciler re-derives every cart line's price from the catalog as it is
// now. Carts never store authoritative prices; this is the single place
// where catalog state and cart state are joined.
type Reconciler struct {
	products repository.ProductRepository
}

func NewReconciler(products repository.ProductRepository) *Reconciler {
	return &Reconciler{products: products}
}

// Reconcile validates and reprices every line of the cart.
//
// Lines whose product is marked unavailable are dropped and reported, not
// failed: the cart survives menu churn. A line whose product no longer
// exists at all, or whose selections no longer fit the product's option
// schema, aborts the whole reconciliation, because silently repairing a
// customization would change what the customer ordered.
//
// Reconcile is read-only and idempotent; callers decide whether to persist
// the result.
func (r *Reconciler) Reconcile(ctx context.Context, cart *models.Cart) (*ReconcileResult, error) {

	result := &ReconcileResult{
		Items: make([]ReconciledItem, 0, len(cart.Items)),
	}

	// One catalog read per distinct product, not per line.
	loaded := make(map[uuid.UUID]*models.Product, len(cart.Items))
	dropped := make(map[uuid.UUID]bool)

	drop := func(id uuid.UUID) {
		if !dropped[id] {
			dropped[id] = true
			result.Dropped = append(result.Dropped, id)
		}

		result.Changed = true
	}

	for _, item := range cart.Items {

		if dropped[item.ProductID] {
			result.Changed = true

			continue
		}

		product, ok := loaded[item.ProductID]
		if !ok {
			var err error

			product, err = r.products.GetProductByID(ctx, item.ProductID)
			if err != nil {
				if stderrors.Is(err, sql.ErrNoRows) {
					return nil, errors.NotFoundError("Product in cart no longer exists").WithError(err)
				}

				return nil, errors.DatabaseError("Failed to load product for cart item").WithError(err)
			}

			loaded[item.ProductID] = product
		}

		sel := pricing.ValidateSelections(product, item.SelectedOptions)

		if sel.Unavailable {
			drop(item.ProductID)

			continue
		}

		if !sel.Valid {
			return nil, errors.ValidationError(sel.Message)
		}

		price := pricing.Breakdown(product, sel.Surcharge, item.Quantity)

		if item.Price != price {
			result.Changed = true
		}

		item.Price = price
		result.Items = append(result.Items, ReconciledItem{
			Item:    item,
			Priced:  sel.Priced,
			Product: product,
		})
		result.Total += price.Total
	}

	return result, nil
}
