package service

import (
	"context"
	"database/sql"
	stderrors "errors"
	"log/slog"

	"github.com/espressolabs/coffee-shop-platform/internal/errors"
	"github.com/espressolabs/coffee-shop-platform/internal/models"
	repository "github.com/espressolabs/coffee-shop-platform/internal/repositories"
	"github.com/espressolabs/coffee-shop-platform/internal/utils"
	"github.com/google/uuid"
)

// orderCodeRetries bounds regeneration attempts when a generated order code
// collides with an existing one. With an 8-character code a single retry is
// already rare.
const orderCodeRetries = 5

type OrderService interface {
	Checkout(ctx context.Context, userID uuid.UUID, req *models.CheckoutRequest) (*models.Order, error)
	GetOrder(ctx context.Context, claims *models.Claims, code string) (*models.Order, error)
	ListMyOrders(ctx context.Context, userID uuid.UUID) ([]*models.Order, error)
	ListOrders(ctx context.Context, page, size int) ([]*models.Order, int, error)
	CancelOrder(ctx context.Context, userID uuid.UUID, code string) (*models.Order, error)
	UpdateOrder(ctx context.Context, code string, req *models.UpdateOrderRequest) (*models.Order, error)
}

type orderService struct {
	orders       repository.OrderRepository
	carts        repository.CartRepository
	reconciler   *Reconciler
	popularity   *PopularityUpdater
	analytics    AnalyticsService
	notification NotificationService
	logger       *slog.Logger
}

func NewOrderService(orders repository.OrderRepository, carts repository.CartRepository, reconciler *Reconciler, popularity *PopularityUpdater, analytics AnalyticsService, notification NotificationService, logger *slog.Logger) OrderService {
	return &orderService{
		orders:       orders,
		carts:        carts,
		reconciler:   reconciler,
		popularity:   popularity,
		analytics:    analytics,
		notification: notification,
		logger:       logger,
	}
}

// Checkout converts the user's cart into an order. The cart is reconciled
// against the live catalog one final time and every line's price and option
// surcharges are frozen into the order; cart prices are never trusted.
//
// The order write is the commit point: if it fails the cart is left
// untouched, and everything after it (cart clearing, engagement counters,
// analytics, the confirmation email) is downstream of a placed order.
func (s *orderService) Checkout(ctx context.Context, userID uuid.UUID, req *models.CheckoutRequest) (*models.Order, error) {

	cart, err := s.carts.GetCartByUserID(ctx, userID)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFoundError("Cart is empty")
		}

		return nil, errors.DatabaseError("Failed to load cart").WithError(err)
	}

	result, err := s.reconciler.Reconcile(ctx, cart)
	if err != nil {
		return nil, err
	}

	if len(result.Items) == 0 {
		return nil, errors.NotFoundError("Cart is empty")
	}

	items := make([]models.OrderItem, 0, len(result.Items))
	for _, line := range result.Items {
		items = append(items, models.OrderItem{
			ProductID:       line.Item.ProductID,
			Name:            line.Product.Name,
			Quantity:        line.Item.Quantity,
			Note:            line.Item.Note,
			SelectedOptions: line.Priced,
			Price:           line.Item.Price,
		})
	}

	// Cash on delivery needs no payment step, so the order is confirmed
	// immediately; other methods stay pending until payment settles.
	status := models.OrderStatusPending
	if req.PaymentMethod == models.PaymentMethodCashOnDelivery {
		status = models.OrderStatusConfirmed
	}

	order := &models.Order{
		ID:            uuid.New(),
		UserID:        userID,
		Items:         items,
		TotalAmount:   result.Total,
		PaymentMethod: req.PaymentMethod,
		PaymentStatus: models.PaymentStatusPending,
		Status:        status,
		Address:       req.Address,
		Note:          utils.CleanText(req.Note),
	}

	if err := s.persistWithFreshCode(ctx, order); err != nil {
		return nil, err
	}

	s.clearCheckedOutCart(ctx, cart)

	for _, line := range order.Items {
		s.popularity.CheckedOut(line.ProductID, line.Quantity)
	}

	s.analytics.RecordEvent(models.EventCheckout, userID, uuid.Nil, order.ID)
	s.notification.SendOrderConfirmation(userID, order)

	return order, nil
}

// persistWithFreshCode writes the order, regenerating the human-readable
// code on the rare unique-index collision.
func (s *orderService) persistWithFreshCode(ctx context.Context, order *models.Order) error {

	for range orderCodeRetries {
		order.Code = utils.NewOrderCode()

		err := s.orders.CreateOrder(ctx, order)
		if err == nil {
			return nil
		}

		if repository.IsDuplicateCode(err) {
			continue
		}

		return errors.DatabaseError("Failed to place order").WithError(err)
	}

	return errors.InternalError("Failed to allocate an order code")
}

// clearCheckedOutCart empties the cart after a successful checkout. The
// order already exists, so a failure here leaves stale items in the cart
// rather than undoing the order; every abandonment is logged.
func (s *orderService) clearCheckedOutCart(ctx context.Context, cart *models.Cart) {

	for range cartWriteRetries {
		cleared := *cart
		cleared.Items = []models.CartItem{}
		cleared.TotalAmount = 0

		err := s.carts.UpdateCart(ctx, &cleared)
		if err == nil {
			return
		}

		if !stderrors.Is(err, repository.ErrVersionConflict) {
			s.logger.Error("Failed to clear cart after checkout",
				slog.String("userId", cart.UserID.String()),
				slog.String("error", err.Error()))

			return
		}

		fresh, err := s.carts.GetCartByUserID(ctx, cart.UserID)
		if err != nil {
			s.logger.Error("Failed to reload cart while clearing after checkout",
				slog.String("userId", cart.UserID.String()),
				slog.String("error", err.Error()))

			return
		}

		cart = fresh
	}

	s.logger.Warn("Gave up clearing cart after checkout",
		slog.String("userId", cart.UserID.String()),
		slog.Int("retries", cartWriteRetries))
}

func (s *orderService) GetOrder(ctx context.Context, claims *models.Claims, code string) (*models.Order, error) {

	var (
		order *models.Order
		err   error
	)

	if claims.IsAdmin() {
		order, err = s.orders.GetOrderByCode(ctx, code)
	} else {
		order, err = s.orders.GetOrderByCodeAndUser(ctx, code, claims.UserID)
	}

	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFoundError("Order not found")
		}

		return nil, errors.DatabaseError("Failed to load order").WithError(err)
	}

	return order, nil
}

func (s *orderService) ListMyOrders(ctx context.Context, userID uuid.UUID) ([]*models.Order, error) {

	orders, err := s.orders.ListOrdersByUser(ctx, userID)
	if err != nil {
		return nil, errors.DatabaseError("Failed to fetch orders").WithError(err)
	}

	return orders, nil
}

func (s *orderService) ListOrders(ctx context.Context, page, size int) ([]*models.Order, int, error) {

	orders, total, err := s.orders.ListOrders(ctx, page, size)
	if err != nil {
		return nil, 0, errors.DatabaseError("Failed to fetch orders").WithError(err)
	}

	return orders, total, nil
}

// CancelOrder cancels the caller's own order. Each line's full quantity is
// debited back from the sales counters, reversing exactly what checkout
// credited.
func (s *orderService) CancelOrder(ctx context.Context, userID uuid.UUID, code string) (*models.Order, error) {

	order, err := s.orders.GetOrderByCodeAndUser(ctx, code, userID)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFoundError("Order not found")
		}

		return nil, errors.DatabaseError("Failed to load order").WithError(err)
	}

	if !order.Status.CanTransitionTo(models.OrderStatusCancelled) {
		return nil, errors.ConflictError("Order can no longer be cancelled")
	}

	cancelled := models.OrderStatusCancelled
	if err := s.orders.UpdateOrderStatus(ctx, code, &cancelled, nil); err != nil {
		return nil, errors.DatabaseError("Failed to cancel order").WithError(err)
	}

	order.Status = models.OrderStatusCancelled
	s.recordCancellation(order)

	return order, nil
}

// recordCancellation debits each line's full quantity back from the sales
// counters, reversing exactly what checkout credited, and records the
// cancellation event. Runs for both owner and admin cancellations.
func (s *orderService) recordCancellation(order *models.Order) {
	for _, line := range order.Items {
		s.popularity.OrderCancelled(line.ProductID, line.Quantity)
	}

	s.analytics.RecordEvent(models.EventOrderCancelled, order.UserID, uuid.Nil, order.ID)
}

// UpdateOrder is the admin status mutation. Status changes must follow the
// order state machine; payment status moves freely.
func (s *orderService) UpdateOrder(ctx context.Context, code string, req *models.UpdateOrderRequest) (*models.Order, error) {

	order, err := s.orders.GetOrderByCode(ctx, code)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFoundError("Order not found")
		}

		return nil, errors.DatabaseError("Failed to load order").WithError(err)
	}

	if req.Status != nil && *req.Status != order.Status {
		if !order.Status.CanTransitionTo(*req.Status) {
			return nil, errors.ConflictError("Invalid order status transition")
		}
	}

	if err := s.orders.UpdateOrderStatus(ctx, code, req.Status, req.PaymentStatus); err != nil {
		return nil, errors.DatabaseError("Failed to update order").WithError(err)
	}

	if req.Status != nil {
		cancelling := *req.Status == models.OrderStatusCancelled && order.Status != models.OrderStatusCancelled
		order.Status = *req.Status

		if cancelling {
			s.recordCancellation(order)
		}
	}

	if req.PaymentStatus != nil {
		order.PaymentStatus = *req.PaymentStatus
	}

	return order, nil
}
