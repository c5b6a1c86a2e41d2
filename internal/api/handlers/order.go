package handlers

import (
	"log/slog"
	"net/http"

	"github.com/espressolabs/coffee-shop-platform/internal/api/middleware"
	"github.com/espressolabs/coffee-shop-platform/internal/errors"
	"github.com/espressolabs/coffee-shop-platform/internal/models"
	service "github.com/espressolabs/coffee-shop-platform/internal/services"
	"github.com/espressolabs/coffee-shop-platform/internal/utils"
	"github.com/espressolabs/coffee-shop-platform/internal/utils/response"
	"github.com/go-playground/validator/v10"
)

type OrderHandler struct {
	orderService service.OrderService
	validator    *validator.Validate
}

func NewOrderHandler(orderService service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService, validator: validator.New()}
}

func (h *OrderHandler) Checkout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		claims := middleware.ClaimsFromContext(r.Context())
		if claims == nil {
			response.Error(w, errors.UnauthorizedError("Authentication required"))

			return
		}

		var req models.CheckoutRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			logger.Warn("Invalid checkout input")

			return
		}

		order, err := h.orderService.Checkout(r.Context(), claims.UserID, &req)
		if err != nil {
			logger.Error("Checkout failed", slog.Any("error", err))
			response.Error(w, err)

			return
		}

		logger.Info("Order placed", slog.String("orderCode", order.Code))
		response.Success(w, http.StatusCreated, order)
	}
}

func (h *OrderHandler) GetOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		claims := middleware.ClaimsFromContext(r.Context())
		if claims == nil {
			response.Error(w, errors.UnauthorizedError("Authentication required"))

			return
		}

		code := r.PathValue("code")
		if code == "" {
			response.Error(w, errors.BadRequestError("Order code is required"))

			return
		}

		order, err := h.orderService.GetOrder(r.Context(), claims, code)
		if err != nil {
			logger.Error("Failed to get order", slog.String("orderCode", code), slog.Any("error", err))
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusOK, order)
	}
}

func (h *OrderHandler) ListMyOrders() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		claims := middleware.ClaimsFromContext(r.Context())
		if claims == nil {
			response.Error(w, errors.UnauthorizedError("Authentication required"))

			return
		}

		orders, err := h.orderService.ListMyOrders(r.Context(), claims.UserID)
		if err != nil {
			logger.Error("Failed to list orders", slog.Any("error", err))
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusOK, orders)
	}
}

func (h *OrderHandler) CancelOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		claims := middleware.ClaimsFromContext(r.Context())
		if claims == nil {
			response.Error(w, errors.UnauthorizedError("Authentication required"))

			return
		}

		code := r.PathValue("code")
		if code == "" {
			response.Error(w, errors.BadRequestError("Order code is required"))

			return
		}

		order, err := h.orderService.CancelOrder(r.Context(), claims.UserID, code)
		if err != nil {
			logger.Error("Failed to cancel order", slog.String("orderCode", code), slog.Any("error", err))
			response.Error(w, err)

			return
		}

		logger.Info("Order cancelled", slog.String("orderCode", code))
		response.Success(w, http.StatusOK, order)
	}
}

// ListOrders is the admin view over all orders, paginated.
func (h *OrderHandler) ListOrders() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		page := utils.QueryInt(r, "page", 1)
		size := utils.QueryInt(r, "size", 20)

		if page < 1 || size < 1 || size > 100 {
			response.Error(w, errors.BadRequestError("Invalid pagination parameters"))

			return
		}

		orders, total, err := h.orderService.ListOrders(r.Context(), page, size)
		if err != nil {
			logger.Error("Failed to list all orders", slog.Any("error", err))
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusOK, map[string]any{
			"orders": orders,
			"total":  total,
			"page":   page,
			"size":   size,
		})
	}
}

// UpdateOrder is the admin status mutation endpoint.
func (h *OrderHandler) UpdateOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		code := r.PathValue("code")
		if code == "" {
			response.Error(w, errors.BadRequestError("Order code is required"))

			return
		}

		var req models.UpdateOrderRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			logger.Warn("Invalid update order input", slog.String("orderCode", code))

			return
		}

		if req.Status == nil && req.PaymentStatus == nil {
			response.Error(w, errors.BadRequestError("Nothing to update"))

			return
		}

		order, err := h.orderService.UpdateOrder(r.Context(), code, &req)
		if err != nil {
			logger.Error("Failed to update order", slog.String("orderCode", code), slog.Any("error", err))
			response.Error(w, err)

			return
		}

		logger.Info("Order updated", slog.String("orderCode", code))
		response.Success(w, http.StatusOK, order)
	}
}
