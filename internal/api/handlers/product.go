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
	"github.com/google/uuid"
)

const defaultPopularLimit = 10

type ProductHandler struct {
	productService service.ProductService
	validator      *validator.Validate
}

func NewProductHandler(productService service.ProductService) *ProductHandler {
	return &ProductHandler{productService: productService, validator: validator.New()}
}

func (h *ProductHandler) CreateProduct() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		var req models.CreateProductRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			logger.Warn("Invalid create product input")

			return
		}

		product, err := h.productService.CreateProduct(r.Context(), &req)
		if err != nil {
			logger.Error("Failed to create product", slog.Any("error", err))
			response.Error(w, err)

			return
		}

		logger.Info("Product created", slog.String("productId", product.ID.String()))
		response.Success(w, http.StatusCreated, product)
	}
}

func (h *ProductHandler) GetProduct() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		id, err := utils.ParseID(r, "id")
		if err != nil {
			response.Error(w, err)

			return
		}

		product, err := h.productService.GetProductByID(r.Context(), id)
		if err != nil {
			logger.Error("Failed to get product", slog.String("productId", id.String()), slog.Any("error", err))
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusOK, product)
	}
}

func (h *ProductHandler) UpdateProduct() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		id, err := utils.ParseID(r, "id")
		if err != nil {
			response.Error(w, err)

			return
		}

		var req models.UpdateProductRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			logger.Warn("Invalid update product input", slog.String("productId", id.String()))

			return
		}

		product, err := h.productService.UpdateProduct(r.Context(), id, &req)
		if err != nil {
			logger.Error("Failed to update product", slog.String("productId", id.String()), slog.Any("error", err))
			response.Error(w, err)

			return
		}

		logger.Info("Product updated", slog.String("productId", id.String()))
		response.Success(w, http.StatusOK, product)
	}
}

// ListProducts serves the catalog with optional category, text, price range
// and sort filters from the query string.
func (h *ProductHandler) ListProducts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		query := r.URL.Query()

		filter := &models.ProductFilter{
			Category:      query.Get("category"),
			Query:         query.Get("q"),
			MinPrice:      utils.QueryFloat(r, "min_price"),
			MaxPrice:      utils.QueryFloat(r, "max_price"),
			OnlyAvailable: query.Get("available") == "true",
			Sort:          query.Get("sort"),
		}

		products, err := h.productService.ListProducts(r.Context(), filter)
		if err != nil {
			logger.Error("Failed to list products", slog.Any("error", err))
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusOK, products)
	}
}

func (h *ProductHandler) ListPopular() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		limit := utils.QueryInt(r, "limit", defaultPopularLimit)
		if limit < 1 || limit > 50 {
			response.Error(w, errors.BadRequestError("limit must be between 1 and 50"))

			return
		}

		products, err := h.productService.ListPopular(r.Context(), limit)
		if err != nil {
			logger.Error("Failed to list popular products", slog.Any("error", err))
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusOK, products)
	}
}

// RecordClick registers a product impression for the popularity ranking.
// Always 202: the counter update happens in the background.
func (h *ProductHandler) RecordClick() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		id, err := utils.ParseID(r, "id")
		if err != nil {
			response.Error(w, err)

			return
		}

		userID := uuid.Nil
		if claims := middleware.ClaimsFromContext(r.Context()); claims != nil {
			userID = claims.UserID
		}

		h.productService.RecordClick(userID, id)

		response.Success(w, http.StatusAccepted, nil)
	}
}
