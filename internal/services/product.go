package service

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"

	"github.com/espressolabs/coffee-shop-platform/internal/cache"
	"github.com/espressolabs/coffee-shop-platform/internal/config"
	"github.com/espressolabs/coffee-shop-platform/internal/errors"
	"github.com/espressolabs/coffee-shop-platform/internal/models"
	"github.com/espressolabs/coffee-shop-platform/internal/pricing"
	repository "github.com/espressolabs/coffee-shop-platform/internal/repositories"
	"github.com/espressolabs/coffee-shop-platform/internal/utils"
	"github.com/google/uuid"
)

type ProductService interface {
	CreateProduct(ctx context.Context, req *models.CreateProductRequest) (*models.Product, error)
	GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, req *models.UpdateProductRequest) (*models.Product, error)
	ListProducts(ctx context.Context, filter *models.ProductFilter) ([]*models.Product, error)
	ListPopular(ctx context.Context, limit int) ([]*models.Product, error)
	RecordClick(userID, productID uuid.UUID)
}

type productService struct {
	repo       repository.ProductRepository
	cache      cache.Cache
	cacheCfg   *config.CacheConfig
	popularity *PopularityUpdater
	analytics  AnalyticsService
}

func NewProductService(repo repository.ProductRepository, c cache.Cache, cacheCfg *config.CacheConfig, popularity *PopularityUpdater, analytics AnalyticsService) ProductService {
	return &productService{
		repo:       repo,
		cache:      c,
		cacheCfg:   cacheCfg,
		popularity: popularity,
		analytics:  analytics,
	}
}

// validateOptionSchema rejects schemas the request validator cannot see
// into: duplicate option names and duplicate value labels within an option.
func validateOptionSchema(options []models.ProductOption) error {

	names := make(map[string]bool, len(options))

	for _, opt := range options {
		if names[opt.Name] {
			return errors.ValidationError(fmt.Sprintf("Duplicate option name %q", opt.Name))
		}

		names[opt.Name] = true

		labels := make(map[string]bool, len(opt.Values))

		for _, value := range opt.Values {
			if labels[value.Label] {
				return errors.ValidationError(fmt.Sprintf("Duplicate value %q for option %q", value.Label, opt.Name))
			}

			labels[value.Label] = true
		}
	}

	return nil
}

func (s *productService) CreateProduct(ctx context.Context, req *models.CreateProductRequest) (*models.Product, error) {

	if err := validateOptionSchema(req.Options); err != nil {
		return nil, err
	}

	product := &models.Product{
		ID:              uuid.New(),
		Name:            utils.CleanText(req.Name),
		Description:     utils.CleanText(req.Description),
		Price:           req.Price,
		Discount:        req.Discount,
		DiscountedPrice: pricing.DiscountedPrice(req.Price, req.Discount),
		ImageURL:        req.ImageURL,
		Category:        req.Category,
		Available:       true,
		Options:         req.Options,
	}

	if err := s.repo.CreateProduct(ctx, product); err != nil {
		return nil, errors.DatabaseError("Failed to create product").WithError(err)
	}

	return product, nil
}

func (s *productService) GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {

	key := cache.Key(cache.ProductKeyPrefix, id.String())

	var cached models.Product
	if found, err := s.cache.Get(ctx, key, &cached); err == nil && found {
		return &cached, nil
	}

	product, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFoundError("Product not found")
		}

		return nil, errors.DatabaseError("Failed to load product").WithError(err)
	}

	_ = s.cache.Set(ctx, key, product, s.cacheCfg.DefaultTTL)

	return product, nil
}

func (s *productService) UpdateProduct(ctx context.Context, id uuid.UUID, req *models.UpdateProductRequest) (*models.Product, error) {

	product, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFoundError("Product not found")
		}

		return nil, errors.DatabaseError("Failed to load product").WithError(err)
	}

	if req.Name != nil {
		product.Name = utils.CleanText(*req.Name)
	}

	if req.Description != nil {
		product.Description = utils.CleanText(*req.Description)
	}

	if req.Price != nil {
		product.Price = *req.Price
	}

	if req.Discount != nil {
		product.Discount = *req.Discount
	}

	if req.ImageURL != nil {
		product.ImageURL = *req.ImageURL
	}

	if req.Category != nil {
		product.Category = *req.Category
	}

	if req.Available != nil {
		product.Available = *req.Available
	}

	if req.Options != nil {
		if err := validateOptionSchema(*req.Options); err != nil {
			return nil, err
		}

		product.Options = *req.Options
	}

	// The stored discounted price is derived, never client-supplied.
	product.DiscountedPrice = pricing.DiscountedPrice(product.Price, product.Discount)

	if err := s.repo.UpdateProduct(ctx, product); err != nil {
		return nil, errors.DatabaseError("Failed to update product").WithError(err)
	}

	_ = s.cache.Delete(ctx, cache.Key(cache.ProductKeyPrefix, id.String()))
	_ = s.cache.Delete(ctx, cache.PopularProductsKey)

	return product, nil
}

func (s *productService) ListProducts(ctx context.Context, filter *models.ProductFilter) ([]*models.Product, error) {

	products, err := s.repo.ListProducts(ctx, filter)
	if err != nil {
		return nil, errors.DatabaseError("Failed to fetch products").WithError(err)
	}

	return products, nil
}

// ListPopular serves the ranked product list from cache; the short TTL keeps
// the ranking fresh without a catalog scan per request.
func (s *productService) ListPopular(ctx context.Context, limit int) ([]*models.Product, error) {

	var cached []*models.Product
	if found, err := s.cache.Get(ctx, cache.PopularProductsKey, &cached); err == nil && found && len(cached) >= limit {
		return cached[:limit], nil
	}

	products, err := s.repo.ListPopular(ctx, limit)
	if err != nil {
		return nil, errors.DatabaseError("Failed to fetch popular products").WithError(err)
	}

	_ = s.cache.Set(ctx, cache.PopularProductsKey, products, s.cacheCfg.PopularProductTTL)

	return products, nil
}

// RecordClick registers a catalog impression. Fire and forget; a click must
// never slow down or fail the browsing path.
func (s *productService) RecordClick(userID, productID uuid.UUID) {
	s.popularity.ProductViewed(productID)
	s.analytics.RecordEvent(models.EventProductClick, userID, productID, uuid.Nil)
}
