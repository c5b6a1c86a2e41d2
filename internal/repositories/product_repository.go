package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/espressolabs/coffee-shop-platform/internal/models"
	"github.com/espressolabs/coffee-shop-platform/internal/utils"
	"github.com/google/uuid"
)

type ProductRepository interface {
	CreateProduct(ctx context.Context, product *models.Product) error
	GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	UpdateProduct(ctx context.Context, product *models.Product) error
	ListProducts(ctx context.Context, filter *models.ProductFilter) ([]*models.Product, error)
	ListPopular(ctx context.Context, limit int) ([]*models.Product, error)
	ApplyEngagementDelta(ctx context.Context, id uuid.UUID, salesDelta, cartDelta, impressionsDelta int64) error
}

type productRepository struct {
	DB *sql.DB
}

func NewProductRepo(db *sql.DB) ProductRepository {
	return &productRepository{DB: db}
}

const productColumns = `id, name, description, price, discount, discounted_price, image_url, category,
	available, options, impressions, added_in_cart, sales, popularity_score, created_at, updated_at`

func scanProduct(row interface{ Scan(...any) error }) (*models.Product, error) {

	product := &models.Product{}

	var optionsJSON []byte

	err := row.Scan(&product.ID, &product.Name, &product.Description, &product.Price, &product.Discount,
		&product.DiscountedPrice, &product.ImageURL, &product.Category, &product.Available, &optionsJSON,
		&product.Impressions, &product.AddedInCart, &product.Sales, &product.PopularityScore,
		&product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(optionsJSON, &product.Options); err != nil {
		return nil, fmt.Errorf("failed to unmarshal product options: %w", err)
	}

	return product, nil
}

func (r *productRepository) CreateProduct(ctx context.Context, product *models.Product) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	optionsJSON, err := json.Marshal(product.Options)
	if err != nil {
		return fmt.Errorf("failed to marshal product options: %w", err)
	}

	query := `
		INSERT INTO products (id, name, description, price, discount, discounted_price, image_url,
			category, available, options, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING created_at, updated_at
	`

	return r.DB.QueryRowContext(dbCtx, query, product.ID, product.Name, product.Description,
		product.Price, product.Discount, product.DiscountedPrice, product.ImageURL,
		product.Category, product.Available, optionsJSON).
		Scan(&product.CreatedAt, &product.UpdatedAt)
}

func (r *productRepository) GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	product, err := scanProduct(r.DB.QueryRowContext(dbCtx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}

		return nil, fmt.Errorf("querying database: %w", err)
	}

	return product, nil
}

func (r *productRepository) UpdateProduct(ctx context.Context, product *models.Product) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	optionsJSON, err := json.Marshal(product.Options)
	if err != nil {
		return fmt.Errorf("failed to marshal product options: %w", err)
	}

	query := `
		UPDATE products
		SET name = $1, description = $2, price = $3, discount = $4, discounted_price = $5,
			image_url = $6, category = $7, available = $8, options = $9, updated_at = NOW()
		WHERE id = $10
		RETURNING updated_at
	`

	err = r.DB.QueryRowContext(dbCtx, query, product.Name, product.Description, product.Price,
		product.Discount, product.DiscountedPrice, product.ImageURL, product.Category,
		product.Available, optionsJSON, product.ID).
		Scan(&product.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return err
		}

		return fmt.Errorf("failed to update product: %w", err)
	}

	return nil
}

func (r *productRepository) ListProducts(ctx context.Context, filter *models.ProductFilter) ([]*models.Product, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	var (
		conditions []string
		args       []any
	)

	arg := func(value any) string {
		args = append(args, value)

		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Category != "" {
		conditions = append(conditions, "category = "+arg(filter.Category))
	}

	if filter.Query != "" {
		pattern := arg("%" + filter.Query + "%")
		conditions = append(conditions, "(name ILIKE "+pattern+" OR description ILIKE "+pattern+")")
	}

	if filter.MinPrice != nil {
		conditions = append(conditions, "discounted_price >= "+arg(*filter.MinPrice))
	}

	if filter.MaxPrice != nil {
		conditions = append(conditions, "discounted_price <= "+arg(*filter.MaxPrice))
	}

	if filter.OnlyAvailable {
		conditions = append(conditions, "available = TRUE")
	}

	query := `SELECT ` + productColumns + ` FROM products`

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	switch filter.Sort {
	case "price_ascending":
		query += " ORDER BY discounted_price ASC"
	case "price_descending":
		query += " ORDER BY discounted_price DESC"
	case "popularity":
		query += " ORDER BY popularity_score DESC"
	default:
		query += " ORDER BY created_at DESC"
	}

	rows, err := r.DB.QueryContext(dbCtx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying database: %w", err)
	}

	defer rows.Close()

	var products []*models.Product

	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}

		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

func (r *productRepository) ListPopular(ctx context.Context, limit int) ([]*models.Product, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE available = TRUE
		ORDER BY popularity_score DESC
		LIMIT $1
	`

	rows, err := r.DB.QueryContext(dbCtx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying database: %w", err)
	}

	defer rows.Close()

	var products []*models.Product

	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}

		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

// ApplyEngagementDelta adjusts the engagement counters with a single atomic
// statement. Counters are clamped at zero and the popularity score is
// recomputed from the clamped values in the same UPDATE, so concurrent
// events never lose increments to read-modify-write races.
func (r *productRepository) ApplyEngagementDelta(ctx context.Context, id uuid.UUID, salesDelta, cartDelta, impressionsDelta int64) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		UPDATE products
		SET sales = GREATEST(sales + $2, 0),
			added_in_cart = GREATEST(added_in_cart + $3, 0),
			impressions = GREATEST(impressions + $4, 0),
			popularity_score = GREATEST(sales + $2, 0) * 5 + GREATEST(added_in_cart + $3, 0) * 3 + GREATEST(impressions + $4, 0),
			updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.DB.ExecContext(dbCtx, query, id, salesDelta, cartDelta, impressionsDelta)
	if err != nil {
		return fmt.Errorf("failed to apply engagement delta: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}
