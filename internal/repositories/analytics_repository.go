package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/espressolabs/coffee-shop-platform/internal/models"
	"github.com/espressolabs/coffee-shop-platform/internal/utils"
)

// AnalyticsRepository appends engagement events. The table is write-only
// from the application's point of view; reporting reads it out of band.
type AnalyticsRepository interface {
	InsertEvent(ctx context.Context, event *models.AnalyticsEvent) error
}

type analyticsRepository struct {
	DB *sql.DB
}

func NewAnalyticsRepo(db *sql.DB) AnalyticsRepository {
	return &analyticsRepository{DB: db}
}

func (r *analyticsRepository) InsertEvent(ctx context.Context, event *models.AnalyticsEvent) error {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO analytics_events (id, type, user_id, product_id, order_id, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING created_at
	`

	err := r.DB.QueryRowContext(dbCtx, query, event.ID, event.Type,
		nullableUUID(event.UserID), nullableUUID(event.ProductID), nullableUUID(event.OrderID)).
		Scan(&event.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert analytics event: %w", err)
	}

	return nil
}
