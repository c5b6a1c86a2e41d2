package repository

import (
	"database/sql"
	"fmt"

	"github.com/espressolabs/coffee-shop-platform/internal/config"

	_ "github.com/lib/pq"
)

// Repository bundles the database handle and the per-collection
// repositories built on top of it.
type Repository struct {
	DB        *sql.DB
	User      UserRepository
	Product   ProductRepository
	Cart      CartRepository
	Order     OrderRepository
	Analytics AnalyticsRepository
}

func New(cfg *config.Config) (*Repository, error) {

	db, err := sql.Open("postgres", cfg.Database.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.Database.ConnMaxIdleTime)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &Repository{
		DB:        db,
		User:      NewUserRepo(db),
		Product:   NewProductRepo(db),
		Cart:      NewCartRepo(db),
		Order:     NewOrderRepo(db),
		Analytics: NewAnalyticsRepo(db),
	}, nil
}

func (r *Repository) Close() error {
	return r.DB.Close()
}
