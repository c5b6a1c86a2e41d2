package service

import (
	"context"
	"time"

	"github.com/espressolabs/coffee-shop-platform/internal/errors"
	"github.com/espressolabs/coffee-shop-platform/internal/models"
	repository "github.com/espressolabs/coffee-shop-platform/internal/repositories"
	"github.com/espressolabs/coffee-shop-platform/internal/worker"
	"github.com/google/uuid"
)

type AnalyticsService interface {
	RecordEvent(eventType models.AnalyticsEventType, userID, productID, orderID uuid.UUID)
	OrdersOverview(ctx context.Context) (*models.OrdersOverview, error)
}

type analyticsService struct {
	events repository.AnalyticsRepository
	orders repository.OrderRepository
	queue  *worker.Queue
	now    func() time.Time
}

func NewAnalyticsService(events repository.AnalyticsRepository, orders repository.OrderRepository, queue *worker.Queue) AnalyticsService {
	return &analyticsService{
		events: events,
		orders: orders,
		queue:  queue,
		now:    time.Now,
	}
}

// RecordEvent appends an engagement event off the request path. A zero UUID
// means the dimension does not apply to this event.
func (s *analyticsService) RecordEvent(eventType models.AnalyticsEventType, userID, productID, orderID uuid.UUID) {
	event := &models.AnalyticsEvent{
		ID:        uuid.New(),
		Type:      eventType,
		UserID:    userID,
		ProductID: productID,
		OrderID:   orderID,
		CreatedAt: s.now().UTC(),
	}

	s.queue.Enqueue("analytics.recordEvent", func(ctx context.Context) error {
		return s.events.InsertEvent(ctx, event)
	})
}

// OrdersOverview aggregates order stats over the calendar windows the admin
// dashboard shows: since midnight, since Monday, since the first of the
// month, since January 1st.
func (s *analyticsService) OrdersOverview(ctx context.Context) (*models.OrdersOverview, error) {

	now := s.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	weekday := int(now.Weekday())
	if weekday == 0 { // Sunday closes the week
		weekday = 7
	}

	weekStart := dayStart.AddDate(0, 0, -(weekday - 1))
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	yearStart := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())

	overview := &models.OrdersOverview{}

	windows := []struct {
		since time.Time
		dest  *models.OrderStats
	}{
		{dayStart, &overview.Today},
		{weekStart, &overview.ThisWeek},
		{monthStart, &overview.ThisMonth},
		{yearStart, &overview.ThisYear},
	}

	for _, w := range windows {
		stats, err := s.orders.GetOrdersOverview(ctx, w.since)
		if err != nil {
			return nil, errors.DatabaseError("Failed to aggregate orders").WithError(err)
		}

		*w.dest = *stats
	}

	return overview, nil
}
