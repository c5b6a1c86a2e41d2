package handlers

import (
	"log/slog"
	"net/http"

	"github.com/espressolabs/coffee-shop-platform/internal/api/middleware"
	service "github.com/espressolabs/coffee-shop-platform/internal/services"
	"github.com/espressolabs/coffee-shop-platform/internal/utils/response"
)

type AnalyticsHandler struct {
	analyticsService service.AnalyticsService
}

func NewAnalyticsHandler(analyticsService service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService}
}

// OrdersOverview returns order aggregates for the dashboard's four
// reporting windows.
func (h *AnalyticsHandler) OrdersOverview() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		overview, err := h.analyticsService.OrdersOverview(r.Context())
		if err != nil {
			logger.Error("Failed to build orders overview", slog.Any("error", err))
			response.Error(w, err)

			return
		}

		response.Success(w, http.StatusOK, overview)
	}
}
