package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/espressolabs/coffee-shop-platform/internal/api/handlers"
	"github.com/espressolabs/coffee-shop-platform/internal/api/middleware"
	"github.com/espressolabs/coffee-shop-platform/internal/cache"
	"github.com/espressolabs/coffee-shop-platform/internal/config"
	"github.com/espressolabs/coffee-shop-platform/internal/health"
	"github.com/espressolabs/coffee-shop-platform/internal/metrics"
	repository "github.com/espressolabs/coffee-shop-platform/internal/repositories"
	service "github.com/espressolabs/coffee-shop-platform/internal/services"
	"github.com/espressolabs/coffee-shop-platform/internal/worker"
	"github.com/espressolabs/coffee-shop-platform/pkg/sendgrid"
)

func main() {

	// Logger setup
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load config
	cfg := config.MustLoad()

	// Database setup
	repos, err := repository.New(cfg)
	if err != nil {
		slog.Error("❌ Error accessing the database", "error", err.Error())
		os.Exit(1)
	}

	defer func() {
		if err := repos.Close(); err != nil {
			slog.Error("⚠️ Error closing database connection", slog.String("error", err.Error()))
		} else {
			slog.Info("✅ Database connection closed")
		}
	}()

	// Redis setup
	redisClient, err := repository.NewRedisClient(cfg)
	if err != nil {
		slog.Error("❌ Error accessing the redis instance", "error", err.Error())
		os.Exit(1)
	}

	rateLimitRepo := repository.NewRateLimitRepo(redisClient, cfg)
	productCache := cache.NewRedisCache(redisClient, &cfg.Cache)

	// Background queue for popularity counters, analytics events and email
	queue := worker.NewQueue(cfg.Worker.QueueSize, logger)
	queue.Start(cfg.Worker.Concurrency)
	defer queue.Stop()

	jwtKey := []byte(cfg.Security.JWTKey)
	emailService := sendgrid.NewEmailService(cfg.SendGrid.APIKey, cfg.SendGrid.FromEmail, cfg.SendGrid.FromName)

	reconciler := service.NewReconciler(repos.Product)
	popularity := service.NewPopularityUpdater(repos.Product, productCache, queue)
	analyticsService := service.NewAnalyticsService(repos.Analytics, repos.Order, queue)
	notificationService := service.NewNotificationService(repos.User, emailService, queue)
	userService := service.NewUserService(repos.User, rateLimitRepo, jwtKey, cfg.Security.TokenTTL)
	productService := service.NewProductService(repos.Product, productCache, &cfg.Cache, popularity, analyticsService)
	cartService := service.NewCartService(repos.Cart, repos.Product, reconciler, popularity, analyticsService)
	orderService := service.NewOrderService(repos.Order, repos.Cart, reconciler, popularity, analyticsService, notificationService, logger)

	userHandler := handlers.NewUserHandler(userService)
	productHandler := handlers.NewProductHandler(productService)
	cartHandler := handlers.NewCartHandler(cartService)
	orderHandler := handlers.NewOrderHandler(orderService)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService)
	authMiddleware := middleware.NewAuthMiddleware(jwtKey)

	healthHandler, err := health.NewHealthHandler(cfg, &health.Endpoints{DB: repos.DB, RedisClient: redisClient})
	if err != nil {
		slog.Error("❌ Error setting up health checks", "error", err.Error())
		os.Exit(1)
	}

	slog.Info("storage initialized", slog.String("env", cfg.Env), slog.String("version", "1.0.0"))

	// Setup router
	routerMux := http.NewServeMux()
	routerMux.HandleFunc("POST /api/v1/users/register", userHandler.Register())
	routerMux.HandleFunc("POST /api/v1/users/login", userHandler.Login())
	routerMux.HandleFunc("GET /api/v1/users/profile", authMiddleware.Authenticate(userHandler.Profile()))

	routerMux.HandleFunc("GET /api/v1/products", productHandler.ListProducts())
	routerMux.HandleFunc("GET /api/v1/products/popular", productHandler.ListPopular())
	routerMux.HandleFunc("GET /api/v1/products/{id}", productHandler.GetProduct())
	routerMux.HandleFunc("PUT /api/v1/products/{id}/click", authMiddleware.Optional(productHandler.RecordClick()))
	routerMux.HandleFunc("POST /api/v1/products", authMiddleware.Authenticate(authMiddleware.RequireAdmin(productHandler.CreateProduct())))
	routerMux.HandleFunc("PUT /api/v1/products/{id}", authMiddleware.Authenticate(authMiddleware.RequireAdmin(productHandler.UpdateProduct())))

	routerMux.HandleFunc("GET /api/v1/carts/me", authMiddleware.Authenticate(cartHandler.GetCart()))
	routerMux.HandleFunc("POST /api/v1/carts/items", authMiddleware.Authenticate(cartHandler.AddItem()))
	routerMux.HandleFunc("PUT /api/v1/carts/items/{itemId}", authMiddleware.Authenticate(cartHandler.UpdateItem()))
	routerMux.HandleFunc("DELETE /api/v1/carts/items/{itemId}", authMiddleware.Authenticate(cartHandler.RemoveItem()))
	routerMux.HandleFunc("DELETE /api/v1/carts", authMiddleware.Authenticate(cartHandler.ClearCart()))

	routerMux.HandleFunc("POST /api/v1/orders/checkout", authMiddleware.Authenticate(orderHandler.Checkout()))
	routerMux.HandleFunc("GET /api/v1/orders/me", authMiddleware.Authenticate(orderHandler.ListMyOrders()))
	routerMux.HandleFunc("GET /api/v1/orders/me/{code}", authMiddleware.Authenticate(orderHandler.GetOrder()))
	routerMux.HandleFunc("PUT /api/v1/orders/{code}/cancel", authMiddleware.Authenticate(orderHandler.CancelOrder()))

	routerMux.HandleFunc("GET /api/v1/orders", authMiddleware.Authenticate(authMiddleware.RequireAdmin(orderHandler.ListOrders())))
	routerMux.HandleFunc("PATCH /api/v1/orders/{code}", authMiddleware.Authenticate(authMiddleware.RequireAdmin(orderHandler.UpdateOrder())))
	routerMux.HandleFunc("GET /api/v1/analytics/orders/overview", authMiddleware.Authenticate(authMiddleware.RequireAdmin(analyticsHandler.OrdersOverview())))

	routerMux.Handle("GET /health", healthHandler.Handler())
	routerMux.Handle("GET /metrics", metrics.Handler())

	// Middleware chaining
	var handler http.Handler = routerMux
	handler = metrics.Middleware(handler)
	handler = middleware.Logging(handler)

	// Setup http server
	server := http.Server{
		Addr:    cfg.Addr,
		Handler: handler,
	}

	slog.Info("🚀 Server is starting...", slog.String("address", cfg.Addr))

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("❌ Failed to start server", slog.Any("error", err.Error()))
		}
	}()

	<-done

	slog.Warn("🛑 Shutdown signal received. Preparing to stop the server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("⚠️ Server shutdown encountered an issue", slog.String("error", err.Error()))
	} else {
		slog.Info("✅ Server shut down gracefully. All connections closed.")
	}
}
