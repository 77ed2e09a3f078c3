package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/Stephani-e/food-delivery-app/internal/api"
	"github.com/Stephani-e/food-delivery-app/internal/boards"
	"github.com/Stephani-e/food-delivery-app/internal/branch"
	"github.com/Stephani-e/food-delivery-app/internal/cart"
	"github.com/Stephani-e/food-delivery-app/internal/config"
	"github.com/Stephani-e/food-delivery-app/internal/location"
	"github.com/Stephani-e/food-delivery-app/internal/logging"
	"github.com/Stephani-e/food-delivery-app/internal/remote"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	log.SetOutput(os.Stdout)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		log.Fatalf("cart service exited: %v", err)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	store, err := remote.NewPostgresStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to store: %w", err)
	}
	defer store.Close()
	log.Println("Connected to remote store")

	redisClient, err := location.OpenRedis(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer redisClient.Close()
	log.Println("Connected to redis")

	carts := cart.NewManager(store, cfg.FeedDebounce)
	defer carts.Close()

	boardMgr := boards.NewManager(store)
	locations := location.NewManager(
		location.NewRedisStorage(redisClient),
		func(userID string) location.CartInvalidator { return carts.ForUser(userID) },
	)
	branches := branch.NewRepository(store)
	selector := branch.NewSelector(cfg.AvgSpeedKmh, cfg.MaxDeliveryMinutes, cfg.MaxBadConditionMinutes)

	handler := api.NewHandler(store, carts, boardMgr, locations, branches, selector)
	router := setupRouter(handler)

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("Starting cart service on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutting down cart service...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func setupRouter(handler *api.Handler) *gin.Engine {
	// Set Gin mode based on environment
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(logging.JSONLogger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	// Health and readiness endpoints
	router.GET("/live", func(c *gin.Context) { c.Status(200) })
	router.GET("/ready", handler.Health)
	router.GET("/health", func(c *gin.Context) { c.Status(200) })

	// API routes with JWT protection
	apiGroup := router.Group("/api")
	apiGroup.Use(api.AuthMiddleware())
	{
		// Cart endpoints
		apiGroup.GET("/cart", handler.GetCart)
		apiGroup.POST("/cart/items", handler.AddItem)
		apiGroup.POST("/cart/items/increase", handler.IncreaseQty)
		apiGroup.POST("/cart/items/decrease", handler.DecreaseQty)
		apiGroup.POST("/cart/items/remove", handler.RemoveItem)
		apiGroup.DELETE("/cart", handler.ClearCart)
		apiGroup.PUT("/cart/meta", handler.SetCartMeta)

		// Location + fulfillment endpoints
		apiGroup.GET("/location", handler.GetLocation)
		apiGroup.POST("/location/detected", handler.ReportDetected)
		apiGroup.POST("/location/select", handler.SelectLocation)
		apiGroup.DELETE("/location/selected", handler.ClearSelected)
		apiGroup.POST("/fulfillment/refresh", handler.RefreshFulfillment)
		apiGroup.GET("/branches", handler.RankBranchesForUser)

		// Customization board endpoints
		apiGroup.GET("/boards", handler.ListBoards)
		apiGroup.POST("/boards", handler.CreateBoard)
		apiGroup.PUT("/boards/:id", handler.UpdateBoard)
		apiGroup.POST("/boards/:id/consume", handler.ConsumeBoard)
		apiGroup.POST("/boards/:id/reuse", handler.ReuseBoard)
		apiGroup.POST("/boards/:id/archive", handler.ArchiveBoard)
		apiGroup.POST("/boards/consume-all", handler.ConsumeAllBoards)
	}

	// Root endpoint for basic info
	router.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"service": "cart-service",
			"version": "1.0.0",
			"status":  "running",
		})
	})

	return router
}

// corsMiddleware adds CORS headers to allow cross-origin requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
