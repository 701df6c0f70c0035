package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/rafflefi/api/internal/auth"
	"github.com/rafflefi/api/internal/borrow"
	"github.com/rafflefi/api/internal/cache"
	"github.com/rafflefi/api/internal/deposit"
	"github.com/rafflefi/api/internal/lending"
	"github.com/rafflefi/api/internal/models"
	"github.com/rafflefi/api/internal/pool"
	"github.com/rafflefi/api/internal/raffle"
	"github.com/rafflefi/api/internal/rng"
	"github.com/rafflefi/api/internal/transaction"
	"github.com/rafflefi/api/internal/transfer"
	"github.com/rafflefi/api/internal/user"
	"github.com/rafflefi/api/internal/websocket"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logrus.Warn("No .env file found")
	}

	// Initialize logger
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logrus.InfoLevel)

	// Database connection
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	if err := db.AutoMigrate(models.All()...); err != nil {
		logrus.WithError(err).Fatal("Failed to migrate database")
	}

	// Redis connection
	rdb := redis.NewClient(&redis.Options{
		Addr:     os.Getenv("REDIS_ADDR"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})

	// Test Redis connection
	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logrus.WithError(err).Warn("Failed to connect to Redis, caching disabled")
		rdb = nil
	}
	responseCache := cache.New(rdb)

	// WebSocket event feed
	wsServer := websocket.NewServer()
	wsServer.Start()

	// Ledger orchestrator
	userRepo := user.NewUserRepository(db)
	svc := lending.NewService(
		pool.NewService(pool.NewPoolRepository(db)),
		deposit.NewService(deposit.NewDepositRepository(db)),
		borrow.NewService(borrow.NewBorrowRepository(db)),
		raffle.NewService(raffle.NewRaffleRepository(db)),
		transfer.NewLedgerTransfer(db),
		transaction.NewOperationRepository(db),
		wsServer.Hub,
		lending.Config{RewardAsset: os.Getenv("REWARD_ASSET")},
	)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Security middleware
	router.Use(auth.SecurityHeaders())
	router.Use(auth.SecureCORS())

	// Initialize auth middleware
	authMiddleware := auth.NewAuthMiddleware(userRepo)
	requireAuth := authMiddleware.RequireAuth()
	requireAdmin := authMiddleware.RequireRole("admin")
	rateLimit := authMiddleware.RateLimitByAddress(rateLimitPerMinute())

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Unix(),
			"service":   "rafflefi-api",
		})
	})

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		v1.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "pong"})
		})

		poolHandler := pool.NewHandler(svc, responseCache)
		poolHandler.RegisterRoutes(v1, requireAuth, rateLimit, requireAdmin)

		raffleHandler := raffle.NewHandler(svc, rng.CryptoSource{})
		raffleHandler.RegisterRoutes(v1, requireAuth, rateLimit, requireAdmin)

		lendingHandler := lending.NewHandler(svc)
		lendingHandler.RegisterRoutes(v1,
			[]gin.HandlerFunc{requireAuth, rateLimit},
			[]gin.HandlerFunc{requireAdmin},
		)
	}

	wsServer.RegisterRoutes(router)

	// Server configuration
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		logrus.WithField("port", port).Info("Starting RaffleFi API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Fatal("Server forced to shutdown")
	}

	wsServer.Stop()
	authMiddleware.Stop()

	// Close database connection
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}

	// Close Redis connection
	if rdb != nil {
		rdb.Close()
	}

	logrus.Info("Server exited")
}

// rateLimitPerMinute reads RATE_LIMIT_PER_MINUTE, defaulting to 120
// requests per address per minute.
func rateLimitPerMinute() int {
	if v := os.Getenv("RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return 120
}
