package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/smartrail/booking-backend/internal/cache"
	"github.com/smartrail/booking-backend/internal/config"
	"github.com/smartrail/booking-backend/internal/database"
	"github.com/smartrail/booking-backend/internal/handlers"
	"github.com/smartrail/booking-backend/internal/middleware"
	"github.com/smartrail/booking-backend/internal/queue"
	"github.com/smartrail/booking-backend/internal/services"
	"github.com/smartrail/booking-backend/pkg/jwt"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting SmartRail Booking Backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	// Repositories need the underlying *sqlx.DB
	pgDB, ok := db.(*database.PostgresDB)
	if !ok {
		logger.Fatal("Failed to cast database connection to PostgresDB")
	}

	// Initialize repositories
	stationRepo := database.NewStationRepository(pgDB.DB)
	routeRepo := database.NewRouteRepository(pgDB.DB)
	seatLockRepo := database.NewSeatLockRepository(pgDB.DB)
	ticketRepo := database.NewTicketRepository(pgDB.DB)
	userRepo := database.NewUserRepository(pgDB.DB)
	availabilityStore := database.NewAvailabilityStore(pgDB.DB)

	// Initialize services
	logger.Info("Initializing services...")
	clock := services.SystemClock()
	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)
	searchCache := cache.NewSearchCache(cfg.Redis, logger)
	defer searchCache.Close()
	publisher := queue.NewPublisher(cfg.Queue.URL, logger)

	availabilityService := services.NewAvailabilityService(availabilityStore, clock, logger)
	pricingService := services.NewPricingService(routeRepo)
	reservationService := services.NewReservationService(
		seatLockRepo,
		routeRepo,
		userRepo,
		stationRepo,
		availabilityService,
		pricingService,
		publisher,
		cfg.Booking.HoldTTL,
		clock,
		logger,
	)
	paymentService := services.NewPaymentService(
		ticketRepo,
		seatLockRepo,
		userRepo,
		publisher,
		cfg.Booking.CommitGrace,
		clock,
		logger,
	)
	searchService := services.NewSearchService(
		routeRepo,
		stationRepo,
		availabilityService,
		pricingService,
		searchCache,
		cfg.Search,
		clock,
		logger,
	)

	// Start the expired-hold sweep
	cronService := services.NewCronService(seatLockRepo, cfg.Booking.SweepSchedule, clock, logger)
	if err := cronService.Start(); err != nil {
		logger.Fatalf("Failed to start hold sweep: %v", err)
	}
	defer cronService.Stop()

	// Initialize handlers
	searchHandler := handlers.NewSearchHandler(searchService, logger)
	availabilityHandler := handlers.NewAvailabilityHandler(availabilityService, logger)
	bookingHandler := handlers.NewBookingHandler(reservationService, logger)
	paymentHandler := handlers.NewPaymentHandler(paymentService, logger)

	// Setup router
	router := gin.New()
	router.Use(gin.Recovery())

	// CORS configuration
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": "database unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": version,
		})
	})

	// API routes
	v1 := router.Group("/api/v1")
	{
		v1.POST("/search", searchHandler.Search)
		v1.GET("/routes/:id/availability", availabilityHandler.GetAvailability)

		authenticated := v1.Group("")
		authenticated.Use(middleware.Auth(jwtService))
		{
			authenticated.POST("/bookings", bookingHandler.BookPlaces)
			authenticated.GET("/bookings", bookingHandler.GetBooks)
			authenticated.DELETE("/bookings/:id", bookingHandler.CancelBookPlaces)
			authenticated.POST("/bookings/:id/pay", paymentHandler.PayTickets)
			authenticated.GET("/tickets", paymentHandler.GetTickets)
			authenticated.POST("/tickets/:id/cancel", paymentHandler.CancelTicket)
		}
	}

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server listening on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}
