package router

import (
	"log"

	"firebase.google.com/go/v4/auth"
	"github.com/bobmate/backend/internal/handlers"
	"github.com/bobmate/backend/internal/middleware"
	"github.com/bobmate/backend/internal/models"
	"github.com/bobmate/backend/internal/repositories"
	"github.com/bobmate/backend/internal/services"
	"github.com/bobmate/backend/pkg/config"
	"github.com/bobmate/backend/pkg/firebase"
	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
)

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo) {
	e.Use(eMiddleware.Recover())
	e.Use(eMiddleware.CORS())
	log.Println("Global middleware configured.")
}

// SetupRoutes configures all application routes and injects dependencies.
// firebaseApp may be nil, in which case only local JWT auth is available
// and push notifications are disabled.
func SetupRoutes(e *echo.Echo, cfg *config.Config, db *config.DB, firebaseApp *firebase.App) {
	// AutoMigrate PostgreSQL models
	err := db.Postgres.AutoMigrate(
		&models.User{},
		&models.Restaurant{},
		&models.MealRequest{},
		&models.Participant{},
		&models.Rating{},
		&models.Notification{},
	)
	if err != nil {
		log.Fatalf("Failed to auto migrate models: %v", err)
	}
	log.Println("PostgreSQL auto-migrations completed for all models.")

	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)

	// --- Initialize Repositories ---
	userRepo := repositories.NewPostgresUserRepository(db.Postgres)
	restaurantRepo := repositories.NewPostgresRestaurantRepository(db.Postgres)
	requestRepo := repositories.NewPostgresMealRequestRepository(db.Postgres)
	ratingRepo := repositories.NewPostgresRatingRepository(db.Postgres)
	notificationRepo := repositories.NewPostgresNotificationRepository(db.Postgres)
	chatRepo := repositories.NewMongoChatRepository(db.Mongo.Database("bobmate"))

	// --- Initialize Services ---
	var push services.PushSender
	if firebaseApp != nil && firebaseApp.MessagingClient != nil {
		push = services.NewFCMPushSender(firebaseApp.MessagingClient)
	}
	notificationService := services.NewNotificationService(notificationRepo, userRepo, push)
	var cache redis.Cmdable
	if db.Redis != nil {
		cache = db.Redis
	}
	requestService := services.NewRequestService(requestRepo, userRepo, restaurantRepo, chatRepo, notificationService, cache)
	ratingService := services.NewRatingService(ratingRepo, requestRepo, userRepo)

	// --- Unprotected routes for authentication ---
	var firebaseAuthClient *auth.Client
	if firebaseApp != nil {
		firebaseAuthClient = firebaseApp.AuthClient
	}
	authGroup := e.Group("/api/v1/auth")
	authHandler := handlers.NewAuthHandler(userRepo, firebaseAuthClient, cfg.JWTSecret)
	authHandler.RegisterAuthRoutes(authGroup)
	log.Println("Auth routes configured.")

	// --- Protected routes ---
	api := e.Group("/api/v1")
	if firebaseApp != nil && firebaseApp.AuthClient != nil {
		api.Use(middleware.FirebaseAuthMiddleware(firebaseApp.AuthClient, userRepo))
		log.Println("Firebase authentication middleware applied to /api/v1 group.")
	} else {
		api.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))
		log.Println("JWT authentication middleware applied to /api/v1 group.")
	}

	// User profile routes
	userHandler := handlers.NewUserHandler(userRepo)
	userHandler.RegisterProfileRoutes(api)
	log.Println("User profile routes configured.")

	// Restaurant routes
	restaurantHandler := handlers.NewRestaurantHandler(restaurantRepo)
	restaurantHandler.RegisterRestaurantRoutes(api)
	log.Println("Restaurant routes configured.")

	// Meal request routes
	requestHandler := handlers.NewRequestHandler(requestService)
	requestHandler.RegisterRequestRoutes(api)
	log.Println("Meal request routes configured.")

	// Rating routes
	ratingHandler := handlers.NewRatingHandler(ratingService)
	ratingHandler.RegisterRatingRoutes(api)
	log.Println("Rating routes configured.")

	// Chat routes
	chatHandler := handlers.NewChatHandler(chatRepo, userRepo, notificationService)
	chatHandler.RegisterChatRoutes(api)
	log.Println("Chat routes configured.")

	// Notification routes
	notificationHandler := handlers.NewNotificationHandler(notificationRepo, userRepo)
	notificationHandler.RegisterNotificationRoutes(api)
	log.Println("Notification routes configured.")

	log.Println("All routes configured.")
}
