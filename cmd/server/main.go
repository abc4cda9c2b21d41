package main

import (
	"context"
	"log"

	"github.com/bobmate/backend/internal/router"
	"github.com/bobmate/backend/pkg/config"
	"github.com/bobmate/backend/pkg/firebase"
	"github.com/bobmate/backend/validators"
	"github.com/labstack/echo/v4"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database connections
	db, err := config.InitDB()
	if err != nil {
		log.Fatalf("Failed to initialize databases: %v", err)
	}
	defer db.CloseDB() // Ensure database connections are closed when main exits

	// Initialize Firebase. Without credentials the server still runs with
	// local JWT auth and no push delivery.
	ctx := context.Background()
	firebaseApp, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath)
	if err != nil {
		log.Printf("Firebase not available, continuing without it: %v", err)
		firebaseApp = nil
	}

	// Create Echo instance
	e := echo.New()

	// Validator
	e.Validator = validators.NewValidator()

	// Setup global middleware
	router.SetupMiddleware(e)

	// Setup routes and dependencies
	router.SetupRoutes(e, cfg, db, firebaseApp)

	// Start server
	e.Logger.Fatal(e.Start(":" + cfg.Port))
}
