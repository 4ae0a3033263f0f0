package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mentora-backend/internal/config"
	"mentora-backend/internal/database"
	"mentora-backend/internal/handlers"
	"mentora-backend/internal/middleware"
	"mentora-backend/internal/repository"
	"mentora-backend/internal/router"
	"mentora-backend/internal/services"
	"mentora-backend/internal/websocket"
	"mentora-backend/internal/worker"
)

func main() {
	log.Println("🚀 Starting Mentora Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClients.Close()
	log.Println("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(pool, "migrations"); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Initialize Repositories ────
	userRepo := repository.NewUserRepo(pool)
	weakAreaRepo := repository.NewWeakAreaRepo(pool)
	cardRepo := repository.NewReviewCardRepo(pool)
	eventRepo := repository.NewReviewEventRepo(pool)

	// ──── Step 5: Initialize Gemini Client ────
	geminiService, err := services.NewGeminiService(cfg.GeminiAPIKey, cfg.GeminiConcurrentReqs)
	if err != nil {
		log.Fatalf("✗ Gemini client initialization failed: %v", err)
	}
	defer geminiService.Close()
	log.Println("✓ Gemini Flash client initialized")

	// ──── Initialize Services ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	emailService := services.NewEmailService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.FrontendURL)
	authService := services.NewAuthService(userRepo, redisClients.Queue, jwtAuth)
	reviewService := services.NewReviewService(cardRepo, eventRepo)

	// ──── Initialize Handlers ────
	authHandler := handlers.NewAuthHandler(authService)
	weakAreaHandler := handlers.NewWeakAreaHandler(weakAreaRepo, redisClients.Queue)
	reviewHandler := handlers.NewReviewHandler(reviewService, geminiService, cardRepo, eventRepo, redisClients.Queue)
	userHandler := handlers.NewUserHandler(userRepo)
	dashboardHandler := handlers.NewDashboardHandler(reviewService, weakAreaRepo)

	// ──── Step 6: Start Worker Pool ────
	workerPool := worker.NewPool(redisClients.Queue, reviewService, geminiService, cfg.WorkerCount)
	workerPool.Start()
	log.Printf("✓ Worker pool started (%d goroutines)", cfg.WorkerCount)

	notificationScheduler := services.NewNotificationScheduler(userRepo, cardRepo, emailService)
	notificationScheduler.Start()
	log.Println("✓ Notification scheduler started")

	// ──── Step 7: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.PubSub, cfg.JWTSecret)
	log.Println("✓ WebSocket hub started")

	// ──── Step 8: Start HTTP Server ────
	r := router.New(
		jwtAuth,
		authHandler,
		weakAreaHandler,
		reviewHandler,
		userHandler,
		dashboardHandler,
		wsHub,
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		workerPool.Stop()
		notificationScheduler.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ Mentora Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
