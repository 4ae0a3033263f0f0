package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"mentora-backend/internal/handlers"
	"mentora-backend/internal/middleware"
	"mentora-backend/internal/websocket"
)

func New(
	jwtAuth *middleware.JWTAuth,
	authHandler *handlers.AuthHandler,
	weakAreaHandler *handlers.WeakAreaHandler,
	reviewHandler *handlers.ReviewHandler,
	userHandler *handlers.UserHandler,
	dashboardHandler *handlers.DashboardHandler,
	wsHub *websocket.Hub,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Auth rate limiter (10 req/min per IP)
	authLimiter := middleware.NewRateLimiter(10, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Auth Routes (public) ────
		r.Route("/auth", func(r chi.Router) {
			r.Use(authLimiter.Middleware)
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)

			// Logout requires auth
			r.Group(func(r chi.Router) {
				r.Use(jwtAuth.Middleware)
				r.Post("/logout", authHandler.Logout)
			})
		})

		// ──── Weak Area Routes ────
		r.Route("/weak-areas", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/", weakAreaHandler.Ingest)
			r.Get("/", weakAreaHandler.List)
			r.Delete("/{id}", weakAreaHandler.Deactivate)
		})

		// ──── Review Routes ────
		r.Route("/reviews", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/due", reviewHandler.Due)
			r.Post("/ensure", reviewHandler.EnsureCards)
			r.Get("/stats", reviewHandler.Stats)
			r.Get("/upcoming", reviewHandler.Upcoming)

			r.Route("/cards/{id}", func(r chi.Router) {
				r.Post("/question", reviewHandler.Question)
				r.Post("/submit", reviewHandler.Submit)
				r.Get("/history", reviewHandler.History)
			})
		})

		// ──── User & Settings Routes ────
		r.Route("/user", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/me", userHandler.GetMe)
			r.Get("/settings", userHandler.GetSettings)
			r.Put("/settings", userHandler.UpdateSettings)
		})

		// ──── Dashboard Routes ────
		r.Route("/dashboard", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/stats", dashboardHandler.Stats)
			r.Get("/upcoming", reviewHandler.Upcoming)
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
