package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/rob0403/LiveVotingRW/internal/config"
	"github.com/rob0403/LiveVotingRW/internal/container"
	"github.com/rob0403/LiveVotingRW/internal/handler"
	"github.com/rob0403/LiveVotingRW/internal/middleware"
	"github.com/rob0403/LiveVotingRW/pkg/logger"
	"github.com/rob0403/LiveVotingRW/pkg/server"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.WithFields(map[string]interface{}{
		"port":        cfg.Port,
		"log_level":   cfg.LogLevel,
		"environment": cfg.Environment,
	}).Info("Starting LiveVotingRW server")

	// Create dependency injection container
	ctx := context.Background()
	c, err := container.New(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to create container")
	}

	// Setup router
	router := setupRouter(c)

	srv := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        router,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	if err := server.Run(srv, log, c.Close); err != nil {
		log.WithError(err).Error("Server exited with error")
		os.Exit(1)
	}

	log.Info("Application shutdown complete")
}

// setupRouter configures and returns the HTTP router
func setupRouter(c *container.Container) *chi.Mux {
	cfg := c.GetConfig()
	log := c.GetLogger()

	r := chi.NewRouter()

	corsConfig := &middleware.CORSConfig{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Content-Length", "Accept-Encoding", "Authorization", "X-Voter-ID"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           86400,
	}

	r.Use(middleware.CORS(corsConfig, log))
	r.Use(middleware.RequestID(log))
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Compress(5))
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	healthHandler := handler.NewHealthHandler(c)
	sessionHandler := handler.NewSessionHandler(c.Registry, c.Player, c.Attendees, c.AttendeeWindow(), log)
	votingHandler := handler.NewVotingHandler(c.Registry, c.Player, c.Attendees, log)
	playerHandler := handler.NewPlayerHandler(c.Player, log)

	// Health check (no auth required)
	r.Get("/health", healthHandler.Check)

	r.Route("/api/v1", func(r chi.Router) {
		// Voter-facing routes resolve sessions by pin and carry a voter
		// identity cookie.
		r.Group(func(r chi.Router) {
			r.Use(middleware.VoterIdentity(log))

			r.Get("/sessions/{pin}", sessionHandler.State)
			r.Post("/sessions/{pin}/votes", votingHandler.Cast)
			r.Delete("/sessions/{pin}/votes", votingHandler.Clear)
		})

		// Presenter routes address sessions by id and require a presenter token.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Presenter(cfg.PresenterJWTSecret, log))

			r.Post("/sessions", sessionHandler.Create)
			r.Post("/sessions/{sessionID}/player/{action}", playerHandler.Action)
			r.Get("/sessions/{sessionID}/results/{questionID}", playerHandler.Results)
		})
	})

	return r
}
