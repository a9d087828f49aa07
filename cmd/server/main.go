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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/tickstream/tickstream/internal/api"
	"github.com/tickstream/tickstream/internal/config"
	"github.com/tickstream/tickstream/internal/database"
	"github.com/tickstream/tickstream/internal/repositories"
	"github.com/tickstream/tickstream/internal/services"
)

func main() {
	ctx := context.Background()

	godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize the record store backend
	var store repositories.RecordStore
	switch cfg.StoreBackend {
	case config.BackendRedis:
		redisClient, err := database.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to create redis client: %v", err)
		}
		defer redisClient.Close()
		store = repositories.NewRedisRecordStore(redisClient, cfg.StoreContainer, repositories.NewIDCache())

	case config.BackendPostgres:
		postgresPool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to create postgres pool: %v", err)
		}
		defer postgresPool.Close()

		pgStore := repositories.NewPostgresRecordStore(postgresPool, cfg.StoreContainer, repositories.NewIDCache())
		if err := pgStore.EnsureSchema(ctx); err != nil {
			log.Fatalf("Failed to ensure schema: %v", err)
		}
		store = pgStore

	case config.BackendMemory:
		store = repositories.NewMemoryRecordStore()
	}

	registry := services.NewTimerRegistry(store)
	auth := services.NewAuthService(cfg.JWTSecret, cfg.APIKeyHash)

	// Initialize HTTP Server
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	// Health check endpoints
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	router.Route("/api/timer", func(r chi.Router) {
		r.Use(api.RequireAuth(auth))
		r.Mount("/", api.NewTimerHandler(registry).Routes())
	})

	// Start Server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: router,
	}

	// graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("Starting server on port %s", cfg.ServerPort)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server stopped gracefully")
}
