package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/syncpad/backend/api/handlers"
	"github.com/syncpad/backend/internal/access"
	"github.com/syncpad/backend/internal/db"
	"github.com/syncpad/backend/internal/document"
	"github.com/syncpad/backend/internal/presence"
	"github.com/syncpad/backend/internal/repository"
	"github.com/syncpad/backend/internal/store"
	"github.com/syncpad/backend/internal/token"
	"github.com/syncpad/backend/internal/ws"
)

func main() {
	// Get configuration from environment
	port := getEnv("PORT", "8080")
	dbPath := getEnv("DB_PATH", "data/syncpad.db")
	redisAddr := getEnv("REDIS_ADDR", "localhost:6379")
	redisPassword := getEnv("REDIS_PASSWORD", "")
	secret := getEnv("SECRET_KEY", "")
	baseURL := getEnv("BASE_URL", "http://localhost:5173")
	tokenMaxAge := getEnvDuration("SHARE_TOKEN_MAX_AGE", 24*time.Hour)

	if secret == "" {
		log.Fatal("SECRET_KEY must be set")
	}

	// Ensure data directory exists
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	// Initialize database
	database, err := db.InitDB(dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.CloseDB()

	// Initialize shared store client (constructed once, injected everywhere)
	rdb, err := store.NewClient(context.Background(), store.Config{
		Addr:     redisAddr,
		Password: redisPassword,
	})
	if err != nil {
		log.Fatalf("Failed to connect to shared store: %v", err)
	}
	defer rdb.Close()

	// Initialize repositories
	projectRepo := repository.NewProjectRepository(database)
	groupRepo := repository.NewGroupRepository(database)
	userRepo := repository.NewUserRepository(database)

	// Initialize hub components
	signer := token.NewSigner([]byte(secret))
	gate := access.NewGate(projectRepo, signer, tokenMaxAge)
	presenceStore := presence.NewStore(rdb)
	roster := presence.NewRoster(presenceStore, userRepo)
	docStore := document.NewStore(rdb, document.NewChunkSet())

	wsService := ws.NewService(ws.Config{
		Redis:    rdb,
		Presence: presenceStore,
		Roster:   roster,
		Docs:     docStore,
		Projects: projectRepo,
	})
	defer wsService.Close()

	// Initialize handlers
	projectHandler := handlers.NewProjectHandler(projectRepo, groupRepo)
	shareHandler := handlers.NewShareHandler(projectRepo, groupRepo, signer, tokenMaxAge, baseURL)
	wsHandler := handlers.NewWebSocketHandler(ws.NewHandler(wsService, gate))
	adminHandler := handlers.NewAdminHandler(wsService)

	// Initialize Gin router
	r := gin.Default()

	// Enable CORS for development
	r.Use(handlers.CORSMiddleware())
	r.Use(handlers.AuthMiddleware(userRepo))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	// API routes
	api := r.Group("/api")
	{
		projectHandler.RegisterRoutes(api)
		shareHandler.RegisterRoutes(api)
		wsHandler.RegisterRoutes(api)
		adminHandler.RegisterRoutes(api)
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutting down server...")
		wsService.Close()
		rdb.Close()
		db.CloseDB()
		os.Exit(0)
	}()

	// Start server
	log.Printf("Starting server on port %s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvDuration returns an environment variable parsed as seconds, or a
// default value.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}
