package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/vikasavnish/listinghub/internal/api"
	"github.com/vikasavnish/listinghub/internal/cache"
	"github.com/vikasavnish/listinghub/internal/config"
	"github.com/vikasavnish/listinghub/internal/db"
	"github.com/vikasavnish/listinghub/internal/logging"
	"github.com/vikasavnish/listinghub/internal/middleware"
	"github.com/vikasavnish/listinghub/internal/models"
	"github.com/vikasavnish/listinghub/internal/notify"
	"github.com/vikasavnish/listinghub/internal/services"
	"github.com/vikasavnish/listinghub/internal/store"
	"github.com/vikasavnish/listinghub/internal/tasks"
	"github.com/vikasavnish/listinghub/internal/websocket"
)

func main() {
	printRoutes := flag.Bool("print-routes", false, "print the route table and exit")
	flag.Parse()

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg := config.Load()
	logger := logging.New(os.Stderr, cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database connection
	database, err := db.Connect(cfg.Database)
	if err != nil {
		logger.Error(ctx, "failed to connect to database", "err", err)
		os.Exit(1)
	}
	if err := db.Seed(database, cfg.Seed, logger); err != nil {
		logger.Error(ctx, "failed to seed users", "err", err)
		os.Exit(1)
	}

	// Redis carries cross-instance invalidations and token revocations.
	// Without it this instance still works on its own.
	var (
		bus         cache.Bus = cache.NopBus{}
		revocations services.Revocations
	)
	redisClient, err := db.ConnectRedis(cfg.Redis)
	if err != nil {
		logger.Warn(ctx, "redis unavailable, running without cross-instance invalidation", "err", err)
		revocations = services.NewMemoryRevocations()
	} else {
		defer redisClient.Close()
		bus = cache.NewRedisBus(redisClient, cfg.Redis.Channel, logger)
		revocations = services.NewRedisRevocations(redisClient)
	}

	caches := cache.New(bus, logger)
	go func() {
		if err := caches.Listen(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn(ctx, "invalidation listener stopped", "err", err)
		}
	}()

	data := store.NewGormService(database)
	auth := services.NewAuthService(data.Users, revocations, cfg.JWT, logger)

	// Initialize WebSocket hub
	wsHub := websocket.NewHub(middleware.Identify(auth), logger)
	go wsHub.Run(ctx)
	caches.OnInvalidate(func(names []string) {
		wsHub.Broadcast(models.Message{Type: models.MessageInvalidate, Content: names})
	})

	notifier := notify.Multi{notify.NewHub(wsHub), notify.NewLog(logger)}
	listings := services.NewListingService(data, caches, cfg.Listings, logger)

	// Initialize scheduled tasks
	taskManager := tasks.NewManager(logger)
	taskManager.RegisterTask(tasks.NewListingExpiryTask(listings, cfg.Listings.ExpirySweep, logger))

	// Initialize router
	router := api.SetupRouter(api.Dependencies{
		Auth:      auth,
		Listings:  listings,
		Admin:     services.NewAdminService(data.Listings, caches, logger),
		Favorites: services.NewFavoriteService(data.Favourites, caches, notifier, logger),
		Tasks:     taskManager,
		Hub:       wsHub,
		Log:       logger,
	})

	if *printRoutes {
		if err := api.PrintRoutes(os.Stdout, router); err != nil {
			logger.Error(ctx, "failed to walk routes", "err", err)
			os.Exit(1)
		}
		return
	}

	taskManager.StartScheduledTasks(ctx)
	defer taskManager.StopAllTasks()

	// Set up CORS
	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: corsMiddleware.Handler(router),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn(shutdownCtx, "shutdown", "err", err)
		}
	}()

	logger.Info(ctx, "server starting", "port", cfg.Server.Port)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error(ctx, "server stopped", "err", err)
		os.Exit(1)
	}
}
