package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lmarchetti/stagepass-backend/api/routes"
	"github.com/lmarchetti/stagepass-backend/internal/artists"
	"github.com/lmarchetti/stagepass-backend/internal/auth"
	"github.com/lmarchetti/stagepass-backend/internal/bookings"
	"github.com/lmarchetti/stagepass-backend/internal/events"
	"github.com/lmarchetti/stagepass-backend/internal/inventory"
	"github.com/lmarchetti/stagepass-backend/internal/payments"
	"github.com/lmarchetti/stagepass-backend/internal/users"
	"github.com/lmarchetti/stagepass-backend/internal/venues"
	"github.com/lmarchetti/stagepass-backend/pkg/config"
	"github.com/lmarchetti/stagepass-backend/pkg/db"
	"github.com/lmarchetti/stagepass-backend/pkg/logger"
	"github.com/lmarchetti/stagepass-backend/pkg/metrics"
	"github.com/lmarchetti/stagepass-backend/pkg/migrate"
	"github.com/lmarchetti/stagepass-backend/pkg/outbox"
	"github.com/lmarchetti/stagepass-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	httpMetrics := metrics.NewHTTPMetrics(registry)
	reservationMetrics := metrics.NewReservationMetrics(registry)

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:  users.NewRepository(dbClient.DB()),
		JWTConfig: cfg.JWT,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		DB:             dbClient,
		PasswordConfig: cfg.Password,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create register service", err)
		os.Exit(1)
	}

	artistService, err := artists.NewService(artists.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create artist service", err)
		os.Exit(1)
	}

	venueService, err := venues.NewService(venues.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create venue service", err)
		os.Exit(1)
	}

	eventService, err := events.NewService(events.NewRepository(dbClient.DB()), artistService, venueService)
	if err != nil {
		logg.Error(context.Background(), "failed to create event service", err)
		os.Exit(1)
	}

	inventoryService, err := inventory.NewService(inventory.NewRepository(dbClient.DB()), reservationMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}

	bookingRepo := bookings.NewRepository(dbClient.DB())
	bookingService, err := bookings.NewService(bookings.ServiceParams{
		DB:        dbClient,
		Repo:      bookingRepo,
		Inventory: inventoryService,
		Events:    events.NewRepository(dbClient.DB()),
		Outbox:    outboxService,
		Config:    cfg.Booking,
		Metrics:   reservationMetrics,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create booking service", err)
		os.Exit(1)
	}

	paymentService, err := payments.NewService(payments.ServiceParams{
		DB:     dbClient,
		Repo:   bookingRepo,
		Outbox: outboxService,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:      cfg,
			Logger:      logg,
			DBPing:      dbClient,
			Redis:       redisClient,
			HTTPMetrics: httpMetrics,
			Registry:    registry,
			AuthService: authService,
			Register:    registerService,
			Artists:     artistService,
			Venues:      venueService,
			Events:      eventService,
			Inventory:   inventoryService,
			Bookings:    bookingService,
			Payments:    paymentService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
