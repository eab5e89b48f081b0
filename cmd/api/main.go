package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/samirrijal/raasta/internal/adapters/firebase"
	"github.com/samirrijal/raasta/internal/adapters/http"
	"github.com/samirrijal/raasta/internal/adapters/memory"
	natsadapter "github.com/samirrijal/raasta/internal/adapters/nats"
	"github.com/samirrijal/raasta/internal/adapters/postgres"
	"github.com/samirrijal/raasta/internal/adapters/valkey"
	"github.com/samirrijal/raasta/internal/core/ports"
	"github.com/samirrijal/raasta/internal/core/usecases"
	"github.com/samirrijal/raasta/internal/pkg/config"
	"github.com/samirrijal/raasta/internal/pkg/geospatial"
	"github.com/samirrijal/raasta/internal/pkg/logging"
	"github.com/samirrijal/raasta/internal/pkg/telemetry"

	valkeygo "github.com/valkey-io/valkey-go"
)

// hazardStore is what a store driver provides to the API.
type hazardStore interface {
	ports.HazardStore
	ports.Pinger
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment")
	}

	cfg, err := config.Load("raasta-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	deps := &http.Dependencies{
		StoreDriver:    cfg.Store.Driver,
		RequestTimeout: time.Duration(cfg.Server.RequestTimeout) * time.Second,
		RateLimit:      cfg.Server.RateLimit,
	}

	// Valkey: listing cache, and the hazard store for the valkey driver
	var vk valkeygo.Client
	if cfg.Store.Driver == config.DriverValkey || cfg.Query.ListCacheTTL > 0 {
		vk, err = valkey.Connect(cfg.Valkey.Addr)
		if err != nil {
			if cfg.Store.Driver == config.DriverValkey {
				log.Fatalf("valkey: %v", err)
			}
			slog.Warn("valkey unavailable, listing cache disabled", "error", err)
		} else {
			defer vk.Close()
		}
	}

	var cache ports.CacheService
	if vk != nil && cfg.Query.ListCacheTTL > 0 {
		c := valkey.NewCache(vk, cfg.Valkey.KeyPrefix)
		cache = c
		deps.Cache = c
	}

	// Hazard store
	var store hazardStore
	switch cfg.Store.Driver {
	case config.DriverFirebase:
		store = firebase.New(cfg.Firebase.URL, cfg.Firebase.AuthToken, time.Duration(cfg.Firebase.Timeout)*time.Second)
	case config.DriverValkey:
		store = valkey.NewHazardStore(vk, cfg.Valkey.KeyPrefix)
	case config.DriverPostgres:
		db, err := postgres.New(ctx, cfg.Database.DSN())
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer db.Close()
		deps.DB = db
		store = postgres.NewHazardRepo(db)
	case config.DriverMemory:
		mem, err := memory.LoadFile(cfg.Store.SeedFile)
		if err != nil {
			log.Fatalf("seed: %v", err)
		}
		store = mem
	}
	deps.Store = store
	slog.Info("hazard store selected", "driver", cfg.Store.Driver)

	// NATS query events
	var publisher ports.EventPublisher
	if cfg.NATS.Enabled {
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats unavailable, query events disabled", "error", err)
		} else {
			defer pub.Close()
			publisher = pub
			deps.Events = pub
		}
	}

	deps.Hazards = usecases.NewHazardService(store, cache, publisher, usecases.QueryOptions{
		Tolerance:    cfg.Query.Tolerance,
		Intersector:  geospatial.NewIntersector(cfg.Query.Intersector),
		MaxPoints:    cfg.Query.MaxPoints,
		StoreName:    cfg.Store.Driver,
		ListCacheTTL: cfg.Query.ListCacheTTL,
	})

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "Raasta API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "version", http.Version)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
