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

	"github.com/samirrijal/tripshape/internal/adapters/http"
	natsadapter "github.com/samirrijal/tripshape/internal/adapters/nats"
	"github.com/samirrijal/tripshape/internal/adapters/postgres"
	"github.com/samirrijal/tripshape/internal/adapters/valkey"
	"github.com/samirrijal/tripshape/internal/core/ports"
	"github.com/samirrijal/tripshape/internal/core/usecases"
	"github.com/samirrijal/tripshape/internal/pkg/config"
	"github.com/samirrijal/tripshape/internal/pkg/logging"
	"github.com/samirrijal/tripshape/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("tripshape-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format, cfg.Telemetry.ServiceName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.Exporter, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	go reportPoolMetrics(ctx, db)

	deps := &http.Dependencies{
		Polylines: usecases.NewPolylineService(),
		DB:        db,
	}

	// Cache and NATS are optional; the API degrades to uncached, unannounced
	// normalization without them.
	var cache ports.CacheService
	if vc, err := valkey.New(cfg.Valkey.Addr); err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer vc.Close()
		cache = vc
		deps.Cache = vc
	}

	var publisher ports.EventPublisher
	if pub, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer pub.Close()
		publisher = pub
	}

	// Raw NATS connection for the WebSocket relay
	if nc, err := natsadapter.RawConn(cfg.NATS.URL); err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	} else {
		defer nc.Drain()
		deps.NATS = nc
	}

	if !cfg.Normalizer.ConcatMergedGeometry {
		slog.Warn("merged transit legs keep only their first polyline; set normalizer.concat_merged_geometry to draw full paths")
	}
	deps.Itineraries = usecases.NewItineraryService(
		postgres.NewItineraryRepo(db),
		cache,
		publisher,
		usecases.ItineraryOptions{
			ConcatMergedGeometry: cfg.Normalizer.ConcatMergedGeometry,
			CacheTTLSeconds:      cfg.Normalizer.CacheTTLSeconds,
		},
	)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    4 * 1024 * 1024, // routing plans with many itineraries get large
		AppName:      "Tripshape API",
	})
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, If-None-Match",
		MaxAge:       3600,
	}))

	http.SetupRoutes(app, deps, http.RouterOptions{
		RateLimit: 120,
		SpecPath:  http.DefaultSpecPath,
	})

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "geometry_mode", deps.Itineraries.GeometryMode().String())
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

func reportPoolMetrics(ctx context.Context, db *postgres.DB) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			db.ReportPoolMetrics()
		case <-ctx.Done():
			return
		}
	}
}
