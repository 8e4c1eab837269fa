package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	natsadapter "github.com/samirrijal/tripshape/internal/adapters/nats"
	"github.com/samirrijal/tripshape/internal/adapters/postgres"
	"github.com/samirrijal/tripshape/internal/adapters/valkey"
	"github.com/samirrijal/tripshape/internal/core/domain"
	"github.com/samirrijal/tripshape/internal/core/ports"
	"github.com/samirrijal/tripshape/internal/core/usecases"
	"github.com/samirrijal/tripshape/internal/pkg/config"
	"github.com/samirrijal/tripshape/internal/pkg/logging"
	"github.com/samirrijal/tripshape/internal/pkg/telemetry"
)

// normalizer consumes raw itineraries from JetStream, normalizes and stores
// them, and publishes the normalized form for the WebSocket relay.
func main() {
	cfg, err := config.Load("tripshape-normalizer")
	if err != nil {
		log.Fatalf("config: %v", err)
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
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats publisher: %v", err)
	}
	defer pub.Close()

	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats subscriber: %v", err)
	}
	defer sub.Close()

	var cache ports.CacheService
	if vc, err := valkey.New(cfg.Valkey.Addr); err != nil {
		slog.Warn("valkey unavailable, normalizing without cache", "error", err)
	} else {
		defer vc.Close()
		cache = vc
	}

	if !cfg.Normalizer.ConcatMergedGeometry {
		slog.Warn("merged transit legs keep only their first polyline; set normalizer.concat_merged_geometry to draw full paths")
	}
	svc := usecases.NewItineraryService(postgres.NewItineraryRepo(db), cache, pub, usecases.ItineraryOptions{
		ConcatMergedGeometry: cfg.Normalizer.ConcatMergedGeometry,
		CacheTTLSeconds:      cfg.Normalizer.CacheTTLSeconds,
	})

	// Every subscription joins the same durable queue group.
	for i := 0; i < cfg.Normalizer.Workers; i++ {
		err := sub.SubscribeRawItineraries(ctx, func(ctx context.Context, it *domain.Itinerary) error {
			n, err := svc.Ingest(ctx, *it, "nats")
			if err != nil {
				return err
			}
			slog.Debug("itinerary normalized", "id", n.ID, "legs", len(n.Legs))
			return nil
		})
		if err != nil {
			log.Fatalf("subscribe: %v", err)
		}
	}

	slog.Info("normalizer started", "workers", cfg.Normalizer.Workers,
		"subject", natsadapter.SubjectRawAll, "geometry_mode", svc.GeometryMode().String())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("received signal, shutting down normalizer", "signal", sig.String())
}
