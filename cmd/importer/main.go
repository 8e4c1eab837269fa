package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	natsadapter "github.com/samirrijal/tripshape/internal/adapters/nats"
	"github.com/samirrijal/tripshape/internal/adapters/otp"
	"github.com/samirrijal/tripshape/internal/adapters/postgres"
	"github.com/samirrijal/tripshape/internal/core/domain"
	"github.com/samirrijal/tripshape/internal/core/usecases"
	"github.com/samirrijal/tripshape/internal/pkg/config"
	"github.com/samirrijal/tripshape/internal/pkg/logging"
)

const usage = "usage: importer <plan.json|url> [concurrency] [store|publish]"

// importer loads a routing plan and either normalizes and stores every
// itinerary directly ("store", the default) or hands the raw itineraries to
// the normalizer workers over NATS ("publish").
func main() {
	if len(os.Args) < 2 {
		log.Fatal(usage)
	}
	source := os.Args[1]

	concurrency := 4
	if len(os.Args) > 2 {
		n, err := strconv.Atoi(os.Args[2])
		if err != nil || n <= 0 {
			log.Fatalf("invalid concurrency %q\n%s", os.Args[2], usage)
		}
		concurrency = n
	}

	mode := "store"
	if len(os.Args) > 3 {
		mode = os.Args[3]
	}
	if mode != "store" && mode != "publish" {
		log.Fatalf("unknown mode %q\n%s", mode, usage)
	}

	cfg, err := config.Load("tripshape-importer")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format, cfg.Telemetry.ServiceName)

	ctx := context.Background()

	data, err := readSource(source)
	if err != nil {
		log.Fatalf("read plan: %v", err)
	}
	plan, err := otp.DecodePlan(data)
	if err != nil {
		log.Fatalf("decode plan: %v", err)
	}

	slog.Info("importing plan", "source", source, "itineraries", len(plan.Itineraries),
		"mode", mode, "concurrency", concurrency)

	var handle func(ctx context.Context, it domain.Itinerary) error
	switch mode {
	case "publish":
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
		if err != nil {
			log.Fatalf("nats: %v", err)
		}
		defer pub.Close()
		handle = func(ctx context.Context, it domain.Itinerary) error {
			return pub.PublishRawItinerary(ctx, &it)
		}

	default:
		db, err := postgres.New(ctx, cfg.Database.DSN(), int32(concurrency+1))
		if err != nil {
			log.Fatalf("db: %v", err)
		}
		defer db.Close()

		svc := usecases.NewItineraryService(postgres.NewItineraryRepo(db), nil, nil, usecases.ItineraryOptions{
			ConcatMergedGeometry: cfg.Normalizer.ConcatMergedGeometry,
		})
		handle = func(ctx context.Context, it domain.Itinerary) error {
			n, err := svc.Ingest(ctx, it, "import")
			if err != nil {
				return err
			}
			slog.Debug("itinerary stored", "id", n.ID, "legs", len(n.Legs), "has_bounds", n.BoundingBox != nil)
			return nil
		}
	}

	var (
		wg     sync.WaitGroup
		failed atomic.Int64
		sem    = make(chan struct{}, concurrency)
	)
	for i, it := range plan.Itineraries {
		wg.Add(1)
		go func(i int, it domain.Itinerary) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := handle(ctx, it); err != nil {
				failed.Add(1)
				slog.Error("import itinerary", "index", i, "error", err)
			}
		}(i, it)
	}
	wg.Wait()

	slog.Info("import complete", "itineraries", len(plan.Itineraries), "failed", failed.Load())
	if failed.Load() > 0 {
		os.Exit(1)
	}
}

// readSource reads a local file or downloads an http(s) URL.
func readSource(source string) ([]byte, error) {
	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		return os.ReadFile(source)
	}

	client := &http.Client{Timeout: 60 * time.Second}
	resp, err := client.Get(source)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d for %s", resp.StatusCode, source)
	}
	return io.ReadAll(resp.Body)
}
