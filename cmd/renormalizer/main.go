package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/samirrijal/tripshape/internal/adapters/postgres"
	"github.com/samirrijal/tripshape/internal/core/usecases"
	"github.com/samirrijal/tripshape/internal/pkg/config"
	"github.com/samirrijal/tripshape/internal/pkg/logging"
	"github.com/samirrijal/tripshape/internal/workflows"
)

// renormalizer runs the Temporal worker for RenormalizeWorkflow.
// "renormalizer start" additionally kicks off a sweep.
func main() {
	cfg, err := config.Load("tripshape-renormalizer")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format, cfg.Telemetry.ServiceName)

	ctx := context.Background()

	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    logger,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	if len(os.Args) > 1 && os.Args[1] == "start" {
		run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
			ID:        workflows.WorkflowIDRenormalize,
			TaskQueue: cfg.Temporal.TaskQueue,
		}, workflows.RenormalizeWorkflow, workflows.RenormalizeInput{BatchSize: cfg.Normalizer.Workers})
		if err != nil {
			log.Fatalf("start workflow: %v", err)
		}
		slog.Info("renormalize sweep started", "workflow_id", run.GetID(), "run_id", run.GetRunID())
		return
	}

	svc := usecases.NewItineraryService(postgres.NewItineraryRepo(db), nil, nil, usecases.ItineraryOptions{
		ConcatMergedGeometry: cfg.Normalizer.ConcatMergedGeometry,
	})

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.RenormalizeWorkflow)
	w.RegisterActivity(&workflows.Activities{Itineraries: svc})

	slog.Info("renormalizer worker started", "task_queue", cfg.Temporal.TaskQueue,
		"geometry_mode", svc.GeometryMode().String())
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
