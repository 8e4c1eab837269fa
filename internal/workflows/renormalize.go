package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// WorkflowIDRenormalize is used for singleton runs so two sweeps never overlap.
const WorkflowIDRenormalize = "tripshape-renormalize"

// RenormalizeInput is the input for the renormalize workflow.
type RenormalizeInput struct {
	// BatchSize bounds how many itineraries are recomputed concurrently (default 10).
	BatchSize int
}

// RenormalizeResult reports what a sweep did.
type RenormalizeResult struct {
	Total        int
	Renormalized int
	WithoutBox   int
	Failed       []string
}

// RenormalizeWorkflow recomputes every stored itinerary with the worker's
// current normalizer settings, typically after the merged-geometry mode
// changed. Individual failures are collected; only a failed listing fails
// the workflow.
func RenormalizeWorkflow(ctx workflow.Context, input RenormalizeInput) (RenormalizeResult, error) {
	logger := workflow.GetLogger(ctx)

	batch := input.BatchSize
	if batch <= 0 {
		batch = 10
	}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval: time.Second,
			MaximumAttempts: 3,
		},
	})

	var ids []string
	if err := workflow.ExecuteActivity(ctx, "ListItineraryIDs").Get(ctx, &ids); err != nil {
		return RenormalizeResult{}, err
	}
	logger.Info("Starting renormalize sweep", "itineraries", len(ids), "batchSize", batch)

	result := RenormalizeResult{Total: len(ids)}
	for start := 0; start < len(ids); start += batch {
		end := min(start+batch, len(ids))

		futures := make([]workflow.Future, 0, end-start)
		for _, id := range ids[start:end] {
			futures = append(futures, workflow.ExecuteActivity(ctx, "RenormalizeItinerary", id))
		}

		for i, f := range futures {
			id := ids[start+i]
			var out RenormalizeOutcome
			if err := f.Get(ctx, &out); err != nil {
				logger.Warn("renormalize failed", "id", id, "error", err)
				result.Failed = append(result.Failed, id)
				continue
			}
			result.Renormalized++
			if !out.HasBounds {
				result.WithoutBox++
			}
		}
	}

	logger.Info("Renormalize sweep finished",
		"renormalized", result.Renormalized, "failed", len(result.Failed))
	return result, nil
}
