package river

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/riverqueue/river"
)

// ScoreComputer recomputes a product's trust score from its event
// history. Satisfied by app.TrustEngine.
type ScoreComputer interface {
	Compute(ctx context.Context, productID string) (int, map[string]int, error)
}

// ScoreWorker refreshes the trust score snapshot after each accepted
// transition. The snapshot is only a cache, so a failed job merely
// leaves it stale until the next transition or on-demand read.
type ScoreWorker struct {
	river.WorkerDefaults[TransitionJobArgs]

	engine ScoreComputer
}

// Work recomputes the trust score for the transitioned product.
func (w *ScoreWorker) Work(ctx context.Context, job *river.Job[TransitionJobArgs]) error {
	score, reasons, err := w.engine.Compute(ctx, job.Args.ProductID)
	if err != nil {
		return fmt.Errorf("recomputing trust score for product %q: %w", job.Args.ProductID, err)
	}

	slog.InfoContext(ctx, "trust score recomputed",
		"product_id", job.Args.ProductID,
		"event_id", job.Args.EventID,
		"current_state", job.Args.CurrentState,
		"score", score,
		"reasons", reasons,
		"job_id", job.ID,
		"attempt", job.Attempt,
	)
	return nil
}
