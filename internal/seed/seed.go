// Package seed populates a fresh database with demonstration data.
package seed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/autonova/project-service/internal/engine"
	"github.com/autonova/project-service/internal/model"
	"github.com/autonova/project-service/internal/store"
)

var seedActor = model.Actor{UserID: "seed", Role: "admin"}

// Demo creates a small believable dataset through the workflow engine so
// that every seeded row went through the same validation, audit and event
// paths as real traffic. Seeding is idempotent: each command carries a fixed
// idempotency token, so re-running on an already seeded database is a no-op.
func Demo(ctx context.Context, eng *engine.Engine, logger *slog.Logger) error {
	existing, err := eng.ListProjects(ctx, store.ProjectFilter{})
	if err != nil {
		return fmt.Errorf("check existing projects: %w", err)
	}
	if len(existing) > 0 {
		logger.Info("seed skipped, database not empty", "projects", len(existing))
		return nil
	}

	brake, err := eng.CreateProject(ctx, engine.CreateProject{
		CustomerID: 42,
		Title:      "Brake job",
		Actor:      seedActor,
		Token:      "seed-project-brake",
	})
	if err != nil {
		return fmt.Errorf("seed brake project: %w", err)
	}

	quote, err := eng.CreateQuote(ctx, engine.CreateQuote{
		ProjectID:  brake.ID,
		TotalCents: 50_000,
		Actor:      seedActor,
		Token:      "seed-quote-brake",
	})
	if err != nil {
		return fmt.Errorf("seed brake quote: %w", err)
	}
	if _, err := eng.ApproveQuote(ctx, quote.ID, seedActor, "seed-approve-brake"); err != nil {
		return fmt.Errorf("seed brake quote approval: %w", err)
	}
	if _, err := eng.UpdateStatus(ctx, brake.ID, model.ProjectInProgress, seedActor); err != nil {
		return fmt.Errorf("seed brake status: %w", err)
	}

	delta := int64(100_000)
	hours := 5
	if _, err := eng.CreateChangeRequest(ctx, engine.CreateChangeRequest{
		ProjectID:       brake.ID,
		Title:           "Replace rear rotors",
		Description:     "Rear rotors below minimum thickness, replacement recommended.",
		PriceDeltaCents: &delta,
		ExtraHours:      &hours,
		Actor:           seedActor,
		Token:           "seed-cr-rotors",
	}); err != nil {
		return fmt.Errorf("seed change request: %w", err)
	}

	if _, err := eng.CreateProject(ctx, engine.CreateProject{
		CustomerID: 7,
		Title:      "Timing belt replacement",
		Actor:      seedActor,
		Token:      "seed-project-timing",
	}); err != nil {
		return fmt.Errorf("seed timing project: %w", err)
	}

	logger.Info("demo data seeded")
	return nil
}
