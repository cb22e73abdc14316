package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/autonova/project-service/internal/domain"
	"github.com/autonova/project-service/internal/model"
	"github.com/autonova/project-service/internal/outbox"
	"github.com/autonova/project-service/internal/store"
)

// CreateProject is the command payload for project creation.
type CreateProject struct {
	CustomerID int64
	Title      string
	Actor      model.Actor
	Token      string
}

// CreateProject inserts a new project in requested status, with its initial
// audit row and a project.created event. A retried call carrying the same
// idempotency token returns the originally created project.
func (e *Engine) CreateProject(ctx context.Context, cmd CreateProject) (*model.Project, error) {
	token, err := normalizeToken(cmd.Token)
	if err != nil {
		return nil, err
	}

	var project *model.Project
	err = e.store.InTx(ctx, func(tx store.Tx) error {
		if token != "" {
			existing, err := tx.ProjectByToken(ctx, token)
			if err == nil {
				project = existing
				return nil
			}
			if !errors.Is(err, store.ErrNotFound) {
				return err
			}
		}

		if cmd.CustomerID == 0 {
			return domain.Invalid("customer id is required")
		}
		title := strings.TrimSpace(cmd.Title)
		if title == "" {
			return domain.Invalid("title is required")
		}

		now := time.Now().UTC()
		project = &model.Project{
			ID:           model.NewID(),
			CustomerID:   cmd.CustomerID,
			Title:        title,
			Status:       model.ProjectRequested,
			RequestToken: token,
			RowVersion:   1,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		changedBy := actorOr(cmd.Actor, strconv.FormatInt(cmd.CustomerID, 10))

		if err := tx.InsertProject(ctx, project); err != nil {
			return err
		}
		if err := tx.InsertStatusHistory(ctx, &model.StatusHistory{
			ProjectID:  project.ID,
			FromStatus: model.ProjectRequested,
			ToStatus:   model.ProjectRequested,
			ChangedBy:  changedBy,
			ChangedAt:  now,
			Note:       "Project created",
		}); err != nil {
			return err
		}

		return enqueue(ctx, tx, outbox.TopicProjectCreated, outbox.Envelope{
			ProjectID:  project.ID,
			FromStatus: string(model.ProjectRequested),
			ToStatus:   string(model.ProjectRequested),
			ChangedBy:  model.Actor{UserID: changedBy, Role: cmd.Actor.Role},
			OccurredAt: now,
			Metadata: map[string]any{
				"customerId": project.CustomerID,
				"title":      project.Title,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("project created", "project_id", project.ID, "customer_id", project.CustomerID)
	return project, nil
}

// UpdateStatus moves a project to newStatus. Requesting the current status is
// a no-op; any edge outside the transition table fails without side effects.
func (e *Engine) UpdateStatus(ctx context.Context, projectID string, newStatus model.ProjectStatus, actor model.Actor) (*model.Project, error) {
	if !model.KnownProjectStatus(newStatus) {
		return nil, domain.Invalid("unknown project status %q", newStatus)
	}

	var project *model.Project
	err := e.store.InTx(ctx, func(tx store.Tx) error {
		p, err := tx.GetProject(ctx, projectID)
		if errors.Is(err, store.ErrNotFound) {
			return domain.NotFound("project %s not found", projectID)
		}
		if err != nil {
			return err
		}

		if p.Status == newStatus {
			project = p
			return nil
		}
		if !model.ValidProjectTransition(p.Status, newStatus) {
			return domain.IllegalTransition("cannot transition project from %s to %s", p.Status, newStatus)
		}

		now := time.Now().UTC()
		previous := p.Status
		p.Status = newStatus
		p.UpdatedAt = now
		if err := tx.UpdateProject(ctx, p); err != nil {
			return err
		}

		if err := tx.InsertStatusHistory(ctx, &model.StatusHistory{
			ProjectID:  p.ID,
			FromStatus: previous,
			ToStatus:   newStatus,
			ChangedBy:  actor.UserID,
			ChangedAt:  now,
			Note:       fmt.Sprintf("Status updated to %s", newStatus),
		}); err != nil {
			return err
		}

		if err := enqueue(ctx, tx, outbox.TopicProjectUpdated, outbox.Envelope{
			ProjectID:  p.ID,
			FromStatus: string(previous),
			ToStatus:   string(newStatus),
			ChangedBy:  actor,
			OccurredAt: now,
			Metadata: map[string]any{
				"customerId": p.CustomerID,
				"title":      p.Title,
			},
		}); err != nil {
			return err
		}

		project = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return project, nil
}
