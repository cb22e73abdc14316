package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/autonova/project-service/internal/domain"
	"github.com/autonova/project-service/internal/model"
	"github.com/autonova/project-service/internal/outbox"
	"github.com/autonova/project-service/internal/store"
)

// CreateChangeRequest is the command payload for submitting a change request.
// At least conceptually one of PriceDeltaCents, ExtraHours or NewDueDate
// carries the change.
type CreateChangeRequest struct {
	ProjectID       string
	Title           string
	Description     string
	PriceDeltaCents *int64
	ExtraHours      *int
	NewDueDate      *time.Time
	Actor           model.Actor
	Token           string
}

func changeDeltas(cr *model.ChangeRequest) *outbox.Deltas {
	return &outbox.Deltas{
		PriceDeltaCents: cr.PriceDeltaCents,
		ExtraHours:      cr.ExtraHours,
		NewDueDate:      cr.NewDueDate,
	}
}

// CreateChangeRequest inserts a submitted change request against an existing
// project, records a non-advancing audit note, and emits a
// project.change-request.created event carrying the proposed deltas.
func (e *Engine) CreateChangeRequest(ctx context.Context, cmd CreateChangeRequest) (*model.ChangeRequest, error) {
	token, err := normalizeToken(cmd.Token)
	if err != nil {
		return nil, err
	}

	var cr *model.ChangeRequest
	err = e.store.InTx(ctx, func(tx store.Tx) error {
		if token != "" {
			existing, err := tx.ChangeRequestByToken(ctx, token)
			if err == nil {
				if existing.ProjectID != cmd.ProjectID {
					return domain.Conflict("idempotency token already used for another project")
				}
				cr = existing
				return nil
			}
			if !errors.Is(err, store.ErrNotFound) {
				return err
			}
		}

		p, err := tx.GetProject(ctx, cmd.ProjectID)
		if errors.Is(err, store.ErrNotFound) {
			return domain.NotFound("project %s not found", cmd.ProjectID)
		}
		if err != nil {
			return err
		}

		title := strings.TrimSpace(cmd.Title)
		if title == "" {
			return domain.Invalid("title is required")
		}

		now := time.Now().UTC()
		cr = &model.ChangeRequest{
			ID:              model.NewID(),
			ProjectID:       p.ID,
			Title:           title,
			Description:     cmd.Description,
			PriceDeltaCents: cmd.PriceDeltaCents,
			ExtraHours:      cmd.ExtraHours,
			NewDueDate:      cmd.NewDueDate,
			Status:          model.ChangeSubmitted,
			CreatedBy:       cmd.Actor.UserID,
			CreatedAt:       now,
			RequestToken:    token,
			RowVersion:      1,
		}
		if err := tx.InsertChangeRequest(ctx, cr); err != nil {
			return err
		}

		p.UpdatedAt = now
		if err := tx.UpdateProject(ctx, p); err != nil {
			return err
		}

		if err := tx.InsertStatusHistory(ctx, &model.StatusHistory{
			ProjectID:  p.ID,
			FromStatus: p.Status,
			ToStatus:   p.Status,
			ChangedBy:  cmd.Actor.UserID,
			ChangedAt:  now,
			Note:       fmt.Sprintf("Change request submitted: %s", title),
		}); err != nil {
			return err
		}

		return enqueue(ctx, tx, outbox.TopicChangeRequestCreated, outbox.Envelope{
			ProjectID:       p.ID,
			ChangeRequestID: cr.ID,
			FromStatus:      string(model.ChangeSubmitted),
			ToStatus:        string(model.ChangeSubmitted),
			ChangedBy:       cmd.Actor,
			OccurredAt:      now,
			Metadata:        map[string]any{"title": cr.Title},
			Deltas:          changeDeltas(cr),
		})
	})
	if err != nil {
		return nil, err
	}
	return cr, nil
}

// ApproveChangeRequest moves a submitted change request to approved and
// promotes the project to approved when its status still precedes approved.
// The caller's row version must match unless zero.
func (e *Engine) ApproveChangeRequest(ctx context.Context, id string, callerVersion model.Version, actor model.Actor, token string) (*model.ChangeRequest, error) {
	return e.decideChange(ctx, id, callerVersion, actor, token, model.ChangeApproved)
}

// RejectChangeRequest moves a submitted change request to rejected. An
// applied change request cannot be rejected.
func (e *Engine) RejectChangeRequest(ctx context.Context, id string, callerVersion model.Version, actor model.Actor, token string) (*model.ChangeRequest, error) {
	return e.decideChange(ctx, id, callerVersion, actor, token, model.ChangeRejected)
}

// decideChange is the shared terminal-decision flow for change requests.
func (e *Engine) decideChange(ctx context.Context, id string, callerVersion model.Version, actor model.Actor, token string, target model.ChangeStatus) (*model.ChangeRequest, error) {
	token, err := normalizeToken(token)
	if err != nil {
		return nil, err
	}

	var cr *model.ChangeRequest
	err = e.store.InTx(ctx, func(tx store.Tx) error {
		loaded, err := tx.GetChangeRequest(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return domain.NotFound("change request %s not found", id)
		}
		if err != nil {
			return err
		}

		if token != "" {
			existing, err := tx.ChangeRequestByToken(ctx, token)
			if err == nil {
				if existing.ID != id {
					return domain.Conflict("idempotency token already used for another change request")
				}
				cr = existing
				return nil
			}
			if !errors.Is(err, store.ErrNotFound) {
				return err
			}
		}

		if err := ensureVersion(loaded.RowVersion, callerVersion); err != nil {
			return err
		}

		previous := loaded.Status
		if previous == target {
			cr = loaded
			return nil
		}
		if !model.ValidChangeTransition(previous, target) {
			return domain.Conflict("cannot %s change request in status %s", verbFor(target), previous)
		}

		now := time.Now().UTC()
		loaded.Status = target
		loaded.DecidedBy = actor.UserID
		loaded.DecidedAt = &now
		loaded.RequestToken = token
		if err := tx.UpdateChangeRequest(ctx, loaded); err != nil {
			return err
		}

		p, err := tx.GetProject(ctx, loaded.ProjectID)
		if errors.Is(err, store.ErrNotFound) {
			return domain.NotFound("project %s not found", loaded.ProjectID)
		}
		if err != nil {
			return err
		}

		p.UpdatedAt = now
		note := fmt.Sprintf("Change request %s: %s", target, loaded.Title)
		if target == model.ChangeApproved && model.ProjectStatusBefore(p.Status, model.ProjectApproved) {
			previousProject := p.Status
			p.Status = model.ProjectApproved

			if err := tx.InsertStatusHistory(ctx, &model.StatusHistory{
				ProjectID:  p.ID,
				FromStatus: previousProject,
				ToStatus:   model.ProjectApproved,
				ChangedBy:  actor.UserID,
				ChangedAt:  now,
				Note:       note,
			}); err != nil {
				return err
			}
			if err := enqueue(ctx, tx, outbox.TopicProjectUpdated, outbox.Envelope{
				ProjectID:       p.ID,
				ChangeRequestID: loaded.ID,
				FromStatus:      string(previousProject),
				ToStatus:        string(model.ProjectApproved),
				ChangedBy:       actor,
				OccurredAt:      now,
				Metadata: map[string]any{
					"customerId": p.CustomerID,
					"title":      p.Title,
				},
			}); err != nil {
				return err
			}
		} else {
			if err := tx.InsertStatusHistory(ctx, &model.StatusHistory{
				ProjectID:  p.ID,
				FromStatus: p.Status,
				ToStatus:   p.Status,
				ChangedBy:  actor.UserID,
				ChangedAt:  now,
				Note:       note,
			}); err != nil {
				return err
			}
		}
		if err := tx.UpdateProject(ctx, p); err != nil {
			return err
		}

		topic := outbox.TopicChangeRequestApproved
		if target == model.ChangeRejected {
			topic = outbox.TopicChangeRequestRejected
		}
		if err := enqueue(ctx, tx, topic, outbox.Envelope{
			ProjectID:       loaded.ProjectID,
			ChangeRequestID: loaded.ID,
			FromStatus:      string(previous),
			ToStatus:        string(target),
			ChangedBy:       actor,
			OccurredAt:      now,
			Metadata:        map[string]any{"title": loaded.Title},
			Deltas:          changeDeltas(loaded),
		}); err != nil {
			return err
		}

		cr = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cr, nil
}

func verbFor(target model.ChangeStatus) string {
	switch target {
	case model.ChangeApproved:
		return "approve"
	case model.ChangeRejected:
		return "reject"
	default:
		return "apply"
	}
}

// ApplyChangeRequest executes an approved change request: the price delta is
// added to the project budget, a proposed due date replaces the current one,
// and positive proposed extra hours become a new pending task. Already
// applied is a no-op; anything other than approved is a conflict.
func (e *Engine) ApplyChangeRequest(ctx context.Context, id string, callerVersion model.Version, actor model.Actor, token string) (*model.ChangeRequest, error) {
	token, err := normalizeToken(token)
	if err != nil {
		return nil, err
	}

	var cr *model.ChangeRequest
	err = e.store.InTx(ctx, func(tx store.Tx) error {
		loaded, err := tx.GetChangeRequest(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return domain.NotFound("change request %s not found", id)
		}
		if err != nil {
			return err
		}

		if token != "" {
			existing, err := tx.ChangeRequestByToken(ctx, token)
			if err == nil {
				if existing.ID != id {
					return domain.Conflict("idempotency token already used for another change request")
				}
				cr = existing
				return nil
			}
			if !errors.Is(err, store.ErrNotFound) {
				return err
			}
		}

		if err := ensureVersion(loaded.RowVersion, callerVersion); err != nil {
			return err
		}

		previous := loaded.Status
		if previous == model.ChangeApplied {
			cr = loaded
			return nil
		}
		if previous != model.ChangeApproved {
			return domain.Conflict("only approved change requests can be applied")
		}

		now := time.Now().UTC()
		loaded.Status = model.ChangeApplied
		loaded.RequestToken = token
		if err := tx.UpdateChangeRequest(ctx, loaded); err != nil {
			return err
		}

		p, err := tx.GetProject(ctx, loaded.ProjectID)
		if errors.Is(err, store.ErrNotFound) {
			return domain.NotFound("project %s not found", loaded.ProjectID)
		}
		if err != nil {
			return err
		}

		if loaded.PriceDeltaCents != nil {
			p.BudgetCents += *loaded.PriceDeltaCents
			// A negative delta cannot take the budget below zero.
			if p.BudgetCents < 0 {
				p.BudgetCents = 0
			}
		}
		if loaded.NewDueDate != nil {
			due := *loaded.NewDueDate
			p.DueDate = &due
		}
		p.UpdatedAt = now
		if err := tx.UpdateProject(ctx, p); err != nil {
			return err
		}

		if loaded.ExtraHours != nil && *loaded.ExtraHours > 0 {
			if err := tx.InsertTask(ctx, &model.Task{
				ID:            model.NewID(),
				ProjectID:     p.ID,
				Title:         fmt.Sprintf("Extra hours: %s", loaded.Title),
				EstimateHours: *loaded.ExtraHours,
				Status:        model.TaskPending,
				CreatedAt:     now,
			}); err != nil {
				return err
			}
		}

		if err := tx.InsertStatusHistory(ctx, &model.StatusHistory{
			ProjectID:  p.ID,
			FromStatus: p.Status,
			ToStatus:   p.Status,
			ChangedBy:  actor.UserID,
			ChangedAt:  now,
			Note:       fmt.Sprintf("Change request applied: %s", loaded.Title),
		}); err != nil {
			return err
		}

		if err := enqueue(ctx, tx, outbox.TopicChangeRequestApplied, outbox.Envelope{
			ProjectID:       loaded.ProjectID,
			ChangeRequestID: loaded.ID,
			FromStatus:      string(previous),
			ToStatus:        string(model.ChangeApplied),
			ChangedBy:       actor,
			OccurredAt:      now,
			Metadata:        map[string]any{"title": loaded.Title},
			Deltas:          changeDeltas(loaded),
		}); err != nil {
			return err
		}

		// Follow-up snapshot so consumers see the post-apply budget and due
		// date without a second read.
		if err := enqueue(ctx, tx, outbox.TopicProjectUpdated, outbox.Envelope{
			ProjectID:       p.ID,
			ChangeRequestID: loaded.ID,
			FromStatus:      string(p.Status),
			ToStatus:        string(p.Status),
			ChangedBy:       actor,
			OccurredAt:      now,
			Metadata: map[string]any{
				"customerId":  p.CustomerID,
				"title":       p.Title,
				"budgetCents": p.BudgetCents,
				"dueDate":     p.DueDate,
			},
		}); err != nil {
			return err
		}

		cr = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cr, nil
}
