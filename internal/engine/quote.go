package engine

import (
	"context"
	"errors"
	"time"

	"github.com/autonova/project-service/internal/domain"
	"github.com/autonova/project-service/internal/model"
	"github.com/autonova/project-service/internal/outbox"
	"github.com/autonova/project-service/internal/store"
)

// CreateQuote is the command payload for drafting a quote.
type CreateQuote struct {
	ProjectID  string
	TotalCents int64
	Actor      model.Actor
	Token      string
}

// CreateQuote inserts a draft quote against an existing project and bumps the
// project's updated time.
func (e *Engine) CreateQuote(ctx context.Context, cmd CreateQuote) (*model.Quote, error) {
	token, err := normalizeToken(cmd.Token)
	if err != nil {
		return nil, err
	}

	var quote *model.Quote
	err = e.store.InTx(ctx, func(tx store.Tx) error {
		if token != "" {
			existing, err := tx.QuoteByToken(ctx, token)
			if err == nil {
				if existing.ProjectID != cmd.ProjectID {
					return domain.Conflict("idempotency token already used for another project")
				}
				quote = existing
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

		if cmd.TotalCents <= 0 {
			return domain.Invalid("quote total must be greater than zero")
		}

		now := time.Now().UTC()
		quote = &model.Quote{
			ID:           model.NewID(),
			ProjectID:    p.ID,
			TotalCents:   cmd.TotalCents,
			Status:       model.QuoteDraft,
			IssuedAt:     now,
			RequestToken: token,
			RowVersion:   1,
		}
		if err := tx.InsertQuote(ctx, quote); err != nil {
			return err
		}

		p.UpdatedAt = now
		return tx.UpdateProject(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return quote, nil
}

// ApproveQuote moves a draft quote to approved, sets the project budget to
// the quote total, and promotes the project to approved when its status still
// precedes approved in the lifecycle order. A quote already approved is a
// no-op; any other non-draft status is a conflict.
func (e *Engine) ApproveQuote(ctx context.Context, quoteID string, actor model.Actor, token string) (*model.Quote, error) {
	return e.decideQuote(ctx, quoteID, actor, token, model.QuoteApproved)
}

// RejectQuote moves a draft quote to rejected. The project status and budget
// are untouched.
func (e *Engine) RejectQuote(ctx context.Context, quoteID string, actor model.Actor, token string) (*model.Quote, error) {
	return e.decideQuote(ctx, quoteID, actor, token, model.QuoteRejected)
}

// decideQuote is the shared terminal-decision flow for quotes: resolve
// idempotency, check the current status, stamp the decision, adjust the
// project, audit and emit — all in one transaction.
func (e *Engine) decideQuote(ctx context.Context, quoteID string, actor model.Actor, token string, target model.QuoteStatus) (*model.Quote, error) {
	token, err := normalizeToken(token)
	if err != nil {
		return nil, err
	}

	var quote *model.Quote
	err = e.store.InTx(ctx, func(tx store.Tx) error {
		if token != "" {
			existing, err := tx.QuoteByToken(ctx, token)
			if err == nil {
				if existing.ID != quoteID {
					return domain.Conflict("idempotency token already used for another quote")
				}
				quote = existing
				return nil
			}
			if !errors.Is(err, store.ErrNotFound) {
				return err
			}
		}

		q, err := tx.GetQuote(ctx, quoteID)
		if errors.Is(err, store.ErrNotFound) {
			return domain.NotFound("quote %s not found", quoteID)
		}
		if err != nil {
			return err
		}

		if q.Status == target {
			quote = q
			return nil
		}
		if q.Status != model.QuoteDraft {
			return domain.Conflict("quote in status %s cannot be %s", q.Status, target)
		}

		now := time.Now().UTC()
		q.Status = target
		q.RequestToken = token
		topic := outbox.TopicQuoteRejected
		if target == model.QuoteApproved {
			approved, err := tx.HasApprovedQuote(ctx, q.ProjectID)
			if err != nil {
				return err
			}
			if approved {
				return domain.Conflict("project %s already has an approved quote", q.ProjectID)
			}
			q.ApprovedAt = &now
			q.ApprovedBy = actor.UserID
			topic = outbox.TopicQuoteApproved
		} else {
			q.RejectedAt = &now
			q.RejectedBy = actor.UserID
		}
		if err := tx.UpdateQuote(ctx, q); err != nil {
			return err
		}

		if err := enqueue(ctx, tx, topic, outbox.Envelope{
			ProjectID:  q.ProjectID,
			QuoteID:    q.ID,
			FromStatus: string(model.QuoteDraft),
			ToStatus:   string(target),
			ChangedBy:  actor,
			OccurredAt: now,
			Metadata:   map[string]any{"totalCents": q.TotalCents},
		}); err != nil {
			return err
		}

		p, err := tx.GetProject(ctx, q.ProjectID)
		if errors.Is(err, store.ErrNotFound) {
			return domain.NotFound("project %s not found", q.ProjectID)
		}
		if err != nil {
			return err
		}

		p.UpdatedAt = now
		if target == model.QuoteApproved {
			p.BudgetCents = q.TotalCents
			if model.ProjectStatusBefore(p.Status, model.ProjectApproved) {
				previous := p.Status
				p.Status = model.ProjectApproved

				if err := tx.InsertStatusHistory(ctx, &model.StatusHistory{
					ProjectID:  p.ID,
					FromStatus: previous,
					ToStatus:   model.ProjectApproved,
					ChangedBy:  actor.UserID,
					ChangedAt:  now,
					Note:       "Quote approved",
				}); err != nil {
					return err
				}
				if err := enqueue(ctx, tx, outbox.TopicProjectUpdated, outbox.Envelope{
					ProjectID:  p.ID,
					QuoteID:    q.ID,
					FromStatus: string(previous),
					ToStatus:   string(model.ProjectApproved),
					ChangedBy:  actor,
					OccurredAt: now,
					Metadata: map[string]any{
						"customerId":  p.CustomerID,
						"title":       p.Title,
						"budgetCents": p.BudgetCents,
					},
				}); err != nil {
					return err
				}
			}
		}
		if err := tx.UpdateProject(ctx, p); err != nil {
			return err
		}

		quote = q
		return nil
	})
	if err != nil {
		return nil, err
	}
	return quote, nil
}
