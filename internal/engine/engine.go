// Package engine implements the project workflow: legal state transitions,
// at-most-once command replay via idempotency tokens, optimistic concurrency
// on decisions, and transactional event production through the outbox.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/autonova/project-service/internal/domain"
	"github.com/autonova/project-service/internal/model"
	"github.com/autonova/project-service/internal/outbox"
	"github.com/autonova/project-service/internal/store"
)

// maxTokenLen bounds caller-supplied idempotency tokens.
const maxTokenLen = 64

// Engine executes workflow commands. Each command runs as one store
// transaction: entity load, validation, mutation, audit insert, outbox
// insert, commit. The engine holds no state of its own; correctness under
// concurrent callers comes from the store's transaction isolation plus the
// row-version guard.
type Engine struct {
	store  store.Store
	logger *slog.Logger
}

// New creates a workflow engine on top of the given store.
func New(s store.Store, logger *slog.Logger) *Engine {
	return &Engine{store: s, logger: logger}
}

// normalizeToken trims an idempotency token. An empty result disables
// idempotency for the call.
func normalizeToken(token string) (string, error) {
	token = strings.TrimSpace(token)
	if len(token) > maxTokenLen {
		return "", domain.Invalid("idempotency token exceeds %d characters", maxTokenLen)
	}
	return token, nil
}

// ensureVersion compares the caller-supplied row version against the stored
// one. A zero caller version opts out of the check; a nonzero version must
// match exactly.
func ensureVersion(stored, caller model.Version) error {
	if caller == 0 {
		return nil
	}
	if caller != stored {
		return domain.Conflict("entity has changed, reload and retry")
	}
	return nil
}

// enqueue serializes env and appends it to the outbox inside tx.
func enqueue(ctx context.Context, tx store.Tx, topic string, env outbox.Envelope) error {
	m, err := outbox.NewMessage(topic, env)
	if err != nil {
		return err
	}
	return tx.InsertOutbox(ctx, m)
}

// actorOr returns the acting user id, falling back when the caller did not
// supply one.
func actorOr(a model.Actor, fallback string) string {
	if a.UserID != "" {
		return a.UserID
	}
	return fallback
}

// GetProject returns the full project aggregate.
func (e *Engine) GetProject(ctx context.Context, id string) (*model.Project, error) {
	p, err := e.store.GetProject(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domain.NotFound("project %s not found", id)
	}
	return p, err
}

// ListProjects returns projects matching the filter, newest first.
func (e *Engine) ListProjects(ctx context.Context, f store.ProjectFilter) ([]*model.Project, error) {
	return e.store.ListProjects(ctx, f)
}

// StatusHistory returns a project's audit trail, newest first.
func (e *Engine) StatusHistory(ctx context.Context, projectID string) ([]*model.StatusHistory, error) {
	if _, err := e.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return e.store.ListStatusHistory(ctx, projectID)
}

// ListQuotes returns a project's quotes, newest first.
func (e *Engine) ListQuotes(ctx context.Context, projectID string) ([]*model.Quote, error) {
	if _, err := e.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return e.store.ListQuotes(ctx, projectID)
}

// GetChangeRequest returns one change request.
func (e *Engine) GetChangeRequest(ctx context.Context, id string) (*model.ChangeRequest, error) {
	cr, err := e.store.GetChangeRequest(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domain.NotFound("change request %s not found", id)
	}
	return cr, err
}

// ListChangeRequests returns a project's change requests, newest first.
func (e *Engine) ListChangeRequests(ctx context.Context, projectID string) ([]*model.ChangeRequest, error) {
	if _, err := e.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return e.store.ListChangeRequests(ctx, projectID)
}
