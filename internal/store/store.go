package store

import (
	"context"
	"errors"

	"github.com/autonova/project-service/internal/model"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ProjectFilter narrows ListProjects. Zero values match everything.
type ProjectFilter struct {
	Status     model.ProjectStatus
	CustomerID int64
}

// Store defines the persistence operations for the project workflow.
// Read methods run outside any command transaction; all mutations go
// through InTx so that entity changes, audit rows and outbox messages
// commit or roll back together.
type Store interface {
	GetProject(ctx context.Context, id string) (*model.Project, error)
	ListProjects(ctx context.Context, f ProjectFilter) ([]*model.Project, error)
	ListStatusHistory(ctx context.Context, projectID string) ([]*model.StatusHistory, error)
	GetQuote(ctx context.Context, id string) (*model.Quote, error)
	ListQuotes(ctx context.Context, projectID string) ([]*model.Quote, error)
	GetChangeRequest(ctx context.Context, id string) (*model.ChangeRequest, error)
	ListChangeRequests(ctx context.Context, projectID string) ([]*model.ChangeRequest, error)
	ListTasks(ctx context.Context, projectID string) ([]*model.Task, error)

	PendingOutbox(ctx context.Context, limit int) ([]*model.OutboxMessage, error)
	MarkDispatched(ctx context.Context, ids []string) error

	InTx(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}

// Tx is the transactional surface the workflow engine mutates through.
// Every method runs inside the one transaction opened by InTx.
type Tx interface {
	GetProject(ctx context.Context, id string) (*model.Project, error)
	GetQuote(ctx context.Context, id string) (*model.Quote, error)
	GetChangeRequest(ctx context.Context, id string) (*model.ChangeRequest, error)

	// Idempotency-token lookups. Tokens are globally unique per entity
	// kind; callers check the target id against the returned row.
	ProjectByToken(ctx context.Context, token string) (*model.Project, error)
	QuoteByToken(ctx context.Context, token string) (*model.Quote, error)
	ChangeRequestByToken(ctx context.Context, token string) (*model.ChangeRequest, error)

	HasApprovedQuote(ctx context.Context, projectID string) (bool, error)

	InsertProject(ctx context.Context, p *model.Project) error
	UpdateProject(ctx context.Context, p *model.Project) error
	InsertQuote(ctx context.Context, q *model.Quote) error
	UpdateQuote(ctx context.Context, q *model.Quote) error
	InsertChangeRequest(ctx context.Context, cr *model.ChangeRequest) error
	UpdateChangeRequest(ctx context.Context, cr *model.ChangeRequest) error
	InsertTask(ctx context.Context, t *model.Task) error
	InsertStatusHistory(ctx context.Context, h *model.StatusHistory) error
	InsertOutbox(ctx context.Context, m *model.OutboxMessage) error
}
