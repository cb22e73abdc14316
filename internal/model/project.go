package model

import "time"

// Version is the opaque concurrency token the store assigns to a row on every
// write. Callers compare it for equality only; a zero Version means "not
// supplied".
type Version int64

// Actor identifies the user performing a command. Role is an opaque string
// carried through to events; authorization happens outside this service.
type Actor struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

// Project is the root aggregate of a customer service engagement. It owns its
// tasks, quotes, status history and change requests, all of which are removed
// with it.
type Project struct {
	ID             string           `json:"id"`
	CustomerID     int64            `json:"customer_id"`
	Title          string           `json:"title"`
	Status         ProjectStatus    `json:"status"`
	BudgetCents    int64            `json:"budget_cents"`
	DueDate        *time.Time       `json:"due_date,omitempty"`
	RequestToken   string           `json:"-"`
	RowVersion     Version          `json:"row_version"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
	Tasks          []*Task          `json:"tasks,omitempty"`
	Quotes         []*Quote         `json:"quotes,omitempty"`
	ChangeRequests []*ChangeRequest `json:"change_requests,omitempty"`
}

// Quote is a priced offer against a project. Draft is the only status it can
// leave; approved and rejected are terminal.
type Quote struct {
	ID           string      `json:"id"`
	ProjectID    string      `json:"project_id"`
	TotalCents   int64       `json:"total_cents"`
	Status       QuoteStatus `json:"status"`
	IssuedAt     time.Time   `json:"issued_at"`
	ApprovedAt   *time.Time  `json:"approved_at,omitempty"`
	RejectedAt   *time.Time  `json:"rejected_at,omitempty"`
	ApprovedBy   string      `json:"approved_by,omitempty"`
	RejectedBy   string      `json:"rejected_by,omitempty"`
	RequestToken string      `json:"-"`
	RowVersion   Version     `json:"row_version"`
}

// ChangeRequest proposes a scope change against a project: a price delta,
// extra hours, a new due date, or any combination.
type ChangeRequest struct {
	ID              string       `json:"id"`
	ProjectID       string       `json:"project_id"`
	Title           string       `json:"title"`
	Description     string       `json:"description,omitempty"`
	PriceDeltaCents *int64       `json:"price_delta_cents,omitempty"`
	ExtraHours      *int         `json:"extra_hours,omitempty"`
	NewDueDate      *time.Time   `json:"new_due_date,omitempty"`
	Status          ChangeStatus `json:"status"`
	CreatedBy       string       `json:"created_by"`
	CreatedAt       time.Time    `json:"created_at"`
	DecidedBy       string       `json:"decided_by,omitempty"`
	DecidedAt       *time.Time   `json:"decided_at,omitempty"`
	RequestToken    string       `json:"-"`
	RowVersion      Version      `json:"row_version"`
}

// Task status constants.
const (
	TaskPending = "pending"
	TaskDone    = "done"
)

// Task is a unit of work on a project. Applied change requests with extra
// hours materialize as new pending tasks.
type Task struct {
	ID            string    `json:"id"`
	ProjectID     string    `json:"project_id"`
	Title         string    `json:"title"`
	EstimateHours int       `json:"estimate_hours"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// StatusHistory is one immutable audit entry on a project. FromStatus and
// ToStatus may be equal to record an event that did not advance the project,
// such as a quote approval on an already in-progress project.
type StatusHistory struct {
	ID         int64         `json:"id"`
	ProjectID  string        `json:"project_id"`
	FromStatus ProjectStatus `json:"from_status"`
	ToStatus   ProjectStatus `json:"to_status"`
	ChangedBy  string        `json:"changed_by"`
	ChangedAt  time.Time     `json:"changed_at"`
	Note       string        `json:"note,omitempty"`
}

// OutboxMessage is a serialized event awaiting external dispatch. Rows are
// written in the same transaction as the state change they describe and are
// never mutated except to stamp DispatchedAt.
type OutboxMessage struct {
	ID           string     `json:"id"`
	Topic        string     `json:"topic"`
	Payload      []byte     `json:"payload"`
	CreatedAt    time.Time  `json:"created_at"`
	DispatchedAt *time.Time `json:"dispatched_at,omitempty"`
}
