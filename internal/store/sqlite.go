package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/autonova/project-service/internal/model"

	_ "modernc.org/sqlite"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS projects (
	    id            TEXT PRIMARY KEY,
	    customer_id   INTEGER NOT NULL,
	    title         TEXT NOT NULL,
	    status        TEXT NOT NULL,
	    budget_cents  INTEGER NOT NULL DEFAULT 0,
	    due_date      DATETIME,
	    request_token TEXT,
	    row_version   INTEGER NOT NULL DEFAULT 1,
	    created_at    DATETIME NOT NULL,
	    updated_at    DATETIME NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_projects_request_token
	    ON projects(request_token) WHERE request_token IS NOT NULL`,
	`CREATE INDEX IF NOT EXISTS idx_projects_customer_created
	    ON projects(customer_id, created_at)`,

	`CREATE TABLE IF NOT EXISTS quotes (
	    id            TEXT PRIMARY KEY,
	    project_id    TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	    total_cents   INTEGER NOT NULL,
	    status        TEXT NOT NULL,
	    issued_at     DATETIME NOT NULL,
	    approved_at   DATETIME,
	    rejected_at   DATETIME,
	    approved_by   TEXT,
	    rejected_by   TEXT,
	    request_token TEXT,
	    row_version   INTEGER NOT NULL DEFAULT 1
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_quotes_request_token
	    ON quotes(request_token) WHERE request_token IS NOT NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_quotes_one_approved
	    ON quotes(project_id) WHERE status = 'approved'`,

	`CREATE TABLE IF NOT EXISTS change_requests (
	    id                TEXT PRIMARY KEY,
	    project_id        TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	    title             TEXT NOT NULL,
	    description       TEXT,
	    price_delta_cents INTEGER,
	    extra_hours       INTEGER,
	    new_due_date      DATETIME,
	    status            TEXT NOT NULL,
	    created_by        TEXT NOT NULL,
	    created_at        DATETIME NOT NULL,
	    decided_by        TEXT,
	    decided_at        DATETIME,
	    request_token     TEXT,
	    row_version       INTEGER NOT NULL DEFAULT 1
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_change_requests_request_token
	    ON change_requests(request_token) WHERE request_token IS NOT NULL`,

	`CREATE TABLE IF NOT EXISTS tasks (
	    id             TEXT PRIMARY KEY,
	    project_id     TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	    title          TEXT NOT NULL,
	    estimate_hours INTEGER NOT NULL,
	    status         TEXT NOT NULL,
	    created_at     DATETIME NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS status_history (
	    id          INTEGER PRIMARY KEY AUTOINCREMENT,
	    project_id  TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	    from_status TEXT NOT NULL,
	    to_status   TEXT NOT NULL,
	    changed_by  TEXT NOT NULL,
	    changed_at  DATETIME NOT NULL,
	    note        TEXT
	)`,

	`CREATE TABLE IF NOT EXISTS outbox (
	    id            TEXT PRIMARY KEY,
	    topic         TEXT NOT NULL,
	    payload       BLOB NOT NULL,
	    created_at    DATETIME NOT NULL,
	    dispatched_at DATETIME
	)`,
	`CREATE INDEX IF NOT EXISTS idx_outbox_pending
	    ON outbox(created_at) WHERE dispatched_at IS NULL`,
}

// Compile-time interface satisfaction checks.
var (
	_ Store = (*SQLiteStore)(nil)
	_ Tx    = (*sqliteTx)(nil)
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the SQLite database at dbPath and creates the schema.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite allows one writer at a time, and a second pooled connection
	// would see a separate :memory: database.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %s: %w", pragma, err)
		}
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// InTx runs fn inside a single transaction. Any error from fn rolls the
// whole transaction back, including audit and outbox rows already written.
func (s *SQLiteStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(&sqliteTx{tx: tx}); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// querier is the subset of database/sql shared by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// sqliteTx implements Tx over an open *sql.Tx.
type sqliteTx struct {
	tx *sql.Tx
}

// GetProject retrieves the full project aggregate: the project row plus its
// tasks, quotes and change requests.
func (s *SQLiteStore) GetProject(ctx context.Context, id string) (*model.Project, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin read tx: %w", err)
	}
	defer tx.Rollback()

	p, err := getProject(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if p.Tasks, err = listTasks(ctx, tx, id); err != nil {
		return nil, err
	}
	if p.Quotes, err = listQuotes(ctx, tx, id); err != nil {
		return nil, err
	}
	if p.ChangeRequests, err = listChangeRequests(ctx, tx, id); err != nil {
		return nil, err
	}
	return p, nil
}

// ListProjects returns project rows matching the filter, newest first.
// Owned collections are not loaded.
func (s *SQLiteStore) ListProjects(ctx context.Context, f ProjectFilter) ([]*model.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects`
	var conds []string
	var args []any
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.CustomerID != 0 {
		conds = append(conds, "customer_id = ?")
		args = append(args, f.CustomerID)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []*model.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	return projects, nil
}

// ListStatusHistory returns a project's audit trail, newest first.
func (s *SQLiteStore) ListStatusHistory(ctx context.Context, projectID string) ([]*model.StatusHistory, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, project_id, from_status, to_status, changed_by, changed_at, COALESCE(note, '')
		FROM status_history WHERE project_id = ? ORDER BY changed_at DESC, id DESC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list status history: %w", err)
	}
	defer rows.Close()

	var entries []*model.StatusHistory
	for rows.Next() {
		h := &model.StatusHistory{}
		if err := rows.Scan(&h.ID, &h.ProjectID, &h.FromStatus, &h.ToStatus, &h.ChangedBy, &h.ChangedAt, &h.Note); err != nil {
			return nil, fmt.Errorf("scan status history: %w", err)
		}
		entries = append(entries, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status history: %w", err)
	}
	return entries, nil
}

func (s *SQLiteStore) GetQuote(ctx context.Context, id string) (*model.Quote, error) {
	return getQuote(ctx, s.db, id)
}

func (s *SQLiteStore) ListQuotes(ctx context.Context, projectID string) ([]*model.Quote, error) {
	return listQuotes(ctx, s.db, projectID)
}

func (s *SQLiteStore) GetChangeRequest(ctx context.Context, id string) (*model.ChangeRequest, error) {
	return getChangeRequest(ctx, s.db, id)
}

func (s *SQLiteStore) ListChangeRequests(ctx context.Context, projectID string) ([]*model.ChangeRequest, error) {
	return listChangeRequests(ctx, s.db, projectID)
}

func (s *SQLiteStore) ListTasks(ctx context.Context, projectID string) ([]*model.Task, error) {
	return listTasks(ctx, s.db, projectID)
}

// PendingOutbox returns up to limit undispatched outbox messages in insertion
// order.
func (s *SQLiteStore) PendingOutbox(ctx context.Context, limit int) ([]*model.OutboxMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, topic, payload, created_at, dispatched_at
		FROM outbox WHERE dispatched_at IS NULL ORDER BY created_at, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("pending outbox: %w", err)
	}
	defer rows.Close()

	var messages []*model.OutboxMessage
	for rows.Next() {
		m := &model.OutboxMessage{}
		var dispatched sql.NullTime
		if err := rows.Scan(&m.ID, &m.Topic, &m.Payload, &m.CreatedAt, &dispatched); err != nil {
			return nil, fmt.Errorf("scan outbox message: %w", err)
		}
		if dispatched.Valid {
			m.DispatchedAt = &dispatched.Time
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox: %w", err)
	}
	return messages, nil
}

// MarkDispatched stamps the given outbox messages with the current time.
func (s *SQLiteStore) MarkDispatched(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	now := time.Now().UTC()
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids)+1)
	args = append(args, now)
	for _, id := range ids {
		args = append(args, id)
	}
	if _, err := s.db.ExecContext(ctx,
		"UPDATE outbox SET dispatched_at = ? WHERE id IN ("+placeholders+")", args...); err != nil {
		return fmt.Errorf("mark dispatched: %w", err)
	}
	return nil
}

// Tx methods.

func (t *sqliteTx) GetProject(ctx context.Context, id string) (*model.Project, error) {
	return getProject(ctx, t.tx, id)
}

func (t *sqliteTx) GetQuote(ctx context.Context, id string) (*model.Quote, error) {
	return getQuote(ctx, t.tx, id)
}

func (t *sqliteTx) GetChangeRequest(ctx context.Context, id string) (*model.ChangeRequest, error) {
	return getChangeRequest(ctx, t.tx, id)
}

func (t *sqliteTx) ProjectByToken(ctx context.Context, token string) (*model.Project, error) {
	row := t.tx.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE request_token = ?`, token)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

func (t *sqliteTx) QuoteByToken(ctx context.Context, token string) (*model.Quote, error) {
	row := t.tx.QueryRowContext(ctx,
		`SELECT `+quoteColumns+` FROM quotes WHERE request_token = ?`, token)
	q, err := scanQuote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return q, err
}

func (t *sqliteTx) ChangeRequestByToken(ctx context.Context, token string) (*model.ChangeRequest, error) {
	row := t.tx.QueryRowContext(ctx,
		`SELECT `+changeRequestColumns+` FROM change_requests WHERE request_token = ?`, token)
	cr, err := scanChangeRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return cr, err
}

func (t *sqliteTx) HasApprovedQuote(ctx context.Context, projectID string) (bool, error) {
	var n int
	err := t.tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM quotes WHERE project_id = ? AND status = ?`,
		projectID, string(model.QuoteApproved)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("count approved quotes: %w", err)
	}
	return n > 0, nil
}

func (t *sqliteTx) InsertProject(ctx context.Context, p *model.Project) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO projects (id, customer_id, title, status, budget_cents, due_date,
			request_token, row_version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.CustomerID, p.Title, string(p.Status), p.BudgetCents, nullTime(p.DueDate),
		nullStr(p.RequestToken), int64(p.RowVersion), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

// UpdateProject writes the mutable project fields and bumps the row version.
func (t *sqliteTx) UpdateProject(ctx context.Context, p *model.Project) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE projects SET status = ?, budget_cents = ?, due_date = ?, updated_at = ?,
			row_version = row_version + 1
		WHERE id = ?`,
		string(p.Status), p.BudgetCents, nullTime(p.DueDate), p.UpdatedAt, p.ID)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}
	p.RowVersion++
	return nil
}

func (t *sqliteTx) InsertQuote(ctx context.Context, q *model.Quote) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO quotes (id, project_id, total_cents, status, issued_at, approved_at,
			rejected_at, approved_by, rejected_by, request_token, row_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		q.ID, q.ProjectID, q.TotalCents, string(q.Status), q.IssuedAt, nullTime(q.ApprovedAt),
		nullTime(q.RejectedAt), nullStr(q.ApprovedBy), nullStr(q.RejectedBy),
		nullStr(q.RequestToken), int64(q.RowVersion))
	if err != nil {
		return fmt.Errorf("insert quote: %w", err)
	}
	return nil
}

func (t *sqliteTx) UpdateQuote(ctx context.Context, q *model.Quote) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE quotes SET status = ?, approved_at = ?, rejected_at = ?, approved_by = ?,
			rejected_by = ?, request_token = ?, row_version = row_version + 1
		WHERE id = ?`,
		string(q.Status), nullTime(q.ApprovedAt), nullTime(q.RejectedAt), nullStr(q.ApprovedBy),
		nullStr(q.RejectedBy), nullStr(q.RequestToken), q.ID)
	if err != nil {
		return fmt.Errorf("update quote: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}
	q.RowVersion++
	return nil
}

func (t *sqliteTx) InsertChangeRequest(ctx context.Context, cr *model.ChangeRequest) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO change_requests (id, project_id, title, description, price_delta_cents,
			extra_hours, new_due_date, status, created_by, created_at, decided_by,
			decided_at, request_token, row_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cr.ID, cr.ProjectID, cr.Title, nullStr(cr.Description), nullI64(cr.PriceDeltaCents),
		nullInt(cr.ExtraHours), nullTime(cr.NewDueDate), string(cr.Status), cr.CreatedBy,
		cr.CreatedAt, nullStr(cr.DecidedBy), nullTime(cr.DecidedAt),
		nullStr(cr.RequestToken), int64(cr.RowVersion))
	if err != nil {
		return fmt.Errorf("insert change request: %w", err)
	}
	return nil
}

func (t *sqliteTx) UpdateChangeRequest(ctx context.Context, cr *model.ChangeRequest) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE change_requests SET status = ?, decided_by = ?, decided_at = ?,
			request_token = ?, row_version = row_version + 1
		WHERE id = ?`,
		string(cr.Status), nullStr(cr.DecidedBy), nullTime(cr.DecidedAt),
		nullStr(cr.RequestToken), cr.ID)
	if err != nil {
		return fmt.Errorf("update change request: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}
	cr.RowVersion++
	return nil
}

func (t *sqliteTx) InsertTask(ctx context.Context, task *model.Task) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO tasks (id, project_id, title, estimate_hours, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		task.ID, task.ProjectID, task.Title, task.EstimateHours, task.Status, task.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (t *sqliteTx) InsertStatusHistory(ctx context.Context, h *model.StatusHistory) error {
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO status_history (project_id, from_status, to_status, changed_by, changed_at, note)
		VALUES (?, ?, ?, ?, ?, ?)`,
		h.ProjectID, string(h.FromStatus), string(h.ToStatus), h.ChangedBy, h.ChangedAt, nullStr(h.Note))
	if err != nil {
		return fmt.Errorf("insert status history: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		h.ID = id
	}
	return nil
}

func (t *sqliteTx) InsertOutbox(ctx context.Context, m *model.OutboxMessage) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO outbox (id, topic, payload, created_at, dispatched_at)
		VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.Topic, m.Payload, m.CreatedAt, nullTime(m.DispatchedAt))
	if err != nil {
		return fmt.Errorf("insert outbox message: %w", err)
	}
	return nil
}

// Shared query helpers.

const projectColumns = `id, customer_id, title, status, budget_cents, due_date,
	request_token, row_version, created_at, updated_at`

const quoteColumns = `id, project_id, total_cents, status, issued_at, approved_at,
	rejected_at, approved_by, rejected_by, request_token, row_version`

const changeRequestColumns = `id, project_id, title, description, price_delta_cents,
	extra_hours, new_due_date, status, created_by, created_at, decided_by, decided_at,
	request_token, row_version`

// scanner matches both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanProject(row scanner) (*model.Project, error) {
	p := &model.Project{}
	var due sql.NullTime
	var token sql.NullString
	var version int64
	if err := row.Scan(&p.ID, &p.CustomerID, &p.Title, &p.Status, &p.BudgetCents, &due,
		&token, &version, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan project: %w", err)
	}
	if due.Valid {
		p.DueDate = &due.Time
	}
	p.RequestToken = token.String
	p.RowVersion = model.Version(version)
	return p, nil
}

func scanQuote(row scanner) (*model.Quote, error) {
	q := &model.Quote{}
	var approvedAt, rejectedAt sql.NullTime
	var approvedBy, rejectedBy, token sql.NullString
	var version int64
	if err := row.Scan(&q.ID, &q.ProjectID, &q.TotalCents, &q.Status, &q.IssuedAt,
		&approvedAt, &rejectedAt, &approvedBy, &rejectedBy, &token, &version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan quote: %w", err)
	}
	if approvedAt.Valid {
		q.ApprovedAt = &approvedAt.Time
	}
	if rejectedAt.Valid {
		q.RejectedAt = &rejectedAt.Time
	}
	q.ApprovedBy = approvedBy.String
	q.RejectedBy = rejectedBy.String
	q.RequestToken = token.String
	q.RowVersion = model.Version(version)
	return q, nil
}

func scanChangeRequest(row scanner) (*model.ChangeRequest, error) {
	cr := &model.ChangeRequest{}
	var description, decidedBy, token sql.NullString
	var priceDelta sql.NullInt64
	var extraHours sql.NullInt64
	var newDue, decidedAt sql.NullTime
	var version int64
	if err := row.Scan(&cr.ID, &cr.ProjectID, &cr.Title, &description, &priceDelta,
		&extraHours, &newDue, &cr.Status, &cr.CreatedBy, &cr.CreatedAt, &decidedBy,
		&decidedAt, &token, &version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan change request: %w", err)
	}
	cr.Description = description.String
	if priceDelta.Valid {
		cr.PriceDeltaCents = &priceDelta.Int64
	}
	if extraHours.Valid {
		hours := int(extraHours.Int64)
		cr.ExtraHours = &hours
	}
	if newDue.Valid {
		cr.NewDueDate = &newDue.Time
	}
	cr.DecidedBy = decidedBy.String
	if decidedAt.Valid {
		cr.DecidedAt = &decidedAt.Time
	}
	cr.RequestToken = token.String
	cr.RowVersion = model.Version(version)
	return cr, nil
}

func getProject(ctx context.Context, q querier, id string) (*model.Project, error) {
	row := q.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

func getQuote(ctx context.Context, q querier, id string) (*model.Quote, error) {
	row := q.QueryRowContext(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE id = ?`, id)
	quote, err := scanQuote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return quote, err
}

func getChangeRequest(ctx context.Context, q querier, id string) (*model.ChangeRequest, error) {
	row := q.QueryRowContext(ctx, `SELECT `+changeRequestColumns+` FROM change_requests WHERE id = ?`, id)
	cr, err := scanChangeRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return cr, err
}

func listQuotes(ctx context.Context, q querier, projectID string) ([]*model.Quote, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+quoteColumns+` FROM quotes WHERE project_id = ? ORDER BY issued_at DESC, id DESC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list quotes: %w", err)
	}
	defer rows.Close()

	var quotes []*model.Quote
	for rows.Next() {
		quote, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, quote)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quotes: %w", err)
	}
	return quotes, nil
}

func listChangeRequests(ctx context.Context, q querier, projectID string) ([]*model.ChangeRequest, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+changeRequestColumns+` FROM change_requests WHERE project_id = ? ORDER BY created_at DESC, id DESC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list change requests: %w", err)
	}
	defer rows.Close()

	var crs []*model.ChangeRequest
	for rows.Next() {
		cr, err := scanChangeRequest(rows)
		if err != nil {
			return nil, err
		}
		crs = append(crs, cr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate change requests: %w", err)
	}
	return crs, nil
}

func listTasks(ctx context.Context, q querier, projectID string) ([]*model.Task, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, project_id, title, estimate_hours, status, created_at
		FROM tasks WHERE project_id = ? ORDER BY created_at, id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*model.Task
	for rows.Next() {
		task := &model.Task{}
		if err := rows.Scan(&task.ID, &task.ProjectID, &task.Title, &task.EstimateHours,
			&task.Status, &task.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return tasks, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullI64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
