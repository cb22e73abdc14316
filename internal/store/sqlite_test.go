package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/autonova/project-service/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func makeTestProject() *model.Project {
	now := time.Now().UTC().Truncate(time.Second)
	return &model.Project{
		ID:         model.NewID(),
		CustomerID: 42,
		Title:      "Brake job",
		Status:     model.ProjectRequested,
		RowVersion: 1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func insertProject(t *testing.T, s *SQLiteStore, p *model.Project) {
	t.Helper()
	err := s.InTx(context.Background(), func(tx Tx) error {
		return tx.InsertProject(context.Background(), p)
	})
	if err != nil {
		t.Fatalf("InsertProject: %v", err)
	}
}

func TestInsertAndGetProject(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := makeTestProject()
	p.RequestToken = "t1"
	insertProject(t, s, p)

	got, err := s.GetProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetProject: %v", err)
	}
	if got.ID != p.ID {
		t.Errorf("ID = %q, want %q", got.ID, p.ID)
	}
	if got.CustomerID != 42 {
		t.Errorf("CustomerID = %d, want 42", got.CustomerID)
	}
	if got.Status != model.ProjectRequested {
		t.Errorf("Status = %q, want %q", got.Status, model.ProjectRequested)
	}
	if got.RequestToken != "t1" {
		t.Errorf("RequestToken = %q, want %q", got.RequestToken, "t1")
	}
	if got.RowVersion != 1 {
		t.Errorf("RowVersion = %d, want 1", got.RowVersion)
	}
	if got.BudgetCents != 0 {
		t.Errorf("BudgetCents = %d, want 0", got.BudgetCents)
	}
}

func TestGetProjectNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetProject(context.Background(), "nonexistent")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetProject error = %v, want ErrNotFound", err)
	}
}

func TestUpdateProjectBumpsRowVersion(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := makeTestProject()
	insertProject(t, s, p)

	err := s.InTx(ctx, func(tx Tx) error {
		p.Status = model.ProjectQuoted
		p.UpdatedAt = time.Now().UTC()
		return tx.UpdateProject(ctx, p)
	})
	if err != nil {
		t.Fatalf("UpdateProject: %v", err)
	}
	if p.RowVersion != 2 {
		t.Errorf("in-memory RowVersion = %d, want 2", p.RowVersion)
	}

	got, err := s.GetProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetProject: %v", err)
	}
	if got.RowVersion != 2 {
		t.Errorf("stored RowVersion = %d, want 2", got.RowVersion)
	}
	if got.Status != model.ProjectQuoted {
		t.Errorf("Status = %q, want %q", got.Status, model.ProjectQuoted)
	}
}

func TestListProjectsFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := makeTestProject()
	b := makeTestProject()
	b.CustomerID = 7
	b.Status = model.ProjectQuoted
	insertProject(t, s, a)
	insertProject(t, s, b)

	all, err := s.ListProjects(ctx, ProjectFilter{})
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("len(all) = %d, want 2", len(all))
	}

	quoted, err := s.ListProjects(ctx, ProjectFilter{Status: model.ProjectQuoted})
	if err != nil {
		t.Fatalf("ListProjects(quoted): %v", err)
	}
	if len(quoted) != 1 || quoted[0].ID != b.ID {
		t.Errorf("quoted filter returned %d projects, want exactly project %s", len(quoted), b.ID)
	}

	cust, err := s.ListProjects(ctx, ProjectFilter{CustomerID: 7})
	if err != nil {
		t.Fatalf("ListProjects(customer): %v", err)
	}
	if len(cust) != 1 || cust[0].ID != b.ID {
		t.Errorf("customer filter returned %d projects, want exactly project %s", len(cust), b.ID)
	}
}

func TestInTxRollback(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := makeTestProject()

	wantErr := errors.New("boom")
	err := s.InTx(ctx, func(tx Tx) error {
		if err := tx.InsertProject(ctx, p); err != nil {
			return err
		}
		if err := tx.InsertStatusHistory(ctx, &model.StatusHistory{
			ProjectID:  p.ID,
			FromStatus: model.ProjectRequested,
			ToStatus:   model.ProjectRequested,
			ChangedBy:  "u1",
			ChangedAt:  time.Now().UTC(),
		}); err != nil {
			return err
		}
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("InTx error = %v, want %v", err, wantErr)
	}

	if _, err := s.GetProject(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("project visible after rollback, err = %v", err)
	}
	history, err := s.ListStatusHistory(ctx, p.ID)
	if err != nil {
		t.Fatalf("ListStatusHistory: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("history rows after rollback = %d, want 0", len(history))
	}
}

func TestQuoteRoundTripAndTokenLookup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := makeTestProject()
	insertProject(t, s, p)

	q := &model.Quote{
		ID:           model.NewID(),
		ProjectID:    p.ID,
		TotalCents:   50_000,
		Status:       model.QuoteDraft,
		IssuedAt:     time.Now().UTC().Truncate(time.Second),
		RequestToken: "q-token",
		RowVersion:   1,
	}
	err := s.InTx(ctx, func(tx Tx) error {
		return tx.InsertQuote(ctx, q)
	})
	if err != nil {
		t.Fatalf("InsertQuote: %v", err)
	}

	got, err := s.GetQuote(ctx, q.ID)
	if err != nil {
		t.Fatalf("GetQuote: %v", err)
	}
	if got.TotalCents != 50_000 || got.Status != model.QuoteDraft {
		t.Errorf("quote = %+v, want draft 50000", got)
	}

	err = s.InTx(ctx, func(tx Tx) error {
		byToken, err := tx.QuoteByToken(ctx, "q-token")
		if err != nil {
			return err
		}
		if byToken.ID != q.ID {
			t.Errorf("QuoteByToken ID = %q, want %q", byToken.ID, q.ID)
		}
		if _, err := tx.QuoteByToken(ctx, "missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("QuoteByToken(missing) error = %v, want ErrNotFound", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("token lookup: %v", err)
	}
}

func TestSingleApprovedQuoteIndex(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := makeTestProject()
	insertProject(t, s, p)

	insert := func(status model.QuoteStatus) error {
		return s.InTx(ctx, func(tx Tx) error {
			return tx.InsertQuote(ctx, &model.Quote{
				ID:         model.NewID(),
				ProjectID:  p.ID,
				TotalCents: 1000,
				Status:     status,
				IssuedAt:   time.Now().UTC(),
				RowVersion: 1,
			})
		})
	}

	if err := insert(model.QuoteApproved); err != nil {
		t.Fatalf("first approved quote: %v", err)
	}
	if err := insert(model.QuoteDraft); err != nil {
		t.Fatalf("draft quote: %v", err)
	}
	if err := insert(model.QuoteApproved); err == nil {
		t.Error("second approved quote for the same project should violate the unique index")
	}
}

func TestRequestTokenUniqueness(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := makeTestProject()
	a.RequestToken = "dup"
	insertProject(t, s, a)

	b := makeTestProject()
	b.RequestToken = "dup"
	err := s.InTx(ctx, func(tx Tx) error {
		return tx.InsertProject(ctx, b)
	})
	if err == nil {
		t.Error("duplicate project request token should violate the unique index")
	}

	// Tokenless rows do not collide.
	c := makeTestProject()
	d := makeTestProject()
	insertProject(t, s, c)
	insertProject(t, s, d)
}

func TestChangeRequestRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := makeTestProject()
	insertProject(t, s, p)

	delta := int64(100_000)
	hours := 5
	due := time.Now().UTC().AddDate(0, 0, 14).Truncate(time.Second)
	cr := &model.ChangeRequest{
		ID:              model.NewID(),
		ProjectID:       p.ID,
		Title:           "Replace rear rotors",
		Description:     "Below minimum thickness.",
		PriceDeltaCents: &delta,
		ExtraHours:      &hours,
		NewDueDate:      &due,
		Status:          model.ChangeSubmitted,
		CreatedBy:       "u1",
		CreatedAt:       time.Now().UTC().Truncate(time.Second),
		RequestToken:    "cr-token",
		RowVersion:      1,
	}
	err := s.InTx(ctx, func(tx Tx) error {
		return tx.InsertChangeRequest(ctx, cr)
	})
	if err != nil {
		t.Fatalf("InsertChangeRequest: %v", err)
	}

	got, err := s.GetChangeRequest(ctx, cr.ID)
	if err != nil {
		t.Fatalf("GetChangeRequest: %v", err)
	}
	if got.PriceDeltaCents == nil || *got.PriceDeltaCents != delta {
		t.Errorf("PriceDeltaCents = %v, want %d", got.PriceDeltaCents, delta)
	}
	if got.ExtraHours == nil || *got.ExtraHours != hours {
		t.Errorf("ExtraHours = %v, want %d", got.ExtraHours, hours)
	}
	if got.NewDueDate == nil || !got.NewDueDate.Equal(due) {
		t.Errorf("NewDueDate = %v, want %v", got.NewDueDate, due)
	}
	if got.DecidedAt != nil || got.DecidedBy != "" {
		t.Errorf("undecided change request carries decision fields: %+v", got)
	}

	err = s.InTx(ctx, func(tx Tx) error {
		now := time.Now().UTC()
		got.Status = model.ChangeApproved
		got.DecidedBy = "u2"
		got.DecidedAt = &now
		return tx.UpdateChangeRequest(ctx, got)
	})
	if err != nil {
		t.Fatalf("UpdateChangeRequest: %v", err)
	}
	if got.RowVersion != 2 {
		t.Errorf("RowVersion after update = %d, want 2", got.RowVersion)
	}
}

func TestGetProjectAggregate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := makeTestProject()
	insertProject(t, s, p)

	err := s.InTx(ctx, func(tx Tx) error {
		if err := tx.InsertQuote(ctx, &model.Quote{
			ID: model.NewID(), ProjectID: p.ID, TotalCents: 100,
			Status: model.QuoteDraft, IssuedAt: time.Now().UTC(), RowVersion: 1,
		}); err != nil {
			return err
		}
		if err := tx.InsertChangeRequest(ctx, &model.ChangeRequest{
			ID: model.NewID(), ProjectID: p.ID, Title: "cr",
			Status: model.ChangeSubmitted, CreatedBy: "u1",
			CreatedAt: time.Now().UTC(), RowVersion: 1,
		}); err != nil {
			return err
		}
		return tx.InsertTask(ctx, &model.Task{
			ID: model.NewID(), ProjectID: p.ID, Title: "task",
			EstimateHours: 2, Status: model.TaskPending, CreatedAt: time.Now().UTC(),
		})
	})
	if err != nil {
		t.Fatalf("insert children: %v", err)
	}

	got, err := s.GetProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetProject: %v", err)
	}
	if len(got.Quotes) != 1 {
		t.Errorf("len(Quotes) = %d, want 1", len(got.Quotes))
	}
	if len(got.ChangeRequests) != 1 {
		t.Errorf("len(ChangeRequests) = %d, want 1", len(got.ChangeRequests))
	}
	if len(got.Tasks) != 1 {
		t.Errorf("len(Tasks) = %d, want 1", len(got.Tasks))
	}
}

func TestOutboxPendingAndMarkDispatched(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	var ids []string
	err := s.InTx(ctx, func(tx Tx) error {
		for i := 0; i < 3; i++ {
			m := &model.OutboxMessage{
				ID:        model.NewID(),
				Topic:     "project.created",
				Payload:   []byte(`{}`),
				CreatedAt: base.Add(time.Duration(i) * time.Second),
			}
			if err := tx.InsertOutbox(ctx, m); err != nil {
				return err
			}
			ids = append(ids, m.ID)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("insert outbox: %v", err)
	}

	pending, err := s.PendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("PendingOutbox: %v", err)
	}
	if len(pending) != 3 {
		t.Fatalf("len(pending) = %d, want 3", len(pending))
	}
	for i, m := range pending {
		if m.ID != ids[i] {
			t.Errorf("pending[%d].ID = %q, want %q (insertion order)", i, m.ID, ids[i])
		}
	}

	if err := s.MarkDispatched(ctx, ids[:2]); err != nil {
		t.Fatalf("MarkDispatched: %v", err)
	}

	pending, err = s.PendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("PendingOutbox after mark: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != ids[2] {
		t.Errorf("pending after mark = %d messages, want only %s", len(pending), ids[2])
	}

	// Marking nothing is a no-op.
	if err := s.MarkDispatched(ctx, nil); err != nil {
		t.Errorf("MarkDispatched(nil): %v", err)
	}
}

func TestStatusHistoryOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := makeTestProject()
	insertProject(t, s, p)

	base := time.Now().UTC().Truncate(time.Second)
	err := s.InTx(ctx, func(tx Tx) error {
		for i, to := range []model.ProjectStatus{model.ProjectRequested, model.ProjectQuoted} {
			if err := tx.InsertStatusHistory(ctx, &model.StatusHistory{
				ProjectID:  p.ID,
				FromStatus: model.ProjectRequested,
				ToStatus:   to,
				ChangedBy:  "u1",
				ChangedAt:  base.Add(time.Duration(i) * time.Second),
				Note:       string(to),
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("insert history: %v", err)
	}

	history, err := s.ListStatusHistory(ctx, p.ID)
	if err != nil {
		t.Fatalf("ListStatusHistory: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("len(history) = %d, want 2", len(history))
	}
	if history[0].ToStatus != model.ProjectQuoted {
		t.Errorf("history[0].ToStatus = %q, want newest first", history[0].ToStatus)
	}
}
