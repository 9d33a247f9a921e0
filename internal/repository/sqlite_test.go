package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/autonomia2025/autonomia-suite-landing/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStoreUpsertSession(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	snap := domain.NewSession("s1", created).Snapshot()
	rec, err := domain.NewSessionRecord(snap)
	if err != nil {
		t.Fatalf("NewSessionRecord failed: %v", err)
	}
	if err := store.UpsertSession(ctx, rec); err != nil {
		t.Fatalf("UpsertSession failed: %v", err)
	}

	sess := domain.NewSession("s1", created)
	sess.SetStep(domain.StepReason)
	sess.SetField(domain.FieldName, "Ana")
	sess.Touch(created.Add(time.Minute))
	rec, _ = domain.NewSessionRecord(sess.Snapshot())
	if err := store.UpsertSession(ctx, rec); err != nil {
		t.Fatalf("second UpsertSession failed: %v", err)
	}

	got, err := store.GetSessionRecord(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSessionRecord failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected session record")
	}
	if got.Step != domain.StepReason {
		t.Fatalf("expected step reason, got %s", got.Step)
	}
	var captured map[string]string
	if err := json.Unmarshal(got.Captured, &captured); err != nil {
		t.Fatalf("failed to decode captured: %v", err)
	}
	if captured["name"] != "Ana" {
		t.Fatalf("unexpected captured: %v", captured)
	}
	if !got.CreatedAt.Equal(created) {
		t.Fatalf("created_at changed: %v", got.CreatedAt)
	}
	if !got.UpdatedAt.Equal(created.Add(time.Minute)) {
		t.Fatalf("unexpected updated_at: %v", got.UpdatedAt)
	}
}

func TestSQLiteStoreGetMissingSession(t *testing.T) {
	store := newTestStore(t)
	got, err := store.GetSessionRecord(context.Background(), "missing")
	if err != nil {
		t.Fatalf("GetSessionRecord failed: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil record, got %+v", got)
	}
}

func TestSQLiteStoreLeads(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	lead := &domain.Lead{
		LeadID:    "l1",
		Name:      "Ana",
		Email:     "ana@example.com",
		Company:   "Clinica Sur",
		CreatedAt: time.Now(),
	}
	if err := store.CreateLead(ctx, lead); err != nil {
		t.Fatalf("CreateLead failed: %v", err)
	}
	if err := store.CreateLead(ctx, lead); err == nil {
		t.Fatal("expected duplicate lead to fail")
	}

	got, err := store.GetLead(ctx, "l1")
	if err != nil {
		t.Fatalf("GetLead failed: %v", err)
	}
	if got == nil || got.Email != "ana@example.com" || got.Company != "Clinica Sur" || got.Phone != "" {
		t.Fatalf("unexpected lead: %+v", got)
	}

	missing, err := store.GetLead(ctx, "l2")
	if err != nil || missing != nil {
		t.Fatalf("expected nil lead, got %+v (%v)", missing, err)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open("mysql", ""); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
