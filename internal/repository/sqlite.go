package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/autonomia2025/autonomia-suite-landing/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS intake_sessions (
			session_id TEXT PRIMARY KEY,
			step TEXT NOT NULL,
			captured TEXT NOT NULL DEFAULT '{}',
			triage TEXT NOT NULL DEFAULT '{}',
			timeline TEXT NOT NULL DEFAULT '[]',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_intake_sessions_updated ON intake_sessions(updated_at)`,
		`CREATE TABLE IF NOT EXISTS leads (
			lead_id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL,
			phone TEXT,
			company TEXT,
			message TEXT,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_leads_email ON leads(email)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// UpsertSession inserts or replaces a session row.
func (s *SQLiteStore) UpsertSession(ctx context.Context, rec *domain.SessionRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO intake_sessions (session_id, step, captured, triage, timeline, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET
			step = excluded.step,
			captured = excluded.captured,
			triage = excluded.triage,
			timeline = excluded.timeline,
			updated_at = excluded.updated_at`,
		rec.SessionID, string(rec.Step), string(rec.Captured), string(rec.Triage), string(rec.Timeline),
		rec.CreatedAt.UTC(), rec.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}
	return nil
}

// GetSessionRecord retrieves a session row by ID.
func (s *SQLiteStore) GetSessionRecord(ctx context.Context, sessionID string) (*domain.SessionRecord, error) {
	var (
		rec                        domain.SessionRecord
		step                       string
		captured, triage, timeline string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT session_id, step, captured, triage, timeline, created_at, updated_at
		 FROM intake_sessions WHERE session_id = ?`, sessionID).
		Scan(&rec.SessionID, &step, &captured, &triage, &timeline, &rec.CreatedAt, &rec.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	rec.Step = domain.Step(step)
	rec.Captured = []byte(captured)
	rec.Triage = []byte(triage)
	rec.Timeline = []byte(timeline)
	return &rec, nil
}

// CreateLead stores a captured lead.
func (s *SQLiteStore) CreateLead(ctx context.Context, lead *domain.Lead) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO leads (lead_id, name, email, phone, company, message, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		lead.LeadID, lead.Name, lead.Email, lead.Phone, lead.Company, lead.Message, lead.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to create lead: %w", err)
	}
	return nil
}

// GetLead retrieves a lead by ID.
func (s *SQLiteStore) GetLead(ctx context.Context, leadID string) (*domain.Lead, error) {
	var lead domain.Lead
	var phone, company, message sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT lead_id, name, email, phone, company, message, created_at FROM leads WHERE lead_id = ?`, leadID).
		Scan(&lead.LeadID, &lead.Name, &lead.Email, &phone, &company, &message, &lead.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}
	lead.Phone = phone.String
	lead.Company = company.String
	lead.Message = message.String
	return &lead, nil
}
