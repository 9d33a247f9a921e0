package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/autonomia2025/autonomia-suite-landing/internal/domain"
)

// sessionRow is the gorm model of a persisted session.
type sessionRow struct {
	SessionID string `gorm:"primaryKey;size:36"`
	Step      string `gorm:"size:16;not null"`
	Captured  string `gorm:"type:jsonb;not null"`
	Triage    string `gorm:"type:jsonb;not null"`
	Timeline  string `gorm:"type:jsonb;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time `gorm:"index;autoUpdateTime:false"`
}

func (sessionRow) TableName() string { return "intake_sessions" }

// leadRow is the gorm model of a captured lead.
type leadRow struct {
	LeadID    string `gorm:"primaryKey;size:36"`
	Name      string `gorm:"size:120;not null"`
	Email     string `gorm:"size:254;not null;index"`
	Phone     string `gorm:"size:40"`
	Company   string `gorm:"size:120"`
	Message   string
	CreatedAt time.Time
}

func (leadRow) TableName() string { return "leads" }

// PostgresStore implements Store using gorm on PostgreSQL.
type PostgresStore struct {
	db *gorm.DB
}

// NewPostgresStore connects to dsn and migrates the schema.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.AutoMigrate(&sessionRow{}, &leadRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// Close closes the underlying connection pool.
func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// UpsertSession inserts or replaces a session row.
func (s *PostgresStore) UpsertSession(ctx context.Context, rec *domain.SessionRecord) error {
	row := sessionRow{
		SessionID: rec.SessionID,
		Step:      string(rec.Step),
		Captured:  string(rec.Captured),
		Triage:    string(rec.Triage),
		Timeline:  string(rec.Timeline),
		CreatedAt: rec.CreatedAt.UTC(),
		UpdatedAt: rec.UpdatedAt.UTC(),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"step", "captured", "triage", "timeline", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}
	return nil
}

// GetSessionRecord retrieves a session row by ID.
func (s *PostgresStore) GetSessionRecord(ctx context.Context, sessionID string) (*domain.SessionRecord, error) {
	var row sessionRow
	err := s.db.WithContext(ctx).First(&row, "session_id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &domain.SessionRecord{
		SessionID: row.SessionID,
		Step:      domain.Step(row.Step),
		Captured:  []byte(row.Captured),
		Triage:    []byte(row.Triage),
		Timeline:  []byte(row.Timeline),
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}, nil
}

// CreateLead stores a captured lead.
func (s *PostgresStore) CreateLead(ctx context.Context, lead *domain.Lead) error {
	row := leadRow{
		LeadID:    lead.LeadID,
		Name:      lead.Name,
		Email:     lead.Email,
		Phone:     lead.Phone,
		Company:   lead.Company,
		Message:   lead.Message,
		CreatedAt: lead.CreatedAt.UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to create lead: %w", err)
	}
	return nil
}

// GetLead retrieves a lead by ID.
func (s *PostgresStore) GetLead(ctx context.Context, leadID string) (*domain.Lead, error) {
	var row leadRow
	err := s.db.WithContext(ctx).First(&row, "lead_id = ?", leadID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}
	return &domain.Lead{
		LeadID:    row.LeadID,
		Name:      row.Name,
		Email:     row.Email,
		Phone:     row.Phone,
		Company:   row.Company,
		Message:   row.Message,
		CreatedAt: row.CreatedAt,
	}, nil
}
