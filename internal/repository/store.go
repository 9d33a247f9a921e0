// Package repository persists session snapshots and captured leads.
package repository

import (
	"context"
	"fmt"

	"github.com/autonomia2025/autonomia-suite-landing/internal/domain"
)

// Store is the external persistence of the intake server. Live session
// state is held in memory; the store only receives denormalized upserts.
type Store interface {
	// UpsertSession inserts or replaces the row keyed by session id.
	UpsertSession(ctx context.Context, rec *domain.SessionRecord) error
	// GetSessionRecord returns nil, nil when no row exists.
	GetSessionRecord(ctx context.Context, sessionID string) (*domain.SessionRecord, error)

	CreateLead(ctx context.Context, lead *domain.Lead) error
	GetLead(ctx context.Context, leadID string) (*domain.Lead, error)

	Close() error
}

// Drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open returns the store for driver.
func Open(driver, dsn string) (Store, error) {
	switch driver {
	case DriverSQLite, "":
		return NewSQLiteStore(dsn)
	case DriverPostgres:
		return NewPostgresStore(dsn)
	default:
		return nil, fmt.Errorf("unknown database driver %q", driver)
	}
}
