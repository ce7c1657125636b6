// Package domain defines the core interfaces and types for Shrike.
package domain

import (
	"context"
	"time"
)

// Repository defines the interface for data persistence. It covers the
// engine's three collaborators: the existing-record provider, the rule
// catalogue provider and the run persister. All methods require tenantID
// for strict multi-tenancy isolation.
type Repository interface {
	// Invoice operations. SaveInvoice persists the invoice with its line
	// items and totals; the unique key on (vendor, invoice number,
	// invoice date) is enforced by the store, not by engine-side locking.
	SaveInvoice(ctx context.Context, tenantID string, inv *Invoice) error
	GetInvoice(ctx context.Context, tenantID string, invoiceID string) (*Invoice, error)
	FindInvoiceByKey(ctx context.Context, tenantID string, key InvoiceKey) (*Invoice, error)
	UpdateInvoiceStatus(ctx context.Context, tenantID string, invoiceID string, status InvoiceStatus) error

	// Rule catalogue operations
	SaveRule(ctx context.Context, tenantID string, rule *ValidationRule) error
	GetRule(ctx context.Context, tenantID string, ruleID string) (*ValidationRule, error)
	ListRules(ctx context.Context, tenantID string) ([]*ValidationRule, error)

	// Validation run history (append-only)
	SaveRun(ctx context.Context, tenantID string, run *ValidationRun) error
	GetRun(ctx context.Context, tenantID string, runID string) (*ValidationRun, error)
	ListRunsByInvoice(ctx context.Context, tenantID string, invoiceID string) ([]*ValidationRun, error)

	// CountRunsByVendor returns the number of validation attempts recorded
	// for a vendor identifier since the given time. Used by the
	// submission-burst anomaly check.
	CountRunsByVendor(ctx context.Context, tenantID string, vendorID string, since time.Time) (int64, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
