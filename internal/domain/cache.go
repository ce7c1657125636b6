package domain

import (
	"context"
	"time"
)

// Cache defines the interface for caching operations.
// Supports two-phase caching: local LRU (Community) + Redis (Pro).
// All methods require tenantID for strict multi-tenancy isolation.
type Cache interface {
	// Get retrieves a value from cache.
	// Returns nil, nil if key not found.
	Get(ctx context.Context, tenantID string, key string) ([]byte, error)

	// Set stores a value in cache with expiration.
	Set(ctx context.Context, tenantID string, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from cache.
	Delete(ctx context.Context, tenantID string, key string) error

	// GetInvoiceSummary retrieves a cached invoice summary by invoice ID.
	GetInvoiceSummary(ctx context.Context, tenantID string, invoiceID string) (*InvoiceSummary, error)

	// SetInvoiceSummary caches an invoice summary after validation.
	SetInvoiceSummary(ctx context.Context, tenantID string, invoiceID string, data *InvoiceSummary, ttl time.Duration) error

	// IncrementCounter atomically increments a counter and returns the new
	// value. Used for submission-burst detection.
	IncrementCounter(ctx context.Context, tenantID string, key string, window time.Duration) (int64, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// InvoiceSummary is the compact invoice view kept in cache between
// pipeline stages and for fast duplicate-aware lookups.
type InvoiceSummary struct {
	InvoiceID     string        `json:"invoiceId"`
	VendorID      string        `json:"vendorId"`
	InvoiceNumber string        `json:"invoiceNumber"`
	InvoiceDate   string        `json:"invoiceDate"`
	GrandTotal    float64       `json:"grandTotal"`
	Status        InvoiceStatus `json:"status"`
	LastScore     float64       `json:"lastScore"`
}

// CacheConfig holds configuration for cache initialization.
type CacheConfig struct {
	// Type is the cache type: "memory" or "redis"
	Type string

	// Local LRU cache settings (Community tier)
	LocalMaxSize int
	LocalTTL     time.Duration

	// Redis settings (Pro tier)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Two-phase settings
	EnableTwoPhase bool // If true, check local first, then Redis
}
