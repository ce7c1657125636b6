// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/invoicecore/shrike/internal/compare"
	"github.com/invoicecore/shrike/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrDuplicateKey = errors.New("invoice key already exists")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveInvoice stores an invoice with its line items and totals in one
// transaction. The invoice date is normalized to ISO form so the unique
// key matches calendar dates regardless of source format. A second
// invoice with the same (vendor key, number, date) returns
// ErrDuplicateKey; the constraint is enforced by the store, not by
// engine-side locking.
func (r *SQLRepository) SaveInvoice(ctx context.Context, tenantID string, inv *domain.Invoice) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if inv.ID == "" {
		return fmt.Errorf("%w: invoice id is required", ErrInvalidInput)
	}

	confidence, _ := json.Marshal(inv.Confidence)
	now := time.Now().UTC()
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = now
	}
	inv.UpdatedAt = now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var payMode, payRef, payStatus string
	if inv.Payment != nil {
		payMode, payRef, payStatus = inv.Payment.Mode, inv.Payment.Reference, inv.Payment.Status
	}

	query := `
		INSERT INTO invoices (
			id, tenant_id, invoice_number, invoice_date, due_date, currency,
			vendor_key, vendor_name, vendor_gstin, vendor_pan, vendor_address,
			customer_name, customer_gstin, customer_address,
			payment_mode, payment_reference, payment_status,
			status, confidence, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = tx.ExecContext(ctx, r.rebind(query),
		inv.ID, tenantID, inv.InvoiceNumber, compare.NormalizeDate(inv.InvoiceDate),
		inv.DueDate, inv.Currency,
		inv.Vendor.VendorIdentifier(), inv.Vendor.Name, inv.Vendor.GSTIN, inv.Vendor.PAN, inv.Vendor.Address,
		inv.Customer.Name, inv.Customer.GSTIN, inv.Customer.Address,
		payMode, payRef, payStatus,
		inv.Status, string(confidence), inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateKey
		}
		return err
	}

	itemQuery := r.rebind(`
		INSERT INTO line_items (invoice_id, position, description, quantity, unit_price, tax_percent, amount)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	for i, li := range inv.LineItems {
		if _, err := tx.ExecContext(ctx, itemQuery,
			inv.ID, i, li.Description, li.Quantity, li.UnitPrice, li.TaxPercent, li.Amount,
		); err != nil {
			return err
		}
	}

	if inv.Totals != nil {
		totalsQuery := r.rebind(`
			INSERT INTO invoice_totals (invoice_id, subtotal, gst_amount, round_off, grand_total, cgst, sgst, igst)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if _, err := tx.ExecContext(ctx, totalsQuery,
			inv.ID, inv.Totals.Subtotal, inv.Totals.GSTAmount, inv.Totals.RoundOff,
			inv.Totals.GrandTotal, inv.Totals.CGST, inv.Totals.SGST, inv.Totals.IGST,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

const invoiceColumns = `
	id, tenant_id, invoice_number, invoice_date, due_date, currency,
	vendor_name, vendor_gstin, vendor_pan, vendor_address,
	customer_name, customer_gstin, customer_address,
	payment_mode, payment_reference, payment_status,
	status, confidence, created_at, updated_at
`

// GetInvoice retrieves an invoice by ID with tenant isolation.
func (r *SQLRepository) GetInvoice(ctx context.Context, tenantID string, invoiceID string) (*domain.Invoice, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE tenant_id = ? AND id = ?`
	row := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, invoiceID)
	return r.loadInvoice(ctx, row)
}

// FindInvoiceByKey retrieves the invoice with the given composite key.
func (r *SQLRepository) FindInvoiceByKey(ctx context.Context, tenantID string, key domain.InvoiceKey) (*domain.Invoice, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if !key.Complete() {
		return nil, fmt.Errorf("%w: incomplete invoice key", ErrInvalidInput)
	}

	query := `SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE tenant_id = ? AND vendor_key = ? AND invoice_number = ? AND invoice_date = ?`
	row := r.db.QueryRowContext(ctx, r.rebind(query),
		tenantID, key.VendorID, key.InvoiceNumber, compare.NormalizeDate(key.InvoiceDate))
	return r.loadInvoice(ctx, row)
}

func (r *SQLRepository) loadInvoice(ctx context.Context, row *sql.Row) (*domain.Invoice, error) {
	var inv domain.Invoice
	var payment domain.PaymentDetails
	var confidence string

	err := row.Scan(
		&inv.ID, &inv.TenantID, &inv.InvoiceNumber, &inv.InvoiceDate, &inv.DueDate, &inv.Currency,
		&inv.Vendor.Name, &inv.Vendor.GSTIN, &inv.Vendor.PAN, &inv.Vendor.Address,
		&inv.Customer.Name, &inv.Customer.GSTIN, &inv.Customer.Address,
		&payment.Mode, &payment.Reference, &payment.Status,
		&inv.Status, &confidence, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if payment != (domain.PaymentDetails{}) {
		inv.Payment = &payment
	}
	if confidence != "" && confidence != "null" {
		json.Unmarshal([]byte(confidence), &inv.Confidence)
	}

	if err := r.loadLineItems(ctx, &inv); err != nil {
		return nil, err
	}
	if err := r.loadTotals(ctx, &inv); err != nil {
		return nil, err
	}

	return &inv, nil
}

func (r *SQLRepository) loadLineItems(ctx context.Context, inv *domain.Invoice) error {
	query := `
		SELECT description, quantity, unit_price, tax_percent, amount
		FROM line_items
		WHERE invoice_id = ?
		ORDER BY position
	`
	rows, err := r.db.QueryContext(ctx, r.rebind(query), inv.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	inv.LineItems = []domain.LineItem{}
	for rows.Next() {
		var li domain.LineItem
		if err := rows.Scan(&li.Description, &li.Quantity, &li.UnitPrice, &li.TaxPercent, &li.Amount); err != nil {
			return err
		}
		inv.LineItems = append(inv.LineItems, li)
	}
	return rows.Err()
}

func (r *SQLRepository) loadTotals(ctx context.Context, inv *domain.Invoice) error {
	query := `
		SELECT subtotal, gst_amount, round_off, grand_total, cgst, sgst, igst
		FROM invoice_totals
		WHERE invoice_id = ?
	`
	var t domain.Totals
	err := r.db.QueryRowContext(ctx, r.rebind(query), inv.ID).Scan(
		&t.Subtotal, &t.GSTAmount, &t.RoundOff, &t.GrandTotal, &t.CGST, &t.SGST, &t.IGST,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	inv.Totals = &t
	return nil
}

// UpdateInvoiceStatus transitions an invoice's lifecycle status.
func (r *SQLRepository) UpdateInvoiceStatus(ctx context.Context, tenantID string, invoiceID string, status domain.InvoiceStatus) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `UPDATE invoices SET status = ?, updated_at = ? WHERE tenant_id = ? AND id = ?`
	result, err := r.db.ExecContext(ctx, r.rebind(query), status, time.Now().UTC(), tenantID, invoiceID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveRule stores a catalogue rule with tenant isolation.
func (r *SQLRepository) SaveRule(ctx context.Context, tenantID string, rule *domain.ValidationRule) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if rule.RuleID == "" || rule.Version == "" {
		return fmt.Errorf("%w: rule id and version are required", ErrInvalidInput)
	}

	active := 0
	if rule.Active {
		active = 1
	}
	now := time.Now().UTC()

	query := `
		INSERT INTO validation_rules (
			rule_id, tenant_id, category, description, severity, deduction,
			expression, active, version, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(rule_id, tenant_id, version) DO UPDATE SET
			category = excluded.category,
			description = excluded.description,
			severity = excluded.severity,
			deduction = excluded.deduction,
			expression = excluded.expression,
			active = excluded.active,
			updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rule.RuleID, tenantID, rule.Category, rule.Description,
		rule.Severity, rule.Deduction, rule.Expression, active, rule.Version,
		now, now,
	)
	return err
}

// GetRule retrieves the latest version of a catalogue rule.
func (r *SQLRepository) GetRule(ctx context.Context, tenantID string, ruleID string) (*domain.ValidationRule, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT rule_id, tenant_id, category, description, severity, deduction, expression, active, version
		FROM validation_rules
		WHERE tenant_id = ? AND rule_id = ?
		ORDER BY version DESC
		LIMIT 1
	`
	row := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, ruleID)
	rule, err := scanRule(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rule, nil
}

// ListRules retrieves the active catalogue for a tenant in rule id order.
func (r *SQLRepository) ListRules(ctx context.Context, tenantID string) ([]*domain.ValidationRule, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT rule_id, tenant_id, category, description, severity, deduction, expression, active, version
		FROM validation_rules
		WHERE tenant_id = ? AND active = 1
		ORDER BY rule_id
	`
	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []*domain.ValidationRule
	for rows.Next() {
		rule, err := scanRule(rows.Scan)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func scanRule(scan func(dest ...any) error) (*domain.ValidationRule, error) {
	var rule domain.ValidationRule
	var active int
	if err := scan(
		&rule.RuleID, &rule.TenantID, &rule.Category, &rule.Description,
		&rule.Severity, &rule.Deduction, &rule.Expression, &active, &rule.Version,
	); err != nil {
		return nil, err
	}
	rule.Active = active == 1
	return &rule, nil
}

// SaveRun appends a validation run to the history.
func (r *SQLRepository) SaveRun(ctx context.Context, tenantID string, run *domain.ValidationRun) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	results, _ := json.Marshal(run.Results)
	summary, _ := json.Marshal(run.Summary)
	metadata, _ := json.Marshal(run.Metadata)

	query := `
		INSERT INTO validation_runs (
			id, tenant_id, invoice_id, invoice_number, vendor_key, run_at,
			engine_version, overall_score, status, results, summary, metadata
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, r.rebind(query),
		run.ID, tenantID, run.InvoiceID, run.InvoiceNumber, run.VendorID, run.RunAt,
		run.EngineVersion, run.OverallScore, run.Status,
		string(results), string(summary), string(metadata),
	)
	return err
}

// GetRun retrieves a validation run by ID with tenant isolation.
func (r *SQLRepository) GetRun(ctx context.Context, tenantID string, runID string) (*domain.ValidationRun, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, invoice_id, invoice_number, vendor_key, run_at,
			   engine_version, overall_score, status, results, summary, metadata
		FROM validation_runs
		WHERE tenant_id = ? AND id = ?
	`
	row := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, runID)
	run, err := scanRun(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRunsByInvoice retrieves the run history for an invoice, newest first.
func (r *SQLRepository) ListRunsByInvoice(ctx context.Context, tenantID string, invoiceID string) ([]*domain.ValidationRun, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, invoice_id, invoice_number, vendor_key, run_at,
			   engine_version, overall_score, status, results, summary, metadata
		FROM validation_runs
		WHERE tenant_id = ? AND invoice_id = ?
		ORDER BY run_at DESC
	`
	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*domain.ValidationRun
	for rows.Next() {
		run, err := scanRun(rows.Scan)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func scanRun(scan func(dest ...any) error) (*domain.ValidationRun, error) {
	var run domain.ValidationRun
	var results, summary, metadata string
	if err := scan(
		&run.ID, &run.TenantID, &run.InvoiceID, &run.InvoiceNumber, &run.VendorID, &run.RunAt,
		&run.EngineVersion, &run.OverallScore, &run.Status,
		&results, &summary, &metadata,
	); err != nil {
		return nil, err
	}
	json.Unmarshal([]byte(results), &run.Results)
	json.Unmarshal([]byte(summary), &run.Summary)
	json.Unmarshal([]byte(metadata), &run.Metadata)
	return &run, nil
}

// CountRunsByVendor counts validation attempts for a vendor since the
// given time. Used by the submission-burst anomaly check.
func (r *SQLRepository) CountRunsByVendor(ctx context.Context, tenantID string, vendorID string, since time.Time) (int64, error) {
	if tenantID == "" {
		return 0, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT COUNT(*) FROM validation_runs
		WHERE tenant_id = ? AND vendor_key = ? AND run_at >= ?
	`
	var count int64
	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, vendorID, since).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
