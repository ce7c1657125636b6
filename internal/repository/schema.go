package repository

// Schema definitions for the Shrike database.
// Compatible with both SQLite and PostgreSQL.

// Invoice dates are stored in ISO form so the uniqueness constraint on
// (tenant, vendor key, number, date) matches calendar dates regardless
// of the format they were extracted in.
const schemaInvoices = `
CREATE TABLE IF NOT EXISTS invoices (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    invoice_number TEXT NOT NULL,
    invoice_date TEXT NOT NULL,
    due_date TEXT,
    currency TEXT,
    vendor_key TEXT NOT NULL,
    vendor_name TEXT NOT NULL,
    vendor_gstin TEXT,
    vendor_pan TEXT,
    vendor_address TEXT,
    customer_name TEXT,
    customer_gstin TEXT,
    customer_address TEXT,
    payment_mode TEXT,
    payment_reference TEXT,
    payment_status TEXT,
    status TEXT NOT NULL,
    confidence TEXT,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    UNIQUE (tenant_id, vendor_key, invoice_number, invoice_date)
);

CREATE INDEX IF NOT EXISTS idx_invoices_tenant ON invoices(tenant_id);
CREATE INDEX IF NOT EXISTS idx_invoices_vendor ON invoices(tenant_id, vendor_key);
CREATE INDEX IF NOT EXISTS idx_invoices_status ON invoices(tenant_id, status);
`

const schemaLineItems = `
CREATE TABLE IF NOT EXISTS line_items (
    invoice_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    description TEXT,
    quantity REAL NOT NULL,
    unit_price REAL NOT NULL,
    tax_percent REAL NOT NULL,
    amount REAL NOT NULL,
    PRIMARY KEY (invoice_id, position)
);
`

const schemaInvoiceTotals = `
CREATE TABLE IF NOT EXISTS invoice_totals (
    invoice_id TEXT PRIMARY KEY,
    subtotal REAL NOT NULL,
    gst_amount REAL NOT NULL,
    round_off REAL,
    grand_total REAL NOT NULL,
    cgst REAL,
    sgst REAL,
    igst REAL
);
`

const schemaValidationRules = `
CREATE TABLE IF NOT EXISTS validation_rules (
    rule_id TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    category TEXT NOT NULL,
    description TEXT,
    severity INTEGER NOT NULL,
    deduction REAL NOT NULL DEFAULT 0,
    expression TEXT,
    active INTEGER NOT NULL DEFAULT 1,
    version TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (rule_id, tenant_id, version)
);

CREATE INDEX IF NOT EXISTS idx_validation_rules_tenant ON validation_rules(tenant_id);
CREATE INDEX IF NOT EXISTS idx_validation_rules_active ON validation_rules(tenant_id, active);
`

// Runs are append-only; there is no UPDATE path to this table.
const schemaValidationRuns = `
CREATE TABLE IF NOT EXISTS validation_runs (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    invoice_id TEXT,
    invoice_number TEXT,
    vendor_key TEXT,
    run_at TIMESTAMP NOT NULL,
    engine_version TEXT NOT NULL,
    overall_score REAL NOT NULL,
    status TEXT NOT NULL,
    results TEXT NOT NULL,
    summary TEXT NOT NULL,
    metadata TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_validation_runs_tenant ON validation_runs(tenant_id);
CREATE INDEX IF NOT EXISTS idx_validation_runs_invoice ON validation_runs(tenant_id, invoice_id);
CREATE INDEX IF NOT EXISTS idx_validation_runs_vendor ON validation_runs(tenant_id, vendor_key, run_at);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaInvoices,
		schemaLineItems,
		schemaInvoiceTotals,
		schemaValidationRules,
		schemaValidationRuns,
	}
}
