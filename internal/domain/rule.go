package domain

// RuleCategory groups catalogue rules by the aspect of the invoice they check.
type RuleCategory string

const (
	CategoryDocumentIntegrity RuleCategory = "DOCUMENT_INTEGRITY"
	CategoryVendor            RuleCategory = "VENDOR"
	CategoryInvoiceHeader     RuleCategory = "INVOICE_HEADER"
	CategoryLineItems         RuleCategory = "LINE_ITEMS"
	CategoryTax               RuleCategory = "TAX"
	CategoryTotals            RuleCategory = "TOTALS"
	CategoryDuplicate         RuleCategory = "DUPLICATE"
	CategoryAnomaly           RuleCategory = "ANOMALY"
	CategoryCompliance        RuleCategory = "COMPLIANCE"
)

// SeverityFatal marks a rule whose failure forces the overall run to FAIL
// regardless of score.
const SeverityFatal = 5

// ValidationRule is an immutable catalogue entry. Entries are seeded at
// system initialization and mutated only by administrative catalogue
// updates, never by a validation run.
type ValidationRule struct {
	RuleID      string       `json:"ruleId"`
	TenantID    string       `json:"tenantId,omitempty"`
	Category    RuleCategory `json:"category"`
	Description string       `json:"description"`

	// Severity is 1-5; 5 is fatal.
	Severity int `json:"severity"`

	// Deduction is the configured weight subtracted from the score when
	// the rule fails. It is an independent per-rule weight, not derived
	// from severity.
	Deduction float64 `json:"deduction"`

	// Expression holds a CEL expression for COMPLIANCE rules that have no
	// built-in evaluator. Empty for built-in rules.
	Expression string `json:"expression,omitempty"`

	Active  bool   `json:"active"`
	Version string `json:"version"`
}

// RuleStatus is the verdict of a single rule evaluation.
type RuleStatus string

const (
	RulePass RuleStatus = "PASS"
	RuleWarn RuleStatus = "WARN"
	RuleFail RuleStatus = "FAIL"
)

// ValidationResult is the outcome of one rule within one run. Severity and
// deduction are snapshotted from the catalogue entry in force at evaluation
// time so later catalogue changes never alter historical results.
type ValidationResult struct {
	RuleID          string       `json:"ruleId"`
	Category        RuleCategory `json:"category"`
	Status          RuleStatus   `json:"status"`
	Message         string       `json:"message,omitempty"`
	Severity        int          `json:"severity"`
	DeductionPoints float64      `json:"deductionPoints"`
	Meta            *ResultMeta  `json:"meta,omitempty"`
}

// ResultMeta carries structured expected-vs-actual detail for a result.
type ResultMeta struct {
	Field     string `json:"field,omitempty"`
	ItemIndex *int   `json:"itemIndex,omitempty"`
	Expected  any    `json:"expected,omitempty"`
	Actual    any    `json:"actual,omitempty"`
}
