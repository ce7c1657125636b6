package domain

import (
	"time"
)

// RunStatus is the overall verdict of a validation run.
type RunStatus string

const (
	RunPass RunStatus = "PASS"
	RunWarn RunStatus = "WARN"
	RunFail RunStatus = "FAIL"
)

// ValidationRun is one evaluation attempt for an invoice. Runs are
// append-only: once produced they are never modified.
type ValidationRun struct {
	ID            string    `json:"id"`
	TenantID      string    `json:"tenantId"`
	InvoiceID     string    `json:"invoiceId,omitempty"`
	InvoiceNumber string    `json:"invoiceNumber,omitempty"`
	VendorID      string    `json:"vendorId,omitempty"`
	RunAt         time.Time `json:"runAt"`
	EngineVersion string    `json:"engineVersion"`

	OverallScore float64   `json:"overallScore"`
	Status       RunStatus `json:"status"`

	Results []ValidationResult `json:"results"`
	Summary RunSummary         `json:"summary"`

	Metadata RunMetadata `json:"metadata"`
}

// RunSummary holds per-category and per-status result counts for a run.
type RunSummary struct {
	PassCount int `json:"passCount"`
	WarnCount int `json:"warnCount"`
	FailCount int `json:"failCount"`

	// ByCategory maps a rule category to its status counts.
	ByCategory map[RuleCategory]StatusCounts `json:"byCategory,omitempty"`

	TotalDeduction float64 `json:"totalDeduction"`
	FatalFailure   bool    `json:"fatalFailure"`
}

// StatusCounts tallies rule results by status.
type StatusCounts struct {
	Pass int `json:"pass"`
	Warn int `json:"warn"`
	Fail int `json:"fail"`
}

// RunMetadata carries processing information for a run.
type RunMetadata struct {
	TraceID        string `json:"traceId,omitempty"`
	CompareMs      int64  `json:"compareMs"`
	RulesMs        int64  `json:"rulesMs"`
	TotalMs        int64  `json:"totalMs"`
	RulesEvaluated int    `json:"rulesEvaluated"`
}

// ValidationReport is the engine's full output for one validation attempt:
// duplicate detection, comparisons, rule results and the scored run.
type ValidationReport struct {
	RunID               string             `json:"runId"`
	InvoiceExists       bool               `json:"invoiceExists"`
	InvoiceID           string             `json:"invoiceId,omitempty"`
	DuplicateByCriteria bool               `json:"duplicateByCriteria"`
	Comparisons         []ComparisonResult `json:"comparisons"`
	Summary             ComparisonSummary  `json:"summary"`
	RuleResults         []ValidationResult `json:"ruleResults"`
	OverallScore        float64            `json:"overallScore"`
	Status              RunStatus          `json:"status"`
	Run                 *ValidationRun     `json:"-"`
}
