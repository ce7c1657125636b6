package scoring

import (
	"testing"
	"time"

	"github.com/invoicecore/shrike/internal/domain"
)

func result(ruleID string, cat domain.RuleCategory, status domain.RuleStatus, severity int, deduction float64) domain.ValidationResult {
	return domain.ValidationResult{
		RuleID:          ruleID,
		Category:        cat,
		Status:          status,
		Severity:        severity,
		DeductionPoints: deduction,
	}
}

func score(t *testing.T, results ...domain.ValidationResult) *domain.ValidationRun {
	t.Helper()
	a := NewAggregator(domain.ScoringConfig{FailBelow: 60, WarnBelow: 90})
	return a.Score(&RunInput{
		TenantID:      "t1",
		InvoiceID:     "inv-1",
		InvoiceNumber: "INV-001",
		VendorID:      "27AAPFU0939F1ZV",
		Results:       results,
		StartTime:     time.Now(),
	})
}

func TestAllPassScoresHundred(t *testing.T) {
	run := score(t,
		result("VND-001", domain.CategoryVendor, domain.RulePass, 5, 20),
		result("TTL-003", domain.CategoryTotals, domain.RulePass, 5, 20),
	)
	if run.OverallScore != 100 {
		t.Errorf("score = %.0f, want 100", run.OverallScore)
	}
	if run.Status != domain.RunPass {
		t.Errorf("status = %s, want PASS", run.Status)
	}
	if run.ID == "" || run.EngineVersion != EngineVersion {
		t.Errorf("run identity not stamped: id=%q version=%q", run.ID, run.EngineVersion)
	}
}

func TestOnlyFailuresDeduct(t *testing.T) {
	run := score(t,
		result("DOC-002", domain.CategoryDocumentIntegrity, domain.RuleWarn, 2, 3),
		result("INV-002", domain.CategoryInvoiceHeader, domain.RuleFail, 3, 8),
		result("VND-001", domain.CategoryVendor, domain.RulePass, 5, 20),
	)
	if run.OverallScore != 92 {
		t.Errorf("score = %.0f, want 92 (WARN results must not deduct)", run.OverallScore)
	}
	if run.Status != domain.RunWarn {
		t.Errorf("status = %s, want WARN (a WARN result caps the verdict)", run.Status)
	}
}

func TestFatalFailureForcesFail(t *testing.T) {
	run := score(t,
		result("DUP-002", domain.CategoryDuplicate, domain.RuleFail, 3, 5),
	)
	if run.Status != domain.RunWarn {
		t.Errorf("non-fatal failure at score 95: %s, want WARN", run.Status)
	}

	run = score(t,
		result("VND-001", domain.CategoryVendor, domain.RuleFail, 5, 5),
	)
	if run.OverallScore != 95 {
		t.Errorf("score = %.0f, want 95", run.OverallScore)
	}
	if run.Status != domain.RunFail {
		t.Errorf("severity-5 failure must force FAIL regardless of score, got %s", run.Status)
	}
	if !run.Summary.FatalFailure {
		t.Error("summary should record the fatal failure")
	}
}

func TestScoreThresholds(t *testing.T) {
	// 100 - 12 = 88, below WarnBelow.
	run := score(t,
		result("A", domain.CategoryTax, domain.RuleFail, 4, 12),
	)
	if run.Status != domain.RunWarn {
		t.Errorf("score 88: %s, want WARN", run.Status)
	}

	// 100 - 45 = 55, below FailBelow.
	run = score(t,
		result("A", domain.CategoryTax, domain.RuleFail, 4, 25),
		result("B", domain.CategoryTotals, domain.RuleFail, 4, 20),
	)
	if run.Status != domain.RunFail {
		t.Errorf("score 55: %s, want FAIL", run.Status)
	}
}

func TestScoreClampedToZero(t *testing.T) {
	run := score(t,
		result("A", domain.CategoryTotals, domain.RuleFail, 4, 60),
		result("B", domain.CategoryTax, domain.RuleFail, 4, 60),
	)
	if run.OverallScore != 0 {
		t.Errorf("score = %.0f, want clamp to 0", run.OverallScore)
	}
	if run.Summary.TotalDeduction != 120 {
		t.Errorf("total deduction = %.0f, want the unclamped 120", run.Summary.TotalDeduction)
	}
}

func TestCategorySummary(t *testing.T) {
	run := score(t,
		result("VND-001", domain.CategoryVendor, domain.RulePass, 5, 20),
		result("VND-002", domain.CategoryVendor, domain.RuleWarn, 4, 10),
		result("VND-003", domain.CategoryVendor, domain.RuleFail, 5, 15),
		result("TTL-001", domain.CategoryTotals, domain.RulePass, 5, 15),
	)

	if run.Summary.PassCount != 2 || run.Summary.WarnCount != 1 || run.Summary.FailCount != 1 {
		t.Errorf("counts = %d/%d/%d, want 2/1/1",
			run.Summary.PassCount, run.Summary.WarnCount, run.Summary.FailCount)
	}

	vendor := run.Summary.ByCategory[domain.CategoryVendor]
	if vendor.Pass != 1 || vendor.Warn != 1 || vendor.Fail != 1 {
		t.Errorf("vendor category counts = %+v, want 1/1/1", vendor)
	}
	totals := run.Summary.ByCategory[domain.CategoryTotals]
	if totals.Pass != 1 || totals.Warn != 0 || totals.Fail != 0 {
		t.Errorf("totals category counts = %+v, want 1/0/0", totals)
	}
	if run.Metadata.RulesEvaluated != 4 {
		t.Errorf("rules evaluated = %d, want 4", run.Metadata.RulesEvaluated)
	}
}

func TestThresholdDefaults(t *testing.T) {
	a := NewAggregator(domain.ScoringConfig{})
	run := a.Score(&RunInput{Results: []domain.ValidationResult{
		result("A", domain.CategoryTax, domain.RuleFail, 4, 45),
	}})
	if run.Status != domain.RunFail {
		t.Errorf("score 55 under default thresholds: %s, want FAIL", run.Status)
	}
}
