package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/invoicecore/shrike/internal/domain"
)

func newTestRepo(t *testing.T) domain.Repository {
	t.Helper()
	repo, err := New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "shrike_test.db"),
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testInvoice(id string) *domain.Invoice {
	roundOff := 0.14
	return &domain.Invoice{
		ID:            id,
		InvoiceNumber: "INV-2025-001",
		InvoiceDate:   "2025-03-14",
		DueDate:       "2025-04-14",
		Currency:      "INR",
		Vendor: domain.Vendor{
			Name:    "Acme Supplies Pvt Ltd",
			GSTIN:   "27AAPFU0939F1ZV",
			PAN:     "AAPFU0939F",
			Address: "Mumbai",
		},
		Customer: domain.Customer{
			Name:  "Widget Works",
			GSTIN: "27AABCU9603R1ZX",
		},
		LineItems: []domain.LineItem{
			{Description: "Steel brackets", Quantity: 2, UnitPrice: 100, TaxPercent: 18, Amount: 236},
			{Description: "Mounting kit", Quantity: 1, UnitPrice: 300, TaxPercent: 18, Amount: 354},
		},
		Totals: &domain.Totals{
			Subtotal:   500,
			GSTAmount:  90,
			RoundOff:   &roundOff,
			GrandTotal: 590.14,
		},
		Payment: &domain.PaymentDetails{Mode: "NEFT", Reference: "UTR123", Status: "Unpaid"},
		Status:  domain.StatusPending,
		Confidence: map[string]float64{
			"invoiceNumber": 0.99,
			"vendor.gstin":  0.87,
		},
	}
}

func TestSaveAndGetInvoice(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	inv := testInvoice("inv-1")
	if err := repo.SaveInvoice(ctx, "t1", inv); err != nil {
		t.Fatalf("SaveInvoice: %v", err)
	}

	got, err := repo.GetInvoice(ctx, "t1", "inv-1")
	if err != nil {
		t.Fatalf("GetInvoice: %v", err)
	}
	if got.InvoiceNumber != inv.InvoiceNumber || got.Vendor.GSTIN != inv.Vendor.GSTIN {
		t.Errorf("invoice header mismatch: %+v", got)
	}
	if got.Status != domain.StatusPending {
		t.Errorf("status = %s, want PENDING", got.Status)
	}
	if len(got.LineItems) != 2 || got.LineItems[0].Description != "Steel brackets" {
		t.Errorf("line items not restored in order: %+v", got.LineItems)
	}
	if got.Totals == nil || got.Totals.GrandTotal != 590.14 {
		t.Fatalf("totals not restored: %+v", got.Totals)
	}
	if got.Totals.RoundOff == nil || *got.Totals.RoundOff != 0.14 {
		t.Errorf("round-off not restored: %v", got.Totals.RoundOff)
	}
	if got.Totals.CGST != nil || got.Totals.IGST != nil {
		t.Errorf("absent split fields should stay nil: %+v", got.Totals)
	}
	if got.Payment == nil || got.Payment.Reference != "UTR123" {
		t.Errorf("payment block not restored: %+v", got.Payment)
	}
	if got.Confidence["vendor.gstin"] != 0.87 {
		t.Errorf("confidence not restored: %v", got.Confidence)
	}
}

func TestGetInvoiceNotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.GetInvoice(context.Background(), "t1", "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestFindInvoiceByKeyNormalizesDate(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	inv := testInvoice("inv-1")
	inv.InvoiceDate = "14-Mar-2025"
	if err := repo.SaveInvoice(ctx, "t1", inv); err != nil {
		t.Fatalf("SaveInvoice: %v", err)
	}

	// The same calendar date in a different source format must match.
	got, err := repo.FindInvoiceByKey(ctx, "t1", domain.InvoiceKey{
		VendorID:      "27AAPFU0939F1ZV",
		InvoiceNumber: "INV-2025-001",
		InvoiceDate:   "2025/03/14",
	})
	if err != nil {
		t.Fatalf("FindInvoiceByKey: %v", err)
	}
	if got.ID != "inv-1" {
		t.Errorf("found %s, want inv-1", got.ID)
	}

	_, err = repo.FindInvoiceByKey(ctx, "t1", domain.InvoiceKey{
		VendorID:      "27AAPFU0939F1ZV",
		InvoiceNumber: "INV-2025-001",
		InvoiceDate:   "2025-03-15",
	})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("different date: err = %v, want ErrNotFound", err)
	}
}

func TestDuplicateKeyRejected(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.SaveInvoice(ctx, "t1", testInvoice("inv-1")); err != nil {
		t.Fatalf("SaveInvoice: %v", err)
	}

	// Same vendor, number and calendar date under a new id.
	second := testInvoice("inv-2")
	second.InvoiceDate = "14-03-2025"
	err := repo.SaveInvoice(ctx, "t1", second)
	if !errors.Is(err, ErrDuplicateKey) {
		t.Errorf("err = %v, want ErrDuplicateKey", err)
	}

	// A different tenant is free to hold the same key.
	if err := repo.SaveInvoice(ctx, "t2", testInvoice("inv-3")); err != nil {
		t.Errorf("same key under another tenant: %v", err)
	}
}

func TestTenantIsolation(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.SaveInvoice(ctx, "t1", testInvoice("inv-1")); err != nil {
		t.Fatalf("SaveInvoice: %v", err)
	}

	if _, err := repo.GetInvoice(ctx, "t2", "inv-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-tenant read: err = %v, want ErrNotFound", err)
	}
}

func TestUpdateInvoiceStatus(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.SaveInvoice(ctx, "t1", testInvoice("inv-1")); err != nil {
		t.Fatalf("SaveInvoice: %v", err)
	}

	if err := repo.UpdateInvoiceStatus(ctx, "t1", "inv-1", domain.StatusValidated); err != nil {
		t.Fatalf("UpdateInvoiceStatus: %v", err)
	}
	got, err := repo.GetInvoice(ctx, "t1", "inv-1")
	if err != nil {
		t.Fatalf("GetInvoice: %v", err)
	}
	if got.Status != domain.StatusValidated {
		t.Errorf("status = %s, want VALIDATED", got.Status)
	}

	if err := repo.UpdateInvoiceStatus(ctx, "t1", "missing", domain.StatusFlagged); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestRuleRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	rule := &domain.ValidationRule{
		RuleID:      "COM-001",
		Category:    domain.CategoryCompliance,
		Description: "Grand total is positive",
		Severity:    2,
		Deduction:   5,
		Expression:  "grand_total > 0.0",
		Active:      true,
		Version:     "1.0.0",
	}
	if err := repo.SaveRule(ctx, "*", rule); err != nil {
		t.Fatalf("SaveRule: %v", err)
	}

	got, err := repo.GetRule(ctx, "*", "COM-001")
	if err != nil {
		t.Fatalf("GetRule: %v", err)
	}
	if got.Expression != rule.Expression || got.Severity != 2 || !got.Active {
		t.Errorf("rule not restored: %+v", got)
	}

	// Saving the same id and version again is an upsert.
	rule.Description = "Grand total must be positive"
	if err := repo.SaveRule(ctx, "*", rule); err != nil {
		t.Fatalf("SaveRule upsert: %v", err)
	}
	got, err = repo.GetRule(ctx, "*", "COM-001")
	if err != nil {
		t.Fatalf("GetRule: %v", err)
	}
	if got.Description != "Grand total must be positive" {
		t.Errorf("upsert did not apply: %q", got.Description)
	}
}

func TestListRulesReturnsActiveSorted(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	save := func(id string, active bool) {
		t.Helper()
		err := repo.SaveRule(ctx, "*", &domain.ValidationRule{
			RuleID: id, Category: domain.CategoryVendor, Severity: 3, Version: "1.0.0", Active: active,
		})
		if err != nil {
			t.Fatalf("SaveRule(%s): %v", id, err)
		}
	}
	save("VND-002", true)
	save("VND-001", true)
	save("VND-009", false)

	rules, err := repo.ListRules(ctx, "*")
	if err != nil {
		t.Fatalf("ListRules: %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("expected 2 active rules, got %d", len(rules))
	}
	if rules[0].RuleID != "VND-001" || rules[1].RuleID != "VND-002" {
		t.Errorf("rules not in id order: %s, %s", rules[0].RuleID, rules[1].RuleID)
	}
}

func testRun(id, invoiceID string, runAt time.Time) *domain.ValidationRun {
	return &domain.ValidationRun{
		ID:            id,
		TenantID:      "t1",
		InvoiceID:     invoiceID,
		InvoiceNumber: "INV-2025-001",
		VendorID:      "27AAPFU0939F1ZV",
		RunAt:         runAt,
		EngineVersion: "shrike-1.0",
		OverallScore:  88,
		Status:        domain.RunWarn,
		Results: []domain.ValidationResult{
			{RuleID: "VND-002", Category: domain.CategoryVendor, Status: domain.RuleWarn, Severity: 4, DeductionPoints: 10},
		},
		Summary: domain.RunSummary{WarnCount: 1},
	}
}

func TestRunHistory(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

	if err := repo.SaveRun(ctx, "t1", testRun("run-1", "inv-1", base)); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if err := repo.SaveRun(ctx, "t1", testRun("run-2", "inv-1", base.Add(time.Hour))); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	got, err := repo.GetRun(ctx, "t1", "run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.OverallScore != 88 || got.Status != domain.RunWarn {
		t.Errorf("run not restored: score %.0f status %s", got.OverallScore, got.Status)
	}
	if len(got.Results) != 1 || got.Results[0].RuleID != "VND-002" {
		t.Errorf("results not restored: %+v", got.Results)
	}
	if got.Summary.WarnCount != 1 {
		t.Errorf("summary not restored: %+v", got.Summary)
	}

	runs, err := repo.ListRunsByInvoice(ctx, "t1", "inv-1")
	if err != nil {
		t.Fatalf("ListRunsByInvoice: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != "run-2" {
		t.Errorf("runs should be newest first, got %s", runs[0].ID)
	}

	if _, err := repo.GetRun(ctx, "t1", "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestCountRunsByVendor(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := repo.SaveRun(ctx, "t1", testRun("run-1", "inv-1", now.Add(-2*time.Hour))); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if err := repo.SaveRun(ctx, "t1", testRun("run-2", "inv-1", now.Add(-10*time.Minute))); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if err := repo.SaveRun(ctx, "t1", testRun("run-3", "inv-2", now.Add(-5*time.Minute))); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	count, err := repo.CountRunsByVendor(ctx, "t1", "27AAPFU0939F1ZV", now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("CountRunsByVendor: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2 inside the window", count)
	}

	count, err = repo.CountRunsByVendor(ctx, "t1", "29AAACB2894G1ZL", now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("CountRunsByVendor: %v", err)
	}
	if count != 0 {
		t.Errorf("count for other vendor = %d, want 0", count)
	}
}
