package engine

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/invoicecore/shrike/internal/catalog"
	"github.com/invoicecore/shrike/internal/compare"
	"github.com/invoicecore/shrike/internal/domain"
	"github.com/invoicecore/shrike/internal/duplicate"
	"github.com/invoicecore/shrike/internal/repository"
	"github.com/invoicecore/shrike/internal/rules"
	"github.com/invoicecore/shrike/internal/scoring"
)

func newTestEngine(t *testing.T) (*Engine, domain.Repository) {
	t.Helper()

	repo, err := repository.New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "shrike_test.db"),
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	cfg := domain.DefaultConfig()

	cat := catalog.New()
	if err := cat.Load(catalog.Seed()); err != nil {
		t.Fatalf("failed to load catalogue: %v", err)
	}

	evaluator, err := rules.NewEvaluator(cfg.Engine)
	if err != nil {
		t.Fatalf("failed to create evaluator: %v", err)
	}
	if err := evaluator.Reload(cat.All()); err != nil {
		t.Fatalf("failed to compile catalogue: %v", err)
	}

	eng := New(cat, compare.New(cfg.Engine.AmountTolerance), duplicate.NewDetector(repo),
		evaluator, scoring.NewAggregator(cfg.Scoring), nil, cfg.Engine, nil)
	return eng, repo
}

func cleanInvoice(id string) *domain.Invoice {
	return &domain.Invoice{
		ID:            id,
		InvoiceNumber: "INV-2025-001",
		InvoiceDate:   "2025-03-14",
		DueDate:       "2025-04-14",
		Currency:      "INR",
		Vendor: domain.Vendor{
			Name:  "Acme Supplies Pvt Ltd",
			GSTIN: "27AAPFU0939F1ZV",
			PAN:   "AAPFU0939F",
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
			GrandTotal: 590,
		},
	}
}

func TestValidateCleanInvoice(t *testing.T) {
	eng, _ := newTestEngine(t)

	report, err := eng.Validate(context.Background(), "t1", cleanInvoice("inv-1"))
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if report.Status != domain.RunPass {
		t.Errorf("status = %s, want PASS; results: %+v", report.Status, report.RuleResults)
	}
	if report.OverallScore != 100 {
		t.Errorf("score = %.0f, want 100", report.OverallScore)
	}
	if report.InvoiceExists || report.DuplicateByCriteria {
		t.Errorf("fresh invoice flagged as existing: %+v", report)
	}
	if len(report.Comparisons) != len(domain.AllEntityTypes()) {
		t.Errorf("expected %d comparisons, got %d", len(domain.AllEntityTypes()), len(report.Comparisons))
	}
	if report.Run == nil || report.Run.ID != report.RunID {
		t.Error("report should carry the scored run")
	}
	if report.Run.Metadata.RulesEvaluated != len(catalog.Seed()) {
		t.Errorf("rules evaluated = %d, want full catalogue", report.Run.Metadata.RulesEvaluated)
	}
}

func TestValidateRejectsIncompleteInput(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	if _, err := eng.Validate(ctx, "t1", nil); !errors.Is(err, domain.ErrInput) {
		t.Errorf("nil invoice: err = %v, want ErrInput", err)
	}

	inv := cleanInvoice("inv-1")
	inv.Totals = nil
	if _, err := eng.Validate(ctx, "t1", inv); !errors.Is(err, domain.ErrInput) {
		t.Errorf("missing totals: err = %v, want ErrInput", err)
	}

	inv = cleanInvoice("inv-1")
	inv.LineItems = nil
	if _, err := eng.Validate(ctx, "t1", inv); !errors.Is(err, domain.ErrInput) {
		t.Errorf("missing line items collection: err = %v, want ErrInput", err)
	}

	// An empty collection is evaluable; the line-item rules judge it.
	inv = cleanInvoice("inv-1")
	inv.LineItems = []domain.LineItem{}
	inv.Totals = &domain.Totals{}
	report, err := eng.Validate(ctx, "t1", inv)
	if err != nil {
		t.Fatalf("empty line items should still evaluate: %v", err)
	}
	if report.Status == domain.RunPass {
		t.Error("an invoice with no line items should not pass")
	}
}

func TestValidateFlagsDuplicate(t *testing.T) {
	eng, repo := newTestEngine(t)
	ctx := context.Background()

	stored := cleanInvoice("inv-1")
	stored.Status = domain.StatusValidated
	if err := repo.SaveInvoice(ctx, "t1", stored); err != nil {
		t.Fatalf("SaveInvoice: %v", err)
	}

	report, err := eng.Validate(ctx, "t1", cleanInvoice("inv-2"))
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !report.InvoiceExists || !report.DuplicateByCriteria {
		t.Fatalf("duplicate not detected: %+v", report)
	}
	if report.Status != domain.RunFail {
		t.Errorf("status = %s, want FAIL on a validated duplicate", report.Status)
	}
	for _, r := range report.RuleResults {
		if r.RuleID == "DUP-001" && r.Status != domain.RuleFail {
			t.Errorf("DUP-001 = %s, want FAIL", r.Status)
		}
	}
	if report.Summary.ExistingCount == 0 {
		t.Error("comparisons should see the persisted record")
	}
}

func TestValidatePendingReRun(t *testing.T) {
	eng, repo := newTestEngine(t)
	ctx := context.Background()

	stored := cleanInvoice("inv-1")
	stored.Status = domain.StatusPending
	if err := repo.SaveInvoice(ctx, "t1", stored); err != nil {
		t.Fatalf("SaveInvoice: %v", err)
	}

	report, err := eng.Validate(ctx, "t1", cleanInvoice("inv-2"))
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !report.InvoiceExists || report.DuplicateByCriteria {
		t.Fatalf("pending record misclassified: %+v", report)
	}
	// DUP-001 warns on the re-run but the identical resubmission fails
	// DUP-002; either way the run must not pass clean.
	if report.Status == domain.RunPass {
		t.Errorf("identical pending re-run should not pass clean")
	}
}
