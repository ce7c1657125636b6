package compare

import (
	"testing"

	"github.com/invoicecore/shrike/internal/domain"
)

func testInvoice() *domain.Invoice {
	roundOff := 0.14
	return &domain.Invoice{
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
			RoundOff:   &roundOff,
			GrandTotal: 590.14,
		},
	}
}

func TestRecordNewEntity(t *testing.T) {
	c := New(0.01)

	result := c.Record(domain.EntityVendor, nil, VendorFields(testInvoice().Vendor))
	if result.ExistsInDB {
		t.Error("entity without a persisted snapshot should not exist in db")
	}
	if result.IsIdentical {
		t.Error("new entity must not be classified as identical")
	}
	if len(result.Differences) != 0 {
		t.Errorf("new entity should have no differences, got %d", len(result.Differences))
	}
}

func TestRecordIdentical(t *testing.T) {
	c := New(0.01)
	inv := testInvoice()

	result := c.Record(domain.EntityVendor, VendorFields(inv.Vendor), VendorFields(inv.Vendor))
	if !result.ExistsInDB {
		t.Error("expected ExistsInDB")
	}
	if !result.IsIdentical {
		t.Errorf("identical snapshots should compare identical, diffs: %v", result.Differences)
	}
}

func TestRecordIdentifierFolding(t *testing.T) {
	c := New(0.01)
	existing := map[string]any{"invoiceNumber": "inv-2025-001", "invoiceDate": "2025-03-14", "dueDate": "", "currency": "INR"}
	new := map[string]any{"invoiceNumber": "INV-2025-001", "invoiceDate": "14-Mar-2025", "dueDate": "", "currency": "inr"}

	result := c.Record(domain.EntityInvoice, existing, new)
	if !result.IsIdentical {
		t.Errorf("case-folded identifiers and equivalent dates should match, diffs: %v", result.Differences)
	}
}

func TestRecordNumericTolerance(t *testing.T) {
	c := New(0.01)
	inv := testInvoice()

	existing := TotalsFields(inv.Totals)
	near := *inv.Totals
	near.GrandTotal = 590.145 // within 0.01

	result := c.Record(domain.EntityTotals, existing, TotalsFields(&near))
	if !result.IsIdentical {
		t.Errorf("amounts within tolerance should match, diffs: %v", result.Differences)
	}

	far := *inv.Totals
	far.GrandTotal = 591
	result = c.Record(domain.EntityTotals, existing, TotalsFields(&far))
	if result.IsIdentical {
		t.Error("amounts outside tolerance should differ")
	}
	if len(result.Differences) != 1 || result.Differences[0].Field != "grandTotal" {
		t.Errorf("expected single grandTotal diff, got %v", result.Differences)
	}
}

func TestListPositionalPairing(t *testing.T) {
	c := New(0.01)
	inv := testInvoice()
	existing := LineItemFields(inv.LineItems)

	changed := make([]domain.LineItem, len(inv.LineItems))
	copy(changed, inv.LineItems)
	changed[1].Quantity = 3
	changed[1].Amount = 1062

	result := c.List(domain.EntityLineItems, existing, LineItemFields(changed))
	if result.IsIdentical {
		t.Error("changed line item should produce differences")
	}
	for _, d := range result.Differences {
		if d.ItemIndex == nil || *d.ItemIndex != 1 {
			t.Errorf("diff %s should carry item index 1, got %v", d.Field, d.ItemIndex)
		}
	}
	if len(result.Differences) != 2 {
		t.Errorf("expected quantity and amount diffs, got %v", result.Differences)
	}
}

func TestListAddedAndRemovedTail(t *testing.T) {
	c := New(0.01)
	inv := testInvoice()
	existing := LineItemFields(inv.LineItems)

	longer := append([]domain.LineItem{}, inv.LineItems...)
	longer = append(longer, domain.LineItem{Description: "Freight", Quantity: 1, UnitPrice: 50, Amount: 50})

	result := c.List(domain.EntityLineItems, existing, LineItemFields(longer))
	if len(result.Differences) != 1 || result.Differences[0].Field != "item_added" {
		t.Fatalf("expected one item_added diff, got %v", result.Differences)
	}
	if *result.Differences[0].ItemIndex != 2 {
		t.Errorf("added item index = %d, want 2", *result.Differences[0].ItemIndex)
	}

	result = c.List(domain.EntityLineItems, existing, LineItemFields(inv.LineItems[:1]))
	if len(result.Differences) != 1 || result.Differences[0].Field != "item_removed" {
		t.Fatalf("expected one item_removed diff, got %v", result.Differences)
	}
}

func TestInvoiceComparisonSet(t *testing.T) {
	c := New(0.01)
	inv := testInvoice()

	// No persisted record: every entity is new.
	results := c.Invoice(nil, inv)
	if len(results) != len(domain.AllEntityTypes()) {
		t.Fatalf("expected %d comparison results, got %d", len(domain.AllEntityTypes()), len(results))
	}
	summary := domain.SummarizeComparisons(results)
	if summary.NewCount != len(results) || summary.ExistingCount != 0 {
		t.Errorf("fresh invoice summary = %+v", summary)
	}

	// Identical resubmission. Payment is absent on both sides so it stays
	// classified as new.
	results = c.Invoice(inv, inv)
	summary = domain.SummarizeComparisons(results)
	if summary.DifferentCount != 0 {
		t.Errorf("identical resubmission should have no different entities: %+v", summary)
	}
	if summary.ExistingCount != 5 || summary.NewCount != 1 {
		t.Errorf("expected 5 existing entities and 1 absent, got %+v", summary)
	}

	// A changed grand total shows up on exactly one entity.
	changed := *inv
	totals := *inv.Totals
	totals.GrandTotal = 600
	changed.Totals = &totals
	results = c.Invoice(inv, &changed)
	summary = domain.SummarizeComparisons(results)
	if summary.DifferentCount != 1 || summary.TotalDifferences != 1 {
		t.Errorf("expected exactly one differing entity, got %+v", summary)
	}
}
