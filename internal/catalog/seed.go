package catalog

import "github.com/invoicecore/shrike/internal/domain"

// SeedVersion is stamped on the built-in catalogue entries.
const SeedVersion = "1.0.0"

// Seed returns the built-in rule catalogue. Deduction points are
// independently configured weights, not derived from severity. The
// catalogue is seeded into the repository once at system initialization
// and administered through the rules API afterwards.
func Seed() []*domain.ValidationRule {
	rules := []*domain.ValidationRule{
		{RuleID: "DOC-001", Category: domain.CategoryDocumentIntegrity, Severity: 2, Deduction: 5,
			Description: "Invoice date is in a recognizable date format"},
		{RuleID: "DOC-002", Category: domain.CategoryDocumentIntegrity, Severity: 2, Deduction: 3,
			Description: "Customer name is present"},

		{RuleID: "VND-001", Category: domain.CategoryVendor, Severity: 5, Deduction: 20,
			Description: "Vendor name is present"},
		{RuleID: "VND-002", Category: domain.CategoryVendor, Severity: 4, Deduction: 10,
			Description: "Vendor GSTIN matches the 15-character structural pattern"},
		{RuleID: "VND-003", Category: domain.CategoryVendor, Severity: 5, Deduction: 15,
			Description: "Vendor GSTIN is present"},
		{RuleID: "VND-004", Category: domain.CategoryVendor, Severity: 2, Deduction: 5,
			Description: "Vendor PAN matches the 10-character structural pattern"},

		{RuleID: "INV-001", Category: domain.CategoryInvoiceHeader, Severity: 5, Deduction: 20,
			Description: "Invoice number is present"},
		{RuleID: "INV-002", Category: domain.CategoryInvoiceHeader, Severity: 3, Deduction: 8,
			Description: "Invoice date is present"},
		{RuleID: "INV-003", Category: domain.CategoryInvoiceHeader, Severity: 3, Deduction: 8,
			Description: "Invoice date is not in the future"},
		{RuleID: "INV-004", Category: domain.CategoryInvoiceHeader, Severity: 3, Deduction: 8,
			Description: "Due date is on or after the invoice date"},

		{RuleID: "LIT-001", Category: domain.CategoryLineItems, Severity: 5, Deduction: 25,
			Description: "Invoice has at least one line item"},
		{RuleID: "LIT-004", Category: domain.CategoryLineItems, Severity: 4, Deduction: 10,
			Description: "Line amounts reconcile with quantity x unit price x (1 + tax%)"},

		{RuleID: "TAX-002", Category: domain.CategoryTax, Severity: 4, Deduction: 10,
			Description: "GST split (CGST+SGST vs IGST) matches the supply type from GSTIN state codes"},
		{RuleID: "TAX-003", Category: domain.CategoryTax, Severity: 5, Deduction: 15,
			Description: "GST amount reconciles with tax computed from line items"},

		{RuleID: "TTL-001", Category: domain.CategoryTotals, Severity: 5, Deduction: 15,
			Description: "Subtotal reconciles with the sum of pre-tax line amounts"},
		{RuleID: "TTL-003", Category: domain.CategoryTotals, Severity: 5, Deduction: 20,
			Description: "Grand total reconciles with subtotal + GST + round-off"},

		{RuleID: "DUP-001", Category: domain.CategoryDuplicate, Severity: 5, Deduction: 25,
			Description: "No validated or posted invoice exists with the same vendor, number and date"},
		{RuleID: "DUP-002", Category: domain.CategoryDuplicate, Severity: 3, Deduction: 5,
			Description: "Submission is not byte-for-byte identical to the stored invoice"},

		{RuleID: "ANM-001", Category: domain.CategoryAnomaly, Severity: 2, Deduction: 0,
			Description: "Vendor submission rate is within the configured window limit"},
		{RuleID: "ANM-004", Category: domain.CategoryAnomaly, Severity: 1, Deduction: 0,
			Description: "All extraction confidences are above the configured threshold"},

		{RuleID: "COM-001", Category: domain.CategoryCompliance, Severity: 2, Deduction: 5,
			Description: "Grand total is positive",
			Expression:  "grand_total > 0.0"},
	}

	for _, r := range rules {
		r.Active = true
		r.Version = SeedVersion
	}
	return rules
}
