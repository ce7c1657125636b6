package rules

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/invoicecore/shrike/internal/compare"
	"github.com/invoicecore/shrike/internal/domain"
)

// builtinChecks maps catalogue rule ids to their Go evaluators.
func builtinChecks() map[string]CheckFunc {
	return map[string]CheckFunc{
		"DOC-001": checkDateFormat,
		"DOC-002": checkCustomerName,
		"VND-001": checkVendorName,
		"VND-002": checkVendorGSTINFormat,
		"VND-003": checkVendorGSTINPresent,
		"VND-004": checkVendorPANFormat,
		"INV-001": checkInvoiceNumber,
		"INV-002": checkInvoiceDatePresent,
		"INV-003": checkInvoiceDateNotFuture,
		"INV-004": checkDueDateOrder,
		"LIT-001": checkLineItemsPresent,
		"LIT-004": checkLineAmounts,
		"TAX-002": checkGSTSplit,
		"TAX-003": checkGSTAmount,
		"TTL-001": checkSubtotal,
		"TTL-003": checkGrandTotal,
		"DUP-001": checkDuplicate,
		"DUP-002": checkIdenticalResubmission,
		"ANM-001": checkSubmissionBurst,
		"ANM-004": checkConfidence,
	}
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func checkDateFormat(e *Evaluator, in *Input, rule *domain.ValidationRule) domain.ValidationResult {
	d := in.Invoice.InvoiceDate
	if blank(d) {
		// Presence is INV-002's concern.
		return passResult(rule, "")
	}
	if _, ok := compare.ParseDate(d); !ok {
		return failResult(rule, fmt.Sprintf("invoice date %q is not a recognizable date", d),
			&domain.ResultMeta{Field: "invoiceDate", Actual: d})
	}
	return passResult(rule, "")
}

func checkCustomerName(e *Evaluator, in *Input, rule *domain.ValidationRule) domain.ValidationResult {
	if blank(in.Invoice.Customer.Name) {
		return warnResult(rule, "customer name is missing",
			&domain.ResultMeta{Field: "customer.name"})
	}
	return passResult(rule, "")
}

func checkVendorName(e *Evaluator, in *Input, rule *domain.ValidationRule) domain.ValidationResult {
	if blank(in.Invoice.Vendor.Name) {
		return failResult(rule, "vendor name is missing",
			&domain.ResultMeta{Field: "vendor.name"})
	}
	return passResult(rule, "")
}

func checkVendorGSTINFormat(e *Evaluator, in *Input, rule *domain.ValidationRule) domain.ValidationResult {
	g := in.Invoice.Vendor.GSTIN
	if blank(g) {
		// Absence is VND-003's concern; format cannot be verified here.
		return warnResult(rule, "vendor GSTIN not provided, format unverified", nil)
	}
	if !ValidGSTIN(g) {
		return failResult(rule, fmt.Sprintf("vendor GSTIN %q does not match the 15-character structure", g),
			&domain.ResultMeta{Field: "vendor.gstin", Actual: g})
	}
	return passResult(rule, "")
}

func checkVendorGSTINPresent(e *Evaluator, in *Input, rule *domain.ValidationRule) domain.ValidationResult {
	if blank(in.Invoice.Vendor.GSTIN) {
		return failResult(rule, "vendor GSTIN is missing",
			&domain.ResultMeta{Field: "vendor.gstin"})
	}
	return passResult(rule, "")
}

func checkVendorPANFormat(e *Evaluator, in *Input, rule *domain.ValidationRule) domain.ValidationResult {
	p := in.Invoice.Vendor.PAN
	if blank(p) {
		return passResult(rule, "vendor PAN not provided")
	}
	if !ValidPAN(p) {
		return failResult(rule, fmt.Sprintf("vendor PAN %q does not match the 10-character structure", p),
			&domain.ResultMeta{Field: "vendor.pan", Actual: p})
	}
	return passResult(rule, "")
}

func checkInvoiceNumber(e *Evaluator, in *Input, rule *domain.ValidationRule) domain.ValidationResult {
	if blank(in.Invoice.InvoiceNumber) {
		return failResult(rule, "invoice number is missing",
			&domain.ResultMeta{Field: "invoiceNumber"})
	}
	return passResult(rule, "")
}

func checkInvoiceDatePresent(e *Evaluator, in *Input, rule *domain.ValidationRule) domain.ValidationResult {
	if blank(in.Invoice.InvoiceDate) {
		return failResult(rule, "invoice date is missing",
			&domain.ResultMeta{Field: "invoiceDate"})
	}
	return passResult(rule, "")
}

func checkInvoiceDateNotFuture(e *Evaluator, in *Input, rule *domain.ValidationRule) domain.ValidationResult {
	d := in.Invoice.InvoiceDate
	if blank(d) {
		return passResult(rule, "")
	}
	t, ok := compare.ParseDate(d)
	if !ok {
		return warnResult(rule, fmt.Sprintf("invoice date %q not parseable, future check skipped", d), nil)
	}
	today := e.nowFn().UTC().Truncate(24 * time.Hour)
	if t.After(today) {
		return failResult(rule, fmt.Sprintf("invoice date %s is in the future", t.Format("2006-01-02")),
			&domain.ResultMeta{Field: "invoiceDate", Actual: d})
	}
	return passResult(rule, "")
}

func checkDueDateOrder(e *Evaluator, in *Input, rule *domain.ValidationRule) domain.ValidationResult {
	if blank(in.Invoice.DueDate) || blank(in.Invoice.InvoiceDate) {
		return passResult(rule, "")
	}
	invDate, ok1 := compare.ParseDate(in.Invoice.InvoiceDate)
	dueDate, ok2 := compare.ParseDate(in.Invoice.DueDate)
	if !ok1 || !ok2 {
		return warnResult(rule, "dates not parseable, ordering check skipped", nil)
	}
	if dueDate.Before(invDate) {
		return failResult(rule,
			fmt.Sprintf("due date %s precedes invoice date %s",
				dueDate.Format("2006-01-02"), invDate.Format("2006-01-02")),
			&domain.ResultMeta{Field: "dueDate", Expected: invDate.Format("2006-01-02"), Actual: dueDate.Format("2006-01-02")})
	}
	return passResult(rule, "")
}

func checkLineItemsPresent(e *Evaluator, in *Input, rule *domain.ValidationRule) domain.ValidationResult {
	if len(in.Invoice.LineItems) == 0 {
		return failResult(rule, "invoice has no line items",
			&domain.ResultMeta{Field: "lineItems"})
	}
	return passResult(rule, "")
}

func checkLineAmounts(e *Evaluator, in *Input, rule *domain.ValidationRule) domain.ValidationResult {
	tol := e.cfg.AmountTolerance
	var meta *domain.ResultMeta
	mismatches := 0
	for i, li := range in.Invoice.LineItems {
		expected := li.PreTaxAmount() + li.TaxAmount()
		if math.Abs(expected-li.Amount) > tol {
			mismatches++
			if meta == nil {
				idx := i
				meta = &domain.ResultMeta{
					Field:     "amount",
					ItemIndex: &idx,
					Expected:  round2(expected),
					Actual:    li.Amount,
				}
			}
		}
	}
	if mismatches > 0 {
		return failResult(rule, fmt.Sprintf("%d line item(s) fail amount reconciliation", mismatches), meta)
	}
	return passResult(rule, "")
}

// checkGSTSplit verifies the CGST/SGST vs IGST split against the supply
// type derived from the vendor and customer GSTIN state prefixes.
// Same state means intra-state supply (CGST+SGST), different states mean
// inter-state supply (IGST).
func checkGSTSplit(e *Evaluator, in *Input, rule *domain.ValidationRule) domain.ValidationResult {
	t := in.Invoice.Totals
	if t == nil || (t.CGST == nil && t.SGST == nil && t.IGST == nil) {
		return passResult(rule, "no GST split reported")
	}

	vendorState := StateCode(in.Invoice.Vendor.GSTIN)
	customerState := StateCode(in.Invoice.Customer.GSTIN)
	if vendorState == "" || customerState == "" {
		return warnResult(rule, "GSTIN state codes unresolvable, supply type unknown", nil)
	}

	tol := e.cfg.AmountTolerance
	cgst := deref(t.CGST)
	sgst := deref(t.SGST)
	igst := deref(t.IGST)

	if vendorState == customerState {
		if igst > tol {
			return failResult(rule, "intra-state supply must not carry IGST",
				&domain.ResultMeta{Field: "igst", Expected: 0.0, Actual: igst})
		}
		if math.Abs(cgst+sgst-t.GSTAmount) > tol {
			return failResult(rule, "CGST+SGST does not reconcile with the GST amount",
				&domain.ResultMeta{Field: "gstAmount", Expected: t.GSTAmount, Actual: round2(cgst + sgst)})
		}
		return passResult(rule, "")
	}

	if cgst > tol || sgst > tol {
		return failResult(rule, "inter-state supply must not carry CGST/SGST",
			&domain.ResultMeta{Field: "cgst", Expected: 0.0, Actual: round2(cgst + sgst)})
	}
	if math.Abs(igst-t.GSTAmount) > tol {
		return failResult(rule, "IGST does not reconcile with the GST amount",
			&domain.ResultMeta{Field: "igst", Expected: t.GSTAmount, Actual: igst})
	}
	return passResult(rule, "")
}

func checkGSTAmount(e *Evaluator, in *Input, rule *domain.ValidationRule) domain.ValidationResult {
	t := in.Invoice.Totals
	if t == nil {
		return failResult(rule, "totals block is missing", &domain.ResultMeta{Field: "totals"})
	}
	var expected float64
	for _, li := range in.Invoice.LineItems {
		expected += li.TaxAmount()
	}
	if math.Abs(expected-t.GSTAmount) > e.cfg.AmountTolerance {
		return failResult(rule,
			fmt.Sprintf("GST amount %.2f does not reconcile with computed tax %.2f", t.GSTAmount, expected),
			&domain.ResultMeta{Field: "gstAmount", Expected: round2(expected), Actual: t.GSTAmount})
	}
	return passResult(rule, "")
}

func checkSubtotal(e *Evaluator, in *Input, rule *domain.ValidationRule) domain.ValidationResult {
	t := in.Invoice.Totals
	if t == nil {
		return failResult(rule, "totals block is missing", &domain.ResultMeta{Field: "totals"})
	}
	var expected float64
	for _, li := range in.Invoice.LineItems {
		expected += li.PreTaxAmount()
	}
	if math.Abs(expected-t.Subtotal) > e.cfg.AmountTolerance {
		return failResult(rule,
			fmt.Sprintf("subtotal %.2f does not reconcile with line items %.2f", t.Subtotal, expected),
			&domain.ResultMeta{Field: "subtotal", Expected: round2(expected), Actual: t.Subtotal})
	}
	return passResult(rule, "")
}

func checkGrandTotal(e *Evaluator, in *Input, rule *domain.ValidationRule) domain.ValidationResult {
	t := in.Invoice.Totals
	if t == nil {
		return failResult(rule, "totals block is missing", &domain.ResultMeta{Field: "totals"})
	}
	expected := t.Subtotal + t.GSTAmount + deref(t.RoundOff)
	if math.Abs(expected-t.GrandTotal) > e.cfg.AmountTolerance {
		return failResult(rule,
			fmt.Sprintf("grand total %.2f does not reconcile with subtotal+GST+roundOff %.2f", t.GrandTotal, expected),
			&domain.ResultMeta{Field: "grandTotal", Expected: round2(expected), Actual: t.GrandTotal})
	}
	return passResult(rule, "")
}

func checkDuplicate(e *Evaluator, in *Input, rule *domain.ValidationRule) domain.ValidationResult {
	if in.Duplicate.DuplicateByCriteria {
		return failResult(rule,
			fmt.Sprintf("a validated invoice with the same vendor, number and date already exists (id %s)", in.Duplicate.InvoiceID),
			&domain.ResultMeta{Field: "invoiceNumber", Actual: in.Invoice.InvoiceNumber})
	}
	if in.Duplicate.InvoiceExists {
		return warnResult(rule,
			fmt.Sprintf("a pending invoice with the same key exists (id %s), treating as re-run", in.Duplicate.InvoiceID), nil)
	}
	return passResult(rule, "")
}

func checkIdenticalResubmission(e *Evaluator, in *Input, rule *domain.ValidationRule) domain.ValidationResult {
	if !in.Duplicate.InvoiceExists || len(in.Comparisons) == 0 {
		return passResult(rule, "")
	}
	for _, c := range in.Comparisons {
		if c.ExistsInDB && !c.IsIdentical {
			return passResult(rule, "")
		}
	}
	return failResult(rule, "submission is identical to the stored invoice in every entity", nil)
}

func checkSubmissionBurst(e *Evaluator, in *Input, rule *domain.ValidationRule) domain.ValidationResult {
	burst := int64(e.cfg.SubmissionBurst)
	if burst > 0 && in.SubmissionCount > burst {
		return warnResult(rule,
			fmt.Sprintf("%d submissions for this vendor in the last %ds exceeds the limit of %d",
				in.SubmissionCount, e.cfg.SubmissionWindowSecs, burst), nil)
	}
	return passResult(rule, "")
}

func checkConfidence(e *Evaluator, in *Input, rule *domain.ValidationRule) domain.ValidationResult {
	threshold := e.cfg.ConfidenceThreshold
	if threshold <= 0 || len(in.Invoice.Confidence) == 0 {
		return passResult(rule, "")
	}

	var low []string
	lowest := 1.0
	lowestField := ""
	for field, conf := range in.Invoice.Confidence {
		if conf < threshold {
			low = append(low, field)
			if conf < lowest {
				lowest = conf
				lowestField = field
			}
		}
	}
	if len(low) == 0 {
		return passResult(rule, "")
	}
	sort.Strings(low)
	return warnResult(rule,
		fmt.Sprintf("%d field(s) below confidence threshold %.2f: %s", len(low), threshold, strings.Join(low, ", ")),
		&domain.ResultMeta{Field: lowestField, Expected: threshold, Actual: lowest})
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
