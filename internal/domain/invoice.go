package domain

import (
	"strings"
	"time"
)

// InvoiceStatus is the lifecycle state of a persisted invoice.
type InvoiceStatus string

const (
	StatusPending   InvoiceStatus = "PENDING"
	StatusValidated InvoiceStatus = "VALIDATED"
	StatusPosted    InvoiceStatus = "POSTED"
	StatusFlagged   InvoiceStatus = "FLAGGED"
)

// Invoice is the canonical extracted invoice record.
// LineItems, Totals and Payment are nil when the extractor produced no
// block at all, which is distinct from an empty block.
type Invoice struct {
	ID       string `json:"id,omitempty"`
	TenantID string `json:"tenantId,omitempty"`

	InvoiceNumber string `json:"invoiceNumber"`
	InvoiceDate   string `json:"invoiceDate"`
	DueDate       string `json:"dueDate,omitempty"`
	Currency      string `json:"currency,omitempty"`

	Vendor   Vendor   `json:"vendor"`
	Customer Customer `json:"customer"`

	LineItems []LineItem      `json:"lineItems"`
	Totals    *Totals         `json:"totals"`
	Payment   *PaymentDetails `json:"paymentDetails,omitempty"`

	Status InvoiceStatus `json:"status,omitempty"`

	// Confidence holds per-field extraction confidence (0.0-1.0) reported
	// by the upstream extractor, keyed by field path.
	Confidence map[string]float64 `json:"confidence,omitempty"`

	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// Vendor is the invoice issuer.
type Vendor struct {
	Name    string `json:"name"`
	GSTIN   string `json:"gstin,omitempty"`
	PAN     string `json:"pan,omitempty"`
	Address string `json:"address,omitempty"`
}

// Customer is the invoice recipient.
type Customer struct {
	Name    string `json:"name"`
	GSTIN   string `json:"gstin,omitempty"`
	Address string `json:"address,omitempty"`
}

// LineItem is a single billed position on an invoice.
type LineItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	TaxPercent  float64 `json:"taxPercent"`
	Amount      float64 `json:"amount"`
}

// PreTaxAmount returns the line amount net of tax.
func (li LineItem) PreTaxAmount() float64 {
	return li.Quantity * li.UnitPrice
}

// TaxAmount returns the tax portion of the line.
func (li LineItem) TaxAmount() float64 {
	return li.Quantity * li.UnitPrice * li.TaxPercent / 100
}

// Totals is the invoice-level amounts block. The optional CGST/SGST/IGST
// split, when present, is checked against the supply type derived from the
// vendor and customer GSTIN state prefixes.
type Totals struct {
	Subtotal   float64  `json:"subtotal"`
	GSTAmount  float64  `json:"gstAmount"`
	RoundOff   *float64 `json:"roundOff,omitempty"`
	GrandTotal float64  `json:"grandTotal"`

	CGST *float64 `json:"cgst,omitempty"`
	SGST *float64 `json:"sgst,omitempty"`
	IGST *float64 `json:"igst,omitempty"`
}

// PaymentDetails is the payment block of an invoice.
type PaymentDetails struct {
	Mode      string `json:"mode,omitempty"`
	Reference string `json:"reference,omitempty"`
	Status    string `json:"status,omitempty"` // Paid | Unpaid | Partial
}

// InvoiceKey is the composite uniqueness key for a persisted invoice:
// vendor identifier + invoice number + calendar invoice date (ISO form).
// At most one invoice may exist per key and tenant.
type InvoiceKey struct {
	VendorID      string `json:"vendorId"`
	InvoiceNumber string `json:"invoiceNumber"`
	InvoiceDate   string `json:"invoiceDate"`
}

// Complete reports whether every key component is populated.
func (k InvoiceKey) Complete() bool {
	return k.VendorID != "" && k.InvoiceNumber != "" && k.InvoiceDate != ""
}

// VendorIdentifier resolves the identifier used in the invoice key.
// GSTIN equality is the documented resolution; when the extraction carries
// no GSTIN the case-folded vendor name is used, matching the criteria the
// persistence layer enforces. Name similarity is deliberately not used.
func (v Vendor) VendorIdentifier() string {
	if g := strings.ToUpper(strings.TrimSpace(v.GSTIN)); g != "" {
		return g
	}
	return strings.ToLower(strings.TrimSpace(v.Name))
}

// DuplicateCheck is the outcome of duplicate detection for an invoice key.
type DuplicateCheck struct {
	InvoiceExists bool `json:"invoiceExists"`
	// InvoiceID is set when a record with the same key exists.
	InvoiceID string `json:"invoiceId,omitempty"`
	// DuplicateByCriteria is true when the existing record already has
	// status VALIDATED or POSTED, i.e. a true duplicate submission rather
	// than a re-run of the same pending invoice.
	DuplicateByCriteria bool `json:"duplicateByCriteria"`
}
