// Package compare implements the generic entity comparator: a single
// schema-driven field diff applied to every comparison entity instead of
// one bespoke comparator per entity shape.
package compare

import (
	"github.com/invoicecore/shrike/internal/domain"
)

// Kind selects the equality semantics for a field.
type Kind int

const (
	// KindString compares after trimming whitespace.
	KindString Kind = iota
	// KindIdentifier compares trimmed and case-folded (invoice numbers,
	// GSTIN, PAN).
	KindIdentifier
	// KindNumber compares within an absolute tolerance.
	KindNumber
	// KindDate compares as calendar dates regardless of input format.
	KindDate
)

// FieldSpec describes one comparable field of an entity.
type FieldSpec struct {
	Name      string
	Kind      Kind
	Tolerance float64 // KindNumber only; 0 means use the schema default
}

// Schema describes how to diff one entity type.
type Schema struct {
	Entity domain.EntityType
	Fields []FieldSpec
	// DefaultTolerance applies to numeric fields without their own.
	DefaultTolerance float64
}

// Schemas returns the per-entity field descriptors. tolerance is the
// configured absolute currency tolerance.
func Schemas(tolerance float64) map[domain.EntityType]Schema {
	return map[domain.EntityType]Schema{
		domain.EntityInvoice: {
			Entity:           domain.EntityInvoice,
			DefaultTolerance: tolerance,
			Fields: []FieldSpec{
				{Name: "invoiceNumber", Kind: KindIdentifier},
				{Name: "invoiceDate", Kind: KindDate},
				{Name: "dueDate", Kind: KindDate},
				{Name: "currency", Kind: KindIdentifier},
			},
		},
		domain.EntityVendor: {
			Entity:           domain.EntityVendor,
			DefaultTolerance: tolerance,
			Fields: []FieldSpec{
				{Name: "name", Kind: KindString},
				{Name: "gstin", Kind: KindIdentifier},
				{Name: "pan", Kind: KindIdentifier},
				{Name: "address", Kind: KindString},
			},
		},
		domain.EntityCustomer: {
			Entity:           domain.EntityCustomer,
			DefaultTolerance: tolerance,
			Fields: []FieldSpec{
				{Name: "name", Kind: KindString},
				{Name: "gstin", Kind: KindIdentifier},
				{Name: "address", Kind: KindString},
			},
		},
		domain.EntityLineItems: {
			Entity:           domain.EntityLineItems,
			DefaultTolerance: tolerance,
			Fields: []FieldSpec{
				{Name: "description", Kind: KindString},
				{Name: "quantity", Kind: KindNumber},
				{Name: "unitPrice", Kind: KindNumber},
				{Name: "taxPercent", Kind: KindNumber},
				{Name: "amount", Kind: KindNumber},
			},
		},
		domain.EntityTotals: {
			Entity:           domain.EntityTotals,
			DefaultTolerance: tolerance,
			Fields: []FieldSpec{
				{Name: "subtotal", Kind: KindNumber},
				{Name: "gstAmount", Kind: KindNumber},
				{Name: "roundOff", Kind: KindNumber},
				{Name: "grandTotal", Kind: KindNumber},
			},
		},
		domain.EntityPayment: {
			Entity:           domain.EntityPayment,
			DefaultTolerance: tolerance,
			Fields: []FieldSpec{
				{Name: "mode", Kind: KindString},
				{Name: "reference", Kind: KindIdentifier},
				{Name: "status", Kind: KindString},
			},
		},
	}
}

// HeaderFields flattens the invoice header into a comparable mapping.
func HeaderFields(inv *domain.Invoice) map[string]any {
	return map[string]any{
		"invoiceNumber": inv.InvoiceNumber,
		"invoiceDate":   inv.InvoiceDate,
		"dueDate":       inv.DueDate,
		"currency":      inv.Currency,
	}
}

// VendorFields flattens the vendor block.
func VendorFields(v domain.Vendor) map[string]any {
	return map[string]any{
		"name":    v.Name,
		"gstin":   v.GSTIN,
		"pan":     v.PAN,
		"address": v.Address,
	}
}

// CustomerFields flattens the customer block.
func CustomerFields(c domain.Customer) map[string]any {
	return map[string]any{
		"name":    c.Name,
		"gstin":   c.GSTIN,
		"address": c.Address,
	}
}

// TotalsFields flattens the totals block. A nil block yields nil so the
// comparator classifies the entity as absent rather than zero-valued.
func TotalsFields(t *domain.Totals) map[string]any {
	if t == nil {
		return nil
	}
	m := map[string]any{
		"subtotal":   t.Subtotal,
		"gstAmount":  t.GSTAmount,
		"grandTotal": t.GrandTotal,
	}
	if t.RoundOff != nil {
		m["roundOff"] = *t.RoundOff
	} else {
		m["roundOff"] = nil
	}
	return m
}

// PaymentFields flattens the payment block.
func PaymentFields(p *domain.PaymentDetails) map[string]any {
	if p == nil {
		return nil
	}
	return map[string]any{
		"mode":      p.Mode,
		"reference": p.Reference,
		"status":    p.Status,
	}
}

// LineItemFields flattens each line item into a comparable mapping,
// preserving extraction order.
func LineItemFields(items []domain.LineItem) []map[string]any {
	if items == nil {
		return nil
	}
	out := make([]map[string]any, len(items))
	for i, li := range items {
		out[i] = map[string]any{
			"description": li.Description,
			"quantity":    li.Quantity,
			"unitPrice":   li.UnitPrice,
			"taxPercent":  li.TaxPercent,
			"amount":      li.Amount,
		}
	}
	return out
}
