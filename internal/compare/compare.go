package compare

import (
	"github.com/invoicecore/shrike/internal/domain"
)

// Comparator diffs persisted entity snapshots against newly extracted
// ones. It is a pure function over its inputs: no I/O, no shared state.
type Comparator struct {
	schemas map[domain.EntityType]Schema
}

// New creates a comparator using the given absolute numeric tolerance.
func New(tolerance float64) *Comparator {
	if tolerance <= 0 {
		tolerance = 0.01
	}
	return &Comparator{schemas: Schemas(tolerance)}
}

// Record diffs a scalar entity (header, vendor, customer, totals,
// payment). existing is nil when no persisted snapshot exists, in which
// case the entity is classified as new with an empty diff list.
func (c *Comparator) Record(entity domain.EntityType, existing, new map[string]any) domain.ComparisonResult {
	schema := c.schemas[entity]

	result := domain.ComparisonResult{
		EntityType:  entity,
		Differences: []domain.FieldDiff{},
		NewData:     new,
	}

	if existing == nil {
		return result
	}

	result.ExistsInDB = true
	result.ExistingData = existing

	for _, spec := range schema.Fields {
		ev := existing[spec.Name]
		nv := new[spec.Name]
		if spec.Kind == KindDate {
			ev = NormalizeDate(toString(ev))
			nv = NormalizeDate(toString(nv))
		}
		if !fieldsEqual(spec, schema.DefaultTolerance, ev, nv) {
			result.Differences = append(result.Differences, domain.FieldDiff{
				Field:    spec.Name,
				Existing: ev,
				New:      nv,
			})
		}
	}

	result.IsIdentical = len(result.Differences) == 0
	return result
}

// List diffs a list entity (line items). Pairing is positional by index;
// when the lists have different lengths the unmatched tail is classified
// as added or removed rather than silently dropped. Reordered items
// therefore produce per-field differences on their positions, which is
// the documented behaviour.
func (c *Comparator) List(entity domain.EntityType, existing, new []map[string]any) domain.ComparisonResult {
	schema := c.schemas[entity]

	result := domain.ComparisonResult{
		EntityType:  entity,
		Differences: []domain.FieldDiff{},
		NewData:     map[string]any{"items": new, "count": len(new)},
	}

	if existing == nil {
		return result
	}

	result.ExistsInDB = len(existing) > 0
	result.ExistingData = map[string]any{"items": existing, "count": len(existing)}

	matched := len(existing)
	if len(new) < matched {
		matched = len(new)
	}

	for i := 0; i < matched; i++ {
		idx := i
		for _, spec := range schema.Fields {
			ev := existing[i][spec.Name]
			nv := new[i][spec.Name]
			if !fieldsEqual(spec, schema.DefaultTolerance, ev, nv) {
				result.Differences = append(result.Differences, domain.FieldDiff{
					Field:     spec.Name,
					ItemIndex: &idx,
					Existing:  ev,
					New:       nv,
				})
			}
		}
	}

	for i := matched; i < len(new); i++ {
		idx := i
		result.Differences = append(result.Differences, domain.FieldDiff{
			Field:     "item_added",
			ItemIndex: &idx,
			Existing:  nil,
			New:       new[i],
		})
	}
	for i := matched; i < len(existing); i++ {
		idx := i
		result.Differences = append(result.Differences, domain.FieldDiff{
			Field:     "item_removed",
			ItemIndex: &idx,
			Existing:  existing[i],
			New:       nil,
		})
	}

	result.IsIdentical = result.ExistsInDB && len(result.Differences) == 0
	return result
}

// Invoice runs the full comparison set for an extracted invoice against
// an optional persisted record, in report order. existing == nil means no
// record was found and every entity is classified as new.
func (c *Comparator) Invoice(existing, new *domain.Invoice) []domain.ComparisonResult {
	var (
		header   map[string]any
		vendor   map[string]any
		customer map[string]any
		totals   map[string]any
		payment  map[string]any
		items    []map[string]any
	)
	if existing != nil {
		header = HeaderFields(existing)
		vendor = VendorFields(existing.Vendor)
		customer = CustomerFields(existing.Customer)
		totals = TotalsFields(existing.Totals)
		payment = PaymentFields(existing.Payment)
		items = LineItemFields(existing.LineItems)
		if items == nil {
			items = []map[string]any{}
		}
	}

	return []domain.ComparisonResult{
		c.Record(domain.EntityInvoice, header, HeaderFields(new)),
		c.Record(domain.EntityVendor, vendor, VendorFields(new.Vendor)),
		c.Record(domain.EntityCustomer, customer, CustomerFields(new.Customer)),
		c.List(domain.EntityLineItems, items, LineItemFields(new.LineItems)),
		c.Record(domain.EntityTotals, totals, TotalsFields(new.Totals)),
		c.Record(domain.EntityPayment, payment, PaymentFields(new.Payment)),
	}
}
