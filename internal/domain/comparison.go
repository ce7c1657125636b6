package domain

// EntityType is the granularity at which existing-vs-new differences are
// reported.
type EntityType string

const (
	EntityInvoice   EntityType = "invoice"
	EntityVendor    EntityType = "vendor"
	EntityCustomer  EntityType = "customer"
	EntityLineItems EntityType = "line_items"
	EntityTotals    EntityType = "totals"
	EntityPayment   EntityType = "payment"
)

// AllEntityTypes lists the comparison entities in report order.
func AllEntityTypes() []EntityType {
	return []EntityType{
		EntityInvoice,
		EntityVendor,
		EntityCustomer,
		EntityLineItems,
		EntityTotals,
		EntityPayment,
	}
}

// FieldDiff records one field that differs between the persisted snapshot
// and the newly extracted one. ItemIndex is set for line-item diffs.
type FieldDiff struct {
	Field     string `json:"field"`
	ItemIndex *int   `json:"itemIndex,omitempty"`
	Existing  any    `json:"existing"`
	New       any    `json:"new"`
}

// ComparisonResult is the diff outcome for a single entity type.
// IsIdentical is true iff Differences is empty and the entity exists.
type ComparisonResult struct {
	EntityType   EntityType       `json:"entityType"`
	ExistsInDB   bool             `json:"existsInDb"`
	IsIdentical  bool             `json:"isIdentical"`
	Differences  []FieldDiff      `json:"differences"`
	ExistingData map[string]any   `json:"existingData,omitempty"`
	NewData      map[string]any   `json:"newData,omitempty"`
}

// ComparisonSummary aggregates comparison outcomes across entity types.
type ComparisonSummary struct {
	TotalEntities    int `json:"totalEntities"`
	ExistingCount    int `json:"existingCount"`
	IdenticalCount   int `json:"identicalCount"`
	DifferentCount   int `json:"differentCount"`
	NewCount         int `json:"newCount"`
	TotalDifferences int `json:"totalDifferences"`
}

// SummarizeComparisons computes the summary block from a comparison set.
func SummarizeComparisons(comparisons []ComparisonResult) ComparisonSummary {
	s := ComparisonSummary{TotalEntities: len(comparisons)}
	for _, c := range comparisons {
		if c.ExistsInDB {
			s.ExistingCount++
			if c.IsIdentical {
				s.IdenticalCount++
			} else {
				s.DifferentCount++
			}
		} else {
			s.NewCount++
		}
		s.TotalDifferences += len(c.Differences)
	}
	return s
}
