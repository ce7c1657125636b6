// Package duplicate implements duplicate detection: resolving the
// composite invoice key and looking up the persisted record for it.
package duplicate

import (
	"context"
	"errors"
	"fmt"

	"github.com/invoicecore/shrike/internal/compare"
	"github.com/invoicecore/shrike/internal/domain"
	"github.com/invoicecore/shrike/internal/repository"
)

// Detector resolves an extracted invoice against the store by its
// composite key (vendor identifier, invoice number, calendar date).
type Detector struct {
	repo domain.Repository
}

// NewDetector creates a detector backed by the given repository.
func NewDetector(repo domain.Repository) *Detector {
	return &Detector{repo: repo}
}

// Key derives the composite duplicate key from an extracted invoice.
// The invoice date is normalized to ISO form so the same calendar date
// matches regardless of source format.
func Key(inv *domain.Invoice) domain.InvoiceKey {
	return domain.InvoiceKey{
		VendorID:      inv.Vendor.VendorIdentifier(),
		InvoiceNumber: inv.InvoiceNumber,
		InvoiceDate:   compare.NormalizeDate(inv.InvoiceDate),
	}
}

// Check looks up the persisted record for the invoice's key. It returns
// the check outcome plus the existing record, nil when none exists.
//
// An incomplete key (missing vendor, number or date) cannot match
// anything; those absences are the presence rules' concern, so the check
// reports no duplicate rather than an error. A store read failure is
// surfaced as a collaborator error: unavailability must never be read as
// "no existing record".
func (d *Detector) Check(ctx context.Context, tenantID string, inv *domain.Invoice) (domain.DuplicateCheck, *domain.Invoice, error) {
	key := Key(inv)
	if !key.Complete() {
		return domain.DuplicateCheck{}, nil, nil
	}

	existing, err := d.repo.FindInvoiceByKey(ctx, tenantID, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.DuplicateCheck{}, nil, nil
		}
		return domain.DuplicateCheck{}, nil, fmt.Errorf("%w: duplicate lookup failed: %v", domain.ErrCollaborator, err)
	}

	check := domain.DuplicateCheck{
		InvoiceExists: true,
		InvoiceID:     existing.ID,
		DuplicateByCriteria: existing.Status == domain.StatusValidated ||
			existing.Status == domain.StatusPosted,
	}
	return check, existing, nil
}
