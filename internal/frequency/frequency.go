// Package frequency tracks vendor submission frequency for the
// submission-burst anomaly check.
package frequency

import (
	"context"
	"fmt"
	"time"

	"github.com/invoicecore/shrike/internal/domain"
)

// Tracker counts validation attempts per vendor inside a sliding window.
// When a cache is available the count is kept as a windowed counter,
// which also registers the current attempt; otherwise the run history is
// counted from the repository.
type Tracker struct {
	repo  domain.Repository
	cache domain.Cache
}

// NewTracker creates a tracker. cache may be nil.
func NewTracker(repo domain.Repository, cache domain.Cache) *Tracker {
	return &Tracker{repo: repo, cache: cache}
}

// CountRecentSubmissions returns the number of validation attempts for
// the vendor within the window, including the attempt being processed.
func (t *Tracker) CountRecentSubmissions(ctx context.Context, tenantID, vendorID string, windowSecs int) (int64, error) {
	if tenantID == "" || vendorID == "" {
		return 0, fmt.Errorf("tenantID and vendorID are required")
	}
	window := time.Duration(windowSecs) * time.Second

	if t.cache != nil {
		key := "submissions:" + vendorID
		count, err := t.cache.IncrementCounter(ctx, tenantID, key, window)
		if err == nil {
			return count, nil
		}
		// Fall through to the repository on cache failure.
	}

	if t.repo != nil {
		count, err := t.repo.CountRunsByVendor(ctx, tenantID, vendorID, time.Now().Add(-window))
		if err != nil {
			return 0, fmt.Errorf("failed to count runs: %w", err)
		}
		// The current attempt has no run record yet.
		return count + 1, nil
	}

	return 0, fmt.Errorf("no data source available")
}
