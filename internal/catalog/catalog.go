// Package catalog holds the validation rule catalogue: an immutable
// in-memory table loaded once per process and refreshed explicitly when
// the catalogue changes. Evaluation never touches the database.
package catalog

import (
	"context"
	"fmt"
	"sync"

	"github.com/invoicecore/shrike/internal/domain"
)

// Catalog is a snapshot-swapped table of validation rules. Readers get a
// consistent ordered view; Reload swaps the whole snapshot atomically.
type Catalog struct {
	mu    sync.RWMutex
	rules []*domain.ValidationRule
	byID  map[string]*domain.ValidationRule
}

// New creates an empty catalogue.
func New() *Catalog {
	return &Catalog{byID: make(map[string]*domain.ValidationRule)}
}

// Load replaces the catalogue contents with the given rules, preserving
// their order. Duplicate rule ids are rejected.
func (c *Catalog) Load(rules []*domain.ValidationRule) error {
	byID := make(map[string]*domain.ValidationRule, len(rules))
	ordered := make([]*domain.ValidationRule, 0, len(rules))
	for _, r := range rules {
		if r.RuleID == "" {
			return fmt.Errorf("rule with empty id")
		}
		if _, dup := byID[r.RuleID]; dup {
			return fmt.Errorf("duplicate rule id %s", r.RuleID)
		}
		byID[r.RuleID] = r
		ordered = append(ordered, r)
	}

	c.mu.Lock()
	c.rules = ordered
	c.byID = byID
	c.mu.Unlock()
	return nil
}

// Active returns the active rules in catalogue order. The returned slice
// is a copy; the rules themselves are shared read-only references.
func (c *Catalog) Active() []*domain.ValidationRule {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*domain.ValidationRule, 0, len(c.rules))
	for _, r := range c.rules {
		if r.Active {
			out = append(out, r)
		}
	}
	return out
}

// All returns every rule in catalogue order, active or not.
func (c *Catalog) All() []*domain.ValidationRule {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*domain.ValidationRule, len(c.rules))
	copy(out, c.rules)
	return out
}

// Get returns a rule by id.
func (c *Catalog) Get(ruleID string) (*domain.ValidationRule, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.byID[ruleID]
	return r, ok
}

// Count returns the number of rules in the catalogue.
func (c *Catalog) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.rules)
}

// LoadFromRepository refreshes the catalogue from the persisted rule
// table. A read failure leaves the current snapshot untouched and is
// returned to the caller: the engine must not run against a guessed
// catalogue.
func (c *Catalog) LoadFromRepository(ctx context.Context, repo domain.Repository, tenantID string) error {
	rules, err := repo.ListRules(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("%w: rule catalogue read failed: %v", domain.ErrCollaborator, err)
	}
	return c.Load(rules)
}
