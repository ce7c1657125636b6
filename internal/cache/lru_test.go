package cache

import (
	"context"
	"testing"
	"time"

	"github.com/invoicecore/shrike/internal/domain"
)

func TestLRUSetGet(t *testing.T) {
	c := NewLRUCache(10)
	ctx := context.Background()

	if err := c.Set(ctx, "t1", "k1", []byte("v1"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := c.Get(ctx, "t1", "k1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "v1" {
		t.Errorf("Get = %q, want v1", got)
	}

	// Tenants are isolated.
	got, err = c.Get(ctx, "t2", "k1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Errorf("cross-tenant Get = %q, want miss", got)
	}
}

func TestLRUEviction(t *testing.T) {
	c := NewLRUCache(2)
	ctx := context.Background()

	c.Set(ctx, "t1", "k1", []byte("v1"), time.Minute)
	c.Set(ctx, "t1", "k2", []byte("v2"), time.Minute)
	c.Set(ctx, "t1", "k3", []byte("v3"), time.Minute)

	if got, _ := c.Get(ctx, "t1", "k1"); got != nil {
		t.Error("oldest entry should be evicted at capacity")
	}
	if got, _ := c.Get(ctx, "t1", "k3"); string(got) != "v3" {
		t.Errorf("newest entry missing: %q", got)
	}

	size, capacity := c.Stats()
	if size != 2 || capacity != 2 {
		t.Errorf("Stats = %d/%d, want 2/2", size, capacity)
	}
}

func TestInvoiceSummaryRoundTrip(t *testing.T) {
	c := NewLRUCache(10)
	ctx := context.Background()

	summary := &domain.InvoiceSummary{
		InvoiceID:     "inv-1",
		VendorID:      "27AAPFU0939F1ZV",
		InvoiceNumber: "INV-2025-001",
		InvoiceDate:   "2025-03-14",
		GrandTotal:    590,
		Status:        domain.StatusValidated,
		LastScore:     100,
	}
	if err := c.SetInvoiceSummary(ctx, "t1", "inv-1", summary, time.Minute); err != nil {
		t.Fatalf("SetInvoiceSummary: %v", err)
	}

	got, err := c.GetInvoiceSummary(ctx, "t1", "inv-1")
	if err != nil {
		t.Fatalf("GetInvoiceSummary: %v", err)
	}
	if got == nil || got.LastScore != 100 || got.Status != domain.StatusValidated {
		t.Errorf("summary not restored: %+v", got)
	}

	got, err = c.GetInvoiceSummary(ctx, "t1", "missing")
	if err != nil {
		t.Fatalf("GetInvoiceSummary: %v", err)
	}
	if got != nil {
		t.Errorf("expected miss, got %+v", got)
	}
}

func TestCounterWindow(t *testing.T) {
	c := NewLRUCache(10)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		count, err := c.IncrementCounter(ctx, "t1", "submissions:v1", time.Minute)
		if err != nil {
			t.Fatalf("IncrementCounter: %v", err)
		}
		if count != want {
			t.Errorf("count = %d, want %d", count, want)
		}
	}

	// An expired window restarts the counter.
	count, err := c.IncrementCounter(ctx, "t1", "burst", time.Nanosecond)
	if err != nil {
		t.Fatalf("IncrementCounter: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
	time.Sleep(5 * time.Millisecond)
	if count, _ = c.IncrementCounter(ctx, "t1", "burst", time.Minute); count != 1 {
		t.Errorf("count after window expiry = %d, want 1", count)
	}
}
