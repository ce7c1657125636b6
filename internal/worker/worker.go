// Package worker provides async invoice processing for the Pro tier.
// It consumes received-invoice events from the EventBus and pushes them
// through the same validation pipeline the synchronous API uses.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/invoicecore/shrike/internal/domain"
	"github.com/invoicecore/shrike/internal/engine"
	"github.com/invoicecore/shrike/internal/repository"
)

// Worker processes invoices asynchronously from the EventBus.
type Worker struct {
	bus    domain.EventBus
	repo   domain.Repository
	engine *engine.Engine
	cache  domain.Cache

	subscriptions []domain.Subscription
	wg            sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
}

// Config holds worker configuration.
type Config struct {
	// TenantIDs is the list of tenants to process (empty = global worker).
	TenantIDs []string
}

// summaryTTL bounds how long cached invoice summaries are served.
const summaryTTL = 15 * time.Minute

// NewWorker creates a new async worker. cache may be nil.
func NewWorker(bus domain.EventBus, repo domain.Repository, eng *engine.Engine, cache domain.Cache) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:    bus,
		repo:   repo,
		engine: eng,
		cache:  cache,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins processing messages for the given tenants.
func (w *Worker) Start(cfg Config) error {
	if len(cfg.TenantIDs) == 0 {
		return w.startGlobalWorker()
	}

	for _, tenantID := range cfg.TenantIDs {
		if err := w.startTenantWorker(tenantID); err != nil {
			slog.Error("failed to start worker for tenant",
				"tenant_id", tenantID,
				"error", err,
			)
			continue
		}
	}

	slog.Info("workers started",
		"tenant_count", len(cfg.TenantIDs),
	)

	return nil
}

// startGlobalWorker starts a worker that processes all tenants (for testing/dev).
func (w *Worker) startGlobalWorker() error {
	sub, err := w.bus.Subscribe(w.ctx, "_global", domain.TopicInvoiceReceived, w.handleMessage)
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("global worker started")
	return nil
}

// startTenantWorker starts workers for a specific tenant.
func (w *Worker) startTenantWorker(tenantID string) error {
	sub, err := w.bus.Subscribe(w.ctx, tenantID, domain.TopicInvoiceReceived, func(ctx context.Context, msg *domain.Message) error {
		return w.processInvoice(ctx, tenantID, msg)
	})
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("tenant worker started",
		"tenant_id", tenantID,
		"topic", domain.TopicInvoiceReceived,
	)

	return nil
}

// handleMessage handles messages from the global subscription.
func (w *Worker) handleMessage(ctx context.Context, msg *domain.Message) error {
	return w.processInvoice(ctx, msg.TenantID, msg)
}

// InvoiceMessage is the message payload for async invoice validation.
type InvoiceMessage struct {
	TenantID string          `json:"tenantId,omitempty"`
	TraceID  string          `json:"traceId,omitempty"`
	Invoice  *domain.Invoice `json:"invoice"`
}

// processInvoice runs one invoice through the validation pipeline and
// persists the outcome.
func (w *Worker) processInvoice(ctx context.Context, tenantID string, msg *domain.Message) error {
	start := time.Now()

	var invMsg InvoiceMessage
	if err := json.Unmarshal(msg.Payload, &invMsg); err != nil {
		slog.Error("failed to parse invoice message",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}
	if invMsg.Invoice == nil {
		slog.Error("invoice message has no invoice", "message_id", msg.ID)
		return errors.New("invoice message has no invoice")
	}

	// Use message tenant if provided
	if invMsg.TenantID != "" {
		tenantID = invMsg.TenantID
	}

	inv := invMsg.Invoice
	inv.TenantID = tenantID
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}

	report, err := w.engine.Validate(ctx, tenantID, inv)
	if err != nil {
		// A structurally invalid message is dropped after logging; a
		// collaborator failure is returned so the bus can surface it.
		slog.Error("async validation failed",
			"invoice_number", inv.InvoiceNumber,
			"tenant_id", tenantID,
			"error", err,
		)
		if errors.Is(err, domain.ErrInput) {
			return nil
		}
		return err
	}

	w.persistOutcome(ctx, tenantID, inv, report)

	slog.Info("invoice processed",
		"invoice_number", inv.InvoiceNumber,
		"tenant_id", tenantID,
		"run_id", report.RunID,
		"status", report.Status,
		"score", report.OverallScore,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

func (w *Worker) persistOutcome(ctx context.Context, tenantID string, inv *domain.Invoice, report *domain.ValidationReport) {
	run := report.Run

	status := domain.StatusValidated
	if report.Status == domain.RunFail {
		status = domain.StatusFlagged
	}

	invoiceID := inv.ID
	if report.InvoiceExists {
		invoiceID = report.InvoiceID
		if !report.DuplicateByCriteria {
			if err := w.repo.UpdateInvoiceStatus(ctx, tenantID, invoiceID, status); err != nil {
				slog.Error("failed to update invoice status", "invoice_id", invoiceID, "error", err)
			}
		}
	} else {
		inv.Status = status
		if err := w.repo.SaveInvoice(ctx, tenantID, inv); err != nil && !errors.Is(err, repository.ErrDuplicateKey) {
			slog.Error("failed to save invoice", "invoice_id", inv.ID, "error", err)
		}
	}

	run.InvoiceID = invoiceID
	if err := w.repo.SaveRun(ctx, tenantID, run); err != nil {
		slog.Error("failed to save validation run", "run_id", run.ID, "error", err)
	}

	if w.cache != nil && inv.Totals != nil {
		summary := &domain.InvoiceSummary{
			InvoiceID:     invoiceID,
			VendorID:      run.VendorID,
			InvoiceNumber: inv.InvoiceNumber,
			InvoiceDate:   inv.InvoiceDate,
			GrandTotal:    inv.Totals.GrandTotal,
			Status:        status,
			LastScore:     run.OverallScore,
		}
		_ = w.cache.SetInvoiceSummary(ctx, tenantID, invoiceID, summary, summaryTTL)
	}

	payload, _ := json.Marshal(report)
	if err := w.bus.Publish(ctx, tenantID, domain.TopicValidationCompleted, payload); err != nil {
		slog.Error("failed to publish validation event", "run_id", run.ID, "error", err)
	}
	if report.Status == domain.RunFail {
		if err := w.bus.Publish(ctx, tenantID, domain.TopicInvoiceFlagged, payload); err != nil {
			slog.Error("failed to publish flagged event", "run_id", run.ID, "error", err)
		}
	}
}

// Stop gracefully stops all workers.
func (w *Worker) Stop() error {
	w.cancel()

	// Unsubscribe all
	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	w.wg.Wait()

	slog.Info("workers stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
