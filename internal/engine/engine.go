// Package engine orchestrates one validation attempt: structural input
// checks, duplicate detection, entity comparison, rule evaluation and
// scoring. The engine only reads from its collaborators; persisting the
// invoice and the run is the caller's responsibility.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/invoicecore/shrike/internal/catalog"
	"github.com/invoicecore/shrike/internal/compare"
	"github.com/invoicecore/shrike/internal/domain"
	"github.com/invoicecore/shrike/internal/duplicate"
	"github.com/invoicecore/shrike/internal/frequency"
	"github.com/invoicecore/shrike/internal/rules"
	"github.com/invoicecore/shrike/internal/scoring"
)

// Engine runs the validation pipeline for a single invoice.
type Engine struct {
	catalog    *catalog.Catalog
	comparator *compare.Comparator
	detector   *duplicate.Detector
	evaluator  *rules.Evaluator
	scorer     *scoring.Aggregator
	tracker    *frequency.Tracker
	cfg        domain.EngineConfig
	logger     *slog.Logger
}

// New assembles an engine from its collaborators. tracker may be nil, in
// which case the submission-burst check always sees a count of zero.
func New(cat *catalog.Catalog, comparator *compare.Comparator, detector *duplicate.Detector,
	evaluator *rules.Evaluator, scorer *scoring.Aggregator, tracker *frequency.Tracker,
	cfg domain.EngineConfig, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		catalog:    cat,
		comparator: comparator,
		detector:   detector,
		evaluator:  evaluator,
		scorer:     scorer,
		tracker:    tracker,
		cfg:        cfg,
		logger:     logger,
	}
}

// Validate runs the full pipeline and returns the report with its scored
// run attached. It fails fast with ErrInput when the request is too
// incomplete to evaluate, and with ErrCollaborator when a required read
// fails; in both cases no partial report is produced.
func (e *Engine) Validate(ctx context.Context, tenantID string, inv *domain.Invoice) (*domain.ValidationReport, error) {
	start := time.Now()

	if err := checkInput(inv); err != nil {
		return nil, err
	}

	dup, existing, err := e.detector.Check(ctx, tenantID, inv)
	if err != nil {
		return nil, err
	}

	compareStart := time.Now()
	comparisons := e.comparator.Invoice(existing, inv)
	compareMs := time.Since(compareStart).Milliseconds()

	vendorID := inv.Vendor.VendorIdentifier()
	var submissionCount int64
	if e.tracker != nil && vendorID != "" {
		count, err := e.tracker.CountRecentSubmissions(ctx, tenantID, vendorID, e.cfg.SubmissionWindowSecs)
		if err != nil {
			// Burst detection is advisory; a failed count must not abort
			// the run.
			e.logger.Warn("submission count unavailable",
				"tenant_id", tenantID, "vendor_id", vendorID, "error", err)
		} else {
			submissionCount = count
		}
	}

	active := e.catalog.Active()
	rulesStart := time.Now()
	results := e.evaluator.EvaluateAll(ctx, &rules.Input{
		Invoice:         inv,
		Existing:        existing,
		Comparisons:     comparisons,
		Duplicate:       dup,
		SubmissionCount: submissionCount,
	}, active)
	rulesMs := time.Since(rulesStart).Milliseconds()

	run := e.scorer.Score(&scoring.RunInput{
		TenantID:      tenantID,
		InvoiceID:     inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		VendorID:      vendorID,
		TraceID:       traceID(ctx),
		Results:       results,
		StartTime:     start,
		CompareMs:     compareMs,
		RulesMs:       rulesMs,
	})

	e.logger.Info("validation run completed",
		"tenant_id", tenantID,
		"run_id", run.ID,
		"invoice_number", inv.InvoiceNumber,
		"score", run.OverallScore,
		"status", run.Status,
		"rules_evaluated", len(results),
		"duplicate", dup.DuplicateByCriteria,
	)

	return &domain.ValidationReport{
		RunID:               run.ID,
		InvoiceExists:       dup.InvoiceExists,
		InvoiceID:           dup.InvoiceID,
		DuplicateByCriteria: dup.DuplicateByCriteria,
		Comparisons:         comparisons,
		Summary:             domain.SummarizeComparisons(comparisons),
		RuleResults:         results,
		OverallScore:        run.OverallScore,
		Status:              run.Status,
		Run:                 run,
	}, nil
}

// checkInput rejects structurally unevaluable requests. A nil line-items
// collection or a missing totals block means the extractor produced no
// data at all for that section, which is distinct from an empty or
// zero-valued one.
func checkInput(inv *domain.Invoice) error {
	if inv == nil {
		return fmt.Errorf("%w: invoice is required", domain.ErrInput)
	}
	if inv.LineItems == nil {
		return fmt.Errorf("%w: line items collection is missing", domain.ErrInput)
	}
	if inv.Totals == nil {
		return fmt.Errorf("%w: totals block is missing", domain.ErrInput)
	}
	return nil
}

func traceID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}
