package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/invoicecore/shrike/internal/catalog"
	"github.com/invoicecore/shrike/internal/domain"
	"github.com/invoicecore/shrike/internal/engine"
	"github.com/invoicecore/shrike/internal/repository"
	"github.com/invoicecore/shrike/internal/rules"
)

// GlobalTenantID is used for the rule catalogue, which applies to all
// tenants.
const GlobalTenantID = "*"

// summaryTTL bounds how long cached invoice summaries are served.
const summaryTTL = 15 * time.Minute

// Handler holds dependencies for API handlers.
type Handler struct {
	repo      domain.Repository
	cache     domain.Cache
	bus       domain.EventBus
	engine    *engine.Engine
	catalog   *catalog.Catalog
	evaluator *rules.Evaluator
	version   string
}

// NewHandler creates a new API handler.
func NewHandler(repo domain.Repository, cache domain.Cache, bus domain.EventBus,
	eng *engine.Engine, cat *catalog.Catalog, evaluator *rules.Evaluator, version string) *Handler {
	return &Handler{
		repo:      repo,
		cache:     cache,
		bus:       bus,
		engine:    eng,
		catalog:   cat,
		evaluator: evaluator,
		version:   version,
	}
}

// Validate handles POST /validate: it runs the full pipeline for an
// extracted invoice, persists the invoice and the run, and returns the
// validation report.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	var inv domain.Invoice
	if err := json.NewDecoder(r.Body).Decode(&inv); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	inv.TenantID = tenantID
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}

	report, err := h.engine.Validate(ctx, tenantID, &inv)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInput):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		case errors.Is(err, domain.ErrCollaborator):
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		default:
			slog.Error("validation failed", "invoice_number", inv.InvoiceNumber, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "validation failed"})
		}
		return
	}

	h.persistOutcome(r, tenantID, &inv, report)

	writeJSON(w, http.StatusOK, report)
}

// persistOutcome saves the invoice and the run, applies the status
// transition, publishes pipeline events and refreshes the summary cache.
// Persistence failures degrade the response to best effort but never
// change the verdict already computed.
func (h *Handler) persistOutcome(r *http.Request, tenantID string, inv *domain.Invoice, report *domain.ValidationReport) {
	ctx := r.Context()
	run := report.Run

	status := domain.StatusValidated
	if report.Status == domain.RunFail {
		status = domain.StatusFlagged
	}

	invoiceID := inv.ID
	if report.InvoiceExists {
		// Re-run against an already persisted invoice: keep the stored
		// record, only transition its status.
		invoiceID = report.InvoiceID
		if !report.DuplicateByCriteria {
			if err := h.repo.UpdateInvoiceStatus(ctx, tenantID, invoiceID, status); err != nil {
				slog.Error("failed to update invoice status", "invoice_id", invoiceID, "error", err)
			}
		}
	} else {
		inv.Status = status
		if err := h.repo.SaveInvoice(ctx, tenantID, inv); err != nil {
			if errors.Is(err, repository.ErrDuplicateKey) {
				// Lost a concurrent insert race for the same key. The
				// stored record wins; this run stays in the history.
				slog.Warn("concurrent insert for invoice key", "invoice_number", inv.InvoiceNumber)
			} else {
				slog.Error("failed to save invoice", "invoice_id", inv.ID, "error", err)
			}
		}
	}

	run.InvoiceID = invoiceID
	if err := h.repo.SaveRun(ctx, tenantID, run); err != nil {
		slog.Error("failed to save validation run", "run_id", run.ID, "error", err)
	}

	if h.cache != nil && inv.Totals != nil {
		summary := &domain.InvoiceSummary{
			InvoiceID:     invoiceID,
			VendorID:      run.VendorID,
			InvoiceNumber: inv.InvoiceNumber,
			InvoiceDate:   inv.InvoiceDate,
			GrandTotal:    inv.Totals.GrandTotal,
			Status:        status,
			LastScore:     run.OverallScore,
		}
		if err := h.cache.SetInvoiceSummary(ctx, tenantID, invoiceID, summary, summaryTTL); err != nil {
			slog.Warn("failed to cache invoice summary", "invoice_id", invoiceID, "error", err)
		}
	}

	if h.bus != nil {
		payload, _ := json.Marshal(report)
		if err := h.bus.Publish(ctx, tenantID, domain.TopicValidationCompleted, payload); err != nil {
			slog.Warn("failed to publish validation event", "run_id", run.ID, "error", err)
		}
		if report.Status == domain.RunFail {
			if err := h.bus.Publish(ctx, tenantID, domain.TopicInvoiceFlagged, payload); err != nil {
				slog.Warn("failed to publish flagged event", "run_id", run.ID, "error", err)
			}
		}
	}
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// GetRun retrieves a validation run by ID.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	runID := chi.URLParam(r, "id")

	run, err := h.repo.GetRun(ctx, tenantID, runID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			slog.Error("failed to get run", "id", runID, "error", err)
		}
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "run not found",
		})
		return
	}

	writeJSON(w, http.StatusOK, run)
}

// GetInvoice retrieves an invoice by ID.
func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	invoiceID := chi.URLParam(r, "id")

	inv, err := h.repo.GetInvoice(ctx, tenantID, invoiceID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			slog.Error("failed to get invoice", "id", invoiceID, "error", err)
		}
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "invoice not found",
		})
		return
	}

	writeJSON(w, http.StatusOK, inv)
}

// ListInvoiceRuns retrieves the validation history for an invoice,
// newest first.
func (h *Handler) ListInvoiceRuns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	invoiceID := chi.URLParam(r, "id")

	runs, err := h.repo.ListRunsByInvoice(ctx, tenantID, invoiceID)
	if err != nil {
		slog.Error("failed to list runs", "invoice_id", invoiceID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list runs",
		})
		return
	}
	if runs == nil {
		runs = []*domain.ValidationRun{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"runs":  runs,
		"count": len(runs),
	})
}

// ListRules returns the loaded rule catalogue.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	loaded := h.catalog.All()

	writeJSON(w, http.StatusOK, map[string]any{
		"rules":  loaded,
		"count":  len(loaded),
		"source": "database",
	})
}

// GetRule retrieves a catalogue rule by ID.
func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	ruleID := chi.URLParam(r, "id")

	if rule, ok := h.catalog.Get(ruleID); ok {
		writeJSON(w, http.StatusOK, rule)
		return
	}

	writeJSON(w, http.StatusNotFound, map[string]string{
		"error": "rule not found",
	})
}

// CreateRuleRequest is the request body for creating a catalogue rule.
type CreateRuleRequest struct {
	RuleID      string              `json:"ruleId"`
	Category    domain.RuleCategory `json:"category"`
	Description string              `json:"description,omitempty"`
	Severity    int                 `json:"severity"`
	Deduction   float64             `json:"deduction"`
	Expression  string              `json:"expression,omitempty"`
	Active      bool                `json:"active"`
}

// CreateRule persists a new catalogue rule. Rules are saved globally so
// they apply to all tenants. After saving, call POST /rules/reload to
// hot-reload into the catalogue.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.RuleID == "" || req.Category == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "ruleId and category are required",
		})
		return
	}
	if req.Severity < 1 || req.Severity > domain.SeverityFatal {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "severity must be between 1 and 5",
		})
		return
	}
	if req.Deduction < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "deduction must not be negative",
		})
		return
	}

	rule := &domain.ValidationRule{
		RuleID:      req.RuleID,
		TenantID:    GlobalTenantID,
		Category:    req.Category,
		Description: req.Description,
		Severity:    req.Severity,
		Deduction:   req.Deduction,
		Expression:  req.Expression,
		Active:      req.Active,
		Version:     "1.0.0",
	}

	if err := h.evaluator.ValidateRule(rule); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid rule: " + err.Error(),
		})
		return
	}

	if err := h.repo.SaveRule(ctx, GlobalTenantID, rule); err != nil {
		slog.Error("failed to save rule", "id", rule.RuleID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to save rule",
		})
		return
	}

	slog.Info("rule created", "id", rule.RuleID, "category", rule.Category)
	writeJSON(w, http.StatusCreated, map[string]any{
		"rule":    rule,
		"message": "Rule created. Call POST /rules/reload to apply changes.",
	})
}

// ReloadRules reloads the catalogue from the database and recompiles
// expression rules, without a server restart.
func (h *Handler) ReloadRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.catalog.LoadFromRepository(ctx, h.repo, GlobalTenantID); err != nil {
		slog.Error("failed to reload catalogue", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "failed to load rules from database",
		})
		return
	}

	if err := h.evaluator.Reload(h.catalog.All()); err != nil {
		slog.Error("failed to recompile rules", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to reload rules: " + err.Error(),
		})
		return
	}

	if h.bus != nil {
		tenantID := GetTenantID(ctx)
		_ = h.bus.Publish(ctx, tenantID, domain.TopicCatalogUpdated, nil)
	}

	count := h.catalog.Count()
	slog.Info("rules reloaded from database", "count", count)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "rules reloaded successfully",
		"count":   count,
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
