// Package scoring aggregates per-rule results into an overall reliability
// score and run verdict.
package scoring

import (
	"time"

	"github.com/google/uuid"
	"github.com/invoicecore/shrike/internal/domain"
)

// EngineVersion is stamped on every run so historical runs can be
// interpreted against the rule semantics that produced them.
const EngineVersion = "shrike-1.0"

// Aggregator turns a complete result set into a scored validation run.
type Aggregator struct {
	cfg domain.ScoringConfig
}

// NewAggregator creates an aggregator with the given verdict thresholds.
func NewAggregator(cfg domain.ScoringConfig) *Aggregator {
	if cfg.FailBelow <= 0 {
		cfg.FailBelow = 60
	}
	if cfg.WarnBelow <= cfg.FailBelow {
		cfg.WarnBelow = 90
	}
	return &Aggregator{cfg: cfg}
}

// RunInput carries the identifying and timing context for one run.
type RunInput struct {
	TenantID      string
	InvoiceID     string
	InvoiceNumber string
	VendorID      string
	TraceID       string
	Results       []domain.ValidationResult
	StartTime     time.Time
	CompareMs     int64
	RulesMs       int64
}

// Score produces the scored, append-only validation run from a complete
// result set. Every rule contributes to the summary; only FAIL results
// deduct points. The score is clamped to [0, 100].
func (a *Aggregator) Score(in *RunInput) *domain.ValidationRun {
	summary := summarize(in.Results)

	score := 100 - summary.TotalDeduction
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	status := domain.RunPass
	switch {
	case summary.FatalFailure || score < a.cfg.FailBelow:
		status = domain.RunFail
	case summary.WarnCount > 0 || score < a.cfg.WarnBelow:
		status = domain.RunWarn
	}

	runAt := time.Now().UTC()
	return &domain.ValidationRun{
		ID:            uuid.New().String(),
		TenantID:      in.TenantID,
		InvoiceID:     in.InvoiceID,
		InvoiceNumber: in.InvoiceNumber,
		VendorID:      in.VendorID,
		RunAt:         runAt,
		EngineVersion: EngineVersion,
		OverallScore:  score,
		Status:        status,
		Results:       in.Results,
		Summary:       summary,
		Metadata: domain.RunMetadata{
			TraceID:        in.TraceID,
			CompareMs:      in.CompareMs,
			RulesMs:        in.RulesMs,
			TotalMs:        elapsedMs(in.StartTime, runAt),
			RulesEvaluated: len(in.Results),
		},
	}
}

func summarize(results []domain.ValidationResult) domain.RunSummary {
	s := domain.RunSummary{
		ByCategory: make(map[domain.RuleCategory]domain.StatusCounts, len(results)),
	}
	for _, r := range results {
		counts := s.ByCategory[r.Category]
		switch r.Status {
		case domain.RuleFail:
			s.FailCount++
			counts.Fail++
			s.TotalDeduction += r.DeductionPoints
			if r.Severity >= domain.SeverityFatal {
				s.FatalFailure = true
			}
		case domain.RuleWarn:
			s.WarnCount++
			counts.Warn++
		default:
			s.PassCount++
			counts.Pass++
		}
		s.ByCategory[r.Category] = counts
	}
	return s
}

func elapsedMs(start, end time.Time) int64 {
	if start.IsZero() {
		return 0
	}
	return end.Sub(start).Milliseconds()
}
