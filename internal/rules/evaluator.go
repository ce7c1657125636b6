// Package rules evaluates the validation rule catalogue against an
// extracted invoice. Built-in rules are Go check functions keyed by rule
// id; COMPLIANCE rules carry CEL expressions compiled once at load time.
package rules

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/invoicecore/shrike/internal/domain"
)

// Input carries everything a rule may inspect for one validation attempt.
// Rules read it, never mutate it.
type Input struct {
	Invoice  *domain.Invoice
	Existing *domain.Invoice

	Comparisons []domain.ComparisonResult
	Duplicate   domain.DuplicateCheck

	// SubmissionCount is the number of validation attempts seen for this
	// vendor inside the configured window, including this one.
	SubmissionCount int64
}

// CheckFunc is a built-in rule evaluator.
type CheckFunc func(e *Evaluator, in *Input, rule *domain.ValidationRule) domain.ValidationResult

// Evaluator runs the loaded catalogue against an input. Loading and
// evaluation are safe to interleave: Reload swaps the compiled set under
// the write lock while evaluations hold the read lock.
type Evaluator struct {
	mu       sync.RWMutex
	env      *cel.Env
	programs map[string]cel.Program
	checks   map[string]CheckFunc

	cfg        domain.EngineConfig
	maxWorkers int

	// nowFn supplies the clock for date rules.
	nowFn func() time.Time
}

// NewEvaluator creates an evaluator with the built-in check set and an
// empty expression table.
func NewEvaluator(cfg domain.EngineConfig) (*Evaluator, error) {
	maxWorkers := cfg.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 8
	}

	env, err := cel.NewEnv(
		cel.Variable("invoice", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("vendor", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("customer", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("subtotal", cel.DoubleType),
		cel.Variable("gst_amount", cel.DoubleType),
		cel.Variable("grand_total", cel.DoubleType),
		cel.Variable("line_count", cel.IntType),
		cel.Variable("invoice_exists", cel.BoolType),
		cel.Variable("duplicate", cel.BoolType),
		cel.Variable("submission_count", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Evaluator{
		env:        env,
		programs:   make(map[string]cel.Program),
		checks:     builtinChecks(),
		cfg:        cfg,
		maxWorkers: maxWorkers,
		nowFn:      time.Now,
	}, nil
}

// ValidateRule compiles an expression rule without loading it, or checks
// that a built-in evaluator exists for a rule without an expression.
func (e *Evaluator) ValidateRule(rule *domain.ValidationRule) error {
	if rule == nil {
		return fmt.Errorf("rule is required")
	}
	if rule.Expression != "" {
		_, err := e.compile(rule)
		return err
	}
	if _, ok := e.checks[rule.RuleID]; !ok {
		return fmt.Errorf("rule %s has no expression and no built-in check", rule.RuleID)
	}
	return nil
}

// Reload compiles the given catalogue snapshot and swaps it in atomically.
// A compile failure leaves the previous set in place.
func (e *Evaluator) Reload(rules []*domain.ValidationRule) error {
	programs := make(map[string]cel.Program)
	for _, r := range rules {
		if !r.Active {
			continue
		}
		if r.Expression != "" {
			prog, err := e.compile(r)
			if err != nil {
				return err
			}
			programs[r.RuleID] = prog
			continue
		}
		if _, ok := e.checks[r.RuleID]; !ok {
			return fmt.Errorf("rule %s has no expression and no built-in check", r.RuleID)
		}
	}

	e.mu.Lock()
	e.programs = programs
	e.mu.Unlock()
	return nil
}

// EvaluateAll runs every given rule against the input in parallel,
// preserving catalogue order in the result slice. A rule that cannot be
// computed yields a FAIL result with a diagnostic message; it never aborts
// the run or suppresses the other rules.
func (e *Evaluator) EvaluateAll(ctx context.Context, in *Input, rules []*domain.ValidationRule) []domain.ValidationResult {
	if len(rules) == 0 {
		return []domain.ValidationResult{}
	}

	activation := buildActivation(in)

	results := make([]domain.ValidationResult, len(rules))
	var wg sync.WaitGroup
	sem := make(chan struct{}, e.maxWorkers)

	for i, rule := range rules {
		wg.Add(1)
		go func(idx int, r *domain.ValidationRule) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			results[idx] = e.evaluateRule(ctx, in, activation, r)
		}(i, rule)
	}
	wg.Wait()

	return results
}

func (e *Evaluator) evaluateRule(ctx context.Context, in *Input, activation map[string]any, rule *domain.ValidationRule) (result domain.ValidationResult) {
	defer func() {
		if r := recover(); r != nil {
			result = failResult(rule, fmt.Sprintf("rule computation failed: %v", r), nil)
		}
	}()

	if err := ctx.Err(); err != nil {
		return failResult(rule, fmt.Sprintf("evaluation cancelled: %v", err), nil)
	}

	if check, ok := e.checks[rule.RuleID]; ok {
		return check(e, in, rule)
	}

	e.mu.RLock()
	prog, ok := e.programs[rule.RuleID]
	e.mu.RUnlock()
	if !ok {
		return failResult(rule, "rule has no compiled evaluator", nil)
	}

	out, _, err := prog.Eval(activation)
	if err != nil {
		return failResult(rule, fmt.Sprintf("expression evaluation error: %v", err), nil)
	}
	if passed, ok := out.Value().(bool); ok {
		if passed {
			return passResult(rule, "")
		}
		return failResult(rule, fmt.Sprintf("expression %q evaluated to false", rule.Expression), nil)
	}
	return failResult(rule, "expression did not produce a boolean", nil)
}

// ProgramCount returns the number of compiled expression rules.
func (e *Evaluator) ProgramCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.programs)
}

func (e *Evaluator) compile(rule *domain.ValidationRule) (cel.Program, error) {
	ast, issues := e.env.Compile(rule.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile rule %s: %w", rule.RuleID, issues.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("rule %s: expression must return bool, got %s", rule.RuleID, ast.OutputType())
	}
	prog, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for rule %s: %w", rule.RuleID, err)
	}
	return prog, nil
}

// buildActivation flattens the input into the CEL variable set.
func buildActivation(in *Input) map[string]any {
	inv := in.Invoice

	var subtotal, gstAmount, grandTotal float64
	if inv.Totals != nil {
		subtotal = inv.Totals.Subtotal
		gstAmount = inv.Totals.GSTAmount
		grandTotal = inv.Totals.GrandTotal
	}

	return map[string]any{
		"invoice": map[string]any{
			"invoice_number": inv.InvoiceNumber,
			"invoice_date":   inv.InvoiceDate,
			"due_date":       inv.DueDate,
			"currency":       inv.Currency,
		},
		"vendor": map[string]any{
			"name":  inv.Vendor.Name,
			"gstin": inv.Vendor.GSTIN,
			"pan":   inv.Vendor.PAN,
		},
		"customer": map[string]any{
			"name":  inv.Customer.Name,
			"gstin": inv.Customer.GSTIN,
		},
		"subtotal":         subtotal,
		"gst_amount":       gstAmount,
		"grand_total":      grandTotal,
		"line_count":       int64(len(inv.LineItems)),
		"invoice_exists":   in.Duplicate.InvoiceExists,
		"duplicate":        in.Duplicate.DuplicateByCriteria,
		"submission_count": in.SubmissionCount,
	}
}

func passResult(rule *domain.ValidationRule, msg string) domain.ValidationResult {
	return domain.ValidationResult{
		RuleID:          rule.RuleID,
		Category:        rule.Category,
		Status:          domain.RulePass,
		Message:         msg,
		Severity:        rule.Severity,
		DeductionPoints: rule.Deduction,
	}
}

func warnResult(rule *domain.ValidationRule, msg string, meta *domain.ResultMeta) domain.ValidationResult {
	return domain.ValidationResult{
		RuleID:          rule.RuleID,
		Category:        rule.Category,
		Status:          domain.RuleWarn,
		Message:         msg,
		Severity:        rule.Severity,
		DeductionPoints: rule.Deduction,
		Meta:            meta,
	}
}

func failResult(rule *domain.ValidationRule, msg string, meta *domain.ResultMeta) domain.ValidationResult {
	return domain.ValidationResult{
		RuleID:          rule.RuleID,
		Category:        rule.Category,
		Status:          domain.RuleFail,
		Message:         msg,
		Severity:        rule.Severity,
		DeductionPoints: rule.Deduction,
		Meta:            meta,
	}
}
