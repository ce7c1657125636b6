package compare

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// fieldsEqual applies the kind-specific equality to two raw values.
// Nil on both sides is equal; nil on one side is not.
func fieldsEqual(spec FieldSpec, defaultTol float64, existing, new any) bool {
	if existing == nil && new == nil {
		return true
	}
	if existing == nil || new == nil {
		// A nil number against an explicit zero is treated as equal for
		// optional amounts (round-off absent vs 0.00).
		if spec.Kind == KindNumber {
			ev, eok := toFloat(existing)
			nv, nok := toFloat(new)
			if !eok {
				ev = 0
			}
			if !nok {
				nv = 0
			}
			return numbersEqual(ev, nv, tolerance(spec, defaultTol))
		}
		return false
	}

	switch spec.Kind {
	case KindIdentifier:
		return foldIdentifier(toString(existing)) == foldIdentifier(toString(new))
	case KindNumber:
		ev, eok := toFloat(existing)
		nv, nok := toFloat(new)
		if !eok || !nok {
			return toString(existing) == toString(new)
		}
		return numbersEqual(ev, nv, tolerance(spec, defaultTol))
	case KindDate:
		return SameCalendarDay(toString(existing), toString(new))
	default:
		return strings.TrimSpace(toString(existing)) == strings.TrimSpace(toString(new))
	}
}

func tolerance(spec FieldSpec, defaultTol float64) float64 {
	if spec.Tolerance > 0 {
		return spec.Tolerance
	}
	return defaultTol
}

// numbersEqual compares with a fixed absolute tolerance to avoid
// floating-point false positives on currency values.
func numbersEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func foldIdentifier(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func toString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	default:
		return fmt.Sprint(v)
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
