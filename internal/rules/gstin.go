package rules

import (
	"regexp"
	"strings"
)

// Structural patterns only. Full GSTIN validity includes a mod-36 check
// digit which extractors routinely garble, so the engine checks shape and
// leaves checksum enforcement to the tax authority.
var (
	gstinPattern = regexp.MustCompile(`^[0-9]{2}[A-Z0-9]{10}[0-9A-Z]{3}$`)
	panPattern   = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]$`)
)

// ValidGSTIN reports whether s has the 15-character GSTIN shape:
// two state-code digits, a ten-character PAN block, entity number,
// "Z" slot and check character.
func ValidGSTIN(s string) bool {
	return gstinPattern.MatchString(strings.ToUpper(strings.TrimSpace(s)))
}

// ValidPAN reports whether s has the 10-character PAN shape.
func ValidPAN(s string) bool {
	return panPattern.MatchString(strings.ToUpper(strings.TrimSpace(s)))
}

// StateCode extracts the 2-digit state prefix from a GSTIN. It returns
// "" when the value is too short or the prefix is not numeric.
func StateCode(gstin string) string {
	g := strings.TrimSpace(gstin)
	if len(g) < 2 {
		return ""
	}
	p := g[:2]
	if p[0] < '0' || p[0] > '9' || p[1] < '0' || p[1] > '9' {
		return ""
	}
	return p
}
