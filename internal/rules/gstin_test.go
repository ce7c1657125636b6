package rules

import "testing"

func TestValidGSTIN(t *testing.T) {
	valid := []string{
		"27AAPFU0939F1ZV",
		"29AAACB2894G1ZL",
		"24HDE7487RE5RT4",
		" 27aapfu0939f1zv ",
	}
	for _, g := range valid {
		if !ValidGSTIN(g) {
			t.Errorf("ValidGSTIN(%q) = false, want true", g)
		}
	}

	invalid := []string{
		"",
		"27AAPFU0939F1Z",    // 14 chars
		"27AAPFU0939F1ZVX",  // 16 chars
		"AAAAPFU0939F1ZV",   // state prefix not numeric
		"27AAPFU-939F1ZV",   // illegal character
	}
	for _, g := range invalid {
		if ValidGSTIN(g) {
			t.Errorf("ValidGSTIN(%q) = true, want false", g)
		}
	}
}

func TestValidPAN(t *testing.T) {
	if !ValidPAN("AAPFU0939F") {
		t.Error("well-formed PAN rejected")
	}
	if !ValidPAN(" aapfu0939f ") {
		t.Error("PAN check should trim and fold case")
	}
	for _, p := range []string{"", "AAPF00939F", "AAPFU0939FX", "1APFU0939F"} {
		if ValidPAN(p) {
			t.Errorf("ValidPAN(%q) = true, want false", p)
		}
	}
}

func TestStateCode(t *testing.T) {
	if got := StateCode("27AAPFU0939F1ZV"); got != "27" {
		t.Errorf("StateCode = %q, want 27", got)
	}
	if got := StateCode(""); got != "" {
		t.Errorf("StateCode of empty string = %q, want empty", got)
	}
	if got := StateCode("XXAAPFU0939F1ZV"); got != "" {
		t.Errorf("StateCode of non-numeric prefix = %q, want empty", got)
	}
}
