package compare

import "testing"

func TestParseDateFormats(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"2025-03-14", "2025-03-14"},
		{"14-03-2025", "2025-03-14"},
		{"2025/03/14", "2025-03-14"},
		{"14-Mar-2025", "2025-03-14"},
		{"14-March-2025", "2025-03-14"},
		{"Mar 14, 2025", "2025-03-14"},
		{"14 March 2025", "2025-03-14"},
		{"2025-03-14T10:30:00", "2025-03-14"},
		{"  2025-03-14  ", "2025-03-14"},
	}

	for _, tc := range cases {
		got, ok := ParseDate(tc.in)
		if !ok {
			t.Errorf("ParseDate(%q) failed to parse", tc.in)
			continue
		}
		if got.Format("2006-01-02") != tc.want {
			t.Errorf("ParseDate(%q) = %s, want %s", tc.in, got.Format("2006-01-02"), tc.want)
		}
	}
}

func TestParseDateRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "null", "None", "not a date", "32-13-2025"} {
		if _, ok := ParseDate(in); ok {
			t.Errorf("ParseDate(%q) should fail", in)
		}
	}
}

func TestSameCalendarDay(t *testing.T) {
	if !SameCalendarDay("2025-03-14", "14-Mar-2025") {
		t.Error("same calendar date in different formats should match")
	}
	if SameCalendarDay("2025-03-14", "2025-03-15") {
		t.Error("different dates should not match")
	}
	// Unparseable values fall back to raw string comparison.
	if !SameCalendarDay("garbage", "garbage") {
		t.Error("identical raw strings should match")
	}
	if SameCalendarDay("garbage", "other") {
		t.Error("different raw strings should not match")
	}
}

func TestNormalizeDate(t *testing.T) {
	if got := NormalizeDate("14-Mar-2025"); got != "2025-03-14" {
		t.Errorf("NormalizeDate = %q, want 2025-03-14", got)
	}
	if got := NormalizeDate("unparseable"); got != "unparseable" {
		t.Errorf("NormalizeDate should return raw value, got %q", got)
	}
}
