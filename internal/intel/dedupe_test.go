package intel

import "testing"

func TestDeduper_FirstOccurrenceWins(t *testing.T) {
	d := newDeduper()
	if !d.add("Review the budget numbers") {
		t.Error("first occurrence rejected")
	}
	if d.add("review the budget numbers!") {
		t.Error("exact duplicate accepted")
	}
}

func TestDeduper_NonLatinTextDedupes(t *testing.T) {
	d := newDeduper()
	if !d.add("予算を確認する") {
		t.Error("first non-Latin item rejected")
	}
	if d.add("予算を確認する") {
		t.Error("repeated non-Latin item accepted")
	}
	if !d.add("契約書に署名する") {
		t.Error("distinct non-Latin item rejected")
	}
}

func TestDeduper_SymbolOnlyTextIsKept(t *testing.T) {
	d := newDeduper()
	if !d.add("???") {
		t.Error("symbol-only item rejected")
	}
}

func TestNormalizeKey_KeepsAnyScript(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Send The Invoice", "send the invoice"},
		{"予算を確認する", "予算を確認する"},
		{"règle numéro 1", "règle numéro 1"},
		{"!!!", ""},
	}
	for _, tc := range cases {
		if got := normalizeKey(tc.in); got != tc.want {
			t.Errorf("normalizeKey(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeKey_TruncatesByRunes(t *testing.T) {
	long := ""
	for range dedupeKeyLen + 10 {
		long += "語"
	}
	key := normalizeKey(long)
	if got := len([]rune(key)); got != dedupeKeyLen {
		t.Errorf("truncated key has %d runes, want %d", got, dedupeKeyLen)
	}
}
