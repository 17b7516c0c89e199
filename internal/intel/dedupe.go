package intel

import (
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
)

// dedupeKeyLen caps the normalized key length so long extractions that share
// a prefix collapse to one entry.
const dedupeKeyLen = 50

// fuzzyDuplicateScore is the Jaro-Winkler similarity above which two
// normalized keys are treated as the same item even when not byte-equal.
const fuzzyDuplicateScore = 0.92

// normalizeKey lowercases text, strips everything but letters and digits
// (any script) and spaces, collapses whitespace, and truncates to the dedupe
// key length.
func normalizeKey(text string) string {
	var b strings.Builder
	lastSpace := true
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	key := strings.TrimSpace(b.String())
	if runes := []rune(key); len(runes) > dedupeKeyLen {
		key = string(runes[:dedupeKeyLen])
	}
	return key
}

// deduper tracks normalized keys, keeping the first occurrence of each.
// Beyond exact key matches it rejects near-identical keys by Jaro-Winkler
// similarity, so rephrasings that differ only by filler words collapse too.
type deduper struct {
	keys []string
	seen map[string]bool
}

func newDeduper() *deduper {
	return &deduper{seen: make(map[string]bool)}
}

// add reports whether text is new. The first occurrence wins; subsequent
// exact or near-duplicates report false.
func (d *deduper) add(text string) bool {
	key := normalizeKey(text)
	if key == "" {
		// No letters or digits to key on (e.g. pure punctuation); keep
		// the item rather than dropping it.
		return true
	}
	if d.seen[key] {
		return false
	}
	for _, prev := range d.keys {
		if matchr.JaroWinkler(prev, key, true) >= fuzzyDuplicateScore {
			return false
		}
	}
	d.seen[key] = true
	d.keys = append(d.keys, key)
	return true
}
