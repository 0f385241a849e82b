// Package normalize produces canonical comparison keys for text spans.
//
// Two readings that differ only in accentuation, breathing marks,
// casing, punctuation, or whitespace formatting map to the same key,
// so independently formatted sources agree on reading identity.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// marksAndPunct strips combining marks (accents, breathings, diacritics)
// after NFD decomposition, then drops punctuation. Transformer chains
// and casers carry internal state, so each call builds its own; both
// are cheap relative to the surrounding work.
func marksAndPunct() transform.Transformer {
	return transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		runes.Remove(runes.In(unicode.P)),
	)
}

// Key computes the canonical comparison key for a text span.
//
// Pure and total: unsupported characters pass through unchanged and no
// input fails. An empty result is valid and represents an omission
// reading, not an error. Key is idempotent: Key(Key(x)) == Key(x), and
// Key is safe for concurrent use.
func Key(text string) string {
	stripped, _, err := transform.String(marksAndPunct(), text)
	if err != nil {
		// transform.String only fails on a misbehaving Transformer;
		// the chain above never returns errors for any input. Fall
		// back to the raw text so the contract stays total.
		stripped = text
	}

	folded := cases.Fold().String(stripped)

	// Collapse whitespace runs (including those opened up by removed
	// punctuation) and trim.
	return strings.Join(strings.Fields(folded), " ")
}
