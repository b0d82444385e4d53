// Package normalize canonicalizes entity display names into comparison keys.
// Two names refer to the same candidate identity iff their keys are
// byte-equal; no fuzzy matching is attempted, favoring precision over recall
// since a false merge destroys data while a false negative is just a
// recoverable duplicate.
package normalize

import (
	"strings"
	"unicode"
)

// Key lower-cases the name, drops every rune that is not a letter, digit or
// space, trims it, and collapses internal whitespace runs to single spaces.
// Deterministic and total.
func Key(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
