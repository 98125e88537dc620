// Package notation turns free-text move queries and stored move names into
// canonical comparison keys.
//
// A key is produced in three fixed steps: text folding (FoldSpace), removal of
// brackets that enclose the whole string, then an ordered table of rewrite
// rules. The steps repeat until the key is stable, so Normalize is idempotent
// for any rule table that converges.
package notation

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// maxPasses bounds the fixed-point loop in Normalize.
const maxPasses = 8

// FoldSpace folds full-width ASCII to its narrow form, composes to NFC, trims
// and collapses whitespace, and lowercases ASCII letters. Other characters
// (kana of either width, accented letters) are left as they are.
func FoldSpace(s string) string {
	folded := norm.NFC.String(strings.Map(narrowASCII, s))
	return lowerASCII(strings.Join(strings.Fields(folded), " "))
}

// narrowASCII maps full-width forms whose narrow counterpart is ASCII,
// including the ideographic space.
func narrowASCII(r rune) rune {
	p := width.LookupRune(r)
	if p.Kind() != width.EastAsianFullwidth {
		return r
	}
	if n := p.Narrow(); n != 0 && n < utf8.RuneSelf {
		return n
	}
	return r
}

func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

var bracketPairs = map[byte]byte{
	'[': ']',
	'(': ')',
}

// StripOuterBrackets removes bracket pairs that enclose the whole string:
// "[5P]" becomes "5P", while "[4]6[S]" and "214[H]" are left alone.
func StripOuterBrackets(s string) string {
	for len(s) >= 2 {
		closer, ok := bracketPairs[s[0]]
		if !ok || s[len(s)-1] != closer || !enclosesWhole(s) {
			return s
		}
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}

// enclosesWhole reports whether the bracket at s[0] is closed by s[len(s)-1].
func enclosesWhole(s string) bool {
	open, closer := s[0], s[len(s)-1]
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case open:
			depth++
		case closer:
			depth--
			if depth == 0 && i != len(s)-1 {
				return false
			}
		}
	}
	return depth == 0
}

// Normalizer produces canonical keys using a fixed rule table.
// It is safe for concurrent use.
type Normalizer struct {
	rules *Rules
}

// New returns a Normalizer over rules. A nil rules table skips step 3.
func New(rules *Rules) *Normalizer {
	return &Normalizer{rules: rules}
}

// Rules returns the rule table the normalizer was built with.
func (n *Normalizer) Rules() *Rules {
	return n.rules
}

// Normalize returns the canonical key for s.
func (n *Normalizer) Normalize(s string) string {
	out := s
	for i := 0; i < maxPasses; i++ {
		next := n.pass(out)
		if next == out {
			return next
		}
		out = next
	}
	return out
}

func (n *Normalizer) pass(s string) string {
	s = FoldSpace(s)
	s = StripOuterBrackets(s)
	if n.rules != nil {
		s = n.rules.Apply(s)
	}
	return s
}
