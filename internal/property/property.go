// Package property canonicalizes property addresses. The canonical key is the
// join key shared by the vendor directory, the deadline store and the inquiry
// store, so every store goes through Key.
package property

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var (
	folder = cases.Fold()

	// Leading boilerplate seen on signing notices, e.g.
	// "Document: Contract of Sale – Lot 95 Fake Rise VIC 3336".
	leadingLabels = []*regexp.Regexp{
		regexp.MustCompile(`^(re|fw|fwd)\s*:\s*`),
		regexp.MustCompile(`^document\s*:?\s*`),
		regexp.MustCompile(`^contract\s+of\s+sale\s*[:\-]?\s*`),
		regexp.MustCompile(`^completed\s*:?\s*`),
		regexp.MustCompile(`^[:\-]\s*`),
	}
	// Applied to a Key, so "Lot-95," and "lot no. 95" arrive as "lot 95"
	// and "lot no 95".
	lotToken = regexp.MustCompile(`\blot (no )?\d+[a-z]?\b`)
	postcode = regexp.MustCompile(`^\d{4}$`)

	states = map[string]bool{
		"vic": true, "nsw": true, "qld": true, "sa": true,
		"wa": true, "tas": true, "nt": true, "act": true,
	}
)

// Key returns the canonical form of an address: NFKC, case folded, dashes and
// punctuation turned into spaces, whitespace collapsed.
func Key(address string) string {
	s := folder.String(norm.NFKC.String(address))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Core strips leading labels and any "Lot <n>" token from an address and
// returns its canonical key.
func Core(address string) string {
	s := folder.String(norm.NFKC.String(address))
	s = strings.Map(func(r rune) rune {
		if unicode.Is(unicode.Pd, r) {
			return '-'
		}
		return r
	}, s)
	s = strings.TrimSpace(s)
	for changed := true; changed; {
		changed = false
		for _, re := range leadingLabels {
			if loc := re.FindStringIndex(s); loc != nil && loc[1] > 0 {
				s = strings.TrimSpace(s[loc[1]:])
				changed = true
			}
		}
	}
	return strings.Join(strings.Fields(lotToken.ReplaceAllString(Key(s), " ")), " ")
}

// Parts is an address broken into street tokens, state and postcode.
type Parts struct {
	Street   []string
	State    string
	Postcode string
}

// Split breaks a canonical (or raw) address into its parts. Missing state or
// postcode are returned empty.
func Split(address string) Parts {
	tokens := strings.Fields(Core(address))
	var p Parts
	if n := len(tokens); n > 0 && postcode.MatchString(tokens[n-1]) {
		p.Postcode = tokens[n-1]
		tokens = tokens[:n-1]
	}
	if n := len(tokens); n > 0 && states[tokens[n-1]] {
		p.State = tokens[n-1]
		tokens = tokens[:n-1]
	}
	p.Street = tokens
	return p
}

// StreetName drops leading house or unit numbers from the street tokens.
func (p Parts) StreetName() []string {
	i := 0
	for i < len(p.Street) && startsWithDigit(p.Street[i]) {
		i++
	}
	return p.Street[i:]
}

// SameLocality reports whether state and postcode agree.
func (p Parts) SameLocality(o Parts) bool {
	return p.State == o.State && p.Postcode == o.Postcode
}

func startsWithDigit(s string) bool {
	return s != "" && s[0] >= '0' && s[0] <= '9'
}

// Tokens returns the set of canonical tokens in s, used for overlap scoring.
func Tokens(s string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, t := range strings.Fields(Key(s)) {
		out[t] = struct{}{}
	}
	return out
}
