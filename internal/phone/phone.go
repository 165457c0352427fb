// Package phone normalizes Guatemalan (+502) phone numbers into the
// canonical 11-digit form used for deduplication and dispatch.
package phone

import "strings"

const countryPrefix = "502"

const canonicalLen = 11

// Normalize strips a token down to digits and canonicalizes it.
// Accepted inputs: a bare 8-digit local number, an 11-digit number
// already carrying the 502 prefix, or a longer digit string starting
// with 502 (truncated to 11). Anything else is invalid.
func Normalize(raw string) (string, bool) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	switch {
	case len(digits) == canonicalLen && strings.HasPrefix(digits, countryPrefix):
		return digits, true
	case len(digits) == canonicalLen-len(countryPrefix):
		return countryPrefix + digits, true
	case len(digits) > canonicalLen && strings.HasPrefix(digits, countryPrefix):
		return digits[:canonicalLen], true
	}
	return "", false
}

// ParseResult is the outcome of parsing free-text number input.
type ParseResult struct {
	Numbers           []string `json:"numbers"`
	Invalid           []string `json:"invalid"`
	DuplicatesRemoved int      `json:"duplicatesRemoved"`
}

// ParseRaw splits raw text on newlines, commas and semicolons, then
// normalizes and deduplicates the tokens. Canonical numbers keep
// first-seen order; tokens that fail normalization are reported in
// Invalid with their original text.
func ParseRaw(raw string) ParseResult {
	tokens := strings.FieldsFunc(raw, func(r rune) bool {
		return r == '\n' || r == '\r' || r == ',' || r == ';'
	})

	res := ParseResult{
		Numbers: []string{},
		Invalid: []string{},
	}
	seen := make(map[string]struct{})

	for _, t := range tokens {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		n, ok := Normalize(t)
		if !ok {
			res.Invalid = append(res.Invalid, t)
			continue
		}
		if _, dup := seen[n]; dup {
			res.DuplicatesRemoved++
			continue
		}
		seen[n] = struct{}{}
		res.Numbers = append(res.Numbers, n)
	}

	return res
}
