// Package phone canonicalizes recipient numbers into a dialable form.
package phone

import "strings"

// CountryCode is prefixed to bare 10-digit national numbers.
const CountryCode = "1"

// Normalize strips every non-digit and applies the country code.
// Numbers shorter than 10 or longer than 11 digits are returned as bare digits;
// validation is left to the caller.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	switch {
	case len(digits) == 10:
		return CountryCode + digits
	case len(digits) == 11 && !strings.HasPrefix(digits, CountryCode):
		return CountryCode + digits[1:]
	default:
		return digits
	}
}
