package eczane

import "strings"

func stripNonDigits(s string) string {
	var b strings.Builder
	for _, c := range s {
		if c >= '0' && c <= '9' {
			b.WriteRune(c)
		}
	}
	return b.String()
}

// NormalizePhone reduces a free-form phone field to the national
// 0XXXXXXXXXX form. anything that doesn't look like a Turkish number
// after stripping is passed through untouched rather than guessed at.
func NormalizePhone(raw string) string {
	digits := stripNonDigits(raw)

	if len(digits) == 11 && strings.HasPrefix(digits, "0") {
		return digits
	}
	if len(digits) == 10 {
		return "0" + digits
	}
	return raw
}
