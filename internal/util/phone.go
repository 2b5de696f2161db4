package util

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var nonDialable = regexp.MustCompile(`[^\d\+]+`)
var nonDigit = regexp.MustCompile(`\D`)

// NormalizePhone tries to normalize user input into E.164-like format.
// Kenyan numbers (07xx..., 7xx..., 254...) get the +254 country code.
func NormalizePhone(raw string) string {
	s := strings.TrimSpace(raw)
	s = nonDialable.ReplaceAllString(s, "")

	if strings.HasPrefix(s, "00") {
		s = "+" + s[2:]
	} else if strings.HasPrefix(s, "0") && len(s) == 10 {
		s = "+254" + s[1:]
	} else if strings.HasPrefix(s, "7") && len(s) == 9 {
		s = "+254" + s
	} else if strings.HasPrefix(s, "254") {
		s = "+" + s
	}

	return s
}

// StripNonDigits returns only the digits of a recipient address, the form
// stored on message records.
func StripNonDigits(s string) string {
	return nonDigit.ReplaceAllString(s, "")
}

// MessageParts returns the number of SMS segments the body occupies.
// Single segment up to 160 chars, 153 per segment when concatenated.
func MessageParts(body string) int {
	n := utf8.RuneCountInString(body)
	if n == 0 {
		return 0
	}
	if n <= 160 {
		return 1
	}
	return (n + 152) / 153
}
