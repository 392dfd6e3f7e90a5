package validation

import (
	"regexp"
	"strings"
)

var e164Pattern = regexp.MustCompile(`^\+[1-9]\d{7,14}$`)

// IsValidPhone checks E.164 format: leading +, country code, 8 to 15 digits.
func IsValidPhone(phone string) bool {
	return e164Pattern.MatchString(phone)
}

// NormalizePhone strips spaces, dashes and parentheses so "+56 9 1234 5678"
// compares equal to "+56912345678".
func NormalizePhone(phone string) string {
	return strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(strings.TrimSpace(phone))
}
