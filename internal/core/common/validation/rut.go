package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// CleanRUT strips dots, dashes and whitespace and uppercases the check digit.
// "12.345.678-k" becomes "12345678K".
func CleanRUT(rut string) string {
	cleaned := strings.NewReplacer(".", "", "-", "", " ", "").Replace(rut)
	return strings.ToUpper(strings.TrimSpace(cleaned))
}

// CalcDV computes the module-11 check digit for the numeric body of a RUT.
// Returns "0"-"9" or "K".
func CalcDV(body string) (string, error) {
	if body == "" {
		return "", fmt.Errorf("empty rut body")
	}
	sum := 0
	factor := 2
	for i := len(body) - 1; i >= 0; i-- {
		d, err := strconv.Atoi(string(body[i]))
		if err != nil {
			return "", fmt.Errorf("rut body contains non-digit %q", body[i])
		}
		sum += d * factor
		factor++
		if factor > 7 {
			factor = 2
		}
	}
	remainder := 11 - (sum % 11)
	switch remainder {
	case 11:
		return "0", nil
	case 10:
		return "K", nil
	default:
		return strconv.Itoa(remainder), nil
	}
}

var rutPattern = regexp.MustCompile(`^\d{7,8}[0-9K]$`)

func IsValidRUT(rut string) bool {
	cleaned := CleanRUT(rut)
	if !rutPattern.MatchString(cleaned) {
		return false
	}
	body := cleaned[:len(cleaned)-1]
	dv := string(cleaned[len(cleaned)-1])
	expected, err := CalcDV(body)
	if err != nil {
		return false
	}
	return dv == expected
}

// FormatRUT renders a cleaned RUT with thousand dots and a dash before the
// check digit: "12345678K" becomes "12.345.678-K".
func FormatRUT(rut string) string {
	cleaned := CleanRUT(rut)
	if len(cleaned) < 2 {
		return cleaned
	}
	body := cleaned[:len(cleaned)-1]
	dv := string(cleaned[len(cleaned)-1])

	var b strings.Builder
	for i, r := range body {
		if i > 0 && (len(body)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return b.String() + "-" + dv
}
