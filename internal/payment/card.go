// Package payment does the client-side plausibility checks of the payment
// form and simulates the gateway that turns a card into a token. None of this
// replaces validation by a real gateway.
package payment

import (
	"strconv"
	"strings"
	"time"
)

const (
	minCardDigits = 13
	maxCardDigits = 19
)

// ValidLuhn reports whether number, with spaces removed, is 13 to 19 digits
// long and passes the mod-10 check.
func ValidLuhn(number string) bool {
	n := strings.ReplaceAll(number, " ", "")
	if len(n) < minCardDigits || len(n) > maxCardDigits {
		return false
	}
	sum := 0
	double := false
	for i := len(n) - 1; i >= 0; i-- {
		c := n[i]
		if c < '0' || c > '9' {
			return false
		}
		d := int(c - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// ValidExpiry checks an MM/YY expiry against now. The current month is still valid.
func ValidExpiry(expiry string, now time.Time) bool {
	if len(expiry) != 5 || expiry[2] != '/' || !allDigits(expiry[:2]) || !allDigits(expiry[3:]) {
		return false
	}
	month, _ := strconv.Atoi(expiry[:2])
	yy, _ := strconv.Atoi(expiry[3:])
	if month < 1 || month > 12 {
		return false
	}
	year := 2000 + yy
	cy, cm := now.Year(), int(now.Month())
	return year > cy || (year == cy && month >= cm)
}

// ValidCVC accepts 3 or 4 digits.
func ValidCVC(cvc string) bool {
	return len(cvc) >= 3 && len(cvc) <= 4 && allDigits(cvc)
}

// FormatCardNumber keeps the digits of raw and groups them by four.
func FormatCardNumber(raw string) string {
	d := digitsOf(raw)
	var b strings.Builder
	for i := 0; i < len(d); i += 4 {
		if i > 0 {
			b.WriteByte(' ')
		}
		end := i + 4
		if end > len(d) {
			end = len(d)
		}
		b.WriteString(d[i:end])
	}
	return b.String()
}

// FormatExpiry turns typed digits into MM/YY as the shopper types.
func FormatExpiry(raw string) string {
	d := digitsOf(raw)
	if len(d) < 2 {
		return d
	}
	if len(d) > 4 {
		d = d[:4]
	}
	return d[:2] + "/" + d[2:]
}

// MaskCardNumber shows only the last four digits.
func MaskCardNumber(number string) string {
	n := strings.ReplaceAll(number, " ", "")
	if len(n) < 4 {
		return n
	}
	return "**** **** **** " + n[len(n)-4:]
}

func digitsOf(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
