package validate

import (
	"math"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var reOrderID = regexp.MustCompile(`^PED-[0-9]{5}$`)

// MaxIDLen is the widest ERP code accepted, in characters.
const MaxIDLen = 64

// ID validates an ERP code (product or customer). Legacy codes carry spaces,
// slashes, '#' and leading zeros, so anything printable is kept verbatim
// apart from trimming. Codes only ever travel as bound parameters.
func ID(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || !utf8.ValidString(s) || utf8.RuneCountInString(s) > MaxIDLen {
		return s, false
	}
	for _, r := range s {
		if unicode.IsControl(r) {
			return s, false
		}
	}
	return s, true
}

// OrderID validates the PED-NNNNN order number format.
func OrderID(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, reOrderID.MatchString(s)
}

// Name validates a display name copied onto the order (1-120 characters).
func Name(s string) (string, bool) {
	s = strings.TrimSpace(s)
	n := utf8.RuneCountInString(s)
	return s, n >= 1 && n <= 120
}

// MaxQty is the largest quantity one order line may carry.
const MaxQty = 9999

// Qty accepts line quantities between 1 and MaxQty.
func Qty(n int) bool { return n >= 1 && n <= MaxQty }

// Amount accepts finite, non-negative money values.
func Amount(f float64) bool { return f >= 0 && !math.IsNaN(f) && !math.IsInf(f, 0) }
