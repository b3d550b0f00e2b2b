package meal

import (
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

// NormalizeStatus maps a raw remote status onto the closed SlotStatus set.
// ok is false when the string was not recognized; the status is then Unknown.
func NormalizeStatus(raw string) (status SlotStatus, ok bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "AVAIL", "AVAILABLE":
		return StatusAvailable, true
	case "ORDER", "ORDERED":
		return StatusOrdered, true
	case "CLOSED", "UNAVAILABLE", "NOT_AVAILABLE":
		return StatusUnavailable, true
	}
	return StatusUnknown, false
}

// NormalizeText trims and NFC-normalizes labels, dish names and keywords so
// that substring matching does not depend on how the remote composed them.
// Case is preserved.
func NormalizeText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// ContainsKeyword is a case-sensitive substring match after NFC composition.
// Surrounding spaces are significant. An empty keyword matches everything.
func ContainsKeyword(s, keyword string) bool {
	return strings.Contains(norm.NFC.String(s), norm.NFC.String(keyword))
}

// DateOf returns the calendar date of t in loc, as UTC midnight.
func DateOf(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Horizon returns [today, today+days].
func Horizon(today time.Time, days int) DateRange {
	if days < 0 {
		days = 0
	}
	return DateRange{From: today, To: today.AddDate(0, 0, days)}
}

// ParsePrice accepts strings like "25", "25.50", "¥25.50" or "￥ 25". It
// returns nil when no amount can be read.
func ParsePrice(s string) *decimal.Decimal {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) || r == '.' || r == '-' {
			return r
		}
		return -1
	}, s)
	if cleaned == "" {
		return nil
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return nil
	}
	return &d
}
