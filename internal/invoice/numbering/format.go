// Package numbering assigns invoice numbers of the form YYYYMM-NNNN.
package numbering

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// MaxSequence is the largest NNNN a month can hold.
const MaxSequence = 9999

var numberRe = regexp.MustCompile(`^(\d{6})-(\d{4})$`)

// Prefix returns YYYYMM for billingDate. Billing dates are stored as UTC
// midnight of the invoice's calendar date, so the UTC month is that date's month.
func Prefix(billingDate time.Time) string {
	return billingDate.UTC().Format("200601")
}

// Format renders prefix and seq as YYYYMM-NNNN. It is pure.
func Format(prefix string, seq int64) (string, error) {
	if len(prefix) != 6 {
		return "", fmt.Errorf("invalid invoice number prefix: %q", prefix)
	}
	if seq <= 0 || seq > MaxSequence {
		return "", fmt.Errorf("invalid invoice sequence: %d", seq)
	}
	return fmt.Sprintf("%s-%04d", prefix, seq), nil
}

// Parse splits a number produced by Format.
func Parse(number string) (string, int64, error) {
	match := numberRe.FindStringSubmatch(number)
	if match == nil {
		return "", 0, fmt.Errorf("malformed invoice number: %q", number)
	}
	seq, err := strconv.ParseInt(match[2], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("malformed invoice number: %q", number)
	}
	return match[1], seq, nil
}
