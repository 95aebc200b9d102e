package pipeline

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseAmount converts a German-formatted decimal ("1.234,56") to a
// float64. "." is a thousands separator and "," the decimal separator.
// The error return distinguishes a malformed number from an absent one;
// extraction rules decide at the call site whether to default to zero.
func ParseAmount(s string) (float64, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(s), ".", "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	if cleaned == "" {
		return 0, fmt.Errorf("ParseAmount: empty input")
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("ParseAmount: %q: %w", s, err)
	}
	return v, nil
}

// amountOrZero is the tolerant form used by field rules: a malformed
// amount degrades to 0.0 instead of failing the document.
func amountOrZero(s string) float64 {
	v, err := ParseAmount(s)
	if err != nil {
		return 0
	}
	return v
}
