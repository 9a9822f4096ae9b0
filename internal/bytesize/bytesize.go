// Package bytesize converts byte counts to human readable sizes and back.
package bytesize

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// DefaultMaxBodySize is used when a configured size string is blank.
const DefaultMaxBodySize = "1KB"

var (
	units     = []string{"bytes", "KB", "MB", "GB", "TB", "PB"}
	textUnits = []string{"BYTES", "KB", "MB", "GB", "TB", "PB"}

	printer = message.NewPrinter(language.English)
)

// Format renders bytes in the largest unit whose quotient is at least 1,
// e.g. 2048 -> "2 KB" and 1536000 -> "1.46 MB".
func Format(bytes int64) string {
	if bytes <= 0 {
		return "0 bytes"
	}

	idx := 0
	for idx < len(units)-1 && float64(bytes) >= math.Pow(1024, float64(idx+1)) {
		idx++
	}
	quotient := float64(bytes) / math.Pow(1024, float64(idx))
	// 1048575 would print as "1,024 KB" once rounded.
	if idx < len(units)-1 && math.Round(quotient*100)/100 >= 1024 {
		idx++
		quotient = float64(bytes) / math.Pow(1024, float64(idx))
	}

	return printer.Sprint(number.Decimal(quotient, number.MaxFractionDigits(2))) + " " + units[idx]
}

// Parse reads a "<number><unit>" string such as "1KB" or "2 mb" and returns
// the size in bytes. It returns 0 when no unit is present or the number
// cannot be parsed.
func Parse(text string) int64 {
	size := strings.ToUpper(text)
	for i, unit := range textUnits {
		if !strings.Contains(size, unit) {
			continue
		}
		digits := strings.ReplaceAll(strings.ReplaceAll(size, " ", ""), unit, "")
		value, err := strconv.ParseFloat(digits, 64)
		if err != nil || value < 0 {
			return 0
		}
		return int64(value * math.Pow(1024, float64(i)))
	}
	return 0
}

// ParseOrDefault is Parse with a fallback for blank input.
func ParseOrDefault(text, def string) int64 {
	if strings.TrimSpace(text) == "" {
		text = def
	}
	return Parse(text)
}
