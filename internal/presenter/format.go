package presenter

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Placeholder is rendered for any missing value.
const Placeholder = "-"

// FormatDistance renders v with exactly four decimals, truncating extra
// digits (0.3298765 -> "0.3298"). A nil value renders as Placeholder.
func FormatDistance(v *float64) string {
	if v == nil {
		return Placeholder
	}
	return fixed4(*v)
}

func fixed4(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	// work on the shortest decimal form so 0.21 does not turn into 0.2099
	s := strconv.FormatFloat(v, 'f', -1, 64)
	whole, frac, _ := strings.Cut(s, ".")
	if len(frac) > 4 {
		frac = frac[:4]
	} else {
		frac += strings.Repeat("0", 4-len(frac))
	}
	return whole + "." + frac
}

// formatThreshold renders a threshold the way the legend shows it (0.33, 0.4).
func formatThreshold(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatPercent(position float64) string {
	return fmt.Sprintf("%.2f%%", position*100)
}

func orPlaceholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return Placeholder
	}
	return s
}

func formatIndex(v *int) string {
	if v == nil {
		return Placeholder
	}
	return strconv.Itoa(*v)
}
