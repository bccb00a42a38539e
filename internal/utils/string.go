package utils

import (
	"fmt"
	"math"
	"strconv"
)

// FormatWithCommas renders n with thousands separators, e.g. 1234567 -> "1,234,567".
func FormatWithCommas(n int) string {
	s := strconv.Itoa(n)
	neg := n < 0
	if neg {
		s = s[1:]
	}

	out := make([]byte, 0, len(s)+len(s)/3)
	for i := range len(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}

// FormatBytes renders a byte count with a binary unit, e.g. 1536 -> "1.50 KB".
func FormatBytes(bytes int) string {
	if bytes < 1024 {
		return fmt.Sprintf("%d B", bytes)
	}
	exp := int(math.Log(float64(bytes)) / math.Log(1024))
	exp = max(1, min(exp, 6))
	return fmt.Sprintf("%.2f %cB", float64(bytes)/math.Pow(1024, float64(exp)), "KMGTPE"[exp-1])
}
