package templates

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// EscapeMarkdown escapes characters that would break Markdown table cells
// and inline formatting. Report values come from free-form CRM fields, so
// pipes and formatting runes do show up in practice.
func EscapeMarkdown(text string) string {
	replacer := strings.NewReplacer(
		"|", "\\|",
		"*", "\\*",
		"_", "\\_",
		"`", "\\`",
		"[", "\\[",
		"]", "\\]",
	)
	return replacer.Replace(text)
}

// Percent formats a probability in [0,1] as a percentage string.
func Percent(p float64) string {
	return fmt.Sprintf("%.1f%%", p*100)
}

// Money formats a deal value with thousands separators, no decimals.
func Money(v decimal.Decimal) string {
	f, _ := v.Float64()
	return humanize.CommafWithDigits(f, 0)
}
