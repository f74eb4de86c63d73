package report

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Currency formats v as dollars with thousands separators, e.g. $1,234.50.
func Currency(v float64) string {
	if v < 0 {
		return "-" + printer.Sprintf("$%.2f", -v)
	}
	return printer.Sprintf("$%.2f", v)
}

// Percent formats a ratio with three decimals, e.g. 0.03705 -> 3.705%.
func Percent(ratio float64) string {
	return printer.Sprintf("%.3f%%", ratio*100)
}

// Count formats an integer with thousands separators.
func Count(n int) string {
	return printer.Sprintf("%d", n)
}
