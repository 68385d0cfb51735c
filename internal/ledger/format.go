package ledger

import (
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var indianPrinter = message.NewPrinter(language.MustParse("en-IN"))

// FormatAmount renders v with en-IN digit grouping and exactly two decimals.
func FormatAmount(v float64) string {
	return indianPrinter.Sprint(number.Decimal(Round2(v), number.Scale(2)))
}

// FormatPlain renders v in its shortest decimal form, as stored values are exported.
func FormatPlain(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
