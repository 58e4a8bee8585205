// Package money renders decimal amounts for display.
package money

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultLocale matches the dashboard's es-MX presentation.
const DefaultLocale = "es-MX"

// maxWhole bounds the integer part to what int64 grouping can render exactly.
var maxWhole = decimal.NewFromInt(math.MaxInt64)

// Formatter renders amounts in a fixed locale.
type Formatter struct {
	printer *message.Printer
	point   string // locale decimal separator
}

// NewFormatter creates a Formatter for a BCP 47 locale such as "es-MX".
func NewFormatter(locale string) (*Formatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("parsing locale %q: %w", locale, err)
	}
	p := message.NewPrinter(tag)
	point := strings.TrimSuffix(strings.TrimPrefix(p.Sprintf("%.1f", 1.5), "1"), "5")
	return &Formatter{printer: p, point: point}, nil
}

// Format renders amount with two decimals, locale grouping and the locale's
// narrow currency symbol, e.g. "$1,000,000.00" for MXN. Currencies without a
// symbol fall back to their ISO code, e.g. "XAU 10.00".
func (f *Formatter) Format(amount decimal.Decimal, code string) (string, error) {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return "", fmt.Errorf("parsing currency %q: %w", code, err)
	}

	abs := amount.Abs().Round(2)
	whole := abs.Truncate(0)
	if whole.GreaterThan(maxWhole) {
		return "", fmt.Errorf("amount %s out of range", amount)
	}
	cents := abs.Sub(whole).Shift(2).IntPart()
	number := f.printer.Sprintf("%d", whole.IntPart()) + f.point + fmt.Sprintf("%02d", cents)

	sign := ""
	if amount.IsNegative() && !abs.IsZero() {
		sign = "-"
	}

	sym := f.printer.Sprint(currency.NarrowSymbol(unit))
	if sym == unit.String() {
		return sign + sym + " " + number, nil
	}
	return sign + sym + number, nil
}

// Signed renders a transaction amount prefixed with "+" for credits and "-"
// for debits.
func (f *Formatter) Signed(amount decimal.Decimal, code string, credit bool) (string, error) {
	s, err := f.Format(amount.Abs(), code)
	if err != nil {
		return "", err
	}
	if credit {
		return "+" + s, nil
	}
	return "-" + s, nil
}
