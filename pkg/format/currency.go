// Package format renders amounts and plain numbers for display using a static
// table of currency profiles, so output does not depend on the host locale.
package format

import (
	"math"
	"sort"
	"strings"

	"github.com/iwvelando/kpicalc/pkg/constants"
	"github.com/iwvelando/kpicalc/pkg/mathutil"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// nbsp separates an amount from a trailing currency symbol.
const nbsp = "\u00a0"

// CurrencyProfile describes how amounts in one currency are displayed.
type CurrencyProfile struct {
	Code        string `json:"code" yaml:"code"`
	Locale      string `json:"locale" yaml:"locale"`
	Symbol      string `json:"symbol" yaml:"symbol"`
	SymbolAfter bool   `json:"symbolAfter" yaml:"symbolAfter"`
	Digits      int    `json:"digits" yaml:"digits"`
}

var profiles = map[string]CurrencyProfile{
	"ISK": {Code: "ISK", Locale: "is-IS", Symbol: "kr.", SymbolAfter: true, Digits: 0},
	"EUR": {Code: "EUR", Locale: "de-DE", Symbol: "€", SymbolAfter: true, Digits: 2},
	"GBP": {Code: "GBP", Locale: "en-GB", Symbol: "£", Digits: 2},
	"USD": {Code: "USD", Locale: "en-US", Symbol: "$", Digits: 2},
	"SEK": {Code: "SEK", Locale: "sv-SE", Symbol: "kr", SymbolAfter: true, Digits: 0},
	"NOK": {Code: "NOK", Locale: "nb-NO", Symbol: "kr", SymbolAfter: true, Digits: 0},
	"DKK": {Code: "DKK", Locale: "da-DK", Symbol: "kr.", SymbolAfter: true, Digits: 0},
}

// LookupProfile returns the profile for code. Unknown codes return the default
// profile and false.
func LookupProfile(code string) (CurrencyProfile, bool) {
	p, ok := profiles[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return profiles[constants.DefaultCurrency], false
	}
	return p, true
}

// Profiles returns every known profile ordered by currency code.
func Profiles() []CurrencyProfile {
	list := make([]CurrencyProfile, 0, len(profiles))
	for _, p := range profiles {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Code < list[j].Code })
	return list
}

// Currency formats value in the given currency, e.g. "$1,234.56" or
// "1.234,56 €". Unknown codes are formatted with the default profile.
func Currency(value float64, code string) string {
	profile, _ := LookupProfile(code)
	return profile.Format(value)
}

// Format renders value with the profile's locale, symbol and fixed digits.
func (p CurrencyProfile) Format(value float64) string {
	sign, digits := localized(value, p.Digits, p.Locale)
	if p.SymbolAfter {
		return sign + digits + nbsp + p.Symbol
	}
	return sign + p.Symbol + digits
}

// Number formats value with exactly digits fractional digits and English
// digit grouping (e.g. "1,234.50"). Negative digits fall back to the default.
func Number(value float64, digits int) string {
	if digits < 0 {
		digits = constants.DefaultNumberDigits
	}
	sign, formatted := localized(value, digits, "en")
	return sign + formatted
}

// localized rounds half away from zero to digits places and returns the sign
// and the grouped absolute value. A value that rounds to zero is unsigned.
func localized(value float64, digits int, locale string) (string, string) {
	rounded := mathutil.Round(math.Abs(value), digits)

	sign := ""
	if value < 0 && rounded != 0 {
		sign = "-"
	}

	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	printer := message.NewPrinter(tag)
	return sign, printer.Sprint(number.Decimal(rounded, number.Scale(digits)))
}
