// Package numparse converts free-text numeric input, as typed into a form in
// either comma-decimal or period-decimal notation, into float64 values.
package numparse

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/iwvelando/kpicalc/pkg/mathutil"
)

// decimalLiteral matches plain decimal notation with an optional exponent.
// Go-only forms such as "1_000", "0x10" or "Inf" do not match.
var decimalLiteral = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// Parse converts text into a finite number. The second return value is false
// when the text is empty, not numeric, or not finite.
//
// The decimal separator is decided by the last separator present: when a comma
// occurs after the last period, periods are thousands separators and the comma
// is the decimal point ("1.234,56"). Otherwise commas are thousands separators
// ("1,234.56").
func Parse(text string) (float64, bool) {
	t := stripSpace(text)
	if t == "" {
		return 0, false
	}

	if strings.Contains(t, ",") && strings.LastIndex(t, ",") > strings.LastIndex(t, ".") {
		t = strings.ReplaceAll(t, ".", "")
		t = strings.Replace(t, ",", ".", 1)
	} else {
		t = strings.ReplaceAll(t, ",", "")
	}

	if !decimalLiteral.MatchString(t) {
		return 0, false
	}

	n, err := strconv.ParseFloat(t, 64)
	if err != nil || !mathutil.IsFinite(n) {
		return 0, false
	}
	return n, true
}

// ParseOr behaves like Parse but substitutes def when text is empty. Text
// holding only whitespace is not empty and is rejected like any other
// non-numeric input.
func ParseOr(text, def string) (float64, bool) {
	if text == "" {
		return Parse(def)
	}
	return Parse(text)
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
