package calculator

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Render returns the display text for the current state. It never fails.
func (e *Engine) Render() string {
	v, isValue := e.result.Value()
	if !isValue {
		return e.state.fault().Error()
	}

	switch e.state {
	case BuildingDecimal:
		// keep trailing zeros and the point while typing
		return e.input.String()
	case BuildingInteger:
		if s := e.input.String(); s == "-0" {
			return s
		}
	}
	return formatValue(v, e.maxDigits)
}

func (e *Engine) String() string {
	return e.Render()
}

// formatValue spends whatever digits the integer part leaves over on the
// fraction, then cuts the text to maxDigits plus a point and a sign.
func formatValue(v decimal.Decimal, maxDigits int) string {
	integerDigits := len(v.Abs().Truncate(0).String())
	floatDigits := maxDigits - integerDigits
	if floatDigits < 0 {
		floatDigits = 0
	}

	s := v.Round(int32(floatDigits)).StringFixed(int32(floatDigits + 1))
	s = strings.TrimSuffix(strings.TrimRight(s, "0"), ".")

	maxLength := maxDigits
	if strings.Contains(s, ".") {
		maxLength++
	}
	if strings.HasPrefix(s, "-") {
		maxLength++
	}
	if len(s) > maxLength {
		s = s[:maxLength]
	}
	return s
}
