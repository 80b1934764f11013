package calculator

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// entry is the number being typed: a sign, integer digits and, once the
// point was pressed, fractional digits. The seeded "0" before a point
// counts against the digit budget like any typed digit.
type entry struct {
	negative bool
	integer  []byte
	point    bool
	fraction []byte
}

func (n *entry) reset() {
	n.negative = false
	n.integer = n.integer[:0]
	n.point = false
	n.fraction = n.fraction[:0]
}

func (n *entry) digits() int {
	return len(n.integer) + len(n.fraction)
}

// push appends d unless the budget is spent.
func (n *entry) push(d byte, maxDigits int) bool {
	if n.digits() >= maxDigits {
		return false
	}

	if n.point {
		n.fraction = append(n.fraction, d)
	} else {
		n.integer = append(n.integer, d)
	}
	return true
}

func (n *entry) addPoint() {
	if len(n.integer) == 0 {
		n.integer = append(n.integer, '0')
	}
	n.point = true
}

func (n *entry) toggleSign() {
	n.negative = !n.negative
}

func (n *entry) decimal() decimal.Decimal {
	if n.digits() == 0 {
		return decimal.Zero
	}

	coef, _ := new(big.Int).SetString(string(n.integer)+string(n.fraction), 10)
	if n.negative {
		coef.Neg(coef)
	}
	return decimal.NewFromBigInt(coef, -int32(len(n.fraction)))
}

// String returns the entry as typed, without a placeholder for a positive sign.
func (n *entry) String() string {
	var sb strings.Builder
	sb.Grow(len(n.integer) + len(n.fraction) + 2)

	if n.negative {
		sb.WriteByte('-')
	}
	sb.Write(n.integer)
	if n.point {
		sb.WriteByte('.')
		sb.Write(n.fraction)
	}
	return sb.String()
}

func parseEntry(s string) (entry, bool) {
	var n entry
	if strings.HasPrefix(s, "-") {
		n.negative = true
		s = s[1:]
	}

	whole, frac, hasPoint := strings.Cut(s, ".")
	if !isDigits(whole) || !isDigits(frac) || hasPoint && whole == "" {
		return entry{}, false
	}

	n.integer = []byte(whole)
	n.point = hasPoint
	n.fraction = []byte(frac)
	return n, true
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
