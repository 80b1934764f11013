// Package calculator implements a keypad driven decimal calculator.
//
// An Engine receives one command per key press and keeps a running
// left-to-right computation. Every arithmetic result is rounded half away
// from zero to at least 28 fractional places (more when the budget is
// larger) and then checked against the digit budget: a magnitude above
// 10^MaxDigits-1 discards the value and locks the engine in an error state
// until Clear. The budget only limits entry, display and that check.
//
// An Engine is not safe for concurrent use.
package calculator

import (
	"errors"

	"github.com/shopspring/decimal"
)

const (
	// DefaultMaxDigits is the budget callers usually pass to New.
	DefaultMaxDigits = 28
	MaxDigitsLimit   = 1000

	minWorkingScale = 28
)

var ErrInvalidDigits = errors.New("digit budget must be between 1 and 1000")

type Engine struct {
	maxDigits int
	scale     int32
	limit     decimal.Decimal

	result   Result
	operand  decimal.Decimal
	operator Operator
	state    State
	input    entry
}

func New(maxDigits int) (*Engine, error) {
	if maxDigits < 1 || maxDigits > MaxDigitsLimit {
		return nil, ErrInvalidDigits
	}

	e := &Engine{
		maxDigits: maxDigits,
		scale:     int32(max(maxDigits, minWorkingScale)),
		limit:     decimal.New(1, int32(maxDigits)).Sub(decimal.New(1, 0)),
	}
	e.Clear()
	return e, nil
}

// Clear resets the engine as if it was just switched on.
func (e *Engine) Clear() {
	e.result = ok(decimal.Zero)
	e.operand = decimal.Zero
	e.operator = OpNone
	e.state = Zeroed
	e.input.reset()
}

// DigitIn handles a key in '0'..'9'; other bytes are ignored.
func (e *Engine) DigitIn(d byte) {
	if d < '0' || d > '9' {
		return
	}

	switch e.state {
	case Zeroed:
		if d == '0' {
			return
		}
		e.state = BuildingInteger
	case FixedOperand:
		e.input.reset()
		e.state = BuildingInteger
	case BuildingInteger, BuildingDecimal:
	default:
		return
	}

	if e.input.push(d, e.maxDigits) {
		e.result = ok(e.input.decimal())
	}
}

// Point starts the fractional part of the entry.
func (e *Engine) Point() {
	switch e.state {
	case BuildingDecimal:
		return
	case FixedOperand:
		e.input.reset()
		e.result = ok(decimal.Zero)
	case Zeroed, BuildingInteger:
	default:
		return
	}

	e.input.addPoint()
	e.state = BuildingDecimal
}

// ChangeSign negates the displayed value without changing the entry mode.
func (e *Engine) ChangeSign() {
	v, isValue := e.result.Value()
	if !isValue {
		return
	}

	e.result = ok(v.Neg())
	e.input.toggleSign()
}

func (e *Engine) Add()      { e.arm(OpAdd) }
func (e *Engine) Subtract() { e.arm(OpSubtract) }
func (e *Engine) Multiply() { e.arm(OpMultiply) }
func (e *Engine) Divide()   { e.arm(OpDivide) }

// Equals settles the pending operation and closes the chain.
func (e *Engine) Equals() {
	if e.state.IsError() {
		return
	}

	e.evaluate()
	e.operator = OpEquals
}

func (e *Engine) arm(op Operator) {
	if e.state.IsError() {
		return
	}

	e.evaluate()
	v, isValue := e.result.Value()
	if !isValue {
		return
	}

	e.operand = v
	e.operator = op
	e.state = FixedOperand
}

func (e *Engine) evaluate() {
	v, isValue := e.result.Value()
	if !isValue {
		return
	}

	var r decimal.Decimal
	switch e.operator {
	case OpAdd:
		r = e.operand.Add(v)
	case OpSubtract:
		r = e.operand.Sub(v)
	case OpMultiply:
		r = e.operand.Mul(v)
	case OpDivide:
		if v.IsZero() {
			if e.operand.IsZero() {
				e.fail(FaultUndefined)
			} else {
				e.fail(FaultZeroDivisor)
			}
			return
		}
		r = e.operand.DivRound(v, e.scale)
	default:
		return
	}

	e.store(r.Round(e.scale))
	if !e.state.IsError() {
		e.state = FixedOperand
	}
}

// store writes v unless it breaks the digit budget, in which case the
// engine moves to overflow or underflow. The state is otherwise untouched.
func (e *Engine) store(v decimal.Decimal) {
	switch {
	case v.GreaterThan(e.limit):
		e.fail(FaultOverflow)
	case v.LessThan(e.limit.Neg()):
		e.fail(FaultUnderflow)
	default:
		e.result = ok(v)
	}
}

func (e *Engine) fail(f Fault) {
	e.result = failed(f)
	e.state = f.state()
}

func (e *Engine) MaxDigits() int     { return e.maxDigits }
func (e *Engine) State() State       { return e.state }
func (e *Engine) Operator() Operator { return e.operator }
func (e *Engine) Result() Result     { return e.result }

// Operand returns the left operand of the pending operation, if any.
func (e *Engine) Operand() (decimal.Decimal, bool) {
	switch e.operator {
	case OpNone, OpEquals:
		return decimal.Zero, false
	}
	return e.operand, true
}
