package calculator

import "github.com/shopspring/decimal"

// State is the entry mode of the engine.
type State uint8

const (
	Zeroed State = iota
	FixedOperand
	BuildingInteger
	BuildingDecimal
	Overflowed
	Underflowed
	DividedByZero
	Undefined
	Failed
)

var stateNames = [...]string{
	Zeroed:          "zeroed",
	FixedOperand:    "fixedOperand",
	BuildingInteger: "buildingInteger",
	BuildingDecimal: "buildingDecimal",
	Overflowed:      "overflow",
	Underflowed:     "underflow",
	DividedByZero:   "zeroDivisor",
	Undefined:       "undefined",
	Failed:          "error",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// IsError reports whether s is terminal until Clear.
func (s State) IsError() bool {
	return s >= Overflowed
}

func (s State) fault() Fault {
	switch s {
	case Overflowed:
		return FaultOverflow
	case Underflowed:
		return FaultUnderflow
	case DividedByZero:
		return FaultZeroDivisor
	case Undefined:
		return FaultUndefined
	case Failed:
		return FaultGeneric
	default:
		return FaultNone
	}
}

type Operator uint8

const (
	OpNone Operator = iota
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpEquals
)

var operatorNames = [...]string{
	OpNone:     "none",
	OpAdd:      "add",
	OpSubtract: "subtract",
	OpMultiply: "multiply",
	OpDivide:   "divide",
	OpEquals:   "equals",
}

func (o Operator) String() string {
	if int(o) < len(operatorNames) {
		return operatorNames[o]
	}
	return "unknown"
}

// Fault is the reason a result was discarded. The zero value means no fault.
// Its error text is exactly what the display shows.
type Fault uint8

const (
	FaultNone Fault = iota
	FaultOverflow
	FaultUnderflow
	FaultZeroDivisor
	FaultUndefined
	FaultGeneric
)

func (f Fault) Error() string {
	switch f {
	case FaultNone:
		return ""
	case FaultOverflow:
		return "Overflow!"
	case FaultUnderflow:
		return "Underflow!"
	case FaultZeroDivisor:
		return "0 Divide!"
	case FaultUndefined:
		return "Undefined!"
	default:
		return "Error!"
	}
}

func (f Fault) state() State {
	switch f {
	case FaultOverflow:
		return Overflowed
	case FaultUnderflow:
		return Underflowed
	case FaultZeroDivisor:
		return DividedByZero
	case FaultUndefined:
		return Undefined
	default:
		return Failed
	}
}

// Result holds either a computable value or the fault that replaced it.
type Result struct {
	value decimal.Decimal
	fault Fault
}

func ok(d decimal.Decimal) Result {
	return Result{value: d}
}

func failed(f Fault) Result {
	if f == FaultNone {
		f = FaultGeneric
	}
	return Result{fault: f}
}

// Value returns the decimal and true, or zero and false when r is a fault.
func (r Result) Value() (decimal.Decimal, bool) {
	if r.fault != FaultNone {
		return decimal.Zero, false
	}
	return r.value, true
}

func (r Result) Fault() Fault {
	return r.fault
}

func (r Result) IsFault() bool {
	return r.fault != FaultNone
}
