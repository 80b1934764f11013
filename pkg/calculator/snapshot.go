package calculator

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrInvalidSnapshot = errors.New("invalid calculator snapshot")

// Snapshot is the persisted form of an Engine.
type Snapshot struct {
	MaxDigits int              `json:"max_digits"`
	Value     *decimal.Decimal `json:"value,omitempty"`
	Operand   decimal.Decimal  `json:"operand"`
	Operator  Operator         `json:"operator"`
	State     State            `json:"state"`
	Input     string           `json:"input"`
}

func (e *Engine) Snapshot() Snapshot {
	s := Snapshot{
		MaxDigits: e.maxDigits,
		Operand:   e.operand,
		Operator:  e.operator,
		State:     e.state,
		Input:     e.input.String(),
	}
	if v, isValue := e.result.Value(); isValue {
		s.Value = &v
	}
	return s
}

// Restore rebuilds an Engine, rejecting snapshots whose value and state
// disagree about being in error.
func Restore(s Snapshot) (*Engine, error) {
	e, err := New(s.MaxDigits)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}

	if s.State > Failed || s.Operator > OpEquals {
		return nil, fmt.Errorf("%w: state %d, operator %d", ErrInvalidSnapshot, s.State, s.Operator)
	}
	if (s.Value == nil) != s.State.IsError() {
		return nil, fmt.Errorf("%w: value does not match state %s", ErrInvalidSnapshot, s.State)
	}

	input, isValid := parseEntry(s.Input)
	if !isValid || input.digits() > s.MaxDigits {
		return nil, fmt.Errorf("%w: input %q", ErrInvalidSnapshot, s.Input)
	}

	if s.Value != nil {
		if s.Value.Abs().GreaterThan(e.limit) {
			return nil, fmt.Errorf("%w: value %s exceeds %d digits", ErrInvalidSnapshot, s.Value, s.MaxDigits)
		}
		e.result = ok(*s.Value)
	} else {
		e.result = failed(s.State.fault())
	}
	e.operand = s.Operand
	e.operator = s.Operator
	e.state = s.State
	e.input = input
	return e, nil
}
