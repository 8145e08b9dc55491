package expression

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/karupanerura/intcalc/internal/types"
)

type OverflowPolicy int

const (
	OverflowError OverflowPolicy = iota
	OverflowWrap
	OverflowSaturate
)

var overflowPolicyNameMap = map[string]OverflowPolicy{
	"error":    OverflowError,
	"wrap":     OverflowWrap,
	"saturate": OverflowSaturate,
}

func ParseOverflowPolicy(s string) (OverflowPolicy, error) {
	if p, ok := overflowPolicyNameMap[strings.ToLower(s)]; ok {
		return p, nil
	}
	return 0, &types.Error{
		Tag: types.ValueErrorTag,
		Err: fmt.Errorf("unknown overflow policy %q (expected one of error, wrap, saturate)", s),
	}
}

func (p OverflowPolicy) String() string {
	switch p {
	case OverflowError:
		return "error"
	case OverflowWrap:
		return "wrap"
	case OverflowSaturate:
		return "saturate"
	default:
		return fmt.Sprintf("OverflowPolicy(%d)", int(p))
	}
}

// resolve picks the result of an overflowed operation according to the policy.
func (p OverflowPolicy) resolve(wrapped, saturated int64, cause func() error) (int64, error) {
	switch p {
	case OverflowWrap:
		return wrapped, nil
	case OverflowSaturate:
		return saturated, nil
	default:
		return 0, &types.Error{
			Tag: types.OverflowErrorTag,
			Err: cause(),
		}
	}
}

func saturateBySign(positive bool) int64 {
	if positive {
		return math.MaxInt64
	}
	return math.MinInt64
}

func (p OverflowPolicy) literal(lex Lexeme) (int64, error) {
	if !lex.Overflowed {
		return lex.Value, nil
	}
	return p.resolve(lex.Value, math.MaxInt64, func() error {
		return fmt.Errorf("integer literal at %d does not fit in int64", lex.Pos+1)
	})
}

// negativeLiteral resolves a unary minus applied directly to an overflowed literal.
func (p OverflowPolicy) negativeLiteral(lex Lexeme, lit string) (int64, error) {
	if v, err := strconv.ParseInt("-"+lit, 10, 64); err == nil {
		return v, nil
	}
	return p.resolve(-lex.Value, math.MinInt64, func() error {
		return fmt.Errorf("integer literal at %d does not fit in int64", lex.Pos+1)
	})
}

func (p OverflowPolicy) negate(op Lexeme, v int64) (int64, error) {
	if v == math.MinInt64 {
		return p.resolve(math.MinInt64, math.MaxInt64, func() error {
			return fmt.Errorf("negation of %d at %d", v, op.Pos+1)
		})
	}
	return -v, nil
}

func (p OverflowPolicy) calculate(op Lexeme, lhs, rhs int64) (int64, error) {
	switch op.Kind {
	case Plus:
		r := lhs + rhs
		if (lhs > 0 && rhs > 0 && r < 0) || (lhs < 0 && rhs < 0 && r >= 0) {
			return p.resolve(r, saturateBySign(lhs > 0), overflowCause(op, lhs, rhs))
		}
		return r, nil

	case Minus:
		r := lhs - rhs
		if (lhs^rhs)&(lhs^r) < 0 {
			return p.resolve(r, saturateBySign(lhs >= 0), overflowCause(op, lhs, rhs))
		}
		return r, nil

	case Multiply:
		if lhs == 0 || rhs == 0 {
			return 0, nil
		}
		r := lhs * rhs
		if r/rhs != lhs || (lhs == -1 && rhs == math.MinInt64) || (rhs == -1 && lhs == math.MinInt64) {
			return p.resolve(r, saturateBySign((lhs < 0) == (rhs < 0)), overflowCause(op, lhs, rhs))
		}
		return r, nil

	case Divide:
		if rhs == 0 {
			return 0, &types.Error{
				Tag: types.ZeroDivisionErrorTag,
				Err: fmt.Errorf("division of %d by zero at %d", lhs, op.Pos+1),
			}
		}
		if lhs == math.MinInt64 && rhs == -1 {
			return p.resolve(math.MinInt64, math.MaxInt64, overflowCause(op, lhs, rhs))
		}
		return lhs / rhs, nil // truncates toward zero

	default:
		panic(fmt.Sprintf("should not reach here: no arithmetic for %s at %d", op.Kind, op.Pos))
	}
}

func overflowCause(op Lexeme, lhs, rhs int64) func() error {
	return func() error {
		return fmt.Errorf("%d %s %d at %d overflows int64", lhs, op, rhs, op.Pos+1)
	}
}
