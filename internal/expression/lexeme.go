package expression

import (
	"strconv"

	"github.com/samber/lo"
)

type LexemeKind int

const (
	Number LexemeKind = iota
	Plus
	Minus
	Multiply
	Divide
	UnaryMinus
)

var operatorKindMap = map[byte]LexemeKind{
	'+': Plus,
	'-': Minus,
	'*': Multiply,
	'/': Divide,
}

var operatorSymbolMap = lo.Invert(operatorKindMap)

// higher binds tighter
var precedenceMap = map[LexemeKind]uint8{
	Plus:       1,
	Minus:      1,
	Multiply:   2,
	Divide:     2,
	UnaryMinus: 3,
}

func (k LexemeKind) String() string {
	switch k {
	case Number:
		return "number"
	case UnaryMinus:
		return "unary minus"
	default:
		if c, ok := operatorSymbolMap[k]; ok {
			return strconv.Quote(string(c))
		}
		return "LexemeKind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Lexeme is one classified token. Value is set only for Number.
type Lexeme struct {
	Kind  LexemeKind
	Value int64
	Pos   int

	// Overflowed is set when the literal does not fit in int64; Value then
	// holds the literal reduced modulo 2^64.
	Overflowed bool
}

func (l Lexeme) String() string {
	switch l.Kind {
	case Number:
		if l.Overflowed {
			return strconv.FormatInt(l.Value, 10) + "(overflowed)"
		}
		return strconv.FormatInt(l.Value, 10)
	case UnaryMinus:
		return "neg"
	default:
		if c, ok := operatorSymbolMap[l.Kind]; ok {
			return string(c)
		}
		return l.Kind.String()
	}
}

func (l Lexeme) isOperator() bool {
	return l.Kind != Number
}
