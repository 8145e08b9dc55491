package expression

import (
	"fmt"
	"log"
	"strconv"

	"github.com/karupanerura/intcalc/internal/types"
)

// DefaultMaxDepth bounds the recursion of Evaluate. Each split of the
// expression costs one frame, so the depth grows with the number of operators.
const DefaultMaxDepth = 10000

type Evaluator struct {
	Overflow OverflowPolicy

	// MaxDepth limits nested splits; zero means unbounded.
	MaxDepth int

	Debug bool
}

// Evaluate parses and evaluates source with the default settings.
func Evaluate(source string) (int64, error) {
	e := &Evaluator{MaxDepth: DefaultMaxDepth}
	return e.EvaluateValue(ParseExpr(source))
}

func (e *Evaluator) EvaluateValue(expr *Expr) (int64, error) {
	if len(expr.lexemes) == 0 {
		return 0, e.malformed(expr, len(expr.Source), fmt.Errorf("empty expression"))
	}
	return e.evaluate(expr, 0, len(expr.lexemes), 1)
}

func (e *Evaluator) debug() bool {
	return e.Debug || parserDebugLog
}

func (e *Evaluator) evaluate(expr *Expr, begin, end, depth int) (int64, error) {
	if e.MaxDepth > 0 && depth > e.MaxDepth {
		return 0, &types.Error{
			Tag: types.RecursionErrorTag,
			Err: fmt.Errorf("expression nests deeper than %d at %d: expr=%s", e.MaxDepth, expr.lexemes[begin].Pos+1, quoteSource(expr.Source)),
			Extra: map[string]any{
				"position": expr.lexemes[begin].Pos + 1,
			},
		}
	}

	split := findSplit(expr.lexemes, begin, end)
	if split == end {
		if end-begin != 1 {
			return 0, e.malformed(expr, expr.lexemes[begin+1].Pos, fmt.Errorf("missing operator before %s at %d", expr.lexemes[begin+1], expr.lexemes[begin+1].Pos+1))
		}
		return e.Overflow.literal(expr.lexemes[begin])
	}

	op := expr.lexemes[split]
	if e.debug() {
		log.Printf("split at %s (#%d): %s", op, split, renderLexemes(expr.lexemes[begin:end]))
	}

	if op.Kind == UnaryMinus {
		// unary minus binds tightest, so the range holds only numbers and
		// unary minuses and must start with one of the latter
		if lead := expr.lexemes[begin]; lead.Kind != UnaryMinus {
			return 0, e.malformed(expr, op.Pos, fmt.Errorf("misplaced unary minus at %d", op.Pos+1))
		}
		if begin+1 == end {
			return 0, e.malformed(expr, expr.lexemes[begin].Pos, fmt.Errorf("missing operand of unary minus at %d", expr.lexemes[begin].Pos+1))
		}

		// -9223372036854775808 fits even though its digits alone do not
		if operand := expr.lexemes[begin+1]; begin+2 == end && operand.Kind == Number && operand.Overflowed {
			return e.Overflow.negativeLiteral(operand, expr.literal(operand))
		}

		v, err := e.evaluate(expr, begin+1, end, depth+1)
		if err != nil {
			return 0, err
		}
		return e.Overflow.negate(expr.lexemes[begin], v)
	}

	if split == begin {
		return 0, e.malformed(expr, op.Pos, fmt.Errorf("missing left operand of %s at %d", op, op.Pos+1))
	}
	if split+1 == end {
		return 0, e.malformed(expr, op.Pos, fmt.Errorf("missing right operand of %s at %d", op, op.Pos+1))
	}

	lhs, err := e.evaluate(expr, begin, split, depth+1)
	if err != nil {
		return 0, err
	}
	rhs, err := e.evaluate(expr, split+1, end, depth+1)
	if err != nil {
		return 0, err
	}
	return e.Overflow.calculate(op, lhs, rhs)
}

// findSplit returns the index of the lowest-precedence operator in
// [begin, end), preferring the rightmost one on ties, or end when the range
// holds no operator.
func findSplit(lexemes []Lexeme, begin, end int) int {
	split := end
	var prec uint8
	for i := begin; i < end; i++ {
		if !lexemes[i].isOperator() {
			continue
		}

		cur := precedenceMap[lexemes[i].Kind]
		if split == end || cur <= prec {
			prec = cur
			split = i
		}
	}
	return split
}

func (e *Evaluator) malformed(expr *Expr, pos int, err error) error {
	return &types.Error{
		Tag: types.MalformedExpressionErrorTag,
		Err: fmt.Errorf("%w: expr=%s", err, quoteSource(expr.Source)),
		Extra: map[string]any{
			"position": pos + 1,
		},
	}
}

const maxQuotedSourceLen = 64

// quoteSource quotes source for error messages, keeping only its head when long.
func quoteSource(source string) string {
	if len(source) <= maxQuotedSourceLen {
		return strconv.Quote(source)
	}
	return fmt.Sprintf("%q... (%d bytes)", source[:maxQuotedSourceLen], len(source))
}
