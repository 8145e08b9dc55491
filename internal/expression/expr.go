package expression

import (
	"strings"

	"github.com/samber/lo"
)

// Expr is a tokenized expression. It is immutable and may be evaluated
// any number of times from any goroutine.
type Expr struct {
	Source  string
	lexemes []Lexeme
}

func (e *Expr) String() string {
	return e.Source
}

func (e *Expr) Lexemes() []Lexeme {
	return append([]Lexeme(nil), e.lexemes...)
}

func (e *Expr) Len() int {
	return len(e.lexemes)
}

// literal returns the digits of a Number lexeme as written in the source.
func (e *Expr) literal(lex Lexeme) string {
	end := lex.Pos
	for end < len(e.Source) && isDigit(e.Source[end]) {
		end++
	}
	return e.Source[lex.Pos:end]
}

func renderLexemes(lexemes []Lexeme) string {
	return "[" + strings.Join(lo.Map(lexemes, func(l Lexeme, _ int) string {
		return l.String()
	}), " ") + "]"
}
