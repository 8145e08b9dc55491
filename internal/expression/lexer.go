package expression

import (
	"errors"
	"fmt"
	"strconv"
)

type lexer struct {
	source string
	index  int
	buf    []Lexeme
}

func newLexer(source string) *lexer {
	return &lexer{
		source: source,
		index:  0,
		buf:    nil,
	}
}

func (l *lexer) isCompleted() bool {
	return l.index == len(l.source)
}

func (l *lexer) push(lex Lexeme) {
	l.buf = append(l.buf, lex)
}

// followsNumber reports whether the last emitted lexeme is a Number.
func (l *lexer) followsNumber() bool {
	return len(l.buf) != 0 && l.buf[len(l.buf)-1].Kind == Number
}

func (l *lexer) tokenize() []Lexeme {
	for !l.isCompleted() {
		switch c := l.source[l.index]; c {
		case '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
			l.push(l.consumeNumber())
		case '-':
			if l.followsNumber() {
				l.push(Lexeme{Kind: Minus, Pos: l.index})
			} else {
				l.push(Lexeme{Kind: UnaryMinus, Pos: l.index})
			}
			l.index++
		case '+', '*', '/':
			l.push(Lexeme{Kind: operatorKindMap[c], Pos: l.index})
			l.index++
		default:
			l.index++ // whitespace and unknown characters are ignored
		}
	}
	return l.buf
}

func (l *lexer) consumeNumber() Lexeme {
	begins := l.index
	for l.index != len(l.source) && isDigit(l.source[l.index]) {
		l.index++
	}

	lit := l.source[begins:l.index]
	v, err := strconv.ParseInt(lit, 10, 64)
	if errors.Is(err, strconv.ErrRange) {
		return Lexeme{Kind: Number, Value: wrapDecimal(lit), Pos: begins, Overflowed: true}
	} else if err != nil {
		panic(fmt.Sprintf("should not reach here: literal=%q: %v", lit, err))
	}
	return Lexeme{Kind: Number, Value: v, Pos: begins}
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

// wrapDecimal decodes lit modulo 2^64 as two's complement.
func wrapDecimal(lit string) int64 {
	var u uint64
	for i := 0; i < len(lit); i++ {
		u = u*10 + uint64(lit[i]-'0')
	}
	return int64(u)
}
