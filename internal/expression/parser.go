package expression

import (
	"log"
	"os"
	"strconv"

	"github.com/k0kubun/pp"
)

var parserDebugLog = false

func init() {
	if v, err := strconv.ParseBool(os.Getenv("INTCALC_EXPRESSION_DEBUG")); v && err == nil {
		parserDebugLog = true
	}
}

type parser struct {
	source string
	debug  bool
}

// ParseExpr tokenizes source. Tokenizing never fails; malformed input is
// reported when the expression is evaluated.
func ParseExpr(source string) *Expr {
	p := &parser{source: source, debug: parserDebugLog}
	return p.parse()
}

func ParseExprWithDebugOutput(source string) *Expr {
	p := &parser{source: source, debug: true}
	return p.parse()
}

func (p *parser) parse() *Expr {
	lex := newLexer(p.source)
	lexemes := lex.tokenize()

	if p.debug {
		pp.Println(p.source)
		pp.Println(lexemes)
		log.Println("lexemes: ", renderLexemes(lexemes))
	}

	return &Expr{
		Source:  p.source,
		lexemes: lexemes,
	}
}
