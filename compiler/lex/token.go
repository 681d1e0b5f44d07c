package lex

import (
	"fmt"

	"tlog.app/go/tlog/tlwire"
)

type (
	Kind int

	Token struct {
		Kind Kind
		Text string
		Line int
		Col  int
	}
)

const (
	EOF   Kind = iota
	EOL        // end of line, skipped by the parser
	Error      // unrecognized input, Text holds the offending bytes

	Ident
	Number

	Plus   // +
	Minus  // -
	Times  // *
	Slash  // /
	Eql    // =
	Neq    // #
	Lss    // <
	Leq    // <=
	Gtr    // >
	Geq    // >=

	LParen    // (
	RParen    // )
	Comma     // ,
	Semicolon // ;
	Period    // .
	Becomes   // :=
	Bang      // !

	Const
	Var
	Procedure
	Call
	Begin
	End
	If
	Then
	While
	Do
	Odd

	kinds
)

var names = [kinds]string{
	EOF:   "EOF",
	EOL:   "EOL",
	Error: "ERROR",

	Ident:  "IDENT",
	Number: "NUMBER",

	Plus:  "PLUS",
	Minus: "MINUS",
	Times: "TIMES",
	Slash: "SLASH",
	Eql:   "EQL",
	Neq:   "NEQ",
	Lss:   "LSS",
	Leq:   "LEQ",
	Gtr:   "GTR",
	Geq:   "GEQ",

	LParen:    "LPAREN",
	RParen:    "RPAREN",
	Comma:     "COMMA",
	Semicolon: "SEMICOLON",
	Period:    "PERIOD",
	Becomes:   "BECOMES",
	Bang:      "BANG",

	Const:     "CONST",
	Var:       "VAR",
	Procedure: "PROCEDURE",
	Call:      "CALL",
	Begin:     "BEGIN",
	End:       "END",
	If:        "IF",
	Then:      "THEN",
	While:     "WHILE",
	Do:        "DO",
	Odd:       "ODD",
}

var keywords = map[string]Kind{
	"const":     Const,
	"var":       Var,
	"procedure": Procedure,
	"call":      Call,
	"begin":     Begin,
	"end":       End,
	"if":        If,
	"then":      Then,
	"while":     While,
	"do":        Do,
	"odd":       Odd,
}

var punct = map[byte]Kind{
	'+': Plus,
	'-': Minus,
	'*': Times,
	'/': Slash,
	'=': Eql,
	'#': Neq,
	'(': LParen,
	')': RParen,
	',': Comma,
	';': Semicolon,
	'.': Period,
	'!': Bang,
}

// Keyword reports the keyword kind for the word, if it is reserved.
func Keyword(w string) (Kind, bool) {
	k, ok := keywords[w]
	return k, ok
}

func (k Kind) String() string {
	if k >= 0 && k < kinds {
		return names[k]
	}

	return fmt.Sprintf("Kind(%d)", int(k))
}

func (k Kind) IsKeyword() bool { return k >= Const && k <= Odd }

func (t Token) String() string {
	switch t.Kind {
	case Ident, Number, Error:
		return fmt.Sprintf("%v %q", t.Kind, t.Text)
	}

	return t.Kind.String()
}

func (t Token) Pos() string {
	return fmt.Sprintf("%d:%d", t.Line, t.Col)
}

func (t Token) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	b = e.AppendMap(b, 4)

	b = e.AppendString(b, "kind")
	b = e.AppendString(b, t.Kind.String())
	b = e.AppendString(b, "text")
	b = e.AppendString(b, t.Text)
	b = e.AppendKeyInt(b, "line", t.Line)
	b = e.AppendKeyInt(b, "col", t.Col)

	return b
}
