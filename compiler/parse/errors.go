package parse

import (
	"fmt"

	"github.com/slowlang/pl0/compiler/lex"
)

type (
	SyntaxError struct {
		Token lex.Token
		Want  string
	}

	UndeclaredError struct {
		Token lex.Token
	}

	// LexError is reported when the parser runs into an Error token.
	LexError struct {
		Token lex.Token
	}
)

func (e SyntaxError) Error() string {
	return fmt.Sprintf("%v: unexpected %v, want %v", e.Token.Pos(), e.Token, e.Want)
}

func (e UndeclaredError) Error() string {
	return fmt.Sprintf("%v: undeclared identifier %q", e.Token.Pos(), e.Token.Text)
}

func (e LexError) Error() string {
	return fmt.Sprintf("%v: unrecognized input %q", e.Token.Pos(), e.Token.Text)
}
