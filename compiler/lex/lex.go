package lex

type (
	Lexer struct {
		b []byte
		i int

		line int
		col  int // column of b[i]
	}
)

func New(text []byte) *Lexer {
	return &Lexer{
		b:    text,
		line: 1,
		col:  1,
	}
}

// Tokenize reads the whole text. The result always ends with a single EOF.
func Tokenize(text []byte) []Token {
	l := New(text)

	var toks []Token

	for {
		t := l.Next()
		toks = append(toks, t)

		if t.Kind == EOF {
			return toks
		}
	}
}

// Next returns the next token.
// Once the input is exhausted it returns EOF on every call.
func (l *Lexer) Next() Token {
	l.skipSpaces()

	if l.i == len(l.b) {
		return l.tok(EOF, l.i, l.i)
	}

	st := l.i
	c := l.b[st]

	switch {
	case c == '\n':
		t := l.tok(EOL, st, st+1)

		l.i++
		l.line++
		l.col = 1

		return t
	case isLetter(c):
		e := skipIdent(l.b, st+1)
		t := l.tok(Ident, st, e)

		if k, ok := Keyword(t.Text); ok {
			t.Kind = k
		}

		return l.advance(t, e)
	case isDigit(c):
		e := skipNum(l.b, st+1)

		return l.advance(l.tok(Number, st, e), e)
	case c == ':':
		if st+1 < len(l.b) && l.b[st+1] == '=' {
			return l.advance(l.tok(Becomes, st, st+2), st+2)
		}

		return l.advance(l.tok(Error, st, st+1), st+1)
	case c == '<' || c == '>':
		k, e := Lss, st+1
		if c == '>' {
			k = Gtr
		}

		if e < len(l.b) && l.b[e] == '=' {
			k++ // Leq follows Lss, Geq follows Gtr
			e++
		}

		return l.advance(l.tok(k, st, e), e)
	}

	if k, ok := punct[c]; ok {
		return l.advance(l.tok(k, st, st+1), st+1)
	}

	return l.advance(l.tok(Error, st, st+1), st+1)
}

func (l *Lexer) tok(k Kind, st, end int) Token {
	return Token{
		Kind: k,
		Text: string(l.b[st:end]),
		Line: l.line,
		Col:  l.col,
	}
}

func (l *Lexer) advance(t Token, end int) Token {
	l.col += end - l.i
	l.i = end

	return t
}

func (l *Lexer) skipSpaces() {
	for l.i < len(l.b) {
		switch l.b[l.i] {
		case ' ', '\t', '\r':
			l.i++
			l.col++
			continue
		}

		break
	}
}

func skipIdent(b []byte, i int) int {
	for i < len(b) && (isLetter(b[i]) || isDigit(b[i])) {
		i++
	}

	return i
}

func skipNum(b []byte, i int) int {
	for i < len(b) && isDigit(b[i]) {
		i++
	}

	return i
}

func isLetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
