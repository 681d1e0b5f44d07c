package parse

import (
	"context"
	"strconv"

	"tlog.app/go/errors"
	"tlog.app/go/loc"
	"tlog.app/go/tlog"

	"github.com/slowlang/pl0/compiler/ast"
	"github.com/slowlang/pl0/compiler/lex"
	"github.com/slowlang/pl0/compiler/sym"
)

type (
	Parser struct {
		toks []lex.Token
		i    int // index of the token after tok

		tok lex.Token // lookahead

		st   *sym.Table
		refs []Ref
	}

	// Ref is an identifier occurrence and the symbol it declares or refers to.
	Ref struct {
		Token lex.Token
		Sym   *sym.Symbol
		Decl  bool
	}
)

func Parse(ctx context.Context, toks []lex.Token) (*ast.Node, error) {
	return New(toks).Parse(ctx)
}

func New(toks []lex.Token) *Parser {
	return &Parser{
		toks: toks,
		st:   sym.New(),
	}
}

// Parse parses the whole token stream as a program.
// The first error stops parsing.
func (p *Parser) Parse(ctx context.Context) (x *ast.Node, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "parse", "tokens", len(p.toks))
	defer tr.Finish("err", &err)

	p.i = 0
	p.next(ctx)

	x, err = p.parseProgram(ctx)
	if err != nil {
		return nil, err
	}

	if tr.If("parse") {
		tr.Printw("parsed", "symbols", len(p.st.Symbols()), "refs", len(p.refs))
	}

	return x, nil
}

// Symbols returns all the declared symbols, in declaration order.
func (p *Parser) Symbols() []*sym.Symbol {
	return p.st.Symbols()
}

// Refs returns identifier occurrences in source order.
func (p *Parser) Refs() []Ref {
	return p.refs
}

func (p *Parser) parseProgram(ctx context.Context) (x *ast.Node, err error) {
	pos := p.pos()

	blk, err := p.parseBlock(ctx, ast.MainBlock, "")
	if err != nil {
		return nil, err
	}

	_, err = p.expect(ctx, lex.Period)
	if err != nil {
		return nil, err
	}

	if p.tok.Kind != lex.EOF {
		return nil, p.unexpected("end of file")
	}

	return ast.New(ast.Program, "", pos, blk), nil
}

func (p *Parser) parseBlock(ctx context.Context, name, owner string) (x *ast.Node, err error) {
	x = ast.New(ast.Block, name, p.pos())

	p.st.EnterScope(owner)
	defer p.st.ExitScope()

	if p.accept(ctx, lex.Const) {
		for {
			d, err := p.parseConstDecl(ctx)
			if err != nil {
				return nil, err
			}

			x.Add(d)

			if !p.accept(ctx, lex.Comma) {
				break
			}
		}

		if _, err = p.expect(ctx, lex.Semicolon); err != nil {
			return nil, err
		}
	}

	if p.accept(ctx, lex.Var) {
		for {
			id, err := p.expect(ctx, lex.Ident)
			if err != nil {
				return nil, err
			}

			s, err := p.declare(id, sym.Variable, 0)
			if err != nil {
				return nil, err
			}

			d := ast.New(ast.VarDecl, id.Text, base(id))
			d.Sym = s

			x.Add(d)

			if !p.accept(ctx, lex.Comma) {
				break
			}
		}

		if _, err = p.expect(ctx, lex.Semicolon); err != nil {
			return nil, err
		}
	}

	for p.tok.Kind == lex.Procedure {
		d, err := p.parseProcDecl(ctx)
		if err != nil {
			return nil, err
		}

		x.Add(d)
	}

	s, err := p.parseStatement(ctx)
	if err != nil {
		return nil, err
	}

	x.Add(s)

	return x, nil
}

func (p *Parser) parseConstDecl(ctx context.Context) (x *ast.Node, err error) {
	id, err := p.expect(ctx, lex.Ident)
	if err != nil {
		return nil, err
	}

	if _, err = p.expect(ctx, lex.Eql); err != nil {
		return nil, err
	}

	num, err := p.expect(ctx, lex.Number)
	if err != nil {
		return nil, err
	}

	v, err := number(num)
	if err != nil {
		return nil, err
	}

	s, err := p.declare(id, sym.Constant, v)
	if err != nil {
		return nil, err
	}

	x = ast.New(ast.ConstDecl, id.Text, base(id), ast.New(ast.Number, num.Text, base(num)))
	x.Sym = s

	return x, nil
}

func (p *Parser) parseProcDecl(ctx context.Context) (x *ast.Node, err error) {
	p.next(ctx) // procedure

	id, err := p.expect(ctx, lex.Ident)
	if err != nil {
		return nil, err
	}

	s, err := p.declare(id, sym.Procedure, 0)
	if err != nil {
		return nil, err
	}

	if _, err = p.expect(ctx, lex.Semicolon); err != nil {
		return nil, err
	}

	body, err := p.parseBlock(ctx, id.Text, s.Storage())
	if err != nil {
		return nil, errors.Wrap(err, "procedure %v", id.Text)
	}

	if _, err = p.expect(ctx, lex.Semicolon); err != nil {
		return nil, err
	}

	x = ast.New(ast.ProcDecl, id.Text, base(id), body)
	x.Sym = s

	return x, nil
}

func (p *Parser) parseStatement(ctx context.Context) (x *ast.Node, err error) {
	pos := p.pos()

	switch p.tok.Kind {
	case lex.Ident:
		id := p.tok

		s, err := p.resolve(id)
		if err != nil {
			return nil, err
		}

		p.next(ctx)

		if _, err = p.expect(ctx, lex.Becomes); err != nil {
			return nil, err
		}

		e, err := p.parseExpression(ctx)
		if err != nil {
			return nil, err
		}

		x = ast.New(ast.Assignment, id.Text, pos, e)
		x.Sym = s

		return x, nil
	case lex.Call:
		p.next(ctx)

		id, err := p.expect(ctx, lex.Ident)
		if err != nil {
			return nil, err
		}

		s, err := p.resolve(id)
		if err != nil {
			return nil, err
		}

		x = ast.New(ast.Call, id.Text, pos)
		x.Sym = s

		return x, nil
	case lex.Begin:
		p.next(ctx)

		x = ast.New(ast.Begin, "", pos)

		for {
			s, err := p.parseStatement(ctx)
			if err != nil {
				return nil, err
			}

			x.Add(s)

			if !p.accept(ctx, lex.Semicolon) {
				break
			}
		}

		if _, err = p.expect(ctx, lex.End); err != nil {
			return nil, err
		}

		return x, nil
	case lex.If, lex.While:
		k, kw := ast.If, lex.Then
		if p.tok.Kind == lex.While {
			k, kw = ast.While, lex.Do
		}

		p.next(ctx)

		c, err := p.parseCondition(ctx)
		if err != nil {
			return nil, err
		}

		if _, err = p.expect(ctx, kw); err != nil {
			return nil, err
		}

		s, err := p.parseStatement(ctx)
		if err != nil {
			return nil, err
		}

		return ast.New(k, "", pos, c, s), nil
	case lex.Bang:
		p.next(ctx)

		e, err := p.parseExpression(ctx)
		if err != nil {
			return nil, err
		}

		return ast.New(ast.Write, "", pos, e), nil
	default:
		return nil, p.unexpected("statement")
	}
}

func (p *Parser) parseCondition(ctx context.Context) (x *ast.Node, err error) {
	pos := p.pos()

	if p.accept(ctx, lex.Odd) {
		e, err := p.parseExpression(ctx)
		if err != nil {
			return nil, err
		}

		return ast.New(ast.Condition, "odd", pos, e), nil
	}

	if _, err = p.expect(ctx, lex.LParen); err != nil {
		return nil, err
	}

	l, err := p.parseExpression(ctx)
	if err != nil {
		return nil, err
	}

	switch p.tok.Kind {
	case lex.Eql, lex.Neq, lex.Lss, lex.Leq, lex.Gtr, lex.Geq:
	default:
		return nil, p.unexpected("relational operator")
	}

	op := p.tok.Text
	p.next(ctx)

	r, err := p.parseExpression(ctx)
	if err != nil {
		return nil, err
	}

	if _, err = p.expect(ctx, lex.RParen); err != nil {
		return nil, err
	}

	return ast.New(ast.Condition, op, pos, l, r), nil
}

func (p *Parser) parseExpression(ctx context.Context) (x *ast.Node, err error) {
	pos := p.pos()

	var neg *lex.Token

	if p.tok.Kind == lex.Plus || p.tok.Kind == lex.Minus {
		if p.tok.Kind == lex.Minus {
			t := p.tok
			neg = &t
		}

		p.next(ctx)
	}

	x, err = p.parseTerm(ctx)
	if err != nil {
		return nil, err
	}

	if neg != nil {
		x = ast.New(ast.Operator, neg.Text, base(*neg), x)
	}

	for p.tok.Kind == lex.Plus || p.tok.Kind == lex.Minus {
		op := p.tok
		p.next(ctx)

		r, err := p.parseTerm(ctx)
		if err != nil {
			return nil, err
		}

		x = ast.New(ast.Operator, op.Text, base(op), x, r)
	}

	return ast.New(ast.Expression, "", pos, x), nil
}

func (p *Parser) parseTerm(ctx context.Context) (x *ast.Node, err error) {
	x, err = p.parseFactor(ctx)
	if err != nil {
		return nil, err
	}

	for p.tok.Kind == lex.Times || p.tok.Kind == lex.Slash {
		op := p.tok
		p.next(ctx)

		r, err := p.parseFactor(ctx)
		if err != nil {
			return nil, err
		}

		x = ast.New(ast.Term, op.Text, base(op), x, r)
	}

	return x, nil
}

func (p *Parser) parseFactor(ctx context.Context) (x *ast.Node, err error) {
	t := p.tok

	switch t.Kind {
	case lex.Ident:
		s, err := p.resolve(t)
		if err != nil {
			return nil, err
		}

		p.next(ctx)

		x = ast.New(ast.Identifier, t.Text, base(t))
		x.Sym = s

		return x, nil
	case lex.Number:
		if _, err = number(t); err != nil {
			return nil, err
		}

		p.next(ctx)

		return ast.New(ast.Number, t.Text, base(t)), nil
	case lex.LParen:
		p.next(ctx)

		x, err = p.parseExpression(ctx)
		if err != nil {
			return nil, err
		}

		if _, err = p.expect(ctx, lex.RParen); err != nil {
			return nil, err
		}

		return x, nil
	default:
		return nil, p.unexpected("factor")
	}
}

func (p *Parser) declare(id lex.Token, k sym.Kind, val int64) (*sym.Symbol, error) {
	s, err := p.st.Declare(id.Text, k, val)
	if err != nil {
		return nil, errors.Wrap(err, "%v", id.Pos())
	}

	p.refs = append(p.refs, Ref{Token: id, Sym: s, Decl: true})

	return s, nil
}

func (p *Parser) resolve(id lex.Token) (*sym.Symbol, error) {
	s := p.st.Resolve(id.Text)
	if s == nil {
		return nil, UndeclaredError{Token: id}
	}

	p.refs = append(p.refs, Ref{Token: id, Sym: s})

	return s, nil
}

func (p *Parser) accept(ctx context.Context, k lex.Kind) bool {
	if p.tok.Kind != k {
		return false
	}

	p.next(ctx)

	return true
}

func (p *Parser) expect(ctx context.Context, k lex.Kind) (t lex.Token, err error) {
	if p.tok.Kind != k {
		return t, p.unexpected(k.String())
	}

	t = p.tok
	p.next(ctx)

	return t, nil
}

func (p *Parser) next(ctx context.Context) {
	if tr := tlog.SpanFromContext(ctx); tr.If("next_token") {
		defer func() {
			tr.Printw("next token", "i", p.i, "tok", p.tok, "from", loc.Callers(1, 3))
		}()
	}

	for p.i < len(p.toks) {
		p.tok = p.toks[p.i]
		p.i++

		if p.tok.Kind != lex.EOL {
			return
		}
	}

	// the stream ran out without EOF: keep the position of the last token
	p.tok = lex.Token{Kind: lex.EOF, Line: p.tok.Line, Col: p.tok.Col}
}

func (p *Parser) unexpected(want string) error {
	if p.tok.Kind == lex.Error {
		return LexError{Token: p.tok}
	}

	return SyntaxError{Token: p.tok, Want: want}
}

func (p *Parser) pos() ast.Base {
	return base(p.tok)
}

func base(t lex.Token) ast.Base {
	return ast.Base{Line: t.Line, Col: t.Col}
}

func number(t lex.Token) (int64, error) {
	v, err := strconv.ParseInt(t.Text, 10, 64)
	if err != nil {
		return 0, errors.Wrap(err, "%v: number %v", t.Pos(), t.Text)
	}

	return v, nil
}
