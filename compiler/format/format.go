package format

import (
	"context"
	"slices"
	"strconv"

	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"

	"github.com/slowlang/pl0/compiler/ast"
	"github.com/slowlang/pl0/compiler/lex"
	"github.com/slowlang/pl0/compiler/parse"
	"github.com/slowlang/pl0/compiler/sym"
)

// Tokens lists tokens one per line with their positions. Line breaks are skipped.
func Tokens(b []byte, toks []lex.Token) []byte {
	for _, t := range toks {
		if t.Kind == lex.EOL {
			continue
		}

		b = hfmt.Appendf(b, "%d:%d\t%v\n", t.Line, t.Col, t)
	}

	return b
}

// Annotated is Tokens with keywords marked and every identifier followed by the symbol it resolved to.
func Annotated(b []byte, toks []lex.Token, refs []parse.Ref) []byte {
	type pos struct{ line, col int }

	byPos := make(map[pos]parse.Ref, len(refs))

	for _, r := range refs {
		byPos[pos{r.Token.Line, r.Token.Col}] = r
	}

	for _, t := range toks {
		if t.Kind == lex.EOL {
			continue
		}

		b = hfmt.Appendf(b, "%d:%d\t%v", t.Line, t.Col, t)

		if t.Kind.IsKeyword() {
			b = append(b, "\tkeyword"...)
		}

		if r, ok := byPos[pos{t.Line, t.Col}]; ok && r.Sym != nil {
			use := "use"
			if r.Decl {
				use = "decl"
			}

			b = hfmt.Appendf(b, "\t%s %v %s level %d id %d", use, r.Sym.Kind, r.Sym.Storage(), r.Sym.Level, r.Sym.ID)
		}

		b = append(b, '\n')
	}

	return b
}

// AST dumps the tree, one node per line, children indented.
func AST(b []byte, x *ast.Node) []byte {
	return formatNode(b, x, 0)
}

func formatNode(b []byte, x *ast.Node, d int) []byte {
	if x == nil {
		return app(b, d, "<nil>\n")
	}

	b = app(b, d, "%v %d:%d", x, x.Line, x.Col)

	if x.Sym != nil {
		b = hfmt.Appendf(b, " [%s]", x.Sym.Storage())
	}

	b = append(b, '\n')

	for _, c := range x.Children {
		b = formatNode(b, c, d+1)
	}

	return b
}

// Symbols prints the symbol table, one symbol per line.
func Symbols(b []byte, syms []*sym.Symbol) []byte {
	b = hfmt.Appendf(b, "%-4s %-10s %-10s %-5s %-5s %-16s %s\n", "id", "name", "kind", "level", "slot", "storage", "value")

	for _, s := range syms {
		val := ""
		if s.Kind == sym.Constant {
			val = strconv.FormatInt(s.Value, 10)
		}

		b = hfmt.Appendf(b, "%-4d %-10s %-10v %-5d %-5d %-16s %s\n", s.ID, s.Name, s.Kind, s.Level, s.Slot, s.Storage(), val)
	}

	return b
}

// Memory prints memory cells sorted by name.
func Memory(b []byte, mem map[string]int64) []byte {
	names := make([]string, 0, len(mem))

	for n := range mem {
		names = append(names, n)
	}

	slices.Sort(names)

	for _, n := range names {
		b = hfmt.Appendf(b, "%s = %d\n", n, mem[n])
	}

	return b
}

// Source prints the tree back as program text.
// The result parses into the same tree, positions aside.
func Source(ctx context.Context, b []byte, x *ast.Node) (_ []byte, err error) {
	if x == nil || x.Kind != ast.Program || len(x.Children) != 1 {
		return nil, errors.New("want Program with one Block, got %v", x)
	}

	b, err = formatBlock(ctx, b, x.Children[0], 0)
	if err != nil {
		return nil, err
	}

	b = append(b, ".\n"...)

	return b, nil
}

func formatBlock(ctx context.Context, b []byte, x *ast.Node, d int) (_ []byte, err error) {
	if x.Kind != ast.Block {
		return nil, errors.New("unsupported block: %v", x)
	}

	var consts, vars []*ast.Node

	i := 0

	for ; i < len(x.Children); i++ {
		c := x.Children[i]

		if c.Kind != ast.ConstDecl {
			break
		}

		consts = append(consts, c)
	}

	for ; i < len(x.Children); i++ {
		c := x.Children[i]

		if c.Kind != ast.VarDecl {
			break
		}

		vars = append(vars, c)
	}

	if len(consts) != 0 {
		b = app(b, d, "const ")

		for j, c := range consts {
			if j != 0 {
				b = append(b, ", "...)
			}

			num := c.Child(0)
			if num == nil || num.Kind != ast.Number {
				return nil, errors.New("const %v: want Number", c.Value)
			}

			b = hfmt.Appendf(b, "%s = %s", c.Value, num.Value)
		}

		b = append(b, ";\n"...)
	}

	if len(vars) != 0 {
		b = app(b, d, "var ")

		for j, v := range vars {
			if j != 0 {
				b = append(b, ", "...)
			}

			b = append(b, v.Value...)
		}

		b = append(b, ";\n"...)
	}

	for ; i < len(x.Children) && x.Children[i].Kind == ast.ProcDecl; i++ {
		p := x.Children[i]

		b = app(b, d, "procedure %s;\n", p.Value)

		body := p.Child(0)
		if body == nil {
			return nil, errors.New("procedure %v: no body", p.Value)
		}

		b, err = formatBlock(ctx, b, body, d+1)
		if err != nil {
			return nil, errors.Wrap(err, "procedure %v", p.Value)
		}

		b = append(b, ";\n"...)
	}

	if i != len(x.Children)-1 {
		return nil, errors.New("block %v: want exactly one statement after declarations", x.Value)
	}

	b = app(b, d, "")

	return formatStmt(ctx, b, x.Children[i], d)
}

func formatStmt(ctx context.Context, b []byte, x *ast.Node, d int) (_ []byte, err error) {
	switch x.Kind {
	case ast.Assignment:
		b = hfmt.Appendf(b, "%s := ", x.Value)

		return formatExpr(ctx, b, x.Child(0), true)
	case ast.Call:
		b = hfmt.Appendf(b, "call %s", x.Value)
	case ast.Begin:
		b = append(b, "begin\n"...)

		for i, s := range x.Children {
			if i != 0 {
				b = append(b, ";\n"...)
			}

			b = app(b, d+1, "")

			b, err = formatStmt(ctx, b, s, d+1)
			if err != nil {
				return nil, errors.Wrap(err, "begin")
			}
		}

		b = append(b, '\n')
		b = app(b, d, "end")
	case ast.If, ast.While:
		kw, then := "if", "then"
		if x.Kind == ast.While {
			kw, then = "while", "do"
		}

		if len(x.Children) != 2 {
			return nil, errors.New("%v: want condition and statement", x.Kind)
		}

		b = hfmt.Appendf(b, "%s ", kw)

		b, err = formatCond(ctx, b, x.Children[0])
		if err != nil {
			return nil, errors.Wrap(err, "cond")
		}

		b = hfmt.Appendf(b, " %s\n", then)
		b = app(b, d+1, "")

		b, err = formatStmt(ctx, b, x.Children[1], d+1)
		if err != nil {
			return nil, errors.Wrap(err, "%v body", x.Kind)
		}
	case ast.Write:
		b = append(b, "! "...)

		return formatExpr(ctx, b, x.Child(0), true)
	default:
		return nil, errors.New("unsupported stmt: %v", x)
	}

	return b, nil
}

func formatCond(ctx context.Context, b []byte, x *ast.Node) (_ []byte, err error) {
	if x.Kind != ast.Condition {
		return nil, errors.New("unsupported condition: %v", x)
	}

	if x.Value == "odd" {
		b = append(b, "odd "...)

		return formatExpr(ctx, b, x.Child(0), true)
	}

	if len(x.Children) != 2 {
		return nil, errors.New("condition %v: want two operands", x.Value)
	}

	b = append(b, '(')

	b, err = formatExpr(ctx, b, x.Children[0], true)
	if err != nil {
		return nil, errors.Wrap(err, "left")
	}

	b = hfmt.Appendf(b, " %s ", x.Value)

	b, err = formatExpr(ctx, b, x.Children[1], true)
	if err != nil {
		return nil, errors.Wrap(err, "right")
	}

	b = append(b, ')')

	return b, nil
}

// formatExpr parenthesizes nested Expression nodes, those come from parentheses in the source.
func formatExpr(ctx context.Context, b []byte, x *ast.Node, top bool) (_ []byte, err error) {
	if x == nil {
		return nil, errors.New("missing expression")
	}

	switch x.Kind {
	case ast.Expression:
		if !top {
			b = append(b, '(')
		}

		b, err = formatExpr(ctx, b, x.Child(0), false)
		if err != nil {
			return nil, err
		}

		if !top {
			b = append(b, ')')
		}
	case ast.Identifier, ast.Number:
		b = append(b, x.Value...)
	case ast.Operator, ast.Term:
		if len(x.Children) == 1 && x.Kind == ast.Operator && x.Value == "-" {
			b = append(b, '-')

			return formatExpr(ctx, b, x.Children[0], false)
		}

		if len(x.Children) != 2 {
			return nil, errors.New("%v: want two operands", x)
		}

		b, err = formatExpr(ctx, b, x.Children[0], false)
		if err != nil {
			return nil, errors.Wrap(err, "left")
		}

		b = hfmt.Appendf(b, " %s ", x.Value)

		b, err = formatExpr(ctx, b, x.Children[1], false)
		if err != nil {
			return nil, errors.Wrap(err, "right")
		}
	default:
		return nil, errors.New("unsupported expr: %v", x)
	}

	return b, nil
}

func app(b []byte, d int, f string, args ...any) []byte {
	for i := 0; i < d; i++ {
		b = append(b, '\t')
	}

	b = hfmt.Appendf(b, f, args...)
	return b
}
