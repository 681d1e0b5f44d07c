package compiler

import (
	"context"
	"os"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/pl0/compiler/analyze"
	"github.com/slowlang/pl0/compiler/ast"
	"github.com/slowlang/pl0/compiler/gen"
	"github.com/slowlang/pl0/compiler/lex"
	"github.com/slowlang/pl0/compiler/parse"
	"github.com/slowlang/pl0/compiler/sym"
	"github.com/slowlang/pl0/compiler/tac"
	"github.com/slowlang/pl0/compiler/vm"
)

type (
	// Unit is everything the pipeline produced for one source file.
	Unit struct {
		Name string
		Text []byte

		Tokens  []lex.Token
		AST     *ast.Node
		Symbols []*sym.Symbol
		Refs    []parse.Ref
		Program tac.Program
	}
)

func CompileFile(ctx context.Context, name string) (*Unit, error) {
	text, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	tlog.SpanFromContext(ctx).Printw("read file", "size", len(text), "name", name)

	return Compile(ctx, name, text)
}

// Compile runs text through lexer, parser, generator and label checker.
func Compile(ctx context.Context, name string, text []byte) (u *Unit, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compile", "name", name, "size", len(text))
	defer tr.Finish("err", &err)

	u = &Unit{
		Name: name,
		Text: text,
	}

	u.Tokens = lex.Tokenize(text)

	if tr.If("tokens") {
		tr.Printw("tokens", "n", len(u.Tokens), "tokens", u.Tokens)
	}

	p := parse.New(u.Tokens)

	u.AST, err = p.Parse(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "parse %v", name)
	}

	u.Symbols = p.Symbols()
	u.Refs = p.Refs()

	u.Program = gen.Generate(ctx, u.AST)

	err = analyze.Check(ctx, u.Program)
	if err != nil {
		return nil, errors.Wrap(err, "analyze")
	}

	return u, nil
}

// Run executes the unit's program.
func Run(ctx context.Context, u *Unit, opts ...vm.Option) (vm.Memory, error) {
	mem, err := vm.Run(ctx, u.Program, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "run %v", u.Name)
	}

	return mem, nil
}
