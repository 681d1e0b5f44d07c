package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/pl0/compiler"
	"github.com/slowlang/pl0/compiler/analyze"
	"github.com/slowlang/pl0/compiler/format"
	"github.com/slowlang/pl0/compiler/tac"
	"github.com/slowlang/pl0/compiler/vm"
)

func main() {
	unitCmd := func(name, desc string, f func(ctx context.Context, b []byte, u *compiler.Unit) ([]byte, error)) *cli.Command {
		return &cli.Command{
			Name:        name,
			Description: desc,
			Action:      unitAct(f),
			Args:        cli.Args{},
		}
	}

	runCmd := &cli.Command{
		Name:        "run",
		Description: "compile and execute .pl0 files or execute .tac files, then dump memory",
		Action:      runAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("max-depth", vm.DefaultMaxDepth, "call stack limit"),
			cli.NewFlag("memory", false, "dump memory after the run"),
		},
	}

	buildCmd := &cli.Command{
		Name:        "build",
		Description: "write .tokens, .annotated, .ast, .sym and .tac files for every source",
		Action:      buildAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("out,o", "", "output directory, next to the source by default"),
		},
	}

	app := &cli.Command{
		Name:        "pl0",
		Description: "pl0 compiles PL/0 programs to three-address code and runs them",
		Before:      before,
		Flags: []*cli.Flag{
			cli.NewFlag("verbosity,v", "", "tlog verbosity topics (tokens, parse, next_token, tac, analyze, vm_trace)"),
			cli.NewFlag("debug", false, "log with timestamps and call sites"),
			cli.HelpFlag,
		},
		Commands: []*cli.Command{
			unitCmd("tokens", "print the token stream", tokensAct),
			unitCmd("annotate", "print tokens with resolved symbols", annotateAct),
			unitCmd("ast", "print the syntax tree", astAct),
			unitCmd("fmt", "print canonically formatted source", fmtAct),
			unitCmd("symbols", "print the symbol table", symbolsAct),
			unitCmd("tac", "print three-address code", tacAct),
			runCmd,
			buildCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func before(c *cli.Command) error {
	ff := tlog.LstdFlags
	if c.Bool("debug") {
		ff = tlog.LdetFlags | tlog.Lfuncname
	}

	tlog.DefaultLogger = tlog.New(tlog.NewConsoleWriter(tlog.Stderr, ff))

	if v := c.String("verbosity"); v != "" {
		tlog.SetVerbosity(v)
	}

	return nil
}

func unitAct(f func(ctx context.Context, b []byte, u *compiler.Unit) ([]byte, error)) func(*cli.Command) error {
	return func(c *cli.Command) (err error) {
		ctx := context.Background()
		ctx = tlog.ContextWithSpan(ctx, tlog.Root())

		var b []byte

		for _, a := range c.Args {
			u, err := compiler.CompileFile(ctx, a)
			if err != nil {
				return errors.Wrap(err, "compile %v", a)
			}

			b, err = f(ctx, b[:0], u)
			if err != nil {
				return errors.Wrap(err, "%v: %v", c.Name, a)
			}

			_, err = os.Stdout.Write(b)
			if err != nil {
				return errors.Wrap(err, "write")
			}
		}

		return nil
	}
}

func tokensAct(ctx context.Context, b []byte, u *compiler.Unit) ([]byte, error) {
	return format.Tokens(b, u.Tokens), nil
}

func annotateAct(ctx context.Context, b []byte, u *compiler.Unit) ([]byte, error) {
	return format.Annotated(b, u.Tokens, u.Refs), nil
}

func astAct(ctx context.Context, b []byte, u *compiler.Unit) ([]byte, error) {
	return format.AST(b, u.AST), nil
}

func fmtAct(ctx context.Context, b []byte, u *compiler.Unit) ([]byte, error) {
	return format.Source(ctx, b, u.AST)
}

func symbolsAct(ctx context.Context, b []byte, u *compiler.Unit) ([]byte, error) {
	return format.Symbols(b, u.Symbols), nil
}

func tacAct(ctx context.Context, b []byte, u *compiler.Unit) ([]byte, error) {
	return u.Program.AppendText(b), nil
}

func runAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	for _, a := range c.Args {
		p, err := load(ctx, a)
		if err != nil {
			return errors.Wrap(err, "load %v", a)
		}

		mem, err := vm.Run(ctx, p, vm.WithMaxDepth(c.Int("max-depth")), vm.WithOutput(os.Stdout))
		if err != nil {
			return errors.Wrap(err, "run %v", a)
		}

		if c.Bool("memory") {
			_, err = os.Stdout.Write(format.Memory(nil, mem))
			if err != nil {
				return errors.Wrap(err, "write")
			}
		}
	}

	return nil
}

// load compiles a source file or reads three-address code text, depending on the extension.
func load(ctx context.Context, name string) (tac.Program, error) {
	if filepath.Ext(name) != ".tac" {
		u, err := compiler.CompileFile(ctx, name)
		if err != nil {
			return nil, err
		}

		return u.Program, nil
	}

	text, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	p, err := tac.ParseText(text)
	if err != nil {
		return nil, errors.Wrap(err, "parse tac")
	}

	err = analyze.Check(ctx, p)
	if err != nil {
		return nil, errors.Wrap(err, "analyze")
	}

	return p, nil
}

func buildAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	for _, a := range c.Args {
		u, err := compiler.CompileFile(ctx, a)
		if err != nil {
			return errors.Wrap(err, "compile %v", a)
		}

		dir := filepath.Dir(a)
		if out := c.String("out"); out != "" {
			dir = out
		}

		base := filepath.Join(dir, strings.TrimSuffix(filepath.Base(a), filepath.Ext(a)))

		for _, f := range []struct {
			ext string
			b   []byte
		}{
			{".tokens", format.Tokens(nil, u.Tokens)},
			{".annotated", format.Annotated(nil, u.Tokens, u.Refs)},
			{".ast", format.AST(nil, u.AST)},
			{".sym", format.Symbols(nil, u.Symbols)},
			{".tac", u.Program.AppendText(nil)},
		} {
			err = os.WriteFile(base+f.ext, f.b, 0o644)
			if err != nil {
				return errors.Wrap(err, "write %v", f.ext)
			}
		}

		tlog.Printw("built", "source", a, "base", base, "instructions", len(u.Program))
	}

	return nil
}
