package gen

import (
	"context"
	"fmt"
	"strconv"

	"nikand.dev/go/heap"
	"tlog.app/go/loc"
	"tlog.app/go/tlog"

	"github.com/slowlang/pl0/compiler/ast"
	"github.com/slowlang/pl0/compiler/set"
	"github.com/slowlang/pl0/compiler/tac"
)

type (
	// Generator lowers a parsed program to three-address code.
	// Counters are never reset, so a Generator is good for one program.
	Generator struct {
		tr tlog.Span

		prog tac.Program

		temps  int
		labels int

		pending procs
		emitted set.Bitmap // procedure symbol ids
	}

	// procs is the queue of procedure declarations waiting to be emitted,
	// lowest symbol id (earliest declared) first.
	procs struct {
		heap.Heap[*ast.Node]
	}

	// ContractError is the panic value for AST shapes a successful parse can't produce.
	ContractError struct {
		Node   *ast.Node
		Reason string
		From   loc.PC
	}
)

// Generate lowers the program using fresh temporary and label counters.
func Generate(ctx context.Context, x *ast.Node) tac.Program {
	return New().Generate(ctx, x)
}

func New() *Generator {
	return &Generator{
		pending: procs{Heap: heap.Heap[*ast.Node]{Less: procsLess}},
	}
}

// Generate emits the main block first, terminated by HALT,
// then every procedure body, each terminated by RETURN.
func (g *Generator) Generate(ctx context.Context, x *ast.Node) tac.Program {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "gen")
	defer func() {
		tr.Finish("instructions", len(g.prog), "temps", g.temps, "labels", g.labels)
	}()

	g.tr = tr

	if x == nil || x.Kind != ast.Program || len(x.Children) != 1 {
		panic(contract(x, "want Program with one Block"))
	}

	main := x.Children[0]
	if main.Kind != ast.Block {
		panic(contract(main, "want Block"))
	}

	g.emit(tac.Instruction{Op: tac.Label, Result: tac.Entry})
	g.block(ctx, main)
	g.emit(tac.Instruction{Op: tac.Halt})

	for g.pending.Len() != 0 {
		g.proc(ctx, g.pending.Pop())
	}

	return g.prog
}

func (g *Generator) proc(ctx context.Context, d *ast.Node) {
	if d.Sym == nil || len(d.Children) != 1 || d.Children[0].Kind != ast.Block {
		panic(contract(d, "want resolved ProcDecl with one Block"))
	}

	if g.emitted.Set(d.Sym.ID) {
		panic(contract(d, "procedure emitted twice"))
	}

	g.emit(tac.Instruction{Op: tac.Label, Result: d.Sym.Storage()})
	g.block(ctx, d.Children[0])
	g.emit(tac.Instruction{Op: tac.Return})
}

func (g *Generator) block(ctx context.Context, b *ast.Node) {
	for _, x := range b.Children {
		switch x.Kind {
		case ast.ConstDecl:
			if len(x.Children) != 1 || x.Children[0].Kind != ast.Number {
				panic(contract(x, "want one Number"))
			}

			t := g.expr(ctx, x.Children[0])
			g.emit(tac.Instruction{Op: tac.Assign, Arg1: t, Result: storage(x)})
		case ast.VarDecl:
			// variables come to life on first store
		case ast.ProcDecl:
			if x.Sym == nil {
				panic(contract(x, "unresolved procedure"))
			}

			g.pending.Push(x)
		default:
			g.stmt(ctx, x)
		}
	}
}

func (g *Generator) stmt(ctx context.Context, x *ast.Node) {
	switch x.Kind {
	case ast.Assignment:
		if len(x.Children) != 1 {
			panic(contract(x, "assignment without expression"))
		}

		t := g.expr(ctx, x.Children[0])
		g.emit(tac.Instruction{Op: tac.Assign, Arg1: t, Result: storage(x)})
	case ast.Call:
		g.emit(tac.Instruction{Op: tac.Call, Arg1: storage(x)})
	case ast.Begin:
		for _, s := range x.Children {
			g.stmt(ctx, s)
		}
	case ast.If:
		if len(x.Children) != 2 {
			panic(contract(x, "want condition and statement"))
		}

		c := g.cond(ctx, x.Children[0])
		skip := g.newLabel()

		g.emit(tac.Instruction{Op: tac.IfNot, Arg1: c, Arg2: skip})
		g.stmt(ctx, x.Children[1])
		g.emit(tac.Instruction{Op: tac.Label, Result: skip})
	case ast.While:
		if len(x.Children) != 2 {
			panic(contract(x, "want condition and statement"))
		}

		start := g.newLabel()
		end := g.newLabel()

		g.emit(tac.Instruction{Op: tac.Label, Result: start})

		c := g.cond(ctx, x.Children[0])
		g.emit(tac.Instruction{Op: tac.IfNot, Arg1: c, Arg2: end})

		g.stmt(ctx, x.Children[1])

		g.emit(tac.Instruction{Op: tac.Goto, Arg1: start})
		g.emit(tac.Instruction{Op: tac.Label, Result: end})
	case ast.Write:
		if len(x.Children) != 1 {
			panic(contract(x, "write without expression"))
		}

		t := g.expr(ctx, x.Children[0])
		g.emit(tac.Instruction{Op: tac.Print, Arg1: t})
	default:
		panic(contract(x, "not a statement"))
	}
}

func (g *Generator) cond(ctx context.Context, x *ast.Node) string {
	if x.Kind != ast.Condition {
		panic(contract(x, "want Condition"))
	}

	if x.Value == "odd" {
		if len(x.Children) != 1 {
			panic(contract(x, "odd takes one operand"))
		}

		v := g.expr(ctx, x.Children[0])
		t := g.newTemp()

		g.emit(tac.Instruction{Op: tac.Odd, Arg1: v, Result: t})

		return t
	}

	if len(x.Children) != 2 {
		panic(contract(x, "condition takes two operands"))
	}

	op, ok := relops[x.Value]
	if !ok {
		panic(contract(x, "unknown relation"))
	}

	return g.binary(ctx, op, x)
}

func (g *Generator) expr(ctx context.Context, x *ast.Node) string {
	switch x.Kind {
	case ast.Expression:
		if len(x.Children) != 1 {
			panic(contract(x, "want one child"))
		}

		return g.expr(ctx, x.Children[0])
	case ast.Operator, ast.Term:
		if x.Kind == ast.Operator && x.Value == "-" && len(x.Children) == 1 {
			v := g.expr(ctx, x.Children[0])
			t := g.newTemp()

			g.emit(tac.Instruction{Op: tac.Neg, Arg1: v, Result: t})

			return t
		}

		if len(x.Children) != 2 {
			panic(contract(x, "binary operator takes two operands"))
		}

		op, ok := arith[x.Value]
		if !ok {
			panic(contract(x, "unknown operator"))
		}

		return g.binary(ctx, op, x)
	case ast.Identifier, ast.Number:
		v := x.Value
		if x.Kind == ast.Identifier {
			v = storage(x)
		}

		t := g.newTemp()
		g.emit(tac.Instruction{Op: tac.Load, Arg1: v, Result: t})

		return t
	default:
		panic(contract(x, "not an expression"))
	}
}

func (g *Generator) binary(ctx context.Context, op tac.Op, x *ast.Node) string {
	l := g.expr(ctx, x.Children[0])
	r := g.expr(ctx, x.Children[1])
	t := g.newTemp()

	g.emit(tac.Instruction{Op: op, Arg1: l, Arg2: r, Result: t})

	return t
}

func (g *Generator) emit(i tac.Instruction) {
	if g.tr.If("tac") {
		g.tr.Printw("emit", "pc", len(g.prog), "ins", i, "from", loc.Caller(1))
	}

	g.prog = append(g.prog, i)
}

func (g *Generator) newTemp() string {
	t := "t" + strconv.Itoa(g.temps)
	g.temps++

	return t
}

func (g *Generator) newLabel() string {
	l := "L" + strconv.Itoa(g.labels)
	g.labels++

	return l
}

var relops = map[string]tac.Op{
	"=":  tac.Eql,
	"#":  tac.Neq,
	"<":  tac.Lss,
	"<=": tac.Leq,
	">":  tac.Gtr,
	">=": tac.Geq,
}

var arith = map[string]tac.Op{
	"+": tac.Add,
	"-": tac.Sub,
	"*": tac.Mul,
	"/": tac.Div,
}

// storage names the memory cell or label of a declaration or reference.
// Hand-built trees without symbols fall back to the plain name.
func storage(x *ast.Node) string {
	if x.Sym != nil {
		return x.Sym.Storage()
	}

	return x.Value
}

func procsLess(d []*ast.Node, i, j int) bool {
	return d[i].Sym.ID < d[j].Sym.ID
}

func contract(x *ast.Node, reason string) ContractError {
	return ContractError{Node: x, Reason: reason, From: loc.Caller(1)}
}

func (e ContractError) Error() string {
	if e.Node == nil {
		return fmt.Sprintf("gen: malformed tree: nil node: %s (%v)", e.Reason, e.From)
	}

	return fmt.Sprintf("gen: malformed tree: %v at %d:%d: %s (%v)", e.Node, e.Node.Line, e.Node.Col, e.Reason, e.From)
}
