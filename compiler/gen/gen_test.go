package gen

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/pl0/compiler/ast"
	"github.com/slowlang/pl0/compiler/lex"
	"github.com/slowlang/pl0/compiler/parse"
	"github.com/slowlang/pl0/compiler/tac"
)

func compile(t *testing.T, text string) (*ast.Node, tac.Program) {
	t.Helper()

	ctx := context.Background()

	x, err := parse.Parse(ctx, lex.Tokenize([]byte(text)))
	require.NoError(t, err)

	return x, Generate(ctx, x)
}

func TestWhile(t *testing.T) {
	_, p := compile(t, "var x; while (x > 0) do x := x - 1 .")

	assert.Equal(t, `main:
L0:
	t0 = LOAD x
	t1 = LOAD 0
	t2 = > t0 t1
	IF_NOT t2 GOTO L1
	t3 = LOAD x
	t4 = LOAD 1
	t5 = - t3 t4
	x = t5
	GOTO L0
L1:
	HALT
`, p.String())
}

func TestIf(t *testing.T) {
	_, p := compile(t, "var x; if (x # 1) then x := 2 .")

	assert.Equal(t, `main:
	t0 = LOAD x
	t1 = LOAD 1
	t2 = != t0 t1
	IF_NOT t2 GOTO L0
	t3 = LOAD 2
	x = t3
L0:
	HALT
`, p.String())
}

func TestConstAndUnary(t *testing.T) {
	_, p := compile(t, "const c = 7; var x; begin x := -c; if odd x then ! x * 2 end .")

	assert.Equal(t, `main:
	t0 = LOAD 7
	c = t0
	t1 = LOAD c
	t2 = NEG t1
	x = t2
	t3 = LOAD x
	t4 = ODD t3
	IF_NOT t4 GOTO L0
	t5 = LOAD x
	t6 = LOAD 2
	t7 = * t5 t6
	PRINT t7
L0:
	HALT
`, p.String())
}

func TestRelops(t *testing.T) {
	for rel, op := range map[string]tac.Op{
		"=":  tac.Eql,
		"#":  tac.Neq,
		"<":  tac.Lss,
		"<=": tac.Leq,
		">":  tac.Gtr,
		">=": tac.Geq,
	} {
		_, p := compile(t, "var x; if (x "+rel+" 1) then x := 0 .")

		require.Greater(t, len(p), 4, "%v", rel)
		assert.Equal(t, op, p[3].Op, "%v", rel)
	}
}

func TestProcedures(t *testing.T) {
	_, p := compile(t, `
var x;
procedure a;
	var y;
	procedure b;
		y := 1;
	begin
		call b;
		x := y
	end;
procedure c;
	x := 2;
begin
	call a;
	call c
end.
`)

	assert.Equal(t, `main:
	CALL a
	CALL c
	HALT
a:
	CALL a.b
	t0 = LOAD a.y
	x = t0
	RETURN
a.b:
	t1 = LOAD 1
	a.y = t1
	RETURN
c:
	t2 = LOAD 2
	x = t2
	RETURN
`, p.String())
}

func TestReservedNames(t *testing.T) {
	_, p := compile(t, "var t0, L1, main; begin t0 := 1; L1 := t0; main := L1 end .")

	for _, i := range p {
		if i.Op == tac.Assign {
			assert.Contains(t, []string{"$t0", "$L1", "$main"}, i.Result)
		}
	}
}

func TestIdempotent(t *testing.T) {
	x, p := compile(t, "var x; procedure p; x := x + 1; while (x < 3) do call p .")

	again := Generate(context.Background(), x)

	assert.Equal(t, p, again)
}

func TestContract(t *testing.T) {
	ctx := context.Background()

	assert.Panics(t, func() {
		Generate(ctx, nil)
	})

	assert.Panics(t, func() {
		x := ast.New(ast.Program, "", ast.Base{},
			ast.New(ast.Block, ast.MainBlock, ast.Base{},
				ast.New(ast.Assignment, "x", ast.Base{Line: 1, Col: 1})))

		Generate(ctx, x)
	})

	assert.Panics(t, func() {
		x := ast.New(ast.Program, "", ast.Base{},
			ast.New(ast.Block, ast.MainBlock, ast.Base{},
				ast.New(ast.ProcDecl, "p", ast.Base{})))

		Generate(ctx, x)
	})

	func() {
		defer func() {
			p := recover()
			require.NotNil(t, p)

			e, ok := p.(ContractError)
			require.True(t, ok, "%T", p)
			assert.Equal(t, ast.Number, e.Node.Kind)
			assert.Contains(t, e.Error(), "not a statement")
		}()

		x := ast.New(ast.Program, "", ast.Base{},
			ast.New(ast.Block, ast.MainBlock, ast.Base{},
				ast.New(ast.Number, "1", ast.Base{Line: 2, Col: 3})))

		Generate(ctx, x)
	}()
}

func TestHandBuiltTree(t *testing.T) {
	// no symbols: names are used as is
	x := ast.New(ast.Program, "", ast.Base{},
		ast.New(ast.Block, ast.MainBlock, ast.Base{},
			ast.New(ast.Assignment, "y", ast.Base{},
				ast.New(ast.Expression, "", ast.Base{},
					ast.New(ast.Number, "4", ast.Base{})))))

	p := Generate(context.Background(), x)

	assert.Equal(t, tac.Program{
		{Op: tac.Label, Result: tac.Entry},
		{Op: tac.Load, Arg1: "4", Result: "t0"},
		{Op: tac.Assign, Arg1: "t0", Result: "y"},
		{Op: tac.Halt},
	}, p)
}
