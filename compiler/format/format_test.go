package format

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/pl0/compiler/ast"
	"github.com/slowlang/pl0/compiler/lex"
	"github.com/slowlang/pl0/compiler/parse"
)

const program = `const k = 3, z = 0;
var x, y;
procedure p;
	var t;
	begin
		t := -(x + 1) * k;
		y := t / 2 - x
	end;
begin
	x := k;
	while (x # z) do
		begin
			call p;
			if odd y then
				! y;
			x := x - 1
		end
end.
`

func parseText(t *testing.T, text string) (*ast.Node, *parse.Parser) {
	t.Helper()

	p := parse.New(lex.Tokenize([]byte(text)))

	x, err := p.Parse(context.Background())
	require.NoError(t, err)

	return x, p
}

// shape dumps the tree without positions.
func shape(x *ast.Node) string {
	var b []byte

	d := 0

	ast.Walk(x, func(x *ast.Node, enter bool) bool {
		if !enter {
			d--
			return true
		}

		for i := 0; i < d; i++ {
			b = append(b, ' ')
		}

		b = append(b, x.String()...)
		b = append(b, '\n')

		d++

		return true
	})

	return string(b)
}

func TestSource(t *testing.T) {
	ctx := context.Background()

	x, _ := parseText(t, program)

	b, err := Source(ctx, nil, x)
	require.NoError(t, err)

	assert.Equal(t, program, string(b))

	y, _ := parseText(t, string(b))
	assert.Equal(t, shape(x), shape(y))
}

func TestSourceCanonical(t *testing.T) {
	ctx := context.Background()

	x, _ := parseText(t, "var a;begin a:=+1;a:=(a);a:=((a+2))*a end.")

	b, err := Source(ctx, nil, x)
	require.NoError(t, err)

	assert.Equal(t, `var a;
begin
	a := 1;
	a := (a);
	a := ((a + 2)) * a
end.
`, string(b))

	y, _ := parseText(t, string(b))
	assert.Equal(t, shape(x), shape(y))
}

func TestSourceErrors(t *testing.T) {
	ctx := context.Background()

	_, err := Source(ctx, nil, nil)
	assert.Error(t, err)

	x := ast.New(ast.Program, "", ast.Base{},
		ast.New(ast.Block, ast.MainBlock, ast.Base{},
			ast.New(ast.Number, "1", ast.Base{})))

	_, err = Source(ctx, nil, x)
	assert.ErrorContains(t, err, "unsupported stmt")
}

func TestTokens(t *testing.T) {
	toks := lex.Tokenize([]byte("x := 1\n."))

	assert.Equal(t, `1:1	IDENT "x"
1:3	BECOMES
1:6	NUMBER "1"
2:1	PERIOD
2:2	EOF
`, string(Tokens(nil, toks)))
}

func TestAnnotated(t *testing.T) {
	toks := lex.Tokenize([]byte("var x; x := x."))

	p := parse.New(toks)
	_, err := p.Parse(context.Background())
	require.NoError(t, err)

	b := Annotated(nil, toks, p.Refs())

	assert.Contains(t, string(b), "1:5\tIDENT \"x\"\tdecl var x level 0 id 0\n")
	assert.Contains(t, string(b), "1:8\tIDENT \"x\"\tuse var x level 0 id 0\n")
	assert.Contains(t, string(b), "1:13\tIDENT \"x\"\tuse var x level 0 id 0\n")
	assert.Contains(t, string(b), "1:1\tVAR\tkeyword\n")
	assert.Contains(t, string(b), "1:10\tBECOMES\n")
}

func TestAST(t *testing.T) {
	x, _ := parseText(t, "var x;\nx := 2.")

	assert.Equal(t, `Program 1:1
	Block(main) 1:1
		VarDecl(x) 1:5 [x]
		Assignment(x) 2:1 [x]
			Expression 2:6
				Number(2) 2:6
`, string(AST(nil, x)))
}

func TestSymbols(t *testing.T) {
	_, p := parseText(t, "const c = 4; procedure q; var v; v := c; call q.")

	b := string(Symbols(nil, p.Symbols()))

	assert.Contains(t, b, "id   name       kind       level slot  storage          value\n")
	assert.Contains(t, b, "0    c          const      0     0     c                4\n")
	assert.Contains(t, b, "q.v")
}

func TestMemory(t *testing.T) {
	assert.Equal(t, "a = 1\nb = -2\nz = 0\n", string(Memory(nil, map[string]int64{"z": 0, "b": -2, "a": 1})))
	assert.Empty(t, Memory(nil, nil))
}
