package vm

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tlog.app/go/tlog"

	"github.com/slowlang/pl0/compiler/tac"
)

func text(t *testing.T, s string) tac.Program {
	t.Helper()

	p, err := tac.ParseText([]byte(s))
	require.NoError(t, err)

	return p
}

const countdown = `
main:
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
`

func TestCountdown(t *testing.T) {
	mem, err := Run(context.Background(), text(t, countdown), WithMemory(map[string]int64{"x": 3}))
	require.NoError(t, err)

	assert.Equal(t, int64(0), mem["x"])
}

func TestUndefinedVariable(t *testing.T) {
	_, err := Run(context.Background(), text(t, countdown))

	var re RuntimeError
	require.ErrorAs(t, err, &re)
	assert.ErrorIs(t, err, ErrUndefinedVariable)
	assert.Equal(t, "x", re.Name)
	assert.Equal(t, 2, re.PC)
	assert.Equal(t, tac.Load, re.Instr.Op)
}

func TestArith(t *testing.T) {
	mem, err := Run(context.Background(), text(t, `
main:
	a = 7
	b = -2
	s = + a b
	d = - a b
	m = * a b
	q = / a b
	n = NEG a
	o = ODD b
	o2 = ODD a
	gt = > a b
	lt = < a b
	ge = >= a a
	le = <= b a
	ne = != a a
	eq = == a 7
	HALT
`))
	require.NoError(t, err)

	assert.Equal(t, Memory{
		"a": 7, "b": -2,
		"s": 5, "d": 9, "m": -14, "q": -3,
		"n": -7, "o": 0, "o2": 1,
		"gt": 1, "lt": 0, "ge": 1, "le": 1, "ne": 0, "eq": 1,
	}, mem)
}

func TestCallReturn(t *testing.T) {
	mem, err := Run(context.Background(), text(t, `
main:
	x = 1
	CALL p
	CALL p
	HALT
p:
	t0 = * x 2
	x = t0
	RETURN
`))
	require.NoError(t, err)

	assert.Equal(t, int64(4), mem["x"])
}

func TestStartsAtMain(t *testing.T) {
	mem, err := Run(context.Background(), text(t, `
p:
	x = 100
	RETURN
main:
	CALL p
	y = x
	HALT
`))
	require.NoError(t, err)

	assert.Equal(t, int64(100), mem["y"])
}

func TestNoMain(t *testing.T) {
	var logs bytes.Buffer

	l := tlog.New(tlog.NewConsoleWriter(&logs, 0))
	ctx := tlog.ContextWithSpan(context.Background(), l.Root())

	mem, err := Run(ctx, text(t, `
	x = 5
	y = x
`))
	require.NoError(t, err)

	assert.Contains(t, logs.String(), "no entry label")

	assert.Equal(t, Memory{"x": 5, "y": 5}, mem)
}

func TestEmpty(t *testing.T) {
	mem, err := Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, mem)
}

func TestReturnWithoutCall(t *testing.T) {
	_, err := Run(context.Background(), text(t, "main:\n\tRETURN\n"))
	assert.ErrorIs(t, err, ErrReturnWithoutCall)
}

func TestCallStackOverflow(t *testing.T) {
	p := text(t, `
main:
	CALL r
	HALT
r:
	CALL r
	RETURN
`)

	_, err := Run(context.Background(), p)
	assert.ErrorIs(t, err, ErrCallStackOverflow)

	m, err := New(context.Background(), p, WithMaxDepth(3))
	require.NoError(t, err)

	_, err = m.Run(context.Background())
	assert.ErrorIs(t, err, ErrCallStackOverflow)
	assert.Equal(t, 3, m.Depth())
}

func TestUnknownLabel(t *testing.T) {
	for _, s := range []string{
		"main:\n\tGOTO nowhere\n",
		"main:\n\tCALL nowhere\n",
		"main:\n\tc = 0\n\tIF_NOT c GOTO nowhere\n",
	} {
		_, err := Run(context.Background(), text(t, s))

		var re RuntimeError
		require.ErrorAs(t, err, &re, "%q", s)
		assert.ErrorIs(t, err, ErrUnknownLabel, "%q", s)
		assert.Equal(t, "nowhere", re.Name)
	}

	// not taken
	_, err := Run(context.Background(), text(t, "main:\n\tc = 1\n\tIF_NOT c GOTO nowhere\n\tHALT\n"))
	assert.NoError(t, err)
}

func TestDuplicateLabel(t *testing.T) {
	_, err := New(context.Background(), text(t, "main:\nL0:\nL0:\n\tHALT\n"))
	assert.ErrorIs(t, err, ErrDuplicateLabel)
}

func TestDivisionByZero(t *testing.T) {
	_, err := Run(context.Background(), text(t, "main:\n\ta = 1\n\tb = 0\n\tc = / a b\n"))
	assert.ErrorIs(t, err, ErrDivisionByZero)
}

func TestPrint(t *testing.T) {
	var buf bytes.Buffer

	_, err := Run(context.Background(), text(t, `
main:
	PRINT 3
	x = -4
	PRINT x
	HALT
	PRINT 5
`), WithOutput(&buf))
	require.NoError(t, err)

	assert.Equal(t, "3\n-4\n", buf.String())
}

func TestStep(t *testing.T) {
	ctx := context.Background()

	m, err := New(ctx, text(t, "x = 1\nmain:\n\ty = 2\n\tHALT\n\tz = 3\n"))
	require.NoError(t, err)

	assert.Equal(t, 1, m.PC())

	done, err := m.Step(ctx) // label
	require.NoError(t, err)
	assert.False(t, done)

	done, err = m.Step(ctx)
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, Memory{"y": 2}, m.Memory())

	done, err = m.Step(ctx)
	require.NoError(t, err)
	assert.True(t, done)

	done, err = m.Step(ctx)
	require.NoError(t, err)
	assert.True(t, done)

	assert.Equal(t, 3, m.Steps())
	assert.Equal(t, Memory{"y": 2}, m.Memory())
}
