package tac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sample = Program{
	{Op: Label, Result: "main"},
	{Op: Load, Arg1: "3", Result: "t0"},
	{Op: Assign, Arg1: "t0", Result: "x"},
	{Op: Label, Result: "L0"},
	{Op: Load, Arg1: "x", Result: "t1"},
	{Op: Load, Arg1: "0", Result: "t2"},
	{Op: Gtr, Arg1: "t1", Arg2: "t2", Result: "t3"},
	{Op: IfNot, Arg1: "t3", Arg2: "L1"},
	{Op: Neg, Arg1: "t1", Result: "t4"},
	{Op: Odd, Arg1: "t4", Result: "t5"},
	{Op: Print, Arg1: "t5"},
	{Op: Call, Arg1: "p"},
	{Op: Goto, Arg1: "L0"},
	{Op: Label, Result: "L1"},
	{Op: Halt},
	{Op: Label, Result: "p"},
	{Op: Return},
}

const sampleText = `main:
	t0 = LOAD 3
	x = t0
L0:
	t1 = LOAD x
	t2 = LOAD 0
	t3 = > t1 t2
	IF_NOT t3 GOTO L1
	t4 = NEG t1
	t5 = ODD t4
	PRINT t5
	CALL p
	GOTO L0
L1:
	HALT
p:
	RETURN
`

func TestAppendText(t *testing.T) {
	assert.Equal(t, sampleText, sample.String())
}

func TestParseText(t *testing.T) {
	p, err := ParseText([]byte("// generated\n\n" + sampleText))
	require.NoError(t, err)

	assert.Equal(t, sample, p)
}

func TestParseTextErrors(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want string
	}{
		{"JUMP L0", `line 1: unknown op "JUMP"`},
		{"IF_NOT t0 L1", "want IF_NOT <cond> GOTO <label>"},
		{"GOTO", "want GOTO <arg>"},
		{"HALT now", "HALT takes no arguments"},
		{"t0 =", "malformed assignment"},
		{"t0 = + a", "bad operand count for +"},
		{"t0 = ^ a b", `unknown op "^"`},
		{"\n\nLOAD x", "line 3: unexpected op LOAD"},
	} {
		_, err := ParseText([]byte(tc.in))
		require.Error(t, err, "%q", tc.in)
		assert.Contains(t, err.Error(), tc.want, "%q", tc.in)
	}
}

func TestOps(t *testing.T) {
	for op := Load; op < ops; op++ {
		got, ok := ParseOp(op.String())
		assert.True(t, ok, "%v", op)
		assert.Equal(t, op, got)
	}

	assert.True(t, Neq.Binary())
	assert.False(t, Assign.Binary())

	l, ok := Instruction{Op: IfNot, Arg1: "t0", Arg2: "L3"}.Target()
	assert.True(t, ok)
	assert.Equal(t, "L3", l)

	_, ok = Instruction{Op: Load}.Target()
	assert.False(t, ok)
}
