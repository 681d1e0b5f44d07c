package vm

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/pl0/compiler/tac"
)

type (
	// VM executes a tac.Program against a flat name -> value memory.
	VM struct {
		prog   tac.Program
		labels map[string]int

		mem   Memory
		stack []int // return addresses
		pc    int

		halted bool
		steps  int

		maxDepth int
		out      io.Writer
	}

	Memory map[string]int64

	Option func(m *VM)

	RuntimeError struct {
		Err   error
		PC    int
		Instr tac.Instruction
		Name  string // variable or label involved
	}
)

// DefaultMaxDepth bounds the call stack.
const DefaultMaxDepth = 100

var (
	ErrUndefinedVariable = errors.New("undefined variable")
	ErrUnknownLabel      = errors.New("unknown label")
	ErrCallStackOverflow = errors.New("call stack overflow")
	ErrReturnWithoutCall = errors.New("return without call")
	ErrDivisionByZero    = errors.New("division by zero")
	ErrDuplicateLabel    = errors.New("duplicate label")
	ErrBadInstruction    = errors.New("bad instruction")
)

// WithMemory presets memory cells before the run.
func WithMemory(mem map[string]int64) Option {
	return func(m *VM) {
		for k, v := range mem {
			m.mem[k] = v
		}
	}
}

// WithOutput sets where PRINT writes to. Default is os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(m *VM) {
		m.out = w
	}
}

func WithMaxDepth(n int) Option {
	return func(m *VM) {
		m.maxDepth = n
	}
}

// Run loads the program and runs it to completion.
func Run(ctx context.Context, prog tac.Program, opts ...Option) (Memory, error) {
	m, err := New(ctx, prog, opts...)
	if err != nil {
		return nil, err
	}

	return m.Run(ctx)
}

// New loads the program and resolves its labels.
// Execution starts at the main label, or at 0 if there is none.
func New(ctx context.Context, prog tac.Program, opts ...Option) (*VM, error) {
	m := &VM{
		prog:     prog,
		labels:   make(map[string]int),
		mem:      make(Memory),
		maxDepth: DefaultMaxDepth,
		out:      os.Stdout,
	}

	for _, o := range opts {
		o(m)
	}

	for i, ins := range prog {
		if ins.Op != tac.Label {
			continue
		}

		if _, ok := m.labels[ins.Result]; ok {
			return nil, m.fail(ErrDuplicateLabel, i, ins.Result)
		}

		m.labels[ins.Result] = i
	}

	tr := tlog.SpanFromContext(ctx)

	if pc, ok := m.labels[tac.Entry]; ok {
		m.pc = pc
	} else {
		tr.Printw("vm: no entry label, starting at 0", "entry", tac.Entry, "instructions", len(prog))
	}

	tr.Printw("vm: loaded", "instructions", len(prog), "labels", len(m.labels), "pc", m.pc)

	return m, nil
}

// Run executes until HALT or until pc runs past the end of the program.
func (m *VM) Run(ctx context.Context) (mem Memory, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "vm: run", "pc", m.pc)
	defer func() {
		tr.Finish("steps", m.Steps(), "depth", m.Depth(), "err", err)
	}()

	for {
		done, err := m.Step(ctx)
		if err != nil {
			return nil, err
		}

		if done {
			break
		}
	}

	return m.Memory(), nil
}

// Step executes one instruction and reports whether the machine has stopped.
func (m *VM) Step(ctx context.Context) (done bool, err error) {
	if m.halted || m.pc < 0 || m.pc >= len(m.prog) {
		return true, nil
	}

	pc := m.pc
	ins := m.prog[pc]
	next := pc + 1

	if tr := tlog.SpanFromContext(ctx); tr.If("vm_trace") {
		defer func() {
			tr.Printw("step", "pc", pc, "ins", ins, "next", m.pc, "depth", len(m.stack), "err", err)
		}()
	}

	m.steps++

	switch op := ins.Op; op {
	case tac.Load, tac.Assign:
		v, err := m.operand(pc, ins.Arg1)
		if err != nil {
			return true, err
		}

		m.mem[ins.Result] = v
	case tac.Add, tac.Sub, tac.Mul, tac.Div, tac.Gtr, tac.Lss, tac.Geq, tac.Leq, tac.Neq, tac.Eql:
		a, err := m.operand(pc, ins.Arg1)
		if err != nil {
			return true, err
		}

		b, err := m.operand(pc, ins.Arg2)
		if err != nil {
			return true, err
		}

		if op == tac.Div && b == 0 {
			return true, m.fail(ErrDivisionByZero, pc, ins.Arg2)
		}

		m.mem[ins.Result] = arith(op, a, b)
	case tac.Neg, tac.Odd:
		a, err := m.operand(pc, ins.Arg1)
		if err != nil {
			return true, err
		}

		if op == tac.Neg {
			a = -a
		} else {
			a = b2i(a%2 != 0)
		}

		m.mem[ins.Result] = a
	case tac.Label:
	case tac.Goto:
		next, err = m.label(pc, ins.Arg1)
		if err != nil {
			return true, err
		}
	case tac.IfNot:
		c, err := m.operand(pc, ins.Arg1)
		if err != nil {
			return true, err
		}

		if c == 0 {
			next, err = m.label(pc, ins.Arg2)
			if err != nil {
				return true, err
			}
		}
	case tac.Call:
		if len(m.stack) >= m.maxDepth {
			return true, m.fail(ErrCallStackOverflow, pc, ins.Arg1)
		}

		next, err = m.label(pc, ins.Arg1)
		if err != nil {
			return true, err
		}

		m.stack = append(m.stack, pc+1)
	case tac.Return:
		if len(m.stack) == 0 {
			return true, m.fail(ErrReturnWithoutCall, pc, "")
		}

		next = m.stack[len(m.stack)-1]
		m.stack = m.stack[:len(m.stack)-1]
	case tac.Halt:
		m.halted = true

		return true, nil
	case tac.Print:
		v, err := m.operand(pc, ins.Arg1)
		if err != nil {
			return true, err
		}

		_, err = fmt.Fprintf(m.out, "%d\n", v)
		if err != nil {
			return true, errors.Wrap(err, "print")
		}
	default:
		return true, m.fail(ErrBadInstruction, pc, op.String())
	}

	m.pc = next

	return m.pc >= len(m.prog), nil
}

// Memory returns a copy of the current memory.
func (m *VM) Memory() Memory {
	r := make(Memory, len(m.mem))

	for k, v := range m.mem {
		r[k] = v
	}

	return r
}

func (m *VM) PC() int    { return m.pc }
func (m *VM) Depth() int { return len(m.stack) }
func (m *VM) Steps() int { return m.steps }

func (m *VM) operand(pc int, name string) (int64, error) {
	if isLiteral(name) {
		v, err := strconv.ParseInt(name, 10, 64)
		if err != nil {
			return 0, m.fail(errors.Wrap(err, "literal"), pc, name)
		}

		return v, nil
	}

	v, ok := m.mem[name]
	if !ok {
		return 0, m.fail(ErrUndefinedVariable, pc, name)
	}

	return v, nil
}

func (m *VM) label(pc int, name string) (int, error) {
	i, ok := m.labels[name]
	if !ok {
		return 0, m.fail(ErrUnknownLabel, pc, name)
	}

	return i, nil
}

func (m *VM) fail(err error, pc int, name string) error {
	e := RuntimeError{Err: err, PC: pc, Name: name}

	if pc >= 0 && pc < len(m.prog) {
		e.Instr = m.prog[pc]
	}

	return e
}

func arith(op tac.Op, a, b int64) int64 {
	switch op {
	case tac.Add:
		return a + b
	case tac.Sub:
		return a - b
	case tac.Mul:
		return a * b
	case tac.Div:
		return a / b
	case tac.Gtr:
		return b2i(a > b)
	case tac.Lss:
		return b2i(a < b)
	case tac.Geq:
		return b2i(a >= b)
	case tac.Leq:
		return b2i(a <= b)
	case tac.Neq:
		return b2i(a != b)
	case tac.Eql:
		return b2i(a == b)
	}

	panic(op)
}

func isLiteral(s string) bool {
	if s != "" && s[0] == '-' {
		s = s[1:]
	}

	return s != "" && s[0] >= '0' && s[0] <= '9'
}

func b2i(x bool) int64 {
	if x {
		return 1
	}

	return 0
}

func (e RuntimeError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("pc %d: %v: %v", e.PC, e.Instr, e.Err)
	}

	return fmt.Sprintf("pc %d: %v: %v: %s", e.PC, e.Instr, e.Err, e.Name)
}

func (e RuntimeError) Unwrap() error { return e.Err }
