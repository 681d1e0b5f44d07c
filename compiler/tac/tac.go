package tac

import (
	"fmt"

	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/tlog/tlwire"
)

type (
	Op int

	// Instruction is a single three-address instruction.
	//
	//	LABEL     Result
	//	GOTO      Arg1 (label)
	//	IF_NOT    Arg1 (condition), Arg2 (label)
	//	CALL      Arg1 (procedure label)
	//	LOAD      Arg1 (name or literal) -> Result
	//	=         Arg1 -> Result
	//	binary    Arg1, Arg2 -> Result
	//	NEG, ODD  Arg1 -> Result
	//	PRINT     Arg1
	Instruction struct {
		Op     Op
		Arg1   string `tlog:",omitempty"`
		Arg2   string `tlog:",omitempty"`
		Result string `tlog:",omitempty"`
	}

	Program []Instruction
)

const (
	Load Op = iota
	Add
	Sub
	Mul
	Div
	Gtr
	Lss
	Geq
	Leq
	Neq
	Eql
	Assign
	Label
	Goto
	IfNot
	Call
	Return
	Halt
	Neg
	Odd
	Print

	ops
)

// Entry is the label execution starts from.
const Entry = "main"

var spellings = [ops]string{
	Load:   "LOAD",
	Add:    "+",
	Sub:    "-",
	Mul:    "*",
	Div:    "/",
	Gtr:    ">",
	Lss:    "<",
	Geq:    ">=",
	Leq:    "<=",
	Neq:    "!=",
	Eql:    "==",
	Assign: "=",
	Label:  "LABEL",
	Goto:   "GOTO",
	IfNot:  "IF_NOT",
	Call:   "CALL",
	Return: "RETURN",
	Halt:   "HALT",
	Neg:    "NEG",
	Odd:    "ODD",
	Print:  "PRINT",
}

var bySpelling = func() map[string]Op {
	m := make(map[string]Op, ops)

	for op, s := range spellings {
		m[s] = Op(op)
	}

	return m
}()

func ParseOp(s string) (Op, bool) {
	op, ok := bySpelling[s]
	return op, ok
}

func (op Op) String() string {
	if op >= 0 && op < ops {
		return spellings[op]
	}

	return fmt.Sprintf("Op(%d)", int(op))
}

// Binary reports whether op takes two operands and stores into Result.
func (op Op) Binary() bool {
	return op >= Add && op <= Eql
}

// Target is the label a jump or call refers to.
func (i Instruction) Target() (string, bool) {
	switch i.Op {
	case Goto, Call:
		return i.Arg1, true
	case IfNot:
		return i.Arg2, true
	}

	return "", false
}

// AppendText appends the textual form of the instruction without a newline.
func (i Instruction) AppendText(b []byte) []byte {
	switch {
	case i.Op == Label:
		return hfmt.Appendf(b, "%s:", i.Result)
	case i.Op == IfNot:
		return hfmt.Appendf(b, "IF_NOT %s GOTO %s", i.Arg1, i.Arg2)
	case i.Op == Goto, i.Op == Call, i.Op == Print:
		return hfmt.Appendf(b, "%v %s", i.Op, i.Arg1)
	case i.Op == Return, i.Op == Halt:
		return append(b, i.Op.String()...)
	case i.Op == Assign:
		return hfmt.Appendf(b, "%s = %s", i.Result, i.Arg1)
	case i.Op == Load, i.Op == Neg, i.Op == Odd:
		return hfmt.Appendf(b, "%s = %v %s", i.Result, i.Op, i.Arg1)
	case i.Op.Binary():
		return hfmt.Appendf(b, "%s = %v %s %s", i.Result, i.Op, i.Arg1, i.Arg2)
	default:
		return hfmt.Appendf(b, "%v %s %s %s", i.Op, i.Arg1, i.Arg2, i.Result)
	}
}

func (i Instruction) String() string {
	return string(i.AppendText(nil))
}

// AppendText appends the program one instruction per line.
// Labels start at column zero, everything else is indented by a tab.
func (p Program) AppendText(b []byte) []byte {
	for _, i := range p {
		if i.Op != Label {
			b = append(b, '\t')
		}

		b = i.AppendText(b)
		b = append(b, '\n')
	}

	return b
}

func (p Program) String() string {
	return string(p.AppendText(nil))
}

func (i Instruction) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	return e.AppendString(b, i.String())
}
