package tac

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"tlog.app/go/errors"
)

type (
	TextError struct {
		Line   int
		Text   string
		Reason string
	}
)

// ParseText reads a program in the form produced by Program.AppendText.
// Blank lines and lines starting with "//" are ignored.
func ParseText(text []byte) (p Program, err error) {
	s := bufio.NewScanner(bytes.NewReader(text))

	lnum := 0
	for s.Scan() {
		lnum++

		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}

		i, reason := parseLine(strings.Fields(line))
		if reason != "" {
			return nil, TextError{Line: lnum, Text: line, Reason: reason}
		}

		p = append(p, i)
	}

	if err := s.Err(); err != nil {
		return nil, errors.Wrap(err, "scan")
	}

	return p, nil
}

func parseLine(f []string) (i Instruction, reason string) {
	if len(f) == 1 && strings.HasSuffix(f[0], ":") && len(f[0]) > 1 {
		return Instruction{Op: Label, Result: strings.TrimSuffix(f[0], ":")}, ""
	}

	if len(f) >= 2 && f[1] == "=" {
		return parseStore(f)
	}

	op, ok := ParseOp(f[0])
	if !ok {
		return i, fmt.Sprintf("unknown op %q", f[0])
	}

	switch op {
	case IfNot:
		if len(f) != 4 || f[2] != "GOTO" {
			return i, "want IF_NOT <cond> GOTO <label>"
		}

		return Instruction{Op: IfNot, Arg1: f[1], Arg2: f[3]}, ""
	case Goto, Call, Print:
		if len(f) != 2 {
			return i, fmt.Sprintf("want %v <arg>", op)
		}

		return Instruction{Op: op, Arg1: f[1]}, ""
	case Return, Halt:
		if len(f) != 1 {
			return i, fmt.Sprintf("%v takes no arguments", op)
		}

		return Instruction{Op: op}, ""
	}

	return i, fmt.Sprintf("unexpected op %v", op)
}

func parseStore(f []string) (i Instruction, reason string) {
	i.Result = f[0]

	switch len(f) {
	case 3:
		i.Op = Assign
		i.Arg1 = f[2]

		return i, ""
	case 4, 5:
	default:
		return i, "malformed assignment"
	}

	op, ok := ParseOp(f[2])
	if !ok {
		return i, fmt.Sprintf("unknown op %q", f[2])
	}

	i.Op = op
	i.Arg1 = f[3]

	switch {
	case len(f) == 4 && (op == Load || op == Neg || op == Odd):
	case len(f) == 5 && op.Binary():
		i.Arg2 = f[4]
	default:
		return i, fmt.Sprintf("bad operand count for %v", op)
	}

	return i, ""
}

func (e TextError) Error() string {
	return fmt.Sprintf("line %d: %s: %q", e.Line, e.Reason, e.Text)
}
