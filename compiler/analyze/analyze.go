package analyze

import (
	"context"
	"fmt"

	"tlog.app/go/tlog"

	"github.com/slowlang/pl0/compiler/set"
	"github.com/slowlang/pl0/compiler/tac"
)

type (
	LabelError struct {
		Index  int
		Instr  tac.Instruction
		Reason string
	}
)

// Check verifies that a program is safe to jump around in:
// labels are unique, every jump and call targets a defined label
// and the entry label is present.
// Labels nothing jumps to are reported to the trace, they are not an error.
func Check(ctx context.Context, p tac.Program) (err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "analyze", "instructions", len(p))
	defer tr.Finish("err", &err)

	labels := map[string]int{}

	for i, ins := range p {
		if ins.Op != tac.Label {
			continue
		}

		if ins.Result == "" {
			return LabelError{Index: i, Instr: ins, Reason: "empty label"}
		}

		if prev, ok := labels[ins.Result]; ok {
			return LabelError{Index: i, Instr: ins, Reason: fmt.Sprintf("duplicate label, first defined at %d", prev)}
		}

		labels[ins.Result] = i
	}

	if _, ok := labels[tac.Entry]; !ok {
		return LabelError{Index: -1, Reason: "no entry label " + tac.Entry}
	}

	used := set.MakeBitmap(len(p))

	used.Set(labels[tac.Entry])

	for i, ins := range p {
		l, ok := ins.Target()
		if !ok {
			continue
		}

		at, ok := labels[l]
		if !ok {
			return LabelError{Index: i, Instr: ins, Reason: "undefined label " + l}
		}

		used.Set(at)
	}

	tr.Printw("labels checked", "labels", len(labels), "referenced", used.Size())

	if tr.If("analyze") {
		for l, at := range labels {
			if !used.IsSet(at) {
				tr.Printw("unreferenced label", "label", l, "index", at)
			}
		}
	}

	return nil
}

func (e LabelError) Error() string {
	if e.Index < 0 {
		return e.Reason
	}

	return fmt.Sprintf("instruction %d: %v: %s", e.Index, e.Instr, e.Reason)
}
