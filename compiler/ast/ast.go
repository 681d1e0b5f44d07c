package ast

import (
	"fmt"

	"github.com/slowlang/pl0/compiler/sym"
)

type (
	Kind int

	Base struct {
		Line int
		Col  int
	}

	// Node is a tagged tree node. Children are owned exclusively by their parent.
	Node struct {
		Base `tlog:",embed"`

		Kind  Kind
		Value string

		// Sym is the symbol a declaration introduced or a reference resolved to.
		Sym *sym.Symbol `tlog:",omitempty"`

		Children []*Node
	}
)

const (
	Program Kind = iota
	Block
	ConstDecl
	VarDecl
	ProcDecl
	Assignment
	Call
	Begin
	If
	While
	Condition
	Expression
	Term
	Operator
	Identifier
	Number
	Write

	kinds
)

var names = [kinds]string{
	Program:    "Program",
	Block:      "Block",
	ConstDecl:  "ConstDecl",
	VarDecl:    "VarDecl",
	ProcDecl:   "ProcDecl",
	Assignment: "Assignment",
	Call:       "Call",
	Begin:      "Begin",
	If:         "If",
	While:      "While",
	Condition:  "Condition",
	Expression: "Expression",
	Term:       "Term",
	Operator:   "Operator",
	Identifier: "Identifier",
	Number:     "Number",
	Write:      "Write",
}

// MainBlock is the Value of the program's outermost Block.
const MainBlock = "main"

func New(k Kind, val string, pos Base, children ...*Node) *Node {
	return &Node{
		Base:     pos,
		Kind:     k,
		Value:    val,
		Children: children,
	}
}

func (x *Node) Add(c ...*Node) {
	x.Children = append(x.Children, c...)
}

func (x *Node) Child(i int) *Node {
	if i < len(x.Children) {
		return x.Children[i]
	}

	return nil
}

// Walk calls f before (enter=true) and after (enter=false) visiting the children.
// Returning false on enter skips the children and the exit call.
func Walk(x *Node, f func(x *Node, enter bool) bool) {
	if x == nil {
		return
	}

	if !f(x, true) {
		return
	}

	for _, c := range x.Children {
		Walk(c, f)
	}

	f(x, false)
}

func (k Kind) String() string {
	if k >= 0 && k < kinds {
		return names[k]
	}

	return fmt.Sprintf("Kind(%d)", int(k))
}

func (x *Node) String() string {
	if x == nil {
		return "<nil>"
	}

	if x.Value == "" {
		return x.Kind.String()
	}

	return fmt.Sprintf("%v(%v)", x.Kind, x.Value)
}
