package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWalk(t *testing.T) {
	x := New(Operator, "+", Base{},
		New(Identifier, "a", Base{}),
		New(Term, "*", Base{},
			New(Number, "2", Base{}),
			New(Number, "3", Base{}),
		),
	)

	var order []string

	Walk(x, func(x *Node, enter bool) bool {
		if enter {
			order = append(order, "+"+x.String())
		} else {
			order = append(order, "-"+x.String())
		}

		return x.Kind != Term
	})

	assert.Equal(t, []string{
		"+Operator(+)",
		"+Identifier(a)",
		"-Identifier(a)",
		"+Term(*)",
		"-Operator(+)",
	}, order)
}

func TestChild(t *testing.T) {
	x := New(Assignment, "x", Base{Line: 2, Col: 3})

	assert.Nil(t, x.Child(0))

	e := New(Expression, "", Base{})
	x.Add(e)

	assert.Same(t, e, x.Child(0))
	assert.Equal(t, "Expression", e.String())
	assert.Equal(t, "Assignment(x)", x.String())
	assert.Equal(t, "Kind(99)", Kind(99).String())
}
