package sym

import (
	"fmt"

	"tlog.app/go/tlog/tlwire"
)

type (
	Kind int

	Symbol struct {
		ID    int
		Name  string
		Kind  Kind
		Level int

		Value int64 // Constant
		Slot  int   // Variable and Procedure, index within the declaring scope

		Owner string // storage name of the declaring procedure, "" for the program block
	}

	// Table is a stack of scopes.
	// Ids are unique for the Table lifetime.
	Table struct {
		scopes []*scope
		all    []*Symbol

		next int
	}

	scope struct {
		owner string
		names map[string]*Symbol

		vars  int
		procs int
	}

	DuplicateError struct {
		Name string
		Prev *Symbol
	}
)

const (
	Constant Kind = iota
	Variable
	Procedure
)

func New() *Table {
	return &Table{}
}

// EnterScope opens a new scope one level deeper.
// owner is the storage name of the procedure the scope belongs to.
func (t *Table) EnterScope(owner string) {
	t.scopes = append(t.scopes, &scope{
		owner: owner,
		names: make(map[string]*Symbol),
	})
}

func (t *Table) ExitScope() {
	if len(t.scopes) == 0 {
		panic("sym: exit scope without matching enter")
	}

	t.scopes = t.scopes[:len(t.scopes)-1]
}

// Level is the current scope level, -1 outside of any scope.
func (t *Table) Level() int {
	return len(t.scopes) - 1
}

// Declare adds name to the current scope.
// val is the value of a Constant and ignored otherwise.
func (t *Table) Declare(name string, k Kind, val int64) (*Symbol, error) {
	if len(t.scopes) == 0 {
		panic("sym: declare outside of scope")
	}

	sc := t.scopes[len(t.scopes)-1]

	if prev, ok := sc.names[name]; ok {
		return nil, DuplicateError{Name: name, Prev: prev}
	}

	s := &Symbol{
		ID:    t.next,
		Name:  name,
		Kind:  k,
		Level: t.Level(),
		Owner: sc.owner,
	}

	t.next++

	switch k {
	case Constant:
		s.Value = val
	case Variable:
		s.Slot = sc.vars
		sc.vars++
	case Procedure:
		s.Slot = sc.procs
		sc.procs++
	}

	sc.names[name] = s
	t.all = append(t.all, s)

	return s, nil
}

// Resolve finds the innermost declaration of name visible from the current scope.
func (t *Table) Resolve(name string) *Symbol {
	for i := len(t.scopes) - 1; i >= 0; i-- {
		if s, ok := t.scopes[i].names[name]; ok {
			return s
		}
	}

	return nil
}

// Symbols returns every symbol ever declared in the Table, in id order.
func (t *Table) Symbols() []*Symbol {
	return t.all
}

// Storage is the name the symbol lives under in generated code.
func (s *Symbol) Storage() string {
	if s.Level > 0 {
		return s.Owner + "." + s.Name
	}

	if Reserved(s.Name) {
		return "$" + s.Name
	}

	return s.Name
}

// Reserved reports whether name clashes with a generated temporary,
// a generated label or the entry label.
func Reserved(name string) bool {
	if name == "main" {
		return true
	}

	if len(name) < 2 || name[0] != 't' && name[0] != 'L' {
		return false
	}

	for _, c := range []byte(name[1:]) {
		if c < '0' || c > '9' {
			return false
		}
	}

	return true
}

func (k Kind) String() string {
	switch k {
	case Constant:
		return "const"
	case Variable:
		return "var"
	case Procedure:
		return "procedure"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

func (s *Symbol) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	if s == nil {
		return e.AppendNil(b)
	}

	b = e.AppendMap(b, 4)

	b = e.AppendKeyInt(b, "id", s.ID)
	b = e.AppendString(b, "name")
	b = e.AppendString(b, s.Storage())
	b = e.AppendString(b, "kind")
	b = e.AppendString(b, s.Kind.String())
	b = e.AppendKeyInt(b, "level", s.Level)

	return b
}

func (e DuplicateError) Error() string {
	return fmt.Sprintf("duplicate declaration: %q already declared as %v at level %d", e.Name, e.Prev.Kind, e.Prev.Level)
}
