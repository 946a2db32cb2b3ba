// Package traverse expands program variables into the flat, ordered list of
// observables declared at a program point: the variable itself, every
// pointer dereference and array step, and every member of the aggregates
// reached along the way.
package traverse

import (
	"github.com/l3aro/go-decls/pkg/disambig"
	"github.com/l3aro/go-decls/pkg/model"
)

// Group selects which variables of a program point are visited.
type Group int

const (
	Globals Group = iota
	FormalParams
	ReturnValue
)

func (g Group) String() string {
	switch g {
	case Globals:
		return "globals"
	case FormalParams:
		return "params"
	case ReturnValue:
		return "return"
	}
	return "unknown"
}

// Origin tags where an observable came from. Dereferences keep the origin
// of the variable they dereference; aggregate members are OriginMember.
type Origin int

const (
	OriginGlobal Origin = iota
	OriginFormalParam
	OriginReturn
	OriginMember
)

// Result tells the engine whether to keep expanding the current chain.
type Result int

const (
	// Continue expands dereferences and members of the observable.
	Continue Result = iota
	// DisregardFurtherDerefs stops the current chain after this
	// observable.
	DisregardFurtherDerefs
)

// Observable is one named facet of a variable at a program point.
type Observable struct {
	Var *model.Variable
	// Name is the internal name ("/g", "p[]", "s.f", "n[]->next").
	Name   string
	Origin Origin

	NumDerefs        int
	LayersBeforeBase int
	// OverrideIsInit is set for values reached only through static array
	// layers, which always exist.
	OverrideIsInit bool
	Override       disambig.Override
	IsSequence     bool

	Function *model.Function
	IsEntry  bool

	// Enclosing is the internal name of the nearest emitted ancestor, or
	// "" for top-level observables.
	Enclosing string

	// Index is the running position of the observable within its program
	// point, starting at 0.
	Index int
}

// Visitor is called once per observable, in traversal order.
type Visitor interface {
	Visit(obs *Observable) (Result, error)
}

// VisitorFunc adapts a function to the Visitor interface.
type VisitorFunc func(obs *Observable) (Result, error)

// Visit calls f(obs).
func (f VisitorFunc) Visit(obs *Observable) (Result, error) {
	return f(obs)
}

// VarFilter decides whether a variable is traced at a program point. fn is
// nil for the globals section.
type VarFilter interface {
	TracesVariable(fn *model.Function, name string) bool
}

// OverrideSource resolves the disambiguation override of a variable. fn is
// nil for the globals section.
type OverrideSource interface {
	Lookup(fn *model.Function, v *model.Variable, name string) disambig.Override
}
