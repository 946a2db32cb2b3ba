package traverse

import (
	"fmt"

	"github.com/l3aro/go-decls/pkg/disambig"
	"github.com/l3aro/go-decls/pkg/model"
)

// Defaults for Options.
const (
	DefaultStructRecursionLimit = 1
	DefaultMaxNestingDepth      = 8
)

// Options configures an Engine.
type Options struct {
	// StructRecursionLimit bounds how many times one aggregate type may be
	// entered within a single top-level variable's expansion. With the
	// default of 1 a type is never re-entered from inside itself.
	StructRecursionLimit int
	// MaxNestingDepth bounds the number of aggregates entered along one
	// chain.
	MaxNestingDepth int

	IgnoreGlobals    bool
	IgnoreStaticVars bool
	// OutputStructVars also emits aggregate values themselves.
	OutputStructVars bool

	// Filter and Overrides may be nil: everything is traced and each
	// variable's own disambiguation letter applies.
	Filter    VarFilter
	Overrides OverrideSource
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		StructRecursionLimit: DefaultStructRecursionLimit,
		MaxNestingDepth:      DefaultMaxNestingDepth,
	}
}

// Engine expands the variables of a model. It holds no per-traversal state
// and may be shared by concurrent sessions.
type Engine struct {
	model *model.Model
	opts  Options
}

// New returns an engine over m. Non-positive bounds fall back to defaults.
func New(m *model.Model, opts Options) *Engine {
	if opts.StructRecursionLimit <= 0 {
		opts.StructRecursionLimit = DefaultStructRecursionLimit
	}
	if opts.MaxNestingDepth <= 0 {
		opts.MaxNestingDepth = DefaultMaxNestingDepth
	}
	return &Engine{model: m, opts: opts}
}

// Model returns the model the engine walks.
func (e *Engine) Model() *model.Model { return e.model }

// Options returns the effective options.
func (e *Engine) Options() Options { return e.opts }

// Session is the traversal state of one program point. The running index
// lives for the whole program point; the enclosing-name stack and the
// per-type recursion counters are reset before every top-level variable.
//
// A Session must not be used from more than one goroutine.
type Session struct {
	eng     *Engine
	fn      *model.Function
	isEntry bool

	index     int
	enclosing []string
	visited   map[*model.Type]int
}

// NewSession starts a program point. fn is nil for object program points.
func (e *Engine) NewSession(fn *model.Function, isEntry bool) *Session {
	return &Session{
		eng:     e,
		fn:      fn,
		isEntry: isEntry,
		visited: make(map[*model.Type]int),
	}
}

// Count returns the number of observables visited so far.
func (s *Session) Count() int { return s.index }

// Function returns the session's function, nil for object program points.
func (s *Session) Function() *model.Function { return s.fn }

// IsEntry reports whether the session is a function entry.
func (s *Session) IsEntry() bool { return s.isEntry }

// VisitGroup visits every variable of group in declaration order.
func (s *Session) VisitGroup(group Group, vis Visitor) error {
	switch group {
	case Globals:
		return s.visitGlobals(vis)
	case FormalParams:
		if s.fn == nil {
			return nil
		}
		for _, v := range s.fn.Params {
			if err := s.visitTopLevel(v, v.Name, OriginFormalParam, s.fn, vis); err != nil {
				return err
			}
		}
		return nil
	case ReturnValue:
		if s.fn == nil {
			return nil
		}
		for _, v := range s.fn.Return {
			if err := s.visitTopLevel(v, "return", OriginReturn, s.fn, vis); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("unknown variable group %d", int(group))
}

func (s *Session) visitGlobals(vis Visitor) error {
	opts := s.eng.opts
	if opts.IgnoreGlobals {
		return nil
	}
	for _, g := range s.eng.model.Globals() {
		if opts.IgnoreStaticVars && !g.IsExternal {
			continue
		}
		if g.IsStaticMember() && (s.fn == nil || s.fn.ParentClass != g.StructParent) {
			continue
		}
		if err := s.visitTopLevel(g, g.Name, OriginGlobal, nil, vis); err != nil {
			return err
		}
	}
	return nil
}

// VisitClassMembers visits the instance members of t as seen through an
// implicit "this" pointer, for object program points.
func (s *Session) VisitClassMembers(t *model.Type, vis Visitor) error {
	if !t.IsAggregate() {
		return fmt.Errorf("type %q is not a struct or union", t.Name)
	}
	s.reset()
	s.visited[t]++
	for _, m := range t.Members {
		c := chain{v: m, name: "this->" + m.Name, origin: OriginMember, depth: 1, unfiltered: true}
		if err := s.expand(c, vis); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) reset() {
	s.enclosing = s.enclosing[:0]
	clear(s.visited)
}

// visitTopLevel expands one top-level variable with fresh chain state.
// scope is the function used for filter and override lookups, nil for
// globals.
func (s *Session) visitTopLevel(v *model.Variable, name string, origin Origin, scope *model.Function, vis Visitor) error {
	s.reset()
	return s.expand(chain{v: v, name: name, origin: origin, scope: scope}, vis)
}

// chain is the expansion of one variable, from the variable itself down to
// its base type.
type chain struct {
	v      *model.Variable
	name   string
	origin Origin
	scope  *model.Function

	// seq is set when an enclosing chain already produced a sequence.
	seq   bool
	depth int

	// unfiltered bypasses the variable filter (object program points).
	unfiltered bool
}

// Layers returns the number of dereference steps between v and its base
// type: pointer levels plus static dimensions, minus the level a string
// consumes.
func Layers(v *model.Variable) int {
	n := v.PtrLevels + v.NumDimensions()
	if v.IsString {
		n--
	}
	return n
}

func (s *Session) override(c chain) disambig.Override {
	if s.eng.opts.Overrides != nil {
		return s.eng.opts.Overrides.Lookup(c.scope, c.v, c.name)
	}
	return disambig.Resolve(c.v.Disambig, c.v)
}

func (s *Session) traces(c chain, name string) bool {
	if c.unfiltered || s.eng.opts.Filter == nil {
		return true
	}
	return s.eng.opts.Filter.TracesVariable(c.scope, name)
}

func (s *Session) expand(c chain, vis Visitor) error {
	mark := len(s.enclosing)
	defer func() { s.enclosing = s.enclosing[:mark] }()

	v := c.v
	ov := s.override(c)
	layers := Layers(v)
	aggregate := v.Type.IsAggregate()

	// Pointers to void or to functions are never dereferenced into their
	// base.
	floor := 0
	if layers > 0 && (v.Type.Kind == model.KindVoid || v.Type.Kind == model.KindFunction) {
		floor = 1
	}

	name := c.name
	seq := c.seq
	memberPrefix := ""
	for derefs := 0; ; derefs++ {
		remaining := layers - derefs
		atBase := remaining == 0

		if !atBase || !aggregate || s.eng.opts.OutputStructVars {
			if !s.traces(c, name) {
				return nil
			}
			obs := &Observable{
				Var:              v,
				Name:             name,
				Origin:           c.origin,
				NumDerefs:        derefs,
				LayersBeforeBase: remaining,
				OverrideIsInit:   derefs > 0 && derefs <= v.NumDimensions(),
				Override:         ov,
				IsSequence:       seq,
				Function:         s.fn,
				IsEntry:          s.isEntry,
				Enclosing:        s.top(),
				Index:            s.index,
			}
			s.index++
			res, err := vis.Visit(obs)
			if err != nil {
				return err
			}
			if res == DisregardFurtherDerefs {
				return nil
			}
			s.enclosing = append(s.enclosing, name)
		}

		if atBase || remaining == floor {
			break
		}

		if derefs == 0 && !seq && ov != disambig.ArrayAsPointer {
			name += "[]"
			seq = true
			memberPrefix = name + "."
		} else {
			memberPrefix = name + "->"
			name += "[0]"
		}
	}

	if !aggregate {
		return nil
	}
	if layers == 0 {
		memberPrefix = name + "."
	}
	return s.expandMembers(c, v.Type, memberPrefix, seq, vis)
}

func (s *Session) expandMembers(parent chain, t *model.Type, prefix string, seq bool, vis Visitor) error {
	opts := s.eng.opts
	if s.visited[t] >= opts.StructRecursionLimit || parent.depth >= opts.MaxNestingDepth {
		return nil
	}
	s.visited[t]++
	defer func() { s.visited[t]-- }()

	for _, m := range t.Members {
		c := chain{
			v:          m,
			name:       prefix + m.Name,
			origin:     OriginMember,
			scope:      parent.scope,
			seq:        seq,
			depth:      parent.depth + 1,
			unfiltered: parent.unfiltered,
		}
		if err := s.expand(c, vis); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) top() string {
	if len(s.enclosing) == 0 {
		return ""
	}
	return s.enclosing[len(s.enclosing)-1]
}
