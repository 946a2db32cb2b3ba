package model

import "sync"

// Model owns every Type, global Variable and Function of one program. The
// iteration order of each list is the order entities were registered, which
// keeps every consumer deterministic.
type Model struct {
	types     []*Type
	typesByID map[string]*Type

	globals       []*Variable
	globalsByName map[string]*Variable

	functions []*Function
	funcsByKey map[string]*Function
}

// New returns an empty model.
func New() *Model {
	return &Model{
		typesByID:     make(map[string]*Type),
		globalsByName: make(map[string]*Variable),
		funcsByKey:    make(map[string]*Function),
	}
}

// Types returns all registered types in registration order.
func (m *Model) Types() []*Type { return m.types }

// Globals returns all global variables in declaration order.
func (m *Model) Globals() []*Variable { return m.globals }

// Functions returns all functions in registration order.
func (m *Model) Functions() []*Function { return m.functions }

// Type returns the type registered under a debug-info identity.
func (m *Model) Type(id string) *Type {
	return m.typesByID[id]
}

// Global returns the global variable with the given unique name.
func (m *Model) Global(name string) *Variable {
	return m.globalsByName[name]
}

// Function returns the function whose qualified or mangled name is key.
func (m *Model) Function(key string) *Function {
	return m.funcsByKey[key]
}

// ObjectTypes returns the named aggregates that get an object program
// point: at least one member function and at least one member variable.
func (m *Model) ObjectTypes() []*Type {
	var out []*Type
	for _, t := range m.types {
		if t.IsAggregate() && t.Name != "" &&
			len(t.MemberFunctions) > 0 && len(t.Members) > 0 {
			out = append(out, t)
		}
	}
	return out
}

func (m *Model) addType(id string, t *Type) {
	m.typesByID[id] = t
	m.types = append(m.types, t)
}

func (m *Model) addGlobal(v *Variable) {
	m.globalsByName[v.Name] = v
	m.globals = append(m.globals, v)
}

func (m *Model) addFunction(f *Function) {
	m.funcsByKey[f.QualifiedName] = f
	if f.MangledName != "" {
		m.funcsByKey[f.MangledName] = f
	}
	m.functions = append(m.functions, f)
}

// Observation holds the runtime feedback recorded for one pointer variable.
type Observation struct {
	// Observed is set once the pointer has been seen at runtime.
	Observed bool
	// MultipleElts is set once the pointer was seen addressing more than
	// one element.
	MultipleElts bool
}

// Observations is the mutable side table of runtime pointer observations,
// keyed by Variable identity. It is written by the runtime observation
// pass and only read while declarations are produced.
type Observations struct {
	mu sync.RWMutex
	m  map[*Variable]Observation
}

// NewObservations returns an empty observation table.
func NewObservations() *Observations {
	return &Observations{m: make(map[*Variable]Observation)}
}

// Record notes that v was observed, and whether it addressed more than one
// element. Flags only ever go from false to true.
func (o *Observations) Record(v *Variable, multipleElts bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	obs := o.m[v]
	obs.Observed = true
	obs.MultipleElts = obs.MultipleElts || multipleElts
	o.m[v] = obs
}

// Get returns the observation recorded for v.
func (o *Observations) Get(v *Variable) Observation {
	if o == nil {
		return Observation{}
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.m[v]
}

// Len returns the number of observed variables.
func (o *Observations) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.m)
}
