package model

// Type describes one base type or one aggregate. Instances are shared by
// reference between all variables that use them and must not be modified
// once the Model is built.
type Type struct {
	Kind     Kind
	Name     string // collection name for struct, union and enum types
	ByteSize int

	// Only populated for struct and union types.
	Members         []*Variable
	StaticMembers   []*Variable
	MemberFunctions []*Function
}

// IsAggregate reports whether the type is a struct or union.
func (t *Type) IsAggregate() bool {
	return t != nil && (t.Kind == KindStruct || t.Kind == KindUnion)
}

// Variable is one declared variable: global, parameter, local, struct member
// or synthesized return value.
//
// Variables are immutable after the Model is built. The two runtime
// observation flags live in Observations instead.
type Variable struct {
	// Name as it appears in the program for locals and members. Globals
	// carry a unique path-like name ("/counter", "a_c/counter",
	// "dir/a_c@fn/counter").
	Name       string
	ByteOffset int

	IsGlobal       bool
	IsExternal     bool
	FileName       string
	GlobalLocation uint64

	IsStaticArray bool
	UpperBounds   []uint64 // one entry per dimension

	// IsString marks a char pointer treated as a C string; it consumes one
	// pointer level.
	IsString  bool
	PtrLevels int
	Type      *Type

	StructParent *Type // enclosing aggregate for members and static members
	MemberOffset uint64

	// Disambig is the variable's own disambiguation letter, 0 if none.
	Disambig byte
}

// NumDimensions returns the number of static array dimensions.
func (v *Variable) NumDimensions() int {
	if !v.IsStaticArray {
		return 0
	}
	return len(v.UpperBounds)
}

// IsMember reports whether the variable is an instance member of an
// aggregate.
func (v *Variable) IsMember() bool {
	return v.StructParent != nil && !v.IsGlobal
}

// IsStaticMember reports whether the variable is a class static member,
// which is stored like a global.
func (v *Variable) IsStaticMember() bool {
	return v.StructParent != nil && v.IsGlobal
}

// Function is one instrumented function.
type Function struct {
	Name          string
	MangledName   string
	DemangledName string
	FileName      string

	// QualifiedName is the unique program point identifier, such as
	// "..main()" or "a.c.helper()".
	QualifiedName string

	StartPC uint64
	EndPC   uint64

	IsExternal bool

	Params []*Variable
	Locals []*Variable
	Return []*Variable // empty or a single variable named "return"

	ParentClass *Type // non-nil for member functions
}

// PptName returns the unique program point name of the function.
func (f *Function) PptName() string {
	return f.QualifiedName
}

// LookupKey returns the key used by selection lists: the mangled name when
// the function has one, otherwise the qualified name.
func (f *Function) LookupKey() string {
	if f.MangledName != "" {
		return f.MangledName
	}
	return f.QualifiedName
}

// ReturnVar returns the return value variable, or nil for void functions.
func (f *Function) ReturnVar() *Variable {
	if len(f.Return) == 0 {
		return nil
	}
	return f.Return[0]
}
