// Package decls renders program points as Daikon declarations.
//
// Each observable produced by the traversal engine is first reduced to a
// dialect-independent Record; the legacy and the structured renderers only
// differ in how they lay a Record out.
package decls

import (
	"fmt"
	"strings"

	"github.com/l3aro/go-decls/pkg/disambig"
	"github.com/l3aro/go-decls/pkg/model"
	"github.com/l3aro/go-decls/pkg/names"
	"github.com/l3aro/go-decls/pkg/traverse"
)

// RepType is a Daikon representation type.
type RepType int

const (
	RepInt RepType = iota + 1
	RepDouble
	RepHashcode
	RepString
	RepBoolean
)

// String returns the structured-dialect spelling.
func (r RepType) String() string {
	switch r {
	case RepInt:
		return "int"
	case RepDouble:
		return "double"
	case RepHashcode:
		return "hashcode"
	case RepString:
		return "string"
	case RepBoolean:
		return "boolean"
	}
	return "no_rep_type"
}

// legacyString returns the legacy-dialect spelling.
func (r RepType) legacyString() string {
	if r == RepString {
		return "java.lang.String"
	}
	return r.String()
}

// BaseRepType maps a declared kind to its representation type. A kind
// outside the closed set is a programming error and panics.
func BaseRepType(k model.Kind, isString bool) RepType {
	if isString {
		return RepString
	}
	switch k {
	case model.KindUnsignedChar, model.KindChar,
		model.KindUnsignedShort, model.KindShort,
		model.KindUnsignedInt, model.KindInt,
		model.KindUnsignedLongLong, model.KindLongLong,
		model.KindEnum:
		return RepInt
	case model.KindBool:
		return RepBoolean
	case model.KindFloat, model.KindDouble, model.KindLongDouble:
		return RepDouble
	case model.KindStruct, model.KindUnion, model.KindFunction, model.KindVoid:
		return RepHashcode
	case model.KindCharAsString:
		return RepString
	}
	panic(fmt.Sprintf("decls: no representation type for kind %v", k))
}

// Record is one declared variable, independent of the output dialect.
type Record struct {
	// Name and Enclosing are externalized; Enclosing is "" when absent.
	Name      string
	Enclosing string
	// VarKind is "variable", "field <name>", "array" or "function *".
	VarKind    string
	IsSequence bool

	Rep RepType
	// RepArray is set when the override itself makes the value an array,
	// so the rep-type line carries "[]" independently of IsSequence.
	RepArray bool
	DecType  string

	IsParam  bool
	NonNull  bool
	IsStruct bool

	HasComparability bool
	Comparability    int
}

// repLine returns the rep-type text; legacy selects the legacy spelling.
func (r *Record) repLine(legacy bool) string {
	s := r.Rep.String()
	if legacy {
		s = r.Rep.legacyString()
	}
	if r.RepArray || r.IsSequence {
		s += "[]"
	}
	return s
}

// NewRecord derives the record of one observable. outputStructVars enables
// the legacy isStruct annotation.
func NewRecord(obs *traverse.Observable, outputStructVars bool) Record {
	v := obs.Var
	t := v.Type
	base := BaseRepType(t.Kind, v.IsString)

	rec := Record{
		Name:       names.Externalize(obs.Name),
		VarKind:    varKind(obs),
		IsSequence: obs.IsSequence,
		IsParam:    obs.Origin == traverse.OriginFormalParam,
		NonNull:    v.IsStaticArray && obs.LayersBeforeBase == 1,
		IsStruct:   outputStructVars && obs.LayersBeforeBase == 0 && t.IsAggregate(),
	}
	if obs.Enclosing != "" {
		rec.Enclosing = names.Externalize(obs.Enclosing)
	}

	switch {
	case obs.LayersBeforeBase > 0:
		rec.Rep = RepHashcode
	case obs.Override == disambig.StringAsIntArray:
		rec.Rep = RepInt
		rec.RepArray = true
	case obs.Override == disambig.StringAsOneInt:
		rec.Rep = RepInt
	case obs.Override == disambig.CharAsString:
		rec.Rep = RepString
	default:
		rec.Rep = base
	}

	rec.DecType = decType(obs)
	return rec
}

func varKind(obs *traverse.Observable) string {
	switch {
	case strings.HasSuffix(obs.Name, "[0]"):
		return "function *"
	case obs.NumDerefs > 0:
		return "array"
	case obs.Var.IsMember():
		return "field " + obs.Var.Name
	}
	return "variable"
}

func decType(obs *traverse.Observable) string {
	v := obs.Var
	t := v.Type

	var sb strings.Builder
	switch {
	case obs.Override == disambig.StringAsIntArray:
		sb.WriteString("int[]")
	case obs.Override == disambig.StringAsOneInt:
		sb.WriteString("int")
	case obs.Override == disambig.CharAsString:
		sb.WriteString("char*")
	case (t.Kind == model.KindEnum || t.IsAggregate()) && t.Name != "":
		sb.WriteString(t.Name)
	default:
		sb.WriteString(t.Kind.String())
		if v.IsString {
			sb.WriteByte('*')
		}
	}
	for i := 0; i < obs.LayersBeforeBase; i++ {
		sb.WriteByte('*')
	}
	if obs.IsSequence {
		sb.WriteString("[]")
	}
	return sb.String()
}
