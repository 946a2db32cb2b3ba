package cfront

import (
	"fmt"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/l3aro/go-decls/pkg/model"
)

// typeInfo is a resolved type specifier: a type reference understood by
// model.Document plus the pointer levels and array bounds a typedef may
// carry.
type typeInfo struct {
	ref      string
	ptr      int
	dims     []uint64
	spelling string
}

var opaque = typeInfo{ref: model.KindVoid.String(), spelling: "void"}

// fixedWidth maps common library typedefs to base kinds.
var fixedWidth = map[string]model.Kind{
	"int8_t":    model.KindChar,
	"uint8_t":   model.KindUnsignedChar,
	"int16_t":   model.KindShort,
	"uint16_t":  model.KindUnsignedShort,
	"int32_t":   model.KindInt,
	"uint32_t":  model.KindUnsignedInt,
	"int64_t":   model.KindLongLong,
	"uint64_t":  model.KindUnsignedLongLong,
	"size_t":    model.KindUnsignedLongLong,
	"ssize_t":   model.KindLongLong,
	"ptrdiff_t": model.KindLongLong,
	"intptr_t":  model.KindLongLong,
	"uintptr_t": model.KindUnsignedLongLong,
	"off_t":     model.KindLongLong,
	"wchar_t":   model.KindInt,
	"bool":      model.KindBool,
}

// baseType resolves a base type spelling, retrying with the sign word
// moved to the front ("long unsigned" as "unsigned long").
func baseType(spelling string) (typeInfo, bool) {
	words := strings.Fields(spelling)
	if k, ok := fixedWidth[strings.Join(words, " ")]; ok {
		return typeInfo{ref: k.String(), spelling: k.String()}, true
	}
	if k, err := model.ParseKind(strings.Join(words, " ")); err == nil {
		return typeInfo{ref: k.String(), spelling: k.String()}, true
	}
	var sign, rest []string
	for _, w := range words {
		if w == "unsigned" || w == "signed" {
			sign = append(sign, w)
		} else {
			rest = append(rest, w)
		}
	}
	if k, err := model.ParseKind(strings.Join(append(sign, rest...), " ")); err == nil {
		return typeInfo{ref: k.String(), spelling: k.String()}, true
	}
	return typeInfo{}, false
}

// declarator is what a C declarator adds to its base type.
type declarator struct {
	name  string
	scope string // qualifier of out-of-line C++ definitions

	ptr  int // pointer levels outside any function declarator
	dims []uint64

	// params is set when the declarator declares a function or a pointer
	// to one; fnPtr counts the pointer levels to the function.
	params *sitter.Node
	fnPtr  int
}

// isPrototype reports whether the declarator declares a function rather
// than a variable.
func (d declarator) isPrototype() bool {
	return d.params != nil && d.fnPtr == 0
}

var declaratorTypes = map[string]bool{
	"identifier":               true,
	"field_identifier":         true,
	"type_identifier":          true,
	"qualified_identifier":     true,
	"destructor_name":          true,
	"operator_name":            true,
	"pointer_declarator":       true,
	"reference_declarator":     true,
	"array_declarator":         true,
	"function_declarator":      true,
	"parenthesized_declarator": true,
	"init_declarator":          true,
}

// declarators returns the declarator children of a declaration, skipping
// its type specifier.
func declarators(n, spec *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child == nil || !declaratorTypes[child.Type()] {
			continue
		}
		if spec != nil && child.StartByte() == spec.StartByte() && child.EndByte() == spec.EndByte() {
			continue
		}
		out = append(out, child)
	}
	return out
}

func innerDeclarator(n *sitter.Node) *sitter.Node {
	if d := n.ChildByFieldName("declarator"); d != nil {
		return d
	}
	switch n.Type() {
	case "reference_declarator", "abstract_reference_declarator",
		"parenthesized_declarator", "abstract_parenthesized_declarator":
		if cnt := int(n.NamedChildCount()); cnt > 0 {
			return n.NamedChild(cnt - 1)
		}
	}
	return nil
}

// unwind walks a declarator from the outside in.
func (b *builder) unwind(n *sitter.Node, f *sourceFile) declarator {
	var d declarator
	for n != nil {
		switch n.Type() {
		case "identifier", "field_identifier", "type_identifier",
			"destructor_name", "operator_name":
			d.name = f.nodeText(n)
			return d
		case "qualified_identifier":
			var scope []string
			for n != nil && n.Type() == "qualified_identifier" {
				if s := n.ChildByFieldName("scope"); s != nil {
					scope = append(scope, f.nodeText(s))
				}
				n = n.ChildByFieldName("name")
			}
			d.scope = strings.Join(scope, "::")
			d.name = f.nodeText(n)
			return d
		case "pointer_declarator", "abstract_pointer_declarator",
			"reference_declarator", "abstract_reference_declarator":
			if d.params != nil {
				d.fnPtr++
			} else {
				d.ptr++
			}
		case "array_declarator", "abstract_array_declarator":
			d.dims = append([]uint64{b.arraySize(n.ChildByFieldName("size"), f)}, d.dims...)
		case "function_declarator", "abstract_function_declarator":
			d.params = n.ChildByFieldName("parameters")
		case "parenthesized_declarator", "abstract_parenthesized_declarator", "init_declarator":
		default:
			return d
		}
		n = innerDeclarator(n)
	}
	return d
}

// arraySize evaluates an array bound. Bounds that are not literals or
// object-like macros come out as zero.
func (b *builder) arraySize(n *sitter.Node, f *sourceFile) uint64 {
	if n == nil {
		return 0
	}
	text := strings.TrimSpace(f.nodeText(n))
	if n.Type() == "identifier" {
		text = b.macros[text]
	}
	text = strings.TrimRight(text, "uUlL")
	v, err := strconv.ParseUint(text, 0, 64)
	if err != nil {
		return 0
	}
	return v
}

// aggregateKeyword returns the keyword of a struct, union, class or enum
// specifier, or "" for other nodes.
func aggregateKeyword(n *sitter.Node) string {
	switch n.Type() {
	case "struct_specifier":
		return "struct"
	case "union_specifier":
		return "union"
	case "class_specifier":
		return "class"
	case "enum_specifier":
		return "enum"
	}
	return ""
}

// specID names the TypeDoc of an aggregate specifier. Classes share the
// struct namespace. Anonymous aggregates take the name of the typedef that
// introduces them, or a position-based id.
func (b *builder) specID(n *sitter.Node, f *sourceFile) (id, kind, name string) {
	kw := aggregateKeyword(n)
	kind = kw
	if kw == "class" {
		kind = "struct"
	}
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		name = f.nodeText(nameNode)
		return kind + " " + name, kind, name
	}
	if hint, ok := b.anonNames[f.key(n)]; ok {
		return hint, kind, hint
	}
	p := n.StartPoint()
	return fmt.Sprintf("%s <anonymous %s:%d:%d>", kw, f.path, p.Row+1, p.Column+1), kind, ""
}

// resolveSpec resolves a type specifier node.
func (b *builder) resolveSpec(n *sitter.Node, f *sourceFile) typeInfo {
	if n == nil {
		return opaque
	}
	switch n.Type() {
	case "primitive_type", "sized_type_specifier":
		if ti, ok := baseType(f.nodeText(n)); ok {
			return ti
		}
		return opaque
	case "type_identifier":
		return b.resolveName(f.nodeText(n))
	case "qualified_identifier":
		text := f.nodeText(n)
		return b.resolveName(text[strings.LastIndex(text, ":")+1:])
	case "struct_specifier", "union_specifier", "class_specifier", "enum_specifier":
		id, kind, name := b.specID(n, f)
		if _, ok := b.types[id]; !ok {
			b.reference(id, kind, name)
		}
		spelling := name
		if spelling == "" {
			spelling = kind
		}
		return typeInfo{ref: id, spelling: spelling}
	}
	return opaque
}

// resolveName resolves a type name through typedefs, library typedefs
// and C++ class names.
func (b *builder) resolveName(name string) typeInfo {
	if td, ok := b.typedefs[name]; ok {
		return b.resolveTypedef(td)
	}
	if ti, ok := baseType(name); ok {
		return ti
	}
	if id, ok := b.aggByName[name]; ok {
		return typeInfo{ref: id, spelling: name}
	}
	return opaque
}

type typedefEntry struct {
	spec, decl *sitter.Node
	file       *sourceFile

	resolved  *typeInfo
	resolving bool
}

func (b *builder) resolveTypedef(td *typedefEntry) typeInfo {
	if td.resolved != nil {
		return *td.resolved
	}
	if td.resolving {
		return opaque
	}
	td.resolving = true
	defer func() { td.resolving = false }()

	base := b.resolveSpec(td.spec, td.file)
	ti := combine(base, b.unwind(td.decl, td.file))
	td.resolved = &ti
	return ti
}

// combine applies a declarator to a base type.
func combine(base typeInfo, d declarator) typeInfo {
	if d.params != nil {
		return typeInfo{ref: model.KindFunction.String(), ptr: d.fnPtr, dims: d.dims, spelling: "function"}
	}
	out := base
	out.ptr = base.ptr + d.ptr
	if len(d.dims)+len(base.dims) > 0 {
		out.dims = append(append([]uint64(nil), d.dims...), base.dims...)
	}
	return out
}

// varDoc builds the VarDoc of a declared variable.
func varDoc(name string, ti typeInfo) model.VarDoc {
	return model.VarDoc{
		Name:   name,
		Type:   ti.ref,
		Ptr:    ti.ptr,
		Dims:   ti.dims,
		String: ti.ref == model.KindChar.String() && ti.ptr > 0,
	}
}

// decay turns the outermost array bound of a parameter into a pointer.
func decay(ti typeInfo) typeInfo {
	if len(ti.dims) == 0 {
		return ti
	}
	ti.ptr++
	if len(ti.dims) == 1 {
		ti.dims = nil
	} else {
		ti.dims = ti.dims[1:]
	}
	return ti
}

// signatureSpelling renders a parameter type the way a demangler does.
func signatureSpelling(ti typeInfo, isConst bool) string {
	s := ti.spelling
	if isConst {
		s += " const"
	}
	s += strings.Repeat("*", ti.ptr)
	for range ti.dims {
		s += "[]"
	}
	return s
}
