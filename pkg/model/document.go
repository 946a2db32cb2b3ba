package model

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ianlancetaylor/demangle"
)

// Document is the serialisable form of a Model, as handed over by the
// debug-information reader. Type references name either a TypeDoc ID or a
// base type spelling such as "int" or "unsigned char".
type Document struct {
	Types     []TypeDoc `yaml:"types,omitempty" msgpack:"types"`
	Globals   []VarDoc  `yaml:"globals,omitempty" msgpack:"globals"`
	Functions []FuncDoc `yaml:"functions,omitempty" msgpack:"functions"`
}

// TypeDoc describes one declared type.
type TypeDoc struct {
	ID              string   `yaml:"id" msgpack:"id"`
	Kind            string   `yaml:"kind" msgpack:"kind"`
	Name            string   `yaml:"name,omitempty" msgpack:"name"`
	Size            int      `yaml:"size,omitempty" msgpack:"size"`
	Members         []VarDoc `yaml:"members,omitempty" msgpack:"members"`
	StaticMembers   []VarDoc `yaml:"static_members,omitempty" msgpack:"static_members"`
	MemberFunctions []string `yaml:"member_functions,omitempty" msgpack:"member_functions"`
}

// VarDoc describes one variable.
type VarDoc struct {
	Name     string   `yaml:"name" msgpack:"name"`
	Type     string   `yaml:"type" msgpack:"type"`
	Ptr      int      `yaml:"ptr,omitempty" msgpack:"ptr"`
	Dims     []uint64 `yaml:"dims,omitempty" msgpack:"dims"`
	String   bool     `yaml:"string,omitempty" msgpack:"string"`
	Offset   int      `yaml:"offset,omitempty" msgpack:"offset"`
	External bool     `yaml:"external,omitempty" msgpack:"external"`
	File     string   `yaml:"file,omitempty" msgpack:"file"`
	Location uint64   `yaml:"location,omitempty" msgpack:"location"`
	Disambig string   `yaml:"disambig,omitempty" msgpack:"disambig"`
}

// FuncDoc describes one function.
type FuncDoc struct {
	Name      string   `yaml:"name" msgpack:"name"`
	Mangled   string   `yaml:"mangled,omitempty" msgpack:"mangled"`
	Demangled string   `yaml:"demangled,omitempty" msgpack:"demangled"`
	Qualified string   `yaml:"qualified,omitempty" msgpack:"qualified"`
	File      string   `yaml:"file,omitempty" msgpack:"file"`
	Start     uint64   `yaml:"start,omitempty" msgpack:"start"`
	End       uint64   `yaml:"end,omitempty" msgpack:"end"`
	External  bool     `yaml:"external,omitempty" msgpack:"external"`
	Params    []VarDoc `yaml:"params,omitempty" msgpack:"params"`
	Locals    []VarDoc `yaml:"locals,omitempty" msgpack:"locals"`
	Return    *VarDoc  `yaml:"return,omitempty" msgpack:"return"`
	Parent    string   `yaml:"parent,omitempty" msgpack:"parent"`
}

// MungeFileName turns a source file name into the identifier segment used
// in file-static global names ("src/a.c" becomes "src/a_c").
func MungeFileName(file string) string {
	dir, base := filepath.Split(filepath.ToSlash(file))
	base = strings.NewReplacer(".", "_", "-", "_", " ", "_").Replace(base)
	return dir + base
}

// builder holds the state of one Document.Build call.
type builder struct {
	doc   *Document
	m     *Model
	bases map[Kind]*Type
}

// Build constructs an immutable Model from the document.
func (d *Document) Build() (*Model, error) {
	b := &builder{doc: d, m: New(), bases: make(map[Kind]*Type)}

	// Type shells first so that members may refer to any type, including
	// the enclosing one.
	for i := range d.Types {
		td := &d.Types[i]
		if td.ID == "" {
			return nil, fmt.Errorf("type #%d: missing id", i)
		}
		if b.m.Type(td.ID) != nil {
			return nil, fmt.Errorf("type %q: duplicate id", td.ID)
		}
		kind, err := ParseKind(td.Kind)
		if err != nil {
			return nil, fmt.Errorf("type %q: %w", td.ID, err)
		}
		b.m.addType(td.ID, &Type{Kind: kind, Name: td.Name, ByteSize: td.Size})
	}

	for i := range d.Types {
		td := &d.Types[i]
		t := b.m.Type(td.ID)
		if !t.IsAggregate() {
			if len(td.Members)+len(td.StaticMembers)+len(td.MemberFunctions) > 0 {
				return nil, fmt.Errorf("type %q: only struct and union types have members", td.ID)
			}
			continue
		}
		for _, vd := range td.Members {
			v, err := b.variable(vd)
			if err != nil {
				return nil, fmt.Errorf("type %q member: %w", td.ID, err)
			}
			v.StructParent = t
			v.MemberOffset = uint64(vd.Offset)
			t.Members = append(t.Members, v)
		}
		for _, vd := range td.StaticMembers {
			v, err := b.global(vd)
			if err != nil {
				return nil, fmt.Errorf("type %q static member: %w", td.ID, err)
			}
			v.StructParent = t
			t.StaticMembers = append(t.StaticMembers, v)
		}
	}

	for _, vd := range d.Globals {
		if _, err := b.global(vd); err != nil {
			return nil, fmt.Errorf("global: %w", err)
		}
	}

	for i := range d.Functions {
		f, err := b.function(&d.Functions[i])
		if err != nil {
			return nil, fmt.Errorf("function %q: %w", d.Functions[i].Name, err)
		}
		if b.m.Function(f.QualifiedName) != nil {
			return nil, fmt.Errorf("function %q: duplicate program point %q", f.Name, f.QualifiedName)
		}
		b.m.addFunction(f)
	}

	if err := b.linkMemberFunctions(); err != nil {
		return nil, err
	}
	return b.m, nil
}

// resolveType finds a declared type by id or interns a base type.
func (b *builder) resolveType(ref string) (*Type, error) {
	if ref == "" {
		return nil, fmt.Errorf("missing type")
	}
	if t := b.m.Type(ref); t != nil {
		return t, nil
	}
	kind, err := ParseKind(ref)
	if err != nil {
		return nil, fmt.Errorf("unresolved type reference %q", ref)
	}
	if kind.IsAggregate() {
		return nil, fmt.Errorf("aggregate type %q must be declared", ref)
	}
	if t, ok := b.bases[kind]; ok {
		return t, nil
	}
	t := &Type{Kind: kind}
	b.bases[kind] = t
	b.m.addType(kind.String(), t)
	return t, nil
}

func (b *builder) variable(vd VarDoc) (*Variable, error) {
	if vd.Name == "" {
		return nil, fmt.Errorf("missing name")
	}
	t, err := b.resolveType(vd.Type)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", vd.Name, err)
	}
	if vd.Ptr < 0 {
		return nil, fmt.Errorf("%s: negative pointer level", vd.Name)
	}
	if vd.String && (!t.Kind.IsChar() || vd.Ptr == 0) {
		return nil, fmt.Errorf("%s: only char pointers can be strings", vd.Name)
	}
	if len(vd.Disambig) > 1 {
		return nil, fmt.Errorf("%s: disambig must be a single letter", vd.Name)
	}
	v := &Variable{
		Name:          vd.Name,
		ByteOffset:    vd.Offset,
		FileName:      vd.File,
		IsStaticArray: len(vd.Dims) > 0,
		UpperBounds:   vd.Dims,
		IsString:      vd.String,
		PtrLevels:     vd.Ptr,
		Type:          t,
	}
	if vd.Disambig != "" {
		v.Disambig = vd.Disambig[0]
	}
	return v, nil
}

func (b *builder) global(vd VarDoc) (*Variable, error) {
	v, err := b.variable(vd)
	if err != nil {
		return nil, err
	}
	v.IsGlobal = true
	v.IsExternal = vd.External
	v.GlobalLocation = vd.Location
	if !strings.Contains(v.Name, "/") {
		if v.IsExternal || v.FileName == "" {
			v.Name = "/" + v.Name
		} else {
			v.Name = MungeFileName(v.FileName) + "/" + v.Name
		}
	}
	if b.m.Global(v.Name) != nil {
		return nil, fmt.Errorf("%s: duplicate global", v.Name)
	}
	b.m.addGlobal(v)
	return v, nil
}

func (b *builder) function(fd *FuncDoc) (*Function, error) {
	if fd.Name == "" {
		return nil, fmt.Errorf("missing name")
	}
	f := &Function{
		Name:          fd.Name,
		MangledName:   fd.Mangled,
		DemangledName: fd.Demangled,
		FileName:      fd.File,
		QualifiedName: fd.Qualified,
		StartPC:       fd.Start,
		EndPC:         fd.End,
		IsExternal:    fd.External,
	}
	if f.DemangledName == "" && f.MangledName != "" {
		if s, err := demangle.ToString(f.MangledName); err == nil {
			f.DemangledName = s
		}
	}
	if f.QualifiedName == "" {
		f.QualifiedName = qualifiedName(f)
	}

	for _, vd := range fd.Params {
		v, err := b.variable(vd)
		if err != nil {
			return nil, fmt.Errorf("param: %w", err)
		}
		f.Params = append(f.Params, v)
	}
	for _, vd := range fd.Locals {
		v, err := b.variable(vd)
		if err != nil {
			return nil, fmt.Errorf("local: %w", err)
		}
		f.Locals = append(f.Locals, v)
	}
	if fd.Return != nil {
		rd := *fd.Return
		rd.Name = "return"
		v, err := b.variable(rd)
		if err != nil {
			return nil, fmt.Errorf("return value: %w", err)
		}
		if v.Type.Kind == KindVoid && v.PtrLevels == 0 {
			v = nil
		}
		if v != nil {
			f.Return = []*Variable{v}
		}
	}
	if fd.Parent != "" {
		t := b.m.Type(fd.Parent)
		if !t.IsAggregate() {
			return nil, fmt.Errorf("parent %q is not a declared aggregate", fd.Parent)
		}
		f.ParentClass = t
	}
	return f, nil
}

// linkMemberFunctions resolves TypeDoc.MemberFunctions against the built
// functions. A reference may be a qualified, mangled or plain name.
func (b *builder) linkMemberFunctions() error {
	byName := make(map[string]*Function)
	for _, f := range b.m.functions {
		if _, dup := byName[f.Name]; !dup {
			byName[f.Name] = f
		}
	}
	for i := range b.doc.Types {
		td := &b.doc.Types[i]
		t := b.m.Type(td.ID)
		for _, ref := range td.MemberFunctions {
			f := b.m.Function(ref)
			if f == nil {
				f = byName[ref]
			}
			if f == nil {
				return fmt.Errorf("type %q: unknown member function %q", td.ID, ref)
			}
			if f.ParentClass == nil {
				f.ParentClass = t
			}
			t.MemberFunctions = append(t.MemberFunctions, f)
		}
	}
	return nil
}

func qualifiedName(f *Function) string {
	switch {
	case f.DemangledName != "":
		return ".." + f.DemangledName
	case f.IsExternal || f.FileName == "":
		return ".." + f.Name + "()"
	default:
		return f.FileName + "." + f.Name + "()"
	}
}
