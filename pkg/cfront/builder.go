package cfront

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/l3aro/go-decls/pkg/model"
)

type pendingBody struct {
	id   string
	body *sitter.Node
	file *sourceFile
}

// builder accumulates one document across all parsed files.
type builder struct {
	doc model.Document

	types      map[string]*model.TypeDoc
	typeOrder  []string
	incomplete []model.TypeDoc
	aggByName  map[string]string
	anonNames  map[string]string
	typedefs   map[string]*typedefEntry
	macros     map[string]string
	bodies     []pendingBody

	globals   map[string]bool
	functions map[string]bool
}

func newBuilder() *builder {
	return &builder{
		types:     make(map[string]*model.TypeDoc),
		aggByName: make(map[string]string),
		anonNames: make(map[string]string),
		typedefs:  make(map[string]*typedefEntry),
		macros:    make(map[string]string),
		globals:   make(map[string]bool),
		functions: make(map[string]bool),
	}
}

// reference records an aggregate used without a definition in sight.
func (b *builder) reference(id, kind, name string) {
	for _, td := range b.incomplete {
		if td.ID == id {
			return
		}
	}
	b.incomplete = append(b.incomplete, model.TypeDoc{ID: id, Kind: kind, Name: name})
}

// collectTypes registers macros, typedefs and aggregate definitions.
func (b *builder) collectTypes(node *sitter.Node, f *sourceFile) {
	if node == nil {
		return
	}

	switch node.Type() {
	case "preproc_def":
		if name := node.ChildByFieldName("name"); name != nil {
			b.macros[f.nodeText(name)] = strings.TrimSpace(f.nodeText(node.ChildByFieldName("value")))
		}
	case "type_definition":
		b.parseTypeDefinition(node, f)
	case "struct_specifier", "union_specifier", "class_specifier", "enum_specifier":
		if body := node.ChildByFieldName("body"); body != nil {
			id, kind, name := b.specID(node, f)
			if _, dup := b.types[id]; !dup {
				b.types[id] = &model.TypeDoc{ID: id, Kind: kind, Name: name}
				b.typeOrder = append(b.typeOrder, id)
				if kind != "enum" {
					b.bodies = append(b.bodies, pendingBody{id: id, body: body, file: f})
				}
				if name != "" {
					if _, ok := b.aggByName[name]; !ok {
						b.aggByName[name] = id
					}
				}
			}
		}
	case "template_declaration":
		return
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		b.collectTypes(node.Child(i), f)
	}
}

func (b *builder) parseTypeDefinition(node *sitter.Node, f *sourceFile) {
	spec := node.ChildByFieldName("type")
	if spec == nil {
		return
	}
	for _, decl := range declarators(node, spec) {
		d := b.unwind(decl, f)
		if d.name == "" {
			continue
		}
		if _, dup := b.typedefs[d.name]; dup {
			continue
		}
		b.typedefs[d.name] = &typedefEntry{spec: spec, decl: decl, file: f}

		// typedef struct { ... } Name;
		anonymous := aggregateKeyword(spec) != "" && spec.ChildByFieldName("name") == nil &&
			spec.ChildByFieldName("body") != nil
		if anonymous && d.ptr == 0 && len(d.dims) == 0 && d.params == nil {
			if _, named := b.anonNames[f.key(spec)]; !named {
				b.anonNames[f.key(spec)] = d.name
			}
		}
	}
}

// fillBodies resolves the members of every aggregate definition. It runs
// once all typedefs are known.
func (b *builder) fillBodies() {
	for _, p := range b.bodies {
		td := b.types[p.id]
		for i := 0; i < int(p.body.NamedChildCount()); i++ {
			field := p.body.NamedChild(i)
			if field == nil || field.Type() != "field_declaration" {
				continue
			}
			spec := field.ChildByFieldName("type")
			base := b.resolveSpec(spec, p.file)
			static := storageClass(field, p.file) == "static"

			for _, decl := range declarators(field, spec) {
				d := b.unwind(decl, p.file)
				if d.name == "" || d.isPrototype() {
					continue
				}
				vd := varDoc(d.name, combine(base, d))
				if static {
					vd.Name = td.Name + "::" + d.name
					vd.External = true
					vd.File = p.file.path
					td.StaticMembers = append(td.StaticMembers, vd)
					continue
				}
				td.Members = append(td.Members, vd)
			}
		}
	}
}

// storageClass returns "static", "extern" or "" for a declaration.
func storageClass(node *sitter.Node, f *sourceFile) string {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child != nil && child.Type() == "storage_class_specifier" {
			switch s := f.nodeText(child); s {
			case "static", "extern":
				return s
			}
		}
	}
	return ""
}

func hasConst(node *sitter.Node, f *sourceFile) bool {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child != nil && child.Type() == "type_qualifier" && f.nodeText(child) == "const" {
			return true
		}
	}
	return false
}

// collectDecls adds globals and function definitions. parent is the type
// id of the enclosing class body, if any.
func (b *builder) collectDecls(node *sitter.Node, f *sourceFile, parent string) {
	if node == nil {
		return
	}

	switch node.Type() {
	case "function_definition":
		b.parseFunction(node, f, parent)
		return
	case "declaration":
		b.parseGlobals(node, f)
		b.collectDecls(node.ChildByFieldName("type"), f, parent)
		return
	case "struct_specifier", "class_specifier", "union_specifier":
		if body := node.ChildByFieldName("body"); body != nil {
			id, _, _ := b.specID(node, f)
			for i := 0; i < int(body.NamedChildCount()); i++ {
				b.collectDecls(body.NamedChild(i), f, id)
			}
		}
		return
	case "template_declaration":
		return
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		b.collectDecls(node.Child(i), f, parent)
	}
}

func (b *builder) globalName(name string, f *sourceFile, external bool) string {
	if external {
		return "/" + name
	}
	return model.MungeFileName(f.path) + "/" + name
}

func (b *builder) parseGlobals(node *sitter.Node, f *sourceFile) {
	storage := storageClass(node, f)
	if storage == "extern" {
		return
	}
	spec := node.ChildByFieldName("type")
	base := b.resolveSpec(spec, f)

	for _, decl := range declarators(node, spec) {
		d := b.unwind(decl, f)
		if d.name == "" || d.scope != "" || d.isPrototype() {
			continue
		}
		external := storage != "static"
		key := b.globalName(d.name, f, external)
		if b.globals[key] {
			continue
		}
		b.globals[key] = true

		vd := varDoc(d.name, combine(base, d))
		vd.External = external
		vd.File = f.path
		b.doc.Globals = append(b.doc.Globals, vd)
	}
}

func (b *builder) parseFunction(node *sitter.Node, f *sourceFile, parent string) {
	storage := storageClass(node, f)
	base := b.resolveSpec(node.ChildByFieldName("type"), f)
	if node.ChildByFieldName("type") == nil {
		base = opaque // constructors and destructors
	}
	d := b.unwind(node.ChildByFieldName("declarator"), f)
	if d.name == "" || d.params == nil {
		return
	}

	fd := model.FuncDoc{
		Name:     d.name,
		File:     f.path,
		External: storage != "static" || parent != "",
	}
	if parent == "" && d.scope != "" {
		scope := d.scope[strings.LastIndex(d.scope, ":")+1:]
		parent = b.aggByName[scope]
	}
	fd.Parent = parent

	params, spellings := b.parseParams(d.params, f)
	if parent != "" && storage != "static" {
		this := model.VarDoc{Name: "this", Type: parent, Ptr: 1}
		fd.Params = append([]model.VarDoc{this}, params...)
	} else {
		fd.Params = params
	}

	ret := combine(base, declarator{ptr: d.ptr})
	if !(ret.ref == model.KindVoid.String() && ret.ptr == 0) {
		rd := varDoc("return", ret)
		fd.Return = &rd
	}

	if f.lang == CPP {
		owner := d.scope
		if t, ok := b.types[parent]; ok && owner == "" {
			owner = t.Name
		}
		sig := d.name + "(" + strings.Join(spellings, ", ") + ")"
		if owner != "" {
			sig = owner + "::" + sig
		}
		fd.Demangled = sig
		fd.Qualified = ".." + sig
	}

	key := fd.Qualified
	if key == "" {
		if fd.External {
			key = ".." + fd.Name + "()"
		} else {
			key = fd.File + "." + fd.Name + "()"
		}
	}
	if b.functions[key] {
		return
	}
	b.functions[key] = true

	b.parseLocals(node.ChildByFieldName("body"), f, &fd)
	if t, ok := b.types[parent]; ok {
		t.MemberFunctions = append(t.MemberFunctions, key)
	}
	b.doc.Functions = append(b.doc.Functions, fd)
}

// parseParams returns the named parameters and the signature spelling of
// every parameter.
func (b *builder) parseParams(list *sitter.Node, f *sourceFile) ([]model.VarDoc, []string) {
	var params []model.VarDoc
	var spellings []string
	if list == nil {
		return nil, nil
	}
	for i := 0; i < int(list.NamedChildCount()); i++ {
		p := list.NamedChild(i)
		if p == nil {
			continue
		}
		switch p.Type() {
		case "parameter_declaration", "optional_parameter_declaration":
		case "variadic_parameter", "variadic_parameter_declaration":
			spellings = append(spellings, "...")
			continue
		default:
			continue
		}

		base := b.resolveSpec(p.ChildByFieldName("type"), f)
		var d declarator
		if decl := p.ChildByFieldName("declarator"); decl != nil {
			d = b.unwind(decl, f)
		}
		ti := decay(combine(base, d))
		if ti.ref == model.KindVoid.String() && ti.ptr == 0 && d.name == "" {
			continue // (void)
		}
		spellings = append(spellings, signatureSpelling(ti, hasConst(p, f)))
		if d.name == "" {
			continue
		}
		params = append(params, varDoc(d.name, ti))
	}
	return params, spellings
}

// parseLocals adds the variables declared in a function body. Static
// locals are stored like globals, under "<file>@<function>/<name>".
func (b *builder) parseLocals(node *sitter.Node, f *sourceFile, fd *model.FuncDoc) {
	if node == nil {
		return
	}
	switch node.Type() {
	case "function_definition", "lambda_expression", "class_specifier", "struct_specifier":
		return
	case "declaration":
		spec := node.ChildByFieldName("type")
		base := b.resolveSpec(spec, f)
		static := storageClass(node, f) == "static"
		for _, decl := range declarators(node, spec) {
			d := b.unwind(decl, f)
			if d.name == "" || d.isPrototype() {
				continue
			}
			vd := varDoc(d.name, combine(base, d))
			if !static {
				fd.Locals = append(fd.Locals, vd)
				continue
			}
			vd.Name = fmt.Sprintf("%s@%s/%s", model.MungeFileName(f.path), fd.Name, d.name)
			vd.File = f.path
			if !b.globals[vd.Name] {
				b.globals[vd.Name] = true
				b.doc.Globals = append(b.doc.Globals, vd)
			}
		}
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		b.parseLocals(node.Child(i), f, fd)
	}
}

// finish assembles the document: aggregate and enum definitions in the
// order they were met, then types used without a definition.
func (b *builder) finish() *model.Document {
	doc := b.doc
	for _, id := range b.typeOrder {
		doc.Types = append(doc.Types, *b.types[id])
	}
	for _, td := range b.incomplete {
		if _, defined := b.types[td.ID]; !defined {
			doc.Types = append(doc.Types, td)
		}
	}
	return &doc
}
