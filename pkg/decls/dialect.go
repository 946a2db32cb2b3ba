package decls

import (
	"fmt"
	"strings"

	"github.com/l3aro/go-decls/pkg/model"
	"github.com/l3aro/go-decls/pkg/names"
)

// Dialect selects the declaration file format.
type Dialect int

const (
	// Structured is the keyword-tagged format ("ppt", "variable", ...).
	Structured Dialect = iota
	// Legacy is the line-oriented DECLARE format.
	Legacy
)

func (d Dialect) String() string {
	if d == Legacy {
		return "legacy"
	}
	return "structured"
}

// ParseDialect accepts "legacy" or "structured" ("new" and "old" are
// accepted as aliases).
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "structured", "new", "":
		return Structured, nil
	case "legacy", "old":
		return Legacy, nil
	}
	return Structured, fmt.Errorf("unknown declaration dialect %q", s)
}

// renderer lays out headers, program point openings and records.
type renderer interface {
	header(w *declWriter, comparability bool)
	beginFunction(w *declWriter, fn *model.Function, isEntry bool)
	beginObject(w *declWriter, t *model.Type)
	record(w *declWriter, rec *Record)
	end(w *declWriter)
}

func (d Dialect) renderer() renderer {
	if d == Legacy {
		return legacyRenderer{}
	}
	return structuredRenderer{}
}

type legacyRenderer struct{}

func (legacyRenderer) header(w *declWriter, comparability bool) {
	if !comparability {
		w.str("VarComparability\nnone\n\n")
	}
}

func (legacyRenderer) beginFunction(w *declWriter, fn *model.Function, isEntry bool) {
	suffix := ":::EXIT0"
	if isEntry {
		suffix = ":::ENTER"
	}
	w.str("DECLARE\n")
	w.str(fn.PptName())
	w.str(suffix)
	w.str("\n")
}

func (legacyRenderer) beginObject(w *declWriter, t *model.Type) {
	w.str("DECLARE\n")
	w.str(t.Name)
	w.str(":::OBJECT\n")
}

func (legacyRenderer) record(w *declWriter, rec *Record) {
	w.str(rec.Name)
	w.str("\n")

	w.str(rec.DecType)
	var annotations []string
	if rec.IsParam {
		annotations = append(annotations, "isParam=true")
	}
	if rec.IsStruct {
		annotations = append(annotations, "isStruct=true")
	}
	if rec.NonNull {
		annotations = append(annotations, "hasNull=false")
	}
	if len(annotations) > 0 {
		w.str(" # ")
		w.str(strings.Join(annotations, ","))
	}
	w.str("\n")

	w.str(rec.repLine(true))
	w.str("\n")

	if rec.HasComparability {
		w.printf("%d\n", rec.Comparability)
	} else {
		w.str("22\n")
	}
}

func (legacyRenderer) end(w *declWriter) {
	w.str("\n")
}

type structuredRenderer struct{}

func (structuredRenderer) header(w *declWriter, comparability bool) {
	w.str("input-language C/C++\n")
	if comparability {
		w.str("var-comparability implicit\n")
	} else {
		w.str("var-comparability none\n")
	}
	w.str("\n")
}

func (structuredRenderer) beginFunction(w *declWriter, fn *model.Function, isEntry bool) {
	w.str("ppt ")
	w.str(names.PptName(fn))
	if isEntry {
		w.str("\n  ppt-type enter\n")
	} else {
		w.str("\n  ppt-type exit\n")
	}
	if fn.ParentClass != nil && fn.ParentClass.Name != "" {
		w.str("  parent ")
		w.str(fn.ParentClass.Name)
		w.str("\n")
	}
}

func (structuredRenderer) beginObject(w *declWriter, t *model.Type) {
	w.str("ppt ")
	w.str(t.Name)
	w.str("\n  ppt-type object\n")
}

func (structuredRenderer) record(w *declWriter, rec *Record) {
	w.str("  variable ")
	w.str(rec.Name)
	w.str("\n    var-kind ")
	w.str(rec.VarKind)
	w.str("\n")
	if rec.Enclosing != "" {
		w.str("    enclosing-var ")
		w.str(rec.Enclosing)
		w.str("\n")
	}
	if rec.IsSequence {
		w.str("    array 1\n")
	}
	w.str("    rep-type ")
	w.str(rec.repLine(false))
	w.str("\n    dec-type ")
	w.str(rec.DecType)
	w.str("\n")

	var flags []string
	if rec.IsParam {
		flags = append(flags, "is_param")
	}
	if rec.NonNull {
		flags = append(flags, "non_null")
	}
	if len(flags) > 0 {
		w.str("    flags ")
		w.str(strings.Join(flags, " "))
		w.str("\n")
	}
	if rec.HasComparability {
		w.printf("    comparability %d\n", rec.Comparability)
	}
}

func (structuredRenderer) end(w *declWriter) {
	w.str("\n")
}
