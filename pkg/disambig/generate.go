package disambig

import (
	"bufio"
	"fmt"
	"io"

	"github.com/l3aro/go-decls/pkg/model"
)

// Suggest returns the letter a smart .disambig file proposes for v, or 0 when
// the variable is unambiguous. Pointers that were observed but never seen
// addressing more than one element are proposed as single values.
func Suggest(v *model.Variable, obs *model.Observations) byte {
	switch {
	case v.Type == nil:
		return 0
	case v.IsString:
		return LetterString
	case v.PtrLevels > 0 || v.IsStaticArray:
		o := obs.Get(v)
		if o.Observed && !o.MultipleElts {
			return LetterPointer
		}
		return LetterArray
	case v.Type.Kind.IsChar():
		return LetterInt
	}
	return 0
}

// Generate writes a .disambig file covering globals, the parameters and
// return value of every function, and the members of every named
// aggregate, using the runtime observations to choose letters. Sections
// without any ambiguous variable are omitted.
func Generate(w io.Writer, m *model.Model, obs *model.Observations) error {
	bw := bufio.NewWriter(w)

	section := func(header string, vars []*model.Variable) {
		wrote := false
		for _, v := range vars {
			letter := Suggest(v, obs)
			if letter == 0 {
				continue
			}
			if !wrote {
				fmt.Fprintf(bw, "%s\n%s\n", SectionDelimiter, header)
				wrote = true
			}
			fmt.Fprintf(bw, "%s\n%c\n", v.Name, letter)
		}
		if wrote {
			bw.WriteByte('\n')
		}
	}

	section(GlobalsSection, m.Globals())

	for _, fn := range m.Functions() {
		vars := make([]*model.Variable, 0, len(fn.Params)+1)
		vars = append(vars, fn.Params...)
		vars = append(vars, fn.Return...)
		section(fn.PptName(), vars)
	}

	for _, t := range m.Types() {
		if !t.IsAggregate() || t.Name == "" {
			continue
		}
		section(UserTypePrefix+t.Name, t.Members)
	}

	return bw.Flush()
}
