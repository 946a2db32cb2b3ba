package selection

import (
	"bufio"
	"fmt"
	"io"

	"github.com/l3aro/go-decls/pkg/model"
	"github.com/l3aro/go-decls/pkg/traverse"
)

// WriteProgramPoints writes a program point list naming every function of
// m, suitable for editing and loading back with LoadProgramPoints.
func WriteProgramPoints(w io.Writer, m *model.Model) error {
	bw := bufio.NewWriter(w)
	for _, fn := range m.Functions() {
		if fn.MangledName != "" {
			fmt.Fprintf(bw, "%s %s %s\n", mangledToken, fn.MangledName, fn.PptName())
		} else {
			fmt.Fprintln(bw, fn.PptName())
		}
	}
	return bw.Flush()
}

// WriteVariables writes a variable list with a globals section and one
// section per function holding its parameters and return value. With
// topLevelOnly only the variables themselves are listed, not what is
// derived from them.
func WriteVariables(w io.Writer, eng *traverse.Engine, topLevelOnly bool) error {
	bw := bufio.NewWriter(w)

	list := traverse.VisitorFunc(func(obs *traverse.Observable) (traverse.Result, error) {
		fmt.Fprintln(bw, obs.Name)
		if topLevelOnly {
			return traverse.DisregardFurtherDerefs, nil
		}
		return traverse.Continue, nil
	})

	fmt.Fprintf(bw, "%s\n%s\n", SectionDelimiter, GlobalsSection)
	if err := eng.NewSession(nil, true).VisitGroup(traverse.Globals, list); err != nil {
		return err
	}
	fmt.Fprintln(bw)

	for _, fn := range eng.Model().Functions() {
		fmt.Fprintf(bw, "%s\n%s\n", SectionDelimiter, fn.PptName())
		s := eng.NewSession(fn, false)
		for _, g := range []traverse.Group{traverse.FormalParams, traverse.ReturnValue} {
			if err := s.VisitGroup(g, list); err != nil {
				return err
			}
		}
		fmt.Fprintln(bw)
	}
	return bw.Flush()
}
