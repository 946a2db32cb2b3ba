package decls

import (
	"bytes"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/l3aro/go-decls/internal/log"
	"github.com/l3aro/go-decls/pkg/model"
	"github.com/l3aro/go-decls/pkg/traverse"
)

// ProgramFilter decides which functions get program points.
type ProgramFilter interface {
	TracesFunction(fn *model.Function) bool
}

// Options configures an Emitter.
type Options struct {
	Dialect Dialect
	// Programs may be nil to declare every function.
	Programs ProgramFilter
	// Comparability may be nil; comparability numbers are then omitted
	// (structured) or written as 22 (legacy).
	Comparability Comparability
	// Workers > 1 renders functions concurrently. Output order does not
	// change.
	Workers int
	Logger  log.Logger
}

// Emitter writes the declarations of a model.
type Emitter struct {
	eng  *traverse.Engine
	opts Options
	r    renderer
}

// New returns an emitter that walks the model with eng.
func New(eng *traverse.Engine, opts Options) *Emitter {
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	return &Emitter{eng: eng, opts: opts, r: opts.Dialect.renderer()}
}

// PointCount is the number of observables at one program point.
type PointCount struct {
	Function *model.Function
	IsEntry  bool
	Count    int
}

func (e *Emitter) traced(fn *model.Function) bool {
	return e.opts.Programs == nil || e.opts.Programs.TracesFunction(fn)
}

// tracedObject reports whether an object program point is declared for t:
// at least one of its member functions is traced.
func (e *Emitter) tracedObject(t *model.Type) bool {
	if e.opts.Programs == nil {
		return true
	}
	for _, fn := range t.MemberFunctions {
		if e.opts.Programs.TracesFunction(fn) {
			return true
		}
	}
	return false
}

// WriteAll writes the header, the entry and exit of every traced function
// in model order, then the object program points.
func (e *Emitter) WriteAll(w io.Writer) error {
	dw := &declWriter{w: w}
	e.r.header(dw, e.opts.Comparability != nil)
	if dw.err != nil {
		return &EmitError{Point: "header", PptType: "header", Err: dw.err}
	}

	var fns []*model.Function
	for _, fn := range e.eng.Model().Functions() {
		if e.traced(fn) {
			fns = append(fns, fn)
		}
	}

	var err error
	if e.opts.Workers > 1 {
		err = e.writeParallel(w, fns)
	} else {
		for _, fn := range fns {
			if err = e.writeBoth(w, fn); err != nil {
				break
			}
		}
	}
	if err != nil {
		return err
	}

	objects := 0
	for _, t := range e.eng.Model().ObjectTypes() {
		if !e.tracedObject(t) {
			continue
		}
		if err := e.WriteObject(w, t); err != nil {
			return err
		}
		objects++
	}

	e.opts.Logger.Info("wrote declarations",
		"dialect", e.opts.Dialect, "functions", len(fns), "objects", objects)
	return nil
}

func (e *Emitter) writeBoth(w io.Writer, fn *model.Function) error {
	if err := e.WriteFunction(w, fn, true); err != nil {
		return err
	}
	return e.WriteFunction(w, fn, false)
}

// writeParallel renders each function into its own buffer and copies the
// buffers out in order.
func (e *Emitter) writeParallel(w io.Writer, fns []*model.Function) error {
	bufs := make([]bytes.Buffer, len(fns))

	var g errgroup.Group
	g.SetLimit(e.opts.Workers)
	for i, fn := range fns {
		i, fn := i, fn
		g.Go(func() error {
			return e.writeBoth(&bufs[i], fn)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i := range bufs {
		if _, err := bufs[i].WriteTo(w); err != nil {
			return &EmitError{Point: fns[i].PptName(), PptType: "enter", Err: err}
		}
	}
	return nil
}

// WriteFunction writes the entry or exit program point of fn: globals,
// formal parameters, and on exit the return value.
func (e *Emitter) WriteFunction(w io.Writer, fn *model.Function, isEntry bool) error {
	dw := &declWriter{w: w}
	fail := func(variable string, err error) error {
		return &EmitError{Point: fn.PptName(), PptType: pptType(isEntry), Variable: variable, Err: err}
	}

	e.r.beginFunction(dw, fn, isEntry)
	if dw.err != nil {
		return fail("", dw.err)
	}

	s := e.eng.NewSession(fn, isEntry)
	vis := e.recordVisitor(dw, fn, isEntry)

	groups := []traverse.Group{traverse.Globals, traverse.FormalParams}
	if !isEntry {
		groups = append(groups, traverse.ReturnValue)
	}
	for _, g := range groups {
		if err := s.VisitGroup(g, vis); err != nil {
			return fail(variableOf(err), unwrapVar(err))
		}
	}

	e.r.end(dw)
	if dw.err != nil {
		return fail("", dw.err)
	}
	e.opts.Logger.Debug("declared program point",
		"ppt", fn.PptName(), "type", pptType(isEntry), "vars", s.Count())
	return nil
}

// WriteObject writes the object program point of t, whose variables are
// the members of an implicit "this". Object program points carry no
// comparability numbers.
func (e *Emitter) WriteObject(w io.Writer, t *model.Type) error {
	dw := &declWriter{w: w}
	fail := func(variable string, err error) error {
		return &EmitError{Point: t.Name, PptType: "object", Variable: variable, Err: err}
	}

	e.r.beginObject(dw, t)
	if dw.err != nil {
		return fail("", dw.err)
	}

	s := e.eng.NewSession(nil, true)
	if err := s.VisitClassMembers(t, e.recordVisitor(dw, nil, true)); err != nil {
		return fail(variableOf(err), unwrapVar(err))
	}

	e.r.end(dw)
	if dw.err != nil {
		return fail("", dw.err)
	}
	e.opts.Logger.Debug("declared object program point", "type", t.Name, "vars", s.Count())
	return nil
}

// varError carries the variable name out of the traversal.
type varError struct {
	name string
	err  error
}

func (v *varError) Error() string { return v.name + ": " + v.err.Error() }
func (v *varError) Unwrap() error { return v.err }

func variableOf(err error) string {
	if ve, ok := err.(*varError); ok {
		return ve.name
	}
	return ""
}

func unwrapVar(err error) error {
	if ve, ok := err.(*varError); ok {
		return ve.err
	}
	return err
}

// recordVisitor renders each observable. fn is nil for object program
// points, which never get comparability numbers.
func (e *Emitter) recordVisitor(dw *declWriter, fn *model.Function, isEntry bool) traverse.Visitor {
	outputStructVars := e.eng.Options().OutputStructVars
	return traverse.VisitorFunc(func(obs *traverse.Observable) (traverse.Result, error) {
		rec := NewRecord(obs, outputStructVars)
		if fn != nil && e.opts.Comparability != nil {
			rec.HasComparability = true
			rec.Comparability = e.opts.Comparability.CompNumber(fn, isEntry, obs.Index)
		}
		e.r.record(dw, &rec)
		if dw.err != nil {
			return traverse.DisregardFurtherDerefs, &varError{name: obs.Name, err: dw.err}
		}
		return traverse.Continue, nil
	})
}

// Count returns the number of observables at fn's entry or exit without
// writing anything.
func (e *Emitter) Count(fn *model.Function, isEntry bool) (int, error) {
	s := e.eng.NewSession(fn, isEntry)
	count := traverse.VisitorFunc(func(*traverse.Observable) (traverse.Result, error) {
		return traverse.Continue, nil
	})
	groups := []traverse.Group{traverse.Globals, traverse.FormalParams}
	if !isEntry {
		groups = append(groups, traverse.ReturnValue)
	}
	for _, g := range groups {
		if err := s.VisitGroup(g, count); err != nil {
			return 0, err
		}
	}
	return s.Count(), nil
}

// DryRun counts the observables of every traced program point, in the
// order WriteAll would declare them.
func (e *Emitter) DryRun() ([]PointCount, error) {
	var out []PointCount
	for _, fn := range e.eng.Model().Functions() {
		if !e.traced(fn) {
			continue
		}
		for _, isEntry := range []bool{true, false} {
			n, err := e.Count(fn, isEntry)
			if err != nil {
				return nil, err
			}
			out = append(out, PointCount{Function: fn, IsEntry: isEntry, Count: n})
		}
	}
	return out, nil
}
