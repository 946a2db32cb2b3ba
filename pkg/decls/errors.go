package decls

import (
	"fmt"
	"io"
)

// EmitError reports a write failure together with the program point and
// variable being declared at the time.
type EmitError struct {
	// Point is the program point name: a function's qualified name or a
	// type name for object program points.
	Point string
	// PptType is "enter", "exit" or "object".
	PptType string
	// Variable is the internal name of the variable being written, "" when
	// the failure happened outside a variable record.
	Variable string
	Err      error
}

func (e *EmitError) Error() string {
	if e.Variable == "" {
		return fmt.Sprintf("declare %s (%s): %v", e.Point, e.PptType, e.Err)
	}
	return fmt.Sprintf("declare %s (%s) variable %s: %v", e.Point, e.PptType, e.Variable, e.Err)
}

func (e *EmitError) Unwrap() error { return e.Err }

func pptType(isEntry bool) string {
	if isEntry {
		return "enter"
	}
	return "exit"
}

// declWriter keeps the first write error and ignores writes after it.
type declWriter struct {
	w   io.Writer
	err error
}

func (d *declWriter) str(s string) {
	if d.err != nil {
		return
	}
	_, d.err = io.WriteString(d.w, s)
}

func (d *declWriter) printf(format string, args ...interface{}) {
	if d.err != nil {
		return
	}
	_, d.err = fmt.Fprintf(d.w, format, args...)
}
