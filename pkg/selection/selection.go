// Package selection implements selective tracing: allow-lists of program
// points and of variables per program point.
//
// A program point list holds one qualified function name per line, or
// "(mangled) <mangled name> <readable name>" for name-mangled functions, in
// which case the mangled name is the key:
//
//	# comments and blank lines are ignored
//	..main()
//	util.c.helper()
//	(mangled) _Z3fooi ..foo(int)
//
// A variable list is split into sections. Each section starts with
// "----SECTION----", followed by a program point name (or "globals") and
// one internal variable name per line:
//
//	----SECTION----
//	globals
//	/counter
//
//	----SECTION----
//	..main()
//	argv
//	argv[]
package selection

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/l3aro/go-decls/pkg/disambig"
	"github.com/l3aro/go-decls/pkg/model"
)

const (
	commentPrefix = "#"
	mangledToken  = "(mangled)"
	// GlobalsSection names the pseudo program point of global variables.
	GlobalsSection = disambig.GlobalsSection
	// SectionDelimiter opens a section of a variable list.
	SectionDelimiter = disambig.SectionDelimiter
)

// MalformedEntryError reports a list line that does not fit its format.
// Loading stops at the first malformed line.
type MalformedEntryError struct {
	File   string
	Line   int
	Text   string
	Reason string
}

func (e *MalformedEntryError) Error() string {
	return fmt.Sprintf("%s:%d: malformed entry (%s): %q", e.File, e.Line, e.Reason, e.Text)
}

// Filter answers whether functions and variables are traced. A Filter with
// no list loaded traces everything.
type Filter struct {
	ppts map[string]struct{}
	vars map[string]map[string]struct{}
}

// New returns a filter that traces everything.
func New() *Filter {
	return &Filter{}
}

// LoadFile loads the program point list and the variable list from disk.
// Either path may be empty.
func LoadFile(pptPath, varPath string) (*Filter, error) {
	f := New()
	if pptPath != "" {
		if err := loadPath(pptPath, f.LoadProgramPoints); err != nil {
			return nil, err
		}
	}
	if varPath != "" {
		if err := loadPath(varPath, f.LoadVariables); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func loadPath(path string, load func(string, io.Reader) error) error {
	fh, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open selection list: %w", err)
	}
	defer fh.Close()
	return load(path, fh)
}

// lines calls fn for every line that is neither blank nor a comment, with
// its 1-based line number.
func lines(name string, r io.Reader, fn func(lineNo int, line string) error) error {
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, commentPrefix) {
			continue
		}
		if err := fn(lineNo, line); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	return nil
}

// LoadProgramPoints adds the entries of a program point list. name is
// used in error messages.
func (f *Filter) LoadProgramPoints(name string, r io.Reader) error {
	if f.ppts == nil {
		f.ppts = make(map[string]struct{})
	}
	return lines(name, r, func(lineNo int, line string) error {
		fields := strings.Fields(line)
		if fields[0] == mangledToken {
			if len(fields) < 3 {
				return &MalformedEntryError{File: name, Line: lineNo, Text: line,
					Reason: "(mangled) needs a mangled and a readable name"}
			}
			f.ppts[fields[1]] = struct{}{}
			return nil
		}
		if len(fields) != 1 {
			return &MalformedEntryError{File: name, Line: lineNo, Text: line,
				Reason: "expected a single program point name"}
		}
		f.ppts[fields[0]] = struct{}{}
		return nil
	})
}

// LoadVariables adds the sections of a variable list. name is used in
// error messages.
func (f *Filter) LoadVariables(name string, r io.Reader) error {
	if f.vars == nil {
		f.vars = make(map[string]map[string]struct{})
	}
	var (
		current    map[string]struct{}
		wantHeader bool
		headerLine int
	)
	err := lines(name, r, func(lineNo int, line string) error {
		switch {
		case strings.HasPrefix(line, SectionDelimiter):
			if wantHeader {
				return &MalformedEntryError{File: name, Line: headerLine, Text: SectionDelimiter,
					Reason: "section without a program point name"}
			}
			wantHeader = true
			headerLine = lineNo
		case wantHeader:
			header := strings.TrimSpace(line)
			current = f.vars[header]
			if current == nil {
				current = make(map[string]struct{})
				f.vars[header] = current
			}
			wantHeader = false
		case current == nil:
			return &MalformedEntryError{File: name, Line: lineNo, Text: line,
				Reason: "variable before any section"}
		default:
			current[strings.TrimSpace(line)] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if wantHeader {
		return &MalformedEntryError{File: name, Line: headerLine, Text: SectionDelimiter,
			Reason: "section without a program point name"}
	}
	return nil
}

// HasProgramPoints reports whether a program point list was loaded.
func (f *Filter) HasProgramPoints() bool { return f.ppts != nil }

// HasVariables reports whether a variable list was loaded.
func (f *Filter) HasVariables() bool { return f.vars != nil }

// TracesFunction reports whether fn's program points are traced. Functions
// with a mangled name are looked up by it, others by qualified name.
func (f *Filter) TracesFunction(fn *model.Function) bool {
	if f == nil || f.ppts == nil {
		return true
	}
	_, ok := f.ppts[fn.LookupKey()]
	return ok
}

// TracesVariable reports whether the variable with internal name is traced
// at fn, or among the globals when fn is nil. Variables of a program point
// without a section are not traced.
func (f *Filter) TracesVariable(fn *model.Function, name string) bool {
	if f == nil || f.vars == nil {
		return true
	}
	section := GlobalsSection
	if fn != nil {
		section = fn.PptName()
	}
	_, ok := f.vars[section][name]
	return ok
}
