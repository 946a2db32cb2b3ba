// Package names converts internal variable and function identifiers into the
// identifiers written to declaration files.
package names

import (
	"strings"

	"github.com/l3aro/go-decls/pkg/model"
)

// Externalize converts an internal variable name into its declaration-file
// form:
//
//   - everything before the last '/' is dropped, so scoping such as
//     "dir/a_c@fn/x" disappears;
//   - a leading '/' (globals) becomes "::";
//   - the first "[]" becomes "[..]", later ones are left alone;
//   - ' ' becomes `\ ` and '\' becomes `\\`.
//
// Externalize is not idempotent: applying it to its own output escapes the
// backslashes again. Callers apply it exactly once, at print time.
func Externalize(internal string) string {
	working := internal
	if i := strings.LastIndexByte(working, '/'); i >= 0 {
		working = working[i:]
	}

	var sb strings.Builder
	sb.Grow(len(working) + 4)
	if strings.HasPrefix(working, "/") {
		sb.WriteString("::")
		working = working[1:]
	}

	bracketsDone := false
	for i := 0; i < len(working); i++ {
		c := working[i]
		switch {
		case c == '[' && !bracketsDone && i+1 < len(working) && working[i+1] == ']':
			sb.WriteString("[..")
			bracketsDone = true
		case c == ' ':
			sb.WriteString(`\ `)
		case c == '\\':
			sb.WriteString(`\\`)
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

var escaper = strings.NewReplacer(`\`, `\\`, " ", `\ `)

// Escape backslash-escapes spaces and backslashes in a single pass.
func Escape(s string) string {
	return escaper.Replace(s)
}

// PptName returns the structured-dialect program point name of fn: its
// demangled name, or its plain name followed by "()", escaped.
func PptName(fn *model.Function) string {
	if fn.DemangledName != "" {
		return Escape(fn.DemangledName)
	}
	return Escape(fn.Name) + "()"
}
