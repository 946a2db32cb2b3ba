package selection

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/l3aro/go-decls/pkg/model"
	"github.com/l3aro/go-decls/pkg/traverse"
)

func TestTracesFunction_Mangled(t *testing.T) {
	f := New()
	require.NoError(t, f.LoadProgramPoints("ppts", strings.NewReader(
		"# functions to trace\n\n(mangled) _Z3fooi ..foo(int)\n  \n..main()\nutil.c.helper()\n")))

	mangled := &model.Function{Name: "foo", MangledName: "_Z3fooi", QualifiedName: "..foo(int)"}
	plain := &model.Function{Name: "foo", QualifiedName: "..foo()"}
	main := &model.Function{Name: "main", QualifiedName: "..main()"}
	helper := &model.Function{Name: "helper", FileName: "util.c", QualifiedName: "util.c.helper()"}

	assert.True(t, f.TracesFunction(mangled))
	assert.False(t, f.TracesFunction(plain), "plain functions are looked up by their own name")
	assert.True(t, f.TracesFunction(main))
	assert.True(t, f.TracesFunction(helper))
}

func TestTracesEverythingByDefault(t *testing.T) {
	f := New()
	fn := &model.Function{Name: "f", QualifiedName: "..f()"}
	assert.True(t, f.TracesFunction(fn))
	assert.True(t, f.TracesVariable(fn, "x"))
	assert.False(t, f.HasProgramPoints())
	assert.False(t, f.HasVariables())

	var none *Filter
	assert.True(t, none.TracesFunction(fn))
}

const varList = `----SECTION----
globals
StaticArraysTest_c/staticStrings
StaticArraysTest_c/staticStrings[]

----SECTION----
..f()
arg
strings
strings[]
return

# empty section
----SECTION----
..main()
`

func TestTracesVariable(t *testing.T) {
	f := New()
	require.NoError(t, f.LoadVariables("vars", strings.NewReader(varList)))

	fn := &model.Function{Name: "f", QualifiedName: "..f()"}
	main := &model.Function{Name: "main", QualifiedName: "..main()"}
	other := &model.Function{Name: "g", QualifiedName: "..g()"}

	assert.True(t, f.TracesVariable(nil, "StaticArraysTest_c/staticStrings[]"))
	assert.False(t, f.TracesVariable(nil, "arg"))
	assert.True(t, f.TracesVariable(fn, "strings[]"))
	assert.True(t, f.TracesVariable(fn, "return"))
	assert.False(t, f.TracesVariable(fn, "StaticArraysTest_c/staticStrings"))
	assert.False(t, f.TracesVariable(main, "argc"))
	assert.False(t, f.TracesVariable(other, "arg"), "functions without a section trace nothing")
}

func TestLoad_Malformed(t *testing.T) {
	tests := []struct {
		name string
		load func(*Filter, string) error
		in   string
		line int
	}{
		{
			name: "mangled without readable name",
			load: func(f *Filter, s string) error { return f.LoadProgramPoints("list", strings.NewReader(s)) },
			in:   "..main()\n(mangled) _Z3fooi\n",
			line: 2,
		},
		{
			name: "two tokens",
			load: func(f *Filter, s string) error { return f.LoadProgramPoints("list", strings.NewReader(s)) },
			in:   "# header\n..main() extra\n",
			line: 2,
		},
		{
			name: "variable before section",
			load: func(f *Filter, s string) error { return f.LoadVariables("list", strings.NewReader(s)) },
			in:   "\nargv\n",
			line: 2,
		},
		{
			name: "section without header",
			load: func(f *Filter, s string) error { return f.LoadVariables("list", strings.NewReader(s)) },
			in:   "----SECTION----\n----SECTION----\nglobals\n",
			line: 1,
		},
		{
			name: "trailing section",
			load: func(f *Filter, s string) error { return f.LoadVariables("list", strings.NewReader(s)) },
			in:   "----SECTION----\nglobals\n/x\n----SECTION----\n",
			line: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.load(New(), tt.in)
			require.Error(t, err)

			var mErr *MalformedEntryError
			require.True(t, errors.As(err, &mErr))
			assert.Equal(t, "list", mErr.File)
			assert.Equal(t, tt.line, mErr.Line)
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	ppts := filepath.Join(dir, "trace.ppts")
	vars := filepath.Join(dir, "trace.vars")
	require.NoError(t, os.WriteFile(ppts, []byte("..main()\n"), 0644))
	require.NoError(t, os.WriteFile(vars, []byte(varList), 0644))

	f, err := LoadFile(ppts, vars)
	require.NoError(t, err)
	assert.True(t, f.HasProgramPoints())
	assert.True(t, f.HasVariables())

	f, err = LoadFile("", "")
	require.NoError(t, err)
	assert.False(t, f.HasProgramPoints())

	_, err = LoadFile(filepath.Join(dir, "missing"), "")
	assert.Error(t, err)
}

const dumpDoc = `
types:
  - id: node
    kind: struct
    name: Node
    members:
      - {name: val, type: int}
globals:
  - {name: total, type: int, external: true}
functions:
  - name: main
    external: true
    params:
      - {name: argv, type: char, ptr: 2, string: true}
    return: {type: int}
  - name: foo
    mangled: _Z3fooi
    external: true
    params:
      - {name: n, type: node, ptr: 1}
`

func buildDumpModel(t *testing.T) *model.Model {
	t.Helper()
	var doc model.Document
	require.NoError(t, yaml.Unmarshal([]byte(dumpDoc), &doc))
	m, err := doc.Build()
	require.NoError(t, err)
	return m
}

func TestWriteProgramPoints_RoundTrip(t *testing.T) {
	m := buildDumpModel(t)

	var buf bytes.Buffer
	require.NoError(t, WriteProgramPoints(&buf, m))
	assert.Equal(t, "..main()\n(mangled) _Z3fooi ..foo(int)\n", buf.String())

	f := New()
	require.NoError(t, f.LoadProgramPoints("dump", &buf))
	for _, fn := range m.Functions() {
		assert.True(t, f.TracesFunction(fn), fn.PptName())
	}
}

func TestWriteVariables(t *testing.T) {
	m := buildDumpModel(t)
	eng := traverse.New(m, traverse.DefaultOptions())

	var buf bytes.Buffer
	require.NoError(t, WriteVariables(&buf, eng, false))
	want := `----SECTION----
globals
/total

----SECTION----
..main()
argv
argv[]
return

----SECTION----
..foo(int)
n
n[].val

`
	assert.Equal(t, want, buf.String())

	buf.Reset()
	require.NoError(t, WriteVariables(&buf, eng, true))
	assert.NotContains(t, buf.String(), "argv[]")
	assert.NotContains(t, buf.String(), "n[].val")

	// A full dump loads back and traces every listed variable.
	buf.Reset()
	require.NoError(t, WriteVariables(&buf, eng, false))
	f := New()
	require.NoError(t, f.LoadVariables("dump", &buf))
	assert.True(t, f.TracesVariable(m.Function("_Z3fooi"), "n[].val"))
	assert.True(t, f.TracesVariable(nil, "/total"))
}
