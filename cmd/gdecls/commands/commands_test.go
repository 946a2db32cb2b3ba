package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listDoc = `
types:
  - id: node
    kind: struct
    name: node
    members:
      - {name: val, type: int}
functions:
  - name: length
    file: list.c
    external: true
    params:
      - {name: head, type: node, ptr: 1}
    return: {type: int}
`

// run executes the CLI in a fresh working directory with no user config.
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	resetFlags(RootCmd)
	var out bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetErr(&out)
	RootCmd.SetArgs(args)
	err = RootCmd.Execute()
	return out.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestEmit_Document(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "list.yaml", listDoc)

	_, err := run(t, dir, "emit", "--dialect", "legacy", "-o", "out.decls", "list.yaml")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "out.decls"))
	require.NoError(t, err)
	got := string(data)
	assert.True(t, strings.HasPrefix(got, "VarComparability\nnone\n\n"))
	assert.Contains(t, got, "DECLARE\n..length():::ENTER\nhead\n")
	assert.Contains(t, got, "head[].val\n")
	assert.Contains(t, got, "DECLARE\n..length():::EXIT0\n")
}

func TestEmit_SelectionAndDisambig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "list.yaml", listDoc)
	writeFile(t, dir, "list.disambig", "----SECTION----\n..length()\nhead\nP\n")

	out, err := run(t, dir, "emit", "--dialect", "legacy", "--disambig", "list.disambig", "list.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "head->val\n")
	assert.NotContains(t, out, "head[].val")

	writeFile(t, dir, "none.ppts", "..other()\n")
	out, err = run(t, dir, "emit", "--ppt-list", "none.ppts", "list.yaml")
	require.NoError(t, err)
	assert.NotContains(t, out, "length")
}

func TestEmit_DryRun(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "list.yaml", listDoc)

	out, err := run(t, dir, "emit", "--dry-run", "list.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "..length():::ENTER\t")
	assert.Contains(t, out, "..length():::EXIT\t")
	assert.Contains(t, out, "total\t")
}

func TestEmit_Errors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "list.yaml", listDoc)
	writeFile(t, dir, "prog.c", "int x;")

	tests := []struct {
		name string
		args []string
	}{
		{"unknown dialect", []string{"emit", "--dialect", "xml", "list.yaml"}},
		{"source without flag", []string{"emit", "prog.c"}},
		{"missing document", []string{"emit", "missing.yaml"}},
		{"missing disambig file", []string{"emit", "--disambig", "missing.disambig", "list.yaml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, dir, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestEmit_SourceUsesCache(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "add.c", "int add(int a, int b) { return a + b; }\n")

	for i := 0; i < 2; i++ {
		out, err := run(t, dir, "emit", "--source", "--dialect", "legacy", ".")
		require.NoError(t, err)
		assert.Contains(t, out, "DECLARE\n..add():::ENTER\na\n")
	}

	snaps, err := filepath.Glob(filepath.Join(dir, ".gdecls", "cache", "*.msgpack"))
	require.NoError(t, err)
	assert.Len(t, snaps, 1)
}

func TestDump(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "list.yaml", listDoc)

	out, err := run(t, dir, "dump-ppts", "list.yaml")
	require.NoError(t, err)
	assert.Equal(t, "..length()\n", out)

	out, err = run(t, dir, "dump-vars", "list.yaml")
	require.NoError(t, err)
	assert.Equal(t, "----SECTION----\nglobals\n\n----SECTION----\n..length()\nhead\nhead[].val\nreturn\n\n", out)

	out, err = run(t, dir, "dump-vars", "--top-level", "list.yaml")
	require.NoError(t, err)
	assert.NotContains(t, out, "head[].val")
}

func TestObserveAndDisambig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "list.yaml", listDoc)
	writeFile(t, dir, "obs.tsv", "# ppt\tvariable\tcount\n..length()\thead\tsingle\n")

	out, err := run(t, dir, "observe", "import", "obs.tsv")
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 1 observations")

	out, err = run(t, dir, "observe", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Observations: 1\n")

	out, err = run(t, dir, "disambig", "list.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "----SECTION----\n..length()\nhead\nP\n")

	_, err = run(t, dir, "observe", "clear")
	require.NoError(t, err)
	out, err = run(t, dir, "observe", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Observations: 0\n")
}
