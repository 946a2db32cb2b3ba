package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3aro/go-decls/pkg/cfront"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for path, content := range files {
		full := filepath.Join(root, path)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0644))
	}
}

func relPaths(files []FileInfo) []string {
	var out []string
	for _, f := range files {
		out = append(out, f.Path)
	}
	return out
}

func TestScan(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"main.c":              "int main(void) { return 0; }",
		"include/list.h":      "struct node;",
		"src/stack.cpp":       "class Stack {};",
		"README.md":           "# notes",
		".hidden/secret.c":    "int x;",
		"build/generated.c":   "int y;",
		"src/gen/table.c":     "int z;",
		"src/gen/keep.c":      "int k;",
		"tests/unit/check.c":  "int c;",
		"tests/.gdeclsignore": "unit/\n",
		".gdeclsignore":       "# generated code\nsrc/gen/*.c\n!src/gen/keep.c\n",
	})

	files, err := New(DefaultOptions()).Scan(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"include/list.h", "main.c", "src/gen/keep.c", "src/stack.cpp"}, relPaths(files))

	for _, f := range files {
		if f.Path == "src/stack.cpp" {
			assert.Equal(t, cfront.CPP, f.Language)
		}
		assert.True(t, filepath.IsAbs(f.FullPath))
	}

	opts := DefaultOptions()
	opts.SkipHeaders = true
	files, err = New(opts).Scan(root)
	require.NoError(t, err)
	assert.NotContains(t, relPaths(files), "include/list.h")
}

func TestScan_FileRoot(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.c": "int a;", "notes.txt": "x"})

	files, err := New(DefaultOptions()).Scan(filepath.Join(root, "a.c"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "a.c", files[0].Path)
	assert.Equal(t, cfront.C, files[0].Language)

	_, err = New(DefaultOptions()).Scan(filepath.Join(root, "notes.txt"))
	assert.Error(t, err)

	_, err = New(DefaultOptions()).Scan(filepath.Join(root, "missing"))
	assert.Error(t, err)
}

func TestScanAll_Dedup(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.c": "int a;", "b.c": "int b;"})

	files, err := ScanAll(DefaultOptions(), root, filepath.Join(root, "a.c"))
	require.NoError(t, err)
	assert.Len(t, files, 2)
	assert.Equal(t, []string{filepath.Join(root, "a.c"), filepath.Join(root, "b.c")}, Paths(files))
}

func TestIgnorePattern_Match(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		isDir   bool
		want    bool
	}{
		{"*.o", "obj/x.o", false, true},
		{"*.c", "src/x.h", false, false},
		{"gen/", "gen", true, true},
		{"gen/", "src/gen/x.c", false, true},
		{"gen/", "gen.c", false, false},
		{"/src/*.c", "src/a.c", false, true},
		{"/src/*.c", "lib/src/a.c", false, false},
		{"src/**/test_*.c", "src/a/b/test_x.c", false, true},
		{"src/**/test_*.c", "src/test_x.c", false, true},
		{"main.c", "deep/dir/main.c", false, true},
		{"foo[12].c", "foo2.c", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.pattern+"~"+tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseIgnorePattern(tt.pattern).Match(tt.path, tt.isDir))
		})
	}

	neg := ParseIgnorePattern("!keep.c")
	assert.True(t, neg.Negate)
	assert.True(t, neg.Match("keep.c", false))
}
