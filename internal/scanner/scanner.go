// Package scanner finds the C and C++ sources under a set of paths. It
// honours .gdeclsignore files with gitignore-style patterns.
package scanner

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/l3aro/go-decls/pkg/cfront"
)

// IgnoreFileName is the per-directory ignore file.
const IgnoreFileName = ".gdeclsignore"

// FileInfo represents a discovered source file.
type FileInfo struct {
	Path     string // relative to the scanned root, slash separated
	FullPath string
	Language cfront.Language
	Size     int64
}

// Options configures the scanner behavior.
type Options struct {
	SkipHidden      bool
	DefaultExcludes []string // directory names never entered
	IgnoreFileName  string
	// SkipHeaders leaves out .h and .hpp files.
	SkipHeaders bool
}

// DefaultOptions returns scanner options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		SkipHidden:     true,
		IgnoreFileName: IgnoreFileName,
		DefaultExcludes: []string{
			".git", ".hg", ".svn", "CVS",
			"build", "cmake-build-debug", "cmake-build-release",
			"out", "obj", "bin", "third_party", "vendor",
		},
	}
}

// Scanner walks source trees.
type Scanner struct {
	opts Options
}

// New creates a new Scanner with the given options.
func New(opts Options) *Scanner {
	if opts.IgnoreFileName == "" {
		opts.IgnoreFileName = IgnoreFileName
	}
	return &Scanner{opts: opts}
}

// Scan returns the sources under root in lexical order. A root that is a
// file is returned as is if its extension names a C or C++ source.
func (s *Scanner) Scan(root string) ([]FileInfo, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("getting absolute path: %w", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		lang, ok := cfront.LanguageFor(absRoot)
		if !ok {
			return nil, fmt.Errorf("%s: not a C or C++ source", root)
		}
		return []FileInfo{{Path: filepath.Base(absRoot), FullPath: absRoot, Language: lang, Size: info.Size()}}, nil
	}

	rules := map[string][]IgnorePattern{}
	var files []FileInfo

	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(absRoot, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel != "." && s.skipDir(d.Name()) {
				return filepath.SkipDir
			}
			if rel != "." && ignored(rules, rel, true) {
				return filepath.SkipDir
			}
			patterns, err := loadIgnoreFile(filepath.Join(path, s.opts.IgnoreFileName))
			if err != nil {
				return fmt.Errorf("loading ignore patterns: %w", err)
			}
			if len(patterns) > 0 {
				rules[rel] = patterns
			}
			return nil
		}

		if s.opts.SkipHidden && strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		lang, ok := cfront.LanguageFor(path)
		if !ok || (s.opts.SkipHeaders && cfront.IsHeader(path)) {
			return nil
		}
		if ignored(rules, rel, false) {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return nil
		}
		files = append(files, FileInfo{Path: rel, FullPath: path, Language: lang, Size: fi.Size()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}
	return files, nil
}

func (s *Scanner) skipDir(name string) bool {
	if s.opts.SkipHidden && strings.HasPrefix(name, ".") {
		return true
	}
	for _, exclude := range s.opts.DefaultExcludes {
		if strings.EqualFold(name, exclude) {
			return true
		}
	}
	return false
}

// ignored applies the rules of every ancestor directory of rel, outermost
// first, so that deeper files can re-include what a parent excluded.
func ignored(rules map[string][]IgnorePattern, rel string, isDir bool) bool {
	result := false
	dirs := []string{"."}
	parts := strings.Split(rel, "/")
	for i := 1; i < len(parts); i++ {
		dirs = append(dirs, strings.Join(parts[:i], "/"))
	}
	for _, dir := range dirs {
		local := rel
		if dir != "." {
			local = strings.TrimPrefix(rel, dir+"/")
		}
		for _, p := range rules[dir] {
			if p.Match(local, isDir) {
				result = !p.Negate
			}
		}
	}
	return result
}

// ScanAll scans every path and returns the union, without duplicates, in
// argument order.
func ScanAll(opts Options, paths ...string) ([]FileInfo, error) {
	s := New(opts)
	seen := make(map[string]bool)
	var out []FileInfo
	for _, p := range paths {
		files, err := s.Scan(p)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			if !seen[f.FullPath] {
				seen[f.FullPath] = true
				out = append(out, f)
			}
		}
	}
	return out, nil
}

// Paths returns the full paths of files, sorted.
func Paths(files []FileInfo) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.FullPath
	}
	sort.Strings(out)
	return out
}
