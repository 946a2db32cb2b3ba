// Package cfront builds model documents from C and C++ sources using
// tree-sitter. It stands in for a debug-information reader: it sees
// declarations as written, so byte sizes and offsets stay zero and
// preprocessor conditionals are not evaluated.
//
// The result covers struct, union, class and enum definitions (typedef
// chains are followed), global variables, and function definitions with
// their parameters, locals and return value. C++ member functions get an
// implicit "this" parameter and a demangled-style name such as
// "Stack::push(int)".
package cfront

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"golang.org/x/sync/errgroup"

	"github.com/l3aro/go-decls/internal/log"
	"github.com/l3aro/go-decls/pkg/model"
)

// Language selects the grammar used for a source file.
type Language int

const (
	C Language = iota
	CPP
)

func (l Language) String() string {
	if l == CPP {
		return "c++"
	}
	return "c"
}

var extLanguages = map[string]Language{
	".c":   C,
	".h":   C,
	".cc":  CPP,
	".cpp": CPP,
	".cxx": CPP,
	".hpp": CPP,
	".hh":  CPP,
	".hxx": CPP,
}

// LanguageFor returns the language of a source path by extension.
func LanguageFor(path string) (Language, bool) {
	l, ok := extLanguages[strings.ToLower(filepath.Ext(path))]
	return l, ok
}

// IsHeader reports whether path names a header file.
func IsHeader(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".h", ".hpp", ".hh", ".hxx":
		return true
	}
	return false
}

var parserPools = map[Language]*sync.Pool{
	C: {New: func() interface{} {
		parser := sitter.NewParser()
		parser.SetLanguage(c.GetLanguage())
		return parser
	}},
	CPP: {New: func() interface{} {
		parser := sitter.NewParser()
		parser.SetLanguage(cpp.GetLanguage())
		return parser
	}},
}

// Source is one file to parse. Path is used for language detection and
// for the names of file-static entities.
type Source struct {
	Path    string
	Content []byte
}

// Options configures parsing.
type Options struct {
	// Workers bounds concurrent parsing; 0 means one per source.
	Workers int
	Logger  log.Logger
}

// ParseFiles reads and parses the given files into one document.
func ParseFiles(ctx context.Context, paths []string, opts Options) (*model.Document, error) {
	sources := make([]Source, 0, len(paths))
	for _, p := range paths {
		content, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading file %s: %w", p, err)
		}
		sources = append(sources, Source{Path: p, Content: content})
	}
	return Parse(ctx, sources, opts)
}

// ParseSource parses a single source held in memory.
func ParseSource(path string, content []byte) (*model.Document, error) {
	return Parse(context.Background(), []Source{{Path: path, Content: content}}, Options{})
}

// Parse parses sources into one document. Headers are read before other
// files so that their typedefs and aggregates are known; otherwise the
// given order is kept, and the first definition of a name wins.
func Parse(ctx context.Context, sources []Source, opts Options) (*model.Document, error) {
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}

	ordered := append([]Source(nil), sources...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return IsHeader(ordered[i].Path) && !IsHeader(ordered[j].Path)
	})

	files := make([]*sourceFile, len(ordered))
	g, gctx := errgroup.WithContext(ctx)
	if opts.Workers > 0 {
		g.SetLimit(opts.Workers)
	}
	for i, src := range ordered {
		i, src := i, src
		g.Go(func() error {
			f, err := parseOne(gctx, src)
			if err != nil {
				return err
			}
			files[i] = f
			return nil
		})
	}
	err := g.Wait()
	defer func() {
		for _, f := range files {
			if f != nil {
				f.tree.Close()
			}
		}
	}()
	if err != nil {
		return nil, err
	}

	for _, f := range files {
		if f.tree.RootNode().HasError() {
			opts.Logger.Warn("source has syntax errors; declarations may be incomplete", "file", f.path)
		}
	}

	b := newBuilder()
	for _, f := range files {
		b.collectTypes(f.tree.RootNode(), f)
	}
	b.fillBodies()
	for _, f := range files {
		b.collectDecls(f.tree.RootNode(), f, "")
	}
	doc := b.finish()

	opts.Logger.Debug("parsed sources",
		"files", len(files), "types", len(doc.Types),
		"globals", len(doc.Globals), "functions", len(doc.Functions))
	return doc, nil
}

type sourceFile struct {
	path    string
	lang    Language
	content []byte
	tree    *sitter.Tree
}

func parseOne(ctx context.Context, src Source) (*sourceFile, error) {
	lang, ok := LanguageFor(src.Path)
	if !ok {
		return nil, fmt.Errorf("parsing file %s: unsupported extension", src.Path)
	}
	pool := parserPools[lang]
	parser := pool.Get().(*sitter.Parser)
	defer pool.Put(parser)

	tree, err := parser.ParseCtx(ctx, nil, src.Content)
	if err != nil {
		return nil, fmt.Errorf("parsing file %s: %w", src.Path, err)
	}
	if tree == nil {
		return nil, fmt.Errorf("parsing file %s failed", src.Path)
	}
	return &sourceFile{path: src.Path, lang: lang, content: src.Content, tree: tree}, nil
}

// nodeText extracts the text content of a node from the source.
func (f *sourceFile) nodeText(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	start := node.StartByte()
	end := node.EndByte()
	if start >= uint32(len(f.content)) || end > uint32(len(f.content)) {
		return ""
	}
	return string(f.content[start:end])
}

func (f *sourceFile) key(node *sitter.Node) string {
	return fmt.Sprintf("%s:%d", f.path, node.StartByte())
}
