package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/l3aro/go-decls/internal/scanner"
	"github.com/l3aro/go-decls/pkg/cache"
	"github.com/l3aro/go-decls/pkg/cfront"
	"github.com/l3aro/go-decls/pkg/model"
)

// modelFlags selects where a command reads its model from.
type modelFlags struct {
	source  bool
	noCache bool
}

func (f *modelFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.source, "source", false, "Inputs are C/C++ files or directories instead of model documents")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "Parse sources even when a cached model is current")
}

// load builds the model named by inputs. Model documents are concatenated
// in argument order; sources are scanned and parsed together.
func (f *modelFlags) load(ctx context.Context, inputs []string) (*model.Model, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("no inputs given")
	}

	var (
		doc *model.Document
		err error
	)
	if f.source {
		doc, err = f.parseSources(ctx, inputs)
	} else {
		doc, err = readDocuments(inputs)
	}
	if err != nil {
		return nil, err
	}

	m, err := doc.Build()
	if err != nil {
		return nil, fmt.Errorf("building model: %w", err)
	}
	logger.Debug("model loaded",
		"types", len(m.Types()), "globals", len(m.Globals()), "functions", len(m.Functions()))
	return m, nil
}

func readDocuments(paths []string) (*model.Document, error) {
	merged := &model.Document{}
	for _, p := range paths {
		ext := strings.ToLower(filepath.Ext(p))
		if ext != ".yaml" && ext != ".yml" {
			return nil, fmt.Errorf("%s: not a model document (use --source for C sources)", p)
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading model: %w", err)
		}
		var doc model.Document
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing model %s: %w", p, err)
		}
		merged.Types = append(merged.Types, doc.Types...)
		merged.Globals = append(merged.Globals, doc.Globals...)
		merged.Functions = append(merged.Functions, doc.Functions...)
	}
	return merged, nil
}

func (f *modelFlags) parseSources(ctx context.Context, inputs []string) (*model.Document, error) {
	files, err := scanner.ScanAll(scanner.DefaultOptions(), inputs...)
	if err != nil {
		return nil, fmt.Errorf("scanning sources: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no C or C++ sources found")
	}
	paths := scanner.Paths(files)

	var store *cache.Store
	var key, hash string
	if !f.noCache && cfg.CacheDir != "" {
		store, err = cache.Open(cfg.CacheDir, cache.DefaultMemEntries)
		if err != nil {
			logger.Warn("model cache unavailable", "dir", cfg.CacheDir, "error", err)
			store = nil
		}
	}
	if store != nil {
		key = cache.Key(paths...)
		hash, err = cache.HashFiles(paths...)
		if err != nil {
			return nil, fmt.Errorf("hashing sources: %w", err)
		}
		doc, err := store.Load(key, hash)
		switch {
		case err == nil:
			logger.Debug("model cache hit", "key", key, "files", len(paths))
			return doc, nil
		case !errors.Is(err, cache.ErrMiss):
			logger.Warn("reading model cache", "key", key, "error", err)
		}
	}

	doc, err := cfront.ParseFiles(ctx, paths, cfront.Options{Workers: cfg.Workers, Logger: logger})
	if err != nil {
		return nil, err
	}
	if store != nil {
		if err := store.Save(key, hash, doc); err != nil {
			logger.Warn("writing model cache", "key", key, "error", err)
		}
	}
	logger.Info("parsed sources", "files", len(paths))
	return doc, nil
}
