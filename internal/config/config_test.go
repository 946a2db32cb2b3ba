package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/l3aro/go-decls/pkg/decls"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name     string
		got      interface{}
		expected interface{}
	}{
		{"Dialect", cfg.Dialect, "structured"},
		{"StructRecursionLimit", cfg.StructRecursionLimit, 1},
		{"MaxNestingDepth", cfg.MaxNestingDepth, 8},
		{"IgnoreGlobals", cfg.IgnoreGlobals, false},
		{"OutputStructVars", cfg.OutputStructVars, false},
		{"CacheDir", cfg.CacheDir, filepath.Join(".gdecls", "cache")},
		{"ObservationDB", cfg.ObservationDB, filepath.Join(".gdecls", "observations.db")},
		{"Workers", cfg.Workers, 1},
		{"Verbose", cfg.Verbose, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("DefaultConfig().%s = %v, want %v", tt.name, tt.got, tt.expected)
			}
		})
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		errContains string
	}{
		{name: "legacy dialect", mutate: func(c *Config) { c.Dialect = "legacy" }},
		{name: "old alias", mutate: func(c *Config) { c.Dialect = "old" }},
		{name: "unknown dialect", mutate: func(c *Config) { c.Dialect = "xml" }, errContains: "invalid dialect"},
		{name: "zero recursion limit", mutate: func(c *Config) { c.StructRecursionLimit = 0 }, errContains: "struct_recursion_limit"},
		{name: "zero nesting depth", mutate: func(c *Config) { c.MaxNestingDepth = 0 }, errContains: "max_nesting_depth"},
		{name: "no workers", mutate: func(c *Config) { c.Workers = 0 }, errContains: "workers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errContains == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.errContains)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `dialect: legacy
struct_recursion_limit: 2
ignore_static_vars: true
ppt_list_file: trace.ppts
workers: 4
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if cfg.DeclDialect() != decls.Legacy {
		t.Errorf("DeclDialect() = %v, want legacy", cfg.DeclDialect())
	}
	if cfg.StructRecursionLimit != 2 || !cfg.IgnoreStaticVars || cfg.PptListFile != "trace.ppts" || cfg.Workers != 4 {
		t.Errorf("LoadFromFile() = %+v", cfg)
	}
	if cfg.MaxNestingDepth != 8 {
		t.Errorf("unset keys keep defaults, MaxNestingDepth = %d", cfg.MaxNestingDepth)
	}

	opts := cfg.TraverseOptions()
	if opts.StructRecursionLimit != 2 || !opts.IgnoreStaticVars || opts.MaxNestingDepth != 8 {
		t.Errorf("TraverseOptions() = %+v", opts)
	}

	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadFromFile(missing) succeeded")
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(bad, []byte("dialect: [unterminated"), 0644)
	if _, err := LoadFromFile(bad); err == nil {
		t.Error("LoadFromFile(bad yaml) succeeded")
	}
}

func TestEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	os.WriteFile(path, []byte("dialect: legacy\nworkers: 2\n"), 0644)

	t.Setenv("GDECLS_DIALECT", "structured")
	t.Setenv("GDECLS_WORKERS", "8")
	t.Setenv("GDECLS_OUTPUT_STRUCT_VARS", "yes")
	t.Setenv("GDECLS_CACHE_DIR", "/tmp/gdecls-cache")

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if cfg.Dialect != "structured" || cfg.Workers != 8 || !cfg.OutputStructVars || cfg.CacheDir != "/tmp/gdecls-cache" {
		t.Errorf("env overrides not applied: %+v", cfg)
	}

	t.Setenv("GDECLS_WORKERS", "many")
	if _, err := LoadFromFile(path); err == nil || !strings.Contains(err.Error(), "GDECLS_WORKERS") {
		t.Errorf("LoadFromFile() error = %v, want invalid integer", err)
	}
}

func TestLoad_ProjectOverridesGlobal(t *testing.T) {
	home := t.TempDir()
	project := t.TempDir()
	t.Setenv("HOME", home)
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(project); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	global := DefaultConfig()
	global.Dialect = "legacy"
	global.Workers = 3
	if err := global.Save(GlobalConfigFilePath()); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(".gdecls", 0755); err != nil {
		t.Fatal(err)
	}
	os.WriteFile(ProjectConfigFilePath(), []byte("workers: 5\n"), 0644)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Dialect != "legacy" {
		t.Errorf("Dialect = %q, want legacy from global config", cfg.Dialect)
	}
	if cfg.Workers != 5 {
		t.Errorf("Workers = %d, want 5 from project config", cfg.Workers)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.DisambigFile = "prog.disambig"
	cfg.IgnoreGlobals = true
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if *loaded != *cfg {
		t.Errorf("round trip = %+v, want %+v", loaded, cfg)
	}
}
