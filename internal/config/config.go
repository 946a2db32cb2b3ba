package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/l3aro/go-decls/pkg/decls"
	"github.com/l3aro/go-decls/pkg/traverse"
)

// Config holds all configuration for gdecls
type Config struct {
	// Dialect selects the declaration format: "structured" or "legacy".
	Dialect string `yaml:"dialect" env:"GDECLS_DIALECT"`

	// Traversal bounds
	StructRecursionLimit int `yaml:"struct_recursion_limit" env:"GDECLS_STRUCT_RECURSION_LIMIT"`
	MaxNestingDepth      int `yaml:"max_nesting_depth" env:"GDECLS_MAX_NESTING_DEPTH"`

	IgnoreGlobals    bool `yaml:"ignore_globals" env:"GDECLS_IGNORE_GLOBALS"`
	IgnoreStaticVars bool `yaml:"ignore_static_vars" env:"GDECLS_IGNORE_STATIC_VARS"`
	OutputStructVars bool `yaml:"output_struct_vars" env:"GDECLS_OUTPUT_STRUCT_VARS"`

	// Optional input files
	PptListFile       string `yaml:"ppt_list_file" env:"GDECLS_PPT_LIST_FILE"`
	VarListFile       string `yaml:"var_list_file" env:"GDECLS_VAR_LIST_FILE"`
	DisambigFile      string `yaml:"disambig_file" env:"GDECLS_DISAMBIG_FILE"`
	ComparabilityFile string `yaml:"comparability_file" env:"GDECLS_COMPARABILITY_FILE"`

	// Storage
	CacheDir      string `yaml:"cache_dir" env:"GDECLS_CACHE_DIR"`
	ObservationDB string `yaml:"observation_db" env:"GDECLS_OBSERVATION_DB"`

	// Workers > 1 renders functions in parallel.
	Workers int `yaml:"workers" env:"GDECLS_WORKERS"`

	// Logging
	Verbose bool `yaml:"verbose" env:"GDECLS_VERBOSE"`
	JSONLog bool `yaml:"json_log" env:"GDECLS_JSON_LOG"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Dialect:              decls.Structured.String(),
		StructRecursionLimit: traverse.DefaultStructRecursionLimit,
		MaxNestingDepth:      traverse.DefaultMaxNestingDepth,
		CacheDir:             filepath.Join(".gdecls", "cache"),
		ObservationDB:        filepath.Join(".gdecls", "observations.db"),
		Workers:              1,
	}
}

// GlobalConfigFilePath returns the global config file path (~/.gdecls/config.yaml)
func GlobalConfigFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".gdecls", "config.yaml")
	}
	return filepath.Join(home, ".gdecls", "config.yaml")
}

// ProjectConfigFilePath returns the project-level config file path (./.gdecls/config.yaml)
func ProjectConfigFilePath() string {
	return filepath.Join(".gdecls", "config.yaml")
}

// Load reads configuration with the following priority (highest to lowest):
// 1. Environment variables
// 2. Project-level config (./.gdecls/config.yaml)
// 3. Global config (~/.gdecls/config.yaml)
// 4. Defaults
func Load() (*Config, error) {
	cfg := DefaultConfig()

	for _, path := range []string{GlobalConfigFilePath(), ProjectConfigFilePath()} {
		if err := mergeFile(cfg, path, true); err != nil {
			return nil, err
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile reads configuration from a specific YAML file path
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := mergeFile(cfg, path, false); err != nil {
		return nil, err
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func mergeFile(cfg *Config, path string, optional bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if optional && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Save writes the configuration to the specified YAML file path.
// It creates parent directories if they don't exist.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}

type envBinding struct {
	name  string
	apply func(string) error
}

func stringVar(dst *string) func(string) error {
	return func(v string) error { *dst = v; return nil }
}

func intVar(name string, dst *int) func(string) error {
	return func(v string) error {
		i, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: invalid integer %q", name, v)
		}
		*dst = i
		return nil
	}
}

func boolVar(dst *bool) func(string) error {
	return func(v string) error {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "yes", "on":
			*dst = true
		default:
			*dst = false
		}
		return nil
	}
}

// applyEnvOverrides applies environment variable overrides to the config
func applyEnvOverrides(cfg *Config) error {
	bindings := []envBinding{
		{"GDECLS_DIALECT", stringVar(&cfg.Dialect)},
		{"GDECLS_STRUCT_RECURSION_LIMIT", intVar("GDECLS_STRUCT_RECURSION_LIMIT", &cfg.StructRecursionLimit)},
		{"GDECLS_MAX_NESTING_DEPTH", intVar("GDECLS_MAX_NESTING_DEPTH", &cfg.MaxNestingDepth)},
		{"GDECLS_IGNORE_GLOBALS", boolVar(&cfg.IgnoreGlobals)},
		{"GDECLS_IGNORE_STATIC_VARS", boolVar(&cfg.IgnoreStaticVars)},
		{"GDECLS_OUTPUT_STRUCT_VARS", boolVar(&cfg.OutputStructVars)},
		{"GDECLS_PPT_LIST_FILE", stringVar(&cfg.PptListFile)},
		{"GDECLS_VAR_LIST_FILE", stringVar(&cfg.VarListFile)},
		{"GDECLS_DISAMBIG_FILE", stringVar(&cfg.DisambigFile)},
		{"GDECLS_COMPARABILITY_FILE", stringVar(&cfg.ComparabilityFile)},
		{"GDECLS_CACHE_DIR", stringVar(&cfg.CacheDir)},
		{"GDECLS_OBSERVATION_DB", stringVar(&cfg.ObservationDB)},
		{"GDECLS_WORKERS", intVar("GDECLS_WORKERS", &cfg.Workers)},
		{"GDECLS_VERBOSE", boolVar(&cfg.Verbose)},
		{"GDECLS_JSON_LOG", boolVar(&cfg.JSONLog)},
	}
	for _, b := range bindings {
		if v, ok := os.LookupEnv(b.name); ok && v != "" {
			if err := b.apply(v); err != nil {
				return err
			}
		}
	}
	return nil
}

// Validate checks that the configuration values are usable
func (c *Config) Validate() error {
	if _, err := decls.ParseDialect(c.Dialect); err != nil {
		return fmt.Errorf("invalid dialect: %s (must be 'structured' or 'legacy')", c.Dialect)
	}
	if c.StructRecursionLimit < 1 {
		return fmt.Errorf("struct_recursion_limit must be at least 1")
	}
	if c.MaxNestingDepth < 1 {
		return fmt.Errorf("max_nesting_depth must be at least 1")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive")
	}
	return nil
}

// DeclDialect returns the parsed dialect. Validate has already rejected
// unknown names.
func (c *Config) DeclDialect() decls.Dialect {
	d, _ := decls.ParseDialect(c.Dialect)
	return d
}

// TraverseOptions returns the traversal options described by the config.
// Filter and Overrides are left for the caller to set.
func (c *Config) TraverseOptions() traverse.Options {
	return traverse.Options{
		StructRecursionLimit: c.StructRecursionLimit,
		MaxNestingDepth:      c.MaxNestingDepth,
		IgnoreGlobals:        c.IgnoreGlobals,
		IgnoreStaticVars:     c.IgnoreStaticVars,
		OutputStructVars:     c.OutputStructVars,
	}
}
