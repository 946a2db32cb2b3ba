package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-decls/internal/config"
	"github.com/l3aro/go-decls/internal/log"
)

var (
	configPath string
	verbose    bool
	jsonLog    bool

	// cfg and logger are set up by the root command before any subcommand
	// runs.
	cfg    *config.Config
	logger log.Logger = log.Default()
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "gdecls",
	Short: "gdecls - Daikon declaration generator for C and C++ programs",
	Long: `gdecls turns a structural model of a program (its types, globals and
functions) into the .decls file that Daikon reads before a trace.

Commands:
  emit        Write the declarations of a model
  dump-ppts   Write a program point list for selective tracing
  dump-vars   Write a variable list for selective tracing
  disambig    Generate a .disambig file from recorded observations
  observe     Manage the pointer observation store
  init        Create a configuration file interactively

Use "gdecls [command] --help" for more information about a command.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return RootCmd.Execute()
}

func setup() error {
	var err error
	if configPath != "" {
		cfg, err = config.LoadFromFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	level := log.InfoLevel
	if verbose || cfg.Verbose {
		level = log.DebugLevel
	}
	logger = log.New(log.LoggerConfig{
		Level:      level,
		JSONOutput: jsonLog || cfg.JSONLog,
	})
	return nil
}

func init() {
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default: ~/.gdecls and ./.gdecls layered)")
	RootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Debug logging")
	RootCmd.PersistentFlags().BoolVar(&jsonLog, "json-log", false, "Log as JSON lines")
}
