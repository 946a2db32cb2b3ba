package commands

import (
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/l3aro/go-decls/internal/config"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize gdecls configuration interactively",
	Long: `Guides you through setting up gdecls configuration step by step.
Creates a config file with the declaration format, traversal bounds and
optional input files.`,
	Args: cobra.NoArgs,
	// A broken config must not stop the user from writing a new one.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInit()
	},
}

func validPositive(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return fmt.Errorf("enter a whole number of at least 1")
	}
	return nil
}

func runInit() error {
	cfg := config.DefaultConfig()

	recursion := strconv.Itoa(cfg.StructRecursionLimit)
	depth := strconv.Itoa(cfg.MaxNestingDepth)
	workers := strconv.Itoa(cfg.Workers)
	var saveLocation string

	form := huh.NewForm(
		// === SECTION 1: Output ===
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Declaration format").
				Description("Daikon 4 and later read the structured format").
				Options(
					huh.NewOption("Structured (ppt / variable records)", "structured"),
					huh.NewOption("Legacy (DECLARE blocks)", "legacy"),
				).
				Value(&cfg.Dialect),
			huh.NewConfirm().
				Title("Declare aggregate values themselves?").
				Description("Structs and unions are otherwise only expanded into their fields").
				Value(&cfg.OutputStructVars),
		),
		// === SECTION 2: Traversal ===
		huh.NewGroup(
			huh.NewInput().
				Title("Struct recursion limit").
				Description("How often one struct type may be re-entered while expanding a variable").
				Placeholder("1").
				Validate(validPositive).
				Value(&recursion),
			huh.NewInput().
				Title("Maximum nesting depth").
				Placeholder("8").
				Validate(validPositive).
				Value(&depth),
			huh.NewConfirm().
				Title("Skip global variables?").
				Value(&cfg.IgnoreGlobals),
			huh.NewConfirm().
				Title("Skip file-static variables?").
				Value(&cfg.IgnoreStaticVars),
		),
		// === SECTION 3: Inputs ===
		huh.NewGroup(
			huh.NewInput().
				Title(".disambig file (optional, press Enter to skip)").
				Placeholder("optional").
				Value(&cfg.DisambigFile),
			huh.NewInput().
				Title("Program point list (optional, press Enter to skip)").
				Placeholder("optional").
				Value(&cfg.PptListFile),
			huh.NewInput().
				Title("Variable list (optional, press Enter to skip)").
				Placeholder("optional").
				Value(&cfg.VarListFile),
			huh.NewInput().
				Title("Parallel workers").
				Placeholder("1").
				Validate(validPositive).
				Value(&workers),
		),
		// === SECTION 4: Config Location ===
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Save Configuration").
				Description("Where to save the configuration file?").
				Options(
					huh.NewOption("Project (./.gdecls/config.yaml)", "project"),
					huh.NewOption("Global (~/.gdecls/config.yaml)", "global"),
				).
				Value(&saveLocation),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	// Validated by the form.
	cfg.StructRecursionLimit, _ = strconv.Atoi(recursion)
	cfg.MaxNestingDepth, _ = strconv.Atoi(depth)
	cfg.Workers, _ = strconv.Atoi(workers)

	configPath := config.ProjectConfigFilePath()
	if saveLocation == "global" {
		configPath = config.GlobalConfigFilePath()
	}

	if _, err := os.Stat(configPath); err == nil {
		var overwrite bool
		confirm := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title("Config file exists").
					Description(fmt.Sprintf("Overwrite existing config at %s?", configPath)).
					Affirmative("Overwrite").
					Negative("Cancel").
					Value(&overwrite),
			),
		)
		if err := confirm.Run(); err != nil {
			return fmt.Errorf("interactive prompt failed: %w", err)
		}
		if !overwrite {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	fmt.Println("\n=== Configuration Preview ===")
	fmt.Printf("Config path: %s\n", configPath)
	fmt.Printf("Dialect: %s\n", cfg.Dialect)
	fmt.Printf("Struct recursion limit: %d\n", cfg.StructRecursionLimit)
	fmt.Printf("Max nesting depth: %d\n", cfg.MaxNestingDepth)
	fmt.Printf("Ignore globals: %t\n", cfg.IgnoreGlobals)
	fmt.Printf("Ignore static vars: %t\n", cfg.IgnoreStaticVars)
	fmt.Printf("Output struct vars: %t\n", cfg.OutputStructVars)
	if cfg.DisambigFile != "" {
		fmt.Printf("Disambig file: %s\n", cfg.DisambigFile)
	}
	fmt.Println("================================")

	if err := cfg.Save(configPath); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Printf("Configuration saved to: %s\n", configPath)
	return nil
}

func init() {
	RootCmd.AddCommand(initCmd)
}
