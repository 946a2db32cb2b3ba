package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-decls/pkg/decls"
	"github.com/l3aro/go-decls/pkg/disambig"
	"github.com/l3aro/go-decls/pkg/model"
	"github.com/l3aro/go-decls/pkg/selection"
	"github.com/l3aro/go-decls/pkg/traverse"
)

var (
	emitModel         modelFlags
	emitDialect       string
	emitPptList       string
	emitVarList       string
	emitDisambig      string
	emitComparability string
	emitWorkers       int
	emitOutput        string
	emitDryRun        bool
)

var emitCmd = &cobra.Command{
	Use:   "emit <inputs...>",
	Short: "Write the declarations of a model",
	Long: `Reads a model (YAML documents, or C/C++ sources with --source) and
writes its Daikon declarations: the header, the entry and exit program
points of every traced function, then the object program points.

Flags override the matching config keys.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		applyEmitFlags(cmd)

		m, err := emitModel.load(cmd.Context(), args)
		if err != nil {
			return err
		}
		eng, programs, err := newEngine(m)
		if err != nil {
			return err
		}

		opts := decls.Options{
			Dialect: cfg.DeclDialect(),
			Workers: cfg.Workers,
			Logger:  logger,
		}
		if programs.HasProgramPoints() {
			opts.Programs = programs
		}
		if cfg.ComparabilityFile != "" {
			table, err := decls.LoadComparabilityFile(cfg.ComparabilityFile)
			if err != nil {
				return err
			}
			opts.Comparability = table
		}
		em := decls.New(eng, opts)

		if emitDryRun {
			return writeDryRun(cmd.OutOrStdout(), em)
		}
		return withOutput(emitOutput, cmd.OutOrStdout(), em.WriteAll)
	},
}

// applyEmitFlags copies explicitly set flags over the loaded config.
func applyEmitFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("dialect") {
		cfg.Dialect = emitDialect
	}
	if flags.Changed("ppt-list") {
		cfg.PptListFile = emitPptList
	}
	if flags.Changed("var-list") {
		cfg.VarListFile = emitVarList
	}
	if flags.Changed("disambig") {
		cfg.DisambigFile = emitDisambig
	}
	if flags.Changed("comparability") {
		cfg.ComparabilityFile = emitComparability
	}
	if flags.Changed("workers") {
		cfg.Workers = emitWorkers
	}
}

// newEngine builds the traversal engine for m from the config, loading the
// selective-trace lists and the disambiguation file it names.
func newEngine(m *model.Model) (*traverse.Engine, *selection.Filter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	opts := cfg.TraverseOptions()

	filter, err := selection.LoadFile(cfg.PptListFile, cfg.VarListFile)
	if err != nil {
		return nil, nil, err
	}
	if filter.HasVariables() {
		opts.Filter = filter
	}

	if cfg.DisambigFile != "" {
		overrides, err := disambig.LoadFile(cfg.DisambigFile)
		if err != nil {
			return nil, nil, err
		}
		logger.Debug("disambiguation loaded", "file", cfg.DisambigFile, "entries", overrides.Len())
		opts.Overrides = overrides
	}
	return traverse.New(m, opts), filter, nil
}

func writeDryRun(w io.Writer, em *decls.Emitter) error {
	counts, err := em.DryRun()
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	total := 0
	for _, c := range counts {
		point := "EXIT"
		if c.IsEntry {
			point = "ENTER"
		}
		fmt.Fprintf(bw, "%s:::%s\t%d\n", c.Function.PptName(), point, c.Count)
		total += c.Count
	}
	fmt.Fprintf(bw, "total\t%d\n", total)
	return bw.Flush()
}

// withOutput runs write against the named file, or stdout when path is
// empty or "-".
func withOutput(path string, stdout io.Writer, write func(io.Writer) error) error {
	if path == "" || path == "-" {
		return write(stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	bw := bufio.NewWriter(f)
	if err := write(bw); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("writing output: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	logger.Debug("output written", "path", path)
	return nil
}

func init() {
	emitModel.register(emitCmd)
	emitCmd.Flags().StringVar(&emitDialect, "dialect", "", "Declaration format: structured or legacy")
	emitCmd.Flags().StringVar(&emitPptList, "ppt-list", "", "Program point list file")
	emitCmd.Flags().StringVar(&emitVarList, "var-list", "", "Variable list file")
	emitCmd.Flags().StringVar(&emitDisambig, "disambig", "", ".disambig file")
	emitCmd.Flags().StringVar(&emitComparability, "comparability", "", "Comparability table (YAML)")
	emitCmd.Flags().IntVar(&emitWorkers, "workers", 1, "Functions rendered in parallel")
	emitCmd.Flags().StringVarP(&emitOutput, "output", "o", "", "Output file (default stdout)")
	emitCmd.Flags().BoolVar(&emitDryRun, "dry-run", false, "Only count the variables of each program point")
	RootCmd.AddCommand(emitCmd)
}
