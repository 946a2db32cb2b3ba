package commands

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-decls/pkg/selection"
)

var (
	dumpModel    modelFlags
	dumpOutput   string
	dumpTopLevel bool
)

var dumpPptsCmd = &cobra.Command{
	Use:   "dump-ppts <inputs...>",
	Short: "Write a program point list for selective tracing",
	Long: `Writes one line per function of the model. Delete the lines of the
functions that should not be traced and pass the file back with
--ppt-list.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := dumpModel.load(cmd.Context(), args)
		if err != nil {
			return err
		}
		return withOutput(dumpOutput, cmd.OutOrStdout(), func(w io.Writer) error {
			return selection.WriteProgramPoints(w, m)
		})
	},
}

var dumpVarsCmd = &cobra.Command{
	Use:   "dump-vars <inputs...>",
	Short: "Write a variable list for selective tracing",
	Long: `Writes a globals section and one section per function listing every
variable that would be declared. Delete lines and pass the file back with
--var-list. The configured disambiguation file shapes the names.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := dumpModel.load(cmd.Context(), args)
		if err != nil {
			return err
		}
		// The dump lists everything, whatever lists are configured.
		cfg.PptListFile = ""
		cfg.VarListFile = ""
		eng, _, err := newEngine(m)
		if err != nil {
			return err
		}
		return withOutput(dumpOutput, cmd.OutOrStdout(), func(w io.Writer) error {
			return selection.WriteVariables(w, eng, dumpTopLevel)
		})
	},
}

func init() {
	for _, cmd := range []*cobra.Command{dumpPptsCmd, dumpVarsCmd} {
		dumpModel.register(cmd)
		cmd.Flags().StringVarP(&dumpOutput, "output", "o", "", "Output file (default stdout)")
		RootCmd.AddCommand(cmd)
	}
	dumpVarsCmd.Flags().BoolVar(&dumpTopLevel, "top-level", false, "List only parameters, globals and return values")
}
