package commands

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-decls/internal/store"
	"github.com/l3aro/go-decls/pkg/disambig"
	"github.com/l3aro/go-decls/pkg/model"
)

var (
	disambigModel  modelFlags
	disambigOutput string
)

var disambigCmd = &cobra.Command{
	Use:   "disambig <inputs...>",
	Short: "Generate a .disambig file from recorded observations",
	Long: `Chooses a disambiguation letter for every ambiguous global, parameter,
return value and struct member of the model. Pointers observed to
reference a single element get 'P', other pointers and arrays 'A',
strings 'S' and plain chars 'I'. Observations come from the store (see "gdecls observe").`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := disambigModel.load(cmd.Context(), args)
		if err != nil {
			return err
		}

		obs := model.NewObservations()
		s, err := store.Open(cfg.ObservationDB)
		if err != nil {
			return err
		}
		defer s.Close()
		applied, unknown, err := s.LoadInto(m, obs)
		if err != nil {
			return err
		}
		if unknown > 0 {
			logger.Warn("observations name variables missing from the model", "count", unknown)
		}
		logger.Info("observations applied", "count", applied, "db", s.Path())

		return withOutput(disambigOutput, cmd.OutOrStdout(), func(w io.Writer) error {
			return disambig.Generate(w, m, obs)
		})
	},
}

func init() {
	disambigModel.register(disambigCmd)
	disambigCmd.Flags().StringVarP(&disambigOutput, "output", "o", "", "Output file (default stdout)")
	RootCmd.AddCommand(disambigCmd)
}
