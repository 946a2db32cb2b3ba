package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-decls/internal/store"
)

var observeCmd = &cobra.Command{
	Use:   "observe",
	Short: "Manage the pointer observation store",
	Long: `The observation store records, per program point and variable, whether
a pointer was seen referencing more than one element at runtime. The
disambig command reads it.`,
}

var observeImportCmd = &cobra.Command{
	Use:   "import [files...]",
	Short: "Record observations from tab-separated files",
	Long: `Each line reads "<ppt>\t<variable>\t<single|multiple>"; ppt is a
program point name, "globals" or "usertype.<Name>". With no files the
observations are read from stdin.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(s *store.Store) error {
			if len(args) == 0 {
				return importFrom(cmd, s, "stdin", cmd.InOrStdin())
			}
			for _, path := range args {
				f, err := os.Open(path)
				if err != nil {
					return fmt.Errorf("opening observations: %w", err)
				}
				err = importFrom(cmd, s, path, f)
				f.Close()
				if err != nil {
					return err
				}
			}
			return nil
		})
	},
}

var observeStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show observation store statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(s *store.Store) error {
			stats, err := s.GetStats()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Store: %s\n", s.Path())
			fmt.Fprintf(out, "Program points: %d\n", stats.Points)
			fmt.Fprintf(out, "Observations: %d\n", stats.Observations)
			fmt.Fprintf(out, "Multiple elements: %d\n", stats.MultipleElts)
			return nil
		})
	},
}

var observeClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every observation",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(s *store.Store) error {
			if err := s.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Observation store cleared.")
			return nil
		})
	},
}

func withStore(fn func(*store.Store) error) error {
	s, err := store.Open(cfg.ObservationDB)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

func importFrom(cmd *cobra.Command, s *store.Store, name string, r io.Reader) error {
	n, err := s.Import(r)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	logger.Info("observations imported", "source", name, "count", n)
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d observations from %s\n", n, name)
	return nil
}

func init() {
	observeCmd.AddCommand(observeImportCmd)
	observeCmd.AddCommand(observeStatsCmd)
	observeCmd.AddCommand(observeClearCmd)
	RootCmd.AddCommand(observeCmd)
}
