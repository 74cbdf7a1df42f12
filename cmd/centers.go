package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// newCentersCmd creates the 'centers' subcommand, printing how many known
// dispatch centers exist per state.
func newCentersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "centers",
		Short: "Prints known dispatch centers per state",
		RunE:  runCentersCommand,
	}
}

func runCentersCommand(cmd *cobra.Command, _ []string) error {
	a, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	summary, err := a.store.StateSummary(cmd.Context())
	if err != nil {
		return fmt.Errorf("fetch state summary: %w", err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STATE\tCENTERS")
	total := 0
	for _, sc := range summary {
		fmt.Fprintf(w, "%s\t%d\n", sc.State, sc.Centers)
		total += sc.Centers
	}
	fmt.Fprintf(w, "TOTAL\t%d\n", total)
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}
