package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// newHistoryCmd creates the 'history' subcommand, printing the occurrence
// history for one incident as JSON lines.
func newHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <incident-id>",
		Short: "Prints the occurrence history for an incident",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistoryCommand,
	}
}

func runHistoryCommand(cmd *cobra.Command, args []string) error {
	a, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	history, err := a.store.IncidentHistory(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("fetch incident history: %w", err)
	}
	if len(history) == 0 {
		return fmt.Errorf("no occurrences found for incident %s", args[0])
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	for _, occ := range history {
		if err := enc.Encode(occ); err != nil {
			return fmt.Errorf("encode occurrence: %w", err)
		}
	}
	return nil
}
