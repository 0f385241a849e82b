package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/veritext/apparatus/gate"
	"github.com/veritext/apparatus/logger"
	"github.com/veritext/apparatus/sym"
	"github.com/veritext/apparatus/variant"
)

// PendingCmd represents the pending command
var PendingCmd = &cobra.Command{
	Use:   "pending SCOPE",
	Short: sym.Pending + " List units awaiting acknowledgement",
	Long: sym.Pending + ` pending — List units awaiting acknowledgement

Lists every significant or major variant unit in the scope that the
session has not yet acknowledged. The gate tracks merged units, so a
unit corroborated by more packs after acknowledgement never reappears.

Examples:
  apparatus pending "John 1" --session reader-1`,
	Args: cobra.ExactArgs(1),
	RunE: runPending,
}

var pendingSessionFlag string

func init() {
	PendingCmd.Flags().StringVar(&pendingSessionFlag, "session", "", "Acknowledgement session ID (required)")
	PendingCmd.MarkFlagRequired("session")
}

func runPending(cmd *cobra.Command, args []string) error {
	database, err := openDatabase("")
	if err != nil {
		return err
	}
	defer database.Close()

	store := variant.NewStore(database, logger.Logger)
	resolver := gate.NewResolver(database, store, logger.Logger)

	units, err := resolver.Pending(cmd.Context(), args[0], pendingSessionFlag)
	if err != nil {
		return err
	}

	if len(units) == 0 {
		fmt.Printf("Nothing pending in %s for session %s\n", args[0], pendingSessionFlag)
		return nil
	}

	fmt.Printf("%s %d unit(s) pending for session %s\n\n", sym.Pending, len(units), pendingSessionFlag)
	for _, unit := range units {
		fmt.Printf("%s  [%s]  %s\n", unit.Ref(), unit.Significance, unit.ReasonSummary)
	}
	return nil
}
