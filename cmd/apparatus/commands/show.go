package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/veritext/apparatus/errors"
	"github.com/veritext/apparatus/logger"
	"github.com/veritext/apparatus/ref"
	"github.com/veritext/apparatus/sym"
	"github.com/veritext/apparatus/variant"
)

// ShowCmd represents the show command
var ShowCmd = &cobra.Command{
	Use:   "show SCOPE",
	Short: sym.Show + " Render variant units for a scope",
	Long: sym.Show + ` show — Render variant units for a scope

Prints every variant unit in the scope with its readings, witness
support, classification, and significance, in document order.

Examples:
  apparatus show "John 1"      # all units in the chapter
  apparatus show "John 1:18"   # one verse`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	scope, err := ref.ParseScope(args[0])
	if err != nil {
		return err
	}

	database, err := openDatabase("")
	if err != nil {
		return err
	}
	defer database.Close()

	store := variant.NewStore(database, logger.Logger)
	units, err := store.GetUnitsForScope(cmd.Context(), scope)
	if err != nil {
		return errors.Wrapf(err, "loading units for %s", scope)
	}

	if len(units) == 0 {
		fmt.Printf("No variant units in %s\n", scope)
		return nil
	}

	fmt.Printf("%s %d variant unit(s) in %s\n\n", sym.Show, len(units), scope)
	for _, unit := range units {
		printUnit(unit)
	}
	return nil
}

func printUnit(unit *variant.Unit) {
	fmt.Printf("%s  [%s/%s]  %s\n", unit.Ref(), unit.Classification, unit.Significance, unit.ReasonSummary)
	for _, reading := range unit.Readings {
		marker := " "
		if reading.IsSpine {
			marker = "*"
		}
		fmt.Printf("  %s [%d] %s\n", marker, reading.Index, reading.SurfaceText)
		for _, support := range reading.Supports {
			parts := []string{fmt.Sprintf("%s (%s)", support.Siglum, support.Type)}
			if support.Century != nil {
				parts = append(parts, support.Century.String())
			}
			parts = append(parts, "pack:"+support.PackID)
			fmt.Printf("      %s\n", strings.Join(parts, "  "))
		}
	}
	fmt.Println()
}
