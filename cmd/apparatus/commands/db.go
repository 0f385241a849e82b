package commands

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/veritext/apparatus/config"
	"github.com/veritext/apparatus/errors"
	"github.com/veritext/apparatus/logger"
	"github.com/veritext/apparatus/sym"
	"github.com/veritext/apparatus/variant"
)

// DbCmd represents the db (database) command
var DbCmd = &cobra.Command{
	Use:   "db",
	Short: sym.DB + " Manage the apparatus database",
	Long: sym.DB + ` db — Manage the apparatus database

Examples:
  apparatus db stats   # show unit/reading/support/acknowledgement counts
  apparatus db reset "John 1:18"   # drop the unit at a location`,
}

var dbStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show database statistics",
	RunE:  runDbStats,
}

var dbResetCmd = &cobra.Command{
	Use:   "reset UNIT_REF",
	Short: "Delete the variant unit at a location",
	Long: `Deletes a unit with all its readings, supports, and
acknowledgements. The next build over the scope recreates it from the
packs.`,
	Args: cobra.ExactArgs(1),
	RunE: runDbReset,
}

func init() {
	DbCmd.AddCommand(dbStatsCmd)
	DbCmd.AddCommand(dbResetCmd)
}

func runDbReset(cmd *cobra.Command, args []string) error {
	unitRef, err := variant.ParseUnitRef(args[0])
	if err != nil {
		return err
	}

	database, err := openDatabase("")
	if err != nil {
		return err
	}
	defer database.Close()

	store := variant.NewStore(database, logger.Logger)
	deleted, err := store.DeleteUnit(cmd.Context(), unitRef.VerseID, unitRef.Position)
	if err != nil {
		return err
	}
	if !deleted {
		fmt.Printf("No variant unit at %s\n", unitRef)
		return nil
	}
	fmt.Printf("Deleted variant unit at %s\n", unitRef)
	return nil
}

func runDbStats(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "loading configuration")
	}

	database, err := openDatabase("")
	if err != nil {
		return err
	}
	defer database.Close()

	counts := map[string]int{}
	for _, table := range []string{"variant_units", "readings", "witness_supports", "acknowledgements"} {
		var n int
		err := database.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n)
		if err != nil && err != sql.ErrNoRows {
			return errors.Wrapf(err, "counting %s", table)
		}
		counts[table] = n
	}

	var bySignificance string
	rows, err := database.Query(`
		SELECT significance, COUNT(*)
		FROM variant_units
		GROUP BY significance
		ORDER BY COUNT(*) DESC`)
	if err != nil {
		return errors.Wrap(err, "querying significance breakdown")
	}
	defer rows.Close()
	for rows.Next() {
		var significance string
		var n int
		if err := rows.Scan(&significance, &n); err != nil {
			return errors.Wrap(err, "scanning significance row")
		}
		bySignificance += fmt.Sprintf("  %-12s %d\n", significance, n)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	fmt.Printf("%s Database Statistics\n", sym.DB)
	fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")
	fmt.Printf("Database Path:    %s\n", cfg.Database.Path)
	fmt.Printf("Variant Units:    %d\n", counts["variant_units"])
	fmt.Printf("Readings:         %d\n", counts["readings"])
	fmt.Printf("Witness Supports: %d\n", counts["witness_supports"])
	fmt.Printf("Acknowledgements: %d\n", counts["acknowledgements"])
	if bySignificance != "" {
		fmt.Printf("\nUnits by significance:\n%s", bySignificance)
	}
	return nil
}
