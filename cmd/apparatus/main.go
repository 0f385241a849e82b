package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/veritext/apparatus/cmd/apparatus/commands"
	"github.com/veritext/apparatus/config"
	"github.com/veritext/apparatus/logger"
)

var rootCmd = &cobra.Command{
	Use:   "apparatus",
	Short: "apparatus - Comparative text variant aggregation",
	Long: `apparatus - Multi-source textual variant aggregation.

apparatus merges readings from independently licensed text packs into
per-location variant units, classifies each difference against the
spine text, and gates significant variants behind per-session
acknowledgement.

Available commands:
  build   - Aggregate source packs into variant units
  show    - Render variant units for a scope
  pending - List units awaiting acknowledgement
  ack     - Acknowledge a variant unit for a session
  db      - Database operations

Examples:
  apparatus build "John 1" wh-1881 byz-2005
  apparatus show "John 1:18"
  apparatus pending "John 1" --session reader-1
  apparatus ack John.1.18@0 1 --session reader-1 --reason "reviewed"`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if err := logger.Initialize(cfg.Logging.JSON); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(commands.BuildCmd)
	rootCmd.AddCommand(commands.ShowCmd)
	rootCmd.AddCommand(commands.PendingCmd)
	rootCmd.AddCommand(commands.AckCmd)
	rootCmd.AddCommand(commands.DbCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	defer logger.Cleanup()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
