package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/veritext/apparatus/errors"
	"github.com/veritext/apparatus/gate"
	"github.com/veritext/apparatus/logger"
	"github.com/veritext/apparatus/sym"
	"github.com/veritext/apparatus/variant"
)

// AckCmd represents the ack command
var AckCmd = &cobra.Command{
	Use:   "ack UNIT_REF READING_INDEX",
	Short: sym.Ack + " Acknowledge a variant unit for a session",
	Long: sym.Ack + ` ack — Acknowledge a variant unit for a session

Marks a unit acknowledged, recording which reading the session settled
on. Acknowledgement is one-way and per session: re-acknowledging
updates the reason and timestamp without creating a second record.

UNIT_REF is "Book.Chapter.Verse@position"; a bare verse reference
means position 0.

Examples:
  apparatus ack John.1.18@0 1 --session reader-1 --reason "checked NA28 apparatus"
  apparatus ack John.1.18 0 --session reader-1`,
	Args: cobra.ExactArgs(2),
	RunE: runAck,
}

var (
	ackSessionFlag string
	ackReasonFlag  string
)

func init() {
	AckCmd.Flags().StringVar(&ackSessionFlag, "session", "", "Acknowledgement session ID (required)")
	AckCmd.Flags().StringVar(&ackReasonFlag, "reason", "", "Free-form note recorded with the acknowledgement")
	AckCmd.MarkFlagRequired("session")
}

func runAck(cmd *cobra.Command, args []string) error {
	unitRef, err := variant.ParseUnitRef(args[0])
	if err != nil {
		return err
	}
	readingIndex, err := strconv.Atoi(args[1])
	if err != nil {
		return errors.NewInputError("invalid reading index %q", args[1])
	}

	database, err := openDatabase("")
	if err != nil {
		return err
	}
	defer database.Close()

	store := variant.NewStore(database, logger.Logger)
	resolver := gate.NewResolver(database, store, logger.Logger)

	rec, err := resolver.Acknowledge(cmd.Context(), unitRef, readingIndex, ackSessionFlag, ackReasonFlag)
	if err != nil {
		return err
	}

	fmt.Printf("%s Acknowledged %s reading %d for session %s (at %s)\n",
		sym.Ack, unitRef, rec.ReadingIndex, rec.SessionID, rec.AcknowledgedAt)
	return nil
}
