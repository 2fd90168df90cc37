package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var noteCmd = &cobra.Command{
	Use:   "note LOG INDEX [TEXT]",
	Short: "Attach a note to an event, or clear it when TEXT is omitted",
	Long: `Notes are stored next to the log in LOG.notes and shown in the events table.
INDEX is the event index within LOG.`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runNote,
}

func init() {
	rootCmd.AddCommand(noteCmd)
}

func runNote(cmd *cobra.Command, args []string) error {
	index, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid event index '%s'", args[1])
	}
	text := ""
	if len(args) == 3 {
		text = strings.TrimSpace(args[2])
	}

	env, err := setup(cmd)
	if err != nil {
		return err
	}
	if _, err := env.load(cmd, args[:1]); err != nil {
		return err
	}

	result, err := env.analyzer.SetNote(index, text)
	if err != nil {
		return err
	}
	if text == "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared note on event %d\n", index)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "Event %d (%s): %s\n", index, result.Events[index].EventType(), text)
	}
	return nil
}
