package commands

import (
	"github.com/penwyp/go-cfs-perfmon/internal/presentation/formatter"
	"github.com/spf13/cobra"
)

var (
	// Events command flags
	eventsErrorsOnly bool
	eventsOffset     int
	eventsLimit      int
)

var eventsCmd = &cobra.Command{
	Use:   "events LOG...",
	Short: "List enriched events with sequence, time and overrun flags",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runEvents,
}

func init() {
	rootCmd.AddCommand(eventsCmd)

	eventsCmd.Flags().BoolVar(&eventsErrorsOnly, "errors-only", false,
		"Only list sequence errors, time anomalies and overruns")
	eventsCmd.Flags().IntVar(&eventsOffset, "offset", 0,
		"Skip this many listed events")
	eventsCmd.Flags().IntVar(&eventsLimit, "limit", 0,
		"Maximum number of events (0 = unlimited)")
}

func runEvents(cmd *cobra.Command, args []string) error {
	env, err := setup(cmd)
	if err != nil {
		return err
	}
	result, err := env.load(cmd, args)
	if err != nil {
		return err
	}

	return formatter.NewEventsFormatter(cmd.OutOrStdout(), env.analyzer.Registry(), formatter.EventsOptions{
		ErrorsOnly: eventsErrorsOnly,
		Offset:     eventsOffset,
		Limit:      eventsLimit,
	}).Format(result)
}
