package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/penwyp/go-cfs-perfmon/internal/analyzer"
	"github.com/penwyp/go-cfs-perfmon/internal/presentation/formatter"
	"github.com/penwyp/go-cfs-perfmon/internal/util"
	"github.com/penwyp/go-cfs-perfmon/internal/watch"
	"github.com/spf13/cobra"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch LOG...",
	Short: "Print statistics again whenever the logs or their notes change",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce,
		"Quiet period after a change before reloading")
}

func runWatch(cmd *cobra.Command, args []string) error {
	env, err := setup(cmd)
	if err != nil {
		return err
	}
	result, err := env.load(cmd, args)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	render := func(result *analyzer.Result) {
		fmt.Fprint(out, util.ClearScreen+util.MoveCursorHome)
		fmt.Fprintln(out, util.FormatHeaderTitle(fmt.Sprintf("cfs-perfmon watch (generation %d, %s)",
			result.Generation, result.ComputedAt.Format(time.TimeOnly))))
		if err := formatter.NewTableFormatter(out).Format(result); err != nil {
			util.LogError(fmt.Sprintf("Failed to render statistics: %v", err))
		}
	}
	render(result)

	fw, err := watch.NewFileWatcher(env.analyzer.Paths())
	if err != nil {
		return fmt.Errorf("failed to watch logs: %w", err)
	}
	defer fw.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reloader := watch.NewReloader(env.analyzer,
		watch.WithDebounce(watchDebounce),
		watch.OnResult(render),
		watch.OnError(func(err error) {
			fmt.Fprintln(out, util.FormatWarning(fmt.Sprintf("Reload failed: %v", err)))
		}))

	if err := reloader.Run(ctx, fw.Events()); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
