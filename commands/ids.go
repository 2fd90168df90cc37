package commands

import (
	"github.com/penwyp/go-cfs-perfmon/internal/core/registry"
	"github.com/spf13/cobra"
)

var idsCmd = &cobra.Command{
	Use:   "ids [LOG|DIR]...",
	Short: "Print the ID list, including IDs found in the given logs",
	Long: `Prints every known ID in ID list CSV format (name,value,color,freq,notes).
IDs seen in the logs but missing from the ID list are added with a palette color,
so the output can seed a new ID list.`,
	RunE: runIDs,
}

func init() {
	rootCmd.AddCommand(idsCmd)
}

func runIDs(cmd *cobra.Command, args []string) error {
	env, err := setup(cmd)
	if err != nil {
		return err
	}
	if len(args) > 0 {
		if _, err := env.load(cmd, args); err != nil {
			return err
		}
	}
	return registry.WriteIDList(cmd.OutOrStdout(), env.analyzer.Registry().Snapshot())
}
