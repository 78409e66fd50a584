package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"missionflow/internal/display"
)

var validateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Check a mission system file without running anything",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, sys, _, err := loadSystem(args)
		if err != nil {
			return err
		}
		missionCount := 0
		for _, c := range sys.Chains {
			missionCount += len(c.Missions)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d chain(s), %d mission(s))\n", path, len(sys.Chains), missionCount)
		for _, name := range sys.ChainNames() {
			fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", name)
		}
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list [file]",
	Short: "List the chains and missions of a mission system file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, sys, _, err := loadSystem(args)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), display.FormatCatalog(path, sys))
		return nil
	},
}
