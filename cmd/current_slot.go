package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-bootctl/internal/types"
)

var currentSlotCmd = &cobra.Command{
	Use:   "current-slot",
	Short: "Print the suffix of the running slot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := newContext()

		slot, err := newSession(ctx).CurrentSlot()
		if err != nil {
			return err
		}

		fmt.Fprintln(ctx.Out, types.SlotSuffix(slot))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(currentSlotCmd)
}
