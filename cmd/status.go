package cmd

import (
	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-bootctl/pkg/app/status"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show slot authority, current slot and per-slot state",
	Long: `Select the slot authority (devinfo or GPT) and show the active, successful
and bootable state of each slot.

Examples:
  go-bootctl status
  go-bootctl status -o json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStatus()
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus() error {
	ctx := newContext()

	response, err := status.Handle(ctx, newSession(ctx))
	if err != nil {
		return err
	}

	return status.FormatOutput(ctx.Out, response, ctx.OutputFormat)
}
