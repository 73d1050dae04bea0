package cmd

import (
	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-bootctl/pkg/app/activate"
	"github.com/deploymenttheory/go-bootctl/pkg/app/status"
)

var setActiveCmd = &cobra.Command{
	Use:   "set-active <a|b|0|1>",
	Short: "Make a slot the active boot slot",
	Long: `Mark the given slot active and every other slot inactive, then show the
refreshed slot state. Under GPT authority the primary and backup tables are
both updated; nothing is written when the slot is already active.

Examples:
  go-bootctl set-active b
  go-bootctl set-active _a
  go-bootctl set-active 1 --trace-bytes -v`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetActive(args[0])
	},
}

var markSuccessfulCmd = &cobra.Command{
	Use:   "mark-successful",
	Short: "Mark the running slot as successfully booted",
	Long: `Set the successful attribute on the boot entry of the running slot. Only
devices whose slot state lives in GPT support this; devinfo devices fail with
INVALID_INPUT.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMarkSuccessful()
	},
}

func init() {
	rootCmd.AddCommand(setActiveCmd, markSuccessfulCmd)
}

func runSetActive(slot string) error {
	ctx := newContext()

	response, err := activate.Handle(ctx, newSession(ctx), &activate.Request{Slot: slot})
	if err != nil {
		return err
	}

	return status.FormatOutput(ctx.Out, response, ctx.OutputFormat)
}

func runMarkSuccessful() error {
	ctx := newContext()

	response, err := activate.HandleMarkSuccessful(ctx, newSession(ctx))
	if err != nil {
		return err
	}

	return status.FormatOutput(ctx.Out, response, ctx.OutputFormat)
}
