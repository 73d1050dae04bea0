package cmd

import (
	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-bootctl/pkg/app/dump"
)

var dumpAll bool

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Decode a GPT or devinfo record",
}

var dumpGptCmd = &cobra.Command{
	Use:   "gpt <device>",
	Short: "Decode the GPT of a disk or image and verify its checksums",
	Long: `Decode the primary GPT header, compare stored and computed checksums of the
primary and backup tables, and list the boot_ partition entries.

Examples:
  go-bootctl dump gpt /dev/block/sda
  go-bootctl dump gpt disk.img --all -o yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := newContext()

		response, err := dump.HandleGpt(ctx, newDevice(ctx), &dump.GptRequest{
			Device:     args[0],
			All:        dumpAll,
			TraceBytes: config.TraceBytes,
		})
		if err != nil {
			return err
		}

		return dump.FormatOutput(ctx.Out, response, ctx.OutputFormat)
	},
}

var dumpDevinfoCmd = &cobra.Command{
	Use:   "devinfo [path]",
	Short: "Decode a devinfo record",
	Long: `Decode the devinfo record at path, or at the configured devinfo path when
none is given. Records that do not carry slot data are shown with valid=false.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := newContext()

		path := config.DevinfoPath
		if len(args) == 1 {
			path = args[0]
		}

		response, err := dump.HandleDevinfo(ctx, newDevice(ctx), &dump.DevinfoRequest{Path: path})
		if err != nil {
			return err
		}

		return dump.FormatOutput(ctx.Out, response, ctx.OutputFormat)
	},
}

func init() {
	dumpGptCmd.Flags().BoolVarP(&dumpAll, "all", "a", false, "list every non-empty partition entry")
	dumpCmd.AddCommand(dumpGptCmd, dumpDevinfoCmd)
	rootCmd.AddCommand(dumpCmd)
}
