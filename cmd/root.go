package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Global output flags
	verbose      bool
	quiet        bool
	outputFormat string
	configFile   string
)

var rootCmd = &cobra.Command{
	Use:   "go-bootctl",
	Short: "Inspect and switch Android A/B boot slots",
	Long: `go-bootctl reads and updates the metadata that decides which of the two
Android A/B boot slots a device boots from.

Slot state is taken from the vendor devinfo record when it carries slot data
(version 3.3 or later), otherwise from the A/B attribute bits of the boot_a and
boot_b GPT partition entries. GPT updates keep the header and entry array
checksums of both the primary and backup tables consistent.

Commands:
  status           Show authority, current slot and per-slot state
  set-active       Make a slot the active boot slot
  mark-successful  Mark the running slot as successfully booted
  current-slot     Print the suffix of the running slot
  dump             Decode a GPT or devinfo record`,
	Version:       "0.1.0-dev",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: bootctl-config.yaml in ., ./config, $HOME/.bootctl, /etc/bootctl)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress output except errors")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format (table, json, yaml)")

	// Device overrides, bound to the same keys as the config file
	rootCmd.PersistentFlags().String("devinfo-path", "", "devinfo partition or image")
	rootCmd.PersistentFlags().String("boot-a-path", "", "boot_a partition path")
	rootCmd.PersistentFlags().String("boot-b-path", "", "boot_b partition path")
	rootCmd.PersistentFlags().String("slot-suffix", "", "running slot suffix, overriding bootconfig")
	rootCmd.PersistentFlags().Bool("trace-bytes", false, "log hex dumps of every region read or written (ignored with --quiet)")

	_ = viper.BindPFlag("devinfo_path", rootCmd.PersistentFlags().Lookup("devinfo-path"))
	_ = viper.BindPFlag("boot_a_path", rootCmd.PersistentFlags().Lookup("boot-a-path"))
	_ = viper.BindPFlag("boot_b_path", rootCmd.PersistentFlags().Lookup("boot-b-path"))
	_ = viper.BindPFlag("slot_suffix", rootCmd.PersistentFlags().Lookup("slot-suffix"))
	_ = viper.BindPFlag("trace_bytes", rootCmd.PersistentFlags().Lookup("trace-bytes"))

	rootCmd.MarkFlagsMutuallyExclusive("verbose", "quiet")
}

// GetVerbose returns the verbose flag value
func GetVerbose() bool {
	return verbose
}

// GetQuiet returns the quiet flag value
func GetQuiet() bool {
	return quiet
}

// GetOutputFormat returns the output format
func GetOutputFormat() string {
	return outputFormat
}
