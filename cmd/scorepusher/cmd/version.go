package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// set with -ldflags "-X scorepusher/cmd/scorepusher/cmd.Version=..."
var Version = "dev"

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Prints the version.",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), Version)
	},
}
