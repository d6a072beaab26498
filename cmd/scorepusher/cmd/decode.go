package cmd

import (
	"fmt"
	"os"
	"scorepusher/lib/platforms/eas"
	"scorepusher/lib/viewstate"

	"github.com/spf13/cobra"
)

var decodeRecords bool

func init() {
	decodeCmd.Flags().BoolVar(&decodeRecords, "records", false, "extract score records instead of printing the tree")
	rootCmd.AddCommand(decodeCmd)
}

var decodeCmd = &cobra.Command{
	Use:   "decode <file>",
	Short: "Decodes a saved __VIEWSTATE value, for checking the score page coordinates.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		state, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		root, err := viewstate.DecodeBase64(string(state))
		if err != nil {
			return err
		}

		if !decodeRecords {
			fmt.Fprint(cmd.OutOrStdout(), root.String())
			return nil
		}

		snapshot, err := eas.Extract(root)
		if err != nil {
			return err
		}
		renderRecords(cmd.OutOrStdout(), snapshot)
		return nil
	},
}
