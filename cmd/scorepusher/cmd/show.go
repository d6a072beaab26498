package cmd

import (
	"scorepusher/cmd/scorepusher/globals"
	"scorepusher/lib/scores"

	"github.com/spf13/cobra"
)

var showStored bool

func init() {
	showCmd.Flags().BoolVar(&showStored, "stored", false, "print the stored snapshot instead of fetching")
	rootCmd.AddCommand(showCmd)
}

var showCmd = &cobra.Command{
	Use:     "show",
	Short:   "Prints the current scores without comparing or pushing them.",
	PreRunE: loadGlobals,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		value := globals.Get(ctx)
		config := value.Config

		var snapshot scores.Snapshot
		if showStored {
			store, err := config.OpenStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()
			snapshot, err = store.Load(ctx)
			if err != nil {
				return err
			}
		} else {
			fetcher, err := config.Fetcher(value.Debug)
			if err != nil {
				return err
			}
			snapshot, err = fetcher.Fetch(ctx)
			if err != nil {
				return err
			}
		}

		renderRecords(cmd.OutOrStdout(), snapshot)
		return nil
	},
}
