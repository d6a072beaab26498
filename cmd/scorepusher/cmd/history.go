package cmd

import (
	"fmt"
	"scorepusher/cmd/scorepusher/globals"
	"scorepusher/lib/scorestore"
	"scorepusher/lib/timezone"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var historyLimit int

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of cycles to print")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:     "history",
	Short:   "Prints the most recent successful cycles, needs a sqlite or libsql store.",
	PreRunE: loadGlobals,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		config := globals.Get(ctx).Config

		store, err := config.OpenStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		historyStore, ok := store.(scorestore.HistoryStore)
		if !ok {
			kind := config.Store.Kind
			if kind == "" {
				kind = scorestore.KindFile
			}
			return fmt.Errorf("store kind %q does not keep history", kind)
		}
		fetches, err := historyStore.History(ctx, historyLimit)
		if err != nil {
			return err
		}

		t := newTable(cmd.OutOrStdout())
		t.AppendHeader(table.Row{"Time", "Records"})
		for _, f := range fetches {
			t.AppendRow(table.Row{timezone.Format(f.Time), f.Records})
		}
		t.Render()
		return nil
	},
}
