package cmd

import (
	"context"
	"log/slog"
	"scorepusher/cmd/scorepusher/globals"
	"scorepusher/lib/notify"
	"scorepusher/lib/scorestore"
	"scorepusher/lib/telemetry"
	"scorepusher/services/pusher"
	"time"

	"github.com/spf13/cobra"
)

var (
	oneshot bool
	dry     bool
)

func init() {
	runCmd.Flags().BoolVar(&oneshot, "oneshot", false, "run a single cycle and exit with its result")
	runCmd.Flags().BoolVar(&dry, "dry", false, "detect changes and save them without pushing")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:     "run",
	Short:   "Polls the portal and pushes every score change to the configured channels.",
	PreRunE: loadGlobals,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		config := globals.Get(ctx).Config

		tel, err := telemetry.Setup(ctx, "scorepusher", config.Telemetry)
		if err != nil {
			return err
		}
		defer func() {
			// ctx is usually canceled by now
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tel.Shutdown(shutdownCtx); err != nil {
				slog.Warn("failed to shutdown telemetry", "err", err)
			}
		}()

		store, err := config.OpenStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		service, err := newService(config, globals.Get(ctx).Debug, store, dry)
		if err != nil {
			return err
		}

		if oneshot {
			report, err := service.RunCycle(ctx)
			if err != nil {
				return err
			}
			slog.Info(
				"cycle complete",
				"records", report.Records,
				"changes", len(report.Changes),
				"push_errors", len(report.PushErrors),
			)
			return nil
		}

		telemetry.InstrumentPerfStats(ctx, time.Minute)
		service.Loop(ctx, config.Interval())
		return nil
	},
}

func newService(config globals.Config, debug bool, store scorestore.Store, dry bool) (pusher.Service, error) {
	fetcher, err := config.Fetcher(debug)
	if err != nil {
		return pusher.Service{}, err
	}
	diff, err := config.DiffOptions()
	if err != nil {
		return pusher.Service{}, err
	}

	channels := config.Channels(dry)
	if dry {
		slog.Info("dry run, changes will not be pushed")
	} else if len(channels) == 0 {
		slog.Warn("no channels configured, changes will only be logged")
	}

	return pusher.NewService(pusher.Options{
		Fetcher:    fetcher,
		Store:      store,
		Dispatcher: notify.NewDispatcher(),
		Channels:   channels,
		Diff:       diff,
	})
}
