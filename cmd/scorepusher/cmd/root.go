package cmd

import (
	"fmt"
	"os"
	"scorepusher/cmd/scorepusher/globals"
	"scorepusher/lib/serviceutil"
	"scorepusher/lib/telemetry"

	"github.com/spf13/cobra"
)

var (
	configPath string
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:          "scorepusher",
	Short:        "scorepusher watches the NJUPT academic portal and pushes score changes.",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(debug)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.json5", "path to the config file, <name>.local.<ext> overrides it")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging and http dumps")
}

// loadGlobals reads the config into the command's context, commands that
// talk to the portal or the store use it as their PreRunE.
func loadGlobals(cmd *cobra.Command, args []string) error {
	config, err := globals.ReadConfig(configPath)
	if err != nil {
		return err
	}
	cmd.SetContext(globals.Set(cmd.Context(), &globals.Value{
		Config: config,
		Debug:  debug,
	}))
	return nil
}

func Execute() {
	if err := rootCmd.ExecuteContext(serviceutil.SignalContext()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
