// Robowifi configures the wifi connection of Opentrons robots.
//
// It discovers robots over mDNS, shows the networks each robot can see and
// joins or leaves networks through the robot's HTTP API. Passphrases and EAP
// secrets are sent to the robot and never stored locally.
//
// Usage:
//
//	robowifi [command] [flags]
//
// Running without arguments launches the interactive wizard.
// See 'robowifi --help' for available commands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/robowifi/internal/logging"
	"github.com/muurk/robowifi/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		logging.Error("Command failed", zap.Error(err))
	}
	logging.Sync()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "robowifi",
	Short: "Robot Wi-Fi Setup Utility",
	Long: `A standalone utility for managing the wifi connection of Opentrons robots.

Provides robot discovery, an interactive network picker, and direct
commands to join, leave and inspect wifi networks.

If no command is specified, the interactive wizard will launch automatically.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default behavior: run wizard when no subcommand provided
		return runWizard(cmd, args)
	},
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentPreRunE = initLogging

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("robowifi %s\n", version.Full())
	},
}

// initLogging sets up the package-global logger. The wizard owns the
// terminal, so it always logs to a file.
func initLogging(cmd *cobra.Command, args []string) error {
	if logFile != "" || isWizard(cmd) {
		path, err := wizardLogPath()
		if err != nil {
			return err
		}
		return logging.InitializeToFile(logLevel, path)
	}
	return logging.Initialize(logLevel)
}

func isWizard(cmd *cobra.Command) bool {
	return cmd == rootCmd || cmd == wizardCmd
}
