// Package commands provides the CLI commands for Parley.
package commands

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/parleyhq/parley/internal/logging"
)

var (
	// Version information set at build time
	Version   = "0.1.0"
	BuildTime = "dev"
)

// Global flags
var (
	logLevel  string
	prettyLog bool
)

var rootCmd = &cobra.Command{
	Use:   "parley",
	Short: "Parley - AI completion gateway",
	Long: `Parley stores provider credentials in an encrypted vault, keeps
conversation threads on disk, and relays completions to AI providers
over a single HTTP API.

Run 'parley serve' to start the gateway, or 'parley credential' to
manage sealed API keys.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// .env is optional; absence is not an error.
		godotenv.Load()

		logging.Init(logging.Config{
			Level:  logLevel,
			Output: os.Stderr,
			Pretty: prettyLog,
		})
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().BoolVar(&prettyLog, "pretty", false, "Human-readable log output")

	rootCmd.SetVersionTemplate(fmt.Sprintf("parley %s (%s)\n", Version, BuildTime))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(credentialCmd)
	rootCmd.AddCommand(modelsCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
