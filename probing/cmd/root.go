// Package cmd provides the command-line interface for probing.
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/DeepLink-org/probing/config"
)

// conf holds the process configuration shared by all subcommands.
var conf = config.FromEnv()

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use: "probing",
	Short: "Probing CLI tool serves and exports traces recorded from " +
		"instrumented programs.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return conf.LoadDotenv(".env")
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
