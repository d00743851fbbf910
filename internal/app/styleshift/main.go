// Package styleshift is the styleshift command line application: training
// a style transfer model and rewriting sentences with a trained one.
package styleshift

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/born-ml/styleshift/internal/cmdapp"
)

var appName = "styleshift"

// Version is reported by the version command.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Style transfer sequence-to-sequence trainer",
	Long: `Trains a GRU encoder with one decoder per style and a style adversary,
and rewrites sentences into a chosen style with a trained model`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), appName, Version)
	},
}

func init() {
	cmdapp.InitApplication(rootCmd, appName)
	setDefaults(cmdapp.Config)
	rootCmd.AddCommand(trainCmd, sampleCmd, versionCmd)
}

// Execute runs the root command
func Execute() {
	cmdapp.Execute(rootCmd)
}
