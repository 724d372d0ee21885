package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the tool version reported by the version subcommand.
const Version = "2.0.0"

// versionCmd represents the version command.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the tool version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "watermark-remover %s\n", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
