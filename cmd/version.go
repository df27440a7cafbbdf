package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is overridden at build time with -ldflags.
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the gossh version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("gossh", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
