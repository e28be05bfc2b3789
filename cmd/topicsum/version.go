package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is overridable at link time.
var version = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the topicsum version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("topicsum " + version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
