package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/infinite-echoes/echoes"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of echoes",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "echoes version %s\n", strings.TrimSpace(echoes.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
